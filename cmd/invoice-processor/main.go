package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/invoice-processor/internal/app"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/logger"
)

const usage = `usage: invoice-processor [-config path] <command> [flags]

commands:
  process  <file>          extract, classify and route one document
  batch    -dir <dir>      process every supported document under a directory
  list                     list stored invoices (latest revision)
  show     <invoice_no>    print a stored invoice
  export                   write stored invoices as csv, json or xlsx
  correct  <invoice_no>    print a correction template or apply a corrected document
  train                    train the vendor classifier on synthetic invoices
  stats                    summarise routing outcomes
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// env carries what every command needs.
type env struct {
	cfg    *common.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"process": runProcess,
	"batch":   runBatch,
	"list":    runList,
	"show":    runShow,
	"export":  runExport,
	"correct": runCorrect,
	"train":   runTrain,
	"stats":   runStats,
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("invoice-processor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		printError(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError(stderr, "Error: %v\n", err)
		return 1
	}
	log, closeLog, err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Dir:    cfg.Log.Dir,
		Stdout: stderr,
	})
	if err != nil {
		printError(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closeLog() }()

	if err := cmd(ctx, &env{cfg: cfg, logger: log, stdout: stdout, stderr: stderr}, fs.Args()[1:]); err != nil {
		printError(stderr, "Error: %v\n", err)
		if errors.Is(err, flag.ErrHelp) || isUsage(err) {
			return 2
		}
		return 1
	}
	return 0
}

// open wires the application for commands that need the record store.
func (e *env) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, e.cfg, e.logger)
}

type usageError string

func (u usageError) Error() string { return string(u) }

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u)
}
