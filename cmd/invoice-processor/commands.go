package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/app"
	"github.com/joseph-ayodele/invoice-processor/internal/export"
	"github.com/joseph-ayodele/invoice-processor/internal/ingest"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
	"github.com/joseph-ayodele/invoice-processor/internal/utils"
)

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runProcess(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "process")
	force := fs.Bool("force", false, "process even if the document was seen before")
	asJSON := fs.Bool("json", false, "print the stored record as JSON")
	dryRun := fs.Bool("dry-run", false, "do not store the result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("process: exactly one file is required")
	}
	path := fs.Arg(0)

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if *dryRun {
		res, err := a.Processor.ProcessFile(ctx, path)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(e.stdout, res)
		}
		printResult(e.stdout, res)
		return nil
	}

	r, err := a.Ingest.IngestPath(ctx, path, *force)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.stdout, r.Record)
	}
	if r.Deduplicated {
		_, _ = color.New(color.FgCyan).Fprintf(e.stdout, "Already processed (hash %.12s), showing stored result. Use -force to reprocess.\n\n", r.HashHex)
	}
	fmt.Fprintf(e.stdout, "Stored as %s revision %d\n\n", r.Record.InvoiceNo, r.Record.Revision)
	printResult(e.stdout, r.Record.Result)
	return nil
}

func runBatch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "batch")
	dir := fs.String("dir", "", "directory to process invoices from (required)")
	force := fs.Bool("force", false, "reprocess documents seen before")
	hidden := fs.Bool("hidden", false, "include hidden files and directories")
	exportFormat := fs.String("export", "", "also export the batch results (csv, json, xlsx)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return usageError("batch: -dir is required")
	}
	var format export.Format
	if *exportFormat != "" {
		f, err := export.ParseFormat(*exportFormat)
		if err != nil {
			return err
		}
		format = f
	}

	paths, _, _, err := ingest.DiscoverFiles(*dir, !*hidden)
	if err != nil {
		return err
	}

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var onResult func(ingest.IngestionResult)
	if isTerminal(e.stderr) {
		bar := getProgressBar(e.stderr, len(paths), "Processing invoices")
		onResult = func(r ingest.IngestionResult) {
			bar.Describe(color.BlueString("Processing %s", filepath.Base(r.SourcePath)))
			_ = bar.Add(1)
		}
	}

	results, stats, err := a.Ingest.IngestDirectory(ctx, *dir, ingest.DirOptions{
		SkipHidden: !*hidden,
		Force:      *force,
		OnResult:   onResult,
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		name := filepath.Base(r.SourcePath)
		switch {
		case r.Err != "":
			_, _ = color.New(color.FgRed).Fprintf(e.stdout, "✗ %s: %s\n", name, r.Err)
		case r.Deduplicated:
			_, _ = color.New(color.FgCyan).Fprintf(e.stdout, "= %s: already processed as %s\n", name, r.Record.InvoiceNo)
		default:
			fmt.Fprintf(e.stdout, "✓ %s: %s ", name, r.Record.InvoiceNo)
			_, _ = statusColor(r.Status()).Fprintf(e.stdout, "%s (%.2f)\n", r.Status(), r.Record.Confidence)
		}
	}

	fmt.Fprintf(e.stdout, "\nMatched %d, succeeded %d, deduplicated %d, failed %d\n",
		stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
	for _, st := range constants.AllStatuses {
		_, _ = statusColor(st).Fprintf(e.stdout, "  %-28s %d\n", st, stats.ByStatus[st])
	}

	if format != "" {
		written, err := a.Export.ExportAll(ctx, repository.InvoiceFilter{}, format)
		if err != nil {
			return err
		}
		for _, p := range written {
			_, _ = color.New(color.FgGreen).Fprintf(e.stdout, "Exported %s\n", p)
		}
	}
	return nil
}

func filterFlags(fs *flag.FlagSet) func() (repository.InvoiceFilter, error) {
	status := fs.String("status", "", "auto, review or manual")
	vendor := fs.String("vendor", "", "vendor name (case-insensitive)")
	since := fs.String("since", "", "processed on or after YYYY-MM-DD")
	limit := fs.String("limit", "", "maximum number of invoices")
	return func() (repository.InvoiceFilter, error) {
		return utils.ParseFilter(*status, *vendor, *since, *limit)
	}
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "list")
	filter := filterFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.Records.List(ctx, f)
	if err != nil {
		return err
	}
	rows := utils.ToSummaries(recs)
	if *asJSON {
		return writeJSON(e.stdout, rows)
	}
	printSummaries(e.stdout, rows)
	return nil
}

func runShow(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "show")
	history := fs.Bool("history", false, "print every revision")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("show: exactly one invoice number is required")
	}

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if *history {
		recs, err := a.Records.History(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(e.stdout, recs)
		}
		printSummaries(e.stdout, utils.ToSummaries(recs))
		return nil
	}

	rec, err := a.Records.Latest(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.stdout, rec)
	}
	fmt.Fprintf(e.stdout, "Revision %d (%s, %s)\n\n", rec.Revision, rec.Source, rec.ProcessedAt.Format("2006-01-02 15:04:05"))
	printResult(e.stdout, rec.Result)
	return nil
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "export")
	filter := filterFlags(fs)
	formatFlag := fs.String("format", "", "csv, json or xlsx (default from config)")
	invoice := fs.String("invoice", "", "export a single invoice")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *formatFlag == "" {
		*formatFlag = e.cfg.Export.Format
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var written []string
	if *invoice != "" {
		written, err = a.Export.ExportInvoice(ctx, *invoice, format)
	} else {
		written, err = a.Export.ExportAll(ctx, f, format)
	}
	if err != nil {
		return err
	}
	for _, p := range written {
		_, _ = color.New(color.FgGreen).Fprintf(e.stdout, "Exported %s\n", p)
	}
	return nil
}

func runCorrect(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "correct")
	file := fs.String("file", "", "corrected JSON document; omit to print a template")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("correct: exactly one invoice number is required")
	}
	no := fs.Arg(0)

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if *file == "" {
		tmpl, err := a.Review.Template(ctx, no)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.stdout, string(tmpl))
		return err
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	rec, err := a.Review.ApplyCorrection(ctx, no, raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Stored %s revision %d: ", rec.InvoiceNo, rec.Revision)
	_, _ = statusColor(rec.Status).Fprintf(e.stdout, "%s (%.2f)\n", rec.Status, rec.Confidence)
	for _, w := range rec.Result.Validation.Warnings {
		_, _ = color.New(color.FgYellow).Fprintf(e.stdout, "  ! %s\n", w)
	}
	return nil
}

func runTrain(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "train")
	out := fs.String("out", "", "model path (default from config)")
	samples := fs.Int("samples", 0, "synthetic samples per vendor (default from config)")
	seed := fs.Int64("seed", 0, "random seed (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := e.cfg.Classifier
	if *out != "" {
		cfg.ModelPath = *out
	}
	if *samples > 0 {
		cfg.SamplesPerVendor = *samples
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	nb, err := app.TrainClassifier(cfg, e.logger)
	if err != nil {
		return err
	}
	_, _ = color.New(color.FgGreen).Fprintf(e.stdout, "Trained vendor classifier on %d vendors, saved to %s\n", len(nb.Classes()), cfg.ModelPath)
	return nil
}

func runStats(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "stats")
	filter := filterFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}

	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.Analytics.Report(ctx, f)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.stdout, r)
	}

	fmt.Fprintf(e.stdout, "Invoices:        %d\n", r.Total)
	fmt.Fprintf(e.stdout, "Avg confidence:  %.2f\n", r.AvgConfidence)
	fmt.Fprintf(e.stdout, "Auto-approval:   %.1f%%\n", r.AutoRate*100)
	fmt.Fprintf(e.stdout, "Manual:          %.1f%%\n\n", r.ManualRate*100)
	for _, st := range constants.AllStatuses {
		_, _ = statusColor(st).Fprintf(e.stdout, "  %-28s %d\n", st, r.ByStatus[st])
	}
	if len(r.Vendors) > 0 {
		fmt.Fprintln(e.stdout, "\nVendors:")
		for _, v := range r.Vendors {
			fmt.Fprintf(e.stdout, "  %-28s %4d  %.2f\n", v.Vendor, v.Count, v.AvgConfidence)
		}
	}
	return nil
}
