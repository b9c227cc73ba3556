package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-processor/internal/app"
	"github.com/joseph-ayodele/invoice-processor/internal/async"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/httpapi"
	"github.com/joseph-ayodele/invoice-processor/internal/ingest"
	"github.com/joseph-ayodele/invoice-processor/internal/logger"
	"github.com/joseph-ayodele/invoice-processor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log, closeLog, err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Dir:    cfg.Log.Dir,
	})
	if err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error("invoiced stopped with error", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *common.Config, log *slog.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DB.HealthCheck(ctx, 5*time.Second); err != nil {
		return err
	}

	// gRPC
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}
	grpcServer, healthServer := server.NewGRPCServer(
		server.NewInvoiceService(a.Processor, a.Ingest, a.Records, log), log)

	// HTTP
	handler := httpapi.NewHandler(httpapi.Deps{
		Processor:   a.Processor,
		Ingestor:    a.Ingest,
		Records:     a.Records,
		Exporter:    a.Export,
		Analytics:   a.Analytics,
		Review:      a.Review,
		Health:      a.DB,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	}, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, cfg.Server, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	queue := async.NewProcessorQueue(a.Ingest, log,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	serveErr := make(chan error, 2)
	go func() {
		log.Info("invoiced grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- err
		}
	}()
	go func() {
		log.Info("invoiced http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	fed := make(chan struct{})
	if len(cfg.Watch.Dirs) > 0 {
		events, errs, err := ingest.StartWatcher(watchCtx, ingest.WatchConfig{
			Roots:       cfg.Watch.Dirs,
			InitialScan: cfg.Watch.InitialScan,
			Debounce:    cfg.Watch.Debounce,
			Logger:      log,
		})
		if err != nil {
			log.Error("failed to start watcher", "dirs", cfg.Watch.Dirs, "error", err)
			close(fed)
		} else {
			go func() {
				for err := range errs {
					log.Warn("watch.error", "error", err)
				}
			}()
			go func() {
				defer close(fed)
				ingest.Feed(watchCtx, events, queue, log)
			}()
		}
	} else {
		close(fed)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		log.Error("server failed", "error", runErr)
	}

	log.Info("shutting down...")
	healthServer.Shutdown()
	stopWatch()
	<-fed

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)

	st := queue.Stats()
	log.Info("stopped", "queue_processed", st.Processed, "queue_failed", st.Failed)
	return runErr
}
