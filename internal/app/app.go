package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/analytics"
	"github.com/joseph-ayodele/invoice-processor/internal/archive"
	"github.com/joseph-ayodele/invoice-processor/internal/classify"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/core"
	"github.com/joseph-ayodele/invoice-processor/internal/export"
	"github.com/joseph-ayodele/invoice-processor/internal/extract"
	"github.com/joseph-ayodele/invoice-processor/internal/ingest"
	"github.com/joseph-ayodele/invoice-processor/internal/ocr"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
	"github.com/joseph-ayodele/invoice-processor/internal/review"
	"github.com/joseph-ayodele/invoice-processor/internal/validate"
)

// App holds the wired services shared by the CLI and the daemon.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Records   repository.InvoiceRepository
	Processor *core.Processor
	Ingest    *ingest.Usecase
	Export    *export.Service
	Analytics *analytics.Service
	Review    *review.Service
	Archive   *archive.MinioStore
}

// New opens the record store and wires the processing pipeline from cfg.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	records := repository.NewInvoiceRepository(db.Driver, logger)

	chain, err := BuildClassifier(cfg.Classifier, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	ocrExtractor := ocr.NewExtractor(OCRConfig(cfg.OCR), logger)
	proc := core.NewProcessor(
		logger,
		extract.NewOCRAdapter(ocrExtractor, logger),
		extract.NewExtractor(logger),
		chain,
		validate.NewValidator(validate.PolicyFromConfig(cfg.Routing), logger),
	)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Records:   records,
		Processor: proc,
		Export:    export.NewService(records, cfg.Export.Dir, logger),
		Analytics: analytics.NewService(records, logger),
		Review:    review.NewService(records, proc, logger),
	}

	var store archive.Store
	if cfg.Archive.Enabled() {
		ms, err := archive.NewMinioStore(cfg.Archive, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			// processing works without the archive; uploads will be retried per document
			logger.Warn("archive bucket unavailable", "bucket", cfg.Archive.Bucket, "error", err)
		}
		a.Archive = ms
		store = ms
	}
	a.Ingest = ingest.NewUsecase(proc, records, store, logger)

	logger.Info("app.init.ok",
		"db_driver", cfg.Database.Driver,
		"archive", cfg.Archive.Enabled(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

func (a *App) Close() {
	a.DB.Close()
}

// OCRConfig maps the configuration section onto the extractor settings.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:           c.Pdftotext,
		Pdftoppm:            c.Pdftoppm,
		Tesseract:           c.Tesseract,
		TesseractLang:       c.Lang,
		DPI:                 c.DPI,
		MaxPages:            c.MaxPages,
		TessdataDir:         c.TessdataDir,
		EnableTSVConfidence: c.EnableTSVConfidence,
		PSM:                 c.PSM,
		OEM:                 c.OEM,
		DisableTextLayer:    c.DisableTextLayer,
		DisablePreprocess:   c.DisablePreprocess,
		ArtifactCacheDir:    c.ArtifactCacheDir,
	}
}

// BuildClassifier loads the trained model at cfg.ModelPath when present. Without
// a model the chain runs on fuzzy matching alone.
func BuildClassifier(cfg common.ClassifierConfig, logger *slog.Logger) (*classify.Chain, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fuzzy := classify.NewFuzzyMatcher(nil, cfg.FuzzyLines)

	nb, err := classify.LoadNaiveBayes(cfg.ModelPath)
	switch {
	case err == nil:
		logger.Info("classifier.model.loaded", "path", cfg.ModelPath, "classes", len(nb.Classes()))
		return classify.NewChain(nb, fuzzy, cfg.FallbackBelow, logger), nil
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("classifier model not found, using fuzzy matching only", "path", cfg.ModelPath)
		return classify.NewChain(nil, fuzzy, cfg.FallbackBelow, logger), nil
	default:
		return nil, common.NewAppError("MODEL_ERROR", "load vendor model", err)
	}
}

// TrainClassifier trains a model on synthetic invoices for the known vendors and saves it.
func TrainClassifier(cfg common.ClassifierConfig, logger *slog.Logger) (*classify.NaiveBayes, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	samples := classify.GenerateTrainingData(constants.KnownVendors(), cfg.SamplesPerVendor, cfg.Seed)

	nb := classify.NewNaiveBayes()
	if err := nb.Train(samples); err != nil {
		return nil, err
	}
	if err := nb.Save(cfg.ModelPath); err != nil {
		return nil, common.NewAppError("MODEL_ERROR", "save vendor model", err)
	}
	logger.Info("classifier.train.ok",
		"samples", len(samples),
		"classes", len(nb.Classes()),
		"path", cfg.ModelPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nb, nil
}
