package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/archive"
	"github.com/joseph-ayodele/invoice-processor/internal/async"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/core"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
)

// Usecase processes documents and appends their results to the record store,
// skipping documents whose content was already processed.
type Usecase struct {
	processor DocumentProcessor
	records   repository.InvoiceRepository
	archive   archive.Store
	logger    *slog.Logger
}

var (
	_ Ingestor      = (*Usecase)(nil)
	_ async.Handler = (*Usecase)(nil)
)

// NewUsecase wires the ingest flow. store may be nil to disable archiving.
func NewUsecase(p DocumentProcessor, records repository.InvoiceRepository, store archive.Store, logger *slog.Logger) *Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &Usecase{processor: p, records: records, archive: store, logger: logger}
}

// IngestPath processes one document. Unless force is set, a document whose
// content hash is already stored returns the stored record.
func (u *Usecase) IngestPath(ctx context.Context, path string, force bool) (IngestionResult, error) {
	start := time.Now()
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	ctx = common.WithDocument(ctx, abs)
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !Supported(abs) {
		return out, common.NewAppError("UNSUPPORTED", fmt.Sprintf("unsupported or missing extension: %q", ext), common.ErrUnsupported)
	}

	hash, err := core.HashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = hash

	if !force {
		prev, err := u.records.FindByHash(ctx, hash)
		switch {
		case err == nil:
			u.logger.Info("ingest.dedup", "path", abs, "hash", hash, "invoice_no", prev.InvoiceNo, "revision", prev.Revision)
			out.Record = prev
			out.Deduplicated = true
			return out, nil
		case !errors.Is(err, common.ErrNotFound):
			return out, err
		}
	}

	res, err := u.processor.ProcessFile(ctx, abs)
	if err != nil {
		return out, err
	}

	if u.archive != nil {
		key, err := u.archive.Upload(ctx, abs, hash)
		if err != nil {
			// the record is still worth keeping without its archived copy
			u.logger.Warn("ingest.archive.failed", "path", abs, "error", err)
		} else {
			out.ArchiveKey = key
			if res.Source != nil {
				res.Source.ArchiveKey = key
			}
		}
	}

	rec, err := u.records.Append(ctx, repository.AppendRequest{
		Result: res,
		Source: constants.SourcePipeline,
	})
	if err != nil {
		return out, err
	}
	out.Record = rec

	u.logger.Info("ingest.path.ok",
		"path", abs,
		"invoice_no", rec.InvoiceNo,
		"revision", rec.Revision,
		"status", rec.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Handle lets the usecase drain an async.ProcessorQueue.
func (u *Usecase) Handle(ctx context.Context, job async.Job) error {
	_, err := u.IngestPath(ctx, job.Path, job.Force)
	return err
}
