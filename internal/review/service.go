package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
)

// Revalidator re-scores and re-routes an edited result.
type Revalidator interface {
	Revalidate(r entity.ExtractionResult) entity.ExtractionResult
}

// Document is the editable part of a stored result.
type Document struct {
	Metadata entity.Metadata   `json:"metadata"`
	Vendor   DocumentVendor    `json:"vendor"`
	Items    []entity.LineItem `json:"items"`
	Totals   entity.Totals     `json:"totals"`
}

type DocumentVendor struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Service applies manual corrections as new revisions in the record store.
type Service struct {
	repo   repository.InvoiceRepository
	proc   Revalidator
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, proc Revalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, proc: proc, logger: logger}
}

// Template returns the latest revision of an invoice as an editable document.
func (s *Service) Template(ctx context.Context, invoiceNo string) ([]byte, error) {
	rec, err := s.repo.Latest(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	doc := Document{
		Metadata: rec.Result.Metadata,
		Vendor:   DocumentVendor{Name: rec.Result.Vendor.Name, Confidence: rec.Result.Vendor.Confidence},
		Items:    rec.Result.Items,
		Totals:   rec.Result.Totals,
	}
	if doc.Items == nil {
		doc.Items = []entity.LineItem{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ApplyCorrection validates a corrected document for invoiceNo, re-routes it
// and appends it as a new revision. The previous revisions are kept.
func (s *Service) ApplyCorrection(ctx context.Context, invoiceNo string, raw []byte) (*entity.InvoiceRecord, error) {
	start := time.Now()
	prev, err := s.repo.Latest(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}

	clean, changed, err := NormalizeAndSanitizeJSON(raw, s.logger)
	if err != nil {
		return nil, common.NewAppError("INVALID_CORRECTION", "decode correction", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if err := ValidateDocument(clean); err != nil {
		s.logger.Warn("review.correction.invalid", "invoice_no", invoiceNo, "err", err)
		return nil, common.NewAppError("INVALID_CORRECTION", "correction does not match schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}

	var doc Document
	if err := json.Unmarshal(clean, &doc); err != nil {
		return nil, common.NewAppError("INVALID_CORRECTION", "decode correction", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}

	corrected := entity.ExtractionResult{
		Metadata: doc.Metadata,
		Vendor: entity.Vendor{
			Name:       doc.Vendor.Name,
			Confidence: doc.Vendor.Confidence,
			Method:     prev.Result.Vendor.Method,
		},
		Items:  doc.Items,
		Totals: doc.Totals,
		Source: prev.Result.Source,
	}
	if corrected.Vendor.Name != prev.Result.Vendor.Name {
		corrected.Vendor.Method = constants.VendorMethodManual
	}
	corrected = s.proc.Revalidate(corrected)

	rec, err := s.repo.Append(ctx, repository.AppendRequest{
		Key:    prev.InvoiceNo,
		Result: corrected,
		Source: constants.SourceCorrection,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("review.correction.ok",
		"invoice_no", rec.InvoiceNo,
		"revision", rec.Revision,
		"status", rec.Status,
		"changed", len(changed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}
