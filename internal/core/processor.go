package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/classify"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/extract"
	"github.com/joseph-ayodele/invoice-processor/internal/validate"
)

// VendorClassifier names the issuing vendor of an invoice text. Implementations never fail.
type VendorClassifier interface {
	Predict(text string) classify.Prediction
}

// Processor runs text extraction, field extraction, vendor classification and
// routing for one document at a time.
type Processor struct {
	logger    *slog.Logger
	text      extract.TextExtractor
	fields    extract.FieldExtractor
	vendors   VendorClassifier
	validator *validate.Validator
}

func NewProcessor(
	logger *slog.Logger,
	text extract.TextExtractor,
	fields extract.FieldExtractor,
	vendors VendorClassifier,
	validator *validate.Validator,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validate.NewValidator(validate.DefaultPolicy(), logger)
	}
	return &Processor{
		logger:    logger,
		text:      text,
		fields:    fields,
		vendors:   vendors,
		validator: validator,
	}
}

// ProcessText builds a fully routed result from raw invoice text. It never fails.
func (p *Processor) ProcessText(ctx context.Context, text string) entity.ExtractionResult {
	start := time.Now()
	log := p.log(ctx)

	f := p.fields.Extract(text)
	res := entity.ExtractionResult{
		Metadata: f.Metadata,
		Items:    f.Items,
		Totals:   f.Totals,
		Vendor:   p.classify(p.fields.VendorText(text)),
	}
	if res.Items == nil {
		res.Items = []entity.LineItem{}
	}
	res.Validation = p.validator.Validate(res, len([]rune(text)))

	log.Info("processor.text.ok",
		"invoice_no", res.Metadata.InvoiceNo,
		"vendor", res.Vendor.Name,
		"items", len(res.Items),
		"confidence", res.Validation.OverallConfidence,
		"status", res.Validation.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// ProcessFile extracts text from the document at path and processes it.
// Extraction failures degrade to a low-confidence result; only unreadable or
// unsupported files return an error.
func (p *Processor) ProcessFile(ctx context.Context, path string) (entity.ExtractionResult, error) {
	start := time.Now()
	log := p.log(ctx)

	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.ExtractionResult{}, common.WrapError(common.ErrInvalidInput, err.Error())
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return entity.ExtractionResult{}, common.NewAppError("UNSUPPORTED", fmt.Sprintf("unsupported file type %q", ext), common.ErrUnsupported)
	}
	hash, err := HashFile(abs)
	if err != nil {
		return entity.ExtractionResult{}, err
	}

	tr, err := p.text.Extract(ctx, abs)
	var extractWarning string
	if err != nil {
		log.Warn("processor.ocr.failed", "path", abs, "err", err)
		tr = extract.DocumentText{Format: format}
		extractWarning = "text extraction failed: " + err.Error()
	} else {
		log.Debug("processor.ocr.ok",
			"path", abs,
			"method", tr.Method,
			"pages", tr.Pages,
			"confidence", tr.Confidence,
		)
	}

	res := p.ProcessText(ctx, tr.Text)
	res.Source = &entity.SourceInfo{
		Path:          abs,
		ContentHash:   hash,
		Format:        format,
		Method:        tr.Method,
		Pages:         tr.Pages,
		OCRConfidence: tr.Confidence,
		TextLength:    len([]rune(tr.Text)),
	}
	if extractWarning != "" {
		res.Validation.Warnings = append(res.Validation.Warnings, extractWarning)
		res.Validation.Status = p.validator.Policy().Route(res.Validation.OverallConfidence, true)
	}

	log.Info("processor.file.ok",
		"path", abs,
		"hash", hash,
		"status", res.Validation.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Revalidate re-routes a result whose fields were edited by hand.
func (p *Processor) Revalidate(r entity.ExtractionResult) entity.ExtractionResult {
	out := r.Clone()
	out.Vendor.Details = nil
	if info, ok := constants.LookupVendor(out.Vendor.Name); ok {
		out.Vendor.Details = &info
	}
	out.Validation = p.validator.Validate(out, validate.SkipTextCheck)
	return out
}

func (p *Processor) log(ctx context.Context) *slog.Logger {
	if attrs := common.LogAttrs(ctx); len(attrs) > 0 {
		return p.logger.With(attrs...)
	}
	return p.logger
}

// classify sees only non-field lines, so removing a field never lifts the vendor score.
func (p *Processor) classify(text string) entity.Vendor {
	pred := p.vendors.Predict(text)
	v := entity.Vendor{Name: pred.Name, Confidence: pred.Confidence, Method: pred.Method}
	if info, ok := constants.LookupVendor(pred.Name); ok {
		v.Details = &info
	}
	return v
}

// HashFile returns the hex SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", common.NewAppError("READ_ERROR", "open document", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", common.NewAppError("READ_ERROR", "hash document", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
