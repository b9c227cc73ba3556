package server

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/ingest"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
	"github.com/joseph-ayodele/invoice-processor/internal/utils"
)

// TextProcessor routes raw invoice text.
type TextProcessor interface {
	ProcessText(ctx context.Context, text string) entity.ExtractionResult
}

type InvoiceService struct {
	processor TextProcessor
	ingestor  ingest.Ingestor
	records   repository.InvoiceRepository
	logger    *slog.Logger
}

var _ InvoiceServiceServer = (*InvoiceService)(nil)

func NewInvoiceService(p TextProcessor, ing ingest.Ingestor, records repository.InvoiceRepository, logger *slog.Logger) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceService{processor: p, ingestor: ing, records: records, logger: logger}
}

// ProcessText routes {"text", "persist"}; persisted results are appended as a new revision.
func (s *InvoiceService) ProcessText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := getString(req, "text")
	if strings.TrimSpace(text) == "" {
		s.logger.Error("process text request missing text")
		return nil, status.Error(codes.InvalidArgument, "text is required")
	}

	res := s.processor.ProcessText(ctx, text)
	out := map[string]any{"result": res}

	if getBool(req, "persist") {
		rec, err := s.records.Append(ctx, repository.AppendRequest{Result: res, Source: constants.SourcePipeline})
		if err != nil {
			s.logger.Error("failed to store processed text", "error", err)
			return nil, common.ToStatus(err)
		}
		out["record"] = utils.ToSummary(rec)
	}
	return toStruct(out)
}

// ProcessFile ingests {"path", "force"} from the daemon's filesystem.
func (s *InvoiceService) ProcessFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(getString(req, "path"))
	if path == "" {
		s.logger.Error("process file request missing path")
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}

	s.logger.Info("starting file ingest", "path", path)
	r, err := s.ingestor.IngestPath(ctx, path, getBool(req, "force"))
	if err != nil {
		s.logger.Error("file ingest failed", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Info("file ingest succeeded", "path", r.SourcePath, "invoice_no", r.Record.InvoiceNo, "deduplicated", r.Deduplicated)

	return toStruct(map[string]any{
		"record":       r.Record,
		"deduplicated": r.Deduplicated,
		"content_hash": r.HashHex,
		"archive_key":  r.ArchiveKey,
	})
}

// GetInvoice returns the latest revision of {"invoice_no"}, or every revision when "history" is set.
func (s *InvoiceService) GetInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	no := strings.TrimSpace(getString(req, "invoice_no"))
	if no == "" {
		return nil, status.Error(codes.InvalidArgument, "invoice_no is required")
	}

	if getBool(req, "history") {
		recs, err := s.records.History(ctx, no)
		if err != nil {
			return nil, common.ToStatus(err)
		}
		return toStruct(map[string]any{"records": recs})
	}

	rec, err := s.records.Latest(ctx, no)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"record": rec})
}

// ListInvoices lists the latest revisions matching {"status", "vendor", "since", "limit"}.
func (s *InvoiceService) ListInvoices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := utils.ParseFilter(getString(req, "status"), getString(req, "vendor"), getString(req, "since"), getString(req, "limit"))
	if err != nil {
		return nil, common.ToStatus(err)
	}

	recs, err := s.records.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to list invoices", "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Info("invoices listed successfully", "count", len(recs))
	return toStruct(map[string]any{
		"invoices": utils.ToSummaries(recs),
		"count":    len(recs),
	})
}

func toStruct(v any) (*structpb.Struct, error) {
	st, err := utils.ToStruct(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return st, nil
}

func getString(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return ""
}

func getBool(s *structpb.Struct, key string) bool {
	v, ok := s.GetFields()[key]
	if !ok {
		return false
	}
	if b, ok := v.GetKind().(*structpb.Value_BoolValue); ok {
		return b.BoolValue
	}
	b, _ := strconv.ParseBool(v.GetStringValue())
	return b
}
