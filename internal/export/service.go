package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
)

var reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Service renders stored invoices into export files.
type Service struct {
	repo   repository.InvoiceRepository
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, dir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "./exports"
	}
	return &Service{repo: repo, dir: dir, now: time.Now, logger: logger}
}

// ExportInvoice writes the latest revision of one invoice to the export
// directory and returns the written paths.
func (s *Service) ExportInvoice(ctx context.Context, invoiceNo string, format Format) ([]string, error) {
	rec, err := s.repo.Latest(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	return s.write(format, s.baseName(rec.InvoiceNo), []entity.ExtractionResult{rec.Result})
}

// ExportAll writes the latest revision of every invoice matching f.
func (s *Service) ExportAll(ctx context.Context, f repository.InvoiceFilter, format Format) ([]string, error) {
	files, err := s.Render(ctx, f, format)
	if err != nil {
		return nil, err
	}
	return s.save(files)
}

// Render produces export files in memory, e.g. for streaming over HTTP.
func (s *Service) Render(ctx context.Context, f repository.InvoiceFilter, format Format) ([]File, error) {
	start := time.Now()
	recs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	results := make([]entity.ExtractionResult, len(recs))
	for i, r := range recs {
		results[i] = r.Result
	}
	files, err := Render(results, format, s.baseName("all"))
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.render.ok",
		"format", format,
		"rows", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return files, nil
}

func (s *Service) write(format Format, base string, results []entity.ExtractionResult) ([]string, error) {
	files, err := Render(results, format, base)
	if err != nil {
		return nil, err
	}
	return s.save(files)
}

func (s *Service) save(files []File) ([]string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, common.NewAppError("EXPORT_ERROR", "create export dir", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(s.dir, f.Name)
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			return paths, common.NewAppError("EXPORT_ERROR", fmt.Sprintf("write %s", f.Name), err)
		}
		paths = append(paths, p)
		s.logger.Info("export.file.ok", "path", p, "bytes", len(f.Data))
	}
	return paths, nil
}

// baseName is export_<name>_<yyyymmdd_hhmmss>.
func (s *Service) baseName(name string) string {
	return fmt.Sprintf("export_%s_%s", reUnsafeName.ReplaceAllString(name, "_"), s.now().Format("20060102_150405"))
}
