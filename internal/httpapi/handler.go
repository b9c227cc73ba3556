package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/analytics"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/export"
	"github.com/joseph-ayodele/invoice-processor/internal/ingest"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
	"github.com/joseph-ayodele/invoice-processor/internal/review"
	"github.com/joseph-ayodele/invoice-processor/internal/utils"
)

// TextProcessor routes raw invoice text.
type TextProcessor interface {
	ProcessText(ctx context.Context, text string) entity.ExtractionResult
}

// HealthChecker reports whether the record store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the services the HTTP API is built on.
type Deps struct {
	Processor TextProcessor
	Ingestor  ingest.Ingestor
	Records   repository.InvoiceRepository
	Exporter  *export.Service
	Analytics *analytics.Service
	Review    *review.Service
	Health    HealthChecker

	// UploadDir receives uploaded documents before processing.
	UploadDir   string
	MaxUploadMB int
}

type Handler struct {
	Deps
	logger *slog.Logger
}

func NewHandler(d Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if d.UploadDir == "" {
		d.UploadDir = filepath.Join(os.TempDir(), "invoice-uploads")
	}
	if d.MaxUploadMB <= 0 {
		d.MaxUploadMB = 20
	}
	return &Handler{Deps: d, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := common.HTTPStatus(err)
	if code >= 500 {
		h.logger.Error("http.handler.failed", "path", c.FullPath(), "request_id", GetRequestID(c), "error", err)
		c.JSON(code, gin.H{"error": "Internal server error", "request_id": GetRequestID(c)})
		return
	}
	c.JSON(code, gin.H{"error": err.Error(), "request_id": GetRequestID(c)})
}

type processTextRequest struct {
	Text    string `json:"text" binding:"required"`
	Persist bool   `json:"persist"`
}

// ProcessText handles POST /v1/invoices/text
func (h *Handler) ProcessText(c *gin.Context) {
	var req processTextRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	res := h.Processor.ProcessText(c.Request.Context(), req.Text)
	if !req.Persist {
		c.JSON(http.StatusOK, gin.H{"result": res})
		return
	}
	rec, err := h.Records.Append(c.Request.Context(), repository.AppendRequest{Result: res, Source: constants.SourcePipeline})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": res, "record": utils.ToSummary(rec)})
}

// Upload handles POST /v1/invoices (multipart field "file")
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.MaxUploadMB)<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if !ingest.Supported(header.Filename) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unsupported file type", "extension": ext})
		return
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		h.fail(c, common.NewAppError("UPLOAD_ERROR", "create upload dir", err))
		return
	}
	dst := filepath.Join(h.UploadDir, uuid.NewString()+"."+ext)
	out, err := os.Create(dst)
	if err != nil {
		h.fail(c, common.NewAppError("UPLOAD_ERROR", "create upload file", err))
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if err := out.Close(); err != nil {
		h.fail(c, common.NewAppError("UPLOAD_ERROR", "close upload file", err))
		return
	}

	force, _ := strconv.ParseBool(c.Query("force"))
	r, err := h.Ingestor.IngestPath(c.Request.Context(), dst, force)
	if r.Deduplicated || err != nil {
		_ = os.Remove(dst)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	code := http.StatusCreated
	if r.Deduplicated {
		code = http.StatusOK
	}
	c.JSON(code, gin.H{
		"record":       r.Record,
		"filename":     header.Filename,
		"deduplicated": r.Deduplicated,
		"content_hash": r.HashHex,
		"archive_key":  r.ArchiveKey,
	})
}

func (h *Handler) filter(c *gin.Context) (repository.InvoiceFilter, bool) {
	f, err := utils.ParseFilter(c.Query("status"), c.Query("vendor"), c.Query("since"), c.Query("limit"))
	if err != nil {
		h.fail(c, err)
		return f, false
	}
	return f, true
}

// List handles GET /v1/invoices
func (h *Handler) List(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	recs, err := h.Records.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": utils.ToSummaries(recs), "count": len(recs)})
}

// Get handles GET /v1/invoices/:invoice_no
func (h *Handler) Get(c *gin.Context) {
	no := c.Param("invoice_no")
	if history, _ := strconv.ParseBool(c.Query("history")); history {
		recs, err := h.Records.History(c.Request.Context(), no)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": recs})
		return
	}
	rec, err := h.Records.Latest(c.Request.Context(), no)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Template handles GET /v1/invoices/:invoice_no/correction
func (h *Handler) Template(c *gin.Context) {
	b, err := h.Review.Template(c.Request.Context(), c.Param("invoice_no"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}

// Correct handles PUT /v1/invoices/:invoice_no/correction
func (h *Handler) Correct(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	rec, err := h.Review.ApplyCorrection(c.Request.Context(), c.Param("invoice_no"), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Export handles GET /v1/export. CSV exports have two parts; ?part=items selects the item rows.
func (h *Handler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, err)
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	files, err := h.Exporter.Render(c.Request.Context(), f, format)
	if err != nil {
		h.fail(c, err)
		return
	}

	file := files[0]
	if c.Query("part") == "items" {
		for _, fl := range files {
			if strings.HasSuffix(fl.Name, "_items.csv") {
				file = fl
			}
		}
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Stats handles GET /v1/stats
func (h *Handler) Stats(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	r, err := h.Analytics.Report(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health.HealthCheck(c.Request.Context(), 2*time.Second); err != nil {
			h.logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
