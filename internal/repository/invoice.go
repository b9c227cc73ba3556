package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

// processed_at is stored as fixed-width UTC text so it sorts the same on every dialect.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const unassignedPrefix = "UNASSIGNED-"

// appendAttempts bounds how often Append renumbers after losing a revision race.
const appendAttempts = 5

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var errRevisionTaken = errors.New("revision already taken")

var recordColumns = []string{
	"id", "invoice_no", "revision", "vendor", "invoice_date", "total_amount", "status",
	"confidence", "source_path", "content_hash", "source", "processed_at", "result_json",
}

// AppendRequest is one new revision for the record store.
type AppendRequest struct {
	// Key is the invoice key to append under. Empty means derive it from the
	// result's invoice number.
	Key    string
	Result entity.ExtractionResult
	Source constants.RecordSource
}

// InvoiceFilter narrows List. Zero values match everything.
type InvoiceFilter struct {
	Status constants.RoutingStatus
	Vendor string
	Since  time.Time
	Limit  int
}

type InvoiceRepository interface {
	Append(ctx context.Context, req AppendRequest) (*entity.InvoiceRecord, error)
	Latest(ctx context.Context, invoiceNo string) (*entity.InvoiceRecord, error)
	History(ctx context.Context, invoiceNo string) ([]*entity.InvoiceRecord, error)
	List(ctx context.Context, f InvoiceFilter) ([]*entity.InvoiceRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error)
	FindByHash(ctx context.Context, hash string) (*entity.InvoiceRecord, error)
}

type invoiceRepository struct {
	drv    *entsql.Driver
	now    func() time.Time
	logger *slog.Logger
}

func NewInvoiceRepository(drv *entsql.Driver, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{drv: drv, now: time.Now, logger: logger}
}

type recordRow struct {
	ID          string          `sql:"id"`
	InvoiceNo   string          `sql:"invoice_no"`
	Revision    int             `sql:"revision"`
	Vendor      string          `sql:"vendor"`
	InvoiceDate string          `sql:"invoice_date"`
	TotalAmount sql.NullFloat64 `sql:"total_amount"`
	Status      string          `sql:"status"`
	Confidence  float64         `sql:"confidence"`
	SourcePath  string          `sql:"source_path"`
	ContentHash string          `sql:"content_hash"`
	Source      string          `sql:"source"`
	ProcessedAt string          `sql:"processed_at"`
	ResultJSON  string          `sql:"result_json"`
}

func (r *invoiceRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

// Append stores a new revision. Revisions of one invoice key are numbered from 1
// and existing rows are never updated.
func (r *invoiceRepository) Append(ctx context.Context, req AppendRequest) (*entity.InvoiceRecord, error) {
	if !req.Result.Validation.Status.Valid() {
		return nil, common.NewAppError("INVALID_RECORD", fmt.Sprintf("invalid status %q", req.Result.Validation.Status), common.ErrInvalidInput)
	}
	if req.Source == "" {
		req.Source = constants.SourcePipeline
	}

	id := uuid.New()
	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = strings.TrimSpace(req.Result.Metadata.InvoiceNo)
	}
	if key == "" {
		key = unassignedPrefix + id.String()[:8]
	}

	rec := &entity.InvoiceRecord{
		ID:          id,
		InvoiceNo:   key,
		Vendor:      req.Result.Vendor.Name,
		InvoiceDate: req.Result.Metadata.Date,
		TotalAmount: req.Result.Totals.TotalAmount,
		Status:      req.Result.Validation.Status,
		Confidence:  req.Result.Validation.OverallConfidence,
		Source:      req.Source,
		ProcessedAt: r.now().UTC(),
		Result:      req.Result.Clone(),
	}
	if req.Result.Source != nil {
		rec.SourcePath = req.Result.Source.Path
		rec.ContentHash = req.Result.Source.ContentHash
	}
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "encode result", err)
	}

	for attempt := 1; ; attempt++ {
		err = r.insertRevision(ctx, rec, payload)
		if err == nil {
			break
		}
		if !errors.Is(err, errRevisionTaken) {
			return nil, err
		}
		if attempt >= appendAttempts {
			return nil, r.dbError("insert record", err)
		}
		r.logger.Warn("repository.append.retry", "invoice_no", key, "revision", rec.Revision, "attempt", attempt)
	}

	r.logger.Info("repository.append.ok",
		"invoice_no", rec.InvoiceNo,
		"revision", rec.Revision,
		"status", rec.Status,
		"source", rec.Source,
	)
	return rec, nil
}

// insertRevision numbers rec after the latest stored revision of its key and
// inserts it in one transaction. On Postgres a transaction-scoped advisory lock
// on the key serializes concurrent appends; a unique violation that still slips
// through returns errRevisionTaken.
func (r *invoiceRepository) insertRevision(ctx context.Context, rec *entity.InvoiceRecord, payload []byte) error {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return r.dbError("begin append", err)
	}
	if r.drv.Dialect() == dialect.Postgres {
		if err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", []any{rec.InvoiceNo}, nil); err != nil {
			_ = tx.Rollback()
			return r.dbError("lock invoice key", err)
		}
	}
	rev, err := r.maxRevision(ctx, tx, rec.InvoiceNo)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	rec.Revision = rev + 1

	var total any
	if rec.TotalAmount != nil {
		total = *rec.TotalAmount
	}
	q, args := r.builder().Insert(tableInvoiceRecords).
		Columns(recordColumns...).
		Values(
			rec.ID.String(), rec.InvoiceNo, rec.Revision, rec.Vendor, rec.InvoiceDate, total,
			string(rec.Status), rec.Confidence, rec.SourcePath, rec.ContentHash, string(rec.Source),
			rec.ProcessedAt.Format(timeLayout), string(payload),
		).Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s revision %d", errRevisionTaken, rec.InvoiceNo, rec.Revision)
		}
		return r.dbError("insert record", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s revision %d", errRevisionTaken, rec.InvoiceNo, rec.Revision)
		}
		return r.dbError("commit append", err)
	}
	return nil
}

// isUniqueViolation reports a duplicate key from either supported driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

func (r *invoiceRepository) maxRevision(ctx context.Context, tx dialect.Tx, key string) (int, error) {
	q, args := r.builder().SelectExpr(entsql.Expr("COALESCE(MAX(revision), 0)")).
		From(entsql.Table(tableInvoiceRecords)).
		Where(entsql.EQ("invoice_no", key)).
		Query()
	var rows entsql.Rows
	if err := tx.Query(ctx, q, args, &rows); err != nil {
		return 0, r.dbError("read revision", err)
	}
	defer rows.Close()
	rev, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, r.dbError("scan revision", err)
	}
	return rev, nil
}

func (r *invoiceRepository) Latest(ctx context.Context, invoiceNo string) (*entity.InvoiceRecord, error) {
	sel := r.selectRecords().
		Where(entsql.EQ("invoice_no", strings.TrimSpace(invoiceNo))).
		OrderBy(entsql.Desc("revision")).
		Limit(1)
	return r.one(ctx, sel, "invoice "+invoiceNo)
}

func (r *invoiceRepository) History(ctx context.Context, invoiceNo string) ([]*entity.InvoiceRecord, error) {
	sel := r.selectRecords().
		Where(entsql.EQ("invoice_no", strings.TrimSpace(invoiceNo))).
		OrderBy("revision")
	recs, err := r.all(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError("NOT_FOUND", "invoice "+invoiceNo, common.ErrNotFound)
	}
	return recs, nil
}

// List returns the latest revision of each invoice, newest first.
func (r *invoiceRepository) List(ctx context.Context, f InvoiceFilter) ([]*entity.InvoiceRecord, error) {
	sel := r.selectRecords().
		Where(entsql.ExprP("revision = (SELECT MAX(r2.revision) FROM invoice_records r2 WHERE r2.invoice_no = invoice_records.invoice_no)"))
	if f.Status != "" {
		sel = sel.Where(entsql.EQ("status", string(f.Status)))
	}
	if v := strings.TrimSpace(f.Vendor); v != "" {
		sel = sel.Where(entsql.EqualFold("vendor", v))
	}
	if !f.Since.IsZero() {
		sel = sel.Where(entsql.GTE("processed_at", f.Since.UTC().Format(timeLayout)))
	}
	sel = sel.OrderBy(entsql.Desc("processed_at"), "invoice_no")
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	return r.all(ctx, sel)
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error) {
	return r.one(ctx, r.selectRecords().Where(entsql.EQ("id", id.String())), "record "+id.String())
}

// FindByHash returns the newest record produced from a document with this content hash.
func (r *invoiceRepository) FindByHash(ctx context.Context, hash string) (*entity.InvoiceRecord, error) {
	sel := r.selectRecords().
		Where(entsql.EQ("content_hash", hash)).
		OrderBy(entsql.Desc("processed_at")).
		Limit(1)
	return r.one(ctx, sel, "document "+hash)
}

func (r *invoiceRepository) selectRecords() *entsql.Selector {
	return r.builder().Select(recordColumns...).From(entsql.Table(tableInvoiceRecords))
}

func (r *invoiceRepository) one(ctx context.Context, sel *entsql.Selector, what string) (*entity.InvoiceRecord, error) {
	recs, err := r.all(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError("NOT_FOUND", what, common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *invoiceRepository) all(ctx context.Context, sel *entsql.Selector) ([]*entity.InvoiceRecord, error) {
	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, r.dbError("query records", err)
	}
	defer rows.Close()

	var scanned []recordRow
	if err := entsql.ScanSlice(rows, &scanned); err != nil {
		return nil, r.dbError("scan records", err)
	}
	out := make([]*entity.InvoiceRecord, 0, len(scanned))
	for _, row := range scanned {
		rec, err := row.toEntity()
		if err != nil {
			return nil, r.dbError("decode record", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *invoiceRepository) dbError(op string, err error) error {
	r.logger.Error("repository."+strings.ReplaceAll(op, " ", "_")+".failed", "error", err)
	return common.NewAppError("DB_ERROR", op, fmt.Errorf("%w: %v", common.ErrDatabase, err))
}

func (row recordRow) toEntity() (*entity.InvoiceRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("record id %q: %w", row.ID, err)
	}
	processedAt, err := time.Parse(timeLayout, row.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("record %s processed_at: %w", row.ID, err)
	}
	rec := &entity.InvoiceRecord{
		ID:          id,
		InvoiceNo:   row.InvoiceNo,
		Revision:    row.Revision,
		Vendor:      row.Vendor,
		InvoiceDate: row.InvoiceDate,
		Status:      constants.RoutingStatus(row.Status),
		Confidence:  row.Confidence,
		SourcePath:  row.SourcePath,
		ContentHash: row.ContentHash,
		Source:      constants.RecordSource(row.Source),
		ProcessedAt: processedAt,
	}
	if row.TotalAmount.Valid {
		v := row.TotalAmount.Float64
		rec.TotalAmount = &v
	}
	if err := json.Unmarshal([]byte(row.ResultJSON), &rec.Result); err != nil {
		return nil, fmt.Errorf("record %s result: %w", row.ID, err)
	}
	if rec.Result.Items == nil {
		rec.Result.Items = []entity.LineItem{}
	}
	return rec, nil
}
