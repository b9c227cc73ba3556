package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// newTestRepo returns a repository whose clock advances one second per record.
func newTestRepo(t *testing.T) InvoiceRepository {
	t.Helper()
	repo := NewInvoiceRepository(openTestDB(t).Driver, nil)
	clock := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	repo.(*invoiceRepository).now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func result(invoiceNo, vendor string, status constants.RoutingStatus, conf float64) entity.ExtractionResult {
	return entity.ExtractionResult{
		Metadata: entity.Metadata{InvoiceNo: invoiceNo, Date: "03/29/2024"},
		Vendor:   entity.Vendor{Name: vendor, Confidence: 1, Method: constants.VendorMethodFuzzy},
		Items:    []entity.LineItem{{Description: "Mouse", Quantity: 2, UnitPrice: 25, Total: 50}},
		Totals:   entity.Totals{TotalAmount: entity.Float(50)},
		Validation: entity.Validation{
			OverallConfidence: conf,
			Warnings:          []string{},
			Status:            status,
		},
		Source: &entity.SourceInfo{Path: "/tmp/" + invoiceNo + ".pdf", ContentHash: "hash-" + invoiceNo, TextLength: 120},
	}
}

func TestAppendAndLatest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rec, err := repo.Append(ctx, AppendRequest{Result: result("INV-1", "XYZ Traders Inc.", constants.StatusAutoApproved, 1)})
	require.NoError(t, err)
	assert.Equal(t, "INV-1", rec.InvoiceNo)
	assert.Equal(t, 1, rec.Revision)
	assert.Equal(t, constants.SourcePipeline, rec.Source)
	assert.Equal(t, "hash-INV-1", rec.ContentHash)

	got, err := repo.Latest(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.ProcessedAt.Equal(got.ProcessedAt))
	require.NotNil(t, got.TotalAmount)
	assert.Equal(t, 50.0, *got.TotalAmount)
	assert.Equal(t, rec.Result, got.Result)
}

func TestAppendIsRevisioned(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.Append(ctx, AppendRequest{Result: result("INV-2", "ABC Supplies Ltd.", constants.StatusNeedsReview, 0.7)})
	require.NoError(t, err)

	corrected := result("INV-2", "ABC Supplies Ltd.", constants.StatusAutoApproved, 1)
	second, err := repo.Append(ctx, AppendRequest{Key: "INV-2", Result: corrected, Source: constants.SourceCorrection})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Revision)

	latest, err := repo.Latest(ctx, "INV-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, constants.StatusAutoApproved, latest.Status)
	assert.Equal(t, constants.SourceCorrection, latest.Source)

	history, err := repo.History(ctx, "INV-2")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, constants.StatusNeedsReview, history[0].Status)
	assert.Equal(t, second.ID, history[1].ID)
}

func TestAppendWithoutInvoiceNumber(t *testing.T) {
	repo := newTestRepo(t)
	res := result("", constants.UnknownVendor, constants.StatusManual, 0)
	res.Totals.TotalAmount = nil

	rec, err := repo.Append(context.Background(), AppendRequest{Result: res})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.InvoiceNo, "UNASSIGNED-"))
	assert.Equal(t, "UNASSIGNED-"+rec.ID.String()[:8], rec.InvoiceNo)

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TotalAmount)
}

func TestAppendRejectsInvalidStatus(t *testing.T) {
	_, err := newTestRepo(t).Append(context.Background(), AppendRequest{Result: result("INV-3", "x", "Maybe", 0.5)})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestConcurrentAppendsGetDistinctRevisions(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository(openTestDB(t).Driver, nil)

	const n = 8
	var wg sync.WaitGroup
	revs := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := repo.Append(ctx, AppendRequest{
				Key:    "INV-C",
				Result: result("INV-C", "XYZ Traders Inc.", constants.StatusNeedsReview, 0.7),
				Source: constants.SourceCorrection,
			})
			errs[i] = err
			if err == nil {
				revs[i] = rec.Revision
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Ints(revs)
	for i, rev := range revs {
		assert.Equal(t, i+1, rev)
	}
	history, err := repo.History(ctx, "INV-C")
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	stmt := "INSERT INTO invoice_records (id, invoice_no, revision, status, confidence, source, processed_at, result_json) " +
		"VALUES (?, 'INV-U', 1, ?, 1, ?, '', '{}')"
	args := func() []any {
		return []any{uuid.NewString(), string(constants.StatusAutoApproved), string(constants.SourcePipeline)}
	}
	require.NoError(t, db.Driver.Exec(ctx, stmt, args(), nil))
	err := db.Driver.Exec(ctx, stmt, args(), nil)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(nil))
}

func TestListReturnsLatestRevisions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, r := range []entity.ExtractionResult{
		result("A-1", "XYZ Traders Inc.", constants.StatusAutoApproved, 1),
		result("A-2", "ABC Supplies Ltd.", constants.StatusManual, 0.3),
		result("A-3", "XYZ Traders Inc.", constants.StatusNeedsReview, 0.7),
	} {
		_, err := repo.Append(ctx, AppendRequest{Result: r})
		require.NoError(t, err)
	}
	_, err := repo.Append(ctx, AppendRequest{Key: "A-2", Result: result("A-2", "ABC Supplies Ltd.", constants.StatusAutoApproved, 0.9), Source: constants.SourceCorrection})
	require.NoError(t, err)

	all, err := repo.List(ctx, InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A-2", all[0].InvoiceNo)
	assert.Equal(t, 2, all[0].Revision)
	assert.Equal(t, "A-3", all[1].InvoiceNo)
	assert.Equal(t, "A-1", all[2].InvoiceNo)

	manual, err := repo.List(ctx, InvoiceFilter{Status: constants.StatusManual})
	require.NoError(t, err)
	assert.Empty(t, manual)

	xyz, err := repo.List(ctx, InvoiceFilter{Vendor: "xyz traders inc."})
	require.NoError(t, err)
	assert.Len(t, xyz, 2)

	limited, err := repo.List(ctx, InvoiceFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "A-2", limited[0].InvoiceNo)

	recent, err := repo.List(ctx, InvoiceFilter{Since: time.Date(2024, 4, 1, 9, 0, 3, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestFindByHashAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rec, err := repo.Append(ctx, AppendRequest{Result: result("H-1", "XYZ Traders Inc.", constants.StatusAutoApproved, 1)})
	require.NoError(t, err)

	got, err := repo.FindByHash(ctx, "hash-H-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = repo.FindByHash(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.Latest(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.History(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "oracle", DSN: "x"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}
