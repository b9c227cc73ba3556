package review

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/classify"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/core"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/extract"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
)

const partialInvoice = `ABC Supplies Ltd.
123 Supply St, Business Park

INVOICE
Invoice No: ABC-778
Item Qty Price Total
Toner 2 40.00 80.00
`

func setup(t *testing.T) (*Service, repository.InvoiceRepository, *entity.InvoiceRecord) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, common.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "review.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := repository.NewInvoiceRepository(db.Driver, nil)
	proc := core.NewProcessor(nil, nil, extract.NewExtractor(nil), classify.NewChain(nil, nil, 0.5, nil), nil)

	res := proc.ProcessText(ctx, partialInvoice)
	require.Equal(t, constants.StatusNeedsReview, res.Validation.Status)
	rec, err := repo.Append(ctx, repository.AppendRequest{Result: res})
	require.NoError(t, err)

	return NewService(repo, proc, nil), repo, rec
}

func TestApplyCorrection(t *testing.T) {
	ctx := context.Background()
	svc, repo, prev := setup(t)

	raw := []byte(`{
		"metadata": {"invoice_number": "ABC-778", "invoice_date": "03/10/2024", "po_number": ""},
		"vendor": "ABC Supplies Ltd.",
		"line_items": [{"description": " Toner ", "qty": 2, "price": "$40.00", "amount": "80.00"}],
		"totals": {"subtotal": 80, "tax": "4.00", "total": "$84.00"},
		"validation": {"status": "Auto-Approved"}
	}`)
	rec, err := svc.ApplyCorrection(ctx, "ABC-778", raw)
	require.NoError(t, err)

	assert.Equal(t, "ABC-778", rec.InvoiceNo)
	assert.Equal(t, 2, rec.Revision)
	assert.Equal(t, constants.SourceCorrection, rec.Source)
	assert.Equal(t, "03/10/2024", rec.Result.Metadata.Date)
	assert.Empty(t, rec.Result.Metadata.PONumber)
	require.Len(t, rec.Result.Items, 1)
	assert.Equal(t, entity.LineItem{Description: "Toner", Quantity: 2, UnitPrice: 40, Total: 80}, rec.Result.Items[0])
	require.NotNil(t, rec.Result.Totals.TotalAmount)
	assert.Equal(t, 84.0, *rec.Result.Totals.TotalAmount)
	assert.Equal(t, constants.StatusAutoApproved, rec.Status)
	require.NotNil(t, rec.Result.Vendor.Details)
	assert.Equal(t, prev.Result.Source, rec.Result.Source)

	history, err := repo.History(ctx, "ABC-778")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, constants.StatusNeedsReview, history[0].Status)
}

func TestApplyCorrectionRejectsInvalidDocuments(t *testing.T) {
	svc, _, _ := setup(t)

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", `{"metadata":`, common.ErrInvalidInput},
		{"missing vendor", `{"metadata": {}, "items": [], "totals": {}}`, common.ErrValidation},
		{"bad amount", `{"metadata": {}, "vendor": "X", "items": [], "totals": {"tax": "lots"}}`, common.ErrValidation},
		{"item without description", `{"metadata": {}, "vendor": "X", "items": [{"quantity": 1, "unit_price": 1, "total": 1}], "totals": {}}`, common.ErrValidation},
		{"confidence out of range", `{"metadata": {}, "vendor": {"name": "X", "confidence": 3}, "items": [], "totals": {}}`, common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyCorrection(context.Background(), "ABC-778", []byte(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.ApplyCorrection(context.Background(), "missing", []byte(`{}`))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	tmpl, err := svc.Template(ctx, "ABC-778")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(tmpl, &doc))
	assert.NotContains(t, doc, "validation")
	assert.NoError(t, ValidateDocument(tmpl))

	rec, err := svc.ApplyCorrection(ctx, "ABC-778", tmpl)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Revision)
}

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	out, changed, err := NormalizeAndSanitizeJSON([]byte(`{
		"metadata": {"invoice_no": " 7 ", "due_date": null},
		"vendor": {"name": " Fast Retail Corp. ", "details": {}},
		"totals": {"total_amount": "1.195,50", "discount": ""},
		"source": {"path": "/x"}
	}`), nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, map[string]any{"invoice_no": "7"}, m["metadata"])
	assert.Equal(t, map[string]any{"name": "Fast Retail Corp.", "confidence": 1.0}, m["vendor"])
	assert.Equal(t, map[string]any{"total_amount": 1195.5}, m["totals"])
	assert.Equal(t, []any{}, m["items"])
	assert.NotContains(t, m, "source")
	assert.Contains(t, changed, "source(dropped)")
	assert.Contains(t, changed, "metadata.due_date(null)")
}
