package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

func loadSample(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "xyz_invoice.txt"))
	require.NoError(t, err)
	return string(b)
}

func TestExtractSampleInvoice(t *testing.T) {
	e := NewExtractor(nil)
	f := e.Extract(loadSample(t))

	assert.Equal(t, "INV123456", f.Metadata.InvoiceNo)
	assert.Equal(t, "03/29/2024", f.Metadata.Date)
	assert.Equal(t, "04/28/2024", f.Metadata.DueDate)
	assert.Equal(t, "Net 30", f.Metadata.PaymentTerms)
	assert.Empty(t, f.Metadata.PONumber)

	require.Len(t, f.Items, 3)
	assert.Equal(t, entity.LineItem{Description: "Mouse", Quantity: 2, UnitPrice: 25.00, Total: 50.00}, f.Items[0])
	assert.Equal(t, entity.LineItem{Description: "Keyboard", Quantity: 1, UnitPrice: 45.00, Total: 45.00}, f.Items[1])
	assert.Equal(t, entity.LineItem{Description: "Monitor", Quantity: 3, UnitPrice: 350.00, Total: 1050.00}, f.Items[2])

	require.NotNil(t, f.Totals.Subtotal)
	require.NotNil(t, f.Totals.Tax)
	require.NotNil(t, f.Totals.TotalAmount)
	assert.Equal(t, 1145.00, *f.Totals.Subtotal)
	assert.Equal(t, 50.00, *f.Totals.Tax)
	assert.Equal(t, 1195.00, *f.Totals.TotalAmount)
	assert.Nil(t, f.Totals.Shipping)
	assert.Nil(t, f.Totals.Discount)
}

func TestExtractEmptyText(t *testing.T) {
	f := NewExtractor(nil).Extract("")

	assert.Equal(t, entity.Metadata{}, f.Metadata)
	assert.Equal(t, entity.Totals{}, f.Totals)
	require.NotNil(t, f.Items)
	assert.Empty(t, f.Items)
}

func TestExtractIsIdempotent(t *testing.T) {
	e := NewExtractor(nil)
	text := loadSample(t)
	assert.Equal(t, e.Extract(text), e.Extract(text))
}

func TestMetadataPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want entity.Metadata
	}{
		{
			name: "invoice number label",
			text: "Invoice Number: A-77/2\nInvoice Date: 2024-01-05",
			want: entity.Metadata{InvoiceNo: "A-77/2", Date: "2024-01-05"},
		},
		{
			name: "hash label and long date",
			text: "INVOICE # 9981\nDate: 5 March 2024\nPayment Due: 4 April 2024",
			want: entity.Metadata{InvoiceNo: "9981", Date: "5 March 2024", DueDate: "4 April 2024"},
		},
		{
			name: "invoice id and us month date",
			text: "Invoice ID: GT-2024-001\nIssue Date: March 29, 2024\nDue Date: April 28, 2024",
			want: entity.Metadata{InvoiceNo: "GT-2024-001", Date: "March 29, 2024", DueDate: "April 28, 2024"},
		},
		{
			name: "due date alone does not become invoice date",
			text: "Due Date: 04/28/2024",
			want: entity.Metadata{DueDate: "04/28/2024"},
		},
		{
			name: "notes are not an invoice number",
			text: "Invoice Notes: deliver to dock 4",
			want: entity.Metadata{},
		},
		{
			name: "purchase order",
			text: "P.O. Number: PO-5521\nTerms: Net 45",
			want: entity.Metadata{PONumber: "PO-5521", PaymentTerms: "Net 45"},
		},
		{
			name: "header does not pair with the next line",
			text: "INVOICE\nNumber of pages: 2",
			want: entity.Metadata{},
		},
		{
			name: "purchase order label does not reach the next line",
			text: "Purchase Order\nThank you for your business",
			want: entity.Metadata{},
		},
		{
			name: "bare invoice token",
			text: "Reference INV-00042 for your records",
			want: entity.Metadata{InvoiceNo: "INV-00042"},
		},
	}

	e := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).Metadata)
		})
	}
}

func TestTotalsPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want entity.Totals
	}{
		{
			name: "subtotal never satisfies total",
			text: "Subtotal: 100.00",
			want: entity.Totals{Subtotal: entity.Float(100)},
		},
		{
			name: "currency symbols and thousands",
			text: "Sub-total: $1,200.50\nVAT (20%): $240.10\nShipping & Handling: $15.00\nDiscount: (10.00)\nGrand Total: $1,445.60",
			want: entity.Totals{
				Subtotal:    entity.Float(1200.50),
				Tax:         entity.Float(240.10),
				Shipping:    entity.Float(15),
				Discount:    entity.Float(-10),
				TotalAmount: entity.Float(1445.60),
			},
		},
		{
			name: "balance due",
			text: "Thanks!\nBalance Due: 88.20",
			want: entity.Totals{TotalAmount: entity.Float(88.20)},
		},
		{
			name: "tax id is not a tax amount",
			text: "Tax ID: XY987654321\nTotal: 10.00",
			want: entity.Totals{TotalAmount: entity.Float(10)},
		},
	}

	e := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).Totals)
		})
	}
}

func TestItemsSkipBadLines(t *testing.T) {
	text := `Description Quantity Unit Price Amount
Consulting hours 10 150.00 1500.00
See attached timesheet
Cloud storage N/A 20.00 20.00
Support hours 2 75.00 150.00
Total: 1650.00
Not an item 1 2.00 2.00`

	items := NewExtractor(nil).Extract(text).Items
	require.Len(t, items, 2)
	assert.Equal(t, "Consulting hours", items[0].Description)
	assert.Equal(t, 10.0, items[0].Quantity)
	assert.Equal(t, "Support hours", items[1].Description)
}

func TestItemsWithoutTerminatorAreBounded(t *testing.T) {
	text := "Item Qty Price Total\n"
	for i := 0; i < 20; i++ {
		text += "Widget 1 1.00 1.00\n"
	}

	items := NewExtractor(nil, WithMaxItemLines(5)).Extract(text).Items
	assert.Len(t, items, 5)
}

func TestWithMetadataMatchersTakesPrecedence(t *testing.T) {
	e := NewExtractor(nil, WithMetadataMatchers("invoice_no", Pattern(`Ref\s*:\s*(\S+)`)))
	f := e.Extract("Ref: R-1\nInvoice No: INV-2")
	assert.Equal(t, "R-1", f.Metadata.InvoiceNo)
}

func TestVendorTextDropsFieldLines(t *testing.T) {
	e := NewExtractor(nil)
	text := "INVOICE\nInvoice No: INV-555\nRemit to\nXYZ Traders Inc.\nDate: 03/01/2024\nTax ID: XY987654321\nTotal Amount: 10.00"

	got := e.VendorText(text)
	assert.Equal(t, "INVOICE\nRemit to\nXYZ Traders Inc.\nTax ID: XY987654321", got)

	for _, line := range []string{"Invoice No: INV-555", "Date: 03/01/2024", "Total Amount: 10.00"} {
		assert.True(t, e.IsFieldLine(line), line)
	}
	for _, line := range []string{"INVOICE", "XYZ Traders Inc.", "Tax ID: XY987654321"} {
		assert.False(t, e.IsFieldLine(line), line)
	}
}

func TestVendorTextIgnoresFieldPresence(t *testing.T) {
	e := NewExtractor(nil)
	with := "INVOICE\nInvoice No: INV-555\nRemit to\nXYZ Traders Inc.\nDate: 03/01/2024"
	without := "INVOICE\nRemit to\nXYZ Traders Inc.\nDate: 03/01/2024"
	assert.Equal(t, e.VendorText(with), e.VendorText(without))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "25.00", want: "25"},
		{in: "$1,195.00", want: "1195"},
		{in: "1.195,00", want: "1195"},
		{in: "12,5", want: "12.5"},
		{in: "1,000", want: "1000"},
		{in: "(5.00)", want: "-5"},
		{in: "-3", want: "-3"},
		{in: "USD 40", want: "40"},
		{in: "€7.", want: "7"},
		{in: "N/A", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		d, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, d.String(), tt.in)
	}
}
