package validate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewValidator(DefaultPolicy(), nil, WithClock(func() time.Time { return fixedNow }))
}

func sampleResult() entity.ExtractionResult {
	return entity.ExtractionResult{
		Metadata: entity.Metadata{InvoiceNo: "INV123456", Date: "03/29/2024", DueDate: "04/28/2024"},
		Vendor:   entity.Vendor{Name: "XYZ Traders Inc.", Confidence: 1, Method: constants.VendorMethodFuzzy},
		Items: []entity.LineItem{
			{Description: "Mouse", Quantity: 2, UnitPrice: 25, Total: 50},
			{Description: "Keyboard", Quantity: 1, UnitPrice: 45, Total: 45},
			{Description: "Monitor", Quantity: 3, UnitPrice: 350, Total: 1050},
		},
		Totals: entity.Totals{
			Subtotal:    entity.Float(1145),
			Tax:         entity.Float(50),
			TotalAmount: entity.Float(1195),
		},
	}
}

func TestValidateSample(t *testing.T) {
	v := newTestValidator().Validate(sampleResult(), 400)

	assert.Empty(t, v.Warnings)
	assert.Equal(t, 1.0, v.OverallConfidence)
	assert.Equal(t, constants.StatusAutoApproved, v.Status)
}

func TestValidateEmpty(t *testing.T) {
	v := newTestValidator().Validate(entity.ExtractionResult{Items: []entity.LineItem{}}, 0)

	assert.Zero(t, v.OverallConfidence)
	assert.Less(t, v.OverallConfidence, 0.6)
	assert.Equal(t, constants.StatusManual, v.Status)
	assert.Contains(t, v.Warnings, WarnInsufficientText)
	assert.Contains(t, v.Warnings, "missing required field: invoice_no")
	assert.Contains(t, v.Warnings, "missing required field: date")
	assert.Contains(t, v.Warnings, "missing required field: total_amount")
}

func TestValidateWarnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *entity.ExtractionResult)
		want   string
	}{
		{"items vs subtotal", func(r *entity.ExtractionResult) { r.Items[0].Total = 60; r.Items[0].UnitPrice = 30 },
			"line items total 1155.00 does not match subtotal 1145.00"},
		{"items vs total without subtotal", func(r *entity.ExtractionResult) { r.Totals.Subtotal = nil },
			"line items total 1145.00 does not match total amount 1195.00"},
		{"totals arithmetic", func(r *entity.ExtractionResult) { r.Totals.Tax = entity.Float(40) },
			"subtotal + tax + shipping - discount = 1185.00 does not match total amount 1195.00"},
		{"item arithmetic", func(r *entity.ExtractionResult) { r.Items[2].Quantity = 2 },
			"line item 3 (Monitor): quantity x unit price 700.00 does not match total 1050.00"},
		{"due before date", func(r *entity.ExtractionResult) { r.Metadata.DueDate = "03/01/2024" },
			"due date 03/01/2024 is before invoice date 03/29/2024"},
		{"unparseable date", func(r *entity.ExtractionResult) { r.Metadata.Date = "99/99/2024" },
			`unparseable invoice date "99/99/2024"`},
		{"future date", func(r *entity.ExtractionResult) { r.Metadata.Date = "12/01/2024"; r.Metadata.DueDate = "" },
			"invoice date 12/01/2024 is more than 30 days in the future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleResult()
			tt.mutate(&r)
			v := newTestValidator().Validate(r, 400)

			assert.Contains(t, v.Warnings, tt.want)
			assert.Less(t, v.OverallConfidence, 1.0)
			assert.Equal(t, constants.StatusNeedsReview, v.Status)
		})
	}
}

func TestValidateWithinTolerance(t *testing.T) {
	r := sampleResult()
	r.Totals.TotalAmount = entity.Float(1195.01)
	v := newTestValidator().Validate(r, 400)
	assert.Empty(t, v.Warnings)
}

func TestValidateShippingAndDiscount(t *testing.T) {
	r := sampleResult()
	r.Totals.Shipping = entity.Float(10)
	r.Totals.Discount = entity.Float(-5)
	r.Totals.TotalAmount = entity.Float(1200)
	v := newTestValidator().Validate(r, 400)
	assert.Empty(t, v.Warnings)
}

func TestValidateSkipTextCheck(t *testing.T) {
	v := newTestValidator().Validate(sampleResult(), SkipTextCheck)
	assert.NotContains(t, v.Warnings, WarnInsufficientText)
	assert.Equal(t, constants.StatusAutoApproved, v.Status)
}

func dropFields(r entity.ExtractionResult, mask int) entity.ExtractionResult {
	r = r.Clone()
	if mask&1 != 0 {
		r.Metadata.InvoiceNo = ""
	}
	if mask&2 != 0 {
		r.Metadata.Date = ""
	}
	if mask&4 != 0 {
		r.Totals.TotalAmount = nil
	}
	return r
}

func TestConfidenceIsMonotone(t *testing.T) {
	consistent := sampleResult()

	inconsistent := sampleResult()
	inconsistent.Metadata.Date = "12/30/2024"
	inconsistent.Totals.TotalAmount = entity.Float(2000)
	inconsistent.Totals.Subtotal = nil

	unsure := sampleResult()
	unsure.Vendor.Confidence = 0.35

	v := newTestValidator()
	for name, base := range map[string]entity.ExtractionResult{
		"consistent": consistent, "inconsistent": inconsistent, "low vendor": unsure,
	} {
		t.Run(name, func(t *testing.T) {
			for mask := 0; mask < 8; mask++ {
				for extra := 1; extra < 8; extra <<= 1 {
					if mask&extra != 0 {
						continue
					}
					before := v.Validate(dropFields(base, mask), 400).OverallConfidence
					after := v.Validate(dropFields(base, mask|extra), 400).OverallConfidence
					assert.LessOrEqual(t, after, before, fmt.Sprintf("mask %03b + %03b", mask, extra))
				}
			}
		})
	}
}

func TestStatusAlwaysValid(t *testing.T) {
	garbage := []entity.ExtractionResult{
		{},
		{Metadata: entity.Metadata{Date: "yesterday", DueDate: "??"}},
		{Vendor: entity.Vendor{Confidence: 7}, Totals: entity.Totals{TotalAmount: entity.Float(-3)}},
		{Vendor: entity.Vendor{Confidence: -1}, Items: []entity.LineItem{{Description: "x", Quantity: -1, UnitPrice: 1e12, Total: 0}}},
	}
	v := newTestValidator()
	for i, r := range garbage {
		got := v.Validate(r, 3)
		assert.True(t, got.Status.Valid(), "case %d", i)
		assert.GreaterOrEqual(t, got.OverallConfidence, 0.0)
		assert.LessOrEqual(t, got.OverallConfidence, 1.0)
		assert.NotNil(t, got.Warnings)
	}
}

func TestRoute(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		conf     float64
		warnings bool
		want     constants.RoutingStatus
	}{
		{0.95, false, constants.StatusAutoApproved},
		{0.8, false, constants.StatusAutoApproved},
		{0.95, true, constants.StatusNeedsReview},
		{0.7, false, constants.StatusNeedsReview},
		{0.6, true, constants.StatusNeedsReview},
		{0.59, false, constants.StatusManual},
		{0, true, constants.StatusManual},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Route(tt.conf, tt.warnings), "conf=%v warnings=%v", tt.conf, tt.warnings)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"03/29/2024", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"3/5/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"29/03/2024", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-29", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"29.03.2024", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"March 29, 2024", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"Mar. 29, 2024", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"29 Mar 2024", time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), true},
		{"Sept 3, 2024", time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC), true},
		{"September 3, 2024", time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"13/13/2024", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
