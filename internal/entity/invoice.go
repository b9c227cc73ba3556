package entity

import (
	"slices"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

// ExtractionResult is the structured outcome of processing one invoice document.
type ExtractionResult struct {
	Metadata   Metadata    `json:"metadata"`
	Vendor     Vendor      `json:"vendor"`
	Items      []LineItem  `json:"items"`
	Totals     Totals      `json:"totals"`
	Validation Validation  `json:"validation"`
	Source     *SourceInfo `json:"source,omitempty"`
}

// Metadata holds the header fields of an invoice. Empty means not found.
type Metadata struct {
	InvoiceNo    string `json:"invoice_no,omitempty"`
	Date         string `json:"date,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	PONumber     string `json:"po_number,omitempty"`
	PaymentTerms string `json:"payment_terms,omitempty"`
}

// Vendor is the classifier's best guess for the issuing supplier.
type Vendor struct {
	Name       string                `json:"name"`
	Confidence float64               `json:"confidence"`
	Method     string                `json:"method,omitempty"`
	Details    *constants.VendorInfo `json:"details,omitempty"`
}

// LineItem is one row of the invoice item table.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// Totals holds the summary amounts; nil means the amount was not found.
type Totals struct {
	Subtotal    *float64 `json:"subtotal,omitempty"`
	Tax         *float64 `json:"tax,omitempty"`
	Shipping    *float64 `json:"shipping,omitempty"`
	Discount    *float64 `json:"discount,omitempty"`
	TotalAmount *float64 `json:"total_amount,omitempty"`
}

// Validation is the routing decision for a result.
type Validation struct {
	OverallConfidence float64                 `json:"overall_confidence"`
	Warnings          []string                `json:"warnings"`
	Status            constants.RoutingStatus `json:"status"`
}

// SourceInfo describes the document a result was produced from.
type SourceInfo struct {
	Path          string  `json:"path,omitempty"`
	ContentHash   string  `json:"content_hash,omitempty"`
	Format        string  `json:"format,omitempty"`
	Method        string  `json:"method,omitempty"`
	Pages         int     `json:"pages,omitempty"`
	OCRConfidence float32 `json:"ocr_confidence,omitempty"`
	TextLength    int     `json:"text_length"`
	ArchiveKey    string  `json:"archive_key,omitempty"`
}

// Clone returns a deep copy so that stored results cannot be mutated through shared pointers.
func (r ExtractionResult) Clone() ExtractionResult {
	out := r
	out.Items = slices.Clone(r.Items)
	if out.Items == nil {
		out.Items = []LineItem{}
	}
	out.Validation.Warnings = slices.Clone(r.Validation.Warnings)
	out.Totals = Totals{
		Subtotal:    clonePtr(r.Totals.Subtotal),
		Tax:         clonePtr(r.Totals.Tax),
		Shipping:    clonePtr(r.Totals.Shipping),
		Discount:    clonePtr(r.Totals.Discount),
		TotalAmount: clonePtr(r.Totals.TotalAmount),
	}
	if r.Vendor.Details != nil {
		d := *r.Vendor.Details
		d.TypicalItems = slices.Clone(d.TypicalItems)
		out.Vendor.Details = &d
	}
	if r.Source != nil {
		s := *r.Source
		out.Source = &s
	}
	return out
}

// ItemsSum returns the sum of line item totals.
func (r ExtractionResult) ItemsSum() float64 {
	var sum float64
	for _, it := range r.Items {
		sum += it.Total
	}
	return sum
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v; handy for building Totals literals.
func Float(v float64) *float64 { return &v }
