package extract

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

// Fields is everything the rule-based extractor recovers from invoice text.
type Fields struct {
	Metadata entity.Metadata
	Items    []entity.LineItem
	Totals   entity.Totals
}

type metadataRule struct {
	name     string
	matchers []Matcher
	assign   func(m *entity.Metadata, v string)
}

type totalRule struct {
	name     string
	matchers []Matcher
	assign   func(t *entity.Totals, v float64)
}

// Extractor applies ordered matcher lists per field. It is stateless and safe for concurrent use.
type Extractor struct {
	metadata     []metadataRule
	totals       []totalRule
	maxItemLines int
	logger       *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithMaxItemLines bounds how many lines an unterminated item table may span.
func WithMaxItemLines(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxItemLines = n
		}
	}
}

// WithMetadataMatchers prepends extra matchers for a metadata field (e.g. a vendor-specific layout).
func WithMetadataMatchers(field string, matchers ...Matcher) Option {
	return func(e *Extractor) {
		for i := range e.metadata {
			if e.metadata[i].name == field {
				e.metadata[i].matchers = append(append([]Matcher{}, matchers...), e.metadata[i].matchers...)
			}
		}
	}
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		metadata: []metadataRule{
			{"invoice_no", invoiceNoMatchers, func(m *entity.Metadata, v string) { m.InvoiceNo = v }},
			{"date", dateMatchers, func(m *entity.Metadata, v string) { m.Date = v }},
			{"due_date", dueDateMatchers, func(m *entity.Metadata, v string) { m.DueDate = v }},
			{"po_number", poNumberMatchers, func(m *entity.Metadata, v string) { m.PONumber = v }},
			{"payment_terms", paymentTermsMatchers, func(m *entity.Metadata, v string) { m.PaymentTerms = v }},
		},
		totals: []totalRule{
			{"subtotal", subtotalMatchers, func(t *entity.Totals, v float64) { t.Subtotal = &v }},
			{"tax", taxMatchers, func(t *entity.Totals, v float64) { t.Tax = &v }},
			{"shipping", shippingMatchers, func(t *entity.Totals, v float64) { t.Shipping = &v }},
			{"discount", discountMatchers, func(t *entity.Totals, v float64) { t.Discount = &v }},
			{"total_amount", totalAmountMatchers, func(t *entity.Totals, v float64) { t.TotalAmount = &v }},
		},
		maxItemLines: DefaultMaxItemLines,
		logger:       logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract never fails: fields without a match are left empty and items is never nil.
func (e *Extractor) Extract(text string) Fields {
	start := time.Now()
	var out Fields

	for _, r := range e.metadata {
		if v, ok := FirstMatch(text, r.matchers); ok {
			r.assign(&out.Metadata, v)
		}
	}

	for _, r := range e.totals {
		for _, m := range r.matchers {
			raw, ok := m(text)
			if !ok {
				continue
			}
			if v, ok := parseFloat(raw); ok {
				r.assign(&out.Totals, v)
				break
			}
			e.logger.Debug("extract.total.unparseable", "field", r.name, "raw", raw)
		}
	}

	out.Items = extractItems(text, e.maxItemLines)

	e.logger.Debug("extract.fields.ok",
		"invoice_no", out.Metadata.InvoiceNo,
		"items", len(out.Items),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// IsFieldLine reports whether any metadata or totals matcher finds a value on line alone.
func (e *Extractor) IsFieldLine(line string) bool {
	for _, r := range e.metadata {
		if _, ok := FirstMatch(line, r.matchers); ok {
			return true
		}
	}
	for _, r := range e.totals {
		if _, ok := FirstMatch(line, r.matchers); ok {
			return true
		}
	}
	return false
}

// VendorText drops the lines the field matchers consume. Adding or removing a
// field line leaves the result unchanged, so vendor scoring never moves with
// field presence.
func (e *Extractor) VendorText(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !e.IsFieldLine(l) {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
