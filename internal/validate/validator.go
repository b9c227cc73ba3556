package validate

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

// SkipTextCheck disables the insufficient-text warning, e.g. for corrected records.
const SkipTextCheck = -1

const requiredFields = 3

const WarnInsufficientText = "insufficient text extracted from invoice"

// Validator computes overall confidence, warnings and routing status for a result.
type Validator struct {
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Validator)

// WithClock sets the time source used for the future-date check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewValidator(policy Policy, logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{policy: policy, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Policy() Policy { return v.policy }

// Validate scores r and routes it. textLength is the length of the source text;
// pass SkipTextCheck when there is none.
func (v *Validator) Validate(r entity.ExtractionResult, textLength int) entity.Validation {
	warnings := []string{}
	if textLength >= 0 && textLength < v.policy.MinTextLength {
		warnings = append(warnings, WarnInsufficientText)
	}

	present := 0
	for _, f := range []struct {
		name string
		ok   bool
	}{
		{"invoice_no", strings.TrimSpace(r.Metadata.InvoiceNo) != ""},
		{"date", strings.TrimSpace(r.Metadata.Date) != ""},
		{"total_amount", r.Totals.TotalAmount != nil},
	} {
		if f.ok {
			present++
		} else {
			warnings = append(warnings, "missing required field: "+f.name)
		}
	}

	consistency := v.checkAmounts(r)
	consistency = append(consistency, v.checkDates(r.Metadata)...)
	warnings = append(warnings, consistency...)

	vendorConf := clamp01(r.Vendor.Confidence)
	score := v.policy.VendorWeight*vendorConf +
		v.policy.FieldWeight*float64(present)/requiredFields -
		v.policy.WarningPenalty*float64(len(consistency))
	score = math.Round(clamp01(score)*1e4) / 1e4

	status := v.policy.Route(score, len(warnings) > 0)
	v.logger.Debug("validate.route",
		"confidence", score,
		"warnings", len(warnings),
		"status", status,
	)
	return entity.Validation{
		OverallConfidence: score,
		Warnings:          warnings,
		Status:            status,
	}
}

func (v *Validator) checkAmounts(r entity.ExtractionResult) []string {
	var out []string
	tol := decimal.NewFromFloat(v.policy.Tolerance)
	differs := func(a, b decimal.Decimal) bool {
		return a.Sub(b).Abs().GreaterThan(tol)
	}

	for i, it := range r.Items {
		want := money(it.Quantity).Mul(money(it.UnitPrice)).Round(2)
		if differs(want, money(it.Total)) {
			out = append(out, fmt.Sprintf("line item %d (%s): quantity x unit price %s does not match total %s",
				i+1, it.Description, want.StringFixed(2), money(it.Total).StringFixed(2)))
		}
	}

	if len(r.Items) > 0 {
		sum := decimal.Zero
		for _, it := range r.Items {
			sum = sum.Add(money(it.Total))
		}
		switch {
		case r.Totals.Subtotal != nil:
			if sub := money(*r.Totals.Subtotal); differs(sum, sub) {
				out = append(out, fmt.Sprintf("line items total %s does not match subtotal %s",
					sum.StringFixed(2), sub.StringFixed(2)))
			}
		case r.Totals.TotalAmount != nil:
			if total := money(*r.Totals.TotalAmount); differs(sum, total) {
				out = append(out, fmt.Sprintf("line items total %s does not match total amount %s",
					sum.StringFixed(2), total.StringFixed(2)))
			}
		}
	}

	if r.Totals.Subtotal != nil && r.Totals.TotalAmount != nil {
		calc := money(*r.Totals.Subtotal).
			Add(optMoney(r.Totals.Tax)).
			Add(optMoney(r.Totals.Shipping)).
			Sub(optMoney(r.Totals.Discount).Abs())
		if total := money(*r.Totals.TotalAmount); differs(calc, total) {
			out = append(out, fmt.Sprintf("subtotal + tax + shipping - discount = %s does not match total amount %s",
				calc.StringFixed(2), total.StringFixed(2)))
		}
	}
	return out
}

func (v *Validator) checkDates(m entity.Metadata) []string {
	var out []string
	var issued, due time.Time
	var haveIssued, haveDue bool

	if s := strings.TrimSpace(m.Date); s != "" {
		if t, ok := ParseDate(s); ok {
			issued, haveIssued = t, true
		} else {
			out = append(out, fmt.Sprintf("unparseable invoice date %q", s))
		}
	}
	if s := strings.TrimSpace(m.DueDate); s != "" {
		if t, ok := ParseDate(s); ok {
			due, haveDue = t, true
		} else {
			out = append(out, fmt.Sprintf("unparseable due date %q", s))
		}
	}
	if haveIssued && haveDue && due.Before(issued) {
		out = append(out, fmt.Sprintf("due date %s is before invoice date %s", m.DueDate, m.Date))
	}
	if haveIssued && v.policy.FutureDateDays > 0 {
		limit := v.now().AddDate(0, 0, v.policy.FutureDateDays)
		if issued.After(limit) {
			out = append(out, fmt.Sprintf("invoice date %s is more than %d days in the future",
				m.Date, v.policy.FutureDateDays))
		}
	}
	return out
}

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func optMoney(p *float64) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return money(*p)
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
