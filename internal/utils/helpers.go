package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
)

// MaxListLimit caps list requests from the outer surfaces.
const MaxListLimit = 1000

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseStatus accepts a routing status by its stored value or a short alias
// (auto, review, manual). Empty input yields the zero status.
func ParseStatus(s string) (constants.RoutingStatus, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "auto", "auto-approved", "approved":
		return constants.StatusAutoApproved, nil
	case "review", "needs review", "needs-review":
		return constants.StatusNeedsReview, nil
	case "manual", "manual processing required":
		return constants.StatusManual, nil
	}
	return "", common.NewAppError("INVALID_STATUS", fmt.Sprintf("unknown status %q", s), common.ErrInvalidInput)
}

// ParseFilter builds a list filter from loosely typed request parameters.
func ParseFilter(status, vendor, since, limit string) (repository.InvoiceFilter, error) {
	var f repository.InvoiceFilter
	st, err := ParseStatus(status)
	if err != nil {
		return f, err
	}
	f.Status = st
	f.Vendor = strings.TrimSpace(vendor)

	if s := strings.TrimSpace(since); s != "" {
		t, err := ParseYMD(s)
		if err != nil {
			return f, common.NewAppError("INVALID_DATE", "since must be YYYY-MM-DD", common.ErrInvalidInput)
		}
		f.Since = t
	}
	if l := strings.TrimSpace(limit); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return f, common.NewAppError("INVALID_LIMIT", "limit must be a non-negative integer", common.ErrInvalidInput)
		}
		f.Limit = n
	}
	if f.Limit == 0 || f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f, nil
}

// RecordSummary is the compact listing view of a stored revision.
type RecordSummary struct {
	InvoiceNo   string                  `json:"invoice_no"`
	Revision    int                     `json:"revision"`
	Vendor      string                  `json:"vendor"`
	InvoiceDate string                  `json:"invoice_date,omitempty"`
	TotalAmount *float64                `json:"total_amount,omitempty"`
	Status      constants.RoutingStatus `json:"status"`
	Confidence  float64                 `json:"confidence"`
	Warnings    int                     `json:"warnings"`
	ProcessedAt string                  `json:"processed_at"`
}

func ToSummary(r *entity.InvoiceRecord) RecordSummary {
	return RecordSummary{
		InvoiceNo:   r.InvoiceNo,
		Revision:    r.Revision,
		Vendor:      r.Vendor,
		InvoiceDate: r.InvoiceDate,
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
		Confidence:  r.Confidence,
		Warnings:    len(r.Result.Validation.Warnings),
		ProcessedAt: r.ProcessedAt.UTC().Format(time.RFC3339),
	}
}

func ToSummaries(recs []*entity.InvoiceRecord) []RecordSummary {
	out := make([]RecordSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, ToSummary(r))
	}
	return out
}

// ToStruct converts any JSON-serializable value into a protobuf Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// FromStruct decodes a protobuf Struct into v via its JSON form.
func FromStruct(s *structpb.Struct, v any) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
