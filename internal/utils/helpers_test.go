package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("review", " XYZ Traders Inc. ", "2024-03-01", "5")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusNeedsReview, f.Status)
	assert.Equal(t, "XYZ Traders Inc.", f.Vendor)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), f.Since)
	assert.Equal(t, 5, f.Limit)

	f, err = ParseFilter("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, f.Limit)

	for _, bad := range [][4]string{
		{"maybe", "", "", ""},
		{"", "", "03/01/2024", ""},
		{"", "", "", "-1"},
		{"", "", "", "ten"},
	} {
		_, err := ParseFilter(bad[0], bad[1], bad[2], bad[3])
		assert.ErrorIs(t, err, common.ErrInvalidInput, bad)
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]constants.RoutingStatus{
		"Auto-Approved":              constants.StatusAutoApproved,
		"auto":                       constants.StatusAutoApproved,
		"Needs Review":               constants.StatusNeedsReview,
		"MANUAL":                     constants.StatusManual,
		"Manual Processing Required": constants.StatusManual,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestStructRoundTrip(t *testing.T) {
	total := 84.0
	rec := &entity.InvoiceRecord{
		InvoiceNo:   "A-1",
		Revision:    2,
		Vendor:      "ABC Supplies Ltd.",
		TotalAmount: &total,
		Status:      constants.StatusAutoApproved,
		Confidence:  0.95,
		ProcessedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	s, err := ToStruct(ToSummary(rec))
	require.NoError(t, err)
	assert.Equal(t, "A-1", s.Fields["invoice_no"].GetStringValue())
	assert.Equal(t, 84.0, s.Fields["total_amount"].GetNumberValue())
	assert.Equal(t, "2024-03-01T12:00:00Z", s.Fields["processed_at"].GetStringValue())

	var back RecordSummary
	require.NoError(t, FromStruct(s, &back))
	assert.Equal(t, ToSummary(rec), back)
}
