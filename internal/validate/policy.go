package validate

import (
	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

// Policy holds the confidence blend and routing thresholds.
type Policy struct {
	HighThreshold  float64
	MidThreshold   float64
	VendorWeight   float64
	FieldWeight    float64
	WarningPenalty float64
	Tolerance      float64
	MinTextLength  int
	FutureDateDays int
}

func DefaultPolicy() Policy {
	return Policy{
		HighThreshold:  0.8,
		MidThreshold:   0.6,
		VendorWeight:   0.4,
		FieldWeight:    0.6,
		WarningPenalty: 0.05,
		Tolerance:      0.02,
		MinTextLength:  50,
		FutureDateDays: 30,
	}
}

// PolicyFromConfig assumes cfg has been through Config.Validate.
func PolicyFromConfig(cfg common.RoutingConfig) Policy {
	return Policy{
		HighThreshold:  cfg.HighThreshold,
		MidThreshold:   cfg.MidThreshold,
		VendorWeight:   cfg.VendorWeight,
		FieldWeight:    cfg.FieldWeight,
		WarningPenalty: cfg.WarningPenalty,
		Tolerance:      cfg.Tolerance,
		MinTextLength:  cfg.MinTextLength,
		FutureDateDays: cfg.FutureDateDays,
	}
}

// Route maps a confidence and warning state onto a workflow status.
func (p Policy) Route(confidence float64, hasWarnings bool) constants.RoutingStatus {
	switch {
	case confidence >= p.HighThreshold && !hasWarnings:
		return constants.StatusAutoApproved
	case confidence >= p.MidThreshold:
		return constants.StatusNeedsReview
	default:
		return constants.StatusManual
	}
}
