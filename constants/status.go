package constants

// RoutingStatus is the workflow outcome assigned to a processed invoice.
type RoutingStatus string

// Stable values (stored verbatim in the record store and exports).
const (
	StatusAutoApproved RoutingStatus = "Auto-Approved"
	StatusNeedsReview  RoutingStatus = "Needs Review"
	StatusManual       RoutingStatus = "Manual Processing Required"
)

// AllStatuses lists every routing outcome in decision-table order.
var AllStatuses = []RoutingStatus{StatusAutoApproved, StatusNeedsReview, StatusManual}

// Valid reports whether s is one of the defined routing outcomes.
func (s RoutingStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// RecordSource tells where a stored revision came from.
type RecordSource string

const (
	SourcePipeline   RecordSource = "pipeline"
	SourceCorrection RecordSource = "correction"
)

// Vendor classification methods.
const (
	VendorMethodModel = "model"
	VendorMethodFuzzy = "fuzzy"
	VendorMethodNone  = "none"

	// VendorMethodManual marks a vendor set by a reviewer.
	VendorMethodManual = "manual"

	UnknownVendor = "Unknown"
)
