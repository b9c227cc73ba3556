package constants

import "strings"

// VendorInfo is the reference data kept for each known supplier.
type VendorInfo struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	TaxID        string   `json:"tax_id"`
	PaymentTerms string   `json:"payment_terms"`
	TypicalItems []string `json:"typical_items"`
}

var knownVendors = []VendorInfo{
	{
		Name:         "ABC Supplies Ltd.",
		Address:      "123 Supply St, Business Park",
		TaxID:        "AB123456789",
		PaymentTerms: "Net 30",
		TypicalItems: []string{"paper", "toner", "pens", "staples"},
	},
	{
		Name:         "XYZ Traders Inc.",
		Address:      "456 Trading Ave, Commerce City",
		TaxID:        "XY987654321",
		PaymentTerms: "Net 15",
		TypicalItems: []string{"mouse", "keyboard", "monitor", "laptop"},
	},
	{
		Name:         "Global Tech Solutions",
		Address:      "789 Tech Blvd, Innovation District",
		TaxID:        "GT567891234",
		PaymentTerms: "Net 45",
		TypicalItems: []string{"software license", "cloud storage", "support hours", "consulting"},
	},
	{
		Name:         "Fast Retail Corp.",
		Address:      "321 Retail Row, Shopping Center",
		TaxID:        "FR654321987",
		PaymentTerms: "2/10 Net 30",
		TypicalItems: []string{"furniture", "office supplies", "cleaning supplies", "break room items"},
	},
	{
		Name:         "Anthropic, PBC",
		Address:      "548 Market Street",
		TaxID:        "PMB 90375",
		PaymentTerms: "2/10 Net 30",
		TypicalItems: []string{"software license"},
	},
}

// KnownVendors returns a copy of the built-in vendor database.
func KnownVendors() []VendorInfo {
	out := make([]VendorInfo, len(knownVendors))
	copy(out, knownVendors)
	return out
}

// VendorNames returns the names of the built-in vendors in database order.
func VendorNames() []string {
	names := make([]string, len(knownVendors))
	for i, v := range knownVendors {
		names[i] = v.Name
	}
	return names
}

// LookupVendor finds a vendor by name, ignoring case and surrounding whitespace.
func LookupVendor(name string) (VendorInfo, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return VendorInfo{}, false
	}
	for _, v := range knownVendors {
		if strings.ToLower(v.Name) == normalized {
			return v, true
		}
	}
	return VendorInfo{}, false
}
