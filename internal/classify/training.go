package classify

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

const DefaultSamplesPerVendor = 10

// GenerateTrainingData renders perVendor synthetic invoices for each vendor.
// The same seed always yields the same samples.
func GenerateTrainingData(vendors []constants.VendorInfo, perVendor int, seed int64) []Sample {
	if perVendor <= 0 {
		perVendor = DefaultSamplesPerVendor
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	samples := make([]Sample, 0, len(vendors)*perVendor)
	for _, v := range vendors {
		prefix := strings.ToUpper(vendorPrefix(v.Name))
		for i := 0; i < perVendor; i++ {
			var b strings.Builder
			fmt.Fprintf(&b, "%s\n%s\nTax ID: %s\n\nINVOICE\n\n", v.Name, v.Address, v.TaxID)
			fmt.Fprintf(&b, "Invoice No: INV%d-%s-%05d\n", i, prefix, 12345+rng.IntN(80000))
			fmt.Fprintf(&b, "Date: 03/%02d/2024\nDue Date: 04/15/2024\n", 1+(14+i)%28)
			fmt.Fprintf(&b, "PO Number: PO-2024-%d\n\n", 1000+i)
			fmt.Fprintf(&b, "Payment Terms: %s\n\nItems:\n", v.PaymentTerms)
			if len(v.TypicalItems) > 0 {
				for n := 1 + rng.IntN(4); n > 0; n-- {
					item := v.TypicalItems[rng.IntN(len(v.TypicalItems))]
					qty := 1 + rng.IntN(10)
					price := 10 + rng.Float64()*190
					fmt.Fprintf(&b, "%s %d $%.2f $%.2f\n", item, qty, price, float64(qty)*price)
				}
			}
			samples = append(samples, Sample{Text: b.String(), Vendor: v.Name})
		}
	}
	return samples
}

func vendorPrefix(name string) string {
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
