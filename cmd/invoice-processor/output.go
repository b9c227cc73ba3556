package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/utils"
)

// printError prints an error message to w, falling back to stdout if that fails
func printError(w io.Writer, format string, args ...any) {
	if _, err := color.New(color.FgRed).Fprintf(w, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func statusColor(s constants.RoutingStatus) *color.Color {
	switch s {
	case constants.StatusAutoApproved:
		return color.New(color.FgGreen)
	case constants.StatusNeedsReview:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func getProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

// printResult renders one routed result for humans.
func printResult(w io.Writer, r entity.ExtractionResult) {
	m := r.Metadata
	fmt.Fprintf(w, "Invoice No:     %s\n", orDash(m.InvoiceNo))
	fmt.Fprintf(w, "Vendor:         %s (%.2f, %s)\n", orDash(r.Vendor.Name), r.Vendor.Confidence, orDash(r.Vendor.Method))
	fmt.Fprintf(w, "Date:           %s\n", orDash(m.Date))
	fmt.Fprintf(w, "Due Date:       %s\n", orDash(m.DueDate))
	fmt.Fprintf(w, "PO Number:      %s\n", orDash(m.PONumber))
	fmt.Fprintf(w, "Payment Terms:  %s\n", orDash(m.PaymentTerms))

	if len(r.Items) > 0 {
		fmt.Fprintln(w, "\nItems:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  Description\tQty\tUnit Price\tTotal")
		for _, it := range r.Items {
			fmt.Fprintf(tw, "  %s\t%g\t%.2f\t%.2f\n", it.Description, it.Quantity, it.UnitPrice, it.Total)
		}
		_ = tw.Flush()
	}

	fmt.Fprintln(w, "\nTotals:")
	printAmount(w, "Subtotal", r.Totals.Subtotal)
	printAmount(w, "Tax", r.Totals.Tax)
	printAmount(w, "Shipping", r.Totals.Shipping)
	printAmount(w, "Discount", r.Totals.Discount)
	printAmount(w, "Total", r.Totals.TotalAmount)

	v := r.Validation
	fmt.Fprintf(w, "\nConfidence:     %.2f\n", v.OverallConfidence)
	fmt.Fprint(w, "Status:         ")
	_, _ = statusColor(v.Status).Fprintln(w, string(v.Status))
	for _, warn := range v.Warnings {
		_, _ = color.New(color.FgYellow).Fprintf(w, "  ! %s\n", warn)
	}
}

func printAmount(w io.Writer, label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "  %-12s %12.2f\n", label+":", *v)
}

func printSummaries(w io.Writer, rows []utils.RecordSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INVOICE\tREV\tVENDOR\tDATE\tTOTAL\tCONF\tSTATUS")
	for _, r := range rows {
		total := "-"
		if r.TotalAmount != nil {
			total = fmt.Sprintf("%.2f", *r.TotalAmount)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%.2f\t%s\n",
			r.InvoiceNo, r.Revision, orDash(r.Vendor), orDash(r.InvoiceDate), total, r.Confidence, r.Status)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
