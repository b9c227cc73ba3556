package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", common.NewAppError("INVALID_FORMAT", fmt.Sprintf("unknown export format %q", s), common.ErrInvalidInput)
	}
}

// File is one rendered export artifact.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var (
	invoiceHeaders = []string{"InvoiceNumber", "Vendor", "Date", "DueDate", "PONumber", "TotalAmount", "Status", "ConfidenceScore"}
	itemHeaders    = []string{"InvoiceNumber", "Description", "Quantity", "UnitPrice", "TotalPrice"}
)

// Render encodes results in format. CSV yields a main file and an items file
// named <base>.csv and <base>_items.csv.
func Render(results []entity.ExtractionResult, format Format, base string) ([]File, error) {
	switch format {
	case FormatCSV:
		var main, items bytes.Buffer
		if err := WriteCSV(&main, &items, results); err != nil {
			return nil, err
		}
		return []File{
			{Name: base + ".csv", ContentType: "text/csv", Data: main.Bytes()},
			{Name: base + "_items.csv", ContentType: "text/csv", Data: items.Bytes()},
		}, nil
	case FormatJSON:
		var buf bytes.Buffer
		var err error
		if len(results) == 1 {
			err = WriteJSON(&buf, results[0])
		} else {
			err = WriteJSON(&buf, results)
		}
		if err != nil {
			return nil, err
		}
		return []File{{Name: base + ".json", ContentType: "application/json", Data: buf.Bytes()}}, nil
	case FormatXLSX:
		var buf bytes.Buffer
		if err := WriteXLSX(&buf, results); err != nil {
			return nil, err
		}
		return []File{{
			Name:        base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}}, nil
	default:
		return nil, common.NewAppError("INVALID_FORMAT", fmt.Sprintf("unknown export format %q", format), common.ErrInvalidInput)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json write: %w", err)
	}
	return nil
}

// WriteCSV writes the invoice summary rows to main and one row per line item to items.
func WriteCSV(main, items io.Writer, results []entity.ExtractionResult) error {
	mw := csv.NewWriter(main)
	if err := mw.Write(invoiceHeaders); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	for _, r := range results {
		if err := mw.Write(invoiceRow(r)); err != nil {
			return fmt.Errorf("csv write: %w", err)
		}
	}
	mw.Flush()
	if err := mw.Error(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}

	iw := csv.NewWriter(items)
	if err := iw.Write(itemHeaders); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	for _, r := range results {
		for _, it := range r.Items {
			if err := iw.Write([]string{
				r.Metadata.InvoiceNo,
				it.Description,
				num(it.Quantity),
				money(it.UnitPrice),
				money(it.Total),
			}); err != nil {
				return fmt.Errorf("csv write: %w", err)
			}
		}
	}
	iw.Flush()
	if err := iw.Error(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return nil
}

func invoiceRow(r entity.ExtractionResult) []string {
	total := ""
	if r.Totals.TotalAmount != nil {
		total = money(*r.Totals.TotalAmount)
	}
	return []string{
		r.Metadata.InvoiceNo,
		r.Vendor.Name,
		r.Metadata.Date,
		r.Metadata.DueDate,
		r.Metadata.PONumber,
		total,
		string(r.Validation.Status),
		num(r.Validation.OverallConfidence),
	}
}

// WriteXLSX writes an Invoices sheet and an Items sheet.
func WriteXLSX(w io.Writer, results []entity.ExtractionResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const invoices, items = "Invoices", "Items"
	if err := f.SetSheetName("Sheet1", invoices); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(items); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	writeRow := func(sheet string, row int, values ...any) {
		for i, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	header := func(sheet string, headers []string) {
		vals := make([]any, len(headers))
		for i, h := range headers {
			vals[i] = h
		}
		writeRow(sheet, 1, vals...)
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
	}

	header(invoices, invoiceHeaders)
	header(items, itemHeaders)

	row, itemRow := 2, 2
	for _, r := range results {
		var total any
		if r.Totals.TotalAmount != nil {
			total = *r.Totals.TotalAmount
		}
		writeRow(invoices, row,
			r.Metadata.InvoiceNo,
			r.Vendor.Name,
			r.Metadata.Date,
			r.Metadata.DueDate,
			r.Metadata.PONumber,
			total,
			string(r.Validation.Status),
			r.Validation.OverallConfidence,
		)
		row++
		for _, it := range r.Items {
			writeRow(items, itemRow, r.Metadata.InvoiceNo, it.Description, it.Quantity, it.UnitPrice, it.Total)
			itemRow++
		}
	}

	_ = f.SetColWidth(invoices, "A", "A", 18)
	_ = f.SetColWidth(invoices, "B", "B", 28)
	_ = f.SetColWidth(invoices, "C", "E", 14)
	_ = f.SetColWidth(invoices, "G", "G", 28)
	_ = f.SetColWidth(items, "A", "A", 18)
	_ = f.SetColWidth(items, "B", "B", 36)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
