package review

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/joseph-ayodele/invoice-processor/internal/extract"
)

var (
	metadataKeys = []string{"invoice_no", "date", "due_date", "po_number", "payment_terms"}
	totalKeys    = []string{"subtotal", "tax", "shipping", "discount", "total_amount"}
	itemNumbers  = []string{"quantity", "unit_price", "total"}
)

// NormalizeAndSanitizeJSON prepares a hand-edited invoice document for schema validation:
//   - renames common synonyms (invoice_number -> invoice_no, line_items -> items)
//   - accepts a bare vendor name string
//   - coerces money strings such as "$1,195.00" to numbers
//   - drops null/empty optionals and keys the system manages (validation, source)
//
// It returns the cleaned document and a list of what was changed.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	changed := make([]string, 0, 8)
	rename(m, "line_items", "items", &changed)

	// top level: keep only what a reviewer may edit
	for k := range maps.Clone(m) {
		switch k {
		case "metadata", "vendor", "items", "totals":
		default:
			delete(m, k)
			changed = append(changed, k+"(dropped)")
		}
	}

	meta := objectAt(m, "metadata")
	rename(meta, "invoice_number", "invoice_no", &changed)
	rename(meta, "invoice_date", "date", &changed)
	rename(meta, "po", "po_number", &changed)
	for _, k := range metadataKeys {
		trimOptional(meta, k, "metadata.", &changed)
	}

	switch v := m["vendor"].(type) {
	case string:
		m["vendor"] = map[string]any{"name": strings.TrimSpace(v), "confidence": 1.0}
		changed = append(changed, "vendor(string)")
	case map[string]any:
		for k := range maps.Clone(v) {
			if k != "name" && k != "confidence" {
				delete(v, k)
				changed = append(changed, "vendor."+k+"(dropped)")
			}
		}
		if name, ok := v["name"].(string); ok {
			v["name"] = strings.TrimSpace(name)
		}
		if _, ok := v["confidence"]; !ok {
			// a reviewer-supplied vendor is taken as certain
			v["confidence"] = 1.0
		}
	}

	totals := objectAt(m, "totals")
	rename(totals, "total", "total_amount", &changed)
	rename(totals, "shipping_fee", "shipping", &changed)
	for _, k := range totalKeys {
		coerceMoney(totals, k, "totals.", &changed)
	}

	if m["items"] == nil {
		m["items"] = []any{}
	}
	if items, ok := m["items"].([]any); ok {
		for i, raw := range items {
			it, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			rename(it, "qty", "quantity", &changed)
			rename(it, "price", "unit_price", &changed)
			rename(it, "amount", "total", &changed)
			if d, ok := it["description"].(string); ok {
				it["description"] = strings.TrimSpace(d)
			}
			for _, k := range itemNumbers {
				coerceMoney(it, k, fmt.Sprintf("items[%d].", i), &changed)
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Debug("review.sanitize", "changed", changed)
	}
	return out, changed, nil
}

func objectAt(m map[string]any, key string) map[string]any {
	switch v := m[key].(type) {
	case map[string]any:
		return v
	case nil:
		obj := map[string]any{}
		m[key] = obj
		return obj
	default:
		// wrong type: leave it for the schema to reject
		return map[string]any{}
	}
}

func rename(m map[string]any, from, to string, changed *[]string) {
	v, ok := m[from]
	if !ok {
		return
	}
	if _, exists := m[to]; !exists {
		m[to] = v
	}
	delete(m, from)
	*changed = append(*changed, from+"->"+to)
}

func trimOptional(m map[string]any, k, prefix string, changed *[]string) {
	switch v := m[k].(type) {
	case nil:
		if _, ok := m[k]; ok {
			delete(m, k)
			*changed = append(*changed, prefix+k+"(null)")
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			delete(m, k)
			*changed = append(*changed, prefix+k+"(empty)")
		} else {
			m[k] = s
		}
	}
}

func coerceMoney(m map[string]any, k, prefix string, changed *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case nil:
		delete(m, k)
		*changed = append(*changed, prefix+k+"(null)")
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			delete(m, k)
			*changed = append(*changed, prefix+k+"(empty)")
			return
		}
		d, err := extract.ParseAmount(s)
		if err != nil {
			// leave it for the schema to reject
			return
		}
		m[k] = d.InexactFloat64()
		*changed = append(*changed, prefix+k+"(number)")
	}
}
