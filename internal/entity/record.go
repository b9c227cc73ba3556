package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

// InvoiceRecord is one appended revision of a processed invoice in the record store.
type InvoiceRecord struct {
	ID          uuid.UUID               `json:"id"`
	InvoiceNo   string                  `json:"invoice_no"`
	Revision    int                     `json:"revision"`
	Vendor      string                  `json:"vendor"`
	InvoiceDate string                  `json:"invoice_date,omitempty"`
	TotalAmount *float64                `json:"total_amount,omitempty"`
	Status      constants.RoutingStatus `json:"status"`
	Confidence  float64                 `json:"confidence"`
	SourcePath  string                  `json:"source_path,omitempty"`
	ContentHash string                  `json:"content_hash,omitempty"`
	Source      constants.RecordSource  `json:"source"`
	ProcessedAt time.Time               `json:"processed_at"`
	Result      ExtractionResult        `json:"result"`
}
