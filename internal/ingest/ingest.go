package ingest

import (
	"context"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
)

// DocumentProcessor turns a document on disk into a routed result.
type DocumentProcessor interface {
	ProcessFile(ctx context.Context, path string) (entity.ExtractionResult, error)
}

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Record       *entity.InvoiceRecord
	Deduplicated bool
	HashHex      string
	ArchiveKey   string
	Err          string
}

// Status returns the routing outcome of the stored record, or "" on failure.
func (r IngestionResult) Status() constants.RoutingStatus {
	if r.Record == nil {
		return ""
	}
	return r.Record.Status
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
	ByStatus     map[constants.RoutingStatus]uint32
}

func newDirStats() DirStats {
	return DirStats{ByStatus: map[constants.RoutingStatus]uint32{}}
}

func (s *DirStats) add(r IngestionResult) {
	if r.Err != "" {
		s.Failed++
		return
	}
	s.Succeeded++
	if r.Deduplicated {
		s.Deduplicated++
	}
	if st := r.Status(); st != "" {
		s.ByStatus[st]++
	}
}

// Ingestor is the behavior the surfaces depend on.
type Ingestor interface {
	// IngestPath processes a single document.
	IngestPath(ctx context.Context, path string, force bool) (IngestionResult, error)
	// IngestDirectory processes all supported documents under root.
	IngestDirectory(ctx context.Context, root string, opts DirOptions) ([]IngestionResult, DirStats, error)
}
