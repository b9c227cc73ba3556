package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// DirOptions controls a directory ingest.
type DirOptions struct {
	SkipHidden bool
	Force      bool
	// OnResult is called after each file, e.g. to advance a progress bar.
	OnResult func(IngestionResult)
}

// DiscoverFiles walks root and returns the supported documents in lexical order.
// Unreadable entries are returned as failed results instead of aborting the walk.
func DiscoverFiles(root string, skipHidden bool) ([]string, []IngestionResult, uint32, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, 0, errors.New("root_path is required")
	}

	var (
		paths   []string
		failed  []IngestionResult
		scanned uint32
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			failed = append(failed, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, nil, scanned, fmt.Errorf("walk: %w", err)
	}
	return paths, failed, scanned, nil
}

// IngestDirectory processes every supported document under root, one at a time.
// Per-file failures are reported in the results and never stop the batch.
func (u *Usecase) IngestDirectory(ctx context.Context, root string, opts DirOptions) ([]IngestionResult, DirStats, error) {
	start := time.Now()
	stats := newDirStats()

	paths, failed, scanned, err := DiscoverFiles(root, opts.SkipHidden)
	stats.Scanned = scanned
	if err != nil {
		return nil, stats, err
	}
	stats.Matched = uint32(len(paths))

	results := make([]IngestionResult, 0, len(paths)+len(failed))
	for _, r := range failed {
		stats.add(r)
		results = append(results, r)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, stats, err
		}
		r, err := u.IngestPath(ctx, p, opts.Force)
		if err != nil {
			r.Err = err.Error()
		}
		stats.add(r)
		results = append(results, r)
		if opts.OnResult != nil {
			opts.OnResult(r)
		}
	}

	u.logger.Info("ingest.dir.ok",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results, stats, nil
}
