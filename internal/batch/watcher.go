package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finpipe/internal/pipeline"
)

// RunFunc executes the full pipeline for one PDF and reports the
// accumulated totals. Supplied by the CLI so the watcher stays free of
// flag plumbing.
type RunFunc func(ctx context.Context, pdfPath string) (pipeline.Totals, error)

// Watcher drains an input directory of annual-report PDFs, running the
// pipeline once per document and moving successes aside so a crashed
// batch can resume where it stopped.
type Watcher struct {
	InputDir     string
	ProcessedDir string // defaults to <InputDir>/processed
	Log          zerolog.Logger
	Run          RunFunc
	Metrics      *Metrics // optional
}

// Summary reports one sweep of the input directory.
type Summary struct {
	Processed int
	Failed    int
	Skipped   int
	Totals    pipeline.Totals
}

// ListPDFs returns the PDFs waiting in the input directory, sorted for
// a stable processing order.
func (w *Watcher) ListPDFs() ([]string, error) {
	entries, err := os.ReadDir(w.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var pdfs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			pdfs = append(pdfs, filepath.Join(w.InputDir, e.Name()))
		}
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

// Sweep processes every PDF currently in the input directory. A failed
// document is logged and left in place; the sweep carries on with the
// rest.
func (w *Watcher) Sweep(ctx context.Context) (Summary, error) {
	var sum Summary
	pdfs, err := w.ListPDFs()
	if err != nil {
		return sum, err
	}
	for _, pdf := range pdfs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		id := pipeline.DocumentID(pdf)
		if !pipeline.Conforms(id) {
			w.Log.Warn().Str("doc", id).Msg("name does not match Company_AR_YYYY, skipping")
			sum.Skipped++
			continue
		}
		tot, err := w.Run(ctx, pdf)
		sum.Totals = sum.Totals.Add(tot.Elapsed, tot.CostUSD)
		if err != nil {
			w.Log.Error().Err(err).Str("doc", id).Msg("document failed")
			sum.Failed++
			if w.Metrics != nil {
				w.Metrics.DocumentDone(false)
			}
			continue
		}
		if err := w.archive(pdf); err != nil {
			w.Log.Warn().Err(err).Str("doc", id).Msg("could not move processed PDF")
		}
		sum.Processed++
		if w.Metrics != nil {
			w.Metrics.DocumentDone(true)
		}
	}
	return sum, nil
}

// Watch sweeps the input directory, then re-checks on the given
// interval until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		sum, err := w.Sweep(ctx)
		if err != nil {
			return err
		}
		if sum.Processed+sum.Failed > 0 {
			w.Log.Info().
				Int("processed", sum.Processed).
				Int("failed", sum.Failed).
				Int("skipped", sum.Skipped).
				Float64("cost_usd", sum.Totals.CostUSD).
				Msg("sweep complete")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) archive(pdf string) error {
	dir := w.ProcessedDir
	if dir == "" {
		dir = filepath.Join(w.InputDir, "processed")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(pdf, filepath.Join(dir, filepath.Base(pdf)))
}
