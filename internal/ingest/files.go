// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/source"
)

// Opener opens named sources. *source.Opener implements it.
type Opener interface {
	Open(ctx context.Context, name string) (*source.Input, error)
}

// Checkpoints records fully ingested file versions. *checkpoint.Store
// implements it.
type Checkpoints interface {
	IsDone(fp source.Fingerprint) (bool, error)
	MarkDone(fp source.Fingerprint, summary models.RunSummary) error
}

// FileResult is the outcome of ingesting one source.
type FileResult struct {
	Name    string            `json:"name"`
	Summary models.RunSummary `json:"summary"`
	Err     error             `json:"-"`
}

// Runner ingests many sources through one Pipeline.
type Runner struct {
	pipeline    *Pipeline
	opener      Opener
	checkpoints Checkpoints
	parallel    int
}

// NewRunner creates a Runner. checkpoints may be nil to ingest every
// source unconditionally.
func NewRunner(p *Pipeline, opener Opener, checkpoints Checkpoints) *Runner {
	parallel := p.cfg.ParallelFiles
	if parallel <= 0 {
		parallel = 1
	}
	return &Runner{
		pipeline:    p,
		opener:      opener,
		checkpoints: checkpoints,
		parallel:    parallel,
	}
}

// RunFiles ingests names with up to ParallelFiles sources in flight and
// returns one result per name in input order plus the combined summary.
// Sources not started before ctx is canceled are reported as canceled.
func (r *Runner) RunFiles(ctx context.Context, names []string) (models.RunSummary, []FileResult) {
	start := time.Now()
	results := xsync.NewMap[int, FileResult]()
	sem := make(chan struct{}, r.parallel)
	var wg sync.WaitGroup

	for i, name := range names {
		if !acquire(ctx, sem) {
			results.Store(i, FileResult{
				Name:    name,
				Summary: models.RunSummary{Source: name, Format: r.pipeline.format, Canceled: true},
				Err:     ctx.Err(),
			})
			continue
		}

		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			results.Store(i, r.runOne(ctx, name))
		}(i, name)
	}
	wg.Wait()

	total := models.RunSummary{
		Source: fmt.Sprintf("%d sources", len(names)),
		Format: r.pipeline.format,
	}
	out := make([]FileResult, 0, len(names))
	for i := range names {
		res, ok := results.Load(i)
		if !ok {
			continue
		}
		out = append(out, res)
		total.Add(res.Summary)
	}
	total.ProcessingTime = time.Since(start)
	total.LinesPerSecond = models.Throughput(total.TotalLines, total.ProcessingTime)
	return total, out
}

// acquire takes a slot from sem unless ctx is canceled first.
func acquire(ctx context.Context, sem chan struct{}) bool {
	select {
	case sem <- struct{}{}:
		if ctx.Err() != nil {
			<-sem
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) runOne(ctx context.Context, name string) FileResult {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)
	res := FileResult{
		Name:    name,
		Summary: models.RunSummary{Source: name, Format: r.pipeline.format},
	}

	in, err := r.opener.Open(ctx, name)
	if err != nil {
		metrics.IngestRuns.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("source", name).Msg("Failed to open source")
		res.Err = err
		return res
	}
	defer func() {
		if cerr := in.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("source", name).Msg("Failed to close source")
		}
	}()

	fp := in.Fingerprint
	if r.checkpoints != nil && fp != nil {
		done, err := r.checkpoints.IsDone(*fp)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("source", name).Msg("Checkpoint lookup failed, ingesting anyway")
		case done:
			metrics.IngestRuns.WithLabelValues("skipped").Inc()
			log.Info().Str("source", name).Msg("Source already ingested, skipping")
			res.Summary.Skipped = true
			return res
		}
	}

	summary, err := r.pipeline.Run(ctx, name, in)
	res.Summary = summary
	res.Err = err

	complete := err == nil && !summary.Canceled && summary.FailedRows == 0
	if r.checkpoints != nil && fp != nil && complete {
		if err := r.checkpoints.MarkDone(*fp, summary); err != nil {
			log.Warn().Err(err).Str("source", name).Msg("Failed to record checkpoint")
		}
	}
	return res
}
