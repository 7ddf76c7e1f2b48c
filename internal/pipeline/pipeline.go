// Package pipeline wires ingestion, caching and the extraction core together
// and is the boundary where core failures become errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/panicbutton/internal/cache"
	"github.com/ppiankov/panicbutton/internal/extract"
	"github.com/ppiankov/panicbutton/internal/ingest"
	"github.com/ppiankov/panicbutton/internal/model"
)

// ErrExtractionUnavailable is returned when the extraction core fails; the
// accompanying result carries zero candidates
var ErrExtractionUnavailable = errors.New("extraction unavailable")

// Pipeline orchestrates one extraction: load, cache lookup, extract, cache store
type Pipeline struct {
	loader  *ingest.Loader
	store   *cache.ResultStore
	extract func(text string, defaultYear int) model.ExtractionResult
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithCache replaces the result cache built from config
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.store = cache.NewResultStore(c) }
}

// WithLoader replaces the source loader built from config
func WithLoader(l *ingest.Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithClock replaces the clock used to resolve the current year
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		loader:  ingest.NewLoader(ingest.NewFetcher(cfg.HTTP)),
		store:   cache.NewResultStore(cache.New(cfg.Cache)),
		extract: extract.NewExtractor().Extract,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is one completed extraction
type Result struct {
	Report  *model.Report
	Elapsed time.Duration
}

// ExtractSource loads a file path or http(s) URL and extracts it
func (p *Pipeline) ExtractSource(ctx context.Context, source string, defaultYear int) (*Result, error) {
	// 1. Load
	doc, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	p.logger.Debug("source loaded",
		zap.String("source", doc.Source),
		zap.Int("pages", doc.Pages),
		zap.Int("bytes", len(doc.Text)),
	)

	// 2. Extract
	return p.Extract(ctx, doc, defaultYear)
}

// Extract runs the core over doc. A zero defaultYear means the current year.
// A core failure yields a zero-candidate report and ErrExtractionUnavailable.
func (p *Pipeline) Extract(ctx context.Context, doc ingest.Document, defaultYear int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := p.now()
	if defaultYear == 0 {
		defaultYear = start.Year()
	}

	report := &model.Report{
		Source:      doc.Source,
		Pages:       doc.Pages,
		DefaultYear: defaultYear,
	}

	// 1. Cache lookup
	if cached, ok := p.store.Load(doc.Text, defaultYear); ok {
		report.Extraction = cached
		report.Cached = true
		p.logger.Debug("extraction cache hit", zap.String("source", doc.Source))
		return &Result{Report: report, Elapsed: p.now().Sub(start)}, nil
	}

	// 2. Extract under recover
	extraction, err := p.safeExtract(doc.Text, defaultYear)
	if err != nil {
		report.Extraction = emptyResult()
		p.logger.Error("extraction failed", zap.String("source", doc.Source), zap.Error(err))
		return &Result{Report: report, Elapsed: p.now().Sub(start)}, err
	}
	report.Extraction = extraction

	// 3. Cache store; a failed write only costs the next call a recompute
	if err := p.store.Save(doc.Text, defaultYear, extraction); err != nil {
		p.logger.Warn("extraction cache write failed", zap.Error(err))
	}

	elapsed := p.now().Sub(start)
	p.logger.Info("extraction complete",
		zap.String("source", doc.Source),
		zap.Int("default_year", defaultYear),
		zap.Int("dates_found", extraction.Stats.TotalDatesFound),
		zap.Int("candidates", extraction.Stats.CandidatesEmitted),
		zap.Int("low_confidence", extraction.Stats.LowConfidenceCount),
		zap.Duration("elapsed", elapsed),
	)

	return &Result{Report: report, Elapsed: elapsed}, nil
}

func (p *Pipeline) safeExtract(text string, defaultYear int) (result model.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = model.ExtractionResult{}
			err = fmt.Errorf("%w: %v", ErrExtractionUnavailable, r)
		}
	}()
	return p.extract(text, defaultYear), nil
}

func emptyResult() model.ExtractionResult {
	return model.ExtractionResult{Candidates: []model.DeadlineCandidate{}}
}
