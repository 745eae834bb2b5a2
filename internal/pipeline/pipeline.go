// Package pipeline sequences the image acquisition stages per entity and
// drives the rate-limited batch loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/cache"
	"github.com/user/image-pipeline/internal/domain"
	"github.com/user/image-pipeline/internal/monitoring"
	"github.com/user/image-pipeline/internal/source"
	"github.com/user/image-pipeline/internal/validator"
)

var (
	// ErrNoCandidates marks an entity for which every source across every
	// tier came up empty.
	ErrNoCandidates = errors.New("no candidates found")
	// ErrAllRejected marks an entity whose candidates were all rejected by
	// validation.
	ErrAllRejected = errors.New("all candidates rejected")
	// ErrRunInProgress is returned when a batch run is already active.
	ErrRunInProgress = errors.New("a batch run is already in progress")
)

// Catalog supplies the entities to work on.
type Catalog interface {
	FindMissingImages(ctx context.Context, limit int) ([]domain.Entity, error)
}

// Cache maps entity signatures to previously accepted results.
type Cache interface {
	Get(ctx context.Context, e domain.Entity) (*cache.Record, bool, error)
	Set(ctx context.Context, e domain.Entity, resultRef string) error
}

// Searcher runs one source definition against one entity.
type Searcher interface {
	Search(ctx context.Context, e domain.Entity, def source.Definition) ([]domain.Candidate, error)
}

// Validator applies the candidate acceptance rules.
type Validator interface {
	Precheck(ctx context.Context, url string) error
	Download(ctx context.Context, url string) ([]byte, error)
	Validate(data []byte) (image.Image, error)
}

// Processor normalizes an accepted image.
type Processor interface {
	Normalize(src image.Image) (domain.ProcessedImage, error)
}

// Persister uploads a processed image and records the reference.
type Persister interface {
	Persist(ctx context.Context, e domain.Entity, img domain.ProcessedImage) (string, error)
}

// Pipeline wires the acquisition stages together.
type Pipeline struct {
	catalog   Catalog
	cache     Cache
	registry  *source.Registry
	searcher  Searcher
	validator Validator
	processor Processor
	persister Persister
	metrics   *monitoring.Metrics
	logger    *zap.Logger

	// entityDelay is enforced between entities regardless of outcome, to
	// keep request rates against external sources low.
	entityDelay time.Duration

	runMu sync.Mutex
}

func New(
	catalog Catalog,
	c Cache,
	registry *source.Registry,
	searcher Searcher,
	v Validator,
	p Processor,
	persister Persister,
	m *monitoring.Metrics,
	logger *zap.Logger,
	entityDelay time.Duration,
) *Pipeline {
	return &Pipeline{
		catalog:     catalog,
		cache:       c,
		registry:    registry,
		searcher:    searcher,
		validator:   v,
		processor:   p,
		persister:   persister,
		metrics:     m,
		logger:      logger,
		entityDelay: entityDelay,
	}
}

// Run draws up to batchSize entities from the catalog and processes them
// sequentially, one at a time, with a fixed delay between entities. No single
// entity's failure aborts the batch. Cancellation stops the loop before the
// next entity begins. The returned statistics are a value; callers own their
// copy.
func (p *Pipeline) Run(ctx context.Context, batchSize int) (domain.RunStats, error) {
	if !p.runMu.TryLock() {
		return domain.RunStats{}, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	entities, err := p.catalog.FindMissingImages(ctx, batchSize)
	if err != nil {
		return domain.RunStats{}, fmt.Errorf("query catalog: %w", err)
	}
	p.logger.Info("starting batch run", zap.Int("entities", len(entities)))

	var stats domain.RunStats
	for i, e := range entities {
		if i > 0 {
			if err := sleepCtx(ctx, p.entityDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		stats.Processed++
		switch outcome, err := p.processEntity(ctx, e); outcome {
		case outcomeCached:
			stats.ServedFromCache++
			p.metrics.CacheHitsTotal.Inc()
		case outcomeAcquired:
			stats.Succeeded++
			p.metrics.SucceededTotal.Inc()
		case outcomeFailed:
			stats.Failed++
			p.metrics.FailedTotal.Inc()
			p.logger.Warn("entity failed",
				zap.Int64("entity_id", e.ID),
				zap.String("brand", e.Brand),
				zap.String("model", e.Model),
				zap.Error(err))
		}
		p.metrics.ProcessedTotal.Inc()
	}

	p.logger.Info("batch run finished",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("served_from_cache", stats.ServedFromCache))
	return stats, nil
}

type outcome int

const (
	outcomeCached outcome = iota
	outcomeAcquired
	outcomeFailed
)

// processEntity runs one entity through the state machine: cache check,
// tiered source search, validation, processing, persistence, cache write.
func (p *Pipeline) processEntity(ctx context.Context, e domain.Entity) (outcome, error) {
	if rec, hit, err := p.cache.Get(ctx, e); err != nil {
		// A broken cache degrades to a miss; the search path still works.
		p.logger.Warn("cache read failed", zap.Int64("entity_id", e.ID), zap.Error(err))
	} else if hit {
		p.logger.Debug("served from cache",
			zap.Int64("entity_id", e.ID), zap.String("ref", rec.ResultRef))
		return outcomeCached, nil
	}

	candidates := source.FirstCandidates(ctx, e, p.registry.Tiers(), p.searcher.Search,
		func(def source.Definition, err error) {
			p.metrics.SourceErrorsTotal.WithLabelValues(def.Name).Inc()
			p.logger.Warn("source search failed",
				zap.Int64("entity_id", e.ID),
				zap.String("source", def.Name),
				zap.Error(err))
		})
	if len(candidates) == 0 {
		return outcomeFailed, ErrNoCandidates
	}

	accepted, img := p.firstAcceptable(ctx, e, candidates)
	if img == nil {
		return outcomeFailed, fmt.Errorf("%w (%d candidates)", ErrAllRejected, len(candidates))
	}

	processed, err := p.processor.Normalize(img)
	if err != nil {
		return outcomeFailed, fmt.Errorf("processing stage: %w", err)
	}

	ref, err := p.persister.Persist(ctx, e, processed)
	if err != nil {
		// No cache write: the entity stays eligible on the next run.
		return outcomeFailed, fmt.Errorf("persisting stage: %w", err)
	}

	if err := p.cache.Set(ctx, e, ref); err != nil {
		p.logger.Warn("cache write failed", zap.Int64("entity_id", e.ID), zap.Error(err))
	}

	p.logger.Info("image acquired",
		zap.Int64("entity_id", e.ID),
		zap.String("source", accepted.Source),
		zap.String("ref", ref))
	return outcomeAcquired, nil
}

// firstAcceptable walks the candidates in discovery order and returns the
// first one that passes precheck, download and validation.
func (p *Pipeline) firstAcceptable(ctx context.Context, e domain.Entity, candidates []domain.Candidate) (domain.Candidate, image.Image) {
	for _, cand := range candidates {
		if err := p.validator.Precheck(ctx, cand.URL); err != nil {
			p.recordRejection(e, cand, err)
			continue
		}
		data, err := p.validator.Download(ctx, cand.URL)
		if err != nil {
			p.recordRejection(e, cand, err)
			continue
		}
		img, err := p.validator.Validate(data)
		if err != nil {
			p.recordRejection(e, cand, err)
			continue
		}
		return cand, img
	}
	return domain.Candidate{}, nil
}

func (p *Pipeline) recordRejection(e domain.Entity, cand domain.Candidate, err error) {
	reason := "fetch_error"
	var rej *validator.RejectionError
	if errors.As(err, &rej) {
		reason = string(rej.Reason)
	}
	p.metrics.RejectionsTotal.WithLabelValues(reason).Inc()
	p.logger.Debug("candidate rejected",
		zap.Int64("entity_id", e.ID),
		zap.String("url", cand.URL),
		zap.String("reason", reason),
		zap.Error(err))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
