// Package service implements the duplicate-identity registry on top of a
// VectorStore and an ImageStore.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/registry/models"
	"kycgate/internal/registry/ports"
	dErrors "kycgate/pkg/domain-errors"
)

type (
	VectorStore = ports.VectorStore
	ImageStore  = ports.ImageStore
)

// snapshot is an immutable view of the registry. Writers build a new one and
// swap it in; readers never lock.
type snapshot struct {
	records   []models.Record
	dimension int
}

// Registry answers duplicate and search queries against accepted identities
// and is the only component that admits new ones.
type Registry struct {
	vectors   VectorStore
	images    ImageStore
	threshold float64
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	writeMu sync.Mutex
	snap    atomic.Pointer[snapshot]
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New loads the current records from vectors. threshold is the similarity a
// stored vector must strictly exceed to count as a match.
func New(ctx context.Context, vectors VectorStore, images ImageStore, threshold float64, opts ...Option) (*Registry, error) {
	if vectors == nil {
		return nil, errors.New("vector store is required")
	}
	if images == nil {
		return nil, errors.New("image store is required")
	}
	r := &Registry{
		vectors:   vectors,
		images:    images,
		threshold: threshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	records, err := vectors.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	snap := &snapshot{records: records}
	if len(records) > 0 {
		snap.dimension = len(records[0].Vector)
		for i, rec := range records {
			if len(rec.Vector) != snap.dimension {
				return nil, fmt.Errorf("load registry: record %d has %d components, want %d", i, len(rec.Vector), snap.dimension)
			}
		}
	}
	r.snap.Store(snap)
	r.metrics.SetIdentities(len(records))
	return r, nil
}

// FindDuplicate reports whether any stored vector has similarity strictly
// above the threshold.
func (r *Registry) FindDuplicate(_ context.Context, vector []float64) (bool, error) {
	snap := r.snap.Load()
	if err := snap.check(vector); err != nil {
		return false, err
	}
	return snap.duplicate(vector, r.threshold), nil
}

// Search returns the best similarity among stored vectors. An empty registry
// yields a zero score and no match.
func (r *Registry) Search(_ context.Context, vector []float64) (models.SearchResult, error) {
	snap := r.snap.Load()
	if err := snap.check(vector); err != nil {
		return models.SearchResult{}, err
	}
	if len(snap.records) == 0 {
		return models.SearchResult{}, nil
	}
	best := models.CosineSimilarity(vector, snap.records[0].Vector)
	for _, rec := range snap.records[1:] {
		if score := models.CosineSimilarity(vector, rec.Vector); score > best {
			best = score
		}
	}
	return models.SearchResult{Matched: best > r.threshold, Score: best}, nil
}

// Append stores img and vector as a new identity without a duplicate check.
func (r *Registry) Append(ctx context.Context, img models.Image, vector []float64) (models.Record, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.appendLocked(ctx, img, vector)
}

// AppendUnique repeats the duplicate scan under the write lock and appends only
// if it still finds nothing. The bool is true when a duplicate blocked the write.
func (r *Registry) AppendUnique(ctx context.Context, img models.Image, vector []float64) (models.Record, bool, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	snap := r.snap.Load()
	if err := snap.check(vector); err != nil {
		return models.Record{}, false, err
	}
	if snap.duplicate(vector, r.threshold) {
		return models.Record{}, true, nil
	}
	rec, err := r.appendLocked(ctx, img, vector)
	return rec, false, err
}

func (r *Registry) appendLocked(ctx context.Context, img models.Image, vector []float64) (models.Record, error) {
	snap := r.snap.Load()
	if err := snap.check(vector); err != nil {
		return models.Record{}, err
	}

	ref, err := r.images.Save(ctx, img)
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store image")
	}
	rec := models.Record{
		ID:        uuid.NewString(),
		Vector:    append([]float64(nil), vector...),
		ImageRef:  ref,
		CreatedAt: r.now().UTC(),
	}
	if err := r.vectors.Append(ctx, rec); err != nil {
		if delErr := r.images.Delete(ctx, ref); delErr != nil {
			r.logger.WarnContext(ctx, "failed to remove orphaned image", "image_ref", ref, "error", delErr)
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist identity")
	}

	next := &snapshot{
		records:   make([]models.Record, len(snap.records), len(snap.records)+1),
		dimension: len(vector),
	}
	copy(next.records, snap.records)
	next.records = append(next.records, rec)
	r.snap.Store(next)
	r.metrics.SetIdentities(len(next.records))

	r.logger.InfoContext(ctx, "identity stored",
		"identity_id", rec.ID,
		"image_ref", rec.ImageRef,
		"identity_count", len(next.records),
	)
	return rec, nil
}

// Count returns the number of stored identities.
func (r *Registry) Count(context.Context) int {
	return len(r.snap.Load().records)
}

// ListImageRefs returns the image reference of every identity in append order.
func (r *Registry) ListImageRefs(context.Context) []string {
	records := r.snap.Load().records
	refs := make([]string, len(records))
	for i, rec := range records {
		refs[i] = rec.ImageRef
	}
	return refs
}

// Reset removes every identity and stored image.
func (r *Registry) Reset(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.vectors.Reset(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear registry")
	}
	r.snap.Store(&snapshot{})
	r.metrics.SetIdentities(0)
	if err := r.images.Reset(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear stored images")
	}
	r.logger.InfoContext(ctx, "registry cleared", "event", "registry_reset", "log_type", "audit")
	return nil
}

func (s *snapshot) check(vector []float64) error {
	if len(vector) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "embedding is empty")
	}
	if s.dimension != 0 && len(vector) != s.dimension {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("embedding has %d components, registry holds %d", len(vector), s.dimension))
	}
	return nil
}

func (s *snapshot) duplicate(vector []float64, threshold float64) bool {
	for _, rec := range s.records {
		if models.CosineSimilarity(vector, rec.Vector) > threshold {
			return true
		}
	}
	return false
}
