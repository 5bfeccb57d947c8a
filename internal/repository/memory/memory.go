// Package memory provides a process-local media repository. It is the
// fallback when no database is configured; its contents are lost on restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/gohans-journey/internal/domain"
)

type record struct {
	media domain.Media
	seq   uint64 // insertion order, breaks UploadedAt ties
}

// MediaRepo implements domain.MediaRepository with a map keyed by id.
// It is safe for concurrent use.
type MediaRepo struct {
	mu      sync.RWMutex
	records map[string]record
	nextSeq uint64
	now     func() time.Time
}

// Option configures a MediaRepo.
type Option func(*MediaRepo)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(r *MediaRepo) { r.now = now }
}

// NewMediaRepo creates an empty repository.
func NewMediaRepo(opts ...Option) *MediaRepo {
	r := &MediaRepo{
		records: make(map[string]record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MediaRepo) Create(ctx context.Context, input domain.CreateMediaInput) (*domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := domain.Media{
		ID:       uuid.NewString(),
		Year:     input.Year,
		Filename: input.Filename,
		Type:     input.Type,
	}

	// Stamp and sequence together so timestamp order never contradicts
	// insertion order.
	r.mu.Lock()
	m.UploadedAt = r.now().UTC()
	r.nextSeq++
	r.records[m.ID] = record{media: m, seq: r.nextSeq}
	r.mu.Unlock()

	return &m, nil
}

func (r *MediaRepo) ListByYear(ctx context.Context, year int) ([]domain.Media, error) {
	return r.list(ctx, func(m domain.Media) bool { return m.Year == year })
}

func (r *MediaRepo) ListAll(ctx context.Context) ([]domain.Media, error) {
	return r.list(ctx, func(domain.Media) bool { return true })
}

func (r *MediaRepo) Years(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	seen := make(map[int]struct{})
	for _, rec := range r.records {
		seen[rec.media.Year] = struct{}{}
	}
	r.mu.RUnlock()

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	slices.SortFunc(years, func(a, b int) int { return cmp.Compare(b, a) })
	return years, nil
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (*domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	m := rec.media
	return &m, nil
}

func (r *MediaRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
	return nil
}

func (r *MediaRepo) list(ctx context.Context, keep func(domain.Media) bool) ([]domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]record, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec.media) {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b record) int {
		if c := b.media.UploadedAt.Compare(a.media.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	media := make([]domain.Media, len(matched))
	for i, rec := range matched {
		media[i] = rec.media
	}
	return media, nil
}
