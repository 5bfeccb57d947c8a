package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/metrics"
)

// maxYearFetches bounds concurrent per-year queries while building the timeline.
const maxYearFetches = 8

// YearGroup is one year bucket of the timeline.
type YearGroup struct {
	Year  int
	Media []domain.Media
}

// TimelineService serves the read side: the year-grouped timeline and
// single-year listings.
type TimelineService struct {
	media domain.MediaRepository
}

// NewTimelineService creates a new TimelineService.
func NewTimelineService(media domain.MediaRepository) *TimelineService {
	return &TimelineService{media: media}
}

// Build returns every year bucket, newest year first, each listing its
// media newest first. Per-year queries run concurrently.
func (s *TimelineService) Build(ctx context.Context) ([]YearGroup, error) {
	start := time.Now()
	defer func() { metrics.TimelineBuildSeconds.Observe(time.Since(start).Seconds()) }()

	years, err := s.media.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}

	groups := make([]YearGroup, len(years))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxYearFetches)
	for i, year := range years {
		g.Go(func() error {
			media, err := s.media.ListByYear(gctx, year)
			if err != nil {
				return fmt.Errorf("list media for %d: %w", year, err)
			}
			groups[i] = YearGroup{Year: year, Media: media}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A year can empty out between Years and ListByYear.
	timeline := make([]YearGroup, 0, len(groups))
	for _, grp := range groups {
		if len(grp.Media) > 0 {
			timeline = append(timeline, grp)
		}
	}
	return timeline, nil
}

// ForYear returns the media of one year, newest first.
func (s *TimelineService) ForYear(ctx context.Context, year int) ([]domain.Media, error) {
	media, err := s.media.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list media for %d: %w", year, err)
	}
	return media, nil
}
