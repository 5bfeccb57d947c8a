package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/repository/sqlite"
)

func TestMediaRepo_CreateAndGet(t *testing.T) {
	repo := newTestDB(t).Media()
	ctx := context.Background()

	m, err := repo.Create(ctx, domain.CreateMediaInput{Year: 2023, Filename: "1-aa.jpg", Type: domain.MediaTypeImage})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if m.UploadedAt.IsZero() {
		t.Fatal("expected UploadedAt to be assigned")
	}

	got, err := repo.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != m.ID || got.Year != 2023 || got.Filename != "1-aa.jpg" || got.Type != domain.MediaTypeImage {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, *m)
	}
	if !got.UploadedAt.Equal(m.UploadedAt) {
		t.Fatalf("expected UploadedAt %v, got %v", m.UploadedAt, got.UploadedAt)
	}
}

func TestMediaRepo_GetByIDNotFound(t *testing.T) {
	repo := newTestDB(t).Media()

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMediaRepo_UniqueIDs(t *testing.T) {
	repo := newTestDB(t).Media()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := range 50 {
		m, err := repo.Create(ctx, domain.CreateMediaInput{
			Year:     2000 + i%3,
			Filename: fmt.Sprintf("file-%d.mp4", i),
			Type:     domain.MediaTypeVideo,
		})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if seen[m.ID] {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestMediaRepo_ListByYearFiltersAndOrders(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// Timestamps are handed out of order on purpose.
	clock := &stepClock{times: []time.Time{
		base.Add(2 * time.Minute),
		base,
		base.Add(5 * time.Minute),
		base.Add(time.Minute),
	}}
	repo := newTestDB(t, sqlite.WithClock(clock.Now)).Media()
	ctx := context.Background()

	inputs := []domain.CreateMediaInput{
		{Year: 2023, Filename: "a.jpg", Type: domain.MediaTypeImage},
		{Year: 2023, Filename: "b.jpg", Type: domain.MediaTypeImage},
		{Year: 2021, Filename: "c.mp4", Type: domain.MediaTypeVideo},
		{Year: 2023, Filename: "d.mp4", Type: domain.MediaTypeVideo},
	}
	for _, in := range inputs {
		if _, err := repo.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", in.Filename, err)
		}
	}

	got, err := repo.ListByYear(ctx, 2023)
	if err != nil {
		t.Fatalf("ListByYear: %v", err)
	}
	want := []string{"a.jpg", "d.mp4", "b.jpg"}
	if names := filenames(got); !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want = []string{"c.mp4", "a.jpg", "d.mp4", "b.jpg"}
	if names := filenames(all); !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}

	empty, err := repo.ListByYear(ctx, 1999)
	if err != nil {
		t.Fatalf("ListByYear empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestMediaRepo_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newTestDB(t, sqlite.WithClock(func() time.Time { return fixed })).Media()
	ctx := context.Background()

	for _, name := range []string{"first.jpg", "second.jpg", "third.jpg"} {
		if _, err := repo.Create(ctx, domain.CreateMediaInput{Year: 2024, Filename: name, Type: domain.MediaTypeImage}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.ListByYear(ctx, 2024)
	if err != nil {
		t.Fatalf("ListByYear: %v", err)
	}
	want := []string{"third.jpg", "second.jpg", "first.jpg"}
	if names := filenames(got); !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}

func TestMediaRepo_YearsDistinctDescending(t *testing.T) {
	repo := newTestDB(t).Media()
	ctx := context.Background()

	years, err := repo.Years(ctx)
	if err != nil {
		t.Fatalf("Years on empty store: %v", err)
	}
	if len(years) != 0 {
		t.Fatalf("expected no years, got %v", years)
	}

	for i, y := range []int{2019, 2023, 2019, 2021, 2023, 2020} {
		in := domain.CreateMediaInput{Year: y, Filename: fmt.Sprintf("%d.png", i), Type: domain.MediaTypeImage}
		if _, err := repo.Create(ctx, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	years, err = repo.Years(ctx)
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	want := []int{2023, 2021, 2020, 2019}
	if !slices.Equal(years, want) {
		t.Fatalf("expected %v, got %v", want, years)
	}
}

func TestMediaRepo_DeleteIdempotent(t *testing.T) {
	repo := newTestDB(t).Media()
	ctx := context.Background()

	m, err := repo.Create(ctx, domain.CreateMediaInput{Year: 2022, Filename: "x.gif", Type: domain.MediaTypeImage})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, m.ID); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if err := repo.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete unknown id: %v", err)
	}

	if _, err := repo.GetByID(ctx, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func filenames(media []domain.Media) []string {
	names := make([]string, len(media))
	for i, m := range media {
		names[i] = m.Filename
	}
	return names
}
