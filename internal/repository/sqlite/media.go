package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/gohans-journey/internal/domain"
)

const mediaColumns = "id, year, filename, type, uploaded_at"

// mediaRepo implements domain.MediaRepository using SQLite.
type mediaRepo struct {
	db *DB
}

func (r *mediaRepo) Create(ctx context.Context, input domain.CreateMediaInput) (*domain.Media, error) {
	conn, err := r.db.SQL(ctx)
	if err != nil {
		return nil, err
	}

	m := &domain.Media{
		ID:       uuid.NewString(),
		Year:     input.Year,
		Filename: input.Filename,
		Type:     input.Type,
	}

	r.db.createMu.Lock()
	defer r.db.createMu.Unlock()

	m.UploadedAt = r.db.now().UTC()
	_, err = conn.ExecContext(ctx,
		"INSERT INTO media ("+mediaColumns+") VALUES (?, ?, ?, ?, ?)",
		m.ID, m.Year, m.Filename, string(m.Type), m.UploadedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	return m, nil
}

func (r *mediaRepo) ListByYear(ctx context.Context, year int) ([]domain.Media, error) {
	return r.list(ctx,
		"SELECT "+mediaColumns+" FROM media WHERE year = ? ORDER BY uploaded_at DESC, seq DESC", year)
}

func (r *mediaRepo) ListAll(ctx context.Context) ([]domain.Media, error) {
	return r.list(ctx,
		"SELECT "+mediaColumns+" FROM media ORDER BY uploaded_at DESC, seq DESC")
}

func (r *mediaRepo) Years(ctx context.Context) ([]int, error) {
	conn, err := r.db.SQL(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, "SELECT DISTINCT year FROM media ORDER BY year DESC")
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (r *mediaRepo) GetByID(ctx context.Context, id string) (*domain.Media, error) {
	conn, err := r.db.SQL(ctx)
	if err != nil {
		return nil, err
	}

	m, err := scanMedia(conn.QueryRowContext(ctx,
		"SELECT "+mediaColumns+" FROM media WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	return &m, nil
}

func (r *mediaRepo) Delete(ctx context.Context, id string) error {
	conn, err := r.db.SQL(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

func (r *mediaRepo) list(ctx context.Context, query string, args ...any) ([]domain.Media, error) {
	conn, err := r.db.SQL(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	media := []domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(s scanner) (domain.Media, error) {
	var (
		m          domain.Media
		mediaType  string
		uploadedAt string
	)
	if err := s.Scan(&m.ID, &m.Year, &m.Filename, &mediaType, &uploadedAt); err != nil {
		return domain.Media{}, err
	}
	t, err := time.Parse(timeLayout, uploadedAt)
	if err != nil {
		return domain.Media{}, fmt.Errorf("parse uploaded_at %q: %w", uploadedAt, err)
	}
	m.Type = domain.MediaType(mediaType)
	m.UploadedAt = t
	return m, nil
}
