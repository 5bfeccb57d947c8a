package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/gohans-journey/internal/domain"
)

// fileStore implements domain.FileStore using SQLite BLOBs.
type fileStore struct {
	db *DB
}

func (s *fileStore) Save(ctx context.Context, key, contentType string, data []byte) error {
	conn, err := s.db.SQL(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx,
		"INSERT INTO file_blobs (storage_key, content_type, data) VALUES (?, ?, ?)",
		key, contentType, data,
	)
	if err != nil {
		return fmt.Errorf("save file blob: %w", err)
	}
	return nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.db.SQL(ctx)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = conn.QueryRowContext(ctx,
		"SELECT data FROM file_blobs WHERE storage_key = ?", key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get file blob: %w", err)
	}
	return data, nil
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	conn, err := s.db.SQL(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM file_blobs WHERE storage_key = ?", key); err != nil {
		return fmt.Errorf("delete file blob: %w", err)
	}
	return nil
}
