package domain

import (
	"context"
	"io"
)

// Upload is one file of an upload request as declared by the client.
type Upload struct {
	Filename    string // Original client filename
	ContentType string // Declared MIME type
	Size        int64  // Declared size in bytes
	Body        io.Reader
}

// FileStore abstracts raw file byte storage. Implementations exist for
// local disk, S3-compatible object storage and SQLite BLOBs.
type FileStore interface {
	// Save stores data under key. A failed Save leaves nothing retrievable
	// under key.
	Save(ctx context.Context, key, contentType string, data []byte) error
	// Get returns ErrNotFound when key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// StoredFile is the result of a successful blob write.
type StoredFile struct {
	Key  string // Generated storage name
	Size int64  // Bytes written
}
