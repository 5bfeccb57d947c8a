package domain

import (
	"context"
	"strings"
	"time"
)

// MediaType classifies an uploaded asset.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaTypeFromContentType derives the media type from a declared content
// type. Anything that is not image/* is treated as video.
func MediaTypeFromContentType(contentType string) MediaType {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return MediaTypeImage
	}
	return MediaTypeVideo
}

// Media holds the metadata of one uploaded asset. The bytes live in a
// FileStore under Filename.
type Media struct {
	ID         string
	Year       int       // Timeline bucket chosen by the uploader
	Filename   string    // Storage key in the blob sink
	Type       MediaType // "image" or "video"
	UploadedAt time.Time
}

// CreateMediaInput carries the uploader-supplied fields of a new record.
// ID and UploadedAt are assigned by the repository.
type CreateMediaInput struct {
	Year     int
	Filename string
	Type     MediaType
}

// MediaRepository handles media metadata persistence.
//
// Listing methods order records by UploadedAt descending, breaking ties by
// insertion order (most recent insert first). They return an empty slice,
// not an error, when nothing matches.
type MediaRepository interface {
	Create(ctx context.Context, input CreateMediaInput) (*Media, error)
	ListByYear(ctx context.Context, year int) ([]Media, error)
	ListAll(ctx context.Context) ([]Media, error)
	// Years returns the distinct years present, newest first.
	Years(ctx context.Context) ([]int, error)
	// GetByID returns ErrNotFound when no record has the given id.
	GetByID(ctx context.Context, id string) (*Media, error)
	// Delete removes the record only. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
