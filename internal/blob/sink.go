// Package blob validates uploaded files, names them, and writes their bytes
// to a domain.FileStore backend (local disk, S3 or the database).
package blob

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/msomdec/gohans-journey/internal/domain"
)

// DefaultMaxFileSize is the per-file upload ceiling.
const DefaultMaxFileSize int64 = 50 << 20 // 50MB

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/uploads/"

// allowedExtensions maps each accepted extension to the content type it is
// served with.
var allowedExtensions = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/pjpeg":     ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
	"video/avi":       ".avi",
	"video/msvideo":   ".avi",
	"video/webm":      ".webm",
}

// publicURLer is implemented by backends whose objects are reachable
// without going through this server.
type publicURLer interface {
	PublicURL(key string) (string, bool)
}

// Sink is the single entry point for storing uploaded bytes.
type Sink struct {
	files   domain.FileStore
	maxSize int64
	now     func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithMaxFileSize sets the per-file size ceiling in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Sink) { s.maxSize = n }
}

// WithClock overrides the clock used for generated names.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// NewSink creates a Sink writing to files.
func NewSink(files domain.FileStore, opts ...Option) *Sink {
	s := &Sink{files: files, maxSize: DefaultMaxFileSize, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxFileSize returns the per-file ceiling in bytes.
func (s *Sink) MaxFileSize() int64 { return s.maxSize }

// Validate checks the declared type and size of u without reading its body.
func (s *Sink) Validate(u domain.Upload) error {
	if !Allowed(u.Filename, u.ContentType) {
		return &domain.FileError{
			Filename: u.Filename,
			Err:      fmt.Errorf("%w: only images and videos are accepted (jpeg, jpg, png, gif, mp4, mov, avi, webm)", domain.ErrUnsupportedType),
		}
	}
	if u.Size > s.maxSize {
		return s.tooLarge(u.Filename)
	}
	return nil
}

// Write validates u, reads its body and stores it under a freshly generated
// name. Nothing is stored when an error is returned.
func (s *Sink) Write(ctx context.Context, u domain.Upload) (domain.StoredFile, error) {
	if err := s.Validate(u); err != nil {
		return domain.StoredFile{}, err
	}
	if u.Body == nil {
		return domain.StoredFile{}, &domain.FileError{Filename: u.Filename, Err: fmt.Errorf("%w: empty file body", domain.ErrInvalidInput)}
	}

	// Read one byte past the ceiling so a lying Size is still caught
	// before the backend sees any data.
	data, err := io.ReadAll(io.LimitReader(u.Body, s.maxSize+1))
	if err != nil {
		return domain.StoredFile{}, &domain.FileError{Filename: u.Filename, Err: fmt.Errorf("read upload: %w", err)}
	}
	if int64(len(data)) > s.maxSize {
		return domain.StoredFile{}, s.tooLarge(u.Filename)
	}

	key, err := GenerateName(u.Filename, u.ContentType, s.now())
	if err != nil {
		return domain.StoredFile{}, &domain.FileError{Filename: u.Filename, Err: fmt.Errorf("generate name: %w", err)}
	}

	if err := s.files.Save(ctx, key, normalizeContentType(u.ContentType), data); err != nil {
		return domain.StoredFile{}, &domain.FileError{Filename: u.Filename, Err: fmt.Errorf("store file: %w", err)}
	}
	return domain.StoredFile{Key: key, Size: int64(len(data))}, nil
}

// Read returns the bytes stored under key, or domain.ErrNotFound.
func (s *Sink) Read(ctx context.Context, key string) ([]byte, error) {
	return s.files.Get(ctx, key)
}

// Remove deletes the bytes stored under key.
func (s *Sink) Remove(ctx context.Context, key string) error {
	return s.files.Delete(ctx, key)
}

// URL returns the retrieval URL for key.
func (s *Sink) URL(key string) string {
	if p, ok := s.files.(publicURLer); ok {
		if u, ok := p.PublicURL(key); ok {
			return u
		}
	}
	return URLPrefix + url.PathEscape(key)
}

func (s *Sink) tooLarge(filename string) error {
	return &domain.FileError{
		Filename: filename,
		Err:      fmt.Errorf("%w: maximum size is %dMB", domain.ErrFileTooLarge, s.maxSize>>20),
	}
}

// Allowed reports whether a file is an accepted image or video. Either the
// extension or the declared MIME type has to be on the allow-list.
func Allowed(filename, contentType string) bool {
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return true
	}
	_, ok := allowedContentTypes[normalizeContentType(contentType)]
	return ok
}

// GenerateName builds a collision-resistant storage name from the current
// time and 48 random bits, keeping the original extension when it is an
// accepted one and otherwise using the extension of the declared type.
func GenerateName(original, contentType string, now time.Time) (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(original))
	if _, ok := allowedExtensions[ext]; !ok {
		ext = allowedContentTypes[normalizeContentType(contentType)]
	}
	return fmt.Sprintf("%d-%s%s", now.UnixNano(), hex.EncodeToString(b), ext), nil
}

// ContentTypeFor guesses the content type of a stored name from its extension.
func ContentTypeFor(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if ct, ok := allowedExtensions[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func normalizeContentType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
