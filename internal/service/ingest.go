package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/metrics"
)

// rollbackTimeout bounds compensation after a failed batch. Rollback runs
// detached from the request so a disconnecting client cannot cut it short.
const rollbackTimeout = 30 * time.Second

// BlobSink validates and stores uploaded bytes. *blob.Sink implements it.
type BlobSink interface {
	Validate(u domain.Upload) error
	Write(ctx context.Context, u domain.Upload) (domain.StoredFile, error)
	Remove(ctx context.Context, key string) error
}

// UploadRequest is one decoded upload: a year bucket and its files.
type UploadRequest struct {
	Year  int
	Files []domain.Upload
}

// Manifest lists the records created by a successful upload.
type Manifest struct {
	Media []domain.Media
	Count int
}

// IngestService turns upload requests into stored files and media records.
type IngestService struct {
	media domain.MediaRepository
	blobs BlobSink
}

// NewIngestService creates a new IngestService.
func NewIngestService(media domain.MediaRepository, blobs BlobSink) *IngestService {
	return &IngestService{media: media, blobs: blobs}
}

// batch tracks the side effects of one request for rollback.
type batch struct {
	keys    []string
	records []domain.Media
	bytes   int64
}

// Ingest stores every file of req or none of them. The request and every
// file are validated before the first write. Once writing starts, a
// failure removes the records and blobs already created for this request.
func (s *IngestService) Ingest(ctx context.Context, req UploadRequest) (*Manifest, error) {
	if err := s.validate(req); err != nil {
		metrics.UploadBatchesTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	var b batch
	for _, f := range req.Files {
		if err := ctx.Err(); err != nil {
			s.rollback(ctx, &b)
			metrics.UploadBatchesTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return nil, fmt.Errorf("upload aborted: %w", err)
		}

		stored, err := s.blobs.Write(ctx, f)
		if err != nil {
			s.rollback(ctx, &b)
			if domain.IsValidation(err) {
				metrics.UploadBatchesTotal.WithLabelValues(metrics.ResultRejected).Inc()
				return nil, err
			}
			metrics.UploadBatchesTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		b.keys = append(b.keys, stored.Key)

		m, err := s.media.Create(ctx, domain.CreateMediaInput{
			Year:     req.Year,
			Filename: stored.Key,
			Type:     domain.MediaTypeFromContentType(f.ContentType),
		})
		if err != nil {
			s.rollback(ctx, &b)
			metrics.UploadBatchesTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence,
				&domain.FileError{Filename: f.Filename, Err: fmt.Errorf("create media record: %w", err)})
		}
		b.records = append(b.records, *m)
		b.bytes += stored.Size
	}

	metrics.UploadBatchesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.BytesStoredTotal.Add(float64(b.bytes))
	for _, m := range b.records {
		metrics.FilesStoredTotal.WithLabelValues(string(m.Type)).Inc()
	}
	slog.Info("upload stored", "year", req.Year, "count", len(b.records), "bytes", b.bytes)

	return &Manifest{Media: b.records, Count: len(b.records)}, nil
}

func (s *IngestService) validate(req UploadRequest) error {
	if req.Year == 0 {
		return fmt.Errorf("%w: year is required", domain.ErrInvalidInput)
	}
	if len(req.Files) == 0 {
		return fmt.Errorf("%w: no files were uploaded", domain.ErrInvalidInput)
	}
	var errs []error
	for _, f := range req.Files {
		if err := s.blobs.Validate(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// rollback undoes b in reverse: records first, so no record ever points at
// a removed blob, then the blobs.
func (s *IngestService) rollback(ctx context.Context, b *batch) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	for _, m := range b.records {
		if err := s.media.Delete(ctx, m.ID); err != nil {
			metrics.CompensationsTotal.WithLabelValues("record", "error").Inc()
			slog.Error("rollback media record", "id", m.ID, "filename", m.Filename, "error", err)
			continue
		}
		metrics.CompensationsTotal.WithLabelValues("record", "ok").Inc()
	}
	for _, key := range b.keys {
		if err := s.blobs.Remove(ctx, key); err != nil {
			// The blob is orphaned; no record references it.
			metrics.CompensationsTotal.WithLabelValues("blob", "error").Inc()
			slog.Error("rollback blob", "key", key, "error", err)
			continue
		}
		metrics.CompensationsTotal.WithLabelValues("blob", "ok").Inc()
	}
	if len(b.keys) > 0 {
		slog.Warn("upload batch rolled back", "blobs", len(b.keys), "records", len(b.records))
	}
}
