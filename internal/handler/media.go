package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/msomdec/gohans-journey/internal/blob"
	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/service"
)

// multipartMemory is how much of a multipart body is kept in memory; the
// rest spills to temp files.
const multipartMemory = 32 << 20

// Options tune MediaHandler behavior per deployment.
type Options struct {
	// MaxRequestSize caps the whole multipart upload body in bytes.
	MaxRequestSize int64
	// ExposeErrorDetails adds internal error text to 500 responses.
	// Leave off in production.
	ExposeErrorDetails bool
	// UploadLimiter throttles uploads per client. Nil disables throttling.
	UploadLimiter Limiter
}

// MediaHandler serves the timeline API, uploads, and stored files.
type MediaHandler struct {
	ingest   *service.IngestService
	timeline *service.TimelineService
	blobs    *blob.Sink
	opts     Options
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(ingest *service.IngestService, timeline *service.TimelineService, blobs *blob.Sink, opts Options) *MediaHandler {
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = 512 << 20
	}
	return &MediaHandler{ingest: ingest, timeline: timeline, blobs: blobs, opts: opts}
}

// HandleTimeline returns all media grouped by year, newest year first.
// GET /api/timeline
func (h *MediaHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	groups, err := h.timeline.Build(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to fetch timeline")
		return
	}
	writeJSON(w, http.StatusOK, toTimelineDTO(groups, h.blobs.URL))
}

// HandleMediaByYear returns the media of one year, newest first.
// GET /api/media/{year}
func (h *MediaHandler) HandleMediaByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year parameter")
		return
	}

	media, err := h.timeline.ForYear(r.Context(), year)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to fetch media")
		return
	}
	writeJSON(w, http.StatusOK, toMediaDTOs(media, h.blobs.URL))
}

// HandleUpload stores a multipart batch of files under one year.
// POST /api/upload
func (h *MediaHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.decodeUpload(w, r)
	defer cleanup()
	if err != nil {
		slog.Debug("upload rejected", "error", err)
		writeError(w, http.StatusBadRequest, errorMessage(err))
		return
	}

	slog.Debug("upload received", "year", req.Year, "files", len(req.Files))

	manifest, err := h.ingest.Ingest(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to save upload")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponseDTO{
		Success: true,
		Media:   toMediaDTOs(manifest.Media, h.blobs.URL),
		Count:   manifest.Count,
	})
}

// HandleServeFile streams stored bytes with a content type derived from
// the stored name. Range requests are honored, which video players need.
// GET /uploads/{filename}
func (h *MediaHandler) HandleServeFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("filename")

	data, err := h.blobs.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		slog.Error("serve upload", "key", key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Stored names are never reused, so the bytes behind a URL never change.
	w.Header().Set("Content-Type", blob.ContentTypeFor(key))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(data))
}

// decodeUpload parses the multipart body into an UploadRequest. It fails
// closed: a missing or malformed year and an empty file list are errors.
// The returned cleanup must always be called.
func (h *MediaHandler) decodeUpload(w http.ResponseWriter, r *http.Request) (service.UploadRequest, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxRequestSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.UploadRequest{}, cleanup,
				fmt.Errorf("%w: request body exceeds %d bytes (each file may be up to %d bytes)",
					domain.ErrFileTooLarge, h.opts.MaxRequestSize, h.blobs.MaxFileSize())
		}
		return service.UploadRequest{}, cleanup,
			fmt.Errorf("%w: expected a multipart/form-data body", domain.ErrInvalidInput)
	}

	year, err := parseYearField(r.MultipartForm)
	if err != nil {
		return service.UploadRequest{}, cleanup, err
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return service.UploadRequest{}, cleanup, fmt.Errorf("%w: no files were uploaded", domain.ErrInvalidInput)
	}

	req := service.UploadRequest{Year: year, Files: make([]domain.Upload, 0, len(headers))}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return service.UploadRequest{}, cleanup,
				&domain.FileError{Filename: fh.Filename, Err: fmt.Errorf("%w: unreadable file part", domain.ErrInvalidInput)}
		}
		closers = append(closers, f)
		req.Files = append(req.Files, domain.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return req, cleanup, nil
}

func parseYearField(form *multipart.Form) (int, error) {
	values := form.Value["year"]
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return 0, fmt.Errorf("%w: year is required", domain.ErrInvalidInput)
	}
	year, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: year must be an integer", domain.ErrInvalidInput)
	}
	if year == 0 {
		return 0, fmt.Errorf("%w: year is required", domain.ErrInvalidInput)
	}
	return year, nil
}

// writeServiceError maps a service error to an HTTP response. Client input
// errors become 400; everything else is a 500 whose internal detail is only
// exposed when configured.
func (h *MediaHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if domain.IsValidation(err) {
		writeError(w, http.StatusBadRequest, errorMessage(err))
		return
	}

	if errors.Is(err, domain.ErrNotConfigured) {
		slog.Error("deployment misconfigured", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Error(strings.ToLower(message), "method", r.Method, "path", r.URL.Path, "error", err)
	}

	resp := errorResponse{Error: message}
	if h.opts.ExposeErrorDetails {
		resp.Details = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// errorMessage flattens joined errors onto one line.
func errorMessage(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
