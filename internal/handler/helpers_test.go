package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/msomdec/gohans-journey/internal/blob"
	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/handler"
	"github.com/msomdec/gohans-journey/internal/repository/memory"
	"github.com/msomdec/gohans-journey/internal/service"
)

type testServer struct {
	*httptest.Server
	repo  domain.MediaRepository
	store *blob.DiskStore
}

type serverConfig struct {
	repo     domain.MediaRepository
	sinkOpts []blob.Option
	opts     handler.Options
}

func newTestServer(t *testing.T, cfg serverConfig) *testServer {
	t.Helper()
	if cfg.repo == nil {
		cfg.repo = memory.NewMediaRepo()
	}
	store, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	sink := blob.NewSink(store, cfg.sinkOpts...)

	media := handler.NewMediaHandler(
		service.NewIngestService(cfg.repo, sink),
		service.NewTimelineService(cfg.repo),
		sink,
		cfg.opts,
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, media)

	srv := httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, repo: cfg.repo, store: store}
}

type part struct {
	name        string
	contentType string
	data        []byte
}

// multipartBody encodes year (omitted when empty) and files as a
// multipart/form-data body.
func multipartBody(t *testing.T, year string, files ...part) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if year != "" {
		if err := mw.WriteField("year", year); err != nil {
			t.Fatalf("write year: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.name))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, year string, files ...part) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, year, files...)
	resp, err := http.Post(s.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatalf("POST /api/upload: %v", err)
	}
	return resp
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

// brokenRepo fails every read.
type brokenRepo struct {
	domain.MediaRepository
}

func (brokenRepo) Years(context.Context) ([]int, error) {
	return nil, errors.New("database is locked")
}

func (brokenRepo) ListByYear(context.Context, int) ([]domain.Media, error) {
	return nil, errors.New("database is locked")
}

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\nfake-png")
	jpegBytes = []byte("\xff\xd8\xff\xe0fake-jpeg")
	mp4Bytes  = []byte("\x00\x00\x00\x18ftypmp42fake-mp4")
)
