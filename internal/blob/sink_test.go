package blob_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/gohans-journey/internal/blob"
	"github.com/msomdec/gohans-journey/internal/domain"
)

// mapStore is an in-memory domain.FileStore that counts writes.
type mapStore struct {
	mu    sync.Mutex
	files map[string][]byte
	saves int
}

func newMapStore() *mapStore { return &mapStore{files: make(map[string][]byte)} }

func (m *mapStore) Save(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if _, ok := m.files[key]; ok {
		return fmt.Errorf("duplicate key %s", key)
	}
	m.files[key] = bytes.Clone(data)
	return nil
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func upload(name, contentType string, data []byte) domain.Upload {
	return domain.Upload{Filename: name, ContentType: contentType, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        bool
	}{
		{"photo.jpg", "image/jpeg", true},
		{"photo.JPEG", "application/octet-stream", true},
		{"clip.mov", "video/quicktime", true},
		{"clip.webm", "", true},
		{"anim.gif", "image/gif", true},
		{"noext", "image/png", true},
		{"renamed.txt", "video/mp4", true},
		{"movie.avi", "video/x-msvideo", true},
		{"type.bin", "image/jpeg; charset=binary", true},
		{"notes.txt", "text/plain", false},
		{"script.sh", "application/x-sh", false},
		{"vector.svg", "image/svg+xml", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.contentType, func(t *testing.T) {
			if got := blob.Allowed(tt.filename, tt.contentType); got != tt.want {
				t.Fatalf("Allowed(%q, %q) = %v, want %v", tt.filename, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestGenerateName(t *testing.T) {
	now := time.Date(2023, 7, 1, 0, 0, 0, 42, time.UTC)
	pattern := regexp.MustCompile(`^\d+-[0-9a-f]{12}\.jpg$`)

	name, err := blob.GenerateName("Holiday.JPG", "image/jpeg", now)
	if err != nil {
		t.Fatalf("GenerateName: %v", err)
	}
	if !pattern.MatchString(name) {
		t.Fatalf("unexpected name %q", name)
	}
	if !strings.HasPrefix(name, fmt.Sprintf("%d-", now.UnixNano())) {
		t.Fatalf("expected name to start with the timestamp, got %q", name)
	}

	name, err = blob.GenerateName("clip", "video/quicktime", now)
	if err != nil {
		t.Fatalf("GenerateName: %v", err)
	}
	if !strings.HasSuffix(name, ".mov") {
		t.Fatalf("expected extension from content type, got %q", name)
	}
}

func TestGenerateName_SameInstantNoCollision(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for range 1000 {
		name, err := blob.GenerateName("same.png", "image/png", now)
		if err != nil {
			t.Fatalf("GenerateName: %v", err)
		}
		if seen[name] {
			t.Fatalf("collision on %q", name)
		}
		seen[name] = true
	}
}

func TestSink_WriteStoresBytes(t *testing.T) {
	store := newMapStore()
	sink := blob.NewSink(store)
	ctx := context.Background()

	data := []byte("jpeg bytes")
	stored, err := sink.Write(ctx, upload("a.jpg", "image/jpeg", data))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if stored.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), stored.Size)
	}
	key := stored.Key

	got, err := sink.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("expected %q, got %q", data, got)
	}
	if u := sink.URL(key); u != "/uploads/"+key {
		t.Fatalf("unexpected URL %q", u)
	}

	if err := sink.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := sink.Read(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSink_RejectsUnsupportedType(t *testing.T) {
	store := newMapStore()
	sink := blob.NewSink(store)

	_, err := sink.Write(context.Background(), upload("notes.txt", "text/plain", []byte("hello")))
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatal("type error must be distinguishable from size error")
	}
	var fe *domain.FileError
	if !errors.As(err, &fe) || fe.Filename != "notes.txt" {
		t.Fatalf("expected FileError naming notes.txt, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no writes, got %d", store.saves)
	}
}

func TestSink_RejectsOversizedDeclaredSize(t *testing.T) {
	store := newMapStore()
	sink := blob.NewSink(store, blob.WithMaxFileSize(8))

	u := upload("big.png", "image/png", []byte("0123456789"))
	if err := sink.Validate(u); !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge from Validate, got %v", err)
	}
	if _, err := sink.Write(context.Background(), u); !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge from Write, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no writes, got %d", store.saves)
	}
}

func TestSink_RejectsOversizedBodyWithUnderstatedSize(t *testing.T) {
	store := newMapStore()
	sink := blob.NewSink(store, blob.WithMaxFileSize(8))

	u := domain.Upload{
		Filename:    "liar.mp4",
		ContentType: "video/mp4",
		Size:        4,
		Body:        strings.NewReader("this body is far longer than eight bytes"),
	}
	if _, err := sink.Write(context.Background(), u); !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no writes, got %d", store.saves)
	}
}

func TestSink_AcceptsFileAtExactLimit(t *testing.T) {
	store := newMapStore()
	sink := blob.NewSink(store, blob.WithMaxFileSize(8))

	if _, err := sink.Write(context.Background(), upload("ok.gif", "image/gif", []byte("12345678"))); err != nil {
		t.Fatalf("Write at exact limit: %v", err)
	}
}

func TestSink_ConcurrentSameNameUploads(t *testing.T) {
	store := newMapStore()
	sink := blob.NewSink(store, blob.WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	ctx := context.Background()

	const n = 50
	keys := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := sink.Write(ctx, upload("IMG_0001.jpg", "image/jpeg", []byte{byte(i)}))
			if err != nil {
				t.Errorf("Write: %v", err)
				return
			}
			keys[i] = stored.Key
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"1-abc.jpg":  "image/jpeg",
		"1-abc.MOV":  "video/quicktime",
		"1-abc.webm": "video/webm",
		"1-abc.avi":  "video/x-msvideo",
		"1-abc":      "application/octet-stream",
	}
	for key, want := range tests {
		if got := blob.ContentTypeFor(key); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", key, got, want)
		}
	}
}
