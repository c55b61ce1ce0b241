package crawler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// imageServer serves fixed bytes for every path except /missing.
func imageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownloader(t *testing.T) {
	t.Parallel()

	t.Run("saves image under its basename", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, "PNGDATA")
		dir := filepath.Join(t.TempDir(), "nested", "out")
		var out bytes.Buffer

		d := NewDownloader(server.Client(), WithDownloadOutput(&out))
		o := d.Download(context.Background(), mustURL(t, server.URL+"/img/pic.png"), dir)

		if !o.Success {
			t.Fatalf("expected success, got %v", o.Err)
		}
		want := filepath.Join(dir, "pic.png")
		if o.Path != want {
			t.Errorf("expected path %q, got %q", want, o.Path)
		}
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(data) != "PNGDATA" {
			t.Errorf("unexpected content %q", data)
		}
		if o.Bytes != int64(len("PNGDATA")) {
			t.Errorf("expected %d bytes, got %d", len("PNGDATA"), o.Bytes)
		}
		if !strings.HasPrefix(out.String(), "Saved "+server.URL+"/img/pic.png -> ") {
			t.Errorf("unexpected console line %q", out.String())
		}
	})

	t.Run("non-200 writes no file", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, "PNGDATA")
		dir := t.TempDir()
		var out bytes.Buffer

		o := NewDownloader(server.Client(), WithDownloadOutput(&out)).
			Download(context.Background(), mustURL(t, server.URL+"/missing.png"), dir)

		if o.Success {
			t.Fatal("expected failure")
		}
		if !errors.Is(o.Err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", o.Err)
		}
		if o.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", o.StatusCode)
		}
		if _, err := os.Stat(filepath.Join(dir, "missing.png")); !os.IsNotExist(err) {
			t.Errorf("expected no file, stat returned %v", err)
		}
		if !strings.HasPrefix(out.String(), "Failed "+server.URL+"/missing.png: ") {
			t.Errorf("unexpected console line %q", out.String())
		}
	})

	t.Run("existing file is overwritten", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, "NEW")
		dir := t.TempDir()
		path := filepath.Join(dir, "pic.png")
		if err := os.WriteFile(path, []byte("OLD CONTENT"), 0o600); err != nil {
			t.Fatal(err)
		}

		o := NewDownloader(server.Client()).Download(context.Background(), mustURL(t, server.URL+"/pic.png"), dir)
		if !o.Success {
			t.Fatalf("expected success, got %v", o.Err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "NEW" {
			t.Errorf("expected overwritten content, got %q", data)
		}
	})

	t.Run("empty basename uses deterministic fallback", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, "DATA")
		dir := t.TempDir()
		d := NewDownloader(server.Client())

		first := d.Download(context.Background(), mustURL(t, server.URL+"/img/"), dir)
		second := d.Download(context.Background(), mustURL(t, server.URL+"/img/"), dir)

		if !first.Success || !second.Success {
			t.Fatalf("expected success, got %v / %v", first.Err, second.Err)
		}
		if first.Path != second.Path {
			t.Errorf("expected same fallback path, got %q and %q", first.Path, second.Path)
		}
		name := filepath.Base(first.Path)
		if !strings.HasPrefix(name, "image_") || !strings.HasSuffix(name, ".jpg") {
			t.Errorf("unexpected fallback name %q", name)
		}
	})

	t.Run("cancelled crawl context does not cancel the download", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, "DATA")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		o := NewDownloader(server.Client()).Download(ctx, mustURL(t, server.URL+"/late.gif"), t.TempDir())
		if !o.Success {
			t.Errorf("expected success on detached context, got %v", o.Err)
		}
	})

	t.Run("download timeout applies", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(release)
			server.Close()
		})

		o := NewDownloader(server.Client(), WithDownloadTimeout(50*time.Millisecond)).
			Download(context.Background(), mustURL(t, server.URL+"/slow.png"), t.TempDir())
		if o.Success {
			t.Error("expected timeout failure")
		}
	})

	t.Run("oversized image fails", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, strings.Repeat("x", 64))
		dir := t.TempDir()

		o := NewDownloader(server.Client(), WithMaxImageSize(16)).
			Download(context.Background(), mustURL(t, server.URL+"/big.png"), dir)
		if !errors.Is(o.Err, ErrImageTooLarge) {
			t.Errorf("expected ErrImageTooLarge, got %v", o.Err)
		}
		if _, err := os.Stat(filepath.Join(dir, "big.png")); !os.IsNotExist(err) {
			t.Error("expected no file for oversized image")
		}
	})

	t.Run("jpeg without EXIF has no metadata", func(t *testing.T) {
		t.Parallel()

		server := imageServer(t, "\xff\xd8\xff\xd9")
		o := NewDownloader(server.Client()).Download(context.Background(), mustURL(t, server.URL+"/photo.jpg"), t.TempDir())
		if !o.Success {
			t.Fatalf("expected success, got %v", o.Err)
		}
		if o.Metadata != nil {
			t.Errorf("expected no metadata, got %+v", o.Metadata)
		}
	})

	t.Run("nil URL fails", func(t *testing.T) {
		t.Parallel()

		o := NewDownloader(http.DefaultClient).Download(context.Background(), nil, t.TempDir())
		if !errors.Is(o.Err, ErrNilURL) {
			t.Errorf("expected ErrNilURL, got %v", o.Err)
		}
	})
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"http://a.com/img/pic.png", "pic.png"},
		{"http://a.com/pic.PNG?v=2", "pic.PNG"},
		{"http://a.com/a/b/c/deep.gif#frag", "deep.gif"},
		{"http://a.com/space%20name.jpg", "space name.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			if got := FileName(mustURL(t, tt.raw)); got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}

	t.Run("fallback for empty basename", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"http://a.com/img/", "http://a.com", "http://a.com/img/.."} {
			name := FileName(mustURL(t, raw))
			if !strings.HasPrefix(name, "image_") || !strings.HasSuffix(name, ".jpg") {
				t.Errorf("FileName(%q) = %q, expected fallback name", raw, name)
			}
			if len(name) != len("image_")+16+len(".jpg") {
				t.Errorf("FileName(%q) = %q, expected 16 hex digits", raw, name)
			}
		}
	})

	t.Run("fallback is stable and distinct", func(t *testing.T) {
		t.Parallel()

		a1 := FileName(mustURL(t, "http://a.com/x/"))
		a2 := FileName(mustURL(t, "http://a.com/x/"))
		b := FileName(mustURL(t, "http://a.com/y/"))

		if a1 != a2 {
			t.Errorf("expected stable name, got %q and %q", a1, a2)
		}
		if a1 == b {
			t.Errorf("expected distinct names for distinct URLs, got %q", a1)
		}
	})
}
