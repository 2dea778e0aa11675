package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func newHubStub(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		_, _ = w.Write([]byte(`{"siblings":[{"rfilename":"config.json"},{"rfilename":"model.safetensors"}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		_, _ = w.Write([]byte("weights"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDownloader(t *testing.T, baseURL string) *Downloader {
	d := NewDownloader(baseURL, t.TempDir())
	d.Progress = false
	return d
}

func TestEnsureDownloadsSnapshot(t *testing.T) {
	var hits int64
	srv := newHubStub(t, &hits)
	d := newTestDownloader(t, srv.URL)

	const model = "acme/tiny-model"
	if d.Cached(model) {
		t.Fatal("fresh cache should miss")
	}
	if err := d.Ensure(context.Background(), model); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, f := range []string{"config.json", "model.safetensors"} {
		if _, err := os.Stat(filepath.Join(d.CachePath(model), f)); err != nil {
			t.Errorf("snapshot missing %s: %v", f, err)
		}
	}
	if !d.Cached(model) {
		t.Error("cache should hit after Ensure")
	}
}

func TestEnsureCacheHitSkipsNetwork(t *testing.T) {
	var hits int64
	srv := newHubStub(t, &hits)
	d := newTestDownloader(t, srv.URL)

	const model = "acme/tiny-model"
	if err := d.Ensure(context.Background(), model); err != nil {
		t.Fatal(err)
	}
	before := atomic.LoadInt64(&hits)
	if err := d.Ensure(context.Background(), model); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if after := atomic.LoadInt64(&hits); after != before {
		t.Errorf("cache hit made %d network calls", after-before)
	}
}

func TestEnsureFailureLeavesNoPartialCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"siblings":[{"rfilename":"config.json"}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)
	const model = "acme/broken-model"
	if err := d.Ensure(context.Background(), model); err == nil {
		t.Fatal("expected download failure")
	}
	if d.Cached(model) {
		t.Error("failed download must not populate the cache")
	}
	if _, err := os.Stat(d.CachePath(model) + ".partial"); !os.IsNotExist(err) {
		t.Error("partial snapshot left behind")
	}
}

func TestEnsureIndexErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	d := newTestDownloader(t, srv.URL)
	if err := d.Ensure(context.Background(), "acme/no-such-model"); err == nil {
		t.Fatal("expected error from 404 index")
	}
}
