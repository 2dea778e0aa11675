package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"finpipe/internal/common/fsutil"
)

// DefaultHubURL is the model hub the downloader pulls snapshots from.
const DefaultHubURL = "https://huggingface.co"

// Downloader fetches model weight snapshots into a local cache keyed by
// the sanitized model name. The download runs once per cache directory;
// a populated cache short-circuits without any network call.
type Downloader struct {
	BaseURL  string
	CacheDir string
	Client   *http.Client
	Progress bool
}

// NewDownloader builds a Downloader with sane defaults. The download of
// 70B-class weights can run for minutes, so no overall client timeout is
// set; cancellation comes from the caller's context.
func NewDownloader(baseURL, cacheDir string) *Downloader {
	if baseURL == "" {
		baseURL = DefaultHubURL
	}
	return &Downloader{
		BaseURL:  baseURL,
		CacheDir: cacheDir,
		Client:   &http.Client{},
		Progress: true,
	}
}

// CachePath returns the snapshot directory for modelID.
func (d *Downloader) CachePath(modelID string) string {
	return filepath.Join(d.CacheDir, CacheKey(modelID))
}

// Cached reports whether modelID already has a populated snapshot. Pure
// function of the sanitized model name and the filesystem.
func (d *Downloader) Cached(modelID string) bool {
	return fsutil.DirHasFiles(d.CachePath(modelID))
}

// snapshotIndex is the hub's model metadata; only the file list matters.
type snapshotIndex struct {
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// Ensure downloads the snapshot for modelID unless it is already cached.
// Any failure leaves no partial cache directory behind, so a retry (or
// the next container start) sees a clean miss. Failures are fatal to the
// caller: the bootstrapper fails fast rather than serving without weights.
func (d *Downloader) Ensure(ctx context.Context, modelID string) error {
	if d.Cached(modelID) {
		return nil
	}
	dest := d.CachePath(modelID)
	tmp := dest + ".partial"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clean partial snapshot: %w", err)
	}
	if err := fsutil.EnsureDir(tmp); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	idx, err := d.fetchIndex(ctx, modelID)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if len(idx.Siblings) == 0 {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("model %s: hub lists no files", modelID)
	}
	for _, f := range idx.Siblings {
		if err := d.fetchFile(ctx, modelID, f.RFilename, tmp); err != nil {
			_ = os.RemoveAll(tmp)
			return err
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (d *Downloader) fetchIndex(ctx context.Context, modelID string) (snapshotIndex, error) {
	var idx snapshotIndex
	url := fmt.Sprintf("%s/api/models/%s", d.BaseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return idx, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return idx, fmt.Errorf("model index %s: %w", modelID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return idx, fmt.Errorf("model index %s: %s", modelID, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return idx, fmt.Errorf("model index %s: %w", modelID, err)
	}
	return idx, nil
}

func (d *Downloader) fetchFile(ctx context.Context, modelID, name, destDir string) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", d.BaseURL, modelID, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", name, resp.Status)
	}

	path := filepath.Join(destDir, filepath.FromSlash(name))
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	var src io.Reader = resp.Body
	if d.Progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, name)
		src = io.TeeReader(resp.Body, bar)
	}
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	return nil
}

// WaitHealthy polls the server's /health endpoint until it answers 200 or
// the deadline passes. Mirrors the health gate the instance manager
// applies before handing an API URL to the pipeline.
func WaitHealthy(ctx context.Context, baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not healthy within %s", baseURL, timeout)
		case <-ticker.C:
		}
	}
}
