package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Resource is one fetched, not-yet-parsed configuration resource.
type Resource struct {
	ID      string // canonical resource id: absolute path or URL
	Format  Format
	Content []byte
}

// Fetcher loads raw resource bytes by reference, which may be a filesystem
// path or an http(s) URL (spec.md §4.1 "Source reading").
type Fetcher struct {
	HTTPClient *http.Client
	BaseDir    string // resolves relative file references
}

// NewFetcher returns a Fetcher with a default 10s HTTP client, matching the
// teacher's conservative upstream timeout defaults (internal/grpctp).
func NewFetcher(baseDir string) *Fetcher {
	return &Fetcher{HTTPClient: &http.Client{Timeout: 10 * time.Second}, BaseDir: baseDir}
}

// Canonicalize resolves a reference to a stable resource id used for @link
// cycle detection and dedup: absolute file paths, or URLs verbatim.
func (f *Fetcher) Canonicalize(ref string) (string, error) {
	if isURL(ref) {
		return ref, nil
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}
	return filepath.Clean(filepath.Join(f.BaseDir, ref)), nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Fetch retrieves a single resource's bytes by its canonical id.
func (f *Fetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if isURL(id) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
		if err != nil {
			return nil, fmt.Errorf("build request for %q: %w", id, err)
		}
		resp, err := f.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %q: %w", id, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("fetch %q: status %d", id, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body for %q: %w", id, err)
		}
		return body, nil
	}
	content, err := os.ReadFile(id)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", id, err)
	}
	return content, nil
}

// FetchAll retrieves many resources concurrently, writing results in-place by
// index (the teacher's grpcrt.Runtime.BatchResolveAsync fan-out idiom:
// sync.WaitGroup over a fixed-size result slice, no per-item channel).
func (f *Fetcher) FetchAll(ctx context.Context, ids []string) ([]Resource, error) {
	out := make([]Resource, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for i, id := range ids {
		i, id := i, id
		go func() {
			defer wg.Done()
			content, err := f.Fetch(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = Resource{ID: id, Format: Detect(id, content), Content: content}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
