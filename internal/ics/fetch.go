// Package ics imports read-only external calendar subscriptions and
// exports the merged view as an ICS feed. Imported occurrences become
// non-editable instances; they never touch the record store.
package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"obbycal/internal/config"
	appLog "obbycal/internal/log"
)

// cacheMeta holds the conditional-request state for one subscription URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher downloads subscription feeds with a disk-backed HTTP cache.
// ETag and Last-Modified are honored, and on network failure the last
// cached body is served so a refresh cycle degrades instead of failing.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch returns the feed body for one subscription, from the network or
// the cache. fromCache reports whether a cached body was served.
func (f *Fetcher) Fetch(ctx context.Context, sub config.ICSConfig) (body []byte, fromCache bool, err error) {
	if sub.URL == "" {
		return nil, false, errors.New("subscription URL is empty")
	}

	dir := f.cacheDirFor(sub.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, false, err
	}
	meta, _ := readCacheMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.URL, nil)
	if err != nil {
		return nil, false, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Warn("subscription fetch failed, serving cache", "id", sub.ID, "host", hostOf(sub.URL), "error", err)
			return cached, true, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		fresh, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, err
		}
		newMeta := cacheMeta{
			URL:          sub.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now().UTC(),
		}
		if err := writeCache(dir, newMeta, fresh); err != nil {
			appLog.Error("subscription cache write failed", err, "id", sub.ID)
		}
		return fresh, false, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, false, errors.New("304 with no cached body")
		}
		return cached, true, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("subscription returned non-OK, serving cache", "id", sub.ID, "status", resp.StatusCode)
			return cached, true, nil
		}
		return nil, false, errors.New(resp.Status)
	}
}

func (f *Fetcher) cacheDirFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func readCacheMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeCache(dir string, meta cacheMeta, body []byte) error {
	// Body first so meta never refers to a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// hostOf trims a URL down to its host for logging, keeping tokens in
// paths and query strings out of the log.
func hostOf(u string) string {
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "(invalid url)"
	}
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[i:j]
}
