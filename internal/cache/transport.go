package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// cachedResponse is the on-disk form of one cached GET response.
type cachedResponse struct {
	URL    string      `json:"url"`
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// RoundTrip implements http.RoundTripper. GET requests are served from the
// network while online (recording successful responses) and from the active
// cache generation while offline or when the transport fails. Non-GET
// requests always pass through untouched.
func (l *Layer) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return l.base.RoundTrip(req)
	}

	if !l.online.IsOnline() {
		resp, err := l.loadResponse(req)
		if err != nil {
			return nil, fmt.Errorf("offline and %w: %s", errCacheMiss, req.URL)
		}
		l.logger.Debug("served from cache while offline", "url", req.URL.String())
		return resp, nil
	}

	resp, err := l.base.RoundTrip(req)
	if err != nil {
		// The interface said online but the fetch failed; fall back to the
		// cache before surfacing the error.
		if cached, cacheErr := l.loadResponse(req); cacheErr == nil {
			l.logger.Debug("network fetch failed, served from cache",
				"url", req.URL.String(), "error", err)
			return cached, nil
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		if err := l.storeAndRestoreBody(req, resp); err != nil {
			l.logger.Warn("failed to cache response", "url", req.URL.String(), "error", err)
		}
	}
	return resp, nil
}

// storeAndRestoreBody caches the response body and replaces the consumed
// reader so the caller still gets the full payload.
func (l *Layer) storeAndRestoreBody(req *http.Request, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return err
	}

	l.mu.Lock()
	version := l.activeVersion
	state := l.state
	l.mu.Unlock()
	if state != StateActivated {
		return nil
	}

	restore := *resp
	restore.Body = io.NopCloser(bytes.NewReader(body))
	return l.storeResponse(version, req, &restore)
}

// storeResponse writes a response into the given cache generation.
func (l *Layer) storeResponse(version string, req *http.Request, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	entry := cachedResponse{
		URL:    req.URL.String(),
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := l.entryPath(version, req.URL.String())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// loadResponse reads a response from the active cache generation.
func (l *Layer) loadResponse(req *http.Request) (*http.Response, error) {
	l.mu.Lock()
	version := l.activeVersion
	l.mu.Unlock()
	if version == "" {
		return nil, errCacheMiss
	}

	data, err := os.ReadFile(l.entryPath(version, req.URL.String()))
	if err != nil {
		return nil, errCacheMiss
	}

	var entry cachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}

	return &http.Response{
		StatusCode:    entry.Status,
		Status:        http.StatusText(entry.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        entry.Header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}, nil
}

// entryPath derives the cache file for a URL within a generation.
func (l *Layer) entryPath(version, url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(l.versionDir(version), hex.EncodeToString(sum[:])+".json")
}
