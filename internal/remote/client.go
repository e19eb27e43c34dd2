// Package remote is the client for the remote learning API: it applies
// pending actions and fetches lesson content for preload. The apply
// endpoint must tolerate at-least-once delivery, since unacknowledged
// actions are resent verbatim on retry.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phrazzld/lingosync/internal/domain"
)

// ErrRemoteApplyFailed is returned when the remote system rejects or cannot
// receive an action. It is transient: the orchestrator retries on the next
// trigger.
var ErrRemoteApplyFailed = errors.New("remote apply failed")

// deviceTokenLifetime bounds how long a minted token stays valid. Tokens
// are cheap to mint, so each request gets a fresh one.
const deviceTokenLifetime = 5 * time.Minute

// Client talks to the remote learning API over HTTP.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSecret []byte
	deviceID    string
	timeout     time.Duration
	logger      *slog.Logger
}

// Config carries the settings a Client needs.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// Timeout bounds each call. A hung call is cut off at the deadline and
	// treated as a retryable failure.
	Timeout time.Duration

	// TokenSecret signs device tokens.
	TokenSecret string

	// DeviceID identifies this installation.
	DeviceID string

	// HTTPClient optionally overrides the transport, letting the caching
	// layer intercept content fetches. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		tokenSecret: []byte(cfg.TokenSecret),
		deviceID:    cfg.DeviceID,
		timeout:     cfg.Timeout,
		logger:      logger.With("component", "remote_client"),
	}
}

// applyRequest is the wire form of one pending action.
type applyRequest struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// ApplyAction presents one pending action to the remote apply endpoint.
// Any transport error, timeout, or non-2xx status maps to
// ErrRemoteApplyFailed with the underlying cause attached.
func (c *Client) ApplyAction(ctx context.Context, action *domain.PendingAction) error {
	body, err := json.Marshal(applyRequest{
		Type:      string(action.Type),
		Payload:   action.Payload,
		Timestamp: action.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("%w: encode action: %v", ErrRemoteApplyFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/actions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrRemoteApplyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteApplyFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteApplyFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRemoteApplyFailed, resp.StatusCode)
	}

	c.logger.Debug("action applied remotely",
		"action_id", action.ID,
		"action_type", action.Type)
	return nil
}

// LessonContent is the remote representation of a lesson with its media
// manifest, as served by the content endpoint.
type LessonContent struct {
	ID      string          `json:"id"`
	Level   string          `json:"level"`
	Tags    []string        `json:"tags"`
	Content json.RawMessage `json:"content"`
	Media   []LessonMedia   `json:"media"`
}

// LessonMedia locates one downloadable asset of a lesson.
type LessonMedia struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// FetchLesson downloads a lesson's full content and media manifest.
func (c *Client) FetchLesson(ctx context.Context, lessonID string) (*LessonContent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/lessons/"+lessonID, nil)
	if err != nil {
		return nil, fmt.Errorf("build lesson request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch lesson %s: %w", lessonID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch lesson %s: status %d", lessonID, resp.StatusCode)
	}

	var lesson LessonContent
	if err := json.NewDecoder(resp.Body).Decode(&lesson); err != nil {
		return nil, fmt.Errorf("decode lesson %s: %w", lessonID, err)
	}
	return &lesson, nil
}

// FetchMedia downloads one media asset's bytes.
func (c *Client) FetchMedia(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// authorize mints a fresh device token and attaches it as a bearer token.
func (c *Client) authorize(req *http.Request) error {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   c.deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(deviceTokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.tokenSecret)
	if err != nil {
		return fmt.Errorf("sign device token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}
