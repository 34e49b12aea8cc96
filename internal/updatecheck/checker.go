// Package updatecheck asks the release endpoint whether a newer daemon
// release exists, using an ETag so unchanged answers cost one 304.
package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"feishu-tray/internal/logging"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Result is one check outcome.
type Result struct {
	NotModified    bool   `json:"not_modified" yaml:"not_modified"`
	ETag           string `json:"etag" yaml:"etag"`
	HasUpdate      bool   `json:"has_update" yaml:"has_update"`
	CurrentVersion string `json:"current_version" yaml:"current_version"`
	LatestVersion  string `json:"latest_version" yaml:"latest_version"`
	ReleaseURL     string `json:"release_url" yaml:"release_url"`
	ReleaseNotes   string `json:"release_notes" yaml:"release_notes"`
	// KnownUpdate is set by the state store on a 304 when the last full
	// release is newer than the current version. Check never sets it.
	KnownUpdate bool `json:"known_update,omitempty" yaml:"known_update,omitempty"`
}

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
}

// Checker performs conditional release lookups.
type Checker struct {
	url       string
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// New returns a checker for url. A non-positive timeout uses DefaultTimeout.
func New(url string, timeout time.Duration, userAgent string, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "feishu-tray"
	}
	return &Checker{
		url:       url,
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logging.NewComponentLogger(logger, "updatecheck"),
	}
}

// Check issues one GET. cachedETag, when non-empty, is sent as If-None-Match
// and echoed back on 304.
func (c *Checker) Check(ctx context.Context, currentVersion, cachedETag string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if etag := strings.TrimSpace(cachedETag); etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("update check request: %w", err)
	}
	defer resp.Body.Close()

	result := Result{CurrentVersion: currentVersion}
	if resp.StatusCode == http.StatusNotModified {
		result.NotModified = true
		result.ETag = cachedETag
		c.logger.Debug("release unchanged", logging.String(logging.FieldEventType, "update_not_modified"))
		return result, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("update check: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var rel release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rel); err != nil {
		return Result{}, fmt.Errorf("decode release: %w", err)
	}

	result.ETag = resp.Header.Get("ETag")
	result.LatestVersion = rel.TagName
	result.ReleaseURL = rel.HTMLURL
	result.ReleaseNotes = rel.Body
	result.HasUpdate = Greater(rel.TagName, currentVersion)

	c.logger.Info("release checked",
		logging.String("current", currentVersion),
		logging.String("latest", rel.TagName),
		logging.Bool("has_update", result.HasUpdate),
		logging.String(logging.FieldEventType, "update_checked"),
	)
	return result, nil
}
