package updatestate

import (
	"context"
	"fmt"
	"time"

	"feishu-tray/internal/updatecheck"
)

// historyLimit bounds how many checks are kept.
const historyLimit = 50

// Checker is the remote half of a stored check.
type Checker interface {
	Check(ctx context.Context, currentVersion, cachedETag string) (updatecheck.Result, error)
}

// CheckAndRecord runs a check with the stored ETag, records the outcome and,
// on 304, fills the release fields from the last full answer. HasUpdate stays
// as the checker reported it; KnownUpdate carries the stored comparison.
func CheckAndRecord(ctx context.Context, store *Store, checker Checker, currentVersion string, now time.Time) (updatecheck.Result, error) {
	var etag string
	last, ok, err := store.LatestRelease(ctx)
	if err != nil {
		return updatecheck.Result{}, err
	}
	// A stored etag is only valid for the version it was compared against.
	if ok && last.CurrentVersion == currentVersion {
		etag = last.ETag
	}

	result, err := checker.Check(ctx, currentVersion, etag)
	if err != nil {
		return updatecheck.Result{}, err
	}
	if result.NotModified && ok {
		result.LatestVersion = last.LatestVersion
		result.ReleaseURL = last.ReleaseURL
		result.ReleaseNotes = last.ReleaseNotes
		result.KnownUpdate = updatecheck.Greater(last.LatestVersion, currentVersion)
	}

	if err := store.Record(ctx, result, now); err != nil {
		return result, fmt.Errorf("record update check: %w", err)
	}
	if _, err := store.Prune(ctx, historyLimit); err != nil {
		return result, err
	}
	return result, nil
}
