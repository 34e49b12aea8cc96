package updatecheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feishu-tray/internal/updatecheck"
)

func TestCheckNotModifiedEchoesETag(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("If-None-Match")
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	result, err := updatecheck.New(srv.URL, time.Second, "", nil).Check(context.Background(), "1.2.0", `W/"abc"`)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if gotHeader != `W/"abc"` {
		t.Fatalf("expected If-None-Match to carry etag, got %q", gotHeader)
	}
	if !result.NotModified || result.HasUpdate || result.ETag != `W/"abc"` {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckNewerRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			t.Errorf("expected no If-None-Match without cached etag")
		}
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "feishu-tray/1.2.0" {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("ETag", `"v2"`)
		_, _ = w.Write([]byte(`{"tag_name":"v1.3.0-beta","html_url":"https://example.com/r/1.3.0","body":"Fixes"}`))
	}))
	defer srv.Close()

	result, err := updatecheck.New(srv.URL, time.Second, "feishu-tray/1.2.0", nil).Check(context.Background(), "1.2.0", "")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !result.HasUpdate || result.NotModified {
		t.Fatalf("expected update, got %+v", result)
	}
	if result.LatestVersion != "v1.3.0-beta" {
		t.Fatalf("expected original tag preserved, got %q", result.LatestVersion)
	}
	if result.ReleaseURL != "https://example.com/r/1.3.0" || result.ReleaseNotes != "Fixes" {
		t.Fatalf("unexpected release fields: %+v", result)
	}
	if result.ETag != `"v2"` || result.CurrentVersion != "1.2.0" {
		t.Fatalf("unexpected etag or current version: %+v", result)
	}
}

func TestCheckSameRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v1.2.0","html_url":"u","body":""}`))
	}))
	defer srv.Close()

	result, err := updatecheck.New(srv.URL, time.Second, "", nil).Check(context.Background(), "1.2.0", "")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if result.HasUpdate {
		t.Fatalf("expected no update, got %+v", result)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "rate limit exceeded", http.StatusForbidden) },
			want:    "403",
		},
		{
			name:    "bad body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) },
			want:    "decode release",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := updatecheck.New(srv.URL, time.Second, "", nil).Check(context.Background(), "1.0.0", "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := updatecheck.New(srv.URL, 100*time.Millisecond, "", nil).Check(context.Background(), "1.0.0", "")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("check did not respect timeout")
	}
}
