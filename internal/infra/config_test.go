package infra

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FILEFORGE_BASE_URL", "")
	t.Setenv("POLL_INTERVAL_MS", "")
	t.Setenv("MAX_POLL_FAILURES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("BaseURL mismatch: got %q", cfg.BaseURL)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval mismatch: got %s want 2s", cfg.PollInterval)
	}
	if cfg.MaxPollFailures != 0 {
		t.Fatalf("MaxPollFailures mismatch: got %d want 0", cfg.MaxPollFailures)
	}
	if cfg.UploadTimeout != 0 {
		t.Fatalf("UploadTimeout mismatch: got %s want 0", cfg.UploadTimeout)
	}
}

func TestLoadConfigTrimsBaseURL(t *testing.T) {
	t.Setenv("FILEFORGE_BASE_URL", "https://convert.example.com/")
	t.Setenv("POLL_INTERVAL_MS", "500")
	t.Setenv("MAX_POLL_FAILURES", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BaseURL != "https://convert.example.com" {
		t.Fatalf("BaseURL mismatch: got %q", cfg.BaseURL)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("PollInterval mismatch: got %s", cfg.PollInterval)
	}
	if cfg.MaxPollFailures != 5 {
		t.Fatalf("MaxPollFailures mismatch: got %d", cfg.MaxPollFailures)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "relative base url", key: "FILEFORGE_BASE_URL", val: "/api"},
		{name: "unsupported scheme", key: "FILEFORGE_BASE_URL", val: "ftp://example.com"},
		{name: "zero poll interval", key: "POLL_INTERVAL_MS", val: "0"},
		{name: "negative poll failures", key: "MAX_POLL_FAILURES", val: "-1"},
		{name: "negative upload timeout", key: "UPLOAD_TIMEOUT_SECONDS", val: "-3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestHTTPClientKeepsSessionCookie(t *testing.T) {
	var seen string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("ff_session"); err == nil {
			seen = c.Value
		}
		http.SetCookie(w, &http.Cookie{Name: "ff_session", Value: "abc", Path: "/"})
	}))
	defer ts.Close()

	client, err := NewHTTPClient(time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	for i := 0; i < 2; i++ {
		resp, err := client.Get(ts.URL + "/api/formats")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}
	if seen != "abc" {
		t.Fatalf("session cookie not replayed: got %q", seen)
	}

	short := WithTimeout(client, 50*time.Millisecond)
	if short.Jar != client.Jar || short.Timeout != 50*time.Millisecond {
		t.Fatalf("WithTimeout should share the jar and override the timeout")
	}
}
