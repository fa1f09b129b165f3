package infra

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

// NewHTTPClient returns a client with a cookie jar, so the session cookie the
// service hands out on the first request is replayed on uploads, polls and
// downloads. A zero timeout leaves requests bounded only by their context.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("infra: cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// WithTimeout returns a shallow copy of c sharing its transport and jar but
// using a different overall timeout.
func WithTimeout(c *http.Client, timeout time.Duration) *http.Client {
	clone := *c
	clone.Timeout = timeout
	return &clone
}
