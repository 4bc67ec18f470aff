// Package session holds the per-login context the media proxy client needs:
// the homeserver base URL and the HTTP transport used to reach it.
//
// A Session is immutable and is passed explicitly to every component that
// talks to the homeserver; there is no process-wide "current session".
package session

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrInvalidBaseURL = errors.New("invalid homeserver base URL")

// Session is an authenticated (or anonymous) homeserver context.
type Session struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Session at construction time.
type Option func(*Session)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithTimeout sets a timeout on a copy of the session's HTTP client.
// Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		c := *s.httpClient
		c.Timeout = d
		s.httpClient = &c
	}
}

// New validates baseURL (absolute http or https URL) and returns a Session.
// Trailing slashes are dropped so endpoint paths can be appended verbatim.
func New(baseURL string, opts ...Option) (*Session, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	s := &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseURL returns the homeserver base URL without a trailing slash.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// HTTPClient returns the transport used for every homeserver request.
func (s *Session) HTTPClient() *http.Client {
	return s.httpClient
}
