package adapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/sanathsadiga/jobautomate/internal/browser"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// redirectClient returns a client that sends every request to srv, keeping
// the original path and query.
func redirectClient(srv *httptest.Server) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession serves canned HTML and records what it was asked to render.
type fakeSession struct {
	page      string
	renderErr error

	mu       sync.Mutex
	urls     []string
	opts     []browser.RenderOptions
	closed   bool
	provider *fakeProvider
}

func (s *fakeSession) Render(_ context.Context, url string, opts browser.RenderOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	s.opts = append(s.opts, opts)
	if s.renderErr != nil {
		return "", s.renderErr
	}
	return s.page, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// fakeProvider hands out a single fakeSession.
type fakeProvider struct {
	session    *fakeSession
	acquireErr error
}

func (p *fakeProvider) Acquire(context.Context) (browser.Session, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.session, nil
}

func newFakeProvider(page string) *fakeProvider {
	return &fakeProvider{session: &fakeSession{page: page}}
}
