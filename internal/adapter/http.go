package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

const userAgent = "Mozilla/5.0"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// get issues a GET request and returns the body of a 200 response.
// Non-200 responses are returned as *model.HTTPError.
func get(ctx context.Context, client *http.Client, rawURL string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// fetchError turns a transport failure into the source error callers report.
func fetchError(source string, err error) error {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return &model.SourceError{Msg: fmt.Sprintf("Failed to fetch %s jobs. Status code: %d", source, httpErr.StatusCode), Err: err}
	}
	return &model.SourceError{Msg: fmt.Sprintf("Network error fetching %s jobs", source), Err: err}
}
