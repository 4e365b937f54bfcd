package model

import (
	"errors"
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// SourceError is a source failure with a short user-facing message.
// The wrapped error becomes the ErrorRecord detail.
type SourceError struct {
	Msg string
	Err error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ErrMalformed marks a response that arrived but could not be parsed.
var ErrMalformed = errors.New("malformed response")

// ErrNotImplemented is returned for company names no source is registered for.
var ErrNotImplemented = &SourceError{Msg: "Scraper not implemented"}

// ErrorRecordFor converts a source failure into the inline error record.
func ErrorRecordFor(company string, err error) ErrorRecord {
	var se *SourceError
	if errors.As(err, &se) {
		rec := ErrorRecord{Company: company, Error: se.Msg}
		if se.Err != nil {
			rec.Detail = se.Err.Error()
		}
		return rec
	}
	return ErrorRecord{Company: company, Error: err.Error()}
}
