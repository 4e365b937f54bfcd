package model

import (
	"context"
	"encoding/json"
	"time"
)

// Posting is a normalized job listing from any source, plus the experience
// fields the enricher fills in.
type Posting struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
	ApplyURL    string `json:"apply_url"` // canonical identity of the posting

	ExperienceMin *int   `json:"experience_min"`
	ExperienceMax *int   `json:"experience_max"`
	Match         bool   `json:"match"`
	MatchReason   string `json:"match_reason"`
}

// Valid reports whether the posting carries at least a title or an apply URL.
func (p Posting) Valid() bool {
	return p.Title != "" || p.ApplyURL != ""
}

// Storable reports whether the posting has both fields the store requires.
func (p Posting) Storable() bool {
	return p.Title != "" && p.ApplyURL != ""
}

// ErrorRecord reports that a source failed. It is carried inline in results.
type ErrorRecord struct {
	Company string `json:"company,omitempty"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// NoteRecord is an informational result entry.
type NoteRecord struct {
	Note string `json:"note"`
}

// Result is one entry of an aggregation batch. Exactly one field is set.
type Result struct {
	Posting *Posting
	Error   *ErrorRecord
	Note    *NoteRecord
}

func PostingResult(p Posting) Result { return Result{Posting: &p} }
func ErrorResult(e ErrorRecord) Result { return Result{Error: &e} }
func NoteResult(note string) Result { return Result{Note: &NoteRecord{Note: note}} }

// MarshalJSON encodes the result as the flat object of whichever record is set.
func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Posting != nil:
		return json.Marshal(r.Posting)
	case r.Error != nil:
		return json.Marshal(r.Error)
	case r.Note != nil:
		return json.Marshal(r.Note)
	}
	return []byte("null"), nil
}

// Postings returns the postings contained in results, in order.
func Postings(results []Result) []Posting {
	var out []Posting
	for _, r := range results {
		if r.Posting != nil {
			out = append(out, *r.Posting)
		}
	}
	return out
}

// StoredJob is a persisted posting.
type StoredJob struct {
	ID int64 `json:"id" db:"id"`

	Company     string `json:"company" db:"company"`
	Title       string `json:"title" db:"title"`
	Location    string `json:"location" db:"location"`
	Description string `json:"description" db:"description"`
	ApplyURL    string `json:"apply_url" db:"apply_url"`

	ExperienceMin *int   `json:"experience_min" db:"experience_min"`
	ExperienceMax *int   `json:"experience_max" db:"experience_max"`
	Match         bool   `json:"match" db:"match"`
	MatchReason   string `json:"match_reason" db:"match_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"` // set once at first insert
}

// Query is one aggregation request.
type Query struct {
	Companies []string `json:"companies"`
	Role      string   `json:"role"`
	Location  string   `json:"location"`
}

// Degenerate reports whether the query has neither role nor location.
func (q Query) Degenerate() bool {
	return q.Role == "" && q.Location == ""
}

// Class is the concurrency class of a source.
type Class int

const (
	// ClassLight sources make one bounded HTTP round trip and run concurrently.
	ClassLight Class = iota
	// ClassHeavy sources drive a rendered-page browser session and run one at a time.
	ClassHeavy
)

func (c Class) String() string {
	if c == ClassHeavy {
		return "heavy"
	}
	return "light"
}

// Source fetches postings for a role/location from one company.
// A returned error is converted into an ErrorRecord by the caller.
type Source interface {
	Name() string
	Class() Class
	Fetch(ctx context.Context, role, location string) ([]Result, error)
}

// JobStore persists enriched postings keyed on apply URL.
type JobStore interface {
	Upsert(ctx context.Context, postings []Posting) (UpsertResult, error)
	List(ctx context.Context, filter ListFilter) ([]StoredJob, error)
	Close() error
}

// UpsertResult summarises one upsert batch.
type UpsertResult struct {
	Stored   int      // rows inserted or updated
	Skipped  int      // postings missing title or apply URL
	Inserted []string // apply URLs that were new in this batch
}

// ListFilter narrows a listing of stored jobs.
type ListFilter struct {
	MatchOnly bool
	Company   string
	Limit     int
}

// Notifier sends notifications for new matching postings.
type Notifier interface {
	Notify(ctx context.Context, postings []Posting) error
}
