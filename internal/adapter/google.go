package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	googleSearchURL = "https://careers.google.com/api/v3/search/"
	googleApplyURL  = "https://careers.google.com/jobs/results/"
	googlePageSize  = 20
	googleTimeout   = 20 * time.Second
)

type googleLocation struct {
	Display string `json:"display"`
}

type googleJob struct {
	ID                 json.RawMessage  `json:"id"`
	Title              string           `json:"title"`
	Locations          []googleLocation `json:"locations"`
	DescriptionSnippet string           `json:"descriptionSnippet"`
}

// googleSearchResponse distinguishes a missing "jobs" key (nil) from an empty list.
type googleSearchResponse struct {
	Jobs *[]googleJob `json:"jobs"`
}

// GoogleAdapter queries the Google careers search API.
type GoogleAdapter struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ model.Source = (*GoogleAdapter)(nil)

// NewGoogleAdapter creates an adapter for Google careers.
func NewGoogleAdapter(client *http.Client, logger *slog.Logger) *GoogleAdapter {
	return &GoogleAdapter{
		client:  client,
		timeout: googleTimeout,
		logger:  logger.With("source", "Google"),
	}
}

func (a *GoogleAdapter) Name() string       { return "Google" }
func (a *GoogleAdapter) Class() model.Class { return model.ClassLight }

// Fetch runs one search for role, narrowed to location when given, and
// returns the first page of results.
func (a *GoogleAdapter) Fetch(ctx context.Context, role, location string) ([]model.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	u, _ := url.Parse(googleSearchURL)
	q := u.Query()
	q.Set("q", role)
	q.Set("page", "1")
	q.Set("page_size", fmt.Sprintf("%d", googlePageSize))
	if location != "" {
		q.Set("location", location)
	}
	u.RawQuery = q.Encode()

	a.logger.Info("fetching listings", "role", role, "location", location)
	body, err := get(ctx, a.client, u.String(), "application/json")
	if err != nil {
		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &model.SourceError{Msg: fmt.Sprintf("Google jobs fetch failed (status %d)", httpErr.StatusCode), Err: err}
		}
		return nil, fetchError(a.Name(), err)
	}

	var resp googleSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &model.SourceError{Msg: "Invalid JSON from Google", Err: fmt.Errorf("%w: %v", model.ErrMalformed, err)}
	}
	if resp.Jobs == nil {
		a.logger.Info("response has no jobs key")
		return []model.Result{model.NoteResult("No jobs found for given filters")}, nil
	}

	var results []model.Result
	for _, j := range *resp.Jobs {
		id := rawID(j.ID)
		if id == "" {
			a.logger.Debug("dropping listing without id", "title", j.Title)
			continue
		}
		// Newer API versions return ids as "jobs/<n>".
		id = strings.TrimPrefix(id, "jobs/")

		title := j.Title
		if title == "" {
			title = "No Title"
		}

		results = append(results, model.PostingResult(model.Posting{
			Company:     a.Name(),
			Title:       title,
			Location:    joinLocations(j.Locations),
			Description: truncate(j.DescriptionSnippet, snippetLength),
			ApplyURL:    googleApplyURL + id + "/",
		}))
	}

	if len(results) == 0 {
		a.logger.Info("no listings matched")
		return []model.Result{model.NoteResult("No matching Google jobs found")}, nil
	}

	a.logger.Info("fetched listings", "matched", len(results))
	return results, nil
}

func joinLocations(locs []googleLocation) string {
	var parts []string
	for _, l := range locs {
		if l.Display != "" {
			parts = append(parts, l.Display)
		}
	}
	if len(parts) == 0 {
		return "Not specified"
	}
	return strings.Join(parts, ", ")
}
