package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/filter"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	greenhouseTimeout = 25 * time.Second
)

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	AbsoluteURL string             `json:"absolute_url"`
	Content     string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter fetches jobs from the Greenhouse public boards API for
// companies configured by board token.
type GreenhouseAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

var _ model.Source = (*GreenhouseAdapter)(nil)

// NewGreenhouseAdapter creates a new adapter for a Greenhouse board.
func NewGreenhouseAdapter(boardToken string, companyName string, client *http.Client, logger *slog.Logger) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
		timeout:     greenhouseTimeout,
		logger:      logger.With("source", companyName),
	}
}

func (a *GreenhouseAdapter) Name() string       { return a.companyName }
func (a *GreenhouseAdapter) Class() model.Class { return model.ClassLight }

// Fetch retrieves the whole board with descriptions and filters it client-side:
// role against the title, location against the location name.
func (a *GreenhouseAdapter) Fetch(ctx context.Context, role, location string) ([]model.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, a.boardToken)

	body, err := get(ctx, a.client, url, "application/json")
	if err != nil {
		return nil, fetchError(a.companyName, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err))
	}

	var ghResp greenhouseResponse
	if err := json.Unmarshal(body, &ghResp); err != nil {
		return nil, &model.SourceError{
			Msg: fmt.Sprintf("Invalid JSON from %s", a.companyName),
			Err: fmt.Errorf("greenhouse fetch for %s: %w: %v", a.boardToken, model.ErrMalformed, err),
		}
	}

	match := filter.New(role, location)
	var results []model.Result
	for _, gj := range ghResp.Jobs {
		if !match.Match(gj.Title, gj.Location.Name) {
			continue
		}
		if gj.AbsoluteURL == "" {
			a.logger.Debug("dropping listing without url", "id", gj.ID)
			continue
		}
		results = append(results, model.PostingResult(model.Posting{
			Company:     a.companyName,
			Title:       gj.Title,
			Location:    gj.Location.Name,
			Description: truncate(extractText(gj.Content), snippetLength),
			ApplyURL:    gj.AbsoluteURL,
		}))
	}

	a.logger.Info("fetched listings", "board", a.boardToken, "total", len(ghResp.Jobs), "matched", len(results))
	if len(results) == 0 {
		return []model.Result{model.NoteResult("No jobs matched the filter")}, nil
	}
	return results, nil
}
