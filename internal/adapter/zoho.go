package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sanathsadiga/jobautomate/internal/filter"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	zohoJobsURL  = "https://careers.zohocorp.com/jobs"
	zohoApplyURL = "https://careers.zohocorp.com/jobs/Careers/"
	zohoTimeout  = 25 * time.Second
)

// zohoJob is one entry of the JSON array embedded in the careers page.
type zohoJob struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"Posting_Title"`
	Country     string          `json:"Country1"`
	Description string          `json:"Job_Description"`
}

// ZohoAdapter reads the job list Zoho embeds in a hidden input on its careers page.
type ZohoAdapter struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ model.Source = (*ZohoAdapter)(nil)

// NewZohoAdapter creates an adapter for Zoho careers.
func NewZohoAdapter(client *http.Client, logger *slog.Logger) *ZohoAdapter {
	return &ZohoAdapter{
		client:  client,
		timeout: zohoTimeout,
		logger:  logger.With("source", "Zoho"),
	}
}

func (a *ZohoAdapter) Name() string       { return "Zoho" }
func (a *ZohoAdapter) Class() model.Class { return model.ClassLight }

// Fetch downloads the careers page and filters its embedded listings by
// case-insensitive substring: role against the title, location against the
// country.
func (a *ZohoAdapter) Fetch(ctx context.Context, role, location string) ([]model.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	role = strings.TrimSpace(role)
	location = strings.TrimSpace(location)
	a.logger.Info("fetching listings", "role", role, "location", location)

	body, err := get(ctx, a.client, zohoJobsURL, "text/html")
	if err != nil {
		return nil, fetchError(a.Name(), err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &model.SourceError{Msg: "Failed to parse Zoho jobs HTML", Err: fmt.Errorf("%w: %v", model.ErrMalformed, err)}
	}

	input := doc.Find("input#jobs").First()
	if input.Length() == 0 {
		return nil, &model.SourceError{Msg: "No job data element found on Zoho page.", Err: model.ErrMalformed}
	}
	raw, _ := input.Attr("value")
	if strings.TrimSpace(raw) == "" {
		return nil, &model.SourceError{Msg: "No job data value found on Zoho page.", Err: model.ErrMalformed}
	}

	var jobs []zohoJob
	if err := json.Unmarshal([]byte(raw), &jobs); err != nil {
		return nil, &model.SourceError{Msg: "Corrupt job data JSON from Zoho", Err: fmt.Errorf("%w: %v", model.ErrMalformed, err)}
	}
	a.logger.Debug("loaded raw listings", "count", len(jobs))

	match := filter.New(role, location)
	var results []model.Result
	for _, j := range jobs {
		if !match.Match(j.Title, j.Country) {
			continue
		}
		id := rawID(j.ID)
		if id == "" {
			a.logger.Debug("dropping listing without id", "title", j.Title)
			continue
		}
		results = append(results, model.PostingResult(model.Posting{
			Company:     a.Name(),
			Title:       strings.TrimSpace(j.Title),
			Location:    strings.TrimSpace(j.Country),
			Description: truncate(strings.TrimSpace(j.Description), snippetLength),
			ApplyURL:    zohoApplyURL + id,
		}))
	}

	if len(results) == 0 {
		a.logger.Info("no listings matched")
		return []model.Result{model.NoteResult("No jobs matched the filter")}, nil
	}

	a.logger.Info("fetched listings", "matched", len(results))
	return results, nil
}

// rawID renders a JSON string or number id as plain text. null and "" yield "".
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return s
}
