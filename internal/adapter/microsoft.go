package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sanathsadiga/jobautomate/internal/browser"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	microsoftSearchURL = "https://jobs.careers.microsoft.com/global/en/search"
	microsoftJobURL    = "https://jobs.careers.microsoft.com/global/en/job/"
	microsoftDetailURL = "https://gcsservices.careers.microsoft.com/search/api/v1/job/"
	microsoftPageSize  = 20
	microsoftMaxDetail = 30
	microsoftDetailCap = 2000
	microsoftTimeout   = 20 * time.Second // per detail request
)

// indianCityTokens pick the location span out of a search card.
var indianCityTokens = []string{"india", "hyderabad", "bangalore", "bengaluru", "noida", "gurgaon", "pune", "chennai", "delhi"}

// microsoftDetail holds the fields we need from the job detail API.
type microsoftDetail struct {
	Description      string `json:"description"`
	Qualifications   string `json:"qualifications"`
	Responsibilities string `json:"responsibilities"`
}

type microsoftDetailResponse struct {
	OperationResult *struct {
		Result *microsoftDetail `json:"result"`
	} `json:"operationResult"`
	microsoftDetail
}

// MicrosoftAdapter renders the Microsoft careers search page in a browser
// session and, in deep mode, replaces each snippet with the full description
// from the detail API.
type MicrosoftAdapter struct {
	sessions  browser.Provider
	client    *http.Client
	deep      bool
	maxDetail int
	logger    *slog.Logger
}

var _ model.Source = (*MicrosoftAdapter)(nil)

// NewMicrosoftAdapter creates an adapter for Microsoft careers. maxDetail
// defaults to 30 when zero.
func NewMicrosoftAdapter(sessions browser.Provider, client *http.Client, deep bool, maxDetail int, logger *slog.Logger) *MicrosoftAdapter {
	if maxDetail <= 0 {
		maxDetail = microsoftMaxDetail
	}
	return &MicrosoftAdapter{
		sessions:  sessions,
		client:    client,
		deep:      deep,
		maxDetail: maxDetail,
		logger:    logger.With("source", "Microsoft"),
	}
}

func (a *MicrosoftAdapter) Name() string       { return "Microsoft" }
func (a *MicrosoftAdapter) Class() model.Class { return model.ClassHeavy }

// Fetch renders the search results for role and location and parses the job cards.
func (a *MicrosoftAdapter) Fetch(ctx context.Context, role, location string) ([]model.Result, error) {
	searchURL := microsoftSearch(role, location)

	sess, err := a.sessions.Acquire(ctx)
	if err != nil {
		return nil, &model.SourceError{Msg: "Failed to start browser session", Err: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			a.logger.Warn("closing browser session", "error", err)
		}
	}()

	a.logger.Info("rendering search page", "url", searchURL)
	page, err := sess.Render(ctx, searchURL, browser.RenderOptions{
		WaitSelector: "div[role='listitem']",
		WaitTimeout:  35 * time.Second,
		Scrolls:      5,
		ScrollPause:  time.Second,
	})
	if err != nil {
		return nil, &model.SourceError{Msg: "Failed to load Microsoft search page", Err: err}
	}

	postings, err := a.parseSearchPage(page)
	if err != nil {
		return nil, &model.SourceError{Msg: "Failed to parse Microsoft search page", Err: err}
	}
	a.logger.Info("collected job cards", "count", len(postings))

	if a.deep && len(postings) > 0 {
		a.enrichDescriptions(ctx, postings)
	}

	results := make([]model.Result, 0, len(postings))
	for _, p := range postings {
		results = append(results, model.PostingResult(p))
	}
	return results, nil
}

func microsoftSearch(role, location string) string {
	q := url.Values{}
	q.Set("q", role)
	q.Set("l", location)
	q.Set("pg", "1")
	q.Set("pgSz", fmt.Sprintf("%d", microsoftPageSize))
	q.Set("o", "Relevance")
	q.Set("flt", "true")
	return microsoftSearchURL + "?" + q.Encode()
}

// parseSearchPage turns the rendered cards into postings. Cards without a
// title or job id are skipped.
func (a *MicrosoftAdapter) parseSearchPage(page string) ([]model.Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}

	var postings []model.Posting
	doc.Find("div[role='listitem']").Each(func(i int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h2").First().Text())
		if title == "" {
			a.logger.Debug("skipping card without title", "card", i+1)
			return
		}
		id := microsoftCardID(card)
		if id == "" {
			a.logger.Debug("skipping card without job id", "card", i+1, "title", title)
			return
		}
		snippet := strings.TrimSpace(card.Find("span[aria-label='job description']").First().Text())

		postings = append(postings, model.Posting{
			Company:     a.Name(),
			Title:       title,
			Location:    microsoftCardLocation(card),
			Description: truncate(snippet, snippetLength),
			ApplyURL:    microsoftJobURL + id + "/" + slugify(title),
		})
	})
	return postings, nil
}

// microsoftCardID reads the numeric job id from the "Job item <id>" aria label.
func microsoftCardID(card *goquery.Selection) string {
	var id string
	card.Find("[aria-label]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		label, _ := el.Attr("aria-label")
		if !strings.Contains(label, "Job item") {
			return true
		}
		for _, tok := range strings.Fields(label) {
			if isDigits(tok) {
				id = tok
				return false
			}
		}
		return true
	})
	return id
}

// microsoftCardLocation prefers a short span naming an Indian city, falling
// back to the first short span.
func microsoftCardLocation(card *goquery.Selection) string {
	var candidates []string
	card.Find("span").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && len(text) < 60 {
			candidates = append(candidates, text)
		}
	})
	for _, c := range candidates {
		lower := strings.ToLower(c)
		for _, tok := range indianCityTokens {
			if strings.Contains(lower, tok) {
				return c
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// enrichDescriptions fetches full descriptions for the first maxDetail
// postings. Failures leave the posting's snippet in place.
func (a *MicrosoftAdapter) enrichDescriptions(ctx context.Context, postings []model.Posting) {
	n := min(len(postings), a.maxDetail)
	a.logger.Info("fetching job details", "count", n)

	enriched := 0
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		id := microsoftJobIDFromURL(postings[i].ApplyURL)
		if id == "" {
			continue
		}
		desc, err := a.fetchDetail(ctx, id)
		if err != nil {
			a.logger.Debug("detail fetch failed", "job_id", id, "error", err)
			continue
		}
		if desc != "" {
			postings[i].Description = desc
			enriched++
		}
	}
	a.logger.Info("job details fetched", "enriched", enriched)
}

func microsoftJobIDFromURL(applyURL string) string {
	rest, ok := strings.CutPrefix(applyURL, microsoftJobURL)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	if !isDigits(id) {
		return ""
	}
	return id
}

// fetchDetail returns description, qualifications and responsibilities as one
// plain-text block.
func (a *MicrosoftAdapter) fetchDetail(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, microsoftTimeout)
	defer cancel()

	body, err := get(ctx, a.client, microsoftDetailURL+id+"?lang=en_us", "application/json")
	if err != nil {
		return "", fmt.Errorf("microsoft detail fetch for job %s: %w", id, err)
	}

	var resp microsoftDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("microsoft detail decode for job %s: %w: %v", id, model.ErrMalformed, err)
	}
	detail := resp.microsoftDetail
	if resp.OperationResult != nil && resp.OperationResult.Result != nil {
		detail = *resp.OperationResult.Result
	}

	var parts []string
	for _, frag := range []string{detail.Description, detail.Qualifications, detail.Responsibilities} {
		if text := truncate(extractText(frag), microsoftDetailCap); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
