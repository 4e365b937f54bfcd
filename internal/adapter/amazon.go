package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sanathsadiga/jobautomate/internal/browser"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

const amazonBaseURL = "https://www.amazon.jobs"

// AmazonAdapter renders the amazon.jobs keyword search in a browser session.
// The search only takes keywords; location is not applied.
type AmazonAdapter struct {
	sessions browser.Provider
	logger   *slog.Logger
}

var _ model.Source = (*AmazonAdapter)(nil)

// NewAmazonAdapter creates an adapter for Amazon jobs.
func NewAmazonAdapter(sessions browser.Provider, logger *slog.Logger) *AmazonAdapter {
	return &AmazonAdapter{
		sessions: sessions,
		logger:   logger.With("source", "Amazon"),
	}
}

func (a *AmazonAdapter) Name() string       { return "Amazon" }
func (a *AmazonAdapter) Class() model.Class { return model.ClassHeavy }

// Fetch renders the search page for role and parses its job tiles.
func (a *AmazonAdapter) Fetch(ctx context.Context, role, _ string) ([]model.Result, error) {
	searchURL := amazonBaseURL + "/en/search?keywords=" + url.QueryEscape(role)

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
		WaitSelector: "div.job-tile",
		WaitTimeout:  25 * time.Second,
		WaitOptional: true,
	})
	if err != nil {
		return nil, &model.SourceError{Msg: "Exception occurred", Err: err}
	}

	postings, err := a.parseSearchPage(page)
	if err != nil {
		return nil, &model.SourceError{Msg: "Failed to parse Amazon search page", Err: err}
	}
	a.logger.Info("collected job tiles", "count", len(postings))

	results := make([]model.Result, 0, len(postings))
	for _, p := range postings {
		results = append(results, model.PostingResult(p))
	}
	return results, nil
}

// parseSearchPage turns job tiles into postings. Tiles without a title
// element or a job link are skipped.
func (a *AmazonAdapter) parseSearchPage(page string) ([]model.Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}
	base, _ := url.Parse(amazonBaseURL)

	var postings []model.Posting
	doc.Find("div.job-tile").Each(func(i int, tile *goquery.Selection) {
		titleEl := tile.Find("h3.job-title").First()
		if titleEl.Length() == 0 {
			a.logger.Debug("skipping tile without title", "tile", i+1)
			return
		}
		title := strings.TrimSpace(titleEl.Text())
		if title == "" {
			title = "Untitled"
		}

		href, _ := tile.Find("a.job-link").First().Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			a.logger.Debug("skipping tile without link", "tile", i+1, "title", title)
			return
		}
		link, err := base.Parse(href)
		if err != nil {
			a.logger.Debug("skipping tile with bad link", "tile", i+1, "href", href, "error", err)
			return
		}

		postings = append(postings, model.Posting{
			Company:  a.Name(),
			Title:    title,
			Location: strings.TrimSpace(tile.Find(".job-location").First().Text()),
			ApplyURL: link.String(),
		})
	})
	return postings, nil
}
