package notifier

import (
	"context"
	"log/slog"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new matching postings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each posting with company, title, location, URL and match reason.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, postings []model.Posting) error {
	for _, p := range postings {
		n.logger.Info("new matching job",
			"company", p.Company,
			"title", p.Title,
			"location", p.Location,
			"url", p.ApplyURL,
			"experience", formatExperience(p),
			"reason", p.MatchReason,
		)
	}
	return nil
}
