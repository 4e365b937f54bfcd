package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// EventNewJob is the event name carried by broker messages.
const EventNewJob = "job.matched"

// jobEvent is the JSON body published to brokers, one per posting.
type jobEvent struct {
	Event   string        `json:"event"`
	SentAt  time.Time     `json:"sent_at"`
	Posting model.Posting `json:"posting"`
	Summary string        `json:"summary"`
}

func newJobEvent(p model.Posting, now time.Time) jobEvent {
	return jobEvent{
		Event:   EventNewJob,
		SentAt:  now,
		Posting: p,
		Summary: fmt.Sprintf("%s: %s (%s)", p.Company, p.Title, formatExperience(p)),
	}
}

// formatExperience renders the inferred experience range for humans.
func formatExperience(p model.Posting) string {
	switch {
	case p.ExperienceMin == nil:
		return "not stated"
	case p.ExperienceMax != nil && *p.ExperienceMax != 0:
		return fmt.Sprintf("%d-%d years", *p.ExperienceMin, *p.ExperienceMax)
	default:
		return fmt.Sprintf("%d+ years", *p.ExperienceMin)
	}
}

// SendTestMessage sends a dummy posting to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	minYears := 1
	testPosting := model.Posting{
		Company:       "JobAutomate Test",
		Title:         "Test Notification: Integration Verified",
		Location:      "Everywhere",
		Description:   "This is a test message.",
		ApplyURL:      "https://example.com/jobautomate/test",
		ExperienceMin: &minYears,
		Match:         true,
		MatchReason:   "Minimum 1 years – OK",
	}
	return n.Notify(ctx, []model.Posting{testPosting})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
