// Package pipeline runs one aggregation: fan out to the requested sources,
// filter and enrich the postings, persist them and notify on new matches.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sanathsadiga/jobautomate/internal/experience"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	NoteMissingQuery = "Please provide role or location"
	NoteNoJobs       = "No jobs found"

	DefaultCandidateYears = 2
	DefaultHeavyTimeout   = 5 * time.Minute

	// heavyGrace bounds how long a timed-out heavy fetch may take to unwind
	// before the next heavy source starts.
	heavyGrace = 10 * time.Second
)

// SourceLookup resolves a requested company name to a source.
type SourceLookup interface {
	Lookup(name string) (model.Source, bool)
}

// Options tunes an Aggregator.
type Options struct {
	CandidateYears int           // negative takes DefaultCandidateYears
	HeavyTimeout   time.Duration // zero takes DefaultHeavyTimeout
}

// Report summarises one run.
type Report struct {
	RunID    string
	Results  []model.Result
	Fetched  int // postings returned by sources
	Dropped  int // postings without title and apply URL
	Stored   int // rows inserted or updated
	Inserted int // rows that were new
	Notified int
	Duration time.Duration
}

// Aggregator owns the full aggregation pipeline:
// fetch → filter → enrich → upsert → notify.
type Aggregator struct {
	sources      SourceLookup
	store        model.JobStore
	notifier     model.Notifier
	years        int
	heavyTimeout time.Duration
	logger       *slog.Logger
}

// NewAggregator creates an aggregator wired with all its dependencies.
// store and notifier may be nil.
func NewAggregator(
	sources SourceLookup,
	store model.JobStore,
	notifier model.Notifier,
	opts Options,
	logger *slog.Logger,
) *Aggregator {
	if opts.CandidateYears < 0 {
		opts.CandidateYears = DefaultCandidateYears
	}
	if opts.HeavyTimeout <= 0 {
		opts.HeavyTimeout = DefaultHeavyTimeout
	}
	return &Aggregator{
		sources:      sources,
		store:        store,
		notifier:     notifier,
		years:        opts.CandidateYears,
		heavyTimeout: opts.HeavyTimeout,
		logger:       logger,
	}
}

// Aggregate runs the pipeline and returns the mixed batch of postings,
// error records and notes.
func (a *Aggregator) Aggregate(ctx context.Context, q model.Query) []model.Result {
	return a.Run(ctx, q).Results
}

// Run runs the pipeline for q and reports what happened.
func (a *Aggregator) Run(ctx context.Context, q model.Query) Report {
	start := time.Now()
	rep := Report{RunID: uuid.NewString()}
	logger := a.logger.With("run_id", rep.RunID)

	q.Role = strings.TrimSpace(q.Role)
	q.Location = strings.TrimSpace(q.Location)
	if q.Degenerate() {
		logger.Info("rejecting query without role or location")
		rep.Results = []model.Result{model.NoteResult(NoteMissingQuery)}
		rep.Duration = time.Since(start)
		return rep
	}

	logger.Info("aggregation started", "companies", q.Companies, "role", q.Role, "location", q.Location)

	raw := a.collect(ctx, logger, q)
	for _, r := range raw {
		if r.Posting != nil {
			rep.Fetched++
		}
	}

	results, dropped := filterResults(raw)
	rep.Dropped = dropped
	if dropped > 0 {
		logger.Info("dropped postings without title and apply url", "count", dropped)
	}

	postings := a.enrich(results)

	if a.store != nil && len(postings) > 0 {
		res, err := a.store.Upsert(ctx, postings)
		if err != nil {
			logger.Error("persisting postings failed", "count", len(postings), "error", err)
		} else {
			rep.Stored = res.Stored
			rep.Inserted = len(res.Inserted)
			rep.Notified = a.notify(ctx, logger, postings, res.Inserted)
		}
	}

	rep.Results = results
	rep.Duration = time.Since(start)
	logger.Info("aggregation complete",
		"results", len(results),
		"fetched", rep.Fetched,
		"dropped", rep.Dropped,
		"stored", rep.Stored,
		"inserted", rep.Inserted,
		"notified", rep.Notified,
		"duration", rep.Duration.Round(time.Millisecond).String(),
	)
	return rep
}

// EnsureNonEmpty replaces an empty batch with the "No jobs found" note.
func EnsureNonEmpty(results []model.Result) []model.Result {
	if len(results) == 0 {
		return []model.Result{model.NoteResult(NoteNoJobs)}
	}
	return results
}

type request struct {
	company string
	source  model.Source // nil when no source is registered
}

// collect fans out to light sources concurrently, then runs heavy sources one
// at a time in request order. Light results precede heavy results.
func (a *Aggregator) collect(ctx context.Context, logger *slog.Logger, q model.Query) []model.Result {
	var light, heavy []request
	for _, name := range q.Companies {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		src, ok := a.sources.Lookup(name)
		if !ok {
			light = append(light, request{company: name})
			continue
		}
		if src.Class() == model.ClassHeavy {
			heavy = append(heavy, request{company: src.Name(), source: src})
		} else {
			light = append(light, request{company: src.Name(), source: src})
		}
	}

	lightResults := make([][]model.Result, len(light))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range light {
		g.Go(func() error {
			lightResults[i] = a.fetchLight(gctx, logger, req, q)
			return nil
		})
	}
	_ = g.Wait()

	var out []model.Result
	for _, rs := range lightResults {
		out = append(out, rs...)
	}
	for _, req := range heavy {
		out = append(out, a.fetchHeavy(ctx, logger, req, q)...)
	}
	return out
}

func (a *Aggregator) fetchLight(ctx context.Context, logger *slog.Logger, req request, q model.Query) []model.Result {
	if req.source == nil {
		logger.Warn("no source registered", "company", req.company)
		return []model.Result{model.ErrorResult(model.ErrorRecordFor(req.company, model.ErrNotImplemented))}
	}

	start := time.Now()
	results, err := safeFetch(ctx, req.source, q)
	if err != nil {
		logger.Warn("source failed", "company", req.company, "class", "light", "error", err)
		return []model.Result{model.ErrorResult(model.ErrorRecordFor(req.company, err))}
	}
	logger.Info("source finished", "company", req.company, "class", "light",
		"results", len(results), "duration", time.Since(start).Round(time.Millisecond).String())
	return results
}

// fetchHeavy runs one heavy source in its own goroutine bounded by the heavy
// deadline. The source is given a short grace period to unwind after the
// deadline so heavy sources never overlap.
func (a *Aggregator) fetchHeavy(ctx context.Context, logger *slog.Logger, req request, q model.Query) []model.Result {
	type outcome struct {
		results []model.Result
		err     error
	}

	hctx, cancel := context.WithTimeout(ctx, a.heavyTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		results, err := safeFetch(hctx, req.source, q)
		done <- outcome{results, err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-hctx.Done():
		cancel()
		select {
		case <-done:
		case <-time.After(heavyGrace):
			logger.Warn("heavy source did not stop after deadline", "company", req.company)
		}
		o.err = &model.SourceError{
			Msg: fmt.Sprintf("Timed out after %s", a.heavyTimeout),
			Err: hctx.Err(),
		}
	}

	if o.err != nil {
		logger.Warn("source failed", "company", req.company, "class", "heavy", "error", o.err)
		return []model.Result{model.ErrorResult(model.ErrorRecordFor(req.company, o.err))}
	}
	logger.Info("source finished", "company", req.company, "class", "heavy",
		"results", len(o.results), "duration", time.Since(start).Round(time.Millisecond).String())
	return o.results
}

// safeFetch calls src.Fetch, turning a panic into an error.
func safeFetch(ctx context.Context, src model.Source, q model.Query) (results []model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &model.SourceError{Msg: "Exception occurred", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return src.Fetch(ctx, q.Role, q.Location)
}

// filterResults drops postings that have neither title nor apply URL.
// Error records and notes pass through.
func filterResults(in []model.Result) ([]model.Result, int) {
	out := make([]model.Result, 0, len(in))
	dropped := 0
	for _, r := range in {
		if r.Posting != nil && !r.Posting.Valid() {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

// enrich fills the experience fields of every posting in results in place
// and returns the enriched postings in order.
func (a *Aggregator) enrich(results []model.Result) []model.Posting {
	postings := model.Postings(results)
	experience.Enrich(postings, a.years)
	j := 0
	for i := range results {
		if results[i].Posting != nil {
			p := postings[j]
			results[i].Posting = &p
			j++
		}
	}
	return postings
}

// notify sends newly inserted matching postings to the notifier, once per URL.
func (a *Aggregator) notify(ctx context.Context, logger *slog.Logger, postings []model.Posting, inserted []string) int {
	if a.notifier == nil || len(inserted) == 0 {
		return 0
	}

	isNew := make(map[string]bool, len(inserted))
	for _, u := range inserted {
		isNew[u] = true
	}

	var matches []model.Posting
	for _, p := range postings {
		if p.Match && isNew[p.ApplyURL] {
			matches = append(matches, p)
			delete(isNew, p.ApplyURL)
		}
	}
	if len(matches) == 0 {
		return 0
	}

	if err := a.notifier.Notify(ctx, matches); err != nil {
		logger.Error("notification failed", "count", len(matches), "error", err)
		return 0
	}
	return len(matches)
}
