package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(DriverSQLite, dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// withClock pins the store's clock, advancing one second per call.
func withClock(s *SQLStore, start time.Time) {
	next := start
	s.now = func() time.Time {
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func intPtr(v int) *int { return &v }

func posting(company, title, url string) model.Posting {
	return model.Posting{Company: company, Title: title, ApplyURL: url, Location: "Bengaluru"}
}

func TestUpsert_InsertsNewPostings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := posting("Zoho", "Backend Developer", "https://example.com/1")
	p.ExperienceMin = intPtr(2)
	p.ExperienceMax = intPtr(4)
	p.Match = true
	p.MatchReason = "Matches range 2-4 years"

	res, err := s.Upsert(ctx, []model.Posting{p, posting("Google", "SRE", "https://example.com/2")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/2"}, res.Inserted)

	jobs, err := s.List(ctx, model.ListFilter{Company: "zoho"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	got := jobs[0]
	assert.Equal(t, "Backend Developer", got.Title)
	require.NotNil(t, got.ExperienceMin)
	require.NotNil(t, got.ExperienceMax)
	assert.Equal(t, 2, *got.ExperienceMin)
	assert.Equal(t, 4, *got.ExperienceMax)
	assert.True(t, got.Match)
	assert.Equal(t, "Matches range 2-4 years", got.MatchReason)
	assert.NotZero(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsert_IsIdempotentAndKeepsIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	withClock(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := s.Upsert(ctx, []model.Posting{posting("Zoho", "Developer", "https://example.com/1")})
	require.NoError(t, err)

	before, err := s.List(ctx, model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, before, 1)

	updated := posting("Zoho", "Senior Developer", "https://example.com/1")
	updated.Match = true
	res, err := s.Upsert(ctx, []model.Posting{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Empty(t, res.Inserted, "existing url must not count as inserted")

	after, err := s.List(ctx, model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.True(t, before[0].CreatedAt.Equal(after[0].CreatedAt), "created_at must be preserved")
	assert.Equal(t, "Senior Developer", after[0].Title)
	assert.True(t, after[0].Match)
}

func TestUpsert_ClearsExperienceOnUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := posting("Zoho", "Developer", "https://example.com/1")
	p.ExperienceMin = intPtr(5)
	_, err := s.Upsert(ctx, []model.Posting{p})
	require.NoError(t, err)

	p.ExperienceMin = nil
	_, err = s.Upsert(ctx, []model.Posting{p})
	require.NoError(t, err)

	jobs, err := s.List(ctx, model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].ExperienceMin)
}

func TestUpsert_DuplicateURLInBatch(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Upsert(context.Background(), []model.Posting{
		posting("Zoho", "First", "https://example.com/dup"),
		posting("Zoho", "Second", "https://example.com/dup"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, []string{"https://example.com/dup"}, res.Inserted)

	jobs, err := s.List(context.Background(), model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Second", jobs[0].Title)
}

func TestUpsert_SkipsUnstorable(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Upsert(context.Background(), []model.Posting{
		posting("Zoho", "", "https://example.com/no-title"),
		posting("Zoho", "No URL", ""),
		posting("Zoho", "Kept", "https://example.com/kept"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 2, res.Skipped)

	jobs, err := s.List(context.Background(), model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Kept", jobs[0].Title)
}

func TestUpsert_Empty(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Stored)
}

func TestList_OrderAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	withClock(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	matched := posting("Google", "SRE", "https://example.com/g1")
	matched.Match = true
	for _, batch := range [][]model.Posting{
		{posting("Zoho", "Old", "https://example.com/z1")},
		{matched},
		{posting("Zoho", "New", "https://example.com/z2")},
	} {
		_, err := s.Upsert(ctx, batch)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "New", all[0].Title)
	assert.Equal(t, "SRE", all[1].Title)
	assert.Equal(t, "Old", all[2].Title)

	onlyMatch, err := s.List(ctx, model.ListFilter{MatchOnly: true})
	require.NoError(t, err)
	require.Len(t, onlyMatch, 1)
	assert.Equal(t, "SRE", onlyMatch[0].Title)

	limited, err := s.List(ctx, model.ListFilter{Company: "ZOHO", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "New", limited[0].Title)
}

func TestList_SameTimestampOrdersByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, err := s.Upsert(ctx, []model.Posting{
		posting("Zoho", "A", "https://example.com/a"),
		posting("Zoho", "B", "https://example.com/b"),
	})
	require.NoError(t, err)

	jobs, err := s.List(ctx, model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "B", jobs[0].Title)
	assert.Equal(t, "A", jobs[1].Title)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNopStore(t *testing.T) {
	s := NewNopStore()
	res, err := s.Upsert(context.Background(), []model.Posting{
		posting("Zoho", "A", "https://example.com/a"),
		posting("Zoho", "", "https://example.com/b"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"https://example.com/a"}, res.Inserted)

	jobs, err := s.List(context.Background(), model.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, s.Close())
}
