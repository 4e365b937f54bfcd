package browse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

func intPtr(v int) *int { return &v }

func sampleJobs() []model.StoredJob {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []model.StoredJob{
		{ID: 3, Company: "Zoho", Title: "Member Technical Staff", Location: "India", ApplyURL: "https://z/3",
			Match: true, MatchReason: "Entry-level / fresher role", CreatedAt: created},
		{ID: 2, Company: "Google", Title: "Staff Engineer", ApplyURL: "https://g/2",
			ExperienceMin: intPtr(8), MatchReason: "Requires 8+ years; user has 2", CreatedAt: created,
			Description: "Lead large systems."},
		{ID: 1, Company: "zoho", Title: "Developer", Location: "Chennai", ApplyURL: "https://z/1",
			ExperienceMin: intPtr(1), ExperienceMax: intPtr(3), Match: true, MatchReason: "Matches range 1-3 years", CreatedAt: created},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(m browseModel) browseModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(browseModel)
}

func press(m browseModel, keys ...string) (browseModel, tea.Cmd) {
	var cmd tea.Cmd
	var next tea.Model = m
	for _, k := range keys {
		next, cmd = next.Update(key(k))
	}
	return next.(browseModel), cmd
}

func TestNewBrowseModel_SplitsMatched(t *testing.T) {
	m := newBrowseModel(sampleJobs())
	assert.Len(t, m.allJobs, 3)
	require.Len(t, m.matchedJobs, 2)
	assert.Equal(t, int64(3), m.matchedJobs[0].ID)
	assert.Equal(t, int64(1), m.matchedJobs[1].ID)
}

func TestBrowse_ListView(t *testing.T) {
	m := sized(newBrowseModel(sampleJobs()))
	view := m.View()
	assert.Contains(t, view, "All Jobs (3)")
	assert.Contains(t, view, "Matched Jobs (2)")
	assert.Contains(t, view, "3 stored | 2 matched | 1 not matched")
}

func TestBrowse_CursorClampsAndDetailFollowsPane(t *testing.T) {
	m := sized(newBrowseModel(sampleJobs()))

	m, _ = press(m, "down", "down", "down", "down")
	assert.Equal(t, 2, m.leftCursor)

	m, _ = press(m, "tab", "down", "enter")
	assert.Equal(t, viewDetail, m.view)
	assert.Equal(t, int64(1), m.detailJob.ID)

	detail := m.renderDetail()
	assert.Contains(t, detail, "1-3 years")
	assert.Contains(t, detail, "Matches range 1-3 years")
	assert.Contains(t, detail, "https://z/1")

	m, _ = press(m, "esc")
	assert.Equal(t, viewList, m.view)
}

func TestBrowse_DescriptionToggleAndOpen(t *testing.T) {
	var opened string
	m := sized(newBrowseModel(sampleJobs()))
	m.openURL = func(u string) { opened = u }

	m, _ = press(m, "down", "enter")
	require.Equal(t, int64(2), m.detailJob.ID)
	assert.Contains(t, m.renderDetail(), "press r to read the description")

	m, _ = press(m, "r")
	assert.True(t, m.showDescription)
	assert.Contains(t, m.renderDetail(), "Lead large systems.")

	press(m, "o")
	assert.Equal(t, "https://g/2", opened)
}

func TestBrowse_QuitVersusBack(t *testing.T) {
	m := sized(newBrowseModel(sampleJobs()))

	quit, cmd := press(m, "q")
	assert.True(t, quit.wantQuit)
	require.NotNil(t, cmd)

	back, cmd := press(m, "esc")
	assert.False(t, back.wantQuit)
	require.NotNil(t, cmd)
}

func TestBrowse_EmptyList(t *testing.T) {
	m := sized(newBrowseModel(nil))
	m, _ = press(m, "enter")
	assert.Equal(t, viewList, m.view)
	assert.Contains(t, m.View(), "(no jobs)")
}

func TestExperienceLabel(t *testing.T) {
	assert.Equal(t, "not stated", experienceLabel(nil, nil))
	assert.Equal(t, "3+ years", experienceLabel(intPtr(3), nil))
	assert.Equal(t, "2-4 years", experienceLabel(intPtr(2), intPtr(4)))
	assert.Equal(t, "up to 5 years", experienceLabel(nil, intPtr(5)))
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", got)
	assert.Equal(t, "", wordWrap("   ", 10))
}

func TestCountCompanies(t *testing.T) {
	counts := CountCompanies(sampleJobs())
	require.Len(t, counts, 3)
	assert.Equal(t, CompanyCount{Name: AllCompanies, Jobs: 3, Matched: 2}, counts[0])
	assert.Equal(t, CompanyCount{Name: "Google", Jobs: 1}, counts[1])
	assert.Equal(t, "Zoho", counts[2].Name)
	assert.Equal(t, 2, counts[2].Jobs)
	assert.Equal(t, 2, counts[2].Matched)
}

func TestFilterCompany(t *testing.T) {
	jobs := sampleJobs()
	assert.Len(t, FilterCompany(jobs, AllCompanies), 3)
	assert.Len(t, FilterCompany(jobs, "ZOHO"), 2)
	assert.Empty(t, FilterCompany(jobs, "Amazon"))
}

func TestPicker_Navigation(t *testing.T) {
	var m tea.Model = pickerModel{companies: CountCompanies(sampleJobs()), chosen: -1}

	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	assert.Equal(t, 2, m.(pickerModel).cursor)
	assert.True(t, strings.Contains(m.View(), "> Zoho (2 jobs, 2 matched)"))

	m, _ = m.Update(key("enter"))
	assert.Equal(t, 2, m.(pickerModel).chosen)

	m, _ = m.Update(key("q"))
	assert.Equal(t, -2, m.(pickerModel).chosen)
}

func TestLoader_Update(t *testing.T) {
	loadErr := errors.New("db closed")
	m := newLoaderModel(context.Background(), "Loading stored jobs", func(context.Context) ([]model.StoredJob, error) {
		return nil, loadErr
	})
	assert.Contains(t, m.View(), "Loading stored jobs...")

	msg := m.doLoad()()
	next, cmd := m.Update(msg)
	final := next.(loaderModel)
	assert.True(t, final.done)
	assert.ErrorIs(t, final.err, loadErr)
	assert.NotNil(t, cmd)
	assert.Empty(t, final.View())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.ErrorIs(t, next.(loaderModel).err, ErrCancelled)
}
