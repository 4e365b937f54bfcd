package browse

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// AllCompanies is the picker entry that lists every stored job.
const AllCompanies = "All companies"

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// CompanyCount is one picker entry.
type CompanyCount struct {
	Name    string
	Jobs    int
	Matched int
}

// CountCompanies groups jobs by company, sorted by name, preceded by an
// AllCompanies entry.
func CountCompanies(jobs []model.StoredJob) []CompanyCount {
	byName := make(map[string]*CompanyCount)
	all := CompanyCount{Name: AllCompanies}
	for _, j := range jobs {
		c, ok := byName[strings.ToLower(j.Company)]
		if !ok {
			c = &CompanyCount{Name: j.Company}
			byName[strings.ToLower(j.Company)] = c
		}
		c.Jobs++
		all.Jobs++
		if j.Match {
			c.Matched++
			all.Matched++
		}
	}

	out := make([]CompanyCount, 0, len(byName)+1)
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return append([]CompanyCount{all}, out...)
}

// FilterCompany returns the jobs of one company; AllCompanies returns jobs unchanged.
func FilterCompany(jobs []model.StoredJob, company string) []model.StoredJob {
	if company == AllCompanies {
		return jobs
	}
	var out []model.StoredJob
	for _, j := range jobs {
		if strings.EqualFold(j.Company, company) {
			out = append(out, j)
		}
	}
	return out
}

type pickerModel struct {
	companies []CompanyCount
	cursor    int
	chosen    int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.companies)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Stored Jobs - Select a company")
	s += "\n"

	for i, c := range m.companies {
		label := fmt.Sprintf("%s (%d jobs, %d matched)", c.Name, c.Jobs, c.Matched)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunCompanyPicker shows an interactive company selector.
// Returns the index of the chosen company, or a negative value if the user quit.
func RunCompanyPicker(companies []CompanyCount) (int, error) {
	m := pickerModel{
		companies: companies,
		chosen:    -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	return final.chosen, nil
}
