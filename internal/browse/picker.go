package browse

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/vacancywatch/internal/model"
)

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

// Picker results that are not a source.
const (
	PickedNone = -1 // the user quit
	PickedAll  = -2 // every source
)

type pickerModel struct {
	sources []model.SourceType
	counts  map[model.SourceType]int
	cursor  int // 0 is "all sources"
	chosen  int
	quit    bool
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.sources) {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) result() int {
	switch {
	case m.quit:
		return PickedNone
	case m.chosen == 0:
		return PickedAll
	default:
		return m.chosen - 1
	}
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Stored vacancies: select a source") + "\n"

	total := 0
	for _, n := range m.counts {
		total += n
	}
	labels := []string{fmt.Sprintf("all sources (%d)", total)}
	for _, src := range m.sources {
		labels = append(labels, fmt.Sprintf("%s (%d)", src, m.counts[src]))
	}

	for i, label := range labels {
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunSourcePicker shows an interactive source selector with row counts.
// It returns the index into sources, PickedAll or PickedNone.
func RunSourcePicker(sources []model.SourceType, counts map[model.SourceType]int) (int, error) {
	p := tea.NewProgram(pickerModel{sources: sources, counts: counts})
	result, err := p.Run()
	if err != nil {
		return PickedNone, err
	}
	return result.(pickerModel).result(), nil
}
