package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"

	"github.com/amishk599/vacancywatch/internal/filter"
	"github.com/amishk599/vacancywatch/internal/model"
)

const (
	defaultWidth = 160
	minColWidth  = 3
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Ensure TableSink implements model.ResultSink.
var _ model.ResultSink = (*TableSink)(nil)

// TableSink prints vacancies as a bordered table sized to the terminal.
type TableSink struct {
	w      io.Writer
	width  int
	logger *slog.Logger
}

// NewTableSink returns a sink writing to w. A width of zero means the
// width of the terminal on stdout, or 160 columns when there is none.
func NewTableSink(w io.Writer, width int, logger *slog.Logger) *TableSink {
	if width <= 0 {
		width = terminalWidth()
	}
	return &TableSink{w: w, width: width, logger: logger}
}

func terminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w - 1
	}
	return defaultWidth
}

// Render prints rows with repeated links collapsed to the freshest date.
func (s *TableSink) Render(_ context.Context, rows []model.StoredVacancy) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(s.w, "no vacancies to show")
		return err
	}

	collapsed := filter.CollapseByLink(rows)
	s.logger.Info("rendering table",
		"rows", len(collapsed),
		"collapsed", len(rows)-len(collapsed),
	)

	values := make([]map[string]string, len(collapsed))
	for i, r := range collapsed {
		values[i] = Normalize(r)
	}
	widths := columnWidths(s.width, values)

	headers := make([]string, len(Columns))
	for i, c := range Columns {
		headers[i] = c.Name
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Width(widths[col])
			}
			return cellStyle.Width(widths[col])
		})
	for _, v := range values {
		cells := make([]string, len(Columns))
		for i, c := range Columns {
			cells[i] = v[c.Name]
		}
		t.Row(cells...)
	}

	_, err := fmt.Fprintln(s.w, t.Render())
	return err
}

// columnWidths turns percentages of the usable line width into cell widths.
// Columns never get wider than their widest value, and what they leave
// is shared by the flexible columns.
func columnWidths(total int, values []map[string]string) []int {
	usable := total - (len(Columns) + 1) // vertical borders
	widths := make([]int, len(Columns))
	content := make([]int, len(Columns))
	for i, c := range Columns {
		content[i] = lipgloss.Width(c.Name) + 2 // header plus padding
		for _, v := range values {
			if w := lipgloss.Width(v[c.Name]) + 2; w > content[i] {
				content[i] = w
			}
		}
	}

	remaining := usable
	var flexible []int
	for i, c := range Columns {
		if c.Percent == 0 {
			flexible = append(flexible, i)
			continue
		}
		w := min(max(c.Percent*usable/100, minColWidth), content[i])
		widths[i] = w
		remaining -= w
	}

	// Narrow flexible columns first, so their leftovers reach the wide ones.
	for len(flexible) > 0 {
		share := max(remaining/len(flexible), minColWidth)
		narrowest := -1
		for _, i := range flexible {
			if content[i] <= share && (narrowest < 0 || content[i] < content[narrowest]) {
				narrowest = i
			}
		}
		if narrowest < 0 {
			for _, i := range flexible {
				widths[i] = share
			}
			break
		}
		widths[narrowest] = content[narrowest]
		remaining -= content[narrowest]
		flexible = removeIndex(flexible, narrowest)
	}
	return widths
}

func removeIndex(s []int, v int) []int {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
