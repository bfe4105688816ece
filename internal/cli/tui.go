package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	gridio "github.com/matzehuels/gridcore/pkg/io"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// VariantListModel - Interactive variant selection
// =============================================================================

// VariantListModel is the bubbletea model for interactive variant selection.
type VariantListModel struct {
	Variants []gridio.VariantSummary
	Cursor   int
	Selected *gridio.VariantSummary
	Height   int
	Offset   int
}

// NewVariantListModel creates a new variant list model.
func NewVariantListModel(variants []gridio.VariantSummary) VariantListModel {
	return VariantListModel{Variants: variants, Height: 15}
}

func (m VariantListModel) Init() tea.Cmd {
	return nil
}

func (m VariantListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Variants)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Variants) == 0 {
				return m, tea.Quit
			}
			v := m.Variants[m.Cursor]
			m.Selected = &v
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m VariantListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Variant"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Variants))
	var rows [][]string
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, append([]string{cursor}, variantRow(m.Variants[i])...))
	}

	t := variantTable(rows).StyleFunc(func(row, col int) lipgloss.Style {
		if row == headerRow {
			return tableHeaderStyle
		}
		if m.Offset+row == m.Cursor {
			return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
		}
		return lipgloss.NewStyle().Foreground(colorGray)
	})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Variants))))

	return b.String()
}

// =============================================================================
// Tables
// =============================================================================

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// headerRow is the row index lipgloss passes to style functions for headers.
const headerRow = -1

var variantHeaders = []string{"Variant", "Buses", "Bus-breaker", "Connected", "Synchronous"}

// variantTable builds a bordered table of variant rows. Rows built for the
// picker carry a leading cursor column.
func variantTable(rows [][]string) *table.Table {
	headers := variantHeaders
	if len(rows) > 0 && len(rows[0]) > len(variantHeaders) {
		headers = append([]string{""}, variantHeaders...)
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...)
}

func variantRow(v gridio.VariantSummary) []string {
	return []string{
		v.ID,
		strconv.Itoa(len(v.Buses)),
		strconv.Itoa(v.BusBreakerBuses),
		strconv.Itoa(len(v.ConnectedComponents)),
		strconv.Itoa(len(v.SynchronousComponents)),
	}
}

// busRows lists the buses of a variant: id, voltage level, terminals,
// voltage and component numbers.
func busRows(v gridio.VariantSummary) [][]string {
	rows := make([][]string, 0, len(v.Buses))
	for _, b := range v.Buses {
		volt := "-"
		if b.V != nil {
			volt = strconv.FormatFloat(*b.V, 'f', 2, 64)
		}
		rows = append(rows, []string{
			b.ID,
			b.VoltageLevel,
			strconv.Itoa(b.Terminals),
			volt,
			componentLabel(b.ConnectedComponent),
			componentLabel(b.SynchronousComponent),
		})
	}
	return rows
}

func componentLabel(num int) string {
	if num < 0 {
		return "-"
	}
	return strconv.Itoa(num)
}
