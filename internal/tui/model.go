package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mangamark/internal/processor"
)

// tailSize is how many recent status lines the view keeps on screen.
const tailSize = 8

type Model struct {
	updates  <-chan processor.ProgressUpdate
	cancel   func()
	started  time.Time
	width    int
	fraction float64
	tail     []string
	quitting bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

// NewModel returns a model draining updates. cancel is called when the user
// presses ctrl+c; the model keeps rendering until updates is closed.
func NewModel(updates <-chan processor.ProgressUpdate, cancel func()) Model {
	return Model{updates: updates, cancel: cancel, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		if msg.HasFraction {
			m.fraction = math.Max(m.fraction, msg.Fraction)
		} else if strings.TrimSpace(msg.Line) != "" {
			m.tail = append(m.tail, msg.Line)
			if len(m.tail) > tailSize {
				m.tail = m.tail[len(m.tail)-tailSize:]
			}
		}
		return m, listenForUpdates(m.updates)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.cancel != nil {
			m.cancel()
		}
		return m, nil
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("mangamark"),
		barStyle.Render(renderBar(barWidth, m.fraction)) + labelStyle.Render(fmt.Sprintf(" %3.0f%%", m.fraction*100)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		"",
	}
	for _, line := range m.tail {
		lines = append(lines, styleLine(line))
	}

	return strings.Join(lines, "\n")
}

func styleLine(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "!"):
		return errStyle.Render(line)
	case strings.HasPrefix(trimmed, "+"):
		return okStyle.Render(line)
	case strings.HasPrefix(trimmed, "-"):
		return warnStyle.Render(line)
	default:
		return labelStyle.Render(line)
	}
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	okStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)
	errStyle   = lipgloss.NewStyle().Foreground(ColorError)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
