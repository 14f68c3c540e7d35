package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type taskDoneMsg struct {
	err error
}

type spinnerModel struct {
	spinner spinner.Model
	label   string
	task    tea.Cmd
	err     error
	done    bool
}

func newSpinnerModel(label string, task tea.Cmd) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return spinnerModel{
		spinner: s,
		label:   label,
		task:    task,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.task)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runSpinner shows label on output while task runs and returns its error.
func runSpinner(ctx context.Context, output io.Writer, label string, task func(context.Context) error) error {
	taskCmd := func() tea.Msg {
		return taskDoneMsg{err: task(ctx)}
	}

	p := tea.NewProgram(
		newSpinnerModel(label, taskCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(spinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}

func activityStrings(ids []domain.ActivityID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
