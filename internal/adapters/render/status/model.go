package status

import (
	"errors"
	"io"

	"github.com/bnema/activity-ledger/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	sessions []application.LiveSession
	opts     RenderOptions
	styles   styles
	output   string
}

func newModel(sessions []application.LiveSession, opts RenderOptions) model {
	return model{
		sessions: sessions,
		opts:     opts,
		styles:   newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.sessions, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render draws the live presentations the way the lock screen would, using
// nothing but each presentation's published attributes.
func Render(sessions []application.LiveSession, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(sessions, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
