package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type spinnerDoneMsg struct{ err error }

type spinnerModel struct {
	spin    spinner.Model
	message string
	err     error
}

func (m spinnerModel) Init() tea.Cmd { return m.spin.Tick }

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	return m.spin.View() + " " + m.message
}

// WithSpinner runs fn while animating a spinner, for the provider round-trip
// in one-shot mode. Non-interactive backends skip the animation and just run
// fn inline.
func WithSpinner(backend string, message string, fn func() error) error {
	if !IsInteractiveBackend(backend) {
		return fn()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	model := spinnerModel{spin: s, message: message}

	prog := tea.NewProgram(model)
	errCh := make(chan error, 1)
	go func() {
		err := fn()
		errCh <- err
		prog.Send(spinnerDoneMsg{err: err})
	}()

	if _, err := prog.Run(); err != nil {
		// The spinner failing to render must not lose fn's result.
		return <-errCh
	}
	return <-errCh
}
