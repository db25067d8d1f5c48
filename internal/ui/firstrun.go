package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FirstRunDecision is what the setup screen hands back: the mode to write
// into the fresh config and, optionally, a different provider command.
type FirstRunDecision struct {
	Mode            string
	SetProvider     bool
	ProviderCommand string
}

var firstRunModes = []string{"confirm", "suggest", "yolo"}

type firstRunScreen int

const (
	firstRunMenu firstRunScreen = iota
	firstRunEditProvider
)

type firstRunModel struct {
	shell         string
	provider      string
	providerFound bool
	modeIndex     int

	providerInput textinput.Model
	screen        firstRunScreen
	decision      FirstRunDecision
	done          bool
}

// FirstRunSetup shows the one-time setup screen when no config file exists
// yet. The second return reports whether an interactive backend ran; on
// false the caller keeps the defaults silently.
func FirstRunSetup(backend, shell, providerCommand string, providerFound bool) (FirstRunDecision, bool, error) {
	defaults := FirstRunDecision{Mode: firstRunModes[0]}

	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		if candidate != BackendBubbleTea {
			continue
		}
		decision, err := firstRunWithBubbleTea(shell, providerCommand, providerFound)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return decision, true, nil
	}
	if firstErr != nil {
		return defaults, false, firstErr
	}
	return defaults, false, nil
}

func firstRunWithBubbleTea(shell, providerCommand string, providerFound bool) (FirstRunDecision, error) {
	model := newFirstRunModel(shell, providerCommand, providerFound)
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return FirstRunDecision{}, err
	}
	out, ok := final.(firstRunModel)
	if !ok || !out.done {
		return FirstRunDecision{Mode: firstRunModes[0]}, nil
	}
	return out.decision, nil
}

func newFirstRunModel(shell, providerCommand string, providerFound bool) firstRunModel {
	providerInput := textinput.New()
	providerInput.Placeholder = "provider command, e.g. claude"
	providerInput.CharLimit = 120
	providerInput.Width = 48
	providerInput.SetValue(strings.TrimSpace(providerCommand))

	return firstRunModel{
		shell:         shell,
		provider:      strings.TrimSpace(providerCommand),
		providerFound: providerFound,
		providerInput: providerInput,
		decision:      FirstRunDecision{Mode: firstRunModes[0]},
	}
}

func (m firstRunModel) Init() tea.Cmd { return nil }

func (m firstRunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.screen == firstRunEditProvider {
			var cmd tea.Cmd
			m.providerInput, cmd = m.providerInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if m.screen == firstRunEditProvider {
		return m.updateEditProvider(key)
	}
	return m.updateMenu(key)
}

func (m firstRunModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "enter", "y":
		m.done = true
		return m, tea.Quit
	case "m":
		m.modeIndex = (m.modeIndex + 1) % len(firstRunModes)
		m.decision.Mode = firstRunModes[m.modeIndex]
		return m, nil
	case "p":
		m.screen = firstRunEditProvider
		m.providerInput.Focus()
		return m, textinput.Blink
	case "esc", "q", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m firstRunModel) updateEditProvider(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "enter":
		value := strings.TrimSpace(m.providerInput.Value())
		if value != "" {
			m.decision.SetProvider = true
			m.decision.ProviderCommand = value
			m.provider = value
		}
		m.screen = firstRunMenu
		m.providerInput.Blur()
		return m, nil
	case "esc":
		m.screen = firstRunMenu
		m.providerInput.Blur()
		return m, nil
	case "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.providerInput, cmd = m.providerInput.Update(msg)
	return m, cmd
}

func (m firstRunModel) View() string {
	if m.screen == firstRunEditProvider {
		return firstRunCardStyle.Render(strings.Join([]string{
			firstRunTitleStyle.Render("mend setup: provider"),
			"",
			firstRunBodyStyle.Render("Which CLI produces suggestions? It must accept a prompt on stdin."),
			"",
			m.providerInput.View(),
			"",
			firstRunHintStyle.Render("[enter] save  [esc] back"),
		}, "\n"))
	}

	providerLine := fmt.Sprintf("provider  %s", m.provider)
	if !m.providerFound {
		providerLine += firstRunWarnStyle.Render("  (not found on PATH)")
	}
	lines := []string{
		firstRunTitleStyle.Render("mend setup"),
		"",
		firstRunBodyStyle.Render(fmt.Sprintf("shell     %s", m.shell)),
		firstRunBodyStyle.Render(providerLine),
		firstRunBodyStyle.Render(fmt.Sprintf("mode      %s", m.decision.Mode)),
		"",
		firstRunHintStyle.Render("[enter] start wrapping"),
		firstRunHintStyle.Render("[m] cycle mode  [p] change provider"),
		firstRunHintStyle.Render("[esc] keep defaults"),
	}
	return firstRunCardStyle.Render(strings.Join(lines, "\n"))
}

var (
	firstRunCardStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")).
				Padding(1, 2)

	firstRunTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("87"))

	firstRunBodyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	firstRunWarnStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	firstRunHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("109"))
)
