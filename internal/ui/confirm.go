package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
)

// Prompt is what one-shot confirmation shows: the command, the provider's
// one-line explanation, and a warning when a warn-severity safety rule
// matched.
type Prompt struct {
	Command     string
	Explanation string
	Warning     string
}

// ConfirmExecution asks the user to approve a suggested command, trying the
// configured backend first and falling back through the others. The second
// return reports whether any interactive backend actually ran; callers fall
// back to a plain stdin prompt when it is false.
func ConfirmExecution(backend string, p Prompt) (bool, bool, error) {
	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		var (
			approved bool
			err      error
		)
		switch candidate {
		case BackendBubbleTea:
			approved, err = confirmWithBubbleTea(p)
		case BackendHuh:
			approved, err = confirmWithHuh(p)
		case BackendTView:
			approved, err = confirmWithTView(p)
		case BackendPlain:
			continue
		default:
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return approved, true, nil
	}
	if firstErr != nil {
		return false, false, firstErr
	}
	return false, false, nil
}

func (p Prompt) body() string {
	parts := []string{strings.TrimSpace(p.Command)}
	if detail := strings.TrimSpace(p.Explanation); detail != "" {
		parts = append(parts, detail)
	}
	if warning := strings.TrimSpace(p.Warning); warning != "" {
		parts = append(parts, "⚠ "+warning)
	}
	return strings.Join(parts, "\n")
}

type bubbleConfirmModel struct {
	prompt   Prompt
	approved bool
	done     bool
}

func (m bubbleConfirmModel) Init() tea.Cmd { return nil }

func (m bubbleConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case tea.KeyMsg:
		switch strings.ToLower(k.String()) {
		case "y":
			m.approved = true
			m.done = true
			return m, tea.Quit
		case "n", "esc", "ctrl+c", "enter":
			m.approved = false
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m bubbleConfirmModel) View() string {
	return fmt.Sprintf("Run this command?\n\n%s\n\n[y] run  [n] cancel", m.prompt.body())
}

func confirmWithBubbleTea(p Prompt) (bool, error) {
	model := bubbleConfirmModel{prompt: p}
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	out, ok := final.(bubbleConfirmModel)
	if !ok {
		return false, nil
	}
	if !out.done {
		return false, nil
	}
	return out.approved, nil
}

func confirmWithHuh(p Prompt) (bool, error) {
	approved := false
	prompt := huh.NewConfirm().
		Title("Run this command?").
		Description(p.body()).
		Affirmative("Run").
		Negative("Cancel").
		Value(&approved).
		WithTheme(huh.ThemeCharm())
	err := prompt.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return approved, nil
}

func confirmWithTView(p Prompt) (bool, error) {
	app := tview.NewApplication()
	approved := false
	done := false

	modal := tview.NewModal().
		SetText("Run this command?\n\n" + p.body()).
		AddButtons([]string{"Run", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			done = true
			approved = strings.EqualFold(strings.TrimSpace(label), "run")
			app.Stop()
		})

	if err := app.SetRoot(modal, true).Run(); err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}
	return approved, nil
}
