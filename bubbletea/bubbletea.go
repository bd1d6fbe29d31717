// Package bubbletea provides a Bubble Tea TUI for the banter chat client.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/banter"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits. Each value received on changes makes the model re-check the
// sign-in state.
func Run(ctx context.Context, m Model, changes <-chan struct{}) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Quit()
				return
			case _, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				p.Send(CredentialsChangedMsg{})
			}
		}
	}()
	_, err := p.Run()
	return err
}

// EventMsg wraps a controller event for delivery to the Bubble Tea model.
type EventMsg struct {
	Event banter.Event
}

// SubmitDoneMsg signals that a submitted turn has completed.
type SubmitDoneMsg struct {
	Err error
}

// ReconciledMsg reports the outcome of a sign-in state check.
type ReconciledMsg struct {
	Err error
}

// AuthDoneMsg reports the outcome of a sign-in or sign-out request.
type AuthDoneMsg struct {
	SignedIn bool
	Err      error
}

// CredentialsChangedMsg tells the model the stored credentials changed.
type CredentialsChangedMsg struct{}
