// Package testing drives Bubble Tea models in tests without a terminal.
package testing

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

// DefaultCommandTimeout is how long Drain waits for a single command.
const DefaultCommandTimeout = 100 * time.Millisecond

// TestRenderer feeds messages to a model, runs the commands it returns and
// captures the last rendered view.
type TestRenderer struct {
	// Output contains the last rendered view
	Output string

	// Messages contains every message delivered to the model
	Messages []tea.Msg

	pending []tea.Cmd

	// CommandTimeout bounds each command run by Drain. Commands that take
	// longer, such as timers and cursor blinks, are dropped.
	CommandTimeout time.Duration
}

// NewTestRenderer creates a new test renderer.
func NewTestRenderer() *TestRenderer {
	return &TestRenderer{CommandTimeout: DefaultCommandTimeout}
}

// Render renders a model and captures its output.
func (r *TestRenderer) Render(model tea.Model) string {
	r.Output = model.View()
	return r.Output
}

// Update delivers msg and queues the returned command for Drain.
func (r *TestRenderer) Update(model tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	r.Messages = append(r.Messages, msg)
	next, cmd := model.Update(msg)
	if cmd != nil {
		r.pending = append(r.pending, cmd)
	}
	r.Output = next.View()
	return next, cmd
}

// Send delivers msg and drains every command it produces.
func (r *TestRenderer) Send(model tea.Model, msg tea.Msg) tea.Model {
	model, _ = r.Update(model, msg)
	return r.Drain(model)
}

// Drain runs queued commands in order, feeding their messages back to the
// model until nothing is left. Batches are flattened.
func (r *TestRenderer) Drain(model tea.Model) tea.Model {
	for len(r.pending) > 0 {
		cmd := r.pending[0]
		r.pending = r.pending[1:]

		msg, ok := r.run(cmd)
		if !ok || msg == nil {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			r.pending = append([]tea.Cmd(batch), r.pending...)
			continue
		}
		model, _ = r.Update(model, msg)
	}
	return model
}

// Discard forgets queued commands without running them.
func (r *TestRenderer) Discard() {
	r.pending = nil
}

func (r *TestRenderer) run(cmd tea.Cmd) (tea.Msg, bool) {
	if cmd == nil {
		return nil, false
	}
	done := make(chan tea.Msg, 1)
	go func() {
		done <- cmd()
	}()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(r.CommandTimeout):
		return nil, false
	}
}

// Plain returns view with its styling escape codes removed.
func Plain(view string) string {
	return ansi.Strip(view)
}

// InOrder reports whether every part occurs in view, each one after the
// end of the previous.
func InOrder(view string, parts ...string) bool {
	rest := view
	for _, part := range parts {
		_, after, found := strings.Cut(rest, part)
		if !found {
			return false
		}
		rest = after
	}
	return true
}

// PlainOutput returns the last output without styling.
func (r *TestRenderer) PlainOutput() string {
	return Plain(r.Output)
}

// Lines returns the plain output split by newlines.
func (r *TestRenderer) Lines() []string {
	return strings.Split(r.PlainOutput(), "\n")
}
