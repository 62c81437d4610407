package tui

import (
	"context"

	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/loop"
	tea "github.com/charmbracelet/bubbletea"
)

// ProgramPoster posts dispatcher messages into a bubbletea program.
//
// Program.Send blocks until the program reads the message, so messages go
// through a loop first and only the loop goroutine ever waits on Send.
type ProgramPoster struct {
	loop *loop.Loop
	send func(tea.Msg)
}

// NewProgramPoster creates a poster. Messages posted before Bind are held
// until the loop runs.
func NewProgramPoster(logger *logging.Logger) *ProgramPoster {
	p := &ProgramPoster{}
	p.loop = loop.New(func(msg any) {
		p.send(deliveryMsg{msg: msg})
	}, logger)
	return p
}

// Bind sets the function that hands messages to the program.
// It must be called before Run.
func (p *ProgramPoster) Bind(send func(tea.Msg)) {
	p.send = send
}

// Post implements dispatch.Poster.
func (p *ProgramPoster) Post(msg any) {
	p.loop.Post(msg)
}

// Run forwards messages until ctx ends or Close is called.
func (p *ProgramPoster) Run(ctx context.Context) error {
	return p.loop.Run(ctx)
}

// Close stops accepting messages.
func (p *ProgramPoster) Close() {
	p.loop.Close()
}
