package main

import tea "github.com/charmbracelet/bubbletea"

// postedMsg carries a callback onto the bubbletea event loop, which owns the
// screen.
type postedMsg func()

type programScheduler struct {
	program *tea.Program
}

// Post queues fn behind every message already sent to the program. It must
// not be called from inside Update.
func (s *programScheduler) Post(fn func()) {
	if s.program == nil || fn == nil {
		return
	}
	s.program.Send(postedMsg(fn))
}
