package layout

// Services is the narrow callback surface an embedding host hands to the
// simulation: user-visible status messages, progress reporting, and display
// refresh requests. Implementations must be fire-and-forget - the
// simulation calls them inline from the stepping goroutine and never waits
// on an acknowledgement, and every call is safe to ignore entirely.
//
// Services is injected at construction ([NewSimulation]) rather than set on
// a shared reference afterwards, so a simulation's host binding is fixed
// for its lifetime and visible at the call site.
type Services interface {
	// PostMessage reports a human-readable status line.
	PostMessage(text string)

	// PostProgress reports completion as a fraction in [0, 1] with a short
	// label. A negative fraction ([ProgressIndeterminate]) means completion
	// cannot be estimated yet.
	PostProgress(fraction float64, label string)

	// RequestRefresh asks the host to repaint its view of the graph.
	RequestRefresh()
}

// NoopServices discards every notification. It backs headless runs and is
// the default when NewSimulation receives a nil Services.
type NoopServices struct{}

func (NoopServices) PostMessage(string)           {}
func (NoopServices) PostProgress(float64, string) {}
func (NoopServices) RequestRefresh()              {}

// ServiceFuncs adapts plain functions to the [Services] interface. Nil
// fields are no-ops, so hosts wire only the callbacks they care about.
type ServiceFuncs struct {
	Message  func(text string)
	Progress func(fraction float64, label string)
	Refresh  func()
}

// PostMessage implements Services.
func (s ServiceFuncs) PostMessage(text string) {
	if s.Message != nil {
		s.Message(text)
	}
}

// PostProgress implements Services.
func (s ServiceFuncs) PostProgress(fraction float64, label string) {
	if s.Progress != nil {
		s.Progress(fraction, label)
	}
}

// RequestRefresh implements Services.
func (s ServiceFuncs) RequestRefresh() {
	if s.Refresh != nil {
		s.Refresh()
	}
}
