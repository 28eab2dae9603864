package session

import (
	"fmt"
	"slices"

	"docqa/internal/domain"
)

// Phase is a step of a session or of one category inside it.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseLoading      Phase = "loading"
	PhaseAnswering    Phase = "answering"
	PhaseCategoryDone Phase = "category_done"
	PhaseSessionDone  Phase = "session_done"
	PhaseFailed       Phase = "failed"
)

// categoryTransitions is the per-category lifecycle. A failed load ends the
// category in PhaseFailed, which the results report as skipped.
var categoryTransitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseLoading},
	PhaseLoading:   {PhaseAnswering, PhaseFailed},
	PhaseAnswering: {PhaseCategoryDone},
}

// sessionTransitions is the lifecycle of the session as a whole.
var sessionTransitions = map[Phase][]Phase{
	PhaseIdle: {PhaseSessionDone, PhaseFailed},
}

// machine guards the phase sequence. It is owned by a single goroutine.
type machine struct {
	category    domain.Category
	phase       Phase
	transitions map[Phase][]Phase
}

func newCategoryMachine(category domain.Category) *machine {
	return &machine{category: category, phase: PhaseIdle, transitions: categoryTransitions}
}

func newSessionMachine() *machine {
	return &machine{phase: PhaseIdle, transitions: sessionTransitions}
}

func (m *machine) advance(next Phase) error {
	if !slices.Contains(m.transitions[m.phase], next) {
		return fmt.Errorf("invalid transition %s -> %s", m.phase, next)
	}
	m.phase = next
	return nil
}

// Event reports progress to an Observer.
type Event struct {
	Phase    Phase
	Category domain.Category
	// Index is the question position for PhaseAnswering events, else -1.
	Index  int
	Result *domain.QAResult
	Err    error
}

// Observer receives events. Calls are serialized by the Runner.
type Observer func(Event)
