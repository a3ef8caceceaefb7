package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/petems/micbridge/internal/capture"
)

// State holds per-processor capture state. Each processor's capture handle
// is present exactly while a loop is running for it; the handle is an atomic
// pointer so a start publishing it and a stop clearing it cannot race.
type State struct {
	mu    sync.Mutex
	procs map[string]*processorState
}

type processorState struct {
	handle atomic.Pointer[capture.Loop]
}

func NewState() *State {
	return &State{procs: make(map[string]*processorState)}
}

func (s *State) processor(id string) *processorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[id]
	if !ok {
		p = &processorState{}
		s.procs[id] = p
	}
	return p
}

func (s *State) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.procs))
	for id := range s.procs {
		ids = append(ids, id)
	}
	return ids
}

// Active reports whether a capture loop is currently running for the
// processor.
func (s *State) Active(id string) bool {
	return s.processor(id).handle.Load() != nil
}
