package pipeline

import "sync"

// Fanout forwards results and transitions to every registered sink in
// registration order
type Fanout struct {
	mu    sync.RWMutex
	sinks []ResultSink
}

// Add registers a sink
func (f *Fanout) Add(s ResultSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Publish implements ResultSink
func (f *Fanout) Publish(r Result) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sinks {
		s.Publish(r)
	}
}

// Transition implements ResultSink
func (f *Fanout) Transition(session string, running bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sinks {
		s.Transition(session, running)
	}
}

// Len returns the number of registered sinks
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}
