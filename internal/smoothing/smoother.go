// Package smoothing stabilizes per-slot labels with a majority vote over a
// short rolling window.
package smoothing

import (
	"sync"
)

// DefaultWindow is the history length used when none is given
const DefaultWindow = 5

// SlotSmoother keeps the last Window labels for each slot. Slots are
// positions in the detector output, not tracked identities, so a face that
// changes position inherits another face's history.
type SlotSmoother struct {
	window int

	mu    sync.Mutex
	slots map[int][]string
}

// New creates a smoother with the given window size
func New(window int) *SlotSmoother {
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlotSmoother{
		window: window,
		slots:  make(map[int][]string),
	}
}

// Observe records label for slot and returns the smoothed label.
//
// Labels are counted in order of first appearance in the window. The leader
// starts as the new label with a count of zero and only changes hands on a
// strictly higher count, so among tied labels the earliest seen wins.
func (s *SlotSmoother) Observe(slot int, label string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.slots[slot]
	if len(hist) == s.window {
		copy(hist, hist[1:])
		hist = hist[:len(hist)-1]
	}
	hist = append(hist, label)
	s.slots[slot] = hist

	return vote(hist, label)
}

func vote(hist []string, latest string) string {
	counts := make(map[string]int, len(hist))
	order := make([]string, 0, len(hist))
	for _, l := range hist {
		if _, seen := counts[l]; !seen {
			order = append(order, l)
		}
		counts[l]++
	}

	leader, best := latest, 0
	for _, l := range order {
		if counts[l] > best {
			leader, best = l, counts[l]
		}
	}
	return leader
}

// Reset drops every slot history
func (s *SlotSmoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[int][]string)
}

// Window returns a copy of the current history of slot, oldest first
func (s *SlotSmoother) Window(slot int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.slots[slot]
	out := make([]string, len(hist))
	copy(out, hist)
	return out
}

// Windows returns a copy of every non-empty slot history
func (s *SlotSmoother) Windows() map[int][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int][]string, len(s.slots))
	for slot, hist := range s.slots {
		out[slot] = append([]string(nil), hist...)
	}
	return out
}

// Size returns the configured window length
func (s *SlotSmoother) Size() int {
	return s.window
}
