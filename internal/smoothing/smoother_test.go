package smoothing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserve_Stability(t *testing.T) {
	s := New(5)
	want := []string{"A", "A", "A", "A", "A"}
	for i, l := range []string{"A", "A", "A", "B", "B"} {
		assert.Equal(t, want[i], s.Observe(0, l), "after input %d", i+1)
	}
}

func TestObserve_WindowEviction(t *testing.T) {
	s := New(5)
	var got string
	for _, l := range []string{"A", "A", "A", "B", "B", "B"} {
		got = s.Observe(0, l)
	}

	assert.Equal(t, []string{"A", "A", "B", "B", "B"}, s.Window(0))
	assert.Equal(t, "B", got)

	for i := 0; i < 7; i++ {
		s.Observe(1, fmt.Sprintf("l%d", i))
	}
	assert.Equal(t, []string{"l2", "l3", "l4", "l5", "l6"}, s.Window(1))
}

func TestObserve_TieBreakDeterministic(t *testing.T) {
	for run := 0; run < 20; run++ {
		s := New(5)
		s.Observe(0, "A")
		assert.Equal(t, "A", s.Observe(0, "B"))
	}
}

func TestObserve_TieBreakFirstSeenWins(t *testing.T) {
	tests := []struct {
		name    string
		history []string
		want    string
	}{
		{"single", []string{"neutral"}, "neutral"},
		{"earliest of tie", []string{"a", "b", "a", "b"}, "a"},
		{"later majority", []string{"a", "b", "b"}, "b"},
		{"three way tie", []string{"x", "y", "z"}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(5)
			var got string
			for _, l := range tt.history {
				got = s.Observe(0, l)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObserve_SlotIndependence(t *testing.T) {
	s := New(5)
	s.Observe(0, "happy")
	s.Observe(0, "happy")

	assert.Equal(t, "angry", s.Observe(1, "angry"))
	assert.Equal(t, []string{"happy", "happy"}, s.Window(0))
	assert.Equal(t, []string{"angry"}, s.Window(1))
}

func TestObserve_SlotIndependenceInterleaved(t *testing.T) {
	seq := []string{"sad", "happy", "sad", "fear", "happy", "happy"}

	alone := New(5)
	var want []string
	for _, l := range seq {
		want = append(want, alone.Observe(1, l))
	}

	mixed := New(5)
	var got []string
	for i, l := range seq {
		mixed.Observe(0, "angry")
		if i%2 == 0 {
			mixed.Observe(0, "neutral")
		}
		got = append(got, mixed.Observe(1, l))
	}

	assert.Equal(t, want, got)
}

func TestReset(t *testing.T) {
	s := New(3)
	s.Observe(0, "a")
	s.Observe(2, "b")

	s.Reset()

	assert.Empty(t, s.Window(0))
	assert.Empty(t, s.Windows())
	assert.Equal(t, "c", s.Observe(0, "c"))
}

func TestNew_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, New(0).Size())
}

func TestWindow_ReturnsCopy(t *testing.T) {
	s := New(5)
	s.Observe(0, "a")

	w := s.Window(0)
	w[0] = "mutated"
	assert.Equal(t, []string{"a"}, s.Window(0))
}
