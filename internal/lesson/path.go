package lesson

import "github.com/mind-engage/fungiquest/internal/schema"

type Marker int

const (
	MarkerLocked Marker = iota
	MarkerCurrent
	MarkerCompleted
)

func (m Marker) String() string {
	switch m {
	case MarkerCompleted:
		return "completed"
	case MarkerCurrent:
		return "current"
	case MarkerLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Symbol is the glyph drawn on the lesson map.
func (m Marker) Symbol() string {
	switch m {
	case MarkerCompleted:
		return "✓"
	case MarkerCurrent:
		return "▶"
	default:
		return "●"
	}
}

type Stop struct {
	Lesson schema.Lesson
	Marker Marker
}

// Playable reports whether the learner may start this stop.
func (s Stop) Playable() bool { return s.Marker != MarkerLocked }

// BuildPath marks each lesson, in the given order: completed lessons are
// completed, the first other lesson is current, the rest are locked.
func BuildPath(lessons []schema.Lesson, completed map[string]bool) []Stop {
	out := make([]Stop, 0, len(lessons))
	haveCurrent := false
	for _, l := range lessons {
		m := MarkerLocked
		switch {
		case completed[l.ID]:
			m = MarkerCompleted
		case !haveCurrent:
			m, haveCurrent = MarkerCurrent, true
		}
		out = append(out, Stop{Lesson: l, Marker: m})
	}
	return out
}

// CurrentIndex is the index of the current stop, or of the last stop when
// every lesson is completed. It is -1 for an empty path.
func CurrentIndex(path []Stop) int {
	for i, s := range path {
		if s.Marker == MarkerCurrent {
			return i
		}
	}
	return len(path) - 1
}
