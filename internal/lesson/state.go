// Package lesson runs a learner through one lesson: question order, wrong
// answer count, session XP, and the pass/fail decision.
package lesson

import "fmt"

// State is one of NotStarted, InProgress, Passed or Failed.
type State interface {
	state()
}

type NotStarted struct{}

type InProgress struct {
	LessonID   string
	QuestionID string
	Index      int
	Total      int
	Wrong      int
	XP         int
	Submitted  bool
	Revealed   bool
}

// Passed is terminal. XP is what the attempt earned and was added to the profile.
type Passed struct {
	LessonID string
	XP       int
	Total    int
}

// Failed is terminal. The attempt's XP is discarded.
type Failed struct {
	LessonID  string
	Wrong     int
	Threshold int
}

func (NotStarted) state() {}
func (InProgress) state() {}
func (Passed) state()     {}
func (Failed) state()     {}

// Terminal reports whether s ends the attempt.
func Terminal(s State) bool {
	switch s.(type) {
	case NotStarted, InProgress:
		return false
	case Passed, Failed:
		return true
	default:
		panic(fmt.Sprintf("lesson: unknown state %T", s))
	}
}

func Describe(s State) string {
	switch v := s.(type) {
	case NotStarted:
		return "not started"
	case InProgress:
		return fmt.Sprintf("question %d of %d, %d wrong, %d XP", v.Index+1, v.Total, v.Wrong, v.XP)
	case Passed:
		return fmt.Sprintf("passed with %d XP", v.XP)
	case Failed:
		return fmt.Sprintf("failed with %d wrong (limit %d)", v.Wrong, v.Threshold)
	default:
		panic(fmt.Sprintf("lesson: unknown state %T", s))
	}
}

// FailThreshold is the wrong-answer count that fails a lesson of total
// questions: max(3, ceil(0.3 * total)).
func FailThreshold(total int) int {
	t := (3*total + 9) / 10
	if t < 3 {
		return 3
	}
	return t
}
