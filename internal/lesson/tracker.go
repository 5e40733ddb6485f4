package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/localstore"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/schema"
)

var (
	ErrNoQuestions      = errors.New("this lesson has no questions yet")
	ErrNoSession        = errors.New("lesson not started")
	ErrAlreadySubmitted = errors.New("answer already submitted")
	ErrNotAnswered      = errors.New("answer or reveal the question first")
	ErrSessionOver      = errors.New("no questions left in this session")
)

// Content is what the tracker needs from the data client.
type Content interface {
	ListQuestions(ctx context.Context, f content.QuestionFilter) ([]schema.Question, error)
	GetQuestion(ctx context.Context, id string) (schema.Question, error)
	SubmitAnswer(ctx context.Context, questionID, answerID string) (backend.SubmitResult, error)
	MarkLessonCompleted(ctx context.Context, lessonID string) error
	AddProfileXP(ctx context.Context, delta int) (int, error)
	InvalidateLesson(lessonID string)
}

// session is the JSON kept under lessonSession:<id>. XP lives separately
// under lessonXp:<id>.
type session struct {
	IDs       []string `json:"ids"`
	Index     int      `json:"index"`
	Wrong     int      `json:"wrong"`
	Total     int      `json:"total"`
	Submitted bool     `json:"answered"`
	Revealed  bool     `json:"revealed"`
}

// Tracker keeps lesson sessions in a per-process store. It is meant to be
// driven from one goroutine.
type Tracker struct {
	content Content
	store   localstore.Store
	log     *logger.Logger
}

func NewTracker(c Content, store localstore.Store, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{content: c, store: store, log: log}
}

// Outcome is the result of one Submit.
type Outcome struct {
	backend.SubmitResult
	// Awarded is the XP actually added to the session; zero after a reveal.
	Awarded int
	State   InProgress
}

// Start begins a fresh attempt, replacing any session for lessonID.
func (t *Tracker) Start(ctx context.Context, lessonID string) (InProgress, error) {
	t.content.InvalidateLesson(lessonID)
	qs, err := t.content.ListQuestions(ctx, content.QuestionFilter{LessonID: lessonID})
	if err != nil {
		return InProgress{}, err
	}
	if len(qs) == 0 {
		return InProgress{}, ErrNoQuestions
	}
	s := session{IDs: make([]string, 0, len(qs)), Total: len(qs)}
	for _, q := range qs {
		s.IDs = append(s.IDs, q.ID)
	}
	if err := t.save(ctx, lessonID, s); err != nil {
		return InProgress{}, err
	}
	if err := localstore.SetInt(ctx, t.store, localstore.XPKey(lessonID), 0); err != nil {
		return InProgress{}, err
	}
	t.log.Info("lesson started", "lesson", lessonID, "questions", s.Total)
	return t.inProgress(lessonID, s, 0), nil
}

// Resume returns the stored attempt for lessonID, or NotStarted.
func (t *Tracker) Resume(ctx context.Context, lessonID string) (State, error) {
	return t.State(ctx, lessonID)
}

func (t *Tracker) State(ctx context.Context, lessonID string) (State, error) {
	s, ok, err := t.load(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NotStarted{}, nil
	}
	xp, err := localstore.GetInt(ctx, t.store, localstore.XPKey(lessonID))
	if err != nil {
		return nil, err
	}
	return t.inProgress(lessonID, s, xp), nil
}

// Current returns the question at the session's index.
func (t *Tracker) Current(ctx context.Context, lessonID string) (schema.Question, error) {
	s, err := t.mustLoad(ctx, lessonID)
	if err != nil {
		return schema.Question{}, err
	}
	if s.Index >= len(s.IDs) {
		return schema.Question{}, ErrSessionOver
	}
	return t.content.GetQuestion(ctx, s.IDs[s.Index])
}

// Submit grades answerID for the current question. A correct answer adds the
// question's XP unless the answer was revealed first; a wrong answer counts
// against the fail threshold either way.
func (t *Tracker) Submit(ctx context.Context, lessonID, answerID string) (Outcome, error) {
	s, err := t.mustLoad(ctx, lessonID)
	if err != nil {
		return Outcome{}, err
	}
	if s.Index >= len(s.IDs) {
		return Outcome{}, ErrSessionOver
	}
	if s.Submitted {
		return Outcome{}, ErrAlreadySubmitted
	}
	res, err := t.content.SubmitAnswer(ctx, s.IDs[s.Index], answerID)
	if err != nil {
		return Outcome{}, err
	}
	xp, err := localstore.GetInt(ctx, t.store, localstore.XPKey(lessonID))
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{SubmitResult: res}
	if res.IsCorrect {
		if !s.Revealed {
			out.Awarded = res.XPEarned
		}
	} else {
		s.Wrong++
	}
	s.Submitted = true
	if out.Awarded > 0 {
		xp += out.Awarded
		if err := localstore.SetInt(ctx, t.store, localstore.XPKey(lessonID), xp); err != nil {
			return Outcome{}, err
		}
	}
	if err := t.save(ctx, lessonID, s); err != nil {
		return Outcome{}, err
	}
	out.State = t.inProgress(lessonID, s, xp)
	return out, nil
}

// Reveal marks the current question as seen and returns its correct answer
// id ("" when none is flagged). No XP can be earned on it afterwards.
func (t *Tracker) Reveal(ctx context.Context, lessonID string) (string, error) {
	s, err := t.mustLoad(ctx, lessonID)
	if err != nil {
		return "", err
	}
	if s.Index >= len(s.IDs) {
		return "", ErrSessionOver
	}
	q, err := t.content.GetQuestion(ctx, s.IDs[s.Index])
	if err != nil {
		return "", err
	}
	s.Revealed = true
	if err := t.save(ctx, lessonID, s); err != nil {
		return "", err
	}
	ca, _ := q.CorrectAnswer()
	return ca.ID, nil
}

// Advance applies the fail check and moves to the next question. It returns
// Failed or Passed when the attempt ends, InProgress otherwise. Ending an
// attempt clears its session; passing also credits the profile and marks
// the lesson completed.
func (t *Tracker) Advance(ctx context.Context, lessonID string) (State, error) {
	s, err := t.mustLoad(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !s.Submitted && !s.Revealed {
		return nil, ErrNotAnswered
	}
	xp, err := localstore.GetInt(ctx, t.store, localstore.XPKey(lessonID))
	if err != nil {
		return nil, err
	}

	if limit := FailThreshold(s.Total); s.Wrong >= limit {
		if err := t.end(ctx, lessonID); err != nil {
			return nil, err
		}
		t.log.Info("lesson failed", "lesson", lessonID, "wrong", s.Wrong, "limit", limit)
		return Failed{LessonID: lessonID, Wrong: s.Wrong, Threshold: limit}, nil
	}

	s.Index++
	if s.Index >= s.Total {
		if _, err := t.content.AddProfileXP(ctx, xp); err != nil {
			t.log.Warn("lesson passed: profile xp not updated", "lesson", lessonID, "error", err)
		}
		if err := t.content.MarkLessonCompleted(ctx, lessonID); err != nil {
			t.log.Warn("lesson passed: completion not recorded", "lesson", lessonID, "error", err)
		}
		if err := t.end(ctx, lessonID); err != nil {
			return nil, err
		}
		t.log.Info("lesson passed", "lesson", lessonID, "xp", xp)
		return Passed{LessonID: lessonID, XP: xp, Total: s.Total}, nil
	}

	s.Submitted, s.Revealed = false, false
	if err := t.save(ctx, lessonID, s); err != nil {
		return nil, err
	}
	return t.inProgress(lessonID, s, xp), nil
}

// Abandon drops the session without any writes.
func (t *Tracker) Abandon(ctx context.Context, lessonID string) error {
	return t.end(ctx, lessonID)
}

func (t *Tracker) end(ctx context.Context, lessonID string) error {
	if err := t.store.Delete(ctx, localstore.SessionKey(lessonID)); err != nil {
		return err
	}
	if err := t.store.Delete(ctx, localstore.XPKey(lessonID)); err != nil {
		return err
	}
	t.content.InvalidateLesson(lessonID)
	return nil
}

func (t *Tracker) inProgress(lessonID string, s session, xp int) InProgress {
	st := InProgress{
		LessonID:  lessonID,
		Index:     s.Index,
		Total:     s.Total,
		Wrong:     s.Wrong,
		XP:        xp,
		Submitted: s.Submitted,
		Revealed:  s.Revealed,
	}
	if s.Index < len(s.IDs) {
		st.QuestionID = s.IDs[s.Index]
	}
	return st
}

func (t *Tracker) mustLoad(ctx context.Context, lessonID string) (session, error) {
	s, ok, err := t.load(ctx, lessonID)
	if err != nil {
		return session{}, err
	}
	if !ok {
		return session{}, ErrNoSession
	}
	return s, nil
}

func (t *Tracker) load(ctx context.Context, lessonID string) (session, bool, error) {
	raw, ok, err := t.store.Get(ctx, localstore.SessionKey(lessonID))
	if err != nil || !ok {
		return session{}, false, err
	}
	var s session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.log.Warn("discarding unreadable lesson session", "lesson", lessonID, "error", err)
		return session{}, false, nil
	}
	if s.Total == 0 {
		s.Total = len(s.IDs)
	}
	return s, true, nil
}

func (t *Tracker) save(ctx context.Context, lessonID string, s session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return t.store.Set(ctx, localstore.SessionKey(lessonID), string(b))
}
