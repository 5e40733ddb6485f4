package tui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/backend/sqltables"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/db"
	"github.com/mind-engage/fungiquest/internal/lesson"
	"github.com/mind-engage/fungiquest/internal/localstore"
	"github.com/mind-engage/fungiquest/internal/schema"
	"github.com/mind-engage/fungiquest/internal/seed"
)

const twoLessons = `
lessons:
  - id: a
    title: Caps and Gills
    questions:
      - text: Spores grow on the...
        xp: 10
        answers:
          - {text: gills, correct: true}
          - {text: volva}
      - text: The ring on a stem is the...
        xp: 15
        answers:
          - {text: volva}
          - {text: annulus, correct: true}
      - text: Hidden threads in the soil are the...
        xp: 20
        answers:
          - {text: mycelium, correct: true}
          - {text: cap}
  - id: b
    title: Amanitas
    questions:
      - text: Death cap?
        answers:
          - {text: phalloides, correct: true}
          - {text: edulis}
`

type fakeAuth struct {
	calls []string
	err   error
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, password string) (*auth.Session, error) {
	f.calls = append(f.calls, "password:"+email+":"+password)
	return &auth.Session{}, f.err
}

func (f *fakeAuth) SignInWithPassphrase(_ context.Context, p string) (*auth.Session, error) {
	f.calls = append(f.calls, "passphrase:"+p)
	return &auth.Session{}, f.err
}

func (f *fakeAuth) RequestMagicLink(_ context.Context, email string) error {
	f.calls = append(f.calls, "otp:"+email)
	return f.err
}

func (f *fakeAuth) VerifyMagicLink(_ context.Context, token string) (*auth.Session, error) {
	f.calls = append(f.calls, "verify:"+token)
	return &auth.Session{}, f.err
}

func (f *fakeAuth) SignOut() { f.calls = append(f.calls, "signout") }

type user string

func (u user) UserID() string { return string(u) }

type harness struct {
	t    *testing.T
	app  *App
	auth *fakeAuth
	deps *Deps
}

var ownPkg = reflect.TypeOf(focusMsg{}).PkgPath()

func newHarness(t *testing.T, signedIn bool) *harness {
	t.Helper()
	return newHarnessWith(t, signedIn, twoLessons)
}

func newHarnessWith(t *testing.T, signedIn bool, lessons string) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })
	store := sqltables.New(dbh, string(db.DriverSQLite))

	f, err := seed.Parse(strings.NewReader(lessons))
	require.NoError(t, err)
	_, err = seed.Apply(context.Background(), store, f.Records())
	require.NoError(t, err)

	var id content.Identity = user("")
	if signedIn {
		id = user("u1")
	}
	c := content.New(store, content.WithIdentity(id))
	fa := &fakeAuth{}
	d := &Deps{
		Auth:    fa,
		Content: c,
		Tracker: lesson.NewTracker(c, localstore.NewMemory(), nil),
	}
	h := &harness{t: t, app: New(d, signedIn), auth: fa, deps: d}
	if signedIn {
		h.run(h.app.Init())
	}
	return h
}

// run feeds each command's message back into the app until the chain ends.
// Messages from other packages (cursor blinks, quit) are dropped.
func (h *harness) run(cmd tea.Cmd) {
	for steps := 0; cmd != nil && steps < 100; steps++ {
		msg := cmd()
		if msg == nil || reflect.TypeOf(msg).PkgPath() != ownPkg {
			return
		}
		_, cmd = h.app.Update(msg)
	}
}

func (h *harness) key(k string) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+l":
		msg = tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := h.app.Update(msg)
	h.run(cmd)
}

func active[T Screen](t *testing.T, h *harness) T {
	t.Helper()
	s, ok := h.app.Active().(T)
	require.True(t, ok, "active screen is %T", h.app.Active())
	return s
}

// answer picks the correct or a wrong answer on the current question.
func (h *harness) answer(correct bool) {
	q := active[*questionScreen](h.t, h)
	for i, a := range q.q.Answers {
		if a.IsCorrect == correct {
			q.cursor = i
			break
		}
	}
	h.key("enter")
}

func TestLoginSubmitDisabledUntilFieldsFilled(t *testing.T) {
	h := newHarness(t, false)
	l := active[*loginScreen](t, h)

	h.key("enter")
	assert.Empty(t, h.auth.calls)
	assert.False(t, l.canSubmit())

	l.inputs[0].SetValue("forager@example.com")
	assert.False(t, l.canSubmit())
	l.inputs[1].SetValue("hunter2")
	assert.True(t, l.canSubmit())

	h.key("enter")
	assert.Equal(t, []string{"password:forager@example.com:hunter2"}, h.auth.calls)
	active[*lessonMapScreen](t, h)
}

func TestLoginFailureStaysOnLogin(t *testing.T) {
	h := newHarness(t, false)
	h.auth.err = errors.New("invalid credentials")
	h.key("ctrl+l")
	l := active[*loginScreen](t, h)
	require.Equal(t, modePassphrase, l.mode)
	l.inputs[0].SetValue("morel season")

	h.key("enter")
	assert.Equal(t, []string{"passphrase:morel season"}, h.auth.calls)
	assert.Contains(t, h.app.View(), "Sign-in failed")
	assert.False(t, l.busy)
}

func TestMagicLinkRequestThenVerify(t *testing.T) {
	h := newHarness(t, false)
	h.key("ctrl+l")
	h.key("ctrl+l")
	l := active[*loginScreen](t, h)
	require.Equal(t, modeMagicLink, l.mode)

	l.inputs[0].SetValue("forager@example.com")
	h.key("enter")
	require.True(t, l.linkSent)
	assert.Empty(t, l.inputs[0].Value())

	l.inputs[0].SetValue("tok-123")
	h.key("enter")
	assert.Equal(t, []string{"otp:forager@example.com", "verify:tok-123"}, h.auth.calls)
	active[*lessonMapScreen](t, h)
}

func TestMapMarksCurrentAndLocked(t *testing.T) {
	h := newHarness(t, true)
	m := active[*lessonMapScreen](t, h)
	require.Len(t, m.path, 2)
	assert.Equal(t, lesson.MarkerCurrent, m.path[0].Marker)
	assert.Equal(t, lesson.MarkerLocked, m.path[1].Marker)
	assert.Equal(t, 45, m.estimate)

	h.key("j")
	h.key("enter")
	active[*lessonMapScreen](t, h)
	assert.Contains(t, h.app.View(), "unlock")
}

func TestPlayLessonToPass(t *testing.T) {
	h := newHarness(t, true)
	h.key("enter")
	q := active[*questionScreen](t, h)
	assert.Contains(t, h.app.View(), "Spores grow on the...")
	assert.Equal(t, lesson.LayoutTextOnly, q.layout)

	h.answer(true)
	assert.Contains(t, h.app.View(), "+10 XP")
	h.key("enter")

	// reveal, then answer correctly: no XP for this one
	h.key("r")
	assert.Contains(t, h.app.View(), "Answer revealed")
	h.answer(true)
	assert.Equal(t, 0, active[*questionScreen](t, h).outcome.Awarded)
	h.key("enter")

	h.answer(true)
	h.key("enter")

	f := active[*finishScreen](t, h)
	require.Equal(t, lesson.Passed{LessonID: "a", XP: 30, Total: 3}, f.state)
	assert.Contains(t, h.app.View(), "Lesson passed")

	h.key("enter")
	m := active[*lessonMapScreen](t, h)
	assert.Equal(t, lesson.MarkerCompleted, m.path[0].Marker)
	assert.Equal(t, lesson.MarkerCurrent, m.path[1].Marker)
	assert.Equal(t, 1, m.cursor)

	p, err := h.deps.Content.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, p.TotalXP)
}

func TestZeroXPQuestionIsNotShownAsRevealed(t *testing.T) {
	h := newHarnessWith(t, true, `
lessons:
  - id: warmup
    title: Warm-up
    questions:
      - text: Ready to forage?
        xp: 0
        answers:
          - {text: yes, correct: true}
          - {text: no}
`)
	h.key("enter")
	active[*questionScreen](t, h)

	h.answer(true)
	view := h.app.View()
	assert.Contains(t, view, "Correct!")
	assert.NotContains(t, view, "revealed")
	assert.NotContains(t, view, "+0 XP")
}

func TestPlayLessonToFail(t *testing.T) {
	h := newHarness(t, true)
	h.key("enter")
	for i := 0; i < 3; i++ {
		h.answer(false)
		assert.Contains(t, h.app.View(), "Not quite.")
		h.key("enter")
	}
	f := active[*finishScreen](t, h)
	assert.Equal(t, lesson.Failed{LessonID: "a", Wrong: 3, Threshold: 3}, f.state)
	assert.Contains(t, h.app.View(), "Lesson failed")

	h.key("t")
	active[*questionScreen](t, h)
	st, err := h.deps.Tracker.State(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, st.(lesson.InProgress).Wrong)
}

func TestLeavingALessonResumesIt(t *testing.T) {
	h := newHarness(t, true)
	h.key("enter")
	h.answer(true)
	h.key("enter")
	h.key("esc")
	active[*lessonMapScreen](t, h)

	h.key("enter")
	q := active[*questionScreen](t, h)
	assert.Equal(t, 1, q.state.Index)
	assert.Equal(t, 10, q.state.XP)
}

func TestRestartDiscardsStoredAttempt(t *testing.T) {
	h := newHarness(t, true)
	h.key("enter")
	h.answer(true)
	h.key("enter")
	h.answer(false)
	h.key("esc")
	active[*lessonMapScreen](t, h)

	h.key("r")
	q := active[*questionScreen](t, h)
	assert.Equal(t, 0, q.state.Index)
	assert.Equal(t, 0, q.state.XP)
	assert.Equal(t, 0, q.state.Wrong)
	assert.Contains(t, h.app.View(), "Spores grow on the...")
}

type brokenStore struct{}

func (brokenStore) Select(context.Context, backend.Query) ([]schema.Record, error) {
	return nil, errors.New("backend down")
}

func (brokenStore) Upsert(context.Context, string, []schema.Record) error {
	return errors.New("backend down")
}

func TestLeaderboardFallsBack(t *testing.T) {
	c := content.New(brokenStore{})
	d := &Deps{Auth: &fakeAuth{}, Content: c, Tracker: lesson.NewTracker(c, localstore.NewMemory(), nil)}
	h := &harness{t: t, app: New(d, true), deps: d}
	h.run(h.app.Init())
	assert.Contains(t, h.app.View(), "Could not load lessons")

	h.key("b")
	active[*leaderboardScreen](t, h)
	assert.Contains(t, h.app.View(), "Ellen P")

	h.key("esc")
	active[*lessonMapScreen](t, h)
}

func TestProfileSavesLocallyWhenSignedOut(t *testing.T) {
	h := newHarness(t, false)
	h.key("esc")
	active[*lessonMapScreen](t, h)

	h.key("p")
	p := active[*profileScreen](t, h)
	assert.Contains(t, h.app.View(), "this device only")
	p.inputs[0].SetValue("Spore Sam")
	p.inputs[2].SetValue("NZ")
	h.key("ctrl+s")
	assert.True(t, p.saved)

	got, err := h.deps.Content.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Spore Sam", got.DisplayName)
	assert.Equal(t, "NZ", got.Country)
}
