// Package tui is the terminal view layer: a stack of bubbletea screens over
// the content client and the lesson tracker.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/lesson"
	"github.com/mind-engage/fungiquest/internal/logger"
)

// Authenticator is the sign-in surface of the backend client.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	SignInWithPassphrase(ctx context.Context, passphrase string) (*auth.Session, error)
	RequestMagicLink(ctx context.Context, email string) error
	VerifyMagicLink(ctx context.Context, token string) (*auth.Session, error)
	SignOut()
}

type Deps struct {
	Ctx     context.Context
	Auth    Authenticator
	Content *content.Client
	Tracker *lesson.Tracker
	Log     *logger.Logger
}

// Screen is one page of the app.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Title() string
	Hints() string
}

type (
	pushMsg    struct{ s Screen }
	popMsg     struct{}
	replaceMsg struct{ s Screen }
	resetMsg   struct{ s Screen }
	// focusMsg is delivered to a screen when it becomes active again.
	focusMsg struct{}
)

func push(s Screen) tea.Cmd    { return func() tea.Msg { return pushMsg{s} } }
func pop() tea.Cmd             { return func() tea.Msg { return popMsg{} } }
func replace(s Screen) tea.Cmd { return func() tea.Msg { return replaceMsg{s} } }
func reset(s Screen) tea.Cmd   { return func() tea.Msg { return resetMsg{s} } }

type App struct {
	deps   *Deps
	stack  []Screen
	width  int
	height int
}

// New starts on the lesson map when a user is already signed in, on the
// login screen otherwise.
func New(d *Deps, signedIn bool) *App {
	if d.Ctx == nil {
		d.Ctx = context.Background()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	var first Screen = newLogin(d)
	if signedIn {
		first = newLessonMap(d)
	}
	return &App{deps: d, stack: []Screen{first}, width: 80, height: 24}
}

func (a *App) Active() Screen { return a.stack[len(a.stack)-1] }

func (a *App) Depth() int { return len(a.stack) }

func (a *App) Init() tea.Cmd { return a.Active().Init() }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case pushMsg:
		a.stack = append(a.stack, msg.s)
		return a, msg.s.Init()
	case popMsg:
		if len(a.stack) > 1 {
			a.stack = a.stack[:len(a.stack)-1]
		}
		return a, func() tea.Msg { return focusMsg{} }
	case replaceMsg:
		a.stack[len(a.stack)-1] = msg.s
		return a, msg.s.Init()
	case resetMsg:
		a.stack = []Screen{msg.s}
		return a, msg.s.Init()
	}
	s, cmd := a.Active().Update(msg)
	a.stack[len(a.stack)-1] = s
	return a, cmd
}

func (a *App) View() string {
	s := a.Active()
	header := theme.Header.Render("🍄 FungiQuest · " + s.Title())
	if uid := a.deps.Content.UserID(); uid == "" {
		header += theme.Muted.Render("  guest")
	}
	body := s.View(a.width, a.height-3)
	footer := theme.Footer.Render(s.Hints() + " · ctrl+c quit")
	return strings.Join([]string{header, body, footer}, "\n")
}
