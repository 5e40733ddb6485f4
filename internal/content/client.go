// Package content reads and writes lessons, questions, answers, progress and
// profiles through a backend.Store, normalizing every row on the way in.
// The client app and the gateway's function endpoints share it.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/localstore"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/schema"
)

// DefaultLessonXP is the estimate for a lesson with no award and no question XP.
const DefaultLessonXP = 100

// Identity reports the signed-in user, "" when nobody is.
type Identity interface {
	UserID() string
}

type anonymous struct{}

func (anonymous) UserID() string { return "" }

// Grader grades answers somewhere other than the client, e.g. the gateway's
// submit endpoint.
type Grader interface {
	SubmitAnswer(ctx context.Context, questionID, answerID string) (backend.SubmitResult, error)
}

type Client struct {
	store  backend.Store
	norm   *schema.Normalizer
	cache  *Cache
	sf     singleflight.Group
	id     Identity
	local  localstore.Store
	log    *logger.Logger
	intn   func(n int) int
	grader Grader
}

type Option func(*Client)

func WithIdentity(id Identity) Option { return func(c *Client) { c.id = id } }

// WithLocal sets the device store used when signed out or when the backend
// cannot be reached.
func WithLocal(s localstore.Store) Option { return func(c *Client) { c.local = s } }

func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

func WithNormalizer(n *schema.Normalizer) Option { return func(c *Client) { c.norm = n } }

// WithRand replaces the random index source used by RandomQuestion.
func WithRand(intn func(n int) int) Option { return func(c *Client) { c.intn = intn } }

func WithGrader(g Grader) Option { return func(c *Client) { c.grader = g } }

func New(store backend.Store, opts ...Option) *Client {
	c := &Client{
		store: store,
		norm:  schema.Default,
		cache: NewCache(),
		id:    anonymous{},
		local: localstore.NewMemory(),
		log:   logger.Nop(),
		intn:  rand.Intn,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Cache() *Cache { return c.cache }

// InvalidateLesson forgets the cached questions of lessonID. Lesson sessions
// call it when they start and end.
func (c *Client) InvalidateLesson(lessonID string) { c.cache.InvalidateLesson(lessonID) }

func (c *Client) UserID() string { return c.id.UserID() }

// ---- lessons ----

// ListLessons returns every lesson sorted by ordering key, unknown order last.
// The first successful result is kept; callers racing before it share one
// request.
func (c *Client) ListLessons(ctx context.Context) ([]schema.Lesson, error) {
	if ls, ok := c.cache.Lessons(); ok {
		return ls, nil
	}
	// The shared fetch outlives any one caller's cancellation.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do("lessons", func() (any, error) {
		if ls, ok := c.cache.Lessons(); ok {
			return ls, nil
		}
		gen := c.cache.Generation()
		rows, err := c.store.Select(fctx, *backend.From(backend.TableLessons))
		if err != nil {
			return nil, fmt.Errorf("list lessons: %w", err)
		}
		ls := make([]schema.Lesson, 0, len(rows))
		for _, r := range rows {
			ls = append(ls, c.norm.Lesson(r))
		}
		schema.SortLessons(ls)
		if !c.cache.SetLessons(gen, ls) {
			c.log.Debug("list lessons: cache invalidated during fetch, result not kept")
		}
		return ls, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]schema.Lesson(nil), v.([]schema.Lesson)...), nil
}

func (c *Client) GetLesson(ctx context.Context, id string) (schema.Lesson, error) {
	if ls, ok := c.cache.Lessons(); ok {
		for _, l := range ls {
			if l.ID == id {
				return l, nil
			}
		}
	}
	rows, err := c.store.Select(ctx, *backend.From(backend.TableLessons).WhereEq("lesson_id", id).Take(1))
	if err != nil {
		return schema.Lesson{}, fmt.Errorf("get lesson %s: %w", id, err)
	}
	if len(rows) == 0 {
		return schema.Lesson{}, apierr.NotFound("lesson")
	}
	return c.norm.Lesson(rows[0]), nil
}

// EstimateLessonXP is the lesson's fixed award if it has one, else the sum
// of its questions' XP, else DefaultLessonXP.
func (c *Client) EstimateLessonXP(ctx context.Context, lessonID string) int {
	if l, err := c.GetLesson(ctx, lessonID); err == nil && l.XPAward != nil {
		return *l.XPAward
	}
	qs, err := c.ListQuestions(ctx, QuestionFilter{LessonID: lessonID})
	if err != nil {
		return DefaultLessonXP
	}
	sum := 0
	for _, q := range qs {
		sum += q.XP
	}
	if sum == 0 {
		return DefaultLessonXP
	}
	return sum
}

// ---- questions ----

type QuestionFilter struct {
	LessonID string
	Type     string
}

// ListQuestions returns normalized questions with their answers attached.
// Lists filtered by lesson only are cached per lesson.
func (c *Client) ListQuestions(ctx context.Context, f QuestionFilter) ([]schema.Question, error) {
	cacheable := f.LessonID != "" && f.Type == ""
	if cacheable {
		if qs, ok := c.cache.LessonQuestions(f.LessonID); ok {
			return qs, nil
		}
	}
	gen := c.cache.Generation()
	q := backend.From(backend.TableQuestions)
	if f.LessonID != "" {
		q.WhereEq("lesson_id", f.LessonID)
	}
	if f.Type != "" {
		q.WhereEq("question_type", f.Type)
	}
	rows, err := c.store.Select(ctx, *q)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	qs := make([]schema.Question, 0, len(rows))
	for _, r := range rows {
		qs = append(qs, c.norm.Question(r))
	}
	if err := c.attachAnswers(ctx, qs); err != nil {
		return nil, err
	}
	c.cache.PutQuestions(gen, qs...)
	if cacheable {
		c.cache.SetLessonQuestions(gen, f.LessonID, qs)
	}
	return qs, nil
}

// GetQuestion looks in the cache before asking the backend.
func (c *Client) GetQuestion(ctx context.Context, id string) (schema.Question, error) {
	if q, ok := c.cache.Question(id); ok {
		return q, nil
	}
	gen := c.cache.Generation()
	rows, err := c.store.Select(ctx, *backend.From(backend.TableQuestions).WhereEq("id", id).Take(1))
	if err != nil {
		return schema.Question{}, fmt.Errorf("get question %s: %w", id, err)
	}
	if len(rows) == 0 {
		return schema.Question{}, apierr.NotFound("question")
	}
	qs := []schema.Question{c.norm.Question(rows[0])}
	if err := c.attachAnswers(ctx, qs); err != nil {
		return schema.Question{}, err
	}
	c.cache.PutQuestions(gen, qs[0])
	return qs[0], nil
}

// RandomQuestion picks uniformly from the questions matching f.
func (c *Client) RandomQuestion(ctx context.Context, f QuestionFilter) (schema.Question, error) {
	qs, err := c.ListQuestions(ctx, f)
	if err != nil {
		return schema.Question{}, err
	}
	if len(qs) == 0 {
		return schema.Question{}, apierr.NotFound("question")
	}
	return qs[c.intn(len(qs))], nil
}

// attachAnswers loads answers for qs in one query and sets them in display order.
func (c *Client) attachAnswers(ctx context.Context, qs []schema.Question) error {
	if len(qs) == 0 {
		return nil
	}
	ids := make([]any, 0, len(qs))
	for _, q := range qs {
		if q.ID != "" {
			ids = append(ids, q.ID)
		}
	}
	rows, err := c.store.Select(ctx, *backend.From(backend.TableAnswers).WhereIn("question_id", ids))
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}
	byQuestion := map[string][]schema.Answer{}
	for _, r := range rows {
		a := c.norm.Answer(r)
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}
	for i := range qs {
		as := byQuestion[qs[i].ID]
		if as == nil {
			as = []schema.Answer{}
		}
		schema.SortAnswers(as)
		qs[i].Answers = as
	}
	return nil
}

// SubmitAnswer grades answerID against the question's answers. The result
// depends only on the stored data, so repeating a call repeats the outcome.
func (c *Client) SubmitAnswer(ctx context.Context, questionID, answerID string) (backend.SubmitResult, error) {
	if c.grader != nil {
		return c.grader.SubmitAnswer(ctx, questionID, answerID)
	}
	q, err := c.GetQuestion(ctx, questionID)
	if err != nil {
		return backend.SubmitResult{}, err
	}
	return Grade(q, answerID)
}

// Grade checks answerID against q without touching the backend.
func Grade(q schema.Question, answerID string) (backend.SubmitResult, error) {
	sel, ok := q.Answer(answerID)
	if !ok {
		return backend.SubmitResult{}, apierr.NotFound("answer")
	}
	res := backend.SubmitResult{IsCorrect: sel.IsCorrect}
	if sel.IsCorrect {
		res.XPEarned = q.XP
	}
	if ca, ok := q.CorrectAnswer(); ok {
		res.CorrectAnswerID = ca.ID
	}
	return res, nil
}

// ---- progress ----

// CompletedLessons is the set of lessons the current user has passed. When
// signed out, or when the backend fails, the device's local set is used.
func (c *Client) CompletedLessons(ctx context.Context) (map[string]bool, error) {
	uid := c.id.UserID()
	if uid == "" {
		return c.localCompleted(ctx)
	}
	q := backend.From(backend.TableProgress).WhereEq("user_id", uid).WhereEq("completed", true)
	rows, err := c.store.Select(ctx, *q)
	if err != nil {
		c.log.Warn("completed lessons: using local set", "user", uid, "error", err)
		return c.localCompleted(ctx)
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		p := c.norm.Progress(r)
		if p.LessonID != "" {
			out[p.LessonID] = true
		}
	}
	return out, nil
}

// MarkLessonCompleted records lessonID remotely when signed in and always in
// the local set. A remote failure is logged and otherwise ignored.
func (c *Client) MarkLessonCompleted(ctx context.Context, lessonID string) error {
	if uid := c.id.UserID(); uid != "" {
		rec := schema.Record{"user_id": uid, "lesson_id": lessonID, "completed": true}
		if err := c.store.Upsert(ctx, backend.TableProgress, []schema.Record{rec}); err != nil {
			c.log.Warn("mark lesson completed: remote write failed", "user", uid, "lesson", lessonID, "error", err)
		}
	}
	set, err := c.localCompleted(ctx)
	if err != nil {
		return err
	}
	if set[lessonID] {
		return nil
	}
	set[lessonID] = true
	return c.saveLocalCompleted(ctx, set)
}

func (c *Client) localCompleted(ctx context.Context) (map[string]bool, error) {
	raw, ok, err := c.local.Get(ctx, localstore.KeyCompletedLessons)
	if err != nil {
		return nil, fmt.Errorf("read local progress: %w", err)
	}
	out := map[string]bool{}
	if !ok {
		return out, nil
	}
	var ids []any
	if json.Unmarshal([]byte(raw), &ids) != nil {
		c.log.Warn("local progress unreadable, starting empty")
		return out, nil
	}
	for _, id := range ids {
		if s := fmt.Sprint(id); s != "" {
			out[s] = true
		}
	}
	return out, nil
}

func (c *Client) saveLocalCompleted(ctx context.Context, set map[string]bool) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b, _ := json.Marshal(ids)
	return c.local.Set(ctx, localstore.KeyCompletedLessons, string(b))
}

// LessonMap loads the lesson list and the completed set together.
func (c *Client) LessonMap(ctx context.Context) ([]schema.Lesson, map[string]bool, error) {
	var (
		lessons []schema.Lesson
		done    map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lessons, err = c.ListLessons(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		done, err = c.CompletedLessons(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lessons, done, nil
}
