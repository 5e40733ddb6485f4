package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/fungiquest/internal/api/http"
	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/backend/rest"
	"github.com/mind-engage/fungiquest/internal/backend/sqltables"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/db"
	"github.com/mind-engage/fungiquest/internal/events"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/schema"
	"github.com/mind-engage/fungiquest/internal/storage"
)

const (
	apiKey    = "anon-test-key"
	adminUser = "admin@fungiquest.local"
	adminPass = "root-pass"
)

type gateway struct {
	srv    *httptest.Server
	events *events.Log
	mail   *captureMailer
}

type captureMailer struct{ links []string }

func (m *captureMailer) SendMagicLink(_ context.Context, _, link string) error {
	m.links = append(m.links, link)
	return nil
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	require.NoError(t, err)
	svc := auth.NewAuthService("test-secret", time.Hour)

	blobs, err := storage.NewFSStore(t.TempDir(), "http://assets.test")
	require.NoError(t, err)

	store := sqltables.New(dbh, string(db.DriverSQLite))
	ev := events.NewLog(dbh, "test")
	mail := &captureMailer{}
	ah := &auth.Handlers{
		Svc:           svc,
		Users:         auth.NewUserStore(dbh, bcrypt.MinCost),
		Links:         auth.NewMagicLinks(dbh, time.Minute, nil),
		Mailer:        mail,
		Log:           logger.Nop(),
		AdminUser:     adminUser,
		AdminPassHash: string(hash),
	}
	h := api.NewRouter(api.Deps{
		Store:   store,
		Content: content.New(store),
		Auth:    ah,
		APIKey:  apiKey,
		Blobs:   blobs,
		Events:  ev,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ah.PublicURL = srv.URL
	return &gateway{srv: srv, events: ev, mail: mail}
}

func (g *gateway) client() *rest.Client { return rest.New(g.srv.URL, apiKey, g.srv.Client()) }

func (g *gateway) admin(t *testing.T) *rest.Client {
	t.Helper()
	c := g.client()
	_, err := c.SignInWithPassword(context.Background(), adminUser, adminPass)
	require.NoError(t, err)
	return c
}

func seedContent(t *testing.T, c *rest.Client) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, backend.TableLessons, []schema.Record{
		{"lesson_id": "L2", "title": "Boletes", "order_index": 2},
		{"lesson_id": "L1", "title": "Amanitas", "order_index": 1},
	}))
	require.NoError(t, c.Upsert(ctx, backend.TableQuestions, []schema.Record{
		{"id": "q1", "lesson_id": "L1", "question_type": "4_txt_only", "question_text": "Which is the death cap?", "xp": 20},
	}))
	require.NoError(t, c.Upsert(ctx, backend.TableAnswers, []schema.Record{
		{"id": "a1", "question_id": "q1", "answer_text": "Amanita phalloides", "is_correct": true, "order_index": 1},
		{"id": "a2", "question_id": "q1", "answer_text": "Boletus edulis", "is_correct": false, "order_index": 2},
	}))
}

func getJSON(t *testing.T, g *gateway, path string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, g.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := g.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthIsPublic(t *testing.T) {
	g := newGateway(t)
	resp, err := http.Get(g.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRestClientHealth(t *testing.T) {
	g := newGateway(t)
	require.NoError(t, g.client().Health(context.Background()))

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	err := rest.New(dead.URL, apiKey, nil).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindTransient, apierr.KindOf(err))
}

func TestMagicLinkOpensWithGet(t *testing.T) {
	g := newGateway(t)
	resp, err := http.Post(g.srv.URL+"/auth/v1/otp", "application/json", strings.NewReader(`{"email":"Spore@Example.com"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, g.mail.links, 1)
	link := g.mail.links[0]
	assert.True(t, strings.HasPrefix(link, g.srv.URL+"/auth/v1/verify?token="), link)

	resp, err = http.Get(link)
	require.NoError(t, err)
	var s auth.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, s.AccessToken)
	assert.Equal(t, "spore@example.com", s.User.Email)

	resp, err = http.Get(link)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFunctionsRequireBearer(t *testing.T) {
	g := newGateway(t)
	resp, err := http.Get(g.srv.URL + "/lessons")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestContentRoundTripThroughRestClient(t *testing.T) {
	g := newGateway(t)
	seedContent(t, g.admin(t))

	c := content.New(g.client())
	ls, err := c.ListLessons(context.Background())
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Equal(t, "L1", ls[0].ID)
	assert.Equal(t, "Amanitas", ls[0].Title)

	qs, err := c.ListQuestions(context.Background(), content.QuestionFilter{LessonID: "L1"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, 20, qs[0].XP)
	require.Len(t, qs[0].Answers, 2)
	assert.True(t, qs[0].Answers[0].IsCorrect)
}

func TestAnonCannotWriteContent(t *testing.T) {
	g := newGateway(t)
	err := g.client().Upsert(context.Background(), backend.TableLessons, []schema.Record{{"lesson_id": "x", "title": "x"}})
	require.Error(t, err)
	assert.Equal(t, apierr.KindForbidden, apierr.KindOf(err))
}

func TestLearnerWritesOnlyOwnRows(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()
	c := g.client()
	s, err := c.SignInWithPassphrase(ctx, "Chanterelle Morning Walk")
	require.NoError(t, err)
	me := s.User.ID

	require.NoError(t, c.Upsert(ctx, backend.TableProgress, []schema.Record{
		{"user_id": me, "lesson_id": "L1", "completed": true},
	}))
	err = c.Upsert(ctx, backend.TableProgress, []schema.Record{
		{"user_id": "someone-else", "lesson_id": "L1", "completed": true},
	})
	assert.Equal(t, apierr.KindForbidden, apierr.KindOf(err))

	rows, err := c.Select(ctx, *backend.From(backend.TableProgress).WhereEq("user_id", me))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	p := schema.Default.Progress(rows[0])
	assert.True(t, p.Completed)
	assert.NotEmpty(t, rows[0]["updated_at"])

	es, err := g.events.Since(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, events.TypeProgress, es[0].Type)
	assert.Equal(t, me+"/L1", es[0].Key)
}

func TestSelectRejectsUnknownColumnsAndTables(t *testing.T) {
	g := newGateway(t)
	var env apierr.ErrorEnvelope
	assert.Equal(t, http.StatusBadRequest, getJSON(t, g, "/rest/v1/lessons?secret=eq.1", &env))
	assert.Contains(t, env.Error.Message, "unknown column")
	assert.Equal(t, http.StatusNotFound, getJSON(t, g, "/rest/v1/users", nil))
}

func TestQuestionEndpoints(t *testing.T) {
	g := newGateway(t)
	seedContent(t, g.admin(t))

	var lessons struct {
		Lessons []schema.Lesson `json:"lessons"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, g, "/lessons", &lessons))
	assert.Len(t, lessons.Lessons, 2)

	var one struct {
		Question schema.Question `json:"question"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, g, "/questions/random?lessonId=L1", &one))
	assert.Equal(t, "q1", one.Question.ID)

	var env apierr.ErrorEnvelope
	assert.Equal(t, http.StatusNotFound, getJSON(t, g, "/questions/random?lessonId=L2", &env))
	assert.Equal(t, "No questions found", env.Error.Message)
	assert.Equal(t, http.StatusNotFound, getJSON(t, g, "/questions/nope", nil))

	res, err := g.client().SubmitAnswer(context.Background(), "q1", "a2")
	require.NoError(t, err)
	assert.Equal(t, backend.SubmitResult{IsCorrect: false, XPEarned: 0, CorrectAnswerID: "a1"}, res)

	res, err = g.client().SubmitAnswer(context.Background(), "q1", "a1")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 20, res.XPEarned)

	_, err = g.client().SubmitAnswer(context.Background(), "q1", "zzz")
	assert.True(t, apierr.IsNotFound(err))
}

func TestContentWriteInvalidatesGatewayCache(t *testing.T) {
	g := newGateway(t)
	admin := g.admin(t)
	seedContent(t, admin)

	var lessons struct {
		Lessons []schema.Lesson `json:"lessons"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, g, "/lessons", &lessons))
	require.Len(t, lessons.Lessons, 2)

	require.NoError(t, admin.Upsert(context.Background(), backend.TableLessons, []schema.Record{
		{"lesson_id": "L3", "title": "Chanterelles", "order_index": 3},
	}))
	require.Equal(t, http.StatusOK, getJSON(t, g, "/lessons", &lessons))
	assert.Len(t, lessons.Lessons, 3)
}

func TestAssetsUploadIsAdminOnly(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()
	put := func(bearer string) int {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.srv.URL+"/assets/mushrooms/cap.png", strings.NewReader("PNGDATA"))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+bearer)
		resp, err := g.srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusForbidden, put(apiKey))
	assert.Equal(t, http.StatusCreated, put(g.admin(t).Session().AccessToken))

	resp, err := http.Get(g.srv.URL + "/assets/mushrooms/cap.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "PNGDATA", string(body))

	resp2, err := http.Get(g.srv.URL + "/assets/missing.png")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestAdminEventsListing(t *testing.T) {
	g := newGateway(t)
	admin := g.admin(t)
	seedContent(t, admin)

	var out struct {
		Events []events.Event `json:"events"`
	}
	assert.Equal(t, http.StatusForbidden, getJSON(t, g, "/admin/events", nil))

	req, err := http.NewRequest(http.MethodGet, g.srv.URL+"/admin/events?after=0&limit=2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin.Session().AccessToken)
	resp, err := g.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Events, 2)
	assert.Equal(t, events.TypeContent, out.Events[0].Type)
	assert.Less(t, out.Events[0].Seq, out.Events[1].Seq)
}
