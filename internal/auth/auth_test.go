package auth_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/db"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/rbac"
)

type captureMailer struct{ links []string }

func (m *captureMailer) SendMagicLink(_ context.Context, _ string, link string) error {
	m.links = append(m.links, link)
	return nil
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func newHandlers(t *testing.T) (*auth.Handlers, *captureMailer) {
	t.Helper()
	dbh := openDB(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("root-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	m := &captureMailer{}
	return &auth.Handlers{
		Svc:           auth.NewAuthService("test-secret", time.Hour),
		Users:         auth.NewUserStore(dbh, bcrypt.MinCost),
		Links:         auth.NewMagicLinks(dbh, time.Minute, nil),
		Mailer:        m,
		Log:           logger.Nop(),
		PublicURL:     "http://localhost:8080",
		AdminUser:     "admin@fungiquest.local",
		AdminPassHash: string(hash),
	}, m
}

func post(t *testing.T, h http.HandlerFunc, target string, body any) (*httptest.ResponseRecorder, auth.Session) {
	t.Helper()
	buf, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, bytes.NewReader(buf)))
	var s auth.Session
	if rec.Code == http.StatusOK {
		_ = json.NewDecoder(rec.Body).Decode(&s)
	}
	return rec, s
}

func TestSignupThenPasswordLogin(t *testing.T) {
	h, _ := newHandlers(t)
	creds := auth.Credentials{Email: "Forager@Example.com ", Password: "morels"}

	rec, s := post(t, h.Signup(), "/auth/v1/signup", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	if s.User.Email != "forager@example.com" || s.User.Role != auth.RoleLearner {
		t.Fatalf("unexpected user %+v", s.User)
	}

	rec, _ = post(t, h.Signup(), "/auth/v1/signup", creds)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rec.Code)
	}

	rec, s2 := post(t, h.Token(), "/auth/v1/token?grant_type=password", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	claims, err := h.Svc.Parse(s2.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Sub != s.User.ID {
		t.Fatalf("token subject %q, want %q", claims.Sub, s.User.ID)
	}

	rec, _ = post(t, h.Token(), "/auth/v1/token?grant_type=password", auth.Credentials{Email: creds.Email, Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", rec.Code)
	}
}

func TestPassphraseLoginIsCaseInsensitive(t *testing.T) {
	h, _ := newHandlers(t)
	e1, p1 := auth.PassphraseCredentials("Purple  Spore Print")
	e2, p2 := auth.PassphraseCredentials("purple spore print")
	if e1 != e2 || p1 != p2 {
		t.Fatalf("passphrase normalisation mismatch: %q/%q vs %q/%q", e1, p1, e2, p2)
	}
	if !auth.IsPseudoEmail(e1) {
		t.Fatalf("expected pseudo email, got %q", e1)
	}
	if rec, _ := post(t, h.Signup(), "/auth/v1/signup", auth.Credentials{Email: e1, Password: p1}); rec.Code != http.StatusOK {
		t.Fatalf("signup: %d", rec.Code)
	}
	if rec, _ := post(t, h.Token(), "/auth/v1/token", auth.Credentials{Email: e2, Password: p2}); rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	h, _ := newHandlers(t)
	rec, s := post(t, h.Token(), "/auth/v1/token", auth.Credentials{Email: "admin@fungiquest.local", Password: "root-pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: %d", rec.Code)
	}
	if s.User.Role != auth.RoleAdmin {
		t.Fatalf("expected admin role, got %q", s.User.Role)
	}
	rec, _ = post(t, h.Token(), "/auth/v1/token", auth.Credentials{Email: "admin@fungiquest.local", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMagicLinkIsSingleUse(t *testing.T) {
	h, m := newHandlers(t)
	rec, _ := post(t, h.OTP(), "/auth/v1/otp", map[string]string{"email": "spore@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("otp: %d", rec.Code)
	}
	if len(m.links) != 1 {
		t.Fatalf("expected one link, got %d", len(m.links))
	}
	target := strings.TrimPrefix(m.links[0], "http://localhost:8080")

	rec = httptest.NewRecorder()
	h.Verify().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rec.Code, rec.Body.String())
	}
	var s auth.Session
	_ = json.NewDecoder(rec.Body).Decode(&s)
	if s.User.Email != "spore@example.com" {
		t.Fatalf("unexpected user %+v", s.User)
	}

	rec = httptest.NewRecorder()
	h.Verify().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused link: expected 401, got %d", rec.Code)
	}
}

func TestMagicLinkExpires(t *testing.T) {
	dbh := openDB(t)
	now := time.Unix(1_700_000_000, 0)
	links := auth.NewMagicLinks(dbh, time.Minute, func() time.Time { return now })
	tok, err := links.Issue(context.Background(), "a@b.c")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := links.Consume(context.Background(), tok); err != auth.ErrLinkInvalid {
		t.Fatalf("expected ErrLinkInvalid, got %v", err)
	}
}

func TestMiddlewareRoles(t *testing.T) {
	svc := auth.NewAuthService("s", time.Hour)
	var gotRole, gotSub string
	h := auth.JWTMiddleware(svc, "anon-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = rbac.RoleFromContext(r.Context())
		gotSub = auth.SubjectFromContext(r.Context())
	}))

	cases := []struct {
		name, header string
		code         int
		role, sub    string
	}{
		{"missing", "", http.StatusUnauthorized, "", ""},
		{"api key", "Bearer anon-key", http.StatusOK, auth.RoleAnon, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "", ""},
	}
	tok, _ := svc.IssueJWT("u1", auth.RoleLearner, "u1@example.com")
	cases = append(cases, struct {
		name, header string
		code         int
		role, sub    string
	}{"user", "Bearer " + tok, http.StatusOK, auth.RoleLearner, "u1"})

	for _, tc := range cases {
		gotRole, gotSub = "", ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.code || gotRole != tc.role || gotSub != tc.sub {
			t.Errorf("%s: code=%d role=%q sub=%q", tc.name, rec.Code, gotRole, gotSub)
		}
	}
}
