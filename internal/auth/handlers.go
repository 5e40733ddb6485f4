package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/logger"
)

// Session is what every successful sign-in returns.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Handlers serves /auth/v1.
type Handlers struct {
	Svc       *AuthService
	Users     *UserStore
	Links     *MagicLinks
	Mailer    Mailer
	Log       *logger.Logger
	PublicURL string

	// AdminUser signs in with AdminPassHash (bcrypt) and gets the admin role.
	AdminUser     string
	AdminPassHash string
}

func (h *Handlers) session(u User) (Session, error) {
	tok, err := h.Svc.IssueJWT(u.ID, u.Role, u.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: tok, TokenType: "bearer", ExpiresIn: int(h.Svc.TTL().Seconds()), User: u}, nil
}

func (h *Handlers) reply(w http.ResponseWriter, u User) {
	s, err := h.session(u)
	if err != nil {
		apierr.Write(w, apierr.New(http.StatusInternalServerError, "issue_token", err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func decodeCredentials(r *http.Request) (Credentials, error) {
	var c Credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, apierr.Invalid("bad json")
	}
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return c, apierr.Invalid("email and password required")
	}
	return c, nil
}

// POST /auth/v1/signup {email,password}
func (h *Handlers) Signup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := decodeCredentials(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		u, err := h.Users.Create(r.Context(), c.Email, c.Password)
		switch {
		case errors.Is(err, ErrEmailTaken):
			apierr.Write(w, apierr.New(http.StatusConflict, "email_taken", err))
			return
		case err != nil:
			h.Log.Error("signup failed", "error", err)
			apierr.Write(w, apierr.Transient(err))
			return
		}
		h.Log.Info("user signed up", "user", u.ID)
		h.reply(w, u)
	}
}

// POST /auth/v1/token?grant_type=password {email,password}
func (h *Handlers) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gt := r.URL.Query().Get("grant_type"); gt != "" && gt != "password" {
			apierr.Write(w, apierr.Invalid("unsupported grant_type"))
			return
		}
		c, err := decodeCredentials(r)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if h.AdminUser != "" && NormalizeEmail(c.Email) == NormalizeEmail(h.AdminUser) {
			if bcrypt.CompareHashAndPassword([]byte(h.AdminPassHash), []byte(c.Password)) != nil {
				apierr.Write(w, apierr.New(http.StatusUnauthorized, "invalid_credentials", ErrInvalidCredentials))
				return
			}
			h.reply(w, User{ID: "admin", Email: NormalizeEmail(h.AdminUser), Role: RoleAdmin})
			return
		}
		u, err := h.Users.Authenticate(r.Context(), c.Email, c.Password)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			apierr.Write(w, apierr.New(http.StatusUnauthorized, "invalid_credentials", err))
			return
		case err != nil:
			h.Log.Error("login failed", "error", err)
			apierr.Write(w, apierr.Transient(err))
			return
		}
		h.reply(w, u)
	}
}

// POST /auth/v1/otp {email}: issues a magic link. The response never reveals
// whether the address is registered.
func (h *Handlers) OTP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
			apierr.Write(w, apierr.Invalid("email required"))
			return
		}
		tok, err := h.Links.Issue(r.Context(), req.Email)
		if err != nil {
			h.Log.Error("magic link issue failed", "error", err)
			apierr.Write(w, apierr.Transient(err))
			return
		}
		if err := h.Mailer.SendMagicLink(r.Context(), NormalizeEmail(req.Email), MagicLinkURL(h.PublicURL, tok)); err != nil {
			h.Log.Error("magic link send failed", "error", err)
			apierr.Write(w, apierr.Transient(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}
}

// GET|POST /auth/v1/verify?token=... exchanges a magic link for a session.
func (h *Handlers) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := r.URL.Query().Get("token")
		if tok == "" && r.Method == http.MethodPost {
			var req struct {
				Token string `json:"token"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			tok = req.Token
		}
		if tok == "" {
			apierr.Write(w, apierr.Invalid("token required"))
			return
		}
		email, err := h.Links.Consume(r.Context(), tok)
		if errors.Is(err, ErrLinkInvalid) {
			apierr.Write(w, apierr.New(http.StatusUnauthorized, "link_invalid", err))
			return
		}
		if err != nil {
			apierr.Write(w, apierr.Transient(err))
			return
		}
		u, err := h.Users.Ensure(r.Context(), email)
		if err != nil {
			apierr.Write(w, apierr.Transient(err))
			return
		}
		h.reply(w, u)
	}
}

// GET /auth/v1/user (bearer required)
func (h *Handlers) CurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		if sub == "" {
			apierr.Write(w, apierr.New(http.StatusUnauthorized, "no_user", errors.New("no user session")))
			return
		}
		if sub == "admin" {
			writeJSON(w, http.StatusOK, User{ID: sub, Email: EmailFromContext(r.Context()), Role: RoleAdmin})
			return
		}
		u, err := h.Users.Get(r.Context(), sub)
		if errors.Is(err, ErrUserNotFound) {
			apierr.Write(w, apierr.NotFound("user"))
			return
		}
		if err != nil {
			apierr.Write(w, apierr.Transient(err))
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
