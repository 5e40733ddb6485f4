package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/fungiquest/internal/logger"
)

var ErrLinkInvalid = errors.New("magic link invalid or expired")

// MagicLinks issues single-use login tokens for passwordless sign-in.
type MagicLinks struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewMagicLinks(db *sql.DB, ttl time.Duration, now func() time.Time) *MagicLinks {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &MagicLinks{db: db, ttl: ttl, now: now}
}

func (m *MagicLinks) Issue(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", errors.New("email required")
	}
	tok := uuid.NewString()
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO magic_links (token, email, expires_at, used) VALUES ($1,$2,$3,$4)`,
		tok, email, m.now().Add(m.ttl).Unix(), false)
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Consume marks token used and returns the email it was issued for.
func (m *MagicLinks) Consume(ctx context.Context, token string) (string, error) {
	res, err := m.db.ExecContext(ctx,
		`UPDATE magic_links SET used=$1 WHERE token=$2 AND used=$3 AND expires_at > $4`,
		true, token, false, m.now().Unix())
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return "", ErrLinkInvalid
	}
	var email string
	if err := m.db.QueryRowContext(ctx, `SELECT email FROM magic_links WHERE token=$1`, token).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// LogMailer writes the link to the log instead of sending mail.
type LogMailer struct {
	Log *logger.Logger
}

func (m LogMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.Log.Info("magic link issued", "to", email, "link", link)
	return nil
}

// MagicLinkURL builds the link a learner follows to sign in.
func MagicLinkURL(publicURL, token string) string {
	base := strings.TrimSuffix(publicURL, "/")
	return base + "/auth/v1/verify?token=" + url.QueryEscape(token)
}
