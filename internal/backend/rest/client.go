// Package rest talks to the gateway's table, auth and function endpoints.
// It is the client-side implementation of backend.Store.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/schema"
)

type Client struct {
	base   string
	apiKey string
	hc     *http.Client

	mu      sync.RWMutex
	session *auth.Session
}

func New(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimSuffix(baseURL, "/"), apiKey: apiKey, hc: hc}
}

// ---- session ----

func (c *Client) SetSession(s *auth.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) Session() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// UserID is the signed-in user's id, "" when only the API key is in use.
func (c *Client) UserID() string {
	if s := c.Session(); s != nil {
		return s.User.ID
	}
	return ""
}

func (c *Client) bearer() string {
	if s := c.Session(); s != nil && s.AccessToken != "" {
		return s.AccessToken
	}
	return c.apiKey
}

// ---- backend.Store ----

func (c *Client) Select(ctx context.Context, q backend.Query) ([]schema.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	u := c.base + "/rest/v1/" + q.Table + "?" + backend.EncodeQuery(q).Encode()
	var out []schema.Record
	if err := c.do(ctx, http.MethodGet, u, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Upsert(ctx context.Context, table string, rows []schema.Record) error {
	if !backend.KnownTable(table) {
		return fmt.Errorf("%w: %q", backend.ErrUnknownTable, table)
	}
	if len(rows) == 0 {
		return nil
	}
	u := c.base + "/rest/v1/" + table + "?on_conflict=" + url.QueryEscape(strings.Join(backend.ConflictKeys[table], ","))
	hdr := http.Header{"Prefer": {"resolution=merge-duplicates"}}
	return c.do(ctx, http.MethodPost, u, hdr, rows, nil)
}

// ---- auth ----

func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	return c.signIn(ctx, "/auth/v1/signup", auth.Credentials{Email: email, Password: password})
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	return c.signIn(ctx, "/auth/v1/token?grant_type=password", auth.Credentials{Email: email, Password: password})
}

// SignInWithPassphrase logs in with a passphrase, registering it on first use.
func (c *Client) SignInWithPassphrase(ctx context.Context, passphrase string) (*auth.Session, error) {
	email, password := auth.PassphraseCredentials(passphrase)
	s, err := c.SignInWithPassword(ctx, email, password)
	if err == nil {
		return s, nil
	}
	if apierr.KindOf(err) != apierr.KindUnauthorized {
		return nil, err
	}
	return c.SignUp(ctx, email, password)
}

// RequestMagicLink asks the backend to send a sign-in link to email.
func (c *Client) RequestMagicLink(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, c.base+"/auth/v1/otp", nil, map[string]string{"email": email}, nil)
}

func (c *Client) VerifyMagicLink(ctx context.Context, token string) (*auth.Session, error) {
	return c.signIn(ctx, "/auth/v1/verify", map[string]string{"token": token})
}

func (c *Client) SignOut() { c.SetSession(nil) }

func (c *Client) signIn(ctx context.Context, path string, body any) (*auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodPost, c.base+path, nil, body, &s); err != nil {
		return nil, err
	}
	c.SetSession(&s)
	return &s, nil
}

// ---- function endpoints ----

// SubmitAnswer grades an answer on the server instead of locally.
func (c *Client) SubmitAnswer(ctx context.Context, questionID, answerID string) (backend.SubmitResult, error) {
	var out backend.SubmitResult
	body := map[string]string{"answerId": answerID, "userId": c.UserID()}
	err := c.do(ctx, http.MethodPost, c.base+"/questions/"+url.PathEscape(questionID)+"/submit", nil, body, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.base+"/health", nil, nil, nil)
}

// ---- transport ----

func (c *Client) do(ctx context.Context, method, u string, hdr http.Header, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	resp, err := c.hc.Do(req)
	if err != nil {
		return apierr.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.Transient(fmt.Errorf("decode %s %s: %w", method, req.URL.Path, err))
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env apierr.ErrorEnvelope
	msg := strings.TrimSpace(string(raw))
	code := ""
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		msg, code = env.Error.Message, env.Error.Code
	}
	if msg == "" {
		msg = resp.Status
	}
	return apierr.New(resp.StatusCode, code, errors.New(msg))
}
