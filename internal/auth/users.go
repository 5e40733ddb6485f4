package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UserStore struct {
	db   *sql.DB
	cost int
}

func NewUserStore(db *sql.DB, cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, cost: cost}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	if _, err := s.byEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Email: email, Role: RoleLearner}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Email, string(hash), u.Role, time.Now().Unix())
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)
	var (
		u    User
		hash sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, password_hash FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Email, &u.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	// magic-link-only accounts have no password
	if !hash.Valid || hash.String == "" {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Ensure returns the user for email, creating a password-less one if needed.
func (s *UserStore) Ensure(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	u, err := s.byEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	u = User{ID: uuid.NewString(), Email: email, Role: RoleLearner}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, role, created_at) VALUES ($1,$2,$3,$4)`,
		u.ID, u.Email, u.Role, time.Now().Unix())
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT id, email, role FROM users WHERE id=$1`, id).Scan(&u.ID, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserStore) byEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT id, email, role FROM users WHERE email=$1`, email).Scan(&u.ID, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}
