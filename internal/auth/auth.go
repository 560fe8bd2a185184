// Package auth handles registration, login, and bearer-token verification.
//
// Tokens are opaque: 32 random bytes, base64url-encoded, handed to the
// client once and stored server-side only as a SHA-256 hash with a TTL.
// Sessions slide: a token past a third of its lifetime gets re-extended on
// use.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	bcryptCost          = 12
	sessionRefreshDelta = 3 // extend when less than TTL/3 remains
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrUnauthorized       = errors.New("could not validate credentials")
)

// fakeHash keeps login timing uniform when the email is unknown.
var fakeHash = []byte("$2a$12$C6UzMDM.H6dfI/f/IKcEeO5mZ8n6vFQ2uXk8rj/3dD1h5a6V7Wc8W")

// Store is the persistence surface the service needs.
type Store interface {
	CreateUser(ctx context.Context, fullName, email, passwordHash string) (int64, error)
	UserByEmail(ctx context.Context, email string) (*core.User, error)
	UserByID(ctx context.Context, id int64) (*core.User, error)
	CreateSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	SessionByTokenHash(ctx context.Context, tokenHash string) (userID int64, expiresAt time.Time, err error)
	ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	store    Store
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(store Store, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Register creates a user with a bcrypt-hashed password and returns its id.
func (s *Service) Register(ctx context.Context, fullName, email, password string) (int64, error) {
	email, err := sanitizeEmail(email)
	if err != nil {
		return 0, err
	}
	if err := validatePassword(password); err != nil {
		return 0, err
	}
	if strings.TrimSpace(fullName) == "" {
		return 0, errors.New("full name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.store.CreateUser(ctx, strings.TrimSpace(fullName), email, string(hash))
	if errors.Is(err, storage.ErrEmailTaken) {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", id)
	return id, nil
}

// Login verifies the credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email, err := sanitizeEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	user, lookupErr := s.store.UserByEmail(ctx, email)

	// Compare against a fake hash on unknown email so response timing does
	// not reveal which addresses exist.
	hashed := fakeHash
	if user != nil {
		hashed = []byte(user.PasswordHash)
	}
	compareErr := bcrypt.CompareHashAndPassword(hashed, []byte(password))

	if lookupErr != nil || compareErr != nil {
		return "", ErrInvalidCredentials
	}

	rawToken, tokenHash, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := s.store.CreateSession(ctx, tokenHash, user.ID, s.now().Add(s.tokenTTL)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return rawToken, nil
}

// Authenticate resolves a bearer token to a user id, sliding the session
// expiry when it has consumed more than a third of its TTL. Expired
// sessions are deleted on sight.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}
	tokenHash := hashToken(token)

	userID, expiresAt, err := s.store.SessionByTokenHash(ctx, tokenHash)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return 0, ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now()
	if !expiresAt.After(now) {
		if err := s.store.DeleteSession(ctx, tokenHash); err != nil {
			slog.WarnContext(ctx, "Failed to delete expired session", "error", err)
		}
		return 0, ErrUnauthorized
	}

	if expiresAt.Sub(now) < s.tokenTTL/sessionRefreshDelta {
		if err := s.store.ExtendSession(ctx, tokenHash, now.Add(s.tokenTTL)); err != nil {
			slog.WarnContext(ctx, "Failed to extend session", "error", err)
		}
	}

	return userID, nil
}

// Logout revokes the session behind the token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, hashToken(token))
}

func generateToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read random bytes: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sanitizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}
