package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"smarttravel/internal/auth"
	"smarttravel/internal/core"
	"smarttravel/internal/storage"
)

var (
	// ErrForbidden marks an operation the authenticated user may not perform.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords so
	// login failures do not leak which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService handles registration, login and session resolution.
type UserService struct {
	storage    *storage.SQLiteRepository
	bcryptCost int
	sessionTTL time.Duration
}

func NewUserService(repo *storage.SQLiteRepository, bcryptCost int, sessionTTL time.Duration) *UserService {
	return &UserService{
		storage:    repo,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
	}
}

// Register creates an account. The currency defaults when left empty.
func (s *UserService) Register(ctx context.Context, u core.User, password string) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Currency = core.NormalizeCurrency(u.Currency)

	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if len(password) < 8 {
		return core.User{}, &core.ValidationError{Field: "password", Err: errors.New("password too short (min 8 characters)")}
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	created, err := s.storage.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", created.ID)
	return created, nil
}

// Login verifies the credentials and opens a new session, returning the
// opaque bearer token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, core.User, error) {
	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", core.User{}, ErrInvalidCredentials
		}
		return "", core.User{}, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", core.User{}, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return "", core.User{}, fmt.Errorf("generate session token: %w", err)
	}

	if err := s.storage.CreateSession(ctx, token, user.ID, time.Now().Add(s.sessionTTL)); err != nil {
		return "", core.User{}, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return token, user, nil
}

// Logout discards the session. Unknown tokens are fine, logout is idempotent.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.storage.DeleteSession(ctx, token)
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (core.User, error) {
	return s.storage.GetSessionUser(ctx, token)
}

// UpdateProfile changes the user's own details. The email is immutable.
func (s *UserService) UpdateProfile(ctx context.Context, user core.User, firstName, lastName, currency string) (core.User, error) {
	user.FirstName = strings.TrimSpace(firstName)
	user.LastName = strings.TrimSpace(lastName)
	user.Currency = core.NormalizeCurrency(currency)

	if err := user.Validate(); err != nil {
		return core.User{}, err
	}
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return core.User{}, err
	}
	return user, nil
}

// DeleteAccount removes the user and, via foreign keys, their owned trips.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	return s.storage.DeleteUser(ctx, userID)
}
