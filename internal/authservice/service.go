// Package authservice implements the account lifecycle: signup, login,
// security-question password reset and bearer token resolution.
package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/models"
	"github.com/starford/mindmaps/internal/password"
	"github.com/starford/mindmaps/internal/token"
)

// TokenType is the only token type issued.
const TokenType = "bearer"

// UserStore is the persistence the auth flow needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, u *models.User) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Question is what a user sees when starting a reset.
type Question struct {
	Question string `json:"question"`
	Hint     string `json:"hint"`
}

// Config holds the auth flow settings.
type Config struct {
	AccessTokenTTL    time.Duration
	MinPasswordLength int
}

// Service runs the auth flows.
type Service struct {
	users  UserStore
	hasher *password.Hasher
	tokens *token.Issuer
	policy password.Policy
	ttl    time.Duration
	log    *slog.Logger
}

// NewService creates an auth service. cfg.AccessTokenTTL must be positive.
func NewService(users UserStore, hasher *password.Hasher, tokens *token.Issuer, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		policy: password.Policy{MinLength: cfg.MinPasswordLength},
		ttl:    cfg.AccessTokenTTL,
		log:    logger,
	}
}

// Signup registers a new account. An email already in use is reported before
// any field validation.
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return fmt.Errorf("authservice: signup: %w", err)
	}
	if exists {
		return apperr.ErrDuplicateEmail
	}
	if err := in.validate(s.policy); err != nil {
		return err
	}

	pwHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("authservice: signup: %w", err)
	}
	answerHash, err := s.hasher.Hash(password.NormalizeAnswer(in.SecurityAnswer))
	if err != nil {
		return fmt.Errorf("authservice: signup: %w", err)
	}

	u := &models.User{
		Email:              in.Email,
		PasswordHash:       pwHash,
		SecurityQuestion:   in.SecurityQuestion,
		SecurityAnswerHash: answerHash,
		Hint:               in.Hint,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return apperr.ErrDuplicateEmail
		}
		return fmt.Errorf("authservice: signup: %w", err)
	}
	s.log.Info("user registered", slog.Int64("user_id", u.ID))
	return nil
}

// Login checks the credentials and issues an access token. Unknown email and
// wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, pw string) (*Token, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.hasher.VerifyAbsent(pw)
			return nil, apperr.ErrUnauthorized
		}
		return nil, fmt.Errorf("authservice: login: %w", err)
	}
	if !s.hasher.Verify(pw, u.PasswordHash) {
		return nil, apperr.ErrUnauthorized
	}

	g, err := s.tokens.Grant(u.Email, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("authservice: login: %w", err)
	}
	return &Token{AccessToken: g.Token, TokenType: TokenType, ExpiresAt: g.ExpiresAt}, nil
}

// CheckEmailExists reports whether email is registered.
func (s *Service) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	ok, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("authservice: check email: %w", err)
	}
	return ok, nil
}

// GetSecurityQuestion returns the question and hint of email's account.
func (s *Service) GetSecurityQuestion(ctx context.Context, email string) (*Question, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("authservice: security question: %w", err)
	}
	return &Question{Question: u.SecurityQuestion, Hint: u.Hint}, nil
}

// ResetPassword replaces the password when the security answer matches.
// Unknown email and wrong answer fail identically. Tokens already issued
// stay valid until they expire.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) error {
	if err := in.validate(s.policy); err != nil {
		return err
	}

	answer := password.NormalizeAnswer(in.SecurityAnswer)
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.hasher.VerifyAbsent(answer)
			return apperr.ErrInvalidReset
		}
		return fmt.Errorf("authservice: reset: %w", err)
	}
	if !s.hasher.Verify(answer, u.SecurityAnswerHash) {
		return apperr.ErrInvalidReset
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("authservice: reset: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("authservice: reset: %w", err)
	}
	s.log.Info("password reset", slog.Int64("user_id", u.ID))
	return nil
}

// Authenticate resolves a bearer token to a live user. Every failure,
// including a deleted account, is apperr.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, tok string) (*models.User, error) {
	email, err := s.tokens.Verify(tok)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, fmt.Errorf("authservice: authenticate: %w", err)
	}
	return u, nil
}
