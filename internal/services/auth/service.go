package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/apperr"
	"github.com/medirank/medirank-api/internal/models"
	"github.com/medirank/medirank-api/internal/repository"
)

const (
	msgCredentialsRequired = "email and password required"
	msgEmailTaken          = "email already registered"
	msgInvalidCredentials  = "invalid credentials"
	msgInvalidToken        = "invalid token"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Service registers users and issues access tokens.
type Service struct {
	users  repository.UserRepository
	secret string
	log    *zap.Logger
	now    func() time.Time
}

func NewService(users repository.UserRepository, secret string, log *zap.Logger) *Service {
	return &Service{users: users, secret: secret, log: log, now: time.Now}
}

// Register creates an account. Emails are compared exactly.
func (s *Service) Register(ctx context.Context, email, password string, name *string) (models.UserPublic, error) {
	if email == "" || password == "" {
		return models.UserPublic{}, apperr.New(apperr.ErrValidation, msgCredentialsRequired)
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return models.UserPublic{}, apperr.New(apperr.ErrConflict, msgEmailTaken)
	case !errors.Is(err, repository.ErrNotFound):
		return models.UserPublic{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.UserPublic{}, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Email: email, PasswordHash: hash, Name: name, CreatedAt: s.now().UTC()}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.UserPublic{}, apperr.New(apperr.ErrConflict, msgEmailTaken)
		}
		return models.UserPublic{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u.Public(), nil
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, apperr.New(apperr.ErrValidation, msgCredentialsRequired)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, apperr.New(apperr.ErrUnauthorized, msgInvalidCredentials)
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPasswordHash(password, u.PasswordHash) {
		return LoginResult{}, apperr.New(apperr.ErrUnauthorized, msgInvalidCredentials)
	}

	token, err := GenerateToken(u.ID, u.Email, s.secret, s.now())
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResult{Token: token, User: u.Public()}, nil
}

// ValidateToken verifies a bearer token.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	claims, err := ValidateToken(token, s.secret)
	if err != nil {
		return nil, apperr.New(apperr.ErrUnauthorized, msgInvalidToken)
	}
	return claims, nil
}
