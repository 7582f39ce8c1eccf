package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/apperr"
	"github.com/medirank/medirank-api/internal/models"
	"github.com/medirank/medirank-api/internal/repository"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hash)
	assert.NotEmpty(t, hash)

	assert.True(t, CheckPasswordHash(password, hash))
	assert.False(t, CheckPasswordHash("wrongpassword", hash))
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	now := time.Now()

	token, err := GenerateToken("uuid-1234", "test@example.com", secret, now)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1234", claims.ID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, now.Add(TokenTTL).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())

	_, err = ValidateToken(token, "wrong-key")
	assert.Error(t, err, "validation should fail with wrong key")

	expired, err := GenerateToken("uuid-1234", "test@example.com", secret, now.Add(-9*time.Hour))
	require.NoError(t, err)
	_, err = ValidateToken(expired, secret)
	assert.Error(t, err, "token older than eight hours must be rejected")
}

func newTestService() *Service {
	return NewService(repository.NewMemoryUserRepository(), "test-secret", zap.NewNop())
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	name := "Asha"

	u, err := s.Register(ctx, "asha@example.com", "pw", &name)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, &name, u.Name)

	_, err = s.Register(ctx, "asha@example.com", "other", nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "email already registered", apperr.Message(err))

	// exact match only
	_, err = s.Register(ctx, "Asha@example.com", "pw", nil)
	assert.NoError(t, err)

	_, err = s.Register(ctx, "", "pw", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.Register(ctx, "x@example.com", "", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type racingUsers struct {
	repository.UserRepository
}

func (racingUsers) FindByEmail(context.Context, string) (models.User, error) {
	return models.User{}, repository.ErrNotFound
}

func (racingUsers) Create(context.Context, *models.User) error {
	return repository.ErrDuplicate
}

func TestRegister_DuplicateRaceIsConflict(t *testing.T) {
	s := NewService(racingUsers{}, "k", zap.NewNop())
	_, err := s.Register(context.Background(), "a@b.c", "pw", nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

type downUsers struct {
	repository.UserRepository
}

func (downUsers) FindByEmail(context.Context, string) (models.User, error) {
	return models.User{}, repository.ErrUnavailable
}

func TestRegister_StoreUnavailable(t *testing.T) {
	s := NewService(downUsers{}, "k", zap.NewNop())
	_, err := s.Register(context.Background(), "a@b.c", "pw", nil)
	assert.ErrorIs(t, err, repository.ErrUnavailable)

	_, err = s.Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	_, err := s.Register(ctx, "asha@example.com", "pw", nil)
	require.NoError(t, err)

	res, err := s.Login(ctx, "asha@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", res.User.Email)

	claims, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.ID)

	_, wrongPw := s.Login(ctx, "asha@example.com", "nope")
	_, unknown := s.Login(ctx, "nobody@example.com", "pw")
	require.Error(t, wrongPw)
	require.Error(t, unknown)
	assert.True(t, errors.Is(wrongPw, apperr.ErrUnauthorized))
	assert.True(t, errors.Is(unknown, apperr.ErrUnauthorized))
	assert.Equal(t, apperr.Message(wrongPw), apperr.Message(unknown))
	assert.Equal(t, "invalid credentials", apperr.Message(unknown))

	_, err = s.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.ValidateToken("garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
