package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipforge/payment-ledger/internal/lib/jwt"
	"github.com/shipforge/payment-ledger/internal/lib/password"
	"github.com/shipforge/payment-ledger/internal/models"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	args := m.Called(ctx, email)
	var u *models.User
	if args.Get(0) != nil {
		u = args.Get(0).(*models.User)
	}
	return u, args.Bool(1), args.Error(2)
}

func (m *mockRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	args := m.Called(ctx, username)
	var u *models.User
	if args.Get(0) != nil {
		u = args.Get(0).(*models.User)
	}
	return u, args.Bool(1), args.Error(2)
}

func (m *mockRepo) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(repo Repo) *Service {
	return New(discardLogger(), repo, jwt.NewJWTMaker("test-secret", time.Hour))
}

func TestRegister(t *testing.T) {
	repo := &mockRepo{}
	repo.On("FindUserByEmail", mock.Anything, "New@Example.com").Return(nil, false, nil)
	repo.On("GetUserByUsername", mock.Anything, "newuser").Return(nil, false, nil)
	repo.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "new@example.com" && u.Username == "newuser" &&
			u.Role == "user" && u.PasswordHash != nil
	})).Return("uid-1", nil)

	svc := testService(repo)

	uid, err := svc.Register(context.Background(), "New@Example.com", "newuser", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	repo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockRepo{}
	repo.On("FindUserByEmail", mock.Anything, "taken@example.com").
		Return(&models.User{UID: "uid-1"}, true, nil)

	svc := testService(repo)

	_, err := svc.Register(context.Background(), "taken@example.com", "newuser", "secret123")
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)

	repo := &mockRepo{}
	repo.On("GetUserByUsername", mock.Anything, "buyer").Return(&models.User{
		UID:          "uid-1",
		Username:     "buyer",
		Role:         "user",
		PasswordHash: &hash,
	}, true, nil)

	svc := testService(repo)

	token, err := svc.Login(context.Background(), "buyer", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "uid-1", claims.UserUID)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)

	repo := &mockRepo{}
	repo.On("GetUserByUsername", mock.Anything, "buyer").Return(&models.User{
		UID:          "uid-1",
		Username:     "buyer",
		PasswordHash: &hash,
	}, true, nil)

	svc := testService(repo)

	_, err = svc.Login(context.Background(), "buyer", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	repo := &mockRepo{}
	repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, false, nil)

	svc := testService(repo)

	_, err := svc.Login(context.Background(), "ghost", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ImportedUserWithoutPassword(t *testing.T) {
	repo := &mockRepo{}
	repo.On("GetUserByUsername", mock.Anything, "imported@example.com").Return(&models.User{
		UID:      "uid-2",
		Username: "imported@example.com",
	}, true, nil)

	svc := testService(repo)

	_, err := svc.Login(context.Background(), "imported@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_Invalid(t *testing.T) {
	svc := testService(&mockRepo{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
