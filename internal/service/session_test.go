package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

func newSessionService(users *fakeUsers) *SessionService {
	s := NewSessionService(users, "test-secret", time.Hour, logger.NewNop())
	s.sleep = func(time.Duration) {}
	return s
}

func TestSignupAndLogin(t *testing.T) {
	users := newFakeUsers()
	svc := newSessionService(users)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &model.SignupRequest{
		Email:    "ada@example.com",
		Password: "correct horse",
		Name:     "Ada",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleStudent, resp.User.Role, "signup always creates students")
	assert.NotEqual(t, "correct horse", resp.User.PasswordHash, "password must be hashed")

	// Same email again is rejected.
	_, err = svc.Signup(ctx, &model.SignupRequest{
		Email:    "ada@example.com",
		Password: "whatever",
		Name:     "Ada again",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Correct credentials log in.
	login, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	// Wrong password and unknown email yield the same error.
	_, err = svc.Login(ctx, &model.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &model.LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	user := &model.User{ID: "u1", Email: "a@b.c", Name: "Ada", Role: model.RoleStudent}
	users := newFakeUsers(user)
	users.getErrs = []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
	}

	svc := newSessionService(users)
	slept := 0
	svc.sleep = func(time.Duration) { slept++ }

	session, err := svc.Resolve(context.Background(), "u1", model.RoleStudent, "Ada")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, session.State)
	assert.False(t, session.Degraded)
	assert.Equal(t, "a@b.c", session.User.Email, "full profile loaded on the third attempt")
	assert.Equal(t, 2, slept)
}

func TestResolveDegradesToClaimsAfterExhaustedRetries(t *testing.T) {
	users := newFakeUsers(&model.User{ID: "u1", Role: model.RoleTeacher, Name: "Ada"})
	users.getErrs = []error{
		errors.New("down"),
		errors.New("down"),
		errors.New("down"),
	}

	svc := newSessionService(users)
	session, err := svc.Resolve(context.Background(), "u1", model.RoleTeacher, "Ada")
	require.NoError(t, err, "a degraded session is not an error")

	assert.Equal(t, StateAuthenticated, session.State)
	assert.True(t, session.Degraded)
	assert.Equal(t, "u1", session.User.ID)
	assert.Equal(t, model.RoleTeacher, session.User.Role)
	assert.Equal(t, "Ada", session.User.Name)
	assert.Empty(t, session.User.Email, "claims carry no email")
}

func TestResolveDeletedAccountFails(t *testing.T) {
	svc := newSessionService(newFakeUsers())

	session, err := svc.Resolve(context.Background(), "gone", model.RoleStudent, "Ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, StateFailed, session.State)
}

func TestUpdateModel(t *testing.T) {
	users := newFakeUsers(&model.User{ID: "u1", Role: model.RoleStudent})
	svc := newSessionService(users)

	user, err := svc.UpdateModel(context.Background(), "u1", "claude-3-5-sonnet-20241022")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-20241022", user.Model)

	stored, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-20241022", stored.Model)

	_, err = svc.UpdateModel(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
