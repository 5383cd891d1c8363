package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/llmholdem/server/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, []byte("test-secret"), time.Hour)
}

func TestCreateUser_Succeeds(t *testing.T) {
	svc := newTestService(t)

	u, err := svc.CreateUser("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "alice", u.Name)
	require.True(t, u.Active)
}

func TestCreateUser_DuplicateNameFails(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.CreateUser("alice", "other@example.com", "whatever")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuthenticate_CorrectPasswordSucceeds(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateUser("bob", "bob@example.com", "correcthorse")
	require.NoError(t, err)

	u, err := svc.Authenticate("bob", "correcthorse")
	require.NoError(t, err)
	require.Equal(t, "bob", u.Name)
}

func TestAuthenticate_WrongPasswordFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateUser("carol", "carol@example.com", "correcthorse")
	require.NoError(t, err)

	_, err = svc.Authenticate("carol", "wrongpassword")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownUserFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Authenticate("nobody", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueAndVerifyToken_RoundTrips(t *testing.T) {
	svc := newTestService(t)
	u, err := svc.CreateUser("dave", "dave@example.com", "password1")
	require.NoError(t, err)

	token, err := svc.IssueToken(u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verified, err := svc.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, u.ID, verified.ID)
}

func TestVerifyToken_RejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.VerifyToken("not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyToken_RejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	svc.tokenExpiry = -time.Hour
	u, err := svc.CreateUser("erin", "erin@example.com", "password1")
	require.NoError(t, err)

	token, err := svc.IssueToken(u.ID)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyToken_RejectsWrongSecret(t *testing.T) {
	svcA := newTestService(t)
	u, err := svcA.CreateUser("frank", "frank@example.com", "password1")
	require.NoError(t, err)
	token, err := svcA.IssueToken(u.ID)
	require.NoError(t, err)

	svcB := NewService(svcA.store, []byte("different-secret"), time.Hour)
	_, err = svcB.VerifyToken(token)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetAndClearLLMKey(t *testing.T) {
	svc := newTestService(t)
	u, err := svc.CreateUser("gina", "gina@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.SetLLMKey(u.ID, "sk-abc"))
	got, err := svc.UserByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "sk-abc", got.LLMKey)

	require.NoError(t, svc.ClearLLMKey(u.ID))
	got, err = svc.UserByID(u.ID)
	require.NoError(t, err)
	require.Empty(t, got.LLMKey)
}

func TestUserByID_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.UserByID("does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}
