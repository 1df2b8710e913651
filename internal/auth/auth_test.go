package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
	"github.com/pbaille/autojournal/internal/store"
)

const secret = "test-secret-0123456789"

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens, err := NewTokens(secret)
	require.NoError(t, err)
	svc := NewService(st, tokens, zaptest.NewLogger(t))
	svc.cost = bcrypt.MinCost
	return svc
}

func TestNewTokensRejectsShortSecret(t *testing.T) {
	_, err := NewTokens("short")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokens(secret)
	require.NoError(t, err)

	token, err := tokens.Issue("alice")
	require.NoError(t, err)
	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	_, err = tokens.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = tokens.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokens("another-secret-0123456789")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiresAfterThirtyDays(t *testing.T) {
	tokens, err := NewTokens(secret)
	require.NoError(t, err)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	token, err := tokens.Issue("alice")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(29 * 24 * time.Hour) }
	_, err = tokens.Verify(token)
	assert.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(31 * 24 * time.Hour) }
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tokens, err := NewTokens(secret)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "alice", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, domain.DefaultSettings(), sess.User.Settings)

	_, err = svc.Register(ctx, "alice", "other")
	assert.True(t, appErrors.IsConflict(err))
	_, err = svc.Register(ctx, "", "")
	assert.True(t, appErrors.IsMissingField(err))

	sess, err = svc.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	u, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserID)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.True(t, appErrors.IsUnauthorized(err))
	_, err = svc.Login(ctx, "bob", "hunter22")
	assert.True(t, appErrors.IsUnauthorized(err))
}

func TestUpdateSettingsMergesPatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Register(ctx, "alice", "hunter22")
	require.NoError(t, err)

	off := false
	u, err := svc.UpdateSettings(ctx, sess.User, domain.SettingsPatch{LoggingEnabled: &off})
	require.NoError(t, err)
	assert.False(t, u.Settings.LoggingEnabled)
	assert.True(t, u.Settings.ContentCaptureEnabled)
	assert.Equal(t, domain.DefaultSettings().BlacklistedDomains, u.Settings.BlacklistedDomains)

	again, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.False(t, again.Settings.LoggingEnabled)
}

func TestIdentifyAndRequireAuth(t *testing.T) {
	svc := newTestService(t)
	sess, err := svc.Register(context.Background(), "alice", "hunter22")
	require.NoError(t, err)

	var seen Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	fail := func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(appErrors.HTTPStatusOf(err))
	}
	open := svc.Identify(fail)(inner)
	closed := svc.Identify(fail)(RequireAuth(fail)(inner))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.DefaultOwner, seen.Owner())
	assert.Equal(t, domain.DefaultSettings(), seen.Settings())

	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "garbage")
	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, sess.Token)
	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", seen.Owner())
}

func TestIdentifyRejectsUnresolvedTokensOnOpenRoutes(t *testing.T) {
	svc := newTestService(t)
	sess, err := svc.Register(context.Background(), "alice", "hunter22")
	require.NoError(t, err)

	reached := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})
	fail := func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(appErrors.HTTPStatusOf(err))
	}
	open := svc.Identify(fail)(inner)

	expired := *svc.tokens
	expired.now = func() time.Time { return time.Now().Add(-2 * TokenTTL) }
	stale, err := expired.Issue("alice")
	require.NoError(t, err)

	for name, token := range map[string]string{"garbage": "garbage", "expired": stale} {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(Header, token)
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.False(t, reached, name)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(Header, sess.Token)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reached)
}
