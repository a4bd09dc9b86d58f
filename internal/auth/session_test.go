package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessions_IssueAndVerify(t *testing.T) {
	t.Parallel()

	s := NewSessions([]byte("test-secret"), time.Hour)
	tok, err := s.Issue(42, "alice")
	require.NoError(t, err)

	claims, ok := s.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "42", claims.Subject)
}

func TestSessions_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Sessions{Secret: []byte("test-secret"), TTL: time.Hour, Now: fixedClock(start)}
	tok, err := s.Issue(7, "bob")
	require.NoError(t, err)

	s.Now = fixedClock(start.Add(59 * time.Minute))
	claims, ok := s.Verify(tok)
	require.True(t, ok, "token should be valid before TTL")
	assert.Equal(t, 7, claims.UserID)

	s.Now = fixedClock(start.Add(61 * time.Minute))
	_, ok = s.Verify(tok)
	assert.False(t, ok, "token should be absent after TTL")
}

func TestSessions_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewSessions([]byte("right"), time.Hour).Issue(1, "u")
	require.NoError(t, err)

	_, ok := NewSessions([]byte("wrong"), time.Hour).Verify(tok)
	assert.False(t, ok)
}

func TestSessions_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok := NewSessions([]byte("secret"), time.Hour).Verify(tok)
	assert.False(t, ok)
}

func TestSessions_RejectsGarbage(t *testing.T) {
	t.Parallel()

	s := NewSessions([]byte("secret"), time.Hour)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, ok := s.Verify(tok)
		assert.False(t, ok, "token %q", tok)
	}
}

func TestSessions_CookieRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSessions([]byte("secret"), 2*time.Hour)
	tok, err := s.Issue(3, "carol")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Attach(rr, tok)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, tok, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 7200, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(c)
	claims, ok := s.FromRequest(req)
	require.True(t, ok)
	assert.Equal(t, 3, claims.UserID)
}

func TestSessions_Clear(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewSessions([]byte("secret"), time.Hour).Clear(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSessions_ReadMissingCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := NewSessions([]byte("secret"), time.Hour).Read(req)
	assert.False(t, ok)
}
