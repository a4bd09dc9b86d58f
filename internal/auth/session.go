package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// Claims carried by a session token.
type Claims struct {
	UserID   int    `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens and moves them in and out of cookies.
// It holds no per-session state; a token is valid until it expires.
type Sessions struct {
	Secret []byte
	TTL    time.Duration
	// Secure sets the cookie Secure flag. Only disable for plain-HTTP development.
	Secure bool
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewSessions returns a Sessions with a Secure cookie.
func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{Secret: secret, TTL: ttl, Secure: true}
}

func (s *Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue returns a signed token for the user that expires after TTL.
func (s *Sessions) Issue(userID int, username string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify returns the claims of a valid token. Bad signatures, other algorithms,
// expired or malformed tokens all yield (nil, false).
func (s *Sessions) Verify(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.UserID <= 0 {
		return nil, false
	}
	return claims, true
}

// Attach sets the session cookie on the response.
func (s *Sessions) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the session cookie value, if any.
func (s *Sessions) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest reads and verifies the session cookie in one step.
func (s *Sessions) FromRequest(r *http.Request) (*Claims, bool) {
	token, ok := s.Read(r)
	if !ok {
		return nil, false
	}
	return s.Verify(token)
}
