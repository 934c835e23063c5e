package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionTTL is the fixed session lifetime. There is no server-side
	// revocation; a compromised secret requires rotation.
	SessionTTL    = 7 * 24 * time.Hour
	SessionCookie = "token"

	StrategyJWT          = "jwt"
	StrategySignedCookie = "signed-cookie"
)

// ErrInvalidToken covers malformed, tampered and expired session evidence.
// Handlers must not distinguish these cases to the caller.
var ErrInvalidToken = errors.New("invalid token")

// TokenStrategy mints and verifies stateless session evidence. Resolve
// returns only the user id; display fields are always re-read from the
// user store so sessions never serve stale profile data.
type TokenStrategy interface {
	Issue(userID, email string) (string, error)
	Resolve(token string) (string, error)
}

// NewStrategy selects a token strategy by config name.
func NewStrategy(name, secret string) (TokenStrategy, error) {
	switch name {
	case StrategyJWT:
		return &jwtStrategy{secret: []byte(secret)}, nil
	case StrategySignedCookie:
		return &signedCookieStrategy{secret: []byte(secret)}, nil
	default:
		return nil, fmt.Errorf("unknown session strategy %q", name)
	}
}

// ── JWT strategy ─────────────────────────────────────────────

// Claims carries the registered claims plus the account email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

type jwtStrategy struct {
	secret []byte
}

func (s *jwtStrategy) Issue(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
		Email: email,
	})
	return token.SignedString(s.secret)
}

func (s *jwtStrategy) Resolve(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ── Signed-cookie strategy ───────────────────────────────────

// signedCookiePayload is the claim set of the compact signed cookie:
// base64url(json) + "." + base64url(hmac-sha256).
type signedCookiePayload struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	IssuedAt int64  `json:"iat"`
	Expires  int64  `json:"exp"`
}

type signedCookieStrategy struct {
	secret []byte
}

func (s *signedCookieStrategy) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *signedCookieStrategy) Issue(userID, email string) (string, error) {
	now := time.Now()
	payload, err := json.Marshal(signedCookiePayload{
		UserID:   userID,
		Email:    email,
		IssuedAt: now.Unix(),
		Expires:  now.Add(SessionTTL).Unix(),
	})
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + s.sign(payload), nil
}

func (s *signedCookieStrategy) Resolve(token string) (string, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return "", ErrInvalidToken
	}
	var p signedCookiePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", ErrInvalidToken
	}
	if p.UserID == "" || time.Now().Unix() >= p.Expires {
		return "", ErrInvalidToken
	}
	return p.UserID, nil
}

// ── Cookie helpers ───────────────────────────────────────────

// SetSessionCookie attaches session evidence to the response.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(SessionTTL / time.Second),
	})
}

// ClearSessionCookie expires the session cookie client-side. The token
// itself stays valid until expiry; there is no revocation list.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}
