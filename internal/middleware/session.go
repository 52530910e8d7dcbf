package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "sessionID"

const SessionCookieName = "relatorio_session"

func sign(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func CreateSessionCookie(sessionID, secret string, secure bool) *http.Cookie {
	value := fmt.Sprintf("%s|%d", sessionID, time.Now().Unix())
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    fmt.Sprintf("%s|%s", value, sign(value, secret)),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 1 day
	}
}

func ValidateSessionCookie(cookie *http.Cookie, secret string) (string, error) {
	if cookie == nil {
		return "", fmt.Errorf("no session cookie")
	}

	parts := strings.Split(cookie.Value, "|")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid session format")
	}

	value := strings.Join(parts[:2], "|")
	if !hmac.Equal([]byte(parts[2]), []byte(sign(value, secret))) {
		return "", fmt.Errorf("invalid session signature")
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid session id: %w", err)
	}
	return id.String(), nil
}

// EnsureSession attaches a session id to every request. Visitors without a
// valid cookie get a new session instead of being turned away.
func EnsureSession(secret string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, _ := r.Cookie(SessionCookieName)
			sessionID, err := ValidateSessionCookie(cookie, secret)
			if err != nil {
				sessionID = uuid.NewString()
				http.SetCookie(w, CreateSessionCookie(sessionID, secret, secure))
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionID(r *http.Request) string {
	if val := r.Context().Value(SessionIDKey); val != nil {
		return val.(string)
	}
	return ""
}
