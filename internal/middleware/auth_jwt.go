package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the bearer token claims; Subject is the identity handle
// issued by the auth provider.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SignInChecker confirms the identity is still authenticated with the
// provider. identity.Directory satisfies it.
type SignInChecker interface {
	IsSignedIn(ctx context.Context, id string) (bool, error)
}

type identityKey struct{}

var errNoSubject = errors.New("token has no subject")

// SignJWT issues an HS256 token for identity valid for ttl.
func SignJWT(secret, identity, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func VerifyJWT(secret, token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errNoSubject
	}
	return claims, nil
}

// AuthJWT rejects requests without a valid bearer token for a signed-in identity.
func AuthJWT(secret string, checker SignInChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
				return
			}
			claims, err := VerifyJWT(secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			if checker != nil {
				signedIn, err := checker.IsSignedIn(r.Context(), claims.Subject)
				if err != nil {
					writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "could not verify sign-in")
					return
				}
				if !signedIn {
					writeError(w, http.StatusUnauthorized, "unauthorized", "please sign in")
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), claims.Subject)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(secret string, checker SignInChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := VerifyJWT(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if checker != nil {
				if signedIn, err := checker.IsSignedIn(r.Context(), claims.Subject); err != nil || !signedIn {
					next.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), claims.Subject)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func IdentityFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(identityKey{}).(string); ok {
		return v
	}
	return ""
}

func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	if strings.TrimSpace(identity) == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}
