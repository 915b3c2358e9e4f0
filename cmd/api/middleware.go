package main

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"examhub/internal/domain/users"

	"golang.org/x/crypto/bcrypt"
)

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			// parse it -> get the base64
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			// decode it
			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			// check the credentials
			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 || !app.checkBasicCredentials(creds[0], creds[1]) {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkBasicCredentials accepts AUTH_BASIC_PASS either as a bcrypt hash or
// as plain text. Empty configuration never matches.
func (app *application) checkBasicCredentials(user, pass string) bool {
	want := app.config.auth.basic
	if want.user == "" || want.pass == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(want.user)) != 1 {
		return false
	}
	if strings.HasPrefix(want.pass, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(want.pass), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(want.pass)) == 1
}

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
			return
		}

		claims, err := app.authenticator.ValidateToken(parts[1])
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		ctx := r.Context()

		user, err := app.store.Repositories().Users.GetByID(ctx, userID)
		switch {
		case errors.Is(err, users.ErrNotFound):
			app.unauthorizedErrorResponse(w, r, err)
			return
		case err != nil:
			app.internalServerError(w, r, err)
			return
		}
		if user.IsDeleted {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("user %s is deleted", user.ID))
			return
		}

		ctx = context.WithValue(ctx, userCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through only when the authenticated user
// has one of roles. It must run after AuthTokenMiddleware.
func (app *application) RequireRole(roles ...users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := getUserFromContext(r)
			if user == nil {
				app.unauthorizedErrorResponse(w, r, errors.New("not authorized"))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			app.forbiddenResponse(w, r, fmt.Errorf("role %q is not allowed here", user.Role))
		})
	}
}

// RateLimiterMiddleware keys on the authenticated user when there is one,
// else on the client address.
func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.config.rateLimiter.Enabled || app.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := clientIP(r)
		if user := getUserFromContext(r); user != nil {
			key = "user:" + user.ID.String()
		}

		if allow, retryAfter := app.rateLimiter.Allow(key); !allow {
			app.rateLimitExceededResponse(w, r, strconv.Itoa(int(retryAfter.Seconds()+0.5)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
