package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"foodrush/models"
)

type contextKey string

const userContextKey contextKey = "user"

// CurrentUser returns the user resolved by Authenticate, or nil when
// the request passed through OptionalAuth without a token.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

func resolveUser(db *sql.DB, jwtKey []byte, r *http.Request) (*models.User, int, string) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, http.StatusUnauthorized, "Access token required"
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.ParseWithClaims(tokenStr, &models.Claims{}, func(t *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, http.StatusForbidden, "Invalid token"
	}
	claims := token.Claims.(*models.Claims)

	var u models.User
	err = db.QueryRow(`
		SELECT id, name, email, phone, address FROM users WHERE id = $1
	`, claims.UserID).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address)
	if err == sql.ErrNoRows {
		return nil, http.StatusNotFound, "User not found"
	} else if err != nil {
		return nil, http.StatusInternalServerError, "Authentication failed"
	}
	return &u, 0, ""
}

// Authenticate rejects the request unless the bearer token resolves
// to an existing user. The user row is stored on the request context.
func Authenticate(db *sql.DB, jwtKey []byte) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, status, message := resolveUser(db, jwtKey, r)
			if user == nil {
				writeError(w, status, message, message)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// OptionalAuth resolves the user when a valid token is present and
// continues anonymously otherwise.
func OptionalAuth(db *sql.DB, jwtKey []byte) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if user, _, _ := resolveUser(db, jwtKey, r); user != nil {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}
			next(w, r)
		}
	}
}
