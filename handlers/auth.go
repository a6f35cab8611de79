package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"foodrush/models"
	"foodrush/validators"
)

const bcryptCost = 12

func signToken(jwtKey []byte, userID int, email string) (string, error) {
	claims := &models.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func RegisterHandler(db *sql.DB, jwtKey []byte, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		if err := validators.ValidateString("name", creds.Name, 2, 100); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
		if err := validators.ValidateEmail(creds.Email); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
		if err := validators.ValidatePassword(creds.Password); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
		if creds.Phone != "" {
			if err := validators.ValidatePhone(creds.Phone); err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
				return
			}
		}
		if err := validators.ValidateMaxLen("address", creds.Address, 500); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcryptCost)
		if err != nil {
			serverError(w, dev, "Registration failed", err)
			return
		}

		var u models.User
		err = db.QueryRow(`
			INSERT INTO users (name, email, password_hash, phone, address)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
			RETURNING id, name, email, phone, address, created_at
		`, creds.Name, creds.Email, string(hash), creds.Phone, creds.Address).
			Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.CreatedAt)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			writeError(w, http.StatusBadRequest, "User already exists",
				"An account with this email address already exists")
			return
		} else if err != nil {
			serverError(w, dev, "Registration failed", err)
			return
		}

		token, err := signToken(jwtKey, u.ID, u.Email)
		if err != nil {
			serverError(w, dev, "Registration failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, Response{
			Success: true,
			Message: "User registered successfully",
			Data:    map[string]any{"user": u, "token": token},
		})
	}
}

func LoginHandler(db *sql.DB, jwtKey []byte, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		if creds.Email == "" || creds.Password == "" {
			writeError(w, http.StatusBadRequest, "Validation failed", "Email and password are required")
			return
		}

		var u models.User
		var storedHash string
		err := db.QueryRow(`
			SELECT id, name, email, password_hash, phone, address
			FROM users WHERE email = $1
		`, creds.Email).Scan(&u.ID, &u.Name, &u.Email, &storedHash, &u.Phone, &u.Address)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
			return
		} else if err != nil {
			serverError(w, dev, "Login failed", err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(creds.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
			return
		}

		token, err := signToken(jwtKey, u.ID, u.Email)
		if err != nil {
			serverError(w, dev, "Login failed", err)
			return
		}
		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Login successful",
			Data:    map[string]any{"user": u, "token": token},
		})
	}
}

func MeHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		var u models.User
		err := db.QueryRow(`
			SELECT id, name, email, phone, address, created_at
			FROM users WHERE id = $1
		`, userID).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.CreatedAt)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "User not found", "User not found")
			return
		} else if err != nil {
			serverError(w, dev, "Authentication failed", err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"user": u})
	}
}
