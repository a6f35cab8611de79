package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"foodrush/database"
	"foodrush/models"
	"foodrush/validators"
)

func ProfileHandler(db *sql.DB, dev bool) http.HandlerFunc {
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
			serverError(w, dev, "Failed to load profile", err)
			return
		}

		var stats models.UserStats
		var totalSpent decimal.Decimal
		err = db.QueryRow(`
			SELECT
				(SELECT COUNT(*) FROM orders WHERE user_id = $1),
				(SELECT COUNT(*) FROM saved_foods WHERE user_id = $1),
				(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE user_id = $1)
		`, userID).Scan(&stats.OrderCount, &stats.SavedCount, &totalSpent)
		if err != nil {
			serverError(w, dev, "Failed to load profile", err)
			return
		}
		stats.TotalSpent = totalSpent.StringFixed(2)

		writeData(w, http.StatusOK, models.Profile{User: u, Stats: stats})
	}
}

func UpdateProfileHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		var req models.ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}

		var updates []string
		var params []any
		paramIndex := 1

		if req.Name != "" {
			if err := validators.ValidateString("name", req.Name, 2, 100); err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
				return
			}
			updates = append(updates, fmt.Sprintf("name = $%d", paramIndex))
			params = append(params, req.Name)
			paramIndex++
		}
		if req.Phone != "" {
			if err := validators.ValidatePhone(req.Phone); err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
				return
			}
			updates = append(updates, fmt.Sprintf("phone = $%d", paramIndex))
			params = append(params, req.Phone)
			paramIndex++
		}
		if req.Address != "" {
			if err := validators.ValidateMaxLen("address", req.Address, 500); err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
				return
			}
			updates = append(updates, fmt.Sprintf("address = $%d", paramIndex))
			params = append(params, req.Address)
			paramIndex++
		}
		if len(updates) == 0 {
			writeError(w, http.StatusBadRequest, "Validation failed", "Provide at least one field to update")
			return
		}

		params = append(params, userID)
		var u models.User
		err := db.QueryRow(fmt.Sprintf(`
			UPDATE users
			SET %s, updated_at = CURRENT_TIMESTAMP
			WHERE id = $%d
			RETURNING id, name, email, phone, address, created_at
		`, strings.Join(updates, ", "), paramIndex), params...).
			Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.CreatedAt)
		if err != nil {
			serverError(w, dev, "Profile update failed", err)
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Profile updated",
			Data:    map[string]any{"user": u},
		})
	}
}

func ChangePasswordHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		var req models.PasswordChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		if req.CurrentPassword == "" {
			writeError(w, http.StatusBadRequest, "Validation failed", "Current password is required")
			return
		}
		if err := validators.ValidatePassword(req.NewPassword); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}

		var storedHash string
		if err := db.QueryRow(
			"SELECT password_hash FROM users WHERE id = $1", userID,
		).Scan(&storedHash); err != nil {
			serverError(w, dev, "Password change failed", err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.CurrentPassword)) != nil {
			writeError(w, http.StatusBadRequest, "Invalid password", "Current password is incorrect")
			return
		}

		newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			serverError(w, dev, "Password change failed", err)
			return
		}
		if _, err := db.Exec(
			"UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			string(newHash), userID,
		); err != nil {
			serverError(w, dev, "Password change failed", err)
			return
		}

		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Password changed successfully"})
	}
}

func DeleteAccountHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		err := database.WithTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec("DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
				return err
			}
			if _, err := tx.Exec("DELETE FROM saved_foods WHERE user_id = $1", userID); err != nil {
				return err
			}
			if _, err := tx.Exec("DELETE FROM users WHERE id = $1", userID); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			serverError(w, dev, "Account deletion failed", err)
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Account deleted"})
	}
}
