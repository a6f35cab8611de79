package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"foodrush/models"
)

func ListSavedHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID

		rows, err := db.Query(`
			SELECT
				f.id, f.name, f.description, f.price, f.image_url, f.rating, f.delivery_time,
				c.name, c.slug, c.icon,
				r.id, r.name,
				sf.created_at
			FROM saved_foods sf
			JOIN foods f ON sf.food_id = f.id
			LEFT JOIN categories c ON f.category_id = c.id
			LEFT JOIN restaurants r ON f.restaurant_id = r.id
			WHERE sf.user_id = $1
			ORDER BY sf.created_at DESC
		`, userID)
		if err != nil {
			serverError(w, dev, "Failed to load saved foods", err)
			return
		}
		defer rows.Close()

		var foods []models.Food
		for rows.Next() {
			var f models.Food
			if err := rows.Scan(
				&f.ID, &f.Name, &f.Description, &f.Price, &f.Image, &f.Rating, &f.DeliveryTime,
				&f.Category.Name, &f.Category.Slug, &f.Category.Icon,
				&f.Restaurant.ID, &f.Restaurant.Name,
				&f.SavedAt,
			); err != nil {
				serverError(w, dev, "Failed to load saved foods", err)
				return
			}
			f.IsSaved = true
			foods = append(foods, f)
		}
		if err := rows.Err(); err != nil {
			serverError(w, dev, "Failed to load saved foods", err)
			return
		}
		if foods == nil {
			foods = []models.Food{}
		}
		writeList(w, foods, len(foods))
	}
}

func AddSavedHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		foodID, err := strconv.Atoi(r.PathValue("foodId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Food id must be a number")
			return
		}

		var exists bool
		if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM foods WHERE id = $1)", foodID).Scan(&exists); err != nil {
			serverError(w, dev, "Save failed", err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "Food not found", "The food item you are trying to save was not found")
			return
		}

		if _, err := db.Exec(`
			INSERT INTO saved_foods (user_id, food_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, foodID); err != nil {
			serverError(w, dev, "Save failed", err)
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Food added to saved items"})
	}
}

func RemoveSavedHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		foodID, err := strconv.Atoi(r.PathValue("foodId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Food id must be a number")
			return
		}
		if _, err := db.Exec(
			"DELETE FROM saved_foods WHERE user_id = $1 AND food_id = $2",
			userID, foodID,
		); err != nil {
			serverError(w, dev, "Remove failed", err)
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Food removed from saved items"})
	}
}
