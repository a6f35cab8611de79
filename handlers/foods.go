package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"foodrush/models"
)

func ListFoodsHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		baseQuery := `
			SELECT
				f.id, f.name, f.description, f.price, f.image_url, f.rating, f.delivery_time,
				c.name, c.slug, c.icon,
				r.id, r.name
			FROM foods f
			LEFT JOIN categories c ON f.category_id = c.id
			LEFT JOIN restaurants r ON f.restaurant_id = r.id
			WHERE 1=1
		`
		var params []any
		paramIndex := 1

		if category := q.Get("category"); category != "" && category != "all" {
			baseQuery += fmt.Sprintf(" AND c.slug = $%d", paramIndex)
			params = append(params, category)
			paramIndex++
		}
		if search := q.Get("search"); search != "" {
			baseQuery += fmt.Sprintf(
				" AND (f.name ILIKE $%d OR f.description ILIKE $%d OR r.name ILIKE $%d)",
				paramIndex, paramIndex, paramIndex)
			params = append(params, "%"+search+"%")
			paramIndex++
		}
		if restaurant := q.Get("restaurant"); restaurant != "" {
			id, err := strconv.Atoi(restaurant)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", "restaurant must be a number")
				return
			}
			baseQuery += fmt.Sprintf(" AND r.id = $%d", paramIndex)
			params = append(params, id)
			paramIndex++
		}
		if minPrice := q.Get("minPrice"); minPrice != "" {
			d, err := decimal.NewFromString(minPrice)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", "minPrice must be a number")
				return
			}
			baseQuery += fmt.Sprintf(" AND f.price >= $%d", paramIndex)
			params = append(params, d)
			paramIndex++
		}
		if maxPrice := q.Get("maxPrice"); maxPrice != "" {
			d, err := decimal.NewFromString(maxPrice)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Validation failed", "maxPrice must be a number")
				return
			}
			baseQuery += fmt.Sprintf(" AND f.price <= $%d", paramIndex)
			params = append(params, d)
			paramIndex++
		}

		orderBy := "f.created_at DESC"
		switch q.Get("sort") {
		case "price_asc":
			orderBy = "f.price ASC"
		case "price_desc":
			orderBy = "f.price DESC"
		case "rating":
			orderBy = "f.rating DESC"
		case "name":
			orderBy = "f.name ASC"
		}
		baseQuery += " ORDER BY " + orderBy

		rows, err := db.Query(baseQuery, params...)
		if err != nil {
			serverError(w, dev, "Failed to load foods", err)
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
			); err != nil {
				serverError(w, dev, "Failed to load foods", err)
				return
			}
			foods = append(foods, f)
		}
		if err := rows.Err(); err != nil {
			serverError(w, dev, "Failed to load foods", err)
			return
		}

		if user := CurrentUser(r); user != nil {
			saved, err := savedFoodIDs(db, user.ID)
			if err != nil {
				serverError(w, dev, "Failed to load foods", err)
				return
			}
			for i := range foods {
				foods[i].IsSaved = saved[foods[i].ID]
			}
		}
		if foods == nil {
			foods = []models.Food{}
		}
		writeList(w, foods, len(foods))
	}
}

func GetFoodHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Food id must be a number")
			return
		}

		var f models.Food
		err = db.QueryRow(`
			SELECT
				f.id, f.name, f.description, f.price, f.image_url, f.rating, f.delivery_time,
				c.name, c.slug, c.icon,
				r.name, r.description, r.address, r.phone
			FROM foods f
			LEFT JOIN categories c ON f.category_id = c.id
			LEFT JOIN restaurants r ON f.restaurant_id = r.id
			WHERE f.id = $1
		`, id).Scan(
			&f.ID, &f.Name, &f.Description, &f.Price, &f.Image, &f.Rating, &f.DeliveryTime,
			&f.Category.Name, &f.Category.Slug, &f.Category.Icon,
			&f.Restaurant.Name, &f.Restaurant.Description, &f.Restaurant.Address, &f.Restaurant.Phone,
		)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Food not found", "The requested food item was not found")
			return
		} else if err != nil {
			serverError(w, dev, "Failed to load food", err)
			return
		}

		if user := CurrentUser(r); user != nil {
			var exists bool
			err := db.QueryRow(
				"SELECT EXISTS(SELECT 1 FROM saved_foods WHERE user_id = $1 AND food_id = $2)",
				user.ID, id,
			).Scan(&exists)
			if err != nil {
				serverError(w, dev, "Failed to load food", err)
				return
			}
			f.IsSaved = exists
		}
		writeData(w, http.StatusOK, f)
	}
}

func ListCategoriesHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Query("SELECT id, name, slug, icon FROM categories ORDER BY name ASC")
		if err != nil {
			serverError(w, dev, "Failed to load categories", err)
			return
		}
		defer rows.Close()

		var categories []models.Category
		for rows.Next() {
			var c models.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Icon); err != nil {
				serverError(w, dev, "Failed to load categories", err)
				return
			}
			categories = append(categories, c)
		}
		if err := rows.Err(); err != nil {
			serverError(w, dev, "Failed to load categories", err)
			return
		}
		if categories == nil {
			categories = []models.Category{}
		}
		writeList(w, categories, len(categories))
	}
}

// ToggleSavedHandler flips the saved state of a food for the caller.
func ToggleSavedHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Food id must be a number")
			return
		}

		var exists bool
		if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM foods WHERE id = $1)", id).Scan(&exists); err != nil {
			serverError(w, dev, "Save failed", err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "Food not found", "The food item you are trying to save was not found")
			return
		}

		var saved bool
		if err := db.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM saved_foods WHERE user_id = $1 AND food_id = $2)",
			userID, id,
		).Scan(&saved); err != nil {
			serverError(w, dev, "Save failed", err)
			return
		}

		var action, message string
		if saved {
			_, err = db.Exec("DELETE FROM saved_foods WHERE user_id = $1 AND food_id = $2", userID, id)
			action, message = "removed", "Food removed from saved items"
		} else {
			_, err = db.Exec("INSERT INTO saved_foods (user_id, food_id) VALUES ($1, $2)", userID, id)
			action, message = "saved", "Food added to saved items"
		}
		if err != nil {
			serverError(w, dev, "Save failed", err)
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: message,
			Data:    map[string]string{"action": action},
		})
	}
}

func savedFoodIDs(db *sql.DB, userID int) (map[int]bool, error) {
	rows, err := db.Query("SELECT food_id FROM saved_foods WHERE user_id = $1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	saved := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		saved[id] = true
	}
	return saved, rows.Err()
}
