package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"foodrush/models"
	"foodrush/validators"
)

func GetCartHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID

		rows, err := db.Query(`
			SELECT
				ci.food_id, ci.quantity,
				f.name, f.description, f.price, f.image_url, f.rating, f.delivery_time,
				r.name
			FROM cart_items ci
			JOIN foods f ON ci.food_id = f.id
			LEFT JOIN restaurants r ON f.restaurant_id = r.id
			WHERE ci.user_id = $1
			ORDER BY ci.added_at DESC
		`, userID)
		if err != nil {
			serverError(w, dev, "Failed to load cart", err)
			return
		}
		defer rows.Close()

		cart := models.Cart{Items: []models.CartItem{}, Total: decimal.Zero}
		for rows.Next() {
			var it models.CartItem
			if err := rows.Scan(
				&it.FoodID, &it.Quantity,
				&it.Name, &it.Description, &it.Price, &it.Image, &it.Rating, &it.DeliveryTime,
				&it.Restaurant,
			); err != nil {
				serverError(w, dev, "Failed to load cart", err)
				return
			}
			cart.Items = append(cart.Items, it)
			cart.Total = cart.Total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			cart.ItemCount += it.Quantity
		}
		if err := rows.Err(); err != nil {
			serverError(w, dev, "Failed to load cart", err)
			return
		}
		writeData(w, http.StatusOK, cart)
	}
}

func AddToCartHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		var req models.CartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if err := validators.ValidateQuantity(quantity, 1); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}

		var exists bool
		if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM foods WHERE id = $1)", req.FoodID).Scan(&exists); err != nil {
			serverError(w, dev, "Failed to update cart", err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "Food not found", "The food item was not found")
			return
		}

		if _, err := db.Exec(`
			INSERT INTO cart_items (user_id, food_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, food_id) DO
			UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		`, userID, req.FoodID, quantity); err != nil {
			serverError(w, dev, "Failed to update cart", err)
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Item added to cart",
			Data:    map[string]int{"foodId": req.FoodID},
		})
	}
}

func UpdateCartItemHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		var req models.CartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		if req.Quantity == nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "quantity is required")
			return
		}
		if err := validators.ValidateQuantity(*req.Quantity, 0); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}

		if *req.Quantity == 0 {
			if _, err := db.Exec(
				"DELETE FROM cart_items WHERE user_id = $1 AND food_id = $2",
				userID, req.FoodID,
			); err != nil {
				serverError(w, dev, "Failed to update cart", err)
				return
			}
			writeJSON(w, http.StatusOK, Response{
				Success: true,
				Message: "Item removed",
				Data:    map[string]string{"action": "removed"},
			})
			return
		}

		res, err := db.Exec(
			"UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND food_id = $3",
			*req.Quantity, userID, req.FoodID,
		)
		if err != nil {
			serverError(w, dev, "Failed to update cart", err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "Item not found", "Item not found in cart")
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Cart updated",
			Data:    map[string]int{"foodId": req.FoodID, "quantity": *req.Quantity},
		})
	}
}

func RemoveFromCartHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		foodID, err := strconv.Atoi(r.PathValue("foodId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Food id must be a number")
			return
		}

		res, err := db.Exec(
			"DELETE FROM cart_items WHERE user_id = $1 AND food_id = $2",
			userID, foodID,
		)
		if err != nil {
			serverError(w, dev, "Failed to update cart", err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "Item not found", "Item not found in cart")
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Item removed"})
	}
}

func ClearCartHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		if _, err := db.Exec("DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
			serverError(w, dev, "Failed to clear cart", err)
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Cart cleared"})
	}
}
