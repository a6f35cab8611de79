package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"foodrush/database"
	"foodrush/models"
	"foodrush/validators"
)

const orderNumberAttempts = 5

type cartLine struct {
	foodID   int
	quantity int
	price    decimal.Decimal
	name     string
}

// createOrder turns the user's cart into a persisted order inside a
// single transaction. Cart rows are locked for the duration, so two
// concurrent checkouts of the same cart serialize and the second one
// finds the cart empty. Prices are snapshotted from the locked read;
// later catalog changes never touch the stored totals.
func createOrder(db *sql.DB, user *models.User, req models.CreateOrderRequest, deliveryFee decimal.Decimal) (*models.Order, error) {
	var order models.Order
	err := database.WithTx(db, func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT ci.food_id, ci.quantity, f.price, f.name
			FROM cart_items ci
			JOIN foods f ON ci.food_id = f.id
			WHERE ci.user_id = $1
			ORDER BY ci.added_at
			FOR UPDATE OF ci
		`, user.ID)
		if err != nil {
			return err
		}
		var lines []cartLine
		for rows.Next() {
			var ln cartLine
			if err := rows.Scan(&ln.foodID, &ln.quantity, &ln.price, &ln.name); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, ln)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		// The join silently drops cart rows whose food was deleted;
		// compare with the raw row count so that case is surfaced
		// instead of charging for a shorter order than the user saw.
		var rawCount int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM cart_items WHERE user_id = $1", user.ID,
		).Scan(&rawCount); err != nil {
			return err
		}
		if rawCount == 0 {
			return models.ErrEmptyCart
		}
		if rawCount != len(lines) {
			return models.ErrStaleCartItem
		}

		total := deliveryFee
		items := make([]models.OrderItem, 0, len(lines))
		for _, ln := range lines {
			subtotal := ln.price.Mul(decimal.NewFromInt(int64(ln.quantity)))
			total = total.Add(subtotal)
			items = append(items, models.OrderItem{
				FoodID:    ln.foodID,
				FoodName:  ln.name,
				Quantity:  ln.quantity,
				UnitPrice: ln.price,
				Subtotal:  subtotal,
			})
		}

		orderNumber, err := allocateOrderNumber(tx)
		if err != nil {
			return err
		}

		address := user.Address
		if req.DeliveryAddress != "" {
			address = &req.DeliveryAddress
		}
		var notes *string
		if req.Notes != "" {
			notes = &req.Notes
		}

		err = tx.QueryRow(`
			INSERT INTO orders (user_id, order_number, total_amount, delivery_address, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, order_number, total_amount, status, delivery_address, notes, created_at
		`, user.ID, orderNumber, total, address, notes).Scan(
			&order.ID, &order.OrderNumber, &order.TotalAmount, &order.Status,
			&order.DeliveryAddress, &order.Notes, &order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range items {
			if _, err := tx.Exec(`
				INSERT INTO order_items (order_id, food_id, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5)
			`, order.ID, it.FoodID, it.Quantity, it.UnitPrice, it.Subtotal); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		if _, err := tx.Exec("DELETE FROM cart_items WHERE user_id = $1", user.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		order.ItemCount = len(items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// allocateOrderNumber probes the unique index before inserting; a
// failed INSERT would poison the enclosing Postgres transaction.
func allocateOrderNumber(tx *sql.Tx) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		num := models.NewOrderNumber()
		var taken bool
		if err := tx.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)", num,
		).Scan(&taken); err != nil {
			return "", err
		}
		if !taken {
			return num, nil
		}
	}
	return "", errors.New("could not allocate a unique order number")
}

func CreateOrderHandler(db *sql.DB, deliveryFee decimal.Decimal, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req models.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		if err := validators.ValidateMaxLen("deliveryAddress", req.DeliveryAddress, 500); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
		if err := validators.ValidateMaxLen("notes", req.Notes, 1000); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}

		order, err := createOrder(db, user, req, deliveryFee)
		switch {
		case errors.Is(err, models.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "Cart is empty", "Cannot create order with empty cart")
			return
		case errors.Is(err, models.ErrStaleCartItem):
			writeError(w, http.StatusBadRequest, "Cart is out of date",
				"Some items in your cart are no longer available, please review your cart")
			return
		case err != nil:
			serverError(w, dev, "Order creation failed", err)
			return
		}

		writeJSON(w, http.StatusCreated, Response{
			Success: true,
			Message: "Order created successfully",
			Data:    order,
		})
	}
}

func orderItems(db *sql.DB, orderID int) ([]models.OrderItem, error) {
	rows, err := db.Query(`
		SELECT oi.id, oi.food_id, f.name, f.image_url, oi.quantity, oi.unit_price, oi.subtotal
		FROM order_items oi
		JOIN foods f ON oi.food_id = f.id
		WHERE oi.order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.FoodID, &it.FoodName, &it.Image,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func ListOrdersHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		q := r.URL.Query()

		baseQuery := `
			SELECT id, order_number, total_amount, status, delivery_address, notes,
			       created_at, updated_at
			FROM orders
			WHERE user_id = $1
		`
		params := []any{userID}
		paramIndex := 2

		if status := q.Get("status"); status != "" {
			if !models.OrderStatus(status).Valid() {
				writeError(w, http.StatusBadRequest, "Validation failed", "Unknown order status")
				return
			}
			baseQuery += fmt.Sprintf(" AND status = $%d", paramIndex)
			params = append(params, status)
			paramIndex++
		}

		limit := 10
		if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
			limit = v
		}
		offset := 0
		if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
			offset = v
		}
		baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", paramIndex, paramIndex+1)
		params = append(params, limit, offset)

		rows, err := db.Query(baseQuery, params...)
		if err != nil {
			serverError(w, dev, "Failed to load orders", err)
			return
		}
		defer rows.Close()

		orders := []models.Order{}
		for rows.Next() {
			var o models.Order
			if err := rows.Scan(&o.ID, &o.OrderNumber, &o.TotalAmount, &o.Status,
				&o.DeliveryAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
				serverError(w, dev, "Failed to load orders", err)
				return
			}
			orders = append(orders, o)
		}
		if err := rows.Err(); err != nil {
			serverError(w, dev, "Failed to load orders", err)
			return
		}

		for i := range orders {
			items, err := orderItems(db, orders[i].ID)
			if err != nil {
				serverError(w, dev, "Failed to load orders", err)
				return
			}
			orders[i].Items = items
			orders[i].ItemCount = len(items)
		}
		writeList(w, orders, len(orders))
	}
}

func GetOrderHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Order id must be a number")
			return
		}

		var o models.Order
		// Ownership is part of the lookup: an order belonging to
		// someone else is indistinguishable from a missing one.
		err = db.QueryRow(`
			SELECT id, order_number, total_amount, status, delivery_address, notes,
			       created_at, updated_at
			FROM orders
			WHERE id = $1 AND user_id = $2
		`, id, userID).Scan(&o.ID, &o.OrderNumber, &o.TotalAmount, &o.Status,
			&o.DeliveryAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Order not found", "The requested order was not found")
			return
		} else if err != nil {
			serverError(w, dev, "Failed to load order", err)
			return
		}

		items, err := orderItems(db, o.ID)
		if err != nil {
			serverError(w, dev, "Failed to load order", err)
			return
		}
		o.Items = items
		o.ItemCount = len(items)
		writeData(w, http.StatusOK, o)
	}
}

func UpdateOrderStatusHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Order id must be a number")
			return
		}
		var req models.StatusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Invalid JSON body")
			return
		}
		if !req.Status.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", "Unknown order status")
			return
		}

		var current models.OrderStatus
		err = db.QueryRow(
			"SELECT status FROM orders WHERE id = $1 AND user_id = $2", id, userID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Order not found", "The order you are trying to update was not found")
			return
		} else if err != nil {
			serverError(w, dev, "Update failed", err)
			return
		}
		if !current.CanTransitionTo(req.Status) {
			transErr := &models.InvalidTransitionError{From: current, To: req.Status}
			writeError(w, http.StatusBadRequest, "Invalid status change", transErr.Error())
			return
		}

		var o models.Order
		err = db.QueryRow(`
			UPDATE orders
			SET status = $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2 AND user_id = $3
			RETURNING id, order_number, status, updated_at
		`, req.Status, id, userID).Scan(&o.ID, &o.OrderNumber, &o.Status, &o.UpdatedAt)
		if err != nil {
			serverError(w, dev, "Update failed", err)
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Order status updated",
			Data:    o,
		})
	}
}

func CancelOrderHandler(db *sql.DB, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUser(r).ID
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", "Order id must be a number")
			return
		}

		var current models.OrderStatus
		err = db.QueryRow(
			"SELECT status FROM orders WHERE id = $1 AND user_id = $2", id, userID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Order not found", "The order you are trying to cancel was not found")
			return
		} else if err != nil {
			serverError(w, dev, "Cancellation failed", err)
			return
		}
		if current != models.StatusPending {
			writeError(w, http.StatusBadRequest, "Cannot cancel order",
				fmt.Sprintf("Only pending orders can be cancelled, this order is '%s'", current))
			return
		}

		if _, err := db.Exec(`
			UPDATE orders
			SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND user_id = $2
		`, id, userID); err != nil {
			serverError(w, dev, "Cancellation failed", err)
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Order cancelled successfully"})
	}
}
