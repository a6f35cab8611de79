package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"foodrush/models"
)

func strPtr(s string) *string { return &s }

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, u))
}

func expectCartSnapshot(mock sqlmock.Sqlmock, userID int, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ci.food_id, ci.quantity, f.price, f.name")).
		WithArgs(userID).
		WillReturnRows(rows)
}

func expectCartCount(mock sqlmock.Sqlmock, userID, count int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM cart_items")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func expectOrderNumberFree(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
}

func TestCreateOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	user := &models.User{ID: 7, Address: strPtr("12 Peace Ave")}
	fee := decimal.RequireFromString("2.99")
	createdAt := time.Now()

	mock.ExpectBegin()
	expectCartSnapshot(mock, user.ID, sqlmock.
		NewRows([]string{"food_id", "quantity", "price", "name"}).
		AddRow(1, 2, "10.00", "Margherita").
		AddRow(2, 1, "5.50", "Cola"))
	expectCartCount(mock, user.ID, 2)
	expectOrderNumberFree(mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(user.ID, sqlmock.AnyArg(), "28.49", "12 Peace Ave", nil).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "order_number", "total_amount", "status", "delivery_address", "notes", "created_at"}).
			AddRow(41, "ORD-1-TEST", "28.49", "pending", "12 Peace Ave", nil, createdAt))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(41, 1, 2, "10.00", "20.00").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(41, 2, 1, "5.50", "5.50").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).
		WithArgs(user.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	order, err := createOrder(db, user, models.CreateOrderRequest{}, fee)
	if err != nil {
		t.Fatalf("createOrder() error = %v", err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("28.49")) {
		t.Errorf("TotalAmount = %s, want 28.49", order.TotalAmount)
	}
	if order.Status != models.StatusPending {
		t.Errorf("Status = %s, want pending", order.Status)
	}
	if order.ItemCount != 2 {
		t.Errorf("ItemCount = %d, want 2", order.ItemCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateOrderAddressOverride(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	user := &models.User{ID: 7, Address: strPtr("12 Peace Ave")}

	mock.ExpectBegin()
	expectCartSnapshot(mock, user.ID, sqlmock.
		NewRows([]string{"food_id", "quantity", "price", "name"}).
		AddRow(1, 1, "10.00", "Margherita"))
	expectCartCount(mock, user.ID, 1)
	expectOrderNumberFree(mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(user.ID, sqlmock.AnyArg(), "12.99", "8 Sukhbaatar Sq", "ring the bell").
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "order_number", "total_amount", "status", "delivery_address", "notes", "created_at"}).
			AddRow(42, "ORD-2-TEST", "12.99", "pending", "8 Sukhbaatar Sq", "ring the bell", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(42, 1, 1, "10.00", "10.00").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).
		WithArgs(user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := models.CreateOrderRequest{DeliveryAddress: "8 Sukhbaatar Sq", Notes: "ring the bell"}
	if _, err := createOrder(db, user, req, decimal.RequireFromString("2.99")); err != nil {
		t.Fatalf("createOrder() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	user := &models.User{ID: 7}

	mock.ExpectBegin()
	expectCartSnapshot(mock, user.ID,
		sqlmock.NewRows([]string{"food_id", "quantity", "price", "name"}))
	expectCartCount(mock, user.ID, 0)
	mock.ExpectRollback()

	_, err = createOrder(db, user, models.CreateOrderRequest{}, decimal.RequireFromString("2.99"))
	if !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("createOrder() error = %v, want ErrEmptyCart", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateOrderStaleCartItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	user := &models.User{ID: 7}

	mock.ExpectBegin()
	expectCartSnapshot(mock, user.ID, sqlmock.
		NewRows([]string{"food_id", "quantity", "price", "name"}).
		AddRow(1, 2, "10.00", "Margherita"))
	expectCartCount(mock, user.ID, 2)
	mock.ExpectRollback()

	_, err = createOrder(db, user, models.CreateOrderRequest{}, decimal.RequireFromString("2.99"))
	if !errors.Is(err, models.ErrStaleCartItem) {
		t.Fatalf("createOrder() error = %v, want ErrStaleCartItem", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// A failure after the order row is written must roll the whole
// transaction back, leaving no order and an untouched cart.
func TestCreateOrderRollsBackOnItemFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	user := &models.User{ID: 7, Address: strPtr("12 Peace Ave")}

	mock.ExpectBegin()
	expectCartSnapshot(mock, user.ID, sqlmock.
		NewRows([]string{"food_id", "quantity", "price", "name"}).
		AddRow(1, 2, "10.00", "Margherita").
		AddRow(2, 1, "5.50", "Cola"))
	expectCartCount(mock, user.ID, 2)
	expectOrderNumberFree(mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(user.ID, sqlmock.AnyArg(), "28.49", "12 Peace Ave", nil).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "order_number", "total_amount", "status", "delivery_address", "notes", "created_at"}).
			AddRow(41, "ORD-3-TEST", "28.49", "pending", "12 Peace Ave", nil, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(41, 1, 2, "10.00", "20.00").
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	_, err = createOrder(db, user, models.CreateOrderRequest{}, decimal.RequireFromString("2.99"))
	if err == nil {
		t.Fatal("createOrder() expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateOrderHandlerEmptyCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	expectCartSnapshot(mock, 7,
		sqlmock.NewRows([]string{"food_id", "quantity", "price", "name"}))
	expectCartCount(mock, 7, 0)
	mock.ExpectRollback()

	handler := CreateOrderHandler(db, decimal.RequireFromString("2.99"), false)
	r := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`))
	r = withUser(r, &models.User{ID: 7})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("Success = true, want false")
	}
	if resp.Error != "Cart is empty" {
		t.Errorf("Error = %q, want %q", resp.Error, "Cart is empty")
	}
}

func TestCreateOrderHandlerValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	handler := CreateOrderHandler(db, decimal.RequireFromString("2.99"), false)
	body := `{"notes":"` + strings.Repeat("x", 1001) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	r = withUser(r, &models.User{ID: 7})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetOrderNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	// User 7 asks for an order that exists but belongs to user 8:
	// the ownership-scoped query finds nothing and the response is a
	// plain 404, indistinguishable from a missing order.
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WithArgs(41, 7).
		WillReturnError(sql.ErrNoRows)

	handler := GetOrderHandler(db, false)
	r := httptest.NewRequest(http.MethodGet, "/api/orders/41", nil)
	r.SetPathValue("id", "41")
	r = withUser(r, &models.User{ID: 7})
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Order not found" {
		t.Errorf("Error = %q, want %q", resp.Error, "Order not found")
	}
}

func TestCancelOrder(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantCode   int
		wantUpdate bool
	}{
		{name: "pending order cancels", status: "pending", wantCode: http.StatusOK, wantUpdate: true},
		{name: "confirmed order is rejected", status: "confirmed", wantCode: http.StatusBadRequest},
		{name: "delivered order is rejected", status: "delivered", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New() error = %v", err)
			}
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders")).
				WithArgs(41, 7).
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(tt.status))
			if tt.wantUpdate {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE orders")).
					WithArgs(41, 7).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}

			handler := CancelOrderHandler(db, false)
			r := httptest.NewRequest(http.MethodDelete, "/api/orders/41", nil)
			r.SetPathValue("id", "41")
			r = withUser(r, &models.User{ID: 7})
			w := httptest.NewRecorder()
			handler(w, r)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		next     string
		wantCode int
	}{
		{name: "pending to confirmed", current: "pending", next: "confirmed", wantCode: http.StatusOK},
		{name: "confirmed to preparing", current: "confirmed", next: "preparing", wantCode: http.StatusOK},
		{name: "pending to delivered skips steps", current: "pending", next: "delivered", wantCode: http.StatusBadRequest},
		{name: "delivered is terminal", current: "delivered", next: "preparing", wantCode: http.StatusBadRequest},
		{name: "unknown status", current: "pending", next: "lost", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New() error = %v", err)
			}
			defer db.Close()

			if models.OrderStatus(tt.next).Valid() {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders")).
					WithArgs(41, 7).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(tt.current))
			}
			if tt.wantCode == http.StatusOK {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders")).
					WithArgs(tt.next, 41, 7).
					WillReturnRows(sqlmock.
						NewRows([]string{"id", "order_number", "status", "updated_at"}).
						AddRow(41, "ORD-4-TEST", tt.next, time.Now()))
			}

			handler := UpdateOrderStatusHandler(db, false)
			r := httptest.NewRequest(http.MethodPut, "/api/orders/41/status",
				strings.NewReader(`{"status":"`+tt.next+`"}`))
			r.SetPathValue("id", "41")
			r = withUser(r, &models.User{ID: 7})
			w := httptest.NewRecorder()
			handler(w, r)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}
