package models

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPreparing  OrderStatus = "preparing"
	StatusDelivering OrderStatus = "delivering"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusDelivering, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// transitions is the single status policy for both the generic
// status-update endpoint and the cancel endpoint.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing},
	StatusPreparing:  {StatusDelivering},
	StatusDelivering: {StatusDelivered},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              int             `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	DeliveryAddress *string         `json:"deliveryAddress,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	ItemCount       int             `json:"itemCount,omitempty"`
	Items           []OrderItem     `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}

type OrderItem struct {
	ID        int             `json:"id"`
	FoodID    int             `json:"foodId"`
	FoodName  string          `json:"foodName"`
	Image     *string         `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CreateOrderRequest struct {
	DeliveryAddress string `json:"deliveryAddress"`
	Notes           string `json:"notes"`
}

type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns a human-readable order number such as
// ORD-1735689600000-4K7QZ1M2X. Uniqueness is enforced by the caller
// against the orders.order_number unique index, not by this function.
func NewOrderNumber() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
