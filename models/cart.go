package models

import "github.com/shopspring/decimal"

type CartItem struct {
	FoodID       int             `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Image        *string         `json:"image"`
	Rating       decimal.Decimal `json:"rating"`
	DeliveryTime *string         `json:"deliveryTime"`
	Restaurant   *string         `json:"restaurant"`
	Quantity     int             `json:"quantity"`
}

type Cart struct {
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

type CartRequest struct {
	FoodID   int  `json:"foodId"`
	Quantity *int `json:"quantity"`
}
