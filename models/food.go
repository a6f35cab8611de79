package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int     `json:"id,omitempty"`
	Name *string `json:"name"`
	Slug *string `json:"slug,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

type Restaurant struct {
	ID          *int    `json:"id,omitempty"`
	Name        *string `json:"name"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

type Food struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Image        *string         `json:"image"`
	Rating       decimal.Decimal `json:"rating"`
	DeliveryTime *string         `json:"deliveryTime"`
	Category     Category        `json:"category"`
	Restaurant   Restaurant      `json:"restaurant"`
	IsSaved      bool            `json:"isSaved"`
	SavedAt      *time.Time      `json:"savedAt,omitempty"`
}
