package models

import "time"

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProfileUpdateRequest struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// UserStats aggregates the numbers shown on the profile page.
type UserStats struct {
	OrderCount int    `json:"orderCount"`
	SavedCount int    `json:"savedCount"`
	TotalSpent string `json:"totalSpent"`
}

type Profile struct {
	User  User      `json:"user"`
	Stats UserStats `json:"stats"`
}
