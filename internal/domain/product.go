package domain

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Style       string    `json:"style"`
	Description string    `json:"description"`
	ABV         string    `json:"abv,omitempty"`
	Image       string    `json:"image,omitempty"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
