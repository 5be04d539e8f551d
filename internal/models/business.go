package models

import "time"

// Business is a directory listing as stored by the business repository.
type Business struct {
	ID          int         `json:"id"`
	Name        string      `json:"business_name"`
	OwnerName   string      `json:"owner_name"`
	Type        string      `json:"business_type"`
	Address     string      `json:"address"`
	Phone       string      `json:"phone"`
	Website     string      `json:"website,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Verified    bool        `json:"verified"`
	Services    string      `json:"services,omitempty"` // e.g. "Haircut ($60.00), Coloring ($150.00)"
	CreatedAt   time.Time   `json:"created_at"`
	Distance    *float64    `json:"distance,omitempty"` // Distance in km from the query point, if any.
}

// Service is a priced offering of a business.
type Service struct {
	Name  string
	Price float64
}

// Place is a forward-geocoding hit for a free-text query.
type Place struct {
	Coordinates Coordinates `json:"coordinates"`
	Name        string      `json:"name"`
}
