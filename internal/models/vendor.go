package models

import "time"

// Vendor is a supplier that bills can be raised against.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateVendorRequest creates one vendor. Name is required and unique.
type CreateVendorRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Notes   string `json:"notes,omitempty"`
}
