package entity

import (
	"time"
)

// Profile represents a marketplace user for data transfer between layers.
// Authentication itself is handled by the hosted auth service; we only keep
// the identity fields reports need.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       *string   `json:"email,omitempty"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
