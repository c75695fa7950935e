package model

import "time"

// Consultant is a service provider who owns availability slots. The record is
// managed by profile tooling elsewhere; the booking core only reads it.
type Consultant struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Specialty   string    `json:"specialty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
