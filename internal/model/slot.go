package model

import "time"

// AvailabilitySlot is a single bookable time window owned by a consultant.
// Ranges are half-open [StartTime, EndTime), so back-to-back slots are legal.
type AvailabilitySlot struct {
	ID           int64     `json:"id"`
	ConsultantID int64     `json:"consultant_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	IsBooked     bool      `json:"is_booked"`
	BookedBy     *int64    `json:"booked_by"` // nil while unbooked
	CreatedAt    time.Time `json:"created_at"`
}

// SlotFilter narrows ListSlots results. Now is the reference instant for
// FutureOnly; callers set it from their clock so listings are reproducible.
type SlotFilter struct {
	FutureOnly   bool
	UnbookedOnly bool
	Now          time.Time
}
