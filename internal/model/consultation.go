package model

import "time"

type ConsultationStatus string

const (
	StatusPending   ConsultationStatus = "pending"
	StatusConfirmed ConsultationStatus = "confirmed"
	StatusCompleted ConsultationStatus = "completed"
	StatusCancelled ConsultationStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s ConsultationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s ConsultationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the status machine allows s -> next.
//
//	pending   -> confirmed | cancelled
//	confirmed -> completed | cancelled
func (s ConsultationStatus) CanTransitionTo(next ConsultationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// Consultation links a patient to the slot their claim consumed.
type Consultation struct {
	ID           int64              `json:"id"`
	PatientID    int64              `json:"patient_id"`
	ConsultantID int64              `json:"consultant_id"`
	SlotID       int64              `json:"slot_id"`
	ScheduledFor time.Time          `json:"scheduled_for"` // copied from the slot at claim time
	Status       ConsultationStatus `json:"status"`
	Notes        string             `json:"notes"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Active reports whether the consultation still holds its slot.
func (c *Consultation) Active() bool {
	return c.Status == StatusPending || c.Status == StatusConfirmed
}
