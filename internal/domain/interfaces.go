package domain

import (
	"context"
	"time"

	"github.com/herbalhaven/booking-core/internal/model"
)

// SlotStore is the persistence boundary for availability slots. Create and
// Claim carry the atomicity guarantees the services rely on: Create rejects
// overlapping windows for the same consultant even under concurrent inserts,
// and Claim performs the conditional book-and-create-consultation as a single
// unit of work.
type SlotStore interface {
	CreateSlot(ctx context.Context, slot *model.AvailabilitySlot) error
	GetSlot(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	ListSlots(ctx context.Context, consultantID int64, filter model.SlotFilter) ([]*model.AvailabilitySlot, error)
	ListBookable(ctx context.Context, consultantID int64, from time.Time) ([]*model.AvailabilitySlot, error)
	CountBookable(ctx context.Context, consultantID int64, from time.Time) (int, error)
	// DeleteSlot removes an unbooked future slot. Zero-effect outcomes map to
	// ErrNotFound, ErrAlreadyBooked or ErrInThePast.
	DeleteSlot(ctx context.Context, slotID int64, now time.Time) error
	// Claim atomically marks the slot booked and creates its pending
	// consultation. A repeat claim by the patient already holding the slot
	// returns the existing active consultation.
	Claim(ctx context.Context, slotID, patientID int64, now time.Time) (*model.Consultation, error)
}

// ConsultationStore persists consultations and their status machine.
type ConsultationStore interface {
	GetConsultation(ctx context.Context, id int64) (*model.Consultation, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*model.Consultation, error)
	ListByConsultant(ctx context.Context, consultantID int64) ([]*model.Consultation, error)
	// Transition applies from -> to as a compare-and-swap on the current
	// status. Cancellation releases the underlying slot in the same unit of
	// work. A swap miss on an existing row maps to ErrInvalidTransition.
	Transition(ctx context.Context, id int64, from, to model.ConsultationStatus) (*model.Consultation, error)
}

// ConsultantStore reads the consultant directory. The booking core never
// writes it.
type ConsultantStore interface {
	GetConsultant(ctx context.Context, id int64) (*model.Consultant, error)
	ListActiveConsultants(ctx context.Context) ([]*model.Consultant, error)
}

// EventPublisher delivers fire-and-forget notifications after successful
// mutations. Failures are logged by the caller, never propagated.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
