package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/domain"
	"github.com/herbalhaven/booking-core/internal/events"
	"github.com/herbalhaven/booking-core/internal/metrics"
	"github.com/herbalhaven/booking-core/internal/model"
)

const defaultClaimTimeout = 3 * time.Second

// BookingService is the patient-facing side of the booking core: discovering
// bookable slots and claiming one.
type BookingService struct {
	slots        domain.SlotStore
	consultants  domain.ConsultantStore
	eventBus     domain.EventPublisher
	claimTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewBookingService(
	slots domain.SlotStore,
	consultants domain.ConsultantStore,
	eventBus domain.EventPublisher,
	claimTimeout time.Duration,
	logger *zap.Logger,
) *BookingService {
	if claimTimeout <= 0 {
		claimTimeout = defaultClaimTimeout
	}
	return &BookingService{
		slots:        slots,
		consultants:  consultants,
		eventBus:     eventBus,
		claimTimeout: claimTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "now".
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// ListBookableSlots returns the consultant's unbooked slots starting after
// from, ascending by start time. A zero from means "from now". The result is
// a point-in-time view; callers re-query after a lost claim.
func (s *BookingService) ListBookableSlots(ctx context.Context, consultantID int64, from time.Time) ([]*model.AvailabilitySlot, error) {
	if from.IsZero() {
		from = s.now()
	}
	return s.slots.ListBookable(ctx, consultantID, from.UTC())
}

// ClaimSlot attempts the atomic claim. Exactly one concurrent caller wins an
// unbooked slot; losers get ErrAlreadyBooked and should re-list rather than
// retry the same slot. The store calls run under a bounded timeout; running
// out of it surfaces ErrTimeout.
func (s *BookingService) ClaimSlot(ctx context.Context, patientID, slotID int64) (*model.Consultation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.claimTimeout)
	defer cancel()

	consultation, err := s.claim(ctx, patientID, slotID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyBooked):
			// Expected under contention, not a failure.
			metrics.IncClaim(metrics.ClaimLost)
			s.logger.Debug("claim lost",
				zap.Int64("slot_id", slotID),
				zap.Int64("patient_id", patientID),
			)
		case errors.Is(err, model.ErrSlotExpired):
			metrics.IncClaim(metrics.ClaimExpired)
		case errors.Is(err, model.ErrNotFound):
			metrics.IncClaim(metrics.ClaimNotFound)
		case errors.Is(err, model.ErrConsultantClosed):
			metrics.IncClaim(metrics.ClaimClosed)
		case errors.Is(err, context.DeadlineExceeded):
			metrics.IncClaim(metrics.ClaimTimeout)
			return nil, fmt.Errorf("claim slot %d: %w", slotID, model.ErrTimeout)
		default:
			metrics.IncClaim(metrics.ClaimError)
		}
		return nil, err
	}

	metrics.IncClaim(metrics.ClaimWon)
	s.logger.Info("slot claimed",
		zap.Int64("consultation_id", consultation.ID),
		zap.Int64("slot_id", slotID),
		zap.Int64("patient_id", patientID),
		zap.Time("scheduled_for", consultation.ScheduledFor),
	)

	s.publish(events.EventBooked, consultation)
	return consultation, nil
}

// claim rejects bookings against a closed calendar before racing for the
// slot. The conditional write in the store remains the race arbiter.
func (s *BookingService) claim(ctx context.Context, patientID, slotID int64) (*model.Consultation, error) {
	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	consultant, err := s.consultants.GetConsultant(ctx, slot.ConsultantID)
	if err != nil {
		return nil, fmt.Errorf("get consultant: %w", err)
	}
	if !consultant.IsActive {
		return nil, model.ErrConsultantClosed
	}

	return s.slots.Claim(ctx, slotID, patientID, s.now().UTC())
}

// publish delivers a notification event; delivery failures are logged and
// never affect the committed mutation.
func (s *BookingService) publish(eventType string, c *model.Consultation) {
	err := s.eventBus.PublishJSON(eventType, events.ConsultationEvent{
		ConsultationID: c.ID,
		SlotID:         c.SlotID,
		PatientID:      c.PatientID,
		ConsultantID:   c.ConsultantID,
		Status:         string(c.Status),
		OccurredAt:     s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("notify failed", zap.String("event", eventType), zap.Error(err))
	}
}
