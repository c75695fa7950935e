package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/domain"
	"github.com/herbalhaven/booking-core/internal/events"
	"github.com/herbalhaven/booking-core/internal/metrics"
	"github.com/herbalhaven/booking-core/internal/model"
)

// ConsultationService owns the consultation status machine.
type ConsultationService struct {
	consultations domain.ConsultationStore
	eventBus      domain.EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewConsultationService(
	consultations domain.ConsultationStore,
	eventBus domain.EventPublisher,
	logger *zap.Logger,
) *ConsultationService {
	return &ConsultationService{
		consultations: consultations,
		eventBus:      eventBus,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "now".
func (s *ConsultationService) WithClock(now func() time.Time) *ConsultationService {
	s.now = now
	return s
}

// Transition moves a consultation to newStatus on behalf of actorID.
// Authorization and legality are checked before the store write; the store
// then re-checks the current status with a compare-and-swap, so a concurrent
// transition cannot slip through. Cancelling releases the slot atomically
// with the status write.
func (s *ConsultationService) Transition(ctx context.Context, actorID, consultationID int64, newStatus model.ConsultationStatus) (*model.Consultation, error) {
	if !newStatus.Valid() || newStatus == model.StatusPending {
		return nil, model.NewValidationError("status", model.ErrInvalidTransition)
	}

	current, err := s.consultations.GetConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(current, actorID, newStatus); err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(newStatus) {
		return nil, model.ErrInvalidTransition
	}

	updated, err := s.consultations.Transition(ctx, consultationID, current.Status, newStatus)
	if err != nil {
		return nil, fmt.Errorf("transition consultation %d: %w", consultationID, err)
	}

	metrics.IncTransition(string(newStatus))
	s.logger.Info("consultation transitioned",
		zap.Int64("consultation_id", updated.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.Int64("actor_id", actorID),
	)

	eventType := events.EventStatusChanged
	if newStatus == model.StatusCancelled {
		eventType = events.EventCancelled
	}
	s.publish(eventType, updated)

	return updated, nil
}

// ListForPatient returns the patient's consultations, most recent first.
func (s *ConsultationService) ListForPatient(ctx context.Context, patientID int64) ([]*model.Consultation, error) {
	return s.consultations.ListByPatient(ctx, patientID)
}

// ListForConsultant returns the consultant's consultations, most recent
// first.
func (s *ConsultationService) ListForConsultant(ctx context.Context, consultantID int64) ([]*model.Consultation, error) {
	return s.consultations.ListByConsultant(ctx, consultantID)
}

// authorizeTransition enforces who may move a consultation: cancellation by
// either party, confirmation and completion by the owning consultant only.
func authorizeTransition(c *model.Consultation, actorID int64, newStatus model.ConsultationStatus) error {
	switch newStatus {
	case model.StatusCancelled:
		if actorID != c.PatientID && actorID != c.ConsultantID {
			return model.ErrNotAuthorized
		}
	case model.StatusConfirmed, model.StatusCompleted:
		if actorID != c.ConsultantID {
			return model.ErrNotAuthorized
		}
	default:
		return model.ErrInvalidTransition
	}
	return nil
}

func (s *ConsultationService) publish(eventType string, c *model.Consultation) {
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
