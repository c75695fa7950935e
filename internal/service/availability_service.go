package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/domain"
	"github.com/herbalhaven/booking-core/internal/model"
	"github.com/herbalhaven/booking-core/internal/schedule"
)

// AvailabilityService is the consultant-facing side of the booking core:
// creating, listing and deleting availability slots.
type AvailabilityService struct {
	slots        domain.SlotStore
	consultants  domain.ConsultantStore
	storeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewAvailabilityService(
	slots domain.SlotStore,
	consultants domain.ConsultantStore,
	storeTimeout time.Duration,
	logger *zap.Logger,
) *AvailabilityService {
	if storeTimeout <= 0 {
		storeTimeout = defaultClaimTimeout
	}
	return &AvailabilityService{
		slots:        slots,
		consultants:  consultants,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "now".
func (s *AvailabilityService) WithClock(now func() time.Time) *AvailabilityService {
	s.now = now
	return s
}

// CreateSlot validates and persists a new unbooked slot for the calling
// consultant. Validation and ownership failures return before any store
// mutation; store calls run under a bounded timeout surfacing ErrTimeout.
func (s *AvailabilityService) CreateSlot(ctx context.Context, callerID, consultantID int64, start, end time.Time) (*model.AvailabilitySlot, error) {
	if callerID != consultantID {
		return nil, model.ErrNotAuthorized
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	consultant, err := s.consultants.GetConsultant(ctx, consultantID)
	if err != nil {
		return nil, mapTimeout(err, "get consultant")
	}
	if !consultant.IsActive {
		return nil, model.ErrConsultantClosed
	}

	start = start.UTC()
	end = end.UTC()
	if err := schedule.ValidateRange(start, end, s.now().UTC()); err != nil {
		return nil, err
	}

	slot := &model.AvailabilitySlot{
		ConsultantID: consultantID,
		StartTime:    start,
		EndTime:      end,
	}
	if err := s.slots.CreateSlot(ctx, slot); err != nil {
		return nil, mapTimeout(err, "create slot")
	}

	s.logger.Info("slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("consultant_id", consultantID),
		zap.Time("start_time", slot.StartTime),
		zap.Time("end_time", slot.EndTime),
	)
	return slot, nil
}

// mapTimeout converts a deadline miss on a store call into the Timeout
// sentinel; every other error keeps its identity through the wrap.
func mapTimeout(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, model.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ListSlots returns the consultant's slots ascending by start time.
func (s *AvailabilityService) ListSlots(ctx context.Context, consultantID int64, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	if filter.FutureOnly && filter.Now.IsZero() {
		filter.Now = s.now().UTC()
	}
	return s.slots.ListSlots(ctx, consultantID, filter)
}

// DeleteSlot removes one of the caller's unbooked future slots. Store calls
// run under a bounded timeout surfacing ErrTimeout.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, callerID, slotID int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return mapTimeout(err, "get slot")
	}
	if slot.ConsultantID != callerID {
		return model.ErrNotAuthorized
	}

	if err := s.slots.DeleteSlot(ctx, slotID, s.now().UTC()); err != nil {
		return mapTimeout(err, "delete slot")
	}

	s.logger.Info("slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("consultant_id", callerID),
	)
	return nil
}
