package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/events"
	"github.com/herbalhaven/booking-core/internal/model"
)

func claimFixtures(now time.Time) (*model.AvailabilitySlot, *model.Consultant) {
	slot := &model.AvailabilitySlot{
		ID:           42,
		ConsultantID: 7,
		StartTime:    now.Add(time.Hour),
		EndTime:      now.Add(90 * time.Minute),
	}
	consultant := &model.Consultant{ID: 7, DisplayName: "Dr. Sage", IsActive: true}
	return slot, consultant
}

func TestClaimSlotPublishesBookedEvent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	slot, consultant := claimFixtures(now)
	consultation := &model.Consultation{
		ID:           1,
		SlotID:       42,
		PatientID:    501,
		ConsultantID: 7,
		Status:       model.StatusPending,
		ScheduledFor: slot.StartTime,
	}

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)
	slots.On("Claim", mock.Anything, int64(42), int64(501), now).Return(consultation, nil)

	consultants := &mockConsultantStore{}
	consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

	bus := &mockPublisher{}
	bus.On("PublishJSON", events.EventBooked, mock.MatchedBy(func(p interface{}) bool {
		event, ok := p.(events.ConsultationEvent)
		return ok &&
			event.ConsultationID == consultation.ID &&
			event.SlotID == consultation.SlotID &&
			event.Status == string(model.StatusPending)
	})).Return(nil)

	svc := NewBookingService(slots, consultants, bus, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	got, err := svc.ClaimSlot(context.Background(), 501, 42)
	require.NoError(t, err)
	assert.Equal(t, consultation, got)
	bus.AssertExpectations(t)
}

func TestClaimSlotRejectsClosedConsultant(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	slot, consultant := claimFixtures(now)
	consultant.IsActive = false

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)

	consultants := &mockConsultantStore{}
	consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

	bus := &mockPublisher{}
	svc := NewBookingService(slots, consultants, bus, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	_, err := svc.ClaimSlot(context.Background(), 501, 42)
	assert.ErrorIs(t, err, model.ErrConsultantClosed)

	// A closed calendar never reaches the conditional write.
	slots.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestClaimSlotRaceLoss(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	slot, consultant := claimFixtures(now)

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)
	slots.On("Claim", mock.Anything, int64(42), int64(501), now).Return(nil, model.ErrAlreadyBooked)

	consultants := &mockConsultantStore{}
	consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

	bus := &mockPublisher{}
	svc := NewBookingService(slots, consultants, bus, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	_, err := svc.ClaimSlot(context.Background(), 501, 42)
	assert.ErrorIs(t, err, model.ErrAlreadyBooked)

	// A lost race commits nothing and notifies nobody.
	bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestClaimSlotMapsDeadlineToTimeout(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	slot, consultant := claimFixtures(now)

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)
	slots.On("Claim", mock.Anything, int64(42), int64(501), now).Return(nil, context.DeadlineExceeded)

	consultants := &mockConsultantStore{}
	consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

	svc := NewBookingService(slots, consultants, &mockPublisher{}, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	_, err := svc.ClaimSlot(context.Background(), 501, 42)
	assert.ErrorIs(t, err, model.ErrTimeout)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestClaimSlotMissingSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(nil, model.ErrNotFound)

	consultants := &mockConsultantStore{}
	svc := NewBookingService(slots, consultants, &mockPublisher{}, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	_, err := svc.ClaimSlot(context.Background(), 501, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
	consultants.AssertNotCalled(t, "GetConsultant", mock.Anything, mock.Anything)
}

func TestClaimSlotPassesThroughStoreErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, sentinel := range []error{model.ErrSlotExpired, model.ErrAlreadyBooked, errors.New("io failure")} {
		slot, consultant := claimFixtures(now)

		slots := &mockSlotStore{}
		slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)
		slots.On("Claim", mock.Anything, int64(42), int64(501), now).Return(nil, sentinel)

		consultants := &mockConsultantStore{}
		consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

		svc := NewBookingService(slots, consultants, &mockPublisher{}, time.Second, zap.NewNop()).WithClock(fixedClock(now))

		_, err := svc.ClaimSlot(context.Background(), 501, 42)
		assert.ErrorIs(t, err, sentinel)
	}
}

func TestClaimSlotSurvivesNotifierFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	slot, consultant := claimFixtures(now)
	consultation := &model.Consultation{ID: 1, SlotID: 42, PatientID: 501, ConsultantID: 7, Status: model.StatusPending}

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)
	slots.On("Claim", mock.Anything, int64(42), int64(501), now).Return(consultation, nil)

	consultants := &mockConsultantStore{}
	consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

	bus := &mockPublisher{}
	bus.On("PublishJSON", events.EventBooked, mock.Anything).Return(errors.New("broker down"))

	svc := NewBookingService(slots, consultants, bus, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	// The claim already committed; notification failure must not undo it.
	got, err := svc.ClaimSlot(context.Background(), 501, 42)
	require.NoError(t, err)
	assert.Equal(t, consultation, got)
}

func TestListBookableSlotsDefaultsFromToNow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	slots := &mockSlotStore{}
	slots.On("ListBookable", mock.Anything, int64(7), now).Return([]*model.AvailabilitySlot{}, nil)

	svc := NewBookingService(slots, &mockConsultantStore{}, &mockPublisher{}, time.Second, zap.NewNop()).WithClock(fixedClock(now))

	_, err := svc.ListBookableSlots(context.Background(), 7, time.Time{})
	require.NoError(t, err)
	slots.AssertExpectations(t)
}

func TestClaimSlotBoundsStoreCall(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	slot, consultant := claimFixtures(now)

	slots := &mockSlotStore{}
	slots.On("GetSlot", mock.Anything, int64(42)).Return(slot, nil)
	slots.On("Claim", mock.Anything, int64(42), int64(501), now).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deadline, ok := ctx.Deadline()
			assert.True(t, ok, "claim context must carry a deadline")
			assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)
		}).
		Return(nil, model.ErrNotFound)

	consultants := &mockConsultantStore{}
	consultants.On("GetConsultant", mock.Anything, int64(7)).Return(consultant, nil)

	svc := NewBookingService(slots, consultants, &mockPublisher{}, 50*time.Millisecond, zap.NewNop()).WithClock(fixedClock(now))

	_, err := svc.ClaimSlot(context.Background(), 501, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
