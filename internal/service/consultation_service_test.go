package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/events"
	"github.com/herbalhaven/booking-core/internal/model"
)

func pendingConsultation() *model.Consultation {
	return &model.Consultation{
		ID:           1,
		SlotID:       42,
		PatientID:    501,
		ConsultantID: 7,
		Status:       model.StatusPending,
		ScheduledFor: time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC),
	}
}

func TestTransitionRejectsBadTargetStatus(t *testing.T) {
	store := &mockConsultationStore{}
	svc := NewConsultationService(store, &mockPublisher{}, zap.NewNop())

	for _, status := range []model.ConsultationStatus{"", "unknown", model.StatusPending} {
		_, err := svc.Transition(context.Background(), 501, 1, status)
		require.Error(t, err)

		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "status", verr.Field)
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	}

	// Malformed input never reaches the store.
	store.AssertNotCalled(t, "GetConsultation", mock.Anything, mock.Anything)
}

func TestTransitionAuthorization(t *testing.T) {
	cases := []struct {
		name    string
		actorID int64
		target  model.ConsultationStatus
		allowed bool
	}{
		{"patient cancels own", 501, model.StatusCancelled, true},
		{"consultant cancels own", 7, model.StatusCancelled, true},
		{"stranger cancels", 999, model.StatusCancelled, false},
		{"consultant confirms", 7, model.StatusConfirmed, true},
		{"patient confirms", 501, model.StatusConfirmed, false},
		{"patient completes", 501, model.StatusCompleted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current := pendingConsultation()
			if tc.target == model.StatusCompleted {
				current.Status = model.StatusConfirmed
			}
			updated := *current
			updated.Status = tc.target

			store := &mockConsultationStore{}
			store.On("GetConsultation", mock.Anything, int64(1)).Return(current, nil)
			store.On("Transition", mock.Anything, int64(1), current.Status, tc.target).Return(&updated, nil)

			bus := &mockPublisher{}
			bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

			svc := NewConsultationService(store, bus, zap.NewNop())
			got, err := svc.Transition(context.Background(), tc.actorID, 1, tc.target)

			if !tc.allowed {
				assert.ErrorIs(t, err, model.ErrNotAuthorized)
				store.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.target, got.Status)
		})
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	cases := []struct {
		name  string
		from  model.ConsultationStatus
		to    model.ConsultationStatus
		actor int64
	}{
		{"completed is terminal", model.StatusCompleted, model.StatusCancelled, 7},
		{"cancelled is terminal", model.StatusCancelled, model.StatusConfirmed, 7},
		{"pending cannot complete", model.StatusPending, model.StatusCompleted, 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current := pendingConsultation()
			current.Status = tc.from

			store := &mockConsultationStore{}
			store.On("GetConsultation", mock.Anything, int64(1)).Return(current, nil)

			svc := NewConsultationService(store, &mockPublisher{}, zap.NewNop())
			_, err := svc.Transition(context.Background(), tc.actor, 1, tc.to)
			assert.ErrorIs(t, err, model.ErrInvalidTransition)
			store.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTransitionNotFound(t *testing.T) {
	store := &mockConsultationStore{}
	store.On("GetConsultation", mock.Anything, int64(1)).Return(nil, model.ErrNotFound)

	svc := NewConsultationService(store, &mockPublisher{}, zap.NewNop())
	_, err := svc.Transition(context.Background(), 501, 1, model.StatusCancelled)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTransitionPublishesCancelledEvent(t *testing.T) {
	current := pendingConsultation()
	updated := *current
	updated.Status = model.StatusCancelled

	store := &mockConsultationStore{}
	store.On("GetConsultation", mock.Anything, int64(1)).Return(current, nil)
	store.On("Transition", mock.Anything, int64(1), model.StatusPending, model.StatusCancelled).Return(&updated, nil)

	bus := &mockPublisher{}
	bus.On("PublishJSON", events.EventCancelled, mock.MatchedBy(func(p interface{}) bool {
		event, ok := p.(events.ConsultationEvent)
		return ok && event.ConsultationID == 1 && event.Status == string(model.StatusCancelled)
	})).Return(nil)

	svc := NewConsultationService(store, bus, zap.NewNop())
	_, err := svc.Transition(context.Background(), 501, 1, model.StatusCancelled)
	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestTransitionPublishesStatusChangedEvent(t *testing.T) {
	current := pendingConsultation()
	updated := *current
	updated.Status = model.StatusConfirmed

	store := &mockConsultationStore{}
	store.On("GetConsultation", mock.Anything, int64(1)).Return(current, nil)
	store.On("Transition", mock.Anything, int64(1), model.StatusPending, model.StatusConfirmed).Return(&updated, nil)

	bus := &mockPublisher{}
	bus.On("PublishJSON", events.EventStatusChanged, mock.Anything).Return(nil)

	svc := NewConsultationService(store, bus, zap.NewNop())
	_, err := svc.Transition(context.Background(), 7, 1, model.StatusConfirmed)
	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestTransitionLostCompareAndSwap(t *testing.T) {
	current := pendingConsultation()

	store := &mockConsultationStore{}
	store.On("GetConsultation", mock.Anything, int64(1)).Return(current, nil)
	// Another actor moved the consultation between the read and the swap.
	store.On("Transition", mock.Anything, int64(1), model.StatusPending, model.StatusConfirmed).
		Return(nil, model.ErrInvalidTransition)

	bus := &mockPublisher{}
	svc := NewConsultationService(store, bus, zap.NewNop())

	_, err := svc.Transition(context.Background(), 7, 1, model.StatusConfirmed)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestListConsultations(t *testing.T) {
	byPatient := []*model.Consultation{pendingConsultation()}

	store := &mockConsultationStore{}
	store.On("ListByPatient", mock.Anything, int64(501)).Return(byPatient, nil)
	store.On("ListByConsultant", mock.Anything, int64(7)).Return([]*model.Consultation{}, nil)

	svc := NewConsultationService(store, &mockPublisher{}, zap.NewNop())

	got, err := svc.ListForPatient(context.Background(), 501)
	require.NoError(t, err)
	assert.Equal(t, byPatient, got)

	empty, err := svc.ListForConsultant(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
