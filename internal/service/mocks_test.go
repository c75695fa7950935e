package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/herbalhaven/booking-core/internal/model"
)

type mockSlotStore struct {
	mock.Mock
}

func (m *mockSlotStore) CreateSlot(ctx context.Context, slot *model.AvailabilitySlot) error {
	args := m.Called(ctx, slot)
	return args.Error(0)
}

func (m *mockSlotStore) GetSlot(ctx context.Context, slotID int64) (*model.AvailabilitySlot, error) {
	args := m.Called(ctx, slotID)
	if slot := args.Get(0); slot != nil {
		return slot.(*model.AvailabilitySlot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSlotStore) ListSlots(ctx context.Context, consultantID int64, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	args := m.Called(ctx, consultantID, filter)
	if slots := args.Get(0); slots != nil {
		return slots.([]*model.AvailabilitySlot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSlotStore) ListBookable(ctx context.Context, consultantID int64, from time.Time) ([]*model.AvailabilitySlot, error) {
	args := m.Called(ctx, consultantID, from)
	if slots := args.Get(0); slots != nil {
		return slots.([]*model.AvailabilitySlot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSlotStore) CountBookable(ctx context.Context, consultantID int64, from time.Time) (int, error) {
	args := m.Called(ctx, consultantID, from)
	return args.Int(0), args.Error(1)
}

func (m *mockSlotStore) DeleteSlot(ctx context.Context, slotID int64, now time.Time) error {
	args := m.Called(ctx, slotID, now)
	return args.Error(0)
}

func (m *mockSlotStore) Claim(ctx context.Context, slotID, patientID int64, now time.Time) (*model.Consultation, error) {
	args := m.Called(ctx, slotID, patientID, now)
	if c := args.Get(0); c != nil {
		return c.(*model.Consultation), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockConsultationStore struct {
	mock.Mock
}

func (m *mockConsultationStore) GetConsultation(ctx context.Context, id int64) (*model.Consultation, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*model.Consultation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConsultationStore) ListByPatient(ctx context.Context, patientID int64) ([]*model.Consultation, error) {
	args := m.Called(ctx, patientID)
	if list := args.Get(0); list != nil {
		return list.([]*model.Consultation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConsultationStore) ListByConsultant(ctx context.Context, consultantID int64) ([]*model.Consultation, error) {
	args := m.Called(ctx, consultantID)
	if list := args.Get(0); list != nil {
		return list.([]*model.Consultation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConsultationStore) Transition(ctx context.Context, id int64, from, to model.ConsultationStatus) (*model.Consultation, error) {
	args := m.Called(ctx, id, from, to)
	if c := args.Get(0); c != nil {
		return c.(*model.Consultation), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockConsultantStore struct {
	mock.Mock
}

func (m *mockConsultantStore) GetConsultant(ctx context.Context, id int64) (*model.Consultant, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*model.Consultant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConsultantStore) ListActiveConsultants(ctx context.Context) ([]*model.Consultant, error) {
	args := m.Called(ctx)
	if list := args.Get(0); list != nil {
		return list.([]*model.Consultant), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}
