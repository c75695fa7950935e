package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/herbalhaven/booking-core/internal/model"
	"github.com/herbalhaven/booking-core/internal/schedule"
)

// MemoryStore is a mutex-guarded in-memory implementation of the store
// interfaces. It carries the same atomicity guarantees as the Postgres
// adapters (the mutex serializes claim, create and transition), which makes
// it both the test bed for the concurrency invariants and a zero-dependency
// dev backend.
type MemoryStore struct {
	mu                 sync.Mutex
	consultants        map[int64]*model.Consultant
	slots              map[int64]*model.AvailabilitySlot
	consultations      map[int64]*model.Consultation
	nextConsultantID   int64
	nextSlotID         int64
	nextConsultationID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consultants:   make(map[int64]*model.Consultant),
		slots:         make(map[int64]*model.AvailabilitySlot),
		consultations: make(map[int64]*model.Consultation),
	}
}

func cloneSlot(s *model.AvailabilitySlot) *model.AvailabilitySlot {
	out := *s
	if s.BookedBy != nil {
		v := *s.BookedBy
		out.BookedBy = &v
	}
	return &out
}

func cloneConsultation(c *model.Consultation) *model.Consultation {
	out := *c
	return &out
}

// AddConsultant seeds a consultant record, assigning an ID when missing.
func (m *MemoryStore) AddConsultant(c *model.Consultant) *model.Consultant {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == 0 {
		m.nextConsultantID++
		c.ID = m.nextConsultantID
	} else if c.ID > m.nextConsultantID {
		m.nextConsultantID = c.ID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := *c
	m.consultants[c.ID] = &stored
	return c
}

func (m *MemoryStore) GetConsultant(_ context.Context, id int64) (*model.Consultant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.consultants[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *MemoryStore) ListActiveConsultants(_ context.Context) ([]*model.Consultant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Consultant
	for _, c := range m.consultants {
		if c.IsActive {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

// CreateSlot stores an unbooked slot, rejecting windows that overlap an existing
// slot of the same consultant. The store mutex makes the check-and-insert
// atomic.
func (m *MemoryStore) CreateSlot(_ context.Context, slot *model.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.slots {
		if existing.ConsultantID != slot.ConsultantID {
			continue
		}
		if schedule.Overlaps(slot.StartTime, slot.EndTime, existing.StartTime, existing.EndTime) {
			return model.ErrOverlap
		}
	}

	m.nextSlotID++
	slot.ID = m.nextSlotID
	slot.IsBooked = false
	slot.BookedBy = nil
	slot.CreatedAt = time.Now().UTC()
	m.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (m *MemoryStore) GetSlot(_ context.Context, id int64) (*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneSlot(slot), nil
}

func (m *MemoryStore) ListSlots(_ context.Context, consultantID int64, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.AvailabilitySlot
	for _, slot := range m.slots {
		if slot.ConsultantID != consultantID {
			continue
		}
		if filter.FutureOnly && !slot.StartTime.After(filter.Now) {
			continue
		}
		if filter.UnbookedOnly && slot.IsBooked {
			continue
		}
		out = append(out, cloneSlot(slot))
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStore) ListBookable(_ context.Context, consultantID int64, from time.Time) ([]*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.AvailabilitySlot
	for _, slot := range m.slots {
		if slot.ConsultantID != consultantID || slot.IsBooked || !slot.StartTime.After(from) {
			continue
		}
		out = append(out, cloneSlot(slot))
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStore) CountBookable(ctx context.Context, consultantID int64, from time.Time) (int, error) {
	slots, err := m.ListBookable(ctx, consultantID, from)
	if err != nil {
		return 0, err
	}
	return len(slots), nil
}

func (m *MemoryStore) DeleteSlot(_ context.Context, slotID int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok {
		return model.ErrNotFound
	}
	if slot.IsBooked {
		return model.ErrAlreadyBooked
	}
	if !slot.StartTime.After(now) {
		return model.ErrInThePast
	}
	delete(m.slots, slotID)
	return nil
}

// Claim books the slot and creates its pending consultation under the store
// mutex, so both mutations apply or neither does. A repeat claim by the
// holding patient returns the existing active consultation.
func (m *MemoryStore) Claim(_ context.Context, slotID, patientID int64, now time.Time) (*model.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok {
		return nil, model.ErrNotFound
	}

	if slot.IsBooked {
		if slot.BookedBy != nil && *slot.BookedBy == patientID {
			if existing := m.activeConsultationForSlot(slotID); existing != nil {
				return cloneConsultation(existing), nil
			}
		}
		return nil, model.ErrAlreadyBooked
	}

	if !slot.StartTime.After(now) {
		return nil, model.ErrSlotExpired
	}

	slot.IsBooked = true
	booker := patientID
	slot.BookedBy = &booker

	m.nextConsultationID++
	createdAt := time.Now().UTC()
	c := &model.Consultation{
		ID:           m.nextConsultationID,
		PatientID:    patientID,
		ConsultantID: slot.ConsultantID,
		SlotID:       slotID,
		ScheduledFor: slot.StartTime,
		Status:       model.StatusPending,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	m.consultations[c.ID] = c
	return cloneConsultation(c), nil
}

func (m *MemoryStore) GetConsultation(_ context.Context, id int64) (*model.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.consultations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneConsultation(c), nil
}

func (m *MemoryStore) ListByPatient(_ context.Context, patientID int64) ([]*model.Consultation, error) {
	return m.listConsultations(func(c *model.Consultation) bool { return c.PatientID == patientID })
}

func (m *MemoryStore) ListByConsultant(_ context.Context, consultantID int64) ([]*model.Consultation, error) {
	return m.listConsultations(func(c *model.Consultation) bool { return c.ConsultantID == consultantID })
}

// Transition applies from -> to as a compare-and-swap; cancellation releases
// the slot in the same critical section.
func (m *MemoryStore) Transition(_ context.Context, id int64, from, to model.ConsultationStatus) (*model.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.consultations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if c.Status != from {
		return nil, model.ErrInvalidTransition
	}

	c.Status = to
	c.UpdatedAt = time.Now().UTC()

	if to == model.StatusCancelled {
		if slot, ok := m.slots[c.SlotID]; ok {
			slot.IsBooked = false
			slot.BookedBy = nil
		}
	}
	return cloneConsultation(c), nil
}

func (m *MemoryStore) activeConsultationForSlot(slotID int64) *model.Consultation {
	for _, c := range m.consultations {
		if c.SlotID == slotID && c.Status != model.StatusCancelled {
			return c
		}
	}
	return nil
}

func (m *MemoryStore) listConsultations(match func(*model.Consultation) bool) ([]*model.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Consultation
	for _, c := range m.consultations {
		if match(c) {
			out = append(out, cloneConsultation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ScheduledFor.After(out[j].ScheduledFor)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func sortSlots(slots []*model.AvailabilitySlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
}
