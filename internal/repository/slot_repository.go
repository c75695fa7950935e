package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/herbalhaven/booking-core/internal/model"
	"github.com/herbalhaven/booking-core/internal/repository/base"
)

const slotColumns = "id, consultant_id, start_time, end_time, is_booked, booked_by, created_at"

// SlotRepository is the Postgres adapter for availability slots. The claim
// and delete paths bake their preconditions into the SQL so a lost race is
// observed as an affected-row count of zero, never as a torn state.
type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	err := row.Scan(
		&slot.ID,
		&slot.ConsultantID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsBooked,
		&slot.BookedBy,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// CreateSlot inserts an unbooked slot after checking it does not overlap any
// slot of the same consultant. Concurrent creates for one consultant
// serialize on an advisory lock so the overlap check and insert act as one
// unit.
func (r *SlotRepository) CreateSlot(ctx context.Context, slot *model.AvailabilitySlot) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, slot.ConsultantID); err != nil {
			return fmt.Errorf("lock consultant calendar: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM availability_slots
				WHERE consultant_id = $1
				  AND start_time < $3
				  AND end_time > $2
			)
		`, slot.ConsultantID, slot.StartTime, slot.EndTime).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if exists {
			return model.ErrOverlap
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO availability_slots (consultant_id, start_time, end_time, is_booked, booked_by)
			VALUES ($1, $2, $3, FALSE, NULL)
			RETURNING id, created_at
		`, slot.ConsultantID, slot.StartTime, slot.EndTime).Scan(&slot.ID, &slot.CreatedAt)
		if err != nil {
			return fmt.Errorf("create slot: %w", err)
		}

		slot.IsBooked = false
		slot.BookedBy = nil
		return nil
	})
}

// GetSlot fetches a slot, returning model.ErrNotFound when it does not exist.
func (r *SlotRepository) GetSlot(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	slot, err := scanSlot(r.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id))
	if base.IsNotFound(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

// ListSlots returns the consultant's slots ascending by start time.
func (r *SlotRepository) ListSlots(ctx context.Context, consultantID int64, filter model.SlotFilter) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE consultant_id = $1
	`
	args := []interface{}{consultantID}

	if filter.FutureOnly {
		args = append(args, filter.Now)
		query += fmt.Sprintf(" AND start_time > $%d", len(args))
	}
	if filter.UnbookedOnly {
		query += " AND is_booked = FALSE"
	}
	query += " ORDER BY start_time"

	return r.querySlots(ctx, query, args...)
}

// ListBookable returns unbooked slots starting strictly after from, ascending
// by start time.
func (r *SlotRepository) ListBookable(ctx context.Context, consultantID int64, from time.Time) ([]*model.AvailabilitySlot, error) {
	return r.querySlots(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE consultant_id = $1
		  AND is_booked = FALSE
		  AND start_time > $2
		ORDER BY start_time
	`, consultantID, from)
}

// CountBookable counts unbooked future slots for a consultant.
func (r *SlotRepository) CountBookable(ctx context.Context, consultantID int64, from time.Time) (int, error) {
	var n int
	err := r.QueryRow(ctx, `
		SELECT count(*)
		FROM availability_slots
		WHERE consultant_id = $1
		  AND is_booked = FALSE
		  AND start_time > $2
	`, consultantID, from).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookable slots: %w", err)
	}
	return n, nil
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...interface{}) ([]*model.AvailabilitySlot, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// DeleteSlot removes a slot only while it is unbooked and still in the
// future. A zero-row delete is classified by re-reading the row in the same
// transaction.
func (r *SlotRepository) DeleteSlot(ctx context.Context, slotID int64, now time.Time) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM availability_slots
			WHERE id = $1 AND is_booked = FALSE AND start_time > $2
		`, slotID, now)
		if err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		var isBooked bool
		var start time.Time
		err = tx.QueryRow(ctx, `
			SELECT is_booked, start_time FROM availability_slots WHERE id = $1
		`, slotID).Scan(&isBooked, &start)
		if base.IsNotFound(err) {
			return model.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("classify delete refusal: %w", err)
		}
		if isBooked {
			return model.ErrAlreadyBooked
		}
		return model.ErrInThePast
	})
}

// Claim atomically books the slot for the patient and creates the pending
// consultation. The conditional UPDATE is the race arbiter: exactly one
// caller ever sees an affected row for an unbooked slot. The consultation
// INSERT runs in the same transaction, so a failed insert rolls the booked
// flag back.
func (r *SlotRepository) Claim(ctx context.Context, slotID, patientID int64, now time.Time) (*model.Consultation, error) {
	var consultation *model.Consultation

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		var consultantID int64
		var start time.Time
		err := tx.QueryRow(ctx, `
			UPDATE availability_slots
			SET is_booked = TRUE, booked_by = $2
			WHERE id = $1 AND is_booked = FALSE AND start_time > $3
			RETURNING consultant_id, start_time
		`, slotID, patientID, now).Scan(&consultantID, &start)

		if base.IsNotFound(err) {
			existing, classifyErr := r.classifyClaimMiss(ctx, tx, slotID, patientID, now)
			if classifyErr != nil {
				return classifyErr
			}
			consultation = existing
			return nil
		}
		if err != nil {
			return fmt.Errorf("book slot: %w", err)
		}

		c := &model.Consultation{
			PatientID:    patientID,
			ConsultantID: consultantID,
			SlotID:       slotID,
			ScheduledFor: start,
			Status:       model.StatusPending,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO consultations (patient_id, consultant_id, slot_id, scheduled_for, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, notes, created_at, updated_at
		`, c.PatientID, c.ConsultantID, c.SlotID, c.ScheduledFor, c.Status).
			Scan(&c.ID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			if base.IsUniqueViolation(err) {
				return model.ErrAlreadyBooked
			}
			return fmt.Errorf("create consultation: %w", err)
		}

		consultation = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

// classifyClaimMiss turns a zero-row conditional update into the exact
// failure the caller should see. A repeat claim by the patient who already
// holds the slot resolves to the existing active consultation.
func (r *SlotRepository) classifyClaimMiss(ctx context.Context, tx pgx.Tx, slotID, patientID int64, now time.Time) (*model.Consultation, error) {
	var isBooked bool
	var bookedBy *int64
	var start time.Time
	err := tx.QueryRow(ctx, `
		SELECT is_booked, booked_by, start_time FROM availability_slots WHERE id = $1
	`, slotID).Scan(&isBooked, &bookedBy, &start)
	if base.IsNotFound(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("classify claim miss: %w", err)
	}

	if isBooked {
		if bookedBy != nil && *bookedBy == patientID {
			existing, err := scanConsultation(tx.QueryRow(ctx, `
				SELECT `+consultationColumns+`
				FROM consultations
				WHERE slot_id = $1 AND status <> 'cancelled'
				ORDER BY created_at DESC
				LIMIT 1
			`, slotID))
			if err == nil {
				return existing, nil
			}
			if !base.IsNotFound(err) {
				return nil, fmt.Errorf("load existing consultation: %w", err)
			}
		}
		return nil, model.ErrAlreadyBooked
	}

	if !start.After(now) {
		return nil, model.ErrSlotExpired
	}
	return nil, model.ErrAlreadyBooked
}
