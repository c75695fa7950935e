package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/herbalhaven/booking-core/internal/model"
	"github.com/herbalhaven/booking-core/internal/repository/base"
)

const consultationColumns = "id, patient_id, consultant_id, slot_id, scheduled_for, status, notes, created_at, updated_at"

// ConsultationRepository is the Postgres adapter for consultations.
type ConsultationRepository struct {
	*base.Repository
}

func NewConsultationRepository(pool *pgxpool.Pool) *ConsultationRepository {
	return &ConsultationRepository{Repository: base.NewRepository(pool)}
}

func scanConsultation(row pgx.Row) (*model.Consultation, error) {
	var c model.Consultation
	err := row.Scan(
		&c.ID,
		&c.PatientID,
		&c.ConsultantID,
		&c.SlotID,
		&c.ScheduledFor,
		&c.Status,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConsultation fetches a consultation, returning model.ErrNotFound when
// missing.
func (r *ConsultationRepository) GetConsultation(ctx context.Context, id int64) (*model.Consultation, error) {
	c, err := scanConsultation(r.QueryRow(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE id = $1
	`, id))
	if base.IsNotFound(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get consultation by id: %w", err)
	}
	return c, nil
}

// ListByPatient returns the patient's consultations, most recent appointment
// first.
func (r *ConsultationRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Consultation, error) {
	return r.queryConsultations(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE patient_id = $1
		ORDER BY scheduled_for DESC, id DESC
	`, patientID)
}

// ListByConsultant returns the consultant's consultations, most recent
// appointment first.
func (r *ConsultationRepository) ListByConsultant(ctx context.Context, consultantID int64) ([]*model.Consultation, error) {
	return r.queryConsultations(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE consultant_id = $1
		ORDER BY scheduled_for DESC, id DESC
	`, consultantID)
}

// Transition swaps the status from -> to. The WHERE clause on the current
// status is the compare half of the swap; a miss on an existing row means the
// state moved underneath the caller. Cancellation releases the slot inside
// the same transaction so a free slot and an active consultation can never
// coexist.
func (r *ConsultationRepository) Transition(ctx context.Context, id int64, from, to model.ConsultationStatus) (*model.Consultation, error) {
	var updated *model.Consultation

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		c, err := scanConsultation(tx.QueryRow(ctx, `
			UPDATE consultations
			SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2
			RETURNING `+consultationColumns+`
		`, id, from, to))
		if base.IsNotFound(err) {
			var current model.ConsultationStatus
			err := tx.QueryRow(ctx, `SELECT status FROM consultations WHERE id = $1`, id).Scan(&current)
			if base.IsNotFound(err) {
				return model.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("classify transition miss: %w", err)
			}
			return model.ErrInvalidTransition
		}
		if err != nil {
			return fmt.Errorf("transition consultation: %w", err)
		}

		if to == model.StatusCancelled {
			tag, err := tx.Exec(ctx, `
				UPDATE availability_slots
				SET is_booked = FALSE, booked_by = NULL
				WHERE id = $1 AND is_booked = TRUE
			`, c.SlotID)
			if err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
			if tag.RowsAffected() == 0 {
				// An active consultation must hold a booked slot; refuse to
				// commit a half-consistent cancellation.
				return fmt.Errorf("release slot %d: slot was not booked", c.SlotID)
			}
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ConsultationRepository) queryConsultations(ctx context.Context, query string, args ...interface{}) ([]*model.Consultation, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	var consultations []*model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		consultations = append(consultations, c)
	}
	return consultations, rows.Err()
}
