package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/herbalhaven/booking-core/internal/model"
	"github.com/herbalhaven/booking-core/internal/repository/base"
)

// ConsultantRepository reads the consultant directory. Profile management
// lives outside the booking core, so there are no write methods.
type ConsultantRepository struct {
	*base.Repository
}

func NewConsultantRepository(pool *pgxpool.Pool) *ConsultantRepository {
	return &ConsultantRepository{Repository: base.NewRepository(pool)}
}

func (r *ConsultantRepository) GetConsultant(ctx context.Context, id int64) (*model.Consultant, error) {
	var c model.Consultant
	err := r.QueryRow(ctx, `
		SELECT id, display_name, specialty, is_active, created_at
		FROM consultants
		WHERE id = $1
	`, id).Scan(&c.ID, &c.DisplayName, &c.Specialty, &c.IsActive, &c.CreatedAt)
	if base.IsNotFound(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get consultant by id: %w", err)
	}
	return &c, nil
}

func (r *ConsultantRepository) ListActiveConsultants(ctx context.Context) ([]*model.Consultant, error) {
	rows, err := r.Query(ctx, `
		SELECT id, display_name, specialty, is_active, created_at
		FROM consultants
		WHERE is_active = TRUE
		ORDER BY display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list active consultants: %w", err)
	}
	defer rows.Close()

	var consultants []*model.Consultant
	for rows.Next() {
		var c model.Consultant
		if err := rows.Scan(&c.ID, &c.DisplayName, &c.Specialty, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consultant: %w", err)
		}
		consultants = append(consultants, &c)
	}
	return consultants, rows.Err()
}
