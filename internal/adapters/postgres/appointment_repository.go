package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct {
	db *gorm.DB
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var rec appointmentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.Appointment{}, translateNotFound(err)
	}
	return toDomainAppointment(rec), nil
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var rec appointmentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&rec).Error; err != nil {
		return domain.Appointment{}, translateNotFound(err)
	}
	return toDomainAppointment(rec), nil
}

func (r *appointmentRepository) FindByExternalID(ctx context.Context, source, externalID string) (domain.Appointment, error) {
	var rec appointmentModel
	if err := r.db.WithContext(ctx).
		Where("source = ? AND external_id = ?", source, externalID).
		Take(&rec).Error; err != nil {
		return domain.Appointment{}, translateNotFound(err)
	}
	return toDomainAppointment(rec), nil
}

func (r *appointmentRepository) FindByExternalIDForUpdate(ctx context.Context, source, externalID string) (domain.Appointment, error) {
	var rec appointmentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("source = ? AND external_id = ?", source, externalID).
		Take(&rec).Error; err != nil {
		return domain.Appointment{}, translateNotFound(err)
	}
	return toDomainAppointment(rec), nil
}

func (r *appointmentRepository) Create(ctx context.Context, appt domain.Appointment) error {
	rec := toAppointmentModel(appt)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt domain.Appointment) error {
	rec := toAppointmentModel(appt)
	res := r.db.WithContext(ctx).
		Model(&appointmentModel{}).
		Where("id = ?", appt.ID).
		Select("*").
		Omit("id", "source", "external_id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filter ports.AppointmentFilter) ([]domain.Appointment, error) {
	q := r.db.WithContext(ctx).Model(&appointmentModel{})
	if filter.RegionID != "" {
		q = q.Where("region_id = ?", filter.RegionID)
	}
	if filter.InstallerID != nil {
		q = q.Where("installer_id = ?", *filter.InstallerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.CompletedFrom != nil {
		q = q.Where("completed_at >= ?", *filter.CompletedFrom)
	}
	if filter.CompletedTo != nil {
		q = q.Where("completed_at < ?", *filter.CompletedTo)
	}
	q = q.Order("COALESCE(scheduled_at, created_at) ASC").Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []appointmentModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAppointment(row))
	}
	return out, nil
}
