package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type regionRepository struct {
	db *gorm.DB
}

func (r *regionRepository) Get(ctx context.Context, id string) (domain.Region, error) {
	var rec regionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.Region{}, translateNotFound(err)
	}
	return toDomainRegion(rec), nil
}

func (r *regionRepository) List(ctx context.Context) ([]domain.Region, error) {
	var rows []regionModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Region, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainRegion(row))
	}
	return out, nil
}

func (r *regionRepository) Create(ctx context.Context, region domain.Region) error {
	rec := regionModel{
		ID:                 region.ID,
		Name:               region.Name,
		DefaultInstallerID: region.DefaultInstallerID,
		CreatedAt:          region.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *regionRepository) SetDefaultInstaller(ctx context.Context, id string, installerID *uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&regionModel{}).
		Where("id = ?", id).
		Update("default_installer_id", installerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type installerRepository struct {
	db *gorm.DB
}

func (r *installerRepository) Get(ctx context.Context, id uuid.UUID) (domain.Installer, error) {
	var rec installerModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.Installer{}, translateNotFound(err)
	}
	return toDomainInstaller(rec), nil
}

func (r *installerRepository) List(ctx context.Context, regionID string) ([]domain.Installer, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if regionID != "" {
		q = q.Where("region_id = ?", regionID)
	}
	var rows []installerModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Installer, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainInstaller(row))
	}
	return out, nil
}

func (r *installerRepository) Upsert(ctx context.Context, installer domain.Installer) error {
	rec := installerModel{
		ID:              installer.ID,
		Name:            installer.Name,
		RegionID:        installer.RegionID,
		CommissionKind:  string(installer.CommissionKind),
		CommissionValue: installer.CommissionValue,
		UpdatedAt:       installer.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "region_id", "commission_kind", "commission_value", "updated_at"}),
	}).Create(&rec).Error
}

type rateRepository struct {
	db *gorm.DB
}

func (r *rateRepository) List(ctx context.Context) ([]domain.RateEntry, error) {
	var rows []rateModel
	if err := r.db.WithContext(ctx).Order("method ASC, installments ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.RateEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RateEntry{
			Method:       domain.PaymentMethod(row.Method),
			Installments: row.Installments,
			FeePercent:   row.FeePercent,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out, nil
}

func (r *rateRepository) Upsert(ctx context.Context, entry domain.RateEntry) error {
	rec := rateModel{
		Method:       string(entry.Method),
		Installments: entry.Installments,
		FeePercent:   entry.FeePercent,
		UpdatedAt:    entry.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "method"}, {Name: "installments"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee_percent", "updated_at"}),
	}).Create(&rec).Error
}
