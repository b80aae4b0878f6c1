package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type inventoryRepository struct {
	db *gorm.DB
}

func (r *inventoryRepository) Get(ctx context.Context, id uuid.UUID) (domain.InventoryItem, error) {
	var rec inventoryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.InventoryItem{}, translateNotFound(err)
	}
	return toDomainInventory(rec), nil
}

func (r *inventoryRepository) List(ctx context.Context, regionID string) ([]domain.InventoryItem, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if regionID != "" {
		q = q.Where("region_id = ?", regionID)
	}
	var rows []inventoryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.InventoryItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainInventory(row))
	}
	return out, nil
}

func (r *inventoryRepository) Create(ctx context.Context, item domain.InventoryItem) error {
	rec := inventoryModel{
		ID:           item.ID,
		RegionID:     item.RegionID,
		Name:         item.Name,
		Quantity:     item.Quantity,
		MinThreshold: item.MinThreshold,
		UpdatedAt:    item.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: item %q already exists in region", domain.ErrConflict, item.Name)
		}
		return err
	}
	return nil
}

// Decrement runs a guarded update so concurrent completions never drive the
// quantity below zero.
func (r *inventoryRepository) Decrement(ctx context.Context, id uuid.UUID, by int, clamp bool) (domain.InventoryItem, error) {
	now := time.Now().UTC()
	var rows []inventoryModel
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ? AND quantity >= ?", id, by).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", by),
			"updated_at": now,
		})
	if res.Error != nil {
		return domain.InventoryItem{}, res.Error
	}
	if len(rows) == 1 {
		return toDomainInventory(rows[0]), nil
	}
	if !clamp {
		if _, err := r.Get(ctx, id); err != nil {
			return domain.InventoryItem{}, err
		}
		return domain.InventoryItem{}, domain.ErrInsufficientStock
	}
	return r.SetQuantity(ctx, id, 0, nil)
}

func (r *inventoryRepository) Adjust(ctx context.Context, id uuid.UUID, delta int) (domain.InventoryItem, error) {
	var rows []inventoryModel
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.InventoryItem{}, res.Error
	}
	if len(rows) == 1 {
		return toDomainInventory(rows[0]), nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return domain.InventoryItem{}, err
	}
	return domain.InventoryItem{}, domain.ErrInsufficientStock
}

func (r *inventoryRepository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int, minThreshold *int) (domain.InventoryItem, error) {
	updates := map[string]any{
		"quantity":   quantity,
		"updated_at": time.Now().UTC(),
	}
	if minThreshold != nil {
		updates["min_threshold"] = *minThreshold
	}
	var rows []inventoryModel
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return domain.InventoryItem{}, res.Error
	}
	if len(rows) == 0 {
		return domain.InventoryItem{}, domain.ErrNotFound
	}
	return toDomainInventory(rows[0]), nil
}
