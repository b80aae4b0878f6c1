package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.Account{}, translateNotFound(err)
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAccount(row))
	}
	return out, nil
}

func (r *accountRepository) Create(ctx context.Context, account domain.Account) error {
	rec := accountModel{
		ID:        account.ID,
		Name:      account.Name,
		Kind:      string(account.Kind),
		RegionID:  account.RegionID,
		Balance:   account.Balance,
		IsDefault: account.IsDefault,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: a default account already exists", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *accountRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("is_default AND id <> ?", id).
		Updates(map[string]any{"is_default": false, "updated_at": now}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_default": true, "updated_at": now})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND balance = 0", id).
		Where("NOT EXISTS (SELECT 1 FROM appointments WHERE account_id = ?)", id).
		Where("NOT EXISTS (SELECT 1 FROM expenses WHERE account_id = ?)", id).
		Delete(&accountModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: account has a balance or settlement history", domain.ErrConflict)
}

type expenseRepository struct {
	db *gorm.DB
}

func (r *expenseRepository) Create(ctx context.Context, expense domain.Expense) error {
	rec := expenseModel{
		ID:          expense.ID,
		RegionID:    expense.RegionID,
		AccountID:   expense.AccountID,
		Description: expense.Description,
		Category:    expense.Category,
		Amount:      expense.Amount,
		OccurredAt:  expense.OccurredAt,
		RecordedBy:  expense.RecordedBy,
		CreatedAt:   expense.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *expenseRepository) List(ctx context.Context, filter ports.ExpenseFilter) ([]domain.Expense, error) {
	q := r.db.WithContext(ctx).Model(&expenseModel{})
	if filter.RegionID != "" {
		q = q.Where("region_id = ?", filter.RegionID)
	}
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_at < ?", *filter.To)
	}
	var rows []expenseModel
	if err := q.Order("occurred_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainExpense(row))
	}
	return out, nil
}

type webhookEventRepository struct {
	db *gorm.DB
}

func (r *webhookEventRepository) Record(ctx context.Context, event domain.WebhookEvent) error {
	rec := webhookEventModel{
		ID:            event.ID,
		Source:        event.Source,
		RegionID:      event.RegionID,
		ExternalID:    event.ExternalID,
		AppointmentID: event.AppointmentID,
		Outcome:       string(event.Outcome),
		Error:         event.Error,
		Payload:       jsonPayload(event.Payload),
		ReceivedAt:    event.ReceivedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}
