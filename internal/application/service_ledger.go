package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

func (s *Service) CreateAccount(ctx context.Context, req CreateAccountRequest) (AccountView, error) {
	if err := domain.ValidateName("name", req.Name, 120); err != nil {
		return AccountView{}, err
	}
	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		return AccountView{}, err
	}
	regionID := req.RegionID
	if kind == domain.AccountKindBank {
		regionID = nil
	} else if regionID != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*regionID))
		regionID = &trimmed
	}
	if err := domain.ValidateAccountScope(kind, regionID); err != nil {
		return AccountView{}, err
	}
	if req.IsDefault && kind != domain.AccountKindBank {
		return AccountView{}, fmt.Errorf("%w: only bank accounts can be default", domain.ErrInvalidInput)
	}
	if regionID != nil {
		if _, err := s.repos.Regions.Get(ctx, *regionID); err != nil {
			if isNotFound(err) {
				return AccountView{}, fmt.Errorf("%w: unknown region %q", domain.ErrInvalidInput, *regionID)
			}
			return AccountView{}, err
		}
	}
	now := s.nowFn()
	account := domain.Account{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Kind:      kind,
		RegionID:  regionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.tx.InTx(ctx, func(tx ports.Repositories) error {
		if err := tx.Accounts.Create(ctx, account); err != nil {
			return err
		}
		if req.IsDefault {
			return tx.Accounts.SetDefault(ctx, account.ID)
		}
		return nil
	})
	if err != nil {
		return AccountView{}, err
	}
	account.IsDefault = req.IsDefault
	return accountView(account), nil
}

// ListAccounts returns global accounts plus the cashboxes of regionID, or
// every account when regionID is empty.
func (s *Service) ListAccounts(ctx context.Context, regionID string) ([]AccountView, error) {
	accounts, err := s.repos.Accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		if regionID != "" && acc.RegionID != nil && *acc.RegionID != regionID {
			continue
		}
		out = append(out, accountView(acc))
	}
	return out, nil
}

// SetDefaultAccount moves the system-wide default to a bank account.
func (s *Service) SetDefaultAccount(ctx context.Context, accountID uuid.UUID) (AccountView, error) {
	var out domain.Account
	err := s.tx.InTx(ctx, func(tx ports.Repositories) error {
		acc, err := tx.Accounts.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if acc.Kind != domain.AccountKindBank {
			return fmt.Errorf("%w: only bank accounts can be default", domain.ErrInvalidInput)
		}
		if err := tx.Accounts.SetDefault(ctx, accountID); err != nil {
			return err
		}
		acc.IsDefault = true
		out = acc
		return nil
	})
	if err != nil {
		return AccountView{}, err
	}
	return accountView(out), nil
}

// DeleteAccount removes an account that holds no money and that no
// settlement or expense points at, so historical reports stay resolvable.
func (s *Service) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(tx ports.Repositories) error {
		acc, err := tx.Accounts.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if !acc.Balance.IsZero() {
			return fmt.Errorf("%w: account still holds %s, transfer it out first", domain.ErrConflict, acc.Balance.StringFixed(2))
		}
		return tx.Accounts.Delete(ctx, accountID)
	})
	if err != nil {
		return err
	}
	logInfo(ctx, "delete_account", "account deleted", "account_id", accountID.String())
	return nil
}

// RecordExpense stores the expense and debits its account in one transaction.
func (s *Service) RecordExpense(ctx context.Context, actor Actor, req RecordExpenseRequest) (ExpenseView, error) {
	regionID := strings.ToLower(strings.TrimSpace(req.RegionID))
	if err := domain.ValidateRegionID(regionID); err != nil {
		return ExpenseView{}, err
	}
	accountID, err := parseUUID("account_id", req.AccountID)
	if err != nil {
		return ExpenseView{}, err
	}
	if err := domain.ValidateName("description", req.Description, 280); err != nil {
		return ExpenseView{}, err
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return ExpenseView{}, err
	}
	if !amount.IsPositive() {
		return ExpenseView{}, domain.ErrInvalidAmount
	}
	amount = amount.Round(2)
	now := s.nowFn()
	occurredAt := now
	if strings.TrimSpace(req.OccurredAt) != "" {
		occurredAt, err = domain.ParseTimestamp(domain.NormalizeTimestamp(req.OccurredAt, s.cfg.LocalOffset))
		if err != nil {
			return ExpenseView{}, err
		}
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "general"
	}
	recordedBy := actor.UserID
	expense := domain.Expense{
		ID:          uuid.New(),
		RegionID:    regionID,
		AccountID:   accountID,
		Description: strings.TrimSpace(req.Description),
		Category:    category,
		Amount:      amount,
		OccurredAt:  occurredAt,
		RecordedBy:  &recordedBy,
		CreatedAt:   now,
	}

	err = s.tx.InTx(ctx, func(tx ports.Repositories) error {
		if _, err := tx.Regions.Get(ctx, regionID); err != nil {
			return err
		}
		if _, err := tx.Accounts.Get(ctx, accountID); err != nil {
			return err
		}
		if err := tx.Expenses.Create(ctx, expense); err != nil {
			return err
		}
		if err := tx.Accounts.ApplyDelta(ctx, accountID, amount.Neg()); err != nil {
			return err
		}
		return s.enqueueEvent(ctx, tx.Outbox, eventExpenseRecorded, accountID.String(), "data.account_id", expenseRecordedEventData{
			ExpenseID:  expense.ID.String(),
			RegionID:   expense.RegionID,
			AccountID:  accountID.String(),
			Category:   expense.Category,
			Amount:     amount.StringFixed(2),
			OccurredAt: occurredAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return ExpenseView{}, err
	}
	logInfo(ctx, "record_expense", "expense recorded",
		"expense_id", expense.ID.String(),
		"region_id", regionID,
		"account_id", accountID.String(),
	)
	return s.expenseView(expense), nil
}

// Transfer moves money between two accounts. Deltas are applied in account
// id order so concurrent opposite transfers lock rows in the same order.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	fromID, err := parseUUID("from_account_id", req.FromAccountID)
	if err != nil {
		return TransferResult{}, err
	}
	toID, err := parseUUID("to_account_id", req.ToAccountID)
	if err != nil {
		return TransferResult{}, err
	}
	if fromID == toID {
		return TransferResult{}, fmt.Errorf("%w: transfer needs two different accounts", domain.ErrInvalidInput)
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	if !amount.IsPositive() {
		return TransferResult{}, domain.ErrInvalidAmount
	}
	amount = amount.Round(2)

	transferID := uuid.New()
	var result TransferResult
	err = s.tx.InTx(ctx, func(tx ports.Repositories) error {
		type leg struct {
			id     uuid.UUID
			credit bool
		}
		legs := []leg{{id: fromID, credit: false}, {id: toID, credit: true}}
		if toID.String() < fromID.String() {
			legs[0], legs[1] = legs[1], legs[0]
		}
		for _, l := range legs {
			delta := amount.Neg()
			if l.credit {
				delta = amount
			}
			if err := tx.Accounts.ApplyDelta(ctx, l.id, delta); err != nil {
				return err
			}
		}
		from, err := tx.Accounts.Get(ctx, fromID)
		if err != nil {
			return err
		}
		to, err := tx.Accounts.Get(ctx, toID)
		if err != nil {
			return err
		}
		result = TransferResult{From: accountView(from), To: accountView(to)}
		return s.enqueueEvent(ctx, tx.Outbox, eventTransferApplied, fromID.String(), "data.from_account_id", transferAppliedEventData{
			TransferID:    transferID.String(),
			FromAccountID: fromID.String(),
			ToAccountID:   toID.String(),
			Amount:        amount.StringFixed(2),
		})
	})
	if err != nil {
		return TransferResult{}, err
	}
	logInfo(ctx, "transfer", "transfer applied",
		"transfer_id", transferID.String(),
		"from_account_id", fromID.String(),
		"to_account_id", toID.String(),
	)
	return result, nil
}

func (s *Service) expenseView(e domain.Expense) ExpenseView {
	return ExpenseView{
		ID:          e.ID.String(),
		RegionID:    e.RegionID,
		AccountID:   e.AccountID.String(),
		Description: e.Description,
		Category:    e.Category,
		Amount:      e.Amount,
		OccurredAt:  e.OccurredAt.In(s.location).Format(time.RFC3339),
	}
}
