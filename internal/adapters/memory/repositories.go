package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"github.com/shopspring/decimal"
)

type regionRepository struct{ base }

func (r *regionRepository) Get(_ context.Context, id string) (domain.Region, error) {
	var out domain.Region
	err := r.with(func(st *state) error {
		region, ok := st.regions[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = region
		return nil
	})
	return out, err
}

func (r *regionRepository) List(_ context.Context) ([]domain.Region, error) {
	var out []domain.Region
	err := r.with(func(st *state) error {
		for _, region := range st.regions {
			out = append(out, region)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *regionRepository) Create(_ context.Context, region domain.Region) error {
	return r.with(func(st *state) error {
		if _, ok := st.regions[region.ID]; ok {
			return domain.ErrConflict
		}
		st.regions[region.ID] = region
		return nil
	})
}

func (r *regionRepository) SetDefaultInstaller(_ context.Context, id string, installerID *uuid.UUID) error {
	return r.with(func(st *state) error {
		region, ok := st.regions[id]
		if !ok {
			return domain.ErrNotFound
		}
		region.DefaultInstallerID = installerID
		st.regions[id] = region
		return nil
	})
}

type installerRepository struct{ base }

func (r *installerRepository) Get(_ context.Context, id uuid.UUID) (domain.Installer, error) {
	var out domain.Installer
	err := r.with(func(st *state) error {
		installer, ok := st.installers[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = installer
		return nil
	})
	return out, err
}

func (r *installerRepository) List(_ context.Context, regionID string) ([]domain.Installer, error) {
	var out []domain.Installer
	err := r.with(func(st *state) error {
		for _, installer := range st.installers {
			if regionID == "" || installer.RegionID == regionID {
				out = append(out, installer)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (r *installerRepository) Upsert(_ context.Context, installer domain.Installer) error {
	return r.with(func(st *state) error {
		st.installers[installer.ID] = installer
		return nil
	})
}

type appointmentRepository struct{ base }

func externalKey(source, externalID string) string {
	return source + "\x00" + externalID
}

func (r *appointmentRepository) Get(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.with(func(st *state) error {
		appt, ok := st.appointments[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = appt
		return nil
	})
	return out, err
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return r.Get(ctx, id)
}

func (r *appointmentRepository) FindByExternalID(ctx context.Context, source, externalID string) (domain.Appointment, error) {
	return r.FindByExternalIDForUpdate(ctx, source, externalID)
}

func (r *appointmentRepository) FindByExternalIDForUpdate(_ context.Context, source, externalID string) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.with(func(st *state) error {
		id, ok := st.externalIndex[externalKey(source, externalID)]
		if !ok {
			return domain.ErrNotFound
		}
		out = st.appointments[id]
		return nil
	})
	return out, err
}

func (r *appointmentRepository) Create(_ context.Context, appt domain.Appointment) error {
	return r.with(func(st *state) error {
		key := externalKey(appt.Source, appt.ExternalID)
		if _, ok := st.externalIndex[key]; ok {
			return fmt.Errorf("%w: appointment %s/%s already exists", domain.ErrConflict, appt.Source, appt.ExternalID)
		}
		if _, ok := st.appointments[appt.ID]; ok {
			return domain.ErrConflict
		}
		st.appointments[appt.ID] = appt
		st.externalIndex[key] = appt.ID
		return nil
	})
}

func (r *appointmentRepository) Update(_ context.Context, appt domain.Appointment) error {
	return r.with(func(st *state) error {
		if _, ok := st.appointments[appt.ID]; !ok {
			return domain.ErrNotFound
		}
		st.appointments[appt.ID] = appt
		return nil
	})
}

func (r *appointmentRepository) List(_ context.Context, filter ports.AppointmentFilter) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := r.with(func(st *state) error {
		for _, appt := range st.appointments {
			if matchesAppointment(appt, filter) {
				out = append(out, appt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return sortTime(out[i]).Before(sortTime(out[j]))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func sortTime(a domain.Appointment) time.Time {
	if a.ScheduledAt != nil {
		return *a.ScheduledAt
	}
	return a.CreatedAt
}

func matchesAppointment(a domain.Appointment, f ports.AppointmentFilter) bool {
	if f.RegionID != "" && a.RegionID != f.RegionID {
		return false
	}
	if f.InstallerID != nil && (a.InstallerID == nil || *a.InstallerID != *f.InstallerID) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CompletedFrom != nil || f.CompletedTo != nil {
		if a.CompletedAt == nil {
			return false
		}
		if f.CompletedFrom != nil && a.CompletedAt.Before(*f.CompletedFrom) {
			return false
		}
		if f.CompletedTo != nil && !a.CompletedAt.Before(*f.CompletedTo) {
			return false
		}
	}
	return true
}

type accountRepository struct{ base }

func (r *accountRepository) Get(_ context.Context, id uuid.UUID) (domain.Account, error) {
	var out domain.Account
	err := r.with(func(st *state) error {
		acc, ok := st.accounts[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = acc
		return nil
	})
	return out, err
}

func (r *accountRepository) List(_ context.Context) ([]domain.Account, error) {
	var out []domain.Account
	err := r.with(func(st *state) error {
		for _, acc := range st.accounts {
			out = append(out, acc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *accountRepository) Create(_ context.Context, account domain.Account) error {
	return r.with(func(st *state) error {
		if _, ok := st.accounts[account.ID]; ok {
			return domain.ErrConflict
		}
		if account.IsDefault {
			for _, existing := range st.accounts {
				if existing.IsDefault {
					return fmt.Errorf("%w: a default account already exists", domain.ErrConflict)
				}
			}
		}
		st.accounts[account.ID] = account
		return nil
	})
}

func (r *accountRepository) ApplyDelta(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	return r.with(func(st *state) error {
		acc, ok := st.accounts[id]
		if !ok {
			return domain.ErrNotFound
		}
		acc.Balance = acc.Balance.Add(delta)
		acc.UpdatedAt = time.Now().UTC()
		st.accounts[id] = acc
		return nil
	})
}

func (r *accountRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.with(func(st *state) error {
		acc, ok := st.accounts[id]
		if !ok {
			return domain.ErrNotFound
		}
		inUse := !acc.Balance.IsZero()
		for _, a := range st.appointments {
			if a.Settlement != nil && a.Settlement.AccountID != nil && *a.Settlement.AccountID == id {
				inUse = true
			}
		}
		for _, e := range st.expenses {
			if e.AccountID == id {
				inUse = true
			}
		}
		if inUse {
			return fmt.Errorf("%w: account has a balance or settlement history", domain.ErrConflict)
		}
		delete(st.accounts, id)
		return nil
	})
}

func (r *accountRepository) SetDefault(_ context.Context, id uuid.UUID) error {
	return r.with(func(st *state) error {
		target, ok := st.accounts[id]
		if !ok {
			return domain.ErrNotFound
		}
		for key, acc := range st.accounts {
			if acc.IsDefault {
				acc.IsDefault = false
				st.accounts[key] = acc
			}
		}
		target.IsDefault = true
		st.accounts[id] = target
		return nil
	})
}

type rateRepository struct{ base }

func (r *rateRepository) List(_ context.Context) ([]domain.RateEntry, error) {
	var out []domain.RateEntry
	err := r.with(func(st *state) error {
		for _, e := range st.rates {
			out = append(out, e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Method != out[j].Method {
			return out[i].Method < out[j].Method
		}
		return out[i].Installments < out[j].Installments
	})
	return out, err
}

func (r *rateRepository) Upsert(_ context.Context, entry domain.RateEntry) error {
	return r.with(func(st *state) error {
		st.rates[domain.RateKey{Method: entry.Method, Installments: entry.Installments}] = entry
		return nil
	})
}

type inventoryRepository struct{ base }

func (r *inventoryRepository) Get(_ context.Context, id uuid.UUID) (domain.InventoryItem, error) {
	var out domain.InventoryItem
	err := r.with(func(st *state) error {
		item, ok := st.inventory[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = item
		return nil
	})
	return out, err
}

func (r *inventoryRepository) List(_ context.Context, regionID string) ([]domain.InventoryItem, error) {
	var out []domain.InventoryItem
	err := r.with(func(st *state) error {
		for _, item := range st.inventory {
			if regionID == "" || item.RegionID == regionID {
				out = append(out, item)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *inventoryRepository) Create(_ context.Context, item domain.InventoryItem) error {
	return r.with(func(st *state) error {
		for _, existing := range st.inventory {
			if existing.RegionID == item.RegionID && strings.EqualFold(existing.Name, item.Name) {
				return fmt.Errorf("%w: item %q already exists in region", domain.ErrConflict, item.Name)
			}
		}
		st.inventory[item.ID] = item
		return nil
	})
}

func (r *inventoryRepository) Decrement(_ context.Context, id uuid.UUID, by int, clamp bool) (domain.InventoryItem, error) {
	var out domain.InventoryItem
	err := r.with(func(st *state) error {
		item, ok := st.inventory[id]
		if !ok {
			return domain.ErrNotFound
		}
		switch {
		case item.Quantity >= by:
			item.Quantity -= by
		case clamp:
			item.Quantity = 0
		default:
			return domain.ErrInsufficientStock
		}
		item.UpdatedAt = time.Now().UTC()
		st.inventory[id] = item
		out = item
		return nil
	})
	return out, err
}

func (r *inventoryRepository) Adjust(_ context.Context, id uuid.UUID, delta int) (domain.InventoryItem, error) {
	var out domain.InventoryItem
	err := r.with(func(st *state) error {
		item, ok := st.inventory[id]
		if !ok {
			return domain.ErrNotFound
		}
		if item.Quantity+delta < 0 {
			return domain.ErrInsufficientStock
		}
		item.Quantity += delta
		item.UpdatedAt = time.Now().UTC()
		st.inventory[id] = item
		out = item
		return nil
	})
	return out, err
}

func (r *inventoryRepository) SetQuantity(_ context.Context, id uuid.UUID, quantity int, minThreshold *int) (domain.InventoryItem, error) {
	var out domain.InventoryItem
	err := r.with(func(st *state) error {
		item, ok := st.inventory[id]
		if !ok {
			return domain.ErrNotFound
		}
		item.Quantity = quantity
		if minThreshold != nil {
			item.MinThreshold = *minThreshold
		}
		item.UpdatedAt = time.Now().UTC()
		st.inventory[id] = item
		out = item
		return nil
	})
	return out, err
}

type expenseRepository struct{ base }

func (r *expenseRepository) Create(_ context.Context, expense domain.Expense) error {
	return r.with(func(st *state) error {
		st.expenses = append(st.expenses, expense)
		return nil
	})
}

func (r *expenseRepository) List(_ context.Context, filter ports.ExpenseFilter) ([]domain.Expense, error) {
	var out []domain.Expense
	err := r.with(func(st *state) error {
		for _, e := range st.expenses {
			if filter.RegionID != "" && e.RegionID != filter.RegionID {
				continue
			}
			if filter.From != nil && e.OccurredAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !e.OccurredAt.Before(*filter.To) {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

type webhookEventRepository struct{ base }

func (r *webhookEventRepository) Record(_ context.Context, event domain.WebhookEvent) error {
	return r.with(func(st *state) error {
		st.webhookEvents = append(st.webhookEvents, event)
		return nil
	})
}
