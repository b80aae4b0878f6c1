package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

type state struct {
	regions       map[string]domain.Region
	installers    map[uuid.UUID]domain.Installer
	appointments  map[uuid.UUID]domain.Appointment
	externalIndex map[string]uuid.UUID
	accounts      map[uuid.UUID]domain.Account
	rates         map[domain.RateKey]domain.RateEntry
	inventory     map[uuid.UUID]domain.InventoryItem
	expenses      []domain.Expense
	webhookEvents []domain.WebhookEvent
	outbox        []outboxRow
}

func newState() *state {
	return &state{
		regions:       map[string]domain.Region{},
		installers:    map[uuid.UUID]domain.Installer{},
		appointments:  map[uuid.UUID]domain.Appointment{},
		externalIndex: map[string]uuid.UUID{},
		accounts:      map[uuid.UUID]domain.Account{},
		rates:         map[domain.RateKey]domain.RateEntry{},
		inventory:     map[uuid.UUID]domain.InventoryItem{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.regions {
		out.regions[k] = v
	}
	for k, v := range s.installers {
		out.installers[k] = v
	}
	for k, v := range s.appointments {
		out.appointments[k] = v
	}
	for k, v := range s.externalIndex {
		out.externalIndex[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.rates {
		out.rates[k] = v
	}
	for k, v := range s.inventory {
		out.inventory[k] = v
	}
	out.expenses = append([]domain.Expense(nil), s.expenses...)
	out.webhookEvents = append([]domain.WebhookEvent(nil), s.webhookEvents...)
	out.outbox = append([]outboxRow(nil), s.outbox...)
	return out
}

// Store is an in-process implementation of every repository. A single mutex
// serializes access; InTx holds it for the whole transaction and restores a
// snapshot when fn fails.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) Repositories() ports.Repositories {
	return s.repositories(false)
}

func (s *Store) InTx(ctx context.Context, fn func(tx ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(s.repositories(true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) repositories(locked bool) ports.Repositories {
	b := base{store: s, locked: locked}
	return ports.Repositories{
		Regions:       &regionRepository{b},
		Installers:    &installerRepository{b},
		Appointments:  &appointmentRepository{b},
		Accounts:      &accountRepository{b},
		Rates:         &rateRepository{b},
		Inventory:     &inventoryRepository{b},
		Expenses:      &expenseRepository{b},
		WebhookEvents: &webhookEventRepository{b},
		Outbox:        &outboxRepository{b},
	}
}

type base struct {
	store  *Store
	locked bool
}

func (b base) with(fn func(st *state) error) error {
	if !b.locked {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.state)
}

// WebhookEvents returns a copy of the recorded deliveries.
func (s *Store) WebhookEvents() []domain.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WebhookEvent(nil), s.state.webhookEvents...)
}

// OutboxEventTypes lists enqueued event types in insertion order.
func (s *Store) OutboxEventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.state.outbox))
	for _, row := range s.state.outbox {
		out = append(out, row.EventType)
	}
	return out
}

// OutboxRecords returns a copy of the outbox rows in insertion order.
func (s *Store) OutboxRecords() []ports.OutboxRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(s.state.outbox))
	for _, row := range s.state.outbox {
		out = append(out, row.OutboxRecord)
	}
	return out
}
