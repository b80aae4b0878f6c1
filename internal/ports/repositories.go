package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/shopspring/decimal"
)

type RegionRepository interface {
	Get(ctx context.Context, id string) (domain.Region, error)
	List(ctx context.Context) ([]domain.Region, error)
	Create(ctx context.Context, region domain.Region) error
	SetDefaultInstaller(ctx context.Context, id string, installerID *uuid.UUID) error
}

type InstallerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Installer, error)
	List(ctx context.Context, regionID string) ([]domain.Installer, error)
	Upsert(ctx context.Context, installer domain.Installer) error
}

type AppointmentFilter struct {
	RegionID      string
	InstallerID   *uuid.UUID
	Status        domain.AppointmentStatus
	CompletedFrom *time.Time
	CompletedTo   *time.Time
	Limit         int
}

type AppointmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	FindByExternalID(ctx context.Context, source, externalID string) (domain.Appointment, error)
	FindByExternalIDForUpdate(ctx context.Context, source, externalID string) (domain.Appointment, error)
	// Create returns domain.ErrConflict when (source, external id) already exists.
	Create(ctx context.Context, appt domain.Appointment) error
	Update(ctx context.Context, appt domain.Appointment) error
	List(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
}

type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Create(ctx context.Context, account domain.Account) error
	// ApplyDelta adds delta to the balance in one atomic store operation.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	// SetDefault marks id as the only default account.
	SetDefault(ctx context.Context, id uuid.UUID) error
	// Delete removes an empty account that no settlement or expense refers
	// to. Anything else returns domain.ErrConflict.
	Delete(ctx context.Context, id uuid.UUID) error
}

type RateRepository interface {
	List(ctx context.Context) ([]domain.RateEntry, error)
	Upsert(ctx context.Context, entry domain.RateEntry) error
}

type InventoryRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.InventoryItem, error)
	List(ctx context.Context, regionID string) ([]domain.InventoryItem, error)
	Create(ctx context.Context, item domain.InventoryItem) error
	// Decrement subtracts by only when enough stock exists, unless clamp is
	// set, in which case quantity stops at zero.
	Decrement(ctx context.Context, id uuid.UUID, by int, clamp bool) (domain.InventoryItem, error)
	// Adjust adds delta, rejecting results below zero.
	Adjust(ctx context.Context, id uuid.UUID, delta int) (domain.InventoryItem, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int, minThreshold *int) (domain.InventoryItem, error)
}

type ExpenseFilter struct {
	RegionID string
	From     *time.Time
	To       *time.Time
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense domain.Expense) error
	List(ctx context.Context, filter ExpenseFilter) ([]domain.Expense, error)
}

type WebhookEventRepository interface {
	Record(ctx context.Context, event domain.WebhookEvent) error
}

type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
	SchemaVersion    string
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	DeadLettered *time.Time
	CreatedAt    time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	// ClaimUnpublished leases up to limit records to claimToken until claimUntil.
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	// Mark* only touch a record still held under claimToken; a stale claim is a no-op.
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	// MarkDeadLettered parks a record so it is never claimed again.
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// Repositories groups every repository bound to one connection or transaction.
type Repositories struct {
	Regions       RegionRepository
	Installers    InstallerRepository
	Appointments  AppointmentRepository
	Accounts      AccountRepository
	Rates         RateRepository
	Inventory     InventoryRepository
	Expenses      ExpenseRepository
	WebhookEvents WebhookEventRepository
	Outbox        OutboxRepository
}

// TxRunner runs fn inside one store transaction. Returning an error rolls
// back every write made through the repositories passed to fn.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Repositories) error) error
}
