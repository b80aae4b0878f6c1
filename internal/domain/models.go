package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleAdmin     = "admin"
	RoleInstaller = "installer"
)

// NotInformed fills descriptive fields a new appointment arrived without.
const NotInformed = "not informed"

const WalkInCustomer = "walk-in customer"

type Region struct {
	ID                 string
	Name               string
	DefaultInstallerID *uuid.UUID
	CreatedAt          time.Time
}

type Installer struct {
	ID              uuid.UUID
	Name            string
	RegionID        string
	CommissionKind  CommissionKind
	CommissionValue decimal.Decimal
	UpdatedAt       time.Time
}

type Appointment struct {
	ID                uuid.UUID
	Source            string
	ExternalID        string
	RegionID          string
	CalendarLabel     string
	ScheduledAt       *time.Time
	CustomerName      string
	CustomerPhone     string
	VehicleModel      string
	VehicleYear       string
	InstallerID       *uuid.UUID
	Status            AppointmentStatus
	ExternalStatus    string
	SourceCompletedAt *time.Time
	Settlement        *SettlementSnapshot
	EvidenceURL       string
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SettlementSnapshot is frozen on the appointment at completion.
type SettlementSnapshot struct {
	GrossAmount      decimal.Decimal
	NetAmount        decimal.Decimal
	FeePercent       decimal.Decimal
	PaymentMethod    PaymentMethod
	Installments     int
	CommissionAmount decimal.Decimal
	AccountID        *uuid.UUID
	MaterialID       *uuid.UUID
	MaterialName     string
}

type AccountKind string

const (
	AccountKindBank    AccountKind = "bank"
	AccountKindCashbox AccountKind = "cashbox"
)

type Account struct {
	ID        uuid.UUID
	Name      string
	Kind      AccountKind
	RegionID  *string
	Balance   decimal.Decimal
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RateEntry struct {
	Method       PaymentMethod
	Installments int
	FeePercent   decimal.Decimal
	UpdatedAt    time.Time
}

type InventoryItem struct {
	ID           uuid.UUID
	RegionID     string
	Name         string
	Quantity     int
	MinThreshold int
	UpdatedAt    time.Time
}

func (i InventoryItem) LowStock() bool {
	return i.Quantity <= i.MinThreshold
}

type Expense struct {
	ID          uuid.UUID
	RegionID    string
	AccountID   uuid.UUID
	Description string
	Category    string
	Amount      decimal.Decimal
	OccurredAt  time.Time
	RecordedBy  *uuid.UUID
	CreatedAt   time.Time
}

type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
	WebhookOutcomeFailed    WebhookOutcome = "failed"
)

type WebhookEvent struct {
	ID            uuid.UUID
	Source        string
	RegionID      string
	ExternalID    string
	AppointmentID *uuid.UUID
	Outcome       WebhookOutcome
	Error         string
	Payload       []byte
	ReceivedAt    time.Time
}
