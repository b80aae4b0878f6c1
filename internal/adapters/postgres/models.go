package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type regionModel struct {
	ID                 string     `gorm:"column:id;primaryKey"`
	Name               string     `gorm:"column:name"`
	DefaultInstallerID *uuid.UUID `gorm:"column:default_installer_id;type:uuid"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
}

func (regionModel) TableName() string { return "regions" }

type installerModel struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name            string          `gorm:"column:name"`
	RegionID        string          `gorm:"column:region_id"`
	CommissionKind  string          `gorm:"column:commission_kind"`
	CommissionValue decimal.Decimal `gorm:"column:commission_value;type:numeric(12,4)"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (installerModel) TableName() string { return "installers" }

type appointmentModel struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Source            string              `gorm:"column:source"`
	ExternalID        string              `gorm:"column:external_id"`
	RegionID          string              `gorm:"column:region_id"`
	CalendarLabel     string              `gorm:"column:calendar_label"`
	ScheduledAt       *time.Time          `gorm:"column:scheduled_at"`
	CustomerName      string              `gorm:"column:customer_name"`
	CustomerPhone     string              `gorm:"column:customer_phone"`
	VehicleModel      string              `gorm:"column:vehicle_model"`
	VehicleYear       string              `gorm:"column:vehicle_year"`
	InstallerID       *uuid.UUID          `gorm:"column:installer_id;type:uuid"`
	Status            string              `gorm:"column:status"`
	ExternalStatus    string              `gorm:"column:external_status"`
	SourceCompletedAt *time.Time          `gorm:"column:source_completed_at"`
	GrossAmount       decimal.NullDecimal `gorm:"column:gross_amount;type:numeric(14,2)"`
	NetAmount         decimal.NullDecimal `gorm:"column:net_amount;type:numeric(14,2)"`
	FeePercent        decimal.NullDecimal `gorm:"column:fee_percent;type:numeric(7,4)"`
	PaymentMethod     *string             `gorm:"column:payment_method"`
	Installments      *int                `gorm:"column:installments"`
	CommissionAmount  decimal.NullDecimal `gorm:"column:commission_amount;type:numeric(14,2)"`
	AccountID         *uuid.UUID          `gorm:"column:account_id;type:uuid"`
	MaterialID        *uuid.UUID          `gorm:"column:material_id;type:uuid"`
	MaterialName      *string             `gorm:"column:material_name"`
	EvidenceURL       string              `gorm:"column:evidence_url"`
	CompletedAt       *time.Time          `gorm:"column:completed_at"`
	CreatedAt         time.Time           `gorm:"column:created_at"`
	UpdatedAt         time.Time           `gorm:"column:updated_at"`
}

func (appointmentModel) TableName() string { return "appointments" }

type accountModel struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name"`
	Kind      string          `gorm:"column:kind"`
	RegionID  *string         `gorm:"column:region_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2)"`
	IsDefault bool            `gorm:"column:is_default"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type rateModel struct {
	Method       string          `gorm:"column:method;primaryKey"`
	Installments int             `gorm:"column:installments;primaryKey"`
	FeePercent   decimal.Decimal `gorm:"column:fee_percent;type:numeric(7,4)"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (rateModel) TableName() string { return "payment_rates" }

type inventoryModel struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RegionID     string    `gorm:"column:region_id"`
	Name         string    `gorm:"column:name"`
	Quantity     int       `gorm:"column:quantity"`
	MinThreshold int       `gorm:"column:min_threshold"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (inventoryModel) TableName() string { return "inventory_items" }

type expenseModel struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RegionID    string          `gorm:"column:region_id"`
	AccountID   uuid.UUID       `gorm:"column:account_id;type:uuid"`
	Description string          `gorm:"column:description"`
	Category    string          `gorm:"column:category"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(14,2)"`
	OccurredAt  time.Time       `gorm:"column:occurred_at"`
	RecordedBy  *uuid.UUID      `gorm:"column:recorded_by;type:uuid"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (expenseModel) TableName() string { return "expenses" }

type webhookEventModel struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Source        string         `gorm:"column:source"`
	RegionID      string         `gorm:"column:region_id"`
	ExternalID    string         `gorm:"column:external_id"`
	AppointmentID *uuid.UUID     `gorm:"column:appointment_id;type:uuid"`
	Outcome       string         `gorm:"column:outcome"`
	Error         string         `gorm:"column:error"`
	Payload       datatypes.JSON `gorm:"column:payload;type:jsonb"`
	ReceivedAt    time.Time      `gorm:"column:received_at"`
}

func (webhookEventModel) TableName() string { return "webhook_events" }

type outboxModel struct {
	OutboxID     uuid.UUID      `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string         `gorm:"column:event_type"`
	PartitionKey string         `gorm:"column:partition_key"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	PublishedAt  *time.Time     `gorm:"column:published_at"`
	RetryCount   int            `gorm:"column:retry_count"`
	LastError    *string        `gorm:"column:last_error"`
	LastErrorAt  *time.Time     `gorm:"column:last_error_at"`
	ClaimToken   *string        `gorm:"column:claim_token"`
	ClaimUntil   *time.Time     `gorm:"column:claim_until"`
	DeadLettered *time.Time     `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "volante_outbox" }
