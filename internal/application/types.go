package application

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServiceName      string
	LocalOffset      string
	CommissionBase   domain.CommissionBase
	WebhookReplayTTL time.Duration
	RateCacheTTL     time.Duration
}

// Actor is the authenticated caller.
type Actor struct {
	UserID   uuid.UUID
	Role     string
	RegionID string
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

type WebhookRequest struct {
	Source         string
	RegionID       string
	StatusOverride string
	Body           []byte
}

type WebhookResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Status  string `json:"status"`
	Region  string `json:"region"`
}

type EvidenceUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type CompleteServiceRequest struct {
	AppointmentID         uuid.UUID
	MaterialID            string
	PaymentMethod         string
	InstallmentCount      int
	GrossAmount           string
	Evidence              *EvidenceUpload
	OverrideStock         bool
	ConfirmWithoutAccount bool
}

type CompletionResult struct {
	Appointment     AppointmentView `json:"appointment"`
	AccountFallback bool            `json:"account_fallback"`
	AccountLinked   bool            `json:"account_linked"`
	MaterialLeft    int             `json:"material_left"`
	LowStock        bool            `json:"low_stock"`
}

type SettlementView struct {
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	FeePercent       decimal.Decimal `json:"fee_percent"`
	PaymentMethod    string          `json:"payment_method"`
	Installments     int             `json:"installments"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	AccountID        *string         `json:"account_id,omitempty"`
	MaterialID       *string         `json:"material_id,omitempty"`
	MaterialName     string          `json:"material_name,omitempty"`
}

type AppointmentView struct {
	ID                string          `json:"id"`
	Source            string          `json:"source"`
	ExternalID        string          `json:"external_id"`
	RegionID          string          `json:"region_id"`
	CalendarLabel     string          `json:"calendar_label"`
	ScheduledAt       *string         `json:"scheduled_at,omitempty"`
	CustomerName      string          `json:"customer_name"`
	CustomerPhone     string          `json:"customer_phone"`
	VehicleModel      string          `json:"vehicle_model"`
	VehicleYear       string          `json:"vehicle_year"`
	InstallerID       *string         `json:"installer_id,omitempty"`
	Status            string          `json:"status"`
	ExternalStatus    string          `json:"external_status,omitempty"`
	SourceCompletedAt *string         `json:"source_completed_at,omitempty"`
	Settlement        *SettlementView `json:"settlement,omitempty"`
	EvidenceURL       string          `json:"evidence_url,omitempty"`
	CompletedAt       *string         `json:"completed_at,omitempty"`
	CreatedAt         string          `json:"created_at"`
}

type StartServiceRequest struct {
	RegionID      string `json:"region_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	VehicleModel  string `json:"vehicle_model"`
	VehicleYear   string `json:"vehicle_year"`
}

type ListAppointmentsQuery struct {
	RegionID    string
	InstallerID string
	Status      string
	Limit       int
}

type CreateRegionRequest struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	DefaultInstallerID *string `json:"default_installer_id,omitempty"`
}

type RegionView struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	DefaultInstallerID *string `json:"default_installer_id,omitempty"`
}

type UpsertInstallerRequest struct {
	Name            string `json:"name"`
	RegionID        string `json:"region_id"`
	CommissionKind  string `json:"commission_kind"`
	CommissionValue string `json:"commission_value"`
}

type InstallerView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	RegionID        string          `json:"region_id"`
	CommissionKind  string          `json:"commission_kind"`
	CommissionValue decimal.Decimal `json:"commission_value"`
}

type CreateAccountRequest struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	RegionID  *string `json:"region_id,omitempty"`
	IsDefault bool    `json:"is_default"`
}

type AccountView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	RegionID  *string         `json:"region_id,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"is_default"`
}

type RecordExpenseRequest struct {
	RegionID    string `json:"region_id"`
	AccountID   string `json:"account_id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	OccurredAt  string `json:"occurred_at,omitempty"`
}

type ExpenseView struct {
	ID          string          `json:"id"`
	RegionID    string          `json:"region_id"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  string          `json:"occurred_at"`
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

type TransferResult struct {
	From AccountView `json:"from"`
	To   AccountView `json:"to"`
}

type UpsertRateRequest struct {
	Method       string `json:"method"`
	Installments int    `json:"installments"`
	FeePercent   string `json:"fee_percent"`
}

type RateView struct {
	Method       string          `json:"method"`
	Installments int             `json:"installments"`
	FeePercent   decimal.Decimal `json:"fee_percent"`
}

type CreateInventoryItemRequest struct {
	RegionID     string `json:"region_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	MinThreshold int    `json:"min_threshold"`
}

// AdjustInventoryRequest carries either a relative Delta (restock or loss)
// or an absolute Quantity correction.
type AdjustInventoryRequest struct {
	Delta        *int `json:"delta,omitempty"`
	Quantity     *int `json:"quantity,omitempty"`
	MinThreshold *int `json:"min_threshold,omitempty"`
}

type InventoryItemView struct {
	ID           string `json:"id"`
	RegionID     string `json:"region_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	MinThreshold int    `json:"min_threshold"`
	LowStock     bool   `json:"low_stock"`
}

type DashboardQuery struct {
	RegionID string
	Month    string
}

type Dashboard struct {
	RegionID         string                     `json:"region_id"`
	Month            string                     `json:"month"`
	ServicesDone     int                        `json:"services_done"`
	GrossTotal       decimal.Decimal            `json:"gross_total"`
	NetTotal         decimal.Decimal            `json:"net_total"`
	ExpenseTotal     decimal.Decimal            `json:"expense_total"`
	Profit           decimal.Decimal            `json:"profit"`
	CommissionTotal  decimal.Decimal            `json:"commission_total"`
	ByPaymentMethod  map[string]decimal.Decimal `json:"by_payment_method"`
	MaterialUsage    map[string]int             `json:"material_usage"`
	Accounts         []AccountView              `json:"accounts"`
	LowStockMaterial []InventoryItemView        `json:"low_stock_material"`
}

type CommissionLine struct {
	InstallerID   string          `json:"installer_id"`
	InstallerName string          `json:"installer_name"`
	Services      int             `json:"services"`
	Total         decimal.Decimal `json:"total"`
}

type StatementLine struct {
	AppointmentID    string          `json:"appointment_id"`
	CustomerName     string          `json:"customer_name"`
	VehicleModel     string          `json:"vehicle_model"`
	CompletedAt      string          `json:"completed_at"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

type Statement struct {
	InstallerID     string          `json:"installer_id"`
	Month           string          `json:"month"`
	Lines           []StatementLine `json:"lines"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

type TodayCommission struct {
	Date     string          `json:"date"`
	Services int             `json:"services"`
	Total    decimal.Decimal `json:"total"`
}
