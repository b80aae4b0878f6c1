package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"github.com/shopspring/decimal"
)

const (
	eventAppointmentIngested  = "appointment.ingested"
	eventAppointmentCompleted = "appointment.completed"
	eventExpenseRecorded      = "expense.recorded"
	eventTransferApplied      = "transfer.applied"

	rateTableCacheKey = "volante:rates:v1"
)

func (s *Service) enqueueEvent(ctx context.Context, outbox ports.OutboxRepository, eventType, partitionKey, keyPath string, data any) error {
	occurredAt := s.nowFn()
	eventID := uuid.New()
	envelope := map[string]any{
		"event_id":           eventID.String(),
		"event_type":         eventType,
		"occurred_at":        occurredAt.Format(time.RFC3339),
		"source_service":     s.cfg.ServiceName,
		"schema_version":     "1.0",
		"partition_key_path": keyPath,
		"partition_key":      partitionKey,
		"data":               data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:          eventID,
		EventType:        eventType,
		PartitionKey:     partitionKey,
		PartitionKeyPath: keyPath,
		Payload:          payload,
		OccurredAt:       occurredAt,
		SchemaVersion:    "1.0",
	})
}

type appointmentIngestedEventData struct {
	AppointmentID string `json:"appointment_id"`
	Source        string `json:"source"`
	ExternalID    string `json:"external_id"`
	RegionID      string `json:"region_id"`
	Status        string `json:"status"`
	Created       bool   `json:"created"`
}

type appointmentCompletedEventData struct {
	AppointmentID    string  `json:"appointment_id"`
	RegionID         string  `json:"region_id"`
	InstallerID      *string `json:"installer_id,omitempty"`
	AccountID        *string `json:"account_id,omitempty"`
	MaterialID       string  `json:"material_id"`
	PaymentMethod    string  `json:"payment_method"`
	Installments     int     `json:"installments"`
	GrossAmount      string  `json:"gross_amount"`
	NetAmount        string  `json:"net_amount"`
	FeePercent       string  `json:"fee_percent"`
	CommissionAmount string  `json:"commission_amount"`
	CompletedAt      string  `json:"completed_at"`
}

type expenseRecordedEventData struct {
	ExpenseID  string `json:"expense_id"`
	RegionID   string `json:"region_id"`
	AccountID  string `json:"account_id"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	OccurredAt string `json:"occurred_at"`
}

type transferAppliedEventData struct {
	TransferID    string `json:"transfer_id"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

func hashRequest(parts ...string) string {
	sum := sha256.New()
	for _, p := range parts {
		sum.Write([]byte(p))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}

// loadRateTable reads the rate table through the cache. Cache failures fall
// back to the repository.
func (s *Service) loadRateTable(ctx context.Context) (domain.RateTable, error) {
	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, rateTableCacheKey)
		if err != nil {
			logWarn(ctx, "rate_table_cache", "rate cache unavailable", "error", err)
		} else if found {
			var cached []cachedRate
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return rateTableFromCache(cached), nil
			}
		}
	}
	entries, err := s.repos.Rates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load rates: %v", domain.ErrDependencyUnavailable, err)
	}
	if s.cache != nil {
		cached := make([]cachedRate, 0, len(entries))
		for _, e := range entries {
			cached = append(cached, cachedRate{Method: string(e.Method), Installments: e.Installments, FeePercent: e.FeePercent.String()})
		}
		if raw, jsonErr := json.Marshal(cached); jsonErr == nil {
			if setErr := s.cache.Set(ctx, rateTableCacheKey, string(raw), s.cfg.RateCacheTTL); setErr != nil {
				logWarn(ctx, "rate_table_cache", "rate cache write failed", "error", setErr)
			}
		}
	}
	return domain.NewRateTable(entries), nil
}

type cachedRate struct {
	Method       string `json:"method"`
	Installments int    `json:"installments"`
	FeePercent   string `json:"fee_percent"`
}

func rateTableFromCache(cached []cachedRate) domain.RateTable {
	entries := make([]domain.RateEntry, 0, len(cached))
	for _, c := range cached {
		fee, err := decimal.NewFromString(c.FeePercent)
		if err != nil {
			continue
		}
		entries = append(entries, domain.RateEntry{Method: domain.PaymentMethod(c.Method), Installments: c.Installments, FeePercent: fee})
	}
	return domain.NewRateTable(entries)
}

func (s *Service) invalidateRateTable(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, rateTableCacheKey); err != nil {
		logWarn(ctx, "rate_table_cache", "rate cache invalidation failed", "error", err)
	}
}

func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", domain.ErrInvalidInput, field)
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func logWarn(ctx context.Context, operation, msg string, attrs ...any) {
	base := []any{"module", "application", "layer", "application", "operation", operation, "outcome", "warning"}
	slog.Default().WarnContext(ctx, msg, append(base, attrs...)...)
}

func logInfo(ctx context.Context, operation, msg string, attrs ...any) {
	base := []any{"module", "application", "layer", "application", "operation", operation, "outcome", "success"}
	slog.Default().InfoContext(ctx, msg, append(base, attrs...)...)
}

func logError(ctx context.Context, operation, msg string, attrs ...any) {
	base := []any{"module", "application", "layer", "application", "operation", operation, "outcome", "failure"}
	slog.Default().ErrorContext(ctx, msg, append(base, attrs...)...)
}

func (s *Service) formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.In(s.location).Format(time.RFC3339)
	return &v
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}

func (s *Service) appointmentView(a domain.Appointment) AppointmentView {
	view := AppointmentView{
		ID:                a.ID.String(),
		Source:            a.Source,
		ExternalID:        a.ExternalID,
		RegionID:          a.RegionID,
		CalendarLabel:     a.CalendarLabel,
		ScheduledAt:       s.formatTime(a.ScheduledAt),
		CustomerName:      a.CustomerName,
		CustomerPhone:     a.CustomerPhone,
		VehicleModel:      a.VehicleModel,
		VehicleYear:       a.VehicleYear,
		InstallerID:       uuidString(a.InstallerID),
		Status:            string(a.Status),
		ExternalStatus:    a.ExternalStatus,
		SourceCompletedAt: s.formatTime(a.SourceCompletedAt),
		EvidenceURL:       a.EvidenceURL,
		CompletedAt:       s.formatTime(a.CompletedAt),
		CreatedAt:         a.CreatedAt.In(s.location).Format(time.RFC3339),
	}
	if snap := a.Settlement; snap != nil {
		view.Settlement = &SettlementView{
			GrossAmount:      snap.GrossAmount,
			NetAmount:        snap.NetAmount,
			FeePercent:       snap.FeePercent,
			PaymentMethod:    string(snap.PaymentMethod),
			Installments:     snap.Installments,
			CommissionAmount: snap.CommissionAmount,
			AccountID:        uuidString(snap.AccountID),
			MaterialID:       uuidString(snap.MaterialID),
			MaterialName:     snap.MaterialName,
		}
	}
	return view
}

func accountView(a domain.Account) AccountView {
	return AccountView{
		ID:        a.ID.String(),
		Name:      a.Name,
		Kind:      string(a.Kind),
		RegionID:  a.RegionID,
		Balance:   a.Balance,
		IsDefault: a.IsDefault,
	}
}

func inventoryView(i domain.InventoryItem) InventoryItemView {
	return InventoryItemView{
		ID:           i.ID.String(),
		RegionID:     i.RegionID,
		Name:         i.Name,
		Quantity:     i.Quantity,
		MinThreshold: i.MinThreshold,
		LowStock:     i.LowStock(),
	}
}

func installerView(i domain.Installer) InstallerView {
	return InstallerView{
		ID:              i.ID.String(),
		Name:            i.Name,
		RegionID:        i.RegionID,
		CommissionKind:  string(i.CommissionKind),
		CommissionValue: i.CommissionValue,
	}
}

func regionView(r domain.Region) RegionView {
	return RegionView{ID: r.ID, Name: r.Name, DefaultInstallerID: uuidString(r.DefaultInstallerID)}
}
