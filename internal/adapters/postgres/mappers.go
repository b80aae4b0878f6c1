package postgres

import (
	"encoding/json"
	"errors"

	"github.com/playnatela/volante-express/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func toDomainRegion(m regionModel) domain.Region {
	return domain.Region{
		ID:                 m.ID,
		Name:               m.Name,
		DefaultInstallerID: m.DefaultInstallerID,
		CreatedAt:          m.CreatedAt,
	}
}

func toDomainInstaller(m installerModel) domain.Installer {
	return domain.Installer{
		ID:              m.ID,
		Name:            m.Name,
		RegionID:        m.RegionID,
		CommissionKind:  domain.CommissionKind(m.CommissionKind),
		CommissionValue: m.CommissionValue,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toAppointmentModel(a domain.Appointment) appointmentModel {
	m := appointmentModel{
		ID:                a.ID,
		Source:            a.Source,
		ExternalID:        a.ExternalID,
		RegionID:          a.RegionID,
		CalendarLabel:     a.CalendarLabel,
		ScheduledAt:       a.ScheduledAt,
		CustomerName:      a.CustomerName,
		CustomerPhone:     a.CustomerPhone,
		VehicleModel:      a.VehicleModel,
		VehicleYear:       a.VehicleYear,
		InstallerID:       a.InstallerID,
		Status:            string(a.Status),
		ExternalStatus:    a.ExternalStatus,
		SourceCompletedAt: a.SourceCompletedAt,
		EvidenceURL:       a.EvidenceURL,
		CompletedAt:       a.CompletedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if s := a.Settlement; s != nil {
		method := string(s.PaymentMethod)
		installments := s.Installments
		m.GrossAmount = decimal.NewNullDecimal(s.GrossAmount)
		m.NetAmount = decimal.NewNullDecimal(s.NetAmount)
		m.FeePercent = decimal.NewNullDecimal(s.FeePercent)
		m.CommissionAmount = decimal.NewNullDecimal(s.CommissionAmount)
		m.PaymentMethod = &method
		m.Installments = &installments
		m.AccountID = s.AccountID
		m.MaterialID = s.MaterialID
		if s.MaterialName != "" {
			name := s.MaterialName
			m.MaterialName = &name
		}
	}
	return m
}

func toDomainAppointment(m appointmentModel) domain.Appointment {
	a := domain.Appointment{
		ID:                m.ID,
		Source:            m.Source,
		ExternalID:        m.ExternalID,
		RegionID:          m.RegionID,
		CalendarLabel:     m.CalendarLabel,
		ScheduledAt:       m.ScheduledAt,
		CustomerName:      m.CustomerName,
		CustomerPhone:     m.CustomerPhone,
		VehicleModel:      m.VehicleModel,
		VehicleYear:       m.VehicleYear,
		InstallerID:       m.InstallerID,
		Status:            domain.AppointmentStatus(m.Status),
		ExternalStatus:    m.ExternalStatus,
		SourceCompletedAt: m.SourceCompletedAt,
		EvidenceURL:       m.EvidenceURL,
		CompletedAt:       m.CompletedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.GrossAmount.Valid && m.PaymentMethod != nil {
		snap := &domain.SettlementSnapshot{
			GrossAmount:      m.GrossAmount.Decimal,
			NetAmount:        m.NetAmount.Decimal,
			FeePercent:       m.FeePercent.Decimal,
			PaymentMethod:    domain.PaymentMethod(*m.PaymentMethod),
			CommissionAmount: m.CommissionAmount.Decimal,
			AccountID:        m.AccountID,
			MaterialID:       m.MaterialID,
		}
		if m.Installments != nil {
			snap.Installments = *m.Installments
		}
		if m.MaterialName != nil {
			snap.MaterialName = *m.MaterialName
		}
		a.Settlement = snap
	}
	return a
}

func toDomainAccount(m accountModel) domain.Account {
	return domain.Account{
		ID:        m.ID,
		Name:      m.Name,
		Kind:      domain.AccountKind(m.Kind),
		RegionID:  m.RegionID,
		Balance:   m.Balance,
		IsDefault: m.IsDefault,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toDomainInventory(m inventoryModel) domain.InventoryItem {
	return domain.InventoryItem{
		ID:           m.ID,
		RegionID:     m.RegionID,
		Name:         m.Name,
		Quantity:     m.Quantity,
		MinThreshold: m.MinThreshold,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainExpense(m expenseModel) domain.Expense {
	return domain.Expense{
		ID:          m.ID,
		RegionID:    m.RegionID,
		AccountID:   m.AccountID,
		Description: m.Description,
		Category:    m.Category,
		Amount:      m.Amount,
		OccurredAt:  m.OccurredAt,
		RecordedBy:  m.RecordedBy,
		CreatedAt:   m.CreatedAt,
	}
}

// jsonPayload keeps non-JSON webhook bodies storable in a jsonb column by
// wrapping them as a JSON string.
func jsonPayload(raw []byte) []byte {
	if len(raw) > 0 && json.Valid(raw) {
		return raw
	}
	wrapped, err := json.Marshal(string(raw))
	if err != nil {
		return []byte(`""`)
	}
	return wrapped
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
