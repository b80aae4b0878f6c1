package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

// CompleteService settles an appointment. Every check and computation runs
// before the evidence upload; the appointment write, stock decrement, ledger
// delta and outbox event share one transaction. A failed transaction removes
// the uploaded evidence.
func (s *Service) CompleteService(ctx context.Context, actor Actor, req CompleteServiceRequest) (CompletionResult, error) {
	missing := domain.MissingCompletionFields(req.MaterialID, req.PaymentMethod, req.GrossAmount, req.Evidence != nil && req.Evidence.Body != nil)
	if len(missing) > 0 {
		return CompletionResult{}, domain.IncompleteSubmission(missing)
	}
	materialID, err := parseUUID("material_id", req.MaterialID)
	if err != nil {
		return CompletionResult{}, err
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return CompletionResult{}, err
	}
	gross, err := domain.ParseAmount(req.GrossAmount)
	if err != nil {
		return CompletionResult{}, err
	}
	installments := req.InstallmentCount
	if installments == 0 {
		installments = 1
	}

	appt, err := s.repos.Appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		return CompletionResult{}, err
	}
	if appt.Status.IsTerminal() {
		return CompletionResult{}, fmt.Errorf("%w: appointment is already %s", domain.ErrInvalidTransition, appt.Status)
	}
	if !actor.IsAdmin() && appt.InstallerID != nil && *appt.InstallerID != actor.UserID {
		return CompletionResult{}, fmt.Errorf("%w: appointment is assigned to another installer", domain.ErrForbidden)
	}

	material, err := s.repos.Inventory.Get(ctx, materialID)
	if err != nil {
		return CompletionResult{}, err
	}
	if material.RegionID != appt.RegionID {
		return CompletionResult{}, fmt.Errorf("%w: material belongs to region %s", domain.ErrInvalidInput, material.RegionID)
	}
	if material.Quantity < 1 && !req.OverrideStock {
		return CompletionResult{}, fmt.Errorf("%w: %s has %d left", domain.ErrInsufficientStock, material.Name, material.Quantity)
	}

	rates, err := s.loadRateTable(ctx)
	if err != nil {
		return CompletionResult{}, err
	}
	settlement, err := domain.CalculateSettlement(gross, method, installments, rates)
	if err != nil {
		return CompletionResult{}, err
	}

	installerID := appt.InstallerID
	if installerID == nil && actor.Role == domain.RoleInstaller {
		id := actor.UserID
		installerID = &id
	}
	var installer *domain.Installer
	if installerID != nil {
		found, getErr := s.repos.Installers.Get(ctx, *installerID)
		switch {
		case getErr == nil:
			installer = &found
		case isNotFound(getErr):
			logWarn(ctx, "complete_service", "installer has no commission profile",
				"installer_id", installerID.String(),
			)
		default:
			return CompletionResult{}, getErr
		}
	}
	commission := domain.CalculateCommission(settlement, installer, s.cfg.CommissionBase)

	accounts, err := s.repos.Accounts.List(ctx)
	if err != nil {
		return CompletionResult{}, err
	}
	var accountID *uuid.UUID
	resolution, err := domain.ResolveAccount(method, appt.RegionID, accounts)
	switch {
	case err == nil:
		id := resolution.AccountID
		accountID = &id
		if resolution.Fallback {
			logWarn(ctx, "complete_service", "preferred account missing, using fallback",
				"appointment_id", appt.ID.String(),
				"region_id", appt.RegionID,
				"payment_method", string(method),
				"account_id", id.String(),
			)
		}
	case errors.Is(err, domain.ErrNoAccountAvailable) && req.ConfirmWithoutAccount:
		logWarn(ctx, "complete_service", "completing without financial link",
			"appointment_id", appt.ID.String(),
			"region_id", appt.RegionID,
		)
	default:
		return CompletionResult{}, err
	}

	evidenceKey := evidenceObjectKey(appt.ID, req.Evidence.FileName)
	evidenceURL, err := s.evidence.Put(ctx, evidenceKey, req.Evidence.ContentType, req.Evidence.Body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return CompletionResult{}, err
		}
		return CompletionResult{}, fmt.Errorf("%w: upload evidence: %v", domain.ErrStorageUnavailable, err)
	}

	var (
		completed domain.Appointment
		remaining domain.InventoryItem
	)
	txErr := s.tx.InTx(ctx, func(tx ports.Repositories) error {
		current, err := tx.Appointments.GetForUpdate(ctx, appt.ID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(current.Status, domain.StatusCompleted) {
			return fmt.Errorf("%w: appointment is already %s", domain.ErrInvalidTransition, current.Status)
		}
		remaining, err = tx.Inventory.Decrement(ctx, material.ID, 1, req.OverrideStock)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return fmt.Errorf("%w: %s is out of stock", domain.ErrInsufficientStock, material.Name)
			}
			return err
		}

		now := s.nowFn()
		matID := material.ID
		current.Status = domain.StatusCompleted
		current.CompletedAt = &now
		current.UpdatedAt = now
		current.EvidenceURL = evidenceURL
		if current.InstallerID == nil {
			current.InstallerID = installerID
		}
		current.Settlement = &domain.SettlementSnapshot{
			GrossAmount:      settlement.GrossAmount,
			NetAmount:        settlement.NetAmount,
			FeePercent:       settlement.FeePercent,
			PaymentMethod:    settlement.Method,
			Installments:     settlement.Installments,
			CommissionAmount: commission,
			AccountID:        accountID,
			MaterialID:       &matID,
			MaterialName:     material.Name,
		}
		if err := tx.Appointments.Update(ctx, current); err != nil {
			return err
		}
		if accountID != nil {
			if err := tx.Accounts.ApplyDelta(ctx, *accountID, settlement.NetAmount); err != nil {
				return fmt.Errorf("apply ledger delta: %w", err)
			}
		}
		completed = current
		return s.enqueueEvent(ctx, tx.Outbox, eventAppointmentCompleted, current.ID.String(), "data.appointment_id", completedEventData(current))
	})
	if txErr != nil {
		if delErr := s.evidence.Delete(ctx, evidenceKey); delErr != nil {
			logError(ctx, "complete_service", "evidence cleanup failed",
				"appointment_id", appt.ID.String(),
				"evidence_key", evidenceKey,
				"error", delErr,
			)
		}
		return CompletionResult{}, txErr
	}

	logInfo(ctx, "complete_service", "service completed",
		"appointment_id", completed.ID.String(),
		"region_id", completed.RegionID,
		"payment_method", string(method),
		"installments", installments,
		"account_linked", accountID != nil,
		"material_id", material.ID.String(),
	)
	return CompletionResult{
		Appointment:     s.appointmentView(completed),
		AccountFallback: resolution.Fallback,
		AccountLinked:   accountID != nil,
		MaterialLeft:    remaining.Quantity,
		LowStock:        remaining.LowStock(),
	}, nil
}

func completedEventData(a domain.Appointment) appointmentCompletedEventData {
	snap := a.Settlement
	data := appointmentCompletedEventData{
		AppointmentID:    a.ID.String(),
		RegionID:         a.RegionID,
		InstallerID:      uuidString(a.InstallerID),
		AccountID:        uuidString(snap.AccountID),
		PaymentMethod:    string(snap.PaymentMethod),
		Installments:     snap.Installments,
		GrossAmount:      snap.GrossAmount.StringFixed(2),
		NetAmount:        snap.NetAmount.StringFixed(2),
		FeePercent:       snap.FeePercent.String(),
		CommissionAmount: snap.CommissionAmount.StringFixed(2),
	}
	if snap.MaterialID != nil {
		data.MaterialID = snap.MaterialID.String()
	}
	if a.CompletedAt != nil {
		data.CompletedAt = a.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return data
}

func evidenceObjectKey(appointmentID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic":
	default:
		ext = ".bin"
	}
	return fmt.Sprintf("appointments/%s/%s%s", appointmentID, uuid.NewString(), ext)
}
