package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]domain.AppointmentStatus{
		{domain.StatusPending, domain.StatusScheduled},
		{domain.StatusPending, domain.StatusCompleted},
		{domain.StatusPending, domain.StatusCancelled},
		{domain.StatusScheduled, domain.StatusCompleted},
		{domain.StatusScheduled, domain.StatusCancelled},
	}
	for _, pair := range allowed {
		if !domain.CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}
	all := []domain.AppointmentStatus{domain.StatusPending, domain.StatusScheduled, domain.StatusCompleted, domain.StatusCancelled}
	for _, from := range []domain.AppointmentStatus{domain.StatusCompleted, domain.StatusCancelled} {
		for _, to := range all {
			if domain.CanTransition(from, to) {
				t.Fatalf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
	if domain.CanTransition(domain.StatusScheduled, domain.StatusPending) {
		t.Fatalf("scheduled must not regress to pending")
	}
}

func TestClassifyExternalStatus(t *testing.T) {
	t.Parallel()

	cancelled := []string{"cancelled", "Canceled", "NOSHOW", "no_show", "invalid", "abandoned"}
	for _, raw := range cancelled {
		if got := domain.ClassifyExternalStatus(raw); got.Target != domain.StatusCancelled {
			t.Fatalf("%q: expected cancelled, got %+v", raw, got)
		}
	}
	completed := []string{"completed", "Finished", "executed", "showed"}
	for _, raw := range completed {
		got := domain.ClassifyExternalStatus(raw)
		if !got.SourceCompleted || got.Target != domain.StatusPending {
			t.Fatalf("%q: expected source-completed without internal completion, got %+v", raw, got)
		}
	}
	for _, raw := range []string{"", "confirmed", "booked", "whatever"} {
		if got := domain.ClassifyExternalStatus(raw); got.Target != domain.StatusPending || got.SourceCompleted {
			t.Fatalf("%q: expected pending, got %+v", raw, got)
		}
	}
}

func TestMergeWebhookNeverResurrectsTerminal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	scheduled := now.Add(-time.Hour)
	accountID := uuid.New()
	for _, status := range []domain.AppointmentStatus{domain.StatusCompleted, domain.StatusCancelled} {
		existing := domain.Appointment{
			ID:           uuid.New(),
			ExternalID:   "A1",
			Status:       status,
			ScheduledAt:  &scheduled,
			CustomerName: "Old Name",
			Settlement: &domain.SettlementSnapshot{
				GrossAmount: decimal.NewFromInt(100),
				NetAmount:   decimal.NewFromInt(95),
				AccountID:   &accountID,
			},
		}
		later := now.Add(48 * time.Hour)
		for _, target := range []domain.AppointmentStatus{domain.StatusPending, domain.StatusScheduled, domain.StatusCancelled} {
			upd := domain.WebhookUpdate{
				ExternalID:   "A1",
				CustomerName: "New Name",
				ScheduledAt:  &later,
				Status:       domain.ExternalStatus{Raw: string(target), Target: target},
			}
			merged, _ := domain.MergeWebhook(existing, upd, now)
			if merged.Status != status {
				t.Fatalf("%s: status changed to %s", status, merged.Status)
			}
			if merged.Settlement != existing.Settlement || !merged.Settlement.NetAmount.Equal(decimal.NewFromInt(95)) {
				t.Fatalf("%s: settlement snapshot changed", status)
			}
			if !merged.ScheduledAt.Equal(scheduled) {
				t.Fatalf("%s: scheduled time changed", status)
			}
			if merged.CustomerName != "New Name" {
				t.Fatalf("%s: expected descriptive field update, got %q", status, merged.CustomerName)
			}
		}
	}
}

func TestMergeWebhookKeepsFieldsThePayloadOmits(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	scheduled := now.Add(24 * time.Hour)
	existing := domain.Appointment{
		Status:        domain.StatusScheduled,
		ScheduledAt:   &scheduled,
		CustomerName:  "Ana",
		CustomerPhone: "3799",
		VehicleModel:  "Onix",
	}
	merged, changed := domain.MergeWebhook(existing, domain.WebhookUpdate{
		VehicleYear: "2020",
		Status:      domain.ExternalStatus{Target: domain.StatusPending},
	}, now)
	if !changed {
		t.Fatalf("expected change")
	}
	if merged.Status != domain.StatusScheduled {
		t.Fatalf("scheduled regressed to %s", merged.Status)
	}
	if merged.CustomerName != "Ana" || merged.CustomerPhone != "3799" || merged.VehicleModel != "Onix" || merged.VehicleYear != "2020" {
		t.Fatalf("unexpected merge result %+v", merged)
	}
	if !merged.ScheduledAt.Equal(scheduled) {
		t.Fatalf("absent timestamp must keep scheduled time")
	}

	again, changed := domain.MergeWebhook(merged, domain.WebhookUpdate{VehicleYear: "2020", Status: domain.ExternalStatus{Target: domain.StatusPending}}, now.Add(time.Minute))
	if changed {
		t.Fatalf("identical delivery must not change the appointment: %+v", again)
	}
}

func TestMergeWebhookCancelsActiveAppointment(t *testing.T) {
	t.Parallel()

	existing := domain.Appointment{Status: domain.StatusPending}
	merged, changed := domain.MergeWebhook(existing, domain.WebhookUpdate{
		Status: domain.ClassifyExternalStatus("noshow"),
	}, time.Now())
	if !changed || merged.Status != domain.StatusCancelled || merged.ExternalStatus != "noshow" {
		t.Fatalf("expected cancellation, got %+v", merged)
	}
}
