package application

import (
	"context"
	"testing"

	"github.com/playnatela/volante-express/internal/domain"
)

func TestDashboardAndCommissionReports(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.ingest("divinopolis", `{"id":"D1","contact":{"name":"Ana"}}`)
	f.ingest("divinopolis", `{"id":"D2","contact":{"name":"Bia"}}`)
	for _, tc := range []struct {
		externalID   string
		method       string
		gross        string
		installments int
	}{
		{"D1", "credit", "100", 3},
		{"D2", "pix", "50", 1},
	} {
		appt := f.appointmentByExternalID(tc.externalID)
		if _, err := f.svc.CompleteService(ctx, f.installerActor(), completion(appt.ID, f.material.ID, tc.method, tc.gross, tc.installments)); err != nil {
			t.Fatalf("complete %s: %v", tc.externalID, err)
		}
	}
	cashbox, err := f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Caixa Divinópolis", Kind: "cashbox", RegionID: strPtr("divinopolis")})
	if err != nil {
		t.Fatalf("create cashbox: %v", err)
	}
	if _, err := f.svc.RecordExpense(ctx, adminActor(), RecordExpenseRequest{
		RegionID:    "divinopolis",
		AccountID:   cashbox.ID,
		Description: "Lunch",
		Amount:      "20",
	}); err != nil {
		t.Fatalf("record expense: %v", err)
	}

	dash, err := f.svc.Dashboard(ctx, DashboardQuery{RegionID: "divinopolis", Month: "2026-02"})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.ServicesDone != 2 {
		t.Fatalf("expected 2 services, got %d", dash.ServicesDone)
	}
	assertMoney(t, dash.GrossTotal, "150.00")
	assertMoney(t, dash.NetTotal, "145.00")
	assertMoney(t, dash.ExpenseTotal, "20.00")
	assertMoney(t, dash.Profit, "125.00")
	assertMoney(t, dash.CommissionTotal, "14.50")
	assertMoney(t, dash.ByPaymentMethod["credit"], "100.00")
	assertMoney(t, dash.ByPaymentMethod["pix"], "50.00")
	if dash.MaterialUsage["Matte black"] != 2 {
		t.Fatalf("unexpected material usage: %v", dash.MaterialUsage)
	}
	if len(dash.LowStockMaterial) != 0 {
		t.Fatalf("3 of 5 left with threshold 2 is not low: %+v", dash.LowStockMaterial)
	}

	empty, err := f.svc.Dashboard(ctx, DashboardQuery{RegionID: "divinopolis", Month: "2026-03"})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if empty.ServicesDone != 0 || !empty.GrossTotal.IsZero() {
		t.Fatalf("expected empty month, got %+v", empty)
	}

	_, err = f.svc.Dashboard(ctx, DashboardQuery{RegionID: "divinopolis", Month: "feb"})
	assertIs(t, err, domain.ErrInvalidInput)

	lines, err := f.svc.CommissionReport(ctx, DashboardQuery{Month: "2026-02"})
	if err != nil {
		t.Fatalf("commission report: %v", err)
	}
	if len(lines) != 1 || lines[0].InstallerName != "Carlos" || lines[0].Services != 2 {
		t.Fatalf("unexpected report: %+v", lines)
	}
	assertMoney(t, lines[0].Total, "14.50")

	statement, err := f.svc.InstallerStatement(ctx, f.installerActor(), "")
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if statement.Month != "2026-02" || len(statement.Lines) != 2 {
		t.Fatalf("unexpected statement: %+v", statement)
	}
	assertMoney(t, statement.TotalCommission, "14.50")

	today, err := f.svc.TodayCommission(ctx, f.installerActor())
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today.Date != "2026-02-01" || today.Services != 2 {
		t.Fatalf("unexpected today: %+v", today)
	}
	assertMoney(t, today.Total, "14.50")
}

func TestStartAdHocServiceAndQueries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.StartAdHocService(ctx, f.installerActor(), StartServiceRequest{VehicleModel: "Civic"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Status != string(domain.StatusScheduled) || view.CustomerName != domain.WalkInCustomer || view.RegionID != "divinopolis" {
		t.Fatalf("unexpected ad-hoc appointment: %+v", view)
	}
	if view.InstallerID == nil || *view.InstallerID != f.installer.ID.String() {
		t.Fatalf("expected caller as installer, got %v", view.InstallerID)
	}

	_, err = f.svc.StartAdHocService(ctx, f.installerActor(), StartServiceRequest{RegionID: "sp"})
	assertIs(t, err, domain.ErrForbidden)

	f.ingest("bh", `{"id":"Q1"}`)
	mine, err := f.svc.ListAppointments(ctx, f.installerActor(), ListAppointmentsQuery{RegionID: "bh"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != view.ID {
		t.Fatalf("installer listing leaked other regions: %+v", mine)
	}

	all, err := f.svc.ListAppointments(ctx, adminActor(), ListAppointmentsQuery{Status: "pending"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ExternalID != "Q1" {
		t.Fatalf("unexpected admin listing: %+v", all)
	}

	bhAppt := f.appointmentByExternalID("Q1")
	_, err = f.svc.GetAppointment(ctx, f.installerActor(), bhAppt.ID)
	assertIs(t, err, domain.ErrNotFound)
}
