package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/shopspring/decimal"
)

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func TestCreateAccountScopes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	cashbox, err := f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Caixa BH", Kind: "caixa", RegionID: strPtr(" BH ")})
	if err != nil {
		t.Fatalf("create cashbox: %v", err)
	}
	if cashbox.Kind != string(domain.AccountKindCashbox) || cashbox.RegionID == nil || *cashbox.RegionID != "bh" {
		t.Fatalf("unexpected cashbox: %+v", cashbox)
	}

	bank, err := f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Bank savings", Kind: "bank", RegionID: strPtr("bh")})
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	if bank.RegionID != nil {
		t.Fatalf("bank accounts are global, got region %v", *bank.RegionID)
	}

	_, err = f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Loose cashbox", Kind: "cashbox"})
	assertIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Default cashbox", Kind: "cashbox", RegionID: strPtr("bh"), IsDefault: true})
	assertIs(t, err, domain.ErrInvalidInput)

	views, err := f.svc.ListAccounts(ctx, "bh")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, v := range views {
		if v.RegionID != nil && *v.RegionID != "bh" {
			t.Fatalf("listed another region's cashbox: %+v", v)
		}
	}
	if len(views) != 3 {
		t.Fatalf("expected two banks and the bh cashbox, got %d", len(views))
	}
}

func TestSetDefaultAccountMovesDefault(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	second, err := f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Bank two", Kind: "bank"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	secondID := parseTestUUID(t, second.ID)
	if _, err := f.svc.SetDefaultAccount(ctx, secondID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if f.account(f.bank.ID).IsDefault {
		t.Fatalf("previous default kept its flag")
	}
	if !f.account(secondID).IsDefault {
		t.Fatalf("new default not flagged")
	}

	_, err = f.svc.SetDefaultAccount(ctx, f.cashSP.ID)
	assertIs(t, err, domain.ErrInvalidInput)
}

func TestRecordExpenseDebitsAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.RecordExpense(ctx, adminActor(), RecordExpenseRequest{
		RegionID:    "sp",
		AccountID:   f.cashSP.ID.String(),
		Description: "Squeegee replacement",
		Amount:      "45,90",
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if view.Category != "general" {
		t.Fatalf("expected default category, got %q", view.Category)
	}
	assertMoney(t, f.account(f.cashSP.ID).Balance, "-45.90")
	if types := f.store.OutboxEventTypes(); !contains(types, eventExpenseRecorded) {
		t.Fatalf("expected expense event, got %v", types)
	}

	_, err = f.svc.RecordExpense(ctx, adminActor(), RecordExpenseRequest{
		RegionID:    "sp",
		AccountID:   f.cashSP.ID.String(),
		Description: "Nothing",
		Amount:      "0",
	})
	assertIs(t, err, domain.ErrInvalidAmount)
}

func TestTransferMovesMoney(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Transfer(ctx, TransferRequest{
		FromAccountID: f.bank.ID.String(),
		ToAccountID:   f.cashSP.ID.String(),
		Amount:        "300",
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	assertMoney(t, res.From.Balance, "-300.00")
	assertMoney(t, res.To.Balance, "300.00")
	if types := f.store.OutboxEventTypes(); len(types) != 1 || types[0] != eventTransferApplied {
		t.Fatalf("expected one transfer event, got %v", types)
	}

	_, err = f.svc.Transfer(ctx, TransferRequest{FromAccountID: f.bank.ID.String(), ToAccountID: f.bank.ID.String(), Amount: "1"})
	assertIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Transfer(ctx, TransferRequest{FromAccountID: f.bank.ID.String(), ToAccountID: uuid.NewString(), Amount: "5"})
	assertIs(t, err, domain.ErrNotFound)
	if len(f.store.OutboxEventTypes()) != 1 {
		t.Fatalf("failed transfer must not enqueue events")
	}
	if got := f.account(f.bank.ID); !got.Balance.Equal(decimal.RequireFromString("-300")) {
		t.Fatalf("failed transfer moved money: %s", got.Balance)
	}
}

func TestUpsertRateInvalidatesCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.ingest("divinopolis", `{"id":"R1"}`)
	f.ingest("divinopolis", `{"id":"R2"}`)
	first := f.appointmentByExternalID("R1")
	second := f.appointmentByExternalID("R2")

	res, err := f.svc.CompleteService(ctx, adminActor(), completion(first.ID, f.material.ID, "credit", "100", 3))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertMoney(t, res.Appointment.Settlement.NetAmount, "95.00")

	if _, err := f.svc.UpsertRate(ctx, UpsertRateRequest{Method: "credit", Installments: 3, FeePercent: "10"}); err != nil {
		t.Fatalf("upsert rate: %v", err)
	}
	res, err = f.svc.CompleteService(ctx, adminActor(), completion(second.ID, f.material.ID, "credit", "100", 3))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertMoney(t, res.Appointment.Settlement.NetAmount, "90.00")

	again, err := f.svc.GetAppointment(ctx, adminActor(), first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertMoney(t, again.Settlement.NetAmount, "95.00")

	_, err = f.svc.UpsertRate(ctx, UpsertRateRequest{Method: "pix", Installments: 1, FeePercent: "100"})
	assertIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.UpsertRate(ctx, UpsertRateRequest{Method: "debit", Installments: 2, FeePercent: "1"})
	assertIs(t, err, domain.ErrInvalidInstallmentPlan)
}

func TestAdjustInventory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AdjustInventory(ctx, f.material.ID, AdjustInventoryRequest{Delta: intPtr(10)})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if item.Quantity != 15 {
		t.Fatalf("expected 15, got %d", item.Quantity)
	}

	item, err = f.svc.AdjustInventory(ctx, f.material.ID, AdjustInventoryRequest{Quantity: intPtr(1), MinThreshold: intPtr(3)})
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if item.Quantity != 1 || item.MinThreshold != 3 || !item.LowStock {
		t.Fatalf("unexpected item: %+v", item)
	}

	_, err = f.svc.AdjustInventory(ctx, f.material.ID, AdjustInventoryRequest{Delta: intPtr(-2)})
	assertIs(t, err, domain.ErrInsufficientStock)

	_, err = f.svc.AdjustInventory(ctx, f.material.ID, AdjustInventoryRequest{Delta: intPtr(1), Quantity: intPtr(1)})
	assertIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.CreateInventoryItem(ctx, CreateInventoryItemRequest{RegionID: "divinopolis", Name: "matte black", Quantity: 1})
	assertIs(t, err, domain.ErrConflict)

	list, err := f.svc.ListInventory(ctx, "divinopolis")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one item, got %d", len(list))
	}
}

func TestDeleteAccountGuards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	spare, err := f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Spare", Kind: "cashbox", RegionID: strPtr("bh")})
	if err != nil {
		t.Fatalf("create spare: %v", err)
	}
	spareID := parseTestUUID(t, spare.ID)
	if err := f.svc.DeleteAccount(ctx, spareID); err != nil {
		t.Fatalf("delete empty account: %v", err)
	}
	assertIs(t, f.svc.DeleteAccount(ctx, spareID), domain.ErrNotFound)

	f.ingest("divinopolis", `{"id":"DEL1"}`)
	appt := f.appointmentByExternalID("DEL1")
	if _, err := f.svc.CompleteService(ctx, f.installerActor(), completion(appt.ID, f.material.ID, "pix", "40", 1)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertIs(t, f.svc.DeleteAccount(ctx, f.bank.ID), domain.ErrConflict)

	// Emptied but still referenced by an expense.
	cashbox, err := f.svc.CreateAccount(ctx, CreateAccountRequest{Name: "Caixa BH", Kind: "cashbox", RegionID: strPtr("bh")})
	if err != nil {
		t.Fatalf("create cashbox: %v", err)
	}
	if _, err := f.svc.RecordExpense(ctx, adminActor(), RecordExpenseRequest{RegionID: "bh", AccountID: cashbox.ID, Description: "Fuel", Amount: "15"}); err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if _, err := f.svc.Transfer(ctx, TransferRequest{FromAccountID: f.bank.ID.String(), ToAccountID: cashbox.ID, Amount: "15"}); err != nil {
		t.Fatalf("refill: %v", err)
	}
	cashboxID := parseTestUUID(t, cashbox.ID)
	if got := f.account(cashboxID); !got.Balance.IsZero() {
		t.Fatalf("expected emptied cashbox, got %s", got.Balance)
	}
	assertIs(t, f.svc.DeleteAccount(ctx, cashboxID), domain.ErrConflict)
	f.account(cashboxID)
}
