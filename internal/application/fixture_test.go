package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/adapters/cache"
	"github.com/playnatela/volante-express/internal/adapters/memory"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"github.com/shopspring/decimal"
)

type fakeEvidence struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failPut error
}

func newFakeEvidence() *fakeEvidence {
	return &fakeEvidence{objects: map[string][]byte{}}
}

func (f *fakeEvidence) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if f.failPut != nil {
		return "", f.failPut
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return "https://evidence.test/" + key, nil
}

func (f *fakeEvidence) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeEvidence) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// failingTx runs nothing and fails every transaction.
type failingTx struct{ err error }

func (f failingTx) InTx(context.Context, func(ports.Repositories) error) error { return f.err }

type fixture struct {
	t         *testing.T
	store     *memory.Store
	cache     *cache.MemoryCache
	evidence  *fakeEvidence
	svc       *Service
	installer domain.Installer
	bank      domain.Account
	cashSP    domain.Account
	material  domain.InventoryItem
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, true)
}

// newFixtureWithoutAccounts seeds everything except ledger accounts.
func newFixtureWithoutAccounts(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, false)
}

func buildFixture(t *testing.T, withAccounts bool) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		store:    memory.NewStore(),
		cache:    cache.NewMemoryCache(),
		evidence: newFakeEvidence(),
		now:      time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Dependencies{
		Repositories: f.store.Repositories(),
		Tx:           f.store,
		Cache:        f.cache,
		Evidence:     f.evidence,
	})
	f.svc.nowFn = func() time.Time { return f.now }

	ctx := context.Background()
	repos := f.store.Repositories()
	f.installer = domain.Installer{
		ID:              uuid.New(),
		Name:            "Carlos",
		RegionID:        "divinopolis",
		CommissionKind:  domain.CommissionPercent,
		CommissionValue: decimal.NewFromInt(10),
	}
	must(t, repos.Installers.Upsert(ctx, f.installer))
	installerID := f.installer.ID
	for _, r := range []domain.Region{
		{ID: "divinopolis", Name: "Divinópolis", DefaultInstallerID: &installerID},
		{ID: "bh", Name: "Belo Horizonte"},
		{ID: "sp", Name: "São Paulo"},
	} {
		must(t, repos.Regions.Create(ctx, r))
	}

	if withAccounts {
		sp := "sp"
		f.bank = domain.Account{ID: uuid.New(), Name: "Bank main", Kind: domain.AccountKindBank, IsDefault: true}
		f.cashSP = domain.Account{ID: uuid.New(), Name: "Cashbox SP", Kind: domain.AccountKindCashbox, RegionID: &sp}
		must(t, repos.Accounts.Create(ctx, f.bank))
		must(t, repos.Accounts.Create(ctx, f.cashSP))
	}

	must(t, repos.Rates.Upsert(ctx, domain.RateEntry{Method: domain.MethodCredit, Installments: 3, FeePercent: decimal.NewFromInt(5)}))
	must(t, repos.Rates.Upsert(ctx, domain.RateEntry{Method: domain.MethodPix, Installments: 1, FeePercent: decimal.Zero}))

	f.material = domain.InventoryItem{ID: uuid.New(), RegionID: "divinopolis", Name: "Matte black", Quantity: 5, MinThreshold: 2}
	must(t, repos.Inventory.Create(ctx, f.material))
	return f
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
}

func (f *fixture) ingest(region, body string) WebhookResult {
	f.t.Helper()
	res, err := f.svc.IngestWebhook(context.Background(), WebhookRequest{Source: "ghl", RegionID: region, Body: []byte(body)})
	if err != nil {
		f.t.Fatalf("ingest webhook: %v", err)
	}
	return res
}

func (f *fixture) appointmentByExternalID(externalID string) domain.Appointment {
	f.t.Helper()
	var out domain.Appointment
	err := f.store.InTx(context.Background(), func(tx ports.Repositories) error {
		var err error
		out, err = tx.Appointments.FindByExternalIDForUpdate(context.Background(), "ghl", externalID)
		return err
	})
	if err != nil {
		f.t.Fatalf("find appointment %s: %v", externalID, err)
	}
	return out
}

func (f *fixture) account(id uuid.UUID) domain.Account {
	f.t.Helper()
	acc, err := f.store.Repositories().Accounts.Get(context.Background(), id)
	if err != nil {
		f.t.Fatalf("get account: %v", err)
	}
	return acc
}

func (f *fixture) stock(id uuid.UUID) int {
	f.t.Helper()
	item, err := f.store.Repositories().Inventory.Get(context.Background(), id)
	if err != nil {
		f.t.Fatalf("get item: %v", err)
	}
	return item.Quantity
}

func (f *fixture) installerActor() Actor {
	return Actor{UserID: f.installer.ID, Role: domain.RoleInstaller, RegionID: "divinopolis"}
}

func adminActor() Actor {
	return Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
}

func completion(apptID, materialID uuid.UUID, method, gross string, installments int) CompleteServiceRequest {
	return CompleteServiceRequest{
		AppointmentID:    apptID,
		MaterialID:       materialID.String(),
		PaymentMethod:    method,
		InstallmentCount: installments,
		GrossAmount:      gross,
		Evidence: &EvidenceUpload{
			FileName:    "after.jpg",
			ContentType: "image/jpeg",
			Body:        bytes.NewReader([]byte("jpeg-bytes")),
		},
	}
}

func assertIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func assertMoney(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Fatalf("expected %s, got %s", want, got.StringFixed(2))
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func parseTestUUID(t *testing.T, raw string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(raw)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", raw, err)
	}
	return id
}
