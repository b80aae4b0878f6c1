package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/adapters/cache"
	"github.com/playnatela/volante-express/internal/adapters/memory"
	"github.com/playnatela/volante-express/internal/adapters/security"
	"github.com/playnatela/volante-express/internal/application"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"github.com/shopspring/decimal"
)

const (
	testJWTSecret     = "router-test-secret-0123456789"
	testWebhookSecret = "hook-secret"
)

type discardEvidence struct{}

func (discardEvidence) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	_, err := io.Copy(io.Discard, body)
	return "https://evidence.test/" + key, err
}

func (discardEvidence) Delete(context.Context, string) error { return nil }

type routerFixture struct {
	t           *testing.T
	server      http.Handler
	verifier    *security.JWTVerifier
	installerID uuid.UUID
	materialID  uuid.UUID
}

func newRouterFixture(t *testing.T, readiness ...ReadinessCheck) *routerFixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	repos := store.Repositories()

	installer := domain.Installer{
		ID:              uuid.New(),
		Name:            "Carlos",
		RegionID:        "divinopolis",
		CommissionKind:  domain.CommissionPercent,
		CommissionValue: decimal.NewFromInt(10),
	}
	material := domain.InventoryItem{ID: uuid.New(), RegionID: "divinopolis", Name: "Matte black", Quantity: 3, MinThreshold: 1}
	seed := []error{
		repos.Installers.Upsert(ctx, installer),
		repos.Regions.Create(ctx, domain.Region{ID: "divinopolis", Name: "Divinópolis", DefaultInstallerID: &installer.ID}),
		repos.Accounts.Create(ctx, domain.Account{ID: uuid.New(), Name: "Bank main", Kind: domain.AccountKindBank, IsDefault: true}),
		repos.Rates.Upsert(ctx, domain.RateEntry{Method: domain.MethodPix, Installments: 1, FeePercent: decimal.Zero}),
		repos.Inventory.Create(ctx, material),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	verifier, err := security.NewJWTVerifier(testJWTSecret, "")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	svc := application.NewService(application.Dependencies{
		Repositories: repos,
		Tx:           store,
		Cache:        cache.NewMemoryCache(),
		Evidence:     discardEvidence{},
	})
	handler := NewHandler(svc, verifier, Options{
		WebhookSecret: testWebhookSecret,
		MaxBodyBytes:  4 << 10,
		Readiness:     readiness,
	})
	return &routerFixture{
		t:           t,
		server:      NewRouter(handler),
		verifier:    verifier,
		installerID: installer.ID,
		materialID:  material.ID,
	}
}

func (f *routerFixture) token(role string, userID uuid.UUID, region string) string {
	f.t.Helper()
	raw, err := f.verifier.Sign(ports.AuthClaims{UserID: userID, Role: role, RegionID: region, ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		f.t.Fatalf("sign: %v", err)
	}
	return raw
}

func (f *routerFixture) installerToken() string {
	return f.token(domain.RoleInstaller, f.installerID, "divinopolis")
}

func (f *routerFixture) adminToken() string {
	return f.token(domain.RoleAdmin, uuid.New(), "")
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return f.do(req)
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	return env
}

func completionForm(t *testing.T, fields map[string]string, withEvidence bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if withEvidence {
		part, err := mw.CreateFormFile("evidence", "after.jpg")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write([]byte("jpeg-bytes"))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("down") }})

	if rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	rec := f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected readyz 503, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Code != "NOT_READY" {
		t.Fatalf("unexpected readiness code %q", env.Code)
	}
}

func TestWebhookRoute(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t)
	body := `{"calendar":{"appointmentId":"A9","startTime":"2026-02-01T11:00:00"},"contact":{"name":"Ana"}}`

	unauth := httptest.NewRequest(http.MethodPost, "/webhooks/ghl?region=divinopolis", strings.NewReader(body))
	if rec := f.do(unauth); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	ok := httptest.NewRequest(http.MethodPost, "/webhooks/ghl?region=divinopolis", strings.NewReader(body))
	ok.Header.Set("X-Webhook-Token", testWebhookSecret)
	rec := f.do(ok)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var res application.WebhookResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode webhook result: %v", err)
	}
	if res.ID != "A9" || res.Region != "divinopolis" || res.Status != "pending" {
		t.Fatalf("unexpected webhook result: %+v", res)
	}
	if res.Message != "appointment received" {
		t.Fatalf("unexpected webhook message %q", res.Message)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store on webhook reply, got %q", got)
	}

	missingRegion := httptest.NewRequest(http.MethodPost, "/webhooks/ghl?token="+testWebhookSecret, strings.NewReader(body))
	rec = f.do(missingRegion)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing region, got %d", rec.Code)
	}
	var failure map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil || failure["error"] == "" {
		t.Fatalf("expected flat error body, got %s", rec.Body.String())
	}

	huge := httptest.NewRequest(http.MethodPost, "/webhooks/ghl?region=divinopolis&token="+testWebhookSecret, strings.NewReader(strings.Repeat("x", 8<<10)))
	if rec := f.do(huge); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized body, got %d", rec.Code)
	}
}

func TestAuthAndRoleGuards(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t)

	if rec := f.doJSON(http.MethodGet, "/v1/appointments", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", rec.Code)
	}
	if rec := f.doJSON(http.MethodGet, "/v1/appointments", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}
	rec := f.doJSON(http.MethodGet, "/v1/admin/accounts", f.installerToken(), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for installer on admin route, got %d", rec.Code)
	}
	if rec := f.doJSON(http.MethodGet, "/v1/admin/accounts", f.adminToken(), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestStartAndCompleteAppointment(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t)
	token := f.installerToken()

	rec := f.doJSON(http.MethodPost, "/v1/appointments", token, map[string]string{"customer_name": "Bruno"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var started application.AppointmentView
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &started); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}

	path := "/v1/appointments/" + started.ID + "/complete"
	incomplete, ctype := completionForm(t, map[string]string{"payment_method": "pix"}, false)
	req := httptest.NewRequest(http.MethodPost, path, incomplete)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = f.do(req)
	if rec.Code != http.StatusBadRequest || decodeEnvelope(t, rec).Code != "INCOMPLETE_SUBMISSION" {
		t.Fatalf("expected incomplete submission, got %d %s", rec.Code, rec.Body.String())
	}

	fields := map[string]string{
		"material_id":    f.materialID.String(),
		"payment_method": "pix",
		"gross_amount":   "150,00",
	}
	form, ctype := completionForm(t, fields, true)
	req = httptest.NewRequest(http.MethodPost, path, form)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var result application.CompletionResult
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &result); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	if result.Appointment.Status != "completed" || result.MaterialLeft != 2 {
		t.Fatalf("unexpected completion: %+v", result)
	}
	if result.Appointment.Settlement == nil || !result.Appointment.Settlement.NetAmount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected settlement: %+v", result.Appointment.Settlement)
	}

	again, ctype := completionForm(t, fields, true)
	req = httptest.NewRequest(http.MethodPost, path, again)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = f.do(req)
	if rec.Code != http.StatusConflict || decodeEnvelope(t, rec).Code != "INVALID_TRANSITION" {
		t.Fatalf("expected 409 INVALID_TRANSITION, got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.doJSON(http.MethodGet, "/v1/me/commission/today", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for today commission, got %d", rec.Code)
	}
}

func TestAdminMutationsMapErrors(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t)
	token := f.adminToken()

	rec := f.doJSON(http.MethodPatch, "/v1/admin/inventory/"+f.materialID.String(), token, map[string]int{"delta": -10})
	if rec.Code != http.StatusConflict || decodeEnvelope(t, rec).Code != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.doJSON(http.MethodPut, "/v1/admin/rates", token, map[string]any{"method": "debit", "installments": 2, "fee_percent": "2"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid plan, got %d", rec.Code)
	}

	rec = f.doJSON(http.MethodPost, "/v1/admin/regions", token, map[string]string{"id": "bh", "name": "Belo Horizonte", "unexpected": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown fields to be rejected, got %d", rec.Code)
	}

	rec = f.doJSON(http.MethodGet, "/v1/admin/inventory/not-a-uuid", token, nil)
	if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusNotFound {
		t.Fatalf("expected routing miss, got %d", rec.Code)
	}

	rec = f.doJSON(http.MethodDelete, "/v1/admin/accounts/"+uuid.NewString(), token, nil)
	if rec.Code != http.StatusNotFound || decodeEnvelope(t, rec).Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND deleting unknown account, got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.doJSON(http.MethodGet, "/v1/admin/reports/dashboard?region=divinopolis&month=2026-02", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected dashboard 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAdminRegionAndInstallerSetup(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t)
	token := f.adminToken()

	rec := f.doJSON(http.MethodPost, "/v1/admin/regions", token, map[string]string{"id": "bh", "name": "Belo Horizonte"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = f.doJSON(http.MethodPost, "/v1/admin/regions", token, map[string]string{"id": "bh", "name": "Belo Horizonte"})
	if rec.Code != http.StatusConflict || decodeEnvelope(t, rec).Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT for duplicate region, got %d %s", rec.Code, rec.Body.String())
	}

	installerID := uuid.New()
	path := "/v1/admin/installers/" + installerID.String()
	rec = f.doJSON(http.MethodPut, path, token, map[string]string{
		"name": "Rafa", "region_id": "bh", "commission_kind": "percent", "commission_value": "12",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var installer application.InstallerView
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &installer); err != nil {
		t.Fatalf("decode installer: %v", err)
	}
	if installer.ID != installerID.String() || installer.RegionID != "bh" || installer.CommissionKind != "percent" {
		t.Fatalf("unexpected installer %+v", installer)
	}

	rec = f.doJSON(http.MethodPut, path, token, map[string]string{
		"name": "Rafa", "region_id": "nowhere", "commission_kind": "percent", "commission_value": "12",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown region, got %d", rec.Code)
	}

	rec = f.doJSON(http.MethodGet, "/v1/admin/regions", f.installerToken(), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected installer to be forbidden, got %d", rec.Code)
	}
}
