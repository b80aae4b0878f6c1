package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCalculateSettlementCreditInstallments(t *testing.T) {
	t.Parallel()

	rates := domain.NewRateTable([]domain.RateEntry{
		{Method: domain.MethodCredit, Installments: 3, FeePercent: decimal.NewFromInt(5)},
	})
	got, err := domain.CalculateSettlement(decimal.NewFromInt(100), domain.MethodCredit, 3, rates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NetAmount.Equal(decimal.RequireFromString("95.00")) {
		t.Fatalf("expected net 95.00, got %s", got.NetAmount)
	}
	if !got.FeePercent.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected fee 5, got %s", got.FeePercent)
	}
}

func TestCalculateSettlementMissingRateMeansNoFee(t *testing.T) {
	t.Parallel()

	got, err := domain.CalculateSettlement(decimal.RequireFromString("250.40"), domain.MethodPix, 1, domain.RateTable{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NetAmount.Equal(decimal.RequireFromString("250.40")) || !got.FeePercent.IsZero() {
		t.Fatalf("expected untouched gross, got net=%s fee=%s", got.NetAmount, got.FeePercent)
	}
}

func TestCalculateSettlementRoundsHalfUpOnce(t *testing.T) {
	t.Parallel()

	rates := domain.NewRateTable([]domain.RateEntry{
		{Method: domain.MethodDebit, Installments: 1, FeePercent: decimal.RequireFromString("1.99")},
	})
	// 150 * 1.99% = 2.985, net 147.015 rounds to 147.02.
	got, err := domain.CalculateSettlement(decimal.NewFromInt(150), domain.MethodDebit, 1, rates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NetAmount.Equal(decimal.RequireFromString("147.02")) {
		t.Fatalf("expected 147.02, got %s", got.NetAmount)
	}
}

func TestCalculateSettlementNetNeverExceedsGross(t *testing.T) {
	t.Parallel()

	fees := []string{"0", "0.5", "2.49", "4.99", "13.7", "49.999", "99.99"}
	grosses := []string{"0.01", "1", "19.90", "100", "350.55", "9999.99"}
	for _, f := range fees {
		rates := domain.NewRateTable([]domain.RateEntry{
			{Method: domain.MethodCredit, Installments: 2, FeePercent: decimal.RequireFromString(f)},
		})
		for _, g := range grosses {
			gross := decimal.RequireFromString(g)
			got, err := domain.CalculateSettlement(gross, domain.MethodCredit, 2, rates)
			if err != nil {
				t.Fatalf("fee=%s gross=%s: unexpected error %v", f, g, err)
			}
			fee := decimal.RequireFromString(f)
			want := gross.Sub(gross.Mul(fee).Div(decimal.NewFromInt(100))).Round(2)
			if !got.NetAmount.Equal(want) {
				t.Fatalf("fee=%s gross=%s: expected %s, got %s", f, g, want, got.NetAmount)
			}
			if got.NetAmount.GreaterThan(gross) {
				t.Fatalf("fee=%s gross=%s: net %s exceeds gross", f, g, got.NetAmount)
			}
		}
	}
}

func TestCalculateSettlementRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := domain.CalculateSettlement(decimal.Zero, domain.MethodCash, 1, nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := domain.CalculateSettlement(decimal.NewFromInt(-10), domain.MethodCash, 1, nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for negative gross, got %v", err)
	}
	if _, err := domain.CalculateSettlement(decimal.NewFromInt(10), domain.MethodPix, 2, nil); !errors.Is(err, domain.ErrInvalidInstallmentPlan) {
		t.Fatalf("expected invalid installment plan, got %v", err)
	}
	if _, err := domain.CalculateSettlement(decimal.NewFromInt(10), domain.MethodCredit, 0, nil); !errors.Is(err, domain.ErrInvalidInstallmentPlan) {
		t.Fatalf("expected invalid installment plan for zero installments, got %v", err)
	}
	if !errors.Is(domain.ErrInvalidAmount, domain.ErrInvalidInput) {
		t.Fatalf("invalid amount must be a validation error")
	}
}

func TestParsePaymentMethodAliases(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.PaymentMethod{
		"cash":     domain.MethodCash,
		"Dinheiro": domain.MethodCash,
		"PIX":      domain.MethodPix,
		"débito":   domain.MethodDebit,
		"Crédito":  domain.MethodCredit,
	}
	for raw, want := range cases {
		got, err := domain.ParsePaymentMethod(raw)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", raw, want, got, err)
		}
	}
	if _, err := domain.ParsePaymentMethod("boleto"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unknown method to fail, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"350":      "350",
		"350.90":   "350.9",
		"99,90":    "99.9",
		"1.250,00": "1250",
		"R$ 80,5":  "80.5",
	}
	for raw, want := range cases {
		got, err := domain.ParseAmount(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", raw, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := domain.ParseAmount("abc"); err == nil {
		t.Fatalf("expected non-numeric amount to fail")
	}
}

func TestCalculateCommission(t *testing.T) {
	t.Parallel()

	s := domain.Settlement{GrossAmount: decimal.NewFromInt(200), NetAmount: decimal.NewFromInt(190)}
	percent := &domain.Installer{ID: uuid.New(), CommissionKind: domain.CommissionPercent, CommissionValue: decimal.NewFromInt(10)}
	fixed := &domain.Installer{ID: uuid.New(), CommissionKind: domain.CommissionFixed, CommissionValue: decimal.NewFromInt(35)}

	if got := domain.CalculateCommission(s, percent, domain.CommissionBaseNet); !got.Equal(decimal.NewFromInt(19)) {
		t.Fatalf("expected 19 on net base, got %s", got)
	}
	if got := domain.CalculateCommission(s, percent, domain.CommissionBaseGross); !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20 on gross base, got %s", got)
	}
	if got := domain.CalculateCommission(s, fixed, domain.CommissionBaseNet); !got.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected fixed 35, got %s", got)
	}
	if got := domain.CalculateCommission(s, nil, domain.CommissionBaseNet); !got.IsZero() {
		t.Fatalf("expected zero without installer, got %s", got)
	}
	negative := &domain.Installer{CommissionKind: domain.CommissionFixed, CommissionValue: decimal.NewFromInt(-5)}
	if got := domain.CalculateCommission(s, negative, domain.CommissionBaseNet); !got.IsZero() {
		t.Fatalf("expected negative commission clamped to zero, got %s", got)
	}
}
