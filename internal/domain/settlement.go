package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodPix    PaymentMethod = "pix"
	MethodDebit  PaymentMethod = "debit"
	MethodCredit PaymentMethod = "credit"
)

var paymentMethodAliases = map[string]PaymentMethod{
	"cash":     MethodCash,
	"dinheiro": MethodCash,
	"pix":      MethodPix,
	"debit":    MethodDebit,
	"debito":   MethodDebit,
	"credit":   MethodCredit,
	"credito":  MethodCredit,
}

// ParsePaymentMethod accepts the canonical names and the field app's
// Portuguese labels, ignoring case and accents.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	key := FoldKey(raw)
	if key == "" {
		return "", fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	}
	method, ok := paymentMethodAliases[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, raw)
	}
	return method, nil
}

var hundred = decimal.NewFromInt(100)

type RateKey struct {
	Method       PaymentMethod
	Installments int
}

// RateTable maps (method, installments) to a fee percent.
type RateTable map[RateKey]decimal.Decimal

func NewRateTable(entries []RateEntry) RateTable {
	table := make(RateTable, len(entries))
	for _, e := range entries {
		table[RateKey{Method: e.Method, Installments: e.Installments}] = e.FeePercent
	}
	return table
}

// FeeFor returns zero when no entry exists for the pair.
func (t RateTable) FeeFor(method PaymentMethod, installments int) decimal.Decimal {
	if fee, ok := t[RateKey{Method: method, Installments: installments}]; ok {
		return fee
	}
	return decimal.Zero
}

type Settlement struct {
	GrossAmount  decimal.Decimal
	NetAmount    decimal.Decimal
	FeePercent   decimal.Decimal
	Method       PaymentMethod
	Installments int
}

func CalculateSettlement(gross decimal.Decimal, method PaymentMethod, installments int, rates RateTable) (Settlement, error) {
	if !gross.IsPositive() {
		return Settlement{}, ErrInvalidAmount
	}
	if installments < 1 {
		return Settlement{}, fmt.Errorf("%w: installments must be at least one", ErrInvalidInstallmentPlan)
	}
	if installments > 1 && method != MethodCredit {
		return Settlement{}, ErrInvalidInstallmentPlan
	}
	fee := rates.FeeFor(method, installments)
	net := gross.Sub(gross.Mul(fee).Div(hundred)).Round(2)
	return Settlement{
		GrossAmount:  gross,
		NetAmount:    net,
		FeePercent:   fee,
		Method:       method,
		Installments: installments,
	}, nil
}

// ParseAmount reads operator input such as "350", "350.90", "1.250,00" or "R$ 99,90".
func ParseAmount(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimSpace(strings.TrimPrefix(value, "R$"))
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	if strings.Contains(value, ",") {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, raw)
	}
	return amount, nil
}
