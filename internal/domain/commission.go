package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type CommissionKind string

const (
	CommissionFixed   CommissionKind = "fixed"
	CommissionPercent CommissionKind = "percent"
)

// CommissionBase selects which settlement amount a percent commission applies to.
type CommissionBase string

const (
	CommissionBaseNet   CommissionBase = "net"
	CommissionBaseGross CommissionBase = "gross"
)

func ParseCommissionBase(raw string) CommissionBase {
	if strings.EqualFold(strings.TrimSpace(raw), string(CommissionBaseGross)) {
		return CommissionBaseGross
	}
	return CommissionBaseNet
}

// CalculateCommission never returns a negative amount and returns zero when
// no installer is attached. The result is a payable; balances are untouched.
func CalculateCommission(s Settlement, installer *Installer, base CommissionBase) decimal.Decimal {
	if installer == nil {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch installer.CommissionKind {
	case CommissionFixed:
		amount = installer.CommissionValue
	case CommissionPercent:
		basis := s.NetAmount
		if base == CommissionBaseGross {
			basis = s.GrossAmount
		}
		amount = basis.Mul(installer.CommissionValue).Div(hundred)
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

func ValidateCommission(kind CommissionKind, value decimal.Decimal) error {
	switch kind {
	case CommissionFixed:
		if value.IsNegative() {
			return fmt.Errorf("%w: fixed commission cannot be negative", ErrInvalidInput)
		}
	case CommissionPercent:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return fmt.Errorf("%w: commission percent must be between 0 and 100", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown commission kind %q", ErrInvalidInput, kind)
	}
	return nil
}
