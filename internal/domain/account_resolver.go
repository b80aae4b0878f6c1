package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

type AccountResolution struct {
	AccountID uuid.UUID
	Kind      AccountKind
	// Fallback is set when the preferred account was missing and another
	// account of the same kind was chosen instead.
	Fallback bool
}

// ResolveAccount picks the settlement destination: the region's cashbox for
// cash, the default bank account otherwise, with a same-kind fallback.
func ResolveAccount(method PaymentMethod, regionID string, accounts []Account) (AccountResolution, error) {
	candidates := make([]Account, len(accounts))
	copy(candidates, accounts)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Name != candidates[j].Name {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	if method == MethodCash {
		var fallback *Account
		for i := range candidates {
			acc := candidates[i]
			if acc.Kind != AccountKindCashbox {
				continue
			}
			if acc.RegionID != nil && *acc.RegionID == regionID {
				return AccountResolution{AccountID: acc.ID, Kind: acc.Kind}, nil
			}
			if fallback == nil {
				fallback = &candidates[i]
			}
		}
		if fallback != nil {
			return AccountResolution{AccountID: fallback.ID, Kind: fallback.Kind, Fallback: true}, nil
		}
		return AccountResolution{}, ErrNoAccountAvailable
	}

	var fallback *Account
	for i := range candidates {
		acc := candidates[i]
		if acc.Kind != AccountKindBank {
			continue
		}
		if acc.IsDefault {
			return AccountResolution{AccountID: acc.ID, Kind: acc.Kind}, nil
		}
		if fallback == nil {
			fallback = &candidates[i]
		}
	}
	if fallback != nil {
		return AccountResolution{AccountID: fallback.ID, Kind: fallback.Kind, Fallback: true}, nil
	}
	return AccountResolution{}, ErrNoAccountAvailable
}

var accountKindAliases = map[string]AccountKind{
	"bank":     AccountKindBank,
	"banco":    AccountKindBank,
	"cashbox":  AccountKindCashbox,
	"carteira": AccountKindCashbox,
	"caixa":    AccountKindCashbox,
}

func ParseAccountKind(raw string) (AccountKind, error) {
	kind, ok := accountKindAliases[FoldKey(raw)]
	if !ok {
		return "", fmt.Errorf("%w: unknown account kind %q", ErrInvalidInput, raw)
	}
	return kind, nil
}

// ValidateAccountScope enforces that cashboxes carry a region and banks do not.
func ValidateAccountScope(kind AccountKind, regionID *string) error {
	switch kind {
	case AccountKindCashbox:
		if regionID == nil || strings.TrimSpace(*regionID) == "" {
			return fmt.Errorf("%w: cashbox account requires a region", ErrInvalidInput)
		}
	case AccountKindBank:
		if regionID != nil {
			return fmt.Errorf("%w: bank accounts are global", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown account kind %q", ErrInvalidInput, kind)
	}
	return nil
}
