package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	regionSlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)
	sourcePattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)
)

func ValidateRegionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingRegion
	}
	if !regionSlugPattern.MatchString(id) {
		return fmt.Errorf("%w: region must be a lowercase slug", ErrInvalidInput)
	}
	return nil
}

func ValidateSource(source string) error {
	if !sourcePattern.MatchString(source) {
		return fmt.Errorf("%w: invalid webhook source %q", ErrInvalidInput, source)
	}
	return nil
}

func ValidateName(field, value string, maxLen int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if len([]rune(trimmed)) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, maxLen)
	}
	return nil
}

// ValidateFeePercent enforces fee ∈ [0, 100).
func ValidateFeePercent(fee decimal.Decimal) error {
	if fee.IsNegative() || fee.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: fee percent must be at least 0 and below 100", ErrInvalidInput)
	}
	return nil
}

func ValidateRateEntry(e RateEntry) error {
	switch e.Method {
	case MethodCash, MethodPix, MethodDebit, MethodCredit:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, e.Method)
	}
	if e.Installments < 1 {
		return fmt.Errorf("%w: installments must be at least one", ErrInvalidInstallmentPlan)
	}
	if e.Installments > 1 && e.Method != MethodCredit {
		return ErrInvalidInstallmentPlan
	}
	return ValidateFeePercent(e.FeePercent)
}

func ValidateInventoryItem(item InventoryItem) error {
	if err := ValidateRegionID(item.RegionID); err != nil {
		return err
	}
	if err := ValidateName("name", item.Name, 120); err != nil {
		return err
	}
	if item.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	if item.MinThreshold < 0 {
		return fmt.Errorf("%w: min threshold cannot be negative", ErrInvalidInput)
	}
	return nil
}

// MissingCompletionFields lists the required completion inputs that are absent.
func MissingCompletionFields(materialID, paymentMethod, grossAmount string, hasEvidence bool) []string {
	var missing []string
	if strings.TrimSpace(materialID) == "" {
		missing = append(missing, "material_id")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		missing = append(missing, "payment_method")
	}
	if strings.TrimSpace(grossAmount) == "" {
		missing = append(missing, "gross_amount")
	}
	if !hasEvidence {
		missing = append(missing, "evidence")
	}
	return missing
}

func IncompleteSubmission(missing []string) error {
	return fmt.Errorf("%w: missing %s", ErrIncompleteSubmission, strings.Join(missing, ", "))
}
