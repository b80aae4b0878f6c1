package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

func (s *Service) ListRegions(ctx context.Context) ([]RegionView, error) {
	regions, err := s.repos.Regions.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RegionView, 0, len(regions))
	for _, r := range regions {
		out = append(out, regionView(r))
	}
	return out, nil
}

func (s *Service) CreateRegion(ctx context.Context, req CreateRegionRequest) (RegionView, error) {
	id := strings.ToLower(strings.TrimSpace(req.ID))
	if err := domain.ValidateRegionID(id); err != nil {
		return RegionView{}, err
	}
	if err := domain.ValidateName("name", req.Name, 120); err != nil {
		return RegionView{}, err
	}
	region := domain.Region{ID: id, Name: strings.TrimSpace(req.Name), CreatedAt: s.nowFn()}
	if req.DefaultInstallerID != nil && strings.TrimSpace(*req.DefaultInstallerID) != "" {
		installerID, err := parseUUID("default_installer_id", *req.DefaultInstallerID)
		if err != nil {
			return RegionView{}, err
		}
		if _, err := s.repos.Installers.Get(ctx, installerID); err != nil {
			if isNotFound(err) {
				return RegionView{}, fmt.Errorf("%w: unknown installer %s", domain.ErrInvalidInput, installerID)
			}
			return RegionView{}, err
		}
		region.DefaultInstallerID = &installerID
	}
	if err := s.repos.Regions.Create(ctx, region); err != nil {
		return RegionView{}, err
	}
	return regionView(region), nil
}

// UpsertInstaller creates or replaces the commission profile of an installer.
// The id is the installer's user id, so tokens map onto profiles directly.
func (s *Service) UpsertInstaller(ctx context.Context, installerID uuid.UUID, req UpsertInstallerRequest) (InstallerView, error) {
	if err := domain.ValidateName("name", req.Name, 120); err != nil {
		return InstallerView{}, err
	}
	regionID := strings.ToLower(strings.TrimSpace(req.RegionID))
	if err := domain.ValidateRegionID(regionID); err != nil {
		return InstallerView{}, err
	}
	kind := domain.CommissionKind(strings.ToLower(strings.TrimSpace(req.CommissionKind)))
	value, err := domain.ParseAmount(req.CommissionValue)
	if err != nil {
		return InstallerView{}, err
	}
	if err := domain.ValidateCommission(kind, value); err != nil {
		return InstallerView{}, err
	}
	if _, err := s.repos.Regions.Get(ctx, regionID); err != nil {
		if isNotFound(err) {
			return InstallerView{}, fmt.Errorf("%w: unknown region %q", domain.ErrInvalidInput, regionID)
		}
		return InstallerView{}, err
	}
	installer := domain.Installer{
		ID:              installerID,
		Name:            strings.TrimSpace(req.Name),
		RegionID:        regionID,
		CommissionKind:  kind,
		CommissionValue: value,
		UpdatedAt:       s.nowFn(),
	}
	if err := s.repos.Installers.Upsert(ctx, installer); err != nil {
		return InstallerView{}, err
	}
	return installerView(installer), nil
}

func (s *Service) ListRates(ctx context.Context) ([]RateView, error) {
	entries, err := s.repos.Rates.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RateView, 0, len(entries))
	for _, e := range entries {
		out = append(out, RateView{Method: string(e.Method), Installments: e.Installments, FeePercent: e.FeePercent})
	}
	return out, nil
}

// UpsertRate changes one fee. Settlements already frozen on appointments
// keep the fee they were computed with.
func (s *Service) UpsertRate(ctx context.Context, req UpsertRateRequest) (RateView, error) {
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		return RateView{}, err
	}
	fee, err := domain.ParseAmount(req.FeePercent)
	if err != nil {
		return RateView{}, err
	}
	entry := domain.RateEntry{
		Method:       method,
		Installments: req.Installments,
		FeePercent:   fee,
		UpdatedAt:    s.nowFn(),
	}
	if entry.Installments == 0 {
		entry.Installments = 1
	}
	if err := domain.ValidateRateEntry(entry); err != nil {
		return RateView{}, err
	}
	if err := s.repos.Rates.Upsert(ctx, entry); err != nil {
		return RateView{}, err
	}
	s.invalidateRateTable(ctx)
	logInfo(ctx, "upsert_rate", "rate updated",
		"payment_method", string(method),
		"installments", entry.Installments,
		"fee_percent", fee.String(),
	)
	return RateView{Method: string(method), Installments: entry.Installments, FeePercent: fee}, nil
}

func (s *Service) ListInventory(ctx context.Context, regionID string) ([]InventoryItemView, error) {
	items, err := s.repos.Inventory.List(ctx, strings.ToLower(strings.TrimSpace(regionID)))
	if err != nil {
		return nil, err
	}
	out := make([]InventoryItemView, 0, len(items))
	for _, item := range items {
		out = append(out, inventoryView(item))
	}
	return out, nil
}

func (s *Service) CreateInventoryItem(ctx context.Context, req CreateInventoryItemRequest) (InventoryItemView, error) {
	item := domain.InventoryItem{
		ID:           uuid.New(),
		RegionID:     strings.ToLower(strings.TrimSpace(req.RegionID)),
		Name:         strings.TrimSpace(req.Name),
		Quantity:     req.Quantity,
		MinThreshold: req.MinThreshold,
		UpdatedAt:    s.nowFn(),
	}
	if err := domain.ValidateInventoryItem(item); err != nil {
		return InventoryItemView{}, err
	}
	if _, err := s.repos.Regions.Get(ctx, item.RegionID); err != nil {
		if isNotFound(err) {
			return InventoryItemView{}, fmt.Errorf("%w: unknown region %q", domain.ErrInvalidInput, item.RegionID)
		}
		return InventoryItemView{}, err
	}
	if err := s.repos.Inventory.Create(ctx, item); err != nil {
		return InventoryItemView{}, err
	}
	return inventoryView(item), nil
}

// AdjustInventory applies either a relative delta or an absolute quantity.
func (s *Service) AdjustInventory(ctx context.Context, itemID uuid.UUID, req AdjustInventoryRequest) (InventoryItemView, error) {
	if req.Delta != nil && req.Quantity != nil {
		return InventoryItemView{}, fmt.Errorf("%w: provide delta or quantity, not both", domain.ErrInvalidInput)
	}
	if req.Delta == nil && req.Quantity == nil && req.MinThreshold == nil {
		return InventoryItemView{}, fmt.Errorf("%w: nothing to adjust", domain.ErrInvalidInput)
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return InventoryItemView{}, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidInput)
	}
	if req.MinThreshold != nil && *req.MinThreshold < 0 {
		return InventoryItemView{}, fmt.Errorf("%w: min threshold cannot be negative", domain.ErrInvalidInput)
	}

	var out domain.InventoryItem
	err := s.tx.InTx(ctx, func(tx ports.Repositories) error {
		current, err := tx.Inventory.Get(ctx, itemID)
		if err != nil {
			return err
		}
		out = current
		if req.Delta != nil {
			if out, err = tx.Inventory.Adjust(ctx, itemID, *req.Delta); err != nil {
				return err
			}
		}
		if req.Quantity != nil || req.MinThreshold != nil {
			quantity := out.Quantity
			if req.Quantity != nil {
				quantity = *req.Quantity
			}
			if out, err = tx.Inventory.SetQuantity(ctx, itemID, quantity, req.MinThreshold); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return InventoryItemView{}, err
	}
	logInfo(ctx, "adjust_inventory", "inventory adjusted",
		"material_id", itemID.String(),
		"region_id", out.RegionID,
		"quantity", out.Quantity,
	)
	return inventoryView(out), nil
}
