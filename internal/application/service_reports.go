package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
	"github.com/shopspring/decimal"
)

const unknownInstallerName = "unknown"

// Dashboard aggregates one region's completed services and expenses for a
// month. An empty month means the current one in the business time zone.
func (s *Service) Dashboard(ctx context.Context, q DashboardQuery) (Dashboard, error) {
	regionID := strings.ToLower(strings.TrimSpace(q.RegionID))
	if err := domain.ValidateRegionID(regionID); err != nil {
		return Dashboard{}, err
	}
	month, from, to, err := s.monthWindow(q.Month)
	if err != nil {
		return Dashboard{}, err
	}
	completed, err := s.completedIn(ctx, regionID, nil, from, to)
	if err != nil {
		return Dashboard{}, err
	}
	expenses, err := s.repos.Expenses.List(ctx, ports.ExpenseFilter{RegionID: regionID, From: &from, To: &to})
	if err != nil {
		return Dashboard{}, err
	}

	out := Dashboard{
		RegionID:        regionID,
		Month:           month,
		GrossTotal:      decimal.Zero,
		NetTotal:        decimal.Zero,
		ExpenseTotal:    decimal.Zero,
		CommissionTotal: decimal.Zero,
		ByPaymentMethod: map[string]decimal.Decimal{},
		MaterialUsage:   map[string]int{},
	}
	for _, a := range completed {
		snap := a.Settlement
		if snap == nil {
			continue
		}
		out.ServicesDone++
		out.GrossTotal = out.GrossTotal.Add(snap.GrossAmount)
		out.NetTotal = out.NetTotal.Add(snap.NetAmount)
		out.CommissionTotal = out.CommissionTotal.Add(snap.CommissionAmount)
		method := string(snap.PaymentMethod)
		out.ByPaymentMethod[method] = out.ByPaymentMethod[method].Add(snap.GrossAmount)
		if snap.MaterialName != "" {
			out.MaterialUsage[snap.MaterialName]++
		}
	}
	for _, e := range expenses {
		out.ExpenseTotal = out.ExpenseTotal.Add(e.Amount)
	}
	out.Profit = out.NetTotal.Sub(out.ExpenseTotal)

	accounts, err := s.ListAccounts(ctx, regionID)
	if err != nil {
		return Dashboard{}, err
	}
	out.Accounts = accounts
	items, err := s.repos.Inventory.List(ctx, regionID)
	if err != nil {
		return Dashboard{}, err
	}
	out.LowStockMaterial = []InventoryItemView{}
	for _, item := range items {
		if item.LowStock() {
			out.LowStockMaterial = append(out.LowStockMaterial, inventoryView(item))
		}
	}
	return out, nil
}

// CommissionReport totals commission per installer for a month. An empty
// region covers every region.
func (s *Service) CommissionReport(ctx context.Context, q DashboardQuery) ([]CommissionLine, error) {
	regionID := strings.ToLower(strings.TrimSpace(q.RegionID))
	_, from, to, err := s.monthWindow(q.Month)
	if err != nil {
		return nil, err
	}
	completed, err := s.completedIn(ctx, regionID, nil, from, to)
	if err != nil {
		return nil, err
	}

	lines := map[string]*CommissionLine{}
	for _, a := range completed {
		if a.Settlement == nil || a.InstallerID == nil {
			continue
		}
		key := a.InstallerID.String()
		line, ok := lines[key]
		if !ok {
			line = &CommissionLine{InstallerID: key, InstallerName: unknownInstallerName, Total: decimal.Zero}
			if installer, getErr := s.repos.Installers.Get(ctx, *a.InstallerID); getErr == nil {
				line.InstallerName = installer.Name
			} else if !isNotFound(getErr) {
				return nil, getErr
			}
			lines[key] = line
		}
		line.Services++
		line.Total = line.Total.Add(a.Settlement.CommissionAmount)
	}

	out := make([]CommissionLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InstallerName != out[j].InstallerName {
			return out[i].InstallerName < out[j].InstallerName
		}
		return out[i].InstallerID < out[j].InstallerID
	})
	return out, nil
}

// InstallerStatement lists the caller's own completed services in a month.
func (s *Service) InstallerStatement(ctx context.Context, actor Actor, month string) (Statement, error) {
	label, from, to, err := s.monthWindow(month)
	if err != nil {
		return Statement{}, err
	}
	installerID := actor.UserID
	completed, err := s.completedIn(ctx, "", &installerID, from, to)
	if err != nil {
		return Statement{}, err
	}
	out := Statement{
		InstallerID:     installerID.String(),
		Month:           label,
		Lines:           make([]StatementLine, 0, len(completed)),
		TotalCommission: decimal.Zero,
	}
	for _, a := range completed {
		if a.Settlement == nil {
			continue
		}
		out.Lines = append(out.Lines, StatementLine{
			AppointmentID:    a.ID.String(),
			CustomerName:     a.CustomerName,
			VehicleModel:     a.VehicleModel,
			CompletedAt:      a.CompletedAt.In(s.location).Format(time.RFC3339),
			GrossAmount:      a.Settlement.GrossAmount,
			CommissionAmount: a.Settlement.CommissionAmount,
		})
		out.TotalCommission = out.TotalCommission.Add(a.Settlement.CommissionAmount)
	}
	return out, nil
}

// TodayCommission sums the caller's commission for the current local day.
func (s *Service) TodayCommission(ctx context.Context, actor Actor) (TodayCommission, error) {
	from, to := domain.DayRange(s.nowFn(), s.location)
	installerID := actor.UserID
	completed, err := s.completedIn(ctx, "", &installerID, from, to)
	if err != nil {
		return TodayCommission{}, err
	}
	out := TodayCommission{Date: from.Format("2006-01-02"), Total: decimal.Zero}
	for _, a := range completed {
		if a.Settlement == nil {
			continue
		}
		out.Services++
		out.Total = out.Total.Add(a.Settlement.CommissionAmount)
	}
	return out, nil
}

func (s *Service) monthWindow(month string) (string, time.Time, time.Time, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		month = s.nowFn().In(s.location).Format("2006-01")
	}
	from, to, err := domain.MonthRange(month, s.location)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return month, from, to, nil
}

func (s *Service) completedIn(ctx context.Context, regionID string, installerID *uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	return s.repos.Appointments.List(ctx, ports.AppointmentFilter{
		RegionID:      regionID,
		InstallerID:   installerID,
		Status:        domain.StatusCompleted,
		CompletedFrom: &from,
		CompletedTo:   &to,
	})
}
