package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

// adHocSource tags appointments opened in the field instead of by a webhook.
const adHocSource = "field"

// StartAdHocService opens a walk-in appointment assigned to the caller.
func (s *Service) StartAdHocService(ctx context.Context, actor Actor, req StartServiceRequest) (AppointmentView, error) {
	regionID := strings.ToLower(strings.TrimSpace(req.RegionID))
	if regionID == "" {
		regionID = actor.RegionID
	}
	if err := domain.ValidateRegionID(regionID); err != nil {
		return AppointmentView{}, err
	}
	if !actor.IsAdmin() && actor.RegionID != "" && actor.RegionID != regionID {
		return AppointmentView{}, fmt.Errorf("%w: installers open services in their own region", domain.ErrForbidden)
	}
	if _, err := s.repos.Regions.Get(ctx, regionID); err != nil {
		if isNotFound(err) {
			return AppointmentView{}, fmt.Errorf("%w: unknown region %q", domain.ErrInvalidInput, regionID)
		}
		return AppointmentView{}, err
	}

	now := s.nowFn()
	id := uuid.New()
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		customer = domain.WalkInCustomer
	}
	appt := domain.Appointment{
		ID:            id,
		Source:        adHocSource,
		ExternalID:    id.String(),
		RegionID:      regionID,
		CalendarLabel: domain.NotInformed,
		ScheduledAt:   &now,
		CustomerName:  customer,
		CustomerPhone: orDefault(req.CustomerPhone, domain.NotInformed),
		VehicleModel:  orDefault(req.VehicleModel, domain.NotInformed),
		VehicleYear:   orDefault(req.VehicleYear, domain.NotInformed),
		Status:        domain.StatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if actor.Role == domain.RoleInstaller {
		installerID := actor.UserID
		appt.InstallerID = &installerID
	}
	err := s.tx.InTx(ctx, func(tx ports.Repositories) error {
		if err := tx.Appointments.Create(ctx, appt); err != nil {
			return err
		}
		return s.enqueueEvent(ctx, tx.Outbox, eventAppointmentIngested, appt.ID.String(), "data.appointment_id", appointmentIngestedEventData{
			AppointmentID: appt.ID.String(),
			Source:        appt.Source,
			ExternalID:    appt.ExternalID,
			RegionID:      appt.RegionID,
			Status:        string(appt.Status),
			Created:       true,
		})
	})
	if err != nil {
		return AppointmentView{}, err
	}
	logInfo(ctx, "start_ad_hoc_service", "ad-hoc service started",
		"appointment_id", appt.ID.String(),
		"region_id", regionID,
	)
	return s.appointmentView(appt), nil
}

func (s *Service) GetAppointment(ctx context.Context, actor Actor, id uuid.UUID) (AppointmentView, error) {
	appt, err := s.repos.Appointments.Get(ctx, id)
	if err != nil {
		return AppointmentView{}, err
	}
	if !canView(actor, appt) {
		return AppointmentView{}, domain.ErrNotFound
	}
	return s.appointmentView(appt), nil
}

// ListAppointments scopes installers to their own region.
func (s *Service) ListAppointments(ctx context.Context, actor Actor, q ListAppointmentsQuery) ([]AppointmentView, error) {
	filter := ports.AppointmentFilter{
		RegionID: strings.ToLower(strings.TrimSpace(q.RegionID)),
		Limit:    q.Limit,
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}
	if !actor.IsAdmin() {
		filter.RegionID = actor.RegionID
	}
	if strings.TrimSpace(q.Status) != "" {
		status, err := domain.ParseAppointmentStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(q.InstallerID) != "" {
		installerID, err := parseUUID("installer_id", q.InstallerID)
		if err != nil {
			return nil, err
		}
		filter.InstallerID = &installerID
	}
	appts, err := s.repos.Appointments.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, s.appointmentView(a))
	}
	return out, nil
}

func canView(actor Actor, appt domain.Appointment) bool {
	if actor.IsAdmin() {
		return true
	}
	if appt.InstallerID != nil && *appt.InstallerID == actor.UserID {
		return true
	}
	return actor.RegionID != "" && actor.RegionID == appt.RegionID
}

func orDefault(v, fallback string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return fallback
}
