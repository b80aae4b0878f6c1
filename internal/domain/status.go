package domain

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	switch AppointmentStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("%w: unknown appointment status %q", ErrInvalidInput, raw)
}

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusScheduled, StatusCompleted, StatusCancelled},
	StatusScheduled: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from may move to to. Staying put is not a transition.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ExternalStatus is the classification of a status string sent by the
// scheduling source.
type ExternalStatus struct {
	// Raw is the lowercased source value, kept for display.
	Raw string
	// Target is the internal status the event asks for.
	Target AppointmentStatus
	// SourceCompleted marks events where the source considers the service
	// done. Internal completion still belongs to the completion flow.
	SourceCompleted bool
}

var cancelledVocabulary = map[string]struct{}{
	"cancelled": {}, "canceled": {}, "cancel": {}, "noshow": {}, "invalid": {}, "abandoned": {},
	"cancelado": {}, "cancelada": {},
}

var completedVocabulary = map[string]struct{}{
	"completed": {}, "complete": {}, "finished": {}, "executed": {}, "showed": {}, "done": {},
	"concluido": {}, "finalizado": {},
}

var scheduledVocabulary = map[string]struct{}{
	"scheduled": {}, "agendado": {},
}

// ClassifyExternalStatus maps the source vocabulary onto the internal
// status machine. Unknown and empty values request pending.
func ClassifyExternalStatus(raw string) ExternalStatus {
	out := ExternalStatus{Raw: strings.ToLower(strings.TrimSpace(raw)), Target: StatusPending}
	key := FoldKey(raw)
	if _, ok := cancelledVocabulary[key]; ok {
		out.Target = StatusCancelled
		return out
	}
	if _, ok := completedVocabulary[key]; ok {
		out.SourceCompleted = true
		return out
	}
	if _, ok := scheduledVocabulary[key]; ok {
		out.Target = StatusScheduled
	}
	return out
}

// WebhookUpdate carries the fields one delivery resolved. Empty strings and
// nil pointers mean the payload did not carry the field.
type WebhookUpdate struct {
	Source        string
	ExternalID    string
	RegionID      string
	ScheduledAt   *time.Time
	CustomerName  string
	CustomerPhone string
	VehicleModel  string
	VehicleYear   string
	CalendarLabel string
	Status        ExternalStatus
}

// NewAppointmentFromWebhook builds a pending appointment, filling missing
// descriptive fields with NotInformed.
func NewAppointmentFromWebhook(upd WebhookUpdate, defaultInstaller *Installer, now time.Time) Appointment {
	status := StatusPending
	if upd.Status.Target == StatusCancelled || upd.Status.Target == StatusScheduled {
		status = upd.Status.Target
	}
	appt := Appointment{
		Source:         upd.Source,
		ExternalID:     upd.ExternalID,
		RegionID:       upd.RegionID,
		ScheduledAt:    upd.ScheduledAt,
		CustomerName:   orNotInformed(upd.CustomerName),
		CustomerPhone:  orNotInformed(upd.CustomerPhone),
		VehicleModel:   orNotInformed(upd.VehicleModel),
		VehicleYear:    orNotInformed(upd.VehicleYear),
		CalendarLabel:  orNotInformed(upd.CalendarLabel),
		Status:         status,
		ExternalStatus: upd.Status.Raw,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if upd.Status.SourceCompleted {
		at := now
		appt.SourceCompletedAt = &at
	}
	if defaultInstaller != nil {
		id := defaultInstaller.ID
		appt.InstallerID = &id
	}
	return appt
}

// MergeWebhook applies a delivery to an existing appointment. Present fields
// overwrite, absent fields are kept. Terminal appointments only take
// descriptive fields; status never regresses. The financial snapshot and
// installer are never touched.
func MergeWebhook(existing Appointment, upd WebhookUpdate, now time.Time) (Appointment, bool) {
	next := existing
	setIfPresent(&next.CustomerName, upd.CustomerName)
	setIfPresent(&next.CustomerPhone, upd.CustomerPhone)
	setIfPresent(&next.VehicleModel, upd.VehicleModel)
	setIfPresent(&next.VehicleYear, upd.VehicleYear)
	setIfPresent(&next.CalendarLabel, upd.CalendarLabel)
	setIfPresent(&next.ExternalStatus, upd.Status.Raw)
	if upd.Status.SourceCompleted && next.SourceCompletedAt == nil {
		at := now
		next.SourceCompletedAt = &at
	}
	if !existing.Status.IsTerminal() {
		if upd.ScheduledAt != nil {
			at := *upd.ScheduledAt
			next.ScheduledAt = &at
		}
		if upd.Status.Target != StatusCompleted && CanTransition(existing.Status, upd.Status.Target) {
			next.Status = upd.Status.Target
		}
	}
	changed := !sameAppointment(existing, next)
	if changed {
		next.UpdatedAt = now
	}
	return next, changed
}

func orNotInformed(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotInformed
	}
	return v
}

func setIfPresent(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func sameAppointment(a, b Appointment) bool {
	return a.CustomerName == b.CustomerName &&
		a.CustomerPhone == b.CustomerPhone &&
		a.VehicleModel == b.VehicleModel &&
		a.VehicleYear == b.VehicleYear &&
		a.CalendarLabel == b.CalendarLabel &&
		a.ExternalStatus == b.ExternalStatus &&
		a.Status == b.Status &&
		sameTime(a.ScheduledAt, b.ScheduledAt) &&
		sameTime(a.SourceCompletedAt, b.SourceCompletedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
