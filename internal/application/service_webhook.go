package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

const webhookReplayPrefix = "volante:webhook:replay:"

// IngestWebhook applies one scheduling-source delivery. Deliveries are
// at-least-once: replays within the TTL skip the merge and echo the
// appointment's current status, and the upsert itself is idempotent by
// (source, external id).
func (s *Service) IngestWebhook(ctx context.Context, req WebhookRequest) (WebhookResult, error) {
	source := strings.ToLower(strings.TrimSpace(req.Source))
	regionID := strings.ToLower(strings.TrimSpace(req.RegionID))
	if err := domain.ValidateSource(source); err != nil {
		return WebhookResult{}, err
	}
	if regionID == "" {
		s.rejectWebhook(ctx, req, source, regionID, "", domain.ErrMissingRegion)
		return WebhookResult{}, domain.ErrMissingRegion
	}
	region, err := s.repos.Regions.Get(ctx, regionID)
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: unknown region %q", domain.ErrInvalidInput, regionID)
			s.rejectWebhook(ctx, req, source, regionID, "", err)
			return WebhookResult{}, err
		}
		return WebhookResult{}, s.failWebhook(ctx, req, source, regionID, "", err)
	}

	replayKey := webhookReplayPrefix + hashRequest(source, regionID, strings.TrimSpace(req.StatusOverride), string(req.Body))
	if cached, ok := s.replayedWebhook(ctx, replayKey); ok {
		current, findErr := s.repos.Appointments.FindByExternalID(ctx, source, cached.ID)
		if findErr == nil {
			cached.Status = string(current.Status)
			apptID := current.ID
			s.recordWebhook(ctx, domain.WebhookEvent{
				Source:        source,
				RegionID:      regionID,
				ExternalID:    cached.ID,
				AppointmentID: &apptID,
				Outcome:       domain.WebhookOutcomeDuplicate,
				Payload:       req.Body,
			})
			return cached, nil
		}
		logWarn(ctx, "ingest_webhook", "replayed appointment lookup failed, reapplying",
			"source", source,
			"external_id", cached.ID,
			"error", findErr,
		)
	}

	payload, err := domain.DecodePayload(req.Body)
	if err != nil {
		s.rejectWebhook(ctx, req, source, regionID, "", err)
		return WebhookResult{}, err
	}
	resolved, err := domain.ResolveWebhook(payload, source, regionID, req.StatusOverride, s.cfg.LocalOffset)
	if err != nil {
		s.rejectWebhook(ctx, req, source, regionID, "", err)
		return WebhookResult{}, err
	}
	if resolved.InvalidStartTime != "" {
		logWarn(ctx, "ingest_webhook", "ignoring unparseable start time",
			"source", source,
			"external_id", resolved.Update.ExternalID,
			"start_time", resolved.InvalidStartTime,
		)
	}

	appt, created, err := s.upsertFromWebhook(ctx, region, resolved.Update)
	if errors.Is(err, domain.ErrConflict) {
		// A concurrent first delivery inserted the row; the retry merges into it.
		appt, created, err = s.upsertFromWebhook(ctx, region, resolved.Update)
	}
	if err != nil {
		return WebhookResult{}, s.failWebhook(ctx, req, source, regionID, resolved.Update.ExternalID, err)
	}

	message := "appointment updated"
	if created {
		message = "appointment received"
	}
	result := WebhookResult{
		Message: message,
		ID:      resolved.Update.ExternalID,
		Status:  string(appt.Status),
		Region:  regionID,
	}
	apptID := appt.ID
	s.recordWebhook(ctx, domain.WebhookEvent{
		Source:        source,
		RegionID:      regionID,
		ExternalID:    resolved.Update.ExternalID,
		AppointmentID: &apptID,
		Outcome:       domain.WebhookOutcomeApplied,
		Payload:       req.Body,
	})
	s.rememberWebhook(ctx, replayKey, result)
	logInfo(ctx, "ingest_webhook", "webhook applied",
		"source", source,
		"region_id", regionID,
		"external_id", result.ID,
		"appointment_id", appt.ID.String(),
		"status", result.Status,
		"created", created,
	)
	return result, nil
}

func (s *Service) upsertFromWebhook(ctx context.Context, region domain.Region, upd domain.WebhookUpdate) (domain.Appointment, bool, error) {
	var (
		out     domain.Appointment
		created bool
	)
	err := s.tx.InTx(ctx, func(tx ports.Repositories) error {
		now := s.nowFn()
		existing, err := tx.Appointments.FindByExternalIDForUpdate(ctx, upd.Source, upd.ExternalID)
		switch {
		case err == nil:
			merged, changed := domain.MergeWebhook(existing, upd, now)
			out = merged
			if !changed {
				return nil
			}
			if err := tx.Appointments.Update(ctx, merged); err != nil {
				return err
			}
		case isNotFound(err):
			installer := s.regionDefaultInstaller(ctx, tx, region)
			appt := domain.NewAppointmentFromWebhook(upd, installer, now)
			appt.ID = uuid.New()
			if err := tx.Appointments.Create(ctx, appt); err != nil {
				return err
			}
			out = appt
			created = true
		default:
			return err
		}
		return s.enqueueEvent(ctx, tx.Outbox, eventAppointmentIngested, out.ID.String(), "data.appointment_id", appointmentIngestedEventData{
			AppointmentID: out.ID.String(),
			Source:        out.Source,
			ExternalID:    out.ExternalID,
			RegionID:      out.RegionID,
			Status:        string(out.Status),
			Created:       created,
		})
	})
	if err != nil {
		return domain.Appointment{}, false, err
	}
	return out, created, nil
}

func (s *Service) regionDefaultInstaller(ctx context.Context, tx ports.Repositories, region domain.Region) *domain.Installer {
	if region.DefaultInstallerID == nil {
		return nil
	}
	installer, err := tx.Installers.Get(ctx, *region.DefaultInstallerID)
	if err != nil {
		logWarn(ctx, "ingest_webhook", "region default installer unavailable",
			"region_id", region.ID,
			"installer_id", region.DefaultInstallerID.String(),
			"error", err,
		)
		return nil
	}
	return &installer
}

func (s *Service) replayedWebhook(ctx context.Context, key string) (WebhookResult, bool) {
	if s.cache == nil {
		return WebhookResult{}, false
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logWarn(ctx, "ingest_webhook", "webhook replay guard unavailable", "error", err)
		return WebhookResult{}, false
	}
	if !found {
		return WebhookResult{}, false
	}
	var out WebhookResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return WebhookResult{}, false
	}
	return out, true
}

func (s *Service) rememberWebhook(ctx context.Context, key string, result WebhookResult) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cfg.WebhookReplayTTL); err != nil {
		logWarn(ctx, "ingest_webhook", "webhook replay guard write failed", "error", err)
	}
}

func (s *Service) rejectWebhook(ctx context.Context, req WebhookRequest, source, regionID, externalID string, cause error) {
	logWarn(ctx, "ingest_webhook", "webhook rejected",
		"source", source,
		"region_id", regionID,
		"error", cause,
		"payload", string(req.Body),
	)
	s.recordWebhook(ctx, domain.WebhookEvent{
		Source:     source,
		RegionID:   regionID,
		ExternalID: externalID,
		Outcome:    domain.WebhookOutcomeRejected,
		Error:      cause.Error(),
		Payload:    req.Body,
	})
}

func (s *Service) failWebhook(ctx context.Context, req WebhookRequest, source, regionID, externalID string, cause error) error {
	logError(ctx, "ingest_webhook", "webhook processing failed",
		"source", source,
		"region_id", regionID,
		"external_id", externalID,
		"error", cause,
		"payload", string(req.Body),
	)
	s.recordWebhook(ctx, domain.WebhookEvent{
		Source:     source,
		RegionID:   regionID,
		ExternalID: externalID,
		Outcome:    domain.WebhookOutcomeFailed,
		Error:      cause.Error(),
		Payload:    req.Body,
	})
	return cause
}

// recordWebhook writes the audit row. Audit failures never fail the delivery.
func (s *Service) recordWebhook(ctx context.Context, event domain.WebhookEvent) {
	if s.repos.WebhookEvents == nil {
		return
	}
	event.ID = uuid.New()
	event.ReceivedAt = s.nowFn()
	if err := s.repos.WebhookEvents.Record(ctx, event); err != nil {
		logWarn(ctx, "ingest_webhook", "webhook audit write failed",
			"source", event.Source,
			"external_id", event.ExternalID,
			"error", err,
		)
	}
}
