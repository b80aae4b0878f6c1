package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/playnatela/volante-express/internal/application"
	"github.com/playnatela/volante-express/internal/domain"
)

func (h *Handler) startAppointment(w http.ResponseWriter, r *http.Request) {
	var req application.StartServiceRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "start_appointment", err)
		return
	}
	view, err := h.service.StartAdHocService(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, "start_appointment", err)
		return
	}
	writeSuccess(w, http.StatusCreated, view)
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	views, err := h.service.ListAppointments(r.Context(), actorFromContext(r.Context()), application.ListAppointmentsQuery{
		RegionID:    query.Get("region"),
		InstallerID: query.Get("installer_id"),
		Status:      query.Get("status"),
		Limit:       parseIntDefault(query.Get("limit"), 0),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_appointments", err)
		return
	}
	writeSuccess(w, http.StatusOK, views)
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "appointment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_appointment", err)
		return
	}
	view, err := h.service.GetAppointment(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeMappedError(r.Context(), w, "get_appointment", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuidParam(r, "appointment_id")
	if err != nil {
		writeValidationError(ctx, w, "complete_appointment", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "upload exceeds size limit")
			return
		}
		writeValidationError(ctx, w, "complete_appointment", fmt.Errorf("multipart form required: %w", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := application.CompleteServiceRequest{
		AppointmentID:         id,
		MaterialID:            strings.TrimSpace(r.FormValue("material_id")),
		PaymentMethod:         strings.TrimSpace(r.FormValue("payment_method")),
		GrossAmount:           strings.TrimSpace(r.FormValue("gross_amount")),
		OverrideStock:         parseBool(r.FormValue("override_stock")),
		ConfirmWithoutAccount: parseBool(r.FormValue("confirm_without_account")),
	}
	if raw := strings.TrimSpace(r.FormValue("installment_count")); raw != "" {
		n := parseIntDefault(raw, -1)
		if n < 1 {
			writeValidationError(ctx, w, "complete_appointment", fmt.Errorf("%w: installment_count must be a positive integer", domain.ErrInvalidInput))
			return
		}
		req.InstallmentCount = n
	}

	file, header, err := r.FormFile("evidence")
	switch {
	case err == nil:
		defer file.Close()
		req.Evidence = &application.EvidenceUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeValidationError(ctx, w, "complete_appointment", err)
		return
	}

	result, err := h.service.CompleteService(ctx, actorFromContext(ctx), req)
	if err != nil {
		writeMappedError(ctx, w, "complete_appointment", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) myStatement(w http.ResponseWriter, r *http.Request) {
	statement, err := h.service.InstallerStatement(r.Context(), actorFromContext(r.Context()), r.URL.Query().Get("month"))
	if err != nil {
		writeMappedError(r.Context(), w, "installer_statement", err)
		return
	}
	writeSuccess(w, http.StatusOK, statement)
}

func (h *Handler) myCommissionToday(w http.ResponseWriter, r *http.Request) {
	today, err := h.service.TodayCommission(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "today_commission", err)
		return
	}
	writeSuccess(w, http.StatusOK, today)
}
