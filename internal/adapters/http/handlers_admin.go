package http

import (
	"net/http"

	"github.com/playnatela/volante-express/internal/application"
)

func (h *Handler) listRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.ListRegions(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_regions", err)
		return
	}
	writeSuccess(w, http.StatusOK, regions)
}

func (h *Handler) createRegion(w http.ResponseWriter, r *http.Request) {
	var req application.CreateRegionRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_region", err)
		return
	}
	region, err := h.service.CreateRegion(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_region", err)
		return
	}
	writeSuccess(w, http.StatusCreated, region)
}

func (h *Handler) upsertInstaller(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "installer_id")
	if err != nil {
		writeValidationError(r.Context(), w, "upsert_installer", err)
		return
	}
	var req application.UpsertInstallerRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "upsert_installer", err)
		return
	}
	installer, err := h.service.UpsertInstaller(r.Context(), id, req)
	if err != nil {
		writeMappedError(r.Context(), w, "upsert_installer", err)
		return
	}
	writeSuccess(w, http.StatusOK, installer)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		writeMappedError(r.Context(), w, "list_accounts", err)
		return
	}
	writeSuccess(w, http.StatusOK, accounts)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req application.CreateAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_account", err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_account", err)
		return
	}
	writeSuccess(w, http.StatusCreated, account)
}

func (h *Handler) setDefaultAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "account_id")
	if err != nil {
		writeValidationError(r.Context(), w, "set_default_account", err)
		return
	}
	account, err := h.service.SetDefaultAccount(r.Context(), id)
	if err != nil {
		writeMappedError(r.Context(), w, "set_default_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "account_id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_account", err)
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		writeMappedError(r.Context(), w, "delete_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (h *Handler) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req application.RecordExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "record_expense", err)
		return
	}
	expense, err := h.service.RecordExpense(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, "record_expense", err)
		return
	}
	writeSuccess(w, http.StatusCreated, expense)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req application.TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "transfer", err)
		return
	}
	result, err := h.service.Transfer(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "transfer", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.ListRates(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_rates", err)
		return
	}
	writeSuccess(w, http.StatusOK, rates)
}

func (h *Handler) upsertRate(w http.ResponseWriter, r *http.Request) {
	var req application.UpsertRateRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "upsert_rate", err)
		return
	}
	rate, err := h.service.UpsertRate(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "upsert_rate", err)
		return
	}
	writeSuccess(w, http.StatusOK, rate)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListInventory(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		writeMappedError(r.Context(), w, "list_inventory", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *Handler) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req application.CreateInventoryItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_inventory_item", err)
		return
	}
	item, err := h.service.CreateInventoryItem(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_inventory_item", err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}

func (h *Handler) adjustInventory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "item_id")
	if err != nil {
		writeValidationError(r.Context(), w, "adjust_inventory", err)
		return
	}
	var req application.AdjustInventoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "adjust_inventory", err)
		return
	}
	item, err := h.service.AdjustInventory(r.Context(), id, req)
	if err != nil {
		writeMappedError(r.Context(), w, "adjust_inventory", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	dash, err := h.service.Dashboard(r.Context(), application.DashboardQuery{
		RegionID: query.Get("region"),
		Month:    query.Get("month"),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "dashboard", err)
		return
	}
	writeSuccess(w, http.StatusOK, dash)
}

func (h *Handler) commissionReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lines, err := h.service.CommissionReport(r.Context(), application.DashboardQuery{
		RegionID: query.Get("region"),
		Month:    query.Get("month"),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "commission_report", err)
		return
	}
	writeSuccess(w, http.StatusOK, lines)
}
