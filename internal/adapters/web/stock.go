package web

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"coconut-erp/internal/core"
)

const defaultExpiringDays = 30

// ── Items ─────────────────────────────────────────────────────────────────────

// listItems handles GET /api/stock/items?warehouseType=&includeArchived=true.
func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("includeArchived"))
	items, err := h.app.Stock.ListItems(r.Context(), core.ItemFilter{
		WarehouseType:   r.URL.Query().Get("warehouseType"),
		IncludeArchived: includeArchived,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.app.Stock.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var in core.CreateItemInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	item, err := h.app.Stock.CreateItem(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in core.UpdateItemInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	item, err := h.app.Stock.UpdateItem(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// deleteItem handles DELETE /api/stock/items/{id}; the item is archived.
func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Stock.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Movements ─────────────────────────────────────────────────────────────────

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request) {
	var in core.CreateMovementInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	in.CreatedBy = actor(r, in.CreatedBy)
	m, err := h.app.Stock.CreateMovement(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, m)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	movements, err := h.app.Stock.ListMovements(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.app.Stock.GetLowStockAlerts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, alerts)
}

// ── Finished goods batches ────────────────────────────────────────────────────

// listBatches handles GET /api/stock/batches?status=&skuId=.
func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	skuID, err := queryInt(r, "skuId", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	batches, err := h.app.Stock.ListBatches(r.Context(), core.BatchFilter{
		Status: core.BatchStatus(r.URL.Query().Get("status")),
		SKUID:  skuID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, batches)
}

func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.app.Stock.GetBatch(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, b)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var in core.CreateBatchInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	b, err := h.app.Stock.CreateBatch(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, b)
}

type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (h *Handler) reserveBatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body quantityRequest
	if !h.decodeJSON(w, r, &body) {
		return
	}
	b, err := h.app.Stock.ReserveFinishedGoods(r.Context(), id, body.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, b)
}

func (h *Handler) shipBatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body quantityRequest
	if !h.decodeJSON(w, r, &body) {
		return
	}
	b, err := h.app.Stock.ShipFinishedGoods(r.Context(), id, body.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, b)
}

// expiringBatches handles GET /api/stock/batches/expiring?days=30.
func (h *Handler) expiringBatches(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultExpiringDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	batches, err := h.app.Stock.GetExpiringProducts(r.Context(), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, batches)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (h *Handler) overdueReport(w http.ResponseWriter, r *http.Request) {
	res, err := h.app.Reports.Overdue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) qualityReport(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := queryEndTime(r, "end")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.app.Reports.Quality(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, res)
}
