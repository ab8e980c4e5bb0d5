package web

import (
	"net/http"

	"coconut-erp/internal/core"
)

// ── Payables ──────────────────────────────────────────────────────────────────

// listPayables handles GET /api/payables?status=&producerId=.
func (h *Handler) listPayables(w http.ResponseWriter, r *http.Request) {
	producerID, err := queryInt(r, "producerId", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payables, err := h.app.Financial.ListPayables(r.Context(), core.PayableFilter{
		Status:     core.PayableStatus(r.URL.Query().Get("status")),
		ProducerID: producerID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, payables)
}

func (h *Handler) getPayable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Financial.GetPayable(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) createPayable(w http.ResponseWriter, r *http.Request) {
	var in core.CreatePayableInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	p, err := h.app.Financial.CreatePayable(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, p)
}

// payPayable handles POST /api/payables/{id}/pay. Body: { paidAmount?, paymentMethod?, paidAt? }.
func (h *Handler) payPayable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in core.PaymentInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	in.ID = id
	p, err := h.app.Financial.MarkPayableAsPaid(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, p)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelPayable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body cancelRequest
	if !h.decodeJSON(w, r, &body) {
		return
	}
	p, err := h.app.Financial.CancelPayable(r.Context(), id, body.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) payablePending(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := h.app.Financial.CalculatePendingAmount(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"id": id, "pendingAmount": amount})
}

func (h *Handler) overduePayables(w http.ResponseWriter, r *http.Request) {
	payables, err := h.app.Financial.GetOverduePayables(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, payables)
}

// ── Receivables ───────────────────────────────────────────────────────────────

func (h *Handler) listReceivables(w http.ResponseWriter, r *http.Request) {
	receivables, err := h.app.Financial.ListReceivables(r.Context(), core.ReceivableFilter{
		Status: core.ReceivableStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, receivables)
}

func (h *Handler) getReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rc, err := h.app.Financial.GetReceivable(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, rc)
}

func (h *Handler) createReceivable(w http.ResponseWriter, r *http.Request) {
	var in core.CreateReceivableInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	rc, err := h.app.Financial.CreateReceivable(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, rc)
}

func (h *Handler) receiveReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in core.PaymentInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	in.ID = id
	rc, err := h.app.Financial.MarkReceivableAsReceived(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, rc)
}

func (h *Handler) cancelReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body cancelRequest
	if !h.decodeJSON(w, r, &body) {
		return
	}
	rc, err := h.app.Financial.CancelReceivable(r.Context(), id, body.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, rc)
}

func (h *Handler) receivablePending(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := h.app.Financial.CalculateReceivablePendingAmount(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"id": id, "pendingAmount": amount})
}

func (h *Handler) overdueReceivables(w http.ResponseWriter, r *http.Request) {
	receivables, err := h.app.Financial.GetOverdueReceivables(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, receivables)
}

// cashFlow handles GET /api/cash-flow.
func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	summary, err := h.app.Financial.GetCashFlowSummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, summary)
}
