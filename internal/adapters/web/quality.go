package web

import (
	"net/http"
	"strings"

	"coconut-erp/internal/core"
)

// ── Analyses ──────────────────────────────────────────────────────────────────

// listAnalyses handles GET /api/quality/analyses?referenceType=&result=&from=&to=.
func (h *Handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := queryEndTime(r, "to")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	analyses, err := h.app.Quality.ListAnalyses(r.Context(), core.AnalysisFilter{
		ReferenceType: q.Get("referenceType"),
		Result:        core.ParameterResult(q.Get("result")),
		From:          from,
		To:            to,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, analyses)
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.app.Quality.GetAnalysis(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, a)
}

// createAnalysis handles POST /api/quality/analyses. A non-conforming analysis
// answers with the id of the NC opened for it.
func (h *Handler) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var in core.CreateAnalysisInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	in.AnalyzedBy = actor(r, in.AnalyzedBy)
	res, err := h.app.Quality.CreateAnalysis(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// ── Non-conformities ──────────────────────────────────────────────────────────

// listNCs handles GET /api/quality/ncs?status=a,b&severity=&analysisId=.
func (h *Handler) listNCs(w http.ResponseWriter, r *http.Request) {
	analysisID, err := queryInt(r, "analysisId", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f := core.NCFilter{
		Severity:   core.NCSeverity(r.URL.Query().Get("severity")),
		AnalysisID: analysisID,
	}
	for _, s := range splitAndTrim(r.URL.Query().Get("status")) {
		f.Statuses = append(f.Statuses, core.NCStatus(strings.ToLower(s)))
	}
	ncs, err := h.app.Quality.ListNCs(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, ncs)
}

func (h *Handler) getNC(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	nc, err := h.app.Quality.GetNC(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, nc)
}

func (h *Handler) createNC(w http.ResponseWriter, r *http.Request) {
	var in core.CreateNCInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	nc, err := h.app.Quality.CreateNC(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCreated(w, nc)
}

func (h *Handler) startNCAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		AssignedTo string `json:"assignedTo"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	nc, err := h.app.Quality.StartNCAnalysis(r.Context(), id, actor(r, body.AssignedTo))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, nc)
}

func (h *Handler) startCorrectiveAction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		Responsible string `json:"responsible"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	nc, err := h.app.Quality.StartCorrectiveAction(r.Context(), id, actor(r, body.Responsible))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, nc)
}

func (h *Handler) resolveNC(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in core.ResolveNCInput
	if !h.decodeJSON(w, r, &in) {
		return
	}
	in.Responsible = actor(r, in.Responsible)
	nc, err := h.app.Quality.ResolveNC(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, nc)
}

func (h *Handler) closeNC(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		ClosedBy string `json:"closedBy"`
	}
	if !h.decodeJSON(w, r, &body) {
		return
	}
	nc, err := h.app.Quality.CloseNC(r.Context(), id, actor(r, body.ClosedBy))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, nc)
}

// ── Metrics ───────────────────────────────────────────────────────────────────

// qualityMetrics handles GET /api/quality/metrics?start=&end=.
func (h *Handler) qualityMetrics(w http.ResponseWriter, r *http.Request) {
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
	m, err := h.app.Quality.GetQualityMetrics(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, m)
}

func (h *Handler) producerScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.app.Quality.GetProducerQualityScores(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, scores)
}

func (h *Handler) gradeDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.app.Quality.GetGradeDistribution(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, d)
}
