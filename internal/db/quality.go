package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coconut-erp/internal/core"
)

// ── analyses ──────────────────────────────────────────────────────────────────

const analysisColumns = `id, analysis_type, reference_type, reference_id, parameters, result,
	analyzed_by, observations, created_at`

func scanAnalysis(row pgx.Row) (core.QualityAnalysis, error) {
	var (
		a   core.QualityAnalysis
		raw []byte
	)
	if err := row.Scan(
		&a.ID, &a.AnalysisType, &a.ReferenceType, &a.ReferenceID, &raw, &a.Result,
		&a.AnalyzedBy, &a.Observations, &a.CreatedAt,
	); err != nil {
		return a, err
	}
	if err := json.Unmarshal(raw, &a.Parameters); err != nil {
		return a, fmt.Errorf("decode parameters of analysis %d: %w", a.ID, err)
	}
	return a, nil
}

func (r *repo) GetAnalysis(ctx context.Context, id int) (*core.QualityAnalysis, error) {
	a, err := scanAnalysis(r.q.QueryRow(ctx,
		"SELECT "+analysisColumns+" FROM quality_analyses WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis %d: %w", id, mapErr(err))
	}
	return &a, nil
}

func (r *repo) ListAnalyses(ctx context.Context, f core.AnalysisFilter) ([]core.QualityAnalysis, error) {
	var w where
	if f.ReferenceType != "" {
		w.add("reference_type = $%d", f.ReferenceType)
	}
	if f.Result != "" {
		w.add("result = $%d", string(f.Result))
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= $%d", *f.To)
	}
	rows, err := r.q.Query(ctx, "SELECT "+analysisColumns+" FROM quality_analyses"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	out, err := collect(rows, scanAnalysis)
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}
	return out, nil
}

func (r *repo) CreateAnalysis(ctx context.Context, a *core.QualityAnalysis) error {
	params, err := json.Marshal(a.Parameters)
	if err != nil {
		return fmt.Errorf("encode analysis parameters: %w", err)
	}
	err = r.q.QueryRow(ctx, `
		INSERT INTO quality_analyses (analysis_type, reference_type, reference_id, parameters,
		                              result, analyzed_by, observations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.AnalysisType, a.ReferenceType, a.ReferenceID, params,
		string(a.Result), a.AnalyzedBy, a.Observations,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", mapErr(err))
	}
	return nil
}

// ── non-conformities ──────────────────────────────────────────────────────────

func (r *repo) NextNCSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.q.QueryRow(ctx, "SELECT nextval('nc_number_seq')").Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate NC number: %w", err)
	}
	return seq, nil
}

const ncColumns = `id, nc_number, title, description, severity, reference_type, reference_id,
	analysis_id, status, assigned_to, root_cause, corrective_action, closed_at, closed_by,
	created_at, updated_at`

func scanNC(row pgx.Row) (core.NonConformity, error) {
	var nc core.NonConformity
	err := row.Scan(
		&nc.ID, &nc.NCNumber, &nc.Title, &nc.Description, &nc.Severity, &nc.ReferenceType, &nc.ReferenceID,
		&nc.AnalysisID, &nc.Status, &nc.AssignedTo, &nc.RootCause, &nc.CorrectiveAction, &nc.ClosedAt, &nc.ClosedBy,
		&nc.CreatedAt, &nc.UpdatedAt,
	)
	return nc, err
}

func (r *repo) GetNC(ctx context.Context, id int) (*core.NonConformity, error) {
	nc, err := scanNC(r.q.QueryRow(ctx,
		"SELECT "+ncColumns+" FROM non_conformities WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get non-conformity %d: %w", id, mapErr(err))
	}
	return &nc, nil
}

func (r *repo) ListNCs(ctx context.Context, f core.NCFilter) ([]core.NonConformity, error) {
	var w where
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY($%d)", statuses)
	}
	if f.Severity != "" {
		w.add("severity = $%d", string(f.Severity))
	}
	if f.AnalysisID != 0 {
		w.add("analysis_id = $%d", f.AnalysisID)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= $%d", *f.To)
	}
	rows, err := r.q.Query(ctx, "SELECT "+ncColumns+" FROM non_conformities"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query non-conformities: %w", err)
	}
	out, err := collect(rows, scanNC)
	if err != nil {
		return nil, fmt.Errorf("failed to scan non-conformity: %w", err)
	}
	return out, nil
}

func (r *repo) CreateNC(ctx context.Context, nc *core.NonConformity) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO non_conformities (nc_number, title, description, severity, reference_type,
		                              reference_id, analysis_id, status, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		nc.NCNumber, nc.Title, nc.Description, string(nc.Severity), nc.ReferenceType,
		nc.ReferenceID, nc.AnalysisID, string(nc.Status), nc.AssignedTo,
	).Scan(&nc.ID, &nc.CreatedAt, &nc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create non-conformity %s: %w", nc.NCNumber, mapErr(err))
	}
	return nil
}

func (r *repo) UpdateNC(ctx context.Context, nc *core.NonConformity) error {
	err := r.q.QueryRow(ctx, `
		UPDATE non_conformities
		SET title = $2, description = $3, severity = $4, status = $5, assigned_to = $6,
		    root_cause = $7, corrective_action = $8, closed_at = $9, closed_by = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		nc.ID, nc.Title, nc.Description, string(nc.Severity), string(nc.Status), nc.AssignedTo,
		nc.RootCause, nc.CorrectiveAction, nc.ClosedAt, nc.ClosedBy,
	).Scan(&nc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update non-conformity %d: %w", nc.ID, mapErr(err))
	}
	return nil
}

func (r *repo) CreateCorrectiveAction(ctx context.Context, ca *core.CorrectiveAction) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO corrective_actions (non_conformity_id, root_cause, action, responsible)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		ca.NonConformityID, ca.RootCause, ca.Action, ca.Responsible,
	).Scan(&ca.ID, &ca.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record corrective action for NC %d: %w", ca.NonConformityID, mapErr(err))
	}
	return nil
}
