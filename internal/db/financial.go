package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"coconut-erp/internal/core"
)

// ── producers and loads ───────────────────────────────────────────────────────

func scanProducer(row pgx.Row) (core.Producer, error) {
	var p core.Producer
	err := row.Scan(&p.ID, &p.Name, &p.Document, &p.Active, &p.CreatedAt)
	return p, err
}

func (r *repo) GetProducer(ctx context.Context, id int) (*core.Producer, error) {
	p, err := scanProducer(r.q.QueryRow(ctx,
		"SELECT id, name, document, active, created_at FROM producers WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get producer %d: %w", id, mapErr(err))
	}
	return &p, nil
}

func (r *repo) ListProducers(ctx context.Context) ([]core.Producer, error) {
	rows, err := r.q.Query(ctx, "SELECT id, name, document, active, created_at FROM producers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query producers: %w", err)
	}
	out, err := collect(rows, scanProducer)
	if err != nil {
		return nil, fmt.Errorf("failed to scan producer: %w", err)
	}
	return out, nil
}

func (r *repo) CreateProducer(ctx context.Context, p *core.Producer) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO producers (name, document, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		p.Name, p.Document, p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create producer %q: %w", p.Name, mapErr(err))
	}
	return nil
}

func (r *repo) ListLoads(ctx context.Context, f core.LoadFilter) ([]core.Load, error) {
	var w where
	if f.ProducerID != 0 {
		w.add("producer_id = $%d", f.ProducerID)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, producer_id, status, quality_grade, net_weight, received_at
		FROM loads`+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loads: %w", err)
	}
	out, err := collect(rows, func(row pgx.Row) (core.Load, error) {
		var l core.Load
		err := row.Scan(&l.ID, &l.ProducerID, &l.Status, &l.QualityGrade, &l.NetWeight, &l.ReceivedAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan load: %w", err)
	}
	return out, nil
}

func (r *repo) CreateLoad(ctx context.Context, l *core.Load) error {
	if l.ReceivedAt.IsZero() {
		l.ReceivedAt = time.Now()
	}
	if l.Status == "" {
		l.Status = core.LoadOpen
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO loads (producer_id, status, quality_grade, net_weight, received_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		l.ProducerID, string(l.Status), l.QualityGrade, l.NetWeight, l.ReceivedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create load for producer %d: %w", l.ProducerID, mapErr(err))
	}
	return nil
}

// ── payables ──────────────────────────────────────────────────────────────────

const payableColumns = `id, producer_id, load_id, description, amount, paid_amount, status,
	due_date, paid_at, payment_method, observations, created_at, updated_at`

func scanPayable(row pgx.Row) (core.Payable, error) {
	var p core.Payable
	err := row.Scan(
		&p.ID, &p.ProducerID, &p.LoadID, &p.Description, &p.Amount, &p.PaidAmount, &p.Status,
		&p.DueDate, &p.PaidAt, &p.PaymentMethod, &p.Observations, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *repo) GetPayable(ctx context.Context, id int) (*core.Payable, error) {
	p, err := scanPayable(r.q.QueryRow(ctx,
		"SELECT "+payableColumns+" FROM payables WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get payable %d: %w", id, mapErr(err))
	}
	return &p, nil
}

func (r *repo) ListPayables(ctx context.Context, f core.PayableFilter) ([]core.Payable, error) {
	var w where
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.ProducerID != 0 {
		w.add("producer_id = $%d", f.ProducerID)
	}
	if f.DueBefore != nil {
		w.add("due_date < $%d", *f.DueBefore)
	}
	rows, err := r.q.Query(ctx, "SELECT "+payableColumns+" FROM payables"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payables: %w", err)
	}
	out, err := collect(rows, scanPayable)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payable: %w", err)
	}
	return out, nil
}

func (r *repo) CreatePayable(ctx context.Context, p *core.Payable) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO payables (producer_id, load_id, description, amount, paid_amount, status,
		                      due_date, paid_at, payment_method, observations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		p.ProducerID, p.LoadID, p.Description, p.Amount, p.PaidAmount, string(p.Status),
		p.DueDate, p.PaidAt, p.PaymentMethod, p.Observations,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payable: %w", mapErr(err))
	}
	return nil
}

func (r *repo) UpdatePayable(ctx context.Context, p *core.Payable) error {
	err := r.q.QueryRow(ctx, `
		UPDATE payables
		SET description = $2, amount = $3, paid_amount = $4, status = $5, due_date = $6,
		    paid_at = $7, payment_method = $8, observations = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Description, p.Amount, p.PaidAmount, string(p.Status), p.DueDate,
		p.PaidAt, p.PaymentMethod, p.Observations,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update payable %d: %w", p.ID, mapErr(err))
	}
	return nil
}

// ── receivables ───────────────────────────────────────────────────────────────

const receivableColumns = `id, customer_name, description, amount, received_amount, status,
	due_date, received_at, payment_method, observations, created_at, updated_at`

func scanReceivable(row pgx.Row) (core.Receivable, error) {
	var rc core.Receivable
	err := row.Scan(
		&rc.ID, &rc.CustomerName, &rc.Description, &rc.Amount, &rc.ReceivedAmount, &rc.Status,
		&rc.DueDate, &rc.ReceivedAt, &rc.PaymentMethod, &rc.Observations, &rc.CreatedAt, &rc.UpdatedAt,
	)
	return rc, err
}

func (r *repo) GetReceivable(ctx context.Context, id int) (*core.Receivable, error) {
	rc, err := scanReceivable(r.q.QueryRow(ctx,
		"SELECT "+receivableColumns+" FROM receivables WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get receivable %d: %w", id, mapErr(err))
	}
	return &rc, nil
}

func (r *repo) ListReceivables(ctx context.Context, f core.ReceivableFilter) ([]core.Receivable, error) {
	var w where
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.DueBefore != nil {
		w.add("due_date < $%d", *f.DueBefore)
	}
	rows, err := r.q.Query(ctx, "SELECT "+receivableColumns+" FROM receivables"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivables: %w", err)
	}
	out, err := collect(rows, scanReceivable)
	if err != nil {
		return nil, fmt.Errorf("failed to scan receivable: %w", err)
	}
	return out, nil
}

func (r *repo) CreateReceivable(ctx context.Context, rc *core.Receivable) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO receivables (customer_name, description, amount, received_amount, status,
		                         due_date, received_at, payment_method, observations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		rc.CustomerName, rc.Description, rc.Amount, rc.ReceivedAmount, string(rc.Status),
		rc.DueDate, rc.ReceivedAt, rc.PaymentMethod, rc.Observations,
	).Scan(&rc.ID, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create receivable: %w", mapErr(err))
	}
	return nil
}

func (r *repo) UpdateReceivable(ctx context.Context, rc *core.Receivable) error {
	err := r.q.QueryRow(ctx, `
		UPDATE receivables
		SET customer_name = $2, description = $3, amount = $4, received_amount = $5, status = $6,
		    due_date = $7, received_at = $8, payment_method = $9, observations = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		rc.ID, rc.CustomerName, rc.Description, rc.Amount, rc.ReceivedAmount, string(rc.Status),
		rc.DueDate, rc.ReceivedAt, rc.PaymentMethod, rc.Observations,
	).Scan(&rc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update receivable %d: %w", rc.ID, mapErr(err))
	}
	return nil
}

// GetDashboardStats aggregates pending payables. Overdue means due strictly before now;
// the 30-day bucket excludes overdue rows.
func (r *repo) GetDashboardStats(ctx context.Context, now time.Time) (*core.DashboardStats, error) {
	var s core.DashboardStats
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount - paid_amount), 0),
		       COUNT(*),
		       COALESCE(SUM(amount - paid_amount) FILTER (WHERE due_date < $1), 0),
		       COUNT(*) FILTER (WHERE due_date < $1),
		       COALESCE(SUM(amount - paid_amount) FILTER (WHERE due_date >= $1 AND due_date <= $2), 0)
		FROM payables
		WHERE status = 'pendente'`,
		now, now.AddDate(0, 0, 30),
	).Scan(
		&s.PendingPayablesTotal, &s.PendingPayablesCount,
		&s.OverduePayablesTotal, &s.OverduePayablesCount,
		&s.PayablesNext30Days,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return &s, nil
}
