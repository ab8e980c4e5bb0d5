package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coconut-erp/internal/apperror"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// FinancialService manages producer payables, customer receivables and the cash-flow summary.
type FinancialService interface {
	ListPayables(ctx context.Context, f PayableFilter) ([]Payable, error)
	GetPayable(ctx context.Context, id int) (*Payable, error)
	// CreatePayable requires a positive amount and an existing producer.
	// A missing producer is a validation failure, not a not-found.
	CreatePayable(ctx context.Context, in CreatePayableInput) (*Payable, error)
	// MarkPayableAsPaid settles a pending payable. PaidAmount may not exceed the pending amount;
	// zero means "pay everything still pending".
	MarkPayableAsPaid(ctx context.Context, in PaymentInput) (*Payable, error)
	// CancelPayable sets the observations to "CANCELADO: {reason}", replacing what was there.
	CancelPayable(ctx context.Context, id int, reason string) (*Payable, error)
	CalculatePendingAmount(ctx context.Context, id int) (decimal.Decimal, error)
	GetOverduePayables(ctx context.Context) ([]Payable, error)

	ListReceivables(ctx context.Context, f ReceivableFilter) ([]Receivable, error)
	GetReceivable(ctx context.Context, id int) (*Receivable, error)
	CreateReceivable(ctx context.Context, in CreateReceivableInput) (*Receivable, error)
	MarkReceivableAsReceived(ctx context.Context, in PaymentInput) (*Receivable, error)
	CancelReceivable(ctx context.Context, id int, reason string) (*Receivable, error)
	CalculateReceivablePendingAmount(ctx context.Context, id int) (decimal.Decimal, error)
	GetOverdueReceivables(ctx context.Context) ([]Receivable, error)

	GetCashFlowSummary(ctx context.Context) (*CashFlowSummary, error)
}

type financialService struct {
	store Store
	in    instrument
	now   func() time.Time
}

func NewFinancialService(store Store, logger *slog.Logger, metrics MetricsCollector) FinancialService {
	return &financialService{
		store: store,
		in:    newInstrument("FinancialService", logger, metrics),
		now:   time.Now,
	}
}

// ── Payables ──────────────────────────────────────────────────────────────────

func (s *financialService) ListPayables(ctx context.Context, f PayableFilter) (_ []Payable, err error) {
	ctx, done := s.in.start(ctx, "ListPayables")
	defer done(&err)

	payables, err := s.store.ListPayables(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list payables: %w", err)
	}
	return payables, nil
}

func (s *financialService) GetPayable(ctx context.Context, id int) (_ *Payable, err error) {
	ctx, done := s.in.start(ctx, "GetPayable", attribute.Int("payable.id", id))
	defer done(&err)

	p, err := s.store.GetPayable(ctx, id)
	if err != nil {
		return nil, notFound(err, apperror.PaymentNotFound(id))
	}
	return p, nil
}

func (s *financialService) CreatePayable(ctx context.Context, in CreatePayableInput) (_ *Payable, err error) {
	ctx, done := s.in.start(ctx, "CreatePayable", attribute.Int("producer.id", in.ProducerID))
	defer done(&err)

	v := apperror.NewValidation("Dados da conta a pagar inválidos")
	validateAmount(v, "amount", in.Amount)
	if in.ProducerID <= 0 {
		v.Add("producerId", "O campo 'producerId' é obrigatório")
	}
	if in.DueDate.IsZero() {
		v.Add("dueDate", "O campo 'dueDate' é obrigatório")
	}
	if v.HasErrors() {
		return nil, v
	}

	var created Payable
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetProducer(ctx, in.ProducerID); err != nil {
			return notFound(err, apperror.NewValidation("Produtor não encontrado", apperror.FieldError{
				Field:      "producerId",
				Message:    fmt.Sprintf("Produtor com ID '%d' não encontrado", in.ProducerID),
				Value:      in.ProducerID,
				Constraint: "exists",
			}))
		}

		created = Payable{
			ProducerID:    in.ProducerID,
			LoadID:        in.LoadID,
			Description:   strings.TrimSpace(in.Description),
			Amount:        in.Amount,
			PaidAmount:    decimal.Zero,
			Status:        PayablePending,
			DueDate:       in.DueDate,
			PaymentMethod: in.PaymentMethod,
			Observations:  in.Observations,
		}
		if err := repo.CreatePayable(ctx, &created); err != nil {
			return fmt.Errorf("failed to insert payable: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "payable created", "payable_id", created.ID, "producer_id", created.ProducerID,
		"amount", created.Amount.String())
	return &created, nil
}

func (s *financialService) MarkPayableAsPaid(ctx context.Context, in PaymentInput) (_ *Payable, err error) {
	ctx, done := s.in.start(ctx, "MarkPayableAsPaid", attribute.Int("payable.id", in.ID))
	defer done(&err)

	if in.PaidAmount.IsNegative() {
		return nil, apperror.OutOfRange("paidAmount", 0, nil, in.PaidAmount.String())
	}

	var updated *Payable
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		p, err := repo.GetPayable(ctx, in.ID)
		if err != nil {
			return notFound(err, apperror.PaymentNotFound(in.ID))
		}

		switch p.Status {
		case PayablePaid:
			return apperror.PaymentAlreadyPaid(p.ID)
		case PayableCancelled:
			return apperror.PaymentAlreadyCancelled(p.ID)
		}

		paid, err := settleAmount(in.PaidAmount, p.PendingAmount())
		if err != nil {
			return err
		}

		paidAt := s.now()
		if in.PaidAt != nil {
			paidAt = *in.PaidAt
		}
		p.PaidAmount = p.PaidAmount.Add(paid)
		p.Status = PayablePaid
		p.PaidAt = &paidAt
		if in.PaymentMethod != "" {
			p.PaymentMethod = in.PaymentMethod
		}
		if err := repo.UpdatePayable(ctx, p); err != nil {
			return fmt.Errorf("failed to update payable: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "payable paid", "payable_id", updated.ID, "paid_amount", updated.PaidAmount.String())
	return updated, nil
}

func (s *financialService) CancelPayable(ctx context.Context, id int, reason string) (_ *Payable, err error) {
	ctx, done := s.in.start(ctx, "CancelPayable", attribute.Int("payable.id", id))
	defer done(&err)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Required("reason")
	}

	var updated *Payable
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		p, err := repo.GetPayable(ctx, id)
		if err != nil {
			return notFound(err, apperror.PaymentNotFound(id))
		}
		switch p.Status {
		case PayablePaid:
			return apperror.InvalidStatusTransition("Conta a pagar", string(p.Status), string(PayableCancelled))
		case PayableCancelled:
			return apperror.PaymentAlreadyCancelled(p.ID)
		}

		p.Status = PayableCancelled
		p.Observations = cancelNote(reason)
		if err := repo.UpdatePayable(ctx, p); err != nil {
			return fmt.Errorf("failed to update payable: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "payable cancelled", "payable_id", id)
	return updated, nil
}

func (s *financialService) CalculatePendingAmount(ctx context.Context, id int) (_ decimal.Decimal, err error) {
	ctx, done := s.in.start(ctx, "CalculatePendingAmount", attribute.Int("payable.id", id))
	defer done(&err)

	p, err := s.store.GetPayable(ctx, id)
	if err != nil {
		return decimal.Zero, notFound(err, apperror.PaymentNotFound(id))
	}
	return p.PendingAmount(), nil
}

func (s *financialService) GetOverduePayables(ctx context.Context) (_ []Payable, err error) {
	ctx, done := s.in.start(ctx, "GetOverduePayables")
	defer done(&err)

	now := s.now()
	payables, err := s.store.ListPayables(ctx, PayableFilter{Status: PayablePending, DueBefore: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue payables: %w", err)
	}
	return payables, nil
}

// ── Receivables ───────────────────────────────────────────────────────────────

func (s *financialService) ListReceivables(ctx context.Context, f ReceivableFilter) (_ []Receivable, err error) {
	ctx, done := s.in.start(ctx, "ListReceivables")
	defer done(&err)

	receivables, err := s.store.ListReceivables(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivables: %w", err)
	}
	return receivables, nil
}

func (s *financialService) GetReceivable(ctx context.Context, id int) (_ *Receivable, err error) {
	ctx, done := s.in.start(ctx, "GetReceivable", attribute.Int("receivable.id", id))
	defer done(&err)

	r, err := s.store.GetReceivable(ctx, id)
	if err != nil {
		return nil, notFound(err, apperror.PaymentNotFound(id))
	}
	return r, nil
}

func (s *financialService) CreateReceivable(ctx context.Context, in CreateReceivableInput) (_ *Receivable, err error) {
	ctx, done := s.in.start(ctx, "CreateReceivable")
	defer done(&err)

	v := apperror.NewValidation("Dados da conta a receber inválidos")
	validateAmount(v, "amount", in.Amount)
	if strings.TrimSpace(in.CustomerName) == "" {
		v.Add("customerName", "O campo 'customerName' é obrigatório")
	}
	if in.DueDate.IsZero() {
		v.Add("dueDate", "O campo 'dueDate' é obrigatório")
	}
	if v.HasErrors() {
		return nil, v
	}

	r := Receivable{
		CustomerName:   strings.TrimSpace(in.CustomerName),
		Description:    strings.TrimSpace(in.Description),
		Amount:         in.Amount,
		ReceivedAmount: decimal.Zero,
		Status:         ReceivablePending,
		DueDate:        in.DueDate,
		PaymentMethod:  in.PaymentMethod,
		Observations:   in.Observations,
	}
	if err := s.store.CreateReceivable(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to insert receivable: %w", err)
	}

	s.in.logger.InfoContext(ctx, "receivable created", "receivable_id", r.ID, "amount", r.Amount.String())
	return &r, nil
}

func (s *financialService) MarkReceivableAsReceived(ctx context.Context, in PaymentInput) (_ *Receivable, err error) {
	ctx, done := s.in.start(ctx, "MarkReceivableAsReceived", attribute.Int("receivable.id", in.ID))
	defer done(&err)

	if in.PaidAmount.IsNegative() {
		return nil, apperror.OutOfRange("paidAmount", 0, nil, in.PaidAmount.String())
	}

	var updated *Receivable
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		r, err := repo.GetReceivable(ctx, in.ID)
		if err != nil {
			return notFound(err, apperror.PaymentNotFound(in.ID))
		}
		switch r.Status {
		case ReceivableReceived:
			return apperror.PaymentAlreadyPaid(r.ID)
		case ReceivableCancelled:
			return apperror.PaymentAlreadyCancelled(r.ID)
		}

		received, err := settleAmount(in.PaidAmount, r.PendingAmount())
		if err != nil {
			return err
		}

		receivedAt := s.now()
		if in.PaidAt != nil {
			receivedAt = *in.PaidAt
		}
		r.ReceivedAmount = r.ReceivedAmount.Add(received)
		r.Status = ReceivableReceived
		r.ReceivedAt = &receivedAt
		if in.PaymentMethod != "" {
			r.PaymentMethod = in.PaymentMethod
		}
		if err := repo.UpdateReceivable(ctx, r); err != nil {
			return fmt.Errorf("failed to update receivable: %w", err)
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "receivable received", "receivable_id", updated.ID,
		"received_amount", updated.ReceivedAmount.String())
	return updated, nil
}

func (s *financialService) CancelReceivable(ctx context.Context, id int, reason string) (_ *Receivable, err error) {
	ctx, done := s.in.start(ctx, "CancelReceivable", attribute.Int("receivable.id", id))
	defer done(&err)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Required("reason")
	}

	var updated *Receivable
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		r, err := repo.GetReceivable(ctx, id)
		if err != nil {
			return notFound(err, apperror.PaymentNotFound(id))
		}
		switch r.Status {
		case ReceivableReceived:
			return apperror.InvalidStatusTransition("Conta a receber", string(r.Status), string(ReceivableCancelled))
		case ReceivableCancelled:
			return apperror.PaymentAlreadyCancelled(r.ID)
		}

		r.Status = ReceivableCancelled
		r.Observations = cancelNote(reason)
		if err := repo.UpdateReceivable(ctx, r); err != nil {
			return fmt.Errorf("failed to update receivable: %w", err)
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "receivable cancelled", "receivable_id", id)
	return updated, nil
}

func (s *financialService) CalculateReceivablePendingAmount(ctx context.Context, id int) (_ decimal.Decimal, err error) {
	ctx, done := s.in.start(ctx, "CalculateReceivablePendingAmount", attribute.Int("receivable.id", id))
	defer done(&err)

	r, err := s.store.GetReceivable(ctx, id)
	if err != nil {
		return decimal.Zero, notFound(err, apperror.PaymentNotFound(id))
	}
	return r.PendingAmount(), nil
}

func (s *financialService) GetOverdueReceivables(ctx context.Context) (_ []Receivable, err error) {
	ctx, done := s.in.start(ctx, "GetOverdueReceivables")
	defer done(&err)

	now := s.now()
	receivables, err := s.store.ListReceivables(ctx, ReceivableFilter{Status: ReceivablePending, DueBefore: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue receivables: %w", err)
	}
	return receivables, nil
}

// ── Cash flow ─────────────────────────────────────────────────────────────────

func (s *financialService) GetCashFlowSummary(ctx context.Context) (_ *CashFlowSummary, err error) {
	ctx, done := s.in.start(ctx, "GetCashFlowSummary")
	defer done(&err)

	stats, err := s.store.GetDashboardStats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}

	// TODO: aggregate receivables once the dashboard read exposes them; until then they stay zero.
	summary := &CashFlowSummary{
		TotalPayables:         stats.PendingPayablesTotal,
		OverduePayables:       stats.OverduePayablesTotal,
		PayablesNext30Days:    stats.PayablesNext30Days,
		PendingPayablesCount:  stats.PendingPayablesCount,
		OverduePayablesCount:  stats.OverduePayablesCount,
		TotalReceivables:      decimal.Zero,
		OverdueReceivables:    decimal.Zero,
		ReceivablesNext30Days: decimal.Zero,
	}
	summary.ProjectedBalance = summary.TotalReceivables.Sub(summary.TotalPayables)
	return summary, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func validateAmount(v *apperror.ValidationError, field string, amount decimal.Decimal) {
	if amount.IsPositive() {
		return
	}
	v.AddFieldError(apperror.FieldError{
		Field:      field,
		Message:    fmt.Sprintf("O campo '%s' deve ser maior que zero", field),
		Value:      amount.String(),
		Constraint: "gt:0",
	})
}

// settleAmount resolves the amount to settle: zero means the whole pending amount.
func settleAmount(requested, pending decimal.Decimal) (decimal.Decimal, error) {
	if requested.IsZero() {
		return pending, nil
	}
	if requested.GreaterThan(pending) {
		return decimal.Zero, apperror.NewValidation("Valor pago excede o valor pendente", apperror.FieldError{
			Field:      "paidAmount",
			Message:    fmt.Sprintf("O valor pago (%s) excede o valor pendente (%s)", requested, pending),
			Value:      requested.String(),
			Constraint: "max:" + pending.String(),
		})
	}
	return requested, nil
}

func cancelNote(reason string) string {
	return "CANCELADO: " + reason
}
