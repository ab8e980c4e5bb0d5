package core_test

import (
	"errors"
	"testing"
	"time"

	"coconut-erp/internal/apperror"
	"coconut-erp/internal/core"
	"coconut-erp/internal/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFinancial_PayableLifecycle(t *testing.T) {
	svc, ctx := setup(t)
	producer := createProducer(t, ctx, svc.store, "Fazenda Coqueiral")

	p, err := svc.financial.CreatePayable(ctx, core.CreatePayableInput{
		ProducerID: producer.ID,
		Amount:     dec("1000"),
		DueDate:    time.Now().AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, core.PayablePending, p.Status)

	paid, err := svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: p.ID, PaidAmount: dec("1000"), PaymentMethod: "pix"})
	require.NoError(t, err)
	assert.Equal(t, core.PayablePaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	pending, err := svc.financial.CalculatePendingAmount(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, pending.IsZero(), "pending = %s", pending)

	_, err = svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: p.ID, PaidAmount: dec("1")})
	requireRule(t, err, apperror.RulePaymentAlreadyPaid)

	after, err := svc.financial.GetPayable(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PayablePaid, after.Status)
	assert.True(t, after.PaidAmount.Equal(dec("1000")))
	assert.Equal(t, "pix", after.PaymentMethod)
}

func TestFinancial_CreatePayableValidation(t *testing.T) {
	svc, ctx := setup(t)
	producer := createProducer(t, ctx, svc.store, "Sítio Palmeiras")
	due := time.Now().AddDate(0, 1, 0)

	tests := []struct {
		name  string
		input core.CreatePayableInput
		field string
	}{
		{"zero amount", core.CreatePayableInput{ProducerID: producer.ID, Amount: dec("0"), DueDate: due}, "amount"},
		{"negative amount", core.CreatePayableInput{ProducerID: producer.ID, Amount: dec("-5"), DueDate: due}, "amount"},
		{"missing due date", core.CreatePayableInput{ProducerID: producer.ID, Amount: dec("5")}, "dueDate"},
		{"unknown producer", core.CreatePayableInput{ProducerID: 999, Amount: dec("5"), DueDate: due}, "producerId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.financial.CreatePayable(ctx, tt.input)
			ve := requireValidation(t, err, tt.field)
			assert.Equal(t, 400, ve.StatusCode)
		})
	}

	// A missing producer is a validation failure, never a not-found.
	_, err := svc.financial.CreatePayable(ctx, core.CreatePayableInput{ProducerID: 999, Amount: dec("5"), DueDate: due})
	var nf *apperror.NotFoundError
	assert.False(t, errors.As(err, &nf))
}

func TestFinancial_MarkPaidAmounts(t *testing.T) {
	svc, ctx := setup(t)
	producer := createProducer(t, ctx, svc.store, "Coco Bom")
	newPayable := func() int {
		p, err := svc.financial.CreatePayable(ctx, core.CreatePayableInput{
			ProducerID: producer.ID, Amount: dec("500.50"), DueDate: time.Now(),
		})
		require.NoError(t, err)
		return p.ID
	}

	t.Run("exceeds pending", func(t *testing.T) {
		id := newPayable()
		_, err := svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: id, PaidAmount: dec("500.51")})
		requireValidation(t, err, "paidAmount")

		p, err := svc.financial.GetPayable(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.PayablePending, p.Status)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: newPayable(), PaidAmount: dec("-1")})
		requireValidation(t, err, "paidAmount")
	})

	t.Run("zero pays everything pending", func(t *testing.T) {
		p, err := svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: newPayable()})
		require.NoError(t, err)
		assert.True(t, p.PaidAmount.Equal(dec("500.50")))
	})

	t.Run("partial amount", func(t *testing.T) {
		id := newPayable()
		_, err := svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: id, PaidAmount: dec("200")})
		require.NoError(t, err)
		pending, err := svc.financial.CalculatePendingAmount(ctx, id)
		require.NoError(t, err)
		assert.True(t, pending.Equal(dec("300.50")))
	})

	t.Run("unknown payable", func(t *testing.T) {
		_, err := svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: 4242})
		requireNotFound(t, err)
	})
}

func TestFinancial_CancelPayable(t *testing.T) {
	svc, ctx := setup(t)
	producer := createProducer(t, ctx, svc.store, "Sítio Verde")
	create := func() *core.Payable {
		p, err := svc.financial.CreatePayable(ctx, core.CreatePayableInput{
			ProducerID: producer.ID, Amount: dec("80"), DueDate: time.Now(), Observations: "carga 12",
		})
		require.NoError(t, err)
		return p
	}

	p := create()
	cancelled, err := svc.financial.CancelPayable(ctx, p.ID, "carga devolvida")
	require.NoError(t, err)
	assert.Equal(t, core.PayableCancelled, cancelled.Status)
	assert.Equal(t, "CANCELADO: carga devolvida", cancelled.Observations)

	_, err = svc.financial.CancelPayable(ctx, p.ID, "de novo")
	requireRule(t, err, apperror.RulePaymentAlreadyCancelled)

	_, err = svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: p.ID})
	requireRule(t, err, apperror.RulePaymentAlreadyCancelled)

	paid := create()
	_, err = svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: paid.ID})
	require.NoError(t, err)
	_, err = svc.financial.CancelPayable(ctx, paid.ID, "engano")
	requireRule(t, err, apperror.RuleInvalidStatusTransition)

	_, err = svc.financial.CancelPayable(ctx, create().ID, "  ")
	requireValidation(t, err, "reason")
}

func TestFinancial_OverduePayables(t *testing.T) {
	svc, ctx := setup(t)
	producer := createProducer(t, ctx, svc.store, "Coqueiro Real")
	now := time.Now()

	overdue, err := svc.financial.CreatePayable(ctx, core.CreatePayableInput{ProducerID: producer.ID, Amount: dec("10"), DueDate: now.AddDate(0, 0, -3)})
	require.NoError(t, err)
	_, err = svc.financial.CreatePayable(ctx, core.CreatePayableInput{ProducerID: producer.ID, Amount: dec("20"), DueDate: now.AddDate(0, 0, 3)})
	require.NoError(t, err)
	overduePaid, err := svc.financial.CreatePayable(ctx, core.CreatePayableInput{ProducerID: producer.ID, Amount: dec("30"), DueDate: now.AddDate(0, 0, -1)})
	require.NoError(t, err)
	_, err = svc.financial.MarkPayableAsPaid(ctx, core.PaymentInput{ID: overduePaid.ID})
	require.NoError(t, err)

	list, err := svc.financial.GetOverduePayables(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, overdue.ID, list[0].ID)
}

func TestFinancial_ReceivableLifecycle(t *testing.T) {
	svc, ctx := setup(t)

	_, err := svc.financial.CreateReceivable(ctx, core.CreateReceivableInput{Amount: dec("10"), DueDate: time.Now()})
	requireValidation(t, err, "customerName")

	r, err := svc.financial.CreateReceivable(ctx, core.CreateReceivableInput{
		CustomerName: "Distribuidora Litoral", Amount: dec("2500"), DueDate: time.Now().AddDate(0, 0, -2),
	})
	require.NoError(t, err)

	overdue, err := svc.financial.GetOverdueReceivables(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	_, err = svc.financial.MarkReceivableAsReceived(ctx, core.PaymentInput{ID: r.ID, PaidAmount: dec("3000")})
	requireValidation(t, err, "paidAmount")

	got, err := svc.financial.MarkReceivableAsReceived(ctx, core.PaymentInput{ID: r.ID, PaidAmount: dec("2500")})
	require.NoError(t, err)
	assert.Equal(t, core.ReceivableReceived, got.Status)

	pending, err := svc.financial.CalculateReceivablePendingAmount(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	_, err = svc.financial.MarkReceivableAsReceived(ctx, core.PaymentInput{ID: r.ID})
	requireRule(t, err, apperror.RulePaymentAlreadyPaid)

	_, err = svc.financial.CancelReceivable(ctx, r.ID, "cliente desistiu")
	requireRule(t, err, apperror.RuleInvalidStatusTransition)

	other, err := svc.financial.CreateReceivable(ctx, core.CreateReceivableInput{
		CustomerName: "Mercado Sol", Amount: dec("40"), DueDate: time.Now(),
	})
	require.NoError(t, err)
	cancelled, err := svc.financial.CancelReceivable(ctx, other.ID, "cliente desistiu")
	require.NoError(t, err)
	assert.Equal(t, "CANCELADO: cliente desistiu", cancelled.Observations)

	list, err := svc.financial.ListReceivables(ctx, core.ReceivableFilter{Status: core.ReceivableCancelled})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFinancial_CashFlowSummary(t *testing.T) {
	svc, ctx := setup(t)
	producer := createProducer(t, ctx, svc.store, "Fazenda Norte")
	now := time.Now()

	for _, in := range []core.CreatePayableInput{
		{ProducerID: producer.ID, Amount: dec("100"), DueDate: now.AddDate(0, 0, -5)},
		{ProducerID: producer.ID, Amount: dec("200"), DueDate: now.AddDate(0, 0, 10)},
		{ProducerID: producer.ID, Amount: dec("400"), DueDate: now.AddDate(0, 0, 60)},
	} {
		_, err := svc.financial.CreatePayable(ctx, in)
		require.NoError(t, err)
	}
	_, err := svc.financial.CreateReceivable(ctx, core.CreateReceivableInput{CustomerName: "X", Amount: dec("999"), DueDate: now})
	require.NoError(t, err)

	s, err := svc.financial.GetCashFlowSummary(ctx)
	require.NoError(t, err)
	assert.True(t, s.TotalPayables.Equal(dec("700")), "total %s", s.TotalPayables)
	assert.True(t, s.OverduePayables.Equal(dec("100")))
	assert.True(t, s.PayablesNext30Days.Equal(dec("200")))
	assert.Equal(t, 3, s.PendingPayablesCount)
	assert.Equal(t, 1, s.OverduePayablesCount)
	assert.True(t, s.TotalReceivables.IsZero())
	assert.True(t, s.OverdueReceivables.IsZero())
	assert.True(t, s.ReceivablesNext30Days.IsZero())
	assert.True(t, s.ProjectedBalance.Equal(dec("-700")))
}

func TestFinancial_ReportsMetrics(t *testing.T) {
	m := &mockMetrics{}
	m.On("RecordOperation", "FinancialService", "MarkPayableAsPaid", "error", mock.AnythingOfType("float64")).Return().Once()
	m.On("IncrementErrorCounter", apperror.CodeNotFound).Return().Once()

	store := memstore.New()
	svc := core.NewFinancialService(store, quietLogger(), m)
	_, err := svc.MarkPayableAsPaid(t.Context(), core.PaymentInput{ID: 1})
	requireNotFound(t, err)

	m.AssertExpectations(t)
}
