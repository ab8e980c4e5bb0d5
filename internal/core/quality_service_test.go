package core_test

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"testing"
	"time"

	"coconut-erp/internal/apperror"
	"coconut-erp/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func param(name, value string, result core.ParameterResult) core.AnalysisParameterInput {
	return core.AnalysisParameterInput{Name: name, Value: decPtr(value), Result: result}
}

func TestQuality_AnalysisResultAggregation(t *testing.T) {
	svc, ctx := setup(t)

	res, err := svc.quality.CreateAnalysis(ctx, core.CreateAnalysisInput{
		AnalysisType: "fisico-quimica",
		Parameters: []core.AnalysisParameterInput{
			param("brix", "6.2", core.Conforming),
			param("ph", "4.1", core.NonConforming),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, core.NonConforming, res.Result)
	require.NotNil(t, res.NCID)

	ncs, err := svc.quality.ListNCs(ctx, core.NCFilter{AnalysisID: res.ID})
	require.NoError(t, err)
	require.Len(t, ncs, 1)
	assert.Equal(t, *res.NCID, ncs[0].ID)
	assert.Equal(t, core.NCOpen, ncs[0].Status)
	assert.Contains(t, ncs[0].Description, "ph")

	res, err = svc.quality.CreateAnalysis(ctx, core.CreateAnalysisInput{
		AnalysisType: "sensorial",
		Parameters: []core.AnalysisParameterInput{
			param("sabor", "1", core.Conforming),
			param("odor", "1", core.Conforming),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, core.Conforming, res.Result)
	assert.Nil(t, res.NCID)

	all, err := svc.quality.ListNCs(ctx, core.NCFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "a conforming analysis must not open an NC")

	stored, err := svc.quality.GetAnalysis(ctx, res.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Parameters, 2)
}

func TestQuality_AnalysisValidation(t *testing.T) {
	svc, ctx := setup(t)

	tests := []struct {
		name   string
		params []core.AnalysisParameterInput
		field  string
	}{
		{"no parameters", nil, "parameters"},
		{"missing name", []core.AnalysisParameterInput{param("", "1", core.Conforming)}, "parameters[0].name"},
		{"missing value", []core.AnalysisParameterInput{{Name: "ph", Result: core.Conforming}}, "parameters[0].value"},
		{"bad result", []core.AnalysisParameterInput{param("ph", "1", "talvez")}, "parameters[0].result"},
		{
			"out of bounds marked conforme",
			[]core.AnalysisParameterInput{{Name: "ph", Value: decPtr("7.5"), Min: decPtr("4"), Max: decPtr("6"), Result: core.Conforming}},
			"parameters[0].result",
		},
		{
			"within bounds marked nao_conforme",
			[]core.AnalysisParameterInput{
				param("brix", "5", core.Conforming),
				{Name: "ph", Value: decPtr("5"), Min: decPtr("4"), Max: decPtr("6"), Result: core.NonConforming},
			},
			"parameters[1].result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.quality.CreateAnalysis(ctx, core.CreateAnalysisInput{AnalysisType: "fq", Parameters: tt.params})
			requireValidation(t, err, tt.field)
		})
	}

	// Every invalid parameter is reported at once.
	_, err := svc.quality.CreateAnalysis(ctx, core.CreateAnalysisInput{
		AnalysisType: "fq",
		Parameters: []core.AnalysisParameterInput{
			{Name: "", Result: core.Conforming},
			{Name: "ph", Value: decPtr("9"), Max: decPtr("6"), Result: core.Conforming},
		},
	})
	ve := requireValidation(t, err, "")
	assert.Len(t, ve.FieldErrors, 3)

	analyses, err := svc.quality.ListAnalyses(ctx, core.AnalysisFilter{})
	require.NoError(t, err)
	assert.Empty(t, analyses)

	// Bounds that agree with the result pass, including open-ended ones.
	res, err := svc.quality.CreateAnalysis(ctx, core.CreateAnalysisInput{
		AnalysisType: "fq",
		Parameters: []core.AnalysisParameterInput{
			{Name: "umidade", Value: decPtr("12"), Max: decPtr("10"), Result: core.NonConforming},
			{Name: "ph", Value: decPtr("4"), Min: decPtr("4"), Max: decPtr("6"), Result: core.Conforming},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, core.NonConforming, res.Result)
}

func TestQuality_CreateNC(t *testing.T) {
	svc, ctx := setup(t)

	_, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "  "})
	ve := requireValidation(t, err, "title")
	assert.True(t, ve.HasErrorForField("description"))

	_, err = svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "x", Description: "y", Severity: "gigante"})
	requireValidation(t, err, "severity")

	pattern := regexp.MustCompile(fmt.Sprintf(`^NC-%d-\d{6}$`, time.Now().Year()))
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		nc, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "Corpo estranho", Description: "fragmento de casca"})
		require.NoError(t, err)
		assert.Regexp(t, pattern, nc.NCNumber)
		assert.False(t, seen[nc.NCNumber], "duplicate NC number %s", nc.NCNumber)
		seen[nc.NCNumber] = true
		assert.Equal(t, core.SeverityMedium, nc.Severity)
	}
}

func TestQuality_NCLifecycle(t *testing.T) {
	svc, ctx := setup(t)
	newNC := func() int {
		nc, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "Temperatura", Description: "câmara fria acima de 5°C"})
		require.NoError(t, err)
		return nc.ID
	}
	resolve := core.ResolveNCInput{RootCause: "compressor", CorrectiveAction: "troca do compressor"}

	id := newNC()
	nc, err := svc.quality.StartNCAnalysis(ctx, id, "ana")
	require.NoError(t, err)
	assert.Equal(t, core.NCInAnalysis, nc.Status)
	assert.Equal(t, "ana", nc.AssignedTo)

	nc, err = svc.quality.ResolveNC(ctx, id, resolve)
	require.NoError(t, err)
	assert.Equal(t, core.NCVerification, nc.Status)
	assert.Equal(t, "compressor", nc.RootCause)
	assert.Len(t, svc.store.CorrectiveActions(id), 1)

	nc, err = svc.quality.CloseNC(ctx, id, "gerente")
	require.NoError(t, err)
	assert.Equal(t, core.NCClosed, nc.Status)
	require.NotNil(t, nc.ClosedAt)
	assert.Equal(t, "gerente", nc.ClosedBy)

	_, err = svc.quality.StartNCAnalysis(ctx, id, "ana")
	requireRule(t, err, apperror.RuleInvalidStatusTransition)

	// Through acao_corretiva.
	id = newNC()
	_, err = svc.quality.StartNCAnalysis(ctx, id, "")
	require.NoError(t, err)
	nc, err = svc.quality.StartCorrectiveAction(ctx, id, "joão")
	require.NoError(t, err)
	assert.Equal(t, core.NCCorrectiveAction, nc.Status)
	nc, err = svc.quality.ResolveNC(ctx, id, resolve)
	require.NoError(t, err)
	assert.Equal(t, core.NCVerification, nc.Status)
	assert.Equal(t, "joão", svc.store.CorrectiveActions(id)[0].Responsible)

	_, err = svc.quality.ResolveNC(ctx, newNC(), core.ResolveNCInput{RootCause: "x"})
	requireValidation(t, err, "correctiveAction")

	_, err = svc.quality.CloseNC(ctx, 9999, "")
	requireNotFound(t, err)
}

func TestQuality_OnlyDocumentedTransitionsSucceed(t *testing.T) {
	targets := []core.NCStatus{core.NCInAnalysis, core.NCCorrectiveAction, core.NCVerification, core.NCClosed}
	// paths reach each state from aberta through valid moves.
	paths := map[core.NCStatus][]core.NCStatus{
		core.NCOpen:             nil,
		core.NCInAnalysis:       {core.NCInAnalysis},
		core.NCCorrectiveAction: {core.NCInAnalysis, core.NCCorrectiveAction},
		core.NCVerification:     {core.NCInAnalysis, core.NCVerification},
		core.NCClosed:           {core.NCInAnalysis, core.NCVerification, core.NCClosed},
	}

	allowed := map[core.NCStatus][]core.NCStatus{
		"aberta":         {"em_analise"},
		"em_analise":     {"acao_corretiva", "verificacao"},
		"acao_corretiva": {"verificacao"},
		"verificacao":    {"fechada"},
	}

	for from, path := range paths {
		for _, target := range targets {
			t.Run(fmt.Sprintf("%s to %s", from, target), func(t *testing.T) {
				svc, ctx := setup(t)
				nc, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "t", Description: "d"})
				require.NoError(t, err)
				for _, step := range path {
					require.NoError(t, moveNC(ctx, svc.quality, nc.ID, step))
				}

				err = moveNC(ctx, svc.quality, nc.ID, target)
				if slices.Contains(allowed[from], target) {
					require.NoError(t, err)
					got, err := svc.quality.GetNC(ctx, nc.ID)
					require.NoError(t, err)
					assert.Equal(t, target, got.Status)
					return
				}
				requireRule(t, err, apperror.RuleInvalidStatusTransition)
				got, err := svc.quality.GetNC(ctx, nc.ID)
				require.NoError(t, err)
				assert.Equal(t, from, got.Status, "status must not change on a rejected transition")
			})
		}
	}
}

func TestQuality_SkippingStatusesIsRejected(t *testing.T) {
	cases := []struct {
		path   []core.NCStatus
		target core.NCStatus
	}{
		{nil, core.NCVerification},
		{nil, core.NCClosed},
		{[]core.NCStatus{core.NCInAnalysis}, core.NCClosed},
		{[]core.NCStatus{core.NCInAnalysis, core.NCCorrectiveAction}, core.NCClosed},
	}
	for _, tc := range cases {
		svc, ctx := setup(t)
		nc, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "t", Description: "d"})
		require.NoError(t, err)
		for _, step := range tc.path {
			require.NoError(t, moveNC(ctx, svc.quality, nc.ID, step))
		}
		before, err := svc.quality.GetNC(ctx, nc.ID)
		require.NoError(t, err)

		err = moveNC(ctx, svc.quality, nc.ID, tc.target)
		requireRule(t, err, apperror.RuleInvalidStatusTransition)

		got, err := svc.quality.GetNC(ctx, nc.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Status, got.Status, "%s to %s", before.Status, tc.target)
		assert.Nil(t, got.ClosedAt)
	}
}

func moveNC(ctx context.Context, svc core.QualityService, id int, target core.NCStatus) error {
	var err error
	switch target {
	case core.NCInAnalysis:
		_, err = svc.StartNCAnalysis(ctx, id, "qa")
	case core.NCCorrectiveAction:
		_, err = svc.StartCorrectiveAction(ctx, id, "qa")
	case core.NCVerification:
		_, err = svc.ResolveNC(ctx, id, core.ResolveNCInput{RootCause: "rc", CorrectiveAction: "ca"})
	case core.NCClosed:
		_, err = svc.CloseNC(ctx, id, "qa")
	}
	return err
}

func TestQuality_Metrics(t *testing.T) {
	svc, ctx := setup(t)

	m, err := svc.quality.GetQualityMetrics(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.ApprovalRate)
	assert.Equal(t, 0.0, m.AvgResolutionTime)

	for _, r := range []core.ParameterResult{core.Conforming, core.Conforming, core.NonConforming} {
		_, err := svc.quality.CreateAnalysis(ctx, core.CreateAnalysisInput{
			AnalysisType: "fq", Parameters: []core.AnalysisParameterInput{param("ph", "5", r)},
		})
		require.NoError(t, err)
	}

	// An NC created two days ago and closed now resolves in 2.0 days.
	svc.store.SetClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
	old, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	svc.store.SetClock(time.Now)
	for _, step := range []core.NCStatus{core.NCInAnalysis, core.NCVerification, core.NCClosed} {
		require.NoError(t, moveNC(ctx, svc.quality, old.ID, step))
	}

	inAnalysis, err := svc.quality.CreateNC(ctx, core.CreateNCInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	require.NoError(t, moveNC(ctx, svc.quality, inAnalysis.ID, core.NCInAnalysis))

	m, err = svc.quality.GetQualityMetrics(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalAnalyses)
	assert.Equal(t, 2, m.ApprovedAnalyses)
	assert.Equal(t, 1, m.RejectedAnalyses)
	assert.Equal(t, 66.67, m.ApprovalRate)
	// the auto-opened NC (aberta) and inAnalysis (em_analise)
	assert.Equal(t, 2, m.OpenNCs)
	assert.Equal(t, 2.0, m.AvgResolutionTime)

	from := time.Now().Add(-time.Hour)
	m, err = svc.quality.GetQualityMetrics(ctx, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalAnalyses)
	assert.Equal(t, 0.0, m.AvgResolutionTime, "the closed NC was created before the window")

	end := from.Add(-time.Hour)
	_, err = svc.quality.GetQualityMetrics(ctx, &from, &end)
	requireValidation(t, err, "endDate")
}

func TestQuality_ProducerScoresAndGrades(t *testing.T) {
	svc, ctx := setup(t)
	grade := func(g string) *string { return &g }

	a := createProducer(t, ctx, svc.store, "Alfa")
	b := createProducer(t, ctx, svc.store, "Beta")
	c := createProducer(t, ctx, svc.store, "Gama")

	loads := []core.Load{
		{ProducerID: a.ID, Status: core.LoadClosed, QualityGrade: grade("A")},
		{ProducerID: a.ID, Status: core.LoadClosed, QualityGrade: grade("B")},
		{ProducerID: a.ID, Status: core.LoadOpen},
		{ProducerID: a.ID, Status: core.LoadClosed, QualityGrade: grade("A")},
		{ProducerID: b.ID, Status: core.LoadClosed, QualityGrade: grade("C")},
		{ProducerID: b.ID, Status: core.LoadClosed, QualityGrade: grade("D")},
	}
	for i := range loads {
		require.NoError(t, svc.store.CreateLoad(ctx, &loads[i]))
	}

	scores, err := svc.quality.GetProducerQualityScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, b.ID, scores[0].ProducerID)
	assert.Equal(t, 100.0, scores[0].QualityScore)
	assert.Equal(t, "C", scores[0].AvgGrade) // (2+1)/2 = 1.5

	assert.Equal(t, a.ID, scores[1].ProducerID)
	assert.Equal(t, 75.0, scores[1].QualityScore)
	assert.Equal(t, "A", scores[1].AvgGrade) // (4+3+4)/3 = 3.67

	assert.Equal(t, c.ID, scores[2].ProducerID)
	assert.Equal(t, 0.0, scores[2].QualityScore)
	assert.Empty(t, scores[2].AvgGrade)

	dist, err := svc.quality.GetGradeDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.GradeDistribution{A: 2, B: 1, C: 1, D: 1, Total: 5}, *dist)
}
