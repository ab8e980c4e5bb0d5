package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"coconut-erp/internal/apperror"

	"go.opentelemetry.io/otel/attribute"
)

// QualityService records quality analyses and drives non-conformities through their workflow:
//
//	aberta → em_analise → acao_corretiva → verificacao → fechada
//	                    ↘─────────────────↗
//
// Any other transition fails with an INVALID_STATUS_TRANSITION business error.
type QualityService interface {
	// CreateAnalysis stores an analysis and, when any parameter is nao_conforme,
	// opens one NC referencing it in the same transaction.
	CreateAnalysis(ctx context.Context, in CreateAnalysisInput) (*AnalysisResult, error)
	GetAnalysis(ctx context.Context, id int) (*QualityAnalysis, error)
	ListAnalyses(ctx context.Context, f AnalysisFilter) ([]QualityAnalysis, error)

	CreateNC(ctx context.Context, in CreateNCInput) (*NonConformity, error)
	GetNC(ctx context.Context, id int) (*NonConformity, error)
	ListNCs(ctx context.Context, f NCFilter) ([]NonConformity, error)
	StartNCAnalysis(ctx context.Context, id int, assignedTo string) (*NonConformity, error)
	StartCorrectiveAction(ctx context.Context, id int, responsible string) (*NonConformity, error)
	// ResolveNC records the corrective action and moves the NC to verificacao.
	ResolveNC(ctx context.Context, id int, in ResolveNCInput) (*NonConformity, error)
	CloseNC(ctx context.Context, id int, closedBy string) (*NonConformity, error)

	GetQualityMetrics(ctx context.Context, start, end *time.Time) (*QualityMetrics, error)
	GetProducerQualityScores(ctx context.Context) ([]ProducerQualityScore, error)
	GetGradeDistribution(ctx context.Context) (*GradeDistribution, error)
}

var ncTransitions = map[NCStatus][]NCStatus{
	NCOpen:             {NCInAnalysis},
	NCInAnalysis:       {NCCorrectiveAction, NCVerification},
	NCCorrectiveAction: {NCVerification},
	NCVerification:     {NCClosed},
}

// CanTransition reports whether an NC may move from s to target.
func (s NCStatus) CanTransition(target NCStatus) bool {
	for _, next := range ncTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

var gradeValues = map[string]float64{"A": 4, "B": 3, "C": 2, "D": 1}

type qualityService struct {
	store Store
	in    instrument
	now   func() time.Time
}

func NewQualityService(store Store, logger *slog.Logger, metrics MetricsCollector) QualityService {
	return &qualityService{
		store: store,
		in:    newInstrument("QualityService", logger, metrics),
		now:   time.Now,
	}
}

// ── Analyses ──────────────────────────────────────────────────────────────────

func (s *qualityService) CreateAnalysis(ctx context.Context, in CreateAnalysisInput) (_ *AnalysisResult, err error) {
	ctx, done := s.in.start(ctx, "CreateAnalysis", attribute.String("analysis.type", in.AnalysisType))
	defer done(&err)

	params, err := validateAnalysis(in)
	if err != nil {
		return nil, err
	}

	analysis := QualityAnalysis{
		AnalysisType:  strings.TrimSpace(in.AnalysisType),
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Parameters:    params,
		Result:        Conforming,
		AnalyzedBy:    in.AnalyzedBy,
		Observations:  in.Observations,
	}
	var failed []string
	for _, p := range params {
		if p.Result == NonConforming {
			analysis.Result = NonConforming
			failed = append(failed, p.Name)
		}
	}

	result := &AnalysisResult{Result: analysis.Result}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.CreateAnalysis(ctx, &analysis); err != nil {
			return fmt.Errorf("failed to insert analysis: %w", err)
		}
		result.ID = analysis.ID
		if analysis.Result != NonConforming {
			return nil
		}

		analysisID := analysis.ID
		nc, err := s.createNCTx(ctx, repo, CreateNCInput{
			Title:         fmt.Sprintf("Análise %s não conforme", analysis.AnalysisType),
			Description:   "Parâmetros fora da especificação: " + strings.Join(failed, ", "),
			Severity:      SeverityMedium,
			ReferenceType: analysis.ReferenceType,
			ReferenceID:   analysis.ReferenceID,
			AnalysisID:    &analysisID,
		})
		if err != nil {
			return err
		}
		result.NCID = &nc.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "analysis recorded", "analysis_id", result.ID, "result", result.Result)
	return result, nil
}

// validateAnalysis checks every parameter and accumulates all field errors before failing.
// When a parameter declares bounds, its reported result must agree with them.
func validateAnalysis(in CreateAnalysisInput) ([]AnalysisParameter, error) {
	v := apperror.NewValidation("Análise de qualidade inválida")
	if strings.TrimSpace(in.AnalysisType) == "" {
		v.Add("analysisType", "O campo 'analysisType' é obrigatório")
	}
	if len(in.Parameters) == 0 {
		v.AddFieldError(apperror.FieldError{
			Field:      "parameters",
			Message:    "Informe ao menos um parâmetro",
			Constraint: "min_items:1",
		})
		return nil, v
	}

	params := make([]AnalysisParameter, 0, len(in.Parameters))
	for i, p := range in.Parameters {
		field := func(name string) string { return fmt.Sprintf("parameters[%d].%s", i, name) }

		if strings.TrimSpace(p.Name) == "" {
			v.Add(field("name"), "O nome do parâmetro é obrigatório")
		}
		if p.Value == nil {
			v.Add(field("value"), "O valor do parâmetro é obrigatório")
		}
		if p.Result != Conforming && p.Result != NonConforming {
			v.AddFieldError(apperror.FieldError{
				Field:      field("result"),
				Message:    "O resultado deve ser 'conforme' ou 'nao_conforme'",
				Value:      string(p.Result),
				Constraint: "enum:conforme,nao_conforme",
			})
		}
		if p.Min != nil && p.Max != nil && p.Min.GreaterThan(*p.Max) {
			v.Add(field("min"), "O mínimo não pode ser maior que o máximo")
		}
		if p.Value == nil || (p.Min == nil && p.Max == nil) {
			params = append(params, toParameter(p))
			continue
		}

		within := (p.Min == nil || p.Value.GreaterThanOrEqual(*p.Min)) &&
			(p.Max == nil || p.Value.LessThanOrEqual(*p.Max))
		switch {
		case !within && p.Result == Conforming:
			v.AddFieldError(apperror.FieldError{
				Field:      field("result"),
				Message:    fmt.Sprintf("Valor %s fora da faixa informado como conforme", p.Value),
				Value:      p.Value.String(),
				Constraint: boundsConstraint(p),
			})
		case within && p.Result == NonConforming:
			v.AddFieldError(apperror.FieldError{
				Field:      field("result"),
				Message:    fmt.Sprintf("Valor %s dentro da faixa informado como não conforme", p.Value),
				Value:      p.Value.String(),
				Constraint: boundsConstraint(p),
			})
		}
		params = append(params, toParameter(p))
	}

	if v.HasErrors() {
		return nil, v
	}
	return params, nil
}

func toParameter(p AnalysisParameterInput) AnalysisParameter {
	out := AnalysisParameter{
		Name:   strings.TrimSpace(p.Name),
		Unit:   p.Unit,
		Min:    p.Min,
		Max:    p.Max,
		Result: p.Result,
	}
	if p.Value != nil {
		out.Value = *p.Value
	}
	return out
}

func boundsConstraint(p AnalysisParameterInput) string {
	lo, hi := "-inf", "+inf"
	if p.Min != nil {
		lo = p.Min.String()
	}
	if p.Max != nil {
		hi = p.Max.String()
	}
	return "range:" + lo + ".." + hi
}

func (s *qualityService) GetAnalysis(ctx context.Context, id int) (_ *QualityAnalysis, err error) {
	ctx, done := s.in.start(ctx, "GetAnalysis", attribute.Int("analysis.id", id))
	defer done(&err)

	a, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, notFound(err, apperror.AnalysisNotFound(id))
	}
	return a, nil
}

func (s *qualityService) ListAnalyses(ctx context.Context, f AnalysisFilter) (_ []QualityAnalysis, err error) {
	ctx, done := s.in.start(ctx, "ListAnalyses")
	defer done(&err)

	analyses, err := s.store.ListAnalyses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}

// ── Non-conformities ──────────────────────────────────────────────────────────

func (s *qualityService) CreateNC(ctx context.Context, in CreateNCInput) (_ *NonConformity, err error) {
	ctx, done := s.in.start(ctx, "CreateNC")
	defer done(&err)

	var nc *NonConformity
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		nc, err = s.createNCTx(ctx, repo, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nc, nil
}

// createNCTx validates and inserts an NC through repo, numbering it from the store sequence.
func (s *qualityService) createNCTx(ctx context.Context, repo Repository, in CreateNCInput) (*NonConformity, error) {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, apperror.RequiredFields(missing...)
	}

	severity := in.Severity
	if severity == "" {
		severity = SeverityMedium
	}
	if !severity.valid() {
		return nil, apperror.InvalidFormat("severity", "baixa|media|alta|critica", string(severity))
	}

	seq, err := repo.NextNCSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate NC number: %w", err)
	}

	nc := &NonConformity{
		NCNumber:      formatNCNumber(s.now(), seq),
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Severity:      severity,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		AnalysisID:    in.AnalysisID,
		Status:        NCOpen,
	}
	if err := repo.CreateNC(ctx, nc); err != nil {
		return nil, fmt.Errorf("failed to insert non-conformity: %w", err)
	}

	s.in.logger.InfoContext(ctx, "non-conformity opened", "nc_id", nc.ID, "nc_number", nc.NCNumber)
	return nc, nil
}

// formatNCNumber renders NC-{year}-{seq:06d}.
func formatNCNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("NC-%d-%06d", at.Year(), seq)
}

func (s *qualityService) GetNC(ctx context.Context, id int) (_ *NonConformity, err error) {
	ctx, done := s.in.start(ctx, "GetNC", attribute.Int("nc.id", id))
	defer done(&err)

	nc, err := s.store.GetNC(ctx, id)
	if err != nil {
		return nil, notFound(err, apperror.NonConformityNotFound(id))
	}
	return nc, nil
}

func (s *qualityService) ListNCs(ctx context.Context, f NCFilter) (_ []NonConformity, err error) {
	ctx, done := s.in.start(ctx, "ListNCs")
	defer done(&err)

	ncs, err := s.store.ListNCs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list non-conformities: %w", err)
	}
	return ncs, nil
}

func (s *qualityService) StartNCAnalysis(ctx context.Context, id int, assignedTo string) (_ *NonConformity, err error) {
	ctx, done := s.in.start(ctx, "StartNCAnalysis", attribute.Int("nc.id", id))
	defer done(&err)

	return s.transition(ctx, id, NCInAnalysis, func(_ context.Context, _ Repository, nc *NonConformity) error {
		if assignedTo = strings.TrimSpace(assignedTo); assignedTo != "" {
			nc.AssignedTo = assignedTo
		}
		return nil
	})
}

func (s *qualityService) StartCorrectiveAction(ctx context.Context, id int, responsible string) (_ *NonConformity, err error) {
	ctx, done := s.in.start(ctx, "StartCorrectiveAction", attribute.Int("nc.id", id))
	defer done(&err)

	return s.transition(ctx, id, NCCorrectiveAction, func(_ context.Context, _ Repository, nc *NonConformity) error {
		if responsible = strings.TrimSpace(responsible); responsible != "" {
			nc.AssignedTo = responsible
		}
		return nil
	})
}

func (s *qualityService) ResolveNC(ctx context.Context, id int, in ResolveNCInput) (_ *NonConformity, err error) {
	ctx, done := s.in.start(ctx, "ResolveNC", attribute.Int("nc.id", id))
	defer done(&err)

	var missing []string
	if strings.TrimSpace(in.RootCause) == "" {
		missing = append(missing, "rootCause")
	}
	if strings.TrimSpace(in.CorrectiveAction) == "" {
		missing = append(missing, "correctiveAction")
	}
	if len(missing) > 0 {
		return nil, apperror.RequiredFields(missing...)
	}

	return s.transition(ctx, id, NCVerification, func(ctx context.Context, repo Repository, nc *NonConformity) error {
		responsible := strings.TrimSpace(in.Responsible)
		if responsible == "" {
			responsible = nc.AssignedTo
		}
		ca := &CorrectiveAction{
			NonConformityID: nc.ID,
			RootCause:       strings.TrimSpace(in.RootCause),
			Action:          strings.TrimSpace(in.CorrectiveAction),
			Responsible:     responsible,
		}
		if err := repo.CreateCorrectiveAction(ctx, ca); err != nil {
			return fmt.Errorf("failed to insert corrective action: %w", err)
		}
		nc.RootCause = ca.RootCause
		nc.CorrectiveAction = ca.Action
		return nil
	})
}

func (s *qualityService) CloseNC(ctx context.Context, id int, closedBy string) (_ *NonConformity, err error) {
	ctx, done := s.in.start(ctx, "CloseNC", attribute.Int("nc.id", id))
	defer done(&err)

	return s.transition(ctx, id, NCClosed, func(_ context.Context, _ Repository, nc *NonConformity) error {
		closedAt := s.now()
		nc.ClosedAt = &closedAt
		nc.ClosedBy = strings.TrimSpace(closedBy)
		return nil
	})
}

// transition locks the NC, checks the move to target against ncTransitions, lets apply
// mutate it and persists it, all in one transaction.
func (s *qualityService) transition(ctx context.Context, id int, target NCStatus,
	apply func(ctx context.Context, repo Repository, nc *NonConformity) error) (*NonConformity, error) {

	var updated *NonConformity
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		nc, err := repo.GetNC(ctx, id)
		if err != nil {
			return notFound(err, apperror.NonConformityNotFound(id))
		}
		if !nc.Status.CanTransition(target) {
			return apperror.InvalidStatusTransition("Não conformidade", string(nc.Status), string(target))
		}

		from := nc.Status
		nc.Status = target
		if err := apply(ctx, repo, nc); err != nil {
			return err
		}
		if err := repo.UpdateNC(ctx, nc); err != nil {
			return fmt.Errorf("failed to update non-conformity: %w", err)
		}

		s.in.logger.InfoContext(ctx, "non-conformity status changed",
			"nc_id", nc.ID, "nc_number", nc.NCNumber, "from", from, "to", target)
		updated = nc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── Metrics ───────────────────────────────────────────────────────────────────

func (s *qualityService) GetQualityMetrics(ctx context.Context, start, end *time.Time) (_ *QualityMetrics, err error) {
	ctx, done := s.in.start(ctx, "GetQualityMetrics")
	defer done(&err)

	if start != nil && end != nil && end.Before(*start) {
		return nil, apperror.InvalidDate("endDate", end.Format(time.DateOnly))
	}

	analyses, err := s.store.ListAnalyses(ctx, AnalysisFilter{From: start, To: end})
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	ncs, err := s.store.ListNCs(ctx, NCFilter{From: start, To: end})
	if err != nil {
		return nil, fmt.Errorf("failed to list non-conformities: %w", err)
	}

	m := &QualityMetrics{TotalAnalyses: len(analyses)}
	for _, a := range analyses {
		if a.Result == Conforming {
			m.ApprovedAnalyses++
		} else {
			m.RejectedAnalyses++
		}
	}
	if m.TotalAnalyses > 0 {
		m.ApprovalRate = roundTo(float64(m.ApprovedAnalyses)/float64(m.TotalAnalyses)*100, 2)
	}

	var resolvedDays float64
	var resolved int
	for _, nc := range ncs {
		if nc.Status == NCOpen || nc.Status == NCInAnalysis {
			m.OpenNCs++
		}
		if nc.ClosedAt != nil {
			resolvedDays += nc.ClosedAt.Sub(nc.CreatedAt).Hours() / 24
			resolved++
		}
	}
	if resolved > 0 {
		m.AvgResolutionTime = roundTo(resolvedDays/float64(resolved), 1)
	}
	return m, nil
}

func (s *qualityService) GetProducerQualityScores(ctx context.Context) (_ []ProducerQualityScore, err error) {
	ctx, done := s.in.start(ctx, "GetProducerQualityScores")
	defer done(&err)

	producers, err := s.store.ListProducers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list producers: %w", err)
	}
	loads, err := s.store.ListLoads(ctx, LoadFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}

	byProducer := make(map[int][]Load, len(producers))
	for _, l := range loads {
		byProducer[l.ProducerID] = append(byProducer[l.ProducerID], l)
	}

	scores := make([]ProducerQualityScore, 0, len(producers))
	for _, p := range producers {
		score := ProducerQualityScore{ProducerID: p.ID, ProducerName: p.Name}
		var gradeSum float64
		var graded int
		for _, l := range byProducer[p.ID] {
			score.TotalLoads++
			if l.Status == LoadClosed {
				score.ClosedLoads++
			}
			if l.QualityGrade == nil {
				continue
			}
			if v, ok := gradeValues[strings.ToUpper(*l.QualityGrade)]; ok {
				gradeSum += v
				graded++
			}
		}
		if score.TotalLoads > 0 {
			score.QualityScore = roundTo(float64(score.ClosedLoads)/float64(score.TotalLoads)*100, 2)
		}
		if graded > 0 {
			score.AvgGrade = gradeFor(gradeSum / float64(graded))
		}
		scores = append(scores, score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].QualityScore > scores[j].QualityScore
	})
	return scores, nil
}

func gradeFor(avg float64) string {
	switch {
	case avg >= 3.5:
		return "A"
	case avg >= 2.5:
		return "B"
	case avg >= 1.5:
		return "C"
	default:
		return "D"
	}
}

func (s *qualityService) GetGradeDistribution(ctx context.Context) (_ *GradeDistribution, err error) {
	ctx, done := s.in.start(ctx, "GetGradeDistribution")
	defer done(&err)

	loads, err := s.store.ListLoads(ctx, LoadFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}

	d := &GradeDistribution{}
	for _, l := range loads {
		if l.QualityGrade == nil {
			continue
		}
		d.Total++
		switch strings.ToUpper(*l.QualityGrade) {
		case "A":
			d.A++
		case "B":
			d.B++
		case "C":
			d.C++
		case "D":
			d.D++
		}
	}
	return d, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
