package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"coconut-erp/internal/core"
)

// analysisWizard runs an interactive quality analysis entry session.
// Each parameter's result is derived from its bounds.
func (s *session) analysisWizard(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: /analysis <type> [reference-type reference-id]")
		return nil
	}
	in := core.CreateAnalysisInput{AnalysisType: args[0], AnalyzedBy: s.user}
	if len(args) >= 3 {
		refID, err := intArg(args, 2, "/analysis <type> [reference-type reference-id]")
		if err != nil {
			return err
		}
		in.ReferenceType = args[1]
		in.ReferenceID = &refID
	}

	fmt.Fprintf(s.out, "Recording %s analysis.\n", in.AnalysisType)
	fmt.Fprintln(s.out, "Enter parameters. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(s.out, "Format per line: <name> <value> [min] [max]   (use - to skip a bound)")
	fmt.Fprintln(s.out, "  Example: pH 5.1 4.5 5.5")
	fmt.Fprintln(s.out, "  Example: Brix 6.2 5 -")

	lineNum := 1
	for {
		raw := s.prompt(fmt.Sprintf("  Parameter %d: ", lineNum))
		switch strings.ToLower(raw) {
		case "cancel":
			fmt.Fprintln(s.out, "Analysis cancelled.")
			return nil
		case "done":
			return s.submitAnalysis(ctx, in)
		case "":
			continue
		}

		p, err := parseParameter(raw)
		if err != nil {
			fmt.Fprintf(s.out, "  %v\n", err)
			continue
		}
		in.Parameters = append(in.Parameters, p)
		fmt.Fprintf(s.out, "  -> %s %s\n", p.Name, p.Result)
		lineNum++
	}
}

func (s *session) submitAnalysis(ctx context.Context, in core.CreateAnalysisInput) error {
	if len(in.Parameters) == 0 {
		fmt.Fprintln(s.out, "No parameters entered. Analysis cancelled.")
		return nil
	}
	res, err := s.app.Quality.CreateAnalysis(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Analysis %d recorded: %s\n", res.ID, res.Result)
	if res.NCID != nil {
		nc, err := s.app.Quality.GetNC(ctx, *res.NCID)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Non-conformity %s opened (id %d).\n", nc.NCNumber, nc.ID)
	}
	return nil
}

func parseParameter(raw string) (core.AnalysisParameterInput, error) {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return core.AnalysisParameterInput{}, fmt.Errorf("invalid format, use: <name> <value> [min] [max]")
	}
	value, err := decimal.NewFromString(parts[1])
	if err != nil {
		return core.AnalysisParameterInput{}, fmt.Errorf("invalid value %q", parts[1])
	}
	p := core.AnalysisParameterInput{Name: parts[0], Value: &value}

	bound := func(i int) (*decimal.Decimal, error) {
		if i >= len(parts) || parts[i] == "-" {
			return nil, nil
		}
		d, err := decimal.NewFromString(parts[i])
		if err != nil {
			return nil, fmt.Errorf("invalid bound %q", parts[i])
		}
		return &d, nil
	}
	if p.Min, err = bound(2); err != nil {
		return core.AnalysisParameterInput{}, err
	}
	if p.Max, err = bound(3); err != nil {
		return core.AnalysisParameterInput{}, err
	}
	if p.Min != nil && p.Max != nil && p.Min.GreaterThan(*p.Max) {
		return core.AnalysisParameterInput{}, fmt.Errorf("min %s is greater than max %s", p.Min, p.Max)
	}

	p.Result = core.Conforming
	if (p.Min != nil && value.LessThan(*p.Min)) || (p.Max != nil && value.GreaterThan(*p.Max)) {
		p.Result = core.NonConforming
	}
	return p, nil
}
