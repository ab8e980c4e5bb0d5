package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"coconut-erp/internal/app"
	"coconut-erp/internal/core"
)

const usage = "Available: low-stock, expiring [days], overdue, cash-flow, quality [start] [end]"

// Run executes a one-shot CLI command and writes its report to out.
// args is os.Args[1:]; the first element is the subcommand name.
// A trailing --json flag prints the raw result instead of a table.
func Run(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	args, asJSON := stripFlag(args, "--json")
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	switch args[0] {
	case "low-stock", "low":
		alerts, err := a.Reports.LowStock(ctx)
		if err != nil {
			return fmt.Errorf("failed to load low stock alerts: %w", err)
		}
		if asJSON {
			return printJSON(out, alerts)
		}
		printLowStock(out, alerts)

	case "expiring", "exp":
		days := 30
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid days %q: %w", args[1], err)
			}
			days = n
		}
		batches, err := a.Reports.Expiring(ctx, days)
		if err != nil {
			return fmt.Errorf("failed to load expiring batches: %w", err)
		}
		if asJSON {
			return printJSON(out, batches)
		}
		printExpiring(out, days, batches)

	case "overdue", "od":
		res, err := a.Reports.Overdue(ctx)
		if err != nil {
			return fmt.Errorf("failed to load overdue titles: %w", err)
		}
		if asJSON {
			return printJSON(out, res)
		}
		printOverdue(out, res)

	case "cash-flow", "cf":
		summary, err := a.Reports.CashFlow(ctx)
		if err != nil {
			return fmt.Errorf("failed to load cash flow: %w", err)
		}
		if asJSON {
			return printJSON(out, summary)
		}
		printCashFlow(out, summary)

	case "quality", "q":
		var start, end *time.Time
		for i, dst := range []**time.Time{&start, &end} {
			if len(args) <= i+1 {
				break
			}
			t, err := time.Parse(time.DateOnly, args[i+1])
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[i+1])
			}
			*dst = &t
		}
		if end != nil {
			// the end date is inclusive
			e := end.AddDate(0, 0, 1).Add(-time.Nanosecond)
			end = &e
		}
		report, err := a.Reports.Quality(ctx, start, end)
		if err != nil {
			return fmt.Errorf("failed to load quality report: %w", err)
		}
		if asJSON {
			return printJSON(out, report)
		}
		printQuality(out, report)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func stripFlag(args []string, flag string) ([]string, bool) {
	kept := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if a == flag {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	return kept, found
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func header(out io.Writer, title string, width int) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", width))
	fmt.Fprintf(out, "  %s\n", title)
	fmt.Fprintln(out, strings.Repeat("=", width))
}

func printLowStock(out io.Writer, alerts []core.LowStockAlert) {
	header(out, "LOW STOCK", 72)
	if len(alerts) == 0 {
		fmt.Fprintln(out, "  No items below minimum stock.")
		return
	}
	fmt.Fprintf(out, "  %-14s %-26s %8s %8s %8s\n", "CODE", "NAME", "CURRENT", "MINIMUM", "DEFICIT")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, a := range alerts {
		fmt.Fprintf(out, "  %-14s %-26s %8s %8s %8s\n",
			a.InternalCode, truncate(a.Name, 26), a.CurrentStock.String(), a.MinimumStock.String(), a.Deficit.String())
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printExpiring(out io.Writer, days int, batches []core.FinishedGoodsBatch) {
	header(out, fmt.Sprintf("BATCHES EXPIRING IN %d DAYS", days), 62)
	if len(batches) == 0 {
		fmt.Fprintln(out, "  No available batches expiring in the window.")
		return
	}
	fmt.Fprintf(out, "  %-20s %8s %10s %12s\n", "BATCH", "SKU", "QUANTITY", "EXPIRES")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, b := range batches {
		fmt.Fprintf(out, "  %-20s %8d %10s %12s\n",
			b.BatchCode, b.SKUID, b.Quantity.String(), b.ExpirationDate.Format(time.DateOnly))
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printOverdue(out io.Writer, res *app.OverdueResult) {
	header(out, "OVERDUE TITLES", 72)
	fmt.Fprintf(out, "  %-8s %-6s %-30s %12s %10s\n", "KIND", "ID", "DESCRIPTION", "PENDING", "DUE")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, p := range res.Payables {
		fmt.Fprintf(out, "  %-8s %-6d %-30s %12s %10s\n",
			"payable", p.ID, truncate(p.Description, 30), p.PendingAmount().StringFixed(2), p.DueDate.Format(time.DateOnly))
	}
	for _, r := range res.Receivables {
		fmt.Fprintf(out, "  %-8s %-6d %-30s %12s %10s\n",
			"receive", r.ID, truncate(r.Description, 30), r.PendingAmount().StringFixed(2), r.DueDate.Format(time.DateOnly))
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %d payables, %d receivables overdue\n", len(res.Payables), len(res.Receivables))
}

func printCashFlow(out io.Writer, s *core.CashFlowSummary) {
	header(out, "CASH FLOW", 50)
	rows := []struct {
		label string
		value string
	}{
		{"Payables (pending)", s.TotalPayables.StringFixed(2)},
		{"Payables overdue", s.OverduePayables.StringFixed(2)},
		{"Payables next 30 days", s.PayablesNext30Days.StringFixed(2)},
		{"Receivables (pending)", s.TotalReceivables.StringFixed(2)},
		{"Receivables overdue", s.OverdueReceivables.StringFixed(2)},
		{"Receivables next 30 days", s.ReceivablesNext30Days.StringFixed(2)},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %-30s %15s\n", r.label, r.value)
	}
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "  %-30s %15s\n", "PROJECTED BALANCE", s.ProjectedBalance.StringFixed(2))
	fmt.Fprintf(out, "  %d pending payables, %d overdue\n", s.PendingPayablesCount, s.OverduePayablesCount)
	fmt.Fprintln(out, strings.Repeat("=", 50))
}

func printQuality(out io.Writer, r *app.QualityReport) {
	header(out, "QUALITY", 62)
	m := r.Metrics
	fmt.Fprintf(out, "  Analyses      : %d (%d approved, %d rejected)\n", m.TotalAnalyses, m.ApprovedAnalyses, m.RejectedAnalyses)
	fmt.Fprintf(out, "  Approval rate : %.2f%%\n", m.ApprovalRate)
	fmt.Fprintf(out, "  Open NCs      : %d\n", m.OpenNCs)
	fmt.Fprintf(out, "  Avg resolution: %.1f days\n", m.AvgResolutionTime)
	g := r.Grades
	fmt.Fprintf(out, "  Grades        : A=%d B=%d C=%d D=%d (total %d)\n", g.A, g.B, g.C, g.D, g.Total)
	if len(r.Producers) == 0 {
		fmt.Fprintln(out, strings.Repeat("=", 62))
		return
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-30s %6s %6s %8s %5s\n", "PRODUCER", "LOADS", "CLOSED", "SCORE", "AVG")
	for _, p := range r.Producers {
		fmt.Fprintf(out, "  %-30s %6d %6d %8.2f %5s\n",
			truncate(p.ProducerName, 30), p.TotalLoads, p.ClosedLoads, p.QualityScore, p.AvgGrade)
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
