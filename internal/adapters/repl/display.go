package repl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"coconut-erp/internal/core"
)

func printItems(out io.Writer, items []core.WarehouseItem) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  WAREHOUSE ITEMS")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(items) == 0 {
		fmt.Fprintln(out, "  No items found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-5s %-14s %-26s %-5s %9s %9s\n", "ID", "CODE", "NAME", "UNIT", "STOCK", "MINIMUM")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, it := range items {
		flag := ""
		if it.CurrentStock.LessThan(it.MinimumStock) {
			flag = " !"
		}
		fmt.Fprintf(out, "  %-5d %-14s %-26s %-5s %9s %9s%s\n",
			it.ID, it.InternalCode, it.Name, it.Unit, it.CurrentStock, it.MinimumStock, flag)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printItem(out io.Writer, it *core.WarehouseItem, movements []core.WarehouseMovement) {
	fmt.Fprintf(out, "\nITEM %d  %s  %s\n", it.ID, it.InternalCode, it.Name)
	fmt.Fprintf(out, "  Stock: %s %s (minimum %s)\n", it.CurrentStock, it.Unit, it.MinimumStock)
	if it.WarehouseType != "" {
		fmt.Fprintf(out, "  Warehouse: %s\n", it.WarehouseType)
	}
	if it.Archived {
		fmt.Fprintln(out, "  ARCHIVED")
	}
	if len(movements) == 0 {
		return
	}
	fmt.Fprintln(out, "  Movements:")
	for _, m := range movements {
		fmt.Fprintf(out, "    %s  %-7s %9s  %s -> %s  %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.MovementType, m.Quantity, m.PreviousStock, m.NewStock, m.Reason)
	}
}

func printPayables(out io.Writer, payables []core.Payable) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  PAYABLES")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(payables) == 0 {
		fmt.Fprintln(out, "  No payables found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-5s %-9s %-10s %12s %12s  %s\n", "ID", "STATUS", "DUE", "AMOUNT", "PENDING", "DESCRIPTION")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, p := range payables {
		fmt.Fprintf(out, "  %-5d %-9s %-10s %12s %12s  %s\n",
			p.ID, p.Status, p.DueDate.Format(time.DateOnly), p.Amount.StringFixed(2), p.PendingAmount().StringFixed(2), p.Description)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printNCs(out io.Writer, ncs []core.NonConformity) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "  NON-CONFORMITIES")
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(ncs) == 0 {
		fmt.Fprintln(out, "  No non-conformities found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-5s %-15s %-15s %-8s %s\n", "ID", "NUMBER", "STATUS", "SEVERITY", "TITLE")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, nc := range ncs {
		fmt.Fprintf(out, "  %-5d %-15s %-15s %-8s %s\n", nc.ID, nc.NCNumber, nc.Status, nc.Severity, nc.Title)
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}

func printNC(out io.Writer, nc *core.NonConformity) {
	fmt.Fprintf(out, "\n%s  [%s]  %s\n", nc.NCNumber, nc.Status, nc.Title)
	fmt.Fprintf(out, "  Severity   : %s\n", nc.Severity)
	if nc.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", nc.Description)
	}
	if nc.AssignedTo != "" {
		fmt.Fprintf(out, "  Assigned to: %s\n", nc.AssignedTo)
	}
	if nc.RootCause != "" {
		fmt.Fprintf(out, "  Root cause : %s\n", nc.RootCause)
		fmt.Fprintf(out, "  Action     : %s\n", nc.CorrectiveAction)
	}
	if nc.ClosedAt != nil {
		fmt.Fprintf(out, "  Closed     : %s by %s\n", nc.ClosedAt.Format("2006-01-02 15:04"), nc.ClosedBy)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Reports
  /low-stock                       items below minimum stock
  /expiring [days]                 available batches expiring within days (default 30)
  /overdue                         overdue payables and receivables
  /cash-flow                       cash flow summary
  /quality [start] [end]           quality metrics, grades and producer ranking

Stock
  /items                           list warehouse items
  /item <id>                       item detail and movement history
  /in <id> <qty> [reason]          stock entry
  /out <id> <qty> [reason]         stock withdrawal
  /adjust <id> <qty> [reason]      set stock to qty

Financial
  /payables [status]               list payables
  /pay <id> [amount] [method]      settle a payable (full balance when amount is omitted)
  /receive <id> [amount] [method]  settle a receivable

Quality
  /analysis <type>                 record an analysis interactively
  /ncs [status...]                 list non-conformities
  /nc <id> [analyze|act|resolve|close]

  /exit`)
}
