package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"coconut-erp/internal/adapters/cli"
	"coconut-erp/internal/app"
	"coconut-erp/internal/apperror"
	"coconut-erp/internal/core"
)

var errExit = errors.New("exit")

// reportCommands are answered by the one-shot CLI renderer.
var reportCommands = map[string]bool{
	"low-stock": true, "low": true,
	"expiring": true, "exp": true,
	"overdue": true, "od": true,
	"cash-flow": true, "cf": true,
	"quality": true, "q": true,
}

type session struct {
	app    *app.Application
	reader *bufio.Reader
	out    io.Writer
	user   string
}

// Run starts the interactive operator shell. It reads slash commands from in until
// /exit or EOF and writes results to out. user is recorded as the actor on movements,
// analyses and NC transitions.
func Run(ctx context.Context, a *app.Application, in io.Reader, out io.Writer, user string) error {
	s := &session{app: a, reader: bufio.NewReader(in), out: out, user: user}

	fmt.Fprintln(out, "Coconut ERP")
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := s.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if !strings.HasPrefix(input, "/") {
				fmt.Fprintln(out, "Commands start with '/'. Type /help.")
			} else if err := s.dispatch(ctx, input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return nil
				}
				s.printError(err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
	}
}

func (s *session) dispatch(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	if reportCommands[cmd] {
		return cli.Run(ctx, s.app, append([]string{cmd}, args...), s.out)
	}

	switch cmd {
	case "items":
		items, err := s.app.Stock.ListItems(ctx, core.ItemFilter{})
		if err != nil {
			return err
		}
		printItems(s.out, items)

	case "item":
		id, err := intArg(args, 0, "/item <id>")
		if err != nil {
			return err
		}
		item, err := s.app.Stock.GetItem(ctx, id)
		if err != nil {
			return err
		}
		movements, err := s.app.Stock.ListMovements(ctx, id)
		if err != nil {
			return err
		}
		printItem(s.out, item, movements)

	case "in", "out", "adjust":
		return s.movement(ctx, cmd, args)

	case "payables":
		payables, err := s.app.Financial.ListPayables(ctx, core.PayableFilter{Status: core.PayableStatus(argOr(args, 0, ""))})
		if err != nil {
			return err
		}
		printPayables(s.out, payables)

	case "pay":
		return s.settle(ctx, args, "/pay <payable-id> [amount] [method]", func(ctx context.Context, in core.PaymentInput) (string, error) {
			p, err := s.app.Financial.MarkPayableAsPaid(ctx, in)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Payable %d is now %s. Paid %s of %s.",
				p.ID, p.Status, p.PaidAmount.StringFixed(2), p.Amount.StringFixed(2)), nil
		})

	case "receive":
		return s.settle(ctx, args, "/receive <receivable-id> [amount] [method]", func(ctx context.Context, in core.PaymentInput) (string, error) {
			rc, err := s.app.Financial.MarkReceivableAsReceived(ctx, in)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Receivable %d is now %s. Received %s of %s.",
				rc.ID, rc.Status, rc.ReceivedAmount.StringFixed(2), rc.Amount.StringFixed(2)), nil
		})

	case "ncs":
		var f core.NCFilter
		for _, st := range args {
			f.Statuses = append(f.Statuses, core.NCStatus(st))
		}
		ncs, err := s.app.Quality.ListNCs(ctx, f)
		if err != nil {
			return err
		}
		printNCs(s.out, ncs)

	case "nc":
		return s.ncCommand(ctx, args)

	case "analysis":
		return s.analysisWizard(ctx, args)

	case "help", "h":
		printHelp(s.out)

	case "exit", "quit", "q!":
		return errExit

	default:
		fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

func (s *session) movement(ctx context.Context, cmd string, args []string) error {
	usage := fmt.Sprintf("/%s <item-id> <quantity> [reason...]", cmd)
	id, err := intArg(args, 0, usage)
	if err != nil {
		return err
	}
	qty, err := decimalArg(args, 1, usage)
	if err != nil {
		return err
	}
	kind := map[string]core.MovementType{"in": core.MovementIn, "out": core.MovementOut, "adjust": core.MovementAdjustment}[cmd]

	m, err := s.app.Stock.CreateMovement(ctx, core.CreateMovementInput{
		ItemID:       id,
		MovementType: kind,
		Quantity:     qty,
		Reason:       strings.Join(argsFrom(args, 2), " "),
		CreatedBy:    s.user,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Movement %d recorded: %s %s (stock %s -> %s)\n",
		m.ID, m.MovementType, m.Quantity, m.PreviousStock, m.NewStock)
	return nil
}

// settle parses "<id> [amount] [method]" and runs fn; an omitted amount settles the full balance.
func (s *session) settle(ctx context.Context, args []string, usage string,
	fn func(context.Context, core.PaymentInput) (string, error)) error {

	id, err := intArg(args, 0, usage)
	if err != nil {
		return err
	}
	in := core.PaymentInput{ID: id, PaymentMethod: argOr(args, 2, "")}
	if len(args) > 1 {
		if in.PaidAmount, err = decimalArg(args, 1, usage); err != nil {
			return err
		}
	}
	msg, err := fn(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, msg)
	return nil
}

func (s *session) ncCommand(ctx context.Context, args []string) error {
	const usage = "/nc <id> [analyze|act|resolve|close]"
	id, err := intArg(args, 0, usage)
	if err != nil {
		return err
	}

	var nc *core.NonConformity
	switch argOr(args, 1, "") {
	case "":
		nc, err = s.app.Quality.GetNC(ctx, id)
	case "analyze":
		nc, err = s.app.Quality.StartNCAnalysis(ctx, id, s.user)
	case "act":
		nc, err = s.app.Quality.StartCorrectiveAction(ctx, id, s.user)
	case "resolve":
		rootCause := s.prompt("  Root cause: ")
		action := s.prompt("  Corrective action: ")
		nc, err = s.app.Quality.ResolveNC(ctx, id, core.ResolveNCInput{
			RootCause: rootCause, CorrectiveAction: action, Responsible: s.user,
		})
	case "close":
		nc, err = s.app.Quality.CloseNC(ctx, id, s.user)
	default:
		return fmt.Errorf("usage: %s", usage)
	}
	if err != nil {
		return err
	}
	printNC(s.out, nc)
	return nil
}

func (s *session) prompt(label string) string {
	fmt.Fprint(s.out, label)
	line, _ := s.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// printError shows the user-facing message of application errors and the
// rule or field details that explain them.
func (s *session) printError(err error) {
	ae, ok := apperror.As(err)
	if !ok {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Error [%s]: %s\n", ae.Code, ae.Message)
	var v *apperror.ValidationError
	if errors.As(err, &v) {
		for _, fe := range v.FieldErrors {
			fmt.Fprintf(s.out, "  - %s: %s\n", fe.Field, fe.Message)
		}
	}
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func argsFrom(args []string, i int) []string {
	if i < len(args) {
		return args[i:]
	}
	return nil
}

func intArg(args []string, i int, usage string) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q (usage: %s)", args[i], usage)
	}
	return n, nil
}

func decimalArg(args []string, i int, usage string) (decimal.Decimal, error) {
	if i >= len(args) {
		return decimal.Zero, fmt.Errorf("usage: %s", usage)
	}
	d, err := decimal.NewFromString(args[i])
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q (usage: %s)", args[i], usage)
	}
	return d, nil
}
