// Command cli is the operator tool for migrations, seed data and ledger
// inspection.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/amirasaad/securebank/infra"
	"github.com/amirasaad/securebank/infra/initializer"
	"github.com/amirasaad/securebank/internal/fixtures/seed"
	"github.com/amirasaad/securebank/pkg/app"
	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/statement"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const usage = `Usage: cli <command> [arguments]

Commands:
  migrate up                                  apply all migrations
  migrate down [steps]                        roll back (default 1 step)
  seed                                        create treasury, demo users and sample transfers
  user create <username> [email]              register a user, password read from the terminal
  balance <account_id>                        print an account balance
  transfer <from_id> <to_id> <amount> [desc]  move funds between accounts
  transactions <account_id> [filter]          list the latest transactions
  export <account_id> <file.xlsx> [filter]    write a statement workbook`

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}
	if err := run(os.Args[1:]); err != nil {
		_, _ = errColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close() //nolint:errcheck

	a, err := app.New(deps, cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch cmd := args[0]; cmd {
	case "migrate":
		return migrateCmd(a, args[1:])
	case "seed":
		password := os.Getenv("SEED_DEMO_PASSWORD")
		if password == "" {
			password = "password123"
		}
		s := seed.New(deps.Uow, a.UserService, a.LedgerService, cfg.Ledger, password, deps.Logger)
		if err := s.Run(ctx); err != nil {
			return err
		}
		_, _ = okColor.Println("Seed complete")
		return nil
	case "user":
		return userCmd(ctx, a, args[1:])
	case "balance":
		if len(args) != 2 {
			return errors.New("usage: balance <account_id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		acc, err := a.LedgerService.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("Account %d (%s): %s %s\n", acc.ID, acc.OwnerUsername, okColor.Sprint(acc.Balance), cfg.Ledger.Currency)
		return nil
	case "transfer":
		return transferCmd(ctx, a, args[1:])
	case "transactions":
		return transactionsCmd(ctx, a, args[1:])
	case "export":
		return exportCmd(ctx, a, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func migrateCmd(a *app.App, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate up | migrate down [steps]")
	}
	db, driver, logger := a.Deps.DB, a.Config.DB.Driver, a.Deps.Logger
	switch args[0] {
	case "up":
		if err := infra.RunMigrations(db, driver, logger); err != nil {
			return err
		}
	case "down":
		if driver != "postgres" {
			return errors.New("migrate down is only supported on postgres")
		}
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		if err := infra.RollbackMigrations(db, steps, logger); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migrate direction %q", args[0])
	}
	_, _ = okColor.Println("Migrations applied")
	return nil
}

func userCmd(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 || args[0] != "create" {
		return errors.New("usage: user create <username> [email]")
	}
	var email string
	if len(args) > 2 {
		email = args[2]
	}
	password, err := readPassword()
	if err != nil {
		return err
	}
	u, acc, err := a.UserService.Register(ctx, args[1], email, password)
	if err != nil {
		return err
	}
	_, _ = okColor.Printf("Created user %s (id %d) with account %d\n", u.Username, u.ID, acc.ID)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line from
// stdin otherwise.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func transferCmd(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: transfer <from_id> <to_id> <amount> [description]")
	}
	from, err := parseID(args[0])
	if err != nil {
		return err
	}
	to, err := parseID(args[1])
	if err != nil {
		return err
	}
	tx, err := a.LedgerService.Transfer(ctx, account.TransferCommand{
		SenderID:    from,
		ReceiverID:  to,
		Amount:      args[2],
		Description: strings.Join(args[3:], " "),
	})
	if err != nil {
		return err
	}
	_, _ = okColor.Printf("Transaction %d completed: %s %s from %d to %d\n",
		tx.ID, tx.Amount, a.Config.Ledger.Currency, tx.SenderID, tx.ReceiverID)
	return nil
}

func transactionsCmd(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: transactions <account_id> [filter]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	txs, err := a.LedgerService.ListTransactions(ctx, id, account.TransactionFilter{
		Query: strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = headColor.Fprintln(w, "ID\tDATE\tFROM\tTO\tAMOUNT\tSTATUS\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
			tx.ID, tx.CreatedAt.Format(time.DateTime), tx.SenderID, tx.ReceiverID, tx.Amount, tx.Status, tx.Description)
	}
	return w.Flush()
}

func exportCmd(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: export <account_id> <file.xlsx> [filter]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	acc, txs, err := a.LedgerService.Statement(ctx, id, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := statement.Write(f, acc, txs, a.Config.Ledger.Currency); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, _ = okColor.Printf("Wrote %d transactions to %s\n", len(txs), args[1])
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}
