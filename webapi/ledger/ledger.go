// Package ledger exposes the transfer, balance and history endpoints.
package ledger

import (
	"bytes"
	"fmt"
	"time"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/middleware"
	authsvc "github.com/amirasaad/securebank/pkg/service/auth"
	ledgersvc "github.com/amirasaad/securebank/pkg/service/ledger"
	"github.com/amirasaad/securebank/pkg/statement"
	"github.com/amirasaad/securebank/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// IdempotencyKeyHeader carries the optional client-chosen key of a transfer.
const IdempotencyKeyHeader = "Idempotency-Key"

// Routes registers the ledger endpoints. Every route acts on the caller's own
// account, taken from the verified token and never from the request.
//
// Routes:
//   - POST /transfer                 : Move funds to another account.
//   - GET  /balance                  : Current balance.
//   - GET  /transactions             : History, newest first, optional filter.
//   - GET  /transactions/export      : History as an XLSX workbook.
//   - GET  /transactions/:id         : One transaction the caller took part in.
func Routes(app *fiber.App, ledgerSvc *ledgersvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	currency := cfg.Ledger.Currency
	app.Post("/transfer", protected, Transfer(ledgerSvc, authSvc, currency))
	app.Get("/balance", protected, GetBalance(ledgerSvc, authSvc, currency))
	app.Get("/transactions", protected, ListTransactions(ledgerSvc, authSvc, currency))
	app.Get("/transactions/export", protected, ExportTransactions(ledgerSvc, authSvc, currency))
	app.Get("/transactions/:id<int>", protected, GetTransaction(ledgerSvc, authSvc, currency))
}

// Transfer returns a Fiber handler that moves funds from the caller's account.
// @Summary Transfer funds
// @Description Moves an amount from the caller's account to receiver_id. Amount is a decimal string with at most two fractional digits. Repeating a request with the same Idempotency-Key returns the original transaction with 200.
// @Tags ledger
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client-chosen key, 1-64 of [A-Za-z0-9_-]"
// @Param request body TransferRequest true "Transfer details"
// @Success 201 {object} common.Response "Transfer completed"
// @Success 200 {object} common.Response "Idempotent replay"
// @Failure 400 {object} common.ProblemDetails "Invalid amount, self transfer or malformed body"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Unknown account"
// @Failure 409 {object} common.ProblemDetails "Insufficient funds, conflict or key reuse"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Failure 503 {object} common.ProblemDetails "Storage unavailable"
// @Failure 504 {object} common.ProblemDetails "Timed out"
// @Router /transfer [post]
// @Security Bearer
func Transfer(ledgerSvc *ledgersvc.Service, authSvc *authsvc.Service, currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		input, err := common.BindAndValidate[TransferRequest](c)
		if input == nil {
			return err // error response already written
		}
		log.Infof("Transfer handler: account %d -> %d", id.AccountID, input.ReceiverID)

		res, err := ledgerSvc.Execute(c.UserContext(), account.TransferCommand{
			SenderID:       id.AccountID,
			ReceiverID:     input.ReceiverID,
			Amount:         input.Amount,
			Description:    input.Description,
			IdempotencyKey: c.Get(IdempotencyKeyHeader),
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transfer failed", err)
		}

		dto := ToTransactionDTO(res.Transaction, id.AccountID, currency)
		if res.Replayed {
			c.Set("Idempotent-Replayed", "true")
			return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer already processed", dto)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transfer completed", dto)
	}
}

// GetBalance returns a Fiber handler for the caller's balance.
// @Summary Get balance
// @Description Returns the latest committed balance of the caller's account.
// @Tags ledger
// @Produce json
// @Success 200 {object} common.Response "Balance fetched"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Unknown account"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /balance [get]
// @Security Bearer
func GetBalance(ledgerSvc *ledgersvc.Service, authSvc *authsvc.Service, currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		balance, err := ledgerSvc.GetBalance(c.UserContext(), id.AccountID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched", BalanceDTO{
			AccountID: id.AccountID,
			Balance:   balance,
			Currency:  currency,
		})
	}
}

// ListTransactions returns a Fiber handler for the caller's history.
// @Summary List transactions
// @Description Lists transactions the caller sent or received, newest first. filter matches the description case-insensitively.
// @Tags ledger
// @Produce json
// @Param filter query string false "Description contains"
// @Param limit query int false "Page size (default 50, max 100)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} common.Response "Transactions fetched"
// @Failure 400 {object} common.ProblemDetails "Invalid query parameters"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /transactions [get]
// @Security Bearer
func ListTransactions(ledgerSvc *ledgersvc.Service, authSvc *authsvc.Service, currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		q, err := common.BindQuery[ListQuery](c)
		if q == nil {
			return err
		}
		txs, err := ledgerSvc.ListTransactions(c.UserContext(), id.AccountID, account.TransactionFilter{
			Query:  q.Filter,
			Limit:  q.Limit,
			Offset: q.Offset,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		dtos := make([]*TransactionDTO, 0, len(txs))
		for _, tx := range txs {
			dtos = append(dtos, ToTransactionDTO(tx, id.AccountID, currency))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", TransactionListDTO{
			Transactions: dtos,
			Limit:        ledgerSvc.PageSize(q.Limit),
			Offset:       q.Offset,
		})
	}
}

// GetTransaction returns a Fiber handler for a single transaction.
// @Summary Get transaction
// @Description Returns one transaction. Transactions the caller is not a party to are reported as not found.
// @Tags ledger
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} common.Response "Transaction fetched"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Not found"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Router /transactions/{id} [get]
// @Security Bearer
func GetTransaction(ledgerSvc *ledgersvc.Service, authSvc *authsvc.Service, currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		txID, err := c.ParamsInt("id")
		if err != nil || txID <= 0 {
			return common.ProblemDetailsJSON(c, "Invalid transaction ID", nil, "Transaction ID must be a positive integer", fiber.StatusBadRequest)
		}
		tx, err := ledgerSvc.GetTransaction(c.UserContext(), id.AccountID, int64(txID))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transaction not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction fetched", ToTransactionDTO(tx, id.AccountID, currency))
	}
}

// ExportTransactions returns a Fiber handler that downloads the history as XLSX.
// @Summary Export transactions
// @Description Downloads the caller's (optionally filtered) history as an XLSX workbook.
// @Tags ledger
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param filter query string false "Description contains"
// @Success 200 {file} file "Statement workbook"
// @Failure 400 {object} common.ProblemDetails "Statement too large or invalid filter"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /transactions/export [get]
// @Security Bearer
func ExportTransactions(ledgerSvc *ledgersvc.Service, authSvc *authsvc.Service, currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		q, err := common.BindQuery[ListQuery](c)
		if q == nil {
			return err
		}
		acc, txs, err := ledgerSvc.Statement(c.UserContext(), id.AccountID, q.Filter)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to export transactions", err)
		}
		var buf bytes.Buffer
		if err := statement.Write(&buf, acc, txs, currency); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to export transactions", err)
		}
		log.Infof("Exported %d transactions for account %d", len(txs), id.AccountID)
		c.Set(fiber.HeaderContentType, statement.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(
			`attachment; filename="statement-%d-%s.xlsx"`, acc.ID, time.Now().UTC().Format("20060102"),
		))
		return c.Send(buf.Bytes())
	}
}
