// Package statement renders an account's transaction history as an XLSX workbook.
package statement

import (
	"fmt"
	"io"

	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Transactions"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []any{"Transaction ID", "Date", "Direction", "Counterparty", "Amount", "Status", "Description"}

// Write renders txs from the point of view of acc. Descriptions are written
// as string cells, never as formulas.
func Write(w io.Writer, acc *account.Account, txs []*account.Transaction, currency string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(sheetName, "A1", fmt.Sprintf("Statement for %s (account %d)", acc.OwnerUsername, acc.ID)); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, "A2", fmt.Sprintf("Balance: %s %s", acc.Balance, currency)); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A4", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A4", "G4", headerStyle); err != nil {
		return err
	}

	for i, tx := range txs {
		direction, counterparty, sign := "received", tx.SenderID, 1.0
		if tx.SenderID == acc.ID {
			direction, counterparty, sign = "sent", tx.ReceiverID, -1.0
		}
		row := []any{
			tx.ID,
			tx.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			direction,
			counterparty,
			sign * tx.Amount.Decimal().InexactFloat64(),
			string(tx.Status),
			tx.Description,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+5)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
		amountCell, _ := excelize.CoordinatesToCellName(5, i+5)
		if err := f.SetCellStyle(sheetName, amountCell, amountCell, amountStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetName, "G", "G", 50); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
