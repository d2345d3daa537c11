package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type billExportRow struct {
	BillNumber   string
	CustomerName string
	BillDate     time.Time
	TotalAmount  decimal.Decimal
	CgstAmount   decimal.Decimal
	SgstAmount   decimal.Decimal
	NetPayable   decimal.Decimal
	CashReceived decimal.Decimal
	Balance      decimal.Decimal
	Status       string
}

func getBillExportRows(ctx context.Context, from time.Time, to time.Time) ([]*billExportRow, error) {
	sql := `
SELECT
	b.bill_number,
	customers.name AS customer_name,
	b.bill_date,
	b.total_amount,
	b.cgst_amount,
	b.sgst_amount,
	b.net_payable,
	b.cash_received,
	b.balance,
	b.status
FROM
	bills b
	LEFT JOIN customers ON customers.id = b.customer_id
WHERE
	b.bill_date >= ? AND b.bill_date < ?
ORDER BY
	b.bill_number
`
	var records []*billExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, from, to).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ExportBillsExcel renders the bills of [from, to] as a workbook. The
// caller streams it with the xlsx content type.
func ExportBillsExcel(ctx context.Context, from time.Time, to time.Time) (*excelize.File, error) {
	fromStart, _ := dayRange(from)
	_, toEnd := dayRange(to)

	data, err := getBillExportRows(ctx, fromStart, toEnd)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "BillNumber")
	f.SetCellValue(sheetName, "B1", "Customer")
	f.SetCellValue(sheetName, "C1", "Date")
	f.SetCellValue(sheetName, "D1", "TotalAmount")
	f.SetCellValue(sheetName, "E1", "CGST")
	f.SetCellValue(sheetName, "F1", "SGST")
	f.SetCellValue(sheetName, "G1", "NetPayable")
	f.SetCellValue(sheetName, "H1", "CashReceived")
	f.SetCellValue(sheetName, "I1", "Balance")
	f.SetCellValue(sheetName, "J1", "Status")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.BillNumber)
		f.SetCellValue(sheetName, "B"+row, d.CustomerName)
		f.SetCellValue(sheetName, "C"+row, d.BillDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, "D"+row, d.TotalAmount)
		f.SetCellValue(sheetName, "E"+row, d.CgstAmount)
		f.SetCellValue(sheetName, "F"+row, d.SgstAmount)
		f.SetCellValue(sheetName, "G"+row, d.NetPayable)
		f.SetCellValue(sheetName, "H"+row, d.CashReceived)
		f.SetCellValue(sheetName, "I"+row, d.Balance)
		f.SetCellValue(sheetName, "J"+row, d.Status)
	}

	return f, nil
}
