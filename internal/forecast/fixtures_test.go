package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

func cells(values ...string) []xero.Cell {
	out := make([]xero.Cell, 0, len(values))
	for _, v := range values {
		out = append(out, xero.Cell{Value: v})
	}
	return out
}

func headerRow(values ...string) xero.ReportRow {
	return xero.ReportRow{RowType: xero.RowTypeHeader, Cells: cells(values...)}
}

func detailRow(values ...string) xero.ReportRow {
	return xero.ReportRow{RowType: xero.RowTypeRow, Cells: cells(values...)}
}

func summaryRow(values ...string) xero.ReportRow {
	return xero.ReportRow{RowType: xero.RowTypeSummary, Cells: cells(values...)}
}

func section(title string, rows ...xero.ReportRow) xero.ReportRow {
	return xero.ReportRow{RowType: xero.RowTypeSection, Title: title, Rows: rows}
}

// profitAndLoss mirrors the shape of a three-month P&L, newest column first.
func profitAndLoss() *xero.Report {
	return &xero.Report{
		ReportName: "Profit and Loss",
		Rows: []xero.ReportRow{
			headerRow("", "31 Oct 2026", "30 Sep 2026", "31 Aug 2026"),
			section("Income",
				detailRow("Sales", "900.00", "800.00", "700.00"),
				summaryRow("Total Income", "1000.00", "900.00", "800.00"),
			),
			section("Billable Income",
				detailRow("Sales - Partnership", "300.00", "", "100.00"),
				detailRow("Sales - Direct", "600.00", "500.00", "400.00"),
				summaryRow("Total Billable Income", "900.00", "500.00", "500.00"),
			),
			section("Less Cost of Sales",
				detailRow("Purchases", "200.00", "150.00", "100.00"),
				summaryRow("Total Cost of Sales", "200.00", "150.00", "100.00"),
			),
			section("",
				detailRow("Gross Profit", "800.00", "750.00", "700.00"),
			),
			section("Less Operating Expenses",
				detailRow("Rent", "300.00", "300.00", "300.00"),
				summaryRow("Total Operating Expenses", "300.00", "300.00", "300.00"),
			),
			section("",
				detailRow("Operating Profit", "500.00", "450.00", "400.00"),
			),
		},
	}
}

func bankSummary(primary, secondary string) *xero.Report {
	rows := []xero.ReportRow{}
	if primary != "" {
		rows = append(rows, detailRow("Business Cheque Account", "1000.00", "500.00", "250.00", primary))
	}
	if secondary != "" {
		rows = append(rows, detailRow("Business Savings Account", "0.00", "0.00", "0.00", secondary))
	}
	rows = append(rows, summaryRow("Total", "", "", "", ""))
	return &xero.Report{
		ReportName: "Bank Summary",
		Rows: []xero.ReportRow{
			headerRow("Bank Accounts", "Opening Balance", "Cash Received", "Cash Spent", "Closing Balance"),
			section("", rows...),
		},
	}
}

func invoice(id string, amountDue, total float64, due time.Time) xero.Invoice {
	return xero.Invoice{
		InvoiceID: id,
		Type:      xero.InvoiceTypeReceivable,
		AmountDue: decimal.NewFromFloat(amountDue),
		Total:     decimal.NewFromFloat(total),
		DueDate:   xero.Date{Time: due},
	}
}

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
