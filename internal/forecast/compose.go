package forecast

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowInputs feeds ComposeCashFlow. A nil Invoices or Tax slice marks
// that input unavailable.
type CashFlowInputs struct {
	StartingBalance float64
	AnnualExpense   float64
	Invoices        []LedgerEntry
	Tax             []LedgerEntry
	Now             time.Time
	// Days is the number of daily burn entries; zero means 365.
	Days int
}

// DailyExpense returns -round2(annual / 365).
func DailyExpense(annual float64) float64 {
	daily := round2(decimal.NewFromFloat(annual).Div(decimal.NewFromInt(365)))
	return toFloat(daily.Neg())
}

// ComposeCashFlow builds the forecast ledger. Entries on the same date keep
// insertion order: starting balance, daily burn, invoices, tax.
func ComposeCashFlow(in CashFlowInputs) []LedgerEntry {
	days := in.Days
	if days <= 0 {
		days = 365
	}
	ledger := make([]LedgerEntry, 0, 1+days+len(in.Invoices)+len(in.Tax))
	ledger = append(ledger, LedgerEntry{Date: in.Now, Transaction: in.StartingBalance})

	daily := DailyExpense(in.AnnualExpense)
	for i := 0; i < days; i++ {
		ledger = append(ledger, LedgerEntry{Date: in.Now.AddDate(0, 0, i), Transaction: daily})
	}
	if in.Invoices != nil {
		ledger = append(ledger, in.Invoices...)
	}
	if in.Tax != nil {
		ledger = append(ledger, in.Tax...)
	}

	for i := range ledger {
		ledger[i].Transaction = roundFloat(ledger[i].Transaction)
	}
	sort.SliceStable(ledger, func(a, b int) bool {
		return ledger[a].Date.Before(ledger[b].Date)
	})
	return ledger
}
