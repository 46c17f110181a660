package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

// QuarterStart returns midnight on the first day of t's calendar quarter.
func QuarterStart(t time.Time) time.Time {
	month := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location())
}

// QuarterWindows returns n contiguous windows starting at the quarter that
// contains now.
func QuarterWindows(now time.Time, n int) []QuarterWindow {
	if n <= 0 {
		return nil
	}
	windows := make([]QuarterWindow, 0, n)
	start := QuarterStart(now)
	for i := 0; i < n; i++ {
		end := start.AddDate(0, 3, 0)
		windows = append(windows, QuarterWindow{Start: start, End: end})
		start = end
	}
	return windows
}

// EstimateQuarterlyTax buckets every invoice total by due date into the
// policy's quarter windows and emits one negative entry per window, dated at
// the window end.
func EstimateQuarterlyTax(invoices []xero.Invoice, now time.Time, policy Policy) []LedgerEntry {
	windows := QuarterWindows(now, policy.TaxQuarters)
	totals := make([]decimal.Decimal, len(windows))
	for i := range totals {
		totals[i] = decimal.Zero
	}
	for _, inv := range invoices {
		due := inv.DueDate.Time
		for i, w := range windows {
			if w.Contains(due) {
				totals[i] = totals[i].Add(inv.Total)
				break
			}
		}
	}

	collected := decimal.NewFromFloat(policy.CollectedRevenueRatio)
	taxable := decimal.NewFromFloat(policy.TaxableRatio)
	entries := make([]LedgerEntry, 0, len(windows))
	for i, w := range windows {
		liability := totals[i].Mul(collected).Mul(taxable).Neg()
		entries = append(entries, LedgerEntry{
			Date:        w.End,
			Transaction: toFloat(liability),
		})
	}
	return entries
}
