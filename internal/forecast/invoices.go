package forecast

import (
	"time"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

// ProjectInvoices maps every unpaid invoice due within (now, now+horizonDays)
// to a positive ledger entry on its due date.
func ProjectInvoices(invoices []xero.Invoice, now time.Time, horizonDays int) []LedgerEntry {
	horizon := now.AddDate(0, 0, horizonDays)
	entries := make([]LedgerEntry, 0, len(invoices))
	for _, inv := range invoices {
		if !inv.AmountDue.IsPositive() {
			continue
		}
		due := inv.DueDate.Time
		if !due.After(now) || !due.Before(horizon) {
			continue
		}
		entries = append(entries, LedgerEntry{
			Date:        due,
			Transaction: toFloat(inv.AmountDue),
		})
	}
	return entries
}
