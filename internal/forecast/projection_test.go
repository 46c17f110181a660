package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

func TestProjectInvoicesFilters(t *testing.T) {
	horizon := testNow.AddDate(0, 0, 365)
	invoices := []xero.Invoice{
		invoice("paid", 0, 100, testNow.AddDate(0, 0, 5)),
		invoice("credit", -20, 100, testNow.AddDate(0, 0, 5)),
		invoice("overdue", 50, 50, testNow.AddDate(0, 0, -1)),
		invoice("due-now", 50, 50, testNow),
		invoice("at-horizon", 50, 50, horizon),
		invoice("before-horizon", 75.5, 80, horizon.Add(-time.Second)),
		invoice("soon", 500, 500, testNow.AddDate(0, 0, 10)),
	}

	entries := ProjectInvoices(invoices, testNow, 365)
	require.Equal(t, []LedgerEntry{
		{Date: horizon.Add(-time.Second), Transaction: 75.5},
		{Date: testNow.AddDate(0, 0, 10), Transaction: 500},
	}, entries)
	for _, e := range entries {
		require.True(t, e.Date.After(testNow))
		require.True(t, e.Date.Before(horizon))
		require.Greater(t, e.Transaction, 0.0)
	}
}

func TestProjectInvoicesEmpty(t *testing.T) {
	entries := ProjectInvoices(nil, testNow, 365)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestQuarterWindowsContiguous(t *testing.T) {
	windows := QuarterWindows(testNow, 5)
	require.Len(t, windows, 5)
	require.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), windows[0].Start)
	require.Equal(t, time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC), windows[4].End)
	for i := 0; i < len(windows)-1; i++ {
		require.Equal(t, windows[i].End, windows[i+1].Start)
		require.True(t, windows[i].Start.Before(windows[i].End))
	}

	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), QuarterStart(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), QuarterStart(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	require.Nil(t, QuarterWindows(testNow, 0))
}

func TestEstimateQuarterlyTaxSingleInvoice(t *testing.T) {
	invoices := []xero.Invoice{invoice("a", 500, 500, testNow.AddDate(0, 0, 10))}

	entries := EstimateQuarterlyTax(invoices, testNow, DefaultPolicy())
	require.Len(t, entries, 5)
	windows := QuarterWindows(testNow, 5)
	for i, e := range entries {
		require.Equal(t, windows[i].End, e.Date)
	}
	require.Equal(t, -63.75, entries[0].Transaction)
	for _, e := range entries[1:] {
		require.Equal(t, 0.0, e.Transaction)
	}
}

func TestEstimateQuarterlyTaxBoundaries(t *testing.T) {
	windows := QuarterWindows(testNow, 5)
	invoices := []xero.Invoice{
		invoice("at-start", 0, 100, windows[0].Start),
		invoice("at-end", 0, 200, windows[0].End),
		invoice("before", 100, 1000, windows[0].Start.Add(-time.Second)),
		invoice("after", 100, 1000, windows[4].End),
	}

	entries := EstimateQuarterlyTax(invoices, testNow, DefaultPolicy())
	require.Len(t, entries, 5)
	require.Equal(t, -12.75, entries[0].Transaction)
	require.Equal(t, -25.5, entries[1].Transaction)
	require.Equal(t, 0.0, entries[2].Transaction)
	require.Equal(t, 0.0, entries[3].Transaction)
	require.Equal(t, 0.0, entries[4].Transaction)
}

func TestEstimateQuarterlyTaxPolicyOverride(t *testing.T) {
	policy := DefaultPolicy()
	policy.CollectedRevenueRatio = 1
	policy.TaxableRatio = 0.1
	policy.TaxQuarters = 2

	entries := EstimateQuarterlyTax([]xero.Invoice{invoice("a", 0, 1000, testNow)}, testNow, policy)
	require.Len(t, entries, 2)
	require.Equal(t, -100.0, entries[0].Transaction)
}
