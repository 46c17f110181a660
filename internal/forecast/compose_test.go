package forecast

import (
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

func TestDailyExpense(t *testing.T) {
	require.Equal(t, -1000.0, DailyExpense(365000))
	require.Equal(t, -684.93, DailyExpense(250000))
	require.Equal(t, 0.0, DailyExpense(0))
}

func TestComposeCashFlowDailyBurn(t *testing.T) {
	ledger := ComposeCashFlow(CashFlowInputs{AnnualExpense: 365000, Now: testNow})
	require.Len(t, ledger, 366)
	require.Equal(t, LedgerEntry{Date: testNow, Transaction: 0}, ledger[0])
	for i, e := range ledger[1:] {
		require.Equal(t, -1000.0, e.Transaction)
		require.Equal(t, testNow.AddDate(0, 0, i), e.Date)
	}
}

func TestComposeCashFlowLedger(t *testing.T) {
	invoices := []xero.Invoice{
		invoice("a", 500, 500, testNow.AddDate(0, 0, 10)),
		invoice("b", 1234.567, 1500, testNow.AddDate(0, 2, 0)),
	}
	invoiceEntries := ProjectInvoices(invoices, testNow, 365)
	taxEntries := EstimateQuarterlyTax(invoices, testNow, DefaultPolicy())

	ledger := ComposeCashFlow(CashFlowInputs{
		StartingBalance: 10000.125,
		AnnualExpense:   250000,
		Invoices:        invoiceEntries,
		Tax:             taxEntries,
		Now:             testNow,
	})

	require.Len(t, ledger, 1+365+len(invoiceEntries)+5)
	require.True(t, sort.SliceIsSorted(ledger, func(a, b int) bool {
		return ledger[a].Date.Before(ledger[b].Date)
	}))
	for _, e := range ledger {
		require.GreaterOrEqual(t, decimal.NewFromFloat(e.Transaction).Exponent(), int32(-2), "value %v", e.Transaction)
	}
	require.Equal(t, 10000.13, ledger[0].Transaction)
	require.Equal(t, testNow, ledger[0].Date)

	var sawInvoice bool
	for _, e := range ledger {
		if e.Transaction == 1234.57 {
			sawInvoice = true
		}
	}
	require.True(t, sawInvoice)
}

func TestComposeCashFlowTieBreak(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	quarterEnd := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	ledger := ComposeCashFlow(CashFlowInputs{
		StartingBalance: 100,
		AnnualExpense:   365,
		Invoices:        []LedgerEntry{{Date: now, Transaction: 50}, {Date: quarterEnd, Transaction: 70}},
		Tax:             []LedgerEntry{{Date: quarterEnd, Transaction: -30}},
		Now:             now,
	})

	require.Equal(t, []LedgerEntry{
		{Date: now, Transaction: 100},
		{Date: now, Transaction: -1},
		{Date: now, Transaction: 50},
	}, ledger[:3])

	var sameDay []float64
	for _, e := range ledger {
		if e.Date.Equal(quarterEnd) {
			sameDay = append(sameDay, e.Transaction)
		}
	}
	require.Equal(t, []float64{-1, 70, -30}, sameDay)
}

func TestComposeCashFlowSkipsUnavailableInputs(t *testing.T) {
	ledger := ComposeCashFlow(CashFlowInputs{StartingBalance: 5, AnnualExpense: 365, Now: testNow, Days: 10})
	require.Len(t, ledger, 11)
}

func TestReadBankBalances(t *testing.T) {
	balances, err := ReadBankBalances(bankSummary("1250.00", "300.50"), DefaultBankAccounts())
	require.NoError(t, err)
	require.Equal(t, BankBalances{Primary: 1250, Secondary: 300.5}, balances)
	require.Equal(t, 1550.5, balances.Total())
}

func TestReadBankBalancesMissingAccount(t *testing.T) {
	_, err := ReadBankBalances(bankSummary("1250.00", ""), DefaultBankAccounts())
	require.ErrorIs(t, err, ErrBalanceUnavailable)
	require.ErrorIs(t, err, ErrRowNotFound)

	_, err = ReadBankBalances(nil, DefaultBankAccounts())
	require.ErrorIs(t, err, ErrBalanceUnavailable)

	short := &xero.Report{Rows: []xero.ReportRow{
		headerRow("Bank Accounts", "Closing Balance"),
		section("",
			detailRow("Business Cheque Account", "10"),
			detailRow("Business Savings Account", "20"),
		),
	}}
	_, err = ReadBankBalances(short, DefaultBankAccounts())
	require.ErrorIs(t, err, ErrBalanceUnavailable)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.TaxableRatio = 1.5
	require.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.Timeframe = "WEEK"
	require.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.TaxQuarters = 0
	require.Error(t, bad.Validate())
}
