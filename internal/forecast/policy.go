package forecast

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Expense bases for the daily burn rate.
const (
	ExpenseBasisFixed = "fixed"
	ExpenseBasisYTD   = "ytd"
)

// Policy collects the forecasting assumptions. None of them are derived from
// data; they are operator-tunable estimates.
type Policy struct {
	// CollectedRevenueRatio approximates the share of invoiced revenue
	// actually collected.
	CollectedRevenueRatio float64 `validate:"gt=0,lte=1"`
	// TaxableRatio approximates the share of collected revenue owed as tax.
	TaxableRatio float64 `validate:"gt=0,lte=1"`
	// AnnualExpense is the yearly spend spread evenly across the horizon.
	AnnualExpense float64 `validate:"gte=0"`
	ExpenseBasis  string  `validate:"oneof=fixed ytd"`
	HorizonDays   int     `validate:"gt=0,lte=3660"`
	TaxQuarters   int     `validate:"gt=0,lte=40"`
	Periods       int     `validate:"gte=0,lte=11"`
	Timeframe     string  `validate:"oneof=MONTH QUARTER YEAR"`
}

// DefaultPolicy returns the stock assumptions.
func DefaultPolicy() Policy {
	return Policy{
		CollectedRevenueRatio: 0.75,
		TaxableRatio:          0.17,
		AnnualExpense:         250000,
		ExpenseBasis:          ExpenseBasisFixed,
		HorizonDays:           365,
		TaxQuarters:           5,
		Periods:               11,
		Timeframe:             "MONTH",
	}
}

var policyValidator = validator.New()

// Validate checks every field against its bounds.
func (p Policy) Validate() error {
	if err := policyValidator.Struct(p); err != nil {
		return fmt.Errorf("forecast: invalid policy: %w", err)
	}
	return nil
}

// Layout names the rows and sections Normalize reads from a P&L.
type Layout struct {
	TotalSalesSection        string
	CostOfSalesSection       string
	OperatingExpensesSection string
	TotalIncomeSection       string
	PartnershipSalesRow      string
	OperatingProfitRow       string
	GrossProfitRow           string
}

// DefaultLayout matches the chart of accounts the forecast was built for.
func DefaultLayout() Layout {
	return Layout{
		TotalSalesSection:        "Billable Income",
		CostOfSalesSection:       "Less Cost of Sales",
		OperatingExpensesSection: "Less Operating Expenses",
		TotalIncomeSection:       "Income",
		PartnershipSalesRow:      "Sales - Partnership",
		OperatingProfitRow:       "Operating Profit",
		GrossProfitRow:           "Gross Profit",
	}
}

// BankAccounts names the two accounts whose balances seed the ledger.
type BankAccounts struct {
	Primary   string
	Secondary string
}

// DefaultBankAccounts matches the account names of a stock Xero organisation.
func DefaultBankAccounts() BankAccounts {
	return BankAccounts{
		Primary:   "Business Cheque Account",
		Secondary: "Business Savings Account",
	}
}
