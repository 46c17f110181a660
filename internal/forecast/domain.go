package forecast

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRowNotFound indicates a named row or section is absent from a report.
	ErrRowNotFound = errors.New("forecast: row not found")
	// ErrNoReport indicates no report was supplied.
	ErrNoReport = errors.New("forecast: no report available")
	// ErrMalformedReport indicates the report has no header row.
	ErrMalformedReport = errors.New("forecast: report has no header row")
	// ErrBalanceUnavailable indicates the starting bank balance could not be read.
	ErrBalanceUnavailable = errors.New("forecast: bank balance unavailable")
	// ErrFetch wraps any failure of the remote report source.
	ErrFetch = errors.New("forecast: fetch failed")
	// ErrCredentials indicates the API credential could not be refreshed.
	ErrCredentials = errors.New("forecast: credentials unusable")
)

// LedgerEntry is one dated, signed cash movement. Positive values are inflows.
type LedgerEntry struct {
	Date        time.Time `json:"date"`
	Transaction float64   `json:"transaction"`
}

// PeriodRecord is one reporting period of a normalized P&L.
type PeriodRecord struct {
	Date                time.Time `json:"date"`
	Period              string    `json:"period"`
	CostOfSales         float64   `json:"costOfSales"`
	TotalSales          float64   `json:"totalSales"`
	TotalIncome         float64   `json:"totalIncome"`
	PartnershipSales    float64   `json:"partnershipSales"`
	NonPartnershipSales float64   `json:"nonPartnershipSales"`
	OperatingExpenses   float64   `json:"operatingExpenses"`
	OperatingProfit     float64   `json:"operatingProfit"`
	GrossProfit         float64   `json:"grossProfit"`
}

// Normalization is the output of Normalize. MissingRows names every located
// row that fell back to zeros.
type Normalization struct {
	Records     []PeriodRecord `json:"records"`
	MissingRows []string       `json:"missingRows,omitempty"`
}

// QuarterWindow is the half-open interval [Start, End).
type QuarterWindow struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Contains reports whether t falls inside [Start, End).
func (w QuarterWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// BankBalances holds the closing balances of the two tracked accounts.
type BankBalances struct {
	Primary   float64 `json:"primary"`
	Secondary float64 `json:"secondary"`
}

// Total sums both balances.
func (b BankBalances) Total() float64 {
	return decimal.NewFromFloat(b.Primary).Add(decimal.NewFromFloat(b.Secondary)).InexactFloat64()
}

// CashFlow is a composed forecast ledger plus the context it was built from.
type CashFlow struct {
	GeneratedAt     time.Time     `json:"generatedAt"`
	StartingBalance float64       `json:"startingBalance"`
	AnnualExpense   float64       `json:"annualExpense"`
	Balances        BankBalances  `json:"balances"`
	Entries         []LedgerEntry `json:"entries"`
	Degraded        []string      `json:"degraded,omitempty"`
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func roundFloat(f float64) float64 {
	return toFloat(round2(decimal.NewFromFloat(f)))
}

func toFloat(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	if f == 0 {
		return 0
	}
	return f
}
