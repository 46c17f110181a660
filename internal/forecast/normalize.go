package forecast

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

var periodLayouts = []string{
	"2 Jan 2006",
	"2 Jan 06",
	"Jan 2006",
	"Jan 06",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParsePeriodLabel parses a header cell. Unknown formats give the zero time.
func ParsePeriodLabel(label string) time.Time {
	label = strings.TrimSpace(label)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t
		}
	}
	return time.Time{}
}

type lookup struct {
	name    string
	summary bool
}

// Normalize turns a multi-period P&L into one record per period, sorted by
// date. Rows that cannot be located become zeros and are reported in
// MissingRows.
func Normalize(report *xero.Report, layout Layout) (Normalization, error) {
	if report == nil {
		return Normalization{}, ErrNoReport
	}
	header, ok := report.Header()
	if !ok {
		return Normalization{}, ErrMalformedReport
	}
	labels := header.Values()
	periods := len(labels)

	var missing []string
	locate := func(l lookup) Series {
		var (
			series Series
			err    error
		)
		if l.summary {
			series, err = LocateSummaryRow(report, l.name)
		} else {
			series, err = LocateDetailRow(report, l.name)
		}
		if err != nil || len(series) != periods {
			missing = append(missing, l.name)
			return make(Series, periods)
		}
		return series
	}

	totalSales := locate(lookup{layout.TotalSalesSection, true})
	costOfSales := locate(lookup{layout.CostOfSalesSection, true})
	opex := locate(lookup{layout.OperatingExpensesSection, true})
	totalIncome := locate(lookup{layout.TotalIncomeSection, true})
	partnership := locate(lookup{layout.PartnershipSalesRow, false})
	operatingProfit := locate(lookup{layout.OperatingProfitRow, false})
	grossProfit := locate(lookup{layout.GrossProfitRow, false})

	records := make([]PeriodRecord, 0, periods)
	for i, label := range labels {
		sales := totalSales.Decimal(i)
		partner := partnership.Decimal(i)
		records = append(records, PeriodRecord{
			Date:                ParsePeriodLabel(label),
			Period:              label,
			CostOfSales:         costOfSales.Float(i),
			TotalSales:          toFloat(sales),
			TotalIncome:         totalIncome.Float(i),
			PartnershipSales:    toFloat(partner),
			NonPartnershipSales: toFloat(sales.Sub(partner)),
			OperatingExpenses:   opex.Float(i),
			OperatingProfit:     operatingProfit.Float(i),
			GrossProfit:         grossProfit.Float(i),
		})
	}
	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Date.Before(records[b].Date)
	})
	return Normalization{Records: records, MissingRows: missing}, nil
}

// AnnualExpenseFromYTD extrapolates a full year of spend from a single-column
// year-to-date P&L: operating expenses plus cost of sales, scaled by
// 365 / day-of-year.
func AnnualExpenseFromYTD(report *xero.Report, layout Layout, now time.Time) (float64, error) {
	if report == nil {
		return 0, ErrNoReport
	}
	total := decimal.Zero
	found := false
	for _, section := range []string{layout.OperatingExpensesSection, layout.CostOfSalesSection} {
		series, err := LocateSummaryRow(report, section)
		if err != nil {
			if errors.Is(err, ErrRowNotFound) {
				continue
			}
			return 0, err
		}
		found = true
		total = total.Add(series.Decimal(0))
	}
	if !found {
		return 0, ErrRowNotFound
	}
	elapsed := decimal.NewFromInt(int64(now.YearDay()))
	annual := total.Mul(decimal.NewFromInt(365)).Div(elapsed)
	return toFloat(round2(annual)), nil
}
