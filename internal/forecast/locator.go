package forecast

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

// Series is the raw cell values of one row, aligned with the period columns.
type Series []string

// Decimal parses slot i. Blank, missing and unparseable cells are zero.
func (s Series) Decimal(i int) decimal.Decimal {
	if i < 0 || i >= len(s) {
		return decimal.Zero
	}
	raw := strings.TrimSpace(strings.ReplaceAll(s[i], ",", ""))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Float is Decimal converted for output.
func (s Series) Float(i int) float64 {
	return toFloat(s.Decimal(i))
}

// LocateDetailRow returns the values of the first line-item row labelled
// title. The first flattened row is the header and is never matched.
func LocateDetailRow(report *xero.Report, title string) (Series, error) {
	if report == nil {
		return nil, ErrNoReport
	}
	flat := make([]xero.ReportRow, 0, len(report.Rows)*4)
	for _, row := range report.Rows {
		if len(row.Rows) == 0 {
			flat = append(flat, row)
			continue
		}
		flat = append(flat, row.Rows...)
	}
	if len(flat) > 0 {
		flat = flat[1:]
	}
	for _, row := range flat {
		if len(row.Cells) == 0 {
			continue
		}
		if row.Label() == title {
			return Series(row.Values()), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrRowNotFound, title)
}

// LocateSummaryRow returns the summary row values of the section titled
// sectionTitle.
func LocateSummaryRow(report *xero.Report, sectionTitle string) (Series, error) {
	if report == nil {
		return nil, ErrNoReport
	}
	for _, section := range report.Rows {
		if section.Title != sectionTitle {
			continue
		}
		for _, row := range section.Rows {
			if row.RowType == xero.RowTypeSummary {
				return Series(row.Values()), nil
			}
		}
		return nil, fmt.Errorf("%w: summary of %q", ErrRowNotFound, sectionTitle)
	}
	return nil, fmt.Errorf("%w: section %q", ErrRowNotFound, sectionTitle)
}
