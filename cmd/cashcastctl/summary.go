package main

import (
	"io"
	"sort"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/cashcast/internal/forecast"
)

type ledgerSummary struct {
	Low        float64
	LowDate    time.Time
	Closing    float64
	ClosingDay time.Time
}

// summarise walks the ledger in date order and tracks the running balance.
func summarise(entries []forecast.LedgerEntry) ledgerSummary {
	sorted := make([]forecast.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var out ledgerSummary
	running := 0.0
	for i, e := range sorted {
		running += e.Transaction
		if i == 0 || running < out.Low {
			out.Low = running
			out.LowDate = e.Date
		}
		out.ClosingDay = e.Date
	}
	out.Closing = running
	return out
}

func writeSummary(w io.Writer, flow forecast.CashFlow) error {
	p := message.NewPrinter(language.English)
	s := summarise(flow.Entries)
	lines := []struct {
		format string
		args   []any
	}{
		{"Generated:         %s\n", []any{flow.GeneratedAt.Format(time.RFC3339)}},
		{"Starting balance:  %.2f\n", []any{flow.StartingBalance}},
		{"Annual expense:    %.2f\n", []any{flow.AnnualExpense}},
		{"Ledger entries:    %d\n", []any{len(flow.Entries)}},
		{"Lowest balance:    %.2f on %s\n", []any{s.Low, s.LowDate.Format("2006-01-02")}},
		{"Closing balance:   %.2f on %s\n", []any{s.Closing, s.ClosingDay.Format("2006-01-02")}},
	}
	for _, l := range lines {
		if _, err := p.Fprintf(w, l.format, l.args...); err != nil {
			return err
		}
	}
	for _, reason := range flow.Degraded {
		if _, err := p.Fprintf(w, "Degraded:          %s\n", reason); err != nil {
			return err
		}
	}
	return nil
}
