package xero

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice types.
const (
	InvoiceTypeReceivable = "ACCREC"
	InvoiceTypePayable    = "ACCPAY"
)

// InvoicesResponse is the envelope returned by GET /Invoices.
type InvoicesResponse struct {
	Invoices []Invoice `json:"Invoices"`
}

// Invoice is the subset of a Xero invoice the forecast relies on.
type Invoice struct {
	InvoiceID     string          `json:"InvoiceID"`
	InvoiceNumber string          `json:"InvoiceNumber,omitempty"`
	Type          string          `json:"Type,omitempty"`
	Status        string          `json:"Status,omitempty"`
	AmountDue     decimal.Decimal `json:"AmountDue"`
	AmountPaid    decimal.Decimal `json:"AmountPaid"`
	Total         decimal.Decimal `json:"Total"`
	DueDate       Date            `json:"DueDate"`
}

var msDatePattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

var isoDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Date decodes both Xero's legacy "/Date(1518685950940+0000)/" form and ISO
// 8601 strings. The zero value means the field was absent.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("xero: date: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// MarshalJSON renders the date as RFC3339, or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// ParseDate parses a Xero date string. Empty input yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if m := msDatePattern.FindStringSubmatch(raw); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("xero: date %q: %w", raw, err)
		}
		// The offset suffix describes the org timezone; the millis are UTC.
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("xero: unrecognised date %q", raw)
}
