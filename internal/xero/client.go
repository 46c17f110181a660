package xero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the accounting API root.
const DefaultBaseURL = "https://api.xero.com/api.xro/2.0"

// invoicePageSize is the fixed page size of GET /Invoices.
const invoicePageSize = 100

const maxInvoicePages = 50

var (
	// ErrRequest wraps transport, status and decode failures.
	ErrRequest = errors.New("xero: request failed")
	// ErrEmptyResponse indicates the Reports envelope carried no report.
	ErrEmptyResponse = errors.New("xero: empty report response")
	// ErrTooManyInvoices indicates the invoice list did not end within maxInvoicePages.
	ErrTooManyInvoices = errors.New("xero: invoice list exceeds page limit")
)

// StatusError carries the HTTP status of a rejected call.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("xero returned status %d", e.Status)
	}
	return fmt.Sprintf("xero returned status %d: %s", e.Status, e.Body)
}

// TokenSource yields the bearer token used on every call.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client wraps the subset of the accounting API cashcast reads.
type Client struct {
	baseURL    string
	tenantID   string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL, tenantID string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// FetchProfitAndLoss loads a P&L for [from, to] with the given number of
// comparison periods and timeframe (MONTH, QUARTER or YEAR).
func (c *Client) FetchProfitAndLoss(ctx context.Context, from, to time.Time, periods int, timeframe string) (*Report, error) {
	q := url.Values{}
	q.Set("fromDate", from.Format("2006-01-02"))
	q.Set("toDate", to.Format("2006-01-02"))
	if periods > 0 {
		q.Set("periods", strconv.Itoa(periods))
	}
	if timeframe != "" {
		q.Set("timeframe", timeframe)
	}
	return c.fetchReport(ctx, "/Reports/ProfitAndLoss", q)
}

// FetchYearToDateProfitAndLoss loads a single-column P&L from 1 January of
// now's year up to now.
func (c *Client) FetchYearToDateProfitAndLoss(ctx context.Context, now time.Time) (*Report, error) {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	q := url.Values{}
	q.Set("fromDate", start.Format("2006-01-02"))
	q.Set("toDate", now.Format("2006-01-02"))
	return c.fetchReport(ctx, "/Reports/ProfitAndLoss", q)
}

// FetchBankSummary loads the bank summary report for the current month.
func (c *Client) FetchBankSummary(ctx context.Context) (*Report, error) {
	return c.fetchReport(ctx, "/Reports/BankSummary", nil)
}

// FetchInvoices loads every invoice page. A list longer than
// maxInvoicePages full pages is an error rather than a truncated result.
func (c *Client) FetchInvoices(ctx context.Context) ([]Invoice, error) {
	invoices := make([]Invoice, 0)
	for page := 1; page <= maxInvoicePages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		var resp InvoicesResponse
		if err := c.get(ctx, "/Invoices", q, &resp); err != nil {
			return nil, err
		}
		invoices = append(invoices, resp.Invoices...)
		if len(resp.Invoices) < invoicePageSize {
			return invoices, nil
		}
	}
	return nil, fmt.Errorf("%w: /Invoices: %w", ErrRequest, ErrTooManyInvoices)
}

func (c *Client) fetchReport(ctx context.Context, path string, q url.Values) (*Report, error) {
	var resp ReportsResponse
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Reports) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, path)
	}
	report := resp.Reports[0]
	return &report, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dest any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequest, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tenantID != "" {
		req.Header.Set("Xero-tenant-id", c.tenantID)
	}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s: token: %w", ErrRequest, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequest, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %w", ErrRequest, path, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: %s: decode: %w", ErrRequest, path, err)
	}
	return nil
}
