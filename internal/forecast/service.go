package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

// Degradation codes reported in CashFlow.Degraded.
const (
	DegradedInvoices   = "invoices_unavailable"
	DegradedYTDExpense = "ytd_expense_unavailable"
)

const defaultFetchTimeout = 20 * time.Second

// Fetcher is the remote report source.
type Fetcher interface {
	FetchProfitAndLoss(ctx context.Context, from, to time.Time, periods int, timeframe string) (*xero.Report, error)
	FetchYearToDateProfitAndLoss(ctx context.Context, now time.Time) (*xero.Report, error)
	FetchBankSummary(ctx context.Context) (*xero.Report, error)
	FetchInvoices(ctx context.Context) ([]xero.Invoice, error)
}

// Credentials guards every remote fetch.
type Credentials interface {
	IsExpired(ctx context.Context) bool
	Refresh(ctx context.Context) error
}

// ServiceConfig tunes the pipeline. Zero values fall back to defaults.
type ServiceConfig struct {
	Policy       *Policy
	Layout       *Layout
	Accounts     *BankAccounts
	FetchTimeout time.Duration
	Cache        *Cache
	Logger       *slog.Logger
	Clock        func() time.Time
}

// Service runs the fetch, transform and compose pipelines.
type Service struct {
	fetcher      Fetcher
	credentials  Credentials
	policy       Policy
	layout       Layout
	accounts     BankAccounts
	fetchTimeout time.Duration
	cache        *Cache
	logger       *slog.Logger
	clock        func() time.Time
	group        singleflight.Group
}

// NewService wires a Fetcher and Credentials provider with the given config.
func NewService(fetcher Fetcher, credentials Credentials, cfg ServiceConfig) *Service {
	s := &Service{
		fetcher:      fetcher,
		credentials:  credentials,
		policy:       DefaultPolicy(),
		layout:       DefaultLayout(),
		accounts:     DefaultBankAccounts(),
		fetchTimeout: cfg.FetchTimeout,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		clock:        cfg.Clock,
	}
	if cfg.Policy != nil {
		s.policy = *cfg.Policy
	}
	if cfg.Layout != nil {
		s.layout = *cfg.Layout
	}
	if cfg.Accounts != nil {
		s.accounts = *cfg.Accounts
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Policy returns the active assumptions.
func (s *Service) Policy() Policy {
	return s.policy
}

// ProfitAndLoss fetches the multi-period P&L ending this month and
// normalizes it.
func (s *Service) ProfitAndLoss(ctx context.Context) (Normalization, error) {
	return cachedRun(ctx, s, "pl", s.buildProfitAndLoss)
}

// Invoices returns the projected invoice inflows.
func (s *Service) Invoices(ctx context.Context) ([]LedgerEntry, error) {
	return cachedRun(ctx, s, "invoices", s.buildInvoices)
}

// CashFlow composes the forecast ledger. A missing bank balance fails the
// run; a missing invoice list degrades it.
func (s *Service) CashFlow(ctx context.Context) (CashFlow, error) {
	return cachedRun(ctx, s, "cashflow", s.buildCashFlow)
}

func (s *Service) buildProfitAndLoss(ctx context.Context) (Normalization, error) {
	now := s.clock()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, -1)
	report, err := fetch(ctx, s, func(ctx context.Context) (*xero.Report, error) {
		return s.fetcher.FetchProfitAndLoss(ctx, from, to, s.policy.Periods, s.policy.Timeframe)
	})
	if err != nil {
		return Normalization{}, err
	}
	out, err := Normalize(report, s.layout)
	if err != nil {
		return Normalization{}, err
	}
	if len(out.MissingRows) > 0 {
		s.logger.Warn("profit and loss rows missing", slog.Any("rows", out.MissingRows))
	}
	return out, nil
}

func (s *Service) buildInvoices(ctx context.Context) ([]LedgerEntry, error) {
	now := s.clock()
	invoices, err := fetch(ctx, s, func(ctx context.Context) ([]xero.Invoice, error) {
		return s.fetcher.FetchInvoices(ctx)
	})
	if err != nil {
		return nil, err
	}
	return ProjectInvoices(invoices, now, s.policy.HorizonDays), nil
}

func (s *Service) buildCashFlow(ctx context.Context) (CashFlow, error) {
	now := s.clock()
	bank, err := fetch(ctx, s, func(ctx context.Context) (*xero.Report, error) {
		return s.fetcher.FetchBankSummary(ctx)
	})
	if err != nil {
		return CashFlow{}, err
	}
	balances, err := ReadBankBalances(bank, s.accounts)
	if err != nil {
		return CashFlow{}, err
	}

	var degraded []string
	var invoiceEntries, taxEntries []LedgerEntry
	invoices, err := fetch(ctx, s, func(ctx context.Context) ([]xero.Invoice, error) {
		return s.fetcher.FetchInvoices(ctx)
	})
	switch {
	case errors.Is(err, ErrCredentials):
		return CashFlow{}, err
	case err != nil:
		s.logger.Warn("cash flow without invoices", slog.Any("error", err))
		degraded = append(degraded, DegradedInvoices)
	default:
		invoiceEntries = ProjectInvoices(invoices, now, s.policy.HorizonDays)
		taxEntries = EstimateQuarterlyTax(invoices, now, s.policy)
	}

	annual := s.policy.AnnualExpense
	if s.policy.ExpenseBasis == ExpenseBasisYTD {
		ytd, err := s.annualExpenseFromYTD(ctx, now)
		if err != nil {
			if errors.Is(err, ErrCredentials) {
				return CashFlow{}, err
			}
			s.logger.Warn("ytd expense fallback to fixed", slog.Any("error", err))
			degraded = append(degraded, DegradedYTDExpense)
		} else {
			annual = ytd
		}
	}

	starting := balances.Total()
	entries := ComposeCashFlow(CashFlowInputs{
		StartingBalance: starting,
		AnnualExpense:   annual,
		Invoices:        invoiceEntries,
		Tax:             taxEntries,
		Now:             now,
		Days:            s.policy.HorizonDays,
	})
	return CashFlow{
		GeneratedAt:     now,
		StartingBalance: roundFloat(starting),
		AnnualExpense:   annual,
		Balances:        balances,
		Entries:         entries,
		Degraded:        degraded,
	}, nil
}

func (s *Service) annualExpenseFromYTD(ctx context.Context, now time.Time) (float64, error) {
	report, err := fetch(ctx, s, func(ctx context.Context) (*xero.Report, error) {
		return s.fetcher.FetchYearToDateProfitAndLoss(ctx, now)
	})
	if err != nil {
		return 0, err
	}
	return AnnualExpenseFromYTD(report, s.layout, now)
}

func (s *Service) ensureCredentials(ctx context.Context) error {
	if s.credentials == nil || !s.credentials.IsExpired(ctx) {
		return nil
	}
	s.logger.Info("credential expired, refreshing")
	if err := s.credentials.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCredentials, err)
	}
	return nil
}

// fetch checks credentials then runs one bounded remote call.
func fetch[T any](ctx context.Context, s *Service, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.fetcher == nil {
		return zero, fmt.Errorf("%w: fetcher not configured", ErrFetch)
	}
	if err := s.ensureCredentials(ctx); err != nil {
		return zero, err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	out, err := call(fetchCtx)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return out, nil
}

// buildTimeout bounds one shared pipeline run: a credential refresh plus up
// to three fetches.
func (s *Service) buildTimeout() time.Duration {
	return 4 * s.fetchTimeout
}

// cachedRun collapses concurrent identical runs and reads through the cache.
// The shared run is detached from the caller that started it; each caller
// stops waiting when its own context ends.
func cachedRun[T any](ctx context.Context, s *Service, name string, build func(context.Context) (T, error)) (T, error) {
	var zero T
	key, err := s.cache.BuildKey(ctx, name, s.clock().Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("forecast cache unavailable", slog.Any("error", err))
		return build(ctx)
	}
	resultChan := s.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.buildTimeout())
		defer cancel()
		var out T
		loader := func(ctx context.Context) (any, error) {
			return build(ctx)
		}
		if err := s.cache.FetchJSON(runCtx, key, &out, loader); err != nil {
			return nil, err
		}
		return out, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops every cached pipeline result.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
