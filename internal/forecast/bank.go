package forecast

import (
	"fmt"

	"github.com/odyssey-erp/cashcast/internal/xero"
)

// closingBalanceColumn is the closing-balance slot of a bank summary row
// once the label cell is dropped.
const closingBalanceColumn = 3

// ReadBankBalances reads the closing balance of both tracked accounts. Any
// missing account fails the read; there is no zero fallback.
func ReadBankBalances(report *xero.Report, accounts BankAccounts) (BankBalances, error) {
	if report == nil {
		return BankBalances{}, fmt.Errorf("%w: %w", ErrBalanceUnavailable, ErrNoReport)
	}
	primary, err := closingBalance(report, accounts.Primary)
	if err != nil {
		return BankBalances{}, err
	}
	secondary, err := closingBalance(report, accounts.Secondary)
	if err != nil {
		return BankBalances{}, err
	}
	return BankBalances{Primary: primary, Secondary: secondary}, nil
}

func closingBalance(report *xero.Report, account string) (float64, error) {
	series, err := LocateDetailRow(report, account)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}
	if len(series) <= closingBalanceColumn {
		return 0, fmt.Errorf("%w: %q has %d columns", ErrBalanceUnavailable, account, len(series))
	}
	return series.Float(closingBalanceColumn), nil
}
