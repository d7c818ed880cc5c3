package domain

import "errors"

var (
	// Money errors
	ErrMoneyParse     = errors.New("invalid money amount")
	ErrMoneyOverflow  = errors.New("money overflow")
	ErrMoneyUnderflow = errors.New("money underflow")

	// Replay errors
	ErrLedgerState          = errors.New("invalid internal ledger state")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrClientMismatch       = errors.New("transaction belongs to another client")
	ErrAccountLocked        = errors.New("account locked")
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction ID")
	ErrInvalidTransition    = errors.New("invalid transaction state transition")
	ErrInsufficientFunds    = errors.New("insufficient available funds")

	// Rejection categories, one per transaction kind
	ErrInvalidDeposit    = errors.New("invalid deposit")
	ErrInvalidWithdrawal = errors.New("invalid withdrawal")
	ErrInvalidDispute    = errors.New("invalid dispute")
	ErrInvalidResolve    = errors.New("invalid resolve")
	ErrInvalidChargeBack = errors.New("invalid charge back")
)

// IsFatal reports whether err indicates a broken ledger invariant rather than
// a rejected transaction.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLedgerState)
}
