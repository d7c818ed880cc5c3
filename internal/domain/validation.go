package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Input validation errors
var (
	ErrMalformedRecord    = errors.New("malformed input record")
	ErrUnknownType        = errors.New("unknown transaction type")
	ErrNoDepositAmount    = errors.New("no deposit amount")
	ErrNoWithdrawalAmount = errors.New("no withdrawal amount")
	ErrNegativeAmount     = errors.New("amount must not be negative")
)

// ParseTxKind parses a transaction type name, ignoring case and surrounding
// whitespace.
func ParseTxKind(s string) (TxKind, error) {
	kind := TxKind(strings.ToLower(strings.TrimSpace(s)))

	switch kind {
	case TxKindDeposit, TxKindWithdrawal, TxKindDispute, TxKindResolve, TxKindChargeBack:
		return kind, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// ValidateAmount checks the amount of a deposit or withdrawal.
func ValidateAmount(kind TxKind, amount Money) error {
	if !kind.HasAmount() {
		return nil
	}

	if amount.IsNegative() {
		return fmt.Errorf("%w: %s %s", ErrNegativeAmount, kind, amount)
	}

	return nil
}

// MissingAmountError returns the error reported when a deposit or withdrawal
// arrives without an amount.
func MissingAmountError(kind TxKind) error {
	if kind == TxKindWithdrawal {
		return ErrNoWithdrawalAmount
	}
	return ErrNoDepositAmount
}
