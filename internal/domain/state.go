package domain

import "fmt"

// TxState is the lifecycle state of a deposit or withdrawal.
//
//	valid --dispute--> disputed --resolve--> valid
//	                   disputed --chargeback--> charged_back (terminal)
type TxState string

const (
	TxStateValid       TxState = "valid"
	TxStateDisputed    TxState = "disputed"
	TxStateChargedBack TxState = "charged_back"
)

// Transition returns the state reached by applying an event of the given kind.
func (s TxState) Transition(kind TxKind) (TxState, error) {
	switch {
	case kind == TxKindDispute && s == TxStateValid:
		return TxStateDisputed, nil
	case kind == TxKindResolve && s == TxStateDisputed:
		return TxStateValid, nil
	case kind == TxKindChargeBack && s == TxStateDisputed:
		return TxStateChargedBack, nil
	}

	return s, fmt.Errorf("%w: cannot apply %s to a %s transaction", ErrInvalidTransition, kind, s)
}

// IsTerminal reports whether no further transition is possible.
func (s TxState) IsTerminal() bool {
	return s == TxStateChargedBack
}

// StateOf derives the current state of a transaction from its valid history in
// ledger order. The last entry decides. It returns false for an empty history.
func StateOf(history []Transaction) (TxState, bool) {
	if len(history) == 0 {
		return "", false
	}

	switch history[len(history)-1].Kind() {
	case TxKindDispute:
		return TxStateDisputed, true
	case TxKindChargeBack:
		return TxStateChargedBack, true
	default:
		return TxStateValid, true
	}
}
