package ledger

import (
	"fmt"

	"github.com/tpe/txengine/internal/domain"
)

// AccountSnapshot is the running balance of one client, folded from the
// ledger. It only keeps a watermark into the ledger, never the history itself.
type AccountSnapshot struct {
	clientID  domain.ClientID
	watermark int
	available domain.Money
	held      domain.Money
	locked    bool
}

// NewAccountSnapshot creates an empty snapshot that has seen no entries yet.
func NewAccountSnapshot(client domain.ClientID) *AccountSnapshot {
	return &AccountSnapshot{
		clientID:  client,
		watermark: -1,
	}
}

func (s *AccountSnapshot) ClientID() domain.ClientID { return s.clientID }
func (s *AccountSnapshot) Available() domain.Money   { return s.available }
func (s *AccountSnapshot) Held() domain.Money        { return s.held }
func (s *AccountSnapshot) Locked() bool              { return s.locked }

// Watermark returns the highest ledger index folded into the snapshot,
// successfully or not. It returns false while nothing has been replayed.
func (s *AccountSnapshot) Watermark() (int, bool) {
	return s.watermark, s.watermark >= 0
}

// ReplayError describes a ledger entry that failed to apply. The entry has
// been invalidated by the time the error is returned.
type ReplayError struct {
	Index    int
	TxID     domain.TransactionID
	ClientID domain.ClientID
	Kind     domain.TxKind
	Err      error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("ledger entry %d (%s tx %s, client %s): %v", e.Index, e.Kind, e.TxID, e.ClientID, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// ApplyTransactions replays every valid ledger entry of this client that the
// snapshot has not seen yet, in ledger order. It stops at the first failure:
// the failing entry is invalidated, the watermark still moves past it, and the
// error is returned. A later call resumes with the next entry.
func (s *AccountSnapshot) ApplyTransactions(l *Ledger) error {
	for _, idx := range l.ValidIndicesForClient(s.clientID, s.watermark+1) {
		err := s.applyTransaction(l, idx)
		s.watermark = idx

		if err != nil {
			tx, _ := l.Get(idx)
			l.Invalidate(idx)

			return &ReplayError{
				Index:    idx,
				TxID:     tx.ID,
				ClientID: s.clientID,
				Kind:     tx.Kind(),
				Err:      err,
			}
		}
	}

	return nil
}

// Report builds the final report line for the account.
func (s *AccountSnapshot) Report() (domain.AccountReport, error) {
	total, err := s.available.Add(s.held)
	if err != nil {
		return domain.AccountReport{}, fmt.Errorf("client %s total: %w", s.clientID, err)
	}

	return domain.AccountReport{
		Client:    s.clientID,
		Available: s.available.String(),
		Held:      s.held.String(),
		Total:     total.String(),
		Locked:    s.locked,
	}, nil
}

func (s *AccountSnapshot) applyTransaction(l *Ledger, idx int) error {
	tx, ok := l.Get(idx)
	if !ok {
		return fmt.Errorf("%w: no entry at index %d", domain.ErrLedgerState, idx)
	}
	if tx.Invalid {
		return fmt.Errorf("%w: entry %d is invalid", domain.ErrLedgerState, idx)
	}

	if s.locked {
		return fmt.Errorf("%w: client %s cannot process tx %s", domain.ErrAccountLocked, s.clientID, tx.ID)
	}

	// history ends with tx itself
	history := l.ValidTransactionsUntil(idx, tx.ID)
	prior := history[:len(history)-1]

	switch tx.Kind() {
	case domain.TxKindDeposit:
		return s.deposit(tx, prior)
	case domain.TxKindWithdrawal:
		return s.withdraw(tx, prior)
	case domain.TxKindDispute:
		return s.dispute(tx, prior)
	case domain.TxKindResolve:
		return s.resolve(tx, prior)
	case domain.TxKindChargeBack:
		return s.chargeBack(tx, prior)
	default:
		return fmt.Errorf("%w: unknown transaction kind %q", domain.ErrLedgerState, tx.Kind())
	}
}

// reusedTooOften reports whether an ID already carries more than one valid
// entry. A single earlier entry is tolerated.
func reusedTooOften(prior []domain.Transaction) bool {
	return len(prior) > 1
}

func (s *AccountSnapshot) deposit(tx domain.Transaction, prior []domain.Transaction) error {
	if reusedTooOften(prior) {
		return fmt.Errorf("%w: %w: %s", domain.ErrInvalidDeposit, domain.ErrDuplicateTransaction, tx.ID)
	}

	available, err := s.available.Add(tx.Type.Amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDeposit, err)
	}

	s.available = available
	return nil
}

func (s *AccountSnapshot) withdraw(tx domain.Transaction, prior []domain.Transaction) error {
	if reusedTooOften(prior) {
		return fmt.Errorf("%w: %w: %s", domain.ErrInvalidWithdrawal, domain.ErrDuplicateTransaction, tx.ID)
	}

	amount := tx.Type.Amount
	if s.available < amount {
		return fmt.Errorf("%w: %w: cannot withdraw %s when available is %s",
			domain.ErrInvalidWithdrawal, domain.ErrInsufficientFunds, amount, s.available)
	}

	available, err := s.available.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidWithdrawal, err)
	}

	s.available = available
	return nil
}

func (s *AccountSnapshot) dispute(tx domain.Transaction, prior []domain.Transaction) error {
	if err := s.checkTransition(domain.ErrInvalidDispute, tx, prior); err != nil {
		return err
	}

	original, err := findOriginal(prior)
	if err != nil {
		return err
	}

	// Withdrawals cannot be disputed.
	if original.Kind() != domain.TxKindDeposit {
		return fmt.Errorf("%w: cannot dispute a %s", domain.ErrInvalidDispute, original.Kind())
	}

	if err := s.checkOwner(domain.ErrInvalidDispute, original); err != nil {
		return err
	}

	amount := original.Type.Amount
	available, err := s.available.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDispute, err)
	}
	held, err := s.held.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDispute, err)
	}

	s.available = available
	s.held = held
	return nil
}

func (s *AccountSnapshot) resolve(tx domain.Transaction, prior []domain.Transaction) error {
	original, err := s.disputedDeposit(domain.ErrInvalidResolve, tx, prior)
	if err != nil {
		return err
	}

	amount := original.Type.Amount
	held, err := s.held.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidResolve, err)
	}
	available, err := s.available.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidResolve, err)
	}

	s.available = available
	s.held = held
	return nil
}

func (s *AccountSnapshot) chargeBack(tx domain.Transaction, prior []domain.Transaction) error {
	original, err := s.disputedDeposit(domain.ErrInvalidChargeBack, tx, prior)
	if err != nil {
		return err
	}

	held, err := s.held.Sub(original.Type.Amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidChargeBack, err)
	}

	s.held = held
	s.locked = true
	return nil
}

// disputedDeposit validates a resolve or charge back against the prior
// history and returns the deposit under dispute.
func (s *AccountSnapshot) disputedDeposit(category error, tx domain.Transaction, prior []domain.Transaction) (domain.Transaction, error) {
	if err := s.checkTransition(category, tx, prior); err != nil {
		return domain.Transaction{}, err
	}

	// prior ends with the dispute being settled
	original, err := findOriginal(prior[:len(prior)-1])
	if err != nil {
		return domain.Transaction{}, err
	}

	if original.Kind() != domain.TxKindDeposit {
		return domain.Transaction{}, fmt.Errorf("%w: disputed tx %s is a %s", domain.ErrLedgerState, original.ID, original.Kind())
	}

	if err := s.checkOwner(category, original); err != nil {
		return domain.Transaction{}, err
	}

	return original, nil
}

// checkTransition verifies that the referenced transaction exists, belongs to
// this client and is in a state that accepts tx.
func (s *AccountSnapshot) checkTransition(category error, tx domain.Transaction, prior []domain.Transaction) error {
	state, found := domain.StateOf(prior)
	if !found {
		return fmt.Errorf("%w: %w: no previous transaction with ID %s", category, domain.ErrTransactionNotFound, tx.ID)
	}

	if err := s.checkOwner(category, prior[len(prior)-1]); err != nil {
		return err
	}

	if _, err := state.Transition(tx.Kind()); err != nil {
		return fmt.Errorf("%w: %w", category, err)
	}

	return nil
}

func (s *AccountSnapshot) checkOwner(category error, tx domain.Transaction) error {
	if tx.ClientID != s.clientID {
		return fmt.Errorf("%w: %w: tx %s of client %s cannot be processed for client %s",
			category, domain.ErrClientMismatch, tx.ID, tx.ClientID, s.clientID)
	}
	return nil
}

// findOriginal walks history backwards, skipping settled dispute/resolve
// pairs, until it reaches the deposit or withdrawal that opened it.
func findOriginal(history []domain.Transaction) (domain.Transaction, error) {
	i := len(history) - 1

	for i >= 0 {
		tx := history[i]

		switch tx.Kind() {
		case domain.TxKindDeposit, domain.TxKindWithdrawal:
			return tx, nil
		case domain.TxKindResolve:
			if i == 0 || history[i-1].Kind() != domain.TxKindDispute {
				return domain.Transaction{}, fmt.Errorf("%w: resolve of tx %s without a matching dispute", domain.ErrLedgerState, tx.ID)
			}
			i -= 2
		default:
			return domain.Transaction{}, fmt.Errorf("%w: unexpected %s in history of tx %s", domain.ErrLedgerState, tx.Kind(), tx.ID)
		}
	}

	return domain.Transaction{}, fmt.Errorf("%w: no deposit or withdrawal found", domain.ErrLedgerState)
}
