package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tpe/txengine/internal/domain"
	"github.com/tpe/txengine/internal/infrastructure/metrics"
	"github.com/tpe/txengine/internal/ledger"
)

// TransactionUseCase handles ingestion: every event is appended to the ledger
// and the owning client's snapshot catches up with it.
type TransactionUseCase struct {
	ledger    *ledger.Ledger
	snapshots *ledger.Snapshots
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	strict    bool
}

// NewTransactionUseCase creates a new TransactionUseCase. With strict set, a
// broken ledger invariant aborts ProcessAll instead of being logged.
func NewTransactionUseCase(
	l *ledger.Ledger,
	snapshots *ledger.Snapshots,
	m *metrics.Metrics,
	logger zerolog.Logger,
	strict bool,
) *TransactionUseCase {
	return &TransactionUseCase{
		ledger:    l,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger,
		strict:    strict,
	}
}

// Summary counts what happened to the records of one ingestion run.
type Summary struct {
	Read      int
	Applied   int
	Rejected  int
	Malformed int
}

// Process appends tx to the ledger and brings its client's snapshot up to
// date. A non-nil error means tx was rejected and invalidated, unless ctx
// was already done, in which case tx is not appended at all.
func (uc *TransactionUseCase) Process(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return uc.process(tx)
}

// process applies tx unconditionally. ProcessAll checks ctx between events
// so an event already read is always completed.
func (uc *TransactionUseCase) process(tx domain.Transaction) error {
	idx := uc.ledger.Append(tx)
	snap := uc.snapshots.FindOrCreate(tx.ClientID)

	start := time.Now()
	err := snap.ApplyTransactions(uc.ledger)
	uc.metrics.ReplayDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		uc.reject(tx, idx, err)
		return err
	}

	uc.metrics.TransactionsApplied.WithLabelValues(string(tx.Kind())).Inc()
	if tx.Kind().HasAmount() {
		uc.metrics.TransactionAmount.WithLabelValues(string(tx.Kind())).
			Observe(tx.Type.Amount.Decimal().InexactFloat64())
	}

	uc.logger.Debug().
		Stringer("client", tx.ClientID).
		Stringer("tx", tx.ID).
		Str("kind", string(tx.Kind())).
		Int("ledger_idx", idx).
		Msg("transaction applied")

	return nil
}

// ProcessAll reads source until it is exhausted and processes every event in
// order. Rejected and malformed records are counted and skipped. It stops
// early when ctx is cancelled, when source fails, or in strict mode on a
// broken ledger invariant; the summary covers what was done so far.
func (uc *TransactionUseCase) ProcessAll(ctx context.Context, source EventSource) (Summary, error) {
	var summary Summary
	defer uc.updateGauges()

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		tx, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			if !errors.Is(err, domain.ErrMalformedRecord) {
				return summary, fmt.Errorf("read transactions: %w", err)
			}

			summary.Read++
			summary.Malformed++
			uc.metrics.RecordsRead.Inc()
			uc.metrics.RecordsMalformed.WithLabelValues(malformedReason(err)).Inc()
			uc.logger.Warn().Err(err).Msg("skipping malformed record")
			continue
		}

		summary.Read++
		uc.metrics.RecordsRead.Inc()

		err = uc.process(tx)
		if err == nil {
			summary.Applied++
			continue
		}

		summary.Rejected++
		if uc.strict && domain.IsFatal(err) {
			return summary, err
		}
	}

	uc.logger.Info().
		Int("read", summary.Read).
		Int("applied", summary.Applied).
		Int("rejected", summary.Rejected).
		Int("malformed", summary.Malformed).
		Msg("transactions processed")

	return summary, nil
}

func (uc *TransactionUseCase) reject(tx domain.Transaction, idx int, err error) {
	var replayErr *ledger.ReplayError
	if errors.As(err, &replayErr) {
		idx = replayErr.Index
	}

	uc.metrics.TransactionsRejected.WithLabelValues(string(tx.Kind()), rejectReason(err)).Inc()

	event := uc.logger.Warn()
	msg := "transaction rejected"
	if domain.IsFatal(err) {
		event = uc.logger.Error()
		msg = "ledger invariant broken"
	}

	event.Err(err).
		Stringer("client", tx.ClientID).
		Stringer("tx", tx.ID).
		Str("kind", string(tx.Kind())).
		Int("ledger_idx", idx).
		Msg(msg)
}

func (uc *TransactionUseCase) updateGauges() {
	uc.metrics.LedgerEntries.Set(float64(uc.ledger.Len()))
	uc.metrics.LedgerInvalidEntries.Set(float64(uc.ledger.InvalidCount()))
	uc.metrics.Accounts.Set(float64(uc.snapshots.Len()))

	locked := 0
	for _, snap := range uc.snapshots.All() {
		if snap.Locked() {
			locked++
		}
	}
	uc.metrics.LockedAccounts.Set(float64(locked))
}

// rejectReason maps a replay error to a low-cardinality metric label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrLedgerState):
		return "ledger_state"
	case errors.Is(err, domain.ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrMoneyOverflow), errors.Is(err, domain.ErrMoneyUnderflow):
		return "overflow"
	case errors.Is(err, domain.ErrInvalidDispute):
		return "not_disputable"
	default:
		return "other"
	}
}

func malformedReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, domain.ErrNoDepositAmount), errors.Is(err, domain.ErrNoWithdrawalAmount):
		return "missing_amount"
	case errors.Is(err, domain.ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, domain.ErrMoneyParse):
		return "invalid_amount"
	default:
		return "malformed"
	}
}
