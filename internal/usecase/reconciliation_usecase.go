package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tpe/txengine/internal/domain"
	"github.com/tpe/txengine/internal/infrastructure/metrics"
	"github.com/tpe/txengine/internal/ledger"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	ledger    *ledger.Ledger
	snapshots *ledger.Snapshots
	metrics   *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	l *ledger.Ledger,
	snapshots *ledger.Snapshots,
	m *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		ledger:    l,
		snapshots: snapshots,
		metrics:   m,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	ClientID            domain.ClientID
	RecordedAvailable   decimal.Decimal
	CalculatedAvailable decimal.Decimal
	RecordedHeld        decimal.Decimal
	CalculatedHeld      decimal.Decimal
	RecordedLocked      bool
	CalculatedLocked    bool
	// Difference is recorded total minus calculated total.
	Difference   decimal.Decimal
	IsReconciled bool
}

// ReconcileAccount recomputes the balances of client from its valid ledger
// entries up to the snapshot watermark and compares them with the snapshot.
// The recomputation uses arbitrary precision, so it cannot overflow.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, client domain.ClientID) (*ReconciliationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, ok := uc.snapshots.Get(client)
	if !ok {
		return nil, fmt.Errorf("%w: client %s", domain.ErrAccountNotFound, client)
	}

	calc, err := uc.recompute(snap)
	if err != nil {
		return nil, err
	}

	recordedAvailable := snap.Available().Decimal()
	recordedHeld := snap.Held().Decimal()

	return &ReconciliationResult{
		ClientID:            client,
		RecordedAvailable:   recordedAvailable,
		CalculatedAvailable: calc.available,
		RecordedHeld:        recordedHeld,
		CalculatedHeld:      calc.held,
		RecordedLocked:      snap.Locked(),
		CalculatedLocked:    calc.locked,
		Difference:          recordedAvailable.Add(recordedHeld).Sub(calc.available.Add(calc.held)),
		IsReconciled: recordedAvailable.Equal(calc.available) &&
			recordedHeld.Equal(calc.held) &&
			snap.Locked() == calc.locked,
	}, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	LedgerEntries      int
	InvalidEntries     int
	CheckedAt          time.Time
}

// Consistent reports whether every account reconciled.
func (r *ReconciliationReport) Consistent() bool {
	return r.ReconciledAccounts == r.TotalAccounts
}

// Reconcile reconciles every account, in client order.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context) (*ReconciliationReport, error) {
	snaps := uc.snapshots.All()

	report := &ReconciliationReport{
		TotalAccounts:  len(snaps),
		Discrepancies:  make([]*ReconciliationResult, 0),
		LedgerEntries:  uc.ledger.Len(),
		InvalidEntries: uc.ledger.InvalidCount(),
	}

	for _, snap := range snaps {
		result, err := uc.ReconcileAccount(ctx, snap.ClientID())
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile client %s: %w", snap.ClientID(), err)
		}

		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	report.CheckedAt = time.Now().UTC()
	uc.metrics.ReconciliationDiscrepancies.Set(float64(len(report.Discrepancies)))

	return report, nil
}

type balances struct {
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
}

// recompute folds the valid entries seen by snap. Valid entries at or below
// the watermark are exactly those that applied, so no rule is re-checked
// except that a referenced deposit must exist.
func (uc *ReconciliationUseCase) recompute(snap *ledger.AccountSnapshot) (balances, error) {
	b := balances{available: decimal.Zero, held: decimal.Zero}

	watermark, ok := snap.Watermark()
	if !ok {
		return b, nil
	}

	deposits := make(map[domain.TransactionID]decimal.Decimal)

	for _, idx := range uc.ledger.ValidIndicesForClient(snap.ClientID(), 0) {
		if idx > watermark {
			break
		}

		tx, _ := uc.ledger.Get(idx)

		switch tx.Kind() {
		case domain.TxKindDeposit:
			amount := tx.Type.Amount.Decimal()
			deposits[tx.ID] = amount
			b.available = b.available.Add(amount)
		case domain.TxKindWithdrawal:
			b.available = b.available.Sub(tx.Type.Amount.Decimal())
		default:
			amount, found := deposits[tx.ID]
			if !found {
				return b, fmt.Errorf("%w: %s of tx %s at index %d references no deposit",
					domain.ErrLedgerState, tx.Kind(), tx.ID, idx)
			}

			switch tx.Kind() {
			case domain.TxKindDispute:
				b.available = b.available.Sub(amount)
				b.held = b.held.Add(amount)
			case domain.TxKindResolve:
				b.held = b.held.Sub(amount)
				b.available = b.available.Add(amount)
			case domain.TxKindChargeBack:
				b.held = b.held.Sub(amount)
				b.locked = true
			}
		}
	}

	return b, nil
}
