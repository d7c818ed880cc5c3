package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tpe/txengine/internal/domain"
	"github.com/tpe/txengine/internal/infrastructure/metrics"
	"github.com/tpe/txengine/internal/ledger"
	"github.com/tpe/txengine/internal/usecase"
	"github.com/tpe/txengine/internal/usecase/mocks"
)

type fixture struct {
	ledger    *ledger.Ledger
	snapshots *ledger.Snapshots
	metrics   *metrics.Metrics
	logs      *bytes.Buffer
	uc        *usecase.TransactionUseCase
}

func newFixture(strict bool) *fixture {
	f := &fixture{
		ledger:    ledger.New(),
		snapshots: ledger.NewSnapshots(),
		metrics:   metrics.New(),
		logs:      &bytes.Buffer{},
	}
	logger := zerolog.New(f.logs).Level(zerolog.DebugLevel)
	f.uc = usecase.NewTransactionUseCase(f.ledger, f.snapshots, f.metrics, logger, strict)
	return f
}

func amount(s string) domain.Money {
	return domain.MustParseMoney(s)
}

func TestTransactionUseCase_Process(t *testing.T) {
	tests := []struct {
		name        string
		history     []domain.Transaction
		tx          domain.Transaction
		expectError error
		available   string
		held        string
	}{
		{
			name:      "deposit credits available",
			tx:        domain.NewDeposit(1, 1, amount("1.5")),
			available: "1.5000",
			held:      "0.0000",
		},
		{
			name:        "withdrawal beyond balance",
			history:     []domain.Transaction{domain.NewDeposit(1, 1, amount("1"))},
			tx:          domain.NewWithdrawal(2, 1, amount("2")),
			expectError: domain.ErrInsufficientFunds,
			available:   "1.0000",
			held:        "0.0000",
		},
		{
			name:      "dispute moves funds to held",
			history:   []domain.Transaction{domain.NewDeposit(1, 1, amount("3"))},
			tx:        domain.NewDispute(1, 1),
			available: "0.0000",
			held:      "3.0000",
		},
		{
			name:        "dispute of unknown transaction",
			history:     []domain.Transaction{domain.NewDeposit(1, 1, amount("3"))},
			tx:          domain.NewDispute(2, 1),
			expectError: domain.ErrTransactionNotFound,
			available:   "3.0000",
			held:        "0.0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			ctx := context.Background()

			for _, tx := range tt.history {
				require.NoError(t, f.uc.Process(ctx, tx))
			}

			err := f.uc.Process(ctx, tt.tx)
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)

				var replayErr *ledger.ReplayError
				require.ErrorAs(t, err, &replayErr)
				assert.Equal(t, len(tt.history), replayErr.Index)
			} else {
				require.NoError(t, err)
			}

			snap, ok := f.snapshots.Get(tt.tx.ClientID)
			require.True(t, ok)
			assert.Equal(t, tt.available, snap.Available().String())
			assert.Equal(t, tt.held, snap.Held().String())
			assert.Equal(t, len(tt.history)+1, f.ledger.Len())
		})
	}
}

func TestTransactionUseCase_ProcessAll(t *testing.T) {
	f := newFixture(false)

	source := mocks.NewSliceEventSource(
		domain.NewDeposit(1, 1, amount("1.0")),
		domain.NewDeposit(2, 2, amount("2.0")),
		domain.NewDeposit(3, 1, amount("2.0")),
		domain.NewWithdrawal(4, 1, amount("1.5")),
		domain.NewWithdrawal(5, 2, amount("3.0")),
	).Then(fmt.Errorf("%w: line 7: %w", domain.ErrMalformedRecord, domain.ErrUnknownType)).
		ThenTx(domain.NewDispute(1, 1))

	summary, err := f.uc.ProcessAll(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, usecase.Summary{Read: 7, Applied: 5, Rejected: 1, Malformed: 1}, summary)

	snap, _ := f.snapshots.Get(1)
	assert.Equal(t, "0.5000", snap.Available().String())
	assert.Equal(t, "1.0000", snap.Held().String())

	snap, _ = f.snapshots.Get(2)
	assert.Equal(t, "2.0000", snap.Available().String())

	assert.Equal(t, float64(7), testutil.ToFloat64(f.metrics.RecordsRead))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RecordsMalformed.WithLabelValues("unknown_type")))
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.TransactionsApplied.WithLabelValues("deposit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TransactionsRejected.WithLabelValues("withdrawal", "insufficient_funds")))
	assert.Equal(t, float64(6), testutil.ToFloat64(f.metrics.LedgerEntries))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LedgerInvalidEntries))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Accounts))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.LockedAccounts))

	logs := f.logs.String()
	assert.Contains(t, logs, "transaction rejected")
	assert.Contains(t, logs, "skipping malformed record")
	assert.Contains(t, logs, `"applied":5`)
}

func TestTransactionUseCase_ProcessAllCountsLockedAccounts(t *testing.T) {
	f := newFixture(false)

	source := mocks.NewSliceEventSource(
		domain.NewDeposit(1, 1, amount("5")),
		domain.NewDispute(1, 1),
		domain.NewChargeBack(1, 1),
		domain.NewDeposit(2, 1, amount("1")),
	)

	summary, err := f.uc.ProcessAll(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Applied)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LockedAccounts))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TransactionsRejected.WithLabelValues("deposit", "account_locked")))
}

func TestTransactionUseCase_ProcessAllSourceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(false)
	readErr := errors.New("disk on fire")

	source := mocks.NewMockEventSource(ctrl)
	gomock.InOrder(
		source.EXPECT().Next().Return(domain.NewDeposit(1, 1, amount("1")), nil),
		source.EXPECT().Next().Return(domain.Transaction{}, readErr),
	)

	summary, err := f.uc.ProcessAll(context.Background(), source)
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LedgerEntries))
}

func TestTransactionUseCase_ProcessAllStopsOnEOF(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(false)

	source := mocks.NewMockEventSource(ctrl)
	source.EXPECT().Next().Return(domain.Transaction{}, io.EOF).Times(1)

	summary, err := f.uc.ProcessAll(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, usecase.Summary{}, summary)
}

func TestTransactionUseCase_ProcessAllCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(false)
	ctx, cancel := context.WithCancel(context.Background())

	source := mocks.NewMockEventSource(ctrl)
	source.EXPECT().Next().DoAndReturn(func() (domain.Transaction, error) {
		cancel()
		return domain.NewDeposit(1, 1, amount("1")), nil
	})

	summary, err := f.uc.ProcessAll(ctx, source)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Applied, "the event in flight is completed")
}

func TestTransactionUseCase_ProcessCancelled(t *testing.T) {
	f := newFixture(false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.uc.Process(ctx, domain.NewDeposit(1, 1, amount("1")))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, f.ledger.Len(), "a cancelled event is never appended")
	_, ok := f.snapshots.Get(1)
	assert.False(t, ok)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.TransactionsApplied.WithLabelValues(string(domain.TxKindDeposit))))
}

func TestTransactionUseCase_StrictModeAbortsOnLedgerState(t *testing.T) {
	for _, strict := range []bool{false, true} {
		t.Run(fmt.Sprintf("strict=%v", strict), func(t *testing.T) {
			f := newFixture(strict)

			// An entry that was applied but is then invalidated behind the
			// snapshot's back leaves a resolve without its dispute.
			ctx := context.Background()
			require.NoError(t, f.uc.Process(ctx, domain.NewDeposit(1, 1, amount("5"))))
			require.NoError(t, f.uc.Process(ctx, domain.NewDispute(1, 1)))
			require.NoError(t, f.uc.Process(ctx, domain.NewResolve(1, 1)))
			f.ledger.Invalidate(1)

			source := mocks.NewSliceEventSource(
				domain.NewDispute(1, 1),
				domain.NewDeposit(2, 1, amount("1")),
			)

			summary, err := f.uc.ProcessAll(ctx, source)
			if strict {
				require.Error(t, err)
				assert.True(t, domain.IsFatal(err))
				assert.Equal(t, 1, summary.Rejected)
				assert.Equal(t, 0, summary.Applied)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 1, summary.Rejected)
				assert.Equal(t, 1, summary.Applied)
			}

			assert.True(t, strings.Contains(f.logs.String(), "ledger invariant broken"))
			assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TransactionsRejected.WithLabelValues("dispute", "ledger_state")))
		})
	}
}
