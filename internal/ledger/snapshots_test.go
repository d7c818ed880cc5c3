package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpe/txengine/internal/domain"
)

func TestSnapshots_FindOrCreate(t *testing.T) {
	s := NewSnapshots()

	first := s.FindOrCreate(3)
	second := s.FindOrCreate(3)

	assert.Same(t, first, second)
	assert.Equal(t, domain.ClientID(3), first.ClientID())
	assert.Equal(t, 1, s.Len())

	_, ok := first.Watermark()
	assert.False(t, ok)

	_, ok = s.Get(4)
	assert.False(t, ok)
}

func TestSnapshots_AllSortedByClient(t *testing.T) {
	s := NewSnapshots()
	for _, c := range []domain.ClientID{9, 1, 65535, 4} {
		s.FindOrCreate(c)
	}

	var got []domain.ClientID
	for _, snap := range s.All() {
		got = append(got, snap.ClientID())
	}

	assert.Equal(t, []domain.ClientID{1, 4, 9, 65535}, got)
}

func TestSnapshots_BuildReport(t *testing.T) {
	e := newEngine()
	e.mustProcess(t,
		domain.NewDeposit(1, 2, money("2.0")),
		domain.NewDeposit(2, 1, money("1.5")),
		domain.NewWithdrawal(3, 1, money("0.25")),
	)

	reports, err := e.snapshots.BuildReport()
	require.NoError(t, err)

	assert.Equal(t, []domain.AccountReport{
		{Client: 1, Available: "1.2500", Held: "0.0000", Total: "1.2500"},
		{Client: 2, Available: "2.0000", Held: "0.0000", Total: "2.0000"},
	}, reports)
}

func TestSnapshots_BuildReportSkipsOverflowingTotal(t *testing.T) {
	e := newEngine()
	e.mustProcess(t,
		domain.NewDeposit(1, 1, domain.MaxMoney),
		domain.NewDispute(1, 1),
		domain.NewDeposit(2, 1, money("1")),
		domain.NewDeposit(3, 2, money("1")),
	)

	snap, _ := e.snapshots.Get(1)
	assert.Equal(t, domain.MaxMoney, snap.Held())
	assert.Equal(t, money("1"), snap.Available())

	reports, err := e.snapshots.BuildReport()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMoneyOverflow)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.ClientID(2), reports[0].Client)
}

func TestSnapshots_BuildReportEmpty(t *testing.T) {
	reports, err := NewSnapshots().BuildReport()
	require.NoError(t, err)
	assert.Empty(t, reports)
}
