// Package ledger holds the append-only transaction log and the per-client
// account snapshots replayed from it.
package ledger

import (
	"sort"

	"github.com/tpe/txengine/internal/domain"
)

// Ledger is an append-only, write-once-read-many log of transactions.
// Entries are never removed; a failed entry is only flagged invalid.
type Ledger struct {
	history  []domain.Transaction
	byID     map[domain.TransactionID][]int
	byClient map[domain.ClientID][]int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		byID:     make(map[domain.TransactionID][]int),
		byClient: make(map[domain.ClientID][]int),
	}
}

// Append stores tx and returns its index.
func (l *Ledger) Append(tx domain.Transaction) int {
	idx := len(l.history)
	tx.Invalid = false

	l.history = append(l.history, tx)
	l.byID[tx.ID] = append(l.byID[tx.ID], idx)
	l.byClient[tx.ClientID] = append(l.byClient[tx.ClientID], idx)

	return idx
}

// Invalidate excludes the entry at idx from any future replay. It returns
// false if idx is out of range.
func (l *Ledger) Invalidate(idx int) bool {
	if idx < 0 || idx >= len(l.history) {
		return false
	}

	l.history[idx].Invalid = true
	return true
}

// Get returns the entry at idx.
func (l *Ledger) Get(idx int) (domain.Transaction, bool) {
	if idx < 0 || idx >= len(l.history) {
		return domain.Transaction{}, false
	}
	return l.history[idx], true
}

// ValidTransactionsUntil returns, in ledger order, every valid entry sharing
// id whose index is at most idx.
func (l *Ledger) ValidTransactionsUntil(idx int, id domain.TransactionID) []domain.Transaction {
	indices := l.byID[id]
	result := make([]domain.Transaction, 0, len(indices))

	for _, i := range indices {
		if i > idx {
			break
		}
		if tx := l.history[i]; !tx.Invalid {
			result = append(result, tx)
		}
	}

	return result
}

// ValidIndicesForClient returns the indices of valid entries for client at
// or after from, ascending.
func (l *Ledger) ValidIndicesForClient(client domain.ClientID, from int) []int {
	indices := l.byClient[client]
	indices = indices[sort.SearchInts(indices, from):]

	var result []int
	for _, i := range indices {
		if !l.history[i].Invalid {
			result = append(result, i)
		}
	}

	return result
}

// Len returns the number of entries, valid or not.
func (l *Ledger) Len() int {
	return len(l.history)
}

// InvalidCount returns the number of invalidated entries.
func (l *Ledger) InvalidCount() int {
	n := 0
	for _, tx := range l.history {
		if tx.Invalid {
			n++
		}
	}
	return n
}
