package ledger

import (
	"errors"
	"slices"

	"github.com/tpe/txengine/internal/domain"
)

// Snapshots maps client IDs to their account snapshot.
type Snapshots struct {
	byClient map[domain.ClientID]*AccountSnapshot
}

// NewSnapshots creates an empty registry.
func NewSnapshots() *Snapshots {
	return &Snapshots{
		byClient: make(map[domain.ClientID]*AccountSnapshot),
	}
}

// FindOrCreate returns the snapshot of client, creating an empty one on first
// reference.
func (s *Snapshots) FindOrCreate(client domain.ClientID) *AccountSnapshot {
	snap, ok := s.byClient[client]
	if !ok {
		snap = NewAccountSnapshot(client)
		s.byClient[client] = snap
	}
	return snap
}

// Get returns the snapshot of client if it exists.
func (s *Snapshots) Get(client domain.ClientID) (*AccountSnapshot, bool) {
	snap, ok := s.byClient[client]
	return snap, ok
}

// Len returns the number of known clients.
func (s *Snapshots) Len() int {
	return len(s.byClient)
}

// All returns every snapshot ordered by client ID.
func (s *Snapshots) All() []*AccountSnapshot {
	result := make([]*AccountSnapshot, 0, len(s.byClient))
	for _, snap := range s.byClient {
		result = append(result, snap)
	}

	slices.SortFunc(result, func(a, b *AccountSnapshot) int {
		return int(a.clientID) - int(b.clientID)
	})

	return result
}

// BuildReport returns one report line per client, ordered by client ID.
// A line whose total cannot be computed is left out and its error is joined
// into the returned error; the remaining lines are still returned.
func (s *Snapshots) BuildReport() ([]domain.AccountReport, error) {
	snaps := s.All()
	reports := make([]domain.AccountReport, 0, len(snaps))

	var errs []error
	for _, snap := range snaps {
		report, err := snap.Report()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}

	return reports, errors.Join(errs...)
}
