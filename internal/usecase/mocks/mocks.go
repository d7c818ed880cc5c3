package mocks

import (
	"io"

	"github.com/tpe/txengine/internal/domain"
)

// SliceEventSource is an in-memory EventSource. Each step yields either a
// transaction or an error; io.EOF follows the last step.
type SliceEventSource struct {
	steps []Step
	pos   int

	NextFunc func() (domain.Transaction, error)
}

// Step is a single result of SliceEventSource.Next.
type Step struct {
	Tx  domain.Transaction
	Err error
}

func NewSliceEventSource(txs ...domain.Transaction) *SliceEventSource {
	steps := make([]Step, 0, len(txs))
	for _, tx := range txs {
		steps = append(steps, Step{Tx: tx})
	}
	return &SliceEventSource{steps: steps}
}

// Then appends a step yielding err.
func (s *SliceEventSource) Then(err error) *SliceEventSource {
	s.steps = append(s.steps, Step{Err: err})
	return s
}

// ThenTx appends a step yielding tx.
func (s *SliceEventSource) ThenTx(tx domain.Transaction) *SliceEventSource {
	s.steps = append(s.steps, Step{Tx: tx})
	return s
}

func (s *SliceEventSource) Next() (domain.Transaction, error) {
	if s.NextFunc != nil {
		return s.NextFunc()
	}
	if s.pos >= len(s.steps) {
		return domain.Transaction{}, io.EOF
	}
	step := s.steps[s.pos]
	s.pos++
	return step.Tx, step.Err
}

// ReportRecorder is a ReportWriter that keeps what it was given.
type ReportRecorder struct {
	Reports []domain.AccountReport
	Calls   int

	WriteFunc func(reports []domain.AccountReport) error
}

func (r *ReportRecorder) Write(reports []domain.AccountReport) error {
	r.Calls++
	if r.WriteFunc != nil {
		return r.WriteFunc(reports)
	}
	r.Reports = append(r.Reports, reports...)
	return nil
}
