package usecase

import (
	"github.com/tpe/txengine/internal/domain"
)

// EventSource yields parsed transaction events in arrival order.
// Next returns io.EOF once the source is exhausted. An error wrapping
// domain.ErrMalformedRecord rejects a single record and the source can be
// read further; any other error is fatal.
type EventSource interface {
	Next() (domain.Transaction, error)
}

// ReportWriter renders the final account reports.
type ReportWriter interface {
	Write(reports []domain.AccountReport) error
}
