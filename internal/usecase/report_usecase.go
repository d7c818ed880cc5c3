package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tpe/txengine/internal/domain"
	"github.com/tpe/txengine/internal/ledger"
)

// ReportUseCase handles building and writing the final account report.
type ReportUseCase struct {
	snapshots *ledger.Snapshots
	logger    zerolog.Logger
}

// NewReportUseCase creates a new ReportUseCase.
func NewReportUseCase(snapshots *ledger.Snapshots, logger zerolog.Logger) *ReportUseCase {
	return &ReportUseCase{
		snapshots: snapshots,
		logger:    logger,
	}
}

// Build returns one report line per client ordered by client ID. Lines that
// cannot be computed are omitted and reported through the error.
func (uc *ReportUseCase) Build(ctx context.Context) ([]domain.AccountReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reports, err := uc.snapshots.BuildReport()
	if err != nil {
		uc.logger.Error().Err(err).Msg("report lines omitted")
	}

	return reports, err
}

// Write builds the report and hands it to w. The available lines are written
// even when some are omitted; a write failure takes precedence over an
// omission error.
func (uc *ReportUseCase) Write(ctx context.Context, w ReportWriter) error {
	reports, buildErr := uc.Build(ctx)
	if buildErr != nil && reports == nil {
		return buildErr
	}

	if err := w.Write(reports); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	uc.logger.Debug().Int("accounts", len(reports)).Msg("report written")

	return buildErr
}
