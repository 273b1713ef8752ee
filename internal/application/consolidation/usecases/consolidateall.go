package usecases

import (
	"context"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	"github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

type ConsolidateAllCommand struct {
	// Limit caps how many duplicated correlation keys one run touches.
	Limit int
}

type ConsolidateAllReport struct {
	KeysExamined int                    `json:"keys_examined"`
	Deleted      int                    `json:"deleted"`
	Errors       int                    `json:"errors"`
	Reports      []*ConsolidationReport `json:"reports,omitempty"`
}

// ConsolidateAllUseCase sweeps every correlation key that currently maps to
// more than one subscription row. Per-key failures are counted and skipped;
// the sweep never aborts.
type ConsolidateAllUseCase struct {
	subRepo       subscription.Repository
	consolidateUC *ConsolidateUseCase
	logger        logger.Interface
}

func NewConsolidateAllUseCase(subRepo subscription.Repository, consolidateUC *ConsolidateUseCase, logger logger.Interface) *ConsolidateAllUseCase {
	return &ConsolidateAllUseCase{
		subRepo:       subRepo,
		consolidateUC: consolidateUC,
		logger:        logger,
	}
}

func (uc *ConsolidateAllUseCase) Execute(ctx context.Context, cmd ConsolidateAllCommand) (*ConsolidateAllReport, error) {
	if cmd.Limit <= 0 {
		cmd.Limit = 50
	}

	keys, err := uc.subRepo.ListDuplicatedCorrelationKeys(ctx, cmd.Limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list duplicated correlation keys", err.Error())
	}

	report := &ConsolidateAllReport{KeysExamined: len(keys)}
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}

		keyReport, err := uc.consolidateUC.Execute(ctx, ConsolidateCommand{CorrelationKey: key})
		if err != nil {
			report.Errors++
			uc.logger.Warnw("consolidation failed for correlation key", "correlation_key", key, "error", err)
			continue
		}
		report.Deleted += keyReport.Deleted
		report.Reports = append(report.Reports, keyReport)
	}

	uc.logger.Infow("duplicate sweep finished",
		"keys", report.KeysExamined, "deleted", report.Deleted, "errors", report.Errors)

	return report, nil
}
