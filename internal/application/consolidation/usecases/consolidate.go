package usecases

import (
	"context"
	"sort"
	"time"

	"github.com/petgourmet/ledgersync/internal/domain/subscription"
	"github.com/petgourmet/ledgersync/internal/shared/db"
	"github.com/petgourmet/ledgersync/internal/shared/errors"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

// AdvisoryLocker serializes consolidation per correlation key so two
// concurrent runs cannot both pick canonicals and delete each other's rows.
type AdvisoryLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type ConsolidateCommand struct {
	CorrelationKey string
}

type ConsolidationReport struct {
	CorrelationKey string `json:"correlation_key"`
	Examined       int    `json:"examined"`
	CanonicalID    uint   `json:"canonical_id,omitempty"`
	MergedIDs      []uint `json:"merged_ids,omitempty"`
	Deleted        int    `json:"deleted"`
	// DeleteSkipped is set when the pre-delete row count no longer matched
	// what was examined; the merge sticks, the losers stay for a later run.
	DeleteSkipped bool `json:"delete_skipped,omitempty"`
}

const lockPrefix = "consolidate:"

// ConsolidateUseCase collapses duplicate subscription rows created by webhook
// retries or double checkout submissions into a single canonical row.
type ConsolidateUseCase struct {
	subRepo subscription.Repository
	locker  AdvisoryLocker
	txm     *db.TransactionManager
	lockTTL time.Duration
	logger  logger.Interface
}

func NewConsolidateUseCase(subRepo subscription.Repository, locker AdvisoryLocker, logger logger.Interface) *ConsolidateUseCase {
	return &ConsolidateUseCase{
		subRepo: subRepo,
		locker:  locker,
		lockTTL: 30 * time.Second,
		logger:  logger,
	}
}

func (uc *ConsolidateUseCase) Execute(ctx context.Context, cmd ConsolidateCommand) (*ConsolidationReport, error) {
	if cmd.CorrelationKey == "" {
		return nil, errors.NewValidationError("correlation key is required")
	}

	if uc.locker != nil {
		lockKey := lockPrefix + cmd.CorrelationKey
		acquired, err := uc.locker.TryLock(ctx, lockKey, uc.lockTTL)
		if err != nil {
			return nil, errors.NewInternalError("failed to acquire consolidation lock", err.Error())
		}
		if !acquired {
			return nil, errors.NewConflictError("consolidation already in progress for this correlation key")
		}
		defer func() {
			if err := uc.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
				uc.logger.Warnw("failed to release consolidation lock", "correlation_key", cmd.CorrelationKey, "error", err)
			}
		}()
	}

	return uc.consolidate(ctx, cmd.CorrelationKey)
}

// SetTransactionManager makes the canonical update and the loser delete
// commit or roll back together instead of as separate writes.
func (uc *ConsolidateUseCase) SetTransactionManager(txm *db.TransactionManager) {
	uc.txm = txm
}

func (uc *ConsolidateUseCase) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if uc.txm == nil {
		return fn(ctx)
	}
	return uc.txm.RunInTransaction(ctx, fn)
}

func (uc *ConsolidateUseCase) consolidate(ctx context.Context, correlationKey string) (*ConsolidationReport, error) {
	rows, err := uc.subRepo.ListByCorrelationKey(ctx, correlationKey)
	if err != nil {
		return nil, errors.NewInternalError("failed to list subscriptions for correlation key", err.Error())
	}

	report := &ConsolidationReport{CorrelationKey: correlationKey, Examined: len(rows)}
	if len(rows) <= 1 {
		if len(rows) == 1 {
			report.CanonicalID = rows[0].ID()
		}
		return report, nil
	}

	canonical := subscription.SelectCanonical(rows)
	report.CanonicalID = canonical.ID()

	// Merge in creation order so a later-created row's metadata wins on
	// key collision, regardless of which row scored canonical.
	ordered := make([]*subscription.Subscription, len(rows))
	copy(ordered, rows)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt().Before(ordered[j].CreatedAt())
	})

	merged := make(map[string]interface{})
	for _, row := range ordered {
		for k, v := range row.Metadata() {
			merged[k] = v
		}
	}

	loserIDs := make([]uint, 0, len(rows)-1)
	for _, row := range ordered {
		if row.ID() == canonical.ID() {
			continue
		}
		canonical.AbsorbDuplicate(row)
		loserIDs = append(loserIDs, row.ID())
	}
	// AbsorbDuplicate lets every loser overwrite; the creation-ordered bag
	// applied last restores the correct precedence.
	canonical.MergeMetadata(merged)
	report.MergedIDs = loserIDs

	err = uc.runTx(ctx, func(txCtx context.Context) error {
		if err := uc.subRepo.UpdateIfStatus(txCtx, canonical, canonical.Status()); err != nil {
			if errors.IsStoreConflictError(err) {
				// The canonical moved under us; the next run re-reads and retries.
				return errors.NewStoreConflictError("canonical subscription changed during consolidation")
			}
			return errors.NewInternalError("failed to persist canonical subscription", err.Error())
		}

		// Re-check the row count before deleting: a row inserted after the
		// initial read must not be deleted unexamined.
		count, err := uc.subRepo.CountByCorrelationKey(txCtx, correlationKey)
		if err != nil {
			return errors.NewInternalError("failed to re-count subscriptions before delete", err.Error())
		}
		if count != int64(len(rows)) {
			report.DeleteSkipped = true
			uc.logger.Warnw("row count changed during consolidation, skipping delete",
				"correlation_key", correlationKey, "examined", len(rows), "current", count)
			return nil
		}

		if err := uc.subRepo.DeleteByIDs(txCtx, loserIDs); err != nil {
			return errors.NewInternalError("failed to delete duplicate subscriptions", err.Error())
		}
		report.Deleted = len(loserIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if report.DeleteSkipped {
		return report, nil
	}

	uc.logger.Infow("consolidated duplicate subscriptions",
		"correlation_key", correlationKey,
		"canonical_id", canonical.ID(),
		"deleted", report.Deleted,
	)

	return report, nil
}
