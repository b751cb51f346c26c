package service

import (
	"context"
	"fmt"

	"coinpool/events"
	"coinpool/models"
)

// RecordBalanceChange records a balance history entry and emits the
// corresponding event on the unit of work's transactional bus. This is the
// single entry point for all balance changes in the system; every mutation
// of an account balance must pass through here inside the same transaction.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          history.UserID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	return nil
}

func relatedTypePtr(t models.RelatedType) *models.RelatedType {
	return &t
}
