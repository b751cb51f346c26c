package service

import (
	"context"
	"fmt"

	"coinpool/config"
	"coinpool/events"
	"coinpool/models"
	log "github.com/sirupsen/logrus"
)

type accountService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, cfg *config.Config) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// GetOrCreateAccount retrieves an existing account or creates a new one.
// New accounts receive the signup bonus in the same transaction.
func (s *accountService) GetOrCreateAccount(ctx context.Context, userID int64, displayName string, referrerID *int64) (*models.Account, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing account: %w", err)
	}
	if account != nil {
		return account, false, nil
	}

	// Self-referrals carry no weight
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}

	// A referrer without an account cannot be paid a bonus, and would trip
	// the referrer foreign key; drop it rather than fail the signup
	if referrerID != nil {
		referrer, err := uow.AccountRepository().GetByUserID(ctx, *referrerID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up referrer: %w", err)
		}
		if referrer == nil {
			log.WithFields(log.Fields{
				"userID":     userID,
				"referrerID": *referrerID,
			}).Warn("Ignoring unknown referrer on signup")
			referrerID = nil
		}
	}

	account = &models.Account{
		UserID:       userID,
		DisplayName:  displayName,
		Balance:      s.config.SignupBonus,
		BonusBalance: s.config.SignupBonus,
		ReferrerID:   referrerID,
	}
	if err := uow.AccountRepository().Create(ctx, account); err != nil {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   0,
		BalanceAfter:    s.config.SignupBonus,
		ChangeAmount:    s.config.SignupBonus,
		TransactionType: models.TransactionTypeSignupBonus,
		TransactionMetadata: map[string]any{
			"display_name": displayName,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, false, fmt.Errorf("failed to record signup bonus: %w", err)
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		UserID:      userID,
		DisplayName: displayName,
		ReferrerID:  referrerID,
		SignupBonus: s.config.SignupBonus,
	})

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, true, nil
}

// GetBalance returns the spendable balance. Unknown accounts read as zero;
// the row is materialized lazily on first contact elsewhere.
func (s *accountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, nil
	}

	return account.Balance, nil
}

// AdjustBalance adds a signed delta with the account row locked and an
// audit entry written in the same transaction. It does not enforce
// non-negativity; callers needing a sufficiency check do it under the same
// lock before debiting.
func (s *accountService) AdjustBalance(ctx context.Context, userID int64, delta int64, reason string) error {
	if delta == 0 {
		return nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %d not found", userID)
	}

	if err := uow.AccountRepository().AdjustBalance(ctx, userID, delta); err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance + delta,
		ChangeAmount:    delta,
		TransactionType: models.TransactionTypeAdjustment,
		TransactionMetadata: map[string]any{
			"reason": reason,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MarkWelcomeShown records that the welcome message was delivered
func (s *accountService) MarkWelcomeShown(ctx context.Context, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.AccountRepository().SetWelcomeShown(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark welcome shown: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListAccounts returns every account, newest first
func (s *accountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}
