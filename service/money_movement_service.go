package service

import (
	"context"
	"fmt"

	"coinpool/config"
	"coinpool/events"
	"coinpool/models"
	log "github.com/sirupsen/logrus"
)

type moneyMovementService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewMoneyMovementService creates a new money movement service
func NewMoneyMovementService(uowFactory UnitOfWorkFactory, cfg *config.Config) MoneyMovementService {
	return &moneyMovementService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// SubmitDeposit records a pending deposit request. The balance is not
// touched and no referral bonus is awarded until the deposit is approved.
func (s *moneyMovementService) SubmitDeposit(ctx context.Context, userID int64, externalRef string, amount int64) (*models.MoneyRequest, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("external payment reference must not be empty")
	}
	if amount < s.config.MinDeposit {
		return nil, fmt.Errorf("minimum deposit is %d: %w", s.config.MinDeposit, ErrBelowMinimum)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	exists, err := uow.MoneyRequestRepository().HasDepositReference(ctx, externalRef)
	if err != nil {
		return nil, fmt.Errorf("failed to check deposit reference: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("reference %q: %w", externalRef, ErrDuplicateReference)
	}

	request := &models.MoneyRequest{
		UserID:    userID,
		Kind:      models.RequestKindDeposit,
		Amount:    amount,
		Reference: externalRef,
	}
	// The unique index backstops the reference check against a concurrent
	// submission of the same reference.
	if err := uow.MoneyRequestRepository().Create(ctx, request); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return request, nil
}

// SubmitWithdrawal records a pending withdrawal and debits the balance in
// the same transaction, holding the funds in escrow until resolution.
func (s *moneyMovementService) SubmitWithdrawal(ctx context.Context, userID int64, payee string, amount int64) (*models.MoneyRequest, error) {
	if payee == "" {
		return nil, fmt.Errorf("payee identifier must not be empty")
	}
	if amount < s.config.MinWithdrawal {
		return nil, fmt.Errorf("minimum withdrawal is %d: %w", s.config.MinWithdrawal, ErrBelowMinimum)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("have 0, need %d: %w", amount, ErrInsufficientBalance)
	}

	// Promotional credit must be wagered at least once before cash-out
	if outstanding := account.UnwageredBonus(); outstanding > 0 {
		return nil, fmt.Errorf("wager %d more before withdrawing: %w", outstanding, ErrUnmetWagering)
	}

	if account.Balance < amount {
		return nil, fmt.Errorf("have %d, need %d: %w", account.Balance, amount, ErrInsufficientBalance)
	}

	request := &models.MoneyRequest{
		UserID:    userID,
		Kind:      models.RequestKindWithdrawal,
		Amount:    amount,
		Reference: payee,
	}
	if err := uow.MoneyRequestRepository().Create(ctx, request); err != nil {
		return nil, err
	}

	if err := uow.AccountRepository().AdjustBalance(ctx, userID, -amount); err != nil {
		return nil, fmt.Errorf("failed to hold withdrawal amount: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeWithdrawalHold,
		TransactionMetadata: map[string]any{
			"payee": payee,
		},
		RelatedID:   &request.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeMoneyRequest),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal hold: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return request, nil
}

// ApproveDeposit transitions a pending deposit to approved, credits the
// balance exactly once, and applies the deferred referral bonus when this
// is the account's first applied deposit.
func (s *moneyMovementService) ApproveDeposit(ctx context.Context, requestID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.MoneyRequestRepository().GetPendingForUpdate(ctx, requestID, models.RequestKindDeposit)
	if err != nil {
		return fmt.Errorf("failed to lock deposit request: %w", err)
	}
	if request == nil {
		return fmt.Errorf("deposit %d: %w", requestID, ErrNotFoundOrAlreadyResolved)
	}

	account, err := uow.AccountRepository().GetForUpdate(ctx, request.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %d not found", request.UserID)
	}

	// First applied deposit decides referral eligibility. Counted after the
	// account lock: concurrent approvals for the same account serialize on
	// that row, so the count here already includes any approval that
	// committed while this one waited.
	appliedBefore, err := uow.MoneyRequestRepository().CountApplied(ctx, request.UserID)
	if err != nil {
		return fmt.Errorf("failed to count applied deposits: %w", err)
	}

	if err := uow.MoneyRequestRepository().Resolve(ctx, requestID, models.RequestStatusApproved, true); err != nil {
		return err
	}

	if err := s.creditDeposit(ctx, uow, account, request); err != nil {
		return err
	}

	if appliedBefore == 0 && request.Amount >= s.config.ReferralMinDeposit && account.ReferrerID != nil {
		if err := s.awardReferralBonus(ctx, uow, *account.ReferrerID, request); err != nil {
			return err
		}
	}

	uow.EventBus().Publish(events.RequestResolvedEvent{
		RequestID: requestID,
		UserID:    request.UserID,
		Kind:      models.RequestKindDeposit,
		Status:    models.RequestStatusApproved,
		Amount:    request.Amount,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// creditDeposit applies a deposit's amount to the owner's balance
func (s *moneyMovementService) creditDeposit(ctx context.Context, uow UnitOfWork, account *models.Account, request *models.MoneyRequest) error {
	if err := uow.AccountRepository().AdjustBalance(ctx, request.UserID, request.Amount); err != nil {
		return fmt.Errorf("failed to credit deposit: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          request.UserID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance + request.Amount,
		ChangeAmount:    request.Amount,
		TransactionType: models.TransactionTypeDeposit,
		TransactionMetadata: map[string]any{
			"reference": request.Reference,
		},
		RelatedID:   &request.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeMoneyRequest),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return fmt.Errorf("failed to record deposit credit: %w", err)
	}

	return nil
}

func (s *moneyMovementService) awardReferralBonus(ctx context.Context, uow UnitOfWork, referrerID int64, request *models.MoneyRequest) error {
	referrer, err := uow.AccountRepository().GetForUpdate(ctx, referrerID)
	if err != nil {
		return fmt.Errorf("failed to lock referrer account: %w", err)
	}
	if referrer == nil {
		// The referrer row was never materialized; nothing to credit
		log.WithField("referrerID", referrerID).Warn("Referral bonus skipped, referrer account missing")
		return nil
	}

	bonus := s.config.ReferralBonus
	if err := uow.AccountRepository().AddReferralBonus(ctx, referrerID, bonus); err != nil {
		return fmt.Errorf("failed to credit referral bonus: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          referrerID,
		BalanceBefore:   referrer.Balance,
		BalanceAfter:    referrer.Balance + bonus,
		ChangeAmount:    bonus,
		TransactionType: models.TransactionTypeReferralBonus,
		TransactionMetadata: map[string]any{
			"referee_user_id": request.UserID,
			"deposit_amount":  request.Amount,
		},
		RelatedID:   &request.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeMoneyRequest),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return fmt.Errorf("failed to record referral bonus: %w", err)
	}

	return nil
}

// RejectDeposit resolves a pending deposit without touching the balance
func (s *moneyMovementService) RejectDeposit(ctx context.Context, requestID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.MoneyRequestRepository().GetPendingForUpdate(ctx, requestID, models.RequestKindDeposit)
	if err != nil {
		return fmt.Errorf("failed to lock deposit request: %w", err)
	}
	if request == nil {
		return fmt.Errorf("deposit %d: %w", requestID, ErrNotFoundOrAlreadyResolved)
	}

	if err := uow.MoneyRequestRepository().Resolve(ctx, requestID, models.RequestStatusRejected, false); err != nil {
		return err
	}

	uow.EventBus().Publish(events.RequestResolvedEvent{
		RequestID: requestID,
		UserID:    request.UserID,
		Kind:      models.RequestKindDeposit,
		Status:    models.RequestStatusRejected,
		Amount:    request.Amount,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ApproveWithdrawal resolves a pending withdrawal. The balance was debited
// at submission, so approval only flips the status.
func (s *moneyMovementService) ApproveWithdrawal(ctx context.Context, requestID int64) (*models.MoneyRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.MoneyRequestRepository().GetPendingForUpdate(ctx, requestID, models.RequestKindWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("failed to lock withdrawal request: %w", err)
	}
	if request == nil {
		return nil, fmt.Errorf("withdrawal %d: %w", requestID, ErrNotFoundOrAlreadyResolved)
	}

	if err := uow.MoneyRequestRepository().Resolve(ctx, requestID, models.RequestStatusApproved, true); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.RequestResolvedEvent{
		RequestID: requestID,
		UserID:    request.UserID,
		Kind:      models.RequestKindWithdrawal,
		Status:    models.RequestStatusApproved,
		Amount:    request.Amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	request.Status = models.RequestStatusApproved
	return request, nil
}

// RejectWithdrawal resolves a pending withdrawal and refunds the held amount
func (s *moneyMovementService) RejectWithdrawal(ctx context.Context, requestID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.MoneyRequestRepository().GetPendingForUpdate(ctx, requestID, models.RequestKindWithdrawal)
	if err != nil {
		return fmt.Errorf("failed to lock withdrawal request: %w", err)
	}
	if request == nil {
		return fmt.Errorf("withdrawal %d: %w", requestID, ErrNotFoundOrAlreadyResolved)
	}

	account, err := uow.AccountRepository().GetForUpdate(ctx, request.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %d not found", request.UserID)
	}

	if err := uow.MoneyRequestRepository().Resolve(ctx, requestID, models.RequestStatusRejected, false); err != nil {
		return err
	}

	if err := uow.AccountRepository().AdjustBalance(ctx, request.UserID, request.Amount); err != nil {
		return fmt.Errorf("failed to refund held amount: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          request.UserID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance + request.Amount,
		ChangeAmount:    request.Amount,
		TransactionType: models.TransactionTypeWithdrawalRefund,
		TransactionMetadata: map[string]any{
			"payee": request.Reference,
		},
		RelatedID:   &request.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeMoneyRequest),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return fmt.Errorf("failed to record withdrawal refund: %w", err)
	}

	uow.EventBus().Publish(events.RequestResolvedEvent{
		RequestID: requestID,
		UserID:    request.UserID,
		Kind:      models.RequestKindWithdrawal,
		Status:    models.RequestStatusRejected,
		Amount:    request.Amount,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ApplyApprovedDeposits sweeps deposits that were marked approved but whose
// balance credit never landed, and applies them. Each request gets its own
// transaction so one bad row does not hold back the rest, and the applied
// flag makes a second pass over the same request a no-op.
func (s *moneyMovementService) ApplyApprovedDeposits(ctx context.Context) (int, error) {
	requests, err := s.listUnappliedDeposits(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, request := range requests {
		ok, err := s.applyDeposit(ctx, request.ID)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}

	if applied > 0 {
		log.WithField("applied", applied).Info("Applied approved deposits to balances")
	}

	return applied, nil
}

func (s *moneyMovementService) listUnappliedDeposits(ctx context.Context) ([]*models.MoneyRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests, err := uow.MoneyRequestRepository().ListApprovedUnapplied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unapplied deposits: %w", err)
	}
	return requests, nil
}

// applyDeposit credits one stranded deposit in its own transaction. Returns
// false when the request was already applied by the time its row was locked
// or its account is gone.
func (s *moneyMovementService) applyDeposit(ctx context.Context, requestID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.MoneyRequestRepository().GetApprovedUnappliedForUpdate(ctx, requestID)
	if err != nil {
		return false, fmt.Errorf("failed to lock unapplied deposit: %w", err)
	}
	if request == nil {
		return false, nil
	}

	account, err := uow.AccountRepository().GetForUpdate(ctx, request.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		log.WithFields(log.Fields{
			"requestID": request.ID,
			"userID":    request.UserID,
		}).Warn("Skipping unapplied deposit for missing account")
		return false, nil
	}

	if err := s.creditDeposit(ctx, uow, account, request); err != nil {
		return false, err
	}

	if err := uow.MoneyRequestRepository().MarkApplied(ctx, request.ID); err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// ListPendingDeposits returns deposits awaiting operator action
func (s *moneyMovementService) ListPendingDeposits(ctx context.Context) ([]*models.MoneyRequest, error) {
	return s.listPending(ctx, models.RequestKindDeposit)
}

// ListPendingWithdrawals returns withdrawals awaiting operator action
func (s *moneyMovementService) ListPendingWithdrawals(ctx context.Context) ([]*models.MoneyRequest, error) {
	return s.listPending(ctx, models.RequestKindWithdrawal)
}

func (s *moneyMovementService) listPending(ctx context.Context, kind models.RequestKind) ([]*models.MoneyRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests, err := uow.MoneyRequestRepository().ListPending(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s requests: %w", kind, err)
	}

	return requests, nil
}
