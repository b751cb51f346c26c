package service

import (
	"context"
	"testing"

	"coinpool/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMoneyMovementService_SubmitDeposit_BelowMinimum(t *testing.T) {
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	service := NewMoneyMovementService(mockFactory, testConfig())

	request, err := service.SubmitDeposit(ctx, 123456, "pay-ref-1", 49)

	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Nil(t, request)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestMoneyMovementService_SubmitDeposit_DuplicateReference(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(nil, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("HasDepositReference", ctx, "pay-ref-1").Return(true, nil)

	request, err := service.SubmitDeposit(ctx, 123456, "pay-ref-1", 100)

	assert.ErrorIs(t, err, ErrDuplicateReference)
	assert.Nil(t, request)
	mockMoneyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMoneyMovementService_SubmitDeposit(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(nil, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("HasDepositReference", ctx, "pay-ref-1").Return(false, nil)
	mockMoneyRepo.On("Create", ctx, mock.MatchedBy(func(r *models.MoneyRequest) bool {
		return r.UserID == 123456 &&
			r.Kind == models.RequestKindDeposit &&
			r.Amount == 100 &&
			r.Reference == "pay-ref-1"
	})).Return(nil)

	request, err := service.SubmitDeposit(ctx, 123456, "pay-ref-1", 100)

	assert.NoError(t, err)
	assert.NotNil(t, request)
	assert.Equal(t, models.RequestKindDeposit, request.Kind)

	mockMoneyRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestMoneyMovementService_SubmitWithdrawal_InsufficientBalance(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	account := &models.Account{UserID: 123456, Balance: 80}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(123456)).Return(account, nil)

	request, err := service.SubmitWithdrawal(ctx, 123456, "payee-1", 100)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, request)

	// A failed withdrawal leaves no pending row and no debit
	mockMoneyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockAccountRepo.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestMoneyMovementService_SubmitWithdrawal_UnmetWagering(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	// Signup bonus of 30 with only 20 wagered so far
	account := &models.Account{
		UserID:       123456,
		Balance:      500,
		BonusBalance: 30,
		TotalWagered: 20,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(123456)).Return(account, nil)

	request, err := service.SubmitWithdrawal(ctx, 123456, "payee-1", 100)

	assert.ErrorIs(t, err, ErrUnmetWagering)
	assert.Nil(t, request)
	mockMoneyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMoneyMovementService_SubmitWithdrawal(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, mockHistoryRepo, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	account := &models.Account{
		UserID:       123456,
		Balance:      500,
		BonusBalance: 30,
		TotalWagered: 30,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(123456)).Return(account, nil)
	mockMoneyRepo.On("Create", ctx, mock.MatchedBy(func(r *models.MoneyRequest) bool {
		return r.UserID == 123456 &&
			r.Kind == models.RequestKindWithdrawal &&
			r.Amount == 200 &&
			r.Reference == "payee-1"
	})).Return(nil)
	mockAccountRepo.On("AdjustBalance", ctx, int64(123456), int64(-200)).Return(nil)

	mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == 123456 &&
			h.BalanceBefore == 500 &&
			h.BalanceAfter == 300 &&
			h.ChangeAmount == -200 &&
			h.TransactionType == models.TransactionTypeWithdrawalHold
	})).Return(nil)

	request, err := service.SubmitWithdrawal(ctx, 123456, "payee-1", 200)

	assert.NoError(t, err)
	assert.NotNil(t, request)

	mockAccountRepo.AssertExpectations(t)
	mockMoneyRepo.AssertExpectations(t)
	mockHistoryRepo.AssertExpectations(t)
}

func TestMoneyMovementService_ApproveDeposit_WithReferralBonus(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, mockHistoryRepo, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	referrerID := int64(777)
	request := &models.MoneyRequest{
		ID:        1,
		UserID:    123456,
		Kind:      models.RequestKindDeposit,
		Amount:    150,
		Reference: "pay-ref-1",
		Status:    models.RequestStatusPending,
	}
	account := &models.Account{UserID: 123456, Balance: 30, ReferrerID: &referrerID}
	referrer := &models.Account{UserID: 777, Balance: 1000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("GetPendingForUpdate", ctx, int64(1), models.RequestKindDeposit).Return(request, nil)
	mockMoneyRepo.On("CountApplied", ctx, int64(123456)).Return(0, nil)
	mockMoneyRepo.On("Resolve", ctx, int64(1), models.RequestStatusApproved, true).Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(123456)).Return(account, nil)
	mockAccountRepo.On("AdjustBalance", ctx, int64(123456), int64(150)).Return(nil)

	// First applied deposit over the threshold triggers the referral bonus
	mockAccountRepo.On("GetForUpdate", ctx, int64(777)).Return(referrer, nil)
	mockAccountRepo.On("AddReferralBonus", ctx, int64(777), int64(10)).Return(nil)

	mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == 123456 &&
			h.ChangeAmount == 150 &&
			h.TransactionType == models.TransactionTypeDeposit
	})).Return(nil)
	mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == 777 &&
			h.ChangeAmount == 10 &&
			h.TransactionType == models.TransactionTypeReferralBonus
	})).Return(nil)

	err := service.ApproveDeposit(ctx, 1)

	assert.NoError(t, err)
	mockMoneyRepo.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockHistoryRepo.AssertExpectations(t)
}

func TestMoneyMovementService_ApproveDeposit_NoReferralBonusBelowThreshold(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, mockHistoryRepo, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	referrerID := int64(777)
	request := &models.MoneyRequest{
		ID:     1,
		UserID: 123456,
		Kind:   models.RequestKindDeposit,
		Amount: 60,
		Status: models.RequestStatusPending,
	}
	account := &models.Account{UserID: 123456, Balance: 30, ReferrerID: &referrerID}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("GetPendingForUpdate", ctx, int64(1), models.RequestKindDeposit).Return(request, nil)
	mockMoneyRepo.On("CountApplied", ctx, int64(123456)).Return(0, nil)
	mockMoneyRepo.On("Resolve", ctx, int64(1), models.RequestStatusApproved, true).Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(123456)).Return(account, nil)
	mockAccountRepo.On("AdjustBalance", ctx, int64(123456), int64(60)).Return(nil)
	mockHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)

	err := service.ApproveDeposit(ctx, 1)

	assert.NoError(t, err)
	mockAccountRepo.AssertNotCalled(t, "AddReferralBonus", mock.Anything, mock.Anything, mock.Anything)
}

func TestMoneyMovementService_ApproveDeposit_AlreadyResolved(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// The row is gone from the pending state; a concurrent approval won
	mockMoneyRepo.On("GetPendingForUpdate", ctx, int64(1), models.RequestKindDeposit).Return(nil, nil)

	err := service.ApproveDeposit(ctx, 1)

	assert.ErrorIs(t, err, ErrNotFoundOrAlreadyResolved)
	mockAccountRepo.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestMoneyMovementService_RejectWithdrawal_RefundsHold(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, mockHistoryRepo, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	request := &models.MoneyRequest{
		ID:        2,
		UserID:    123456,
		Kind:      models.RequestKindWithdrawal,
		Amount:    200,
		Reference: "payee-1",
		Status:    models.RequestStatusPending,
	}
	account := &models.Account{UserID: 123456, Balance: 300}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("GetPendingForUpdate", ctx, int64(2), models.RequestKindWithdrawal).Return(request, nil)
	mockMoneyRepo.On("Resolve", ctx, int64(2), models.RequestStatusRejected, false).Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(123456)).Return(account, nil)
	mockAccountRepo.On("AdjustBalance", ctx, int64(123456), int64(200)).Return(nil)

	mockHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == 123456 &&
			h.BalanceBefore == 300 &&
			h.BalanceAfter == 500 &&
			h.ChangeAmount == 200 &&
			h.TransactionType == models.TransactionTypeWithdrawalRefund
	})).Return(nil)

	err := service.RejectWithdrawal(ctx, 2)

	assert.NoError(t, err)
	mockAccountRepo.AssertExpectations(t)
	mockHistoryRepo.AssertExpectations(t)
}

func TestMoneyMovementService_ApproveWithdrawal_NoBalanceChange(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	request := &models.MoneyRequest{
		ID:     2,
		UserID: 123456,
		Kind:   models.RequestKindWithdrawal,
		Amount: 200,
		Status: models.RequestStatusPending,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("GetPendingForUpdate", ctx, int64(2), models.RequestKindWithdrawal).Return(request, nil)
	mockMoneyRepo.On("Resolve", ctx, int64(2), models.RequestStatusApproved, true).Return(nil)

	resolved, err := service.ApproveWithdrawal(ctx, 2)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, resolved.Status)

	// The hold was taken at submission; approval touches no balance
	mockAccountRepo.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestMoneyMovementService_ApplyApprovedDeposits(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)
	mockHistoryRepo := new(MockBalanceHistoryRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, mockHistoryRepo, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	stranded := []*models.MoneyRequest{
		{ID: 5, UserID: 111, Kind: models.RequestKindDeposit, Amount: 100, Status: models.RequestStatusApproved},
		{ID: 6, UserID: 222, Kind: models.RequestKindDeposit, Amount: 75, Status: models.RequestStatusApproved},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("ListApprovedUnapplied", ctx).Return(stranded, nil)
	mockMoneyRepo.On("GetApprovedUnappliedForUpdate", ctx, int64(5)).Return(stranded[0], nil)
	mockMoneyRepo.On("GetApprovedUnappliedForUpdate", ctx, int64(6)).Return(stranded[1], nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(111)).Return(&models.Account{UserID: 111, Balance: 10}, nil)
	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(&models.Account{UserID: 222, Balance: 0}, nil)
	mockAccountRepo.On("AdjustBalance", ctx, int64(111), int64(100)).Return(nil)
	mockAccountRepo.On("AdjustBalance", ctx, int64(222), int64(75)).Return(nil)

	mockHistoryRepo.On("Record", ctx, mock.Anything).Return(nil).Times(2)

	mockMoneyRepo.On("MarkApplied", ctx, int64(5)).Return(nil)
	mockMoneyRepo.On("MarkApplied", ctx, int64(6)).Return(nil)

	applied, err := service.ApplyApprovedDeposits(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, applied)

	mockMoneyRepo.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
}

func TestMoneyMovementService_ApplyApprovedDeposits_AppliedByConcurrentSweep(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	stranded := []*models.MoneyRequest{
		{ID: 9, UserID: 111, Kind: models.RequestKindDeposit, Amount: 100, Status: models.RequestStatusApproved},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("ListApprovedUnapplied", ctx).Return(stranded, nil)
	// The row was applied between the listing and the per-request lock
	mockMoneyRepo.On("GetApprovedUnappliedForUpdate", ctx, int64(9)).Return(nil, nil)

	applied, err := service.ApplyApprovedDeposits(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, applied)

	mockAccountRepo.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	mockMoneyRepo.AssertNotCalled(t, "MarkApplied", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestMoneyMovementService_ApplyApprovedDeposits_NothingToDo(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMoneyRepo := new(MockMoneyRequestRepository)

	mockUoW.SetRepositories(nil, mockMoneyRepo, nil, nil, nil, nil)

	service := NewMoneyMovementService(mockFactory, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMoneyRepo.On("ListApprovedUnapplied", ctx).Return([]*models.MoneyRequest{}, nil)

	applied, err := service.ApplyApprovedDeposits(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, applied)
}
