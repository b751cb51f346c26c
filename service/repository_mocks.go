package service

import (
	"context"
	"time"

	"coinpool/events"
	"coinpool/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, userID int64) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) AdjustBalance(ctx context.Context, userID int64, delta int64) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *MockAccountRepository) AddReferralBonus(ctx context.Context, userID int64, bonus int64) error {
	args := m.Called(ctx, userID, bonus)
	return args.Error(0)
}

func (m *MockAccountRepository) AddWagered(ctx context.Context, userID int64, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) SetWelcomeShown(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

// MockMoneyRequestRepository is a mock implementation of MoneyRequestRepository
type MockMoneyRequestRepository struct {
	mock.Mock
}

func (m *MockMoneyRequestRepository) Create(ctx context.Context, request *models.MoneyRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockMoneyRequestRepository) GetByID(ctx context.Context, id int64) (*models.MoneyRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MoneyRequest), args.Error(1)
}

func (m *MockMoneyRequestRepository) GetPendingForUpdate(ctx context.Context, id int64, kind models.RequestKind) (*models.MoneyRequest, error) {
	args := m.Called(ctx, id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MoneyRequest), args.Error(1)
}

func (m *MockMoneyRequestRepository) Resolve(ctx context.Context, id int64, status models.RequestStatus, applied bool) error {
	args := m.Called(ctx, id, status, applied)
	return args.Error(0)
}

func (m *MockMoneyRequestRepository) MarkApplied(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMoneyRequestRepository) ListPending(ctx context.Context, kind models.RequestKind) ([]*models.MoneyRequest, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MoneyRequest), args.Error(1)
}

func (m *MockMoneyRequestRepository) ListApprovedUnapplied(ctx context.Context) ([]*models.MoneyRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MoneyRequest), args.Error(1)
}

func (m *MockMoneyRequestRepository) GetApprovedUnappliedForUpdate(ctx context.Context, id int64) (*models.MoneyRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MoneyRequest), args.Error(1)
}

func (m *MockMoneyRequestRepository) CountApplied(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockMoneyRequestRepository) HasDepositReference(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) ListOpenForUpdate(ctx context.Context) ([]*models.Bet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockBetRepository) RecordResults(ctx context.Context, results []*models.BetResult) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

func (m *MockBetRepository) GetSummary(ctx context.Context, since time.Time) ([]*models.SideSummary, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SideSummary), args.Error(1)
}

func (m *MockBetRepository) ListRecent(ctx context.Context, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListResultsByUser(ctx context.Context, userID int64, limit int) ([]*models.BetResult, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BetResult), args.Error(1)
}

// MockProfitRepository is a mock implementation of ProfitRepository
type MockProfitRepository struct {
	mock.Mock
}

func (m *MockProfitRepository) Record(ctx context.Context, entry *models.ProfitEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockProfitRepository) GetTotal(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// recordingPublisher collects published events without expectations, for
// tests that only care about state changes
type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.events = append(p.events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields set through SetRepositories so repository expectations live
// on the repository mocks themselves.
type MockUnitOfWork struct {
	mock.Mock

	accountRepo        AccountRepository
	moneyRequestRepo   MoneyRequestRepository
	betRepo            BetRepository
	profitRepo         ProfitRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventBus           EventPublisher
}

// SetRepositories wires the repository mocks the unit of work hands out.
// Pass nil for repositories the test never touches.
func (m *MockUnitOfWork) SetRepositories(
	accountRepo AccountRepository,
	moneyRequestRepo MoneyRequestRepository,
	betRepo BetRepository,
	profitRepo ProfitRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	eventBus EventPublisher,
) {
	m.accountRepo = accountRepo
	m.moneyRequestRepo = moneyRequestRepo
	m.betRepo = betRepo
	m.profitRepo = profitRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	if eventBus == nil {
		eventBus = &recordingPublisher{}
	}
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) MoneyRequestRepository() MoneyRequestRepository {
	return m.moneyRequestRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) ProfitRepository() ProfitRepository {
	return m.profitRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
