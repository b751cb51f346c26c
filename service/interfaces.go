package service

import (
	"context"
	"time"

	"coinpool/events"
	"coinpool/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByUserID retrieves an account, or nil if none exists
	GetByUserID(ctx context.Context, userID int64) (*models.Account, error)

	// GetForUpdate retrieves an account with its row locked for the
	// duration of the enclosing transaction, or nil if none exists
	GetForUpdate(ctx context.Context, userID int64) (*models.Account, error)

	// Create inserts a new account with the given starting balance
	Create(ctx context.Context, account *models.Account) error

	// AdjustBalance adds a signed delta to the stored balance. It does not
	// enforce non-negativity; callers check sufficiency under the same
	// transaction's row lock.
	AdjustBalance(ctx context.Context, userID int64, delta int64) error

	// AddReferralBonus credits a referral bonus to the referrer's balance
	// and referral sub-balance and bumps the referral count
	AddReferralBonus(ctx context.Context, userID int64, bonus int64) error

	// AddWagered bumps the account's lifetime wagered counter
	AddWagered(ctx context.Context, userID int64, amount int64) error

	// SetWelcomeShown marks the welcome message as delivered
	SetWelcomeShown(ctx context.Context, userID int64) error

	// GetAll returns all accounts, newest first
	GetAll(ctx context.Context) ([]*models.Account, error)
}

// MoneyRequestRepository defines the interface for deposit and withdrawal
// request data access
type MoneyRequestRepository interface {
	// Create inserts a pending request
	Create(ctx context.Context, request *models.MoneyRequest) error

	// GetByID retrieves a request, or nil if none exists
	GetByID(ctx context.Context, id int64) (*models.MoneyRequest, error)

	// GetPendingForUpdate retrieves a request of the given kind only if it
	// is still pending, locking the row. Returns nil when the request does
	// not exist or has already been resolved.
	GetPendingForUpdate(ctx context.Context, id int64, kind models.RequestKind) (*models.MoneyRequest, error)

	// Resolve transitions a locked pending request to its terminal status
	Resolve(ctx context.Context, id int64, status models.RequestStatus, applied bool) error

	// MarkApplied flips the applied flag on an approved request
	MarkApplied(ctx context.Context, id int64) error

	// ListPending returns pending requests of one kind, newest first
	ListPending(ctx context.Context, kind models.RequestKind) ([]*models.MoneyRequest, error)

	// ListApprovedUnapplied returns approved deposits whose balance credit
	// has not been applied
	ListApprovedUnapplied(ctx context.Context) ([]*models.MoneyRequest, error)

	// GetApprovedUnappliedForUpdate retrieves an approved-and-unapplied
	// deposit with its row locked, or nil when it no longer qualifies
	GetApprovedUnappliedForUpdate(ctx context.Context, id int64) (*models.MoneyRequest, error)

	// CountApplied returns how many applied deposits an account has
	CountApplied(ctx context.Context, userID int64) (int, error)

	// HasDepositReference reports whether a deposit already uses the
	// external payment reference
	HasDepositReference(ctx context.Context, reference string) (bool, error)
}

// BetRepository defines the interface for bet pool data access
type BetRepository interface {
	// Create inserts a bet into the open pool
	Create(ctx context.Context, bet *models.Bet) error

	// ListOpenForUpdate reads the full open pool with every row locked.
	// The snapshot it returns is exactly the set of bets a settlement
	// must pay out and clear.
	ListOpenForUpdate(ctx context.Context) ([]*models.Bet, error)

	// DeleteByIDs removes settled bets from the open pool
	DeleteByIDs(ctx context.Context, ids []int64) error

	// RecordResults appends settlement audit rows
	RecordResults(ctx context.Context, results []*models.BetResult) error

	// GetSummary aggregates the open pool per side within a trailing window
	GetSummary(ctx context.Context, since time.Time) ([]*models.SideSummary, error)

	// ListRecent returns the most recent open bets
	ListRecent(ctx context.Context, limit int) ([]*models.Bet, error)

	// ListResultsByUser returns a user's settled bet history
	ListResultsByUser(ctx context.Context, userID int64, limit int) ([]*models.BetResult, error)
}

// ProfitRepository defines the interface for the operator profit ledger
type ProfitRepository interface {
	// Record appends a profit delta
	Record(ctx context.Context, entry *models.ProfitEntry) error

	// GetTotal returns the sum of all profit deltas
	GetTotal(ctx context.Context) (int64, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific account
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetOrCreateAccount retrieves an existing account or creates a new one,
	// crediting the signup bonus. The second return reports creation.
	GetOrCreateAccount(ctx context.Context, userID int64, displayName string, referrerID *int64) (*models.Account, bool, error)

	// GetBalance returns the spendable balance, 0 for unknown accounts
	GetBalance(ctx context.Context, userID int64) (int64, error)

	// AdjustBalance atomically adds a signed delta with an audit entry
	AdjustBalance(ctx context.Context, userID int64, delta int64, reason string) error

	// MarkWelcomeShown records that the welcome message was delivered
	MarkWelcomeShown(ctx context.Context, userID int64) error

	// ListAccounts returns every account for the operator view
	ListAccounts(ctx context.Context) ([]*models.Account, error)
}

// MoneyMovementService drives the deposit and withdrawal lifecycle.
// Approval and rejection methods are privileged: verifying that the caller
// is the operator is the front end's responsibility.
type MoneyMovementService interface {
	// SubmitDeposit records a pending deposit request. The balance is not
	// touched until the deposit is approved.
	SubmitDeposit(ctx context.Context, userID int64, externalRef string, amount int64) (*models.MoneyRequest, error)

	// SubmitWithdrawal records a pending withdrawal and debits the balance
	// immediately; the held funds leave the spendable balance at submission
	SubmitWithdrawal(ctx context.Context, userID int64, payee string, amount int64) (*models.MoneyRequest, error)

	// ApproveDeposit credits the balance and applies any deferred referral
	// bonus, exactly once
	ApproveDeposit(ctx context.Context, requestID int64) error

	// RejectDeposit resolves a pending deposit without touching the balance
	RejectDeposit(ctx context.Context, requestID int64) error

	// ApproveWithdrawal resolves a pending withdrawal; the balance was
	// already debited at submission
	ApproveWithdrawal(ctx context.Context, requestID int64) (*models.MoneyRequest, error)

	// RejectWithdrawal resolves a pending withdrawal and refunds the held
	// amount
	RejectWithdrawal(ctx context.Context, requestID int64) error

	// ApplyApprovedDeposits sweeps approved-but-unapplied deposits and
	// applies them. Idempotent; returns how many were applied.
	ApplyApprovedDeposits(ctx context.Context) (int, error)

	// ListPendingDeposits returns deposits awaiting operator action
	ListPendingDeposits(ctx context.Context) ([]*models.MoneyRequest, error)

	// ListPendingWithdrawals returns withdrawals awaiting operator action
	ListPendingWithdrawals(ctx context.Context) ([]*models.MoneyRequest, error)
}

// BettingService accepts bets into the open pool and settles it.
// Settle and SettleDraw are privileged operator actions; the identity check
// belongs to the caller.
type BettingService interface {
	// PlaceBet debits the stake and inserts the bet as one atomic unit
	PlaceBet(ctx context.Context, userID int64, amount int64, side models.BetSide) (*models.Bet, error)

	// Settle resolves the open pool for the winning side, credits payouts,
	// records the profit delta and clears the settled bets atomically.
	// With fewer than two distinct sides in the pool it is a no-op
	// returning empty winner and loser lists.
	Settle(ctx context.Context, winningSide models.BetSide) (*models.SettlementResult, error)

	// SettleDraw refunds every open stake and clears the pool
	SettleDraw(ctx context.Context) (*models.SettlementResult, error)

	// GetBetSummary aggregates the open pool per side over the window
	GetBetSummary(ctx context.Context, window time.Duration) ([]*models.SideSummary, error)

	// ListRecentBets returns the most recent open bets
	ListRecentBets(ctx context.Context, limit int) ([]*models.Bet, error)

	// ListBetHistory returns a user's settled bets, newest first
	ListBetHistory(ctx context.Context, userID int64, limit int) ([]*models.BetResult, error)
}

// ProfitService reports operator profit
type ProfitService interface {
	// GetTotalProfit returns the lifetime operator profit
	GetTotalProfit(ctx context.Context) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	MoneyRequestRepository() MoneyRequestRepository
	BetRepository() BetRepository
	ProfitRepository() ProfitRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
