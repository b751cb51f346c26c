package repository

import (
	"context"
	"fmt"

	"coinpool/database"
	"coinpool/models"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `
	user_id, display_name, balance, referrer_id, bonus_balance,
	referral_balance, referral_count, total_wagered, welcome_shown,
	created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.UserID,
		&account.DisplayName,
		&account.Balance,
		&account.ReferrerID,
		&account.BonusBalance,
		&account.ReferralBalance,
		&account.ReferralCount,
		&account.TotalWagered,
		&account.WelcomeShown,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByUserID retrieves an account by user id
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", userID, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account with its row locked until the enclosing
// transaction ends. Callers doing check-then-debit must use this so two
// concurrent spends cannot both pass a stale sufficiency check.
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}
	return account, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (user_id, display_name, balance, referrer_id, bonus_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.UserID,
		account.DisplayName,
		account.Balance,
		account.ReferrerID,
		account.BonusBalance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account %d: %w", account.UserID, err)
	}

	return nil
}

// AdjustBalance adds a signed delta to the stored balance atomically
func (r *AccountRepository) AdjustBalance(ctx context.Context, userID int64, delta int64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for account %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}

// AddReferralBonus credits the referrer's balance and referral sub-balance
func (r *AccountRepository) AddReferralBonus(ctx context.Context, userID int64, bonus int64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1,
		    referral_balance = referral_balance + $1,
		    referral_count = referral_count + 1,
		    updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, bonus, userID)
	if err != nil {
		return fmt.Errorf("failed to add referral bonus for account %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}

// AddWagered bumps the lifetime wagered counter
func (r *AccountRepository) AddWagered(ctx context.Context, userID int64, amount int64) error {
	query := `
		UPDATE accounts
		SET total_wagered = total_wagered + $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to add wagered amount for account %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}

// SetWelcomeShown marks the welcome message as delivered
func (r *AccountRepository) SetWelcomeShown(ctx context.Context, userID int64) error {
	query := `UPDATE accounts SET welcome_shown = TRUE, updated_at = NOW() WHERE user_id = $1`

	result, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark welcome shown for account %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}

// GetAll returns all accounts, newest first
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}
