package repository

import (
	"context"
	"fmt"
	"time"

	"coinpool/database"
	"coinpool/models"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

// Create inserts a bet into the open pool
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (user_id, amount, side)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, bet.UserID, bet.Amount, bet.Side).
		Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet for account %d: %w", bet.UserID, err)
	}

	return nil
}

// ListOpenForUpdate reads the full open pool with every row locked until
// the enclosing transaction ends. Bets inserted after this read are not
// part of the snapshot and survive into the next pool.
func (r *BetRepository) ListOpenForUpdate(ctx context.Context) ([]*models.Bet, error) {
	query := `
		SELECT id, user_id, amount, side, created_at
		FROM bets
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to lock open bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var bet models.Bet
		if err := rows.Scan(&bet.ID, &bet.UserID, &bet.Amount, &bet.Side, &bet.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate open bets: %w", err)
	}

	return bets, nil
}

// DeleteByIDs removes settled bets from the open pool
func (r *BetRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	result, err := r.q.Exec(ctx, `DELETE FROM bets WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to delete settled bets: %w", err)
	}

	if int(result.RowsAffected()) != len(ids) {
		return fmt.Errorf("expected to delete %d bets, deleted %d", len(ids), result.RowsAffected())
	}

	return nil
}

// RecordResults appends settlement audit rows
func (r *BetRepository) RecordResults(ctx context.Context, results []*models.BetResult) error {
	query := `
		INSERT INTO bet_results (user_id, amount, side, result, payout)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, settled_at
	`

	for _, res := range results {
		err := r.q.QueryRow(ctx, query, res.UserID, res.Amount, res.Side, res.Result, res.Payout).
			Scan(&res.ID, &res.SettledAt)
		if err != nil {
			return fmt.Errorf("failed to record bet result for account %d: %w", res.UserID, err)
		}
	}

	return nil
}

// GetSummary aggregates the open pool per side within a trailing window
func (r *BetRepository) GetSummary(ctx context.Context, since time.Time) ([]*models.SideSummary, error) {
	query := `
		SELECT side, COUNT(*) AS num_bets, SUM(amount) AS total_amount
		FROM bets
		WHERE created_at >= $1
		GROUP BY side
	`

	rows, err := r.q.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet summary: %w", err)
	}
	defer rows.Close()

	var summaries []*models.SideSummary
	for rows.Next() {
		var summary models.SideSummary
		if err := rows.Scan(&summary.Side, &summary.NumBets, &summary.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan bet summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bet summary: %w", err)
	}

	return summaries, nil
}

// ListRecent returns the most recent open bets
func (r *BetRepository) ListRecent(ctx context.Context, limit int) ([]*models.Bet, error) {
	query := `
		SELECT id, user_id, amount, side, created_at
		FROM bets
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var bet models.Bet
		if err := rows.Scan(&bet.ID, &bet.UserID, &bet.Amount, &bet.Side, &bet.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent bets: %w", err)
	}

	return bets, nil
}

// ListResultsByUser returns a user's settled bet history, newest first
func (r *BetRepository) ListResultsByUser(ctx context.Context, userID int64, limit int) ([]*models.BetResult, error) {
	query := `
		SELECT id, user_id, amount, side, result, payout, settled_at
		FROM bet_results
		WHERE user_id = $1
		ORDER BY settled_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bet results for account %d: %w", userID, err)
	}
	defer rows.Close()

	var results []*models.BetResult
	for rows.Next() {
		var res models.BetResult
		if err := rows.Scan(&res.ID, &res.UserID, &res.Amount, &res.Side, &res.Result, &res.Payout, &res.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet result: %w", err)
		}
		results = append(results, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bet results: %w", err)
	}

	return results, nil
}
