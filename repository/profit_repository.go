package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"coinpool/database"
	"coinpool/models"
)

// ProfitRepository implements the ProfitRepository interface
type ProfitRepository struct {
	q queryable
}

// NewProfitRepository creates a new profit ledger repository
func NewProfitRepository(db *database.DB) *ProfitRepository {
	return &ProfitRepository{q: db.Pool}
}

// newProfitRepositoryWithTx creates a new profit ledger repository with a transaction
func newProfitRepositoryWithTx(tx queryable) *ProfitRepository {
	return &ProfitRepository{q: tx}
}

// Record appends a profit delta
func (r *ProfitRepository) Record(ctx context.Context, entry *models.ProfitEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal profit metadata: %w", err)
	}

	query := `
		INSERT INTO profit_ledger (amount, source, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query, entry.Amount, entry.Source, metadataJSON).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record profit entry: %w", err)
	}

	return nil
}

// GetTotal returns the sum of all profit deltas
func (r *ProfitRepository) GetTotal(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM profit_ledger`

	var total int64
	if err := r.q.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get total profit: %w", err)
	}

	return total, nil
}
