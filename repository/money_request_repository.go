package repository

import (
	"context"
	"errors"
	"fmt"

	"coinpool/database"
	"coinpool/models"
	"coinpool/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const moneyRequestColumns = `
	id, user_id, kind, amount, reference, status, applied, created_at, resolved_at`

// MoneyRequestRepository implements the MoneyRequestRepository interface
type MoneyRequestRepository struct {
	q queryable
}

// NewMoneyRequestRepository creates a new money request repository
func NewMoneyRequestRepository(db *database.DB) *MoneyRequestRepository {
	return &MoneyRequestRepository{q: db.Pool}
}

// newMoneyRequestRepositoryWithTx creates a new money request repository with a transaction
func newMoneyRequestRepositoryWithTx(tx queryable) *MoneyRequestRepository {
	return &MoneyRequestRepository{q: tx}
}

func scanMoneyRequest(row pgx.Row) (*models.MoneyRequest, error) {
	var request models.MoneyRequest
	err := row.Scan(
		&request.ID,
		&request.UserID,
		&request.Kind,
		&request.Amount,
		&request.Reference,
		&request.Status,
		&request.Applied,
		&request.CreatedAt,
		&request.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a pending request. A deposit reusing an external payment
// reference fails with service.ErrDuplicateReference via the partial unique
// index on deposit references.
func (r *MoneyRequestRepository) Create(ctx context.Context, request *models.MoneyRequest) error {
	query := `
		INSERT INTO money_requests (user_id, kind, amount, reference, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, status, applied, created_at
	`

	err := r.q.QueryRow(ctx, query,
		request.UserID,
		request.Kind,
		request.Amount,
		request.Reference,
	).Scan(&request.ID, &request.Status, &request.Applied, &request.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("reference %q: %w", request.Reference, service.ErrDuplicateReference)
		}
		return fmt.Errorf("failed to create %s request for account %d: %w", request.Kind, request.UserID, err)
	}

	return nil
}

// GetByID retrieves a request by id
func (r *MoneyRequestRepository) GetByID(ctx context.Context, id int64) (*models.MoneyRequest, error) {
	query := `SELECT ` + moneyRequestColumns + ` FROM money_requests WHERE id = $1`

	request, err := scanMoneyRequest(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get money request %d: %w", id, err)
	}
	return request, nil
}

// GetPendingForUpdate retrieves a still-pending request with its row locked.
// Of two concurrent approvals, the second blocks here until the first
// commits, then sees no pending row and gets nil.
func (r *MoneyRequestRepository) GetPendingForUpdate(ctx context.Context, id int64, kind models.RequestKind) (*models.MoneyRequest, error) {
	query := `
		SELECT ` + moneyRequestColumns + `
		FROM money_requests
		WHERE id = $1 AND kind = $2 AND status = 'pending'
		FOR UPDATE
	`

	request, err := scanMoneyRequest(r.q.QueryRow(ctx, query, id, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to lock pending %s request %d: %w", kind, id, err)
	}
	return request, nil
}

// Resolve transitions a pending request to a terminal status
func (r *MoneyRequestRepository) Resolve(ctx context.Context, id int64, status models.RequestStatus, applied bool) error {
	query := `
		UPDATE money_requests
		SET status = $1, applied = $2, resolved_at = NOW()
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, status, applied, id)
	if err != nil {
		return fmt.Errorf("failed to resolve money request %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("money request %d: %w", id, service.ErrNotFoundOrAlreadyResolved)
	}

	return nil
}

// MarkApplied flips the applied flag on an approved request
func (r *MoneyRequestRepository) MarkApplied(ctx context.Context, id int64) error {
	query := `
		UPDATE money_requests
		SET applied = TRUE
		WHERE id = $1 AND status = 'approved' AND applied = FALSE
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark money request %d applied: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("money request %d is not approved-and-unapplied", id)
	}

	return nil
}

// ListPending returns pending requests of one kind, newest first
func (r *MoneyRequestRepository) ListPending(ctx context.Context, kind models.RequestKind) ([]*models.MoneyRequest, error) {
	query := `
		SELECT ` + moneyRequestColumns + `
		FROM money_requests
		WHERE kind = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s requests: %w", kind, err)
	}
	defer rows.Close()

	return collectMoneyRequests(rows)
}

// GetApprovedUnappliedForUpdate retrieves an approved deposit whose credit
// has not been applied, locking the row. Returns nil when the request no
// longer qualifies, so a sweep racing another sweep applies nothing twice.
func (r *MoneyRequestRepository) GetApprovedUnappliedForUpdate(ctx context.Context, id int64) (*models.MoneyRequest, error) {
	query := `
		SELECT ` + moneyRequestColumns + `
		FROM money_requests
		WHERE id = $1 AND kind = 'deposit' AND status = 'approved' AND applied = FALSE
		FOR UPDATE
	`

	request, err := scanMoneyRequest(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock unapplied deposit %d: %w", id, err)
	}
	return request, nil
}

// ListApprovedUnapplied returns approved deposits whose credit has not been
// applied. Callers re-lock each row with GetApprovedUnappliedForUpdate
// before acting on it.
func (r *MoneyRequestRepository) ListApprovedUnapplied(ctx context.Context) ([]*models.MoneyRequest, error) {
	query := `
		SELECT ` + moneyRequestColumns + `
		FROM money_requests
		WHERE kind = 'deposit' AND status = 'approved' AND applied = FALSE
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unapplied deposits: %w", err)
	}
	defer rows.Close()

	return collectMoneyRequests(rows)
}

// CountApplied returns how many applied deposits an account has
func (r *MoneyRequestRepository) CountApplied(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM money_requests
		WHERE user_id = $1 AND kind = 'deposit' AND applied = TRUE
	`

	var count int
	if err := r.q.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count applied deposits for account %d: %w", userID, err)
	}

	return count, nil
}

// HasDepositReference reports whether a deposit already uses the reference
func (r *MoneyRequestRepository) HasDepositReference(ctx context.Context, reference string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM money_requests WHERE kind = 'deposit' AND reference = $1
		)
	`

	var exists bool
	if err := r.q.QueryRow(ctx, query, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deposit reference: %w", err)
	}

	return exists, nil
}

func collectMoneyRequests(rows pgx.Rows) ([]*models.MoneyRequest, error) {
	var requests []*models.MoneyRequest
	for rows.Next() {
		request, err := scanMoneyRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan money request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate money requests: %w", err)
	}

	return requests, nil
}
