package models

import "time"

// RequestKind discriminates deposits from withdrawals
type RequestKind string

const (
	RequestKindDeposit    RequestKind = "deposit"
	RequestKindWithdrawal RequestKind = "withdrawal"
)

// RequestStatus represents the lifecycle state of a money movement request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// MoneyRequest represents a deposit or withdrawal moving through the
// approval lifecycle. Rows are never deleted; they are the audit trail of
// every movement of funds in or out of the system.
//
// For deposits, Reference is the external payment reference and is unique
// across all deposit requests. For withdrawals it is the destination payee
// identifier.
type MoneyRequest struct {
	ID         int64         `db:"id"`
	UserID     int64         `db:"user_id"`
	Kind       RequestKind   `db:"kind"`
	Amount     int64         `db:"amount"`
	Reference  string        `db:"reference"`
	Status     RequestStatus `db:"status"`
	Applied    bool          `db:"applied"`
	CreatedAt  time.Time     `db:"created_at"`
	ResolvedAt *time.Time    `db:"resolved_at"`
}
