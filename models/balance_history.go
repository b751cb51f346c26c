package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeSignupBonus      TransactionType = "signup_bonus"
	TransactionTypeReferralBonus    TransactionType = "referral_bonus"
	TransactionTypeDeposit          TransactionType = "deposit"
	TransactionTypeWithdrawalHold   TransactionType = "withdrawal_hold"
	TransactionTypeWithdrawalRefund TransactionType = "withdrawal_refund"
	TransactionTypeBetStake         TransactionType = "bet_stake"
	TransactionTypeBetPayout        TransactionType = "bet_payout"
	TransactionTypeBetRefund        TransactionType = "bet_refund"
	TransactionTypeAdjustment       TransactionType = "adjustment"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeBet          RelatedType = "bet"
	RelatedTypeMoneyRequest RelatedType = "money_request"
)

// BalanceHistory represents a historical balance change. Every balance
// mutation writes exactly one of these rows in the same transaction, which
// is what makes every account balance derivable from the ledger.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
