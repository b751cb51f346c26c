package models

import "time"

// BetSide is one of the two exclusive outcomes of the coin toss
type BetSide string

const (
	SideHeads BetSide = "heads"
	SideTails BetSide = "tails"
)

// Valid reports whether s is one of the two recognized sides
func (s BetSide) Valid() bool {
	return s == SideHeads || s == SideTails
}

// Other returns the opposing side
func (s BetSide) Other() BetSide {
	if s == SideHeads {
		return SideTails
	}
	return SideHeads
}

// Bet represents an open bet in the pool. The stake has already been
// debited from the owner's balance when the row exists.
type Bet struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"`
	Side      BetSide   `db:"side"`
	CreatedAt time.Time `db:"created_at"`
}

// BetOutcome is the result flag recorded for a bet at settlement
type BetOutcome string

const (
	OutcomeWin  BetOutcome = "win"
	OutcomeLose BetOutcome = "lose"
	OutcomeDraw BetOutcome = "draw"
)

// BetResult is the settlement audit record for a cleared bet
type BetResult struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Amount    int64      `db:"amount"`
	Side      BetSide    `db:"side"`
	Result    BetOutcome `db:"result"`
	Payout    int64      `db:"payout"`
	SettledAt time.Time  `db:"settled_at"`
}

// SettledBet is a winner or loser entry returned from settlement so the
// caller can notify users outside the transaction
type SettledBet struct {
	UserID int64
	Amount int64
	Payout int64
}

// SettlementResult represents the outcome of settling the open pool
type SettlementResult struct {
	WinningSide BetSide
	Winners     []SettledBet
	Losers      []SettledBet
	ProfitDelta int64
}

// SideSummary aggregates the open pool for one side
type SideSummary struct {
	Side        BetSide `db:"side"`
	NumBets     int     `db:"num_bets"`
	TotalAmount int64   `db:"total_amount"`
}
