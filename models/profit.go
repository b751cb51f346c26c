package models

import "time"

// ProfitSource identifies the event that produced a profit delta
type ProfitSource string

const (
	ProfitSourceSettlement ProfitSource = "settlement"
)

// ProfitEntry is one append-only row of the operator's profit ledger.
// Amount is a signed delta; total profit is the sum over all rows. The
// settlement algorithm never reads this table.
type ProfitEntry struct {
	ID        int64          `db:"id"`
	Amount    int64          `db:"amount"`
	Source    ProfitSource   `db:"source"`
	Metadata  map[string]any `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}
