package models

import (
	"time"
)

// Account represents a user's ledger identity and balance
type Account struct {
	UserID          int64     `db:"user_id"`
	DisplayName     string    `db:"display_name"`
	Balance         int64     `db:"balance"`
	ReferrerID      *int64    `db:"referrer_id"`
	BonusBalance    int64     `db:"bonus_balance"`
	ReferralBalance int64     `db:"referral_balance"`
	ReferralCount   int       `db:"referral_count"`
	TotalWagered    int64     `db:"total_wagered"`
	WelcomeShown    bool      `db:"welcome_shown"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// UnwageredBonus returns the promotional credit that has not yet been
// wagered at least once. Withdrawals are blocked while this is positive.
func (a *Account) UnwageredBonus() int64 {
	outstanding := a.BonusBalance + a.ReferralBalance - a.TotalWagered
	if outstanding < 0 {
		return 0
	}
	return outstanding
}
