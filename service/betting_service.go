package service

import (
	"context"
	"fmt"
	"time"

	"coinpool/config"
	"coinpool/events"
	"coinpool/models"
	log "github.com/sirupsen/logrus"
)

type bettingService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory UnitOfWorkFactory, cfg *config.Config) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// PlaceBet debits the stake and inserts the bet into the open pool as one
// atomic unit. A bet row existing implies its stake has left the balance.
func (s *bettingService) PlaceBet(ctx context.Context, userID int64, amount int64, side models.BetSide) (*models.Bet, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("invalid bet side %q", side)
	}
	if amount < s.config.MinBet {
		return nil, fmt.Errorf("minimum bet is %d: %w", s.config.MinBet, ErrBelowMinimum)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("have 0, need %d: %w", amount, ErrInsufficientBalance)
	}
	if account.Balance < amount {
		return nil, fmt.Errorf("have %d, need %d: %w", account.Balance, amount, ErrInsufficientBalance)
	}

	if err := uow.AccountRepository().AdjustBalance(ctx, userID, -amount); err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}
	if err := uow.AccountRepository().AddWagered(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to bump wagered total: %w", err)
	}

	bet := &models.Bet{
		UserID: userID,
		Amount: amount,
		Side:   side,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeBetStake,
		TransactionMetadata: map[string]any{
			"side": string(side),
		},
		RelatedID:   &bet.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeBet),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record stake debit: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		UserID: userID,
		BetID:  bet.ID,
		Amount: amount,
		Side:   side,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bet, nil
}

// Settle resolves the open pool for the winning side. It locks the pool,
// credits each winner its fixed-odds payout, records the profit delta and
// the per-bet audit rows, and clears exactly the bets it read. Bets placed
// after the lock is taken stay in the pool for the next round.
func (s *bettingService) Settle(ctx context.Context, winningSide models.BetSide) (*models.SettlementResult, error) {
	if !winningSide.Valid() {
		return nil, fmt.Errorf("invalid winning side %q", winningSide)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListOpenForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock open pool: %w", err)
	}

	var winning, losing []*models.Bet
	for _, bet := range bets {
		if bet.Side == winningSide {
			winning = append(winning, bet)
		} else {
			losing = append(losing, bet)
		}
	}

	// A one-sided pool cannot be resolved; leave it open
	if len(winning) == 0 || len(losing) == 0 {
		log.WithFields(log.Fields{
			"winningSide": winningSide,
			"openBets":    len(bets),
		}).Info("Settlement skipped, pool does not have both sides")
		return &models.SettlementResult{WinningSide: winningSide}, nil
	}

	result := &models.SettlementResult{WinningSide: winningSide}
	betIDs := make([]int64, 0, len(bets))
	results := make([]*models.BetResult, 0, len(bets))

	for _, bet := range winning {
		payout := bet.Amount * s.config.FixedOdds

		if err := s.creditPayout(ctx, uow, bet, payout); err != nil {
			return nil, err
		}

		result.Winners = append(result.Winners, models.SettledBet{
			UserID: bet.UserID,
			Amount: bet.Amount,
			Payout: payout,
		})
		result.ProfitDelta -= payout - bet.Amount
		betIDs = append(betIDs, bet.ID)
		results = append(results, &models.BetResult{
			UserID: bet.UserID,
			Amount: bet.Amount,
			Side:   bet.Side,
			Result: models.OutcomeWin,
			Payout: payout,
		})
	}

	for _, bet := range losing {
		// The stake was debited at placement; losing touches no balance
		result.Losers = append(result.Losers, models.SettledBet{
			UserID: bet.UserID,
			Amount: bet.Amount,
		})
		result.ProfitDelta += bet.Amount
		betIDs = append(betIDs, bet.ID)
		results = append(results, &models.BetResult{
			UserID: bet.UserID,
			Amount: bet.Amount,
			Side:   bet.Side,
			Result: models.OutcomeLose,
		})
	}

	if err := uow.BetRepository().RecordResults(ctx, results); err != nil {
		return nil, fmt.Errorf("failed to record bet results: %w", err)
	}
	if err := uow.BetRepository().DeleteByIDs(ctx, betIDs); err != nil {
		return nil, fmt.Errorf("failed to clear settled bets: %w", err)
	}

	if err := uow.ProfitRepository().Record(ctx, &models.ProfitEntry{
		Amount: result.ProfitDelta,
		Source: models.ProfitSourceSettlement,
		Metadata: map[string]any{
			"winning_side": string(winningSide),
			"num_winners":  len(result.Winners),
			"num_losers":   len(result.Losers),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to record profit delta: %w", err)
	}

	uow.EventBus().Publish(events.PoolSettledEvent{
		WinningSide: winningSide,
		Winners:     result.Winners,
		Losers:      result.Losers,
		ProfitDelta: result.ProfitDelta,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"winningSide": winningSide,
		"winners":     len(result.Winners),
		"losers":      len(result.Losers),
		"profitDelta": result.ProfitDelta,
	}).Info("Settled open pool")

	return result, nil
}

// SettleDraw refunds every open stake and clears the pool. The refunded
// bets are reported in Winners with the payout equal to the stake.
func (s *bettingService) SettleDraw(ctx context.Context) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListOpenForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock open pool: %w", err)
	}

	result := &models.SettlementResult{}
	if len(bets) == 0 {
		return result, nil
	}

	betIDs := make([]int64, 0, len(bets))
	results := make([]*models.BetResult, 0, len(bets))
	for _, bet := range bets {
		if err := s.refundStake(ctx, uow, bet); err != nil {
			return nil, err
		}

		result.Winners = append(result.Winners, models.SettledBet{
			UserID: bet.UserID,
			Amount: bet.Amount,
			Payout: bet.Amount,
		})
		betIDs = append(betIDs, bet.ID)
		results = append(results, &models.BetResult{
			UserID: bet.UserID,
			Amount: bet.Amount,
			Side:   bet.Side,
			Result: models.OutcomeDraw,
			Payout: bet.Amount,
		})
	}

	if err := uow.BetRepository().RecordResults(ctx, results); err != nil {
		return nil, fmt.Errorf("failed to record bet results: %w", err)
	}
	if err := uow.BetRepository().DeleteByIDs(ctx, betIDs); err != nil {
		return nil, fmt.Errorf("failed to clear refunded bets: %w", err)
	}

	uow.EventBus().Publish(events.PoolSettledEvent{
		Winners:     result.Winners,
		ProfitDelta: 0,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("refunded", len(bets)).Info("Refunded open pool on draw")

	return result, nil
}

func (s *bettingService) creditPayout(ctx context.Context, uow UnitOfWork, bet *models.Bet, payout int64) error {
	account, err := uow.AccountRepository().GetForUpdate(ctx, bet.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %d not found for bet %d", bet.UserID, bet.ID)
	}

	if err := uow.AccountRepository().AdjustBalance(ctx, bet.UserID, payout); err != nil {
		return fmt.Errorf("failed to credit payout: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          bet.UserID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance + payout,
		ChangeAmount:    payout,
		TransactionType: models.TransactionTypeBetPayout,
		TransactionMetadata: map[string]any{
			"side":  string(bet.Side),
			"stake": bet.Amount,
		},
		RelatedID:   &bet.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeBet),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return fmt.Errorf("failed to record payout credit: %w", err)
	}

	return nil
}

func (s *bettingService) refundStake(ctx context.Context, uow UnitOfWork, bet *models.Bet) error {
	account, err := uow.AccountRepository().GetForUpdate(ctx, bet.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %d not found for bet %d", bet.UserID, bet.ID)
	}

	if err := uow.AccountRepository().AdjustBalance(ctx, bet.UserID, bet.Amount); err != nil {
		return fmt.Errorf("failed to refund stake: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          bet.UserID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance + bet.Amount,
		ChangeAmount:    bet.Amount,
		TransactionType: models.TransactionTypeBetRefund,
		TransactionMetadata: map[string]any{
			"side": string(bet.Side),
		},
		RelatedID:   &bet.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeBet),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return fmt.Errorf("failed to record stake refund: %w", err)
	}

	return nil
}

// GetBetSummary aggregates the open pool per side over the trailing window
func (s *bettingService) GetBetSummary(ctx context.Context, window time.Duration) ([]*models.SideSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	summaries, err := uow.BetRepository().GetSummary(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to get bet summary: %w", err)
	}

	return summaries, nil
}

// ListRecentBets returns the most recent open bets
func (s *bettingService) ListRecentBets(ctx context.Context, limit int) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bets: %w", err)
	}

	return bets, nil
}

// ListBetHistory returns a user's settled bets, newest first
func (s *bettingService) ListBetHistory(ctx context.Context, userID int64, limit int) ([]*models.BetResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	results, err := uow.BetRepository().ListResultsByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bet history: %w", err)
	}

	return results, nil
}
