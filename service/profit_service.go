package service

import (
	"context"
	"fmt"
)

type profitService struct {
	uowFactory UnitOfWorkFactory
}

// NewProfitService creates a new profit service
func NewProfitService(uowFactory UnitOfWorkFactory) ProfitService {
	return &profitService{uowFactory: uowFactory}
}

// GetTotalProfit returns the lifetime operator profit, the sum of every
// settlement's signed delta
func (s *profitService) GetTotalProfit(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	total, err := uow.ProfitRepository().GetTotal(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get total profit: %w", err)
	}

	return total, nil
}
