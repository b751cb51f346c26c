package scheduler

import (
	"context"
	"fmt"
	"time"

	"coinpool/service"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the periodic reconciliation sweep that applies approved
// deposits whose balance credit never landed
type Scheduler struct {
	cron    *cron.Cron
	money   service.MoneyMovementService
	spec    string
	timeout time.Duration
}

// New creates a scheduler with the sweep registered on the given cron spec
func New(money service.MoneyMovementService, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		money:   money,
		spec:    spec,
		timeout: 30 * time.Second,
	}

	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("failed to register sweep job: %w", err)
	}

	return s, nil
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	applied, err := s.money.ApplyApprovedDeposits(ctx)
	if err != nil {
		log.WithError(err).Error("Deposit reconciliation sweep failed")
		return
	}
	if applied > 0 {
		log.WithField("applied", applied).Info("Deposit reconciliation sweep applied credits")
	}
}

// Start begins running the sweep on its schedule
func (s *Scheduler) Start() {
	log.WithField("schedule", s.spec).Info("Starting deposit reconciliation scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
