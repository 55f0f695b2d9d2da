package provisioning

import (
	"context"
	"fmt"
	"time"

	"contacts-sync/internal/config"
	"contacts-sync/internal/features/integration"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const scheduledRunTimeout = 5 * time.Minute

// CustomerLister yields every customer that owns data.
type CustomerLister interface {
	CustomerIDs(ctx context.Context) ([]string, error)
}

// Scheduler re-runs SetupAll for every customer on PROVISION_SCHEDULE so new
// connections pick up the field without a manual call.
type Scheduler struct {
	service   ProvisioningService
	customers CustomerLister
	schedule  string
	log       *zap.Logger

	cron *cron.Cron
}

func NewScheduler(service ProvisioningService, customers CustomerLister, cfg *config.Config, log *zap.Logger) *Scheduler {
	return &Scheduler{
		service:   service,
		customers: customers,
		schedule:  cfg.ProvisionSchedule,
		log:       log.Named("provisioning.scheduler"),
	}
}

func (s *Scheduler) Enabled() bool {
	return s.schedule != ""
}

func (s *Scheduler) Start() error {
	if !s.Enabled() {
		s.log.Info("scheduled provisioning disabled")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid PROVISION_SCHEDULE: %w", err)
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(zap.NewStdLog(s.log))),
		cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(s.log))),
	))
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduled provisioning started", zap.String("schedule", s.schedule))
	return nil
}

// Stop waits for a running pass to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce provisions every known customer. Failures are per customer and logged.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ids, err := s.customers.CustomerIDs(ctx)
	if err != nil {
		s.log.Error("failed to list customers for provisioning", zap.Error(err))
		return 0
	}

	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		for _, result := range s.service.SetupAll(ctx, integration.Customer{ID: id}) {
			if !result.Success {
				failed++
			}
		}
	}

	s.log.Info("scheduled provisioning finished",
		zap.Int("customers", len(ids)),
		zap.Int("failedProviders", failed),
	)
	return len(ids)
}
