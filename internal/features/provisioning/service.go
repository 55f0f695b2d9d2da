package provisioning

import (
	"context"
	"fmt"
	"time"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/config"
	"contacts-sync/internal/features/audit"
	"contacts-sync/internal/features/integration"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const auditModule = "provisioning"

type Result struct {
	Provider common_models.Provider `json:"provider"`
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
}

type ProvisioningService interface {
	// Provision ensures the pronouns field on every active connection of one provider.
	Provision(ctx context.Context, customer integration.Customer, provider common_models.Provider) Result
	// SetupAll provisions every supported provider independently, in order.
	SetupAll(ctx context.Context, customer integration.Customer) []Result
}

type ProvisioningServiceImpl struct {
	Client       integration.Client
	AuditService audit.AuditService
	Events       common_models.EventPublisher
	Log          *zap.Logger
	MaxRetries   int
	RetryDelay   time.Duration

	provisioners []FieldProvisioner
	now          func() time.Time
}

func NewProvisioningService(
	client integration.Client,
	provisioners []FieldProvisioner,
	auditService audit.AuditService,
	events common_models.EventPublisher,
	cfg *config.Config,
	log *zap.Logger,
) ProvisioningService {
	return &ProvisioningServiceImpl{
		Client:       client,
		AuditService: auditService,
		Events:       events,
		Log:          log.Named("provisioning"),
		MaxRetries:   cfg.IntegrationMaxRetries,
		RetryDelay:   500 * time.Millisecond,
		provisioners: provisioners,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProvisioningServiceImpl) provisioner(provider common_models.Provider) FieldProvisioner {
	for _, p := range s.provisioners {
		if p.Provider() == provider {
			return p
		}
	}
	return nil
}

func (s *ProvisioningServiceImpl) SetupAll(ctx context.Context, customer integration.Customer) []Result {
	results := make([]Result, 0, len(common_models.Providers))
	for _, provider := range common_models.Providers {
		results = append(results, s.Provision(ctx, customer, provider))
	}
	return results
}

func (s *ProvisioningServiceImpl) Provision(ctx context.Context, customer integration.Customer, provider common_models.Provider) Result {
	result := Result{Provider: provider}
	name := provider.DisplayName()

	connections, err := s.provision(ctx, customer, provider)
	switch {
	case err != nil:
		s.Log.Error("pronouns setup failed",
			zap.String("customerId", customer.ID),
			zap.String("provider", string(provider)),
			zap.Error(err),
		)
		result.Message = fmt.Sprintf("Failed to set up %s pronouns field: %v", name, err)
	case connections == 0:
		result.Success = true
		result.Message = fmt.Sprintf("No active %s connections found to set up.", name)
	default:
		result.Success = true
		result.Message = fmt.Sprintf("Successfully verified or created 'pronouns' field for all %s connections.", name)
	}

	s.report(ctx, customer, result)
	return result
}

// provision walks the connections sequentially and stops at the first failure.
func (s *ProvisioningServiceImpl) provision(ctx context.Context, customer integration.Customer, provider common_models.Provider) (int, error) {
	p := s.provisioner(provider)
	if p == nil {
		return 0, fmt.Errorf("no provisioner registered for %q", provider)
	}

	var connections []integration.Connection
	err := s.retry(ctx, func() error {
		var err error
		connections, err = s.Client.FindConnections(ctx, customer, string(provider))
		return err
	})
	if err != nil {
		return 0, err
	}

	for _, conn := range connections {
		var exists bool
		err := s.retry(ctx, func() error {
			var err error
			exists, err = p.Exists(ctx, customer, conn)
			return err
		})
		if err != nil {
			return len(connections), err
		}

		if exists {
			s.Log.Info("pronouns field already exists",
				zap.String("customerId", customer.ID),
				zap.String("provider", string(provider)),
				zap.String("connectionId", conn.ID),
			)
			continue
		}

		// Creates are not idempotent on every CRM, so they are never retried.
		if err := p.Create(ctx, customer, conn); err != nil {
			return len(connections), err
		}
		s.Log.Info("pronouns field created",
			zap.String("customerId", customer.ID),
			zap.String("provider", string(provider)),
			zap.String("connectionId", conn.ID),
		)
	}
	return len(connections), nil
}

// retry runs a read-only call up to MaxRetries extra times on retryable
// failures, doubling RetryDelay between attempts.
func (s *ProvisioningServiceImpl) retry(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.RetryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		err := fn()
		if err != nil && !integration.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		attempt++
		s.Log.Warn("retrying integration call",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	return backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.MaxRetries)), ctx),
		notify,
	)
}

func (s *ProvisioningServiceImpl) report(ctx context.Context, customer integration.Customer, result Result) {
	if s.Events != nil {
		s.Events.Publish(customer.ID, common_models.Event{
			Type:      common_models.EventProvisioning,
			Provider:  result.Provider,
			Success:   result.Success,
			Message:   result.Message,
			Timestamp: s.now(),
		})
	}

	if s.AuditService == nil {
		return
	}
	err := s.AuditService.LogChange(ctx, customer.ID, common_models.AuditActionProvision, auditModule, string(result.Provider), map[string]common_models.Change{
		"result": {New: result},
	})
	if err != nil {
		s.Log.Warn("failed to write audit log", zap.String("customerId", customer.ID), zap.Error(err))
	}
}
