package provisioning

import (
	"context"
	"errors"
	"testing"

	"contacts-sync/internal/config"
	"contacts-sync/internal/features/integration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCustomers struct {
	ids []string
	err error
}

func (s staticCustomers) CustomerIDs(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

func TestSchedulerRunOnceProvisionsEveryCustomer(t *testing.T) {
	env := newProvisioningEnv(0)
	env.crm.connections["cust_1/hubspot"] = []integration.Connection{connection("conn_h1", "hubspot")}
	env.crm.connections["cust_2/hubspot"] = []integration.Connection{connection("conn_h2", "hubspot")}

	scheduler := NewScheduler(env.service, staticCustomers{ids: []string{"cust_1", "cust_2"}},
		&config.Config{ProvisionSchedule: "@hourly"}, zap.NewNop())

	assert.Equal(t, 2, scheduler.RunOnce(context.Background()))
	assert.True(t, env.crm.hubspotProps["conn_h1"])
	assert.True(t, env.crm.hubspotProps["conn_h2"])
	assert.Equal(t, 4, env.crm.findConnectionsN)
}

func TestSchedulerRunOnceListFailure(t *testing.T) {
	env := newProvisioningEnv(0)
	scheduler := NewScheduler(env.service, staticCustomers{err: errors.New("db down")}, &config.Config{}, zap.NewNop())

	assert.Equal(t, 0, scheduler.RunOnce(context.Background()))
	assert.Equal(t, 0, env.crm.findConnectionsN)
}

func TestSchedulerDisabledWithoutSchedule(t *testing.T) {
	scheduler := NewScheduler(newProvisioningEnv(0).service, staticCustomers{}, &config.Config{}, zap.NewNop())

	assert.False(t, scheduler.Enabled())
	require.NoError(t, scheduler.Start())
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(newProvisioningEnv(0).service, staticCustomers{},
		&config.Config{ProvisionSchedule: "every tuesday"}, zap.NewNop())

	assert.Error(t, scheduler.Start())
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler := NewScheduler(newProvisioningEnv(0).service, staticCustomers{},
		&config.Config{ProvisionSchedule: "*/5 * * * *"}, zap.NewNop())

	require.NoError(t, scheduler.Start())
	require.NoError(t, scheduler.Stop(context.Background()))
}
