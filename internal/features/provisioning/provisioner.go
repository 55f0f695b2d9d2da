package provisioning

import (
	"context"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/integration"
)

const pronounsFieldKey = "pronouns"

// FieldProvisioner knows how one CRM stores the pronouns field.
type FieldProvisioner interface {
	Provider() common_models.Provider
	Exists(ctx context.Context, customer integration.Customer, conn integration.Connection) (bool, error)
	Create(ctx context.Context, customer integration.Customer, conn integration.Connection) error
}

// DefaultProvisioners returns the provisioners in provisioning order.
func DefaultProvisioners(client integration.Client) []FieldProvisioner {
	return []FieldProvisioner{
		NewHubSpotProvisioner(client),
		NewPipedriveProvisioner(client),
	}
}
