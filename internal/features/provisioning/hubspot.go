package provisioning

import (
	"context"
	"fmt"
	"net/http"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/integration"
)

const (
	hubspotPropertyPath   = "/crm/v3/properties/contacts/" + pronounsFieldKey
	hubspotPropertiesPath = "/crm/v3/properties/contacts"
)

type hubspotProperty struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	FieldType   string `json:"fieldType"`
	GroupName   string `json:"groupName"`
	Description string `json:"description"`
}

type HubSpotProvisioner struct {
	client integration.Client
}

func NewHubSpotProvisioner(client integration.Client) *HubSpotProvisioner {
	return &HubSpotProvisioner{client: client}
}

func (p *HubSpotProvisioner) Provider() common_models.Provider {
	return common_models.ProviderHubSpot
}

// Exists asks for the property directly; a 404 means it is absent.
func (p *HubSpotProvisioner) Exists(ctx context.Context, customer integration.Customer, conn integration.Connection) (bool, error) {
	_, err := p.client.ConnectionRequest(ctx, customer, conn.ID, hubspotPropertyPath, http.MethodGet, nil)
	if err == nil {
		return true, nil
	}
	if integration.IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("Failed to check for 'pronouns' field on connection %s: %w", conn.ID, err)
}

// Create treats 409 as success: another run created the property first.
func (p *HubSpotProvisioner) Create(ctx context.Context, customer integration.Customer, conn integration.Connection) error {
	_, err := p.client.ConnectionRequest(ctx, customer, conn.ID, hubspotPropertiesPath, http.MethodPost, hubspotProperty{
		Name:        pronounsFieldKey,
		Label:       "Pronouns",
		Type:        "string",
		FieldType:   "text",
		GroupName:   "contactinformation",
		Description: "Preferred pronouns for the contact, synced from our application.",
	})
	if err != nil && integration.StatusOf(err) != http.StatusConflict {
		return fmt.Errorf("failed to create 'pronouns' property on connection %s: %w", conn.ID, err)
	}
	return nil
}
