package provisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/integration"
)

const pipedrivePersonFieldsPath = "/v1/personFields"

type pipedriveField struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type pipedriveFieldList struct {
	Data []pipedriveField `json:"data"`
}

type PipedriveProvisioner struct {
	client integration.Client
}

func NewPipedriveProvisioner(client integration.Client) *PipedriveProvisioner {
	return &PipedriveProvisioner{client: client}
}

func (p *PipedriveProvisioner) Provider() common_models.Provider {
	return common_models.ProviderPipedrive
}

// Exists scans the person fields. Pipedrive gives custom fields hashed keys,
// so a field named "Pronouns" counts as well.
func (p *PipedriveProvisioner) Exists(ctx context.Context, customer integration.Customer, conn integration.Connection) (bool, error) {
	raw, err := p.client.ConnectionRequest(ctx, customer, conn.ID, pipedrivePersonFieldsPath, http.MethodGet, nil)
	if err != nil {
		return false, err
	}

	var fields pipedriveFieldList
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, fmt.Errorf("failed to decode person fields on connection %s: %w", conn.ID, err)
	}

	for _, f := range fields.Data {
		if f.Key == pronounsFieldKey || strings.EqualFold(f.Name, "Pronouns") {
			return true, nil
		}
	}
	return false, nil
}

func (p *PipedriveProvisioner) Create(ctx context.Context, customer integration.Customer, conn integration.Connection) error {
	_, err := p.client.ConnectionRequest(ctx, customer, conn.ID, pipedrivePersonFieldsPath, http.MethodPost, map[string]string{
		"name":       "Pronouns",
		"field_type": "varchar",
	})
	if err != nil {
		return fmt.Errorf("failed to create 'pronouns' person field on connection %s: %w", conn.ID, err)
	}
	return nil
}
