package contact

import (
	"strings"
	"time"

	common_models "contacts-sync/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact keeps camelCase keys so existing documents in the contacts
// collection stay readable.
type Contact struct {
	ObjectID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	ID              string             `json:"id" bson:"id"`
	Name            string             `json:"name" bson:"name"`
	Email           string             `json:"email" bson:"email"`
	Phone           string             `json:"phone" bson:"phone"`
	JobTitle        string             `json:"jobTitle" bson:"jobTitle"`
	Pronouns        string             `json:"pronouns" bson:"pronouns"`
	CustomerID      string             `json:"customerId" bson:"customerId"`
	SyncedToCRMs    []string           `json:"syncedToCRMs" bson:"syncedToCRMs"`
	LastAppModified *time.Time         `json:"lastAppModified,omitempty" bson:"lastAppModified,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ContactInput carries the editable fields. On update, empty fields keep
// their stored value.
type ContactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	JobTitle string `json:"jobTitle"`
	Pronouns string `json:"pronouns"`
}

type UpdateContactRequest struct {
	ID string `json:"id"`
	ContactInput
}

func (in ContactInput) Normalize() ContactInput {
	return ContactInput{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		JobTitle: strings.TrimSpace(in.JobTitle),
		Pronouns: strings.TrimSpace(in.Pronouns),
	}
}

// Validate requires every field; call it on a normalized input.
func (in ContactInput) Validate() error {
	var missing []string
	for _, f := range in.fields() {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return common_models.Validationf("Missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

type namedValue struct {
	name  string
	value string
}

func (in ContactInput) fields() []namedValue {
	return []namedValue{
		{"name", in.Name},
		{"email", in.Email},
		{"phone", in.Phone},
		{"jobTitle", in.JobTitle},
		{"pronouns", in.Pronouns},
	}
}

// diff reports the fields an update would change, keyed by json name.
func (c *Contact) diff(in ContactInput) map[string]common_models.Change {
	current := ContactInput{Name: c.Name, Email: c.Email, Phone: c.Phone, JobTitle: c.JobTitle, Pronouns: c.Pronouns}.fields()
	changes := map[string]common_models.Change{}
	for i, f := range in.fields() {
		if f.value != "" && f.value != current[i].value {
			changes[f.name] = common_models.Change{Old: current[i].value, New: f.value}
		}
	}
	return changes
}
