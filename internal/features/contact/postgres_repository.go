package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	common_models "contacts-sync/internal/common/models"

	"github.com/lib/pq"
)

const contactColumns = "id, customer_id, name, email, phone, job_title, pronouns, synced_to_crms, last_app_modified, created_at, updated_at"

type PostgresContactRepository struct {
	db *sql.DB
}

func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var (
		c            Contact
		lastModified sql.NullTime
	)
	err := row.Scan(&c.ID, &c.CustomerID, &c.Name, &c.Email, &c.Phone, &c.JobTitle, &c.Pronouns,
		pq.Array(&c.SyncedToCRMs), &lastModified, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastModified.Valid {
		t := lastModified.Time
		c.LastAppModified = &t
	}
	if c.SyncedToCRMs == nil {
		c.SyncedToCRMs = []string{}
	}
	return &c, nil
}

// Every statement below leads with "customer_id = $1" as its tenant gate.

func (r *PostgresContactRepository) List(ctx context.Context, customerID string) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *PostgresContactRepository) Get(ctx context.Context, customerID, id string) (*Contact, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE customer_id = $1 AND id = $2", customerID, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return c, err
}

func (r *PostgresContactRepository) Create(ctx context.Context, c *Contact) error {
	return insertContact(ctx, r.db, c)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertContact(ctx context.Context, db execer, c *Contact) error {
	if c.SyncedToCRMs == nil {
		c.SyncedToCRMs = []string{}
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO contacts ("+contactColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		c.ID, c.CustomerID, c.Name, c.Email, c.Phone, c.JobTitle, c.Pronouns,
		pq.Array(c.SyncedToCRMs), c.LastAppModified, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresContactRepository) CreateMany(ctx context.Context, contacts []Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range contacts {
		if err := insertContact(ctx, tx, &contacts[i]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresContactRepository) Update(ctx context.Context, customerID, id string, in ContactInput, at time.Time) (*Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE contacts SET
			name = COALESCE(NULLIF($3, ''), name),
			email = COALESCE(NULLIF($4, ''), email),
			phone = COALESCE(NULLIF($5, ''), phone),
			job_title = COALESCE(NULLIF($6, ''), job_title),
			pronouns = COALESCE(NULLIF($7, ''), pronouns),
			updated_at = $8,
			last_app_modified = $8
		WHERE customer_id = $1 AND id = $2
		RETURNING `+contactColumns,
		customerID, id, in.Name, in.Email, in.Phone, in.JobTitle, in.Pronouns, at)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return c, err
}

func (r *PostgresContactRepository) Delete(ctx context.Context, customerID, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE customer_id = $1 AND id = $2", customerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

func (r *PostgresContactRepository) MarkSynced(ctx context.Context, customerID, id, provider string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET synced_to_crms = CASE
			WHEN $3 = ANY(synced_to_crms) THEN synced_to_crms
			ELSE array_append(synced_to_crms, $3)
		END
		WHERE customer_id = $1 AND id = $2`, customerID, id, provider)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return nil
}

func (r *PostgresContactRepository) CustomerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT customer_id FROM contacts ORDER BY customer_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnsureIndexes creates the table on first start as well.
func (r *PostgresContactRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			job_title TEXT NOT NULL,
			pronouns TEXT NOT NULL,
			synced_to_crms TEXT[] NOT NULL DEFAULT '{}',
			last_app_modified TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS contacts_customer_created_idx ON contacts (customer_id, created_at DESC);`)
	return err
}
