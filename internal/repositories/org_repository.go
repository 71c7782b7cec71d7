package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/evn/tracker_backendl/internal/models"
)

type OrgRepository struct {
	db *sql.DB
}

func NewOrgRepository(db *sql.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// FindByToken returns the org for the token, or nil when absent.
func (r *OrgRepository) FindByToken(ctx context.Context, token string) (*models.Org, error) {
	query := `
		SELECT id, company_token, created_at, updated_at
		FROM companies
		WHERE company_token = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

// FindOrCreate returns the existing org for the token or inserts a new
// one. Concurrent first registrations are left to the unique constraint
// on company_token.
func (r *OrgRepository) FindOrCreate(ctx context.Context, token string) (*models.Org, error) {
	org, err := r.FindByToken(ctx, token)
	if err != nil || org != nil {
		return org, err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO companies (company_token, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	org = &models.Org{Token: token, CreatedAt: now, UpdatedAt: &now}
	if err := r.db.QueryRowContext(ctx, query, token, now, now).Scan(&org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// List returns orgs sorted by last activity, newest first.
func (r *OrgRepository) List(ctx context.Context) ([]models.Org, error) {
	query := `
		SELECT id, company_token, created_at, updated_at
		FROM companies
		ORDER BY updated_at DESC NULLS LAST
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []models.Org
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *org)
	}
	return orgs, rows.Err()
}

// Touch bumps the org's updated_at timestamp.
func (r *OrgRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE companies SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *OrgRepository) scanOne(row *sql.Row) (*models.Org, error) {
	org, err := scanOrg(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return org, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrg(s scanner) (*models.Org, error) {
	var org models.Org
	var updated sql.NullTime
	if err := s.Scan(&org.ID, &org.Token, &org.CreatedAt, &updated); err != nil {
		return nil, err
	}
	if updated.Valid {
		org.UpdatedAt = &updated.Time
	}
	return &org, nil
}
