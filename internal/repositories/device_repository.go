package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evn/tracker_backendl/internal/models"
)

type DeviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, company_id, company_token, device_id, device_model, framework, version, created_at, updated_at`

// GetByID returns the device for id, or nil when absent.
func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return device, err
}

// FindByCompanyAndUUID looks a device up within its org. An empty uuid
// matches any device of the org, mirroring find-or-create with an
// unknown device identifier.
func (r *DeviceRepository) FindByCompanyAndUUID(ctx context.Context, companyID int64, uuid string) (*models.Device, error) {
	var row *sql.Row
	if uuid == "" {
		query := `SELECT ` + deviceColumns + ` FROM devices WHERE company_id = $1 LIMIT 1`
		row = r.db.QueryRowContext(ctx, query, companyID)
	} else {
		query := `SELECT ` + deviceColumns + ` FROM devices WHERE company_id = $1 AND device_id = $2`
		row = r.db.QueryRowContext(ctx, query, companyID, uuid)
	}
	device, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return device, err
}

// Create inserts the device and fills in its id.
func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (company_id, company_token, device_id, device_model, framework, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		device.CompanyID,
		device.CompanyToken,
		device.DeviceID,
		device.Model,
		nullString(device.Framework),
		nullString(device.Version),
		device.CreatedAt,
		device.UpdatedAt,
	).Scan(&device.ID)
}

// List returns devices, optionally scoped to an org, most recently
// active first.
func (r *DeviceRepository) List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices`
	var args []interface{}
	if filter.CompanyID != 0 {
		query += ` WHERE company_id = $1`
		args = append(args, filter.CompanyID)
	}
	query += ` ORDER BY updated_at DESC NULLS LAST, created_at DESC NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	return devices, rows.Err()
}

// Touch bumps the device's updated_at timestamp.
func (r *DeviceRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE devices SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

// Delete removes the device row.
func (r *DeviceRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return err
}

// DeleteOrphans removes all devices of the org except the given ids.
// Used by the bulk orphan sweep after a company-wide location delete.
func (r *DeviceRepository) DeleteOrphans(ctx context.Context, companyID int64, keep []int64) error {
	if len(keep) == 0 {
		_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE company_id = $1`, companyID)
		return err
	}
	placeholders := make([]string, len(keep))
	args := make([]interface{}, 0, len(keep)+1)
	args = append(args, companyID)
	for i, id := range keep {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`DELETE FROM devices WHERE company_id = $1 AND id NOT IN (%s)`,
		strings.Join(placeholders, ", "),
	)
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func scanDevice(s scanner) (*models.Device, error) {
	var device models.Device
	var framework, version sql.NullString
	var updated sql.NullTime
	err := s.Scan(
		&device.ID,
		&device.CompanyID,
		&device.CompanyToken,
		&device.DeviceID,
		&device.Model,
		&framework,
		&version,
		&device.CreatedAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	device.Framework = framework.String
	device.Version = version.String
	if updated.Valid {
		device.UpdatedAt = &updated.Time
	}
	return &device, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
