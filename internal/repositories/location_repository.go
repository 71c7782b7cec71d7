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

type LocationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Insert appends one location row and fills in its id. Rows are never
// updated afterwards.
func (r *LocationRepository) Insert(ctx context.Context, loc *models.Location) error {
	query := `
		INSERT INTO locations (uuid, company_id, device_id, latitude, longitude, data, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		loc.UUID,
		loc.CompanyID,
		loc.DeviceID,
		loc.Latitude,
		loc.Longitude,
		string(loc.Data),
		loc.RecordedAt,
		loc.CreatedAt,
	).Scan(&loc.ID)
}

// List returns locations matching the filter joined with their device
// metadata, newest fix first. Limit defaults to 1000.
func (r *LocationRepository) List(ctx context.Context, filter models.LocationFilter) ([]models.LocationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	where, args := locationWhere(filter, "l.")
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT l.id, l.uuid, l.company_id, l.device_id, l.latitude, l.longitude, l.data, l.recorded_at, l.created_at,
		       d.device_id, d.device_model
		FROM locations l
		LEFT JOIN devices d ON d.id = l.device_id
		%s
		ORDER BY l.recorded_at DESC NULLS LAST
		LIMIT $%d`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.LocationRecord
	for rows.Next() {
		rec, err := scanLocationRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Latest returns the single most recent location for the filter, or nil
// when the device has no locations yet.
func (r *LocationRepository) Latest(ctx context.Context, filter models.LocationFilter) (*models.LocationRecord, error) {
	where, args := locationWhere(filter, "l.")
	query := fmt.Sprintf(`
		SELECT l.id, l.uuid, l.company_id, l.device_id, l.latitude, l.longitude, l.data, l.recorded_at, l.created_at,
		       d.device_id, d.device_model
		FROM locations l
		LEFT JOIN devices d ON d.id = l.device_id
		%s
		ORDER BY l.recorded_at DESC NULLS LAST
		LIMIT 1`, where)

	rec, err := scanLocationRecord(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// Delete removes the matching rows and reports how many went away.
func (r *LocationRepository) Delete(ctx context.Context, filter models.LocationFilter) (int64, error) {
	where, args := locationWhere(filter, "")
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations `+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count reports how many rows match the filter's device/org scope.
func (r *LocationRepository) Count(ctx context.Context, filter models.LocationFilter) (int64, error) {
	where, args := locationWhere(filter, "")
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations `+where, args...).Scan(&count)
	return count, err
}

// SurvivingDeviceGroups returns, per company, the device ids that still
// have at least one location under the filter's scope. Feeds the bulk
// orphan sweep.
func (r *LocationRepository) SurvivingDeviceGroups(ctx context.Context, filter models.LocationFilter) (map[int64][]int64, error) {
	where, args := locationWhere(filter, "")
	query := `SELECT company_id, device_id FROM locations ` + where + ` GROUP BY company_id, device_id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := map[int64][]int64{}
	for rows.Next() {
		var companyID, deviceID int64
		if err := rows.Scan(&companyID, &deviceID); err != nil {
			return nil, err
		}
		groups[companyID] = append(groups[companyID], deviceID)
	}
	return groups, rows.Err()
}

// Stats returns the global aggregate over all locations, unscoped.
// Min and max are fetched as plain ordered column reads rather than
// MIN()/MAX(): aggregate expressions carry no declared column type, and
// the sqlite driver only converts DATETIME text to time values when the
// declared type is visible.
func (r *LocationRepository) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&stats.Total); err != nil {
		return nil, err
	}
	if stats.Total == 0 {
		return &stats, nil
	}

	var minDate, maxDate time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT created_at FROM locations ORDER BY created_at ASC LIMIT 1`).Scan(&minDate); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT created_at FROM locations ORDER BY created_at DESC LIMIT 1`).Scan(&maxDate); err != nil {
		return nil, err
	}
	stats.MinDate = &minDate
	stats.MaxDate = &maxDate
	return &stats, nil
}

// locationWhere renders the filter as a WHERE clause with ordinal
// placeholders. The prefix qualifies columns in joined queries.
func locationWhere(filter models.LocationFilter, prefix string) (string, []interface{}) {
	var conds []string
	var args []interface{}
	next := func() int { return len(args) + 1 }

	if filter.DeviceID != 0 {
		args = append(args, filter.DeviceID)
		conds = append(conds, fmt.Sprintf("%sdevice_id = $%d", prefix, len(args)))
	}
	if filter.CompanyID != 0 {
		args = append(args, filter.CompanyID)
		conds = append(conds, fmt.Sprintf("%scompany_id = $%d", prefix, len(args)))
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		n := next()
		args = append(args, *filter.StartDate, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("%srecorded_at BETWEEN $%d AND $%d", prefix, n, n+1))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanLocationRecord(s scanner) (*models.LocationRecord, error) {
	var rec models.LocationRecord
	var uuid, data, deviceUUID, deviceModel sql.NullString
	var recorded sql.NullTime
	err := s.Scan(
		&rec.ID,
		&uuid,
		&rec.CompanyID,
		&rec.DeviceID,
		&rec.Latitude,
		&rec.Longitude,
		&data,
		&recorded,
		&rec.CreatedAt,
		&deviceUUID,
		&deviceModel,
	)
	if err != nil {
		return nil, err
	}
	rec.UUID = uuid.String
	rec.Data = []byte(data.String)
	rec.DeviceUUID = deviceUUID.String
	rec.DeviceModel = deviceModel.String
	if recorded.Valid {
		rec.RecordedAt = &recorded.Time
	}
	return &rec, nil
}
