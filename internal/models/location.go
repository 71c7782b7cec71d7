package models

import (
	"encoding/json"
	"time"
)

// Location is one stored GPS fix. Data holds the raw sample exactly as
// the device posted it; latitude/longitude/recorded_at are extracted
// copies kept for querying. Rows are append-only.
type Location struct {
	ID         int64
	UUID       string
	CompanyID  int64
	DeviceID   int64
	Latitude   float64
	Longitude  float64
	Data       []byte
	RecordedAt *time.Time
	CreatedAt  time.Time
}

// LocationRecord is a location joined with its device metadata, as the
// dashboard consumes it.
type LocationRecord struct {
	Location
	DeviceUUID  string
	DeviceModel string
}

// Hydrate merges the raw sample payload with the extracted columns into
// a single JSON object, the shape the HTTP surface serves.
func (r *LocationRecord) Hydrate() map[string]interface{} {
	out := map[string]interface{}{}
	if len(r.Data) > 0 {
		// Raw payload first so the typed columns win on conflict.
		_ = json.Unmarshal(r.Data, &out)
	}
	out["id"] = r.ID
	out["uuid"] = r.UUID
	out["company_id"] = r.CompanyID
	out["device_id"] = r.DeviceID
	out["latitude"] = r.Latitude
	out["longitude"] = r.Longitude
	out["created_at"] = r.CreatedAt
	if r.RecordedAt != nil {
		out["recorded_at"] = r.RecordedAt
	}
	if r.DeviceUUID != "" {
		out["device"] = map[string]interface{}{
			"id":           r.DeviceID,
			"device_id":    r.DeviceUUID,
			"device_model": r.DeviceModel,
		}
	}
	return out
}

// LocationFilter narrows location queries and deletions. Zero values
// mean "no constraint".
type LocationFilter struct {
	CompanyID int64
	DeviceID  int64
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// Empty reports whether the filter carries no constraint besides the
// time range. Deletions refuse such filters.
func (f LocationFilter) Empty() bool {
	return f.CompanyID == 0 && f.DeviceID == 0 && f.StartDate == nil && f.EndDate == nil
}

// Stats is the global aggregate for operator dashboards.
type Stats struct {
	MinDate *time.Time `json:"minDate"`
	MaxDate *time.Time `json:"maxDate"`
	Total   int64      `json:"total"`
}
