package models

import "time"

// Device is a registered tracker, unique per (company_id, device_id).
type Device struct {
	ID           int64      `json:"id"`
	CompanyID    int64      `json:"company_id"`
	CompanyToken string     `json:"company_token"`
	DeviceID     string     `json:"device_id"`
	Model        string     `json:"device_model"`
	Framework    string     `json:"framework,omitempty"`
	Version      string     `json:"version,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// DeviceInfo is what a device reports about itself on registration.
type DeviceInfo struct {
	UUID      string `json:"uuid"`
	Model     string `json:"model"`
	Framework string `json:"framework,omitempty"`
	Version   string `json:"version,omitempty"`
}

// DeviceFilter narrows device listings. Zero CompanyID means no tenant filter.
type DeviceFilter struct {
	CompanyID int64
}
