package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidSample marks a sample the store refuses to persist.
var ErrInvalidSample = errors.New("location sample has no coords")

// IngestEnvelope is one POST /locations body element. Location may be a
// single sample object or an array of them; the raw bytes are kept so
// the store can persist the sample untouched.
type IngestEnvelope struct {
	CompanyToken string          `json:"company_token"`
	CompanyID    int64           `json:"company_id,omitempty"`
	Device       *DeviceInfo     `json:"device,omitempty"`
	Location     json.RawMessage `json:"location"`
}

// Samples splits the location field into individual raw samples.
func (e *IngestEnvelope) Samples() ([]json.RawMessage, error) {
	if len(e.Location) == 0 {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(e.Location)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var many []json.RawMessage
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	return []json.RawMessage{trimmed}, nil
}

// Sample is the typed view of one raw location sample: only the fields
// the store extracts into columns.
type Sample struct {
	UUID      string     `json:"uuid"`
	Timestamp *time.Time `json:"timestamp"`
	Coords    Coords     `json:"coords"`
}

// Coords is the GPS fix inside a sample.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Altitude  float64 `json:"altitude,omitempty"`
}

// ParseSample validates and extracts the queryable fields of one raw
// sample. A sample without a coords object is rejected.
func ParseSample(raw json.RawMessage) (*Sample, error) {
	var probe struct {
		UUID      string          `json:"uuid"`
		Timestamp *time.Time      `json:"timestamp"`
		Coords    json.RawMessage `json:"coords"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if len(probe.Coords) == 0 || string(probe.Coords) == "null" {
		return nil, ErrInvalidSample
	}
	var coords Coords
	if err := json.Unmarshal(probe.Coords, &coords); err != nil {
		return nil, err
	}
	return &Sample{UUID: probe.UUID, Timestamp: probe.Timestamp, Coords: coords}, nil
}
