package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/evn/tracker_backendl/internal/models"
)

// parseTime accepts RFC3339 and the date-only form the dashboard sends.
func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseInt64(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}

// decodeEnvelopes reads the request body as either a single ingest
// envelope or an array of them.
func decodeEnvelopes(body io.Reader) ([]models.IngestEnvelope, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var envelopes []models.IngestEnvelope
		if err := json.Unmarshal(data, &envelopes); err != nil {
			return nil, err
		}
		return envelopes, nil
	}

	var envelope models.IngestEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return []models.IngestEnvelope{envelope}, nil
}
