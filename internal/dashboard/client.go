package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Client feeds a Store from the site API. Load failures are logged and
// leave the last good data in place, so a flaky backend degrades to a
// stale dashboard instead of a broken one.
type Client struct {
	BaseURL   string
	AuthToken string
	HTTP      *http.Client
	Store     *Store
}

func NewClient(baseURL, authToken string, store *Store) *Client {
	return &Client{
		BaseURL:   baseURL,
		AuthToken: authToken,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Store:     store,
	}
}

type orgTokenRow struct {
	ID    int64  `json:"id"`
	Token string `json:"company_token"`
}

type deviceRow struct {
	ID        int64  `json:"id"`
	DeviceID  string `json:"device_id"`
	Model     string `json:"device_model"`
	Framework string `json:"framework"`
}

type locationRow struct {
	UUID       string  `json:"uuid"`
	DeviceID   int64   `json:"device_id"`
	CompanyID  int64   `json:"company_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RecordedAt string  `json:"recorded_at"`
}

func (r locationRow) toLocation() Location {
	return Location{
		UUID:       r.UUID,
		DeviceID:   r.DeviceID,
		CompanyID:  r.CompanyID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		RecordedAt: r.RecordedAt,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// LoadOrgTokens refreshes the org list and repairs the org selection.
func (c *Client) LoadOrgTokens(ctx context.Context) {
	query := url.Values{}
	if search := c.Store.State().OrgTokenFromSearch; search != "" {
		query.Set("company_token", search)
	}
	var rows []orgTokenRow
	if err := c.get(ctx, "/company_tokens", query, &rows); err != nil {
		log.Printf("dashboard: load org tokens: %v", err)
		return
	}
	tokens := make([]OrgToken, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, OrgToken{ID: fmt.Sprint(row.ID), Name: row.Token})
	}
	c.Store.Dispatch(SetOrgTokens{OrgTokens: tokens})
	c.Store.Dispatch(AutoselectOrInvalidateSelectedOrgToken{})
}

// LoadDevices refreshes the device list for the selected org and repairs
// the device selection.
func (c *Client) LoadDevices(ctx context.Context) {
	query := url.Values{}
	if companyID := c.Store.State().CompanyID; companyID != "" {
		query.Set("company_id", companyID)
	}
	var rows []deviceRow
	if err := c.get(ctx, "/devices", query, &rows); err != nil {
		log.Printf("dashboard: load devices: %v", err)
		return
	}
	devices := make([]Device, 0, len(rows))
	for _, row := range rows {
		name := row.DeviceID
		if row.Framework != "" {
			name = fmt.Sprintf("%s (%s)", row.DeviceID, row.Framework)
		}
		devices = append(devices, Device{ID: fmt.Sprint(row.ID), Name: name})
	}
	c.Store.Dispatch(SetDevices{Devices: devices})
	c.Store.Dispatch(AutoselectOrInvalidateSelectedDevice{})
}

// LoadLocations refreshes the location list for the current selection and
// date range.
func (c *Client) LoadLocations(ctx context.Context) {
	state := c.Store.State()
	query := url.Values{}
	if state.CompanyID != "" {
		query.Set("company_id", state.CompanyID)
	}
	if state.DeviceID != "" {
		query.Set("device_id", state.DeviceID)
	}
	query.Set("start_date", state.StartDate.Format(time.RFC3339))
	query.Set("end_date", state.EndDate.Format(time.RFC3339))
	query.Set("limit", fmt.Sprint(state.MaxMarkers))
	var rows []locationRow
	if err := c.get(ctx, "/locations", query, &rows); err != nil {
		log.Printf("dashboard: load locations: %v", err)
		return
	}
	locations := make([]Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, row.toLocation())
	}
	c.Store.Dispatch(SetLocations{Locations: locations})
	c.Store.Dispatch(SetHasData{Status: len(locations) > 0})
	c.Store.Dispatch(InvalidateSelectedLocation{})
}

// LoadCurrentLocation refreshes the live fix for the selected device.
// The backend returns a JSON null when the device has no fixes yet.
func (c *Client) LoadCurrentLocation(ctx context.Context) {
	state := c.Store.State()
	query := url.Values{}
	if state.CompanyID != "" {
		query.Set("company_id", state.CompanyID)
	}
	if state.DeviceID != "" {
		query.Set("device_id", state.DeviceID)
	}
	var row *locationRow
	if err := c.get(ctx, "/locations/latest", query, &row); err != nil {
		log.Printf("dashboard: load current location: %v", err)
		return
	}
	var current *Location
	if row != nil {
		loc := row.toLocation()
		current = &loc
	}
	c.Store.Dispatch(SetCurrentLocation{Location: current})
	c.Store.Dispatch(InvalidateSelectedLocation{})
}

// Reload runs the full load pipeline. Orgs are reloaded only when asked,
// since the org list rarely changes between poll ticks.
func (c *Client) Reload(ctx context.Context, withOrgs bool) {
	c.Store.Dispatch(SetIsLoading{Status: true})
	if withOrgs {
		c.LoadOrgTokens(ctx)
	}
	c.LoadDevices(ctx)
	c.LoadLocations(ctx)
	if c.Store.State().IsWatching {
		c.LoadCurrentLocation(ctx)
	}
	c.Store.Dispatch(SetIsLoading{Status: false})
}

// StartPolling reloads on every tick until the context is cancelled.
func (c *Client) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Reload(ctx, false)
			}
		}
	}()
}

// DeleteActiveDevice removes the selected device's locations, optionally
// bounded to a date range, then reloads.
func (c *Client) DeleteActiveDevice(ctx context.Context, startDate, endDate *time.Time) {
	state := c.Store.State()
	if state.DeviceID == "" {
		return
	}
	query := url.Values{}
	if startDate != nil {
		query.Set("start_date", startDate.Format(time.RFC3339))
	}
	if endDate != nil {
		query.Set("end_date", endDate.Format(time.RFC3339))
	}
	u := c.BaseURL + "/devices/" + state.DeviceID
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		log.Printf("dashboard: delete device: %v", err)
		return
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Printf("dashboard: delete device: %v", err)
		return
	}
	resp.Body.Close()
	c.Reload(ctx, false)
}
