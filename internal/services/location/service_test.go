package location

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evn/tracker_backendl/db"
	"github.com/evn/tracker_backendl/internal/models"
	"github.com/evn/tracker_backendl/internal/pkg/apperrors"
	"github.com/evn/tracker_backendl/internal/repositories"
	"github.com/evn/tracker_backendl/internal/services/access"
	"github.com/evn/tracker_backendl/internal/services/registry"
)

type fixture struct {
	svc       *Service
	orgs      *repositories.OrgRepository
	devices   *repositories.DeviceRepository
	locations *repositories.LocationRepository
}

func newFixture(t *testing.T, policy *access.Policy) *fixture {
	t.Helper()
	database, err := db.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	orgs := repositories.NewOrgRepository(database)
	devices := repositories.NewDeviceRepository(database)
	locations := repositories.NewLocationRepository(database)
	if policy == nil {
		policy = access.NewPolicy(nil, nil, nil)
	}
	reg := registry.New(orgs, devices, locations, policy)
	return &fixture{
		svc:       NewService(locations, devices, reg, policy, nil, nil),
		orgs:      orgs,
		devices:   devices,
		locations: locations,
	}
}

func sampleJSON(uuid, timestamp string) json.RawMessage {
	raw, _ := json.Marshal(map[string]interface{}{
		"uuid":      uuid,
		"timestamp": timestamp,
		"coords":    map[string]float64{"latitude": 45.5, "longitude": -73.6},
	})
	return raw
}

func envelope(token string, samples ...json.RawMessage) models.IngestEnvelope {
	env := models.IngestEnvelope{CompanyToken: token}
	if len(samples) == 1 {
		env.Location = samples[0]
	} else {
		raw, _ := json.Marshal(samples)
		env.Location = raw
	}
	return env
}

func TestCreateSingleSample(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	env := envelope("acme", sampleJSON("s-1", "2020-03-12T19:26:12Z"))
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{env}, nil))

	// One org, one auto-registered device, one location.
	org, err := f.orgs.FindByToken(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, org)

	devices, err := f.devices.List(ctx, models.DeviceFilter{CompanyID: org.ID})
	require.NoError(t, err)
	require.Len(t, devices, 1)

	records, err := f.locations.List(ctx, models.LocationFilter{CompanyID: org.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "s-1", records[0].UUID)
	require.Equal(t, 45.5, records[0].Latitude)
}

func TestCreateAssignsUUIDWhenMissing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	raw, _ := json.Marshal(map[string]interface{}{
		"coords": map[string]float64{"latitude": 1, "longitude": 2},
	})
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{envelope("acme", raw)}, nil))

	records, err := f.locations.List(ctx, models.LocationFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotEmpty(t, records[0].UUID)
}

func TestCreateBatchAbortsWithoutRollback(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	bad, _ := json.Marshal(map[string]interface{}{"uuid": "s-bad"})
	env := envelope("acme",
		sampleJSON("s-1", "2020-03-12T19:26:12Z"),
		bad,
		sampleJSON("s-3", "2020-03-12T19:26:14Z"),
	)

	err := f.svc.Create(ctx, []models.IngestEnvelope{env}, nil)
	require.ErrorIs(t, err, models.ErrInvalidSample)

	// The sample before the bad one is already committed and stays.
	records, err := f.locations.List(ctx, models.LocationFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "s-1", records[0].UUID)
}

func TestCreateDeniedOrg(t *testing.T) {
	f := newFixture(t, access.NewPolicy([]string{"blocked"}, nil, nil))

	env := envelope("blocked", sampleJSON("s-1", "2020-03-12T19:26:12Z"))
	err := f.svc.Create(context.Background(), []models.IngestEnvelope{env}, nil)
	require.True(t, apperrors.IsAccessDenied(err))
}

func TestCreateWithoutTokenOrDevice(t *testing.T) {
	f := newFixture(t, nil)

	env := envelope("", sampleJSON("s-1", "2020-03-12T19:26:12Z"))
	err := f.svc.Create(context.Background(), []models.IngestEnvelope{env}, nil)
	require.True(t, apperrors.IsRegistrationRequired(err))
}

func TestDeleteLocationsEmptyFilter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	env := envelope("acme", sampleJSON("s-1", "2020-03-12T19:26:12Z"))
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{env}, nil))

	err := f.svc.DeleteLocations(ctx, models.LocationFilter{})
	require.True(t, errors.Is(err, apperrors.ErrMissingFilter))

	// Storage is untouched on refusal.
	records, err := f.locations.List(ctx, models.LocationFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDeleteLocationsPrunesEmptyDevice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	env := envelope("acme", sampleJSON("s-1", "2020-03-12T19:26:12Z"))
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{env}, nil))

	records, err := f.locations.List(ctx, models.LocationFilter{})
	require.NoError(t, err)
	deviceID := records[0].DeviceID

	require.NoError(t, f.svc.DeleteLocations(ctx, models.LocationFilter{DeviceID: deviceID}))

	gone, err := f.devices.GetByID(ctx, deviceID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestDeleteLocationsKeepsDeviceWithSurvivors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	env := envelope("acme",
		sampleJSON("s-1", "2020-03-12T19:26:12Z"),
		sampleJSON("s-2", "2020-03-12T20:26:12Z"),
	)
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{env}, nil))

	records, err := f.locations.List(ctx, models.LocationFilter{})
	require.NoError(t, err)
	deviceID := records[0].DeviceID

	start := time.Date(2020, 3, 12, 19, 0, 0, 0, time.UTC)
	end := time.Date(2020, 3, 12, 19, 59, 0, 0, time.UTC)
	require.NoError(t, f.svc.DeleteLocations(ctx, models.LocationFilter{DeviceID: deviceID, StartDate: &start, EndDate: &end}))

	kept, err := f.devices.GetByID(ctx, deviceID)
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestDeleteLocationsCompanySweepsEmptiedDevices(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Two devices under one org; only the first keeps a location after
	// the ranged delete.
	envA := models.IngestEnvelope{
		CompanyToken: "acme",
		Device:       &models.DeviceInfo{UUID: "dev-a", Model: "TestPhone"},
		Location:     sampleJSON("s-a", "2020-03-12T10:00:00Z"),
	}
	envB := models.IngestEnvelope{
		CompanyToken: "acme",
		Device:       &models.DeviceInfo{UUID: "dev-b", Model: "TestPhone"},
		Location:     sampleJSON("s-b", "2020-03-12T20:00:00Z"),
	}
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{envA, envB}, nil))

	org, err := f.orgs.FindByToken(ctx, "acme")
	require.NoError(t, err)

	start := time.Date(2020, 3, 12, 15, 0, 0, 0, time.UTC)
	end := time.Date(2020, 3, 12, 23, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.DeleteLocations(ctx, models.LocationFilter{CompanyID: org.ID, StartDate: &start, EndDate: &end}))

	devices, err := f.devices.List(ctx, models.DeviceFilter{CompanyID: org.ID})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "dev-a", devices[0].DeviceID)
}

func TestDeleteLocationsEmptiedCompanyNotSwept(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	env := models.IngestEnvelope{
		CompanyToken: "acme",
		Device:       &models.DeviceInfo{UUID: "dev-a", Model: "TestPhone"},
		Location:     sampleJSON("s-a", "2020-03-12T10:00:00Z"),
	}
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{env}, nil))

	org, err := f.orgs.FindByToken(ctx, "acme")
	require.NoError(t, err)

	// The unbounded delete empties the whole org; with no surviving
	// grouping there is no sweep, so the device row stays behind.
	require.NoError(t, f.svc.DeleteLocations(ctx, models.LocationFilter{CompanyID: org.ID}))

	devices, err := f.devices.List(ctx, models.DeviceFilter{CompanyID: org.ID})
	require.NoError(t, err)
	require.Len(t, devices, 1)
}

func TestGetLatestLocationMissing(t *testing.T) {
	f := newFixture(t, nil)

	latest, err := f.svc.GetLatestLocation(context.Background(), models.LocationFilter{DeviceID: 12345})
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestGetLocationsHydrated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	env := envelope("acme", sampleJSON("s-1", "2020-03-12T19:26:12Z"))
	require.NoError(t, f.svc.Create(ctx, []models.IngestEnvelope{env}, nil))

	hydrated, err := f.svc.GetLocations(ctx, models.LocationFilter{})
	require.NoError(t, err)
	require.Len(t, hydrated, 1)
	require.Equal(t, "s-1", hydrated[0]["uuid"])
	require.Equal(t, 45.5, hydrated[0]["latitude"])
	// The raw sample payload is merged in alongside the columns.
	require.Contains(t, hydrated[0], "coords")
	require.Contains(t, hydrated[0], "device")
}
