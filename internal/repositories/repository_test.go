package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evn/tracker_backendl/db"
	"github.com/evn/tracker_backendl/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	return database
}

func createOrg(t *testing.T, orgs *OrgRepository, token string) *models.Org {
	t.Helper()
	org, err := orgs.FindOrCreate(context.Background(), token)
	require.NoError(t, err)
	require.NotZero(t, org.ID)
	return org
}

func createDevice(t *testing.T, devices *DeviceRepository, org *models.Org, uuid string) *models.Device {
	t.Helper()
	now := time.Now().UTC()
	device := &models.Device{
		CompanyID:    org.ID,
		CompanyToken: org.Token,
		DeviceID:     uuid,
		Model:        "TestPhone",
		CreatedAt:    now,
		UpdatedAt:    &now,
	}
	require.NoError(t, devices.Create(context.Background(), device))
	require.NotZero(t, device.ID)
	return device
}

func createLocation(t *testing.T, locations *LocationRepository, device *models.Device, recordedAt time.Time) *models.Location {
	t.Helper()
	raw, _ := json.Marshal(map[string]interface{}{
		"uuid":      "sample-" + recordedAt.Format("150405.000"),
		"timestamp": recordedAt.Format(time.RFC3339),
		"coords":    map[string]float64{"latitude": 45.5, "longitude": -73.6},
	})
	loc := &models.Location{
		UUID:       "sample-" + recordedAt.Format("150405.000"),
		CompanyID:  device.CompanyID,
		DeviceID:   device.ID,
		Latitude:   45.5,
		Longitude:  -73.6,
		Data:       raw,
		RecordedAt: &recordedAt,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, locations.Insert(context.Background(), loc))
	require.NotZero(t, loc.ID)
	return loc
}

func TestOrgFindOrCreateIsIdempotent(t *testing.T) {
	orgs := NewOrgRepository(newTestDB(t))
	ctx := context.Background()

	first, err := orgs.FindOrCreate(ctx, "acme")
	require.NoError(t, err)
	second, err := orgs.FindOrCreate(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	list, err := orgs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "acme", list[0].Token)
}

func TestOrgFindByTokenMissing(t *testing.T) {
	orgs := NewOrgRepository(newTestDB(t))

	org, err := orgs.FindByToken(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, org)
}

func TestDeviceFindByCompanyAndUUID(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	other := createOrg(t, orgs, "globex")
	created := createDevice(t, devices, org, "aaaa-bbbb")
	createDevice(t, devices, other, "cccc-dddd")

	found, err := devices.FindByCompanyAndUUID(ctx, org.ID, "aaaa-bbbb")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)

	// The same uuid under another org is a different device.
	miss, err := devices.FindByCompanyAndUUID(ctx, other.ID, "aaaa-bbbb")
	require.NoError(t, err)
	require.Nil(t, miss)

	// An empty uuid matches any device of the org.
	any, err := devices.FindByCompanyAndUUID(ctx, org.ID, "")
	require.NoError(t, err)
	require.NotNil(t, any)
	require.Equal(t, org.ID, any.CompanyID)
}

func TestDeviceDelete(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	device := createDevice(t, devices, org, "aaaa-bbbb")

	require.NoError(t, devices.Delete(ctx, device.ID))

	gone, err := devices.GetByID(ctx, device.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestDeviceDeleteOrphans(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	other := createOrg(t, orgs, "globex")
	keep := createDevice(t, devices, org, "keep-1")
	createDevice(t, devices, org, "drop-1")
	createDevice(t, devices, org, "drop-2")
	untouched := createDevice(t, devices, other, "other-1")

	require.NoError(t, devices.DeleteOrphans(ctx, org.ID, []int64{keep.ID}))

	mine, err := devices.List(ctx, models.DeviceFilter{CompanyID: org.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, keep.ID, mine[0].ID)

	// Other orgs are always out of scope.
	theirs, err := devices.GetByID(ctx, untouched.ID)
	require.NoError(t, err)
	require.NotNil(t, theirs)
}

func TestLocationListOrderAndLimit(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	locations := NewLocationRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	device := createDevice(t, devices, org, "aaaa-bbbb")

	base := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	createLocation(t, locations, device, base)
	createLocation(t, locations, device, base.Add(time.Minute))
	createLocation(t, locations, device, base.Add(2*time.Minute))

	records, err := locations.List(ctx, models.LocationFilter{DeviceID: device.ID})
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Most recent fix first.
	require.True(t, records[0].RecordedAt.After(*records[2].RecordedAt))
	require.Equal(t, device.DeviceID, records[0].DeviceUUID)

	limited, err := locations.List(ctx, models.LocationFilter{DeviceID: device.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestLocationListTimeRange(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	locations := NewLocationRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	device := createDevice(t, devices, org, "aaaa-bbbb")

	base := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	createLocation(t, locations, device, base)
	createLocation(t, locations, device, base.Add(time.Hour))

	start := base.Add(30 * time.Minute)
	end := base.Add(2 * time.Hour)
	records, err := locations.List(ctx, models.LocationFilter{DeviceID: device.ID, StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestLocationLatest(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	locations := NewLocationRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	device := createDevice(t, devices, org, "aaaa-bbbb")

	none, err := locations.Latest(ctx, models.LocationFilter{DeviceID: device.ID})
	require.NoError(t, err)
	require.Nil(t, none)

	base := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	createLocation(t, locations, device, base)
	newest := createLocation(t, locations, device, base.Add(time.Minute))

	latest, err := locations.Latest(ctx, models.LocationFilter{DeviceID: device.ID})
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, newest.UUID, latest.UUID)
}

func TestLocationDeleteAndCount(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	locations := NewLocationRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	device := createDevice(t, devices, org, "aaaa-bbbb")

	base := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	createLocation(t, locations, device, base)
	createLocation(t, locations, device, base.Add(time.Hour))

	start := base.Add(-time.Minute)
	end := base.Add(time.Minute)
	deleted, err := locations.Delete(ctx, models.LocationFilter{DeviceID: device.ID, StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	count, err := locations.Count(ctx, models.LocationFilter{DeviceID: device.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestLocationSurvivingDeviceGroups(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	locations := NewLocationRepository(database)
	ctx := context.Background()

	org := createOrg(t, orgs, "acme")
	alive := createDevice(t, devices, org, "alive")
	createDevice(t, devices, org, "empty")

	createLocation(t, locations, alive, time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC))

	groups, err := locations.SurvivingDeviceGroups(ctx, models.LocationFilter{CompanyID: org.ID})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []int64{alive.ID}, groups[org.ID])
}

func TestLocationStats(t *testing.T) {
	database := newTestDB(t)
	orgs := NewOrgRepository(database)
	devices := NewDeviceRepository(database)
	locations := NewLocationRepository(database)
	ctx := context.Background()

	empty, err := locations.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, empty.Total)

	org := createOrg(t, orgs, "acme")
	device := createDevice(t, devices, org, "aaaa-bbbb")
	base := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	createLocation(t, locations, device, base)
	createLocation(t, locations, device, base.Add(time.Minute))

	stats, err := locations.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Total)
	// The timestamps must come back as real time values on the sqlite
	// driver too, not as their stored text form.
	require.NotNil(t, stats.MinDate)
	require.NotNil(t, stats.MaxDate)
	require.False(t, stats.MinDate.After(*stats.MaxDate))
	require.WithinDuration(t, time.Now().UTC(), *stats.MinDate, time.Minute)
}
