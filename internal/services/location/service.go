package location

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evn/tracker_backendl/internal/models"
	"github.com/evn/tracker_backendl/internal/pkg/apperrors"
	"github.com/evn/tracker_backendl/internal/repositories"
	"github.com/evn/tracker_backendl/internal/services/access"
	"github.com/evn/tracker_backendl/internal/services/live"
	"github.com/evn/tracker_backendl/internal/services/registry"
)

const lastLocationTTL = 5 * time.Minute

// Service is the location ingestion/query/delete layer. Redis and the
// live hub are optional; when absent the related side effects are
// skipped.
type Service struct {
	locations *repositories.LocationRepository
	devices   *repositories.DeviceRepository
	registry  *registry.Registry
	policy    *access.Policy
	redis     *redis.Client
	hub       *live.Hub
}

func NewService(
	locations *repositories.LocationRepository,
	devices *repositories.DeviceRepository,
	reg *registry.Registry,
	policy *access.Policy,
	redisClient *redis.Client,
	hub *live.Hub,
) *Service {
	return &Service{
		locations: locations,
		devices:   devices,
		registry:  reg,
		policy:    policy,
		redis:     redisClient,
		hub:       hub,
	}
}

// Create ingests one or more location envelopes. Samples are processed
// strictly in order, one insert per sample, and the first failure
// aborts the rest. Rows already inserted stay: each insert is an
// independent commit, there is no batch rollback.
func (s *Service) Create(ctx context.Context, envelopes []models.IngestEnvelope, device *models.Device) error {
	for i := range envelopes {
		if err := s.createOne(ctx, &envelopes[i], device); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) createOne(ctx context.Context, env *models.IngestEnvelope, device *models.Device) error {
	orgToken := env.CompanyToken
	if device != nil {
		orgToken = device.CompanyToken
	}
	if orgToken == "" {
		if device == nil {
			return &apperrors.RegistrationRequiredError{Msg: "company_token is required"}
		}
		orgToken = "UNKNOWN"
	}

	if s.policy.IsDeniedCompany(orgToken) {
		return &apperrors.AccessDeniedError{Msg: "Org " + orgToken + " is denied service"}
	}

	info := models.DeviceInfo{UUID: "UNKNOWN", Model: "UNKNOWN"}
	if env.Device != nil {
		info = *env.Device
	}

	samples, err := env.Samples()
	if err != nil {
		return err
	}

	for _, raw := range samples {
		if s.policy.IsDeniedDevice(info.Model) {
			return &apperrors.AccessDeniedError{Msg: "Device model " + info.Model + " is denied service"}
		}

		currentDevice := device
		if currentDevice == nil {
			currentDevice, err = s.registry.FindOrCreateDevice(ctx, orgToken, info)
			if err != nil {
				return err
			}
		}

		sample, err := models.ParseSample(raw)
		if err != nil {
			return err
		}
		if sample.UUID == "" {
			sample.UUID = uuid.NewString()
		}

		now := time.Now().UTC()
		s.registry.TouchActivity(ctx, currentDevice, now)

		loc := &models.Location{
			UUID:       sample.UUID,
			CompanyID:  currentDevice.CompanyID,
			DeviceID:   currentDevice.ID,
			Latitude:   sample.Coords.Latitude,
			Longitude:  sample.Coords.Longitude,
			Data:       raw,
			RecordedAt: sample.Timestamp,
			CreatedAt:  now,
		}
		if err := s.locations.Insert(ctx, loc); err != nil {
			return err
		}
		log.Printf("location:create org:%s org:id:%d device:id:%d", orgToken, currentDevice.CompanyID, currentDevice.ID)

		s.cacheLast(ctx, currentDevice, loc)
		if s.hub != nil {
			rec := models.LocationRecord{Location: *loc, DeviceUUID: currentDevice.DeviceID, DeviceModel: currentDevice.Model}
			s.hub.BroadcastLocation(orgToken, rec.Hydrate())
		}
	}
	return nil
}

// GetLocations returns at most filter.Limit hydrated records (default
// 1000), most recent fix first.
func (s *Service) GetLocations(ctx context.Context, filter models.LocationFilter) ([]map[string]interface{}, error) {
	records, err := s.locations.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(records))
	for i := range records {
		out[i] = records[i].Hydrate()
	}
	return out, nil
}

// GetLatestLocation returns the most recent record or nil, never an
// error for an empty device.
func (s *Service) GetLatestLocation(ctx context.Context, filter models.LocationFilter) (map[string]interface{}, error) {
	rec, err := s.locations.Latest(ctx, filter)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Hydrate(), nil
}

// DeleteLocations removes matching rows, then applies the cascade
// rules: a device left with zero locations is pruned, and a
// company-wide delete sweeps every device of that company not among
// those that still hold locations. An empty filter is refused before
// storage is touched.
func (s *Service) DeleteLocations(ctx context.Context, filter models.LocationFilter) error {
	if filter.Empty() {
		return apperrors.ErrMissingFilter
	}

	if _, err := s.locations.Delete(ctx, filter); err != nil {
		return err
	}

	// Cascade checks ignore the time range: only the scope columns decide
	// whether a device survived.
	verify := models.LocationFilter{DeviceID: filter.DeviceID, CompanyID: filter.CompanyID}

	switch {
	case filter.DeviceID != 0:
		count, err := s.locations.Count(ctx, verify)
		if err != nil {
			return err
		}
		if count == 0 {
			return s.devices.Delete(ctx, filter.DeviceID)
		}
	case filter.CompanyID != 0:
		groups, err := s.locations.SurvivingDeviceGroups(ctx, verify)
		if err != nil {
			return err
		}
		// One delete per company grouping that still has locations. A
		// company whose every location just went away is not swept.
		for companyID, keep := range groups {
			if err := s.devices.DeleteOrphans(ctx, companyID, keep); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetStats returns the unscoped global aggregate.
func (s *Service) GetStats(ctx context.Context) (*models.Stats, error) {
	return s.locations.Stats(ctx)
}

func (s *Service) cacheLast(ctx context.Context, device *models.Device, loc *models.Location) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(map[string]interface{}{
		"lat":         loc.Latitude,
		"lon":         loc.Longitude,
		"recorded_at": loc.RecordedAt,
	})
	key := "last:" + device.DeviceID
	if err := s.redis.Set(ctx, key, data, lastLocationTTL).Err(); err != nil {
		log.Printf("redis set %s failed: %v", key, err)
		return
	}
	if err := s.redis.SAdd(ctx, "active_devices", device.DeviceID).Err(); err != nil {
		log.Printf("redis SAdd warning: %v", err)
	}
	if err := s.redis.Expire(ctx, "active_devices", lastLocationTTL).Err(); err != nil {
		log.Printf("redis Expire warning: %v", err)
	}
}
