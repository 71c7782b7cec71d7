package registry

import (
	"context"
	"log"
	"time"

	"github.com/evn/tracker_backendl/internal/models"
	"github.com/evn/tracker_backendl/internal/pkg/apperrors"
	"github.com/evn/tracker_backendl/internal/repositories"
	"github.com/evn/tracker_backendl/internal/services/access"
)

const unknown = "UNKNOWN"

// Registry resolves org tokens and device identifiers to persisted
// rows, creating them on first sight.
type Registry struct {
	orgs      *repositories.OrgRepository
	devices   *repositories.DeviceRepository
	locations *repositories.LocationRepository
	policy    *access.Policy
}

func New(
	orgs *repositories.OrgRepository,
	devices *repositories.DeviceRepository,
	locations *repositories.LocationRepository,
	policy *access.Policy,
) *Registry {
	return &Registry{
		orgs:      orgs,
		devices:   devices,
		locations: locations,
		policy:    policy,
	}
}

// FindOrCreateOrg returns the org for the token, inserting it on first
// registration.
func (r *Registry) FindOrCreateOrg(ctx context.Context, token string) (*models.Org, error) {
	if token == "" {
		token = unknown
	}
	return r.orgs.FindOrCreate(ctx, token)
}

// FindOrCreateDevice resolves the org, then finds or creates the device
// scoped to (company_id, device_id). Deny-lists are checked before any
// lookup so a refused caller causes no writes at all.
func (r *Registry) FindOrCreateDevice(ctx context.Context, orgToken string, info models.DeviceInfo) (*models.Device, error) {
	if orgToken == "" {
		orgToken = unknown
	}
	if info.UUID == "" {
		info.UUID = unknown
	}
	if info.Model == "" {
		info.Model = unknown
	}

	if err := r.checkAccess(orgToken, info.Model); err != nil {
		return nil, err
	}

	org, err := r.orgs.FindOrCreate(ctx, orgToken)
	if err != nil {
		return nil, err
	}

	device, err := r.devices.FindByCompanyAndUUID(ctx, org.ID, info.UUID)
	if err != nil || device != nil {
		return device, err
	}

	now := time.Now().UTC()
	device = &models.Device{
		CompanyID:    org.ID,
		CompanyToken: orgToken,
		DeviceID:     info.UUID,
		Model:        info.Model,
		Framework:    info.Framework,
		Version:      info.Version,
		CreatedAt:    now,
		UpdatedAt:    &now,
	}
	if err := r.devices.Create(ctx, device); err != nil {
		return nil, err
	}
	log.Printf("device:create org:%s device:%s model:%s", orgToken, info.UUID, info.Model)
	return device, nil
}

// GetDevice returns the device row, or nil when absent.
func (r *Registry) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	return r.devices.GetByID(ctx, id)
}

// GetDevices lists devices, most recently active first.
func (r *Registry) GetDevices(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	return r.devices.List(ctx, filter)
}

// DeleteDevice removes the device's locations, optionally bounded by a
// date range. When no locations remain afterwards the device row is
// pruned too; a partial range that leaves rows keeps it.
func (r *Registry) DeleteDevice(ctx context.Context, id int64, startDate, endDate *time.Time) error {
	filter := models.LocationFilter{DeviceID: id}
	if startDate != nil && endDate != nil {
		filter.StartDate = startDate
		filter.EndDate = endDate
	}
	if _, err := r.locations.Delete(ctx, filter); err != nil {
		return err
	}

	remaining, err := r.locations.Count(ctx, models.LocationFilter{DeviceID: id})
	if err != nil {
		return err
	}
	if remaining == 0 {
		return r.devices.Delete(ctx, id)
	}
	return nil
}

// TouchActivity bumps updated_at on both the device and its org, the
// observable side effect of every accepted location.
func (r *Registry) TouchActivity(ctx context.Context, device *models.Device, at time.Time) {
	if err := r.orgs.Touch(ctx, device.CompanyID, at); err != nil {
		log.Printf("org touch failed: %v", err)
	}
	if err := r.devices.Touch(ctx, device.ID, at); err != nil {
		log.Printf("device touch failed: %v", err)
	}
}

func (r *Registry) checkAccess(orgToken, model string) error {
	if r.policy.IsDeniedCompany(orgToken) {
		return &apperrors.AccessDeniedError{Msg: "Org " + orgToken + " is denied service"}
	}
	if r.policy.IsDeniedDevice(model) {
		return &apperrors.AccessDeniedError{Msg: "Device model " + model + " is denied service"}
	}
	return nil
}
