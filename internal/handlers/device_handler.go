package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evn/tracker_backendl/config"
	"github.com/evn/tracker_backendl/internal/middleware"
	"github.com/evn/tracker_backendl/internal/models"
	"github.com/evn/tracker_backendl/internal/pkg/response"
	"github.com/evn/tracker_backendl/internal/repositories"
	"github.com/evn/tracker_backendl/internal/services/registry"
)

type DeviceHandler struct {
	cfg      *config.Config
	registry *registry.Registry
	orgs     *repositories.OrgRepository
}

func NewDeviceHandler(cfg *config.Config, reg *registry.Registry, orgs *repositories.OrgRepository) *DeviceHandler {
	return &DeviceHandler{cfg: cfg, registry: reg, orgs: orgs}
}

// ListCompanyTokensHandler lists orgs as {id, company_token} pairs.
func (h *DeviceHandler) ListCompanyTokensHandler(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	out := make([]map[string]interface{}, len(orgs))
	for i, org := range orgs {
		out[i] = map[string]interface{}{"id": org.ID, "company_token": org.Token}
	}
	response.RespondWithJSON(w, http.StatusOK, out)
}

// DeviceAPIListHandler lists devices for the calling device's org.
func (h *DeviceHandler) DeviceAPIListHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.DeviceClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := models.DeviceFilter{}
	if h.cfg.FilterByOrg {
		device, err := h.registry.GetDevice(r.Context(), claims.DeviceID)
		if err != nil {
			response.RespondWithAppError(w, err)
			return
		}
		if device != nil {
			filter.CompanyID = device.CompanyID
		}
	}

	devices, err := h.registry.GetDevices(r.Context(), filter)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	response.RespondWithJSON(w, http.StatusOK, devices)
}

// SiteListHandler lists devices for the dashboard. Admin sessions may
// pick any org via company_id; org sessions are pinned to their own.
func (h *DeviceHandler) SiteListHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.OrgClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := models.DeviceFilter{CompanyID: claims.CompanyID}
	if claims.Admin {
		filter.CompanyID = parseInt64(r.URL.Query().Get("company_id"))
	}

	devices, err := h.registry.GetDevices(r.Context(), filter)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	response.RespondWithJSON(w, http.StatusOK, devices)
}

// DeleteDeviceHandler removes a device's locations (optionally bounded
// by a date range) and prunes the device when nothing remains.
func (h *DeviceHandler) DeleteDeviceHandler(w http.ResponseWriter, r *http.Request) {
	id := parseInt64(chi.URLParam(r, "id"))
	query := r.URL.Query()
	startDate := parseTime(query.Get("start_date"))
	endDate := parseTime(query.Get("end_date"))

	log.Printf("devices:delete device:id:%d start:%v end:%v", id, startDate, endDate)

	if err := h.registry.DeleteDevice(r.Context(), id, startDate, endDate); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
