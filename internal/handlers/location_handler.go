package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evn/tracker_backendl/config"
	"github.com/evn/tracker_backendl/internal/middleware"
	"github.com/evn/tracker_backendl/internal/models"
	"github.com/evn/tracker_backendl/internal/pkg/apperrors"
	"github.com/evn/tracker_backendl/internal/pkg/response"
	"github.com/evn/tracker_backendl/internal/services/access"
	locationService "github.com/evn/tracker_backendl/internal/services/location"
	"github.com/evn/tracker_backendl/internal/services/registry"
)

type LocationHandler struct {
	cfg      *config.Config
	svc      *locationService.Service
	registry *registry.Registry
	policy   *access.Policy
}

func NewLocationHandler(cfg *config.Config, svc *locationService.Service, reg *registry.Registry, policy *access.Policy) *LocationHandler {
	return &LocationHandler{cfg: cfg, svc: svc, registry: reg, policy: policy}
}

// DeviceAPIGetHandler queries location history for the calling device.
func (h *LocationHandler) DeviceAPIGetHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.DeviceClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := queryFilter(r)
	filter.DeviceID = claims.DeviceID
	if h.cfg.FilterByOrg {
		if device, err := h.registry.GetDevice(r.Context(), claims.DeviceID); err == nil && device != nil {
			filter.CompanyID = device.CompanyID
		}
	}

	log.Printf("locations:get org:%s device:id:%d", claims.Org, claims.DeviceID)

	locations, err := h.svc.GetLocations(r.Context(), filter)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if locations == nil {
		locations = []map[string]interface{}{}
	}
	response.RespondWithJSON(w, http.StatusOK, locations)
}

// SiteGetHandler queries location history for the dashboard.
func (h *LocationHandler) SiteGetHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.OrgClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := queryFilter(r)
	if !claims.Admin {
		filter.CompanyID = claims.CompanyID
	}

	locations, err := h.svc.GetLocations(r.Context(), filter)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if locations == nil {
		locations = []map[string]interface{}{}
	}
	response.RespondWithJSON(w, http.StatusOK, locations)
}

// DeviceAPILatestHandler returns the most recent fix for the calling
// device, or a JSON null when it has none.
func (h *LocationHandler) DeviceAPILatestHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.DeviceClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := models.LocationFilter{DeviceID: claims.DeviceID}
	if h.cfg.FilterByOrg {
		if device, err := h.registry.GetDevice(r.Context(), claims.DeviceID); err == nil && device != nil {
			filter.CompanyID = device.CompanyID
		}
	}

	latest, err := h.svc.GetLatestLocation(r.Context(), filter)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, latest)
}

// SiteLatestHandler is the dashboard variant of the latest-fix query.
func (h *LocationHandler) SiteLatestHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.OrgClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := models.LocationFilter{DeviceID: parseInt64(r.URL.Query().Get("device_id"))}
	if claims.Admin {
		filter.CompanyID = parseInt64(r.URL.Query().Get("company_id"))
	} else {
		filter.CompanyID = claims.CompanyID
	}

	latest, err := h.svc.GetLatestLocation(r.Context(), filter)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, latest)
}

// DeviceAPIPostHandler ingests samples posted with a device JWT. A JWT
// for a device deleted from the dashboard gets 410 plus a stop hint so
// the mobile SDK gives up.
func (h *LocationHandler) DeviceAPIPostHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.DeviceClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	device, err := h.registry.GetDevice(r.Context(), claims.DeviceID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if device == nil {
		log.Printf("locations:post device:id:%d not found", claims.DeviceID)
		response.RespondWithJSON(w, http.StatusGone, map[string]interface{}{
			"error":                  "DEVICE_ID_NOT_FOUND",
			"background_geolocation": []string{"stop"},
		})
		return
	}

	if h.policy.IsDDoSCompany(device.CompanyToken) {
		TarPit(w)
		return
	}

	envelopes, err := decodeEnvelopes(r.Body)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.svc.Create(r.Context(), envelopes, device); err != nil {
		h.respondIngestError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SitePostHandler ingests samples posted with an org token in the body
// or, on the /locations/{company_token} form, in the URL.
func (h *LocationHandler) SitePostHandler(w http.ResponseWriter, r *http.Request) {
	envelopes, err := decodeEnvelopes(r.Body)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if urlToken := chi.URLParam(r, "company_token"); urlToken != "" {
		for i := range envelopes {
			envelopes[i].CompanyToken = urlToken
		}
	}

	for i := range envelopes {
		if h.policy.IsDDoSCompany(envelopes[i].CompanyToken) {
			TarPit(w)
			return
		}
	}

	if err := h.svc.Create(r.Context(), envelopes, nil); err != nil {
		h.respondIngestError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeviceAPIDeleteHandler bulk-deletes the calling device's locations.
func (h *LocationHandler) DeviceAPIDeleteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.DeviceClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := queryFilter(r)
	filter.DeviceID = claims.DeviceID
	if h.cfg.FilterByOrg {
		if device, err := h.registry.GetDevice(r.Context(), claims.DeviceID); err == nil && device != nil {
			filter.CompanyID = device.CompanyID
		}
	}

	log.Printf("locations:delete org:%s device:id:%d", claims.Org, claims.DeviceID)

	if err := h.svc.DeleteLocations(r.Context(), filter); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SiteDeleteHandler bulk-deletes by device_id or company_id filter.
func (h *LocationHandler) SiteDeleteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.OrgClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	filter := queryFilter(r)
	if !claims.Admin {
		filter.CompanyID = claims.CompanyID
	} else if filter.CompanyID == 0 {
		filter.CompanyID = parseInt64(r.URL.Query().Get("company_id"))
	}

	if err := h.svc.DeleteLocations(r.Context(), filter); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatsHandler serves the global aggregate.
func (h *LocationHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, stats)
}

func queryFilter(r *http.Request) models.LocationFilter {
	query := r.URL.Query()
	return models.LocationFilter{
		DeviceID:  parseInt64(query.Get("device_id")),
		CompanyID: parseInt64(query.Get("company_id")),
		StartDate: parseTime(query.Get("start_date")),
		EndDate:   parseTime(query.Get("end_date")),
		Limit:     int(parseInt64(query.Get("limit"))),
	}
}

func (h *LocationHandler) respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsAccessDenied(err):
		response.RespondWithError(w, http.StatusForbidden, err.Error())
	case apperrors.IsRegistrationRequired(err):
		response.RespondWithError(w, http.StatusNotAcceptable, err.Error())
	case errors.Is(err, apperrors.ErrDeviceNotFound):
		response.RespondWithError(w, http.StatusGone, err.Error())
	default:
		log.Printf("locations:post failed: %v", err)
		response.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
