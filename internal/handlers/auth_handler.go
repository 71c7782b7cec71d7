package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/evn/tracker_backendl/config"
	"github.com/evn/tracker_backendl/internal/middleware"
	"github.com/evn/tracker_backendl/internal/models"
	"github.com/evn/tracker_backendl/internal/pkg/apperrors"
	"github.com/evn/tracker_backendl/internal/pkg/response"
	"github.com/evn/tracker_backendl/internal/repositories"
	authService "github.com/evn/tracker_backendl/internal/services/auth"
	"github.com/evn/tracker_backendl/internal/services/registry"
)

type AuthHandler struct {
	cfg      *config.Config
	registry *registry.Registry
	orgs     *repositories.OrgRepository
	jwt      *authService.JWTService
}

func NewAuthHandler(cfg *config.Config, reg *registry.Registry, orgs *repositories.OrgRepository, jwt *authService.JWTService) *AuthHandler {
	return &AuthHandler{cfg: cfg, registry: reg, orgs: orgs, jwt: jwt}
}

type registerRequest struct {
	Org          string `json:"org"`
	UUID         string `json:"uuid"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Version      string `json:"version"`
	Framework    string `json:"framework"`
}

// RegisterHandler registers a device with its org and returns a device
// token pair. The org is created lazily on first sight.
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	log.Printf("POST /register org:%s uuid:%s model:%s version:%s framework:%s",
		req.Org, req.UUID, req.Model, req.Version, req.Framework)

	if req.Org == "" {
		response.RespondWithError(w, http.StatusInternalServerError, "Organization identifier empty")
		return
	}
	if req.UUID == "" || req.Model == "" || req.Manufacturer == "" || req.Version == "" {
		response.RespondWithError(w, http.StatusInternalServerError, "Device info is missing")
		return
	}

	device, err := h.registry.FindOrCreateDevice(r.Context(), req.Org, models.DeviceInfo{
		UUID:      req.UUID,
		Model:     req.Model,
		Framework: req.Framework,
		Version:   req.Version,
	})
	if err != nil {
		if apperrors.IsAccessDenied(err) {
			response.RespondWithError(w, http.StatusForbidden, err.Error())
			return
		}
		response.RespondWithAppError(w, err)
		return
	}

	pair, err := h.jwt.GenerateDeviceToken(req.Org, device.ID, req.Model)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, pair)
}

// RefreshTokenHandler re-signs the device token pair from the claims of
// the presented token.
func (h *AuthHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.DeviceClaimsFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	log.Printf("auth:refresh org:%s device:id:%d", claims.Org, claims.DeviceID)

	pair, err := h.jwt.GenerateDeviceToken(claims.Org, claims.DeviceID, claims.Model)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, pair)
}

type siteAuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SiteAuthHandler is the admin login for the operator dashboard.
func (h *AuthHandler) SiteAuthHandler(w http.ResponseWriter, r *http.Request) {
	var req siteAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Login == h.cfg.AdminToken && h.checkPassword(req.Password) {
		token, err := h.jwt.GenerateOrgToken(req.Login, 0, true)
		if err != nil {
			response.RespondWithAppError(w, err)
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": token,
			"token_type":   "Bearer",
			"org":          req.Login,
		})
		return
	}

	response.RespondWithJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"org":   req.Login,
		"error": "Await not public account and right password",
	})
}

type siteJWTRequest struct {
	Org string `json:"org"`
}

// SiteJWTHandler exchanges a known org token for a dashboard session
// token scoped to that org.
func (h *AuthHandler) SiteJWTHandler(w http.ResponseWriter, r *http.Request) {
	var req siteJWTRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	org, err := h.orgs.FindByToken(r.Context(), req.Org)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if org == nil {
		response.RespondWithJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"org":   req.Org,
			"error": "Org not found",
		})
		return
	}

	token, err := h.jwt.GenerateOrgToken(req.Org, org.ID, false)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "Bearer",
		"org":          req.Org,
	})
}

func (h *AuthHandler) checkPassword(password string) bool {
	if h.cfg.AdminPasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(password)) == nil
}
