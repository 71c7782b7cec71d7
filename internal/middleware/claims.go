package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	deviceClaimsKey contextKey = "device_claims"
	orgClaimsKey    contextKey = "org_claims"
)

// DeviceClaims is what a device-scoped JWT carries.
type DeviceClaims struct {
	Org      string
	DeviceID int64
	Model    string
}

// OrgClaims is what a site-session JWT carries.
type OrgClaims struct {
	Org       string
	CompanyID int64
	Admin     bool
}

// DeviceClaimsFromContext returns the device claims put there by
// AddDeviceClaims, if any.
func DeviceClaimsFromContext(ctx context.Context) (*DeviceClaims, bool) {
	claims, ok := ctx.Value(deviceClaimsKey).(*DeviceClaims)
	return claims, ok
}

// OrgClaimsFromContext returns the org claims put there by
// AddOrgClaims, if any.
func OrgClaimsFromContext(ctx context.Context) (*OrgClaims, bool) {
	claims, ok := ctx.Value(orgClaimsKey).(*OrgClaims)
	return claims, ok
}

// AddDeviceClaims extracts org/deviceId/model from the verified JWT and
// puts them in the request context. Requests without a token pass
// through untouched.
func AddDeviceClaims() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, _ := jwtauth.FromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			device := &DeviceClaims{}
			if org, ok := claims["org"].(string); ok {
				device.Org = org
			}
			if model, ok := claims["model"].(string); ok {
				device.Model = model
			}
			device.DeviceID = toInt64(claims["deviceId"])

			if device.Org != "" || device.DeviceID != 0 {
				ctx := context.WithValue(r.Context(), deviceClaimsKey, device)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AddOrgClaims extracts org/companyId/admin from the verified JWT and
// puts them in the request context.
func AddOrgClaims() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, _ := jwtauth.FromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			org := &OrgClaims{}
			if name, ok := claims["org"].(string); ok {
				org.Org = name
			}
			if admin, ok := claims["admin"].(bool); ok {
				org.Admin = admin
			}
			org.CompanyID = toInt64(claims["companyId"])

			if org.Org != "" {
				ctx := context.WithValue(r.Context(), orgClaimsKey, org)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func toInt64(raw interface{}) int64 {
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}
