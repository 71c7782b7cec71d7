package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evn/tracker_backendl/internal/middleware"
	"github.com/evn/tracker_backendl/internal/pkg/response"
	locationService "github.com/evn/tracker_backendl/internal/services/location"
)

type ExportHandler struct {
	svc *locationService.Service
}

func NewExportHandler(svc *locationService.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// ExportLocationsHandler writes the filtered location history as an
// XLSX workbook for offline analysis.
func (h *ExportHandler) ExportLocationsHandler(w http.ResponseWriter, r *http.Request) {
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

	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Locations"
	file.SetSheetName(file.GetSheetName(0), sheet)

	headers := []string{"ID", "UUID", "Device", "Latitude", "Longitude", "Recorded At", "Created At"}
	for i, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheet, cell, title)
	}

	for row, loc := range locations {
		values := []interface{}{
			loc["id"],
			loc["uuid"],
			deviceName(loc),
			loc["latitude"],
			loc["longitude"],
			cellTime(loc["recorded_at"]),
			cellTime(loc["created_at"]),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			file.SetCellValue(sheet, cell, value)
		}
	}

	filename := fmt.Sprintf("locations-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := file.Write(w); err != nil {
		log.Printf("locations export failed: %v", err)
	}
}

func deviceName(loc map[string]interface{}) string {
	device, ok := loc["device"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := device["device_id"].(string)
	return name
}

func cellTime(raw interface{}) interface{} {
	switch v := raw.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v != nil {
			return v.Format(time.RFC3339)
		}
	}
	return ""
}
