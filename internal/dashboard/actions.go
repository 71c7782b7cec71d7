package dashboard

import (
	"reflect"
	"time"
)

// Action is a state transition. The set of actions is closed: apply is
// unexported, so every transition lives in this package.
type Action interface {
	apply(*State) *State
}

type SetOrgTokens struct{ OrgTokens []OrgToken }

func (a SetOrgTokens) apply(s *State) *State {
	next := s.clone()
	next.OrgTokens = a.OrgTokens
	return next
}

type SetDevices struct{ Devices []Device }

func (a SetDevices) apply(s *State) *State {
	next := s.clone()
	next.Devices = a.Devices
	return next
}

// SetLocations replaces the loaded list. When the new list has the same
// first and last entries as the current one, the state is returned
// untouched so map consumers skip a redraw on every poll tick.
type SetLocations struct{ Locations []Location }

func (a SetLocations) apply(s *State) *State {
	if sameEndpoints(s.Locations, a.Locations) {
		return s
	}
	next := s.clone()
	next.Locations = a.Locations
	return next
}

func sameEndpoints(current, incoming []Location) bool {
	return reflect.DeepEqual(endpoints(current), endpoints(incoming))
}

func endpoints(list []Location) [2]*Location {
	if len(list) == 0 {
		return [2]*Location{}
	}
	return [2]*Location{&list[0], &list[len(list)-1]}
}

// AutoselectOrInvalidateSelectedOrgToken repairs the org selection after
// the org list changes. An empty list falls back to org id "1".
type AutoselectOrInvalidateSelectedOrgToken struct{}

func (AutoselectOrInvalidateSelectedOrgToken) apply(s *State) *State {
	if len(s.OrgTokens) == 0 {
		if s.CompanyID == "1" {
			return s
		}
		next := s.clone()
		next.CompanyID = "1"
		return next
	}
	if len(s.OrgTokens) == 1 {
		if s.CompanyID == s.OrgTokens[0].ID {
			return s
		}
		next := s.clone()
		next.CompanyID = s.OrgTokens[0].ID
		return next
	}
	for _, t := range s.OrgTokens {
		if t.ID == s.CompanyID {
			return s
		}
	}
	next := s.clone()
	next.CompanyID = s.OrgTokens[0].ID
	return next
}

// AutoselectOrInvalidateSelectedDevice repairs the device selection after
// the device list changes.
type AutoselectOrInvalidateSelectedDevice struct{}

func (AutoselectOrInvalidateSelectedDevice) apply(s *State) *State {
	if len(s.Devices) == 0 {
		if s.DeviceID == "" {
			return s
		}
		next := s.clone()
		next.DeviceID = ""
		return next
	}
	if len(s.Devices) == 1 {
		if s.DeviceID == s.Devices[0].ID {
			return s
		}
		next := s.clone()
		next.DeviceID = s.Devices[0].ID
		return next
	}
	for _, d := range s.Devices {
		if d.ID == s.DeviceID {
			return s
		}
	}
	next := s.clone()
	next.DeviceID = s.Devices[0].ID
	return next
}

// InvalidateSelectedLocation drops a selection that no longer resolves.
// In watch mode the selection tracks the live fix instead.
type InvalidateSelectedLocation struct{}

func (InvalidateSelectedLocation) apply(s *State) *State {
	if s.SelectedLocationID == "" {
		return s
	}
	if s.IsWatching {
		uuid := ""
		if s.CurrentLocation != nil {
			uuid = s.CurrentLocation.UUID
		}
		if s.SelectedLocationID == uuid {
			return s
		}
		next := s.clone()
		next.SelectedLocationID = uuid
		return next
	}
	for _, l := range s.Locations {
		if l.UUID == s.SelectedLocationID {
			return s
		}
	}
	next := s.clone()
	next.SelectedLocationID = ""
	return next
}

type SetIsLoading struct{ Status bool }

func (a SetIsLoading) apply(s *State) *State {
	next := s.clone()
	next.IsLoading = a.Status
	return next
}

type SetHasData struct{ Status bool }

func (a SetHasData) apply(s *State) *State {
	next := s.clone()
	next.HasData = a.Status
	return next
}

type SetActiveTab struct{ Tab string }

func (a SetActiveTab) apply(s *State) *State {
	next := s.clone()
	next.ActiveTab = a.Tab
	return next
}

type SetOrgToken struct{ Value string }

func (a SetOrgToken) apply(s *State) *State {
	next := s.clone()
	next.OrgToken = a.Value
	return next
}

type SetCompanyID struct{ Value string }

func (a SetCompanyID) apply(s *State) *State {
	next := s.clone()
	next.CompanyID = a.Value
	return next
}

type SetOrgTokenFromSearch struct{ Value string }

func (a SetOrgTokenFromSearch) apply(s *State) *State {
	next := s.clone()
	next.OrgTokenFromSearch = a.Value
	return next
}

type SetCurrentLocation struct{ Location *Location }

func (a SetCurrentLocation) apply(s *State) *State {
	next := s.clone()
	next.CurrentLocation = a.Location
	return next
}

type SetDeviceID struct{ Value string }

func (a SetDeviceID) apply(s *State) *State {
	next := s.clone()
	next.DeviceID = a.Value
	return next
}

type SetStartDate struct{ Value time.Time }

func (a SetStartDate) apply(s *State) *State {
	next := s.clone()
	next.StartDate = a.Value
	return next
}

type SetEndDate struct{ Value time.Time }

func (a SetEndDate) apply(s *State) *State {
	next := s.clone()
	next.EndDate = a.Value
	return next
}

type SetIsWatching struct{ Value bool }

func (a SetIsWatching) apply(s *State) *State {
	next := s.clone()
	next.IsWatching = a.Value
	return next
}

type SetShowMarkers struct{ Value bool }

func (a SetShowMarkers) apply(s *State) *State {
	next := s.clone()
	next.ShowMarkers = a.Value
	return next
}

type SetShowPolyline struct{ Value bool }

func (a SetShowPolyline) apply(s *State) *State {
	next := s.clone()
	next.ShowPolyline = a.Value
	return next
}

type SetShowGeofenceHits struct{ Value bool }

func (a SetShowGeofenceHits) apply(s *State) *State {
	next := s.clone()
	next.ShowGeofenceHits = a.Value
	return next
}

type SetEnableClustering struct{ Value bool }

func (a SetEnableClustering) apply(s *State) *State {
	next := s.clone()
	next.EnableClustering = a.Value
	return next
}

type SetMaxMarkers struct{ Value int }

func (a SetMaxMarkers) apply(s *State) *State {
	next := s.clone()
	next.MaxMarkers = a.Value
	return next
}

type SetSelectedLocation struct{ LocationID string }

func (a SetSelectedLocation) apply(s *State) *State {
	next := s.clone()
	next.SelectedLocationID = a.LocationID
	return next
}

type AddTestMarker struct{ Marker interface{} }

func (a AddTestMarker) apply(s *State) *State {
	next := s.clone()
	next.TestMarkers = append(append([]interface{}{}, s.TestMarkers...), a.Marker)
	return next
}

// Settings is a persisted subset of the state. Nil fields are left alone
// on merge.
type Settings struct {
	ActiveTab        *string
	StartDate        *time.Time
	EndDate          *time.Time
	DeviceID         *string
	CompanyID        *string
	IsWatching       *bool
	ShowMarkers      *bool
	ShowPolyline     *bool
	ShowGeofenceHits *bool
	EnableClustering *bool
	MaxMarkers       *int
}

// ApplyExistingSettings overlays saved settings onto the current state.
type ApplyExistingSettings struct{ Settings Settings }

func (a ApplyExistingSettings) apply(s *State) *State {
	next := s.clone()
	set := a.Settings
	if set.ActiveTab != nil {
		next.ActiveTab = *set.ActiveTab
	}
	if set.StartDate != nil {
		next.StartDate = *set.StartDate
	}
	if set.EndDate != nil {
		next.EndDate = *set.EndDate
	}
	if set.DeviceID != nil {
		next.DeviceID = *set.DeviceID
	}
	if set.CompanyID != nil {
		next.CompanyID = *set.CompanyID
	}
	if set.IsWatching != nil {
		next.IsWatching = *set.IsWatching
	}
	if set.ShowMarkers != nil {
		next.ShowMarkers = *set.ShowMarkers
	}
	if set.ShowPolyline != nil {
		next.ShowPolyline = *set.ShowPolyline
	}
	if set.ShowGeofenceHits != nil {
		next.ShowGeofenceHits = *set.ShowGeofenceHits
	}
	if set.EnableClustering != nil {
		next.EnableClustering = *set.EnableClustering
	}
	if set.MaxMarkers != nil {
		next.MaxMarkers = *set.MaxMarkers
	}
	return next
}
