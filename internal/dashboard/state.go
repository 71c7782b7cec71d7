package dashboard

import "time"

// OrgToken is an org as the selector widget shows it.
type OrgToken struct {
	ID   string
	Name string
}

// Device is a device as the selector widget shows it.
type Device struct {
	ID   string
	Name string
}

// Location is one loaded fix, identified by its sample uuid.
type Location struct {
	UUID       string
	DeviceID   int64
	CompanyID  int64
	Latitude   float64
	Longitude  float64
	RecordedAt string
}

// State is the dashboard's mirror of loaded data plus UI toggles. It is
// rebuilt wholesale on each load, never merged incrementally.
//
// Invariant: SelectedLocationID refers to a location present in
// Locations, or is empty; InvalidateSelectedLocation restores it after
// every list update.
type State struct {
	ActiveTab          string
	OrgToken           string
	CompanyID          string
	OrgTokenFromSearch string
	OrgTokens          []OrgToken
	CurrentLocation    *Location
	DeviceID           string
	Devices            []Device
	EnableClustering   bool
	EndDate            time.Time
	HasData            bool
	IsLoading          bool
	IsWatching         bool
	Locations          []Location
	MaxMarkers         int
	SelectedLocationID string
	ShowGeofenceHits   bool
	ShowMarkers        bool
	ShowPolyline       bool
	StartDate          time.Time
	TestMarkers        []interface{}
}

// NewState returns the initial dashboard state: today's date range,
// everything visible, nothing selected.
func NewState() *State {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, now.Location())
	return &State{
		ActiveTab:        "map",
		EnableClustering: true,
		EndDate:          end,
		MaxMarkers:       1000,
		ShowGeofenceHits: true,
		ShowMarkers:      true,
		ShowPolyline:     true,
		StartDate:        start,
	}
}

// clone is a shallow copy; handlers mutate the copy and return it.
func (s *State) clone() *State {
	next := *s
	return &next
}
