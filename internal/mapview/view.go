// Package mapview keeps the server-side model of a user's map: where it is
// centered, how far it is zoomed and which markers it shows.
package mapview

import (
	"fmt"
	"sync"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/segmentio/ksuid"
)

// MarkerKind distinguishes the user's own marker from business markers.
type MarkerKind string

const (
	MarkerCurrentLocation MarkerKind = "current_location"
	MarkerBusiness        MarkerKind = "business"
)

// Marker is a single pin on the map.
type Marker struct {
	ID          string             `json:"id"`
	Kind        MarkerKind         `json:"kind"`
	Coordinates models.Coordinates `json:"coordinates"`
	Label       string             `json:"label"`
	BusinessID  int                `json:"business_id,omitempty"`
}

// Snapshot is a point-in-time copy of the map.
type Snapshot struct {
	Center  *models.Coordinates `json:"center"`
	Zoom    int                 `json:"zoom"`
	Markers []Marker            `json:"markers"`
}

// View is a concurrency-safe map model. It holds at most one current-location marker.
type View struct {
	mu         sync.Mutex
	center     *models.Coordinates
	zoom       int
	current    *Marker
	businesses []Marker
}

// New returns a map centered on initial at the given zoom level.
func New(initial models.Coordinates, zoom int) *View {
	return &View{center: &initial, zoom: zoom}
}

// Recenter moves the map.
func (v *View) Recenter(c models.Coordinates, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.center = &c
	v.zoom = zoom
}

// SetCurrentLocationMarker places the user's marker, replacing the previous one.
func (v *View) SetCurrentLocationMarker(c models.Coordinates, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = &Marker{
		ID:          ksuid.New().String(),
		Kind:        MarkerCurrentLocation,
		Coordinates: c,
		Label:       label,
	}
}

// ClearCurrentLocationMarker removes the user's marker, if any.
func (v *View) ClearCurrentLocationMarker() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = nil
}

// SetBusinessMarkers replaces every business marker with one per business.
func (v *View) SetBusinessMarkers(businesses []models.Business) {
	markers := make([]Marker, 0, len(businesses))
	for _, b := range businesses {
		label := b.Name
		if b.Distance != nil {
			label = fmt.Sprintf("%s (%.2f km)", b.Name, *b.Distance)
		}
		markers = append(markers, Marker{
			ID:          ksuid.New().String(),
			Kind:        MarkerBusiness,
			Coordinates: b.Coordinates,
			Label:       label,
			BusinessID:  b.ID,
		})
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.businesses = markers
}

// Snapshot returns a copy of the map state. The current-location marker, if any, comes first.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := Snapshot{Zoom: v.zoom, Markers: make([]Marker, 0, len(v.businesses)+1)}
	if v.center != nil {
		center := *v.center
		snap.Center = &center
	}
	if v.current != nil {
		snap.Markers = append(snap.Markers, *v.current)
	}
	snap.Markers = append(snap.Markers, v.businesses...)

	return snap
}

// CurrentLocationMarkers returns how many current-location markers the map shows.
func (v *View) CurrentLocationMarkers() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current == nil {
		return 0
	}
	return 1
}
