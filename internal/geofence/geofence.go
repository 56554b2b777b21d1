// Package geofence implements the point-in-polygon test used to decide whether the
// payload has left its permitted flight area.
package geofence

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewPoints is returned when a boundary cannot enclose an area.
var ErrTooFewPoints = errors.New("geofence: boundary needs at least 3 points")

// Point is a boundary vertex in decimal degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Boundary is an ordered, implicitly closed polygon. The last vertex connects back to
// the first. A Boundary must not be modified while a Fence is using it.
type Boundary []Point

// Validate checks that the boundary has enough vertices and finite coordinates.
func (b Boundary) Validate() error {
	if len(b) < 3 {
		return ErrTooFewPoints
	}
	for i, p := range b {
		if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
			return fmt.Errorf("geofence: vertex %d is not a finite coordinate", i)
		}
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("geofence: vertex %d (%f, %f) out of range", i, p.Lon, p.Lat)
		}
	}
	return nil
}

// IsInside reports whether (lon, lat) lies inside boundary using the even-odd rule.
// The exact position (0, 0) means "no fix" and is answered by policy without
// looking at the boundary.
func IsInside(lon, lat float64, boundary Boundary, policy NoFixPolicy) bool {
	if lon == 0 && lat == 0 {
		return policy.inside()
	}
	inside := false
	n := len(boundary)
	for i := 0; i < n; i++ {
		if crosses(lon, lat, boundary[i], boundary[(i+1)%n]) {
			inside = !inside
		}
	}
	return inside
}

// crosses reports whether a ray cast east from (lon, lat) crosses the edge a-b.
func crosses(lon, lat float64, a, b Point) bool {
	if lat < math.Min(a.Lat, b.Lat) || lat > math.Max(a.Lat, b.Lat) {
		return false
	}
	// On an endpoint latitude only the edge heading below the point counts,
	// so a vertex shared by two edges is seen once.
	if lat == a.Lat && lon < a.Lon {
		return b.Lat < lat
	}
	if lat == b.Lat && lon < b.Lon {
		return a.Lat < lat
	}
	if lon > math.Max(a.Lon, b.Lon) {
		return false
	}
	if lon < math.Min(a.Lon, b.Lon) {
		return true
	}
	if a.Lon == b.Lon {
		return lon <= a.Lon
	}
	if a.Lat == b.Lat {
		return false
	}
	hit := a.Lon + (lat-a.Lat)*(b.Lon-a.Lon)/(b.Lat-a.Lat)
	return lon <= hit
}

// Fence couples an immutable boundary with the answer to give when there is no fix.
type Fence struct {
	Boundary Boundary
	NoFix    NoFixPolicy
}

// NewFence validates boundary and returns a Fence using policy.
func NewFence(boundary Boundary, policy NoFixPolicy) (*Fence, error) {
	if err := boundary.Validate(); err != nil {
		return nil, err
	}
	return &Fence{Boundary: boundary, NoFix: policy}, nil
}

// Contains reports whether the position is inside the fence.
func (f *Fence) Contains(lon, lat float64) bool {
	return IsInside(lon, lat, f.Boundary, f.NoFix)
}
