package sim

import (
	"fmt"
	"strings"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"
)

// Site is a launch site on a celestial body. Coordinates are geographic
// degrees, elevation is meters above sea level. An AtmosphereDepth of zero
// marks the body as airless.
type Site struct {
	Name            string  `json:"name"`
	Body            string  `json:"body"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Elevation       float64 `json:"elevation"`
	AtmosphereDepth float64 `json:"atmosphereDepth"`
}

// builtinSites are the launch sites the host knows out of the box.
var builtinSites = []Site{
	{Name: "KSC Launch Pad", Body: "Kerbin", Latitude: -0.0972, Longitude: -74.5577, Elevation: 69, AtmosphereDepth: 70000},
	{Name: "Woomerang Launch Site", Body: "Kerbin", Latitude: 45.29, Longitude: 136.11, Elevation: 740, AtmosphereDepth: 70000},
	{Name: "Dessert Launch Site", Body: "Kerbin", Latitude: -6.56, Longitude: -144.04, Elevation: 820, AtmosphereDepth: 70000},
	{Name: "Mun Flats", Body: "Mun", Latitude: 0.42, Longitude: 22.15, Elevation: 350, AtmosphereDepth: 0},
}

// SiteByName resolves a configured site name. Shorthand names match by
// prefix, so "KSC" finds "KSC Launch Pad".
func SiteByName(name string) (Site, error) {
	for _, s := range builtinSites {
		if s.Name == name {
			return s, nil
		}
	}
	for _, s := range builtinSites {
		if strings.HasPrefix(s.Name, name) {
			return s, nil
		}
	}
	return Site{}, fmt.Errorf("unknown launch site %q", name)
}

// SiteNames returns the known launch site names in declaration order.
func SiteNames() []string {
	names := make([]string, len(builtinSites))
	for i, s := range builtinSites {
		names[i] = s.Name
	}
	return names
}

// BodySpec returns the failure engine's view of the site's celestial body.
func (s Site) BodySpec() failure.Body {
	return failure.Body{
		Name:            s.Body,
		HasAtmosphere:   s.AtmosphereDepth > 0,
		AtmosphereDepth: s.AtmosphereDepth,
	}
}
