package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/geo"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/util"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// ParseFlight parses flight and launch-site data from raw args.
// Returns parsed flight + site. NO DB operations, NO cache resets, NO callbacks.
// Args: [craftName, siteName, tag, seed, captureDelay, engineVersion, configJSON, siteData]
func (p *Parser) ParseFlight(data []string) (core.Flight, core.LaunchSite, error) {
	var flight core.Flight
	var site core.LaunchSite

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 8 {
		return flight, site, fmt.Errorf("insufficient data fields: got %d, need 8", len(data))
	}

	// [0] craftName
	flight.CraftName = data[0]

	// [1] siteName, repeated flat so the worker can key caches without
	// touching the JSON blob
	siteName := data[1]

	// [2] tag
	flight.Tag = data[2]

	// [3] seed
	seed, err := parseIntFromFloat(data[3])
	if err != nil {
		return flight, site, fmt.Errorf("error converting seed to int: %w", err)
	}
	flight.Seed = seed

	// [4] captureDelay
	captureDelay, err := strconv.ParseFloat(data[4], 64)
	if err != nil {
		return flight, site, fmt.Errorf("error converting captureDelay to float: %w", err)
	}
	flight.CaptureDelay = float32(captureDelay)

	// [5] engineVersion, falls back to the init-time value when the host omits it
	flight.EngineVersion = data[5]
	if flight.EngineVersion == "" {
		flight.EngineVersion = p.engineVersion
	}

	// [6] config snapshot: failure options in effect at launch
	if err = json.Unmarshal([]byte(data[6]), &flight.ConfigSnapshot); err != nil {
		return flight, site, fmt.Errorf("error unmarshalling config snapshot: %w", err)
	}

	// [7] siteData (via temp map for field extraction)
	siteTemp := map[string]any{}
	if err = json.Unmarshal([]byte(data[7]), &siteTemp); err != nil {
		return flight, site, fmt.Errorf("error unmarshalling site data: %w", err)
	}

	if name, ok := siteTemp["name"].(string); ok && name != "" {
		site.Name = name
	} else {
		site.Name = siteName
	}
	site.Body = siteTemp["body"].(string)
	site.Latitude = siteTemp["latitude"].(float64)
	site.Longitude = siteTemp["longitude"].(float64)
	site.Elevation = siteTemp["elevation"].(float64)
	site.AtmosphereDepth = siteTemp["atmosphereDepth"].(float64)

	// preprocess the site location to a projected point
	siteLocation, err := geo.Position3857From4326(site.Longitude, site.Latitude)
	if err != nil {
		return flight, site, fmt.Errorf("error converting site location to geopoint: %w", err)
	}
	siteLocation.Z = site.Elevation
	site.Location = siteLocation

	flight.StartTime = time.Now()

	p.logger.Debug("Parsed flight data",
		"craftName", flight.CraftName,
		"siteName", site.Name)

	return flight, site, nil
}

// ParseFlightResult parses final-outcome data from raw args.
// Args: [frameNo, outcome, durationSec, groundTrack]
func (p *Parser) ParseFlightResult(data []string) (core.FlightResult, error) {
	var result core.FlightResult

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 3 {
		return result, fmt.Errorf("insufficient data fields: got %d, need 3", len(data))
	}

	// [0] endFrame
	endFrame, err := parseUintFromFloat(data[0])
	if err != nil {
		return result, fmt.Errorf("error converting end frame to uint: %w", err)
	}
	result.EndFrame = uint(endFrame)

	// [1] outcome
	result.Outcome = data[1]
	switch result.Outcome {
	case core.OutcomeNominal, core.OutcomeFailed, core.OutcomeAborted:
	default:
		p.logger.Warn("Unknown flight outcome", "outcome", result.Outcome)
	}

	// [2] durationSec
	duration, err := strconv.ParseFloat(data[2], 64)
	if err != nil {
		return result, fmt.Errorf("error converting duration to float: %w", err)
	}
	result.DurationSec = duration

	// [3] groundTrack, optional; a track needs at least two points to mean anything
	if len(data) > 3 && data[3] != "" && data[3] != "[]" {
		track, err := geo.ParseTrack(data[3])
		if err != nil {
			p.logger.Warn("Error parsing ground track", "error", err)
		} else {
			result.GroundTrack = track
		}
	}

	return result, nil
}
