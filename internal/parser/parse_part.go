package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/util"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// ParsePart parses part registration data and returns a core PartInfo.
// Sets ParentID to nil for the root part (host sends -1).
// Args: [frameNo, partId, parentPartId, name, category, stage, maxTemp, maxThrust, breakingForce, explosiveFuel]
func (p *Parser) ParsePart(data []string) (core.PartInfo, error) {
	var part core.PartInfo

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 10 {
		return part, fmt.Errorf("insufficient data fields: got %d, need 10", len(data))
	}

	// [0] joinFrame
	capframe, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return part, fmt.Errorf("error converting capture frame to int: %w", err)
	}
	part.JoinFrame = uint(capframe)
	part.JoinTime = time.Now()

	// [1] partId
	partID, err := parseUintFromFloat(data[1])
	if err != nil {
		return part, fmt.Errorf("error converting partId to uint: %w", err)
	}
	part.ID = uint16(partID)

	// [2] parentPartId (-1 for the root part)
	parentID, err := parseIntFromFloat(data[2])
	if err != nil {
		return part, fmt.Errorf("error converting parentPartId to int: %w", err)
	}
	if parentID >= 0 {
		ptr := uint16(parentID)
		part.ParentID = &ptr
	}

	// [3] name, [4] category
	part.Name = data[3]
	part.Category = data[4]

	// [5] stage
	stage, err := parseIntFromFloat(data[5])
	if err != nil {
		return part, fmt.Errorf("error converting stage to int: %w", err)
	}
	part.Stage = int(stage)

	// [6] maxTemp
	part.MaxTemp, err = strconv.ParseFloat(data[6], 64)
	if err != nil {
		return part, fmt.Errorf("error converting maxTemp to float: %w", err)
	}

	// [7] maxThrust (0 for non-engines)
	part.MaxThrust, err = strconv.ParseFloat(data[7], 64)
	if err != nil {
		return part, fmt.Errorf("error converting maxThrust to float: %w", err)
	}

	// [8] breakingForce
	part.BreakingForce, err = strconv.ParseFloat(data[8], 64)
	if err != nil {
		return part, fmt.Errorf("error converting breakingForce to float: %w", err)
	}

	// [9] explosiveFuel
	part.ExplosiveFuel, _ = strconv.ParseBool(data[9])

	return part, nil
}

// ParsePartState parses part state data and returns a core PartState.
// Sets PartID directly from the parsed id (no cache lookup, the worker
// validates against the part cache).
// Args: [partId, frameNo, temperature, thrustPct, attached, doomed]
func (p *Parser) ParsePartState(data []string) (core.PartState, error) {
	var state core.PartState

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 6 {
		return state, fmt.Errorf("insufficient data fields: got %d, need 6", len(data))
	}

	// [0] partId
	partID, err := parseUintFromFloat(data[0])
	if err != nil {
		return state, fmt.Errorf("error converting partId to uint: %w", err)
	}
	state.PartID = uint16(partID)

	// [1] frameNo
	capframe, err := strconv.ParseFloat(data[1], 64)
	if err != nil {
		return state, fmt.Errorf("error converting capture frame to int: %w", err)
	}
	state.CaptureFrame = uint(capframe)
	state.Time = time.Now()

	// [2] temperature
	state.Temperature, err = strconv.ParseFloat(data[2], 64)
	if err != nil {
		return state, fmt.Errorf("error converting temperature to float: %w", err)
	}

	// [3] thrustPct (engines only, 0 otherwise)
	state.ThrustPct, err = strconv.ParseFloat(data[3], 64)
	if err != nil {
		return state, fmt.Errorf("error converting thrustPct to float: %w", err)
	}

	// [4] attached, [5] doomed
	state.Attached, _ = strconv.ParseBool(data[4])
	state.Doomed, _ = strconv.ParseBool(data[5])

	return state, nil
}
