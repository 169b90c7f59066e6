package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/geo"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/util"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// ParseTelemetry parses one ascent snapshot and returns a core TelemetryFrame.
// Args: [frameNo, met, altitude, velocity, throttle, mass, stage, position]
func (p *Parser) ParseTelemetry(data []string) (core.TelemetryFrame, error) {
	var frame core.TelemetryFrame

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 8 {
		return frame, fmt.Errorf("insufficient data fields: got %d, need 8", len(data))
	}

	// [0] frameNo
	capframe, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return frame, fmt.Errorf("error converting capture frame to int: %w", err)
	}
	frame.CaptureFrame = uint(capframe)
	frame.Time = time.Now()

	// [1] met
	frame.MET, err = strconv.ParseFloat(data[1], 64)
	if err != nil {
		return frame, fmt.Errorf("error converting met to float: %w", err)
	}

	// [2] altitude
	frame.Altitude, err = strconv.ParseFloat(data[2], 64)
	if err != nil {
		return frame, fmt.Errorf("error converting altitude to float: %w", err)
	}

	// [3] velocity
	frame.Velocity, err = strconv.ParseFloat(data[3], 64)
	if err != nil {
		return frame, fmt.Errorf("error converting velocity to float: %w", err)
	}

	// [4] throttle
	frame.Throttle, err = strconv.ParseFloat(data[4], 64)
	if err != nil {
		return frame, fmt.Errorf("error converting throttle to float: %w", err)
	}

	// [5] mass
	frame.Mass, err = strconv.ParseFloat(data[5], 64)
	if err != nil {
		return frame, fmt.Errorf("error converting mass to float: %w", err)
	}

	// [6] stage
	stage, err := parseIntFromFloat(data[6])
	if err != nil {
		return frame, fmt.Errorf("error converting stage to int: %w", err)
	}
	frame.Stage = int(stage)

	// [7] position, site-local "x,y,z"
	pos := data[7]
	pos = strings.TrimPrefix(pos, "[")
	pos = strings.TrimSuffix(pos, "]")
	pos3d, err := geo.Position3DFromString(pos)
	if err != nil {
		jsonData, _ := json.Marshal(data)
		p.logger.Error("Error converting position to Point", "data", string(jsonData), "error", err)
		return frame, err
	}
	frame.Position = pos3d

	return frame, nil
}
