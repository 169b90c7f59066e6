package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/util"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// ParseFailureEvent parses failure lifecycle data and returns a core FailureEvent.
// The same layout serves warnings and destructions, the phase field tells them apart.
// Args: [frameNo, partId, partName, failureType, phase, message]
func (p *Parser) ParseFailureEvent(data []string) (core.FailureEvent, error) {
	var event core.FailureEvent

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 6 {
		return event, fmt.Errorf("insufficient data fields: got %d, need 6", len(data))
	}

	// [0] frameNo
	capframe, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return event, fmt.Errorf("error converting capture frame to int: %w", err)
	}
	event.CaptureFrame = uint(capframe)
	event.Time = time.Now()

	// [1] partId
	partID, err := parseUintFromFloat(data[1])
	if err != nil {
		return event, fmt.Errorf("error converting partId to uint: %w", err)
	}
	event.PartID = uint16(partID)

	// [2] partName, [3] failureType, [4] phase, [5] message
	event.PartName = data[2]
	event.FailureType = data[3]
	event.Phase = data[4]
	event.Message = data[5]

	return event, nil
}

// ParseExplosionEvent parses part destruction data and returns a core ExplosionEvent.
// LastState is left empty, the worker fills it from the most recent cached state.
// Args: [frameNo, partId, partName, cause, altitude]
func (p *Parser) ParseExplosionEvent(data []string) (core.ExplosionEvent, error) {
	var event core.ExplosionEvent

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 5 {
		return event, fmt.Errorf("insufficient data fields: got %d, need 5", len(data))
	}

	// [0] frameNo
	capframe, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return event, fmt.Errorf("error converting capture frame to int: %w", err)
	}
	event.CaptureFrame = uint(capframe)
	event.Time = time.Now()

	// [1] partId
	partID, err := parseUintFromFloat(data[1])
	if err != nil {
		return event, fmt.Errorf("error converting partId to uint: %w", err)
	}
	event.PartID = uint16(partID)

	// [2] partName, [3] cause
	event.PartName = data[2]
	event.Cause = data[3]

	// [4] altitude
	event.Altitude, err = strconv.ParseFloat(data[4], 64)
	if err != nil {
		return event, fmt.Errorf("error converting altitude to float: %w", err)
	}

	return event, nil
}

// ParseAbortEvent parses abort data and returns a core AbortEvent.
// Args: [frameNo, automatic, reason]
func (p *Parser) ParseAbortEvent(data []string) (core.AbortEvent, error) {
	var event core.AbortEvent

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 3 {
		return event, fmt.Errorf("insufficient data fields: got %d, need 3", len(data))
	}

	// [0] frameNo
	capframe, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return event, fmt.Errorf("error converting capture frame to int: %w", err)
	}
	event.CaptureFrame = uint(capframe)
	event.Time = time.Now()

	// [1] automatic
	event.Automatic, err = strconv.ParseBool(data[1])
	if err != nil {
		return event, fmt.Errorf("error converting automatic to bool: %w", err)
	}

	// [2] reason
	event.Reason = data[2]

	return event, nil
}

// ParseGeneralEvent parses general event data and returns a core GeneralEvent
// Args: [frameNo, eventType, message, extraDataJSON]
func (p *Parser) ParseGeneralEvent(data []string) (core.GeneralEvent, error) {
	var thisEvent core.GeneralEvent

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 3 {
		return thisEvent, fmt.Errorf("insufficient data fields: got %d, need 3", len(data))
	}

	// get frame
	capframe, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return thisEvent, fmt.Errorf("error converting capture frame to int: %w", err)
	}

	thisEvent.Time = time.Now()
	thisEvent.CaptureFrame = uint(capframe)
	thisEvent.Name = data[1]
	thisEvent.Message = data[2]

	// get extra event data
	if len(data) > 3 && data[3] != "" {
		err = json.Unmarshal([]byte(data[3]), &thisEvent.ExtraData)
		if err != nil {
			return thisEvent, fmt.Errorf("error unmarshalling extra data: %w", err)
		}
	}

	return thisEvent, nil
}
