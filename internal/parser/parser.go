package parser

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// The sim host serializes all numbers through a float formatter, so integer fields may
// arrive with a fractional part.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Service is the parsing surface the worker depends on.
type Service interface {
	ParseFlight(data []string) (core.Flight, core.LaunchSite, error)
	ParseFlightResult(data []string) (core.FlightResult, error)
	ParsePart(data []string) (core.PartInfo, error)
	ParsePartState(data []string) (core.PartState, error)
	ParseTelemetry(data []string) (core.TelemetryFrame, error)
	ParseFailureEvent(data []string) (core.FailureEvent, error)
	ParseExplosionEvent(data []string) (core.ExplosionEvent, error)
	ParseAbortEvent(data []string) (core.AbortEvent, error)
	ParseGeneralEvent(data []string) (core.GeneralEvent, error)
}

var _ Service = (*Parser)(nil)

// Parser provides pure []string -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger

	// Static config set at creation time
	engineVersion string
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger, engineVersion string) *Parser {
	p := &Parser{
		logger:        logger,
		engineVersion: engineVersion,
	}
	return p
}
