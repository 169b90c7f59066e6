package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/util"
)

// ParseCraftFile reads a craft layout in bracketed text form. The first data
// line names the craft, each following line describes one part in the same
// field order the host uses, minus the frame number:
//
//	["Kerbal X"]
//	[0, -1, "Mk1 Command Pod", "commandPod", 0, 1400, 0, 50, false]
//	[1, 0, "FL-T400 Fuel Tank", "fuelTank", 0, 2000, 0, 50, true]
//
// Blank lines and lines starting with # are skipped.
func (p *Parser) ParseCraftFile(r io.Reader) (CraftFile, error) {
	var craft CraftFile

	headerSeen := false
	lineNo := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := util.SplitArrayFields(line)
		if fields == nil {
			return craft, fmt.Errorf("line %d: not a bracketed array", lineNo)
		}

		if !headerSeen {
			if len(fields) != 1 {
				return craft, fmt.Errorf("line %d: craft header must be a single name, got %d fields", lineNo, len(fields))
			}
			craft.Name = util.FixEscapeQuotes(util.TrimQuotes(fields[0]))
			headerSeen = true
			continue
		}

		part, err := p.parseCraftPart(fields)
		if err != nil {
			return craft, fmt.Errorf("line %d: %w", lineNo, err)
		}
		craft.Parts = append(craft.Parts, part)
	}
	if err := scanner.Err(); err != nil {
		return craft, fmt.Errorf("error reading craft file: %w", err)
	}

	if !headerSeen {
		return craft, fmt.Errorf("craft file has no header line")
	}
	if len(craft.Parts) == 0 {
		return craft, fmt.Errorf("craft %q has no parts", craft.Name)
	}

	p.logger.Debug("Parsed craft layout",
		"name", craft.Name,
		"parts", len(craft.Parts))

	return craft, nil
}

// parseCraftPart parses one part row.
// Fields: [partId, parentPartId, name, category, stage, maxTemp, maxThrust, breakingForce, explosiveFuel]
func (p *Parser) parseCraftPart(data []string) (CraftPart, error) {
	var part CraftPart

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 9 {
		return part, fmt.Errorf("insufficient data fields: got %d, need 9", len(data))
	}

	// [0] partId
	partID, err := parseUintFromFloat(data[0])
	if err != nil {
		return part, fmt.Errorf("error converting partId to uint: %w", err)
	}
	part.ID = uint16(partID)

	// [1] parentPartId (-1 for the root part)
	parentID, err := parseIntFromFloat(data[1])
	if err != nil {
		return part, fmt.Errorf("error converting parentPartId to int: %w", err)
	}
	part.ParentID = int(parentID)

	// [2] name, [3] category
	part.Name = data[2]
	part.Category = data[3]

	// [4] stage
	stage, err := parseIntFromFloat(data[4])
	if err != nil {
		return part, fmt.Errorf("error converting stage to int: %w", err)
	}
	part.Stage = int(stage)

	// [5] maxTemp
	part.MaxTemp, err = strconv.ParseFloat(data[5], 64)
	if err != nil {
		return part, fmt.Errorf("error converting maxTemp to float: %w", err)
	}

	// [6] maxThrust
	part.MaxThrust, err = strconv.ParseFloat(data[6], 64)
	if err != nil {
		return part, fmt.Errorf("error converting maxThrust to float: %w", err)
	}

	// [7] breakingForce
	part.BreakingForce, err = strconv.ParseFloat(data[7], 64)
	if err != nil {
		return part, fmt.Errorf("error converting breakingForce to float: %w", err)
	}

	// [8] explosiveFuel
	part.ExplosiveFuel, err = strconv.ParseBool(data[8])
	if err != nil {
		return part, fmt.Errorf("error converting explosiveFuel to bool: %w", err)
	}

	return part, nil
}
