package geo

import (
	"encoding/json"
	"fmt"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// ParseTrack parses a JSON array of ground-track coordinates into positions.
// Input format: "[[x1,y1],[x2,y2],...]", with an optional third element per
// point carrying altitude.
func ParseTrack(input string) ([]core.Position3D, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse track JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("track must have at least 2 points, got %d", len(coords))
	}

	track := make([]core.Position3D, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		track[i] = core.Position3D{X: coord[0], Y: coord[1]}
		if len(coord) > 2 {
			track[i].Z = coord[2]
		}
	}

	return track, nil
}
