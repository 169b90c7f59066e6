// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage/memory/export/v1"
)

// exportJSON writes the flight data to a JSON file. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	craftName := strings.ReplaceAll(b.flight.CraftName, " ", "_")
	craftName = strings.ReplaceAll(craftName, ":", "_")
	timestamp := b.flight.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", craftName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", craftName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

// buildExport assembles the v1 export structure from the recorded data.
func (b *Backend) buildExport() v1.Export {
	parts := make(map[uint16]*v1.PartRecord, len(b.parts))
	for id, record := range b.parts {
		parts[id] = &v1.PartRecord{
			Part:   record.Part,
			States: record.States,
		}
	}

	return v1.Build(&v1.FlightData{
		Flight:        b.flight,
		Site:          b.site,
		Result:        b.result,
		Parts:         parts,
		Telemetry:     b.telemetry,
		FailureEvents: b.failureEvents,
		Explosions:    b.explosions,
		Aborts:        b.aborts,
		GeneralEvents: b.generalEvents,
	})
}

func (b *Backend) writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
