// Package config loads a run's Payload from a JSON file. It is
// deliberately thin: schema versioning, format auto-detection, and
// migration are external concerns (spec.md §1 Non-goals) — this loader
// exists only so `forge ci` has somewhere to read a Payload from.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pipeforge/forge/internal/job"
)

// Load decodes path as a JSON document shaped like job.Payload.
func Load(path string) (*job.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var payload job.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return &payload, nil
}
