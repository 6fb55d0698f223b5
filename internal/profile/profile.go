// Package profile loads the candidate profile used for ranking and drafting.
package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jonathan/job-tracker/internal/types"
)

//go:embed default_profile.json
var defaultProfile []byte

// Default returns the built-in example profile.
func Default() *types.Profile {
	var p types.Profile
	if err := json.Unmarshal(defaultProfile, &p); err != nil {
		panic(fmt.Sprintf("embedded default profile is invalid: %v", err))
	}
	return &p
}

// Load reads and validates a profile JSON file.
func Load(path string) (*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates profile JSON.
func Parse(data []byte) (*types.Profile, error) {
	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// LoadOrDefault loads path when set, falling back to the built-in profile
// when path is empty or unreadable.
func LoadOrDefault(path string) *types.Profile {
	if path == "" {
		return Default()
	}
	p, err := Load(path)
	if err != nil {
		log.Printf("[profile] %v; using built-in profile", err)
		return Default()
	}
	return p
}
