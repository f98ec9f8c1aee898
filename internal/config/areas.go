package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// AreaDescriptor is one entry of the declarative topology file. The
// file seeds every top-level room at startup; sub-areas are created at
// runtime by commands, never from configuration.
type AreaDescriptor struct {
	Area           string `yaml:"area" validate:"required"`
	Background     string `yaml:"background" validate:"required"`
	Abbreviation   string `yaml:"abbreviation"`
	LockingAllowed bool   `yaml:"locking_allowed"`
	Hidden         bool   `yaml:"hidden"`
	IsHub          bool   `yaml:"is_hub"`
	HubType        string `yaml:"hubtype"`
}

// LoadAreas reads and validates the topology file. Any failure here is
// fatal to server boot; a server with a malformed room list must not
// come up.
func LoadAreas(path string) ([]core.AreaSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	var descriptors []AreaDescriptor
	if err := yaml.Unmarshal(raw, &descriptors); err != nil {
		return nil, fmt.Errorf("parse areas file: %w", err)
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("areas file %s defines no areas", path)
	}
	validate := validator.New()
	seeds := make([]core.AreaSeed, 0, len(descriptors))
	for i, d := range descriptors {
		if err := validate.Struct(d); err != nil {
			return nil, fmt.Errorf("area %d: %w", i, err)
		}
		hubType, err := domain.ParseHubType(d.HubType)
		if err != nil {
			return nil, fmt.Errorf("area %d (%s): %w", i, d.Area, err)
		}
		seeds = append(seeds, core.AreaSeed{
			Name:           d.Area,
			Background:     d.Background,
			Abbreviation:   d.Abbreviation,
			LockingAllowed: d.LockingAllowed,
			Hidden:         d.Hidden,
			IsHub:          d.IsHub,
			HubType:        hubType,
		})
	}
	return seeds, nil
}
