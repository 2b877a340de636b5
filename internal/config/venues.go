package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type venuesFile struct {
	Venues []models.Venue `yaml:"venues" toml:"venues"`
}

// LoadVenues reads and validates the catalog. The format follows the file
// extension: .yaml/.yml or .toml.
func LoadVenues(path string) ([]models.Venue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var file venuesFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", path)
	}

	if err := ValidateVenues(file.Venues); err != nil {
		return nil, err
	}
	return file.Venues, nil
}

func ValidateVenues(venues []models.Venue) error {
	if len(venues) == 0 {
		return fmt.Errorf("catalog has no venues")
	}

	ids := make(map[string]bool, len(venues))
	for _, v := range venues {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("venue '%s' has empty ID", v.Name)
		}
		if ids[v.ID] {
			return fmt.Errorf("duplicate venue ID found: %s", v.ID)
		}
		ids[v.ID] = true

		if v.Capacity <= 0 {
			return fmt.Errorf("venue %s: capacity must be positive", v.ID)
		}
		if len(v.TimeSlots) == 0 {
			return fmt.Errorf("venue %s: no time slots", v.ID)
		}
		slots := make(map[string]bool, len(v.TimeSlots))
		for _, s := range v.TimeSlots {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("venue %s: empty time slot", v.ID)
			}
			if slots[s] {
				return fmt.Errorf("venue %s: duplicate time slot %q", v.ID, s)
			}
			slots[s] = true
		}

		p := v.Pricing
		if p.Adult < 0 || p.Child < 0 || p.Senior < 0 || p.Tourist < 0 {
			return fmt.Errorf("venue %s: prices must not be negative", v.ID)
		}
	}
	return nil
}
