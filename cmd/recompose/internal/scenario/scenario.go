// Package scenario loads scripted runs of a small board application and
// replays them through a scheduler, one frame per tick.
//
// A scenario file looks like:
//
//	name: reorder
//	items: [a, b, c]
//	mode: list
//	detail: true
//	steps:
//	  - items: [c, a, d]
//	  - mode: grid
//	  - detail: false
//	    ticks: 2
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Board modes.
const (
	ModeList = "list"
	ModeGrid = "grid"
)

// Scenario is a scripted run.
type Scenario struct {
	Name   string   `yaml:"name"`
	Items  []string `yaml:"items"`
	Mode   string   `yaml:"mode,omitempty"`
	Detail bool     `yaml:"detail,omitempty"`
	Steps  []Step   `yaml:"steps"`
}

// Step queues writes and then runs Ticks ticks (at least one). Absent fields
// leave the corresponding state alone.
type Step struct {
	Items  *[]string `yaml:"items,omitempty"`
	Mode   string    `yaml:"mode,omitempty"`
	Detail *bool     `yaml:"detail,omitempty"`
	Ticks  int       `yaml:"ticks,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document. Unknown fields are
// rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if sc.Mode == "" {
		sc.Mode = ModeList
	}
	if err := validateMode(sc.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if err := validateItems(sc.Items); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	for i, step := range sc.Steps {
		if step.Mode != "" {
			if err := validateMode(step.Mode); err != nil {
				return fmt.Errorf("steps[%d].mode: %w", i, err)
			}
		}
		if step.Items != nil {
			if err := validateItems(*step.Items); err != nil {
				return fmt.Errorf("steps[%d].items: %w", i, err)
			}
		}
		if step.Ticks < 0 {
			return fmt.Errorf("steps[%d].ticks: must not be negative, got %d", i, step.Ticks)
		}
	}
	return nil
}

func validateMode(mode string) error {
	switch mode {
	case ModeList, ModeGrid:
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", mode, ModeList, ModeGrid)
	}
}

// validateItems rejects blank names. Duplicates are left to the List, which
// refuses them when the step is replayed.
func validateItems(items []string) error {
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("item %d is blank", i)
		}
	}
	return nil
}
