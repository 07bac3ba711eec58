package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/barkeepd/barkeep/internal/bridge"
	"github.com/barkeepd/barkeep/pkg/bar"
)

// Scenario is a scripted session: exporter events and placement faults laid
// out on a virtual timeline. Event payloads use the exporter wire field
// names, so a line copied out of an export file reads the same in yaml.
type Scenario struct {
	Name      string `yaml:"name"`
	Character string `yaml:"character"`
	Slots     string `yaml:"slots"`

	DebounceMS    int  `yaml:"debounce_ms"`
	VerifyDelayMS int  `yaml:"verify_delay_ms"`
	VerifyRetries *int `yaml:"verify_retries"`

	Steps []Step `yaml:"steps"`
}

// Step is one timeline entry: an exporter event or an injected fault.
type Step struct {
	AtMS   int           `yaml:"at_ms"`
	Event  *bridge.Event `yaml:"event,omitempty"`
	Reject *Reject       `yaml:"reject,omitempty"`
}

// Reject makes the next Times placements into Slot fail, the way a busy or
// lagging client refuses writes. Times defaults to one.
type Reject struct {
	Slot  int `yaml:"slot"`
	Times int `yaml:"times"`
}

// LoadScenario reads and validates a scenario file. A missing name defaults
// to the file's base name.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// ParseScenario decodes scenario yaml and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Character == "" {
		sc.Character = "Sim"
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i, step := range sc.Steps {
		if step.AtMS < 0 {
			return fmt.Errorf("step %d: negative at_ms", i+1)
		}
		if (step.Event == nil) == (step.Reject == nil) {
			return fmt.Errorf("step %d: need exactly one of event or reject", i+1)
		}
		if step.Event != nil && step.Event.Type == "" {
			return fmt.Errorf("step %d: event without type", i+1)
		}
		if step.Reject != nil && (step.Reject.Slot < 1 || step.Reject.Slot > bar.MaxSlot) {
			return fmt.Errorf("step %d: reject slot %d outside 1-%d",
				i+1, step.Reject.Slot, bar.MaxSlot)
		}
	}
	return nil
}
