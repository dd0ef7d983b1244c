package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pickup/internal/action"
)

// Scenario is a scripted sequence of actions with expectations.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// SellerID and PickupSlot seed the initial snapshot.
	SellerID   string `yaml:"seller_id"`
	PickupSlot string `yaml:"pickup_slot"`

	// Flow is dispatched in order.
	Flow []Step `yaml:"flow"`

	// Assertions are checked after the whole flow has been applied.
	Assertions []Assertion `yaml:"assertions"`
}

// Step dispatches one action.
type Step struct {
	// Dispatch is the action kind, e.g. "basket.add".
	Dispatch string `yaml:"dispatch"`

	// Payload holds the action fields by their JSON names.
	Payload map[string]any `yaml:"payload,omitempty"`

	// Expect maps snapshot paths to the values they must hold once this
	// step has been applied.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Action decodes the step into an action.
func (s Step) Action() (action.Action, error) {
	var payload []byte
	if len(s.Payload) > 0 {
		data, err := json.Marshal(s.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		payload = data
	}
	return action.Decode(s.Dispatch, payload)
}

// Assertion validates the trace or the final snapshot.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an action appears in the trace with payload
	// - "trace_order": actions appear in order
	// - "trace_count": an action appears exactly N times
	// - "final_state": the value at path matches expect
	Type string `yaml:"type"`

	// Action is the action kind (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is matched as a subset (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Path addresses the final snapshot (final_state).
	Path string `yaml:"path,omitempty"`

	// Expect is the value found at Path (final_state).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// step decodes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Dispatch == "" {
			return fmt.Errorf("flow[%d]: dispatch is required", i)
		}
		if _, err := step.Action(); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		for path := range step.Expect {
			if path == "" {
				return fmt.Errorf("flow[%d]: expect path must not be empty", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("trace_contains requires action")
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("trace_order requires at least two actions")
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("trace_count requires action")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count requires a non-negative count")
		}
	case AssertFinalState:
		if a.Path == "" {
			return fmt.Errorf("final_state requires path")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
