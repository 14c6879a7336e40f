package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Step is a single unit of test behavior. Action selects the runner; every
// other key of the step mapping stays in Payload and is decoded by the runner.
type Step struct {
	ID          string
	Description string
	Action      string
	Payload     map[string]any
}

// UnmarshalYAML keeps the raw mapping so runners can decode their own payload shape.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decoding step: %w", err)
	}

	s.ID = stringField(raw, "id")
	if s.ID == "" {
		s.ID = stringField(raw, "stepId")
	}
	s.Description = stringField(raw, "description")
	s.Action = stringField(raw, "action")

	delete(raw, "id")
	delete(raw, "stepId")
	delete(raw, "description")
	delete(raw, "action")
	s.Payload = raw
	return nil
}

// MarshalYAML writes the step back out in the same flat form it was read in.
func (s Step) MarshalYAML() (any, error) {
	out := make(map[string]any, len(s.Payload)+3)
	for k, v := range s.Payload {
		out[k] = v
	}
	if s.ID != "" {
		out["id"] = s.ID
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	out["action"] = s.Action
	return out, nil
}

// DecodePayload decodes the step payload into out, which should be a pointer
// to a struct with yaml tags.
func (s Step) DecodePayload(out any) error {
	b, err := yaml.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload of step %q: %w", s.ID, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decoding payload of %s step %q: %w", s.Action, s.ID, err)
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// StepResult is the standardized output returned by every runner.
type StepResult struct {
	Status      Status         `json:"status" yaml:"status"`
	Description string         `json:"description" yaml:"description"`
	Outputs     map[string]any `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

func Pass(format string, a ...any) StepResult {
	return StepResult{Status: StatusPass, Description: fmt.Sprintf(format, a...)}
}

func Fail(format string, a ...any) StepResult {
	return StepResult{Status: StatusFail, Description: fmt.Sprintf(format, a...)}
}

func Warn(format string, a ...any) StepResult {
	return StepResult{Status: StatusWarning, Description: fmt.Sprintf(format, a...)}
}

func Skip(format string, a ...any) StepResult {
	return StepResult{Status: StatusSkipped, Description: fmt.Sprintf(format, a...)}
}

// WithOutputs returns a copy of r carrying outputs.
func (r StepResult) WithOutputs(outputs map[string]any) StepResult {
	r.Outputs = outputs
	return r
}
