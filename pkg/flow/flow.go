// Package flow loads conversation trees from declarative YAML definitions.
// A definition names its steps, the data each step captures and the
// conditions that pick the next step; Build turns it into a runnable tree
// for the engine. Step text is templated against the conversation data and
// branch conditions are expr expressions, so most flows need no Go code at
// all; anything beyond that is registered by name in a Registry.
package flow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Data is the conversation state a declarative flow threads through a run.
// Transforms treat it as immutable and return a fresh copy, so snapshots
// held by conditions and hooks stay stable.
type Data = map[string]any

// Definition is one parsed flow file.
type Definition struct {
	// Name identifies the flow in logs and serving APIs.
	Name string `yaml:"name"`

	// Start is the id of the entry step. Defaults to "start" when a step
	// with that id exists.
	Start string `yaml:"start"`

	// Defaults seeds the conversation data of every run.
	Defaults Data `yaml:"defaults"`

	// Config overrides the engine's run texts. Absent fields keep the
	// stock values.
	Config *RunConfig `yaml:"config"`

	// Steps holds the flow's steps keyed by id.
	Steps map[string]*Step `yaml:"steps"`
}

// RunConfig is the YAML face of the engine's run texts.
type RunConfig struct {
	ExitToken          *string `yaml:"exit_token"`
	ExitResponse       string  `yaml:"exit_response"`
	InactivityResponse string  `yaml:"inactivity_response"`
	RejectionResponse  *string `yaml:"rejection_response"`
}

// Step is one conversational turn of a definition.
type Step struct {
	// ID is the step's key in Definition.Steps, filled during parsing.
	ID string `yaml:"-"`

	// Text holds the step's message lines, rendered as Go templates
	// against the conversation data. A scalar and a sequence are both
	// accepted in YAML.
	Text StringList `yaml:"text"`

	// Input describes what the step collects. Nil makes the step
	// display-only.
	Input *Input `yaml:"input"`

	// Terminal marks a closing step: its text is sent and the run stops
	// there, input and next are rejected by Validate.
	Terminal bool `yaml:"terminal"`

	// Next lists candidate successors in priority order.
	Next []Next `yaml:"next"`
}

// Input configures the collect cycle of a step.
type Input struct {
	// Var is the data key the accepted value is stored under.
	Var string `yaml:"var"`

	// Type converts the raw text before storing: "text" (default),
	// "number" or "bool".
	Type string `yaml:"type"`

	// Pattern optionally requires the raw text to match a regular
	// expression before conversion.
	Pattern string `yaml:"pattern"`

	// Reject is the feedback sent when pattern or conversion fails.
	// Empty falls back to the run's rejection response.
	Reject string `yaml:"reject"`

	// Transform names a registered transform used instead of the
	// built-in capture. Exclusive with Var.
	Transform string `yaml:"transform"`

	// Timeout bounds how long the step waits for an accepted input.
	Timeout Duration `yaml:"timeout"`
}

// Next is one candidate transition out of a step.
type Next struct {
	// To is the id of the destination step.
	To string `yaml:"to"`

	// When is an expr condition over the conversation data, or "@name"
	// for a registered condition. Empty is always eligible.
	When string `yaml:"when"`
}

// StringList accepts either a single scalar or a sequence of scalars.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var one string
		if err := value.Decode(&one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("text must be a string or a list of strings (line %d)", value.Line)
	}
}

// Duration parses YAML scalars like "90s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q (line %d): %w", raw, value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Parse decodes a flow definition and fills in derived fields. The result
// is parsed, not yet validated; call Validate before Build.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse flow: %w", err)
	}

	for id, step := range def.Steps {
		if step == nil {
			return nil, fmt.Errorf("parse flow: step %q is empty", id)
		}
		step.ID = id
	}

	if def.Start == "" {
		if _, ok := def.Steps["start"]; ok {
			def.Start = "start"
		}
	}
	return &def, nil
}

// Load reads and parses a flow definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load flow %s: %w", path, err)
	}
	return def, nil
}
