package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/synzen/prompt-anything-sub000/internal/presentation/graph"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		def      *flow.Definition
		contains []string
	}{
		{
			name: "Start Step Shape",
			def: &flow.Definition{
				Start: "start",
				Steps: map[string]*flow.Step{
					"start": {ID: "start"},
				},
			},
			contains: []string{
				"start((\"start\"))",
			},
		},
		{
			name: "Terminal Step Shape",
			def: &flow.Definition{
				Steps: map[string]*flow.Step{
					"bye": {ID: "bye", Terminal: true},
				},
			},
			contains: []string{
				"bye([\"bye\"])",
			},
		},
		{
			name: "Collecting Step Shape",
			def: &flow.Definition{
				Steps: map[string]*flow.Step{
					"q1": {ID: "q1", Input: &flow.Input{Var: "answer"}},
				},
			},
			contains: []string{
				"q1[/\"q1\"/]",
			},
		},
		{
			name: "ID Sanitization",
			def: &flow.Definition{
				Steps: map[string]*flow.Step{
					"path/to/step.md": {ID: "path/to/step.md"},
					"hyphen-ated":     {ID: "hyphen-ated"},
				},
			},
			contains: []string{
				"path_to_step_md[\"path/to/step.md\"]",
				"hyphen_ated[\"hyphen-ated\"]",
			},
		},
		{
			name: "Condition Escaping",
			def: &flow.Definition{
				Steps: map[string]*flow.Step{
					"a": {ID: "a", Next: []flow.Next{{To: "b", When: `name == "George"`}}},
				},
			},
			contains: []string{
				`-- "name == 'George'" -->`,
			},
		},
		{
			name: "Timeout Annotation",
			def: &flow.Definition{
				Steps: map[string]*flow.Step{
					"slow": {ID: "slow", Input: &flow.Input{Var: "x", Timeout: flow.Duration(90 * time.Second)}},
				},
			},
			contains: []string{
				"slow[/\"slow <br/> ⏱️ 1m30s\"/]",
			},
		},
		{
			name: "Cross Directory Jump",
			def: &flow.Definition{
				Steps: map[string]*flow.Step{
					"intro/hello": {ID: "intro/hello", Next: []flow.Next{{To: "billing/plan"}}},
				},
			},
			contains: []string{
				"intro_hello -.-> billing_plan",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.def, nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	def := &flow.Definition{
		Start: "start",
		Steps: map[string]*flow.Step{
			"start": {ID: "start"},
			"ask":   {ID: "ask", Input: &flow.Input{Var: "x"}},
			"bye":   {ID: "bye", Terminal: true},
		},
	}

	got := graph.GenerateMermaid(def, &graph.Overlay{
		VisitedSteps: []string{"start", "start"},
		CurrentStep:  "ask",
	})

	for _, want := range []string{
		"classDef visited",
		"classDef current",
		"class start visited;",
		"class ask current;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("overlay output missing %q:\n%v", want, got)
		}
	}

	// Repeated history entries must not emit duplicate class lines.
	if strings.Count(got, "class start visited;") != 1 {
		t.Errorf("visited class emitted more than once:\n%v", got)
	}
}
