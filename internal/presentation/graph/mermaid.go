package graph

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

// Overlay contains run state to highlight on the diagram.
type Overlay struct {
	VisitedSteps []string
	CurrentStep  string
}

// GenerateMermaid produces Mermaid flowchart syntax for a flow definition.
// It applies semantic styling:
// - Start step: ((Circle))
// - Terminal step: ([Stadium])
// - Collecting step: [/Parallelogram/]
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(def *flow.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Steps live in a map; sort for stable output.
	ids := make([]string, 0, len(def.Steps))
	for id := range def.Steps {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		step := def.Steps[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == def.Start:
			opener, closer = "((", "))" // Circle
		case step.Terminal:
			opener, closer = "([", "])" // Stadium
		case step.Input != nil:
			opener, closer = "[/", "/]" // Parallelogram (Input)
		}

		label := fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, id, closer)
		if step.Input != nil && step.Input.Timeout != 0 {
			// Annotate collecting steps with their inactivity window
			label = fmt.Sprintf("    %s%s\"%s <br/> ⏱️ %s\"%s\n", safeID, opener, id, time.Duration(step.Input.Timeout), closer)
		}
		sb.WriteString(label)

		for _, n := range step.Next {
			safeTo := sanitizeMermaidID(n.To)

			// Loam ids can be namespaced by directory; an edge that leaves
			// its directory reads better dashed.
			isJump := path.Dir(id) != path.Dir(n.To)

			arrow := "-->"
			if isJump {
				arrow = "-.->"
			}
			if n.When != "" {
				// Escape double quotes in the condition for the Mermaid label
				safeCondition := strings.ReplaceAll(n.When, "\"", "'")
				arrow = fmt.Sprintf("-- \"%s\" -->", safeCondition)
				if isJump {
					arrow = fmt.Sprintf("-. \"%s\" .->", safeCondition)
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps labels legible on light and dark themes alike
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentStep != "" {
			safeCurrent := sanitizeMermaidID(overlay.CurrentStep)
			sb.WriteString(fmt.Sprintf("    class %s current;\n", safeCurrent))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
