package flow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/expr-lang/expr"
)

var knownInputTypes = map[string]bool{"": true, "text": true, "number": true, "bool": true}

// Validate checks the definition's static shape: the start step exists,
// every transition lands on a defined step, branching is unambiguous,
// templates and expressions parse, and every step is reachable. Registered
// names ("@condition", input transforms) are resolved later by Build, since
// they live in a Registry.
func (d *Definition) Validate() error {
	var errs []string
	report := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if len(d.Steps) == 0 {
		report("flow has no steps")
	}
	if d.Start == "" {
		report("flow has no start step (set start: or define a step named \"start\")")
	} else if _, ok := d.Steps[d.Start]; !ok {
		report("start step %q is not defined", d.Start)
	}

	for id, step := range d.Steps {
		d.validateStep(id, step, report)
	}

	if d.Start != "" {
		if _, ok := d.Steps[d.Start]; ok {
			for _, id := range d.unreachableSteps() {
				report("step %q is unreachable from %q", id, d.Start)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid flow: found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

func (d *Definition) validateStep(id string, step *Step, report func(string, ...any)) {
	for i, line := range step.Text {
		if _, err := parseTemplate(line); err != nil {
			report("step %q text %d: %v", id, i+1, err)
		}
	}

	if step.Terminal {
		if step.Input != nil {
			report("step %q is terminal and cannot take input", id)
		}
		if len(step.Next) > 0 {
			report("step %q is terminal and cannot have next steps", id)
		}
	}

	if in := step.Input; in != nil {
		if in.Var == "" && in.Transform == "" {
			report("step %q input needs var or transform", id)
		}
		if in.Var != "" && in.Transform != "" {
			report("step %q input takes var or transform, not both", id)
		}
		if !knownInputTypes[in.Type] {
			report("step %q input type %q is unknown (text, number, bool)", id, in.Type)
		}
		if in.Pattern != "" {
			if _, err := regexp.Compile(in.Pattern); err != nil {
				report("step %q input pattern: %v", id, err)
			}
		}
		if in.Timeout < 0 {
			report("step %q input timeout cannot be negative", id)
		}
	}

	for i, next := range step.Next {
		if next.To == "" {
			report("step %q next %d has no destination", id, i+1)
			continue
		}
		if _, ok := d.Steps[next.To]; !ok {
			report("step %q next %d points to undefined step %q", id, i+1, next.To)
		}
		if next.When != "" && !strings.HasPrefix(next.When, "@") {
			if _, err := expr.Compile(next.When, expr.Env(Data{}), expr.AsBool()); err != nil {
				report("step %q next %d condition: %v", id, i+1, err)
			}
		}
	}

	if len(step.Next) > 1 {
		for i, next := range step.Next {
			if next.When == "" && i < len(step.Next)-1 {
				report("step %q next %d has no condition but is not last; later steps can never be reached", id, i+1)
			}
		}
	}
}

// unreachableSteps crawls the transition graph from the start step and
// returns the ids it never visits, sorted for stable output.
func (d *Definition) unreachableSteps() []string {
	visited := make(map[string]bool)
	queue := []string{d.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		step, ok := d.Steps[id]
		if !ok {
			continue
		}
		for _, next := range step.Next {
			if !visited[next.To] {
				queue = append(queue, next.To)
			}
		}
	}

	var missing []string
	for id := range d.Steps {
		if !visited[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

func parseTemplate(line string) (*template.Template, error) {
	return template.New("text").Funcs(textFuncs).Option("missingkey=error").Parse(line)
}
