package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/expr-lang/expr"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// textFuncs supplements the built-in template functions for step text.
var textFuncs = template.FuncMap{
	"lower":    strings.ToLower,
	"upper":    strings.ToUpper,
	"trim":     strings.TrimSpace,
	"contains": strings.Contains,
	"join":     strings.Join,
}

// Initial returns a fresh copy of the flow's default data for one run.
func (d *Definition) Initial() Data {
	if d.Defaults == nil {
		return Data{}
	}
	return maps.Clone(d.Defaults)
}

// RunConfig merges the definition's overrides over the engine defaults.
func (d *Definition) RunConfig() prompta.Config {
	cfg := prompta.DefaultConfig()
	if c := d.Config; c != nil {
		if c.ExitToken != nil {
			cfg.ExitToken = *c.ExitToken
		}
		cfg.ExitResponse = c.ExitResponse
		cfg.InactivityResponse = c.InactivityResponse
		if c.RejectionResponse != nil {
			cfg.RejectionResponse = *c.RejectionResponse
		}
	}
	return cfg
}

// Build compiles the definition into a conversation tree rooted at the
// start step. Each call produces a fresh tree, since trees mutate during a
// run. The registry resolves "@condition" and input transform names; nil is
// fine for flows that reference neither.
//
// A step reached through different conditions gets one node per distinct
// condition, all sharing the step's prompt, which keeps cycles finite and
// the run record keyed by step.
func (d *Definition) Build(reg *Registry) (*prompta.Node[Data], error) {
	if d.Start == "" {
		return nil, errors.New("flow has no start step")
	}
	if _, ok := d.Steps[d.Start]; !ok {
		return nil, fmt.Errorf("start step %q is not defined", d.Start)
	}

	b := &builder{
		def:     d,
		reg:     reg,
		prompts: make(map[string]*prompta.Prompt[Data], len(d.Steps)),
		nodes:   make(map[edgeKey]*prompta.Node[Data]),
		conds:   make(map[string]prompta.Condition[Data]),
	}
	for id, step := range d.Steps {
		p, err := b.prompt(step)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", id, err)
		}
		b.prompts[id] = p
	}
	return b.node(d.Start, "")
}

type edgeKey struct {
	id   string
	when string
}

type builder struct {
	def     *Definition
	reg     *Registry
	prompts map[string]*prompta.Prompt[Data]
	nodes   map[edgeKey]*prompta.Node[Data]
	conds   map[string]prompta.Condition[Data]
}

func (b *builder) prompt(step *Step) (*prompta.Prompt[Data], error) {
	gen, err := textGenerator(step)
	if err != nil {
		return nil, err
	}

	if step.Terminal {
		return prompta.NewTerminalPrompt(gen).Named(step.ID), nil
	}

	p := prompta.NewPrompt(gen).Named(step.ID)
	if in := step.Input; in != nil {
		transform, err := b.transform(in)
		if err != nil {
			return nil, err
		}
		p.WithTransform(transform)
		if in.Timeout > 0 {
			p.WithDuration(time.Duration(in.Timeout))
		}
	}
	return p, nil
}

// node builds (or reuses) the tree node for a step reached under the given
// condition. The node is memoized before its children are wired, so loops
// back into an already-built step close cleanly instead of recursing.
func (b *builder) node(id, when string) (*prompta.Node[Data], error) {
	key := edgeKey{id: id, when: when}
	if n, ok := b.nodes[key]; ok {
		return n, nil
	}

	step, ok := b.def.Steps[id]
	if !ok {
		return nil, fmt.Errorf("step %q is not defined", id)
	}

	node := prompta.NewNode(b.prompts[id])
	if when != "" {
		cond, err := b.condition(when)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", id, err)
		}
		node.When(cond)
	}
	b.nodes[key] = node

	if step.Terminal {
		return node, nil
	}
	for _, next := range step.Next {
		// An unconditioned branch among several siblings becomes an
		// always-true condition, preserving its fall-through role while
		// keeping the tree shape unambiguous.
		effective := next.When
		if effective == "" && len(step.Next) > 1 {
			effective = "true"
		}
		child, err := b.node(next.To, effective)
		if err != nil {
			return nil, err
		}
		node.AddChild(child)
	}
	return node, nil
}

func (b *builder) condition(when string) (prompta.Condition[Data], error) {
	if cond, ok := b.conds[when]; ok {
		return cond, nil
	}

	var cond prompta.Condition[Data]
	if name, ok := strings.CutPrefix(when, "@"); ok {
		if b.reg == nil {
			return nil, fmt.Errorf("condition @%s needs a registry", name)
		}
		registered, err := b.reg.Condition(name)
		if err != nil {
			return nil, err
		}
		cond = registered
	} else {
		compiled, err := exprCondition(when)
		if err != nil {
			return nil, err
		}
		cond = compiled
	}
	b.conds[when] = cond
	return cond, nil
}

func (b *builder) transform(in *Input) (prompta.Transform[Data], error) {
	if in.Transform != "" {
		if b.reg == nil {
			return nil, fmt.Errorf("transform %s needs a registry", in.Transform)
		}
		return b.reg.Transform(in.Transform)
	}
	if in.Var == "" {
		return nil, errors.New("input needs var or transform")
	}
	return captureTransform(in)
}

// captureTransform is the built-in input handler: optional pattern check,
// type conversion, then store under the input's var in a fresh copy of the
// data.
func captureTransform(in *Input) (prompta.Transform[Data], error) {
	var re *regexp.Regexp
	if in.Pattern != "" {
		compiled, err := regexp.Compile(in.Pattern)
		if err != nil {
			return nil, fmt.Errorf("input pattern: %w", err)
		}
		re = compiled
	}

	return func(_ context.Context, msg prompta.Message, data Data) (Data, error) {
		raw := strings.TrimSpace(msg.Content())
		if re != nil && !re.MatchString(raw) {
			return data, reject(in, "%q does not match the expected format", raw)
		}
		value, rej := convertInput(in, raw)
		if rej != nil {
			return data, rej
		}
		next := maps.Clone(data)
		if next == nil {
			next = Data{}
		}
		next[in.Var] = value
		return next, nil
	}, nil
}

func convertInput(in *Input, raw string) (any, *prompta.Rejection) {
	switch in.Type {
	case "", "text":
		return raw, nil
	case "number":
		if n, err := strconv.Atoi(raw); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		return nil, reject(in, "%q is not a number", raw)
	case "bool":
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		default:
			return nil, reject(in, "please answer yes or no")
		}
	default:
		// Unknown types are caught by Validate; treat as text here.
		return raw, nil
	}
}

func reject(in *Input, format string, args ...any) *prompta.Rejection {
	if in.Reject != "" {
		return &prompta.Rejection{Reason: in.Reject}
	}
	return prompta.Reject(format, args...)
}

func exprCondition(when string) (prompta.Condition[Data], error) {
	program, err := expr.Compile(when, expr.Env(Data{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", when, err)
	}
	return func(_ context.Context, data Data) (bool, error) {
		if data == nil {
			data = Data{}
		}
		output, err := expr.Run(program, data)
		if err != nil {
			return false, fmt.Errorf("eval condition %q: %w", when, err)
		}
		result, ok := output.(bool)
		if !ok {
			return false, fmt.Errorf("condition %q did not return bool (got %T)", when, output)
		}
		return result, nil
	}, nil
}

// textGenerator renders the step's text lines as templates against the
// conversation data, one visual per line.
func textGenerator(step *Step) (prompta.VisualGenerator[Data], error) {
	if len(step.Text) == 0 {
		return nil, nil
	}

	tmpls := make([]*template.Template, len(step.Text))
	for i, line := range step.Text {
		tmpl, err := parseTemplate(line)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i+1, err)
		}
		tmpls[i] = tmpl
	}

	return func(_ context.Context, data Data) ([]prompta.Visual, error) {
		visuals := make([]prompta.Visual, 0, len(tmpls))
		for _, tmpl := range tmpls {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return nil, fmt.Errorf("render text for %s: %w", step.ID, err)
			}
			visuals = append(visuals, prompta.TextVisual{Text: buf.String()})
		}
		return visuals, nil
	}, nil
}
