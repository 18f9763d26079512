// Package loam sources flow definitions from a loam markdown repository.
// One document is one step: front matter carries the step's wiring (input,
// branches, terminal flag), the markdown body is what the step says. The
// document named "start", or the one marking itself with start: true,
// opens the flow.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"

	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

// Loader reads flow definitions out of a loam repository.
type Loader struct {
	repo *loam.TypedRepository[StepMeta]
}

// New creates a Loader over an already initialized typed repository.
func New(repo *loam.TypedRepository[StepMeta]) *Loader {
	return &Loader{repo: repo}
}

// Open initializes a read-only loam repository at dir and wraps it in a
// Loader.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve flow directory: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[StepMeta](repo)), nil
}

// Load assembles every step document into one flow definition named name.
// The result is not validated; run flow.Definition.Validate before
// building trees from it.
func (l *Loader) Load(ctx context.Context, name string) (*flow.Definition, error) {
	docs, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("flow %s: repository holds no step documents", name)
	}

	def := &flow.Definition{Name: name, Steps: make(map[string]*flow.Step, len(docs))}
	metas := make(map[string]StepMeta, len(docs))
	seen := make(map[string]string)
	start := ""

	for _, doc := range docs {
		id := doc.Data.ID
		if id == "" {
			id = trimExtension(doc.ID)
		}
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("step id %q is defined by both %s and %s", id, existing, doc.ID)
		}
		seen[id] = doc.ID

		step, err := buildStep(id, doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}
		def.Steps[id] = step
		metas[id] = doc.Data

		if doc.Data.Start {
			if start != "" {
				return nil, fmt.Errorf("both %s and %s claim the start step", start, id)
			}
			start = id
		}
	}

	if start == "" {
		start = "start"
	}
	def.Start = start

	if meta, ok := metas[start]; ok {
		def.Defaults = meta.Defaults
		cfg, err := buildConfig(meta.Config)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", start, err)
		}
		def.Config = cfg
	}
	return def, nil
}

func buildStep(id string, meta StepMeta, content string) (*flow.Step, error) {
	step := &flow.Step{ID: id, Terminal: meta.Terminal}

	if text := strings.TrimSpace(content); text != "" {
		step.Text = flow.StringList{text}
	}

	if meta.Input != nil {
		input := &flow.Input{
			Var:       meta.Input.Var,
			Type:      meta.Input.Type,
			Pattern:   meta.Input.Pattern,
			Reject:    meta.Input.Reject,
			Transform: meta.Input.Transform,
		}
		if meta.Input.Timeout != "" {
			d, err := time.ParseDuration(meta.Input.Timeout)
			if err != nil {
				return nil, fmt.Errorf("step %s: parse input timeout: %w", id, err)
			}
			input.Timeout = flow.Duration(d)
		}
		step.Input = input
	}

	for _, n := range meta.Next {
		step.Next = append(step.Next, flow.Next{To: n.To, When: n.When})
	}
	return step, nil
}

func buildConfig(raw map[string]any) (*flow.RunConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var meta configMeta
	if err := mapstructure.Decode(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &flow.RunConfig{
		ExitToken:          meta.ExitToken,
		ExitResponse:       meta.ExitResponse,
		InactivityResponse: meta.InactivityResponse,
		RejectionResponse:  meta.RejectionResponse,
	}, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch reports the ids of changed step documents until ctx ends.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
