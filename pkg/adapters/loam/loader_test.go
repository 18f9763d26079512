package loam

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synzen/prompt-anything-sub000/internal/testutils"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t)
	for name, content := range files {
		testutils.WriteStepFile(t, dir, name, content)
	}
	return New(loam.NewTypedRepository[StepMeta](repo))
}

func TestLoader_Load_BuildsDefinition(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"start.md": `---
next:
  - to: ask_name
---
Welcome to signup.`,
		"ask_name.md": `---
input:
  var: name
  reject: A name cannot be empty.
  timeout: 90s
next:
  - to: done
---
What is your name?`,
		"done.md": `---
terminal: true
---
All set.`,
	})

	def, err := loader.Load(context.Background(), "signup")
	require.NoError(t, err)

	assert.Equal(t, "signup", def.Name)
	assert.Equal(t, "start", def.Start)
	require.Len(t, def.Steps, 3)

	greet := def.Steps["start"]
	require.NotNil(t, greet)
	assert.Equal(t, flow.StringList{"Welcome to signup."}, greet.Text)
	assert.Nil(t, greet.Input)
	require.Len(t, greet.Next, 1)
	assert.Equal(t, "ask_name", greet.Next[0].To)

	ask := def.Steps["ask_name"]
	require.NotNil(t, ask)
	require.NotNil(t, ask.Input)
	assert.Equal(t, "name", ask.Input.Var)
	assert.Equal(t, "A name cannot be empty.", ask.Input.Reject)
	assert.Equal(t, flow.Duration(90*time.Second), ask.Input.Timeout)

	done := def.Steps["done"]
	require.NotNil(t, done)
	assert.True(t, done.Terminal)
	assert.Equal(t, flow.StringList{"All set."}, done.Text)

	// The assembled definition must hold up to the same checks a YAML
	// flow goes through.
	require.NoError(t, def.Validate())
}

func TestLoader_Load_NormalizesIDs(t *testing.T) {
	// One id implied by the filename, one declared in front matter.
	loader := newLoader(t, map[string]string{
		"greet.md": `---
next:
  - to: ask
---
Hello`,
		"probe.json": `{
  "id": "ask",
  "start": false,
  "input": { "var": "answer" }
}`,
	})

	def, err := loader.Load(context.Background(), "probe")
	require.NoError(t, err)

	require.Len(t, def.Steps, 2)
	assert.Contains(t, def.Steps, "greet", "greet.md should become greet")
	assert.Contains(t, def.Steps, "ask", "front matter id wins over the filename")
	assert.NotContains(t, def.Steps, "probe")
	assert.Equal(t, "answer", def.Steps["ask"].Input.Var)
}

func TestLoader_Load_DetectsCollisions(t *testing.T) {
	// Two documents resolving to the same step id.
	loader := newLoader(t, map[string]string{
		"foo.md": `---
id: foo
---
Explicit id`,
		"foo.json": `{ "id": "foo" }`,
	})

	_, err := loader.Load(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step id "foo" is defined by both`)
}

func TestLoader_Load_StartFlag(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"welcome.md": `---
start: true
next:
  - to: bye
---
Hi there.`,
		"bye.md": `---
terminal: true
---
Bye.`,
	})

	def, err := loader.Load(context.Background(), "flagged")
	require.NoError(t, err)
	assert.Equal(t, "welcome", def.Start)
	require.NoError(t, def.Validate())
}

func TestLoader_Load_RejectsTwoStartClaims(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"a.md": `---
start: true
---
A`,
		"b.md": `---
start: true
---
B`,
	})

	_, err := loader.Load(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim the start step")
}

func TestLoader_Load_StartStepCarriesDefaultsAndConfig(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"start.md": `---
defaults:
  channel: console
config:
  exit_token: quit
  rejection_response: Try once more.
next:
  - to: bye
---
Hi.`,
		"bye.md": `---
terminal: true
defaults:
  ignored: true
---
Bye.`,
	})

	def, err := loader.Load(context.Background(), "configured")
	require.NoError(t, err)

	// Flow-level metadata rides on the start step only.
	assert.Equal(t, flow.Data{"channel": "console"}, def.Defaults)

	require.NotNil(t, def.Config)
	require.NotNil(t, def.Config.ExitToken)
	assert.Equal(t, "quit", *def.Config.ExitToken)
	require.NotNil(t, def.Config.RejectionResponse)
	assert.Equal(t, "Try once more.", *def.Config.RejectionResponse)

	cfg := def.RunConfig()
	assert.Equal(t, "quit", cfg.ExitToken)
	assert.Equal(t, "Try once more.", cfg.RejectionResponse)
	assert.Empty(t, cfg.ExitResponse)
}

func TestLoader_Load_BadInputTimeout(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"ask.md": `---
input:
  var: x
  timeout: soon
---
How long?`,
	})

	_, err := loader.Load(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse input timeout")
}

func TestLoader_Load_EmptyRepository(t *testing.T) {
	loader := newLoader(t, nil)

	_, err := loader.Load(context.Background(), "empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no step documents")
}

func TestOpen_ReadsFlowDirectory(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t)
	testutils.WriteStepFile(t, dir, "start.md", `---
terminal: true
---
One and done.`)

	loader, err := Open(dir)
	require.NoError(t, err)

	def, err := loader.Load(context.Background(), "tiny")
	require.NoError(t, err)
	assert.Equal(t, "start", def.Start)
	assert.True(t, def.Steps["start"].Terminal)
}
