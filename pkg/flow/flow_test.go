package flow_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

const onboardingYAML = `
name: onboarding
start: ask-name
defaults:
  source: test
config:
  rejection_response: "Sorry, try again."
steps:
  ask-name:
    text: "What is your name?"
    input:
      var: name
      pattern: \S
      reject: "A name cannot be empty."
    next:
      - to: ask-age
  ask-age:
    text:
      - "Hi {{.name}}!"
      - "How old are you?"
    input:
      var: age
      type: number
      timeout: 90s
    next:
      - to: adult
        when: age >= 18
      - to: minor
  minor:
    text: "Come back when you are older."
    terminal: true
  adult:
    text: "Welcome, {{.name}}."
    terminal: true
`

func TestParse_Onboarding(t *testing.T) {
	def, err := flow.Parse([]byte(onboardingYAML))
	require.NoError(t, err)

	assert.Equal(t, "onboarding", def.Name)
	assert.Equal(t, "ask-name", def.Start)
	assert.Equal(t, flow.Data{"source": "test"}, def.Defaults)
	require.NotNil(t, def.Config)
	require.NotNil(t, def.Config.RejectionResponse)
	assert.Equal(t, "Sorry, try again.", *def.Config.RejectionResponse)

	require.Len(t, def.Steps, 4)
	askName := def.Steps["ask-name"]
	require.NotNil(t, askName)
	assert.Equal(t, "ask-name", askName.ID, "ids are derived from the step keys")
	assert.Equal(t, flow.StringList{"What is your name?"}, askName.Text, "scalar text becomes a one-line list")

	askAge := def.Steps["ask-age"]
	assert.Len(t, askAge.Text, 2)
	require.NotNil(t, askAge.Input)
	assert.Equal(t, "number", askAge.Input.Type)
	assert.Equal(t, flow.Duration(90*time.Second), askAge.Input.Timeout)

	assert.True(t, def.Steps["adult"].Terminal)
}

func TestParse_StartDefaultsToStepNamedStart(t *testing.T) {
	def, err := flow.Parse([]byte("steps:\n  start:\n    text: hi\n"))
	require.NoError(t, err)
	assert.Equal(t, "start", def.Start)
}

func TestParse_Malformed(t *testing.T) {
	_, err := flow.Parse([]byte("steps: [not, a, map]"))
	assert.Error(t, err)

	_, err = flow.Parse([]byte("steps:\n  hollow:\n"))
	assert.Error(t, err, "an empty step body is a defect, not a default")
}

func TestParse_BadDuration(t *testing.T) {
	_, err := flow.Parse([]byte("steps:\n  s:\n    input: {var: x, timeout: soon}\n"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(onboardingYAML), 0o644))

	def, err := flow.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "onboarding", def.Name)

	_, err = flow.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_AcceptsOnboarding(t *testing.T) {
	def, err := flow.Parse([]byte(onboardingYAML))
	require.NoError(t, err)
	assert.NoError(t, def.Validate())
}

func TestValidate_ReportsShapeDefects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no steps",
			yaml: "name: empty\n",
			want: "no steps",
		},
		{
			name: "missing start",
			yaml: "start: nowhere\nsteps:\n  here:\n    text: hi\n",
			want: `start step "nowhere" is not defined`,
		},
		{
			name: "undefined next target",
			yaml: "steps:\n  start:\n    text: hi\n    next:\n      - to: ghost\n",
			want: `undefined step "ghost"`,
		},
		{
			name: "terminal with input",
			yaml: "steps:\n  start:\n    text: bye\n    terminal: true\n    input: {var: x}\n",
			want: "terminal and cannot take input",
		},
		{
			name: "input without var or transform",
			yaml: "steps:\n  start:\n    text: hi\n    input: {type: text}\n",
			want: "needs var or transform",
		},
		{
			name: "input with both var and transform",
			yaml: "steps:\n  start:\n    text: hi\n    input: {var: x, transform: custom}\n",
			want: "not both",
		},
		{
			name: "unknown input type",
			yaml: "steps:\n  start:\n    text: hi\n    input: {var: x, type: blob}\n",
			want: "unknown",
		},
		{
			name: "bad pattern",
			yaml: "steps:\n  start:\n    text: hi\n    input: {var: x, pattern: '['}\n",
			want: "pattern",
		},
		{
			name: "bad condition",
			yaml: "steps:\n  start:\n    text: hi\n    next:\n      - to: start\n        when: \"age >\"\n",
			want: "condition",
		},
		{
			name: "bad template",
			yaml: "steps:\n  start:\n    text: \"{{.name\"\n",
			want: "text 1",
		},
		{
			name: "unconditioned branch shadowing later ones",
			yaml: "steps:\n  start:\n    text: hi\n    next:\n      - to: a\n      - to: b\n        when: \"true\"\n  a:\n    text: a\n  b:\n    text: b\n",
			want: "never be reached",
		},
		{
			name: "unreachable step",
			yaml: "steps:\n  start:\n    text: hi\n  island:\n    text: lost\n",
			want: "unreachable",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def, err := flow.Parse([]byte(tc.yaml))
			require.NoError(t, err)
			err = def.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
