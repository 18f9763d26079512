package flow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/pkg/adapters/memory"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

func mustParse(t *testing.T, yaml string) *flow.Definition {
	t.Helper()
	def, err := flow.Parse([]byte(yaml))
	require.NoError(t, err)
	require.NoError(t, def.Validate())
	return def
}

func runFlow(t *testing.T, def *flow.Definition, reg *flow.Registry, ch *memory.Channel) (flow.Data, *prompta.Runner[flow.Data]) {
	t.Helper()
	root, err := def.Build(reg)
	require.NoError(t, err)

	runner := prompta.NewRunner(def.Initial()).
		WithCollectorFactory(memory.Collect[flow.Data](ch)).
		WithConfig(def.RunConfig())
	data, err := runner.Run(context.Background(), root, ch)
	require.NoError(t, err)
	return data, runner
}

func TestBuild_OnboardingEndToEnd(t *testing.T) {
	def := mustParse(t, onboardingYAML)
	ch := memory.New()
	ch.Queue("   ", "George", "abc", "30")

	data, runner := runFlow(t, def, nil, ch)

	assert.Equal(t, "George", data["name"])
	assert.Equal(t, 30, data["age"])
	assert.Equal(t, "test", data["source"], "defaults are carried into the run")

	assert.Equal(t, []string{
		"What is your name?",
		"A name cannot be empty.",
		"Hi George!",
		"How old are you?",
		`"abc" is not a number`,
		"Welcome, George.",
	}, ch.SentTexts())

	ran := runner.Ran()
	require.Len(t, ran, 2, "terminal steps stay out of the run record")
	assert.Equal(t, "ask-name", ran[0].Name())
	assert.Equal(t, "ask-age", ran[1].Name())
}

func TestBuild_FallbackBranch(t *testing.T) {
	def := mustParse(t, onboardingYAML)
	ch := memory.New()
	ch.Queue("Ada", "15")

	data, _ := runFlow(t, def, nil, ch)

	assert.Equal(t, 15, data["age"])
	assert.Contains(t, ch.SentTexts(), "Come back when you are older.")
	assert.NotContains(t, ch.SentTexts(), "Welcome, Ada.")
}

func TestBuild_CustomRejectionResponseFromConfig(t *testing.T) {
	def := mustParse(t, `
steps:
  start:
    text: "Number?"
    input: {var: n, type: number}
`)
	cfg := def.RunConfig()
	assert.Equal(t, prompta.DefaultConfig(), cfg, "no config section keeps the defaults")

	def = mustParse(t, `
config:
  exit_token: ""
  rejection_response: "Nope."
  exit_response: "Bye."
steps:
  start:
    text: "Number?"
    input: {var: n, type: number}
`)
	cfg = def.RunConfig()
	assert.Empty(t, cfg.ExitToken, "an explicitly empty exit token disables voluntary exit")
	assert.Equal(t, "Nope.", cfg.RejectionResponse)
	assert.Equal(t, "Bye.", cfg.ExitResponse)
}

func TestBuild_CyclicFlow(t *testing.T) {
	def := mustParse(t, `
name: gate
start: ask
steps:
  ask:
    text: "Password?"
    input: {var: guess}
    next:
      - to: done
        when: guess == "sesame"
      - to: wrong
  wrong:
    text: "Wrong."
    next:
      - to: ask
  done:
    text: "Correct!"
    terminal: true
`)
	ch := memory.New()
	ch.Queue("open", "sesame")

	data, runner := runFlow(t, def, nil, ch)

	assert.Equal(t, "sesame", data["guess"])
	assert.Equal(t, []string{"Password?", "Wrong.", "Password?", "Correct!"}, ch.SentTexts())

	names := make([]string, 0, 3)
	for _, p := range runner.Ran() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"ask", "wrong", "ask"}, names, "a revisited step is recorded per visit")
}

func TestBuild_RegistryTransformAndCondition(t *testing.T) {
	def := mustParse(t, `
start: ask
steps:
  ask:
    text: "Invite code?"
    input: {transform: redeem-code}
    next:
      - to: vip
        when: "@is-vip"
      - to: plain
  vip:
    text: "Champagne is on the left."
    terminal: true
  plain:
    text: "Welcome."
    terminal: true
`)

	reg := flow.NewRegistry()
	reg.RegisterTransform("redeem-code", func(_ context.Context, msg prompta.Message, data flow.Data) (flow.Data, error) {
		code := strings.TrimSpace(msg.Content())
		if len(code) != 6 {
			return data, prompta.Reject("codes have six characters")
		}
		next := flow.Data{"code": code, "vip": strings.HasPrefix(code, "VIP")}
		return next, nil
	})
	reg.RegisterCondition("is-vip", func(_ context.Context, data flow.Data) (bool, error) {
		v, _ := data["vip"].(bool)
		return v, nil
	})

	ch := memory.New()
	ch.Queue("nah", "VIP123")

	data, _ := runFlow(t, def, reg, ch)
	assert.Equal(t, "VIP123", data["code"])
	assert.Contains(t, ch.SentTexts(), "codes have six characters")
	assert.Contains(t, ch.SentTexts(), "Champagne is on the left.")
}

func TestBuild_RegistryNamesMustResolve(t *testing.T) {
	def := mustParse(t, `
start: ask
steps:
  ask:
    text: hi
    input: {transform: nope}
`)
	_, err := def.Build(flow.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, err = def.Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry")
}

func TestBuild_FreshTreePerCall(t *testing.T) {
	def := mustParse(t, onboardingYAML)
	first, err := def.Build(nil)
	require.NoError(t, err)
	second, err := def.Build(nil)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestInitial_ReturnsACopy(t *testing.T) {
	def := mustParse(t, onboardingYAML)
	data := def.Initial()
	data["source"] = "mutated"

	again := def.Initial()
	assert.Equal(t, "test", again["source"])
}

func TestBuild_TemplateRenderFailureIsFatal(t *testing.T) {
	def := mustParse(t, `
start: greet
steps:
  greet:
    text: "Hello {{.missing}}!"
`)
	root, err := def.Build(nil)
	require.NoError(t, err)

	ch := memory.New()
	runner := prompta.NewRunner(def.Initial()).WithConfig(def.RunConfig())
	_, err = runner.Run(context.Background(), root, ch)
	require.Error(t, err, "missing data keys fail the render rather than printing <no value>")
	assert.Contains(t, err.Error(), "greet")
}
