/*
Package prompta is a conversation-flow engine: it walks a tree of
conversational steps, sending each step's visual through a channel,
collecting and validating one response, then branching on declared
conditions until no eligible step remains. The same core can back a chat
bot, a console wizard, or any turn-based interactive agent.

# Concept

A Prompt owns one turn: visual generation plus the collect state machine
(accept, reject-and-retry, voluntary exit, inactivity timeout). A Node
places a prompt in the tree with its branch condition and children. The
Runner validates the tree shape up front, then performs the single-path
traversal, threading a caller-defined data value of type T through every
transform and condition. Transports plug in through two small seams: a
Channel that delivers visuals, and a CollectorFactory that sources inbound
messages.

# Usage

	package main

	import (
		"context"
		"fmt"
		"strconv"

		prompta "github.com/synzen/prompt-anything-sub000"
		"github.com/synzen/prompt-anything-sub000/pkg/adapters/console"
	)

	type Answers struct {
		Name string
		Age  int
	}

	func main() {
		askName := prompta.NewPrompt(prompta.Text[Answers]("What is your name?")).
			Named("askName").
			WithTransform(func(_ context.Context, msg prompta.Message, data Answers) (Answers, error) {
				data.Name = msg.Content()
				return data, nil
			})

		askAge := prompta.NewPrompt(func(_ context.Context, data Answers) ([]prompta.Visual, error) {
			return []prompta.Visual{prompta.TextVisual{Text: "How old are you, " + data.Name + "?"}}, nil
		}).
			Named("askAge").
			WithTransform(func(_ context.Context, msg prompta.Message, data Answers) (Answers, error) {
				age, err := strconv.Atoi(msg.Content())
				if err != nil {
					return data, prompta.Reject("%q is not a number", msg.Content())
				}
				data.Age = age
				return data, nil
			})

		adult := prompta.NewPrompt(prompta.Text[Answers]("Welcome aboard.")).Named("adult")
		minor := prompta.NewPrompt(prompta.Text[Answers]("Come back when you are older.")).Named("minor")

		root := prompta.NewNode(askName).SetChildren(
			prompta.NewNode(askAge).SetChildren(
				prompta.NewNode(adult).When(func(_ context.Context, d Answers) (bool, error) {
					return d.Age >= 18, nil
				}),
				prompta.NewNode(minor).When(func(_ context.Context, d Answers) (bool, error) {
					return d.Age < 18, nil
				}),
			),
		)

		ch := console.New()
		runner := prompta.NewRunner(Answers{}).WithCollectorFactory(console.Collect[Answers](ch))
		answers, err := runner.Run(context.Background(), root, ch)
		if err != nil {
			panic(err)
		}
		fmt.Printf("collected: %+v\n", answers)
	}

Trees carry per-run state: a voluntary exit or an inactivity timeout clears
the open node's children so the traversal ends there. Build a fresh tree
per run; pkg/flow builds one from a declarative definition on every call.

# Outcomes and errors

Each collect cycle resolves with exactly one terminal Outcome. A transform
signals recoverably invalid input by returning *Rejection; the reason is
sent back as feedback and the cycle stays open. Any other transform error,
any send failure, and any collector failure abort the run and propagate to
the caller unhandled. Tree-shape defects are reported by Validate (and by
Run, before anything is sent) as configuration errors, never as runtime
faults.
*/
package prompta
