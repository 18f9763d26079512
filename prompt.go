package prompta

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Prompt is one turn of a conversation: it owns visual generation and the
// send/collect state machine. The tree shape lives on Node, so a single
// Prompt instance may sit under several parents and be reused across runs;
// its message log is then shared, append-only history.
//
// Configuration is chainable: NewPrompt(...).WithTransform(fn).WithDuration(d).
type Prompt[T any] struct {
	name      string
	visual    VisualGenerator[T]
	transform Transform[T]
	duration  time.Duration
	factory   CollectorFactory[T]
	terminal  bool

	mu  sync.Mutex
	log []Exchange
}

// Exchange is one entry of a prompt's message log.
type Exchange struct {
	Message  Message
	FromUser bool
	At       time.Time
}

// NewPrompt builds a prompt that sends the generator's visuals and, once a
// transform is attached, collects one response.
func NewPrompt[T any](visual VisualGenerator[T]) *Prompt[T] {
	return &Prompt[T]{visual: visual}
}

// NewTerminalPrompt builds a prompt that only renders a final message: the
// runner sends its visuals and stops without collecting, even if a
// transform or children are present.
func NewTerminalPrompt[T any](visual VisualGenerator[T]) *Prompt[T] {
	return &Prompt[T]{visual: visual, terminal: true}
}

// Named sets the prompt's name, used in logs, hooks and error messages.
func (p *Prompt[T]) Named(name string) *Prompt[T] {
	p.name = name
	return p
}

// WithTransform attaches the function that turns an accepted message plus
// the prior data into new data. Without a transform the prompt is
// display-only: collect resolves immediately and no collector is built.
func (p *Prompt[T]) WithTransform(fn Transform[T]) *Prompt[T] {
	p.transform = fn
	return p
}

// WithDuration sets the collection timeout. Zero (the default) waits
// forever.
func (p *Prompt[T]) WithDuration(d time.Duration) *Prompt[T] {
	p.duration = d
	return p
}

// WithCollector sets a factory used for this prompt only, overriding the
// runner's factory.
func (p *Prompt[T]) WithCollector(factory CollectorFactory[T]) *Prompt[T] {
	p.factory = factory
	return p
}

// Name returns the prompt's name, which may be empty.
func (p *Prompt[T]) Name() string { return p.name }

// Terminal reports whether this prompt declines collection entirely.
func (p *Prompt[T]) Terminal() bool { return p.terminal }

// Visuals invokes the generator with the current data. A prompt without a
// generator yields no visuals.
func (p *Prompt[T]) Visuals(ctx context.Context, data T) ([]Visual, error) {
	if p.visual == nil {
		return nil, nil
	}
	return p.visual(ctx, data)
}

// Messages returns a copy of the prompt's message log in append order.
func (p *Prompt[T]) Messages() []Exchange {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Exchange, len(p.log))
	copy(out, p.log)
	return out
}

func (p *Prompt[T]) label() string {
	if p.name == "" {
		return "prompt"
	}
	return p.name
}

func (p *Prompt[T]) record(msg Message, fromUser bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, Exchange{Message: msg, FromUser: fromUser, At: time.Now()})
}

// send delivers one visual and records the resulting message as
// bot-originated. Send failures are not retried.
func (p *Prompt[T]) send(ctx context.Context, ch Channel, v Visual) (Message, error) {
	msg, err := ch.Send(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("send visual for %s: %w", p.label(), err)
	}
	p.record(msg, false)
	return msg, nil
}

// sendVisuals resolves the prompt's visuals and delivers each in declared
// order. The first failure propagates to the caller.
func (p *Prompt[T]) sendVisuals(ctx context.Context, ch Channel, data T, env *runEnv[T]) error {
	visuals, err := p.Visuals(ctx, data)
	if err != nil {
		return fmt.Errorf("generate visuals for %s: %w", p.label(), err)
	}
	for _, v := range visuals {
		if _, err := p.send(ctx, ch, v); err != nil {
			return err
		}
	}
	env.logger.DebugContext(ctx, "visuals sent", "prompt", p.label(), "count", len(visuals))
	if env.hooks.OnSend != nil {
		env.hooks.OnSend(ctx, &SendEvent{Prompt: p.name, Visuals: len(visuals)})
	}
	return nil
}

// collect runs one collection cycle against the channel. It returns the
// resulting data, whether the owning node's children must be cleared
// (voluntary exit or inactivity), and a fatal error if the cycle failed.
//
// A prompt without a transform resolves immediately with data unchanged and
// never constructs a collector.
func (p *Prompt[T]) collect(ctx context.Context, ch Channel, data T, env *runEnv[T]) (T, bool, error) {
	if p.transform == nil {
		return data, false, nil
	}

	factory := p.factory
	if factory == nil {
		factory = env.factory
	}
	if factory == nil {
		return data, false, fmt.Errorf("%s: %w", p.label(), ErrNoCollectorFactory)
	}

	col, err := factory(ctx, ch, data)
	if err != nil {
		return data, false, fmt.Errorf("create collector for %s: %w", p.label(), err)
	}
	defer col.Stop()

	start := time.Now()
	res := p.await(ctx, ch, col, data, env)

	env.logger.DebugContext(ctx, "collect resolved",
		"prompt", p.label(),
		"outcome", res.kind,
		"rejections", res.rejections,
		"elapsed", time.Since(start),
	)
	if env.hooks.OnResolve != nil {
		env.hooks.OnResolve(ctx, &ResolveEvent{
			Prompt:     p.name,
			Outcome:    res.kind,
			Rejections: res.rejections,
			Elapsed:    time.Since(start),
			Err:        res.err,
		})
	}

	switch res.kind {
	case OutcomeAccept:
		return res.data, false, nil
	case OutcomeExit, OutcomeInactivity:
		return data, true, nil
	default:
		return data, false, res.err
	}
}

type awaitResult[T any] struct {
	kind       Outcome
	data       T
	err        error
	rejections int
}

// await is the single point the cycle blocks on. The timeout is armed once
// when the loop starts and stopped when it returns, so it can never fire
// after the cycle has resolved. Rejections keep the loop open and do not
// reset the timer; messages are handled strictly in arrival order, one
// transform evaluation at a time.
func (p *Prompt[T]) await(ctx context.Context, ch Channel, col Collector, data T, env *runEnv[T]) awaitResult[T] {
	var timeout <-chan time.Time
	if p.duration > 0 {
		timer := time.NewTimer(p.duration)
		defer timer.Stop()
		timeout = timer.C
	}

	res := awaitResult[T]{}
	for {
		select {
		case <-ctx.Done():
			res.kind, res.err = OutcomeError, ctx.Err()
			return res

		case <-timeout:
			if env.cfg.InactivityResponse != "" {
				if _, err := p.send(ctx, ch, TextVisual{Text: env.cfg.InactivityResponse}); err != nil {
					res.kind, res.err = OutcomeError, err
					return res
				}
			}
			res.kind = OutcomeInactivity
			return res

		case msg, ok := <-col.Messages():
			if !ok {
				if err := col.Err(); err != nil {
					res.kind, res.err = OutcomeError, fmt.Errorf("collector for %s: %w", p.label(), err)
					return res
				}
				// Graceful end of input resolves like a voluntary exit,
				// with no message to record.
				res.kind = OutcomeExit
				return res
			}

			if env.cfg.matchesExit(msg.Content()) {
				p.record(msg, true)
				if env.cfg.ExitResponse != "" {
					if _, err := p.send(ctx, ch, TextVisual{Text: env.cfg.ExitResponse}); err != nil {
						res.kind, res.err = OutcomeError, err
						return res
					}
				}
				res.kind = OutcomeExit
				return res
			}

			newData, err := p.transform(ctx, msg, data)
			if err != nil {
				var rej *Rejection
				if !errors.As(err, &rej) {
					res.kind, res.err = OutcomeError, fmt.Errorf("transform for %s: %w", p.label(), err)
					return res
				}

				p.record(msg, true)
				res.rejections++
				env.logger.DebugContext(ctx, "input rejected",
					"prompt", p.label(), "reason", rej.Reason, "attempt", res.rejections)
				if env.hooks.OnResolve != nil {
					env.hooks.OnResolve(ctx, &ResolveEvent{
						Prompt:     p.name,
						Outcome:    OutcomeReject,
						Rejections: res.rejections,
						Err:        rej,
					})
				}

				feedback := rej.Reason
				if feedback == "" {
					feedback = env.cfg.RejectionResponse
				}
				if feedback != "" {
					if _, err := p.send(ctx, ch, TextVisual{Text: feedback}); err != nil {
						res.kind, res.err = OutcomeError, err
						return res
					}
				}
				continue
			}

			p.record(msg, true)
			res.kind, res.data = OutcomeAccept, newData
			return res
		}
	}
}
