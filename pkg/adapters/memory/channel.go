// Package memory provides an in-memory Channel and Collector pair for
// tests and examples: outbound visuals are captured, inbound messages are
// scripted ahead of time (optionally delayed) and consumed in order across
// successive collect cycles.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// Message is the minimal message record the adapter produces.
type Message struct {
	Text string
}

// Content implements prompta.Message.
func (m Message) Content() string { return m.Text }

type queued struct {
	content string
	after   time.Duration
}

// Channel is a scripted conversation peer. Queue inbound messages up
// front (or from a test goroutine mid-run); collectors created through
// Collect consume them in order. Safe for concurrent use.
type Channel struct {
	mu       sync.Mutex
	sent     []prompta.Visual
	queue    []queued
	arrived  chan struct{}
	closed   bool
	closeErr error
	sendErr  error
	collects int
}

// New returns an empty scripted channel.
func New() *Channel {
	return &Channel{arrived: make(chan struct{})}
}

// Send captures the visual and echoes its rendered text back as the sent
// message record.
func (c *Channel) Send(_ context.Context, v prompta.Visual) (prompta.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, v)
	return Message{Text: renderText(v)}, nil
}

// FailSends makes every subsequent Send return err. Pass nil to heal.
func (c *Channel) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Queue appends inbound messages delivered as fast as a collector asks.
func (c *Channel) Queue(contents ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, content := range contents {
		c.queue = append(c.queue, queued{content: content})
	}
	c.signal()
}

// QueueAfter appends one inbound message that a collector holds back for d
// before delivering.
func (c *Channel) QueueAfter(d time.Duration, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, queued{content: content, after: d})
	c.signal()
}

// Close ends the inbound script gracefully: once the queue drains, open
// collectors close their stream with no error (the engine reads that as a
// voluntary exit).
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.signal()
}

// Fail ends the inbound script with a collector error.
func (c *Channel) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeErr = err
	c.signal()
}

// Sent returns a copy of every visual delivered so far.
func (c *Channel) Sent() []prompta.Visual {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]prompta.Visual, len(c.sent))
	copy(out, c.sent)
	return out
}

// SentTexts returns the rendered text of every sent visual.
func (c *Channel) SentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, v := range c.sent {
		out[i] = renderText(v)
	}
	return out
}

// CollectCalls reports how many collectors were constructed.
func (c *Channel) CollectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collects
}

// signal wakes waiting collectors. Callers hold c.mu.
func (c *Channel) signal() {
	close(c.arrived)
	c.arrived = make(chan struct{})
}

// dequeue pops the next scripted message. The second return is false when
// nothing is queued; wait is the channel to block on for the next signal.
func (c *Channel) dequeue() (msg queued, ok bool, closed bool, err error, wait <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) > 0 {
		msg = c.queue[0]
		c.queue = c.queue[1:]
		return msg, true, false, nil, nil
	}
	if c.closed {
		return queued{}, false, true, c.closeErr, nil
	}
	return queued{}, false, false, nil, c.arrived
}

// requeueFront puts a popped-but-undelivered message back.
func (c *Channel) requeueFront(msg queued) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append([]queued{msg}, c.queue...)
	c.signal()
}

func renderText(v prompta.Visual) string {
	switch vv := v.(type) {
	case prompta.TextVisual:
		return vv.Text
	case fmt.Stringer:
		return vv.String()
	case string:
		return vv
	default:
		return fmt.Sprintf("%v", vv)
	}
}
