package memory

import (
	"context"
	"sync"
	"time"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// Collect returns a collector factory backed by the scripted channel. The
// data snapshot and channel handed over by the engine are ignored: the
// script alone drives what arrives.
func Collect[T any](c *Channel) prompta.CollectorFactory[T] {
	return func(context.Context, prompta.Channel, T) (prompta.Collector, error) {
		return c.newCollector(), nil
	}
}

type collector struct {
	ch       *Channel
	out      chan prompta.Message
	stop     chan struct{}
	stopOnce sync.Once
	err      error
}

func (c *Channel) newCollector() *collector {
	c.mu.Lock()
	c.collects++
	c.mu.Unlock()
	col := &collector{
		ch:   c,
		out:  make(chan prompta.Message),
		stop: make(chan struct{}),
	}
	go col.run()
	return col
}

// run pumps scripted messages until the script closes or Stop is called.
// A message popped but not yet delivered when Stop lands is requeued so
// the next collector starts where this one left off.
func (col *collector) run() {
	for {
		msg, ok, closed, err, wait := col.ch.dequeue()
		switch {
		case ok:
			if msg.after > 0 {
				timer := time.NewTimer(msg.after)
				select {
				case <-timer.C:
				case <-col.stop:
					timer.Stop()
					col.ch.requeueFront(msg)
					return
				}
			}
			select {
			case col.out <- Message{Text: msg.content}:
			case <-col.stop:
				col.ch.requeueFront(msg)
				return
			}
		case closed:
			col.err = err
			close(col.out)
			return
		default:
			select {
			case <-wait:
			case <-col.stop:
				return
			}
		}
	}
}

// Messages implements prompta.Collector.
func (col *collector) Messages() <-chan prompta.Message { return col.out }

// Stop implements prompta.Collector. Safe to call more than once.
func (col *collector) Stop() {
	col.stopOnce.Do(func() { close(col.stop) })
}

// Err implements prompta.Collector.
func (col *collector) Err() error { return col.err }
