package console

import (
	"context"
	"sync"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// Collect returns a collector factory that reads lines from the console
// channel. The input marker prints once when a cycle opens; the line
// reader underneath is shared across cycles.
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
	c.startPump()
	c.printMarker()
	col := &collector{
		ch:   c,
		out:  make(chan prompta.Message),
		stop: make(chan struct{}),
	}
	go col.run()
	return col
}

// run forwards buffered lines until the reader ends or Stop is called. A
// line popped but not yet delivered when Stop lands is requeued so the
// next collector starts where this one left off.
func (col *collector) run() {
	for {
		line, ok, closed, err, wait := col.ch.dequeue()
		switch {
		case ok:
			select {
			case col.out <- Message{Text: line}:
			case <-col.stop:
				col.ch.requeueFront(line)
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
