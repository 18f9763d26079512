// Package console adapts the engine to an interactive terminal: visuals
// print to the output writer, optionally through a markdown renderer, and
// collectors read the user's lines from the input reader. One Channel
// serves the whole run; the line reader starts on the first collect cycle
// and is shared by every cycle after it, so typed-ahead input is never
// lost between steps.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// Renderer transforms outbound text before it is printed. A rendering
// error falls back to the raw text.
type Renderer func(string) (string, error)

// Message is the message record for one console line.
type Message struct {
	Text string
}

// Content implements prompta.Message.
func (m Message) Content() string { return m.Text }

// Option configures a Channel.
type Option func(*Channel)

// WithInput sets the reader lines come from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(c *Channel) { c.in = r }
}

// WithOutput sets the writer visuals print to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Channel) { c.out = w }
}

// WithRenderer applies a renderer to every outbound text, for example a
// glamour markdown renderer.
func WithRenderer(render Renderer) Option {
	return func(c *Channel) { c.renderer = render }
}

// WithMarker overrides the input marker printed when a collect cycle
// opens. Defaults to "> "; empty disables it.
func WithMarker(marker string) Option {
	return func(c *Channel) { c.marker = marker }
}

// Channel is a terminal-backed conversation peer. Safe for concurrent use.
type Channel struct {
	in       io.Reader
	out      io.Writer
	renderer Renderer
	marker   string
	profile  termenv.Profile

	mu       sync.Mutex
	queue    []string
	arrived  chan struct{}
	closed   bool
	closeErr error

	pumpOnce sync.Once
}

// New returns a Channel bound to stdin and stdout unless options say
// otherwise. The input marker is styled only when output is a terminal.
func New(opts ...Option) *Channel {
	c := &Channel{
		in:      os.Stdin,
		out:     os.Stdout,
		marker:  "> ",
		profile: termenv.Ascii,
		arrived: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if f, ok := c.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.profile = termenv.ColorProfile()
	}
	return c
}

// Send prints the visual's text, one line per visual. The returned record
// carries the unstyled text, not what the renderer made of it.
func (c *Channel) Send(_ context.Context, v prompta.Visual) (prompta.Message, error) {
	text := strings.TrimSpace(renderText(v))
	output := text
	if c.renderer != nil {
		if rendered, err := c.renderer(text); err == nil {
			output = strings.TrimSpace(rendered)
		}
	}
	if _, err := fmt.Fprintln(c.out, output); err != nil {
		return nil, fmt.Errorf("write visual: %w", err)
	}
	return Message{Text: text}, nil
}

func (c *Channel) startPump() {
	c.pumpOnce.Do(func() { go c.pump() })
}

// pump reads lines until the reader ends. EOF closes the inbound stream
// gracefully; any other read error closes it fatally.
func (c *Channel) pump() {
	reader := bufio.NewReader(c.in)
	for {
		line, err := reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if text != "" || err == nil {
			c.enqueue(text)
		}
		if err != nil {
			if err == io.EOF {
				c.end(nil)
			} else {
				c.end(err)
			}
			return
		}
	}
}

func (c *Channel) enqueue(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, line)
	c.signal()
}

func (c *Channel) end(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeErr = err
	c.signal()
}

// signal wakes waiting collectors. Callers hold c.mu.
func (c *Channel) signal() {
	close(c.arrived)
	c.arrived = make(chan struct{})
}

// dequeue pops the next line. The second return is false when nothing is
// buffered; wait is the channel to block on for the next signal.
func (c *Channel) dequeue() (line string, ok bool, closed bool, err error, wait <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) > 0 {
		line = c.queue[0]
		c.queue = c.queue[1:]
		return line, true, false, nil, nil
	}
	if c.closed {
		return "", false, true, c.closeErr, nil
	}
	return "", false, false, nil, c.arrived
}

// requeueFront puts a popped-but-undelivered line back.
func (c *Channel) requeueFront(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append([]string{line}, c.queue...)
	c.signal()
}

func (c *Channel) printMarker() {
	if c.marker == "" {
		return
	}
	fmt.Fprint(c.out, termenv.String(c.marker).Foreground(c.profile.Color("#818cf8")).String())
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
