// Package countdown shows plain mutual exclusion with no handoff signalling:
// several named workers share one counter, and each holds the lock for its
// whole countdown.
//
// Because Begin keeps the lock across the entire loop, whichever worker gets
// in first prints every value and the others find the counter already at
// zero. Every value is printed exactly once, never interleaved.
package countdown

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Printer receives one line of countdown output together with the name of
// the worker that produced it.
type Printer func(name, line string)

// Countdown is a counter shared by several workers.
type Countdown struct {
	mu  sync.Mutex
	i   int
	out Printer
}

// New returns a Countdown starting at start. A nil out discards output.
func New(start int, out Printer) *Countdown {
	if out == nil {
		out = func(string, string) {}
	}
	return &Countdown{i: start, out: out}
}

// Begin counts down from the current value to 1, emitting
// "<name>: i = <value>" for each step, all under one lock.
func (c *Countdown) Begin(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.i > 0 {
		c.out(name, fmt.Sprintf("%s: i = %d", name, c.i))
		c.i--
	}
}

// Remaining reports the current counter value.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.i
}

// Run starts one goroutine per name, each calling Begin with its own name,
// and waits for all of them.
func Run(c *Countdown, names ...string) {
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Begin(name)
		}()
	}
	wg.Wait()
}

// StylePrinter returns a Printer that writes each line to w, colored by
// worker name: THREAD-1 blue, THREAD-2 purple, anyone else plain. Colors are
// dropped when w is not a terminal.
func StylePrinter(w io.Writer) Printer {
	r := lipgloss.NewRenderer(w)
	styles := map[string]lipgloss.Style{
		"THREAD-1": r.NewStyle().Foreground(lipgloss.Color("4")),
		"THREAD-2": r.NewStyle().Foreground(lipgloss.Color("5")),
	}
	plain := r.NewStyle()

	var mu sync.Mutex
	return func(name, line string) {
		style, ok := styles[name]
		if !ok {
			style = plain
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, style.Render(line))
	}
}
