package countdown_test

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/marcodamonte/concurrency/handoff/countdown"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type line struct{ name, text string }

type recorder struct {
	mu    sync.Mutex
	lines []line
}

func (r *recorder) print(name, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line{name, text})
}

func TestBeginCountsDownToOne(t *testing.T) {
	var r recorder
	c := countdown.New(3, r.print)

	c.Begin("solo")

	assert.Equal(t, []line{
		{"solo", "solo: i = 3"},
		{"solo", "solo: i = 2"},
		{"solo", "solo: i = 1"},
	}, r.lines)
	assert.Zero(t, c.Remaining())

	c.Begin("late")
	assert.Len(t, r.lines, 3, "a drained counter prints nothing")
}

// TestRunOneWorkerTakesAll checks that the whole countdown comes from a
// single worker and every value appears exactly once, in order.
func TestRunOneWorkerTakesAll(t *testing.T) {
	t.Parallel()

	for range 50 {
		var r recorder
		c := countdown.New(10, r.print)

		countdown.Run(c, "THREAD-1", "THREAD-2", "THREAD-3")

		require.Len(t, r.lines, 10)
		winner := r.lines[0].name
		for i, l := range r.lines {
			assert.Equal(t, winner, l.name, "line %d came from another worker", i)
			assert.Equal(t, fmt.Sprintf("%s: i = %d", winner, 10-i), l.text)
		}
		assert.Zero(t, c.Remaining())
	}
}

func TestRunZeroStart(t *testing.T) {
	t.Parallel()

	var r recorder
	countdown.Run(countdown.New(0, r.print), "THREAD-1", "THREAD-2")
	assert.Empty(t, r.lines)
}

func TestNilPrinter(t *testing.T) {
	t.Parallel()

	c := countdown.New(5, nil)
	countdown.Run(c, "a", "b")
	assert.Zero(t, c.Remaining())
}

func TestStylePrinterPlainWhenNotTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := countdown.StylePrinter(&buf)
	p("THREAD-1", "THREAD-1: i = 2")
	p("other", "other: i = 1")

	assert.Equal(t, "THREAD-1: i = 2\nother: i = 1\n", buf.String())
	assert.False(t, strings.Contains(buf.String(), "\x1b["), "no escape codes expected")
}

func ExampleRun() {
	c := countdown.New(3, countdown.StylePrinter(os.Stdout))
	countdown.Run(c, "THREAD-1")
	// Output:
	// THREAD-1: i = 3
	// THREAD-1: i = 2
	// THREAD-1: i = 1
}
