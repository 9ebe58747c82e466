// Package greet runs named workers that announce themselves.
//
// Each worker is handed its identity when it is built and uses that, never
// anything derived from the goroutine it happens to run on (goroutines have
// no names in Go).
package greet

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultNames are the identities used when none are given.
var DefaultNames = []string{"THREAD-1", "THREAD-2", "RUNNABLE-THREAD"}

// Worker is a task with an explicit identity.
type Worker struct {
	Name string
}

// Announce writes "This message is from: <Name>" to w.
func (wk Worker) Announce(w io.Writer) error {
	_, err := fmt.Fprintf(w, "This message is from: %s\n", wk.Name)
	return err
}

// Run starts one worker per name concurrently and waits for all of them.
// Lines may come out in any order but never interleave. It returns the first
// write error, if any.
func Run(w io.Writer, names ...string) error {
	if len(names) == 0 {
		names = DefaultNames
	}

	lw := &lockedWriter{w: w}
	var g errgroup.Group
	for _, name := range names {
		wk := Worker{Name: name}
		g.Go(func() error { return wk.Announce(lw) })
	}
	return g.Wait()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
