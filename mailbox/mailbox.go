// Package mailbox provides a single-slot blocking handoff between one writer
// and one reader, built as a monitor: a sync.Mutex guarding the slot and two
// sync.Cond values the writer and reader park on.
//
// The waiting pattern is always the same:
//
//	mu.Lock()
//	for !condition {   // loop, not if: re-check after every wakeup
//	    cond.Wait()    // releases mu while parked, re-acquires it on wake
//	}
//	// ... mutate the slot ...
//	cond.Broadcast()   // wake the other side
//	mu.Unlock()
//
// A waiter never spins on the flag: it always gives the lock back while it
// is blocked.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInterrupted is returned when a blocked Write or Read gives up because
// its context is done. The returned error also wraps context.Cause(ctx).
var ErrInterrupted = errors.New("mailbox: wait interrupted")

// Mailbox holds at most one unread payload.
//
// State machine:
//
//	EMPTY --Write--> FULL   (wakes a blocked reader)
//	FULL  --Read---> EMPTY  (wakes a blocked writer)
//
// The zero value is not usable; create one with New.
type Mailbox struct {
	mu       sync.Mutex
	readable *sync.Cond // signalled when the slot becomes FULL
	writable *sync.Cond // signalled when the slot becomes EMPTY

	payload string
	full    bool
}

// New returns an EMPTY mailbox.
func New() *Mailbox {
	m := &Mailbox{}
	m.readable = sync.NewCond(&m.mu)
	m.writable = sync.NewCond(&m.mu)
	return m
}

// Write blocks while the mailbox is FULL, then stores payload and wakes a
// blocked reader. It never fails.
func (m *Mailbox) Write(payload string) {
	_ = m.WriteContext(context.Background(), payload)
}

// Read blocks while the mailbox is EMPTY, then takes the payload, wakes a
// blocked writer and returns it. Every written payload is returned by
// exactly one Read.
func (m *Mailbox) Read() string {
	p, _ := m.ReadContext(context.Background())
	return p
}

// WriteContext is Write with an interruptible wait. If ctx is done while the
// mailbox is still FULL, nothing is stored and an error matching
// ErrInterrupted is returned. A write that does not need to wait always
// succeeds.
func (m *Mailbox) WriteContext(ctx context.Context, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.full {
		stop := m.wakeOnDone(ctx)
		defer stop()

		for m.full {
			if ctx.Err() != nil {
				return interrupted(ctx)
			}
			m.writable.Wait()
		}
	}

	m.payload = payload
	m.full = true
	m.readable.Broadcast()
	return nil
}

// ReadContext is Read with an interruptible wait. If ctx is done while the
// mailbox is still EMPTY, nothing is consumed and an error matching
// ErrInterrupted is returned.
func (m *Mailbox) ReadContext(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		stop := m.wakeOnDone(ctx)
		defer stop()

		for !m.full {
			if ctx.Err() != nil {
				return "", interrupted(ctx)
			}
			m.readable.Wait()
		}
	}

	p := m.payload
	m.payload = ""
	m.full = false
	m.writable.Broadcast()
	return p, nil
}

// wakeOnDone arranges for every waiter to be woken once ctx is done, so that
// each can re-check ctx.Err() under the lock. The callback takes mu, so it
// cannot fire between a waiter's ctx check and its Wait.
func (m *Mailbox) wakeOnDone(ctx context.Context) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return false }
	}
	return context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.readable.Broadcast()
		m.writable.Broadcast()
		m.mu.Unlock()
	})
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}
