package mailbox_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/marcodamonte/concurrency/handoff/mailbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockWindow is how long a test waits before concluding that a call is
// parked rather than merely slow to schedule.
const blockWindow = 50 * time.Millisecond

// ── Basic handoff ────────────────────────────────────────────────────────────

func TestWriteThenRead(t *testing.T) {
	t.Parallel()

	m := mailbox.New()
	m.Write("a")
	assert.Equal(t, "a", m.Read())
}

// ── Blocking ─────────────────────────────────────────────────────────────────

// TestReadBlocksUntilWrite checks that a Read on an EMPTY mailbox parks
// instead of returning a zero value.
func TestReadBlocksUntilWrite(t *testing.T) {
	t.Parallel()

	m := mailbox.New()
	got := make(chan string, 1)
	go func() { got <- m.Read() }()

	select {
	case p := <-got:
		t.Fatalf("Read returned %q before any Write", p)
	case <-time.After(blockWindow):
	}

	m.Write("hello")
	select {
	case p := <-got:
		assert.Equal(t, "hello", p)
	case <-time.After(time.Second):
		t.Fatal("Read did not wake up after Write")
	}
}

// TestSecondWriteBlocks checks the capacity invariant: a back-to-back Write
// waits until the pending payload has been read.
func TestSecondWriteBlocks(t *testing.T) {
	t.Parallel()

	m := mailbox.New()
	m.Write("first")

	wrote := make(chan struct{})
	go func() {
		m.Write("second")
		close(wrote)
	}()

	select {
	case <-wrote:
		t.Fatal("second Write completed while the first payload was unread")
	case <-time.After(blockWindow):
	}

	assert.Equal(t, "first", m.Read())

	select {
	case <-wrote:
	case <-time.After(time.Second):
		t.Fatal("second Write did not complete after Read")
	}
	assert.Equal(t, "second", m.Read())
}

// ── Ordering & exactly-once ──────────────────────────────────────────────────

// TestStressInOrder hands 10,000 payloads across with no delays on either side.
func TestStressInOrder(t *testing.T) {
	t.Parallel()

	const total = 10_000
	m := mailbox.New()

	go func() {
		for i := range total {
			m.Write(strconv.Itoa(i))
		}
	}()

	for i := range total {
		require.Equal(t, strconv.Itoa(i), m.Read(), "payload %d", i)
	}
}

// TestConcurrentWritersNeverOverwrite runs several writers against one
// reader. Capacity is 1, so every payload must still arrive exactly once.
func TestConcurrentWritersNeverOverwrite(t *testing.T) {
	t.Parallel()

	const (
		writers   = 4
		perWriter = 250
	)
	m := mailbox.New()

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				m.Write(fmt.Sprintf("%d-%d", w, i))
			}
		}()
	}

	seen := make(map[string]int, writers*perWriter)
	for range writers * perWriter {
		seen[m.Read()]++
	}
	wg.Wait()

	require.Len(t, seen, writers*perWriter)
	for p, n := range seen {
		assert.Equal(t, 1, n, "payload %q delivered %d times", p, n)
	}
}

// ── Interruption ─────────────────────────────────────────────────────────────

func TestReadContextInterrupted(t *testing.T) {
	t.Parallel()

	m := mailbox.New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p, err := m.ReadContext(ctx)
	require.Error(t, err)
	assert.Empty(t, p)
	assert.ErrorIs(t, err, mailbox.ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned wait must not have disturbed the slot.
	m.Write("after")
	assert.Equal(t, "after", m.Read())
}

func TestWriteContextInterrupted(t *testing.T) {
	t.Parallel()

	m := mailbox.New()
	m.Write("pending")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.WriteContext(ctx, "dropped") }()

	time.Sleep(blockWindow)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, mailbox.ErrInterrupted)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("WriteContext did not return after cancel")
	}

	assert.Equal(t, "pending", m.Read())

	// Nothing else was stored.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err := m.ReadContext(ctx2)
	assert.ErrorIs(t, err, mailbox.ErrInterrupted)
}

func TestInterruptedWrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("operator shutdown")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	_, err := mailbox.New().ReadContext(ctx)
	assert.ErrorIs(t, err, mailbox.ErrInterrupted)
	assert.ErrorIs(t, err, cause)
}

// TestDoneContextWithoutWait checks that only waiting is interruptible: an
// operation that can proceed immediately succeeds even with a done context.
func TestDoneContextWithoutWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := mailbox.New()
	require.NoError(t, m.WriteContext(ctx, "x"))
	p, err := m.ReadContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", p)
}

func ExampleMailbox() {
	m := mailbox.New()

	go func() {
		for _, p := range []string{"a", "b", "c"} {
			m.Write(p)
		}
	}()

	for range 3 {
		fmt.Println(m.Read())
	}
	// Output:
	// a
	// b
	// c
}
