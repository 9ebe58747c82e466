// Package prodcons runs one producer and one consumer against a shared
// single-slot mailbox.
//
// The producer writes a fixed list of payloads, pausing a random bounded
// time after each, then writes Sentinel and stops. The consumer reads until
// it sees Sentinel. Because the mailbox holds one payload, writes and reads
// strictly alternate:
//
//	producer: write a ─ sleep ─ write b ─ sleep ─ write finished
//	consumer:    read a ─ sleep ─ read b ─ sleep ─ read finished → stop
package prodcons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/marcodamonte/concurrency/handoff/logging"
	"github.com/marcodamonte/concurrency/handoff/mailbox"
)

// Sentinel is the payload that tells the consumer the stream has ended.
// It is compared by value, so ordinary payloads must never equal it.
const Sentinel = "finished"

// Default task roles. The role names the task in diagnostics.
const (
	RoleWriter = "writer"
	RoleReader = "reader"
)

// ErrSentinelPayload is returned when an ordinary payload equals Sentinel.
// Such a payload would end the stream early, so nothing is written.
var ErrSentinelPayload = errors.New("payload equals the end-of-stream sentinel")

// Metrics counts ordinary payloads moved through the mailbox; the sentinel
// is not counted. Fields are updated atomically.
type Metrics struct {
	Written int64 // payloads the producer handed over
	Read    int64 // payloads the consumer processed
}

func (m *Metrics) addWritten() {
	if m != nil {
		atomic.AddInt64(&m.Written, 1)
	}
}

func (m *Metrics) addRead() {
	if m != nil {
		atomic.AddInt64(&m.Read, 1)
	}
}

// Snapshot returns a copy of the counters that is safe to read while the
// tasks are still running.
func (m *Metrics) Snapshot() Metrics {
	return Metrics{
		Written: atomic.LoadInt64(&m.Written),
		Read:    atomic.LoadInt64(&m.Read),
	}
}

// ── Producer ─────────────────────────────────────────────────────────────────

// Producer writes Payloads in order and then Sentinel.
type Producer struct {
	Role     string               // defaults to RoleWriter
	Payloads []string             // must not contain Sentinel
	Delay    func() time.Duration // pause after each write; nil means none
	Logger   *zerolog.Logger      // nil discards diagnostics
}

// Run writes every payload and then the sentinel. An interrupted pause is
// logged and the loop carries on; an interrupted write ends the task with
// an error matching mailbox.ErrInterrupted.
func (p *Producer) Run(ctx context.Context, mb *mailbox.Mailbox, m *Metrics) error {
	role := roleOr(p.Role, RoleWriter)
	log := taskLogger(p.Logger, role)

	if err := checkPayloads(p.Payloads); err != nil {
		return fmt.Errorf("%s: %w", role, err)
	}

	for _, payload := range p.Payloads {
		if err := mb.WriteContext(ctx, payload); err != nil {
			log.Warn().Str("payload", payload).Msgf("%s: %v", errorTag(role), err)
			return fmt.Errorf("%s: write %q: %w", role, payload, err)
		}
		m.addWritten()
		log.Debug().Str("payload", payload).Msg("wrote")

		if err := sleep(ctx, delayOf(p.Delay)); err != nil {
			log.Warn().Msgf("%s: %v", errorTag(role), err)
		}
	}

	if err := mb.WriteContext(ctx, Sentinel); err != nil {
		log.Warn().Msgf("%s: %v", errorTag(role), err)
		return fmt.Errorf("%s: write sentinel: %w", role, err)
	}
	log.Debug().Msg("wrote sentinel")
	return nil
}

// ── Consumer ─────────────────────────────────────────────────────────────────

// Consumer reads payloads until it reads Sentinel.
type Consumer struct {
	Role   string               // defaults to RoleReader
	Delay  func() time.Duration // pause after each processed payload; nil means none
	Logger *zerolog.Logger      // nil discards diagnostics
	Handle func(payload string) // called once per ordinary payload, in order
}

// Run drains the mailbox until the sentinel arrives. The sentinel itself is
// never handed to Handle. An interrupted pause is logged and the loop
// carries on; an interrupted read ends the task with an error matching
// mailbox.ErrInterrupted.
func (c *Consumer) Run(ctx context.Context, mb *mailbox.Mailbox, m *Metrics) error {
	role := roleOr(c.Role, RoleReader)
	log := taskLogger(c.Logger, role)

	for {
		payload, err := mb.ReadContext(ctx)
		if err != nil {
			log.Warn().Msgf("%s: %v", errorTag(role), err)
			return fmt.Errorf("%s: read: %w", role, err)
		}
		if payload == Sentinel {
			log.Debug().Msg("read sentinel")
			return nil
		}

		if c.Handle != nil {
			c.Handle(payload)
		}
		m.addRead()
		log.Debug().Str("payload", payload).Msg("read")

		if err := sleep(ctx, delayOf(c.Delay)); err != nil {
			log.Warn().Msgf("%s: %v", errorTag(role), err)
		}
	}
}

// ── Driver ───────────────────────────────────────────────────────────────────

// Config holds the parameters of one producer/consumer run.
type Config struct {
	// Payloads are written in order, followed by Sentinel.
	Payloads []string

	// MaxDelay bounds the random pause taken by each task after every
	// payload. Zero disables pausing. Ignored when Delay is set.
	MaxDelay time.Duration

	// Delay, if set, supplies every pause instead of RandomDelay(MaxDelay).
	Delay func() time.Duration

	// Handle processes each payload the consumer reads. If nil, payloads
	// are written to Out one per line.
	Handle func(payload string)

	// Out receives the default Handle's output. If nil, os.Stdout is used.
	Out io.Writer

	// Logger receives diagnostics. If nil, they are discarded.
	Logger *zerolog.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Delay == nil {
		out.Delay = RandomDelay(out.MaxDelay)
	}
	if out.Out == nil {
		out.Out = os.Stdout
	}
	if out.Handle == nil {
		w := out.Out
		out.Handle = func(payload string) { fmt.Fprintln(w, payload) }
	}
	if out.Logger == nil {
		nop := zerolog.Nop()
		out.Logger = &nop
	}
	return out
}

// Run creates one mailbox, starts a Producer and a Consumer on it and waits
// for both to finish. If either task fails, the other is interrupted through
// the shared context. The returned metrics are valid even when err != nil.
func Run(ctx context.Context, cfg Config) (Metrics, error) {
	cfg = cfg.withDefaults()

	var m Metrics
	if err := checkPayloads(cfg.Payloads); err != nil {
		return m, err
	}

	cfg.Logger.Info().Int("payloads", len(cfg.Payloads)).Dur("max_delay", cfg.MaxDelay).Msg("handoff started")

	mb := mailbox.New()
	producer := &Producer{Payloads: cfg.Payloads, Delay: cfg.Delay, Logger: cfg.Logger}
	consumer := &Consumer{Delay: cfg.Delay, Logger: cfg.Logger, Handle: cfg.Handle}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return producer.Run(gctx, mb, &m) })
	g.Go(func() error { return consumer.Run(gctx, mb, &m) })
	err := g.Wait()

	snap := m.Snapshot()
	ev := cfg.Logger.Info()
	if err != nil {
		ev = cfg.Logger.Error().Err(err)
	}
	ev.Int64("written", snap.Written).Int64("read", snap.Read).Msg("handoff finished")

	return snap, err
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func checkPayloads(payloads []string) error {
	if i := slices.Index(payloads, Sentinel); i >= 0 {
		return fmt.Errorf("payload %d: %w", i, ErrSentinelPayload)
	}
	return nil
}

func roleOr(role, def string) string {
	if role == "" {
		return def
	}
	return role
}

// errorTag is the diagnostic label for a role, e.g. "READER ERROR". Each
// interruption is logged as "<tag>: <cause>".
func errorTag(role string) string {
	return strings.ToUpper(role) + " ERROR"
}

func taskLogger(l *zerolog.Logger, role string) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return logging.WithRole(*l, role)
}

func delayOf(f func() time.Duration) time.Duration {
	if f == nil {
		return 0
	}
	return f()
}
