package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/marcodamonte/concurrency/handoff/config"
	"github.com/marcodamonte/concurrency/handoff/countdown"
	"github.com/marcodamonte/concurrency/handoff/greet"
	"github.com/marcodamonte/concurrency/handoff/logging"
	"github.com/marcodamonte/concurrency/handoff/prodcons"
)

// app carries what every command needs once flags and config are resolved.
type app struct {
	v          *viper.Viper
	configPath string

	cfg *config.Config
	log zerolog.Logger
	out io.Writer

	// delay overrides the random pauses of the mailbox run when set.
	delay func() time.Duration
}

func newRootCmd() *cobra.Command {
	return (&app{v: config.NewViper()}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "handoff",
		Short:             "Thread-coordination samples: single-slot mailbox, shared countdown, named workers",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./handoff.yaml, then "+config.ConfigDir()+"/handoff.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console, json")
	flags.String("log-output", "stderr", "diagnostics stream: stderr, stdout")
	a.bindFlag("logging.level", flags, "log-level")
	a.bindFlag("logging.format", flags, "log-format")
	a.bindFlag("logging.output", flags, "log-output")

	root.AddCommand(a.mailboxCmd(), a.countdownCmd(), a.greetCmd(), a.tourCmd())
	return root
}

// load reads the config file and environment, validates the result and
// builds the logger. Diagnostics go to the command's stderr unless
// logging.output selects stdout, in which case both streams share one
// serialized writer.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	diag := cmd.ErrOrStderr()
	if strings.EqualFold(cfg.Logging.Output, "stdout") {
		a.out = zerolog.SyncWriter(a.out)
		diag = a.out
	}
	a.log = logging.WithRun(logging.New(diag, cfg.Logging.Level, cfg.Logging.Format))
	return nil
}

// ── mailbox ──────────────────────────────────────────────────────────────────

func (a *app) mailboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailbox",
		Short: "Hand payloads from a producer to a consumer through a one-slot mailbox",
		Long: `The producer writes each payload and then "` + prodcons.Sentinel + `", pausing a random
time (up to --max-delay) after every write. The consumer prints each payload
on its own line until it reads "` + prodcons.Sentinel + `".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMailbox(cmd.Context(), a.out)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("payload", nil, "payload to send (repeatable; default from config)")
	flags.Duration("max-delay", 0, "upper bound of the random pause after each write/read (0 = none)")
	flags.Duration("timeout", 0, "give up after this long (0 = never)")
	a.bindFlag("mailbox.payloads", flags, "payload")
	a.bindFlag("mailbox.max_delay", flags, "max-delay")
	a.bindFlag("mailbox.timeout", flags, "timeout")

	return cmd
}

func (a *app) runMailbox(ctx context.Context, out io.Writer) error {
	mc := a.cfg.Mailbox
	if mc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mc.Timeout)
		defer cancel()
	}

	_, err := prodcons.Run(ctx, prodcons.Config{
		Payloads: mc.Payloads,
		MaxDelay: mc.MaxDelay,
		Delay:    a.delay,
		Out:      out,
		Logger:   &a.log,
	})
	return err
}

// ── countdown ────────────────────────────────────────────────────────────────

func (a *app) countdownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Named workers race for one counter guarded by a single lock",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a.runCountdown(a.out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("start", 0, "value to count down from (default from config)")
	flags.StringSlice("worker", nil, "worker name (repeatable; default from config)")
	a.bindFlag("countdown.start", flags, "start")
	a.bindFlag("countdown.workers", flags, "worker")

	return cmd
}

func (a *app) runCountdown(out io.Writer) {
	cc := a.cfg.Countdown
	a.log.Debug().Int("start", cc.Start).Strs("workers", cc.Workers).Msg("countdown started")
	countdown.Run(countdown.New(cc.Start, countdown.StylePrinter(out)), cc.Workers...)
}

// ── greet ────────────────────────────────────────────────────────────────────

func (a *app) greetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greet",
		Short: "Named workers announce themselves",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runGreet(a.out)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("name", nil, "worker name (repeatable; default from config)")
	a.bindFlag("greet.names", flags, "name")

	return cmd
}

func (a *app) runGreet(out io.Writer) error {
	return greet.Run(out, a.cfg.Greet.Names...)
}

// ── tour ─────────────────────────────────────────────────────────────────────

func (a *app) tourCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tour",
		Short: "Run every sample in turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := a.out

			section(out, "Named workers")
			if err := a.runGreet(out); err != nil {
				return err
			}

			section(out, "Countdown (one lock, no handoff)")
			a.runCountdown(out)

			section(out, "Mailbox (one slot, wait/notify handoff)")
			return a.runMailbox(cmd.Context(), out)
		},
	}
}

func section(out io.Writer, title string) {
	fmt.Fprintf(out, "\n━━━ %s ━━━\n", title)
}

// ── flag binding ─────────────────────────────────────────────────────────────

// bindFlag lets an explicitly set flag override the config key. BindPFlag
// only fails for a nil flag, which is a programming error here.
func (a *app) bindFlag(key string, flags *pflag.FlagSet, name string) {
	if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}
