package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/subcommands"

	"uniasset/internal/config"
	"uniasset/internal/logging"
	"uniasset/pkg/gateway"
	"uniasset/pkg/uniasset"
)

// app carries the global flags and the output streams shared by every
// subcommand. A CLI run is short lived, so one core per invocation is fine.
type app struct {
	stdout io.Writer
	stderr io.Writer

	demo      bool
	syncDelay time.Duration
	logLevel  string

	// newGateway builds the AI backend; tests swap it for a stub.
	newGateway func(*slog.Logger) uniasset.AIGateway
}

func newApp() *app {
	return &app{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		newGateway: defaultGateway,
	}
}

func (a *app) setFlags(f *flag.FlagSet) {
	f.BoolVar(&a.demo, "demo", true, "Seed the demonstration portfolio and events")
	f.DurationVar(&a.syncDelay, "sync-delay", 0, "Simulated latency of the demo wallet service")
	f.StringVar(&a.logLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")
}

func defaultGateway(logger *slog.Logger) uniasset.AIGateway {
	cfg := config.ResolveAI(config.LoadUserConfig()).GatewayConfig()
	cfg.Logger = logger
	return gateway.New(cfg)
}

// openCore starts an in-memory session. Nothing a CLI run does outlives it.
func (a *app) openCore() (*uniasset.Core, error) {
	logger := slog.New(logging.NewHandler(a.stderr, logging.ParseLevel(a.logLevel, slog.LevelWarn), os.Getenv(logging.EnvFormat)))
	return uniasset.OpenWithOptions(uniasset.Options{
		DBPath:   uniasset.MemoryDB,
		Logger:   logger,
		Gateway:  a.newGateway(logger),
		Fetcher:  uniasset.MockWalletService{Delay: a.syncDelay},
		SeedDemo: a.demo,
	})
}

// withCore runs fn against a fresh core and maps its error onto an exit
// status: coded validation errors are usage errors, the rest failures.
func (a *app) withCore(ctx context.Context, fn func(context.Context, *uniasset.Core) error) subcommands.ExitStatus {
	core, err := a.openCore()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error starting session: %v\n", err)
		return subcommands.ExitFailure
	}
	defer core.Close()

	if err := fn(ctx, core); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		switch uniasset.CodeOf(err) {
		case uniasset.ErrCodeValidation, uniasset.ErrCodeInvalidInput:
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// newCommander registers every subcommand on a commander bound to f.
func newCommander(f *flag.FlagSet, a *app) *subcommands.Commander {
	commander := subcommands.NewCommander(f, "uniasset")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands(a) {
		commander.Register(c.cmd, c.group)
	}
	a.setFlags(f)
	return commander
}

type registration struct {
	cmd   subcommands.Command
	group string
}

func commands(a *app) []registration {
	return []registration{
		{&classifyCmd{app: a}, "wallets"},
		{&syncCmd{app: a}, "wallets"},
		{&parseCmd{app: a}, "assets"},
		{&quoteCmd{app: a}, "assets"},
		{&suggestCmd{app: a}, "assets"},
		{&askCmd{app: a}, "advisory"},
	}
}
