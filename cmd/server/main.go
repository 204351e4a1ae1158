// Command server runs the UniAsset HTTP API and, when a build of the web app
// is found, serves it from the same origin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"uniasset/internal/api"
	"uniasset/internal/config"
	"uniasset/internal/logging"
	"uniasset/pkg/gateway"
	"uniasset/pkg/uniasset"
)

// parentWatchEnv is set by desktop shells that spawn the server as a child.
const parentWatchEnv = "UNIASSET_PARENT_WATCH"

const shutdownGrace = 10 * time.Second

// Swapped in tests.
var (
	getppid = os.Getppid
	sleep   = time.Sleep
	exit    = os.Exit
)

type serverOptions struct {
	dataDir   string
	host      string
	port      int
	webDir    string
	syncDelay time.Duration
	demo      bool
}

func (o serverOptions) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func parseFlags(fs *flag.FlagSet, args []string) (serverOptions, error) {
	var o serverOptions
	fs.StringVar(&o.dataDir, "data-dir", "", "Directory for the operation log database and logs")
	fs.IntVar(&o.port, "port", 8000, "Port to listen on")
	fs.StringVar(&o.host, "host", "127.0.0.1", "Interface to bind")
	fs.StringVar(&o.webDir, "web-dir", "", "Built web app to serve (optional)")
	fs.DurationVar(&o.syncDelay, "sync-delay", uniasset.DefaultSyncDelay, "Simulated latency of the demo wallet service")
	fs.BoolVar(&o.demo, "demo", true, "Seed the demonstration portfolio and events")
	err := fs.Parse(args)
	return o, err
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("server stopped", "err", err)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, opts serverOptions) error {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring .env", "err", err)
	}
	if opts.dataDir != "" {
		config.SetRuntimeDataDir(opts.dataDir)
	}
	config.SetRuntimePort(opts.port)

	dataDir, err := config.GetDataDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	logger, writer, err := logging.NewLogger(logging.Options{Dir: filepath.Join(dataDir, "logs")})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer writer.Close()

	core, err := openCore(logger, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("close core", "err", err)
		}
	}()

	if os.Getenv(parentWatchEnv) == "1" {
		go watchParent(ctx, logger)
	}

	server := &http.Server{
		Addr:              opts.addr(),
		Handler:           newHandler(core, logger, opts.webDir),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Parse and advisory requests wait on the AI provider.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr, "demo", opts.demo)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("draining connections", "grace", shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openCore(logger *slog.Logger, opts serverOptions) (*uniasset.Core, error) {
	dbPath, err := config.GetDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve operation log path: %w", err)
	}

	gwConfig := config.ResolveAI(config.LoadUserConfig()).GatewayConfig()
	gwConfig.Logger = logger
	gw := gateway.New(gwConfig)
	logger.Info("ai gateway", "provider", gw.Provider(), "model", gw.Model(), "available", gw.Available())

	core, err := uniasset.OpenWithOptions(uniasset.Options{
		DBPath:    dbPath,
		Logger:    logger,
		Gateway:   gw,
		SyncDelay: opts.syncDelay,
		SeedDemo:  opts.demo,
	})
	if err != nil {
		return nil, fmt.Errorf("open core at %s: %w", dbPath, err)
	}
	return core, nil
}

// newHandler mounts the API, the web app when one is found, and gzip.
func newHandler(core *uniasset.Core, logger *slog.Logger, webDir string) http.Handler {
	handler := api.NewRouter(core, logger)
	if dir := resolveWebDir(webDir); dir != "" {
		logger.Info("serving web app", "dir", dir)
		handler = api.WithSPA(handler, dir)
	}
	return middleware.Compress(5)(handler)
}

// watchParent exits the process once it is reparented to init.
func watchParent(ctx context.Context, logger *slog.Logger) {
	for ctx.Err() == nil {
		sleep(time.Second)
		if getppid() == 1 {
			logger.Info("launcher gone, exiting")
			exit(0)
		}
	}
}

// resolveWebDir returns an explicit dir only when it exists. Otherwise the
// first of web/, static/ or ../web found in the working directory, then
// beside the executable.
func resolveWebDir(explicit string) string {
	if explicit != "" {
		if isDir(explicit) {
			return explicit
		}
		return ""
	}
	for _, dir := range webDirCandidates() {
		if isDir(dir) {
			return dir
		}
	}
	return ""
}

func webDirCandidates() []string {
	names := []string{"web", "static", "../web"}
	out := append([]string(nil), names...)
	if exe, err := os.Executable(); err == nil {
		for _, name := range names {
			out = append(out, filepath.Join(filepath.Dir(exe), name))
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
