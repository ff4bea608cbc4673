package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/config"
	"github.com/snaiperskaya/snaibot/internal/irc"
	"github.com/snaiperskaya/snaibot/internal/lookup"
	"github.com/snaiperskaya/snaibot/internal/modules"
	"github.com/snaiperskaya/snaibot/internal/storage"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	app := cli.App{
		Name:    "snaibot",
		Usage:   "IRC utility bot with spam and language moderation",
		Version: fmt.Sprintf("%s (built %s, commit %s)", version, buildDate, gitCommit),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to configuration file",
			Value:   "./config.yaml",
			EnvVars: []string{"SNAIBOT_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "foreground",
			Aliases: []string{"x"},
			Usage:   "run in foreground (don't daemonize)",
			EnvVars: []string{"SNAIBOT_FOREGROUND"},
		},
		&cli.StringFlag{
			Name:    "pid-file",
			Usage:   "where to write the process id",
			Value:   "pid.txt",
			EnvVars: []string{"SNAIBOT_PID_FILE"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "log to this file instead of stderr",
			EnvVars: []string{"SNAIBOT_LOG_FILE"},
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log at debug level regardless of log_level",
		},
	}
	app.Action = runBot
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "init",
			Usage:  "write a default configuration file and exit",
			Action: runInit,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Usage: "overwrite an existing file",
				},
			},
		},
	}
	app.RunAndExitOnError()
}

func runInit(cctx *cli.Context) error {
	path := cctx.String("config")
	if _, err := os.Stat(path); err == nil && !cctx.Bool("force") {
		return errors.Errorf("%s already exists, use --force to overwrite it", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func runBot(cctx *cli.Context) error {
	irc.Version = version
	irc.BuildDate = buildDate
	irc.GitCommit = gitCommit

	configPath, err := filepath.Abs(cctx.String("config"))
	if err != nil {
		return errors.Wrap(err, "bad config path")
	}

	// Daemonize unless -x flag is set
	if !cctx.Bool("foreground") {
		return daemonize()
	}

	if err := writePIDFile(cctx.String("pid-file")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not write PID file: %v\n", err)
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, config.ErrCreated) {
		return errors.Errorf("no configuration found, a default one was written to %s", configPath)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	logger, err := newLogger(cfg.LogLevel, cctx.Bool("debug"), cctx.String("log-file"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger)
	if errors.Is(err, errRestart) {
		return reexec(logger)
	}
	return err
}

func newLogger(level string, debug bool, logFile string) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		lvl = log15.LvlInfo
	}
	if debug {
		lvl = log15.LvlDebug
	}

	handler := log15.StreamHandler(os.Stderr, log15.LogfmtFormat())
	if logFile != "" {
		handler, err = log15.FileHandler(logFile, log15.LogfmtFormat())
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
	}

	logger := log15.New("app", "snaibot")
	logger.SetHandler(log15.LvlFilterHandler(lvl, handler))
	return logger, nil
}

// daemonize re-executes the binary detached from the terminal, in foreground
// mode, and exits.
func daemonize() error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to find executable")
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), "SNAIBOT_FOREGROUND=true")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to fork")
	}
	fmt.Printf("Now becoming a daemon\nMy pid is %d\n", cmd.Process.Pid)
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// errRestart is returned by run once everything is closed and the process
// should exec itself again.
var errRestart = errors.New("restart requested")

func run(ctx context.Context, cfg *config.Config, logger log15.Logger) error {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}

	store, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	deps := modules.Deps{
		Log:   logger.New("component", "modules"),
		Store: store,
	}
	httpClient := lookup.NewHTTPClient(logger.New("component", "http"), cfg.Lookups.Timeout)
	if cfg.Modules.Wiki {
		deps.Wiki = lookup.NewWiki(cfg.Wiki.BaseURL, httpClient)
	}
	if cfg.Modules.YouTube {
		yt, err := lookup.NewYouTube(cfg.YouTube.APIURL, cfg.YouTube.APIKey, cfg.YouTube.CacheSize, httpClient)
		if err != nil {
			return err
		}
		deps.YouTube = yt
	}

	registry, err := modules.NewRegistry(cfg, deps)
	if err != nil {
		return err
	}

	client, err := irc.NewClient(ctx, cfg, store, registry, logger.New("component", "irc"))
	if err != nil {
		return errors.Wrap(err, "failed to create IRC client")
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
		go func() {
			logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	restart := false
	client.OnShutdown = func() {
		client.Quit("Shutdown requested")
	}
	client.OnRestart = func() {
		restart = true
		client.Quit("Restarting")
	}

	go func() {
		<-ctx.Done()
		logger.Info("Received signal, shutting down")
		client.Quit("Received shutdown signal")
	}()

	// Connect and run
	logger.Info("Connecting", "server", cfg.Server.Host, "port", cfg.Server.Port, "tls", cfg.Server.TLS)
	if err := client.Connect(); err != nil {
		return errors.Wrap(err, "failed to connect")
	}

	logger.Info("Connected, entering main loop")
	client.Loop()

	if restart {
		return errRestart
	}
	return nil
}

// reexec replaces the process with a fresh copy of itself.
func reexec(logger log15.Logger) error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to find executable")
	}
	logger.Info("Restarting", "exe", exe)
	return errors.Wrap(syscall.Exec(exe, os.Args, os.Environ()), "failed to restart")
}
