package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/loomwm/loom"
	"github.com/loomwm/loom/launcher"
	"github.com/loomwm/loom/render"
	"github.com/loomwm/loom/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "loomd",
		Short: "An embryonic display server",
		Long: `loomd accepts client connections on a unix socket, tracks the
surfaces and buffers they create, and composites committed surfaces
into a frame once per tick.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, configPath)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	flags.String("socket", "", "rendezvous socket path (overrides config)")
	flags.String("metrics-addr", "", "address to serve prometheus metrics on")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, configPath string) error {
	cfg := defaultSettings()
	if configPath != "" {
		loaded, err := loadSettings(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("socket") {
		cfg.Socket, _ = flags.GetString("socket")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	display, err := loom.NewDisplay(cfg.Config, logger)
	if err != nil {
		return err
	}
	presenter := render.New(logger, cfg.OutputWidth, cfg.OutputHeight)
	loop := loom.NewLoop(display, presenter)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	if cfg.Shell != "" {
		socket := cfg.Socket
		if socket == "" {
			socket = wire.SocketPath()
		}
		go func() {
			for loop.State() == loom.StateStarting {
				time.Sleep(10 * time.Millisecond)
			}
			if loop.State() != loom.StateRunning {
				return
			}
			env := []string{"LOOM_DISPLAY=" + socket}
			proc, err := launcher.Launch(ctx, logger, cfg.Shell, cfg.ShellArgs, env)
			if err != nil {
				logger.Error().Err(err).Msg("shell launch failed")
				return
			}
			if err := proc.Wait(); err != nil {
				logger.Warn().Err(err).Msg("shell exited")
			}
		}()
	}

	return loop.Run(ctx)
}

func initLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "loomd").Logger(), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("loomd %v (commit %v, built %v)\n", version, commit, date)
		},
	}
}
