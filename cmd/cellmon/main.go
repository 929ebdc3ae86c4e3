package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/carterw/Pi-Cellular/internal/config"
	"github.com/carterw/Pi-Cellular/internal/diag"
	"github.com/carterw/Pi-Cellular/internal/logging"
	"github.com/carterw/Pi-Cellular/internal/monitor"
	"github.com/carterw/Pi-Cellular/internal/probe"
	"github.com/carterw/Pi-Cellular/internal/tracker"
	"github.com/carterw/Pi-Cellular/internal/version"
)

var (
	cfgFile      string
	flagHost     string
	flagInterval int
	flagTimeout  int
	flagIface    string
	flagDuration int
	flagLogFile  string
)

// geteuid is a variable so tests can bypass the privilege check.
var geteuid = os.Geteuid

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cellmon",
		Short:        "Cellular connectivity watchdog with diagnostics",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", cfgFile, "optional config file path")
	pf.StringVar(&flagHost, "host", "8.8.8.8", "remote host to ping")
	pf.IntVar(&flagInterval, "interval", 10, "ping interval in seconds")
	pf.IntVar(&flagTimeout, "timeout", 5, "ping timeout in seconds")
	pf.StringVar(&flagIface, "interface", "wwan0", "network interface to use")
	pf.IntVar(&flagDuration, "duration", 0, "run for N minutes (0 = infinite)")
	pf.StringVar(&flagLogFile, "log-file", "", "also write logs to this rotating file")

	root.AddCommand(versionCmd())
	root.AddCommand(monitorCmd())
	root.AddCommand(diagCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cellmon %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Monitor cellular connectivity until interrupted",
		RunE:  runMonitor,
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(logging.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	diags := diag.New(cfg.Interface)
	pinger := probe.New(cfg.Host, cfg.Interface, cfg.Timeout.Duration)
	tr := tracker.New(cfg.WindowSize, diags.SignalStrength, logger)
	runner := monitor.New(cfg, pinger, diags, tr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner.Run(ctx)
	return nil
}

// buildConfig loads the optional config file and lets explicitly set flags
// override it.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	flags := cmd.Root().PersistentFlags()
	if flags.Changed("host") {
		cfg.Host = flagHost
	}
	if flags.Changed("interval") {
		cfg.Interval = config.Duration{Duration: time.Duration(flagInterval) * time.Second}
	}
	if flags.Changed("timeout") {
		cfg.Timeout = config.Duration{Duration: time.Duration(flagTimeout) * time.Second}
	}
	if flags.Changed("interface") {
		cfg.Interface = flagIface
	}
	if flags.Changed("duration") {
		cfg.RunFor = config.Duration{Duration: time.Duration(flagDuration) * time.Minute}
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireRoot fails fast when the process lacks the privilege needed to
// bind pings to a specific interface.
func requireRoot() error {
	if geteuid() != 0 {
		return fmt.Errorf("cellmon must be run as root (use sudo): binding pings to an interface requires it")
	}
	return nil
}
