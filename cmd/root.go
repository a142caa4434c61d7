package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sched "github.com/huyongqii/green-energy/sched"
)

var (
	// CLI flags for the scheduler run
	endpoint   string // backend endpoint to connect to
	configPath string // YAML policy bundle (thresholds, backfill window)
	exportPath string // cluster-state record CSV output path
	energyFlag bool   // enable consumed-energy monitoring
	logLevel   string // log verbosity level

	// Threshold flags; negative means "use config/default"
	idleThreshold float64
	wakeCooldown  float64
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "green-energy",
	Short: "Energy-aware cluster scheduler for a discrete-event simulation backend",
}

// runCmd connects to the backend and drives the scheduling loop until the
// simulation ends.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler against a simulation backend",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := sched.NewConfig()
		if configPath != "" {
			bundle, err := sched.LoadPolicyBundle(configPath)
			if err != nil {
				logrus.Fatalf("Loading policy config: %v", err)
			}
			if err := bundle.Validate(); err != nil {
				logrus.Fatalf("Invalid policy config: %v", err)
			}
			cfg.Apply(bundle)
		}
		if idleThreshold >= 0 {
			cfg.IdleThreshold = idleThreshold
		}
		if wakeCooldown >= 0 {
			cfg.WakeCooldown = wakeCooldown
		}
		cfg.EnergyMonitoring = energyFlag
		cfg.ExportPath = exportPath

		logrus.Infof("Connecting to backend at %s (idle threshold %.0fs, wake cooldown %.0fs)",
			endpoint, cfg.IdleThreshold, cfg.WakeCooldown)

		transport, err := sched.Dial(endpoint)
		if err != nil {
			logrus.Fatalf("Connecting to backend: %v", err)
		}
		defer transport.Close()

		session := sched.NewSession(transport, cfg)
		if err := session.Run(); err != nil {
			logrus.Fatalf("Run aborted: %v", err)
		}

		session.Metrics().Print()
		logrus.Info("Run complete.")
	},
}

func init() {
	runCmd.Flags().StringVar(&endpoint, "endpoint", "localhost:28000", "Backend endpoint (host:port)")
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML policy configuration")
	runCmd.Flags().StringVar(&exportPath, "export", "", "Path for the cluster-state record CSV export")
	runCmd.Flags().BoolVar(&energyFlag, "energy", false, "Enable consumed-energy monitoring")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	runCmd.Flags().Float64Var(&idleThreshold, "idle-threshold", -1, "Seconds a host may idle before sleeping (overrides config)")
	runCmd.Flags().Float64Var(&wakeCooldown, "wake-cooldown", -1, "Seconds a woken host is exempt from re-sleep (overrides config)")

	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
