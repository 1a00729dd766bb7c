package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/batcov/internal/config"
	"github.com/KaramelBytes/batcov/internal/logging"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logJSON  bool
	flagData string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Diagnostic logger; user-facing lines go through the output helpers.
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "batcov",
	Short: "batcov: coronavirus prevalence in bats, by genus, year, country, bat genus and tissue",
	Long: `batcov prepares the bat coronavirus surveillance table (cross-sectional studies only),
aggregates positivity proportions with standard errors, and serves them as an
interactive dashboard, PNG charts, or batch exports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.batcov/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write diagnostic logs as JSON")
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "surveillance table (CSV, TSV or XLSX; overrides data_path)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		warnf(os.Stderr, "failed to load config: %v", err)
		cfg = nil
		setupLogger(os.Stderr, "info")
		return
	}
	cfg = applyFlags(c)
	setupLogger(os.Stderr, cfg.LogLevel)
}

func applyFlags(c *cfgpkg.Global) *cfgpkg.Global {
	if rootCmd.PersistentFlags().Changed("data") && flagData != "" {
		c.DataPath = flagData
	}
	return c
}

func setupLogger(w io.Writer, level string) {
	if debug {
		level = "debug"
	}
	if logJSON {
		logger = logging.JSON(level, w)
		return
	}
	logger = logging.New(level, w)
}

// requireConfig returns the loaded configuration or the load error.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = applyFlags(c)
	return cfg, nil
}
