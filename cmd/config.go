package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/batcov/internal/config"
	"github.com/KaramelBytes/batcov/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set batcov configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "data_path: %s\n", cfg.DataPath)
		if cfg.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", cfg.Sheet)
		}
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Fprintf(out, "min_sampled: %d\n", cfg.MinSampled)
		fmt.Fprintf(out, "strict_year: %t\n", cfg.StrictYear)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
		fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
		fmt.Fprintf(out, "export_dir: %s\n", cfg.ExportDir)
		if cfg.ExportDB != "" {
			fmt.Fprintf(out, "export_db: %s\n", mask(cfg.ExportDB))
		}
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		for _, kv := range columnKeys(&cfg.Columns) {
			fmt.Fprintf(out, "%s: %s\n", kv.key, *kv.val)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		switch key {
		case "data_path":
			c.DataPath = val
		case "sheet":
			c.Sheet = val
		case "delimiter":
			if _, err := parseDelimiter(val); err != nil {
				return err
			}
			c.Delimiter = val
		case "min_sampled":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for min_sampled: %v", val)
			}
			c.MinSampled = i
		case "strict_year":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for strict_year: %w", err)
			}
			c.StrictYear = b
		case "listen_addr":
			c.ListenAddr = val
		case "chart_width", "chart_height":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			if key == "chart_width" {
				c.ChartWidth = i
			} else {
				c.ChartHeight = i
			}
		case "export_dir":
			c.ExportDir = val
		case "export_db":
			c.ExportDB = val
		case "log_level":
			if !logging.ValidLevel(val) {
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
			c.LogLevel = val
		default:
			found := false
			for _, kv := range columnKeys(&c.Columns) {
				if kv.key == key {
					*kv.val = val
					found = true
				}
			}
			if !found {
				return fmt.Errorf("unknown key: %s", key)
			}
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

type columnKey struct {
	key string
	val *string
}

func columnKeys(c *cfgpkg.Columns) []columnKey {
	return []columnKey{
		{"columns.study", &c.Study},
		{"columns.study_type", &c.StudyType},
		{"columns.bat_species", &c.BatSpecies},
		{"columns.country", &c.Country},
		{"columns.sample_tissue", &c.SampleTissue},
		{"columns.virus_genus", &c.VirusGenus},
		{"columns.positive", &c.Positive},
		{"columns.sampled", &c.Sampled},
		{"columns.link", &c.Link},
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
