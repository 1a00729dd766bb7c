package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/batcov/internal/config"
	"github.com/KaramelBytes/batcov/internal/utils"
)

var (
	initForce bool
	initData  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			dir, err := cfgpkg.Dir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}
		// Refuse to overwrite an existing config.
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat config: %w", err)
		}
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		c := cfgpkg.Default()
		if initData != "" {
			abs, err := filepath.Abs(initData)
			if err != nil {
				return err
			}
			c.DataPath = abs
		}
		if err := cfgpkg.Save(&c, path); err != nil {
			return err
		}
		successf(cmd.OutOrStdout(), "Config initialized: %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
	initCmd.Flags().StringVar(&initData, "data-path", "", "surveillance table to record as data_path")
}
