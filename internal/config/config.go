package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Columns maps logical dataset fields to header names in the source file.
type Columns struct {
	Study        string `mapstructure:"study" yaml:"study"`
	StudyType    string `mapstructure:"study_type" yaml:"study_type"`
	BatSpecies   string `mapstructure:"bat_species" yaml:"bat_species"`
	Country      string `mapstructure:"country" yaml:"country"`
	SampleTissue string `mapstructure:"sample_tissue" yaml:"sample_tissue"`
	VirusGenus   string `mapstructure:"virus_genus" yaml:"virus_genus"`
	Positive     string `mapstructure:"positive" yaml:"positive"`
	Sampled      string `mapstructure:"sampled" yaml:"sampled"`
	Link         string `mapstructure:"link" yaml:"link"`
}

// Global configuration structure.
type Global struct {
	DataPath   string  `mapstructure:"data_path" yaml:"data_path"`
	Sheet      string  `mapstructure:"sheet" yaml:"sheet"`
	Delimiter  string  `mapstructure:"delimiter" yaml:"delimiter"`
	Columns    Columns `mapstructure:"columns" yaml:"columns"`
	MinSampled int     `mapstructure:"min_sampled" yaml:"min_sampled"`
	StrictYear bool    `mapstructure:"strict_year" yaml:"strict_year"`

	// Dashboard
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`

	// Export targets
	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`
	ExportDB  string `mapstructure:"export_db" yaml:"export_db"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultColumns returns the header names used by the published surveillance table.
func DefaultColumns() Columns {
	return Columns{
		Study:        "Study",
		StudyType:    "Study type",
		BatSpecies:   "Bat species",
		Country:      "Country",
		SampleTissue: "Sample type",
		VirusGenus:   "Virus genus",
		Positive:     "+",
		Sampled:      "#",
		Link:         "🔗",
	}
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Global {
	return Global{
		DataPath:    "exported-table.csv",
		Columns:     DefaultColumns(),
		MinSampled:  10,
		ListenAddr:  ":8501",
		ChartWidth:  900,
		ChartHeight: 500,
		ExportDir:   "exports",
		LogLevel:    "info",
	}
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.batcov/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Dir returns the per-user configuration directory (~/.batcov).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".batcov"), nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is applied to the process env first.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BATCOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("data_path", d.DataPath)
	v.SetDefault("sheet", d.Sheet)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("columns.study", d.Columns.Study)
	v.SetDefault("columns.study_type", d.Columns.StudyType)
	v.SetDefault("columns.bat_species", d.Columns.BatSpecies)
	v.SetDefault("columns.country", d.Columns.Country)
	v.SetDefault("columns.sample_tissue", d.Columns.SampleTissue)
	v.SetDefault("columns.virus_genus", d.Columns.VirusGenus)
	v.SetDefault("columns.positive", d.Columns.Positive)
	v.SetDefault("columns.sampled", d.Columns.Sampled)
	v.SetDefault("columns.link", d.Columns.Link)
	v.SetDefault("min_sampled", d.MinSampled)
	v.SetDefault("strict_year", d.StrictYear)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("chart_width", d.ChartWidth)
	v.SetDefault("chart_height", d.ChartHeight)
	v.SetDefault("export_dir", d.ExportDir)
	v.SetDefault("export_db", d.ExportDB)
	v.SetDefault("log_level", d.LogLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file falls back to defaults
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" && !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Global) Validate() error {
	if c.MinSampled < 0 {
		return fmt.Errorf("invalid min_sampled: %d (must be >= 0)", c.MinSampled)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("invalid chart size: %dx%d", c.ChartWidth, c.ChartHeight)
	}
	named := map[string]string{
		"columns.study":         c.Columns.Study,
		"columns.study_type":    c.Columns.StudyType,
		"columns.bat_species":   c.Columns.BatSpecies,
		"columns.country":       c.Columns.Country,
		"columns.sample_tissue": c.Columns.SampleTissue,
		"columns.virus_genus":   c.Columns.VirusGenus,
		"columns.positive":      c.Columns.Positive,
		"columns.sampled":       c.Columns.Sampled,
	}
	for key, val := range named {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("invalid %s: column name must not be empty", key)
		}
	}
	return nil
}
