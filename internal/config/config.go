// Package config loads the lectern build configuration from a TOML file
// using Viper.
//
// A configuration is a list of named data queries and a list of page
// specifications, plus optional [site] and [build] tables. The [site] and
// [build] values may be overridden by environment variables with the
// LECTERN_ prefix (LECTERN_BUILD_OUTPUT_DIR, LECTERN_SITE_TITLE, ...). A .env
// file in the project root is loaded into the environment first when
// present.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/conneroisu/lectern/internal/errors"
)

const (
	// DefaultFileName is the configuration file looked up in the project root.
	DefaultFileName = "config.toml"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "LECTERN"
)

// Config is the logical build configuration.
type Config struct {
	Site  SiteConfig  `mapstructure:"site"`
	Build BuildConfig `mapstructure:"build"`
	Data  []DataQuery `mapstructure:"data"`
	Pages []Page      `mapstructure:"pages"`

	// Root is the project root every relative directory is resolved against.
	Root string `mapstructure:"-"`
	// File is the configuration file the values were read from.
	File string `mapstructure:"-"`
}

type SiteConfig struct {
	Title   string `mapstructure:"title"`
	BaseURL string `mapstructure:"base_url"`
}

type BuildConfig struct {
	OutputDir    string        `mapstructure:"output_dir"`
	TemplatesDir string        `mapstructure:"templates_dir"`
	DataDir      string        `mapstructure:"data_dir"`
	Debounce     time.Duration `mapstructure:"debounce"`
	MetricsFile  string        `mapstructure:"metrics_file"`
}

// DataQuery selects records from one collection and binds them under Name.
// Every predicate is optional.
type DataQuery struct {
	Name        string      `mapstructure:"name"`
	Collection  string      `mapstructure:"collection"`
	WhenIs      *KeyEquals  `mapstructure:"when_is"`
	WhenIsNot   *KeyEquals  `mapstructure:"when_is_not"`
	WhenHas     *KeyOnly    `mapstructure:"when_has"`
	WhenHasNot  *KeyOnly    `mapstructure:"when_has_not"`
	WhenMatches *KeyRegex   `mapstructure:"when_matches"`
	WhenExpr    *Expression `mapstructure:"when_expr"`
	Sort        *SortSpec   `mapstructure:"sort"`
	Limit       *int        `mapstructure:"limit"`
	First       bool        `mapstructure:"first"`
	Last        bool        `mapstructure:"last"`
}

type KeyEquals struct {
	Key    string `mapstructure:"key"`
	Equals string `mapstructure:"equals"`
}

type KeyOnly struct {
	Key string `mapstructure:"key"`
}

type KeyRegex struct {
	Key   string `mapstructure:"key"`
	Regex string `mapstructure:"regex"`
}

type Expression struct {
	Expression string `mapstructure:"expression"`
}

type SortSpec struct {
	Key   string `mapstructure:"key"`
	Order string `mapstructure:"order"`
}

// Page describes one output. A page with a Collection is rendered once per
// record of that collection; otherwise it is rendered once.
type Page struct {
	Template   string     `mapstructure:"template"`
	Collection string     `mapstructure:"collection"`
	Page       PageTarget `mapstructure:"page"`
}

type PageTarget struct {
	Path string `mapstructure:"path"`
}

// IsCollection reports whether the page is rendered per record.
func (p Page) IsCollection() bool {
	return p.Collection != ""
}

// OutputPath returns the output directory resolved against Root.
func (c *Config) OutputPath() string { return c.resolve(c.Build.OutputDir) }

// TemplatesPath returns the template directory resolved against Root.
func (c *Config) TemplatesPath() string { return c.resolve(c.Build.TemplatesDir) }

// DataPath returns the data directory resolved against Root.
func (c *Config) DataPath() string { return c.resolve(c.Build.DataDir) }

// MetricsPath returns the metrics textfile resolved against Root, or the
// empty string when metrics output is disabled.
func (c *Config) MetricsPath() string {
	if c.Build.MetricsFile == "" {
		return ""
	}
	return c.resolve(c.Build.MetricsFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// New returns a Viper instance carrying the lectern defaults and
// environment bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("site.title", "")
	v.SetDefault("site.base_url", "")
	v.SetDefault("build.output_dir", "public")
	v.SetDefault("build.templates_dir", "templates")
	v.SetDefault("build.data_dir", "data")
	v.SetDefault("build.debounce", time.Second)
	v.SetDefault("build.metrics_file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration file at file (DefaultFileName under root
// when empty) and validates it.
func Load(root, file string) (*Config, error) {
	return LoadWith(New(), root, file)
}

// LoadWith is Load using a caller-prepared Viper instance, for example one
// with command-line flags bound.
func LoadWith(v *viper.Viper, root, file string) (*Config, error) {
	if root == "" {
		root = "."
	}
	if file == "" {
		file = filepath.Join(root, DefaultFileName)
	}

	if err := loadDotEnv(root); err != nil {
		return nil, err
	}

	if _, err := os.Stat(file); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigNotFound, "configuration file not found", err).
			WithPath(file)
	}

	v.SetConfigFile(file)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "malformed configuration file", err).
			WithPath(file)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "configuration does not match schema", err).
			WithPath(file)
	}
	cfg.Root = root
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid configuration", err).
			WithPath(file)
	}

	return &cfg, nil
}

func loadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(path); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "malformed .env file", err).WithPath(path)
	}
	return nil
}
