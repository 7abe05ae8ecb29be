// Package config loads basket settings from defaults, a YAML file, the
// environment and command-line overrides, in that order of precedence
// (later wins), and validates the merged result against an embedded CUE
// schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables read by Load.
const (
	EnvAPIURL = "BASKET_API_URL"
	EnvToken  = "BASKET_TOKEN"
	EnvDB     = "BASKET_DB"
)

// Config is the validated, typed configuration.
type Config struct {
	APIURL        string
	Token         string
	DBPath        string
	Timeout       time.Duration
	LogLevel      slog.Level
	RedirectDelay time.Duration

	// Source is the config file that was read, or "" if none.
	Source string
}

// values is the untyped layer form; every layer overwrites non-empty fields.
type values struct {
	APIURL        string `yaml:"api_url" json:"api_url"`
	Token         string `yaml:"token" json:"token"`
	DB            string `yaml:"db" json:"db"`
	Timeout       string `yaml:"timeout" json:"timeout"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	RedirectDelay string `yaml:"redirect_delay" json:"redirect_delay"`
}

func (v *values) overlay(o values) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&v.APIURL, o.APIURL)
	set(&v.Token, o.Token)
	set(&v.DB, o.DB)
	set(&v.Timeout, o.Timeout)
	set(&v.LogLevel, o.LogLevel)
	set(&v.RedirectDelay, o.RedirectDelay)
}

// Overrides are values given on the command line. Empty fields are unset.
type Overrides struct {
	APIURL string
	Token  string
	DB     string
}

// Options controls Load.
type Options struct {
	// Path is the config file. When empty, DefaultPath is tried and a
	// missing file is not an error; an explicit Path must exist.
	Path string

	// Getenv reads the environment. Defaults to os.Getenv.
	Getenv func(string) string

	Overrides Overrides
}

// DefaultPath returns $XDG_CONFIG_HOME/basket/config.yaml, falling back to
// $HOME/.config/basket/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "basket", "config.yaml")
}

// DefaultDBPath returns the database location used when none is configured.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "basket", "basket.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "basket", "basket.db")
	}
	return "basket.db"
}

func defaults() values {
	return values{
		APIURL:        "http://localhost:8080",
		DB:            DefaultDBPath(),
		Timeout:       "10s",
		LogLevel:      "info",
		RedirectDelay: "1.5s",
	}
}

// Load merges defaults, file, environment and overrides and validates the
// result.
func Load(opts Options) (*Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	v := defaults()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = DefaultPath()
	}
	var source string
	if path != "" {
		fileVals, err := readFile(path)
		switch {
		case err == nil:
			v.overlay(fileVals)
			source = path
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, err
		}
	}

	v.overlay(values{
		APIURL: getenv(EnvAPIURL),
		Token:  getenv(EnvToken),
		DB:     getenv(EnvDB),
	})
	v.overlay(values{
		APIURL: opts.Overrides.APIURL,
		Token:  opts.Overrides.Token,
		DB:     opts.Overrides.DB,
	})

	cfg, err := v.validate()
	if err != nil {
		return nil, err
	}
	cfg.Source = source
	return cfg, nil
}

// Parse decodes and validates a YAML document layered over the defaults.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	fileVals, err := decode(r)
	if err != nil {
		return nil, err
	}
	v := defaults()
	v.overlay(fileVals)
	return v.validate()
}

func readFile(path string) (values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return values{}, fmt.Errorf("read config: %w", err)
	}
	vals, err := decode(bytes.NewReader(data))
	if err != nil {
		return values{}, fmt.Errorf("%s: %w", path, err)
	}
	return vals, nil
}

func decode(r io.Reader) (values, error) {
	var v values
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return values{}, fmt.Errorf("parse config: %w", err)
	}
	return v, nil
}

func (v values) validate() (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(v))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout, err := time.ParseDuration(v.Timeout)
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid config: timeout %q must be a positive duration", v.Timeout)
	}
	delay, err := time.ParseDuration(v.RedirectDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid config: redirect_delay %q: %w", v.RedirectDelay, err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid config: log_level: %w", err)
	}

	return &Config{
		APIURL:        strings.TrimSuffix(v.APIURL, "/"),
		Token:         v.Token,
		DBPath:        v.DB,
		Timeout:       timeout,
		LogLevel:      level,
		RedirectDelay: delay,
	}, nil
}

// RedactedToken returns the token with all but its last four characters
// masked, for display.
func (c *Config) RedactedToken() string {
	switch n := len(c.Token); {
	case n == 0:
		return ""
	case n <= 4:
		return strings.Repeat("*", n)
	default:
		return strings.Repeat("*", n-4) + c.Token[n-4:]
	}
}
