// Package config loads the client configuration from YAML or CUE and
// validates it against an embedded CUE schema.
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

// Config is the validated client configuration.
type Config struct {
	SellerID   string
	PickupSlot string

	// UserID seeds a persisted session for demos; empty starts as guest.
	UserID string

	Database string
	LogLevel string
	Feed     Feed
}

// Feed configures the catalog feed and stream restarts.
type Feed struct {
	TopicPrefix  string
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// file mirrors the on-disk layout. Empty fields take schema defaults.
type file struct {
	SellerID   string   `yaml:"seller_id" json:"seller_id,omitempty"`
	PickupSlot string   `yaml:"pickup_slot" json:"pickup_slot,omitempty"`
	UserID     string   `yaml:"user_id" json:"user_id,omitempty"`
	Database   string   `yaml:"database" json:"database,omitempty"`
	LogLevel   string   `yaml:"log_level" json:"log_level,omitempty"`
	Feed       fileFeed `yaml:"feed" json:"feed"`
}

type fileFeed struct {
	TopicPrefix  string `yaml:"topic_prefix" json:"topic_prefix,omitempty"`
	RetryInitial string `yaml:"retry_initial" json:"retry_initial,omitempty"`
	RetryMax     string `yaml:"retry_max" json:"retry_max,omitempty"`
}

// Load reads a .yaml, .yml or .cue file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension (want .yaml, .yml or .cue)", path)
	}
}

// ParseYAML decodes YAML strictly: unknown keys are errors.
func ParseYAML(data []byte) (Config, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.Encode(f)
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("encode config: %w", err)
	}
	return resolve(ctx, v)
}

// ParseCUE compiles a CUE config file.
func ParseCUE(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config: %w", err)
	}
	return resolve(ctx, v)
}

// Validate re-checks c against the schema, e.g. after flag overrides.
func (c Config) Validate() error {
	_, err := c.Resolve()
	return err
}

// Resolve checks c against the schema and fills unset fields with their
// defaults.
func (c Config) Resolve() (Config, error) {
	ctx := cuecontext.New()
	return resolve(ctx, ctx.Encode(c.file()))
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) file() file {
	f := file{
		SellerID:   c.SellerID,
		PickupSlot: c.PickupSlot,
		UserID:     c.UserID,
		Database:   c.Database,
		LogLevel:   c.LogLevel,
		Feed:       fileFeed{TopicPrefix: c.Feed.TopicPrefix},
	}
	if c.Feed.RetryInitial > 0 {
		f.Feed.RetryInitial = c.Feed.RetryInitial.String()
	}
	if c.Feed.RetryMax > 0 {
		f.Feed.RetryMax = c.Feed.RetryMax.String()
	}
	return f
}

// resolve unifies v with #Config, fills defaults and converts the result.
func resolve(ctx *cue.Context, v cue.Value) (Config, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("load schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var f file
	if err := unified.Decode(&f); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	initial, err := time.ParseDuration(f.Feed.RetryInitial)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: feed.retry_initial: %w", err)
	}
	ceiling, err := time.ParseDuration(f.Feed.RetryMax)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: feed.retry_max: %w", err)
	}
	if initial > ceiling {
		return Config{}, fmt.Errorf("invalid config: feed.retry_initial %s exceeds feed.retry_max %s", initial, ceiling)
	}

	return Config{
		SellerID:   f.SellerID,
		PickupSlot: f.PickupSlot,
		UserID:     f.UserID,
		Database:   f.Database,
		LogLevel:   f.LogLevel,
		Feed: Feed{
			TopicPrefix:  f.Feed.TopicPrefix,
			RetryInitial: initial,
			RetryMax:     ceiling,
		},
	}, nil
}
