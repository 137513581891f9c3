package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

const (
	// EnvPrefix namespaces environment variable overrides (XMLUVATION_FOLDER, ...).
	EnvPrefix = "XMLUVATION"
	// DefaultConfigName is the base name of the configuration file.
	DefaultConfigName = "xmluvation"
)

// Config is the fully resolved CLI configuration: the core export options
// plus the CLI-only presentation settings that never reach the library.
type Config struct {
	Export     export.Options
	Verbose    bool
	TuiEnabled bool
}

// LoadAndValidate merges configuration from defaults, an optional config
// file, XMLUVATION_* environment variables and command-line flags (highest
// precedence), resolves the filter list (explicit --xpath/--header pairs, or
// a named preset from the config file), sets up the logger, and returns the
// resolved configuration. The core library receives explicit options only;
// it never reads this configuration store itself.
func LoadAndValidate(cfgFile string, verbose bool, flags *pflag.FlagSet) (Config, *slog.Logger, error) {
	var cfg Config
	v := viper.New()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Error("Failed to get user home directory", slog.Any("error", err))
			return cfg, logger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			logger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			logger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return cfg, logger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		logger.Debug("Using configuration file", slog.String("path", v.ConfigFileUsed()))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Flags win over file and environment.
	for _, key := range []string{"folder", "output", "group", "concurrency"} {
		if f := flags.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return cfg, logger, fmt.Errorf("binding flag %q: %w", key, err)
			}
		}
	}

	cfg.Export.FolderPath = v.GetString("folder")
	cfg.Export.OutputPath = v.GetString("output")
	cfg.Export.GroupMatches = v.GetBool("group")
	cfg.Export.Concurrency = v.GetInt("concurrency")
	cfg.Export.Logger = handler
	cfg.Verbose = verbose

	noTui := false
	if f := flags.Lookup("no-tui"); f != nil {
		noTui, _ = flags.GetBool("no-tui")
	}
	cfg.TuiEnabled = !verbose && !noTui

	expressions, headers, err := resolveFilters(v, flags, logger)
	if err != nil {
		return cfg, logger, err
	}
	filters, err := export.MakeFilters(expressions, headers)
	if err != nil {
		return cfg, logger, err
	}
	cfg.Export.Filters = filters

	return cfg, logger, nil
}

// resolveFilters picks the filter source: explicit --xpath/--header flags
// when given, otherwise the named preset from the configuration file.
func resolveFilters(v *viper.Viper, flags *pflag.FlagSet, logger *slog.Logger) ([]string, []string, error) {
	expressions, _ := flags.GetStringArray("xpath")
	headers, _ := flags.GetStringArray("header")
	preset, _ := flags.GetString("preset")

	if len(expressions) > 0 {
		if preset != "" {
			logger.Debug("Both --xpath flags and --preset given; flags take precedence", slog.String("preset", preset))
		}
		return expressions, headers, nil
	}

	if preset == "" {
		return nil, nil, fmt.Errorf("%w: no filters given; pass --xpath/--header pairs or --preset", export.ErrConfigValidation)
	}
	presetKey := "presets." + preset
	if !v.IsSet(presetKey) {
		used := v.ConfigFileUsed()
		if used == "" {
			used = "(no config file found)"
		}
		return nil, nil, fmt.Errorf("preset '%s' not found in config file '%s'", preset, used)
	}
	expressions = v.GetStringSlice(presetKey + ".xpaths")
	headers = v.GetStringSlice(presetKey + ".headers")
	logger.Debug("Using filter preset", slog.String("preset", preset), slog.Int("filters", len(expressions)))
	return expressions, headers, nil
}

// setDefaults seeds the viper instance with the library defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("folder", "")
	v.SetDefault("output", "")
	v.SetDefault("group", export.DefaultGroupMatches)
	v.SetDefault("concurrency", export.DefaultConcurrency)
}
