package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix prefixes environment variables that stand in for flags, e.g.
// MICROBENCH_NO_HISTORY for --no-history.
const envPrefix = "MICROBENCH"

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a TOML config file (if --config is given), and applies the
// configuration in that priority order. Each flag holds a pointer to its
// variable, so the flag variables end up with the resolved values.
//
// Environment variables are the flag names upper-cased, with dashes replaced
// by underscores and envPrefix plus an underscore in front.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			// A flag given on the command line wins.
			return
		}

		switch f.Value.Type() {
		case "stringSlice", "stringArray":
			// A list from the config file has no string form, and Set
			// appends, so feed the items one at a time. An environment
			// variable is a single item.
			var items []string
			if raw, ok := v.Get(f.Name).(string); ok {
				if raw != "" {
					items = []string{raw}
				}
			} else {
				items = v.GetStringSlice(f.Name)
			}
			for _, item := range items {
				if flagErr = f.Value.Set(item); flagErr != nil {
					return
				}
			}
		default:
			flagErr = f.Value.Set(v.GetString(f.Name))
		}
	})
	return flagErr
}

// newLogger returns the diagnostic logger. Reports go to stdout; this only
// carries warnings, or everything with --debug.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
