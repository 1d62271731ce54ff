package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ryftlabs/launchconf"
	"github.com/ryftlabs/launchconf/launch"
)

const appName = "launchconf"

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envPrefix  string
	schemaPath string
	envFile    string
	logLevel   string

	logger zerolog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "launchconf",
		Short: "Resolve and validate distributed training launch configurations",
		Long: `launchconf merges a base document (YAML, TOML, JSON, or JSONC) with
dotted-path command-line overrides like worker.rollout.tensor_parallel_size=4,
validates the result against the training spec schema, and reports the
provenance of every override.

Without --config, the base document is discovered via LAUNCHCONF_CONFIG and
the usual config directories; when nothing is found, resolution starts from
the built-in baseline spec.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = newLogger(opts.logLevel)
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil {
					return fmt.Errorf("load env file %s: %w", opts.envFile, err)
				}
			} else {
				// Best effort; a missing .env is the normal case
				_ = godotenv.Load()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "base document path (discovered when empty)")
	pf.StringVar(&opts.envPrefix, "env-prefix", "", "capture environment variables with this prefix under the env namespace")
	pf.StringVar(&opts.schemaPath, "schema", "", "schema document path (built-in training spec schema when empty)")
	pf.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before resolving")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(
		newResolveCommand(opts),
		newValidateCommand(opts),
		newExplainCommand(opts),
		newPlanCommand(opts),
	)

	return rootCmd
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// buildResolver assembles the pipeline from the persistent flags and the
// override arguments. Explicit --config wins; otherwise discovery runs,
// and with no document found the built-in baseline becomes the base.
func buildResolver(opts *rootOptions, args []string) (*launchconf.Resolver, error) {
	r := launchconf.NewResolver().WithArgs(args)

	if opts.configPath != "" {
		r = r.WithBaseFile(opts.configPath)
	} else {
		discovery := launchconf.DefaultDiscoveryOptions(appName)
		discovery.CLIFlag = "" // cobra owns the flags
		if path, ok := launchconf.DiscoverDocument(nil, discovery); ok {
			opts.logger.Debug().Str("path", path).Msg("discovered base document")
			r = r.WithBaseFile(path)
		} else {
			opts.logger.Debug().Msg("no base document found, using built-in baseline")
			r = r.WithBase(launch.DefaultTree())
		}
	}

	if opts.envPrefix != "" {
		r = r.WithEnv(launchconf.EnvOptions{Prefix: opts.envPrefix})
	}

	if opts.schemaPath != "" {
		schema, err := launchconf.LoadSchema(opts.schemaPath)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		r = r.WithSchema(schema)
	} else {
		r = r.WithSchema(launch.SpecSchema())
	}

	return r, nil
}

func logViolations(logger zerolog.Logger, violations []launchconf.Violation) {
	for _, v := range violations {
		logger.Warn().
			Str("path", v.Path.String()).
			Str("code", v.Code.String()).
			Msg(v.Detail)
	}
}
