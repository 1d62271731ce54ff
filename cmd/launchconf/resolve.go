package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryftlabs/launchconf"
)

func newResolveCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "resolve [path=value ...]",
		Short: "Resolve the configuration and print the merged tree",
		Long: `Resolve merges the base document with the given overrides and prints
the final tree. Schema violations are logged but do not block the output;
use validate when conformance should gate the exit code.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(output)
			if err != nil {
				return err
			}

			resolver, err := buildResolver(opts, args)
			if err != nil {
				return err
			}
			res, err := resolver.Resolve()
			if err != nil {
				return err
			}
			logViolations(opts.logger, res.Violations)

			data, err := launchconf.EncodeDocument(res.Config, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml|json|toml)")

	return cmd
}

func outputFormat(name string) (launchconf.Format, error) {
	switch name {
	case "yaml", "yml":
		return launchconf.FormatYAML, nil
	case "json":
		return launchconf.FormatJSON, nil
	case "toml":
		return launchconf.FormatTOML, nil
	default:
		return launchconf.FormatAuto, fmt.Errorf("unknown output format %q (want yaml, json, or toml)", name)
	}
}
