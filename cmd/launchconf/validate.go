package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ryftlabs/launchconf"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate [path=value ...]",
		Short: "Resolve the configuration and fail on schema violations",
		Long: `Validate resolves the configuration and reports every schema violation
at once. The exit code is non-zero when any violation is found. With
--watch, the base document is polled and re-validated on every change
until interrupted.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := buildResolver(opts, args)
			if err != nil {
				return err
			}
			res, err := resolver.Resolve()
			if err != nil {
				return err
			}
			reportValidation(opts, res)

			if !watch {
				if !res.Valid() {
					return fmt.Errorf("configuration invalid: %d violations", len(res.Violations))
				}
				return nil
			}

			return watchValidation(cmd.Context(), opts, resolver)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-validate when the base document changes")

	return cmd
}

func reportValidation(opts *rootOptions, res *launchconf.Result) {
	if res.Valid() {
		opts.logger.Info().
			Int("overrides", res.Trace.Len()).
			Str("base", res.BaseFile).
			Msg("configuration valid")
		return
	}
	logViolations(opts.logger, res.Violations)
	opts.logger.Error().
		Int("violations", len(res.Violations)).
		Msg("configuration invalid")
}

func watchValidation(ctx context.Context, opts *rootOptions, resolver *launchconf.Resolver) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := resolver.Watch(ctx, launchconf.DefaultWatchOptions())
	if err != nil {
		return err
	}
	defer watcher.Stop()

	opts.logger.Info().Msg("watching base document, ctrl-c to stop")
	events := watcher.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				opts.logger.Error().Err(ev.Err).Msg("re-resolution failed")
				continue
			}
			reportValidation(opts, ev.Result)
		}
	}
}
