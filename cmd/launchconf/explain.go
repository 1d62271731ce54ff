package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryftlabs/launchconf"
)

func newExplainCommand(opts *rootOptions) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "explain <path> [path=value ...]",
		Short: "Show where a path's final value came from",
		Long: `Explain resolves the configuration and reports the provenance of one
path: its final value and every override that touched it, in application
order, with shadowed writes marked. With --full the entire resolution
trace is printed instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := launchconf.ParsePath(args[0])
			if err != nil {
				return err
			}

			resolver, err := buildResolver(opts, args[1:])
			if err != nil {
				return err
			}
			res, err := resolver.Resolve()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if full {
				fmt.Fprint(out, res.Explain())
				return nil
			}

			node, present := res.Config.At(path)
			if present {
				rendered, err := launchconf.EncodeDocument(node, launchconf.FormatYAML)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s:\n", path.String())
				fmt.Fprint(out, indent(string(rendered), "  "))
			} else {
				fmt.Fprintf(out, "%s: not present in the resolved tree\n", path.String())
			}

			history := res.Trace.History(path)
			if len(history) == 0 {
				if present {
					fmt.Fprintln(out, "from the base document (no overrides touched this path)")
				}
				return nil
			}
			fmt.Fprintln(out, "overrides:")
			for _, step := range history {
				status := "applied"
				if winner, ok := res.Trace.Origin(path); ok && winner.Index != step.Index {
					status = fmt.Sprintf("shadowed by #%d", winner.Index)
				}
				fmt.Fprintf(out, "  #%d %s=%s (%s)\n", step.Index, step.Path.String(), step.Raw, status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print the whole resolution trace")

	return cmd
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
