// File: launchconf/doc.go

// Package launchconf resolves hierarchical configuration for distributed
// training launches. A base document (YAML, TOML, JSON, or JSONC) merges
// with dotted-path command-line overrides like
// worker.rollout.tensor_parallel_size=4, producing a typed config tree
// with full provenance of every override applied.
//
// Features:
//   - Dotted-path overrides with deterministic value coercion
//   - Structured JSON literals in override values ([...] and {...})
//   - Atomic merges: a failed override list yields no tree at all
//   - Insertion-order preservation from document to output
//   - Schema validation that reports every violation at once
//   - Environment capture into a reserved namespace, values verbatim
//   - Provenance traces showing winning and shadowed overrides
//   - Struct decoding through yaml tags
//   - Re-resolution on file change for watch workflows
//
// Quick Start:
//
//	res, err := launchconf.Resolve("grpo.yaml", os.Args[1:])
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gpus, _ := res.Config.Int64("trainer.n_gpus_per_node")
//	name, _ := res.Config.String("worker.rollout.name")
//
// Layering (lowest to highest):
//  1. Programmatic defaults (WithBase)
//  2. Base document (WithBaseFile)
//  3. Captured environment under the "env" namespace (WithEnv)
//  4. Command-line overrides in argument order (WithArgs)
//
// Custom pipelines:
//
//	res, err := launchconf.NewResolver().
//	    WithBase(launch.DefaultTree()).
//	    WithBaseFile("grpo.yaml").
//	    WithEnv(launchconf.EnvOptions{Prefix: "WANDB_"}).
//	    WithArgs(args).
//	    WithSchema(launch.SpecSchema()).
//	    Resolve()
//
// Concurrency:
// Resolution builds a fresh tree each time and never mutates its inputs,
// so resolvers may be shared across goroutines once configured. Resolved
// trees are read-only by convention; concurrent reads are safe.
package launchconf
