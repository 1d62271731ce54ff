// File: launchconf/resolver.go
package launchconf

import (
	"fmt"
	"strings"
)

// ValidatorFunc is a caller-supplied check that runs after resolution and
// schema validation. Returning an error makes the whole resolve fail.
type ValidatorFunc func(res *Result) error

// Resolver assembles a resolution pipeline with a fluent interface:
// programmatic defaults, then the base document, then captured environment,
// then command-line overrides, each layer on top of the previous one.
type Resolver struct {
	base       *Node
	baseFile   string
	args       []string
	overrides  []Override
	envOpts    *EnvOptions
	schema     *Schema
	validators []ValidatorFunc
}

// NewResolver creates an empty resolver. Arguments are not read from
// os.Args implicitly; pass them with WithArgs so flag-bearing test and
// tool invocations never leak into override parsing.
func NewResolver() *Resolver {
	return &Resolver{
		validators: make([]ValidatorFunc, 0),
	}
}

// WithBase sets the programmatic defaults tree. A base document loaded
// from file deep-merges on top of it.
func (r *Resolver) WithBase(defaults *Node) *Resolver {
	r.base = defaults
	return r
}

// WithBaseFile sets the base document path. The file must exist at
// resolve time; a launcher silently training on built-in defaults is
// worse than an error.
func (r *Resolver) WithBaseFile(path string) *Resolver {
	r.baseFile = path
	return r
}

// WithArgs sets the command-line override arguments, each "path=value".
func (r *Resolver) WithArgs(args []string) *Resolver {
	r.args = args
	return r
}

// WithOverrides appends pre-parsed overrides. They apply after the
// arguments from WithArgs.
func (r *Resolver) WithOverrides(overrides ...Override) *Resolver {
	r.overrides = append(r.overrides, overrides...)
	return r
}

// WithEnv enables environment capture into the reserved namespace.
func (r *Resolver) WithEnv(opts EnvOptions) *Resolver {
	r.envOpts = &opts
	return r
}

// WithSchema sets the schema checked after merging. Violations land in
// the result; they do not fail the resolve.
func (r *Resolver) WithSchema(s *Schema) *Resolver {
	r.schema = s
	return r
}

// WithValidator adds a validation function that runs at the end of the
// resolve. Multiple validators execute in the order they were added.
func (r *Resolver) WithValidator(fn ValidatorFunc) *Resolver {
	if fn != nil {
		r.validators = append(r.validators, fn)
	}
	return r
}

// Resolve runs the pipeline and returns the resolved result. Any layer
// failure aborts the whole resolve: there is no partially merged tree.
func (r *Resolver) Resolve() (*Result, error) {
	base := r.base
	fileUsed := ""
	if r.baseFile != "" {
		doc, err := LoadDocument(r.baseFile)
		if err != nil {
			return nil, err
		}
		base = Overlay(base, doc)
		fileUsed = r.baseFile
	} else if base == nil {
		base = Mapping()
	}

	if r.envOpts != nil {
		injected, err := InjectEnv(base, *r.envOpts)
		if err != nil {
			return nil, err
		}
		base = injected
	}

	overrides, err := ParseOverrides(r.args)
	if err != nil {
		return nil, err
	}
	overrides = append(overrides, r.overrides...)

	cfg, trace, err := Apply(base, overrides)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Config:   cfg,
		Trace:    trace,
		BaseFile: fileUsed,
	}
	if r.schema != nil {
		res.Violations = r.schema.Validate(cfg)
	}

	for _, validator := range r.validators {
		if err := validator(res); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return res, nil
}

// MustResolve is Resolve but panics on error.
func (r *Resolver) MustResolve() *Result {
	res, err := r.Resolve()
	if err != nil {
		panic(fmt.Sprintf("config resolution failed: %v", err))
	}
	return res
}

// Resolve is the single-call form for the common case: a base document
// plus command-line overrides. An empty baseFile starts from an empty
// tree, so pure-override invocations work too.
func Resolve(baseFile string, args []string) (*Result, error) {
	r := NewResolver().WithArgs(args)
	if baseFile != "" {
		r = r.WithBaseFile(baseFile)
	}
	return r.Resolve()
}

// MustResolve is Resolve but panics on error.
func MustResolve(baseFile string, args []string) *Result {
	res, err := Resolve(baseFile, args)
	if err != nil {
		panic(fmt.Sprintf("config resolution failed: %v", err))
	}
	return res
}

// Result is a completed resolution: the merged tree, the provenance of
// every override applied to it, and any schema violations found.
type Result struct {
	Config     *Node
	Trace      *Trace
	Violations []Violation

	// BaseFile is the document the tree was resolved from, empty when
	// resolution started from defaults or an empty tree.
	BaseFile string
}

// Valid reports whether schema validation passed. A result resolved
// without a schema is trivially valid.
func (res *Result) Valid() bool {
	return len(res.Violations) == 0
}

// Scan decodes the subtree at basePath into a target struct pointer. The
// empty path scans the whole config.
func (res *Result) Scan(basePath string, target any) error {
	return DecodePath(res.Config, basePath, target)
}

// Explain renders a human-readable account of the resolution: every
// override in application order with its winner/shadowed status, then any
// schema violations.
func (res *Result) Explain() string {
	var b strings.Builder
	if res.BaseFile != "" {
		b.WriteString(fmt.Sprintf("base document: %s\n", res.BaseFile))
	}
	if res.Trace.Len() == 0 {
		b.WriteString("no overrides applied\n")
	} else {
		b.WriteString("overrides in application order:\n")
		for _, step := range res.Trace.Steps() {
			spelling := step.Raw
			if spelling == "" {
				spelling = envValueString(step.Value)
			}
			status := "applied"
			if winner, ok := res.Trace.Origin(step.Path); ok && winner.Index != step.Index {
				status = fmt.Sprintf("shadowed by #%d", winner.Index)
			}
			b.WriteString(fmt.Sprintf("  #%d %s = %s (%s)\n", step.Index, step.Path.String(), spelling, status))
		}
	}
	if len(res.Violations) > 0 {
		b.WriteString("schema violations:\n")
		for _, v := range res.Violations {
			b.WriteString(fmt.Sprintf("  %s\n", v.String()))
		}
	}
	return b.String()
}
