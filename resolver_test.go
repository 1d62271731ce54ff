// FILE: launchconf/resolver_test.go
package launchconf_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryftlabs/launchconf"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolverLayering(t *testing.T) {
	defaults, err := launchconf.ParseDocument([]byte(`
trainer:
  nnodes: 1
  save_freq: -1
  project_name: default-project
worker:
  rollout:
    name: vllm
`), launchconf.FormatYAML)
	require.NoError(t, err)

	configFile := writeConfig(t, "run.yaml", `
trainer:
  nnodes: 2
  project_name: from-file
data:
  train_files: train.parquet
`)

	os.Setenv("LCRES_TOKEN", "0123")
	defer os.Unsetenv("LCRES_TOKEN")

	res, err := launchconf.NewResolver().
		WithBase(defaults).
		WithBaseFile(configFile).
		WithEnv(launchconf.EnvOptions{Prefix: "LCRES_"}).
		WithArgs([]string{"trainer.nnodes=4", "worker.rollout.gpu_memory_utilization=0.6"}).
		Resolve()
	require.NoError(t, err)

	// Overrides beat the file, the file beats defaults, untouched defaults
	// survive.
	nnodes, err := res.Config.Int64("trainer.nnodes")
	require.NoError(t, err)
	assert.Equal(t, int64(4), nnodes)

	project, _ := res.Config.String("trainer.project_name")
	assert.Equal(t, "from-file", project)

	saveFreq, err := res.Config.Int64("trainer.save_freq")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), saveFreq)

	rolloutName, _ := res.Config.String("worker.rollout.name")
	assert.Equal(t, "vllm", rolloutName)

	gpuMem, err := res.Config.Float64("worker.rollout.gpu_memory_utilization")
	require.NoError(t, err)
	assert.Equal(t, 0.6, gpuMem)

	token, _ := res.Config.String("env.LCRES_TOKEN")
	assert.Equal(t, "0123", token)

	assert.Equal(t, configFile, res.BaseFile)
	assert.True(t, res.Valid())
	assert.Equal(t, 2, res.Trace.Len())

	origin, ok := res.Trace.Origin(launchconf.MustParsePath("trainer.nnodes"))
	require.True(t, ok)
	assert.Equal(t, "4", origin.Raw)
}

func TestResolverBaseFile(t *testing.T) {
	t.Run("Missing File Fails", func(t *testing.T) {
		_, err := launchconf.NewResolver().
			WithBaseFile(filepath.Join(t.TempDir(), "absent.yaml")).
			Resolve()
		require.Error(t, err)
		assert.True(t, errors.Is(err, launchconf.ErrDocumentNotFound))
	})

	t.Run("No File Starts Empty", func(t *testing.T) {
		res, err := launchconf.Resolve("", []string{"a.b=1"})
		require.NoError(t, err)
		v, err := res.Config.Int64("a.b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
		assert.Equal(t, "", res.BaseFile)
	})

	t.Run("Convenience Form", func(t *testing.T) {
		configFile := writeConfig(t, "c.yaml", "x: 10\n")
		res, err := launchconf.Resolve(configFile, []string{"x=20"})
		require.NoError(t, err)
		v, _ := res.Config.Int64("x")
		assert.Equal(t, int64(20), v)
	})
}

func TestResolverSchema(t *testing.T) {
	schema := launchconf.NewSchema().
		Require("data.train_files", launchconf.TypeString).
		Require("trainer.n_gpus_per_node", launchconf.TypeInt)

	t.Run("Violations Are Reported Not Fatal", func(t *testing.T) {
		res, err := launchconf.NewResolver().
			WithArgs([]string{"data.train_files=t.parquet"}).
			WithSchema(schema).
			Resolve()
		require.NoError(t, err, "violations must not abort resolution")
		assert.False(t, res.Valid())
		require.Len(t, res.Violations, 1)
		assert.Equal(t, "trainer.n_gpus_per_node", res.Violations[0].Path.String())
	})

	t.Run("Conforming", func(t *testing.T) {
		res, err := launchconf.NewResolver().
			WithArgs([]string{"data.train_files=t.parquet", "trainer.n_gpus_per_node=8"}).
			WithSchema(schema).
			Resolve()
		require.NoError(t, err)
		assert.True(t, res.Valid())
	})
}

func TestResolverValidators(t *testing.T) {
	t.Run("Failure Aborts", func(t *testing.T) {
		_, err := launchconf.NewResolver().
			WithArgs([]string{"trainer.nnodes=0"}).
			WithValidator(func(res *launchconf.Result) error {
				n, err := res.Config.Int64("trainer.nnodes")
				if err != nil {
					return err
				}
				if n < 1 {
					return errors.New("at least one node required")
				}
				return nil
			}).
			Resolve()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Contains(t, err.Error(), "at least one node required")
	})

	t.Run("Run In Order", func(t *testing.T) {
		var order []string
		_, err := launchconf.NewResolver().
			WithValidator(func(*launchconf.Result) error {
				order = append(order, "first")
				return nil
			}).
			WithValidator(func(*launchconf.Result) error {
				order = append(order, "second")
				return nil
			}).
			Resolve()
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
	})
}

func TestResolverBadArgs(t *testing.T) {
	_, err := launchconf.NewResolver().
		WithArgs([]string{"trainer.nnodes"}).
		Resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, launchconf.ErrMalformedOverride))

	_, err = launchconf.NewResolver().
		WithArgs([]string{"bad..path=1"}).
		Resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, launchconf.ErrMalformedPath))
}

func TestResolverWithOverrides(t *testing.T) {
	ov, err := launchconf.ParseOverride("worker.rollout.name=sglang")
	require.NoError(t, err)

	res, err := launchconf.NewResolver().
		WithArgs([]string{"worker.rollout.name=vllm"}).
		WithOverrides(ov).
		Resolve()
	require.NoError(t, err)

	// Pre-parsed overrides apply after the args, so they win ties.
	name, _ := res.Config.String("worker.rollout.name")
	assert.Equal(t, "sglang", name)
}

func TestResultScan(t *testing.T) {
	type RolloutConf struct {
		Name        string        `yaml:"name"`
		Temperature float64       `yaml:"temperature"`
		TensorSize  int           `yaml:"tensor_parallel_size"`
		Timeout     time.Duration `yaml:"timeout"`
		Tags        []string      `yaml:"tags"`
	}

	res, err := launchconf.NewResolver().
		WithArgs([]string{
			"rollout.name=vllm",
			"rollout.temperature=1.0",
			"rollout.tensor_parallel_size=2",
			"rollout.timeout=90s",
			"rollout.tags=prod,fast",
		}).
		Resolve()
	require.NoError(t, err)

	var conf RolloutConf
	require.NoError(t, res.Scan("rollout", &conf))

	assert.Equal(t, "vllm", conf.Name)
	assert.Equal(t, 1.0, conf.Temperature)
	assert.Equal(t, 2, conf.TensorSize)
	assert.Equal(t, 90*time.Second, conf.Timeout)
	assert.Equal(t, []string{"prod", "fast"}, conf.Tags)

	t.Run("Absent Path Leaves Zero Values", func(t *testing.T) {
		var conf RolloutConf
		require.NoError(t, res.Scan("no.such.section", &conf))
		assert.Equal(t, RolloutConf{}, conf)
	})

	t.Run("Non Pointer Rejected", func(t *testing.T) {
		var conf RolloutConf
		assert.Error(t, res.Scan("rollout", conf))
	})
}

func TestResultExplain(t *testing.T) {
	configFile := writeConfig(t, "base.yaml", "trainer:\n  nnodes: 1\n")

	res, err := launchconf.NewResolver().
		WithBaseFile(configFile).
		WithArgs([]string{
			"trainer.nnodes=2",
			"data.seed=7",
			"trainer.nnodes=8",
		}).
		Resolve()
	require.NoError(t, err)

	report := res.Explain()
	assert.Contains(t, report, "base document: "+configFile)
	assert.Contains(t, report, "#0 trainer.nnodes = 2 (shadowed by #2)")
	assert.Contains(t, report, "#1 data.seed = 7 (applied)")
	assert.Contains(t, report, "#2 trainer.nnodes = 8 (applied)")

	t.Run("No Overrides", func(t *testing.T) {
		res, err := launchconf.Resolve("", nil)
		require.NoError(t, err)
		assert.Contains(t, res.Explain(), "no overrides applied")
	})

	t.Run("Violations Section", func(t *testing.T) {
		res, err := launchconf.NewResolver().
			WithSchema(launchconf.NewSchema().Require("data.train_files", launchconf.TypeString)).
			Resolve()
		require.NoError(t, err)
		assert.Contains(t, res.Explain(), "schema violations:")
		assert.Contains(t, res.Explain(), "data.train_files")
	})
}

func TestResolverConcurrentUse(t *testing.T) {
	configFile := writeConfig(t, "shared.yaml", "trainer:\n  nnodes: 2\n")
	resolver := launchconf.NewResolver().
		WithBaseFile(configFile).
		WithArgs([]string{"trainer.total_epochs=15"})

	const workers = 8
	results := make([]*launchconf.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			res, err := resolver.Resolve()
			if err == nil {
				results[slot] = res
			}
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res, "worker %d failed", i)
		assert.True(t, results[0].Config.Equal(res.Config))
	}
}

func TestMustResolve(t *testing.T) {
	assert.Panics(t, func() {
		launchconf.MustResolve(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	})

	assert.NotPanics(t, func() {
		res := launchconf.NewResolver().WithArgs([]string{"a=1"}).MustResolve()
		assert.NotNil(t, res.Config)
	})
}
