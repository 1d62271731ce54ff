// FILE: launchconf/document_test.go
package launchconf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentYAML(t *testing.T) {
	t.Run("KeyOrderPreserved", func(t *testing.T) {
		tree, err := ParseDocument([]byte(`
zeta: 1
alpha: 2
mid:
  yy: a
  xx: b
`), FormatYAML)
		require.NoError(t, err)

		assert.Equal(t, []string{"zeta", "alpha", "mid"}, tree.Keys())
		mid, _ := tree.Get("mid")
		assert.Equal(t, []string{"yy", "xx"}, mid.Keys())
	})

	t.Run("ScalarTypes", func(t *testing.T) {
		tree, err := ParseDocument([]byte(`
count: 8
lr: 1.0e-6
frac: 0.5
on: true
off: false
name: vllm
quoted: "8"
empty_val: null
tilde: ~
`), FormatYAML)
		require.NoError(t, err)

		count, _ := tree.Get("count")
		assert.Equal(t, int64(8), count.Value())
		lr, _ := tree.Get("lr")
		assert.Equal(t, 1.0e-6, lr.Value())
		frac, _ := tree.Get("frac")
		assert.Equal(t, 0.5, frac.Value())
		on, _ := tree.Get("on")
		assert.Equal(t, true, on.Value())
		name, _ := tree.Get("name")
		assert.Equal(t, "vllm", name.Value())
		quoted, _ := tree.Get("quoted")
		assert.Equal(t, "8", quoted.Value(), "quoting forces string")
		emptyVal, _ := tree.Get("empty_val")
		assert.True(t, emptyVal.IsNull())
		tilde, _ := tree.Get("tilde")
		assert.True(t, tilde.IsNull())
	})

	t.Run("SequencesAndNesting", func(t *testing.T) {
		tree, err := ParseDocument([]byte(`
trainer:
  logger: [console, wandb]
  stages:
    - name: warmup
      steps: 10
    - name: main
      steps: 100
`), FormatYAML)
		require.NoError(t, err)

		logger, ok := tree.Lookup("trainer.logger")
		require.True(t, ok)
		require.Equal(t, 2, logger.Len())

		stages, _ := tree.Lookup("trainer.stages")
		require.Equal(t, 2, stages.Len())
		first := stages.Items()[0]
		stepVal, _ := first.Get("steps")
		assert.Equal(t, int64(10), stepVal.Value())
	})

	t.Run("AliasesResolve", func(t *testing.T) {
		tree, err := ParseDocument([]byte(`
shared: &files [a.parquet, b.parquet]
train: *files
`), FormatYAML)
		require.NoError(t, err)

		train, _ := tree.Get("train")
		require.Equal(t, KindSequence, train.Kind())
		assert.Equal(t, 2, train.Len())
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		for _, src := range []string{"", "   \n\t\n"} {
			tree, err := ParseDocument([]byte(src), FormatYAML)
			require.NoError(t, err, "src %q", src)
			assert.Equal(t, KindMapping, tree.Kind())
			assert.Equal(t, 0, tree.Len())
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := ParseDocument([]byte("a: [unclosed\n"), FormatYAML)
		assert.Error(t, err)
	})
}

func TestParseDocumentTOML(t *testing.T) {
	tree, err := ParseDocument([]byte(`
title = "launch"
zz = 1

[trainer]
nnodes = 2
project_name = "demo"

[data]
shuffle = true
seed = 1
`), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "zz", "trainer", "data"}, tree.Keys(), "document order, not sorted order")

	trainer, _ := tree.Get("trainer")
	assert.Equal(t, []string{"nnodes", "project_name"}, trainer.Keys())
	nnodes, _ := trainer.Get("nnodes")
	assert.Equal(t, int64(2), nnodes.Value())

	shuffle, ok := tree.Lookup("data.shuffle")
	require.True(t, ok)
	assert.Equal(t, true, shuffle.Value())

	t.Run("ArrayOfTables", func(t *testing.T) {
		tree, err := ParseDocument([]byte(`
[[stage]]
name = "warmup"
steps = 10

[[stage]]
name = "main"
steps = 100
`), FormatTOML)
		require.NoError(t, err)

		stage, _ := tree.Get("stage")
		require.Equal(t, KindSequence, stage.Kind())
		require.Equal(t, 2, stage.Len())
		name, _ := stage.Items()[1].Get("name")
		assert.Equal(t, "main", name.Value())
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := ParseDocument([]byte("= broken"), FormatTOML)
		assert.Error(t, err)
	})
}

func TestParseDocumentJSON(t *testing.T) {
	tree, err := ParseDocument([]byte(`{
  "zz": 1,
  "aa": {"nested": [1, 2.5, "x", true, null]},
  "big": 9223372036854775807
}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"zz", "aa", "big"}, tree.Keys(), "object order, not sorted order")

	nested, ok := tree.Lookup("aa.nested")
	require.True(t, ok)
	require.Equal(t, 5, nested.Len())
	assert.Equal(t, int64(1), nested.Items()[0].Value())
	assert.Equal(t, 2.5, nested.Items()[1].Value())
	assert.Equal(t, "x", nested.Items()[2].Value())
	assert.Equal(t, true, nested.Items()[3].Value())
	assert.True(t, nested.Items()[4].IsNull())

	big, _ := tree.Get("big")
	assert.Equal(t, int64(9223372036854775807), big.Value(), "large ints survive without float rounding")

	t.Run("TrailingData", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"a": 1} {"b": 2}`), FormatJSON)
		assert.Error(t, err)
	})
}

func TestParseDocumentJSONC(t *testing.T) {
	tree, err := ParseDocument([]byte(`{
  // run identity
  "project": "demo", /* inline */
  "epochs": 15,
}`), FormatJSONC)
	require.NoError(t, err)

	project, _ := tree.Get("project")
	assert.Equal(t, "demo", project.Value())
	epochs, _ := tree.Get("epochs")
	assert.Equal(t, int64(15), epochs.Value())
}

func TestFormatSniffing(t *testing.T) {
	cases := []struct {
		name string
		src  string
		key  string
		want any
	}{
		{"JSON", `{"from": "json"}`, "from", "json"},
		{"TOML", "from = \"toml\"\n", "from", "toml"},
		{"YAML", "from: yaml\n", "from", "yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := ParseDocument([]byte(tc.src), FormatAuto)
			require.NoError(t, err)
			got, ok := tree.Get(tc.key)
			require.True(t, ok)
			assert.Equal(t, tc.want, got.Value())
		})
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()

	t.Run("ByExtension", func(t *testing.T) {
		yamlFile := filepath.Join(dir, "conf.yaml")
		require.NoError(t, os.WriteFile(yamlFile, []byte("a: 1\n"), 0644))
		tree, err := LoadDocument(yamlFile)
		require.NoError(t, err)
		a, _ := tree.Get("a")
		assert.Equal(t, int64(1), a.Value())

		tomlFile := filepath.Join(dir, "conf.toml")
		require.NoError(t, os.WriteFile(tomlFile, []byte("a = 2\n"), 0644))
		tree, err = LoadDocument(tomlFile)
		require.NoError(t, err)
		a, _ = tree.Get("a")
		assert.Equal(t, int64(2), a.Value())
	})

	t.Run("UnknownExtensionSniffs", func(t *testing.T) {
		cfgFile := filepath.Join(dir, "conf.cfg")
		require.NoError(t, os.WriteFile(cfgFile, []byte(`{"a": 3}`), 0644))
		tree, err := LoadDocument(cfgFile)
		require.NoError(t, err)
		a, _ := tree.Get("a")
		assert.Equal(t, int64(3), a.Value())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadDocument(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDocumentNotFound))
		assert.Contains(t, err.Error(), "nope.yaml")
	})

	t.Run("ParseFailureNamesFile", func(t *testing.T) {
		badFile := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(badFile, []byte("{oops"), 0644))
		_, err := LoadDocument(badFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.json")
	})
}

func TestEncodeDocument(t *testing.T) {
	src := []byte(`
zz: 1
aa:
  inner: [1, 2]
  flag: true
name: run-1
`)
	tree, err := ParseDocument(src, FormatYAML)
	require.NoError(t, err)

	t.Run("YAMLRoundTrip", func(t *testing.T) {
		out, err := EncodeDocument(tree, FormatYAML)
		require.NoError(t, err)

		again, err := ParseDocument(out, FormatYAML)
		require.NoError(t, err)
		assert.True(t, tree.Equal(again), "round trip changed the tree:\n%s", out)
		assert.Equal(t, []string{"zz", "aa", "name"}, again.Keys())
	})

	t.Run("JSONKeepsOrder", func(t *testing.T) {
		out, err := EncodeDocument(tree, FormatJSON)
		require.NoError(t, err)

		again, err := ParseDocument(out, FormatJSON)
		require.NoError(t, err)
		assert.True(t, tree.Equal(again))

		text := string(out)
		assert.Less(t, strings.Index(text, `"zz"`), strings.Index(text, `"aa"`))
		assert.Less(t, strings.Index(text, `"aa"`), strings.Index(text, `"name"`))
	})

	t.Run("TOML", func(t *testing.T) {
		noNulls, err := ParseDocument([]byte("a = 1\n[t]\nb = \"x\"\n"), FormatTOML)
		require.NoError(t, err)
		out, err := EncodeDocument(noNulls, FormatTOML)
		require.NoError(t, err)

		again, err := ParseDocument(out, FormatTOML)
		require.NoError(t, err)
		b, ok := again.Lookup("t.b")
		require.True(t, ok)
		assert.Equal(t, "x", b.Value())

		_, err = EncodeDocument(Scalar(1), FormatTOML)
		assert.Error(t, err, "toml root must be a mapping")
	})

	t.Run("EmptyContainers", func(t *testing.T) {
		root := Mapping()
		root.Set("seq", Sequence())
		root.Set("map", Mapping())

		out, err := EncodeDocument(root, FormatJSON)
		require.NoError(t, err)
		assert.Contains(t, string(out), "[]")
		assert.Contains(t, string(out), "{}")

		again, err := ParseDocument(out, FormatJSON)
		require.NoError(t, err)
		assert.True(t, root.Equal(again))
	})
}

func TestSaveDocument(t *testing.T) {
	dir := t.TempDir()
	tree, err := ParseDocument([]byte("trainer:\n  nnodes: 2\nname: saved\n"), FormatYAML)
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(dir, "out.yaml")
		require.NoError(t, SaveDocument(path, tree))

		loaded, err := LoadDocument(path)
		require.NoError(t, err)
		assert.True(t, tree.Equal(loaded))
	})

	t.Run("OverwriteLeavesNoTempFiles", func(t *testing.T) {
		path := filepath.Join(dir, "over.json")
		require.NoError(t, SaveDocument(path, tree))
		require.NoError(t, SaveDocument(path, tree))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-")
		}
	})

	t.Run("UnwritableDirectory", func(t *testing.T) {
		err := SaveDocument(filepath.Join(dir, "no", "such", "dir", "x.yaml"), tree)
		assert.Error(t, err)
	})
}
