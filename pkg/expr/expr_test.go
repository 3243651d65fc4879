package expr_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/google/cel-go/common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/crumbs/pkg/expr"
)

func TestFileFunctions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("kind: RuleSet\nrules:\n  Keyword:\n    patterns: [func]\n"), 0o600))

	env, err := expr.NewFileEnvironment()
	require.NoError(t, err)

	tcs := map[string]struct {
		file       string
		content    string
		expression string
		op         fsnotify.Op
		want       bool
	}{
		"pathExt": {
			file:       "/src/main.go",
			expression: `pathExt(file) == ".go"`,
			want:       true,
		},
		"pathBase in list": {
			file:       "/src/go.mod",
			expression: `pathBase(file) in ["go.mod", "go.sum"]`,
			want:       true,
		},
		"pathDir": {
			file:       "/src/testdata/a.txt",
			expression: `pathDir(file) == "/src/testdata" && dir == pathDir(file)`,
			want:       true,
		},
		"shebang with env": {
			file:       "/bin/run",
			content:    "#!/usr/bin/env -S bash\necho hi\n",
			expression: `shebang(content) == "bash"`,
			want:       true,
		},
		"shebang direct": {
			file:       "/bin/run",
			content:    "#!/bin/sh -e\n",
			expression: `shebang(content) == "sh"`,
			want:       true,
		},
		"no shebang": {
			file:       "/bin/run",
			content:    "echo hi\n",
			expression: `shebang(content) == ""`,
			want:       true,
		},
		"firstLine": {
			file:       "/a.xml",
			content:    "<?xml version=\"1.0\"?>\r\n<a/>",
			expression: `firstLine(content) == "<?xml version=\"1.0\"?>"`,
			want:       true,
		},
		"yamlPath": {
			file:       rules,
			expression: `yamlPath(file, "$.kind") == "RuleSet"`,
			want:       true,
		},
		"yamlPath missing file is null": {
			file:       filepath.Join(dir, "missing.yaml"),
			expression: `yamlPath(file, "$.kind") == null`,
			want:       true,
		},
		"op has": {
			file:       "/a.go",
			op:         fsnotify.Write | fsnotify.Chmod,
			expression: `op.has(fs.WRITE)`,
			want:       true,
		},
		"op has any": {
			file:       "/a.go",
			op:         fsnotify.Chmod,
			expression: `op.has(fs.CREATE, fs.WRITE)`,
			want:       false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			program, err := env.Compile(tc.expression)
			require.NoError(t, err)

			got, err := expr.EvalBool(program, expr.FileVars(tc.file, []byte(tc.content), int64(tc.op)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	for name, expression := range map[string]string{
		"syntax":       `pathBase(`,
		"bad argument": `pathBase(42)`,
		"unknown var":  `nope == 1`,
		"has no flags": `1.has()`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := env.Compile(expression)
			require.Error(t, err)
		})
	}
}

func TestEvalBool(t *testing.T) {
	t.Parallel()

	env, err := expr.NewFileEnvironment()
	require.NoError(t, err)

	program, err := env.Compile(`pathBase(file)`)
	require.NoError(t, err)

	_, err = expr.EvalBool(program, expr.FileVars("/a/b", nil, 0))
	require.ErrorContains(t, err, "want bool")
}

func TestShebang(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"#!/bin/bash":              "bash",
		"#! /usr/bin/python3 -u\n": "python3",
		"#!/usr/bin/env node":      "node",
		"#!/usr/bin/env":           "",
		"#!":                       "",
		"package main":             "",
	}

	for in, want := range tcs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, want, expr.Shebang(in))
		})
	}
}

func TestToValue(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input  any
		want   any
		isNull bool
	}{
		"nil":         {input: nil, isNull: true},
		"bool":        {input: true, want: true},
		"int":         {input: 42, want: int64(42)},
		"int8":        {input: int8(42), want: int64(42)},
		"uint64":      {input: uint64(42), want: uint64(42)},
		"string":      {input: "hello", want: "hello"},
		"unsupported": {input: complex(1, 2), isNull: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := expr.ToValue(tc.input)
			if tc.isNull {
				assert.Equal(t, types.NullValue, got)

				return
			}

			assert.Equal(t, tc.want, got.Value())
		})
	}
}

func TestToValueCollections(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "list", expr.ToValue([]any{1, "a", nil}).Type().TypeName())
	assert.Equal(t, "map", expr.ToValue(map[string]any{
		"nested": map[string]any{"inner": "value"},
	}).Type().TypeName())
}

func TestYAMLPathNumbers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(file, []byte("version: 2\nratio: 0.5\n"), 0o600))

	env, err := expr.NewFileEnvironment()
	require.NoError(t, err)

	program, err := env.Compile(`yamlPath(file, "$.version") == 2 && yamlPath(file, "$.ratio") < 1.0`)
	require.NoError(t, err)

	got, err := expr.EvalBool(program, expr.FileVars(file, nil, 0))
	require.NoError(t, err)
	assert.True(t, got)
}
