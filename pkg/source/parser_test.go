package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treematch/pkg/source"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

const goSource = `package main

func add(a, b int) int {
	return a + b
}
`

func findType(root *tree.Tree, nodeType string) *tree.Tree {
	for _, node := range root.PreOrder() {
		if node.Type.String() == nodeType {
			return node
		}
	}

	return nil
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"main.go", "go"},
		{"pkg/app.js", "javascript"},
		{"script.py", "python"},
		{"Main.java", "java"},
		{"README.md", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, source.Detect(tt.filename, nil))
		})
	}
}

func TestLanguages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"go", "java", "javascript", "python"}, source.Languages())
	assert.True(t, source.IsSupported("go"))
	assert.False(t, source.IsSupported("cobol"))
}

func TestParser_ParseGo(t *testing.T) {
	t.Parallel()

	root, err := source.NewParser().Parse(context.Background(), "main.go", "", []byte(goSource))
	require.NoError(t, err)

	assert.Equal(t, "source_file", root.Type.String())
	assert.True(t, root.IsRoot())
	assert.Equal(t, 0, root.ID())

	fn := findType(root, "function_declaration")
	require.NotNil(t, fn)
	assert.Empty(t, fn.Label)
	require.NotNil(t, fn.Pos)
	assert.Equal(t, uint(3), fn.Pos.StartLine)
	assert.Equal(t, uint(1), fn.Pos.StartCol)

	name := findType(fn, "identifier")
	require.NotNil(t, name)
	assert.Equal(t, "add", name.Label)
	assert.True(t, name.IsLeaf())
}

func TestParser_ChildrenInSourceOrder(t *testing.T) {
	t.Parallel()

	root, err := source.NewParser().Parse(context.Background(), "", "python", []byte("x = 1\ny = 2\nz = 3\n"))
	require.NoError(t, err)

	require.Equal(t, 3, root.ChildCount())

	var names []string

	for _, stmt := range root.Children() {
		ident := findType(stmt, "identifier")
		require.NotNil(t, ident)

		names = append(names, ident.Label)
	}

	assert.Equal(t, []string{"x", "y", "z"}, names)
}

func TestParser_ConcurrentUse(t *testing.T) {
	t.Parallel()

	parser := source.NewParser()

	for idx := range 4 {
		t.Run(string(rune('a'+idx)), func(t *testing.T) {
			t.Parallel()

			root, err := parser.Parse(context.Background(), "main.go", "", []byte(goSource))
			require.NoError(t, err)
			assert.NotNil(t, findType(root, "return_statement"))
		})
	}
}

func TestParser_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := source.NewParser().Parse(context.Background(), "notes.txt", "", []byte("hello"))
	require.ErrorIs(t, err, source.ErrUnsupportedLanguage)

	_, err = source.NewParser().Parse(context.Background(), "main.go", "cobol", []byte(goSource))
	require.ErrorIs(t, err, source.ErrUnsupportedLanguage)
}

func TestParser_ParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte(goSource), 0o600))

	root, err := source.NewParser().ParseFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "source_file", root.Type.String())

	_, err = source.NewParser().ParseFile(context.Background(), filepath.Join(dir, "missing.go"), "")
	require.Error(t, err)
}
