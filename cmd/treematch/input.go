package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/treematch/pkg/source"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// documentFormat returns the tree document format implied by the extension
// of path, or "" for source files.
func documentFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return tree.FormatJSON
	case ".yaml", ".yml":
		return tree.FormatYAML
	default:
		return ""
	}
}

// loadTree reads a tree document or parses a source file. lang forces the
// language of source files.
func loadTree(ctx context.Context, parser *source.Parser, path, lang string) (*tree.Tree, error) {
	format := documentFormat(path)
	if format == "" {
		root, err := parser.ParseFile(ctx, path, lang)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}

		return root, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	root, err := tree.Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return root, nil
}
