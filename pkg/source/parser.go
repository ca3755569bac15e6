package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// Sentinel errors for parsing.
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoRootNode          = errors.New("no root node")
	errPoolType            = errors.New("parser pool returned unexpected type")
)

// Parser builds trees from source code. It is safe for concurrent use.
type Parser struct {
	pools sync.Map // language name -> *sync.Pool of *sitter.Parser
}

// NewParser creates a parser for all supported languages.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads the file at filePath and parses it.
func (p *Parser) ParseFile(ctx context.Context, filePath, lang string) (*tree.Tree, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	return p.Parse(ctx, filePath, lang, content)
}

// Parse parses content as lang, or as the language detected from filename
// when lang is empty. Every named tree-sitter node becomes a tree node of the
// same type; leaves carry their source text as label.
func (p *Parser) Parse(ctx context.Context, filename, lang string, content []byte) (*tree.Tree, error) {
	if lang == "" {
		lang = Detect(filename, content)
	}

	language := grammar(lang)
	if language == nil {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnsupportedLanguage, lang, filename)
	}

	pool := p.pool(lang, language)

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer pool.Put(tsParser)

	tsTree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: %s", ErrNoRootNode, filename)
	}

	result := convert(root, content)
	result.Refresh()

	return result, nil
}

func (p *Parser) pool(lang string, language *sitter.Language) *sync.Pool {
	if cached, ok := p.pools.Load(lang); ok {
		if pool, castOK := cached.(*sync.Pool); castOK {
			return pool
		}
	}

	pool := &sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(language)

			return tsParser
		},
	}

	actual, loaded := p.pools.LoadOrStore(lang, pool)
	if loaded {
		if existing, castOK := actual.(*sync.Pool); castOK {
			return existing
		}
	}

	return pool
}

type convertFrame struct {
	ts     sitter.Node
	parent *tree.Tree
}

// convert copies the named nodes of a tree-sitter tree, parents first.
func convert(root sitter.Node, content []byte) *tree.Tree {
	var result *tree.Tree

	stack := []convertFrame{{ts: root}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		childCount := frame.ts.NamedChildCount()

		label := ""
		if childCount == 0 {
			label = nodeText(frame.ts, content)
		}

		node := tree.NewBuilder().
			WithType(frame.ts.Type()).
			WithLabel(label).
			WithPosition(positions(frame.ts)).
			Build()

		if frame.parent == nil {
			result = node
		} else {
			frame.parent.AddChild(node)
		}

		// Pushed in reverse so children are attached in source order.
		for idx := childCount; idx > 0; idx-- {
			stack = append(stack, convertFrame{ts: frame.ts.NamedChild(idx - 1), parent: node})
		}
	}

	return result
}

func nodeText(ts sitter.Node, content []byte) string {
	start, end := ts.StartByte(), ts.EndByte()
	if end > uint(len(content)) || start > end {
		return ""
	}

	return string(content[start:end])
}

func positions(ts sitter.Node) *tree.Positions {
	start, end := ts.StartPoint(), ts.EndPoint()

	return &tree.Positions{
		StartLine:   uint(start.Row) + 1,
		StartCol:    uint(start.Column) + 1,
		StartOffset: ts.StartByte(),
		EndLine:     uint(end.Row) + 1,
		EndCol:      uint(end.Column) + 1,
		EndOffset:   ts.EndByte(),
	}
}
