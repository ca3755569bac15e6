package tree

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	yamlIndent = 2
)

// Sentinel errors for document handling.
var (
	ErrUnsupportedFormat = errors.New("unsupported tree document format")
	ErrEmptyDocument     = errors.New("tree document has no root")
	ErrInvalidDocument   = errors.New("tree document does not match schema")
)

// schemaJSON is the JSON schema every tree document must satisfy.
//
//go:embed tree-schema.json
var schemaJSON []byte

// Document is the serialized form of a tree node.
type Document struct {
	Type     string      `json:"type"               yaml:"type"`
	Label    string      `json:"label,omitempty"    yaml:"label,omitempty"`
	Pos      *Positions  `json:"pos,omitempty"      yaml:"pos,omitempty"`
	Children []*Document `json:"children,omitempty" yaml:"children,omitempty"`
}

// ToDocument converts the subtree rooted at t into its serialized form.
func ToDocument(t *Tree) *Document {
	doc := &Document{
		Type:  t.Type.String(),
		Label: t.Label,
		Pos:   t.Pos,
	}

	if len(t.children) > 0 {
		doc.Children = make([]*Document, 0, len(t.children))

		for _, child := range t.children {
			doc.Children = append(doc.Children, ToDocument(child))
		}
	}

	return doc
}

// FromDocument builds a refreshed tree from its serialized form.
func FromDocument(doc *Document) (*Tree, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}

	root := fromDocument(doc)
	root.Refresh()

	return root, nil
}

func fromDocument(doc *Document) *Tree {
	node := NewBuilder().WithType(doc.Type).WithLabel(doc.Label).WithPosition(doc.Pos).Build()

	for _, child := range doc.Children {
		if child != nil {
			node.AddChild(fromDocument(child))
		}
	}

	return node
}

// Decode reads a tree document in the given format.
func Decode(reader io.Reader, format string) (*Tree, error) {
	var doc Document

	switch strings.ToLower(format) {
	case FormatJSON:
		err := json.NewDecoder(reader).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("json decode: %w", err)
		}
	case FormatYAML, "yml":
		err := yaml.NewDecoder(reader).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("yaml decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if doc.Type == "" && len(doc.Children) == 0 {
		return nil, ErrEmptyDocument
	}

	return FromDocument(&doc)
}

// Encode writes the subtree rooted at t as a document in the given format.
func Encode(writer io.Writer, t *Tree, format string) error {
	doc := ToDocument(t)

	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")

		err := enc.Encode(doc)
		if err != nil {
			return fmt.Errorf("json encode: %w", err)
		}

		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(writer)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(doc)
		if err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}

		closeErr := enc.Close()
		if closeErr != nil {
			return fmt.Errorf("yaml encode: %w", closeErr)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ValidationResult holds the outcome of validating a JSON tree document.
type ValidationResult struct {
	Errors []string
}

// Valid reports whether the document satisfied the schema.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateDocument validates a JSON tree document against the embedded schema.
// The returned error is non-nil only when validation could not run at all.
func ValidateDocument(data []byte) (ValidationResult, error) {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(bytes.TrimSpace(data))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("schema validation: %w", err)
	}

	var out ValidationResult

	for _, verr := range result.Errors() {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return out, nil
}

// Schema returns the JSON schema for tree documents.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}
