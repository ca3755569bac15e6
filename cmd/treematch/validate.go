package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

const stdinPath = "-"

// ErrInvalidTreeDocument is returned when a document fails schema validation.
var ErrInvalidTreeDocument = errors.New("tree document is invalid")

type validateFlags struct {
	format      string
	colorize    bool
	nocolor     bool
	printSchema bool
}

func validateCmd() *cobra.Command {
	flags := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate a tree document against the tree schema",
		Long: `Validate a JSON or YAML tree document against the tree document schema.

Examples:
  treematch validate tree.json
  treematch validate --format yaml - < tree.yaml
  treematch validate --print-schema`,
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.printSchema {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.printSchema {
				_, err := cmd.OutOrStdout().Write(tree.Schema())

				return err //nolint:wrapcheck // plain write to the command output
			}

			return runValidate(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "document format (json, yaml), detected from the extension when empty")
	cmd.Flags().BoolVar(&flags.colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&flags.nocolor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&flags.printSchema, "print-schema", false, "print the tree document schema and exit")

	return cmd
}

func runValidate(stdin io.Reader, out io.Writer, inputPath string, flags *validateFlags) error {
	if flags.nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if flags.colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}

	data, label, err := readInput(stdin, inputPath)
	if err != nil {
		return err
	}

	format := flags.format
	if format == "" {
		format = documentFormat(inputPath)
	}

	if format == tree.FormatYAML {
		data, err = yamlToJSON(data)
		if err != nil {
			return fmt.Errorf("invalid YAML in %s: %w", label, err)
		}
	}

	result, err := tree.ValidateDocument(data)
	if err != nil {
		return fmt.Errorf("validate %s: %w", label, err)
	}

	if result.Valid() {
		color.New(color.FgGreen).Fprintf(out, "Tree document is valid (%s, %s)\n", label, humanize.Bytes(uint64(len(data))))

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "Tree document validation failed (%s)\n", label)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, msg := range result.Errors {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", msg)
	}

	hints := recommendations(result.Errors)
	if len(hints) > 0 {
		fmt.Fprintf(out, "\nRecommendations:\n")

		for _, hint := range hints {
			color.New(color.FgCyan).Fprintf(out, "  - %s\n", hint)
		}
	}

	return fmt.Errorf("%w: %s: %d errors", ErrInvalidTreeDocument, label, len(result.Errors))
}

func readInput(stdin io.Reader, inputPath string) ([]byte, string, error) {
	if inputPath == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}

	return data, inputPath, nil
}

// yamlToJSON re-encodes a YAML document as JSON so it can be checked
// against the JSON schema.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}

	return out, nil
}

func recommendations(errs []string) []string {
	var hints []string

	seen := make(map[string]bool)

	add := func(hint string) {
		if !seen[hint] {
			seen[hint] = true

			hints = append(hints, hint)
		}
	}

	for _, msg := range errs {
		switch {
		case strings.Contains(msg, "type is required"), strings.Contains(msg, "String length must be greater"):
			add("Every node needs a non-empty 'type' field")
		case strings.Contains(msg, "Additional property"):
			add("Nodes only accept the fields type, label, pos and children")
		case strings.Contains(msg, "pos"):
			add("Position fields are non-negative integers: " +
				"start_line, start_col, start_offset, end_line, end_col, end_offset")
		case strings.Contains(msg, "children"):
			add("The children field must be an array of nodes")
		}
	}

	return hints
}
