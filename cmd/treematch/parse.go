package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treematch/pkg/source"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

func parseCmd(global *globalFlags) *cobra.Command {
	var (
		format string
		lang   string
	)

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the tree of a source file as a tree document",
		Long: `Parse a source file and print its tree as a JSON or YAML tree document.
The output can be edited and fed back to "treematch match".

Supported languages: ` + fmt.Sprint(source.Languages()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), cmd.OutOrStdout(), global, args[0], lang, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", tree.FormatJSON, "output format (json, yaml)")
	cmd.Flags().StringVar(&lang, "lang", "", "source language, detected from the file name when empty")

	return cmd
}

func runParse(ctx context.Context, out io.Writer, global *globalFlags, path, lang, format string) error {
	switch format {
	case tree.FormatJSON, tree.FormatYAML:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOutputFormat, format)
	}

	rt, err := setupRuntime(global, "parse")
	if err != nil {
		return err
	}
	defer rt.shutdown()

	ctx, span := rt.providers.Tracer.Start(ctx, "treematch.cmd.parse")
	defer span.End()

	root, err := loadTree(ctx, source.NewParser(), path, lang)
	if err != nil {
		return err
	}

	rt.providers.Logger.DebugContext(ctx, "tree loaded", "path", path, "nodes", root.Size(), "height", root.Height())

	err = tree.Encode(out, root, format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return nil
}
