package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/treematch/pkg/matching"
	"github.com/Sumatoshi-tech/treematch/pkg/source"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

const (
	matchArgCount = 2

	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	yamlIndent    = 2
	percentScale  = 100
	snapshotPerms = 0o644
)

// ErrUnsupportedOutputFormat is returned for an unknown --format value.
var ErrUnsupportedOutputFormat = errors.New("unsupported output format")

type matchFlags struct {
	format string
	lang   string
	seed   string
	save   string
	limit  int
}

func matchCmd(global *globalFlags) *cobra.Command {
	flags := &matchFlags{}

	cmd := &cobra.Command{
		Use:   "match <src> <dst>",
		Short: "Map the nodes of two trees",
		Long: `Map the nodes of a source tree onto a destination tree.

Examples:
  treematch match before.go after.go
  treematch match --format json before.json after.json
  treematch match --save run.snap before.py after.py
  treematch match --seed run.snap before.py after.py`,
		Args: cobra.ExactArgs(matchArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), cmd.OutOrStdout(), global, flags, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", formatTable, "output format (table, json, yaml)")
	cmd.Flags().StringVar(&flags.lang, "lang", "", "source language, detected from the file name when empty")
	cmd.Flags().StringVar(&flags.seed, "seed", "", "start from the mappings in this snapshot")
	cmd.Flags().StringVar(&flags.save, "save", "", "write the resulting mappings to this snapshot")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "show at most this many mappings in the table (0 = all)")

	return cmd
}

func runMatch(ctx context.Context, out io.Writer, global *globalFlags, flags *matchFlags, srcPath, dstPath string) error {
	switch flags.format {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOutputFormat, flags.format)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := setupRuntime(global, "match")
	if err != nil {
		return err
	}
	defer rt.shutdown()

	ctx, span := rt.providers.Tracer.Start(ctx, "treematch.cmd.match")
	defer span.End()

	parser := source.NewParser()

	src, err := loadTree(ctx, parser, srcPath, flags.lang)
	if err != nil {
		return err
	}

	dst, err := loadTree(ctx, parser, dstPath, flags.lang)
	if err != nil {
		return err
	}

	var seed *matching.MappingStore

	if flags.seed != "" {
		seed, err = readSnapshot(flags.seed, src, dst)
		if err != nil {
			return err
		}
	}

	opts, err := rt.cfg.MatcherOptions()
	if err != nil {
		return err
	}

	opts = append(opts,
		matching.WithLogger(rt.providers.Logger),
		matching.WithTracer(rt.providers.Tracer),
		matching.WithMetrics(rt.metrics),
	)

	store, stats := matching.NewPipeline(opts...).Match(ctx, src, dst, seed)

	if flags.save != "" {
		err = writeSnapshot(ctx, rt.providers.Logger, flags.save, store, src, dst)
		if err != nil {
			return err
		}
	}

	report := buildMatchReport(srcPath, dstPath, store, stats, src, dst)

	switch flags.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return wrapEncode(enc.Encode(report))
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(yamlIndent)

		err = enc.Encode(report)
		if err != nil {
			return wrapEncode(err)
		}

		return wrapEncode(enc.Close())
	default:
		renderMatchTable(out, report, flags.limit)

		return nil
	}
}

func wrapEncode(err error) error {
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

func readSnapshot(path string, src, dst *tree.Tree) (*matching.MappingStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	store, err := matching.DecodeSnapshot(data, src, dst)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	return store, nil
}

func writeSnapshot(
	ctx context.Context, logger *slog.Logger, path string, store *matching.MappingStore, src, dst *tree.Tree,
) error {
	data, err := matching.EncodeSnapshot(store, src, dst)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	err = os.WriteFile(path, data, snapshotPerms)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logger.InfoContext(ctx, "snapshot saved",
		slog.String("path", path),
		slog.Int("mappings", store.Len()),
		slog.String("size", humanize.Bytes(uint64(len(data)))))

	return nil
}

type matchReport struct {
	Src      string          `json:"src"      yaml:"src"`
	Dst      string          `json:"dst"      yaml:"dst"`
	Stats    reportStats     `json:"stats"    yaml:"stats"`
	Summary  reportSummary   `json:"summary"  yaml:"summary"`
	Mappings []mappingRecord `json:"mappings" yaml:"mappings"`
}

type reportStats struct {
	Seeded            int  `json:"seeded"             yaml:"seeded"`
	TopDown           int  `json:"top_down"           yaml:"top_down"`
	ContainerMappings int  `json:"container_mappings" yaml:"container_mappings"`
	AlignedMappings   int  `json:"aligned_mappings"   yaml:"aligned_mappings"`
	Candidates        int  `json:"candidates"         yaml:"candidates"`
	EarlyExit         bool `json:"early_exit"         yaml:"early_exit"`
}

type reportSummary struct {
	Mappings  int `json:"mappings"   yaml:"mappings"`
	SrcNodes  int `json:"src_nodes"  yaml:"src_nodes"`
	SrcMapped int `json:"src_mapped" yaml:"src_mapped"`
	DstNodes  int `json:"dst_nodes"  yaml:"dst_nodes"`
	DstMapped int `json:"dst_mapped" yaml:"dst_mapped"`
	Renamed   int `json:"renamed"    yaml:"renamed"`
}

type mappingRecord struct {
	Type     string `json:"type"                yaml:"type"`
	SrcID    int    `json:"src_id"              yaml:"src_id"`
	DstID    int    `json:"dst_id"              yaml:"dst_id"`
	SrcLabel string `json:"src_label,omitempty" yaml:"src_label,omitempty"`
	DstLabel string `json:"dst_label,omitempty" yaml:"dst_label,omitempty"`
	SrcLine  uint   `json:"src_line,omitempty"  yaml:"src_line,omitempty"`
	DstLine  uint   `json:"dst_line,omitempty"  yaml:"dst_line,omitempty"`
}

func buildMatchReport(
	srcPath, dstPath string, store *matching.MappingStore, stats matching.PipelineStats, src, dst *tree.Tree,
) matchReport {
	summary := matching.Summarize(store, src, dst)

	report := matchReport{
		Src: srcPath,
		Dst: dstPath,
		Stats: reportStats{
			Seeded:            stats.Seeded,
			TopDown:           stats.TopDown,
			ContainerMappings: stats.BottomUp.ContainerMappings,
			AlignedMappings:   stats.BottomUp.AlignedMappings,
			Candidates:        stats.BottomUp.Candidates,
			EarlyExit:         stats.BottomUp.EarlyExit,
		},
		Summary: reportSummary{
			Mappings:  summary.Mappings,
			SrcNodes:  summary.Src.Nodes,
			SrcMapped: summary.Src.Mapped,
			DstNodes:  summary.Dst.Nodes,
			DstMapped: summary.Dst.Mapped,
			Renamed:   summary.Renamed,
		},
		Mappings: make([]mappingRecord, 0, store.Len()),
	}

	for _, mapping := range store.Mappings() {
		report.Mappings = append(report.Mappings, mappingRecord{
			Type:     mapping.Src.Type.String(),
			SrcID:    mapping.Src.ID(),
			DstID:    mapping.Dst.ID(),
			SrcLabel: mapping.Src.Label,
			DstLabel: mapping.Dst.Label,
			SrcLine:  startLine(mapping.Src),
			DstLine:  startLine(mapping.Dst),
		})
	}

	slices.SortFunc(report.Mappings, func(a, b mappingRecord) int { return cmp.Compare(a.SrcID, b.SrcID) })

	return report
}

func startLine(node *tree.Tree) uint {
	if node.Pos == nil {
		return 0
	}

	return node.Pos.StartLine
}

func renderMatchTable(out io.Writer, report matchReport, limit int) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Src", "Dst", "Type", "Source", "Destination"})

	shown := report.Mappings
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	for _, record := range shown {
		tbl.AppendRow(table.Row{
			record.SrcID,
			record.DstID,
			record.Type,
			describe(record.SrcLabel, record.SrcLine),
			describe(record.DstLabel, record.DstLine),
		})
	}

	if len(shown) < len(report.Mappings) {
		tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d more", len(report.Mappings)-len(shown))})
	}

	fmt.Fprintln(out, tbl.Render())

	summary := report.Summary
	mapped := color.New(color.FgGreen).SprintFunc()
	unmapped := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(out, "%s mappings (%d seeded, %d top-down, %d bottom-up)\n",
		humanize.Comma(int64(summary.Mappings)), report.Stats.Seeded, report.Stats.TopDown,
		report.Stats.ContainerMappings+report.Stats.AlignedMappings)
	fmt.Fprintf(out, "src: %s of %s nodes mapped (%.1f%%), %s unmapped\n",
		mapped(humanize.Comma(int64(summary.SrcMapped))), humanize.Comma(int64(summary.SrcNodes)),
		percent(summary.SrcMapped, summary.SrcNodes), unmapped(humanize.Comma(int64(summary.SrcNodes-summary.SrcMapped))))
	fmt.Fprintf(out, "dst: %s of %s nodes mapped (%.1f%%), %s unmapped\n",
		mapped(humanize.Comma(int64(summary.DstMapped))), humanize.Comma(int64(summary.DstNodes)),
		percent(summary.DstMapped, summary.DstNodes), unmapped(humanize.Comma(int64(summary.DstNodes-summary.DstMapped))))

	if report.Stats.EarlyExit {
		fmt.Fprintln(out, color.YellowString("bottom-up pass stopped early on a depth tie"))
	}
}

func describe(label string, line uint) string {
	switch {
	case label == "" && line == 0:
		return ""
	case line == 0:
		return label
	case label == "":
		return fmt.Sprintf("line %d", line)
	default:
		return fmt.Sprintf("%s (line %d)", label, line)
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}

	return percentScale * float64(part) / float64(total)
}
