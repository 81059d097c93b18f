package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"demclean/internal/cleanup"
	"demclean/internal/objio"
	"demclean/internal/scene"
)

func (a *app) inspectCmd() *cobra.Command {
	var count, bins int
	var all bool

	cmd := &cobra.Command{
		Use:   "inspect <file.obj>",
		Short: "Report edge lengths and what the filter would remove",
		Long: `Inspect prints edge length statistics, a histogram and the longest edges
of every matching object, and how many edges and faces the edge filter would
remove at the configured threshold. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, stats, err := objio.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to load OBJ file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File: %s\n", args[0])
			fmt.Fprintf(out, "Objects: %d, vertices: %d, faces: %d, lines: %d\n", stats.Objects, stats.Vertices, stats.Faces, stats.Edges)
			if stats.SkippedLines > 0 || stats.SkippedFaces > 0 {
				fmt.Fprintf(out, "Skipped: %d lines, %d faces\n", stats.SkippedLines, stats.SkippedFaces)
			}

			var objs []*scene.Object
			if all {
				objs = s.Objects()
			} else {
				pattern, err := scene.CompilePattern(a.cfg.TargetPattern)
				if err != nil {
					return err
				}
				objs = s.Select(pattern)
			}
			if len(objs) == 0 {
				fmt.Fprintln(out, "No objects match the target pattern.")
				return nil
			}
			for _, obj := range objs {
				printObjectEdges(out, obj, a.cfg.EdgeLength, count, bins)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of longest edges to display")
	cmd.Flags().IntVar(&bins, "bins", 10, "Histogram bins")
	cmd.Flags().BoolVar(&all, "all", false, "Inspect every object, not only matching ones")
	return cmd
}

func printObjectEdges(out io.Writer, obj *scene.Object, threshold float64, count, bins int) {
	m := obj.Mesh
	c := m.Counts()

	fmt.Fprintf(out, "\n%s\n", obj.Name)
	fmt.Fprintln(out, strings.Repeat("=", len(obj.Name)))
	fmt.Fprintf(out, "Vertices: %d, edges: %d, faces: %d\n", c.Vertices, c.Edges, c.Faces)
	if b, ok := m.Bounds(); ok {
		fmt.Fprintf(out, "Bounds: %s - %s\n", formatVec(b.Min), formatVec(b.Max))
	}

	ls := cleanup.EdgeLengthStats(m, bins)
	if ls.Count == 0 {
		fmt.Fprintln(out, "No edges.")
		return
	}
	fmt.Fprintf(out, "Min edge length: %.6f\n", ls.Min)
	fmt.Fprintf(out, "Max edge length: %.6f\n", ls.Max)
	fmt.Fprintf(out, "Avg edge length: %.6f\n", ls.Mean)
	fmt.Fprintf(out, "Median edge length: %.6f\n\n", ls.Median)

	widest := 0
	for _, b := range ls.Histogram {
		widest = max(widest, b.Count)
	}
	for _, b := range ls.Histogram {
		bar := 0
		if widest > 0 {
			bar = b.Count * 40 / widest
		}
		fmt.Fprintf(out, "  [%10.4f, %10.4f) %8d %s\n", b.Lower, b.Upper, b.Count, strings.Repeat("#", bar))
	}

	// run the filter on a copy to report exactly what it would do
	res := cleanup.FilterLongEdges(m.Clone(), threshold)
	fmt.Fprintf(out, "\nAt threshold %.6f: %d edges and %d faces would be removed\n", threshold, res.Removed, res.FacesRemoved)

	longest := cleanup.LongestEdges(m, count)
	fmt.Fprintf(out, "\nTop %d longest edges\n", len(longest))
	fmt.Fprintf(out, "%-6s %-35s %-35s %-12s %s\n", "Index", "Start", "End", "Length", "Faces")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for i, e := range longest {
		va, _ := m.Vertex(e.V[0])
		vb, _ := m.Vertex(e.V[1])
		fmt.Fprintf(out, "%-6d %-35s %-35s %-12.6f %d\n", i+1, formatVec(va.Pos), formatVec(vb.Pos), e.Length, e.Faces)
	}
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
