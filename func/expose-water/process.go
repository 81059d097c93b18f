package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"demclean/internal/pipeline"
)

func (a *app) processCmd(use, short string, stages ...pipeline.Stage) *cobra.Command {
	var outputDir string
	var inPlace bool

	cmd := &cobra.Command{
		Use:   use + " <file.obj|dir>...",
		Short: short,
		Example: fmt.Sprintf(`  expose-water %[1]s ./tiles --output ./clean
  expose-water %[1]s 533925_dem_6697.obj --in-place --edge-length 8`, use),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" && !inPlace {
				return errors.New("either --output or --in-place is required")
			}
			if outputDir != "" && inPlace {
				return errors.New("--output and --in-place are mutually exclusive")
			}

			inputs, err := collectInputs(args)
			if err != nil {
				return err
			}
			if outputDir != "" {
				if outputDir, err = filepath.Abs(outputDir); err != nil {
					return fmt.Errorf("invalid output directory '%s': %w", outputDir, err)
				}
				if err := os.MkdirAll(outputDir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Expose Water v%s\n", pipeline.Version)
			fmt.Fprintln(out, "===================")
			fmt.Fprintf(out, "Found %d OBJ files to process\n", len(inputs))
			if outputDir != "" {
				fmt.Fprintf(out, "Output directory: %s\n", outputDir)
			}

			report, err := a.runner().ProcessAll(cmd.Context(), inputs, outputDir, stages...)
			if err != nil {
				return err
			}
			report.PrintSummary(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for cleaned OBJ files")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "Overwrite the input files")
	return cmd
}

// collectInputs expands directories to the *.obj files they contain
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access '%s': %w", arg, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.obj"))
		if err != nil {
			return nil, fmt.Errorf("error finding OBJ files: %w", err)
		}
		sort.Strings(matches)
		inputs = append(inputs, matches...)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no OBJ files found in %v", args)
	}
	return inputs, nil
}
