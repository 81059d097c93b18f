package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"demclean/internal/watch"
)

func (a *app) watchCmd() *cobra.Command {
	var outputDir string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <input_dir>",
		Short: "Clean OBJ tiles as they appear in a directory",
		Long: `Watch runs the full pipeline on every *.obj file created or rewritten in
the input directory once it has been quiet for the debounce interval, and
writes the result under the output directory. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				return errors.New("--output is required")
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.GetDebounce()
			}

			w, err := watch.New(args[0], outputDir, debounce, a.runner(), a.logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := w.Start(ctx); err != nil {
				_ = w.Close()
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", args[0])

			<-ctx.Done()
			w.Stop()

			stats := w.Stats()
			fmt.Fprintln(out, "\n=== Watch Summary ===")
			fmt.Fprintf(out, "Files created: %d\n", stats.FilesCreated)
			fmt.Fprintf(out, "Files modified: %d\n", stats.FilesModified)
			fmt.Fprintf(out, "Files processed: %d\n", stats.FilesProcessed)
			fmt.Fprintf(out, "Failed files: %d\n", stats.FilesFailed)
			fmt.Fprintf(out, "Watcher errors: %d\n", stats.Errors)
			fmt.Fprintln(out, "=====================")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for cleaned OBJ files (required)")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a file is processed")
	return cmd
}
