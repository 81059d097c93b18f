package pipeline

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap/zapcore"

	"demclean/internal/cleanup"
	"demclean/internal/mesh"
)

// ObjectResult records what the stages did to one object
type ObjectResult struct {
	File   string
	Name   string
	Before mesh.Counts
	After  mesh.Counts
	Filter cleanup.FilterResult
	Repair cleanup.RepairSummary
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (r ObjectResult) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("object", r.Name)
	enc.AddInt("vertices", r.After.Vertices)
	enc.AddInt("edges", r.After.Edges)
	enc.AddInt("faces", r.After.Faces)
	if err := enc.AddObject("filter", r.Filter); err != nil {
		return err
	}
	return enc.AddObject("repair", r.Repair)
}

// FailedObject represents an object that was skipped, with the reason
type FailedObject struct {
	File  string
	Name  string
	Error string
}

// FailedFile represents a failed file with error message
type FailedFile struct {
	Name  string
	Error string
}

// Report holds processing statistics for a run
type Report struct {
	RunID     string
	Threshold float64
	Stages    []Stage
	StartTime time.Time
	Duration  time.Duration

	ProcessedFiles int
	FailedFiles    []FailedFile

	Selected      int
	Objects       []ObjectResult
	FailedObjects []FailedObject
}

// Totals sums the per-object results
func (r *Report) Totals() (cleanup.FilterResult, cleanup.RepairSummary) {
	var f cleanup.FilterResult
	var s cleanup.RepairSummary
	for _, o := range r.Objects {
		f.Examined += o.Filter.Examined
		f.Removed += o.Filter.Removed
		f.FacesRemoved += o.Filter.FacesRemoved
		s = s.Plus(o.Repair)
	}
	return f, s
}

func (r *Report) merge(o *Report) {
	r.Selected += o.Selected
	r.Objects = append(r.Objects, o.Objects...)
	r.FailedObjects = append(r.FailedObjects, o.FailedObjects...)
	r.ProcessedFiles += o.ProcessedFiles
	r.FailedFiles = append(r.FailedFiles, o.FailedFiles...)
}

func (r *Report) ran(stage Stage) bool {
	for _, s := range r.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// PrintSummary prints processing summary
func (r *Report) PrintSummary(w io.Writer) {
	filter, repair := r.Totals()

	fmt.Fprintf(w, "\n=== Expose Water v%s Summary ===\n", Version)
	fmt.Fprintf(w, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(w, "Processing completed in %.2f seconds\n", r.Duration.Seconds())
	if r.ProcessedFiles > 0 || len(r.FailedFiles) > 0 {
		fmt.Fprintf(w, "Files processed: %d\n", r.ProcessedFiles)
		fmt.Fprintf(w, "Failed files: %d\n", len(r.FailedFiles))
	}
	fmt.Fprintf(w, "Objects matched: %d\n", r.Selected)
	fmt.Fprintf(w, "Objects processed: %d\n", len(r.Objects))
	fmt.Fprintf(w, "Failed objects: %d\n", len(r.FailedObjects))

	if r.ran(StageFilter) {
		fmt.Fprintf(w, "\nEdge filter (threshold %.6f):\n", r.Threshold)
		fmt.Fprintf(w, "  Edges examined: %d\n", filter.Examined)
		fmt.Fprintf(w, "  Edges removed: %d\n", filter.Removed)
		fmt.Fprintf(w, "  Faces removed: %d\n", filter.FacesRemoved)
	}
	if r.ran(StageRepair) {
		fmt.Fprintln(w, "\nTopology repair:")
		fmt.Fprintf(w, "  Degenerate edges dissolved: %d\n", repair.Dissolve.Collapsed)
		fmt.Fprintf(w, "  Degenerate faces removed: %d\n", repair.Dissolve.FacesRemoved+repair.Weld.FacesRemoved)
		fmt.Fprintf(w, "  Loose edges deleted: %d\n", repair.Loose.Edges)
		fmt.Fprintf(w, "  Loose vertices deleted: %d\n", repair.Loose.Vertices)
		fmt.Fprintf(w, "  Vertices welded: %d\n", repair.Weld.Merged)
		fmt.Fprintf(w, "  Duplicate faces removed: %d\n", repair.Dissolve.DuplicateFaces+repair.Weld.DuplicateFaces)
	}

	if len(r.FailedFiles) > 0 {
		fmt.Fprintln(w, "\nFailed files:")
		for _, failed := range r.FailedFiles {
			fmt.Fprintf(w, "- %s: %s\n", failed.Name, failed.Error)
		}
	}
	if len(r.FailedObjects) > 0 {
		fmt.Fprintln(w, "\nFailed objects:")
		for _, failed := range r.FailedObjects {
			fmt.Fprintf(w, "- %s: %s\n", failed.Name, failed.Error)
		}
	}

	fmt.Fprintln(w, "===================================")
}
