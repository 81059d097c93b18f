// Package pipeline runs the edge filter and topology repair over the
// matching objects of a scene, and over OBJ files on disk.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"demclean/internal/cleanup"
	"demclean/internal/config"
	"demclean/internal/objio"
	"demclean/internal/scene"
)

const Version = "1.0.0"

// Stage is one step of the pipeline
type Stage int

const (
	StageFilter Stage = iota
	StageRepair
)

func (s Stage) String() string {
	switch s {
	case StageFilter:
		return "filter"
	case StageRepair:
		return "repair"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Host owns the objects the pipeline works on. *scene.Scene implements it.
type Host interface {
	Select(pattern *regexp.Regexp) []*scene.Object
	Commit(obj *scene.Object)
}

// Runner runs pipeline stages with one configuration
type Runner struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewRunner creates a runner. A nil logger discards log output.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Config: cfg, Logger: logger}
}

// Run applies the edge filter to every matching object, then topology
// repair to every matching object. Each object is committed after each
// stage. No object enters repair before every object has been filtered.
func (r *Runner) Run(ctx context.Context, host Host) (*Report, error) {
	return r.run(ctx, host, StageFilter, StageRepair)
}

// RunStage runs a single stage over the matching objects
func (r *Runner) RunStage(ctx context.Context, host Host, stage Stage) (*Report, error) {
	return r.run(ctx, host, stage)
}

// work tracks one selected object through the stages
type work struct {
	obj    *scene.Object
	result ObjectResult
	failed error
}

func (r *Runner) run(ctx context.Context, host Host, stages ...Stage) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Threshold: r.Config.EdgeLength,
		Stages:    stages,
		StartTime: time.Now(),
	}
	log := r.Logger.With(zap.String("run_id", report.RunID))

	pattern, err := scene.CompilePattern(r.Config.TargetPattern)
	if err != nil {
		return nil, err
	}
	objs := host.Select(pattern)
	report.Selected = len(objs)
	if len(objs) == 0 {
		log.Info("No objects match target pattern", zap.String("pattern", r.Config.TargetPattern))
		report.Duration = time.Since(report.StartTime)
		return report, nil
	}

	items := make([]*work, len(objs))
	for i, obj := range objs {
		items[i] = &work{obj: obj, result: ObjectResult{Name: obj.Name, Before: obj.Mesh.Counts()}}
		if err := obj.Mesh.Verify(); err != nil {
			items[i].failed = err
			log.Warn("Skipping object with inconsistent mesh", zap.String("object", obj.Name), zap.Error(err))
		}
	}

	for _, stage := range stages {
		if err := r.stage(ctx, log, host, stage, items); err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage, err)
		}
	}

	for _, it := range items {
		if it.failed != nil {
			report.FailedObjects = append(report.FailedObjects, FailedObject{Name: it.obj.Name, Error: it.failed.Error()})
			continue
		}
		it.result.After = it.obj.Mesh.Counts()
		report.Objects = append(report.Objects, it.result)
		log.Debug("Processed object", zap.Object("result", it.result))
	}
	report.Duration = time.Since(report.StartTime)
	return report, nil
}

// stage fans one stage out over the objects. Each mesh is handled by exactly
// one goroutine and committed by it once the stage is done.
func (r *Runner) stage(ctx context.Context, log *zap.Logger, host Host, stage Stage, items []*work) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.Config.GetWorkers())

	threshold := r.Config.EdgeLength
	opts := r.Config.RepairOptions()

	for _, it := range items {
		if it.failed != nil {
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			log.Info(fmt.Sprintf("Found dem object: %s", it.obj.Name),
				zap.String("stage", stage.String()), zap.String("object", it.obj.Name))
			switch stage {
			case StageFilter:
				res := cleanup.FilterLongEdges(it.obj.Mesh, threshold)
				it.result.Filter = res
				log.Info(fmt.Sprintf("Remove %d edges from %s", res.Removed, it.obj.Name),
					zap.String("stage", stage.String()), zap.String("object", it.obj.Name), zap.Object("filter", res))
			case StageRepair:
				res := cleanup.RepairTopology(it.obj.Mesh, opts)
				it.result.Repair = res
				log.Info("Repaired topology",
					zap.String("stage", stage.String()), zap.String("object", it.obj.Name), zap.Object("repair", res))
			default:
				return fmt.Errorf("unknown stage %d", int(stage))
			}
			host.Commit(it.obj)
			return nil
		})
	}
	return eg.Wait()
}

// ProcessFile loads an OBJ scene, runs both stages and writes the result to
// out. out may equal in.
func (r *Runner) ProcessFile(ctx context.Context, in, out string) (*Report, error) {
	return r.ProcessFileStages(ctx, in, out, StageFilter, StageRepair)
}

// ProcessFileStages is ProcessFile restricted to the given stages
func (r *Runner) ProcessFileStages(ctx context.Context, in, out string, stages ...Stage) (*Report, error) {
	r.Logger.Debug("Processing file", zap.String("input", in), zap.String("output", out))

	s, readStats, err := objio.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("failed to load OBJ file: %w", err)
	}
	for _, w := range readStats.Warnings {
		r.Logger.Debug("OBJ warning", zap.String("file", filepath.Base(in)), zap.String("detail", w))
	}
	if readStats.SkippedLines > 0 || readStats.SkippedFaces > 0 {
		r.Logger.Warn("Skipped malformed OBJ input",
			zap.String("file", filepath.Base(in)),
			zap.Int("lines", readStats.SkippedLines),
			zap.Int("faces", readStats.SkippedFaces))
	}

	report, err := r.run(ctx, s, stages...)
	if err != nil {
		return nil, err
	}

	comments := []string{
		fmt.Sprintf("Processed by expose-water v%s", Version),
		fmt.Sprintf("Source: %s", filepath.Base(in)),
		fmt.Sprintf("Run: %s", report.RunID),
	}
	if _, err := objio.WriteFile(out, s, comments...); err != nil {
		return nil, fmt.Errorf("failed to save OBJ file: %w", err)
	}

	name := filepath.Base(in)
	for i := range report.Objects {
		report.Objects[i].File = name
	}
	for i := range report.FailedObjects {
		report.FailedObjects[i].File = name
	}
	report.ProcessedFiles = 1
	report.Duration = time.Since(report.StartTime)
	return report, nil
}

// ProcessAll runs ProcessFile for every input, writing each result under
// outDir with the input's base name. An empty outDir rewrites the inputs in
// place. A file that fails is recorded and the run continues.
func (r *Runner) ProcessAll(ctx context.Context, inputs []string, outDir string, stages ...Stage) (*Report, error) {
	if len(stages) == 0 {
		stages = []Stage{StageFilter, StageRepair}
	}
	total := &Report{
		RunID:     uuid.NewString(),
		Threshold: r.Config.EdgeLength,
		Stages:    stages,
		StartTime: time.Now(),
	}

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := in
		if outDir != "" {
			out = filepath.Join(outDir, filepath.Base(in))
		}
		rep, err := r.ProcessFileStages(ctx, in, out, stages...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			r.Logger.Error("Failed to process file", zap.String("file", filepath.Base(in)), zap.Error(err))
			total.FailedFiles = append(total.FailedFiles, FailedFile{Name: filepath.Base(in), Error: err.Error()})
			continue
		}
		total.merge(rep)
	}
	total.Duration = time.Since(total.StartTime)
	return total, nil
}
