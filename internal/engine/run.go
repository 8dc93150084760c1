package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapingest/internal/archive"
	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/features"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Result describes one pipeline invocation.
type Result struct {
	Run      *core.Run
	Archive  *archive.Report
	Files    []*core.FileRecord
	Rows     int
	Snapshot string
	Features *features.FeatureSet
	Results  string
}

// Count returns the number of files of the run that ended in state.
func (r *Result) Count(state core.FileState) int {
	n := 0
	for _, f := range r.Files {
		if f.State == state {
			n++
		}
	}
	return n
}

// runFunc is one pipeline body executed inside a recorded run.
type runFunc func(ctx context.Context, rc *core.RunContext, logger *slog.Logger, res *Result) error

// Ingest archives the previous run and stages the source bucket.
func (e *Engine) Ingest(ctx context.Context, mode core.Mode) (*Result, error) {
	return e.execute(ctx, mode, func(ctx context.Context, rc *core.RunContext, logger *slog.Logger, res *Result) error {
		if err := e.archive(ctx, rc, logger, res); err != nil {
			return err
		}
		return e.ingest(ctx, rc, logger, res)
	})
}

// Preprocess builds the feature set from the current snapshot.
func (e *Engine) Preprocess(ctx context.Context, mode core.Mode) (*Result, error) {
	return e.execute(ctx, mode, e.preprocess)
}

// Run ingests and then preprocesses under a single run.
func (e *Engine) Run(ctx context.Context, mode core.Mode) (*Result, error) {
	return e.execute(ctx, mode, func(ctx context.Context, rc *core.RunContext, logger *slog.Logger, res *Result) error {
		if err := e.archive(ctx, rc, logger, res); err != nil {
			return err
		}
		if err := e.ingest(ctx, rc, logger, res); err != nil {
			return err
		}
		return e.preprocess(ctx, rc, logger, res)
	})
}

// Archive only sweeps the working buckets of mode.
func (e *Engine) Archive(ctx context.Context, mode core.Mode) (*Result, error) {
	return e.execute(ctx, mode, e.archive)
}

// execute records a run around fn. The returned Result is non-nil whenever
// the run was created, including on failure.
func (e *Engine) execute(ctx context.Context, mode core.Mode, fn runFunc) (*Result, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidMode, mode)
	}
	rc, err := core.NewRunContext(e.cfg.DataDirs[mode], mode, e.now())
	if err != nil {
		return nil, err
	}
	logger := e.logger.With(slog.String("run_id", rc.ID), slog.String("mode", string(mode)))

	run, err := e.store.CreateRun(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	logger.Info("starting run", "source", rc.SourceDir)

	res := &Result{Run: run}
	runErr := fn(ctx, rc, logger, res)

	// The run outcome is recorded even when ctx was cancelled.
	recordCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		logger.Error("run failed", "error", runErr.Error())
		_ = e.store.CompleteRun(recordCtx, rc.ID, core.RunStatusFailed, runErr.Error())
	} else {
		logger.Info("run completed", "files", len(res.Files), "rows", res.Rows)
		_ = e.store.CompleteRun(recordCtx, rc.ID, core.RunStatusCompleted, "")
	}
	if got, err := e.store.GetRun(recordCtx, rc.ID); err == nil {
		res.Run = got
	}
	return res, runErr
}

func (e *Engine) archive(ctx context.Context, rc *core.RunContext, logger *slog.Logger, res *Result) error {
	report, err := archive.New(bucket.NewLayout(rc.SourceDir), e.store, logger).Archive(ctx, rc)
	res.Archive = report
	if err != nil {
		return stageError(core.StageArchive, archiveArtifact(err), err)
	}
	return nil
}

func archiveArtifact(err error) string {
	var ae *core.ArchiveIOError
	if errors.As(err, &ae) {
		return ae.Path
	}
	return ""
}

func stageError(stage core.Stage, artifact string, err error) error {
	return &core.StageError{Stage: stage, Artifact: artifact, Err: err}
}
