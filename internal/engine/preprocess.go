package engine

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/features"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// preprocess reads the snapshot of the mode and writes the feature set to
// the results bucket. No partial output is written on failure.
func (e *Engine) preprocess(ctx context.Context, rc *core.RunContext, logger *slog.Logger, res *Result) error {
	layout := bucket.NewLayout(rc.SourceDir)
	snapshot := layout.SnapshotPath()

	frame, err := features.ReadSnapshot(snapshot)
	if err != nil {
		return stageError(core.StageTransform, snapshot, &core.TransformError{Step: features.StepRead, Err: err})
	}
	logger.Info("snapshot loaded", "rows", frame.Rows(), "columns", len(frame.Columns()))

	opts := e.cfg.Features
	if e.cfg.NullReport {
		opts.NullReportPath = layout.NullReportPath()
	}
	tr := features.NewTransformer(opts, logger)

	var fs *features.FeatureSet
	if rc.Mode == core.ModePredict {
		fs, err = tr.PreprocessPredict(ctx, frame)
	} else {
		fs, err = tr.PreprocessTrain(ctx, frame)
	}
	if err != nil {
		return stageError(core.StageTransform, snapshot, err)
	}

	if err := fs.Write(layout.Results); err != nil {
		return stageError(core.StageTransform, layout.Results, err)
	}
	res.Features = fs
	res.Results = layout.Results
	logger.Info("features written", "dir", layout.Results, "columns", len(fs.Features.Columns()))
	return nil
}
