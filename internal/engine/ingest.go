package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/sanitize"
	"github.com/leapstack-labs/leapingest/internal/validate"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// ingest validates, sanitizes and stages the source bucket, then exports
// the snapshot and moves staged files to the processed bucket. Each stage
// assumes the previous one held for every remaining file.
func (e *Engine) ingest(ctx context.Context, rc *core.RunContext, logger *slog.Logger, res *Result) error {
	layout := bucket.NewLayout(rc.SourceDir)
	table := rc.Mode.TableName()

	schema, err := e.schemas.Load(rc.Mode)
	if err != nil {
		return stageError(core.StageSchema, e.schemas.Path(rc.Mode), err)
	}

	ledger := bucket.NewLedger(layout, e.store, rc, logger)
	defer func() { res.Files = ledger.Files() }()

	tracked, err := ledger.TrackSource(ctx)
	if err != nil {
		return stageError(core.StageColumnCount, layout.Source, err)
	}
	logger.Info("source files found", "count", len(tracked))

	v := validate.New(ledger, logger)
	report, err := v.CheckColumnCount(ctx, schema.ExpectedCount)
	if err != nil {
		return stageError(core.StageColumnCount, layout.Source, err)
	}
	logValidation(logger, core.StageColumnCount, report)

	if report, err = v.CheckMissingColumns(ctx); err != nil {
		return stageError(core.StageMissingValues, layout.Source, err)
	}
	logValidation(logger, core.StageMissingValues, report)

	if err := sanitize.New(ledger, logger).FillMissing(ctx); err != nil {
		return stageError(core.StageSanitize, layout.Source, err)
	}

	st := e.stager(rc.Mode, logger)
	if err := st.CreateTable(ctx, rc, table, schema); err != nil {
		return stageError(core.StageCreateTable, table, err)
	}

	inserted, err := st.InsertRows(ctx, ledger, table)
	if inserted != nil {
		res.Rows = inserted.Rows
	}
	if err != nil {
		artifact := table
		var ie *core.StagingInsertError
		if errors.As(err, &ie) {
			artifact = ie.File
		}
		return stageError(core.StageInsert, artifact, err)
	}

	snapshot := layout.SnapshotPath()
	if _, err := st.ExportSnapshot(ctx, table, snapshot); err != nil {
		return stageError(core.StageExport, snapshot, err)
	}
	res.Snapshot = snapshot

	for _, f := range ledger.InState(core.FileStateStaged) {
		if err := ledger.MoveProcessed(ctx, f.Name); err != nil {
			return stageError(core.StageMoveProcessed, f.Name, err)
		}
	}
	return nil
}

// logValidation reports rejected files. Read failures isolate the file and
// are logged, not returned.
func logValidation(logger *slog.Logger, stage core.Stage, r *validate.Report) {
	logger.Info("validation finished", "check", string(stage),
		"checked", r.Checked, "accepted", len(r.Accepted), "rejected", len(r.Rejected))
	if err := r.IOErrors(); err != nil {
		logger.Warn("files isolated after read failures", "check", string(stage), "error", err.Error())
	}
}
