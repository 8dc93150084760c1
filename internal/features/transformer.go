package features

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Transformation steps, as reported in TransformError.
const (
	StepRead    = "read"
	StepDrop    = "drop_columns"
	StepEncode  = "encode_categoricals"
	StepMissing = "null_report"
	StepImpute  = "impute"
	StepSplit   = "split"
	StepAlign   = "align"
	StepColumns = "training_columns"
	StepWrite   = "write"
)

// Output file names in the results bucket.
const (
	FeaturesFile = "features.csv"
	LabelFile    = "label.csv"
)

// Options configures a Transformer.
type Options struct {
	// Label is the training target column.
	Label string
	// DropColumns are removed before encoding in training.
	DropColumns []string
	// PredictDropColumns are removed before encoding in prediction.
	PredictDropColumns []string
	// ColumnsFile holds the training feature order.
	ColumnsFile string
	// Neighbors is the imputer's neighbour count.
	Neighbors int
	// NullReportPath, when set, receives per-column missing counts
	// whenever the frame has missing cells.
	NullReportPath string
}

// FeatureSet is the result of preprocessing. Label is nil for prediction.
type FeatureSet struct {
	Features *Frame
	Label    *Series

	// columnsFile receives the feature order on Write; set in training.
	columnsFile string
}

// Transformer runs the preprocessing steps for one mode.
type Transformer struct {
	opts   Options
	logger *slog.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(opts Options, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transformer{opts: opts, logger: logger}
}

// PreprocessTrain drops configured columns, encodes, imputes and splits off
// the label. The resulting feature order is saved to the columns file when
// the feature set is written.
func (t *Transformer) PreprocessTrain(ctx context.Context, f *Frame) (*FeatureSet, error) {
	f, err := t.prepare(ctx, f, t.opts.DropColumns)
	if err != nil {
		return nil, err
	}

	x, y, err := Split(f, t.opts.Label)
	if err != nil {
		return nil, &core.TransformError{Step: StepSplit, Err: err}
	}

	return &FeatureSet{Features: x, Label: y, columnsFile: t.opts.ColumnsFile}, nil
}

// PreprocessPredict drops configured columns, encodes, imputes and aligns
// the result to the saved training columns.
func (t *Transformer) PreprocessPredict(ctx context.Context, f *Frame) (*FeatureSet, error) {
	f, err := t.prepare(ctx, f, t.opts.PredictDropColumns)
	if err != nil {
		return nil, err
	}

	columns, err := LoadTrainingColumns(t.opts.ColumnsFile)
	if err != nil {
		return nil, &core.TransformError{Step: StepAlign, Err: err}
	}
	aligned, err := Align(f, columns)
	if err != nil {
		return nil, &core.TransformError{Step: StepAlign, Err: err}
	}
	return &FeatureSet{Features: aligned}, nil
}

// prepare runs the steps shared by both modes.
func (t *Transformer) prepare(ctx context.Context, f *Frame, drop []string) (*Frame, error) {
	if len(drop) > 0 {
		var err error
		if f, err = f.Drop(drop...); err != nil {
			return nil, &core.TransformError{Step: StepDrop, Err: err}
		}
	}

	text := TextColumns(f)
	encoded := EncodeCategoricals(f)
	f, err := f.Concat(encoded)
	if err != nil {
		return nil, &core.TransformError{Step: StepEncode, Err: err}
	}
	if f, err = f.Drop(text...); err != nil {
		return nil, &core.TransformError{Step: StepEncode, Err: err}
	}
	t.logger.Debug("categoricals encoded", slog.Any("columns", text), slog.Int("encoded", len(encoded.Columns())))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !HasMissing(f) {
		return f, nil
	}
	if t.opts.NullReportPath != "" {
		if err := WriteNullReport(t.opts.NullReportPath, MissingCounts(f)); err != nil {
			return nil, &core.TransformError{Step: StepMissing, Err: err}
		}
	}
	imputed, err := KNNImputer{Neighbors: t.opts.Neighbors}.Impute(f)
	if err != nil {
		return nil, &core.TransformError{Step: StepImpute, Err: err}
	}
	t.logger.Info("missing values imputed", slog.Int("rows", f.Rows()))
	return imputed, nil
}

// Write stores the feature set in dir as features.csv and, when a label
// is present, label.csv. A training set also saves its feature order to
// the columns file. All files are staged next to their targets and moved
// into place together, the columns file last; on failure none of them is
// left behind.
func (fs *FeatureSet) Write(dir string) error {
	features := stagedFile{path: filepath.Join(dir, FeaturesFile)}
	files := []*stagedFile{&features}
	var label, columns stagedFile
	if fs.Label != nil {
		label.path = filepath.Join(dir, LabelFile)
		files = append(files, &label)
	}
	if fs.columnsFile != "" {
		columns.path = fs.columnsFile
		files = append(files, &columns)
	}
	for _, f := range files {
		f.tmp = filepath.Join(filepath.Dir(f.path), "."+filepath.Base(f.path)+".partial")
	}
	defer func() {
		for _, f := range files {
			_ = os.Remove(f.tmp)
		}
	}()

	if err := fs.Features.WriteCSV(features.tmp); err != nil {
		return &core.TransformError{Step: StepWrite, Err: err}
	}
	if fs.Label != nil {
		lf := NewFrame(fs.Label.Len())
		_ = lf.Add(fs.Label)
		if err := lf.WriteCSV(label.tmp); err != nil {
			return &core.TransformError{Step: StepWrite, Err: err}
		}
	}
	if fs.columnsFile != "" {
		if err := SaveTrainingColumns(columns.tmp, fs.Features.Columns()); err != nil {
			return &core.TransformError{Step: StepColumns, Err: err}
		}
	}
	return commit(files)
}

type stagedFile struct {
	tmp  string
	path string
}

// commit renames staged files into place in order. When a rename fails the
// files already moved are removed again.
func commit(files []*stagedFile) error {
	for i, f := range files {
		if err := os.Rename(f.tmp, f.path); err != nil {
			for _, done := range files[:i] {
				_ = os.Remove(done.path)
			}
			return &core.TransformError{Step: StepWrite, Err: fmt.Errorf("failed to replace %s: %w", f.path, err)}
		}
	}
	return nil
}
