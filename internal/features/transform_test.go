package features

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapingest/internal/tabular"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

func TestEncodeCategoricals(t *testing.T) {
	f := NewFrame(4)
	require.NoError(t, f.Add(NewNumeric("n", []float64{1, 2, 3, 4})))
	require.NoError(t, f.Add(NewText("salary", []string{"low", "high", "medium", "NULL"})))
	require.NoError(t, f.Add(NewText("dept", []string{"sales", "sales", "sales", "sales"})))

	enc := EncodeCategoricals(f)
	assert.Equal(t, []string{"salary_low", "salary_medium"}, enc.Columns())

	low, _ := enc.Column("salary_low")
	medium, _ := enc.Column("salary_medium")
	assert.Equal(t, []float64{1, 0, 0, 0}, low.Num)
	assert.Equal(t, []float64{0, 0, 1, 0}, medium.Num)

	assert.Equal(t, []string{"salary", "dept"}, TextColumns(f))
}

func TestHasMissingAndCounts(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.Add(NewNumeric("a", []float64{1, math.NaN()})))
	require.NoError(t, f.Add(NewNumeric("b", []float64{1, 2})))
	assert.True(t, HasMissing(f))
	assert.Equal(t, []MissingCount{{"a", 1}, {"b", 0}}, MissingCounts(f))

	clean, err := f.Drop("a")
	require.NoError(t, err)
	assert.False(t, HasMissing(clean))

	path := filepath.Join(t.TempDir(), "null_values.csv")
	require.NoError(t, WriteNullReport(path, MissingCounts(f)))
	got, err := tabular.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"columns", "missing values count"}, got.Header)
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "0"}}, got.Rows)
}

func TestKNNImputer(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name      string
		neighbors int
		cols      map[string][]float64
		order     []string
		want      map[string][]float64
	}{
		{
			name:      "mean of the three nearest donors",
			neighbors: 3,
			order:     []string{"x", "y"},
			cols: map[string][]float64{
				"x": {1, 2, 3, 4, 100},
				"y": {10, 20, 30, nan, 1000},
			},
			// Row 3 is nearest to rows 2, 1 and 0.
			want: map[string][]float64{
				"x": {1, 2, 3, 4, 100},
				"y": {10, 20, 30, 20, 1000},
			},
		},
		{
			name:      "fewer donors than neighbours",
			neighbors: 3,
			order:     []string{"x", "y"},
			cols: map[string][]float64{
				"x": {1, 2, 3},
				"y": {4, nan, nan},
			},
			want: map[string][]float64{
				"x": {1, 2, 3},
				"y": {4, 4, 4},
			},
		},
		{
			name:      "no shared coordinates uses column mean",
			neighbors: 1,
			order:     []string{"x", "y"},
			cols: map[string][]float64{
				"x": {nan, 1, 3},
				"y": {nan, 2, 6},
			},
			want: map[string][]float64{
				"x": {2, 1, 3},
				"y": {4, 2, 6},
			},
		},
		{
			name:      "column without donors becomes zero",
			neighbors: 3,
			order:     []string{"x", "y"},
			cols: map[string][]float64{
				"x": {1, 2},
				"y": {nan, nan},
			},
			want: map[string][]float64{
				"x": {1, 2},
				"y": {0, 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(len(tt.cols[tt.order[0]]))
			for _, name := range tt.order {
				require.NoError(t, f.Add(NewNumeric(name, tt.cols[name])))
			}
			out, err := KNNImputer{Neighbors: tt.neighbors}.Impute(f)
			require.NoError(t, err)
			assert.False(t, HasMissing(out))
			for name, want := range tt.want {
				s, _ := out.Column(name)
				assert.InDeltaSlice(t, want, s.Num, 1e-9, name)
			}
			// input untouched
			assert.True(t, HasMissing(f))
		})
	}
}

func TestKNNImputer_RejectsText(t *testing.T) {
	f := NewFrame(1)
	require.NoError(t, f.Add(NewText("s", []string{"NULL"})))
	_, err := KNNImputer{}.Impute(f)
	assert.Error(t, err)
}

func TestAlign(t *testing.T) {
	training := []string{"a", "b", "c_x"}

	tests := []struct {
		name  string
		input func() *Frame
		want  map[string][]float64
	}{
		{
			name: "superset drops extras and fills gaps",
			input: func() *Frame {
				f := NewFrame(2)
				_ = f.Add(NewNumeric("b", []float64{1, math.NaN()}))
				_ = f.Add(NewNumeric("extra", []float64{9, 9}))
				_ = f.Add(NewNumeric("a", []float64{5, 6}))
				return f
			},
			want: map[string][]float64{"a": {5, 6}, "b": {1, 0}, "c_x": {0, 0}},
		},
		{
			name: "no overlap is all zero",
			input: func() *Frame {
				f := NewFrame(1)
				_ = f.Add(NewNumeric("z", []float64{3}))
				return f
			},
			want: map[string][]float64{"a": {0}, "b": {0}, "c_x": {0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Align(tt.input(), training)
			require.NoError(t, err)
			assert.Equal(t, training, out.Columns())
			for name, want := range tt.want {
				s, _ := out.Column(name)
				assert.Equal(t, want, s.Num, name)
			}
		})
	}
}

func TestTrainingColumnsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "columns.json")
	require.NoError(t, SaveTrainingColumns(path, []string{"a", "b"}))

	cols, err := LoadTrainingColumns(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"data_columns": []}`), 0o600))
	_, err = LoadTrainingColumns(empty)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.Add(NewNumeric("x", []float64{1, 2})))
	require.NoError(t, f.Add(NewNumeric("left", []float64{0, 1})))

	x, y, err := Split(f, "left")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, x.Columns())
	assert.Equal(t, []float64{0, 1}, y.Num)

	_, _, err = Split(f, "nope")
	assert.Error(t, err)
}

func snapshotFrame() *Frame {
	return FromTable(table(
		[]string{"empid", "satisfaction", "salary", "left"},
		[]string{"1", "0.5", "low", "1"},
		[]string{"2", "NULL", "medium", "0"},
		[]string{"3", "0.9", "high", "0"},
		[]string{"4", "0.7", "low", "1"},
	))
}

func TestTransformer_TrainThenPredict(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	opts := Options{
		Label:          "left",
		DropColumns:    []string{"empid"},
		ColumnsFile:    filepath.Join(dir, "columns.json"),
		Neighbors:      3,
		NullReportPath: filepath.Join(dir, "validation", "null_values.csv"),
	}
	tr := NewTransformer(opts, nil)

	fs, err := tr.PreprocessTrain(ctx, snapshotFrame())
	require.NoError(t, err)
	assert.Equal(t, []string{"satisfaction", "salary_low", "salary_medium"}, fs.Features.Columns())
	assert.False(t, HasMissing(fs.Features))
	assert.Equal(t, "left", fs.Label.Name)
	assert.FileExists(t, opts.NullReportPath)
	assert.NoFileExists(t, opts.ColumnsFile)

	sat, _ := fs.Features.Column("satisfaction")
	assert.InDelta(t, (0.5+0.9+0.7)/3, sat.Num[1], 1e-9)

	results := filepath.Join(dir, "results")
	require.NoError(t, fs.Write(results))
	assert.FileExists(t, filepath.Join(results, FeaturesFile))
	assert.FileExists(t, filepath.Join(results, LabelFile))
	assert.FileExists(t, opts.ColumnsFile)

	predict := FromTable(table(
		[]string{"satisfaction", "salary", "bonus"},
		[]string{"0.3", "medium", "1"},
		[]string{"0.4", "unknown", "0"},
	))
	pfs, err := tr.PreprocessPredict(ctx, predict)
	require.NoError(t, err)
	assert.Nil(t, pfs.Label)
	assert.Equal(t, fs.Features.Columns(), pfs.Features.Columns())

	low, _ := pfs.Features.Column("salary_low")
	assert.Equal(t, []float64{0, 0}, low.Num)
}

func TestFeatureSet_WriteLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	columnsFile := filepath.Join(dir, "models", "columns.json")
	tr := NewTransformer(Options{Label: "left", DropColumns: []string{"empid"}, ColumnsFile: columnsFile, Neighbors: 3}, nil)
	fs, err := tr.PreprocessTrain(context.Background(), snapshotFrame())
	require.NoError(t, err)

	results := filepath.Join(dir, "results")
	require.NoError(t, os.MkdirAll(filepath.Join(results, LabelFile, "occupied"), 0o750))

	err = fs.Write(results)
	var te *core.TransformError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, StepWrite, te.Step)

	assert.NoFileExists(t, filepath.Join(results, FeaturesFile))
	assert.NoFileExists(t, columnsFile)
	for _, d := range []string{results, filepath.Dir(columnsFile)} {
		partial, err := filepath.Glob(filepath.Join(d, ".*.partial"))
		require.NoError(t, err)
		assert.Empty(t, partial, d)
	}
}

func TestTransformer_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		run  func(*Transformer) error
		step string
	}{
		{
			name: "unknown drop column",
			opts: Options{Label: "left", DropColumns: []string{"nope"}},
			run: func(tr *Transformer) error {
				_, err := tr.PreprocessTrain(ctx, snapshotFrame())
				return err
			},
			step: StepDrop,
		},
		{
			name: "missing label",
			opts: Options{Label: "target"},
			run: func(tr *Transformer) error {
				_, err := tr.PreprocessTrain(ctx, snapshotFrame())
				return err
			},
			step: StepSplit,
		},
		{
			name: "no training columns file",
			opts: Options{ColumnsFile: filepath.Join(t.TempDir(), "absent.json")},
			run: func(tr *Transformer) error {
				_, err := tr.PreprocessPredict(ctx, snapshotFrame())
				return err
			},
			step: StepAlign,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(NewTransformer(tt.opts, nil))
			var te *core.TransformError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, tt.step, te.Step)
		})
	}
}
