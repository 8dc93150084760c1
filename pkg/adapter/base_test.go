package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapingest/pkg/core"
)

// mockBase returns a connected base adapter backed by sqlmock.
func mockBase(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_Unconnected(t *testing.T) {
	ctx := context.Background()
	var base BaseSQLAdapter

	assert.False(t, base.IsConnected())
	assert.NoError(t, base.Close())
	assert.ErrorIs(t, base.Exec(ctx, "SELECT 1"), core.ErrNotConnected)

	rows, err := base.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, core.ErrNotConnected)
	assert.Nil(t, rows)

	_, err = base.BeginTx(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = base.TableExistsCommon(ctx, "t", &core.DialectConfig{})
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = base.GetTableMetadataCommon(ctx, "t", &core.DialectConfig{})
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestBaseSQLAdapter_CloseDisconnects(t *testing.T) {
	base, mock := mockBase(t)
	mock.ExpectClose()

	assert.True(t, base.IsConnected())
	require.NoError(t, base.Close())
	assert.False(t, base.IsConnected())
	require.NoError(t, base.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(sqlmock.Sqlmock)
		query   string
		args    []any
		wantErr string
	}{
		{
			name: "ddl",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(`CREATE TABLE "training_raw_data_t"`).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			query: `CREATE TABLE "training_raw_data_t" ("empid" TEXT)`,
		},
		{
			name: "insert with args",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO staging").WithArgs("1", nil).WillReturnResult(sqlmock.NewResult(1, 1))
			},
			query: "INSERT INTO staging VALUES (?, ?)",
			args:  []any{"1", nil},
		},
		{
			name: "driver error is wrapped",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("ALTER TABLE").WillReturnError(assert.AnError)
			},
			query:   "ALTER TABLE t ADD COLUMN x TEXT",
			wantErr: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := mockBase(t)
			tt.expect(mock)

			err := base.Exec(context.Background(), tt.query, tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.ErrorIs(t, err, assert.AnError)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("rows are handed to the caller", func(t *testing.T) {
		base, mock := mockBase(t)
		mock.ExpectQuery("SELECT empid, salary").
			WillReturnRows(sqlmock.NewRows([]string{"empid", "salary"}).AddRow("1", "low").AddRow("2", "high"))

		rows, err := base.Query(ctx, "SELECT empid, salary FROM training_raw_data_t")
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		var got []string
		for rows.Next() {
			var id, salary string
			require.NoError(t, rows.Scan(&id, &salary))
			got = append(got, id+":"+salary)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"1:low", "2:high"}, got)
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		base, mock := mockBase(t)
		mock.ExpectQuery("SELEC").WillReturnError(assert.AnError)

		rows, err := base.Query(ctx, "SELEC 1")
		require.ErrorContains(t, err, "failed to execute query")
		assert.Nil(t, rows)
	})
}

func TestBaseSQLAdapter_BeginTx(t *testing.T) {
	ctx := context.Background()
	base, mock := mockBase(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()
	mock.ExpectBegin().WillReturnError(assert.AnError)

	tx, err := base.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, "INSERT INTO t VALUES (?)", "a")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = base.BeginTx(ctx)
	require.ErrorContains(t, err, "failed to begin transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseQualifiedName(t *testing.T) {
	d := &core.DialectConfig{DefaultSchema: "main"}

	tests := []struct {
		table      string
		wantSchema string
		wantName   string
	}{
		{"training_raw_data_t", "main", "training_raw_data_t"},
		{"staging.training_raw_data_t", "staging", "training_raw_data_t"},
		{"a.b.c", "main", "a.b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			schema, name := ParseQualifiedName(tt.table, d)
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestBaseSQLAdapter_TableExistsCommon(t *testing.T) {
	tests := []struct {
		name    string
		dialect *core.DialectConfig
		query   string
		count   int
		want    bool
	}{
		{
			name:    "question placeholders",
			dialect: &core.DialectConfig{DefaultSchema: "main", Placeholder: core.PlaceholderQuestion},
			query:   `table_schema = \? AND table_name = \?`,
			count:   1,
			want:    true,
		},
		{
			name:    "dollar placeholders",
			dialect: &core.DialectConfig{DefaultSchema: "public", Placeholder: core.PlaceholderDollar},
			query:   `table_schema = \$1 AND table_name = \$2`,
			count:   0,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectQuery(tt.query).
				WithArgs(tt.dialect.DefaultSchema, "training_raw_data_t").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))

			base := &BaseSQLAdapter{DB: db}
			got, err := base.TableExistsCommon(context.Background(), "training_raw_data_t", tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	d := &core.DialectConfig{DefaultSchema: "main", Identifiers: core.IdentifierConfig{Quote: `"`}}

	t.Run("returns columns and row count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("information_schema.columns").
			WithArgs("main", "training_raw_data_t").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
				AddRow("empid", "INTEGER", "YES", 1).
				AddRow("salary", "VARCHAR", "NO", 2))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "main"."training_raw_data_t"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

		base := &BaseSQLAdapter{DB: db}
		meta, err := base.GetTableMetadataCommon(context.Background(), "training_raw_data_t", d)
		require.NoError(t, err)
		assert.Equal(t, []string{"empid", "salary"}, meta.ColumnNames())
		assert.True(t, meta.Columns[0].Nullable)
		assert.False(t, meta.Columns[1].Nullable)
		assert.Equal(t, int64(42), meta.RowCount)
	})

	t.Run("missing table", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("information_schema.columns").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

		base := &BaseSQLAdapter{DB: db}
		_, err = base.GetTableMetadataCommon(context.Background(), "nope", d)
		require.ErrorIs(t, err, core.ErrTableNotFound)
	})
}
