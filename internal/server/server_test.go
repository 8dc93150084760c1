package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/internal/schemastore"
	"github.com/leapstack-labs/leapingest/internal/state"
	"github.com/leapstack-labs/leapingest/internal/testutil"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

const trainSchema = `{
	"SampleFileName": "HR_Data_01012020_120000.csv",
	"ColName": {"empid": "INTEGER", "salary": "TEXT"},
	"NumberofColumns": 2
}`

type fixture struct {
	root   string
	store  *state.SQLiteStore
	layout bucket.Layout
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(root, "state.db")))
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { _ = store.Close() })

	schemaDir := filepath.Join(root, "schema")
	require.NoError(t, os.MkdirAll(schemaDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "schema_train.json"), []byte(trainSchema), 0o600))

	layout := bucket.NewLayout(filepath.Join(root, "training_data"))
	srv := New(Config{
		Store:   store,
		Layouts: map[core.Mode]bucket.Layout{core.ModeTrain: layout},
		Schemas: schemastore.New(schemaDir, nil),
		Addr:    "127.0.0.1:0",
		Logger:  testutil.NewTestLogger(t),
	})
	return &fixture{root: root, store: store, layout: layout, server: srv}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createRun(t *testing.T, mode core.Mode, at time.Time) *core.Run {
	t.Helper()
	rc, err := core.NewRunContext(f.layout.Source, mode, at)
	require.NoError(t, err)
	run, err := f.store.CreateRun(context.Background(), rc)
	require.NoError(t, err)
	return run
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first := f.createRun(t, core.ModeTrain, start)
	second := f.createRun(t, core.ModeTrain, start.Add(time.Minute))
	require.NoError(t, f.store.CompleteRun(ctx, first.ID, core.RunStatusCompleted, ""))

	t.Run("list", func(t *testing.T) {
		rec := f.get(t, "/api/runs")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]core.Run](t, rec), 2)
	})

	t.Run("list with limit", func(t *testing.T) {
		rec := f.get(t, "/api/runs?limit=1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]core.Run](t, rec), 1)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := f.get(t, "/api/runs?limit=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[errorBody](t, rec).Error, "invalid limit")
	})

	t.Run("get", func(t *testing.T) {
		rec := f.get(t, "/api/runs/"+first.ID)
		require.Equal(t, http.StatusOK, rec.Code)
		run := decode[core.Run](t, rec)
		assert.Equal(t, first.ID, run.ID)
		assert.Equal(t, core.RunStatusCompleted, run.Status)
	})

	t.Run("get missing", func(t *testing.T) {
		rec := f.get(t, "/api/runs/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("latest", func(t *testing.T) {
		rec := f.get(t, "/api/runs/latest/train")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, second.ID, decode[core.Run](t, rec).ID)
	})

	t.Run("latest without runs", func(t *testing.T) {
		rec := f.get(t, "/api/runs/latest/predict")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("latest invalid mode", func(t *testing.T) {
		rec := f.get(t, "/api/runs/latest/score")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRunFilesAndTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run := f.createRun(t, core.ModeTrain, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	rec := &core.FileRecord{
		RunID: run.ID,
		Name:  "HR_Data_01012020_120000.csv",
		State: core.FileStateRejected,
		Path:  filepath.Join(f.layout.Rejects, "HR_Data_01012020_120000.csv"),
	}
	require.NoError(t, f.store.RecordFile(ctx, rec))
	require.NoError(t, f.store.RecordTransition(ctx, &core.FileTransition{
		FileID: rec.ID,
		RunID:  run.ID,
		From:   core.FileStateSource,
		To:     core.FileStateRejected,
		Path:   rec.Path,
		Reason: "column count mismatch",
	}))

	files := f.get(t, "/api/runs/"+run.ID+"/files")
	require.Equal(t, http.StatusOK, files.Code)
	got := decode[[]core.FileRecord](t, files)
	require.Len(t, got, 1)
	assert.Equal(t, core.FileStateRejected, got[0].State)

	transitions := f.get(t, "/api/files/"+rec.ID+"/transitions")
	require.Equal(t, http.StatusOK, transitions.Code)
	trs := decode[[]core.FileTransition](t, transitions)
	require.Len(t, trs, 1)
	assert.Equal(t, "column count mismatch", trs[0].Reason)

	missing := f.get(t, "/api/runs/nope/files")
	assert.Equal(t, http.StatusNotFound, missing.Code)

	empty := f.get(t, "/api/files/nope/transitions")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, "[]", empty.Body.String())
}

func TestBuckets(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.layout.Source, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.Source, "b.csv"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.Source, "a.csv"), []byte("xyz"), 0o600))

	rec := f.get(t, "/api/buckets/train")
	require.Equal(t, http.StatusOK, rec.Code)
	buckets := decode[[]Bucket](t, rec)
	require.Len(t, buckets, 6)

	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"archive", "processed", "rejects", "results", "source", "validation"}, names)

	source := buckets[4]
	require.Len(t, source.Entries, 2)
	assert.Equal(t, "a.csv", source.Entries[0].Name)
	assert.Equal(t, int64(3), source.Entries[0].Size)
	assert.Empty(t, buckets[0].Entries)

	// Cached until invalidated.
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.Source, "c.csv"), []byte("x"), 0o600))
	assert.Len(t, decode[[]Bucket](t, f.get(t, "/api/buckets/train"))[4].Entries, 2)
	f.server.buckets.invalidate()
	assert.Len(t, decode[[]Bucket](t, f.get(t, "/api/buckets/train"))[4].Entries, 3)

	unconfigured := f.get(t, "/api/buckets/predict")
	assert.Equal(t, http.StatusNotFound, unconfigured.Code)

	invalid := f.get(t, "/api/buckets/score")
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
}

func TestSchema(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run := f.createRun(t, core.ModeTrain, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, f.store.RecordSchemaChange(ctx, &core.SchemaChange{
		Table:   core.ModeTrain.TableName(),
		Version: 1,
		Action:  core.SchemaActionCreate,
		RunID:   run.ID,
	}))

	rec := f.get(t, "/api/schema/train")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[schemaResponse](t, rec)
	require.NotNil(t, body.Schema)
	assert.Equal(t, 2, body.Schema.ExpectedCount)
	assert.Equal(t, filepath.Join(f.root, "schema", "schema_train.json"), body.Path)
	require.Len(t, body.History, 1)
	assert.Equal(t, core.SchemaActionCreate, body.History[0].Action)

	missing := f.get(t, "/api/schema/predict")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	a := n.Subscribe()
	b := n.Subscribe()

	n.Broadcast()
	n.Broadcast() // coalesced with the pending ping

	for _, ch := range []chan struct{}{a, b} {
		select {
		case <-ch:
		default:
			t.Fatal("expected a ping")
		}
		select {
		case <-ch:
			t.Fatal("pings should coalesce")
		default:
		}
	}

	n.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)

	n.Broadcast()
	select {
	case <-b:
	default:
		t.Fatal("remaining subscriber should still be pinged")
	}
	n.Unsubscribe(b)
}

func TestServe_EventsAndShutdown(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/events") //nolint:noctx // test request
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	_, _ = reader.ReadString('\n')

	// The subscription is registered after the comment is flushed.
	require.Eventually(t, func() bool {
		f.server.notifier.mu.RLock()
		defer f.server.notifier.mu.RUnlock()
		return len(f.server.notifier.listeners) == 1
	}, time.Second, 10*time.Millisecond)

	f.server.notifier.Broadcast()
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: change\n", line)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWatchBuckets(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.layout.Source, 0o750))
	f.server.watch = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.server.watchBuckets(ctx) }()

	ch := f.server.notifier.Subscribe()
	defer f.server.notifier.Unsubscribe(ch)

	// Prime the cache, then change the bucket.
	_, err := f.server.buckets.get(core.ModeTrain, f.layout)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		name := filepath.Join(f.layout.Source, "new_"+time.Now().Format("150405.000000000")+".csv")
		_ = os.WriteFile(name, []byte("x"), 0o600)
		select {
		case <-ch:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	buckets, err := f.server.buckets.get(core.ModeTrain, f.layout)
	require.NoError(t, err)
	for _, b := range buckets {
		if b.Name == "source" {
			assert.True(t, strings.HasPrefix(b.Entries[0].Name, "new_"))
		}
	}

	cancel()
	assert.NoError(t, <-done)
}
