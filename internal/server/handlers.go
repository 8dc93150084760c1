package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapingest/internal/state"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

const defaultRunLimit = 50

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps lookup failures to 404 and everything else to 500.
func statusFor(err error) int {
	var nf *core.SchemaNotFoundError
	switch {
	case errors.Is(err, state.ErrNotFound), errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func modeParam(r *http.Request) (core.Mode, error) {
	return core.ParseMode(chi.URLParam(r, "mode"))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if runs == nil {
		runs = []*core.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	run, err := s.store.GetLatestRun(r.Context(), mode)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no %s run recorded", mode))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) runFiles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	files, err := s.store.ListFiles(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if files == nil {
		files = []*core.FileRecord{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) fileTransitions(w http.ResponseWriter, r *http.Request) {
	transitions, err := s.store.ListTransitions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if transitions == nil {
		transitions = []*core.FileTransition{}
	}
	writeJSON(w, http.StatusOK, transitions)
}

func (s *Server) listBuckets(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	layout, ok := s.layouts[mode]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no data directory configured for %s", mode))
		return
	}
	buckets, err := s.buckets.get(mode, layout)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

type schemaResponse struct {
	Path    string               `json:"path"`
	Schema  *core.Schema         `json:"schema"`
	History []*core.SchemaChange `json:"history"`
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	schema, err := s.schemas.Load(mode)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	history, err := s.store.ListSchemaChanges(r.Context(), mode.TableName())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if history == nil {
		history = []*core.SchemaChange{}
	}
	writeJSON(w, http.StatusOK, schemaResponse{Path: s.schemas.Path(mode), Schema: schema, History: history})
}

// events streams a server-sent "change" event whenever a bucket changes.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if _, err := fmt.Fprint(w, "event: change\ndata: buckets\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
