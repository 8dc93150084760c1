package commands

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapingest/internal/cli/output"
	"github.com/leapstack-labs/leapingest/internal/engine"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// fileOutput is the JSON form of a file outcome.
type fileOutput struct {
	Name   string         `json:"name"`
	State  core.FileState `json:"state"`
	Path   string         `json:"path"`
	Reason string         `json:"reason,omitempty"`
}

// resultOutput is the JSON form of a pipeline result.
type resultOutput struct {
	Run      *core.Run    `json:"run"`
	Archived []string     `json:"archived,omitempty"`
	Files    []fileOutput `json:"files"`
	Rows     int          `json:"rows"`
	Snapshot string       `json:"snapshot,omitempty"`
	Features []string     `json:"features,omitempty"`
	Results  string       `json:"results,omitempty"`
	Duration string       `json:"duration"`
}

func toResultOutput(res *engine.Result, elapsed time.Duration) resultOutput {
	out := resultOutput{
		Run:      res.Run,
		Files:    make([]fileOutput, 0, len(res.Files)),
		Rows:     res.Rows,
		Snapshot: res.Snapshot,
		Results:  res.Results,
		Duration: elapsed.Round(time.Millisecond).String(),
	}
	if res.Archive != nil {
		out.Archived = res.Archive.Moved
	}
	for _, f := range res.Files {
		out.Files = append(out.Files, fileOutput{Name: f.Name, State: f.State, Path: f.Path, Reason: f.Reason})
	}
	if res.Features != nil {
		out.Features = res.Features.Features.Columns()
	}
	return out
}

func renderResult(r *output.Renderer, res *engine.Result, elapsed time.Duration) error {
	out := toResultOutput(res, elapsed)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	titleCaser := cases.Title(language.English)
	run := out.Run
	r.Header(1, fmt.Sprintf("%s run %s", titleCaser.String(string(run.Mode)), run.ID))
	r.KeyValue("Status", titleCaser.String(string(run.Status)))
	r.KeyValue("Source", run.SourceDir)
	if len(out.Archived) > 0 {
		r.KeyValue("Archived", fmt.Sprintf("%d entries", len(out.Archived)))
	}
	if len(out.Files) > 0 {
		r.KeyValue("Files", fmt.Sprintf("%d processed, %d rejected",
			res.Count(core.FileStateProcessed), res.Count(core.FileStateRejected)))
		r.KeyValue("Rows staged", fmt.Sprintf("%d", out.Rows))
	}
	if out.Snapshot != "" {
		r.KeyValue("Snapshot", out.Snapshot)
	}
	if out.Results != "" {
		r.KeyValue("Features", fmt.Sprintf("%d columns in %s", len(out.Features), out.Results))
	}
	r.KeyValue("Duration", out.Duration)

	if len(out.Files) > 0 {
		r.Println("")
		r.Header(2, "Files")
		for _, f := range out.Files {
			msg := f.Name
			if f.Reason != "" {
				msg += " (" + f.Reason + ")"
			}
			r.StatusLine(string(f.State), msg)
		}
	}
	if run.Error != "" {
		r.Println("")
		r.Error(run.Error)
	}
	return nil
}
