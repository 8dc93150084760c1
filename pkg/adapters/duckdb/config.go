package duckdb

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapingest/pkg/adapter"
)

// Params is the target.params block of a duckdb staging target.
//
//	params:
//	  extensions: [json]
//	  settings:
//	    threads: 2
//	    memory_limit: 1GB
type Params struct {
	Extensions []string          `mapstructure:"extensions"`
	Settings   map[string]string `mapstructure:"settings"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if err := adapter.DecodeParams(DialectName, raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// statements returns the session statements that apply p, extensions
// first and settings in key order.
func (p *Params) statements() []string {
	stmts := make([]string, 0, 2*len(p.Extensions)+len(p.Settings))
	for _, ext := range p.Extensions {
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}
	for _, k := range slices.Sorted(maps.Keys(p.Settings)) {
		stmts = append(stmts, setStatement(k, p.Settings[k]))
	}
	return stmts
}

func setStatement(key, value string) string {
	return fmt.Sprintf("SET %s = '%s'", key, strings.ReplaceAll(value, "'", "''"))
}
