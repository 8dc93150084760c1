package server

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapingest/internal/bucket"
	"github.com/leapstack-labs/leapingest/pkg/core"
)

// Entry is one file or directory inside a bucket.
type Entry struct {
	Name     string    `json:"name"`
	Dir      bool      `json:"dir"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Bucket is the listing of one bucket directory.
type Bucket struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// bucketCache memoizes bucket listings per mode until invalidated.
type bucketCache struct {
	mu      sync.Mutex
	entries map[core.Mode][]Bucket
}

func newBucketCache() *bucketCache {
	return &bucketCache{entries: make(map[core.Mode][]Bucket)}
}

func (c *bucketCache) get(mode core.Mode, layout bucket.Layout) ([]Bucket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.entries[mode]; ok {
		return b, nil
	}
	b, err := listBuckets(layout)
	if err != nil {
		return nil, err
	}
	c.entries[mode] = b
	return b, nil
}

func (c *bucketCache) invalidate() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// listBuckets lists every bucket of layout sorted by bucket name.
func listBuckets(layout bucket.Layout) ([]Bucket, error) {
	all := layout.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Bucket, 0, len(names))
	for _, name := range names {
		dir := all[name]
		entries, err := bucket.ListEntries(dir)
		if err != nil {
			return nil, err
		}
		b := Bucket{Name: name, Path: dir, Entries: make([]Entry, 0, len(entries))}
		for _, e := range entries {
			info, err := os.Stat(filepath.Join(dir, e))
			if err != nil {
				// Removed between listing and stat.
				continue
			}
			b.Entries = append(b.Entries, Entry{
				Name:     e,
				Dir:      info.IsDir(),
				Size:     info.Size(),
				Modified: info.ModTime().UTC(),
			})
		}
		out = append(out, b)
	}
	return out, nil
}
