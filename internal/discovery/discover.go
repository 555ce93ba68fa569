// Package discovery finds videoInfo.json files below a download root.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"bili-tree/internal/metadata"
	"bili-tree/internal/progress"
)

// Options tunes a discovery run.
type Options struct {
	// Workers bounds the number of directories listed concurrently.
	// Zero or negative means runtime.NumCPU().
	Workers int
	// Exclude holds doublestar patterns matched against slash-separated
	// paths relative to the root.
	Exclude []string
	// Progress, when set, receives every directory the walk enters.
	Progress *progress.Cell
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// Discover walks root and returns the paths of all regular files named
// metadata.FileName, sorted. Symbolic links are never followed. Entries that
// cannot be read are skipped; only a root that cannot be listed is an error.
func Discover(root string, opts Options) ([]string, error) {
	if err := ValidatePatterns(opts.Exclude); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	w := &walker{
		root:     root,
		exclude:  opts.Exclude,
		progress: opts.Progress,
	}
	w.group.SetLimit(workers)

	w.observe(root)
	w.visit(root, entries)
	_ = w.group.Wait()

	sort.Strings(w.found)
	return w.found, nil
}

type walker struct {
	root     string
	exclude  []string
	progress *progress.Cell
	group    errgroup.Group

	mu    sync.Mutex
	found []string
}

func (w *walker) walk(dir string) {
	w.observe(dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	w.visit(dir, entries)
}

func (w *walker) visit(dir string, entries []os.DirEntry) {
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if w.excluded(path) {
			continue
		}

		switch {
		case entry.IsDir():
			// Saturated group: walk inline so nested directories never wait
			// on a slot held by their own ancestor.
			if !w.group.TryGo(func() error {
				w.walk(path)
				return nil
			}) {
				w.walk(path)
			}
		case entry.Type().IsRegular() && entry.Name() == metadata.FileName:
			w.mu.Lock()
			w.found = append(w.found, path)
			w.mu.Unlock()
		}
	}
}

func (w *walker) excluded(path string) bool {
	return Excluded(w.root, path, w.exclude)
}

// Excluded reports whether path, taken relative to root, matches one of
// the doublestar patterns. The root itself is never excluded.
func Excluded(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (w *walker) observe(dir string) {
	if w.progress != nil {
		w.progress.Set(dir)
	}
}
