// Package pipeline runs discovery, parsing, aggregation and tree building
// over one download root.
package pipeline

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/iter"

	"bili-tree/internal/discovery"
	"bili-tree/internal/metadata"
	"bili-tree/internal/models"
	"bili-tree/internal/progress"
	"bili-tree/internal/tree"
)

// Options configures a run.
type Options struct {
	Root     string
	Workers  int
	Exclude  []string
	Progress *progress.Cell
	Logger   *log.Logger
}

// Result is the output of a run.
type Result struct {
	Tree  []models.CollectionNode
	Stats Stats
}

// Empty reports whether no record could be parsed.
func (r Result) Empty() bool {
	return r.Stats.Parsed == 0
}

type parsed struct {
	entry metadata.Entry
	ok    bool
}

// Run scans opts.Root and builds the tree. Per-file failures are counted
// and logged; only a root that cannot be scanned is returned as an error.
func Run(opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths, err := discovery.Discover(opts.Root, discovery.Options{
		Workers:  workers,
		Exclude:  opts.Exclude,
		Progress: opts.Progress,
	})
	if err != nil {
		return Result{}, err
	}
	logger.Infof("found %d %s files", len(paths), metadata.FileName)

	var readErrs, parseErrs atomic.Int64

	// The mapper keeps results in path order, so aggregation below sees a
	// reproducible sequence no matter which worker finished first.
	mapper := iter.Mapper[string, parsed]{MaxGoroutines: workers}
	results := mapper.Map(paths, func(path *string) parsed {
		entry, err := metadata.ParseFile(*path)
		switch {
		case err == nil:
			return parsed{entry: entry, ok: true}
		case errors.Is(err, metadata.ErrRead):
			readErrs.Add(1)
			logger.Debugf("read error: %v", err)
		default:
			parseErrs.Add(1)
			logger.Errorf("malformed metadata: %v", err)
		}
		return parsed{}
	})

	entries := make([]metadata.Entry, 0, len(results))
	for _, r := range results {
		if r.ok {
			entries = append(entries, r.entry)
		}
	}

	stats := Stats{
		Candidates:    len(paths),
		ReadFailures:  readErrs.Load(),
		ParseFailures: parseErrs.Load(),
		Parsed:        len(entries),
	}
	logger.Infof("parse complete: read failures %d, parse failures %d, parsed %d",
		stats.ReadFailures, stats.ParseFailures, stats.Parsed)

	if len(entries) == 0 {
		return Result{Tree: []models.CollectionNode{}, Stats: stats}, nil
	}

	collections := tree.Build(tree.Aggregate(entries))
	stats.Collections = len(collections)
	return Result{Tree: collections, Stats: stats}, nil
}
