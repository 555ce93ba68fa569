package library

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"bili-tree/internal/discovery"
	"bili-tree/internal/metadata"
	"bili-tree/internal/models"
	"bili-tree/internal/pipeline"
)

// Options configures a Library.
type Options struct {
	Root     string
	Workers  int
	Exclude  []string
	Debounce time.Duration
	Logger   *log.Logger
	// OnRefresh is called after every rebuild that parsed at least one record.
	OnRefresh func(pipeline.Result)
}

// Library watches a download root and keeps the latest tree in memory.
// Every change triggers a full rebuild.
type Library struct {
	opts    Options
	watcher *fsnotify.Watcher
	logger  *log.Logger

	mu     sync.RWMutex
	result pipeline.Result

	// buildMu serializes rebuilds so an older result never replaces a newer one.
	buildMu sync.Mutex

	refreshMu    sync.Mutex
	refreshTimer *time.Timer

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewLibrary builds the tree once and starts watching opts.Root.
func NewLibrary(opts Options) (*Library, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	lib := &Library{
		opts:    opts,
		watcher: watcher,
		logger:  logger,
		result:  pipeline.Result{Tree: []models.CollectionNode{}},
		done:    make(chan struct{}),
	}

	lib.addWatchRecursive(opts.Root)

	if err := lib.refresh(); err != nil {
		watcher.Close()
		return nil, err
	}

	lib.wg.Add(1)
	go lib.run()

	return lib, nil
}

// Close stops the watcher and cleans up resources.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)

		l.refreshMu.Lock()
		if l.refreshTimer != nil {
			l.refreshTimer.Stop()
			l.refreshTimer = nil
		}
		l.refreshMu.Unlock()

		l.closeErr = l.watcher.Close()
		l.wg.Wait()

		// Wait out a rebuild that was already running when the timer stopped.
		l.buildMu.Lock()
		l.buildMu.Unlock()
	})
	return l.closeErr
}

// Tree returns a copy of the latest collection list.
func (l *Library) Tree() []models.CollectionNode {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.CollectionNode, len(l.result.Tree))
	copy(result, l.result.Tree)
	return result
}

// Stats returns the counters of the latest rebuild.
func (l *Library) Stats() pipeline.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.result.Stats
}

// Root returns the watched directory.
func (l *Library) Root() string {
	return l.opts.Root
}

func (l *Library) run() {
	defer l.wg.Done()

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			l.handleEvent(event)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warnf("watcher error: %v", err)
		case <-l.done:
			return
		}
	}
}

func (l *Library) handleEvent(event fsnotify.Event) {
	if l.excluded(event.Name) {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			l.addWatchRecursive(event.Name)
			l.scheduleRefresh()
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		if filepath.Base(event.Name) == metadata.FileName || event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			l.scheduleRefresh()
		}
	}
}

func (l *Library) refresh() error {
	l.buildMu.Lock()
	defer l.buildMu.Unlock()

	if l.closed() {
		return nil
	}

	res, err := pipeline.Run(pipeline.Options{
		Root:    l.opts.Root,
		Workers: l.opts.Workers,
		Exclude: l.opts.Exclude,
		Logger:  l.logger,
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.result = res
	l.mu.Unlock()

	if res.Empty() {
		l.logger.Warn("no records parsed; output left untouched")
		return nil
	}

	l.logger.Infof("tree rebuilt with %d collections", res.Stats.Collections)
	if l.opts.OnRefresh != nil && !l.closed() {
		l.opts.OnRefresh(res)
	}
	return nil
}

func (l *Library) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Library) scheduleRefresh() {
	if l.closed() {
		return
	}

	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	if l.refreshTimer != nil {
		l.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(l.opts.Debounce, func() {
		if err := l.refresh(); err != nil {
			l.logger.Errorf("refresh error: %v", err)
		}

		l.refreshMu.Lock()
		if l.refreshTimer == timer {
			l.refreshTimer = nil
		}
		l.refreshMu.Unlock()
	})

	l.refreshTimer = timer
}

func (l *Library) addWatchRecursive(path string) {
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			l.logger.Debugf("walk error for %s: %v", p, err)
			return nil
		}

		if d.IsDir() {
			if l.excluded(p) {
				return filepath.SkipDir
			}
			if err := l.watcher.Add(p); err != nil {
				l.logger.Warnf("watcher add failure for %s: %v", p, err)
			}
		}
		return nil
	})
}

func (l *Library) excluded(path string) bool {
	return discovery.Excluded(l.opts.Root, path, l.opts.Exclude)
}
