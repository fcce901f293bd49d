// Package filesource serves a prompt catalog from local YAML files as a
// drop-in event source, for offline development and tests. The merged
// catalog is delivered as a single sync snapshot, so a client behaves
// exactly as if the realtime service had pushed it. With WithWatch, edits
// to the files re-emit fresh snapshots.
//
// A catalog file holds a list of records:
//
//	prompts:
//	  - id: welcome-v2
//	    name: welcome
//	    agentId: support
//	    version: 2
//	    content: "Hello, {{ .name }}!"
package filesource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	resonance "github.com/resonancehq/resonance-go"
	"github.com/resonancehq/resonance-go/transport"
)

// ErrInvalidCatalog indicates a catalog file that could not be parsed or
// lists a record without an id.
var ErrInvalidCatalog = errors.New("filesource: invalid catalog file")

// debounceWindow absorbs the bursts of writes editors produce when saving.
const debounceWindow = 100 * time.Millisecond

// catalogFile is the YAML shape of one catalog file.
type catalogFile struct {
	Prompts []resonance.Prompt `yaml:"prompts"`
}

// Source replays catalog files as sync snapshots.
type Source struct {
	paths []string
	log   *zap.Logger

	events    chan transport.Event
	stop      chan struct{}
	closeOnce sync.Once
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

var _ transport.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*config)

type config struct {
	watch bool
	log   *zap.Logger
}

// WithWatch re-reads the catalog and emits a fresh snapshot whenever one of
// the files changes. Only New supports watching; NewFS does not.
func WithWatch() Option {
	return func(c *config) { c.watch = true }
}

// WithLogger sets the logger for reload diagnostics. Defaults to
// zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// New reads the given catalog files and returns a source whose first event
// is their merged snapshot. When two files list the same id, the later file
// wins, the same way a snapshot from the service resolves duplicate
// records. Parsing is eager: a broken file fails construction instead of
// producing a silently empty catalog.
func New(paths []string, opts ...Option) (*Source, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no catalog files given", ErrInvalidCatalog)
	}
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	prompts, err := loadFiles(paths)
	if err != nil {
		return nil, err
	}

	s := newSource(paths, cfg.log)
	s.emit(prompts)

	if cfg.watch {
		if err := s.startWatch(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewFS walks fsys from root, reads every .yaml and .yml file, and returns
// a source serving their merged snapshot. It suits catalogs compiled into
// the binary with go:embed; watching is not available for fs.FS catalogs.
func NewFS(fsys fs.FS, root string, opts ...Option) (*Source, error) {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.watch {
		return nil, fmt.Errorf("%w: watching requires file paths, not an fs.FS", ErrInvalidCatalog)
	}

	var prompts []resonance.Prompt
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || (!strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml")) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("filesource: read %s: %w", path, err)
		}
		records, err := parseCatalog(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		prompts = append(prompts, records...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s := newSource(nil, cfg.log)
	s.emit(prompts)
	return s, nil
}

func newSource(paths []string, log *zap.Logger) *Source {
	return &Source{
		paths:  paths,
		log:    log,
		events: make(chan transport.Event, 4),
		stop:   make(chan struct{}),
	}
}

// Events returns the snapshot stream: the initial catalog, then one event
// per reload when watching.
func (s *Source) Events() <-chan transport.Event { return s.events }

// Close stops watching and closes the events channel. It is idempotent.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.watcher != nil {
			_ = s.watcher.Close()
			<-s.done
		}
		close(s.events)
	})
	return nil
}

// emit marshals prompts into a sync event and queues it, giving up if the
// source is closed rather than blocking forever on a gone consumer.
func (s *Source) emit(prompts []resonance.Prompt) {
	data, err := json.Marshal(resonance.SyncPayload{Prompts: prompts})
	if err != nil {
		s.log.Warn("catalog snapshot marshal failed", zap.Error(err))
		return
	}
	select {
	case s.events <- transport.Event{Name: transport.EventSync, Data: data}:
	case <-s.stop:
	}
}

// startWatch watches the parent directories of the catalog files. Watching
// directories rather than the files themselves keeps working across the
// replace-by-rename saves most editors do.
func (s *Source) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filesource: watch: %w", err)
	}

	watched := make(map[string]bool, len(s.paths))
	dirs := make(map[string]bool)
	for _, p := range s.paths {
		watched[filepath.Clean(p)] = true
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("filesource: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watch(watched)
	return nil
}

// watch debounces on the trailing edge: the reload runs once the burst of
// write events an editor produces has settled, so it never reads a file
// mid-save.
func (s *Source) watch(watched map[string]bool) {
	defer close(s.done)

	debounce := time.NewTimer(debounceWindow)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	var changed string
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			changed = ev.Name
			debounce.Reset(debounceWindow)
		case <-debounce.C:
			s.reload(changed)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the whole catalog and emits it. A catalog that fails to
// parse after an edit is skipped; the previous snapshot stays in effect.
func (s *Source) reload(changed string) {
	prompts, err := loadFiles(s.paths)
	if err != nil {
		s.log.Warn("catalog reload failed, keeping previous snapshot",
			zap.String("file", changed),
			zap.Error(err))
		return
	}
	s.emit(prompts)
	s.log.Debug("catalog reloaded",
		zap.String("file", changed),
		zap.Int("prompts", len(prompts)))
}

func loadFiles(paths []string) ([]resonance.Prompt, error) {
	var out []resonance.Prompt
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("filesource: read %s: %w", path, err)
		}
		records, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, records...)
	}
	return out, nil
}

func parseCatalog(data []byte) ([]resonance.Prompt, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	for i, p := range f.Prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: prompt %d: missing id", ErrInvalidCatalog, i)
		}
	}
	return f.Prompts, nil
}
