package vault

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stargraph/stargraph/internal/index"
	"github.com/stargraph/stargraph/internal/reconcile"
)

// Handler receives reconciler events from the watcher, one at a time,
// always from the same goroutine.
type Handler func(reconcile.Event)

// Watcher tails a vault directory with fsnotify and emits note events.
// Write bursts are debounced per path; OS remove/create pairs with matching
// content hashes are collapsed into rename events using the link index.
type Watcher struct {
	dir      string
	idx      *index.DB
	handler  Handler
	debounce time.Duration

	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	writes  map[string]*time.Timer // pending modify emissions per path
	removed map[string]*time.Timer // pending delete emissions per path
}

// NewWatcher creates a Watcher over dir. idx is consulted for rename
// detection and target resolution; it must already hold the scan results.
func NewWatcher(dir string, idx *index.DB, debounce time.Duration, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:      dir,
		idx:      idx,
		handler:  handler,
		debounce: debounce,
		fsw:      fsw,
		done:     make(chan struct{}),
		writes:   make(map[string]*time.Timer),
		removed:  make(map[string]*time.Timer),
	}
	if err := w.watchTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// watchTree registers dir and every non-hidden subdirectory; fsnotify
// watches are not recursive.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// Start consumes fsnotify events until Stop. Runs in its own goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop shuts the watcher down. Pending debounce timers are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()

		w.mu.Lock()
		defer w.mu.Unlock()
		for rel, t := range w.writes {
			t.Stop()
			delete(w.writes, rel)
		}
		for rel, t := range w.removed {
			t.Stop()
			delete(w.removed, rel)
		}
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("vault: watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	// New directories need their own watch before any note inside them
	// produces events.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watchTree(ev.Name); err != nil {
				log.Printf("vault: watch %s: %v", ev.Name, err)
			}
			return
		}
	}

	if !strings.EqualFold(filepath.Ext(ev.Name), ".md") {
		return
	}
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op.Has(fsnotify.Create):
		w.onCreate(rel)
	case ev.Op.Has(fsnotify.Write):
		w.debounceWrite(rel)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.onRemove(rel)
	}
}

// onCreate distinguishes genuine creates from the create half of an OS
// move: if the new file's content hash matches a note whose delete is
// still pending, the pair collapses into one rename event. A pending
// delete for the created path itself is an editor atomic save (write
// tmp, remove original, rename into place) and collapses into a modify.
func (w *Watcher) onCreate(rel string) {
	note, targets, err := w.loadResolved(rel)
	if err != nil {
		log.Printf("vault: create %s: %v", rel, err)
		return
	}

	if w.claimRemoved(rel) {
		w.handler(reconcile.Event{
			Op:      reconcile.OpModify,
			Path:    rel,
			Title:   note.Title,
			Hash:    note.Hash,
			Targets: targets,
		})
		return
	}

	if oldPath, err := w.idx.FindByHash(note.Hash); err != nil {
		log.Printf("vault: hash lookup: %v", err)
	} else if oldPath != "" && oldPath != rel && w.claimRemoved(oldPath) {
		w.handler(reconcile.Event{
			Op:      reconcile.OpRename,
			OldPath: oldPath,
			Path:    rel,
			Title:   note.Title,
			Hash:    note.Hash,
			Targets: targets,
		})
		return
	}

	w.handler(reconcile.Event{
		Op:      reconcile.OpCreate,
		Path:    rel,
		Title:   note.Title,
		Hash:    note.Hash,
		Targets: targets,
	})
}

// debounceWrite coalesces editor write bursts into one modify event.
func (w *Watcher) debounceWrite(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.writes[rel]; ok {
		t.Reset(w.debounce)
		return
	}
	w.writes[rel] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.writes, rel)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		note, targets, err := w.loadResolved(rel)
		if err != nil {
			// The file may have been removed between the write and the
			// debounce firing; the remove event handles that.
			return
		}
		w.handler(reconcile.Event{
			Op:      reconcile.OpModify,
			Path:    rel,
			Title:   note.Title,
			Hash:    note.Hash,
			Targets: targets,
		})
	})
}

// onRemove parks the path briefly before emitting a delete, giving a
// matching create a window to claim it as a rename.
func (w *Watcher) onRemove(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, pending := w.removed[rel]; pending {
		return
	}
	w.removed[rel] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.removed, rel)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		w.handler(reconcile.Event{Op: reconcile.OpDelete, Path: rel})
	})
}

// claimRemoved cancels a pending delete for path, reporting whether one
// existed.
func (w *Watcher) claimRemoved(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.removed[path]
	if !ok {
		return false
	}
	t.Stop()
	delete(w.removed, path)
	return true
}

// loadResolved reads one note and resolves its targets against the titles
// the index currently knows.
func (w *Watcher) loadResolved(rel string) (Note, []string, error) {
	recs, err := w.idx.All()
	if err != nil {
		return Note{}, nil, err
	}
	byTitle := make(map[string]string, len(recs))
	byPath := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		byPath[r.Path] = struct{}{}
		key := strings.ToLower(r.Title)
		if _, taken := byTitle[key]; !taken {
			byTitle[key] = r.Path
		}
	}
	return LoadNote(w.dir, rel, byTitle, byPath)
}
