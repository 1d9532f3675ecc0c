package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stargraph/stargraph/internal/index"
	"github.com/stargraph/stargraph/internal/reconcile"
)

const watchDebounce = 50 * time.Millisecond

// startWatcher wires a Watcher over dir into a buffered event channel.
func startWatcher(t *testing.T, dir string, idx *index.DB) chan reconcile.Event {
	t.Helper()

	events := make(chan reconcile.Event, 64)
	w, err := NewWatcher(dir, idx, watchDebounce, func(e reconcile.Event) {
		events <- e
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	t.Cleanup(w.Stop)
	return events
}

func memIndex(t *testing.T) *index.DB {
	t.Helper()

	idx, err := index.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// waitFor drains events until one matches op and path, failing on timeout.
// Extra events (a create's trailing write, for example) are skipped.
func waitFor(t *testing.T, events chan reconcile.Event, op reconcile.Op, path string) reconcile.Event {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Op == op && e.Path == path {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for op %d on %s", op, path)
		}
	}
}

func TestWatcherEmitsCreate(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir, memIndex(t))

	body := "hello [[Other]]"
	if err := os.WriteFile(filepath.Join(dir, "New.md"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	e := waitFor(t, events, reconcile.OpCreate, "New.md")
	if e.Title != "New" {
		t.Errorf("title = %q, want New", e.Title)
	}
	if e.Hash != HashOf([]byte(body)) {
		t.Errorf("hash = %q", e.Hash)
	}
	if len(e.Targets) != 1 || e.Targets[0] != "Other.md" {
		t.Errorf("targets = %v", e.Targets)
	}
}

func TestWatcherIgnoresNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir, memIndex(t))

	os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644)
	os.WriteFile(filepath.Join(dir, "Real.md"), []byte("note"), 0o644)

	e := waitFor(t, events, reconcile.OpCreate, "Real.md")
	if e.Path != "Real.md" {
		t.Errorf("event = %+v", e)
	}
	select {
	case extra := <-events:
		if extra.Path == "image.png" {
			t.Errorf("non-markdown file produced an event: %+v", extra)
		}
	default:
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "Note.md")
	if err := os.WriteFile(full, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := startWatcher(t, dir, memIndex(t))

	// A burst of writes within the debounce window collapses into one
	// modify carrying the final content.
	for _, body := range []string{"v2", "v3", "v4 [[Final]]"} {
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	e := waitFor(t, events, reconcile.OpModify, "Note.md")
	if e.Hash != HashOf([]byte("v4 [[Final]]")) {
		t.Errorf("modify did not carry final content: %+v", e)
	}
	if len(e.Targets) != 1 || e.Targets[0] != "Final.md" {
		t.Errorf("targets = %v", e.Targets)
	}
}

func TestWatcherEmitsDelete(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "Doomed.md")
	if err := os.WriteFile(full, []byte("bye"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := startWatcher(t, dir, memIndex(t))
	if err := os.Remove(full); err != nil {
		t.Fatal(err)
	}

	waitFor(t, events, reconcile.OpDelete, "Doomed.md")
}

func TestWatcherCollapsesMoveIntoRename(t *testing.T) {
	dir := t.TempDir()
	body := []byte("stable content")
	oldFull := filepath.Join(dir, "Old.md")
	if err := os.WriteFile(oldFull, body, 0o644); err != nil {
		t.Fatal(err)
	}

	// The index must know the old note's hash, as it would after a scan.
	idx := memIndex(t)
	if err := idx.Put(index.Record{Path: "Old.md", Title: "Old", Hash: HashOf(body)}); err != nil {
		t.Fatal(err)
	}

	events := startWatcher(t, dir, idx)
	if err := os.Rename(oldFull, filepath.Join(dir, "New.md")); err != nil {
		t.Fatal(err)
	}

	e := waitFor(t, events, reconcile.OpRename, "New.md")
	if e.OldPath != "Old.md" {
		t.Errorf("OldPath = %q, want Old.md", e.OldPath)
	}

	// The parked delete was claimed; no stray delete follows.
	select {
	case extra := <-events:
		if extra.Op == reconcile.OpDelete {
			t.Errorf("rename leaked a delete: %+v", extra)
		}
	case <-time.After(4 * watchDebounce):
	}
}

func TestWatcherCollapsesAtomicSaveIntoModify(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "Note.md")
	if err := os.WriteFile(full, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := startWatcher(t, dir, memIndex(t))

	// Editor atomic save: write the new content to a temp file, drop the
	// original, and rename the temp into place. The content changed, so
	// hash matching cannot pair the remove with the create.
	tmp := filepath.Join(dir, "Note.md.tmp")
	body := []byte("v2 [[Other]]")
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(full); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, full); err != nil {
		t.Fatal(err)
	}

	e := waitFor(t, events, reconcile.OpModify, "Note.md")
	if e.Hash != HashOf(body) {
		t.Errorf("modify did not carry the saved content: %+v", e)
	}

	// The parked delete was claimed; the live note must not be removed.
	select {
	case extra := <-events:
		if extra.Op == reconcile.OpDelete {
			t.Errorf("atomic save leaked a delete: %+v", extra)
		}
	case <-time.After(4 * watchDebounce):
	}
}

func TestStopDropsPendingDebounceTimers(t *testing.T) {
	dir := t.TempDir()
	edited := filepath.Join(dir, "Edited.md")
	doomed := filepath.Join(dir, "Doomed.md")
	for _, p := range []string{edited, doomed} {
		if err := os.WriteFile(p, []byte("v1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	events := make(chan reconcile.Event, 64)
	w, err := NewWatcher(dir, memIndex(t), watchDebounce, func(e reconcile.Event) {
		events <- e
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()

	if err := os.WriteFile(edited, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(doomed); err != nil {
		t.Fatal(err)
	}

	// Wait for the loop to park both debounce timers, then shut down
	// before either fires.
	deadline := time.After(time.Second)
	for {
		w.mu.Lock()
		parked := len(w.writes) == 1 && len(w.removed) == 1
		w.mu.Unlock()
		if parked {
			break
		}
		select {
		case <-deadline:
			t.Fatal("debounce timers never parked")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	w.Stop()

	time.Sleep(4 * watchDebounce)
	select {
	case e := <-events:
		t.Errorf("event emitted after Stop: %+v", e)
	default:
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir, memIndex(t))

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a beat to register the new directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "Deep.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, reconcile.OpCreate, "sub/Deep.md")
}
