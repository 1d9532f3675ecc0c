// Package reconcile translates note events (create/modify/delete/rename)
// into graph and identity mutations, diffing link sets incrementally so a
// modified note only touches the links that actually changed.
package reconcile

import (
	"log"
	"sync"

	"github.com/stargraph/stargraph/internal/ident"
	"github.com/stargraph/stargraph/internal/index"
	"github.com/stargraph/stargraph/internal/sim"
)

// Op is the kind of note event.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpDelete
	OpRename
)

// Event is one pre-resolved note change: a path, its display title, and
// the vault-relative paths of its outgoing link targets.
type Event struct {
	Op      Op
	Path    string
	OldPath string // rename only
	Title   string
	Hash    string
	Targets []string
}

// Reconciler applies Events to the simulation and identity resolver and
// keeps the link index current. Safe for concurrent use.
type Reconciler struct {
	mu  sync.Mutex
	res *ident.Resolver
	sim *sim.Simulation
	idx *index.DB // optional; nil skips persistence

	// lastTargets / lastTitle mirror the most recent applied state per
	// path, so modify events diff against it without a store scan.
	lastTargets map[string][]string
	lastTitle   map[string]string

	// pending maps a not-yet-existing target path to the source paths
	// whose links should attach when it appears.
	pending map[string]map[string]struct{}
}

// New creates a Reconciler over the given simulation. idx may be nil to
// run without persistence (tests, one-shot layouts).
func New(s *sim.Simulation, res *ident.Resolver, idx *index.DB) *Reconciler {
	return &Reconciler{
		res:         res,
		sim:         s,
		idx:         idx,
		lastTargets: make(map[string][]string),
		lastTitle:   make(map[string]string),
		pending:     make(map[string]map[string]struct{}),
	}
}

// Bootstrap replays persisted index records as create events, rebuilding
// the graph from the last observed vault state.
func (r *Reconciler) Bootstrap(recs []index.Record) {
	for _, rec := range recs {
		r.Apply(Event{
			Op:      OpCreate,
			Path:    rec.Path,
			Title:   rec.Title,
			Hash:    rec.Hash,
			Targets: rec.Targets,
		})
	}
}

// Apply routes one event. Anomalies (unknown references, duplicates) are
// logged and absorbed — the graph is a best-effort visualization, never a
// source of truth.
func (r *Reconciler) Apply(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apply(e)
}

func (r *Reconciler) apply(e Event) {
	switch e.Op {
	case OpCreate:
		r.create(e)
	case OpModify:
		r.modify(e)
	case OpDelete:
		r.delete(e.Path)
	case OpRename:
		r.rename(e)
	default:
		log.Printf("reconcile: unknown op %d for %s", e.Op, e.Path)
	}
}

func (r *Reconciler) create(e Event) {
	id := r.res.Resolve(e.Title, e.Path)
	r.sim.AddNode(id, e.Path, e.Title)
	r.lastTitle[e.Path] = e.Title
	r.lastTargets[e.Path] = append([]string(nil), e.Targets...)

	for _, target := range e.Targets {
		r.linkOrDefer(id, e.Path, target)
	}

	// Attach links from notes that were waiting for this path to exist.
	if waiting, ok := r.pending[e.Path]; ok {
		for srcPath := range waiting {
			srcID, err := r.res.Lookup(srcPath)
			if err != nil {
				continue // source has since been deleted
			}
			r.sim.AddLink(srcID, id)
		}
		delete(r.pending, e.Path)
	}

	r.persist(e)
}

func (r *Reconciler) modify(e Event) {
	id, err := r.res.Lookup(e.Path)
	if err != nil {
		// Modify for a note we never saw: treat as create.
		r.create(e)
		return
	}

	old := r.lastTargets[e.Path]
	oldSet := make(map[string]struct{}, len(old))
	for _, t := range old {
		oldSet[t] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(e.Targets))
	for _, t := range e.Targets {
		newSet[t] = struct{}{}
	}

	for _, t := range e.Targets {
		if _, existed := oldSet[t]; !existed {
			r.linkOrDefer(id, e.Path, t)
		}
	}
	for _, t := range old {
		if _, kept := newSet[t]; kept {
			continue
		}
		if tid, err := r.res.Lookup(t); err == nil {
			r.sim.RemoveLink(id, tid)
		}
		if waiting, ok := r.pending[t]; ok {
			delete(waiting, e.Path)
		}
	}

	r.lastTargets[e.Path] = append([]string(nil), e.Targets...)
	r.persist(e)
}

func (r *Reconciler) delete(path string) {
	id, err := r.res.Lookup(path)
	if err != nil {
		log.Printf("reconcile: delete of unregistered path %s ignored", path)
		return
	}

	r.sim.RemoveNode(id)
	if err := r.res.Release(path); err != nil {
		log.Printf("reconcile: release %s: %v", path, err)
	}
	delete(r.lastTargets, path)
	delete(r.lastTitle, path)

	// Drop this note from every pending set it appears in.
	for _, waiting := range r.pending {
		delete(waiting, path)
	}

	// Notes that linked here lost their links to the cascade; park them as
	// pending so re-creating the note reattaches them.
	for srcPath, targets := range r.lastTargets {
		for _, t := range targets {
			if t == path {
				r.park(path, srcPath)
			}
		}
	}

	if r.idx != nil {
		if err := r.idx.Delete(path); err != nil {
			log.Printf("reconcile: index delete %s: %v", path, err)
		}
	}
}

func (r *Reconciler) rename(e Event) {
	oldID, err := r.res.Lookup(e.OldPath)
	if err != nil {
		log.Printf("reconcile: rename of unregistered path %s, treating as create", e.OldPath)
		r.create(e)
		return
	}

	newID := oldID
	if e.Title != r.lastTitle[e.OldPath] {
		// Title changed: the id must be re-disambiguated under the new name.
		if err := r.res.Release(e.OldPath); err != nil {
			log.Printf("reconcile: rename release %s: %v", e.OldPath, err)
		}
		newID = r.res.Resolve(e.Title, e.Path)
	} else if err := r.res.Rekey(e.OldPath, e.Path, oldID); err != nil {
		log.Printf("reconcile: rekey %s -> %s: %v", e.OldPath, e.Path, err)
		return
	}

	r.sim.RenameNode(oldID, newID, e.Path, e.Title)

	r.lastTitle[e.Path] = e.Title
	r.lastTargets[e.Path] = r.lastTargets[e.OldPath]
	if e.Path != e.OldPath {
		delete(r.lastTitle, e.OldPath)
		delete(r.lastTargets, e.OldPath)

		// Re-point pending bookkeeping that referenced the old path.
		if waiting, ok := r.pending[e.OldPath]; ok {
			delete(r.pending, e.OldPath)
			for src := range waiting {
				r.park(e.Path, src)
			}
		}
		for _, waiting := range r.pending {
			if _, ok := waiting[e.OldPath]; ok {
				delete(waiting, e.OldPath)
				waiting[e.Path] = struct{}{}
			}
		}
	}

	if r.idx != nil && e.Path != e.OldPath {
		if err := r.idx.Rename(e.OldPath, e.Path); err != nil {
			log.Printf("reconcile: index rename %s -> %s: %v", e.OldPath, e.Path, err)
		}
	}

	// A rename can carry a fresh target set (hosts rewrite links in the
	// renamed note's neighbors); fold it in as a modify.
	if e.Targets != nil {
		r.modify(Event{Op: OpModify, Path: e.Path, Title: e.Title, Hash: e.Hash, Targets: e.Targets})
	}
}

// linkOrDefer adds the link when the target is registered, otherwise parks
// the source in the pending set for that target.
func (r *Reconciler) linkOrDefer(srcID, srcPath, targetPath string) {
	tid, err := r.res.Lookup(targetPath)
	if err != nil {
		r.park(targetPath, srcPath)
		return
	}
	r.sim.AddLink(srcID, tid)
}

func (r *Reconciler) park(targetPath, srcPath string) {
	if r.pending[targetPath] == nil {
		r.pending[targetPath] = make(map[string]struct{})
	}
	r.pending[targetPath][srcPath] = struct{}{}
}

func (r *Reconciler) persist(e Event) {
	if r.idx == nil {
		return
	}
	err := r.idx.Put(index.Record{
		Path:    e.Path,
		Title:   e.Title,
		Hash:    e.Hash,
		Targets: e.Targets,
	})
	if err != nil {
		log.Printf("reconcile: index put %s: %v", e.Path, err)
	}
}

// PendingCount reports how many target paths have links waiting on them.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, waiting := range r.pending {
		if len(waiting) > 0 {
			n++
		}
	}
	return n
}
