// Package ident assigns stable unique identifiers to notes.
//
// Display names in a vault are not unique — two folders can each hold a
// "Projects.md". The resolver hands out the bare display name to the first
// occurrence of a basename and disambiguates later occurrences with the
// parent folder name, then a numeric suffix, so every live note has exactly
// one id and one path at all times.
package ident

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotRegistered is returned when a path has never been resolved
// (or has been released).
var ErrNotRegistered = errors.New("ident: path not registered")

// maxNumericSuffix bounds the numeric tie-breaker loop. Past this the
// resolver fails closed with a monotonic counter that cannot collide.
const maxNumericSuffix = 1000

type entry struct {
	id   string
	name string
}

// Resolver owns the bijection between note paths and unique ids, plus the
// per-basename multiplicity counters used for disambiguation.
type Resolver struct {
	byPath    map[string]entry
	byID      map[string]string
	nameCount map[string]int
	overflow  int
}

// New returns an empty Resolver.
func New() *Resolver {
	return &Resolver{
		byPath:    make(map[string]entry),
		byID:      make(map[string]string),
		nameCount: make(map[string]int),
	}
}

// Resolve returns the unique id for path, registering it on first sight.
// Repeated calls with the same path return the same id regardless of
// displayName. The first occurrence of a display name keeps the bare name;
// later occurrences get a parent-folder suffix and, if that is still taken,
// a numeric suffix.
func (r *Resolver) Resolve(displayName, path string) string {
	if e, ok := r.byPath[path]; ok {
		return e.id
	}

	id := r.disambiguate(displayName, path)
	r.byPath[path] = entry{id: id, name: displayName}
	r.byID[id] = path
	r.nameCount[displayName]++
	return id
}

func (r *Resolver) disambiguate(displayName, path string) string {
	if r.nameCount[displayName] == 0 {
		if _, taken := r.byID[displayName]; !taken {
			return displayName
		}
	}

	// Second and later occurrences: qualify with the parent folder.
	folder := filepath.Base(filepath.Dir(path))
	candidate := displayName
	if folder != "." && folder != "/" && folder != "" {
		candidate = fmt.Sprintf("%s (%s)", displayName, folder)
		if _, taken := r.byID[candidate]; !taken {
			return candidate
		}
	}

	for i := 2; i <= maxNumericSuffix; i++ {
		numbered := fmt.Sprintf("%s %d", candidate, i)
		if _, taken := r.byID[numbered]; !taken {
			return numbered
		}
	}

	// Unreachable under realistic inputs. Fail closed: the overflow counter
	// only ever increases, so this terminates with a unique id.
	for {
		r.overflow++
		forced := fmt.Sprintf("%s #%d", candidate, r.overflow)
		if _, taken := r.byID[forced]; !taken {
			return forced
		}
	}
}

// Lookup returns the id registered for path, or ErrNotRegistered.
func (r *Resolver) Lookup(path string) (string, error) {
	e, ok := r.byPath[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	return e.id, nil
}

// PathOf returns the path registered for id, or ErrNotRegistered.
func (r *Resolver) PathOf(id string) (string, error) {
	p, ok := r.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: id %s", ErrNotRegistered, id)
	}
	return p, nil
}

// Release removes the path↔id mapping and decrements the basename counter,
// deleting the counter entry at zero so the bare name becomes available
// again. Releasing an unknown path returns ErrNotRegistered.
func (r *Resolver) Release(path string) error {
	e, ok := r.byPath[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	delete(r.byPath, path)
	delete(r.byID, e.id)
	if r.nameCount[e.name] <= 1 {
		delete(r.nameCount, e.name)
	} else {
		r.nameCount[e.name]--
	}
	return nil
}

// Rekey atomically moves the registration at oldPath to newPath under newID.
// The display name (and its multiplicity counter) carries over unchanged;
// a title change is expressed as Release followed by Resolve instead.
// Fails without side effects if oldPath is unknown, newPath is already
// registered, or newID belongs to another path.
func (r *Resolver) Rekey(oldPath, newPath, newID string) error {
	e, ok := r.byPath[oldPath]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, oldPath)
	}
	if oldPath != newPath {
		if _, taken := r.byPath[newPath]; taken {
			return fmt.Errorf("ident: rekey target %s already registered", newPath)
		}
	}
	if p, taken := r.byID[newID]; taken && p != oldPath {
		return fmt.Errorf("ident: id %q already belongs to %s", newID, p)
	}

	delete(r.byPath, oldPath)
	delete(r.byID, e.id)
	r.byPath[newPath] = entry{id: newID, name: e.name}
	r.byID[newID] = newPath
	return nil
}

// Len returns the number of live registrations.
func (r *Resolver) Len() int {
	return len(r.byPath)
}
