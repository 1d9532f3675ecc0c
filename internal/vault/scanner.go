package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stargraph/stargraph/internal/reconcile"
)

// Note is one scanned markdown file, pre-resolution.
type Note struct {
	Path       string // vault-relative, slash-separated
	Title      string
	Hash       string
	RawTargets []string
}

// Scan walks dir for markdown notes and returns them sorted by path.
func Scan(dir string) ([]Note, error) {
	var notes []Note
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}

		body, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)

		notes = append(notes, Note{
			Path:       rel,
			Title:      TitleOf(rel),
			Hash:       HashOf(body),
			RawTargets: ExtractTargets(string(body)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vault %s: %w", dir, err)
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, nil
}

// Events resolves every note's raw targets against the scanned set and
// returns create events ready for the reconciler.
func Events(notes []Note) []reconcile.Event {
	byTitle := make(map[string]string, len(notes))
	byPath := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		byPath[n.Path] = struct{}{}
		// First title wins on collision; the identity resolver handles
		// display-name duplicates, this map only routes link targets.
		key := strings.ToLower(n.Title)
		if _, taken := byTitle[key]; !taken {
			byTitle[key] = n.Path
		}
	}

	events := make([]reconcile.Event, 0, len(notes))
	for _, n := range notes {
		targets := make([]string, 0, len(n.RawTargets))
		for _, raw := range n.RawTargets {
			targets = append(targets, resolveTarget(raw, byTitle, byPath))
		}
		events = append(events, reconcile.Event{
			Op:      reconcile.OpCreate,
			Path:    n.Path,
			Title:   n.Title,
			Hash:    n.Hash,
			Targets: targets,
		})
	}
	return events
}

// LoadNote reads and parses a single note for the watcher, resolving
// targets against the titles the index currently knows.
func LoadNote(dir, rel string, byTitle map[string]string, byPath map[string]struct{}) (Note, []string, error) {
	body, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return Note{}, nil, fmt.Errorf("read %s: %w", rel, err)
	}
	n := Note{
		Path:       rel,
		Title:      TitleOf(rel),
		Hash:       HashOf(body),
		RawTargets: ExtractTargets(string(body)),
	}
	targets := make([]string, 0, len(n.RawTargets))
	for _, raw := range n.RawTargets {
		targets = append(targets, resolveTarget(raw, byTitle, byPath))
	}
	return n, targets, nil
}
