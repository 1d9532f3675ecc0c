// Package vault turns a directory of markdown notes into the note-event
// stream the reconciler consumes: a one-shot scan for startup and an
// fsnotify watcher for live changes.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"strings"
)

// wikiLink matches [[Target]], [[Target|alias]], and [[Target#Section]]
// forms. The target is group 1; alias and section are presentation-only.
var wikiLink = regexp.MustCompile(`\[\[([^\[\]|#]+)(?:#[^\[\]|]*)?(?:\|[^\[\]]*)?\]\]`)

// ExtractTargets returns the raw link targets in a note body, de-duplicated
// in first-seen order. Self-links are kept; the reconciler's unordered-pair
// invariant makes them harmless.
func ExtractTargets(body string) []string {
	matches := wikiLink.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		t := strings.TrimSpace(m[1])
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TitleOf returns the display title for a vault-relative note path: the
// base name without the markdown extension.
func TitleOf(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// HashOf returns the content hash used for rename detection.
func HashOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// resolveTarget maps a raw wiki-link target to a vault-relative path.
// Targets naming a known note (by title, case-insensitive, or by explicit
// relative path) resolve to that note's path; unknown targets normalize to
// a root-level "<target>.md" so pending links can attach if the note is
// created later.
func resolveTarget(raw string, byTitle map[string]string, byPath map[string]struct{}) string {
	if strings.ContainsAny(raw, "/") {
		candidate := raw
		if !strings.HasSuffix(strings.ToLower(candidate), ".md") {
			candidate += ".md"
		}
		candidate = path.Clean(candidate)
		if _, ok := byPath[candidate]; ok {
			return candidate
		}
		return candidate
	}
	if p, ok := byTitle[strings.ToLower(raw)]; ok {
		return p
	}
	return raw + ".md"
}
