package vault

import (
	"reflect"
	"testing"
)

func TestExtractTargets(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"none", "plain text, no links", nil},
		{"simple", "see [[Other Note]] for details", []string{"Other Note"}},
		{"alias", "see [[Other Note|the other one]]", []string{"Other Note"}},
		{"section", "see [[Other Note#History]]", []string{"Other Note"}},
		{"alias and section", "[[Other Note#History|past]]", []string{"Other Note"}},
		{"path target", "[[projects/Roadmap]]", []string{"projects/Roadmap"}},
		{"multiple", "[[A]] then [[B]] then [[A]] again", []string{"A", "B"}},
		{"whitespace trimmed", "[[  Padded  ]]", []string{"Padded"}},
		{"empty brackets", "[[]] and [[ ]]", nil},
		{"unclosed", "[[Dangling", nil},
		{
			"multiline",
			"first [[One]]\nsecond [[Two|alias]]\nthird [[One#top]]",
			[]string{"One", "Two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTargets(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTargets(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestTitleOf(t *testing.T) {
	tests := []struct {
		rel, want string
	}{
		{"Note.md", "Note"},
		{"deep/nested/Daily Log.md", "Daily Log"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := TitleOf(tt.rel); got != tt.want {
			t.Errorf("TitleOf(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestHashOfIsStable(t *testing.T) {
	a := HashOf([]byte("content"))
	b := HashOf([]byte("content"))
	c := HashOf([]byte("different"))

	if a != b {
		t.Error("same content hashed differently")
	}
	if a == c {
		t.Error("different content hashed identically")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestResolveTarget(t *testing.T) {
	byTitle := map[string]string{
		"roadmap": "projects/Roadmap.md",
	}
	byPath := map[string]struct{}{
		"projects/Roadmap.md": {},
	}

	tests := []struct {
		raw, want string
	}{
		{"Roadmap", "projects/Roadmap.md"},
		{"ROADMAP", "projects/Roadmap.md"}, // titles match case-insensitively
		{"projects/Roadmap", "projects/Roadmap.md"},
		{"projects/Roadmap.md", "projects/Roadmap.md"},
		{"projects/../projects/Roadmap", "projects/Roadmap.md"},
		{"Unknown", "Unknown.md"}, // future note, attaches if created
		{"dir/Unknown", "dir/Unknown.md"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.raw, byTitle, byPath); got != tt.want {
			t.Errorf("resolveTarget(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
