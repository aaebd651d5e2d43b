package imagegen

import (
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

func TestNameFor(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"simple words", "a red fox", "a-red-fox"},
		{"whitespace runs collapse", "a \t\n  b", "a-b"},
		{"punctuation dropped", "hello, world!", "hello-world"},
		{"leading space", "  fox", "-fox"},
		{"hyphen kept", "well-known fox", "well-known-fox"},
		{"path characters dropped", "../../etc/passwd", "etcpasswd"},
		{"unicode letters kept", "日本語 テスト", "日本語-テスト"},
		{"empty", "", ""},
		{"only punctuation", "?!.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NameFor(tt.prompt); got != tt.want {
				t.Errorf("NameFor(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestNameFor_TruncatesBeforeSanitizing(t *testing.T) {
	prompt := strings.Repeat("a", 59) + "!bcd"
	want := strings.Repeat("a", 59)
	if got := NameFor(prompt); got != want {
		t.Errorf("NameFor() = %q, want %q", got, want)
	}
}

func TestNameFor_Properties(t *testing.T) {
	prompts := []string{
		strings.Repeat("x", 500),
		strings.Repeat("é", 61),
		strings.Repeat("word ", 40),
		"A cat/dog:hybrid <in> \"space\" | 100% real?",
		"emoji 🦊 fox",
	}

	for _, prompt := range prompts {
		got := NameFor(prompt)
		if n := utf8.RuneCountInString(got); n > MaxNameRunes {
			t.Errorf("NameFor(%q) has %d runes, want <= %d", prompt, n, MaxNameRunes)
		}
		for _, r := range got {
			if r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				t.Errorf("NameFor(%q) = %q contains %q", prompt, got, r)
			}
		}
		if again := NameFor(prompt); again != got {
			t.Errorf("NameFor is not deterministic: %q vs %q", got, again)
		}
	}
}

func TestUniquePath_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^\./a-red-fox-[A-Za-z0-9]{5}\.png$`)

	path, err := UniquePath("", "a-red-fox")
	if err != nil {
		t.Fatalf("UniquePath() error = %v", err)
	}
	if !pattern.MatchString(filepath.ToSlash(path)) {
		t.Errorf("UniquePath() = %q, does not match %s", path, pattern)
	}

	path, err = UniquePath(".", "")
	if err != nil {
		t.Fatalf("UniquePath() error = %v", err)
	}
	if !regexp.MustCompile(`^\./-[A-Za-z0-9]{5}\.png$`).MatchString(filepath.ToSlash(path)) {
		t.Errorf("UniquePath() with empty name = %q", path)
	}
}

func TestUniquePath_Dir(t *testing.T) {
	dir := t.TempDir()
	path, err := UniquePath(dir, "fox")
	if err != nil {
		t.Fatalf("UniquePath() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("UniquePath() dir = %q, want %q", filepath.Dir(path), dir)
	}
	if base := filepath.Base(path); len(base) != len("fox-")+SuffixLength+len(".png") {
		t.Errorf("UniquePath() base = %q has unexpected length", base)
	}
}

func TestUniquePath_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		path, err := UniquePath(".", "cat")
		if err != nil {
			t.Fatalf("UniquePath() error = %v", err)
		}
		if seen[path] {
			t.Fatalf("UniquePath returned %q twice", path)
		}
		seen[path] = true
	}
}
