package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadLinesSkipsBlanksAndComments(t *testing.T) {
	in := strings.NewReader("*.log\n\n# build output\nnode_modules\n  *.tmp  \n")
	got := ReadLinesFromReader(in)
	want := []string{"*.log", "node_modules", "*.tmp"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandFlagValuesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excludes.txt")
	if err := os.WriteFile(path, []byte("*.log\ndocs/*.md\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, stdinUsed := ExpandFlagValues([]string{"*.bak", "@" + path}, false)
	if stdinUsed {
		t.Error("stdin should not be marked used")
	}
	want := []string{"*.bak", "*.log", "docs/*.md"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandFlagValuesMissingFile(t *testing.T) {
	got, _ := ExpandFlagValues([]string{"@/does/not/exist", "*.log"}, false)
	if len(got) != 1 || got[0] != "*.log" {
		t.Fatalf("missing file should be skipped, got %v", got)
	}
}
