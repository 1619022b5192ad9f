package conflict

import (
	"testing"
	"time"

	"github.com/lukisch/ProSync/internal/models"
)

func entryAt(t time.Time) models.FileEntry {
	return models.FileEntry{RelPath: "f.txt", Size: 10, ModTime: t}
}

func TestResolveFixedPolicies(t *testing.T) {
	now := time.Now()
	src := entryAt(now)
	dst := entryAt(now.Add(time.Hour)) // target much newer

	if w := Resolve(src, dst, models.PolicySource); w != models.WinnerSource {
		t.Errorf("source policy: got %s", w)
	}
	if w := Resolve(src, dst, models.PolicyTarget); w != models.WinnerTarget {
		t.Errorf("target policy: got %s", w)
	}
}

func TestResolveNewestWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		src, dst time.Time
		want     models.Winner
	}{
		{"source newer", base.Add(time.Minute), base, models.WinnerSource},
		{"target newer", base, base.Add(time.Minute), models.WinnerTarget},
		{"exact tie goes to source", base, base, models.WinnerSource},
		{"inside tolerance is a tie", base, base.Add(900 * time.Millisecond), models.WinnerSource},
		{"just past tolerance", base, base.Add(1500 * time.Millisecond), models.WinnerTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(entryAt(tc.src), entryAt(tc.dst), models.PolicyNewest)
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNewer(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if Newer(entryAt(base.Add(time.Second)), entryAt(base)) {
		t.Error("exactly one second apart should compare equal")
	}
	if !Newer(entryAt(base.Add(2*time.Second)), entryAt(base)) {
		t.Error("two seconds apart should compare newer")
	}
	if Newer(entryAt(base), entryAt(base.Add(2*time.Second))) {
		t.Error("older entry reported newer")
	}
}
