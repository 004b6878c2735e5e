// internal_test.go -- tests of unexported helpers
//
// (c) 2025- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.
package bfind

import (
	"strings"
	"testing"
	"time"
)

func TestCmpNum(t *testing.T) {
	tests := []struct {
		cmp  Cmp
		n    int64
		ref  int64
		want bool
	}{
		{CmpExact, 5, 5, true},
		{CmpExact, 5, 6, false},
		{CmpLess, 4, 5, true},
		{CmpLess, 5, 5, false},
		{CmpMore, 6, 5, true},
		{CmpMore, 5, 5, false},
	}

	for i, tx := range tests {
		if got := cmpNum(tx.cmp, tx.n, tx.ref); got != tx.want {
			t.Fatalf("%d: cmpNum(%d, %d, %d): exp %v, saw %v",
				i, tx.cmp, tx.n, tx.ref, tx.want, got)
		}
	}
}

func TestLsTimeWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

	recent := now.Add(-24 * time.Hour)
	if s := lsTime(now, recent); strings.Contains(s, "2025") {
		t.Fatalf("recent mtime rendered with year: %q", s)
	}

	old := now.Add(-sixMonths - time.Hour)
	if s := lsTime(now, old); !strings.Contains(s, "20") {
		t.Fatalf("old mtime rendered without year: %q", s)
	}

	// the windows are exclusive on both ends
	future := now.Add(86400*time.Second + time.Hour)
	if s := lsTime(now, future); !strings.Contains(s, "2025") {
		t.Fatalf("far-future mtime rendered without year: %q", s)
	}
}

func TestModeString(t *testing.T) {
	fi := &Info{Mod: 0640}
	if s := modeString(fi); s != "-rw-r-----" {
		t.Fatalf("mode 0640: saw %q", s)
	}

	fi = &Info{Mod: 0755}
	if s := modeString(fi); s != "-rwxr-xr-x" {
		t.Fatalf("mode 0755: saw %q", s)
	}
}

func TestMatchGlobFold(t *testing.T) {
	ok, err := matchGlob("*.TXT", "readme.txt", true)
	if err != nil || !ok {
		t.Fatalf("folded glob: ok=%v err=%v", ok, err)
	}

	ok, err = matchGlob("*.TXT", "readme.txt", false)
	if err != nil || ok {
		t.Fatalf("unfolded glob matched: ok=%v err=%v", ok, err)
	}
}
