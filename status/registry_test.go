package status

import (
	"testing"
)

func TestRegistryCachedPointers(t *testing.T) {
	r := NewRegistry()
	a := r.Ints.Get(OpsExecuted)
	a.Add(3)
	if b := r.Ints.Get(OpsExecuted); b != a || b.Load() != 3 {
		t.Errorf("Expected cached pointer with value 3, got %d", b.Load())
	}

	r.Floats.Get(ClockProgress).Set(0.25)
	r.Bools.Get(SiegeActive).Store(true)
	r.Strings.Get(SiegeRun).Store("0123456789abcdef0123456789abcdef0123456789")

	if r.TotalCount() != 4 {
		t.Errorf("Expected 4 metrics, got %d", r.TotalCount())
	}

	lines := r.Lines()
	want := []string{
		"scheduler.ops=3",
		"clock.progress=0.25",
		"siege.active=true",
		"siege.run=0123456789abcdef0123456789abcdef0123",
	}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestAtomicStringKeepsRunes(t *testing.T) {
	var s AtomicString
	if s.Load() != "" {
		t.Errorf("Expected empty zero value, got %q", s.Load())
	}

	// 35 ASCII bytes then a 3-byte rune crossing the limit
	s.Store("abcdefghijklmnopqrstuvwxyz012345678⚔")
	if got := s.Load(); got != "abcdefghijklmnopqrstuvwxyz012345678" {
		t.Errorf("Expected rune-safe truncation, got %q", got)
	}
}
