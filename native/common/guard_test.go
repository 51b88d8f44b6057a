package common

import (
	"errors"
	"testing"
)

func TestGuardNilView(t *testing.T) {
	if err := Guard(nil, "credit"); err != nil {
		t.Fatalf("nil view should not block: %v", err)
	}
}

func TestPauseSetToggle(t *testing.T) {
	set := NewPauseSet()
	if err := Guard(set, "credit"); err != nil {
		t.Fatalf("unexpected pause: %v", err)
	}
	set.Set(" Credit ", true)
	if err := Guard(set, "credit"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if got := set.Paused(); len(got) != 1 || got[0] != "credit" {
		t.Fatalf("unexpected paused list: %v", got)
	}
	set.Set("credit", false)
	if err := Guard(set, "credit"); err != nil {
		t.Fatalf("expected unpaused, got %v", err)
	}
}

func TestNewPauseSetSeeds(t *testing.T) {
	set := NewPauseSet("credit", "custody")
	if !set.IsPaused("custody") || !set.IsPaused("credit") {
		t.Fatalf("seeded modules should be paused")
	}
	if set.IsPaused("registry") {
		t.Fatalf("registry should not be paused")
	}
}
