package common

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is an in-memory pause switchboard toggled by operators.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewPauseSet(modules ...string) *PauseSet {
	set := &PauseSet{paused: make(map[string]bool)}
	for _, module := range modules {
		set.Set(module, true)
	}
	return set
}

// IsPaused implements PauseView.
func (s *PauseSet) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[normalizeModule(module)]
}

func (s *PauseSet) Set(module string, paused bool) {
	if s == nil {
		return
	}
	key := normalizeModule(module)
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused == nil {
		s.paused = make(map[string]bool)
	}
	if paused {
		s.paused[key] = true
		return
	}
	delete(s.paused, key)
}

// Paused lists the currently paused modules in lexical order.
func (s *PauseSet) Paused() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.paused))
	for module := range s.paused {
		out = append(out, module)
	}
	sort.Strings(out)
	return out
}

func normalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}
