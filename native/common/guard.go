package common

import (
	"errors"
	"fmt"
	"strings"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// PauseSet is a PauseView backed by the set of paused keys.
type PauseSet map[string]bool

func (s PauseSet) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	return s[strings.TrimSpace(module)]
}

// Guard returns ErrModulePaused for the first paused key among modules.
func Guard(p PauseView, modules ...string) error {
	if p == nil {
		return nil
	}
	for _, module := range modules {
		if module == "" {
			continue
		}
		if p.IsPaused(module) {
			return fmt.Errorf("%w: %s", ErrModulePaused, module)
		}
	}
	return nil
}
