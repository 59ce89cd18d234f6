package common

import "errors"

var (
	// ErrSystemPaused is returned when a mutating entry point runs while the
	// global pause flag is set.
	ErrSystemPaused = errors.New("system paused")
	// ErrSystemNotPaused is returned when an emergency-only entry point runs
	// while the platform is operating normally.
	ErrSystemNotPaused = errors.New("system not paused")
)

// PauseView exposes the global pause flag to module engines.
type PauseView interface {
	Paused() bool
}

// AdminView exposes admin membership checks to module engines.
type AdminView interface {
	IsAdmin(addr [20]byte) bool
}

// Guard rejects normal mutations while the platform is paused. A nil view is
// treated as unpaused so engines stay usable in isolation.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	if p.Paused() {
		return ErrSystemPaused
	}
	return nil
}

// RequirePaused gates emergency recovery paths that are only legal while the
// pause flag is set.
func RequirePaused(p PauseView) error {
	if p == nil || !p.Paused() {
		return ErrSystemNotPaused
	}
	return nil
}
