package platform

import (
	"errors"

	"filmvault/core/events"
)

var (
	errNilState = errors.New("platform engine: state not configured")

	// ErrAlreadyInitialized is returned when InitializePlatform runs against an
	// initialized registry. The stored registry is left untouched.
	ErrAlreadyInitialized = errors.New("platform: already initialized")
	// ErrNotAuthorized is returned when a caller lacks the admin flag required
	// for the requested mutation.
	ErrNotAuthorized = errors.New("platform: not authorized")
)

type engineState interface {
	PlatformRegistryGet() (*Registry, error)
	PlatformRegistryPut(*Registry) error
	PlatformAdminGet(addr [20]byte) (bool, error)
	PlatformAdminSet(addr [20]byte, grant bool) error
	PlatformAdminCount() (uint64, error)
	PlatformPausedGet() (bool, error)
	PlatformPausedPut(bool) error
}

// Engine owns the module registry, the admin set, and the global pause flag.
// It is the leaf dependency of every other module: escrow, crowdfunding,
// rewards and verification consult it for admin membership and pause state.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a platform engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// InitializePlatform stores the six linked module addresses and flips the
// one-shot initialization flag. A second call fails with ErrAlreadyInitialized
// and leaves the registry byte-for-byte unchanged.
func (e *Engine) InitializePlatform(reg Registry) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stored, err := e.state.PlatformRegistryGet()
	if err != nil {
		return nil, err
	}
	if stored != nil && stored.Initialized {
		return nil, ErrAlreadyInitialized
	}
	reg.Initialized = true
	if err := e.state.PlatformRegistryPut(&reg); err != nil {
		return nil, err
	}
	e.emit(events.PlatformInitialized{
		Verification:    reg.Verification,
		Crowdfunding:    reg.Crowdfunding,
		Rewards:         reg.Rewards,
		Escrow:          reg.Escrow,
		CoEp:            reg.CoEp,
		VerificationExt: reg.VerificationExt,
	})
	return reg.Clone(), nil
}

// Registry returns the stored registry. An uninitialized platform yields a
// zero-valued registry, not an error.
func (e *Engine) Registry() (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stored, err := e.state.PlatformRegistryGet()
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// SetAdmin flips the target's admin flag. The caller must already hold the
// admin flag; the deploying principal is not auto-granted and genesis admins
// are seeded out-of-band.
func (e *Engine) SetAdmin(caller, target [20]byte, grant bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	callerAdmin, err := e.state.PlatformAdminGet(caller)
	if err != nil {
		return err
	}
	if !callerAdmin {
		return ErrNotAuthorized
	}
	if err := e.state.PlatformAdminSet(target, grant); err != nil {
		return err
	}
	e.emit(events.AdminUpdated{Caller: caller, Target: target, Granted: grant})
	return nil
}

// IsAdmin reports whether the principal currently holds the admin flag. It
// also satisfies common.AdminView for the other module engines; state errors
// degrade to a deny.
func (e *Engine) IsAdmin(addr [20]byte) bool {
	if e == nil || e.state == nil {
		return false
	}
	ok, err := e.state.PlatformAdminGet(addr)
	if err != nil {
		return false
	}
	return ok
}

// SetPaused flips the global pause flag. Only admins may operate the core
// module's pause control.
func (e *Engine) SetPaused(caller [20]byte, paused bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	callerAdmin, err := e.state.PlatformAdminGet(caller)
	if err != nil {
		return err
	}
	if !callerAdmin {
		return ErrNotAuthorized
	}
	if err := e.state.PlatformPausedPut(paused); err != nil {
		return err
	}
	e.emit(events.PauseChanged{Caller: caller, Paused: paused})
	return nil
}

// Paused reports the global pause flag. It satisfies common.PauseView; state
// errors degrade to unpaused so reads never block the system.
func (e *Engine) Paused() bool {
	if e == nil || e.state == nil {
		return false
	}
	paused, err := e.state.PlatformPausedGet()
	if err != nil {
		return false
	}
	return paused
}

// Stats returns the platform singletons as one read-only snapshot.
func (e *Engine) Stats() (*Stats, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, err := e.state.PlatformRegistryGet()
	if err != nil {
		return nil, err
	}
	count, err := e.state.PlatformAdminCount()
	if err != nil {
		return nil, err
	}
	paused, err := e.state.PlatformPausedGet()
	if err != nil {
		return nil, err
	}
	initialized := reg != nil && reg.Initialized
	return &Stats{Initialized: initialized, AdminCount: count, Paused: paused}, nil
}
