package events

import (
	"strconv"

	"filmvault/core/types"
)

const (
	// TypePlatformInitialized marks the one-shot module registry initialization.
	TypePlatformInitialized = "platform.initialized"
	// TypeAdminUpdated marks an admin flag grant or revocation.
	TypeAdminUpdated = "platform.adminUpdated"
	// TypePauseChanged marks a flip of the global pause flag.
	TypePauseChanged = "platform.pauseChanged"
)

// PlatformInitialized records the module addresses stored at initialization.
type PlatformInitialized struct {
	Verification    [20]byte
	Crowdfunding    [20]byte
	Rewards         [20]byte
	Escrow          [20]byte
	CoEp            [20]byte
	VerificationExt [20]byte
}

// EventType satisfies the events.Event interface.
func (PlatformInitialized) EventType() string { return TypePlatformInitialized }

// Event converts the structured payload into a broadcastable event.
func (e PlatformInitialized) Event() *types.Event {
	attrs := map[string]string{
		"verification": hexAddr(e.Verification),
		"crowdfunding": hexAddr(e.Crowdfunding),
		"rewards":      hexAddr(e.Rewards),
		"escrow":       hexAddr(e.Escrow),
	}
	if !zeroAddr(e.CoEp) {
		attrs["coEp"] = hexAddr(e.CoEp)
	}
	if !zeroAddr(e.VerificationExt) {
		attrs["verificationExt"] = hexAddr(e.VerificationExt)
	}
	return &types.Event{Type: TypePlatformInitialized, Attributes: attrs}
}

// AdminUpdated records an admin set mutation.
type AdminUpdated struct {
	Caller  [20]byte
	Target  [20]byte
	Granted bool
}

func (AdminUpdated) EventType() string { return TypeAdminUpdated }

func (e AdminUpdated) Event() *types.Event {
	return &types.Event{Type: TypeAdminUpdated, Attributes: map[string]string{
		"caller":  hexAddr(e.Caller),
		"target":  hexAddr(e.Target),
		"granted": strconv.FormatBool(e.Granted),
	}}
}

// PauseChanged records the global pause flag changing value.
type PauseChanged struct {
	Caller [20]byte
	Paused bool
}

func (PauseChanged) EventType() string { return TypePauseChanged }

func (e PauseChanged) Event() *types.Event {
	return &types.Event{Type: TypePauseChanged, Attributes: map[string]string{
		"caller": hexAddr(e.Caller),
		"paused": strconv.FormatBool(e.Paused),
	}}
}
