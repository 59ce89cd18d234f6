package events

import (
	"math/big"

	"filmvault/core/types"
)

const (
	// TypeVerificationRegistered marks an initial filmmaker verification.
	TypeVerificationRegistered = "verification.registered"
	// TypeVerificationRenewed marks a fee-paid extension of a verification record.
	TypeVerificationRenewed = "verification.renewed"
	// TypeFeeMultiplierAdjusted marks an admin change to the global fee multiplier.
	TypeFeeMultiplierAdjusted = "verification.feeMultiplierAdjusted"
	// TypeRevenueDistributed marks one 70/30 treasury split period.
	TypeRevenueDistributed = "verification.revenueDistributed"
	// TypeVerificationEmergencyWithdrawn marks a pause-gated recovery withdrawal
	// from the distributable balance.
	TypeVerificationEmergencyWithdrawn = "verification.emergencyWithdrawn"
)

// VerificationRegistered records a filmmaker entering verified status.
type VerificationRegistered struct {
	Filmmaker [20]byte
	Tier      string
	Fee       *big.Int
	Expiry    uint64
}

// EventType satisfies the events.Event interface.
func (VerificationRegistered) EventType() string { return TypeVerificationRegistered }

// Event converts the structured payload into a broadcastable event.
func (e VerificationRegistered) Event() *types.Event {
	return &types.Event{Type: TypeVerificationRegistered, Attributes: map[string]string{
		"filmmaker": hexAddr(e.Filmmaker),
		"tier":      e.Tier,
		"fee":       amountString(e.Fee),
		"expiry":    uintString(e.Expiry),
	}}
}

// VerificationRenewed records a successful verification renewal payment.
type VerificationRenewed struct {
	Filmmaker [20]byte
	Fee       *big.Int
	Expiry    uint64
	Block     uint64
}

func (VerificationRenewed) EventType() string { return TypeVerificationRenewed }

func (e VerificationRenewed) Event() *types.Event {
	return &types.Event{Type: TypeVerificationRenewed, Attributes: map[string]string{
		"filmmaker": hexAddr(e.Filmmaker),
		"fee":       amountString(e.Fee),
		"expiry":    uintString(e.Expiry),
		"block":     uintString(e.Block),
	}}
}

// FeeMultiplierAdjusted records a bounds-checked fee multiplier change.
type FeeMultiplierAdjusted struct {
	Caller     [20]byte
	Multiplier uint64
}

func (FeeMultiplierAdjusted) EventType() string { return TypeFeeMultiplierAdjusted }

func (e FeeMultiplierAdjusted) Event() *types.Event {
	return &types.Event{Type: TypeFeeMultiplierAdjusted, Attributes: map[string]string{
		"caller":     hexAddr(e.Caller),
		"multiplier": uintString(e.Multiplier),
	}}
}

// RevenueDistributed records an immutable 70/30 distribution period.
type RevenueDistributed struct {
	Period        uint64
	PlatformShare *big.Int
	VerifierShare *big.Int
	Platform      [20]byte
	Verifiers     [20]byte
}

func (RevenueDistributed) EventType() string { return TypeRevenueDistributed }

func (e RevenueDistributed) Event() *types.Event {
	return &types.Event{Type: TypeRevenueDistributed, Attributes: map[string]string{
		"period":        uintString(e.Period),
		"platformShare": amountString(e.PlatformShare),
		"verifierShare": amountString(e.VerifierShare),
		"platform":      hexAddr(e.Platform),
		"verifiers":     hexAddr(e.Verifiers),
	}}
}

// VerificationEmergencyWithdrawn records a recovery withdrawal from the
// distributable balance while the platform is paused.
type VerificationEmergencyWithdrawn struct {
	Amount    *big.Int
	Recipient [20]byte
}

func (VerificationEmergencyWithdrawn) EventType() string {
	return TypeVerificationEmergencyWithdrawn
}

func (e VerificationEmergencyWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeVerificationEmergencyWithdrawn, Attributes: map[string]string{
		"amount":    amountString(e.Amount),
		"recipient": hexAddr(e.Recipient),
	}}
}
