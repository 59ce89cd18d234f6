package events

import (
	"math/big"

	"filmvault/core/types"
)

const (
	// TypeEscrowDeposited marks a contribution credited to a campaign account.
	TypeEscrowDeposited = "escrow.deposited"
	// TypeEscrowWithdrawn marks an authorized withdrawal from a campaign account.
	TypeEscrowWithdrawn = "escrow.withdrawn"
	// TypeEscrowFeeCollected marks an authorized fee collection from a campaign account.
	TypeEscrowFeeCollected = "escrow.feeCollected"
	// TypeEscrowAuthorized marks an authorization slot overwrite.
	TypeEscrowAuthorized = "escrow.authorized"
	// TypeEscrowEmergencyWithdrawn marks a pause-gated recovery withdrawal.
	TypeEscrowEmergencyWithdrawn = "escrow.emergencyWithdrawn"
)

// EscrowDeposited records a deposit into a campaign escrow account.
type EscrowDeposited struct {
	CampaignID uint64
	Amount     *big.Int
	Balance    *big.Int
}

// EventType satisfies the events.Event interface.
func (EscrowDeposited) EventType() string { return TypeEscrowDeposited }

// Event converts the structured payload into a broadcastable event.
func (e EscrowDeposited) Event() *types.Event {
	return &types.Event{Type: TypeEscrowDeposited, Attributes: map[string]string{
		"campaignId": uintString(e.CampaignID),
		"amount":     amountString(e.Amount),
		"balance":    amountString(e.Balance),
	}}
}

// EscrowWithdrawn records funds leaving a campaign escrow account.
type EscrowWithdrawn struct {
	CampaignID uint64
	Caller     [20]byte
	Amount     *big.Int
	Balance    *big.Int
}

func (EscrowWithdrawn) EventType() string { return TypeEscrowWithdrawn }

func (e EscrowWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeEscrowWithdrawn, Attributes: map[string]string{
		"campaignId": uintString(e.CampaignID),
		"caller":     hexAddr(e.Caller),
		"amount":     amountString(e.Amount),
		"balance":    amountString(e.Balance),
	}}
}

// EscrowFeeCollected records a fee drawn by the authorized fee collector.
type EscrowFeeCollected struct {
	CampaignID uint64
	Caller     [20]byte
	Amount     *big.Int
	Balance    *big.Int
}

func (EscrowFeeCollected) EventType() string { return TypeEscrowFeeCollected }

func (e EscrowFeeCollected) Event() *types.Event {
	return &types.Event{Type: TypeEscrowFeeCollected, Attributes: map[string]string{
		"campaignId": uintString(e.CampaignID),
		"caller":     hexAddr(e.Caller),
		"amount":     amountString(e.Amount),
		"balance":    amountString(e.Balance),
	}}
}

// EscrowAuthorized records an overwrite of a single authorization slot. The
// action attribute distinguishes withdrawal from fee-collection grants.
type EscrowAuthorized struct {
	CampaignID uint64
	Action     string
	Principal  [20]byte
	Caller     [20]byte
}

func (EscrowAuthorized) EventType() string { return TypeEscrowAuthorized }

func (e EscrowAuthorized) Event() *types.Event {
	return &types.Event{Type: TypeEscrowAuthorized, Attributes: map[string]string{
		"campaignId": uintString(e.CampaignID),
		"action":     e.Action,
		"principal":  hexAddr(e.Principal),
		"caller":     hexAddr(e.Caller),
	}}
}

// EscrowEmergencyWithdrawn records a recovery withdrawal performed while the
// platform is paused.
type EscrowEmergencyWithdrawn struct {
	CampaignID uint64
	Amount     *big.Int
	Recipient  [20]byte
}

func (EscrowEmergencyWithdrawn) EventType() string { return TypeEscrowEmergencyWithdrawn }

func (e EscrowEmergencyWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeEscrowEmergencyWithdrawn, Attributes: map[string]string{
		"campaignId": uintString(e.CampaignID),
		"amount":     amountString(e.Amount),
		"recipient":  hexAddr(e.Recipient),
	}}
}
