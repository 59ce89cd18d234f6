package events

import (
	"math/big"
	"strings"

	"filmvault/core/types"
)

const (
	// TypeCampaignCreated marks a new crowdfunding campaign entering the Active state.
	TypeCampaignCreated = "campaign.created"
	// TypeCampaignContributed marks a successful contribution to an active campaign.
	TypeCampaignContributed = "campaign.contributed"
	// TypeCampaignClaimed marks a funded campaign's proceeds being claimed by its owner.
	TypeCampaignClaimed = "campaign.claimed"
)

// CampaignCreated records campaign creation metadata.
type CampaignCreated struct {
	CampaignID uint64
	Owner      [20]byte
	Title      string
	Goal       *big.Int
	Deadline   uint64
}

// EventType satisfies the events.Event interface.
func (CampaignCreated) EventType() string { return TypeCampaignCreated }

// Event converts the structured payload into a broadcastable event.
func (e CampaignCreated) Event() *types.Event {
	attrs := map[string]string{
		"campaignId": uintString(e.CampaignID),
		"owner":      hexAddr(e.Owner),
		"goal":       amountString(e.Goal),
		"deadline":   uintString(e.Deadline),
	}
	if title := strings.TrimSpace(e.Title); title != "" {
		attrs["title"] = title
	}
	return &types.Event{Type: TypeCampaignCreated, Attributes: attrs}
}

// CampaignContributed records a contribution that reached escrow custody.
type CampaignContributed struct {
	CampaignID  uint64
	Contributor [20]byte
	Amount      *big.Int
	TotalRaised *big.Int
}

func (CampaignContributed) EventType() string { return TypeCampaignContributed }

func (e CampaignContributed) Event() *types.Event {
	return &types.Event{Type: TypeCampaignContributed, Attributes: map[string]string{
		"campaignId":  uintString(e.CampaignID),
		"contributor": hexAddr(e.Contributor),
		"amount":      amountString(e.Amount),
		"totalRaised": amountString(e.TotalRaised),
	}}
}

// CampaignClaimed records the owner claiming a funded campaign's proceeds.
type CampaignClaimed struct {
	CampaignID uint64
	Owner      [20]byte
	Amount     *big.Int
}

func (CampaignClaimed) EventType() string { return TypeCampaignClaimed }

func (e CampaignClaimed) Event() *types.Event {
	return &types.Event{Type: TypeCampaignClaimed, Attributes: map[string]string{
		"campaignId": uintString(e.CampaignID),
		"owner":      hexAddr(e.Owner),
		"amount":     amountString(e.Amount),
	}}
}
