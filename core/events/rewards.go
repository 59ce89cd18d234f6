package events

import (
	"strings"

	"filmvault/core/types"
)

const (
	// TypeRewardMinted marks the creation of a single reward token.
	TypeRewardMinted = "rewards.minted"
)

// RewardMinted records a freshly minted reward token. Batch mints emit one
// event per token in array order.
type RewardMinted struct {
	TokenID    uint64
	Owner      [20]byte
	CampaignID uint64
	Tier       uint32
	Description string
}

// EventType satisfies the events.Event interface.
func (RewardMinted) EventType() string { return TypeRewardMinted }

// Event converts the structured payload into a broadcastable event.
func (e RewardMinted) Event() *types.Event {
	attrs := map[string]string{
		"tokenId":    uintString(e.TokenID),
		"owner":      hexAddr(e.Owner),
		"campaignId": uintString(e.CampaignID),
		"tier":       uintString(uint64(e.Tier)),
	}
	if desc := strings.TrimSpace(e.Description); desc != "" {
		attrs["description"] = desc
	}
	return &types.Event{Type: TypeRewardMinted, Attributes: attrs}
}
