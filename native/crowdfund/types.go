package crowdfund

import (
	"fmt"
	"math/big"
	"strings"
)

// CampaignStatus represents the lifecycle states of a campaign. Only Active
// and Claimed are persisted; Funded and Expired are derived from the current
// block height, the deadline, and the funding goal.
type CampaignStatus uint8

const (
	CampaignActive CampaignStatus = iota
	CampaignFunded
	CampaignClaimed
	CampaignExpired
)

// String returns a human readable label for the status.
func (s CampaignStatus) String() string {
	switch s {
	case CampaignActive:
		return "active"
	case CampaignFunded:
		return "funded"
	case CampaignClaimed:
		return "claimed"
	case CampaignExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Valid reports whether the status value is within the supported range.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignActive, CampaignFunded, CampaignClaimed, CampaignExpired:
		return true
	default:
		return false
	}
}

// Campaign captures the metadata and accumulated contributions of one
// crowdfunding campaign.
type Campaign struct {
	ID                 uint64         `json:"id"`
	Title              string         `json:"title"`
	Owner              [20]byte       `json:"owner"`
	Goal               *big.Int       `json:"goal"`
	Deadline           uint64         `json:"deadline"`
	CreatedAt          uint64         `json:"createdAt"`
	RewardTiers        uint32         `json:"rewardTiers"`
	RewardDescription  string         `json:"rewardDescription"`
	VerificationModule [20]byte       `json:"verificationModule"`
	TotalRaised        *big.Int       `json:"totalRaised"`
	Status             CampaignStatus `json:"status"`
}

// Clone returns a deep copy of the campaign.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Goal != nil {
		clone.Goal = new(big.Int).Set(c.Goal)
	} else {
		clone.Goal = big.NewInt(0)
	}
	if c.TotalRaised != nil {
		clone.TotalRaised = new(big.Int).Set(c.TotalRaised)
	} else {
		clone.TotalRaised = big.NewInt(0)
	}
	return &clone
}

// StatusAt derives the observable status at the given block height. Claimed is
// terminal; before the deadline the campaign is Active; past it the campaign
// is Funded when the goal was met and Expired otherwise.
func (c *Campaign) StatusAt(height uint64) CampaignStatus {
	if c == nil {
		return CampaignExpired
	}
	if c.Status == CampaignClaimed {
		return CampaignClaimed
	}
	if height <= c.Deadline {
		return CampaignActive
	}
	if c.TotalRaised != nil && c.Goal != nil && c.TotalRaised.Cmp(c.Goal) >= 0 {
		return CampaignFunded
	}
	return CampaignExpired
}

// SanitizeCampaign validates and normalises a campaign record, returning a
// clone with trimmed title and non-nil amounts. The original is not mutated.
func SanitizeCampaign(c *Campaign) (*Campaign, error) {
	if c == nil {
		return nil, fmt.Errorf("nil campaign")
	}
	clone := c.Clone()
	clone.Title = strings.TrimSpace(clone.Title)
	if clone.Title == "" {
		return nil, fmt.Errorf("campaign title required")
	}
	if clone.Goal.Sign() <= 0 {
		return nil, fmt.Errorf("campaign goal must be positive")
	}
	if clone.TotalRaised.Sign() < 0 {
		return nil, fmt.Errorf("campaign raised total must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid campaign status: %d", clone.Status)
	}
	return clone, nil
}
