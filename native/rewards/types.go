package rewards

import (
	"fmt"
	"strings"
)

// Token is a reward issued for a campaign tier. Tokens are immutable once
// minted; ids are strictly increasing and unique.
type Token struct {
	ID          uint64   `json:"id"`
	Owner       [20]byte `json:"owner"`
	CampaignID  uint64   `json:"campaignId"`
	Tier        uint32   `json:"tier"`
	Description string   `json:"description"`
	MintedAt    uint64   `json:"mintedAt"`
}

// Clone returns a copy of the token record.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// SanitizeToken validates a token record before persistence.
func SanitizeToken(t *Token) (*Token, error) {
	if t == nil {
		return nil, fmt.Errorf("nil reward token")
	}
	if t.ID == 0 {
		return nil, fmt.Errorf("reward token id must be positive")
	}
	if t.Owner == ([20]byte{}) {
		return nil, fmt.Errorf("reward token owner required")
	}
	clone := t.Clone()
	clone.Description = strings.TrimSpace(clone.Description)
	return clone, nil
}
