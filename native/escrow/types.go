package escrow

import (
	"fmt"
	"math/big"
)

// Account tracks the custody balance for one campaign together with the single
// authorization slot for each privileged action. Slots are overwritten, never
// accumulated, by authorization calls.
type Account struct {
	CampaignID   uint64    `json:"campaignId"`
	Balance      *big.Int  `json:"balance"`
	Withdrawer   *[20]byte `json:"withdrawer,omitempty"`
	FeeCollector *[20]byte `json:"feeCollector,omitempty"`
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	if a.Withdrawer != nil {
		w := *a.Withdrawer
		clone.Withdrawer = &w
	}
	if a.FeeCollector != nil {
		f := *a.FeeCollector
		clone.FeeCollector = &f
	}
	return &clone
}

// SanitizeAccount validates and normalises an account record, returning a
// clone with a non-nil, non-negative balance. The original value is not
// mutated.
func SanitizeAccount(a *Account) (*Account, error) {
	if a == nil {
		return nil, fmt.Errorf("nil escrow account")
	}
	clone := a.Clone()
	if clone.Balance == nil {
		clone.Balance = big.NewInt(0)
	}
	if clone.Balance.Sign() < 0 {
		return nil, fmt.Errorf("escrow balance must be non-negative")
	}
	return clone, nil
}

// Trusted records the module addresses captured by the one-shot Initialize
// call and used for subsequent authorization checks.
type Trusted struct {
	Core         [20]byte `json:"core"`
	Crowdfunding [20]byte `json:"crowdfunding"`
	Self         [20]byte `json:"self"`
	Initialized  bool     `json:"initialized"`
}

// Clone returns a copy of the trusted-caller record.
func (t *Trusted) Clone() *Trusted {
	if t == nil {
		return &Trusted{}
	}
	clone := *t
	return &clone
}
