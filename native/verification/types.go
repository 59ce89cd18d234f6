package verification

import (
	"fmt"
	"math/big"
)

// Fee schedule constants, denominated in the smallest monetary unit. The
// multiplier scales both base fees in percent; 100 is the neutral default.
const (
	BaseFeeBasic    = 2_000_000
	BaseFeeStandard = 3_000_000

	MinFeeMultiplier     = 50
	MaxFeeMultiplier     = 200
	DefaultFeeMultiplier = 100

	// PeriodBlocks is the length of one verification period (~1 year at
	// 10-minute blocks).
	PeriodBlocks = 52_560
	// RenewalWindowBlocks is how early before expiry a renewal is accepted
	// (~30 days at 10-minute blocks).
	RenewalWindowBlocks = 4_320

	// platformSharePercent is the treasury split applied by DistributeRevenue;
	// the verifiers treasury receives the exact remainder.
	platformSharePercent = 70
)

// Tier selects which base fee applies to a verification.
type Tier uint8

const (
	TierBasic Tier = iota
	TierStandard
)

// String returns a human readable label for the tier.
func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierStandard:
		return "standard"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether the tier value is within the supported range.
func (t Tier) Valid() bool {
	return t == TierBasic || t == TierStandard
}

// Payment is one entry in a filmmaker's ordered payment history.
type Payment struct {
	Amount *big.Int `json:"amount"`
	Block  uint64   `json:"block"`
}

// Record tracks a filmmaker's verified status, expiry, and payment history.
type Record struct {
	Filmmaker [20]byte  `json:"filmmaker"`
	Verified  bool      `json:"verified"`
	Tier      Tier      `json:"tier"`
	Expiry    uint64    `json:"expiry"`
	Payments  []Payment `json:"payments,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Payments = make([]Payment, len(r.Payments))
	for i, payment := range r.Payments {
		clone.Payments[i] = Payment{Block: payment.Block}
		if payment.Amount != nil {
			clone.Payments[i].Amount = new(big.Int).Set(payment.Amount)
		} else {
			clone.Payments[i].Amount = big.NewInt(0)
		}
	}
	return &clone
}

// Treasuries holds the two single-slot treasury principals together with the
// cumulative amounts credited to each by revenue distributions.
type Treasuries struct {
	Platform         [20]byte `json:"platform"`
	Verifiers        [20]byte `json:"verifiers"`
	PlatformAccrued  *big.Int `json:"platformAccrued"`
	VerifiersAccrued *big.Int `json:"verifiersAccrued"`
}

// Clone returns a deep copy of the treasuries record with non-nil totals.
func (t *Treasuries) Clone() *Treasuries {
	clone := &Treasuries{PlatformAccrued: big.NewInt(0), VerifiersAccrued: big.NewInt(0)}
	if t == nil {
		return clone
	}
	clone.Platform = t.Platform
	clone.Verifiers = t.Verifiers
	if t.PlatformAccrued != nil {
		clone.PlatformAccrued = new(big.Int).Set(t.PlatformAccrued)
	}
	if t.VerifiersAccrued != nil {
		clone.VerifiersAccrued = new(big.Int).Set(t.VerifiersAccrued)
	}
	return clone
}

// DistributionRecord is the immutable outcome of one 70/30 revenue split.
type DistributionRecord struct {
	Period        uint64   `json:"period"`
	PlatformShare *big.Int `json:"platformShare"`
	VerifierShare *big.Int `json:"verifierShare"`
	DistributedAt uint64   `json:"distributedAt"`
}

// Clone returns a deep copy of the distribution record.
func (d *DistributionRecord) Clone() *DistributionRecord {
	if d == nil {
		return nil
	}
	clone := *d
	if d.PlatformShare != nil {
		clone.PlatformShare = new(big.Int).Set(d.PlatformShare)
	} else {
		clone.PlatformShare = big.NewInt(0)
	}
	if d.VerifierShare != nil {
		clone.VerifierShare = new(big.Int).Set(d.VerifierShare)
	} else {
		clone.VerifierShare = big.NewInt(0)
	}
	return &clone
}

// FeeSchedule is the read-only projection of the current effective fees.
type FeeSchedule struct {
	Basic      *big.Int `json:"basic"`
	Standard   *big.Int `json:"standard"`
	Multiplier uint64   `json:"multiplier"`
}
