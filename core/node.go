package core

import (
	"math/big"
	"sync"
	"sync/atomic"

	"filmvault/core/events"
	"filmvault/native/crowdfund"
	"filmvault/native/escrow"
	"filmvault/native/platform"
	"filmvault/native/rewards"
	"filmvault/native/verification"
	"filmvault/storage"
)

// Node is the composition root of the custody platform. It owns the shared
// store, wires every module engine against it, and serializes all state
// transitions behind a single writer lock so module calls observe a
// consistent height and never interleave.
type Node struct {
	mu     sync.Mutex
	store  *storage.Store
	height atomic.Uint64

	platform     *platform.Engine
	escrow       *escrow.Engine
	crowdfund    *crowdfund.Engine
	rewards      *rewards.Engine
	verification *verification.Engine

	registry platform.Registry
}

// NewNode wires the module engines against the store and restores the
// persisted chain height and module registry, if any.
func NewNode(store *storage.Store, emitter events.Emitter) (*Node, error) {
	n := &Node{
		store:        store,
		platform:     platform.NewEngine(),
		escrow:       escrow.NewEngine(),
		crowdfund:    crowdfund.NewEngine(),
		rewards:      rewards.NewEngine(),
		verification: verification.NewEngine(),
	}

	n.platform.SetState(store)
	n.platform.SetEmitter(emitter)

	n.escrow.SetState(store)
	n.escrow.SetEmitter(emitter)
	n.escrow.SetPauseView(n.platform)
	n.escrow.SetAdminView(n.platform)

	n.crowdfund.SetState(store)
	n.crowdfund.SetEmitter(emitter)
	n.crowdfund.SetPauseView(n.platform)
	n.crowdfund.SetEscrow(n.escrow)
	n.crowdfund.SetHeightFunc(n.Height)

	n.rewards.SetState(store)
	n.rewards.SetEmitter(emitter)
	n.rewards.SetPauseView(n.platform)
	n.rewards.SetAdminView(n.platform)
	n.rewards.SetHeightFunc(n.Height)

	n.verification.SetState(store)
	n.verification.SetEmitter(emitter)
	n.verification.SetPauseView(n.platform)
	n.verification.SetAdminView(n.platform)
	n.verification.SetHeightFunc(n.Height)

	height, err := store.ChainHeightGet()
	if err != nil {
		return nil, err
	}
	n.height.Store(height)

	reg, err := store.PlatformRegistryGet()
	if err != nil {
		return nil, err
	}
	if reg != nil && reg.Initialized {
		if err := n.applyRegistry(reg); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// applyRegistry points the module engines at the registered addresses. The
// escrow trusted set is normally recorded by InitializePlatform; it is
// re-established here only when a restart finds the registry without it.
func (n *Node) applyRegistry(reg *platform.Registry) error {
	n.registry = *reg
	n.crowdfund.SetModuleAddress(reg.Crowdfunding)
	n.verification.SetCoreAddress(reg.CoEp)
	n.rewards.SetAuthorizedMinters(reg.Crowdfunding, reg.CoEp)

	trusted, err := n.escrow.Trusted()
	if err != nil {
		return err
	}
	if trusted == nil || !trusted.Initialized {
		return n.escrow.Initialize(reg.CoEp, reg.Crowdfunding, reg.Escrow)
	}
	return nil
}

// Height returns the current block height.
func (n *Node) Height() uint64 {
	return n.height.Load()
}

// AdvanceHeight increments and persists the block height, returning the new
// value. The block ticker is the only caller.
func (n *Node) AdvanceHeight() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := n.height.Load() + 1
	if err := n.store.ChainHeightPut(next); err != nil {
		return 0, err
	}
	n.height.Store(next)
	return next, nil
}

// --- platform ---

// InitializePlatform records the module registry exactly once and wires the
// engines against the registered addresses.
func (n *Node) InitializePlatform(reg platform.Registry) (*platform.Registry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	stored, err := n.platform.InitializePlatform(reg)
	if err != nil {
		return nil, err
	}
	if err := n.applyRegistry(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Registry returns the stored module registry, or nil before initialization.
func (n *Node) Registry() (*platform.Registry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.platform.Registry()
}

// SetAdmin grants or revokes the admin flag. The caller must be an admin.
func (n *Node) SetAdmin(caller, target [20]byte, grant bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.platform.SetAdmin(caller, target, grant)
}

// IsAdmin reports whether the address holds the admin flag.
func (n *Node) IsAdmin(addr [20]byte) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.platform.IsAdmin(addr)
}

// SetPaused flips the global pause flag. Admin only.
func (n *Node) SetPaused(caller [20]byte, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.platform.SetPaused(caller, paused)
}

// Paused returns the global pause flag.
func (n *Node) Paused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.platform.Paused()
}

// PlatformStats returns an operational snapshot of the platform module.
func (n *Node) PlatformStats() (*platform.Stats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.platform.Stats()
}

// --- escrow ---

// EscrowDeposit credits the campaign custody account.
func (n *Node) EscrowDeposit(campaignID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.Deposit(campaignID, amount)
}

// EscrowAuthorizeWithdrawal records the withdrawal principal for a campaign.
func (n *Node) EscrowAuthorizeWithdrawal(caller [20]byte, campaignID uint64, principal [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.AuthorizeWithdrawal(caller, campaignID, principal)
}

// EscrowAuthorizeFeeCollection records the fee-collection principal.
func (n *Node) EscrowAuthorizeFeeCollection(caller [20]byte, campaignID uint64, principal [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.AuthorizeFeeCollection(caller, campaignID, principal)
}

// EscrowWithdraw debits the campaign account for the authorized withdrawer.
func (n *Node) EscrowWithdraw(caller [20]byte, campaignID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.Withdraw(caller, campaignID, amount)
}

// EscrowCollectFee debits the campaign account for the authorized collector.
func (n *Node) EscrowCollectFee(caller [20]byte, campaignID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.CollectFee(caller, campaignID, amount)
}

// EscrowBalance returns the campaign balance, zero for unknown campaigns.
func (n *Node) EscrowBalance(campaignID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.Balance(campaignID)
}

// EscrowAccount returns the campaign custody account when present.
func (n *Node) EscrowAccount(campaignID uint64) (*escrow.Account, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.Account(campaignID)
}

// EscrowEmergencyWithdraw drains funds from a campaign account while paused.
func (n *Node) EscrowEmergencyWithdraw(caller [20]byte, campaignID uint64, amount *big.Int, recipient [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.escrow.EmergencyWithdraw(caller, campaignID, amount, recipient)
}

// --- crowdfunding ---

// CreateCampaign registers a new campaign owned by the caller. The campaign is
// bound to the registered verification module.
func (n *Node) CreateCampaign(caller [20]byte, id uint64, title string, goal *big.Int, durationBlocks uint64, tierCount uint32, rewardDescription string) (*crowdfund.Campaign, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.Create(caller, id, title, goal, durationBlocks, tierCount, rewardDescription, n.registry.Verification)
}

// Contribute deposits into the campaign escrow and records the contribution.
func (n *Node) Contribute(caller [20]byte, campaignID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.Contribute(caller, campaignID, amount)
}

// ClaimFunds releases the escrowed total to the campaign owner after the
// deadline, provided the funding goal was met.
func (n *Node) ClaimFunds(caller [20]byte, campaignID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.Claim(caller, campaignID)
}

// Campaign returns the stored campaign with its derived status.
func (n *Node) Campaign(campaignID uint64) (*crowdfund.Campaign, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.Campaign(campaignID)
}

// CampaignOwner returns the campaign owner address.
func (n *Node) CampaignOwner(campaignID uint64) ([20]byte, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.Owner(campaignID)
}

// CampaignGoal returns the campaign funding goal.
func (n *Node) CampaignGoal(campaignID uint64) (*big.Int, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.FundingGoal(campaignID)
}

// CampaignTotalRaised returns the accumulated contribution total.
func (n *Node) CampaignTotalRaised(campaignID uint64) (*big.Int, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.TotalRaised(campaignID)
}

// CampaignIsActive reports whether the campaign still accepts contributions.
func (n *Node) CampaignIsActive(campaignID uint64) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.IsActive(campaignID)
}

// Contribution returns the contributor's cumulative total for a campaign.
func (n *Node) Contribution(campaignID uint64, contributor [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crowdfund.Contribution(campaignID, contributor)
}

// --- rewards ---

// MintReward mints one reward token to the recipient.
func (n *Node) MintReward(caller, recipient [20]byte, campaignID uint64, tier uint32, description string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rewards.Mint(caller, recipient, campaignID, tier, description)
}

// BatchMintRewards mints one token per recipient, all or nothing.
func (n *Node) BatchMintRewards(caller [20]byte, recipients [][20]byte, tiers []uint32, descriptions []string, campaignID uint64) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rewards.BatchMint(caller, recipients, tiers, descriptions, campaignID)
}

// RewardMetadata returns the stored token record.
func (n *Node) RewardMetadata(tokenID uint64) (*rewards.Token, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rewards.TokenMetadata(tokenID)
}

// TotalRewardsMinted returns the number of tokens minted so far.
func (n *Node) TotalRewardsMinted() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rewards.TotalMinted()
}

// --- verification ---

// AdjustFeeMultiplier sets the global fee multiplier. Admin only.
func (n *Node) AdjustFeeMultiplier(caller [20]byte, multiplier uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.AdjustFeeMultiplier(caller, multiplier)
}

// CurrentFees returns the effective fee schedule.
func (n *Node) CurrentFees() (*verification.FeeSchedule, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.CurrentFees()
}

// RenewalFee returns the effective discounted renewal fee.
func (n *Node) RenewalFee() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.RenewalFee()
}

// RegisterVerification records a new verified filmmaker. Admin only.
func (n *Node) RegisterVerification(caller, filmmaker [20]byte, tier verification.Tier) (*verification.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.RegisterVerification(caller, filmmaker, tier)
}

// RenewVerification extends an active verification within the renewal window.
func (n *Node) RenewVerification(caller, filmmaker [20]byte) (*verification.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.RenewVerification(caller, filmmaker)
}

// SetPlatformTreasury records the platform treasury principal. Admin only.
func (n *Node) SetPlatformTreasury(caller, treasury [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.SetPlatformTreasury(caller, treasury)
}

// SetVerifiersTreasury records the verifiers treasury principal. Admin only.
func (n *Node) SetVerifiersTreasury(caller, treasury [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.SetVerifiersTreasury(caller, treasury)
}

// DistributeRevenue splits the distributable balance between the treasuries.
func (n *Node) DistributeRevenue(caller [20]byte) (*verification.DistributionRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.DistributeRevenue(caller)
}

// PaymentHistory returns the filmmaker's ordered payment history.
func (n *Node) PaymentHistory(filmmaker [20]byte) ([]verification.Payment, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.PaymentHistory(filmmaker)
}

// VerificationRecord returns the filmmaker's verification record.
func (n *Node) VerificationRecord(filmmaker [20]byte) (*verification.Record, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.RecordOf(filmmaker)
}

// FeeAdjustmentStatus returns the current multiplier and its allowed bounds.
func (n *Node) FeeAdjustmentStatus() (uint64, uint64, uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.FeeAdjustmentStatus()
}

// Distribution returns the record for one completed distribution period.
func (n *Node) Distribution(period uint64) (*verification.DistributionRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.Distribution(period)
}

// DistributableBalance returns the undistributed verification fee balance.
func (n *Node) DistributableBalance() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.AvailableBalance()
}

// VerificationTreasuries returns the treasury principals and accrued totals.
func (n *Node) VerificationTreasuries() (*verification.Treasuries, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.Treasuries()
}

// VerificationEmergencyWithdraw drains the distributable balance while paused.
func (n *Node) VerificationEmergencyWithdraw(caller [20]byte, amount *big.Int, recipient [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification.EmergencyWithdraw(caller, amount, recipient)
}
