package core

import (
	"errors"
	"math/big"
	"testing"

	"filmvault/core/events"
	"filmvault/native/common"
	"filmvault/native/platform"
	"filmvault/native/verification"
	"filmvault/storage"
)

func nodeAddr(b byte) [20]byte {
	var addr [20]byte
	addr[19] = b
	return addr
}

func testRegistry() platform.Registry {
	return platform.Registry{
		Verification:    nodeAddr(0x01),
		Crowdfunding:    nodeAddr(0x02),
		Rewards:         nodeAddr(0x03),
		Escrow:          nodeAddr(0x04),
		CoEp:            nodeAddr(0x05),
		VerificationExt: nodeAddr(0x06),
	}
}

func newTestNode(t *testing.T, admins ...[20]byte) (*Node, *storage.Store) {
	t.Helper()
	store := storage.NewStore(storage.NewMemDB())
	if err := store.SeedGenesisAdmins(admins); err != nil {
		t.Fatalf("seed admins: %v", err)
	}
	node, err := NewNode(store, events.NoopEmitter{})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node, store
}

func TestNodeInitializePlatformOneShot(t *testing.T) {
	node, _ := newTestNode(t)

	stored, err := node.InitializePlatform(testRegistry())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !stored.Initialized {
		t.Fatalf("expected initialized registry")
	}
	if _, err := node.InitializePlatform(testRegistry()); !errors.Is(err, platform.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestNodeHeightPersistsAcrossRestart(t *testing.T) {
	node, store := newTestNode(t)

	for i := 0; i < 3; i++ {
		if _, err := node.AdvanceHeight(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := node.Height(); got != 3 {
		t.Fatalf("height = %d, want 3", got)
	}

	restarted, err := NewNode(store, events.NoopEmitter{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := restarted.Height(); got != 3 {
		t.Fatalf("restarted height = %d, want 3", got)
	}
}

func TestNodeCampaignLifecycle(t *testing.T) {
	owner := nodeAddr(0xAA)
	backer := nodeAddr(0xBB)
	node, _ := newTestNode(t)
	if _, err := node.InitializePlatform(testRegistry()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	goal := big.NewInt(1_000)
	if _, err := node.CreateCampaign(owner, 1, "Night Shoot", goal, 100, 2, "poster"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := node.Contribute(backer, 1, big.NewInt(600)); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if err := node.Contribute(backer, 1, big.NewInt(400)); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	balance, err := node.EscrowBalance(1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(goal) != 0 {
		t.Fatalf("escrow balance = %s, want %s", balance, goal)
	}

	total, err := node.Contribution(1, backer)
	if err != nil {
		t.Fatalf("contribution: %v", err)
	}
	if total.Cmp(goal) != 0 {
		t.Fatalf("contribution total = %s, want %s", total, goal)
	}

	// Past the deadline the owner claims the full escrowed amount.
	for i := 0; i < 101; i++ {
		if _, err := node.AdvanceHeight(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if err := node.ClaimFunds(owner, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	balance, err = node.EscrowBalance(1)
	if err != nil {
		t.Fatalf("balance after claim: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("escrow balance after claim = %s, want 0", balance)
	}
}

func TestNodeCrowdfundingModuleMayMint(t *testing.T) {
	node, _ := newTestNode(t)
	reg := testRegistry()
	if _, err := node.InitializePlatform(reg); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	id, err := node.MintReward(reg.Crowdfunding, nodeAddr(0xCC), 1, 1, "credit")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != 1 {
		t.Fatalf("token id = %d, want 1", id)
	}

	token, err := node.RewardMetadata(1)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if token.Owner != nodeAddr(0xCC) {
		t.Fatalf("unexpected token owner")
	}
}

func TestNodeVerificationRevenueFlow(t *testing.T) {
	admin := nodeAddr(0xAD)
	filmmaker := nodeAddr(0xF1)
	node, _ := newTestNode(t, admin)
	if _, err := node.InitializePlatform(testRegistry()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := node.RegisterVerification(admin, filmmaker, verification.TierStandard); err != nil {
		t.Fatalf("register: %v", err)
	}

	balance, err := node.DistributableBalance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(verification.BaseFeeStandard)) != 0 {
		t.Fatalf("distributable = %s, want %d", balance, verification.BaseFeeStandard)
	}

	if err := node.SetPlatformTreasury(admin, nodeAddr(0x70)); err != nil {
		t.Fatalf("platform treasury: %v", err)
	}
	if err := node.SetVerifiersTreasury(admin, nodeAddr(0x30)); err != nil {
		t.Fatalf("verifiers treasury: %v", err)
	}

	record, err := node.DistributeRevenue(admin)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if record.Period != 1 {
		t.Fatalf("period = %d, want 1", record.Period)
	}
	want := big.NewInt(verification.BaseFeeStandard * 70 / 100)
	if record.PlatformShare.Cmp(want) != 0 {
		t.Fatalf("platform share = %s, want %s", record.PlatformShare, want)
	}
}

func TestNodePauseGatesMutationsAndEmergency(t *testing.T) {
	admin := nodeAddr(0xAD)
	node, _ := newTestNode(t, admin)
	reg := testRegistry()
	if _, err := node.InitializePlatform(reg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	filmmaker := nodeAddr(0xF1)
	if _, err := node.RegisterVerification(admin, filmmaker, verification.TierBasic); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := node.SetPaused(admin, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := node.CreateCampaign(nodeAddr(0xAA), 1, "Paused", big.NewInt(10), 10, 1, "x"); !errors.Is(err, common.ErrSystemPaused) {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}

	// Emergency withdrawal is the only mutation allowed while paused, and only
	// for the registered core module.
	if err := node.VerificationEmergencyWithdraw(reg.CoEp, big.NewInt(1_000_000), nodeAddr(0xEE)); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	if err := node.VerificationEmergencyWithdraw(nodeAddr(0x99), big.NewInt(1), nodeAddr(0xEE)); err == nil {
		t.Fatalf("expected unauthorized emergency withdraw to fail")
	}

	if err := node.SetPaused(admin, false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := node.CreateCampaign(nodeAddr(0xAA), 1, "Resumed", big.NewInt(10), 10, 1, "x"); err != nil {
		t.Fatalf("create after unpause: %v", err)
	}
}
