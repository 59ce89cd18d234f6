package verification

import (
	"errors"
	"math/big"
	"testing"
)

type mockState struct {
	records       map[[20]byte]*Record
	multiplier    uint64
	balance       *big.Int
	distributions map[uint64]*DistributionRecord
	counter       uint64
	treasuries    *Treasuries
}

func newMockState() *mockState {
	return &mockState{
		records:       make(map[[20]byte]*Record),
		distributions: make(map[uint64]*DistributionRecord),
	}
}

func (m *mockState) VerificationRecordGet(filmmaker [20]byte) (*Record, bool, error) {
	record, ok := m.records[filmmaker]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) VerificationRecordPut(record *Record) error {
	m.records[record.Filmmaker] = record.Clone()
	return nil
}

func (m *mockState) FeeMultiplierGet() (uint64, error) { return m.multiplier, nil }

func (m *mockState) FeeMultiplierPut(v uint64) error {
	m.multiplier = v
	return nil
}

func (m *mockState) DistributableBalanceGet() (*big.Int, error) {
	if m.balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(m.balance), nil
}

func (m *mockState) DistributableBalancePut(v *big.Int) error {
	m.balance = new(big.Int).Set(v)
	return nil
}

func (m *mockState) DistributionGet(period uint64) (*DistributionRecord, bool, error) {
	record, ok := m.distributions[period]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) DistributionPut(record *DistributionRecord) error {
	m.distributions[record.Period] = record.Clone()
	return nil
}

func (m *mockState) DistributionCounterGet() (uint64, error) { return m.counter, nil }

func (m *mockState) DistributionCounterPut(v uint64) error {
	m.counter = v
	return nil
}

func (m *mockState) TreasuriesGet() (*Treasuries, error) {
	return m.treasuries.Clone(), nil
}

func (m *mockState) TreasuriesPut(t *Treasuries) error {
	m.treasuries = t.Clone()
	return nil
}

type stubPauses struct{ paused bool }

func (s stubPauses) Paused() bool { return s.paused }

type stubAdmins struct{ admins map[[20]byte]bool }

func (s stubAdmins) IsAdmin(addr [20]byte) bool { return s.admins[addr] }

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var adminAddr = newTestAddress(0xAD)

type testEnv struct {
	engine *Engine
	state  *mockState
	height uint64
}

func newTestEnv() *testEnv {
	env := &testEnv{state: newMockState(), height: 1000}
	engine := NewEngine()
	engine.SetState(env.state)
	engine.SetAdminView(stubAdmins{admins: map[[20]byte]bool{adminAddr: true}})
	engine.SetHeightFunc(func() uint64 { return env.height })
	env.engine = engine
	return env
}

func TestFeeMultiplierBounds(t *testing.T) {
	env := newTestEnv()

	for _, v := range []uint64{49, 201, 250, 0} {
		if err := env.engine.AdjustFeeMultiplier(adminAddr, v); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("multiplier %d: expected ErrOutOfRange, got %v", v, err)
		}
	}
	fees, err := env.engine.CurrentFees()
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if fees.Multiplier != DefaultFeeMultiplier {
		t.Fatalf("rejected adjustment changed multiplier to %d", fees.Multiplier)
	}

	if err := env.engine.AdjustFeeMultiplier(adminAddr, 150); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	fees, err = env.engine.CurrentFees()
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if fees.Basic.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("expected basic fee 3000000 at x1.5, got %s", fees.Basic)
	}
	if fees.Standard.Cmp(big.NewInt(4_500_000)) != 0 {
		t.Fatalf("expected standard fee 4500000 at x1.5, got %s", fees.Standard)
	}
}

func TestAdjustFeeMultiplierAdminOnly(t *testing.T) {
	env := newTestEnv()
	if err := env.engine.AdjustFeeMultiplier(newTestAddress(0x11), 150); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestRenewalFeeAppliesMultiplierThenDiscount(t *testing.T) {
	env := newTestEnv()
	fee, err := env.engine.RenewalFee()
	if err != nil {
		t.Fatalf("renewal fee: %v", err)
	}
	if fee.Cmp(big.NewInt(1_500_000)) != 0 {
		t.Fatalf("expected default renewal fee 1500000, got %s", fee)
	}
	if err := env.engine.AdjustFeeMultiplier(adminAddr, 200); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	fee, err = env.engine.RenewalFee()
	if err != nil {
		t.Fatalf("renewal fee: %v", err)
	}
	if fee.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("expected renewal fee 3000000 at x2, got %s", fee)
	}
}

func TestRegisterVerification(t *testing.T) {
	env := newTestEnv()
	filmmaker := newTestAddress(0xFA)

	record, err := env.engine.RegisterVerification(adminAddr, filmmaker, TierStandard)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if record.Expiry != env.height+PeriodBlocks {
		t.Fatalf("expected expiry %d, got %d", env.height+PeriodBlocks, record.Expiry)
	}
	if len(record.Payments) != 1 || record.Payments[0].Amount.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("unexpected payment history: %+v", record.Payments)
	}
	balance, err := env.engine.AvailableBalance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("expected distributable balance 3000000, got %s", balance)
	}
	if _, err := env.engine.RegisterVerification(adminAddr, filmmaker, TierBasic); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestRenewVerificationWindow(t *testing.T) {
	env := newTestEnv()
	filmmaker := newTestAddress(0xFA)
	if _, err := env.engine.RenewVerification(filmmaker, filmmaker); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if _, err := env.engine.RegisterVerification(adminAddr, filmmaker, TierStandard); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := env.engine.RenewVerification(newTestAddress(0xFB), filmmaker); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for third party, got %v", err)
	}
	if _, err := env.engine.RenewVerification(filmmaker, filmmaker); !errors.Is(err, ErrRenewalTooEarly) {
		t.Fatalf("expected ErrRenewalTooEarly, got %v", err)
	}

	// Advance into the renewal window.
	expiry := env.height + PeriodBlocks
	env.height = expiry - RenewalWindowBlocks + 1
	record, err := env.engine.RenewVerification(filmmaker, filmmaker)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if record.Expiry != expiry+PeriodBlocks {
		t.Fatalf("expected expiry extended to %d, got %d", expiry+PeriodBlocks, record.Expiry)
	}
	if len(record.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(record.Payments))
	}
	renewal := record.Payments[1]
	if renewal.Amount.Cmp(big.NewInt(1_500_000)) != 0 || renewal.Block != env.height {
		t.Fatalf("unexpected renewal payment: %+v", renewal)
	}

	// Lapsed verification cannot renew.
	env.height = record.Expiry + 1
	if _, err := env.engine.RenewVerification(filmmaker, filmmaker); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified after lapse, got %v", err)
	}
}

func TestDistributeRevenueExactSplit(t *testing.T) {
	env := newTestEnv()
	platform := newTestAddress(0xE1)
	verifiers := newTestAddress(0xE2)
	if err := env.engine.SetPlatformTreasury(adminAddr, platform); err != nil {
		t.Fatalf("set platform treasury: %v", err)
	}
	if err := env.engine.SetVerifiersTreasury(adminAddr, verifiers); err != nil {
		t.Fatalf("set verifiers treasury: %v", err)
	}

	if _, err := env.engine.DistributeRevenue(adminAddr); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on zero balance, got %v", err)
	}

	// Odd balance exercises the rounding rule.
	env.state.balance = big.NewInt(1_000_003)
	record, err := env.engine.DistributeRevenue(adminAddr)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	sum := new(big.Int).Add(record.PlatformShare, record.VerifierShare)
	if sum.Cmp(big.NewInt(1_000_003)) != 0 {
		t.Fatalf("shares must sum to balance, got %s", sum)
	}
	if record.PlatformShare.Cmp(big.NewInt(700_002)) != 0 {
		t.Fatalf("expected platform share 700002, got %s", record.PlatformShare)
	}
	if record.Period != 1 {
		t.Fatalf("expected period 1, got %d", record.Period)
	}
	balance, err := env.engine.AvailableBalance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zeroed balance, got %s", balance)
	}

	stored, err := env.engine.Distribution(1)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if stored.VerifierShare.Cmp(big.NewInt(300_001)) != 0 {
		t.Fatalf("expected verifier share 300001, got %s", stored.VerifierShare)
	}

	treasuries, err := env.engine.Treasuries()
	if err != nil {
		t.Fatalf("treasuries: %v", err)
	}
	if treasuries.PlatformAccrued.Cmp(big.NewInt(700_002)) != 0 {
		t.Fatalf("platform accrual mismatch: %s", treasuries.PlatformAccrued)
	}

	// Periods are monotonic.
	env.state.balance = big.NewInt(100)
	second, err := env.engine.DistributeRevenue(adminAddr)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if second.Period != 2 {
		t.Fatalf("expected period 2, got %d", second.Period)
	}
}

func TestDistributeRequiresTreasuriesAndAdmin(t *testing.T) {
	env := newTestEnv()
	env.state.balance = big.NewInt(100)
	if _, err := env.engine.DistributeRevenue(adminAddr); !errors.Is(err, ErrTreasuryNotSet) {
		t.Fatalf("expected ErrTreasuryNotSet, got %v", err)
	}
	if _, err := env.engine.DistributeRevenue(newTestAddress(0x11)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestEmergencyWithdrawFromDistributable(t *testing.T) {
	env := newTestEnv()
	core := newTestAddress(0x01)
	env.engine.SetCoreAddress(core)
	env.state.balance = big.NewInt(1000)
	recipient := newTestAddress(0xFE)

	if err := env.engine.EmergencyWithdraw(core, big.NewInt(400), recipient); err == nil {
		t.Fatalf("expected rejection while unpaused")
	}
	env.engine.SetPauseView(stubPauses{paused: true})
	if err := env.engine.EmergencyWithdraw(newTestAddress(0x09), big.NewInt(400), recipient); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := env.engine.EmergencyWithdraw(core, big.NewInt(4000), recipient); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := env.engine.EmergencyWithdraw(core, big.NewInt(400), recipient); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	if env.state.balance.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected balance 600, got %s", env.state.balance)
	}
}

func TestPaymentHistoryUnknownFilmmakerEmpty(t *testing.T) {
	env := newTestEnv()
	history, err := env.engine.PaymentHistory(newTestAddress(0x77))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}
}
