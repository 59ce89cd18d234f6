package escrow

import (
	"errors"
	"math/big"
	"testing"

	"filmvault/native/common"
)

type mockState struct {
	accounts map[uint64]*Account
	trusted  *Trusted
}

func newMockState() *mockState {
	return &mockState{accounts: make(map[uint64]*Account)}
}

func (m *mockState) EscrowAccountGet(campaignID uint64) (*Account, bool, error) {
	account, ok := m.accounts[campaignID]
	if !ok {
		return nil, false, nil
	}
	return account.Clone(), true, nil
}

func (m *mockState) EscrowAccountPut(account *Account) error {
	sanitized, err := SanitizeAccount(account)
	if err != nil {
		return err
	}
	m.accounts[sanitized.CampaignID] = sanitized
	return nil
}

func (m *mockState) EscrowTrustedGet() (*Trusted, error) {
	if m.trusted == nil {
		return nil, nil
	}
	return m.trusted.Clone(), nil
}

func (m *mockState) EscrowTrustedPut(t *Trusted) error {
	m.trusted = t.Clone()
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

var (
	coreAddr         = newTestAddress(0x01)
	crowdfundingAddr = newTestAddress(0x02)
	selfAddr         = newTestAddress(0x03)
)

func newTestEngine(t *testing.T, state *mockState) *Engine {
	t.Helper()
	engine := NewEngine()
	engine.SetState(state)
	if err := engine.Initialize(coreAddr, crowdfundingAddr, selfAddr); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return engine
}

func mustBalance(t *testing.T, engine *Engine, campaignID uint64) *big.Int {
	t.Helper()
	balance, err := engine.Balance(campaignID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

func TestInitializeOneShot(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(t, state)
	if err := engine.Initialize(coreAddr, crowdfundingAddr, selfAddr); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	trusted, err := engine.Trusted()
	if err != nil {
		t.Fatalf("trusted: %v", err)
	}
	if trusted.Core != coreAddr || trusted.Crowdfunding != crowdfundingAddr {
		t.Fatalf("trusted set mutated by rejected call")
	}
}

func TestDepositIncreasesBalance(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected balance 1000, got %s", got)
	}
	if err := engine.Deposit(1, big.NewInt(250)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(1250)) != 0 {
		t.Fatalf("expected balance 1250, got %s", got)
	}
}

func TestDepositRejectsNonPositiveAmounts(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := engine.Deposit(1, big.NewInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestUnknownCampaignBalanceIsZero(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if got := mustBalance(t, engine, 99); got.Sign() != 0 {
		t.Fatalf("expected zero balance for unknown campaign, got %s", got)
	}
}

func TestWithdrawalAuthorizationGating(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	wallet := newTestAddress(0xAA)

	if err := engine.Withdraw(wallet, 1, big.NewInt(500)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("rejected withdrawal changed balance: %s", got)
	}

	if err := engine.AuthorizeWithdrawal(coreAddr, 1, wallet); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := engine.Withdraw(wallet, 1, big.NewInt(500)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected balance 500, got %s", got)
	}
}

func TestAuthorizationSlotOverwriteRevokes(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	first := newTestAddress(0xAA)
	second := newTestAddress(0xBB)

	if err := engine.AuthorizeWithdrawal(coreAddr, 1, first); err != nil {
		t.Fatalf("authorize first: %v", err)
	}
	if err := engine.AuthorizeWithdrawal(coreAddr, 1, second); err != nil {
		t.Fatalf("authorize second: %v", err)
	}
	if err := engine.Withdraw(first, 1, big.NewInt(100)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected first principal revoked, got %v", err)
	}
	if err := engine.Withdraw(second, 1, big.NewInt(100)); err != nil {
		t.Fatalf("withdraw by current slot: %v", err)
	}
}

func TestAuthorizeRequiresTrustedOrAdmin(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	outsider := newTestAddress(0xCC)
	if err := engine.AuthorizeWithdrawal(outsider, 1, outsider); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	admin := newTestAddress(0xAD)
	engine.SetAdminView(stubAdmins{admins: map[[20]byte]bool{admin: true}})
	if err := engine.AuthorizeWithdrawal(admin, 1, outsider); err != nil {
		t.Fatalf("admin authorize: %v", err)
	}
}

func TestWithdrawExceedingBalanceFails(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(400)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	wallet := newTestAddress(0xAA)
	if err := engine.AuthorizeWithdrawal(coreAddr, 1, wallet); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := engine.Withdraw(wallet, 1, big.NewInt(500)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("failed withdrawal changed balance: %s", got)
	}
}

func TestFeeCollectionUsesSeparateSlot(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	withdrawer := newTestAddress(0xAA)
	collector := newTestAddress(0xBB)
	if err := engine.AuthorizeWithdrawal(coreAddr, 1, withdrawer); err != nil {
		t.Fatalf("authorize withdrawal: %v", err)
	}
	if err := engine.AuthorizeFeeCollection(coreAddr, 1, collector); err != nil {
		t.Fatalf("authorize fee collection: %v", err)
	}
	if err := engine.CollectFee(withdrawer, 1, big.NewInt(10)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("withdrawer must not collect fees, got %v", err)
	}
	if err := engine.CollectFee(collector, 1, big.NewInt(10)); err != nil {
		t.Fatalf("collect fee: %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("expected balance 990, got %s", got)
	}
}

func TestConservationAcrossInterleavings(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	wallet := newTestAddress(0xAA)
	if err := engine.AuthorizeWithdrawal(coreAddr, 7, wallet); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	// Each withdrawal trails the deposit after it so the running balance
	// always covers the debit.
	deposits := []int64{100, 300, 50, 1000}
	withdrawals := []int64{200, 30, 700}
	expected := big.NewInt(0)
	for i, amount := range deposits {
		if err := engine.Deposit(7, big.NewInt(amount)); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
		expected.Add(expected, big.NewInt(amount))
		if i > 0 && i-1 < len(withdrawals) {
			if err := engine.Withdraw(wallet, 7, big.NewInt(withdrawals[i-1])); err != nil {
				t.Fatalf("withdraw %d: %v", i-1, err)
			}
			expected.Sub(expected, big.NewInt(withdrawals[i-1]))
		}
		if got := mustBalance(t, engine, 7); got.Cmp(expected) != 0 {
			t.Fatalf("conservation violated at step %d: got %s want %s", i, got, expected)
		}
	}

	overdraw := new(big.Int).Add(expected, big.NewInt(1))
	if err := engine.Withdraw(wallet, 7, overdraw); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance on overdraw, got %v", err)
	}
	if got := mustBalance(t, engine, 7); got.Cmp(expected) != 0 {
		t.Fatalf("overdraw must not change balance: got %s want %s", got, expected)
	}
}

func TestPauseBlocksMutationsButNotEmergency(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	engine.SetPauseView(stubPauses{paused: true})

	if err := engine.Deposit(1, big.NewInt(1)); !errors.Is(err, common.ErrSystemPaused) {
		t.Fatalf("expected pause rejection, got %v", err)
	}
	if err := engine.AuthorizeWithdrawal(coreAddr, 1, newTestAddress(0xAA)); err == nil {
		t.Fatalf("expected pause rejection on authorize")
	}

	recipient := newTestAddress(0xFE)
	if err := engine.EmergencyWithdraw(coreAddr, 1, big.NewInt(400), recipient); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	if got := mustBalance(t, engine, 1); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected balance 600 after emergency withdraw, got %s", got)
	}
}

func TestEmergencyWithdrawRequiresPauseAndCore(t *testing.T) {
	engine := newTestEngine(t, newMockState())
	if err := engine.Deposit(1, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	recipient := newTestAddress(0xFE)

	if err := engine.EmergencyWithdraw(coreAddr, 1, big.NewInt(100), recipient); err == nil {
		t.Fatalf("expected rejection while unpaused")
	}
	engine.SetPauseView(stubPauses{paused: true})
	if err := engine.EmergencyWithdraw(newTestAddress(0xAA), 1, big.NewInt(100), recipient); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-core caller, got %v", err)
	}
}
