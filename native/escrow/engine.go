package escrow

import (
	"errors"
	"math/big"

	"filmvault/core/events"
	"filmvault/native/common"
)

const (
	actionWithdraw   = "withdraw"
	actionCollectFee = "collectFee"
)

var (
	errNilState = errors.New("escrow engine: state not configured")

	// ErrAlreadyInitialized is returned when Initialize runs twice.
	ErrAlreadyInitialized = errors.New("escrow: already initialized")
	// ErrNotInitialized is returned when an authorization-gated entry point
	// runs before the trusted caller set has been recorded.
	ErrNotInitialized = errors.New("escrow: not initialized")
	// ErrNotAuthorized is returned when the caller does not match the current
	// authorization slot (or trusted module set) for the requested action.
	ErrNotAuthorized = errors.New("escrow: not authorized")
	// ErrInsufficientBalance is returned when a withdrawal or fee collection
	// exceeds the campaign balance. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("escrow: insufficient balance")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("escrow: amount must be positive")
)

type engineState interface {
	EscrowAccountGet(campaignID uint64) (*Account, bool, error)
	EscrowAccountPut(*Account) error
	EscrowTrustedGet() (*Trusted, error)
	EscrowTrustedPut(*Trusted) error
}

// Engine implements the per-campaign custody ledger. Deposits are open to
// anyone; withdrawals and fee collections are gated by single-slot
// authorizations that each new grant overwrites.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
	admins  common.AdminView
}

// NewEngine constructs an escrow engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauseView wires the global pause flag consulted before mutations.
func (e *Engine) SetPauseView(p common.PauseView) { e.pauses = p }

// SetAdminView wires admin membership checks used by the authorize entry points.
func (e *Engine) SetAdminView(a common.AdminView) { e.admins = a }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Initialize records the trusted caller addresses used by authorization
// checks. It is one-shot: a second call fails with ErrAlreadyInitialized and
// leaves the stored set untouched.
func (e *Engine) Initialize(core, crowdfunding, self [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	trusted, err := e.state.EscrowTrustedGet()
	if err != nil {
		return err
	}
	if trusted != nil && trusted.Initialized {
		return ErrAlreadyInitialized
	}
	return e.state.EscrowTrustedPut(&Trusted{
		Core:         core,
		Crowdfunding: crowdfunding,
		Self:         self,
		Initialized:  true,
	})
}

// Trusted returns the recorded trusted caller set.
func (e *Engine) Trusted() (*Trusted, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	trusted, err := e.state.EscrowTrustedGet()
	if err != nil {
		return nil, err
	}
	return trusted.Clone(), nil
}

func (e *Engine) loadOrCreate(campaignID uint64) (*Account, error) {
	account, ok, err := e.state.EscrowAccountGet(campaignID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Account{CampaignID: campaignID, Balance: big.NewInt(0)}, nil
	}
	return account, nil
}

// Deposit credits the campaign account, creating it on first use. No
// authorization is required; anyone may contribute.
func (e *Engine) Deposit(campaignID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.loadOrCreate(campaignID)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amt)
	if err := e.state.EscrowAccountPut(account); err != nil {
		return err
	}
	e.emit(events.EscrowDeposited{CampaignID: campaignID, Amount: amt, Balance: cloneBigInt(account.Balance)})
	return nil
}

func (e *Engine) requireAuthorizer(caller [20]byte) error {
	trusted, err := e.state.EscrowTrustedGet()
	if err != nil {
		return err
	}
	if trusted == nil || !trusted.Initialized {
		return ErrNotInitialized
	}
	if caller == trusted.Core || caller == trusted.Crowdfunding || caller == trusted.Self {
		return nil
	}
	if e.admins != nil && e.admins.IsAdmin(caller) {
		return nil
	}
	return ErrNotAuthorized
}

// AuthorizeWithdrawal overwrites the single withdrawer slot for the campaign.
// Only the trusted modules or an admin may grant; no funds move.
func (e *Engine) AuthorizeWithdrawal(caller [20]byte, campaignID uint64, principal [20]byte) error {
	return e.authorize(caller, campaignID, principal, actionWithdraw)
}

// AuthorizeFeeCollection overwrites the single fee-collector slot for the
// campaign. Only the trusted modules or an admin may grant; no funds move.
func (e *Engine) AuthorizeFeeCollection(caller [20]byte, campaignID uint64, principal [20]byte) error {
	return e.authorize(caller, campaignID, principal, actionCollectFee)
}

func (e *Engine) authorize(caller [20]byte, campaignID uint64, principal [20]byte, action string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireAuthorizer(caller); err != nil {
		return err
	}
	account, err := e.loadOrCreate(campaignID)
	if err != nil {
		return err
	}
	grant := principal
	switch action {
	case actionWithdraw:
		account.Withdrawer = &grant
	case actionCollectFee:
		account.FeeCollector = &grant
	}
	if err := e.state.EscrowAccountPut(account); err != nil {
		return err
	}
	e.emit(events.EscrowAuthorized{CampaignID: campaignID, Action: action, Principal: principal, Caller: caller})
	return nil
}

// Withdraw debits the campaign account. The caller must equal the current
// withdrawer slot and the amount must not exceed the balance; in both failure
// cases the balance is unchanged.
func (e *Engine) Withdraw(caller [20]byte, campaignID uint64, amount *big.Int) error {
	balance, err := e.debit(caller, campaignID, amount, actionWithdraw)
	if err != nil {
		return err
	}
	e.emit(events.EscrowWithdrawn{CampaignID: campaignID, Caller: caller, Amount: cloneBigInt(amount), Balance: balance})
	return nil
}

// CollectFee debits the campaign account through the fee-collector slot with
// the same validation ordering as Withdraw.
func (e *Engine) CollectFee(caller [20]byte, campaignID uint64, amount *big.Int) error {
	balance, err := e.debit(caller, campaignID, amount, actionCollectFee)
	if err != nil {
		return err
	}
	e.emit(events.EscrowFeeCollected{CampaignID: campaignID, Caller: caller, Amount: cloneBigInt(amount), Balance: balance})
	return nil
}

func (e *Engine) debit(caller [20]byte, campaignID uint64, amount *big.Int, action string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return nil, err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	account, ok, err := e.state.EscrowAccountGet(campaignID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}
	var slot *[20]byte
	switch action {
	case actionWithdraw:
		slot = account.Withdrawer
	case actionCollectFee:
		slot = account.FeeCollector
	}
	if slot == nil || *slot != caller {
		return nil, ErrNotAuthorized
	}
	if account.Balance.Cmp(amt) < 0 {
		return nil, ErrInsufficientBalance
	}
	account.Balance = new(big.Int).Sub(account.Balance, amt)
	if err := e.state.EscrowAccountPut(account); err != nil {
		return nil, err
	}
	return cloneBigInt(account.Balance), nil
}

// Balance returns the campaign balance. Unknown campaigns report zero rather
// than an error, matching the additive-on-first-deposit ledger semantics.
func (e *Engine) Balance(campaignID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, ok, err := e.state.EscrowAccountGet(campaignID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return cloneBigInt(account.Balance), nil
}

// Account returns the full account record for read-only consumers.
func (e *Engine) Account(campaignID uint64) (*Account, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	account, ok, err := e.state.EscrowAccountGet(campaignID)
	if err != nil || !ok {
		return nil, false, err
	}
	return account.Clone(), true, nil
}

// EmergencyWithdraw moves funds out of a campaign account while the platform
// is paused, bypassing the authorization slots. Only the core module may
// invoke it, and only while paused.
func (e *Engine) EmergencyWithdraw(caller [20]byte, campaignID uint64, amount *big.Int, recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.RequirePaused(e.pauses); err != nil {
		return err
	}
	trusted, err := e.state.EscrowTrustedGet()
	if err != nil {
		return err
	}
	if trusted == nil || !trusted.Initialized {
		return ErrNotInitialized
	}
	if caller != trusted.Core {
		return ErrNotAuthorized
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, ok, err := e.state.EscrowAccountGet(campaignID)
	if err != nil {
		return err
	}
	if !ok || account.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	account.Balance = new(big.Int).Sub(account.Balance, amt)
	if err := e.state.EscrowAccountPut(account); err != nil {
		return err
	}
	e.emit(events.EscrowEmergencyWithdrawn{CampaignID: campaignID, Amount: amt, Recipient: recipient})
	return nil
}
