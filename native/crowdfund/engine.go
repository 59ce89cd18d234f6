package crowdfund

import (
	"errors"
	"math/big"
	"strings"

	"filmvault/core/events"
	"filmvault/native/common"
)

var (
	errNilState  = errors.New("crowdfund engine: state not configured")
	errNilEscrow = errors.New("crowdfund engine: escrow ledger not configured")

	// ErrDuplicateCampaign is returned when a campaign id already exists.
	ErrDuplicateCampaign = errors.New("crowdfund: campaign id already exists")
	// ErrCampaignNotFound is returned by mutating entry points for unknown ids.
	ErrCampaignNotFound = errors.New("crowdfund: campaign not found")
	// ErrCampaignNotActive is returned when a contribution targets a campaign
	// past its deadline or already claimed.
	ErrCampaignNotActive = errors.New("crowdfund: campaign not active")
	// ErrNotAuthorized is returned when a non-owner attempts to claim.
	ErrNotAuthorized = errors.New("crowdfund: not authorized")
	// ErrDeadlineNotReached is returned when a claim runs before the deadline.
	ErrDeadlineNotReached = errors.New("crowdfund: deadline not reached")
	// ErrGoalNotReached is returned when a claim runs on an under-funded campaign.
	ErrGoalNotReached = errors.New("crowdfund: funding goal not reached")
	// ErrAlreadyClaimed is returned for repeat claims; nothing changes.
	ErrAlreadyClaimed = errors.New("crowdfund: campaign already claimed")
	// ErrInvalidAmount is returned for zero or negative contribution amounts.
	ErrInvalidAmount = errors.New("crowdfund: amount must be positive")
	// ErrInvalidGoal is returned for a zero funding goal at creation.
	ErrInvalidGoal = errors.New("crowdfund: goal must be positive")
	// ErrInvalidDuration is returned for a zero campaign duration at creation.
	ErrInvalidDuration = errors.New("crowdfund: duration must be positive")
	// ErrInvalidTitle is returned for an empty campaign title.
	ErrInvalidTitle = errors.New("crowdfund: title required")
)

type engineState interface {
	CampaignGet(id uint64) (*Campaign, bool, error)
	CampaignPut(*Campaign) error
	ContributionGet(campaignID uint64, contributor [20]byte) (*big.Int, error)
	ContributionPut(campaignID uint64, contributor [20]byte, total *big.Int) error
}

// escrowLedger is the slice of the escrow engine the lifecycle depends on.
// Contribution and claim calls are synchronous; an escrow failure aborts the
// outer call before any campaign state is written.
type escrowLedger interface {
	Deposit(campaignID uint64, amount *big.Int) error
	AuthorizeWithdrawal(caller [20]byte, campaignID uint64, principal [20]byte) error
	Withdraw(caller [20]byte, campaignID uint64, amount *big.Int) error
}

// Engine implements the campaign lifecycle: creation, contribution tracking,
// and the owner claim workflow backed by the escrow ledger.
type Engine struct {
	state      engineState
	escrow     escrowLedger
	emitter    events.Emitter
	pauses     common.PauseView
	moduleAddr [20]byte
	heightFn   func() uint64
}

// NewEngine constructs a crowdfunding engine with a no-op emitter and a zero
// height source. Callers wire the real dependencies via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		heightFn: func() uint64 { return 0 },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEscrow wires the escrow ledger used for custody of contributions.
func (e *Engine) SetEscrow(ledger escrowLedger) { e.escrow = ledger }

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

// SetModuleAddress configures the address this module presents to the escrow
// ledger when authorizing claim withdrawals.
func (e *Engine) SetModuleAddress(addr [20]byte) { e.moduleAddr = addr }

// SetHeightFunc overrides the block height source. Primarily intended for
// tests to provide deterministic heights.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) height() uint64 {
	if e == nil || e.heightFn == nil {
		return 0
	}
	return e.heightFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Create stores a new campaign in the Active state with the deadline derived
// from the current height plus the requested duration.
func (e *Engine) Create(caller [20]byte, id uint64, title string, goal *big.Int, durationBlocks uint64, tierCount uint32, rewardDescription string, verificationModule [20]byte) (*Campaign, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidTitle
	}
	goalAmt := cloneBigInt(goal)
	if goalAmt.Sign() <= 0 {
		return nil, ErrInvalidGoal
	}
	if durationBlocks == 0 {
		return nil, ErrInvalidDuration
	}
	if _, ok, err := e.state.CampaignGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrDuplicateCampaign
	}
	now := e.height()
	campaign := &Campaign{
		ID:                 id,
		Title:              strings.TrimSpace(title),
		Owner:              caller,
		Goal:               goalAmt,
		Deadline:           now + durationBlocks,
		CreatedAt:          now,
		RewardTiers:        tierCount,
		RewardDescription:  rewardDescription,
		VerificationModule: verificationModule,
		TotalRaised:        big.NewInt(0),
		Status:             CampaignActive,
	}
	if err := e.state.CampaignPut(campaign); err != nil {
		return nil, err
	}
	e.emit(events.CampaignCreated{
		CampaignID: id,
		Owner:      caller,
		Title:      campaign.Title,
		Goal:       cloneBigInt(goalAmt),
		Deadline:   campaign.Deadline,
	})
	return campaign.Clone(), nil
}

// Contribute forwards the amount to escrow custody and, only on escrow
// success, increments the contributor's cumulative record and the campaign's
// raised total. An escrow failure aborts the call with no campaign change.
func (e *Engine) Contribute(caller [20]byte, id uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.escrow == nil {
		return errNilEscrow
	}
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	campaign, ok, err := e.state.CampaignGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCampaignNotFound
	}
	if campaign.StatusAt(e.height()) != CampaignActive {
		return ErrCampaignNotActive
	}
	if err := e.escrow.Deposit(id, amt); err != nil {
		return err
	}
	contributed, err := e.state.ContributionGet(id, caller)
	if err != nil {
		return err
	}
	total := new(big.Int).Add(cloneBigInt(contributed), amt)
	if err := e.state.ContributionPut(id, caller, total); err != nil {
		return err
	}
	campaign.TotalRaised = new(big.Int).Add(campaign.TotalRaised, amt)
	if err := e.state.CampaignPut(campaign); err != nil {
		return err
	}
	e.emit(events.CampaignContributed{
		CampaignID:  id,
		Contributor: caller,
		Amount:      amt,
		TotalRaised: cloneBigInt(campaign.TotalRaised),
	})
	return nil
}

// Claim pays out a funded campaign to its owner. The caller must be the owner,
// the deadline must have passed, and the goal must be met. The engine grants
// the owner the escrow withdrawal slot and withdraws the full raised amount,
// then marks the campaign Claimed. Repeat claims fail and change nothing.
func (e *Engine) Claim(caller [20]byte, id uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.escrow == nil {
		return errNilEscrow
	}
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	campaign, ok, err := e.state.CampaignGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCampaignNotFound
	}
	if caller != campaign.Owner {
		return ErrNotAuthorized
	}
	if campaign.Status == CampaignClaimed {
		return ErrAlreadyClaimed
	}
	if e.height() <= campaign.Deadline {
		return ErrDeadlineNotReached
	}
	if campaign.TotalRaised.Cmp(campaign.Goal) < 0 {
		return ErrGoalNotReached
	}
	payout := cloneBigInt(campaign.TotalRaised)
	if err := e.escrow.AuthorizeWithdrawal(e.moduleAddr, id, campaign.Owner); err != nil {
		return err
	}
	if err := e.escrow.Withdraw(campaign.Owner, id, payout); err != nil {
		return err
	}
	campaign.Status = CampaignClaimed
	if err := e.state.CampaignPut(campaign); err != nil {
		return err
	}
	e.emit(events.CampaignClaimed{CampaignID: id, Owner: campaign.Owner, Amount: payout})
	return nil
}

// Campaign returns the stored campaign with its derived status at the current
// height. Unknown ids report a false flag rather than an error.
func (e *Engine) Campaign(id uint64) (*Campaign, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	campaign, ok, err := e.state.CampaignGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	clone := campaign.Clone()
	clone.Status = campaign.StatusAt(e.height())
	return clone, true, nil
}

// Owner returns the campaign owner principal.
func (e *Engine) Owner(id uint64) ([20]byte, bool, error) {
	campaign, ok, err := e.Campaign(id)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	return campaign.Owner, true, nil
}

// FundingGoal returns the campaign funding goal.
func (e *Engine) FundingGoal(id uint64) (*big.Int, bool, error) {
	campaign, ok, err := e.Campaign(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return campaign.Goal, true, nil
}

// TotalRaised returns the cumulative contributions for the campaign.
func (e *Engine) TotalRaised(id uint64) (*big.Int, bool, error) {
	campaign, ok, err := e.Campaign(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return campaign.TotalRaised, true, nil
}

// IsActive reports whether the campaign accepts contributions at the current
// height. Unknown ids report false.
func (e *Engine) IsActive(id uint64) (bool, error) {
	campaign, ok, err := e.Campaign(id)
	if err != nil || !ok {
		return false, err
	}
	return campaign.Status == CampaignActive, nil
}

// Contribution returns the cumulative amount contributed by one principal.
// Unknown pairs report zero.
func (e *Engine) Contribution(id uint64, contributor [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	contributed, err := e.state.ContributionGet(id, contributor)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(contributed), nil
}
