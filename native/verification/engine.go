package verification

import (
	"errors"
	"math/big"

	"filmvault/core/events"
	"filmvault/native/common"
)

var (
	errNilState = errors.New("verification engine: state not configured")

	// ErrNotAuthorized is returned for callers lacking the required role.
	ErrNotAuthorized = errors.New("verification: not authorized")
	// ErrOutOfRange is returned when a fee multiplier falls outside [50, 200];
	// the stored multiplier is unchanged.
	ErrOutOfRange = errors.New("verification: fee multiplier out of range")
	// ErrNotVerified is returned when renewing without an active verification.
	ErrNotVerified = errors.New("verification: filmmaker not verified")
	// ErrRenewalTooEarly is returned for renewals before the renewal window.
	ErrRenewalTooEarly = errors.New("verification: renewal too early")
	// ErrInsufficientBalance is returned when distributing a zero balance or
	// withdrawing more than is available.
	ErrInsufficientBalance = errors.New("verification: insufficient balance")
	// ErrTreasuryNotSet is returned when distributing before both treasuries
	// have been configured.
	ErrTreasuryNotSet = errors.New("verification: treasury not configured")
	// ErrAlreadyVerified is returned when registering a filmmaker that already
	// holds an active verification.
	ErrAlreadyVerified = errors.New("verification: filmmaker already verified")
	// ErrInvalidTier is returned for an unsupported verification tier.
	ErrInvalidTier = errors.New("verification: invalid tier")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("verification: amount must be positive")
	// ErrDistributionNotFound is returned for unknown period ids.
	ErrDistributionNotFound = errors.New("verification: distribution not found")
)

type engineState interface {
	VerificationRecordGet(filmmaker [20]byte) (*Record, bool, error)
	VerificationRecordPut(*Record) error
	FeeMultiplierGet() (uint64, error)
	FeeMultiplierPut(uint64) error
	DistributableBalanceGet() (*big.Int, error)
	DistributableBalancePut(*big.Int) error
	DistributionGet(period uint64) (*DistributionRecord, bool, error)
	DistributionPut(*DistributionRecord) error
	DistributionCounterGet() (uint64, error)
	DistributionCounterPut(uint64) error
	TreasuriesGet() (*Treasuries, error)
	TreasuriesPut(*Treasuries) error
}

// Engine implements the verification fee schedule, renewal workflow, and the
// periodic 70/30 revenue split between the platform and verifier treasuries.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	pauses   common.PauseView
	admins   common.AdminView
	coreAddr [20]byte
	heightFn func() uint64
}

// NewEngine constructs a verification engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		heightFn: func() uint64 { return 0 },
	}
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

// SetAdminView wires admin membership checks used by privileged entry points.
func (e *Engine) SetAdminView(a common.AdminView) { e.admins = a }

// SetCoreAddress configures the core module address allowed to perform
// emergency withdrawals.
func (e *Engine) SetCoreAddress(addr [20]byte) { e.coreAddr = addr }

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

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.admins == nil || !e.admins.IsAdmin(caller) {
		return ErrNotAuthorized
	}
	return nil
}

func (e *Engine) multiplier() (uint64, error) {
	multiplier, err := e.state.FeeMultiplierGet()
	if err != nil {
		return 0, err
	}
	if multiplier == 0 {
		return DefaultFeeMultiplier, nil
	}
	return multiplier, nil
}

func scaleFee(base int64, multiplier uint64) *big.Int {
	fee := new(big.Int).Mul(big.NewInt(base), new(big.Int).SetUint64(multiplier))
	return fee.Div(fee, big.NewInt(100))
}

// AdjustFeeMultiplier replaces the global multiplier. Admin-only; values
// outside [50, 200] fail with ErrOutOfRange and leave the multiplier intact.
func (e *Engine) AdjustFeeMultiplier(caller [20]byte, multiplier uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if multiplier < MinFeeMultiplier || multiplier > MaxFeeMultiplier {
		return ErrOutOfRange
	}
	if err := e.state.FeeMultiplierPut(multiplier); err != nil {
		return err
	}
	e.emit(events.FeeMultiplierAdjusted{Caller: caller, Multiplier: multiplier})
	return nil
}

// CurrentFees returns both base fees scaled by the current multiplier.
func (e *Engine) CurrentFees() (*FeeSchedule, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	multiplier, err := e.multiplier()
	if err != nil {
		return nil, err
	}
	return &FeeSchedule{
		Basic:      scaleFee(BaseFeeBasic, multiplier),
		Standard:   scaleFee(BaseFeeStandard, multiplier),
		Multiplier: multiplier,
	}, nil
}

// RenewalFee is the effective STANDARD fee reduced by a flat 50% discount.
// The multiplier is applied first, then the discount.
func (e *Engine) RenewalFee() (*big.Int, error) {
	fees, err := e.CurrentFees()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Div(fees.Standard, big.NewInt(2)), nil
}

func (e *Engine) tierFee(tier Tier) (*big.Int, error) {
	fees, err := e.CurrentFees()
	if err != nil {
		return nil, err
	}
	switch tier {
	case TierBasic:
		return fees.Basic, nil
	case TierStandard:
		return fees.Standard, nil
	default:
		return nil, ErrInvalidTier
	}
}

func (e *Engine) creditDistributable(amount *big.Int) error {
	balance, err := e.state.DistributableBalanceGet()
	if err != nil {
		return err
	}
	if balance == nil {
		balance = big.NewInt(0)
	}
	return e.state.DistributableBalancePut(new(big.Int).Add(balance, amount))
}

// RegisterVerification seeds an initial verification record for a filmmaker,
// charging the effective tier fee into the distributable balance. Admin-only.
func (e *Engine) RegisterVerification(caller, filmmaker [20]byte, tier Tier) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return nil, err
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	now := e.height()
	existing, ok, err := e.state.VerificationRecordGet(filmmaker)
	if err != nil {
		return nil, err
	}
	if ok && existing.Verified && existing.Expiry > now {
		return nil, ErrAlreadyVerified
	}
	fee, err := e.tierFee(tier)
	if err != nil {
		return nil, err
	}
	record := &Record{
		Filmmaker: filmmaker,
		Verified:  true,
		Tier:      tier,
		Expiry:    now + PeriodBlocks,
		Payments:  []Payment{{Amount: fee, Block: now}},
	}
	if ok {
		record.Payments = append(existing.Payments, record.Payments...)
	}
	if err := e.state.VerificationRecordPut(record); err != nil {
		return nil, err
	}
	if err := e.creditDistributable(fee); err != nil {
		return nil, err
	}
	e.emit(events.VerificationRegistered{
		Filmmaker: filmmaker,
		Tier:      tier.String(),
		Fee:       new(big.Int).Set(fee),
		Expiry:    record.Expiry,
	})
	return record.Clone(), nil
}

// RenewVerification charges the renewal fee, extends the expiry by one period
// and appends a payment-history entry. Only the filmmaker may renew their own
// record, only inside the renewal window preceding expiry.
func (e *Engine) RenewVerification(caller, filmmaker [20]byte) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return nil, err
	}
	if caller != filmmaker {
		return nil, ErrNotAuthorized
	}
	record, ok, err := e.state.VerificationRecordGet(filmmaker)
	if err != nil {
		return nil, err
	}
	now := e.height()
	if !ok || !record.Verified || record.Expiry <= now {
		return nil, ErrNotVerified
	}
	if record.Expiry-now > RenewalWindowBlocks {
		return nil, ErrRenewalTooEarly
	}
	fee, err := e.RenewalFee()
	if err != nil {
		return nil, err
	}
	record.Expiry += PeriodBlocks
	record.Payments = append(record.Payments, Payment{Amount: new(big.Int).Set(fee), Block: now})
	if err := e.state.VerificationRecordPut(record); err != nil {
		return nil, err
	}
	if err := e.creditDistributable(fee); err != nil {
		return nil, err
	}
	e.emit(events.VerificationRenewed{
		Filmmaker: filmmaker,
		Fee:       new(big.Int).Set(fee),
		Expiry:    record.Expiry,
		Block:     now,
	})
	return record.Clone(), nil
}

// SetPlatformTreasury configures the platform treasury principal. Admin-only.
func (e *Engine) SetPlatformTreasury(caller, treasury [20]byte) error {
	return e.setTreasury(caller, treasury, true)
}

// SetVerifiersTreasury configures the verifiers treasury principal. Admin-only.
func (e *Engine) SetVerifiersTreasury(caller, treasury [20]byte) error {
	return e.setTreasury(caller, treasury, false)
}

func (e *Engine) setTreasury(caller, treasury [20]byte, platform bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	treasuries, err := e.state.TreasuriesGet()
	if err != nil {
		return err
	}
	treasuries = treasuries.Clone()
	if platform {
		treasuries.Platform = treasury
	} else {
		treasuries.Verifiers = treasury
	}
	return e.state.TreasuriesPut(treasuries)
}

// DistributeRevenue splits the entire distributable balance 70/30 between the
// platform and verifiers treasuries. The two shares always sum exactly to the
// pre-distribution balance; a zero balance fails with ErrInsufficientBalance.
func (e *Engine) DistributeRevenue(caller [20]byte) (*DistributionRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return nil, err
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	treasuries, err := e.state.TreasuriesGet()
	if err != nil {
		return nil, err
	}
	treasuries = treasuries.Clone()
	if treasuries.Platform == ([20]byte{}) || treasuries.Verifiers == ([20]byte{}) {
		return nil, ErrTreasuryNotSet
	}
	balance, err := e.state.DistributableBalanceGet()
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Sign() <= 0 {
		return nil, ErrInsufficientBalance
	}
	platformShare := new(big.Int).Mul(balance, big.NewInt(platformSharePercent))
	platformShare.Div(platformShare, big.NewInt(100))
	verifierShare := new(big.Int).Sub(balance, platformShare)

	period, err := e.state.DistributionCounterGet()
	if err != nil {
		return nil, err
	}
	period++
	record := &DistributionRecord{
		Period:        period,
		PlatformShare: platformShare,
		VerifierShare: verifierShare,
		DistributedAt: e.height(),
	}
	if err := e.state.DistributionPut(record); err != nil {
		return nil, err
	}
	if err := e.state.DistributionCounterPut(period); err != nil {
		return nil, err
	}
	treasuries.PlatformAccrued = new(big.Int).Add(treasuries.PlatformAccrued, platformShare)
	treasuries.VerifiersAccrued = new(big.Int).Add(treasuries.VerifiersAccrued, verifierShare)
	if err := e.state.TreasuriesPut(treasuries); err != nil {
		return nil, err
	}
	if err := e.state.DistributableBalancePut(big.NewInt(0)); err != nil {
		return nil, err
	}
	e.emit(events.RevenueDistributed{
		Period:        period,
		PlatformShare: new(big.Int).Set(platformShare),
		VerifierShare: new(big.Int).Set(verifierShare),
		Platform:      treasuries.Platform,
		Verifiers:     treasuries.Verifiers,
	})
	return record.Clone(), nil
}

// PaymentHistory returns the ordered payment history for a filmmaker. Unknown
// filmmakers report an empty history.
func (e *Engine) PaymentHistory(filmmaker [20]byte) ([]Payment, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.VerificationRecordGet(filmmaker)
	if err != nil || !ok {
		return nil, err
	}
	return record.Clone().Payments, nil
}

// RecordOf returns the verification record for a filmmaker.
func (e *Engine) RecordOf(filmmaker [20]byte) (*Record, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	record, ok, err := e.state.VerificationRecordGet(filmmaker)
	if err != nil || !ok {
		return nil, false, err
	}
	return record.Clone(), true, nil
}

// FeeAdjustmentStatus reports the stored multiplier together with its bounds.
func (e *Engine) FeeAdjustmentStatus() (uint64, uint64, uint64, error) {
	if e == nil || e.state == nil {
		return 0, 0, 0, errNilState
	}
	multiplier, err := e.multiplier()
	if err != nil {
		return 0, 0, 0, err
	}
	return multiplier, uint64(MinFeeMultiplier), uint64(MaxFeeMultiplier), nil
}

// Distribution returns the immutable record for one period id.
func (e *Engine) Distribution(period uint64) (*DistributionRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.DistributionGet(period)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDistributionNotFound
	}
	return record.Clone(), nil
}

// AvailableBalance returns the current distributable balance.
func (e *Engine) AvailableBalance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	balance, err := e.state.DistributableBalanceGet()
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

// Treasuries returns the configured treasury principals and accrued totals.
func (e *Engine) Treasuries() (*Treasuries, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	treasuries, err := e.state.TreasuriesGet()
	if err != nil {
		return nil, err
	}
	return treasuries.Clone(), nil
}

// EmergencyWithdraw moves funds out of the distributable balance while the
// platform is paused. Only the core module may invoke it.
func (e *Engine) EmergencyWithdraw(caller [20]byte, amount *big.Int, recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.RequirePaused(e.pauses); err != nil {
		return err
	}
	if caller != e.coreAddr || e.coreAddr == ([20]byte{}) {
		return ErrNotAuthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.DistributableBalanceGet()
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := e.state.DistributableBalancePut(new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	e.emit(events.VerificationEmergencyWithdrawn{Amount: new(big.Int).Set(amount), Recipient: recipient})
	return nil
}
