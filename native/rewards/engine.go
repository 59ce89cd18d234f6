package rewards

import (
	"errors"

	"filmvault/core/events"
	"filmvault/native/common"
)

var (
	errNilState = errors.New("rewards engine: state not configured")

	// ErrNotAuthorized is returned when the caller is neither an authorized
	// minter module nor an admin. No token id is consumed.
	ErrNotAuthorized = errors.New("rewards: not authorized")
	// ErrLengthMismatch is returned when batch inputs disagree in length;
	// nothing is minted.
	ErrLengthMismatch = errors.New("rewards: input lengths mismatch")
	// ErrInvalidRecipient is returned for a zero recipient address.
	ErrInvalidRecipient = errors.New("rewards: invalid recipient")
	// ErrTokenNotFound is returned when querying metadata for an unminted id.
	ErrTokenNotFound = errors.New("rewards: token not found")
)

type engineState interface {
	RewardTokenGet(id uint64) (*Token, bool, error)
	RewardTokenPut(*Token) error
	RewardCounterGet() (uint64, error)
	RewardCounterPut(uint64) error
}

// Engine mints reward tokens with sequential ids. Batch mints validate every
// input before touching the counter so either the whole batch commits or none
// of it does.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	pauses   common.PauseView
	admins   common.AdminView
	minters  [][20]byte
	heightFn func() uint64
}

// NewEngine constructs a rewards engine with a no-op emitter.
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

// SetAdminView wires admin membership checks; admins may always mint.
func (e *Engine) SetAdminView(a common.AdminView) { e.admins = a }

// SetAuthorizedMinters configures the module addresses allowed to mint
// (typically the crowdfunding module and the rewards module itself).
func (e *Engine) SetAuthorizedMinters(addrs ...[20]byte) {
	e.minters = append([][20]byte(nil), addrs...)
}

// SetHeightFunc overrides the block height source recorded on minted tokens.
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

func (e *Engine) isMinter(caller [20]byte) bool {
	for _, minter := range e.minters {
		if caller == minter {
			return true
		}
	}
	return e.admins != nil && e.admins.IsAdmin(caller)
}

// Mint allocates the next sequential token id for the recipient. Unauthorized
// callers fail with ErrNotAuthorized and consume no id.
func (e *Engine) Mint(caller, recipient [20]byte, campaignID uint64, tier uint32, description string) (uint64, error) {
	ids, err := e.mint(caller, [][20]byte{recipient}, []uint32{tier}, []string{description}, campaignID)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// BatchMint mints one token per index in array order, consuming consecutive
// ids. Mismatched input lengths fail with ErrLengthMismatch and mint nothing.
func (e *Engine) BatchMint(caller [20]byte, recipients [][20]byte, tiers []uint32, descriptions []string, campaignID uint64) ([]uint64, error) {
	if len(recipients) != len(tiers) || len(recipients) != len(descriptions) {
		return nil, ErrLengthMismatch
	}
	return e.mint(caller, recipients, tiers, descriptions, campaignID)
}

func (e *Engine) mint(caller [20]byte, recipients [][20]byte, tiers []uint32, descriptions []string, campaignID uint64) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses); err != nil {
		return nil, err
	}
	if !e.isMinter(caller) {
		return nil, ErrNotAuthorized
	}
	counter, err := e.state.RewardCounterGet()
	if err != nil {
		return nil, err
	}
	height := e.height()
	// Validate and stage the whole batch before any write.
	tokens := make([]*Token, len(recipients))
	for i, recipient := range recipients {
		token, err := SanitizeToken(&Token{
			ID:          counter + uint64(i) + 1,
			Owner:       recipient,
			CampaignID:  campaignID,
			Tier:        tiers[i],
			Description: descriptions[i],
			MintedAt:    height,
		})
		if err != nil {
			if recipient == ([20]byte{}) {
				return nil, ErrInvalidRecipient
			}
			return nil, err
		}
		tokens[i] = token
	}
	ids := make([]uint64, len(tokens))
	for i, token := range tokens {
		if err := e.state.RewardTokenPut(token); err != nil {
			return nil, err
		}
		ids[i] = token.ID
	}
	if err := e.state.RewardCounterPut(counter + uint64(len(tokens))); err != nil {
		return nil, err
	}
	for _, token := range tokens {
		e.emit(events.RewardMinted{
			TokenID:     token.ID,
			Owner:       token.Owner,
			CampaignID:  token.CampaignID,
			Tier:        token.Tier,
			Description: token.Description,
		})
	}
	return ids, nil
}

// TokenMetadata returns the stored token record for the id.
func (e *Engine) TokenMetadata(id uint64) (*Token, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	token, ok, err := e.state.RewardTokenGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return token.Clone(), nil
}

// TotalMinted reports the current value of the sequential id counter.
func (e *Engine) TotalMinted() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.RewardCounterGet()
}
