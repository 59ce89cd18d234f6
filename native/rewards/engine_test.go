package rewards

import (
	"errors"
	"testing"

	"filmvault/native/common"
)

type mockState struct {
	tokens  map[uint64]*Token
	counter uint64
}

func newMockState() *mockState {
	return &mockState{tokens: make(map[uint64]*Token)}
}

func (m *mockState) RewardTokenGet(id uint64) (*Token, bool, error) {
	token, ok := m.tokens[id]
	if !ok {
		return nil, false, nil
	}
	return token.Clone(), true, nil
}

func (m *mockState) RewardTokenPut(token *Token) error {
	sanitized, err := SanitizeToken(token)
	if err != nil {
		return err
	}
	m.tokens[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) RewardCounterGet() (uint64, error) { return m.counter, nil }

func (m *mockState) RewardCounterPut(v uint64) error {
	m.counter = v
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

var minterAddr = newTestAddress(0x02)

func newTestEngine(state *mockState) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetAuthorizedMinters(minterAddr)
	return engine
}

func TestMintSequentialIDs(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	recipient := newTestAddress(0xAA)

	first, err := engine.Mint(minterAddr, recipient, 10, 1, "Gold")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := engine.Mint(minterAddr, recipient, 10, 2, "Platinum")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first, second)
	}
	token, err := engine.TokenMetadata(2)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if token.Tier != 2 || token.Description != "Platinum" || token.CampaignID != 10 {
		t.Fatalf("unexpected token metadata: %+v", token)
	}
}

func TestMintUnauthorizedConsumesNoID(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	outsider := newTestAddress(0xCC)

	if _, err := engine.Mint(outsider, newTestAddress(0xAA), 10, 1, "Gold"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if state.counter != 0 {
		t.Fatalf("unauthorized mint consumed an id")
	}

	id, err := engine.Mint(minterAddr, newTestAddress(0xAA), 10, 1, "Gold")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1 after rejected mint, got %d", id)
	}
}

func TestAdminsMayMint(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	admin := newTestAddress(0xAD)
	engine.SetAdminView(stubAdmins{admins: map[[20]byte]bool{admin: true}})

	if _, err := engine.Mint(admin, newTestAddress(0xAA), 10, 1, "Gold"); err != nil {
		t.Fatalf("admin mint: %v", err)
	}
}

func TestBatchMintAtomicity(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	a := newTestAddress(0xAA)
	b := newTestAddress(0xBB)

	ids, err := engine.BatchMint(minterAddr, [][20]byte{a, b}, []uint32{1, 2}, []string{"Gold", "Platinum"}, 10)
	if err != nil {
		t.Fatalf("batch mint: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected ids [1 2], got %v", ids)
	}
	first, err := engine.TokenMetadata(1)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if first.Owner != a {
		t.Fatalf("token 1 owned by wrong principal")
	}
	second, err := engine.TokenMetadata(2)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if second.Owner != b {
		t.Fatalf("token 2 owned by wrong principal")
	}
}

func TestBatchMintLengthMismatchMintsNothing(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	a := newTestAddress(0xAA)

	if _, err := engine.BatchMint(minterAddr, [][20]byte{a}, []uint32{1, 2}, []string{"X"}, 10); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if state.counter != 0 || len(state.tokens) != 0 {
		t.Fatalf("mismatched batch minted tokens")
	}
}

func TestBatchMintZeroRecipientMintsNothing(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	a := newTestAddress(0xAA)

	if _, err := engine.BatchMint(minterAddr, [][20]byte{a, {}}, []uint32{1, 2}, []string{"Gold", "Platinum"}, 10); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
	if state.counter != 0 || len(state.tokens) != 0 {
		t.Fatalf("invalid batch minted tokens")
	}
}

func TestTokenMetadataNotFound(t *testing.T) {
	engine := newTestEngine(newMockState())
	if _, err := engine.TokenMetadata(42); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestPauseBlocksMinting(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	engine.SetPauseView(stubPauses{paused: true})

	if _, err := engine.Mint(minterAddr, newTestAddress(0xAA), 10, 1, "Gold"); !errors.Is(err, common.ErrSystemPaused) {
		t.Fatalf("expected pause rejection, got %v", err)
	}
	if state.counter != 0 {
		t.Fatalf("paused mint consumed an id")
	}
}
