package explorer

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"filmvault/core/events"
)

func newTestIndexer(t *testing.T, height *uint64) *Indexer {
	t.Helper()
	ix, err := NewIndexer("", func() uint64 { return *height }, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestIndexerRecordsEventAttributes(t *testing.T) {
	height := uint64(42)
	ix := newTestIndexer(t, &height)

	ix.Emit(events.EscrowDeposited{
		CampaignID: 7,
		Amount:     big.NewInt(500),
		Balance:    big.NewInt(1_500),
	})

	records, err := ix.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, events.TypeEscrowDeposited, records[0].Type)
	require.Equal(t, uint64(42), records[0].Height)

	var attrs map[string]string
	require.NoError(t, json.Unmarshal([]byte(records[0].Attributes), &attrs))
	require.Equal(t, "7", attrs["campaignId"])
	require.Equal(t, "500", attrs["amount"])
	require.Equal(t, "1500", attrs["balance"])
}

func TestIndexerQueriesByType(t *testing.T) {
	height := uint64(1)
	ix := newTestIndexer(t, &height)

	ix.Emit(events.EscrowDeposited{CampaignID: 1, Amount: big.NewInt(10), Balance: big.NewInt(10)})
	height = 2
	ix.Emit(events.EscrowDeposited{CampaignID: 1, Amount: big.NewInt(20), Balance: big.NewInt(30)})
	ix.Emit(events.EscrowWithdrawn{CampaignID: 1, Amount: big.NewInt(30), Balance: big.NewInt(0)})

	deposits, err := ix.ByType(events.TypeEscrowDeposited, 10)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	// Newest first.
	require.Equal(t, uint64(2), deposits[0].Height)
	require.Equal(t, uint64(1), deposits[1].Height)

	count, err := ix.CountByType(events.TypeEscrowWithdrawn)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestIndexerIgnoresNilEvents(t *testing.T) {
	height := uint64(0)
	ix := newTestIndexer(t, &height)

	ix.Emit(nil)

	records, err := ix.Recent(10)
	require.NoError(t, err)
	require.Empty(t, records)
}
