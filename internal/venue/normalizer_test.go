package venue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talaria/internal/matching"
	"talaria/internal/tick"
	"talaria/internal/venue"
)

func newNormalizer(t *testing.T) venue.Normalizer {
	t.Helper()
	return venue.Normalizer{
		PriceTick: tick.MustNew(1000),
		SizeTick:  tick.MustNew(1000),
	}
}

func TestToTradeMakerSide(t *testing.T) {
	n := newNormalizer(t)

	trade, err := n.ToTrade(venue.TradeMessage{
		EventType:    venue.EventTypeTrade,
		Time:         123,
		Price:        "100.5",
		Size:         "2.5",
		BuyerID:      1,
		SellerID:     2,
		MakerIsBuyer: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100500), trade.Price)
	assert.Equal(t, uint64(2500), trade.Size)
	assert.Equal(t, matching.Bid, trade.MakerSide)

	trade, err = n.ToTrade(venue.TradeMessage{
		EventType:    venue.EventTypeTrade,
		Price:        "100",
		Size:         "1",
		MakerIsBuyer: false,
	})
	require.NoError(t, err)
	assert.Equal(t, matching.Ask, trade.MakerSide)
}

func TestToLimitUpdatesOrdering(t *testing.T) {
	n := newNormalizer(t)

	updates, err := n.ToLimitUpdates(venue.DepthUpdateMessage{
		EventType: venue.EventTypeDepthUpdate,
		FirstU:    10,
		LastU:     12,
		Bids:      [][]string{{"100", "1"}, {"99", "2"}},
		Asks:      [][]string{{"101", "0"}},
	})
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, matching.Bid, updates[0].Side)
	assert.Equal(t, matching.Bid, updates[1].Side)
	assert.Equal(t, matching.Ask, updates[2].Side)
	assert.Equal(t, uint64(0), updates[2].Size, "zero size denotes limit removal")
}

func TestToLimitUpdatesRejectsMalformedTuple(t *testing.T) {
	n := newNormalizer(t)

	_, err := n.ToLimitUpdates(venue.DepthUpdateMessage{
		EventType: venue.EventTypeDepthUpdate,
		Bids:      [][]string{{"100"}},
	})
	assert.ErrorIs(t, err, venue.ErrParse)
}

func TestToLimitUpdatesRejectsConversionError(t *testing.T) {
	n := newNormalizer(t)

	_, err := n.ToLimitUpdates(venue.DepthUpdateMessage{
		EventType: venue.EventTypeDepthUpdate,
		Bids:      [][]string{{"not-a-number", "1"}},
	})
	assert.ErrorIs(t, err, venue.ErrConversion)
}

func TestToSnapshot(t *testing.T) {
	n := newNormalizer(t)

	snap, err := n.ToSnapshot(venue.SnapshotMessage{
		LastUpdateID: 42,
		Bids:         [][]string{{"100", "1"}},
		Asks:         [][]string{{"101", "2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), snap.LastUpdateID)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
}
