package venue

import (
	"errors"
	"fmt"

	"talaria/internal/matching"
	"talaria/internal/tick"
)

// ErrParse is returned when a venue payload is structurally malformed
// (wrong event type, missing fields). Individual message parse errors are
// non-fatal to an ingest session; the message is logged and dropped.
var ErrParse = errors.New("venue: malformed payload")

// ErrConversion wraps a tick.ErrMalformed/tick.ErrNotAligned failure while
// normalizing a decimal field.
var ErrConversion = errors.New("venue: conversion error")

// LimitUpdate is a normalized book-level change. A zero Size means the
// limit is now empty and should be removed from any locally-maintained
// book.
type LimitUpdate struct {
	Side  matching.Side
	Price uint64
	Size  uint64
}

// Trade is a normalized executed trade.
type Trade struct {
	Price     uint64
	Size      uint64
	// MakerSide carries the venue's own definition of which side was
	// providing liquidity verbatim (see Normalizer.ToTrade doc comment).
	MakerSide matching.Side
	Time      uint64
	BuyerID   uint64
	SellerID  uint64
}

// Snapshot is a normalized full-book image plus the sequence cursor it is
// current up to.
type Snapshot struct {
	LastUpdateID uint64
	Bids         []LimitUpdate
	Asks         []LimitUpdate
}

// Normalizer is a stateless translator from venue wire messages to
// normalized records, parameterized by the price and size tick units.
type Normalizer struct {
	PriceTick tick.Tick
	SizeTick  tick.Tick
}

// ToTrade converts a venue trade message to a normalized Trade.
//
// The venue's `m` flag is carried verbatim per its own documented
// convention: m == true means the buyer was the resting maker, so the
// maker side is Bid; m == false means the seller was the maker, so the
// maker side is Ask. Implementers integrating a new venue must verify
// this mapping against that venue's current API docs before relying on it.
func (n Normalizer) ToTrade(msg TradeMessage) (Trade, error) {
	if msg.EventType != "" && msg.EventType != EventTypeTrade {
		return Trade{}, fmt.Errorf("%w: unexpected event type %q", ErrParse, msg.EventType)
	}

	price, err := n.PriceTick.ToTicks(msg.Price)
	if err != nil {
		return Trade{}, fmt.Errorf("%w: price: %v", ErrConversion, err)
	}
	size, err := n.SizeTick.ToTicks(msg.Size)
	if err != nil {
		return Trade{}, fmt.Errorf("%w: size: %v", ErrConversion, err)
	}

	makerSide := matching.Ask
	if msg.MakerIsBuyer {
		makerSide = matching.Bid
	}

	return Trade{
		Price:     price,
		Size:      size,
		MakerSide: makerSide,
		Time:      msg.Time,
		BuyerID:   msg.BuyerID,
		SellerID:  msg.SellerID,
	}, nil
}

// ToLimitUpdates converts a venue depth-update message's bid and ask
// tuples into normalized LimitUpdate records, bids first then asks, in
// wire order within each side.
func (n Normalizer) ToLimitUpdates(msg DepthUpdateMessage) ([]LimitUpdate, error) {
	if msg.EventType != "" && msg.EventType != EventTypeDepthUpdate {
		return nil, fmt.Errorf("%w: unexpected event type %q", ErrParse, msg.EventType)
	}

	updates := make([]LimitUpdate, 0, len(msg.Bids)+len(msg.Asks))

	bids, err := n.convertLevels(msg.Bids, matching.Bid)
	if err != nil {
		return nil, err
	}
	asks, err := n.convertLevels(msg.Asks, matching.Ask)
	if err != nil {
		return nil, err
	}

	updates = append(updates, bids...)
	updates = append(updates, asks...)
	return updates, nil
}

// ToSnapshot converts a venue book snapshot.
func (n Normalizer) ToSnapshot(msg SnapshotMessage) (Snapshot, error) {
	bids, err := n.convertLevels(msg.Bids, matching.Bid)
	if err != nil {
		return Snapshot{}, err
	}
	asks, err := n.convertLevels(msg.Asks, matching.Ask)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		LastUpdateID: msg.LastUpdateID,
		Bids:         bids,
		Asks:         asks,
	}, nil
}

func (n Normalizer) convertLevels(levels [][]string, side matching.Side) ([]LimitUpdate, error) {
	out := make([]LimitUpdate, 0, len(levels))
	for _, lvl := range levels {
		if len(lvl) < 2 {
			return nil, fmt.Errorf("%w: level tuple too short", ErrParse)
		}
		price, err := n.PriceTick.ToTicks(lvl[0])
		if err != nil {
			return nil, fmt.Errorf("%w: price: %v", ErrConversion, err)
		}
		size, err := n.SizeTick.ToTicks(lvl[1])
		if err != nil {
			return nil, fmt.Errorf("%w: size: %v", ErrConversion, err)
		}
		out = append(out, LimitUpdate{Side: side, Price: price, Size: size})
	}
	return out, nil
}
