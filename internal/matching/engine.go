package matching

import (
	"fmt"
	"strings"

	"github.com/tidwall/btree"

	"talaria/internal/arena"
)

// bookEntry is an arena-resident resting order. next chains entries at the
// same price limit in FIFO (time-priority) order.
type bookEntry struct {
	size    Size
	next    arena.Index
	hasNext bool
	id      OrderId
}

// link points to the head and tail of one non-empty price limit's entry
// list inside the arena.
type link struct {
	head arena.Index
	tail arena.Index
}

// priceLimit is a node of the ordered price map. A nil link means the
// price has been touched before but is currently empty (fully drained).
type priceLimit struct {
	price Price
	link  *link
}

func lessPriceLimit(a, b *priceLimit) bool {
	return a.price < b.price
}

// Engine is a price-time-priority limit order book. It is single-threaded
// and not internally synchronized: callers must serialize access.
type Engine struct {
	limits  *btree.BTreeG[*priceLimit]
	entries *arena.Arena[bookEntry]

	bestBid Price
	bestAsk Price

	maxOrderID OrderId
}

// New preallocates arena capacity entries and returns an empty engine.
func New(capacity int) *Engine {
	return &Engine{
		limits:  btree.NewBTreeG(lessPriceLimit),
		entries: arena.New[bookEntry](capacity),
		bestBid: 0,
		bestAsk: PriceMax,
	}
}

// BestLimits returns (bestBid, bestAsk).
func (e *Engine) BestLimits() (Price, Price) {
	return e.bestBid, e.bestAsk
}

// SizeAtPrice walks the entry chain at price and sums sizes, returning 0
// if the limit is absent or empty.
func (e *Engine) SizeAtPrice(price Price) Size {
	pl, ok := e.limits.Get(&priceLimit{price: price})
	if !ok {
		return 0
	}
	return e.sizeAtLimit(pl)
}

func (e *Engine) sizeAtLimit(pl *priceLimit) Size {
	if pl.link == nil {
		return 0
	}
	var total Size
	idx, ok := pl.link.head, true
	for ok {
		entry := e.entries.Get(idx)
		total += entry.size
		idx, ok = entry.next, entry.hasNext
	}
	return total
}

// exec consumes order against one non-empty price limit's entry chain,
// freeing fully-exhausted entries in FIFO order. It returns the updated
// order, whether the walk stopped mid-list (order fully filled before the
// list drained) and, if so, the index of the first non-exhausted entry.
func (e *Engine) exec(lk *link, order Order) (remaining Order, newHead arena.Index, stoppedMidList bool) {
	idx, ok := lk.head, true
	for ok {
		entry := e.entries.GetMut(idx)
		if entry.size <= order.Size {
			order.Size -= entry.size
			entry.size = 0
			next, hasNext := entry.next, entry.hasNext
			e.entries.Free(idx)
			idx, ok = next, hasNext
		} else {
			entry.size -= order.Size
			order.Size = 0
			return order, idx, true
		}
	}
	return order, arena.Index(0), false
}

// execRange sweeps order across limits (supplied in crossing order:
// ascending for a bid, descending for an ask), consuming liquidity and
// freeing drained entries.
//
// If the walk stops mid-list (the order was fully filled before a limit
// drained), stoppedAt is that limit's price and stoppedMidList is true:
// the caller should repair the best opposite limit by scanning inclusive
// from stoppedAt, since that price limit still holds resting liquidity.
// If every limit in the range fully drained, stoppedMidList is false and
// the caller must resume scanning just past the incoming order's own
// price instead.
func (e *Engine) execRange(order Order, limits []*priceLimit) (remaining Order, stoppedAt Price, stoppedMidList, executed bool) {
	for _, pl := range limits {
		if pl.link == nil {
			continue
		}
		newOrder, newHead, stoppedMid := e.exec(pl.link, order)
		order = newOrder
		executed = true

		if stoppedMid {
			pl.link.head = newHead
			return order, pl.price, true, true
		}
		// List fully drained at this limit; keep walking the range even
		// if order.Size has already reached zero; exec() is a no-op on a
		// zero-size order and will immediately report stoppedMid at the
		// next limit's head, which is exactly the correct resting best
		// price when a limit exhausts exactly as the order is filled.
		pl.link = nil
	}
	return order, 0, false, executed
}

// crossingLimits collects the *priceLimit nodes in [lo, hi], ascending
// unless descend is true.
func (e *Engine) crossingLimits(lo, hi Price, descend bool) []*priceLimit {
	var out []*priceLimit
	if descend {
		e.limits.Descend(&priceLimit{price: hi}, func(pl *priceLimit) bool {
			if pl.price < lo {
				return false
			}
			out = append(out, pl)
			return true
		})
	} else {
		e.limits.Ascend(&priceLimit{price: lo}, func(pl *priceLimit) bool {
			if pl.price > hi {
				return false
			}
			out = append(out, pl)
			return true
		})
	}
	return out
}

// repairBestAsk scans upward from price for the first non-empty limit.
func (e *Engine) repairBestAsk(price Price) {
	found := false
	e.limits.Ascend(&priceLimit{price: price}, func(pl *priceLimit) bool {
		if pl.link != nil {
			e.bestAsk = pl.price
			found = true
			return false
		}
		return true
	})
	if !found {
		e.bestAsk = PriceMax
	}
}

// repairBestBid scans downward from price for the first non-empty limit.
func (e *Engine) repairBestBid(price Price) {
	found := false
	e.limits.Descend(&priceLimit{price: price}, func(pl *priceLimit) bool {
		if pl.link != nil {
			e.bestBid = pl.price
			found = true
			return false
		}
		return true
	})
	if !found {
		e.bestBid = 0
	}
}

// insert appends order as a new resting entry at order.Price, updating
// best limits, and returns its assigned id.
func (e *Engine) insert(order Order) OrderId {
	id := e.maxOrderID
	e.maxOrderID++

	index := e.entries.Alloc(bookEntry{size: order.Size, id: id})

	pl, ok := e.limits.Get(&priceLimit{price: order.Price})
	if !ok {
		pl = &priceLimit{price: order.Price}
		e.limits.Set(pl)
	}

	if pl.link != nil {
		tailEntry := e.entries.GetMut(pl.link.tail)
		tailEntry.next = index
		tailEntry.hasNext = true
		pl.link.tail = index
	} else {
		pl.link = &link{head: index, tail: index}
	}

	switch order.Side {
	case Bid:
		if order.Price > e.bestBid {
			e.bestBid = order.Price
		}
	case Ask:
		if order.Price < e.bestAsk {
			e.bestAsk = order.Price
		}
	}

	return id
}

// Limit matches or inserts a limit order. If the order (or its remainder)
// was inserted into the book, inserted is true and id is its assigned
// OrderId.
func (e *Engine) Limit(order Order) (id OrderId, inserted bool) {
	var (
		remaining = order
		executed  bool
		newPrice  Price
	)

	switch {
	case order.Side == Bid && order.Price >= e.bestAsk:
		limits := e.crossingLimits(e.bestAsk, order.Price, false)
		var stoppedAt Price
		var stoppedMidList bool
		remaining, stoppedAt, stoppedMidList, executed = e.execRange(order, limits)
		if executed {
			if stoppedMidList {
				newPrice = stoppedAt
			} else {
				newPrice = order.Price + 1
			}
		}

	case order.Side == Ask && order.Price <= e.bestBid:
		limits := e.crossingLimits(order.Price, e.bestBid, true)
		var stoppedAt Price
		var stoppedMidList bool
		remaining, stoppedAt, stoppedMidList, executed = e.execRange(order, limits)
		if executed {
			if stoppedMidList {
				newPrice = stoppedAt
			} else if order.Price == 0 {
				newPrice = 0
			} else {
				newPrice = order.Price - 1
			}
		}

	default:
		// Non-marketable: skip straight to remainder insertion.
	}

	if executed {
		switch order.Side {
		case Bid:
			e.repairBestAsk(newPrice)
		case Ask:
			e.repairBestBid(newPrice)
		}
	}

	if remaining.Size == 0 {
		return 0, false
	}
	return e.insert(remaining), true
}

// String renders a human-readable dump of the book: the ASK section
// (descending) above the BID section (descending), for debugging.
func (e *Engine) String() string {
	var b strings.Builder
	b.WriteString("--- ASK ---\n")

	bidSectionWritten := false
	e.limits.Reverse(func(pl *priceLimit) bool {
		if !bidSectionWritten && pl.price < e.bestAsk {
			b.WriteString("--- BID ---\n")
			bidSectionWritten = true
		}
		size := e.sizeAtLimit(pl)
		if size > 0 {
			fmt.Fprintf(&b, "%d: %d\n", pl.price, size)
		}
		return true
	})
	if !bidSectionWritten {
		b.WriteString("--- BID ---\n")
	}
	return b.String()
}
