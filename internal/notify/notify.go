// Package notify implements the back-pressure-free, ordered,
// single-producer single-consumer notification port that carries
// normalized book updates and trades from an ingest session to a
// downstream consumer. It also defines the order report types that the
// in-process order-placement server encodes onto its own connections.
package notify

import (
	"errors"

	"talaria/internal/matching"
	"talaria/internal/venue"
)

// ErrConsumerGone is returned by Send once the consumer has called Close,
// signaling that the session producing notifications should tear down.
var ErrConsumerGone = errors.New("notify: consumer gone")

// Kind discriminates which field of Notification is populated.
type Kind int

const (
	KindTrade Kind = iota
	KindLimitUpdates
	KindOrderConfirmation
	KindOrderExpiration
)

// OrderConfirmation reports that an order has been accepted and, if it
// did not fully cross, rested in the book.
type OrderConfirmation struct {
	OrderID matching.OrderId
	Price   matching.Price
	Size    matching.Size
	Side    matching.Side
}

// OrderExpiration reports that an order left no resting entry in the book:
// the wire server sends it when an order was fully filled on arrival.
type OrderExpiration struct {
	OrderID matching.OrderId
}

// Notification is a tagged union of the consumer-facing event variants.
// Exactly one field is populated, selected by Kind.
type Notification struct {
	Kind Kind

	Trade             venue.Trade
	LimitUpdates      []venue.LimitUpdate
	OrderConfirmation OrderConfirmation
	OrderExpiration   OrderExpiration
}

// NewTrade wraps a normalized trade.
func NewTrade(t venue.Trade) Notification {
	return Notification{Kind: KindTrade, Trade: t}
}

// NewLimitUpdates wraps a batch of normalized limit updates. Zero-size
// entries denote limit removal.
func NewLimitUpdates(updates []venue.LimitUpdate) Notification {
	return Notification{Kind: KindLimitUpdates, LimitUpdates: updates}
}

// NewOrderConfirmation wraps an order-accepted event.
func NewOrderConfirmation(c OrderConfirmation) Notification {
	return Notification{Kind: KindOrderConfirmation, OrderConfirmation: c}
}

// NewOrderExpiration wraps an order-expiration event.
func NewOrderExpiration(e OrderExpiration) Notification {
	return Notification{Kind: KindOrderExpiration, OrderExpiration: e}
}

// Port is a single-producer, single-consumer, unbounded, strictly-ordered
// queue of Notification. Internally it runs a small pump goroutine so
// that Send never blocks the producer on a slow consumer, while Close
// lets the consumer signal it is gone so the producer's next Send fails
// and the owning session can shut itself down.
type Port struct {
	in   chan Notification
	out  chan Notification
	done chan struct{}
}

// NewPort creates a ready-to-use notification port and starts its
// internal pump goroutine.
func NewPort() *Port {
	p := &Port{
		in:   make(chan Notification),
		out:  make(chan Notification),
		done: make(chan struct{}),
	}
	go p.pump()
	return p
}

// pump buffers notifications in an internal queue so producers never
// block on a slow or idle consumer, while still delivering strictly in
// arrival order.
func (p *Port) pump() {
	defer close(p.out)

	var queue []Notification
	for {
		if len(queue) == 0 {
			select {
			case item, ok := <-p.in:
				if !ok {
					return
				}
				queue = append(queue, item)
			case <-p.done:
				return
			}
			continue
		}

		select {
		case item, ok := <-p.in:
			if !ok {
				for _, q := range queue {
					p.out <- q
				}
				return
			}
			queue = append(queue, item)
		case p.out <- queue[0]:
			queue = queue[1:]
		case <-p.done:
			return
		}
	}
}

// Send delivers n to the consumer, returning ErrConsumerGone if Close has
// already been called. done is checked non-blocking first so a Send
// racing a Close cannot be resolved in the pump's favor: once the
// consumer is gone, every subsequent Send fails, never only some
// fraction of them.
func (p *Port) Send(n Notification) error {
	select {
	case <-p.done:
		return ErrConsumerGone
	default:
	}

	select {
	case p.in <- n:
		return nil
	case <-p.done:
		return ErrConsumerGone
	}
}

// Recv blocks for the next notification in production order. ok is false
// once the producer side has shut down (see Shutdown).
func (p *Port) Recv() (Notification, bool) {
	n, ok := <-p.out
	return n, ok
}

// Close signals that the consumer is gone; subsequent Send calls fail
// with ErrConsumerGone.
func (p *Port) Close() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// Shutdown signals the producer side has finished; after any buffered
// notifications drain, Recv returns ok == false.
func (p *Port) Shutdown() {
	close(p.in)
}
