// Package venue decodes venue wire messages (trades, depth deltas, book
// snapshots) and normalizes them into tick-denominated domain records.
package venue

// DepthUpdateMessage is the venue's incremental order book delta. Bids and
// asks are [price, size, ...] tuples; any trailing elements are ignored.
type DepthUpdateMessage struct {
	EventType string     `json:"e"`
	FirstU    uint64     `json:"U"`
	LastU     uint64     `json:"u"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
}

// TradeMessage is the venue's executed-trade notification.
type TradeMessage struct {
	EventType string `json:"e"`
	Time      uint64 `json:"T"`
	Price     string `json:"p"`
	Size      string `json:"q"`
	BuyerID   uint64 `json:"b"`
	SellerID  uint64 `json:"a"`
	MakerIsBuyer bool `json:"m"`
}

// SnapshotMessage is the one-shot REST book image.
type SnapshotMessage struct {
	LastUpdateID uint64     `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

const (
	EventTypeDepthUpdate = "depthUpdate"
	EventTypeTrade       = "trade"
)
