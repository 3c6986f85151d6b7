// Package net implements the in-process order-placement wire protocol:
// a client submits NewOrder messages over TCP and receives
// OrderConfirmation/OrderExpiration reports back as the matching engine
// processes them.
package net

import (
	"encoding/binary"
	"errors"

	"talaria/internal/matching"
	"talaria/internal/notify"
)

var (
	// ErrInvalidMessageType is returned when a message's type tag is not
	// recognized.
	ErrInvalidMessageType = errors.New("net: invalid message type")
	// ErrMessageTooShort is returned when a message is shorter than its
	// type's fixed wire length.
	ErrMessageTooShort = errors.New("net: message too short")
)

// MessageType tags an inbound wire message.
type MessageType uint16

const (
	MsgNewOrder MessageType = iota
	MsgHeartbeat
)

// newOrderMessageLen is [type:2][price:8][size:8][side:1].
const newOrderMessageLen = 2 + 8 + 8 + 1

// ParseNewOrder decodes a fixed-width NewOrder wire message into a
// matching.Order, validating it via matching.NewOrder.
func ParseNewOrder(buf []byte) (matching.Order, error) {
	if len(buf) < newOrderMessageLen {
		return matching.Order{}, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(buf[0:2]))
	if typeOf != MsgNewOrder {
		return matching.Order{}, ErrInvalidMessageType
	}
	price := binary.BigEndian.Uint64(buf[2:10])
	size := binary.BigEndian.Uint64(buf[10:18])
	side := matching.Side(buf[18])
	return matching.NewOrder(price, size, side)
}

// EncodeNewOrder is the inverse of ParseNewOrder. The CLI client builds
// the same layout with its own encoder.
func EncodeNewOrder(o matching.Order) []byte {
	buf := make([]byte, newOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(MsgNewOrder))
	binary.BigEndian.PutUint64(buf[2:10], o.Price)
	binary.BigEndian.PutUint64(buf[10:18], o.Size)
	buf[18] = byte(o.Side)
	return buf
}

// ReportType tags an outbound report.
type ReportType uint8

const (
	ReportConfirmation ReportType = iota
	ReportExpiration
	ReportError
)

// EncodeConfirmation serializes an OrderConfirmation:
// [type:1][orderID:8][price:8][size:8][side:1].
func EncodeConfirmation(c notify.OrderConfirmation) []byte {
	buf := make([]byte, 1+8+8+8+1)
	buf[0] = byte(ReportConfirmation)
	binary.BigEndian.PutUint64(buf[1:9], uint64(c.OrderID))
	binary.BigEndian.PutUint64(buf[9:17], uint64(c.Price))
	binary.BigEndian.PutUint64(buf[17:25], uint64(c.Size))
	buf[25] = byte(c.Side)
	return buf
}

// EncodeExpiration serializes an OrderExpiration: [type:1][orderID:8].
func EncodeExpiration(e notify.OrderExpiration) []byte {
	buf := make([]byte, 1+8)
	buf[0] = byte(ReportExpiration)
	binary.BigEndian.PutUint64(buf[1:9], uint64(e.OrderID))
	return buf
}

// EncodeError serializes a session-level error report: [type:1][msg...].
func EncodeError(err error) []byte {
	msg := err.Error()
	buf := make([]byte, 1+len(msg))
	buf[0] = byte(ReportError)
	copy(buf[1:], msg)
	return buf
}
