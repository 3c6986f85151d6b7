package net_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talaria/internal/matching"
	"talaria/internal/net"
	"talaria/internal/notify"
)

func TestNewOrderRoundTrip(t *testing.T) {
	order, err := matching.NewOrder(100, 5, matching.Bid)
	require.NoError(t, err)

	wire := net.EncodeNewOrder(order)
	decoded, err := net.ParseNewOrder(wire)
	require.NoError(t, err)
	assert.Equal(t, order, decoded)
}

func TestParseNewOrderRejectsShortMessage(t *testing.T) {
	_, err := net.ParseNewOrder([]byte{0, 0, 1, 2})
	assert.ErrorIs(t, err, net.ErrMessageTooShort)
}

func TestParseNewOrderRejectsWrongType(t *testing.T) {
	order, err := matching.NewOrder(100, 5, matching.Bid)
	require.NoError(t, err)
	wire := net.EncodeNewOrder(order)
	wire[1] = byte(net.MsgHeartbeat)

	_, err = net.ParseNewOrder(wire)
	assert.ErrorIs(t, err, net.ErrInvalidMessageType)
}

func TestParseNewOrderRejectsInvalidOrder(t *testing.T) {
	zeroSize, err := matching.NewOrder(100, 1, matching.Bid)
	require.NoError(t, err)
	wire := net.EncodeNewOrder(zeroSize)
	// Corrupt the size field to zero.
	for i := 10; i < 18; i++ {
		wire[i] = 0
	}

	_, err = net.ParseNewOrder(wire)
	assert.ErrorIs(t, err, matching.ErrInvalidSize)
}

func TestEncodeConfirmation(t *testing.T) {
	buf := net.EncodeConfirmation(notify.OrderConfirmation{
		OrderID: 7, Price: 100, Size: 5, Side: matching.Bid,
	})
	assert.Equal(t, byte(net.ReportConfirmation), buf[0])
	assert.Len(t, buf, 1+8+8+8+1)
}

func TestEncodeExpiration(t *testing.T) {
	buf := net.EncodeExpiration(notify.OrderExpiration{OrderID: 42})
	assert.Equal(t, byte(net.ReportExpiration), buf[0])
	assert.Len(t, buf, 1+8)
}
