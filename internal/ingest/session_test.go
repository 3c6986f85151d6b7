package ingest_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talaria/internal/ingest"
	"talaria/internal/notify"
	"talaria/internal/tick"
	"talaria/internal/venue"
)

type fakeTransport struct {
	messages chan []byte
	errs     chan error
	pings    int
	closed   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages: make(chan []byte, 8),
		errs:     make(chan error, 1),
	}
}

func (f *fakeTransport) Open(ctx context.Context) error { return nil }
func (f *fakeTransport) Close() error                   { f.closed = true; return nil }
func (f *fakeTransport) Ping() error                    { f.pings++; return nil }
func (f *fakeTransport) Messages() <-chan []byte        { return f.messages }
func (f *fakeTransport) Errors() <-chan error           { return f.errs }

type fakeFetcher struct {
	snap venue.SnapshotMessage
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (venue.SnapshotMessage, error) {
	return f.snap, f.err
}

func testNormalizer() venue.Normalizer {
	return venue.Normalizer{PriceTick: tick.MustNew(1), SizeTick: tick.MustNew(1)}
}

func marshalDepth(t *testing.T, firstU, lastU uint64, bids, asks [][]string) []byte {
	t.Helper()
	b, err := json.Marshal(venue.DepthUpdateMessage{
		EventType: venue.EventTypeDepthUpdate,
		FirstU:    firstU,
		LastU:     lastU,
		Bids:      bids,
		Asks:      asks,
	})
	require.NoError(t, err)
	return b
}

func withFastTimers(t *testing.T) {
	t.Helper()
	origPing, origExpire, origPoll := ingest.PingTimeout, ingest.ExpireTimeout, ingest.SnapshotPollInterval
	ingest.PingTimeout = time.Hour
	ingest.ExpireTimeout = time.Hour
	ingest.SnapshotPollInterval = 10 * time.Millisecond
	t.Cleanup(func() {
		ingest.PingTimeout, ingest.ExpireTimeout, ingest.SnapshotPollInterval = origPing, origExpire, origPoll
	})
}

func TestHandshakeReconciliation(t *testing.T) {
	withFastTimers(t)

	transport := newFakeTransport()
	fetcher := &fakeFetcher{snap: venue.SnapshotMessage{
		LastUpdateID: 13,
		Bids:         [][]string{{"100", "2"}},
	}}
	port := notify.NewPort()
	session := ingest.NewSession(transport, testNormalizer(), fetcher, port, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	transport.messages <- marshalDepth(t, 11, 12, [][]string{{"90", "1"}}, nil)
	transport.messages <- marshalDepth(t, 13, 15, [][]string{{"91", "1"}}, nil)

	n1, ok := port.Recv()
	require.True(t, ok)
	assert.Equal(t, notify.KindLimitUpdates, n1.Kind)
	require.Len(t, n1.LimitUpdates, 1)
	assert.Equal(t, uint64(100), n1.LimitUpdates[0].Price, "snapshot image emitted first")

	n2, ok := port.Recv()
	require.True(t, ok)
	require.Len(t, n2.LimitUpdates, 1)
	assert.Equal(t, uint64(91), n2.LimitUpdates[0].Price, "u=15 > lastUpdateId=13, so kept")

	transport.messages <- marshalDepth(t, 16, 16, [][]string{{"92", "1"}}, nil)
	n3, ok := port.Recv()
	require.True(t, ok)
	require.Len(t, n3.LimitUpdates, 1)
	assert.Equal(t, uint64(92), n3.LimitUpdates[0].Price, "post-snapshot live delta forwarded directly")

	cancel()
	assert.NoError(t, <-runErr)
}

func TestSequenceGapClosesSession(t *testing.T) {
	withFastTimers(t)

	transport := newFakeTransport()
	fetcher := &fakeFetcher{snap: venue.SnapshotMessage{LastUpdateID: 99}}
	port := notify.NewPort()
	session := ingest.NewSession(transport, testNormalizer(), fetcher, port, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	transport.messages <- marshalDepth(t, 11, 12, nil, nil)
	transport.messages <- marshalDepth(t, 14, 16, nil, nil)

	err := <-runErr
	assert.ErrorIs(t, err, ingest.ErrSequenceGap)
}

func TestExpiryClosesSession(t *testing.T) {
	withFastTimers(t)
	ingest.ExpireTimeout = 10 * time.Millisecond

	transport := newFakeTransport()
	fetcher := &fakeFetcher{}
	port := notify.NewPort()
	session := ingest.NewSession(transport, testNormalizer(), fetcher, port, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	err := <-runErr
	assert.ErrorIs(t, err, ingest.ErrExpired)
}

func TestConsumerGoneClosesSession(t *testing.T) {
	withFastTimers(t)

	transport := newFakeTransport()
	fetcher := &fakeFetcher{snap: venue.SnapshotMessage{LastUpdateID: 99}}
	port := notify.NewPort()
	port.Close()
	session := ingest.NewSession(transport, testNormalizer(), fetcher, port, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	transport.messages <- marshalDepth(t, 1, 1, [][]string{{"1", "1"}}, nil)

	err := <-runErr
	assert.ErrorIs(t, err, ingest.ErrConsumerGone)
}
