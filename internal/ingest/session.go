package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"talaria/internal/notify"
	"talaria/internal/venue"
)

// Timer durations, per the venue's documented liveness contract. Declared
// as variables rather than constants so tests can shrink them.
var (
	PingTimeout          = 10 * time.Second
	ExpireTimeout        = 30 * time.Second
	SnapshotPollInterval = 1 * time.Second
)

type snapshotState int

const (
	snapshotNone snapshotState = iota
	snapshotWaiting
	snapshotOk
)

type bufferedEvent struct {
	u       uint64
	updates []venue.LimitUpdate
}

type snapshotResult struct {
	snapshot venue.Snapshot
	err      error
}

// Session drives one MDI connection: the snapshot-reconciliation
// handshake, sequence-number coherence checking, ping/liveness/snapshot
// timers, and emission onto the notification port. All state is mutated
// only from the goroutine running Run.
type Session struct {
	id         string
	transport  Transport
	normalizer venue.Normalizer
	fetcher    SnapshotFetcher
	port       *notify.Port
	log        zerolog.Logger

	ctx context.Context

	previousU *uint64
	state     snapshotState
	buffer    []bufferedEvent

	snapshotCh        chan snapshotResult
	pingTimer         *time.Timer
	expireTimer       *time.Timer
	snapshotPollTimer *time.Timer
}

// NewSession builds a session over the given transport, snapshot
// fetcher, and normalizer, emitting onto port.
func NewSession(transport Transport, normalizer venue.Normalizer, fetcher SnapshotFetcher, port *notify.Port, log zerolog.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:         id,
		transport:  transport,
		normalizer: normalizer,
		fetcher:    fetcher,
		port:       port,
		log:        log.With().Str("session_id", id).Logger(),
		state:      snapshotNone,
		snapshotCh: make(chan snapshotResult, 1),
	}
}

// Run opens the transport and drives the event loop until ctx is
// canceled or a fatal condition closes the session (sequence gap,
// snapshot failure, liveness expiry, transport error, or the
// notification consumer going away). Returns nil on clean cancellation,
// otherwise the closing error.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	s.log.Info().Msg("ingest session starting")

	if err := s.transport.Open(ctx); err != nil {
		return err
	}
	defer s.transport.Close()

	if err := s.transport.Ping(); err != nil {
		return fmt.Errorf("%w: initial ping: %v", ErrTransport, err)
	}

	s.pingTimer = time.NewTimer(PingTimeout)
	s.expireTimer = time.NewTimer(ExpireTimeout)
	s.snapshotPollTimer = time.NewTimer(SnapshotPollInterval)
	stopTimer(s.snapshotPollTimer)
	defer stopTimer(s.pingTimer)
	defer stopTimer(s.expireTimer)
	defer stopTimer(s.snapshotPollTimer)

	for {
		select {
		case <-ctx.Done():
			return nil

		case payload := <-s.transport.Messages():
			rearm(s.expireTimer, ExpireTimeout)
			if err := s.handleMessage(payload); err != nil {
				return err
			}

		case err := <-s.transport.Errors():
			return err

		case <-s.pingTimer.C:
			if err := s.transport.Ping(); err != nil {
				return fmt.Errorf("%w: ping: %v", ErrTransport, err)
			}
			s.pingTimer.Reset(PingTimeout)

		case <-s.expireTimer.C:
			return ErrExpired

		case <-s.snapshotPollTimer.C:
			if err := s.handleSnapshotPoll(); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleSnapshotPoll() error {
	if s.state != snapshotWaiting {
		s.log.Error().Msg("snapshot poll timer fired outside the waiting state")
		return nil
	}
	select {
	case result := <-s.snapshotCh:
		if result.err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotFetch, result.err)
		}
		if err := s.reconcileSnapshot(result.snapshot); err != nil {
			return err
		}
		s.state = snapshotOk
	default:
		s.snapshotPollTimer.Reset(SnapshotPollInterval)
	}
	return nil
}

type wireEnvelope struct {
	EventType string `json:"e"`
}

func (s *Session) handleMessage(payload []byte) error {
	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.log.Error().Err(err).Msg("dropping malformed venue frame")
		return nil
	}

	switch env.EventType {
	case venue.EventTypeTrade:
		return s.handleTrade(payload)
	case venue.EventTypeDepthUpdate:
		return s.handleDepthPayload(payload)
	default:
		s.log.Warn().Str("event", env.EventType).Msg("dropping unrecognized venue frame")
		return nil
	}
}

func (s *Session) handleTrade(payload []byte) error {
	var msg venue.TradeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Error().Err(err).Msg("dropping malformed trade payload")
		return nil
	}
	trade, err := s.normalizer.ToTrade(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("dropping unconvertible trade")
		return nil
	}
	if err := s.port.Send(notify.NewTrade(trade)); err != nil {
		return ErrConsumerGone
	}
	return nil
}

func (s *Session) handleDepthPayload(payload []byte) error {
	var msg venue.DepthUpdateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Error().Err(err).Msg("dropping malformed depth payload")
		return nil
	}
	return s.handleDepth(msg)
}

func (s *Session) handleDepth(msg venue.DepthUpdateMessage) error {
	if s.previousU != nil && *s.previousU+1 != msg.FirstU {
		return fmt.Errorf("%w: previous.u=%d next.U=%d", ErrSequenceGap, *s.previousU, msg.FirstU)
	}
	u := msg.LastU
	s.previousU = &u

	updates, err := s.normalizer.ToLimitUpdates(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("dropping unconvertible depth update")
		return nil
	}

	switch s.state {
	case snapshotNone:
		s.buffer = append(s.buffer, bufferedEvent{u: msg.LastU, updates: updates})
		s.state = snapshotWaiting
		s.startSnapshotFetch()
		s.snapshotPollTimer.Reset(SnapshotPollInterval)
		return nil
	case snapshotWaiting:
		s.buffer = append(s.buffer, bufferedEvent{u: msg.LastU, updates: updates})
		return nil
	case snapshotOk:
		if err := s.port.Send(notify.NewLimitUpdates(updates)); err != nil {
			return ErrConsumerGone
		}
		return nil
	default:
		return nil
	}
}

func (s *Session) startSnapshotFetch() {
	go func() {
		msg, err := s.fetcher.Fetch(s.ctx)
		result := snapshotResult{}
		if err != nil {
			result.err = err
		} else if snap, serr := s.normalizer.ToSnapshot(msg); serr != nil {
			result.err = serr
		} else {
			result.snapshot = snap
		}
		s.snapshotCh <- result
	}()
}

// reconcileSnapshot emits the snapshot's full book image, then the
// buffered live deltas whose u postdates the snapshot, dropping any that
// predate it.
func (s *Session) reconcileSnapshot(snap venue.Snapshot) error {
	all := make([]venue.LimitUpdate, 0, len(snap.Bids)+len(snap.Asks))
	all = append(all, snap.Bids...)
	all = append(all, snap.Asks...)
	if err := s.port.Send(notify.NewLimitUpdates(all)); err != nil {
		return ErrConsumerGone
	}

	for _, ev := range s.buffer {
		if ev.u <= snap.LastUpdateID {
			continue
		}
		if err := s.port.Send(notify.NewLimitUpdates(ev.updates)); err != nil {
			return ErrConsumerGone
		}
	}
	s.buffer = nil
	return nil
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func rearm(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
