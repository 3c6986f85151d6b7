package ingest

import "errors"

// ErrSequenceGap is returned (and closes the session) when a depth
// update's U does not immediately follow the previous message's u.
var ErrSequenceGap = errors.New("ingest: sequence gap")

// ErrSnapshotFetch wraps a failed one-shot REST snapshot fetch.
var ErrSnapshotFetch = errors.New("ingest: snapshot fetch failed")

// ErrSnapshotSenderGone is returned if the snapshot-fetch goroutine
// exits without ever delivering a result.
var ErrSnapshotSenderGone = errors.New("ingest: snapshot sender gone")

// ErrConsumerGone is returned when the notification consumer has closed
// the port out from under an active session.
var ErrConsumerGone = errors.New("ingest: notification consumer gone")

// ErrTransport wraps an underlying transport-level failure.
var ErrTransport = errors.New("ingest: transport error")

// ErrExpired is returned when the liveness timer fires with no
// intervening frame, meaning the remote is considered unresponsive.
var ErrExpired = errors.New("ingest: session expired (no activity)")
