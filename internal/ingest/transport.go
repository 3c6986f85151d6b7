package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is the injected port to the venue's live WebSocket stream.
// MDI itself depends only on this interface; WSTransport is the default
// implementation used outside of tests.
type Transport interface {
	// Open establishes the connection. Messages and Errors become valid
	// to read from only after Open returns nil.
	Open(ctx context.Context) error
	// Close tears down the connection, unblocking any pending read.
	Close() error
	// Ping sends a transport-level keepalive frame.
	Ping() error
	// Messages delivers raw inbound frames in arrival order.
	Messages() <-chan []byte
	// Errors delivers terminal read/connection errors. A value here means
	// the transport is no longer usable.
	Errors() <-chan error
}

// WSTransport is a gorilla/websocket-backed Transport.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer

	conn     *websocket.Conn
	messages chan []byte
	errs     chan error
}

// NewWSTransport builds a transport that dials url on Open.
func NewWSTransport(url string) *WSTransport {
	return &WSTransport{
		url:      url,
		dialer:   websocket.DefaultDialer,
		messages: make(chan []byte, 64),
		errs:     make(chan error, 1),
	}
}

func (w *WSTransport) Open(ctx context.Context) error {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, http.Header{})
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, w.url, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	w.conn = conn
	go w.readPump()
	return nil
}

func (w *WSTransport) readPump() {
	for {
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			w.errs <- fmt.Errorf("%w: %v", ErrTransport, err)
			return
		}
		w.messages <- payload
	}
}

func (w *WSTransport) Close() error {
	return w.conn.Close()
}

func (w *WSTransport) Ping() error {
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (w *WSTransport) Messages() <-chan []byte {
	return w.messages
}

func (w *WSTransport) Errors() <-chan error {
	return w.errs
}
