package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
	"golang.org/x/time/rate"

	"talaria/internal/matching"
	"talaria/internal/notify"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
	defaultAcceptRate  = 200 // new connections/sec
	defaultAcceptBurst = 50
)

var ErrImproperConversion = errors.New("net: improper task type conversion")

// Server is the in-process ME wire server: clients connect over TCP,
// submit NewOrder messages, and receive OrderConfirmation/OrderExpiration
// reports back as their orders are processed.
type Server struct {
	address string
	port    int
	engine  *matching.Engine
	pool    *WorkerPool
	limiter *rate.Limiter
	cancel  context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]net.Conn // session id -> conn, for log correlation
	sessionIDs   map[net.Conn]string

	// engineLock serializes access to engine.Limit: the matching engine
	// is single-threaded by design (see matching.Engine) while multiple
	// worker-pool goroutines may be reading connections concurrently.
	engineLock sync.Mutex
}

// New builds a wire server fronting engine.
func New(address string, port int, engine *matching.Engine) *Server {
	return &Server{
		address: address,
		port:    port,
		engine:  engine,
		pool:    NewWorkerPool(defaultNWorkers),
		limiter:    rate.NewLimiter(rate.Limit(defaultAcceptRate), defaultAcceptBurst),
		sessions:   make(map[string]net.Conn),
		sessionIDs: make(map[net.Conn]string),
	}
}

// BookDump returns a snapshot of the engine's current book state, taking
// engineLock so it cannot race the worker pool's calls into engine.Limit.
func (s *Server) BookDump() string {
	s.engineLock.Lock()
	defer s.engineLock.Unlock()
	return s.engine.String()
}

// Shutdown cancels the server's run context and releases its worker pool.
func (s *Server) Shutdown() {
	log.Info().Msg("matchd server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
	s.pool.Release()
}

// Run accepts connections until ctx is canceled. The accept loop is
// admission-rate-limited rather than spinning unboundedly on Accept, so a
// connection storm cannot starve the worker pool.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("address", listener.Addr().String()).Msg("matchd server running")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}

		conn, err := listener.Accept()
		if err != nil {
			log.Error().Err(err).Msg("error accepting client")
			continue
		}

		id := s.addSession(conn)
		log.Info().Str("address", conn.RemoteAddr().String()).Str("session_id", id).Msg("new client connected")
		s.pool.AddTask(conn)
	}
}

// handleConnection reads the next NewOrder message off conn, submits it
// to the engine, and writes back the resulting report. Any error
// returned here is fatal and kills the supervising tomb.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	select {
	case <-t.Dying():
		conn.Close()
		return nil
	default:
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed setting connection deadline")
		s.closeSession(conn)
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		s.closeSession(conn)
		return nil
	}

	order, err := ParseNewOrder(buffer[:n])
	if err != nil {
		conn.Write(EncodeError(err))
		s.pool.AddTask(conn)
		return nil
	}

	s.engineLock.Lock()
	id, inserted := s.engine.Limit(order)
	s.engineLock.Unlock()
	if inserted {
		conn.Write(EncodeConfirmation(notify.OrderConfirmation{
			OrderID: id,
			Price:   order.Price,
			Size:    order.Size,
			Side:    order.Side,
		}))
	} else {
		conn.Write(EncodeExpiration(notify.OrderExpiration{OrderID: id}))
	}

	// Keep reading from this connection on the next available worker.
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn) string {
	id := uuid.New().String()
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[id] = conn
	s.sessionIDs[conn] = id
	return id
}

func (s *Server) closeSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if id, ok := s.sessionIDs[conn]; ok {
		delete(s.sessions, id)
		delete(s.sessionIDs, conn)
	}
	conn.Close()
}
