package net

import (
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// resubmitBackoff is the delay between retries when the pool is
// momentarily saturated and Submit reports overload.
const resubmitBackoff = time.Millisecond

// WorkerPool runs connection-handling tasks on a bounded, reused set of
// goroutines (github.com/panjf2000/ants) rather than spawning one
// goroutine per task.
type WorkerPool struct {
	pool    *ants.Pool
	tomb    *tomb.Tomb
	handler func(*tomb.Tomb, any) error
}

// NewWorkerPool preallocates a pool of size goroutines. The pool is
// non-blocking: Submit returns ants.ErrPoolOverload immediately instead of
// blocking the caller when every worker is busy, so a handler resubmitting
// its own connection (see AddTask) can never deadlock the pool.
func NewWorkerPool(size int) *WorkerPool {
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		// size is always a positive compile-time constant at call sites;
		// ants only errors on non-positive capacity.
		panic(err)
	}
	return &WorkerPool{pool: pool}
}

// Setup registers the handler invoked for each task added via AddTask.
// If handler returns an error the supervising tomb is killed, tearing
// down the rest of the server.
func (p *WorkerPool) Setup(t *tomb.Tomb, handler func(*tomb.Tomb, any) error) {
	p.tomb = t
	p.handler = handler
}

// AddTask schedules task to run on the next available pool goroutine. The
// actual Submit call, and any overload retries, run on their own goroutine
// rather than the caller's: a pool worker re-submitting the connection it
// just finished handling must never block waiting on its own pool to free
// up, since it would then never free up.
func (p *WorkerPool) AddTask(task any) {
	submit := func() {
		if err := p.handler(p.tomb, task); err != nil {
			p.tomb.Kill(err)
		}
	}
	go func() {
		for {
			err := p.pool.Submit(submit)
			if err == nil {
				return
			}
			if errors.Is(err, ants.ErrPoolOverload) {
				time.Sleep(resubmitBackoff)
				continue
			}
			log.Error().Err(err).Msg("worker pool submit failed")
			return
		}
	}()
}

// Release closes the pool. It does not wait for in-flight tasks to finish.
func (p *WorkerPool) Release() {
	p.pool.Release()
}
