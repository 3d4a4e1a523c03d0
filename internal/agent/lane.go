// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// laneQueueDepth bounds how many turns may wait behind the running one.
const laneQueueDepth = 64

type laneJob struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan<- error

	// after runs once the job has left the queue, whether fn ran or not.
	after func()
}

// Lane runs the turns of one session one at a time, in the order they were
// submitted. Turns of different sessions run on different lanes and never
// wait on each other.
type Lane struct {
	sessionID string
	jobs      chan laneJob
	stopping  chan struct{}
	stopped   chan struct{}
	stopOnce  sync.Once
}

// NewLane starts the worker goroutine for sessionID.
func NewLane(sessionID string) *Lane {
	l := &Lane{
		sessionID: sessionID,
		jobs:      make(chan laneJob, laneQueueDepth),
		stopping:  make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go l.work()
	return l
}

func (l *Lane) work() {
	defer close(l.stopped)
	for {
		select {
		case j := <-l.jobs:
			l.run(j)
		case <-l.stopping:
			for {
				select {
				case j := <-l.jobs:
					l.run(j)
				default:
					return
				}
			}
		}
	}
}

func (l *Lane) run(j laneJob) {
	err := l.call(j)
	if j.after != nil {
		j.after()
	}
	j.done <- err
}

func (l *Lane) call(j laneJob) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in session lane",
				"session_id", l.sessionID,
				"panic", r,
				"stack", string(debug.Stack()))
			err = solerr.Errorf(solerr.CodeAgentLoopFailure, "turn panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}

func laneClosedError(sessionID string) error {
	return solerr.New(solerr.CodeAgentLaneClosed, "session lane is closed",
		solerr.FieldSessionID(sessionID))
}

// Submit queues fn behind any earlier turns and waits for its result. A
// context that is done before fn starts skips fn. If the caller stops
// waiting, fn still runs to completion on the lane.
func (l *Lane) Submit(ctx context.Context, fn func(context.Context) error) error {
	return l.submit(ctx, fn, nil)
}

// submit is Submit with a hook that runs exactly once when the job is
// finished with: on the worker after fn, or here if the job never queued.
func (l *Lane) submit(ctx context.Context, fn func(context.Context) error, after func()) error {
	done := make(chan error, 1)
	if err := l.enqueue(ctx, laneJob{ctx: ctx, fn: fn, done: done, after: after}); err != nil {
		if after != nil {
			after()
		}
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		// The worker may have exited before picking the job up.
		select {
		case err := <-done:
			return err
		default:
			return laneClosedError(l.sessionID)
		}
	}
}

func (l *Lane) enqueue(ctx context.Context, j laneJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-l.stopping:
		return laneClosedError(l.sessionID)
	default:
	}

	select {
	case l.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopping:
		return laneClosedError(l.sessionID)
	}
}

// stop tells the worker to exit once the queue is empty without waiting
// for it. It is safe to call from the worker itself.
func (l *Lane) stop() {
	l.stopOnce.Do(func() { close(l.stopping) })
}

// Close stops accepting turns, finishes the queued ones and waits for the
// worker to exit. It is idempotent.
func (l *Lane) Close() {
	l.stop()
	<-l.stopped
}

type poolLane struct {
	lane *Lane
	// refs counts jobs that are queued or running on lane.
	refs int
}

// LanePool keeps one Lane per session ID while that session has work. A
// lane starts with the first submission and is stopped when its last queued
// job finishes, so idle sessions hold no goroutine.
type LanePool struct {
	mu     sync.Mutex
	lanes  map[string]*poolLane
	closed bool
}

func NewLanePool() *LanePool {
	return &LanePool{lanes: make(map[string]*poolLane)}
}

// Submit runs fn on the lane for sessionID with the same ordering and
// cancellation rules as Lane.Submit. After Close every submission is
// rejected.
func (p *LanePool) Submit(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return laneClosedError(sessionID)
	}
	pl, ok := p.lanes[sessionID]
	if !ok {
		pl = &poolLane{lane: NewLane(sessionID)}
		p.lanes[sessionID] = pl
	}
	pl.refs++
	p.mu.Unlock()

	return pl.lane.submit(ctx, fn, func() { p.release(sessionID, pl) })
}

func (p *LanePool) release(sessionID string, pl *poolLane) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl.refs--
	if pl.refs > 0 || p.lanes[sessionID] != pl {
		return
	}
	delete(p.lanes, sessionID)
	pl.lane.stop()
}

// Len reports the number of live lanes.
func (p *LanePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lanes)
}

// Close drains and stops every lane.
func (p *LanePool) Close() {
	p.mu.Lock()
	lanes := p.lanes
	p.lanes = make(map[string]*poolLane)
	p.closed = true
	p.mu.Unlock()

	for _, pl := range lanes {
		pl.lane.Close()
	}
}
