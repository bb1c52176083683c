// Package gametest provides a deterministic event loop for driving game
// sessions in tests.
package gametest

import (
	"context"
	"time"
)

type scheduled struct {
	at        time.Time
	seq       uint64
	fn        func()
	cancelled bool
}

// ManualLoop is a virtual-clock Loop. Time only moves on Advance and off-loop
// work only runs on RunPending.
type ManualLoop struct {
	now     time.Time
	seq     uint64
	timers  []*scheduled
	pending []func(ctx context.Context) func()
}

func NewManualLoop() *ManualLoop {
	return &ManualLoop{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (l *ManualLoop) Now() time.Time {
	return l.now
}

func (l *ManualLoop) After(d time.Duration, fn func()) func() {
	l.seq++
	s := &scheduled{at: l.now.Add(d), seq: l.seq, fn: fn}
	l.timers = append(l.timers, s)
	return func() { s.cancelled = true }
}

func (l *ManualLoop) Go(work func(ctx context.Context) func()) {
	l.pending = append(l.pending, work)
}

// Advance moves the clock forward by d, firing due callbacks in time order.
// Callbacks scheduled while advancing fire too if they fall inside the window.
func (l *ManualLoop) Advance(d time.Duration) {
	target := l.now.Add(d)
	for {
		next := l.next(target)
		if next == nil {
			break
		}
		l.now = next.at
		next.cancelled = true
		next.fn()
	}
	l.now = target
	l.compact()
}

// RunPending executes queued off-loop work and its continuations.
func (l *ManualLoop) RunPending() {
	for len(l.pending) > 0 {
		work := l.pending[0]
		l.pending = l.pending[1:]
		if cont := work(context.Background()); cont != nil {
			cont()
		}
	}
}

// PendingWork is the number of queued off-loop jobs.
func (l *ManualLoop) PendingWork() int {
	return len(l.pending)
}

// Scheduled is the number of callbacks still waiting to fire.
func (l *ManualLoop) Scheduled() int {
	n := 0
	for _, s := range l.timers {
		if !s.cancelled {
			n++
		}
	}
	return n
}

func (l *ManualLoop) next(limit time.Time) *scheduled {
	var best *scheduled
	for _, s := range l.timers {
		if s.cancelled || s.at.After(limit) {
			continue
		}
		if best == nil || s.at.Before(best.at) || (s.at.Equal(best.at) && s.seq < best.seq) {
			best = s
		}
	}
	return best
}

func (l *ManualLoop) compact() {
	live := l.timers[:0]
	for _, s := range l.timers {
		if !s.cancelled {
			live = append(live, s)
		}
	}
	l.timers = live
}
