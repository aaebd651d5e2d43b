// Package shutdown handles interrupt signals and the ordered release of
// resources at the end of a run.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"imagine/core"
)

// SignalCounter counts repeated shutdown signals and calls onForce once the
// count reaches forceAfter. First signal = graceful, second = force.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment adds one signal and returns the new count. onForce runs under
// the lock, so it should be fast or exit the process.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// ExitCodeFor maps a signal to its conventional exit code (128 + signo).
func ExitCodeFor(sig os.Signal) int {
	switch sig {
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	case os.Interrupt:
		return core.ExitCodeSIGINT
	default:
		return core.ExitCodeError
	}
}

// Watcher cancels a run on the first SIGINT or SIGTERM and forces the
// process out on the second.
type Watcher struct {
	counter *SignalCounter
	cancel  context.CancelFunc
	signals chan os.Signal
	done    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	first os.Signal
}

// Watch returns a context that is cancelled by the first signal. A second
// signal calls force with the exit code of the first one. Call Stop when the
// run is over.
func Watch(parent context.Context, force func(code int)) (context.Context, *Watcher) {
	ctx, cancel := context.WithCancel(parent)
	w := &Watcher{
		cancel:  cancel,
		signals: make(chan os.Signal, 2),
		done:    make(chan struct{}),
	}
	w.counter = NewSignalCounter(2, func() {
		if force != nil {
			force(w.ExitCode())
		}
	})

	signal.Notify(w.signals, os.Interrupt, syscall.SIGTERM)
	go w.loop()
	return ctx, w
}

func (w *Watcher) loop() {
	for {
		select {
		case sig := <-w.signals:
			w.handle(sig)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(sig os.Signal) {
	w.mu.Lock()
	if w.first == nil {
		w.first = sig
	}
	w.mu.Unlock()

	w.cancel()
	w.counter.Increment()
}

// Signal returns the first signal received, or nil.
func (w *Watcher) Signal() os.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.first
}

// ExitCode is the exit code matching the first signal, or 0 if none arrived.
func (w *Watcher) ExitCode() int {
	sig := w.Signal()
	if sig == nil {
		return core.ExitCodeSuccess
	}
	return ExitCodeFor(sig)
}

// Stop releases the signal handler and cancels the context.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		signal.Stop(w.signals)
		close(w.done)
		w.cancel()
	})
}
