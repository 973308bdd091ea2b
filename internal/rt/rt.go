// ABOUTME: Realtime scheduling directive for the audio period loop
// ABOUTME: The engine consumes the directive; applying policy is pluggable
package rt

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Directive asks for the period loop to run elevated on a pinned core
// with its pages locked. The core never applies scheduling policy
// itself.
type Directive struct {
	Priority   int
	CPU        int
	LockMemory bool
}

// Applier applies the directive to the calling thread. Privileged
// builds plug in SCHED_FIFO/affinity/mlockall here.
type Applier interface {
	Apply(d Directive) error
}

// NoopApplier accepts every directive without touching the scheduler.
type NoopApplier struct{}

// Apply does nothing.
func (NoopApplier) Apply(Directive) error { return nil }

// Hook binds a directive and applier into the engine's session start
// callback. The goroutine's thread is locked first so the policy
// sticks to the thread running the period loop. Failure to apply is
// logged and the session continues unprivileged.
func Hook(d Directive, a Applier, log *logrus.Entry) func() {
	if a == nil {
		a = NoopApplier{}
	}
	if log == nil {
		log = logrus.WithField("component", "rt")
	}
	return func() {
		runtime.LockOSThread()
		if err := a.Apply(d); err != nil {
			log.WithError(err).Warn("realtime directive not applied")
			return
		}
		log.WithFields(logrus.Fields{
			"priority":    d.Priority,
			"cpu":         d.CPU,
			"lock_memory": d.LockMemory,
		}).Info("realtime directive applied")
	}
}
