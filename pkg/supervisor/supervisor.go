// Package supervisor implements the Supervisor (C7): it starts one
// acquisition.Loop goroutine per configured PLC, collects their terminal
// Failure values off a single bounded channel, and resolves the process
// exit code. Uses a plain slice registry rather than a dynamic sync.Map,
// since every PLC is known entirely at startup from the config file.
package supervisor

import (
	"context"
	"sync"

	"k8s.io/klog/v2"

	"finsbridge/pkg/acquisition"
	"finsbridge/pkg/runtime"
)

// Supervisor owns every configured PLC's Loop and the failure channel they
// report into; the cancellation context they observe is passed to Start.
type Supervisor struct {
	loops []*acquisition.Loop

	failures chan acquisition.Failure
	wg       sync.WaitGroup
}

// New builds a Supervisor for loops. The failure channel is sized to the
// number of loops so no goroutine can block reporting its own exit even if
// the caller is slow to drain it (§4.7).
func New(loops []*acquisition.Loop) *Supervisor {
	return &Supervisor{
		loops:    loops,
		failures: make(chan acquisition.Failure, len(loops)),
	}
}

// Start launches one goroutine per loop. Each goroutine runs until ctx is
// cancelled or its own failure threshold fires, then posts exactly once to
// the shared failure channel.
func (s *Supervisor) Start(ctx context.Context) {
	for _, l := range s.loops {
		s.wg.Add(1)
		go func(l *acquisition.Loop) {
			defer s.wg.Done()
			s.failures <- l.Run(ctx)
		}(l)
	}
}

// Snapshots returns every loop's current status, read live off each
// Loop's atomics (acquisition.Loop.Snapshot is safe to call concurrently
// with Run), consumed by the status server (A5).
func (s *Supervisor) Snapshots() []acquisition.Snapshot {
	out := make([]acquisition.Snapshot, 0, len(s.loops))
	for _, l := range s.loops {
		out = append(out, l.Snapshot())
	}
	return out
}

// Wait blocks until every loop has reported a Failure, then returns the
// full set in completion order.
func (s *Supervisor) Wait() []acquisition.Failure {
	out := make([]acquisition.Failure, 0, len(s.loops))
	for range s.loops {
		f := <-s.failures
		klog.InfoS("plc loop terminated", "plc", f.PLCName, "reason", runtime.ExitReasonToString[f.Reason])
		out = append(out, f)
	}
	s.wg.Wait()
	return out
}

// Exit code constants from §6. ExitCode below resolves these in priority
// order when more than one loop failed for a different reason; a
// configuration error (exit 1) never reaches this function, since
// config.Load fails before any loop starts.
const (
	ExitOK              = 0
	ExitConfig          = 1
	ExitFinsConnect     = 2
	ExitThresholdBreach = 3
	ExitOperatorSignal  = 130
)

// ExitCode implements §6's exit-code policy: FINS-connect failures take
// priority over threshold breaches, which take priority over a clean
// operator-requested shutdown, which takes priority over a fully clean
// exit.
func ExitCode(failures []acquisition.Failure) int {
	sawThreshold := false
	sawCancel := false

	for _, f := range failures {
		switch f.Reason {
		case runtime.ExitFinsUnreachable:
			return ExitFinsConnect
		case runtime.ExitReadThreshold, runtime.ExitWriteThreshold:
			sawThreshold = true
		case runtime.ExitOperatorCancel:
			sawCancel = true
		}
	}

	if sawThreshold {
		return ExitThresholdBreach
	}
	if sawCancel {
		return ExitOperatorSignal
	}
	return ExitOK
}
