package supervisor

import (
	"testing"

	"finsbridge/pkg/acquisition"
	"finsbridge/pkg/runtime"
)

func TestExitCodeZeroOnCleanExits(t *testing.T) {
	failures := []acquisition.Failure{
		{PLCName: "a", Reason: runtime.ExitNone},
		{PLCName: "b", Reason: runtime.ExitNone},
	}
	if got := ExitCode(failures); got != ExitOK {
		t.Errorf("got %d, want %d", got, ExitOK)
	}
}

func TestExitCodeOperatorSignalOnCancel(t *testing.T) {
	failures := []acquisition.Failure{
		{PLCName: "a", Reason: runtime.ExitOperatorCancel},
		{PLCName: "b", Reason: runtime.ExitNone},
	}
	if got := ExitCode(failures); got != ExitOperatorSignal {
		t.Errorf("got %d, want %d", got, ExitOperatorSignal)
	}
}

func TestExitCodeThresholdBreachBeatsOperatorCancel(t *testing.T) {
	failures := []acquisition.Failure{
		{PLCName: "a", Reason: runtime.ExitOperatorCancel},
		{PLCName: "b", Reason: runtime.ExitReadThreshold},
	}
	if got := ExitCode(failures); got != ExitThresholdBreach {
		t.Errorf("got %d, want %d", got, ExitThresholdBreach)
	}
}

func TestExitCodeWriteThresholdAlsoCountsAsBreach(t *testing.T) {
	failures := []acquisition.Failure{
		{PLCName: "a", Reason: runtime.ExitWriteThreshold},
	}
	if got := ExitCode(failures); got != ExitThresholdBreach {
		t.Errorf("got %d, want %d", got, ExitThresholdBreach)
	}
}

func TestExitCodeFinsConnectBeatsEverything(t *testing.T) {
	failures := []acquisition.Failure{
		{PLCName: "a", Reason: runtime.ExitOperatorCancel},
		{PLCName: "b", Reason: runtime.ExitReadThreshold},
		{PLCName: "c", Reason: runtime.ExitFinsUnreachable},
	}
	if got := ExitCode(failures); got != ExitFinsConnect {
		t.Errorf("got %d, want %d", got, ExitFinsConnect)
	}
}
