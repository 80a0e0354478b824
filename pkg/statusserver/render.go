package statusserver

import (
	"finsbridge/pkg/acquisition"
	"finsbridge/pkg/runtime"
)

func stateString(snap acquisition.Snapshot) string {
	return runtime.LoopStateToString[snap.State]
}

func sinkModeString(snap acquisition.Snapshot) string {
	return runtime.SinkModeToString[snap.SinkMode]
}

func exitCauseString(snap acquisition.Snapshot) string {
	return runtime.ExitReasonToString[snap.ExitCause]
}
