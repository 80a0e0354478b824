// Package fins defines the interface the acquisition core consumes from its
// PLC transport collaborator (§6), and ships a concrete FINS/UDP
// implementation (A1): build frame, send, validate response, hand back raw
// bytes, targeting OMRON's FINS command/response framing.
//
// Read and BatchRead return the raw big-endian word bytes exactly as the
// PLC sent them; the core's type-coercion layer (§4.2) owns decoding. This
// keeps the transport swappable for a vendor FINS library behind the same
// interface without touching the acquisition loop.
package fins

import (
	"context"

	"finsbridge/pkg/runtime"
)

// CPUUnitDetails is the subset of the CPU Unit Data Read response the core
// needs to confirm reachability (§4.6 FINS_CONNECTING).
type CPUUnitDetails struct {
	UnitName    string
	CPUUnitCode byte
}

// Connection is the external collaborator the core consumes (§6). A real
// deployment may swap UDPConnection for a vendor client behind this
// interface without touching C1-C8.
type Connection interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	CPUUnitDetailsRead(ctx context.Context) (CPUUnitDetails, error)
	// Read returns the raw word bytes (len == 2*wordCount) for one tag.
	Read(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error)
	// BatchRead returns the raw word bytes (len == 2*wordCount) for a
	// contiguous run starting at address.
	BatchRead(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error)
}
