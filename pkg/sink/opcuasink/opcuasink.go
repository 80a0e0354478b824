// Package opcuasink implements the OPC UA Sink (C5): writing one cycle's
// Sample Buffer to the PLC's paired OPC UA server.
//
// This sink holds one sustained write client per acquisition loop rather
// than a pooled set of connections, since each loop has exactly one writer
// for its entire lifetime (see DESIGN.md). Once a write fails the loop
// marks opcua_up false and this sink is never reconnected (§4.5, §9).
package opcuasink

import (
	"context"
	"fmt"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"finsbridge/pkg/runtime"
	"finsbridge/pkg/sample"
)

// Sink owns one OPC UA client for the lifetime of an acquisition loop.
type Sink struct {
	endpoint string
	nodes    NodeMap

	client *opcua.Client
}

// New returns a Sink targeting endpoint, resolving tag names to node ids
// via nodes.
func New(endpoint string, nodes NodeMap) *Sink {
	return &Sink{endpoint: endpoint, nodes: nodes}
}

// Connect dials the OPC UA server. Called once, during OPCUA_CONNECTING.
func (s *Sink) Connect(ctx context.Context) error {
	client, err := opcua.NewClient(s.endpoint, opcua.SecurityMode(ua.MessageSecurityModeNone))
	if err != nil {
		return fmt.Errorf("opcuasink: new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("opcuasink: connect %s: %w", s.endpoint, err)
	}
	s.client = client
	return nil
}

// Close releases the OPC UA session. Safe to call even if Connect never
// succeeded.
func (s *Sink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close(ctx)
	s.client = nil
	return err
}

// Write sends every tag in buf to its mapped node id as a single
// WriteRequest. A tag absent from the node map is skipped, not an error -
// nodes.json is allowed to cover a subset of the configured tags.
func (s *Sink) Write(ctx context.Context, buf *sample.Buffer) error {
	if s.client == nil {
		return fmt.Errorf("opcuasink: write before connect")
	}

	var toWrite []*ua.WriteValue
	buf.Each(func(tagName string, v runtime.Value) {
		nodeID, ok := s.nodes[tagName]
		if !ok || !v.Present {
			return
		}
		id, err := ua.ParseNodeID(nodeID)
		if err != nil {
			return
		}
		variant, err := ua.NewVariant(v.V)
		if err != nil {
			return
		}
		toWrite = append(toWrite, &ua.WriteValue{
			NodeID:      id,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        variant,
			},
		})
	})

	if len(toWrite) == 0 {
		return nil
	}

	resp, err := s.client.Write(ctx, &ua.WriteRequest{NodesToWrite: toWrite})
	if err != nil {
		return fmt.Errorf("opcuasink: write: %w", err)
	}
	for _, code := range resp.Results {
		if code != ua.StatusOK {
			return fmt.Errorf("opcuasink: write status %s", code)
		}
	}
	return nil
}
