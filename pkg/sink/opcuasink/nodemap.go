package opcuasink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// nodeEntry is one row of opcua_json_files/nodes.json: a tag name paired
// with the OPC UA node id string the bridge should write it to.
type nodeEntry struct {
	TagName string `json:"tag_name"`
	NodeID  string `json:"node_id"`
}

// NodeMap resolves a tag name to its OPC UA node id string.
type NodeMap map[string]string

// waitForNodesFile blocks, polling, until path exists or ctx carries a
// deadline that elapses first. Used to wait for opcua_json_files/nodes.json
// to be populated by the external node manager before OPCUA_CONNECTING can
// proceed (§4.6).
func waitForNodesFile(ctx context.Context, path string) error {
	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	err := wait.PollUntilContextCancel(waitCtx, 500*time.Millisecond, true, func(ctx context.Context) (bool, error) {
		_, statErr := os.Stat(path)
		if statErr == nil {
			return true, nil
		}
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, statErr
	})
	if err != nil {
		return fmt.Errorf("opcuasink: node map file %s not available: %w", path, err)
	}
	return nil
}

// LoadNodeMap waits up to 60s for path to appear, then parses it into a
// NodeMap.
func LoadNodeMap(ctx context.Context, path string) (NodeMap, error) {
	if err := waitForNodesFile(ctx, path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opcuasink: read %s: %w", path, err)
	}

	var entries []nodeEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("opcuasink: parse %s: %w", path, err)
	}

	m := make(NodeMap, len(entries))
	for _, e := range entries {
		m[e.TagName] = e.NodeID
	}
	return m, nil
}
