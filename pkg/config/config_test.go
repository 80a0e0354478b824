package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"finsbridge/pkg/runtime"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plc_data.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `[
		{
			"plc_name": "line1",
			"ip": "10.0.0.5",
			"opcua_url": "opc.tcp://10.0.0.9:4840",
			"address_mappings": [
				{"tag_name": "temp", "memory_area": "D", "address": 100, "data_type": "REAL32"},
				{"tag_name": "running", "memory_area": "D", "address": 102, "data_type": "BOOL"}
			]
		}
	]`)

	plcs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, plcs, 1)
	require.Len(t, plcs[0].Tags, 2)

	require.Equal(t, runtime.REAL32, plcs[0].Tags[0].DataType)
	require.Equal(t, runtime.DefaultSleepInterval, plcs[0].SleepInterval)
}

func TestLoadRejectsDuplicatePLCName(t *testing.T) {
	path := writeConfig(t, `[
		{"plc_name": "line1", "ip": "10.0.0.5", "address_mappings": []},
		{"plc_name": "line1", "ip": "10.0.0.6", "address_mappings": []}
	]`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for duplicate plc_name")
	}
}

func TestLoadRejectsUnknownMemoryArea(t *testing.T) {
	path := writeConfig(t, `[
		{"plc_name": "line1", "ip": "10.0.0.5", "address_mappings": [
			{"tag_name": "x", "memory_area": "Z", "address": 1, "data_type": "UINT16"}
		]}
	]`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected an error for unrecognized memory_area")
	}
}

func TestLoadRejectsEmptyTagName(t *testing.T) {
	path := writeConfig(t, `[
		{"plc_name": "line1", "ip": "10.0.0.5", "address_mappings": [
			{"tag_name": "", "memory_area": "D", "address": 1, "data_type": "UINT16"}
		]}
	]`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for empty tag_name")
	}
}
