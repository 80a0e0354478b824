package acquisition

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"finsbridge/pkg/fins"
	"finsbridge/pkg/runtime"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "acquisition-test")
	if err != nil {
		panic(err)
	}
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// stubConn implements fins.Connection for tests, avoiding a real socket.
type stubConn struct {
	connectErr error
}

func (s *stubConn) Connect(ctx context.Context) error    { return s.connectErr }
func (s *stubConn) Disconnect(ctx context.Context) error { return nil }

func (s *stubConn) CPUUnitDetailsRead(ctx context.Context) (fins.CPUUnitDetails, error) {
	return fins.CPUUnitDetails{UnitName: "stub"}, nil
}

func (s *stubConn) Read(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	return make([]byte, wordCount*2), nil
}

func (s *stubConn) BatchRead(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	return make([]byte, wordCount*2), nil
}

func TestLoopRunReportsOperatorCancel(t *testing.T) {
	cfg := runtime.PLCConfig{
		Name:          "test-plc",
		IP:            "127.0.0.1",
		SleepInterval: time.Millisecond,
	}

	l := New(cfg, &stubConn{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Failure, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case f := <-done:
		if f.Reason != runtime.ExitOperatorCancel {
			t.Errorf("got reason %v, want ExitOperatorCancel", f.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancel")
	}

	snap := l.Snapshot()
	if !snap.CancelRequested {
		t.Errorf("snapshot CancelRequested = false, want true after operator cancel")
	}
	if snap.FinsUp {
		t.Errorf("snapshot FinsUp = true, want false after drain")
	}
	if snap.CSVPath == "" {
		t.Errorf("snapshot CSVPath is empty, want the lazily-opened csv sink's path")
	}
}

func TestLoopRunExitsOnFinsConnectFailure(t *testing.T) {
	cfg := runtime.PLCConfig{Name: "bad-plc", IP: "127.0.0.1"}
	conn := &stubConn{connectErr: errors.New("refused")}
	l := New(cfg, conn, false)

	f := l.Run(context.Background())
	if f.Reason != runtime.ExitFinsUnreachable {
		t.Errorf("got reason %v, want ExitFinsUnreachable", f.Reason)
	}
}

// failReadConn reads successfully at CPU Unit Data Read time (so FINS_CONNECTING
// succeeds) but every Read/BatchRead after that fails, to drive a
// consecutive-read-failure threshold breach during RUNNING.
type failReadConn struct {
	*stubConn
	readErr error
}

func (f *failReadConn) Read(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	return nil, f.readErr
}

func (f *failReadConn) BatchRead(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	return nil, f.readErr
}

func TestLoopRunExitsOnReadThresholdBreachAndKeepsCSV(t *testing.T) {
	if err := os.MkdirAll("opcua_json_files", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("opcua_json_files/nodes.json", []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := runtime.PLCConfig{
		Name:          "flaky-plc",
		IP:            "127.0.0.1",
		SleepInterval: time.Millisecond,
		Tags: []runtime.TagMapping{
			{TagName: "a", MemoryArea: runtime.AreaDataMemory, Address: 100, DataType: runtime.UINT16},
		},
	}

	conn := &failReadConn{stubConn: &stubConn{}, readErr: errors.New("timeout")}
	l := New(cfg, conn, true)

	done := make(chan Failure, 1)
	go func() { done <- l.Run(context.Background()) }()

	select {
	case f := <-done:
		if f.Reason != runtime.ExitReadThreshold {
			t.Errorf("got reason %v, want ExitReadThreshold", f.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after read threshold breach")
	}

	if _, err := os.Stat(l.csv.Path()); err != nil {
		t.Errorf("expected csv fallback file to survive a read-threshold exit, stat error: %v", err)
	}
}
