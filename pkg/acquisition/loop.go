// Package acquisition implements the Acquisition Loop (C6): the per-PLC
// state machine that owns a fins.Connection, an opcuasink.Sink, and a
// csvsink.Sink, and drives one read-decode-dispatch cycle at a time.
//
// Concurrency model (§5): each Loop runs as its own goroutine, driven by a
// context.Context checked between cycles and at every blocking I/O
// boundary (FINS read, OPC UA connect, OPC UA write), never mid-decode.
package acquisition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"finsbridge/pkg/decode"
	"finsbridge/pkg/fins"
	"finsbridge/pkg/plclog"
	"finsbridge/pkg/planner"
	"finsbridge/pkg/runtime"
	"finsbridge/pkg/sample"
	"finsbridge/pkg/sink/csvsink"
	"finsbridge/pkg/sink/opcuasink"
)

// Failure is what a Loop reports to the Supervisor's failure channel on
// exit (§4.7).
type Failure struct {
	PLCName string
	Reason  runtime.ExitReason
	Err     error
}

// Snapshot is the read-only per-PLC runtime state A5's status endpoint
// renders, covering §3's fins_up/opcua_up/consecutive_*_failures/csv_path/
// cancel_requested fields.
type Snapshot struct {
	PLCName         string
	State           runtime.LoopState
	SinkMode        runtime.SinkMode
	FinsUp          bool
	OpcuaUp         bool
	CycleOK         bool
	ReadFailures    int32
	WriteFailures   int32
	CSVPath         string
	CancelRequested bool
	ExitCause       runtime.ExitReason
}

// Loop drives one PLC's acquisition cycle for the process lifetime.
type Loop struct {
	cfg     runtime.PLCConfig
	csvFlag bool

	conn     fins.Connection
	groups   []planner.Group
	hasHeart bool

	opcua *opcuasink.Sink
	csv   *csvsink.Sink
	log   *plclog.Logger

	// state, finsUp, opcuaUp, cycleOK, readFailures, writeFailures,
	// cancelRequested and exitCause are read concurrently by the status
	// server goroutine while Run owns and mutates them, so they are atomics
	// rather than plain fields (§6's status endpoint must reflect a running
	// loop, not only a terminated one).
	state           atomic.Int32
	finsUp          atomic.Bool
	opcuaUp         atomic.Bool
	cycleOK         atomic.Bool
	cancelRequested atomic.Bool
	exitCause       atomic.Int32
	readFailures    atomic.Int32
	writeFailures   atomic.Int32
	csvPath         atomic.String
}

// New builds a Loop for cfg. conn is the FINS transport to use - normally
// a *fins.UDPConnection, swappable in tests. The OPC UA node map is not
// passed in; Run loads it from opcua_json_files/nodes.json during
// OPCUA_CONNECTING.
func New(cfg runtime.PLCConfig, conn fins.Connection, csvFlag bool) *Loop {
	tags := make([]runtime.TagMapping, 0, len(cfg.Tags))
	hasHeart := false
	for _, t := range cfg.Tags {
		if t.IsHeartbeat() {
			hasHeart = true
			continue
		}
		tags = append(tags, t)
	}

	l := &Loop{
		cfg:      cfg,
		csvFlag:  csvFlag,
		conn:     conn,
		groups:   planner.Plan(tags),
		hasHeart: hasHeart,
	}
	l.state.Store(int32(runtime.Init))
	return l
}

// Snapshot returns the loop's current status for the status server. Safe
// to call from any goroutine while Run is in progress.
func (l *Loop) Snapshot() Snapshot {
	opcuaUp := l.opcuaUp.Load()
	return Snapshot{
		PLCName:         l.cfg.Name,
		State:           runtime.LoopState(l.state.Load()),
		SinkMode:        runtime.ResolveSinkMode(l.csvFlag, opcuaUp),
		FinsUp:          l.finsUp.Load(),
		OpcuaUp:         opcuaUp,
		CycleOK:         l.cycleOK.Load(),
		ReadFailures:    l.readFailures.Load(),
		WriteFailures:   l.writeFailures.Load(),
		CSVPath:         l.csvPath.Load(),
		CancelRequested: l.cancelRequested.Load(),
		ExitCause:       runtime.ExitReason(l.exitCause.Load()),
	}
}

// Run executes the full state machine until ctx is cancelled or a failure
// threshold forces DRAINING. It always returns a Failure, even on a clean
// operator-requested shutdown, so the Supervisor has one uniform channel
// protocol (§4.7); ExitOperatorCancel marks the operator-requested case.
func (l *Loop) Run(ctx context.Context) Failure {
	logger, err := plclog.Open(l.cfg.Name)
	if err != nil {
		return Failure{PLCName: l.cfg.Name, Reason: runtime.ExitFinsUnreachable, Err: err}
	}
	l.log = logger
	defer l.log.Close()

	if f := l.connectFins(ctx); f != nil {
		return *f
	}
	if f := l.connectOpcua(ctx); f != nil {
		return *f
	}

	l.state.Store(int32(runtime.Running))
	l.log.Info("entering RUNNING", "sink_mode", runtime.SinkModeToString[runtime.ResolveSinkMode(l.csvFlag, l.opcuaUp.Load())])

	startedAt := time.Now()
	l.csv = csvsink.New(l.cfg.Name, startedAt)
	l.csvPath.Store(l.csv.Path())

	for {
		select {
		case <-ctx.Done():
			l.cancelRequested.Store(true)
			return l.drain(runtime.ExitOperatorCancel, ctx.Err())
		default:
		}

		if reason, err := l.cycle(ctx); err != nil {
			return l.drain(reason, err)
		}

		select {
		case <-ctx.Done():
			l.cancelRequested.Store(true)
			return l.drain(runtime.ExitOperatorCancel, ctx.Err())
		case <-time.After(l.cfg.SleepInterval):
		}
	}
}

// connectFins drives INIT -> FINS_CONNECTING, confirming the PLC answers
// before any read is attempted.
func (l *Loop) connectFins(ctx context.Context) *Failure {
	l.state.Store(int32(runtime.FinsConnecting))
	if err := l.conn.Connect(ctx); err != nil {
		f := l.failFinsConnect(err)
		return &f
	}
	if _, err := l.conn.CPUUnitDetailsRead(ctx); err != nil {
		l.conn.Disconnect(ctx)
		f := l.failFinsConnect(err)
		return &f
	}
	l.finsUp.Store(true)
	return nil
}

// failFinsConnect moves the loop straight to DRAINING/TERMINATED for a
// connect-time failure (§4.6 state FINS_CONNECTING), the same terminal
// transition drain() performs once RUNNING, just without sinks to close
// since none were opened yet.
func (l *Loop) failFinsConnect(cause error) Failure {
	l.state.Store(int32(runtime.Draining))
	l.exitCause.Store(int32(runtime.ExitFinsUnreachable))
	l.state.Store(int32(runtime.Terminated))
	l.log.Info("terminated", "reason", runtime.ExitReasonToString[runtime.ExitFinsUnreachable])
	return Failure{PLCName: l.cfg.Name, Reason: runtime.ExitFinsUnreachable, Err: cause}
}

// connectOpcua drives FINS_CONNECTING -> OPCUA_CONNECTING. A connect
// failure here does not abort the loop (§4.5): it starts RUNNING with
// opcua_up false, i.e. CSV_ONLY, falling back gracefully when the OPC UA
// endpoint is unreachable at startup.
func (l *Loop) connectOpcua(ctx context.Context) *Failure {
	l.state.Store(int32(runtime.OpcuaConnecting))

	connectCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	nodes, err := opcuasink.LoadNodeMap(connectCtx, "opcua_json_files/nodes.json")
	if err != nil {
		l.log.Warn("node map unavailable, starting CSV_ONLY", "err", err)
		return nil
	}

	sink := opcuasink.New(l.cfg.OpcuaURL, nodes)
	if err := sink.Connect(connectCtx); err != nil {
		l.log.Warn("opc ua connect failed, starting CSV_ONLY", "err", err)
		return nil
	}

	l.opcua = sink
	l.opcuaUp.Store(true)
	return nil
}

// cycle runs one read-decode-dispatch pass (§4.6 steps 1-8). A non-nil
// error means the caller must drain with the returned reason.
func (l *Loop) cycle(ctx context.Context) (runtime.ExitReason, error) {
	cycleID := uuid.New().String()
	buf := sample.NewBuffer(len(l.cfg.Tags))

	plcCycleOK := true
	anySuccessfulRead := false

	for _, g := range l.groups {
		if g.Batch {
			raw, err := l.conn.BatchRead(ctx, g.Tags[0].MemoryArea, g.StartAddress(), g.WordCount())
			if err != nil {
				plcCycleOK = false
				l.log.Warn("batch read failed, falling back to individual reads", "cycle", cycleID, "start", g.StartAddress(), "err", err)
				if l.readIndividually(ctx, g, buf) {
					anySuccessfulRead = true
				}
				continue
			}
			anySuccessfulRead = true
			l.decodeGroup(g, raw, buf)
			continue
		}

		raw, err := l.conn.Read(ctx, g.Tags[0].MemoryArea, g.StartAddress(), g.WordCount())
		if err != nil {
			plcCycleOK = false
			l.log.Warn("read failed", "cycle", cycleID, "tag", g.Tags[0].TagName, "err", err)
			buf.Set(g.Tags[0].TagName, runtime.Null(g.Tags[0].DataType))
			continue
		}
		anySuccessfulRead = true
		l.decodeGroup(g, raw, buf)
	}

	if anySuccessfulRead || len(l.groups) == 0 {
		l.readFailures.Store(0)
	} else {
		l.readFailures.Inc()
	}
	l.cycleOK.Store(plcCycleOK)

	if l.hasHeart {
		buf.Set(runtime.HeartbeatTag, runtime.Bool(plcCycleOK))
	}

	mode := runtime.ResolveSinkMode(l.csvFlag, l.opcuaUp.Load())
	l.dispatch(ctx, mode, buf)

	if rf := l.readFailures.Load(); rf >= int32(runtime.FailureThreshold) {
		return runtime.ExitReadThreshold, fmt.Errorf("acquisition: %d consecutive read failures", rf)
	}
	if wf := l.writeFailures.Load(); wf >= int32(runtime.FailureThreshold) && !l.opcuaUp.Load() && l.csvUnavailable() {
		return runtime.ExitWriteThreshold, fmt.Errorf("acquisition: %d consecutive write failures with no surviving sink", wf)
	}
	return runtime.ExitNone, nil
}

// decodeGroup splits a group's raw bytes back into per-tag values, in
// declared order, and inserts each into buf.
func (l *Loop) decodeGroup(g planner.Group, raw []byte, buf *sample.Buffer) {
	offset := 0
	for _, t := range g.Tags {
		w := t.Words() * 2
		word := raw[offset : offset+w]
		l.warnIfMalformedBool(t, word)
		buf.Set(t.TagName, decode.Decode(t, word))
		offset += w
	}
}

// warnIfMalformedBool logs once when a BOOL tag's word is neither 0 nor 1
// (§4.2): the value still coerces to false via decode.Decode, this only
// surfaces the warning that coercion contract requires.
func (l *Loop) warnIfMalformedBool(t runtime.TagMapping, word []byte) {
	if t.DataType == runtime.BOOL && decode.IsMalformedBool(word) {
		l.log.Warn("malformed BOOL word, coercing to false", "tag", t.TagName)
	}
}

// readIndividually retries every tag in a failed batch group one at a
// time (§4.6 step 3): a per-tag failure leaves that tag null without
// aborting the rest of the group. Returns whether at least one tag in the
// group was read successfully.
func (l *Loop) readIndividually(ctx context.Context, g planner.Group, buf *sample.Buffer) bool {
	anySuccess := false
	for _, t := range g.Tags {
		raw, err := l.conn.Read(ctx, t.MemoryArea, t.Address, t.Words())
		if err != nil {
			l.log.Warn("individual read failed", "tag", t.TagName, "err", err)
			buf.Set(t.TagName, runtime.Null(t.DataType))
			continue
		}
		anySuccess = true
		l.warnIfMalformedBool(t, raw)
		buf.Set(t.TagName, decode.Decode(t, raw))
	}
	return anySuccess
}

// dispatch writes buf to whichever sinks mode calls for. An OPC UA write
// failure permanently clears opcua_up (§4.5, §9): this loop never attempts
// to reconnect once a write fails.
func (l *Loop) dispatch(ctx context.Context, mode runtime.SinkMode, buf *sample.Buffer) {
	if mode != runtime.CsvOnly && l.opcua != nil {
		if err := l.opcua.Write(ctx, buf); err != nil {
			l.log.Warn("opc ua write failed, disabling opc ua", "err", err)
			l.writeFailures.Inc()
			l.opcuaUp.Store(false)
			mode = runtime.CsvOnly
		} else {
			l.writeFailures.Store(0)
		}
	}

	if mode != runtime.OpcuaOnly {
		if err := l.csv.Write(buf); err != nil {
			l.log.Warn("csv write failed", "err", err)
		}
	}
}

// csvUnavailable reports whether this loop has no CSV sink at all. Run
// creates the sink before the first cycle, so within cycle this is always
// false; a CSV file that fails to open is not detected here.
func (l *Loop) csvUnavailable() bool {
	return l.csv == nil
}

// drain moves the loop through DRAINING to TERMINATED, disconnecting both
// collaborators and, for ExitFinsUnreachable, removing the CSV fallback
// file per §4.4.
func (l *Loop) drain(reason runtime.ExitReason, cause error) Failure {
	l.state.Store(int32(runtime.Draining))
	l.exitCause.Store(int32(reason))
	l.finsUp.Store(false)

	drainCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Close in reverse connect order (§4.6 DRAINING): OPC UA, then CSV,
	// then FINS.
	if l.opcua != nil {
		l.opcua.Close(drainCtx)
	}

	if l.csv != nil {
		if reason == runtime.ExitFinsUnreachable {
			l.csv.Remove()
		} else {
			l.csv.Close()
		}
	}

	l.conn.Disconnect(drainCtx)

	l.state.Store(int32(runtime.Terminated))
	l.log.Info("terminated", "reason", runtime.ExitReasonToString[reason])

	return Failure{PLCName: l.cfg.Name, Reason: reason, Err: cause}
}
