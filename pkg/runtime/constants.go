// Package runtime holds the tagged-variant types shared across the
// acquisition core: the PLC memory areas and data types a tag mapping can
// declare, and the sink modes an acquisition loop can run in.
package runtime

// MemoryArea is the OMRON FINS memory area a tag mapping addresses.
type MemoryArea int8

const (
	AreaDataMemory MemoryArea = iota // D
	AreaHolding                      // H
	AreaWork                         // W
	AreaCommonIO                     // C
	AreaAuxiliary                    // A
)

var MemoryAreaToString = map[MemoryArea]string{
	AreaDataMemory: "D",
	AreaHolding:    "H",
	AreaWork:       "W",
	AreaCommonIO:   "C",
	AreaAuxiliary:  "A",
}

var StringToMemoryArea = map[string]MemoryArea{
	"D": AreaDataMemory,
	"H": AreaHolding,
	"W": AreaWork,
	"C": AreaCommonIO,
	"A": AreaAuxiliary,
}

// DataType is the declared wire type of a tag mapping. BOOL and CHANNEL are
// both transported as a single 16-bit word (§4.2); INT32/UINT32/REAL32 occupy
// two consecutive words; STRING occupies ceil(n/2) words.
type DataType int8

const (
	BOOL DataType = iota
	CHANNEL
	INT16
	UINT16
	INT32
	UINT32
	REAL32
	STRING
)

var DataTypeToString = map[DataType]string{
	BOOL:    "BOOL",
	CHANNEL: "CHANNEL",
	INT16:   "INT16",
	UINT16:  "UINT16",
	INT32:   "INT32",
	UINT32:  "UINT32",
	REAL32:  "REAL32",
	STRING:  "STRING",
}

var StringToDataType = map[string]DataType{
	"BOOL":    BOOL,
	"CHANNEL": CHANNEL,
	"INT16":   INT16,
	"UINT16":  UINT16,
	"INT32":   INT32,
	"UINT32":  UINT32,
	"REAL32":  REAL32,
	"STRING":  STRING,
}

// WordsPerType is the number of consecutive 16-bit words a data type
// occupies on the wire, independent of any declared STRING length.
var WordsPerType = map[DataType]int{
	BOOL:    1,
	CHANNEL: 1,
	INT16:   1,
	UINT16:  1,
	INT32:   2,
	UINT32:  2,
	REAL32:  2,
	STRING:  1, // not used for STRING: TagMapping.Words returns StringWords(n)
}

// StringWords returns ceil(n/2), the word count of a STRING[n] mapping.
func StringWords(n int) int {
	return (n + 1) / 2
}

// SinkMode is the substate RUNNING carries per §4.6, selected from csv_flag
// and the loop's live opcua_up value.
type SinkMode int8

const (
	OpcuaOnly SinkMode = iota
	CsvOnly
	Dual
)

var SinkModeToString = map[SinkMode]string{
	OpcuaOnly: "OPCUA_ONLY",
	CsvOnly:   "CSV_ONLY",
	Dual:      "DUAL",
}

// ResolveSinkMode implements the §4.6 truth table.
func ResolveSinkMode(csvFlag, opcuaUp bool) SinkMode {
	switch {
	case csvFlag && opcuaUp:
		return Dual
	case !csvFlag && opcuaUp:
		return OpcuaOnly
	default:
		return CsvOnly
	}
}

// LoopState is the C6 acquisition-loop state machine's coarse state.
type LoopState int8

const (
	Init LoopState = iota
	FinsConnecting
	OpcuaConnecting
	Running
	Draining
	Terminated
)

var LoopStateToString = map[LoopState]string{
	Init:            "INIT",
	FinsConnecting:  "FINS_CONNECTING",
	OpcuaConnecting: "OPCUA_CONNECTING",
	Running:         "RUNNING",
	Draining:        "DRAINING",
	Terminated:      "TERMINATED",
}

// ExitReason names why a loop entered DRAINING, used both for the CSV
// removal rule (§4.4) and the Supervisor's exit-code policy (§4.7, §6).
type ExitReason int8

const (
	ExitNone ExitReason = iota
	ExitFinsUnreachable
	ExitReadThreshold
	ExitWriteThreshold
	ExitOperatorCancel
)

var ExitReasonToString = map[ExitReason]string{
	ExitNone:            "none",
	ExitFinsUnreachable: "fins_unreachable",
	ExitReadThreshold:   "read_threshold",
	ExitWriteThreshold:  "write_threshold",
	ExitOperatorCancel:  "operator_cancel",
}

// FailureThreshold is the consecutive-failure count (§4.6, §7) that demotes
// a loop into DRAINING.
const FailureThreshold = 3

// HeartbeatTag is the sentinel tag name synthesized each cycle (§3).
const HeartbeatTag = "HEARTBEAT"
