// Package decode implements the Type Coercion component (C2): turning the
// raw big-endian word bytes a fins.Connection hands back into a
// runtime.Value of the tag's declared type (§4.2).
package decode

import (
	"strings"

	"finsbridge/pkg/runtime"
	"finsbridge/pkg/utils/binutil"
)

// Decode interprets raw (the word bytes for exactly one tag, len ==
// 2*tag.Words()) according to tag.DataType. A malformed BOOL word - any
// value other than exactly 0 or 1 - decodes to false; callers are expected
// to log that case themselves, Decode only reports the value.
func Decode(tag runtime.TagMapping, raw []byte) runtime.Value {
	switch tag.DataType {
	case runtime.BOOL:
		word := binutil.ParseUint16BigEndian(raw[0:2])
		return runtime.Of(runtime.BOOL, word == 1)

	case runtime.CHANNEL, runtime.UINT16:
		return runtime.Of(tag.DataType, binutil.ParseUint16BigEndian(raw[0:2]))

	case runtime.INT16:
		return runtime.Of(runtime.INT16, int16(binutil.ParseUint16BigEndian(raw[0:2])))

	case runtime.UINT32:
		return runtime.Of(runtime.UINT32, binutil.ParseUint32BigEndian(raw[0:4]))

	case runtime.INT32:
		return runtime.Of(runtime.INT32, int32(binutil.ParseUint32BigEndian(raw[0:4])))

	case runtime.REAL32:
		return runtime.Of(runtime.REAL32, binutil.ParseFloat32BigEndian(raw[0:4]))

	case runtime.STRING:
		return runtime.Of(runtime.STRING, decodeString(raw))

	default:
		return runtime.Null(tag.DataType)
	}
}

// decodeString turns a run of words into text, trimming at the first null
// byte the PLC uses to pad an unfilled STRING[n] (§4.2).
func decodeString(raw []byte) string {
	if i := indexNull(raw); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(string(raw), " ")
}

func indexNull(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// IsMalformedBool reports whether raw's word is neither the decode-true nor
// decode-false encoding a BOOL mapping expects, so the acquisition loop can
// log it distinctly from an ordinary false reading.
func IsMalformedBool(raw []byte) bool {
	word := binutil.ParseUint16BigEndian(raw[0:2])
	return word != 0 && word != 1
}
