package decode

import (
	"testing"

	"finsbridge/pkg/runtime"
)

func TestDecodeBoolExactMatch(t *testing.T) {
	tag := runtime.TagMapping{DataType: runtime.BOOL}

	cases := []struct {
		raw  []byte
		want bool
	}{
		{[]byte{0x00, 0x01}, true},
		{[]byte{0x00, 0x00}, false},
		{[]byte{0x00, 0x02}, false}, // malformed, not a bit pattern FINS BOOL ever sends
		{[]byte{0xFF, 0xFF}, false},
	}

	for _, c := range cases {
		v := Decode(tag, c.raw)
		if v.V.(bool) != c.want {
			t.Errorf("Decode(%v) = %v, want %v", c.raw, v.V, c.want)
		}
	}
}

func TestIsMalformedBool(t *testing.T) {
	if IsMalformedBool([]byte{0x00, 0x01}) {
		t.Errorf("0x0001 should not be malformed")
	}
	if !IsMalformedBool([]byte{0x00, 0x02}) {
		t.Errorf("0x0002 should be malformed")
	}
}

func TestDecodeInt32TwoWords(t *testing.T) {
	tag := runtime.TagMapping{DataType: runtime.INT32}
	raw := []byte{0xFF, 0xFF, 0xFF, 0xFE} // -2

	v := Decode(tag, raw)
	if v.V.(int32) != -2 {
		t.Errorf("got %v, want -2", v.V)
	}
}

func TestDecodeReal32(t *testing.T) {
	tag := runtime.TagMapping{DataType: runtime.REAL32}
	// 1.5f in IEEE 754 big-endian: 0x3FC00000
	raw := []byte{0x3F, 0xC0, 0x00, 0x00}

	v := Decode(tag, raw)
	if v.V.(float32) != 1.5 {
		t.Errorf("got %v, want 1.5", v.V)
	}
}

func TestDecodeStringTrimsAtNull(t *testing.T) {
	tag := runtime.TagMapping{DataType: runtime.STRING, StringLen: 6}
	raw := []byte("AB\x00\x00\x00\x00")

	v := Decode(tag, raw)
	if v.V.(string) != "AB" {
		t.Errorf("got %q, want %q", v.V, "AB")
	}
}

func TestDecodeUint16Channel(t *testing.T) {
	tag := runtime.TagMapping{DataType: runtime.CHANNEL}
	raw := []byte{0x01, 0x2C} // 300

	v := Decode(tag, raw)
	if v.V.(uint16) != 300 {
		t.Errorf("got %v, want 300", v.V)
	}
}
