package fins

import (
	"finsbridge/pkg/runtime"
	"finsbridge/pkg/utils/binutil"
)

/*
FINS/UDP frame layout (OMRON FINS Command Reference):

  ICF(1) RSV(1) GCT(1) DNA(1) DA1(1) DA2(1) SNA(1) SA1(1) SA2(1) SID(1) | MRC(1) SRC(1) | <command data>

  ICF  information control field, 0x80 for a command expecting a response
  DNA/SNA  network address of destination/source (0 = local network)
  DA1/SA1  node address (low byte of the PLC/host IP on this network segment)
  DA2/SA2  unit address, 0 = CPU unit
  SID  service id, echoed back by the PLC, used here to detect stray UDP replies

  Memory Area Read command (MRC=0x01 SRC=0x01):
    data = areaCode(1) address(2) bitAddress(1) wordCount(2)

  CPU Unit Data Read command (MRC=0x05 SRC=0x01): no request data.
*/

const (
	mrcMemoryAreaRead = 0x01
	srcMemoryAreaRead = 0x01
	mrcCPUUnitData    = 0x05
	srcCPUUnitData    = 0x01

	headerLen = 10
)

// areaCode maps a declared memory area to the FINS word-access area code.
var areaCode = map[runtime.MemoryArea]byte{
	runtime.AreaDataMemory: 0x82,
	runtime.AreaHolding:    0xB2,
	runtime.AreaWork:       0xB1,
	runtime.AreaCommonIO:   0xB0,
	runtime.AreaAuxiliary:  0xB3,
}

// frameHeader builds the 10-byte FINS header shared by every command.
func frameHeader(sid byte) []byte {
	h := make([]byte, headerLen)
	h[0] = 0x80 // ICF: command, response required
	h[1] = 0x00 // RSV
	h[2] = 0x02 // GCT: gateway count
	h[3] = 0x00 // DNA: local network
	h[4] = 0x00 // DA1: filled in by the caller from the PLC's node byte
	h[5] = 0x00 // DA2: CPU unit
	h[6] = 0x00 // SNA: local network
	h[7] = 0x00 // SA1: filled in by the caller from the host's node byte
	h[8] = 0x00 // SA2: CPU unit
	h[9] = sid
	return h
}

// buildMemoryAreaReadFrame encodes a Memory Area Read request, used for
// both Read (one tag's words) and BatchRead (contiguous runs).
func buildMemoryAreaReadFrame(sid, destNode, srcNode byte, area runtime.MemoryArea, address uint, wordCount int) []byte {
	h := frameHeader(sid)
	h[4] = destNode
	h[7] = srcNode

	data := make([]byte, 8)
	data[0] = mrcMemoryAreaRead
	data[1] = srcMemoryAreaRead
	data[2] = areaCode[area]
	binutil.WriteUint16(data[3:5], uint16(address))
	data[5] = 0x00 // bit address, 0 for word access
	binutil.WriteUint16(data[6:8], uint16(wordCount))

	return append(h, data...)
}

// buildCPUUnitDataReadFrame encodes a CPU Unit Data Read request.
func buildCPUUnitDataReadFrame(sid, destNode, srcNode byte) []byte {
	h := frameHeader(sid)
	h[4] = destNode
	h[7] = srcNode
	return append(h, mrcCPUUnitData, srcCPUUnitData)
}

// endCode extracts the two-byte FINS end code from a response body (the
// bytes following the 10-byte header and 2-byte command echo).
func endCode(body []byte) uint16 {
	if len(body) < 2 {
		return 0xFFFF
	}
	return binutil.ParseUint16BigEndian(body[0:2])
}
