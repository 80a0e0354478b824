package fins

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"finsbridge/pkg/runtime"
)

// responseTimeout bounds a single FINS request/response round trip. A
// shorter deadline carried by ctx takes precedence, and cancelling ctx
// unblocks a pending read.
const responseTimeout = 3 * time.Second

// UDPConnection is the concrete FINS/UDP transport (A1): a thin codec
// around a raw socket that builds a frame, sends it, reads a reply,
// validates it, and hands back the data bytes. One UDPConnection serves
// exactly one PLC for the lifetime of its acquisition loop.
type UDPConnection struct {
	addr string // host:port, FINS default port 9600

	mu      sync.Mutex
	conn    net.Conn
	sid     byte
	srcNode byte
	dstNode byte
}

// NewUDPConnection builds a transport for the PLC reachable at ip. port is
// the FINS/UDP service port (9600 unless the site has remapped it).
func NewUDPConnection(ip string, port int) *UDPConnection {
	return &UDPConnection{addr: net.JoinHostPort(ip, strconv.Itoa(port))}
}

// Connect dials the PLC and derives the node bytes FINS expects in the
// header from the negotiated local/remote IPv4 addresses.
func (u *UDPConnection) Connect(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "udp", u.addr)
	if err != nil {
		return fmt.Errorf("fins: dial %s: %w", u.addr, err)
	}

	u.conn = conn
	u.dstNode = lastOctet(conn.RemoteAddr().String())
	u.srcNode = lastOctet(conn.LocalAddr().String())
	u.sid = 0
	return nil
}

// Disconnect closes the underlying socket. Safe to call more than once.
func (u *UDPConnection) Disconnect(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.conn == nil {
		return nil
	}
	err := u.conn.Close()
	u.conn = nil
	return err
}

// CPUUnitDetailsRead issues a CPU Unit Data Read, used only to confirm the
// PLC answers FINS requests before the loop leaves FINS_CONNECTING.
func (u *UDPConnection) CPUUnitDetailsRead(ctx context.Context) (CPUUnitDetails, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	sid := u.nextSID()
	frame := buildCPUUnitDataReadFrame(sid, u.dstNode, u.srcNode)

	body, err := u.roundTrip(ctx, frame)
	if err != nil {
		return CPUUnitDetails{}, err
	}
	if ec := endCode(body); ec != 0x0000 {
		return CPUUnitDetails{}, fmt.Errorf("fins: CPU unit data read end code %#04x", ec)
	}

	// Response data after the 2-byte end code starts with the 20-byte CPU
	// model string; UnitName takes those bytes and CPUUnitCode the byte
	// after them. We only need enough to confirm liveness, so keep the
	// parse minimal and tolerant of a short reply.
	details := CPUUnitDetails{}
	if len(body) >= 22 {
		details.UnitName = strings.TrimRight(string(body[2:22]), "\x00 ")
	}
	if len(body) >= 23 {
		details.CPUUnitCode = body[22]
	}
	return details, nil
}

// Read performs a single-tag Memory Area Read.
func (u *UDPConnection) Read(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	return u.memoryAreaRead(ctx, area, address, wordCount)
}

// BatchRead performs a contiguous-run Memory Area Read; FINS has no
// distinct batch command, the area code already addresses a run of words.
func (u *UDPConnection) BatchRead(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	return u.memoryAreaRead(ctx, area, address, wordCount)
}

func (u *UDPConnection) memoryAreaRead(ctx context.Context, area runtime.MemoryArea, address uint, wordCount int) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	sid := u.nextSID()
	frame := buildMemoryAreaReadFrame(sid, u.dstNode, u.srcNode, area, address, wordCount)

	body, err := u.roundTrip(ctx, frame)
	if err != nil {
		return nil, err
	}
	if ec := endCode(body); ec != 0x0000 {
		return nil, fmt.Errorf("fins: memory area read end code %#04x", ec)
	}

	data := body[2:]
	want := wordCount * 2
	if len(data) < want {
		return nil, fmt.Errorf("fins: short read: got %d bytes, want %d", len(data), want)
	}
	return data[:want], nil
}

// roundTrip sends frame and returns the response body (everything after
// the 10-byte header and 2-byte command echo), retrying on a stray SID
// mismatch up to the context deadline.
func (u *UDPConnection) roundTrip(ctx context.Context, frame []byte) ([]byte, error) {
	if u.conn == nil {
		return nil, fmt.Errorf("fins: not connected")
	}

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > responseTimeout {
		deadline = time.Now().Add(responseTimeout)
	}
	if err := u.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	conn := u.conn
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := u.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("fins: write: %w", err)
	}

	buf := make([]byte, 2048)
	wantSID := frame[9]
	for {
		n, err := u.conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("fins: read: %w", err)
		}
		if n < headerLen+2 {
			continue
		}
		if buf[9] != wantSID {
			continue // stray reply from a prior, timed-out request
		}
		body := make([]byte, n-headerLen-2)
		copy(body, buf[headerLen+2:n])
		return body, nil
	}
}

func (u *UDPConnection) nextSID() byte {
	u.sid++
	return u.sid
}

// lastOctet extracts the low byte of an IPv4 host:port string, which FINS
// conventionally uses as the node address on a /24-style factory segment.
func lastOctet(hostPort string) byte {
	host, _, err := net.SplitHostPort(hostPort)
	if err != nil {
		host = hostPort
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return 0
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return ip4[3]
}
