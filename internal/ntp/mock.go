package ntp

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// ReplyFunc builds the reply datagram for a request, or returns nil to stay
// silent.
type ReplyFunc func(request []byte) []byte

// MockConn is an in-memory datagram socket for testing
type MockConn struct {
	mu         sync.Mutex
	respond    ReplyFunc
	writeErr   error
	readErr    error
	deadline   time.Time
	pending    []byte
	writes     [][]byte
	writeTimes []time.Time
	closed     bool
}

// Write records the request and queues the configured reply
func (c *MockConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := make([]byte, len(b))
	copy(req, b)
	c.writes = append(c.writes, req)
	c.writeTimes = append(c.writeTimes, time.Now())

	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.respond != nil {
		c.pending = c.respond(req)
	}
	return len(b), nil
}

// Read returns the queued reply, or blocks until the read deadline
func (c *MockConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return 0, err
	}
	if c.pending != nil {
		n := copy(b, c.pending)
		c.pending = nil
		c.mu.Unlock()
		return n, nil
	}
	deadline := c.deadline
	c.mu.Unlock()

	if !deadline.IsZero() {
		time.Sleep(time.Until(deadline))
	}
	return 0, os.ErrDeadlineExceeded
}

// SetReadDeadline sets the deadline for the next Read
func (c *MockConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline = t
	return nil
}

// Close marks the socket closed
func (c *MockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

// MockTransport hands out a single MockConn and records how it was used
type MockTransport struct {
	mu        sync.Mutex
	conn      *MockConn
	openErr   error
	addresses []string
}

// NewMockTransport creates a transport whose server never answers
func NewMockTransport() *MockTransport {
	return &MockTransport{conn: &MockConn{}}
}

// Open returns the mock connection
func (m *MockTransport) Open(ctx context.Context, address string) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addresses = append(m.addresses, address)
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.conn, nil
}

// SetupSilentServer configures a server that never replies
func (m *MockTransport) SetupSilentServer() {
	m.SetResponder(nil)
}

// SetupSuccessfulServer configures a server that echoes the request and
// reports serverTime with the given stratum.
func (m *MockTransport) SetupSuccessfulServer(serverTime time.Time, stratum uint8) {
	m.SetReplyPacket(func(req Packet) Packet {
		return ServerReply(req, serverTime, stratum)
	})
}

// SetupKoDServer configures a server that answers with a kiss code
func (m *MockTransport) SetupKoDServer(code string) {
	m.SetReplyPacket(func(req Packet) Packet {
		reply := ServerReply(req, time.Now(), KissOfDeathStratum)
		copy(reply.ReferenceID[:], code)
		return reply
	})
}

// SetupShortReplyServer configures a server whose replies are truncated
func (m *MockTransport) SetupShortReplyServer(size int) {
	m.SetResponder(func(request []byte) []byte {
		req, _ := DecodeReply(request)
		reply := ServerReply(req, time.Now(), 2)
		return reply.Marshal()[:size]
	})
}

// SetReplyPacket configures the reply as a function of the decoded request
func (m *MockTransport) SetReplyPacket(build func(req Packet) Packet) {
	m.SetResponder(func(request []byte) []byte {
		req, err := DecodeReply(request)
		if err != nil {
			return nil
		}
		reply := build(req)
		return reply.Marshal()
	})
}

// SetResponder configures the raw reply function
func (m *MockTransport) SetResponder(fn ReplyFunc) {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	m.conn.respond = fn
}

// SetOpenError makes Open fail
func (m *MockTransport) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openErr = err
}

// SetWriteError makes every send fail
func (m *MockTransport) SetWriteError(err error) {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	m.conn.writeErr = err
}

// SetReadError makes every receive fail
func (m *MockTransport) SetReadError(err error) {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	m.conn.readErr = err
}

// GetSendCount returns the number of requests sent
func (m *MockTransport) GetSendCount() int {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	return len(m.conn.writes)
}

// GetSent returns a copy of every request sent
func (m *MockTransport) GetSent() [][]byte {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	sent := make([][]byte, len(m.conn.writes))
	copy(sent, m.conn.writes)
	return sent
}

// GetSendTimes returns when each request was sent
func (m *MockTransport) GetSendTimes() []time.Time {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	times := make([]time.Time, len(m.conn.writeTimes))
	copy(times, m.conn.writeTimes)
	return times
}

// GetAddresses returns every address Open was called with
func (m *MockTransport) GetAddresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.addresses...)
}

// IsClosed reports whether the connection was closed
func (m *MockTransport) IsClosed() bool {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()

	return m.conn.closed
}

// ServerReply builds a well-formed server reply to req
func ServerReply(req Packet, serverTime time.Time, stratum uint8) Packet {
	ts := Timestamp{
		Seconds:  UnixToNTP(serverTime.Unix()),
		Fraction: uint32((uint64(serverTime.Nanosecond()) << 32) / 1e9),
	}
	return Packet{
		Flags:          ProtocolVersion<<27 | ModeServer<<24 | uint32(stratum)<<16,
		RootDelay:      0x0000_0800,
		RootDispersion: 0x0000_0400,
		ReferenceID:    [4]byte{'G', 'P', 'S', 0},
		Originate:      req.Transmit,
		Transmit:       ts,
	}
}

// MockLookup is a HostResolver with canned answers
type MockLookup struct {
	mu      sync.Mutex
	answers map[string][]net.IP
	errors  map[string]error
	calls   int
}

// NewMockLookup creates an empty lookup table
func NewMockLookup() *MockLookup {
	return &MockLookup{
		answers: make(map[string][]net.IP),
		errors:  make(map[string]error),
	}
}

// LookupIP returns the configured answer for host
func (m *MockLookup) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err, ok := m.errors[host]; ok {
		return nil, err
	}
	if ips, ok := m.answers[host]; ok {
		return ips, nil
	}
	return nil, errors.New("no such host")
}

// SetAnswer configures the addresses for host
func (m *MockLookup) SetAnswer(host string, ips ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parsed := make([]net.IP, 0, len(ips))
	for _, ip := range ips {
		parsed = append(parsed, net.ParseIP(ip))
	}
	m.answers[host] = parsed
}

// SetError configures a lookup failure for host
func (m *MockLookup) SetError(host string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors[host] = err
}

// GetCallCount returns the number of lookups performed
func (m *MockLookup) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}
