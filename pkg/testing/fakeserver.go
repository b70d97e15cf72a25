package testutil

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"
)

const (
	ntpEpochOffset = 2208988800
	replySize      = 48
)

// FakeServer is a loopback UDP NTP server. It encodes replies on its own so
// tests exercise the client codec against an independent implementation.
type FakeServer struct {
	conn *net.UDPConn
	wg   sync.WaitGroup

	mu        sync.Mutex
	offset    time.Duration
	stratum   uint8
	mode      uint8
	leap      uint8
	kissCode  string
	silent    int
	badOrigin bool
	requests  int
}

// NewFakeServer starts a server on 127.0.0.1 that answers as a healthy
// stratum 2 server with no offset. It is stopped when the test ends.
func NewFakeServer(t *testing.T) *FakeServer {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	s := &FakeServer{conn: conn, stratum: 2, mode: 4}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)

	return s
}

// Addr returns host:port of the server
func (s *FakeServer) Addr() string {
	return s.conn.LocalAddr().String()
}

// Port returns the UDP port of the server
func (s *FakeServer) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// SetOffset makes the server clock run ahead of the local clock by d
func (s *FakeServer) SetOffset(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = d
}

// SetStratum sets the advertised stratum
func (s *FakeServer) SetStratum(stratum uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stratum = stratum
}

// SetMode sets the association mode of replies
func (s *FakeServer) SetMode(mode uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// SetLeap sets the leap indicator of replies
func (s *FakeServer) SetLeap(leap uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leap = leap
}

// SetKissCode answers every request with a stratum 0 kiss code
func (s *FakeServer) SetKissCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kissCode = code
	s.stratum = 0
}

// SetSilent drops the next n requests
func (s *FakeServer) SetSilent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = n
}

// SetBadOrigin makes replies carry an originate timestamp that does not
// match the request.
func (s *FakeServer) SetBadOrigin(bad bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badOrigin = bad
}

// Requests returns the number of requests received
func (s *FakeServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Close stops the server
func (s *FakeServer) Close() {
	_ = s.conn.Close()
	s.wg.Wait()
}

func (s *FakeServer) serve() {
	defer s.wg.Done()

	buf := make([]byte, 512)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n < replySize {
			continue
		}
		received := time.Now()

		reply := s.reply(buf[:n], received)
		if reply == nil {
			continue
		}
		_, _ = s.conn.WriteToUDP(reply, addr)
	}
}

func (s *FakeServer) reply(request []byte, received time.Time) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	if s.silent > 0 {
		s.silent--
		return nil
	}

	version := (request[0] >> 3) & 0x07
	reply := make([]byte, replySize)
	reply[0] = s.leap<<6 | version<<3 | s.mode&0x07
	reply[1] = s.stratum
	reply[2] = request[2]
	reply[3] = 0xEC // 2^-20 s
	binary.BigEndian.PutUint32(reply[4:], 0x0000_0800)
	binary.BigEndian.PutUint32(reply[8:], 0x0000_0400)
	if s.kissCode != "" {
		copy(reply[12:16], s.kissCode)
	} else {
		copy(reply[12:16], "LOCL")
	}

	serverNow := received.Add(s.offset)
	binary.BigEndian.PutUint64(reply[16:], toNTP(serverNow.Add(-time.Minute)))
	copy(reply[24:32], request[40:48])
	if s.badOrigin {
		reply[31] ^= 0xFF
	}
	binary.BigEndian.PutUint64(reply[32:], toNTP(serverNow))
	binary.BigEndian.PutUint64(reply[40:], toNTP(time.Now().Add(s.offset)))

	return reply
}

// toNTP encodes t as a 64-bit NTP timestamp
func toNTP(t time.Time) uint64 {
	seconds := uint64(t.Unix() + ntpEpochOffset)
	fraction := (uint64(t.Nanosecond()) << 32) / 1e9
	return seconds<<32 | fraction
}
