package ntp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ghewgill/sntpc/pkg/logger"
)

// errNoDatagram marks an attempt whose wait elapsed without a reply
var errNoDatagram = errors.New("no datagram before deadline")

// Conn is the datagram socket used for one exchange. A connected
// net.UDPConn satisfies it.
type Conn interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Transport opens the socket for an exchange
type Transport interface {
	Open(ctx context.Context, address string) (Conn, error)
}

// UDPTransport opens connected IPv4 UDP sockets
type UDPTransport struct {
	dialer net.Dialer
}

// NewUDPTransport creates a UDP transport
func NewUDPTransport() *UDPTransport {
	return &UDPTransport{}
}

// Open creates a UDP socket whose destination is fixed to address
func (t *UDPTransport) Open(ctx context.Context, address string) (Conn, error) {
	conn, err := t.dialer.DialContext(ctx, "udp4", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocket, err)
	}
	return conn, nil
}

// ExchangeResult is the outcome of a successful exchange
type ExchangeResult struct {
	Reply    []byte
	Attempts int
}

// Exchanger sends one request and waits for the first reply, resending the
// identical bytes when a wait elapses in silence.
type Exchanger struct {
	transport Transport
	wait      time.Duration
	attempts  int
}

// NewExchanger creates an exchanger with the default wait and attempt bound
func NewExchanger(transport Transport) *Exchanger {
	return NewExchangerWithOptions(transport, DefaultWait, DefaultAttempts)
}

// NewExchangerWithOptions creates an exchanger with a custom per-attempt
// wait and attempt bound. Non-positive values select the defaults.
func NewExchangerWithOptions(transport Transport, wait time.Duration, attempts int) *Exchanger {
	if wait <= 0 {
		wait = DefaultWait
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Exchanger{
		transport: transport,
		wait:      wait,
		attempts:  attempts,
	}
}

// Wait returns the per-attempt wait
func (e *Exchanger) Wait() time.Duration {
	return e.wait
}

// Exchange sends request to address and returns the raw bytes of the first
// datagram received. The socket is closed before Exchange returns.
func (e *Exchanger) Exchange(ctx context.Context, address string, request []byte) (*ExchangeResult, error) {
	conn, err := e.transport.Open(ctx, address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Requests never leave closer together than one wait interval.
	pacer := rate.NewLimiter(rate.Every(e.wait), 1)

	// The breaker counts silent attempts only; any other failure is
	// returned to the caller as is and ends the exchange.
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        address,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(e.attempts)
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, errNoDatagram)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.SafeDebug("ntp", "Attempt breaker state change", map[string]interface{}{
				"server": name,
				"from":   from.String(),
				"to":     to.String(),
			})
		},
	})

	buf := make([]byte, PacketSize)
	for tries := 1; ; tries++ {
		if err := pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReceive, err)
		}

		n, err := breaker.Execute(func() (interface{}, error) {
			return e.attempt(conn, request, buf)
		})
		switch {
		case err == nil:
			reply := make([]byte, n.(int))
			copy(reply, buf)
			return &ExchangeResult{Reply: reply, Attempts: tries}, nil
		case errors.Is(err, errNoDatagram):
			logger.SafeDebug("ntp", "No reply before deadline", map[string]interface{}{
				"server":  address,
				"attempt": tries,
				"wait":    e.wait.String(),
			})
			if breaker.State() == gobreaker.StateOpen {
				return nil, fmt.Errorf("%w after %d tries", ErrNoResponse, tries)
			}
		case errors.Is(err, gobreaker.ErrOpenState):
			return nil, fmt.Errorf("%w after %d tries", ErrNoResponse, tries-1)
		default:
			return nil, err
		}
	}
}

// attempt sends the request once and waits for a single datagram
func (e *Exchanger) attempt(conn Conn, request, buf []byte) (int, error) {
	if _, err := conn.Write(request); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSend, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(e.wait)); err != nil {
		return 0, fmt.Errorf("%w: set deadline: %v", ErrReceive, err)
	}

	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, errNoDatagram
		}
		return 0, fmt.Errorf("%w: %v", ErrReceive, err)
	}
	return n, nil
}
