package ntp

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/ghewgill/sntpc/internal/clock"
	"github.com/ghewgill/sntpc/pkg/logger"
)

// Clock reads the local wall clock
type Clock interface {
	Now() time.Time
}

// KernelReader reports the kernel clock discipline state
type KernelReader interface {
	Read() (*clock.KernelStatus, error)
}

// Options configures a single run of the client
type Options struct {
	Server   string
	Port     int
	Policy   Policy
	SetClock bool
}

// Report describes a run. It is filled in as far as the run got, so a
// failed run still carries whatever was learned before the failure.
type Report struct {
	Server     string `yaml:"server"`
	Address    string `yaml:"address,omitempty"`
	Attempts   int    `yaml:"attempts"`
	Stratum    uint8  `yaml:"stratum,omitempty"`
	Leap       string `yaml:"leap,omitempty"`
	ServerTime int64  `yaml:"server_time,omitempty"`
	LocalTime  int64  `yaml:"local_time,omitempty"`
	Offset     int64  `yaml:"offset"`
	DryRun     bool   `yaml:"dry_run"`
	Stepped    bool   `yaml:"stepped"`
	SetTo      int64  `yaml:"set_to,omitempty"`
	Error      string `yaml:"error,omitempty"`
	ErrorKind  string `yaml:"error_kind,omitempty"`
}

// exchangeState holds what one run needs to remember between sending the
// request and judging the reply.
type exchangeState struct {
	sent  Timestamp
	tries int
	reply *Packet
}

// Client runs one SNTP request/reply exchange and acts on the result
type Client struct {
	resolver  *Resolver
	exchanger *Exchanger
	clock     Clock
	setter    ClockSetter
	kernel    KernelReader
	random    io.Reader
}

// NewClient creates a client wired to the system resolver, UDP transport
// and system clock.
func NewClient() *Client {
	sys := clock.System{}
	return &Client{
		resolver:  NewResolver(),
		exchanger: NewExchanger(NewUDPTransport()),
		clock:     sys,
		setter:    sys,
		kernel:    clock.NewKernelReader(),
	}
}

// NewClientWith creates a client from explicit collaborators. kernel and
// random may be nil.
func NewClientWith(resolver *Resolver, exchanger *Exchanger, clk Clock, setter ClockSetter, kernel KernelReader, random io.Reader) *Client {
	return &Client{
		resolver:  resolver,
		exchanger: exchanger,
		clock:     clk,
		setter:    setter,
		kernel:    kernel,
		random:    random,
	}
}

// Run performs the exchange described by opts. The returned report is
// never nil.
func (c *Client) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{Server: opts.Server, DryRun: !opts.SetClock}
	err := c.run(ctx, opts, report)
	if err != nil {
		report.Error = err.Error()
		report.ErrorKind = ErrorKind(err)
	}
	return report, err
}

func (c *Client) run(ctx context.Context, opts Options, report *Report) error {
	ip, err := c.resolver.Resolve(ctx, opts.Server)
	if err != nil {
		return err
	}
	address := net.JoinHostPort(ip.String(), strconv.Itoa(opts.Port))
	report.Address = ip.String()
	logger.NTP("resolve", opts.Server, map[string]interface{}{
		"address": ip.String(),
	})

	nonce, err := NewNonce(c.random)
	if err != nil {
		return err
	}
	state := exchangeState{
		sent: Timestamp{
			Seconds:  UnixToNTP(c.clock.Now().Unix()),
			Fraction: nonce,
		},
	}

	result, err := c.exchanger.Exchange(ctx, address, EncodeRequest(state.sent.Seconds, state.sent.Fraction))
	if err != nil {
		if errors.Is(err, ErrNoResponse) {
			report.Attempts = c.exchanger.attempts
		}
		return err
	}
	state.tries = result.Attempts
	report.Attempts = state.tries

	reply, err := DecodeReply(result.Reply)
	if err != nil {
		return err
	}
	state.reply = &reply
	report.Stratum = reply.Stratum()
	report.Leap = leapString(reply.Leap())

	logger.NTP("reply", opts.Server, map[string]interface{}{
		"stratum":  reply.Stratum(),
		"leap":     report.Leap,
		"version":  reply.Version(),
		"attempts": state.tries,
		"bytes":    len(result.Reply),
	})

	if err := ValidateReply(state.reply, state.sent); err != nil {
		return err
	}

	server := NTPToUnix(state.reply.Transmit.Seconds)
	report.ServerTime = server
	logger.NTP("server_timestamp", opts.Server, map[string]interface{}{
		"unix": server,
		"time": formatUnix(server),
	})

	local := c.clock.Now().Unix()
	report.LocalTime = local
	logger.NTP("local_clock", opts.Server, map[string]interface{}{
		"unix": local,
		"time": formatUnix(local),
	})

	decision, err := Decide(opts.Policy, local, server)
	report.Offset = decision.Offset
	logger.NTP("offset", opts.Server, map[string]interface{}{
		"seconds": decision.Offset,
	})
	if err != nil {
		return err
	}

	if !opts.SetClock {
		logger.Info("ntp", "Dry run, clock left unchanged")
		return nil
	}

	c.checkKernel()

	set, err := Step(c.setter, decision)
	if err != nil {
		return err
	}
	report.Stepped = true
	report.SetTo = set.Unix()
	logger.NTP("clock_set", opts.Server, map[string]interface{}{
		"unix": set.Unix(),
		"time": formatUnix(set.Unix()),
	})

	return nil
}

// checkKernel warns when another discipline already keeps the kernel clock
// synchronized or a leap second is pending.
func (c *Client) checkKernel() {
	if c.kernel == nil {
		return
	}
	status, err := c.kernel.Read()
	if err != nil {
		logger.SafeDebug("ntp", "Kernel clock status unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if status.Synchronized() {
		logger.SafeWarn("ntp", "Kernel reports clock already synchronized by another discipline", map[string]interface{}{
			"status":    status.SyncStatus,
			"offset_us": status.Offset.Microseconds(),
		})
	}
	if status.HasLeapSecond() {
		logger.Warn("ntp", "Kernel has a leap second pending")
	}
}

// formatUnix renders Unix seconds the way ctime(3) does
func formatUnix(seconds int64) string {
	return time.Unix(seconds, 0).Format(time.ANSIC)
}
