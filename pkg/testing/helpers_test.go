package testutil

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertMetricValue(t *testing.T) {
	reg := prometheus.NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge_value",
		Help: "Test gauge for value assertion",
	})
	reg.MustRegister(gauge)
	gauge.Set(42.5)

	AssertMetricValue(t, reg, "test_gauge_value", nil, 42.5)

	gaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "test_gauge_with_labels",
			Help: "Test gauge with labels",
		},
		[]string{"server", "status"},
	)
	reg.MustRegister(gaugeVec)
	gaugeVec.WithLabelValues("pool.ntp.org", "ok").Set(100)

	AssertMetricValue(t, reg, "test_gauge_with_labels", map[string]string{
		"server": "pool.ntp.org",
		"status": "ok",
	}, 100)
}

func TestAssertMetricExistsAndAbsent(t *testing.T) {
	reg := prometheus.NewRegistry()

	counterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_counter_with_labels",
			Help: "Test counter with labels",
		},
		[]string{"kind"},
	)
	reg.MustRegister(counterVec)

	AssertMetricAbsent(t, reg, "test_counter_with_labels")

	counterVec.WithLabelValues("resolve").Inc()
	AssertMetricExists(t, reg, "test_counter_with_labels", map[string]string{"kind": "resolve"})
}

func TestWaitForCondition(t *testing.T) {
	count := 0
	condition := func() bool {
		count++
		return count >= 3
	}

	WaitForCondition(t, condition, time.Second, "count to reach 3")
	assert.GreaterOrEqual(t, count, 3)
}

func TestValidatePrometheusNames(t *testing.T) {
	tests := []struct {
		name       string
		metricName string
		labelName  string
	}{
		{"offset", "sntpc_offset_seconds", "server"},
		{"errors", "sntpc_errors_total", "kind"},
		{"with_numbers", "sntpc_stratum_1", "server_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ValidatePrometheusMetricName(t, tt.metricName, "sntpc_")
			ValidatePrometheusLabelName(t, tt.labelName)
		})
	}
}

// request builds a minimal client request with the given transmit timestamp
func request(xmit uint64) []byte {
	req := make([]byte, 68)
	req[0] = 4<<3 | 3
	binary.BigEndian.PutUint64(req[40:], xmit)
	return req
}

func exchange(t *testing.T, s *FakeServer, req []byte) []byte {
	t.Helper()

	conn, err := net.Dial("udp4", s.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(req)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 68)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestFakeServer_EchoesOriginate(t *testing.T) {
	s := NewFakeServer(t)

	reply := exchange(t, s, request(0xE000000112345678))

	require.Len(t, reply, replySize)
	assert.Equal(t, uint8(4), reply[0]&0x07, "server mode")
	assert.Equal(t, uint8(4), (reply[0]>>3)&0x07, "version echoed")
	assert.Equal(t, uint8(2), reply[1], "stratum")
	assert.Equal(t, uint64(0xE000000112345678), binary.BigEndian.Uint64(reply[24:]))
	assert.Equal(t, 1, s.Requests())
}

func TestFakeServer_Offset(t *testing.T) {
	s := NewFakeServer(t)
	s.SetOffset(time.Hour)

	reply := exchange(t, s, request(1))

	seconds := int64(binary.BigEndian.Uint32(reply[40:])) - ntpEpochOffset
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), seconds, 2)
}

func TestFakeServer_KissCode(t *testing.T) {
	s := NewFakeServer(t)
	s.SetKissCode("RATE")

	reply := exchange(t, s, request(1))

	assert.Equal(t, uint8(0), reply[1])
	assert.Equal(t, "RATE", string(reply[12:16]))
}

func TestFakeServer_Silent(t *testing.T) {
	s := NewFakeServer(t)
	s.SetSilent(1)

	conn, err := net.Dial("udp4", s.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(request(1))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err = conn.Read(make([]byte, 68))
	assert.Error(t, err, "first request is dropped")

	WaitForCondition(t, func() bool { return s.Requests() == 1 }, time.Second, "request counted")

	reply := exchange(t, s, request(2))
	assert.Len(t, reply, replySize)
}

func TestFakeServer_BeevikQuery(t *testing.T) {
	s := NewFakeServer(t)
	s.SetOffset(30 * time.Second)

	resp, err := ntp.QueryWithOptions(s.Addr(), ntp.QueryOptions{Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, resp.Validate())

	assert.Equal(t, uint8(2), resp.Stratum)
	assert.Equal(t, ntp.LeapNoWarning, resp.Leap)
	assert.InDelta(t, 30*time.Second, resp.ClockOffset, float64(time.Second))
}
