package ntp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghewgill/sntpc/internal/clock"
	testutil "github.com/ghewgill/sntpc/pkg/testing"
)

func newLoopbackClient(setter ClockSetter, wait time.Duration) *Client {
	return NewClientWith(
		NewResolver(),
		NewExchangerWithOptions(NewUDPTransport(), wait, DefaultAttempts),
		clock.System{},
		setter,
		nil,
		nil,
	)
}

func loopbackOptions(s *testutil.FakeServer, setClock bool) Options {
	return Options{
		Server:   "127.0.0.1",
		Port:     s.Port(),
		Policy:   Policy{MaxOffset: 300},
		SetClock: setClock,
	}
}

func TestIntegration_StepAgainstFakeServer(t *testing.T) {
	s := testutil.NewFakeServer(t)
	s.SetOffset(100 * time.Second)
	setter := &recordingSetter{}

	report, err := newLoopbackClient(setter, time.Second).Run(context.Background(), loopbackOptions(s, true))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, "127.0.0.1", report.Address)
	assert.Equal(t, uint8(2), report.Stratum)
	assert.InDelta(t, -100, report.Offset, 1)
	require.Len(t, setter.calls, 1)
	assert.InDelta(t, time.Now().Add(100*time.Second).Unix(), setter.calls[0].Unix(), 2)
}

func TestIntegration_AgreesWithBeevik(t *testing.T) {
	s := testutil.NewFakeServer(t)
	s.SetOffset(-42 * time.Second)

	resp, err := ntp.QueryWithOptions(s.Addr(), ntp.QueryOptions{Timeout: time.Second})
	require.NoError(t, err)

	opts := loopbackOptions(s, false)
	opts.Policy.AllowBackwards = true
	report, err := newLoopbackClient(&recordingSetter{}, time.Second).Run(context.Background(), opts)
	require.NoError(t, err)

	// The two clients use opposite sign conventions for the offset
	assert.InDelta(t, resp.ClockOffset.Seconds(), float64(-report.Offset), 1.5)
	assert.Equal(t, resp.Stratum, report.Stratum)
	assert.Equal(t, leapString(resp.Leap), report.Leap)
}

func TestIntegration_DryRunLeavesClockAlone(t *testing.T) {
	s := testutil.NewFakeServer(t)
	s.SetOffset(10 * time.Second)
	setter := &recordingSetter{}

	report, err := newLoopbackClient(setter, time.Second).Run(context.Background(), loopbackOptions(s, false))

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Empty(t, setter.calls)
}

func TestIntegration_RecoversFromDroppedRequests(t *testing.T) {
	s := testutil.NewFakeServer(t)
	s.SetSilent(2)

	report, err := newLoopbackClient(&recordingSetter{}, 100*time.Millisecond).Run(context.Background(), loopbackOptions(s, false))

	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempts)
	assert.Equal(t, 3, s.Requests())
}

func TestIntegration_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *testutil.FakeServer)
		want  error
	}{
		{"silent", func(s *testutil.FakeServer) { s.SetSilent(10) }, ErrNoResponse},
		{"kiss_of_death", func(s *testutil.FakeServer) { s.SetKissCode("RSTR") }, ErrKissOfDeath},
		{"symmetric_passive", func(s *testutil.FakeServer) { s.SetMode(2) }, ErrUnexpectedMode},
		{"spoofed_originate", func(s *testutil.FakeServer) { s.SetBadOrigin(true) }, ErrOriginateMismatch},
		{"far_behind", func(s *testutil.FakeServer) { s.SetOffset(time.Hour) }, ErrOffsetExceedsThreshold},
		{"local_ahead", func(s *testutil.FakeServer) { s.SetOffset(-time.Minute) }, ErrBackwardsStepRefused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewFakeServer(t)
			tt.setup(s)
			setter := &recordingSetter{}

			_, err := newLoopbackClient(setter, 50*time.Millisecond).Run(context.Background(), loopbackOptions(s, true))

			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Empty(t, setter.calls)
		})
	}
}
