package dispatch

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arkwarden/internal/clock"
	"arkwarden/internal/domain"
	"arkwarden/internal/ws"
)

type staticProfiles map[string]domain.Profile

func (s staticProfiles) Get(id string) (domain.Profile, error) {
	p, ok := s[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

type scriptedTransport struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (s *scriptedTransport) Send(_ context.Context, _ domain.Profile, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "ok", nil
}

func (s *scriptedTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineSink) Publish(_ string, _ ws.Channel, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func running(rcon bool) staticProfiles {
	cfg := domain.DefaultServerConfig(0)
	cfg.RCONEnabled = rcon
	return staticProfiles{"p": {ID: "p", Status: domain.StatusRunning, Config: cfg}}
}

func TestConnectionResetRetriedOnce(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	tr := &scriptedTransport{errs: []error{syscall.ECONNRESET, syscall.ECONNRESET}}
	d := NewDispatcher(running(true), tr, clk, &lineSink{}, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := d.Send(context.Background(), "p", "ServerChat hi")
		done <- err
	}()

	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, tr.count())
	clk.Advance(RetryDelay)

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not return")
	}
	assert.Equal(t, 2, tr.count())

	log := d.Log("p")
	require.Len(t, log, 1)
	assert.Equal(t, 2, log[0].Attempts)
	assert.NotEmpty(t, log[0].Error)
}

func TestRetrySucceeds(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	tr := &scriptedTransport{errs: []error{errors.New("wsarecv: 10054")}}
	d := NewDispatcher(running(true), tr, clk, nil, zap.NewNop())

	done := make(chan Entry, 1)
	go func() {
		e, _ := d.Send(context.Background(), "p", "SaveWorld")
		done <- e
	}()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(RetryDelay)

	e := <-done
	assert.Equal(t, "ok", e.Response)
	assert.Empty(t, e.Error)
	assert.Equal(t, 2, tr.count())
}

func TestOtherErrorsAttemptedOnce(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	tr := &scriptedTransport{errs: []error{errors.New("auth failed")}}
	sink := &lineSink{}
	d := NewDispatcher(running(true), tr, clk, sink, zap.NewNop())

	_, err := d.Send(context.Background(), "p", "SaveWorld")
	assert.Error(t, err)
	assert.Equal(t, 1, tr.count())
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, []string{"$ SaveWorld", "Error sending command: auth failed"}, sink.lines)
}

func TestNoOpUnlessRunningWithConsole(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	tr := &scriptedTransport{}

	d := NewDispatcher(running(false), tr, clk, nil, zap.NewNop())
	_, err := d.Send(context.Background(), "p", "SaveWorld")
	assert.ErrorIs(t, err, domain.ErrRemoteConsoleDisabled)

	stopped := running(true)
	p := stopped["p"]
	p.Status = domain.StatusStopped
	stopped["p"] = p
	d = NewDispatcher(stopped, tr, clk, nil, zap.NewNop())
	_, err = d.Send(context.Background(), "p", "SaveWorld")
	assert.ErrorIs(t, err, domain.ErrNotRunning)

	assert.Zero(t, tr.count())
	assert.Empty(t, d.Log("p"))
}

func TestLogIsBounded(t *testing.T) {
	d := NewDispatcher(running(true), &scriptedTransport{}, clock.NewFake(time.Unix(0, 0)), nil, zap.NewNop())
	d.LogSize = 3
	for _, c := range []string{"a", "b", "c", "d"} {
		_, err := d.Send(context.Background(), "p", c)
		require.NoError(t, err)
	}
	log := d.Log("p")
	require.Len(t, log, 3)
	assert.Equal(t, "b", log[0].Command)
}
