// Package dispatch delivers console commands to running servers and keeps
// a per-profile log of what was sent.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arkwarden/internal/clock"
	"arkwarden/internal/domain"
	"arkwarden/internal/rcon"
	"arkwarden/internal/ws"

	"go.uber.org/zap"
)

// RetryDelay is the pause before the single retry of a reset connection.
var RetryDelay = 500 * time.Millisecond

const defaultLogSize = 200

type Transport interface {
	Send(ctx context.Context, p domain.Profile, command string) (string, error)
}

type ProfileSource interface {
	Get(id string) (domain.Profile, error)
}

type LogSink interface {
	Publish(profileID string, channel ws.Channel, line string)
}

type Entry struct {
	Time     time.Time `json:"time"`
	Command  string    `json:"command"`
	Response string    `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
	Attempts int       `json:"attempts"`
}

type Dispatcher struct {
	Profiles  ProfileSource
	Transport Transport
	Clock     clock.Clock
	Sink      LogSink
	Logger    *zap.Logger
	LogSize   int

	mu   sync.Mutex
	logs map[string][]Entry
}

func NewDispatcher(profiles ProfileSource, transport Transport, clk clock.Clock, sink LogSink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Profiles:  profiles,
		Transport: transport,
		Clock:     clk,
		Sink:      sink,
		Logger:    logger,
		LogSize:   defaultLogSize,
		logs:      make(map[string][]Entry),
	}
}

// Send forwards command when the profile is running with its console
// enabled; otherwise it returns the matching sentinel and does nothing.
// Transport failures are recorded in the command log and returned, they are
// never fatal for the caller.
func (d *Dispatcher) Send(ctx context.Context, profileID, command string) (Entry, error) {
	p, err := d.Profiles.Get(profileID)
	if err != nil {
		return Entry{}, err
	}
	if p.Status != domain.StatusRunning {
		return Entry{}, domain.ErrNotRunning
	}
	if !p.Config.RCONEnabled {
		return Entry{}, domain.ErrRemoteConsoleDisabled
	}

	d.publish(profileID, "$ "+command)
	entry := Entry{Time: d.Clock.Now(), Command: command}

	out, err := d.attempt(ctx, p, command, &entry)
	if err != nil && rcon.IsConnectionReset(err) {
		d.Logger.Warn("console connection reset, retrying", zap.String("profile", profileID), zap.String("command", command))
		if werr := d.wait(ctx, RetryDelay); werr != nil {
			err = werr
		} else {
			out, err = d.attempt(ctx, p, command, &entry)
		}
	}

	if err != nil {
		entry.Error = err.Error()
		d.Logger.Warn("console command failed", zap.String("profile", profileID), zap.String("command", command), zap.Error(err))
		d.publish(profileID, fmt.Sprintf("Error sending command: %v", err))
	} else {
		entry.Response = out
		if out != "" {
			d.publish(profileID, out)
		}
	}
	d.record(profileID, entry)
	return entry, err
}

func (d *Dispatcher) attempt(ctx context.Context, p domain.Profile, command string, entry *Entry) (string, error) {
	entry.Attempts++
	return d.Transport.Send(ctx, p, command)
}

func (d *Dispatcher) wait(ctx context.Context, dur time.Duration) error {
	fired := make(chan struct{})
	t := d.Clock.AfterFunc(dur, func() { close(fired) })
	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

func (d *Dispatcher) publish(profileID, line string) {
	if d.Sink != nil {
		d.Sink.Publish(profileID, ws.ChannelManager, line)
	}
}

func (d *Dispatcher) record(profileID string, e Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	log := append(d.logs[profileID], e)
	if d.LogSize > 0 && len(log) > d.LogSize {
		log = log[len(log)-d.LogSize:]
	}
	d.logs[profileID] = log
}

// Log returns a copy of the command log, oldest first.
func (d *Dispatcher) Log(profileID string) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Entry(nil), d.logs[profileID]...)
}

func (d *Dispatcher) Forget(profileID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.logs, profileID)
}
