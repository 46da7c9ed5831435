// Package countdown runs operator-triggered shutdown and restart timers
// that warn players in chat before acting.
package countdown

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"arkwarden/internal/clock"
	"arkwarden/internal/dispatch"
	"arkwarden/internal/domain"

	"go.uber.org/zap"
)

var (
	// Checkpoints are the remaining seconds at which a warning goes out.
	Checkpoints  = []int{1800, 900, 600, 300, 180, 60, 30, 10, 5, 4, 3, 2, 1}
	PollInterval = time.Second
	// SaveGrace separates the world save from the terminal action.
	SaveGrace = 2 * time.Second
)

type Broadcaster interface {
	Send(ctx context.Context, profileID, command string) (dispatch.Entry, error)
}

// Actions is implemented by the lifecycle machine.
type Actions interface {
	Stop(ctx context.Context, profileID string) error
	Restart(ctx context.Context, profileID string, scheduled bool) error
}

type ProfileSource interface {
	Get(id string) (domain.Profile, error)
}

type op struct {
	domain.TimedOperation
	stop     chan struct{}
	grace    clock.Timer
	expired  bool
	canceled bool
}

type Scheduler struct {
	Profiles  ProfileSource
	Broadcast Broadcaster
	Actions   Actions
	Clock     clock.Clock
	Logger    *zap.Logger

	mu  sync.Mutex
	ops map[string]*op
	wg  sync.WaitGroup
}

func NewScheduler(profiles ProfileSource, broadcast Broadcaster, clk clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Profiles:  profiles,
		Broadcast: broadcast,
		Clock:     clk,
		Logger:    logger,
		ops:       make(map[string]*op),
	}
}

// Arm starts a countdown, replacing whatever countdown the profile had.
func (s *Scheduler) Arm(ctx context.Context, profileID string, kind domain.TimedOperationKind, minutes int, reason string) (domain.TimedOperation, error) {
	o, err := s.arm(ctx, profileID, kind, minutes, reason)
	if err != nil {
		return domain.TimedOperation{}, err
	}
	s.wg.Add(1)
	go s.run(o)
	return o.TimedOperation, nil
}

// arm does everything Arm does except starting the poll loop.
func (s *Scheduler) arm(ctx context.Context, profileID string, kind domain.TimedOperationKind, minutes int, reason string) (*op, error) {
	if minutes <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	if kind != domain.TimedShutdown && kind != domain.TimedRestart {
		return nil, fmt.Errorf("unknown timed operation %q", kind)
	}
	p, err := s.Profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusRunning {
		return nil, domain.ErrNotRunning
	}

	if err := s.Cancel(ctx, profileID); err == nil {
		s.Logger.Info("replaced active countdown", zap.String("profile", profileID))
	}

	o := s.prepare(profileID, kind, minutes, reason)
	s.say(ctx, profileID, fmt.Sprintf("ServerChat Server %s in %s.%s", verb(kind), minutesText(minutes), reasonSuffix(reason)))
	return o, nil
}

func (s *Scheduler) prepare(profileID string, kind domain.TimedOperationKind, minutes int, reason string) *op {
	o := &op{
		TimedOperation: domain.TimedOperation{
			ProfileID: profileID,
			Kind:      kind,
			EndsAt:    s.Clock.Now().Add(time.Duration(minutes) * time.Minute),
			Reason:    reason,
			// the opening message already covers this many seconds
			LastAnnouncedCheckpoint: minutes * 60,
		},
		stop: make(chan struct{}),
	}
	s.mu.Lock()
	s.ops[profileID] = o
	s.mu.Unlock()
	return o
}

func (s *Scheduler) run(o *op) {
	defer s.wg.Done()
	ticker := s.Clock.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C():
			if s.step(context.Background(), o, now) {
				return
			}
		case <-o.stop:
			return
		}
	}
}

// step evaluates one poll and reports whether the loop is finished.
func (s *Scheduler) step(ctx context.Context, o *op, now time.Time) bool {
	s.mu.Lock()
	if o.canceled || o.expired {
		s.mu.Unlock()
		return true
	}
	remaining := o.EndsAt.Sub(now)

	if remaining <= 0 {
		o.expired = true
		s.mu.Unlock()

		s.say(ctx, o.ProfileID, fmt.Sprintf("ServerChat Server %s NOW.", verb(o.Kind)))
		s.say(ctx, o.ProfileID, "SaveWorld")

		timer := s.Clock.AfterFunc(SaveGrace, func() { s.terminal(o) })
		s.mu.Lock()
		o.grace = timer
		s.mu.Unlock()
		return true
	}

	remSec := int(math.Ceil(remaining.Seconds()))
	announce := 0
	for _, cp := range Checkpoints {
		if cp < o.LastAnnouncedCheckpoint && remSec <= cp && (announce == 0 || cp < announce) {
			announce = cp
		}
	}
	if announce == 0 {
		s.mu.Unlock()
		return false
	}
	o.LastAnnouncedCheckpoint = announce
	s.mu.Unlock()

	s.say(ctx, o.ProfileID, fmt.Sprintf("ServerChat Server %s in %s.%s", verb(o.Kind), checkpointText(announce), reasonSuffix(o.Reason)))
	return false
}

func (s *Scheduler) terminal(o *op) {
	s.mu.Lock()
	if o.canceled || s.ops[o.ProfileID] != o {
		s.mu.Unlock()
		return
	}
	delete(s.ops, o.ProfileID)
	s.mu.Unlock()

	ctx := context.Background()
	var err error
	switch o.Kind {
	case domain.TimedShutdown:
		err = s.Actions.Stop(ctx, o.ProfileID)
	case domain.TimedRestart:
		err = s.Actions.Restart(ctx, o.ProfileID, false)
	}
	if err != nil {
		s.Logger.Warn("countdown action failed", zap.String("profile", o.ProfileID), zap.String("kind", string(o.Kind)), zap.Error(err))
	}
}

// Cancel stops the active countdown and tells players about it.
func (s *Scheduler) Cancel(ctx context.Context, profileID string) error {
	o := s.detach(profileID)
	if o == nil {
		return domain.ErrNoTimedOperation
	}
	if o.Kind == domain.TimedShutdown {
		s.say(ctx, profileID, "ServerChat Shutdown cancelled.")
	} else {
		s.say(ctx, profileID, "ServerChat Restart cancelled.")
	}
	return nil
}

// CancelAll drops the profile's countdown without announcing anything. Used
// when the server leaves Running.
func (s *Scheduler) CancelAll(profileID string) {
	s.detach(profileID)
}

func (s *Scheduler) detach(profileID string) *op {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ops[profileID]
	if !ok {
		return nil
	}
	delete(s.ops, profileID)
	o.canceled = true
	if o.grace != nil {
		o.grace.Stop()
	}
	close(o.stop)
	return o
}

func (s *Scheduler) Active(profileID string) (domain.TimedOperation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ops[profileID]
	if !ok {
		return domain.TimedOperation{}, false
	}
	return o.TimedOperation, true
}

// Close tears every countdown down and waits for the poll loops to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.ops))
	for id := range s.ops {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.detach(id)
	}
	s.wg.Wait()
}

func (s *Scheduler) say(ctx context.Context, profileID, command string) {
	if _, err := s.Broadcast.Send(ctx, profileID, command); err != nil {
		s.Logger.Debug("countdown broadcast not delivered", zap.String("profile", profileID), zap.Error(err))
	}
}

func verb(kind domain.TimedOperationKind) string {
	if kind == domain.TimedRestart {
		return "restarting"
	}
	return "shutting down"
}

func reasonSuffix(reason string) string {
	if reason == "" {
		return ""
	}
	return " Reason: " + reason
}

func minutesText(m int) string {
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

func checkpointText(sec int) string {
	if sec >= 60 {
		return minutesText(sec / 60)
	}
	if sec == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", sec)
}
