package automation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"arkwarden/internal/clock"
	"arkwarden/internal/dispatch"
	"arkwarden/internal/domain"
	"arkwarden/internal/notify"
	"arkwarden/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct{}

func (memStore) LoadProfiles() ([]domain.Profile, error) { return nil, nil }
func (memStore) SaveProfiles([]domain.Profile) error     { return nil }

type fakeLifecycle struct {
	reg      *profile.Registry
	restarts []bool
	checks   int
	current  string
	latest   string
	err      error
}

func (f *fakeLifecycle) Restart(_ context.Context, _ string, scheduled bool) error {
	f.restarts = append(f.restarts, scheduled)
	return nil
}

func (f *fakeLifecycle) CheckForUpdate(_ context.Context, id string) (domain.Profile, error) {
	f.checks++
	if f.err != nil {
		return domain.Profile{}, f.err
	}
	return f.reg.Update(id, func(p *domain.Profile) error {
		p.CurrentBuildID = f.current
		p.LatestBuildID = f.latest
		return nil
	})
}

type fakeBroadcast struct{ sent []string }

func (f *fakeBroadcast) Send(_ context.Context, _ string, cmd string) (dispatch.Entry, error) {
	f.sent = append(f.sent, cmd)
	return dispatch.Entry{Command: cmd}, nil
}

type fakeStats struct{ err error }

func (f *fakeStats) QueryStats(context.Context, domain.Profile) (domain.ServerStats, error) {
	if f.err != nil {
		return domain.ServerStats{}, f.err
	}
	return domain.ServerStats{UptimeSeconds: 90, MemoryBytes: 8 << 30}, nil
}

type sampleStore struct {
	mu      sync.Mutex
	samples []domain.StatsSample
}

func (s *sampleStore) SaveStatsSample(sample domain.StatsSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *sampleStore) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sample := range s.samples {
		if sample.ProfileID == id {
			n++
		}
	}
	return n
}

type desktop struct{ titles []string }

func (d *desktop) Notify(title, _ string) { d.titles = append(d.titles, title) }

type fixture struct {
	clk       *clock.FakeClock
	reg       *profile.Registry
	lifecycle *fakeLifecycle
	broadcast *fakeBroadcast
	notes     *notify.Center
	desktop   *desktop
	store     *sampleStore
	engine    *Engine
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	f := &fixture{
		clk:       clock.NewFake(start),
		reg:       profile.NewRegistry(memStore{}),
		broadcast: &fakeBroadcast{},
		notes:     notify.NewCenter(),
		desktop:   &desktop{},
		store:     &sampleStore{},
	}
	f.lifecycle = &fakeLifecycle{reg: f.reg}
	f.engine = NewEngine(f.reg, f.lifecycle, f.clk, zap.NewNop())
	f.engine.Broadcast = f.broadcast
	f.engine.Notifications = f.notes
	f.engine.Desktop = f.desktop
	f.engine.Stats = &fakeStats{}
	f.engine.StatsStore = f.store
	t.Cleanup(f.engine.Close)
	return f
}

// profile creates an installed profile, applies cfg and walks it to status.
func (f *fixture) profile(t *testing.T, name string, status domain.Status, cfg func(c *domain.ServerConfig)) domain.Profile {
	t.Helper()
	p, err := f.reg.Create(name, "/srv/"+name)
	require.NoError(t, err)

	path := []domain.Status{domain.StatusStopped}
	if status == domain.StatusRunning {
		path = append(path, domain.StatusStarting, domain.StatusRunning)
	}
	for _, s := range path {
		p, err = f.reg.Update(p.ID, func(p *domain.Profile) error {
			p.Status = s
			if cfg != nil {
				cfg(&p.Config)
			}
			return nil
		})
		require.NoError(t, err)
	}
	return p
}

func scheduledAt(hhmm string, lead int, rcon bool) func(c *domain.ServerConfig) {
	return func(c *domain.ServerConfig) {
		c.AutoUpdateEnabled = false
		c.ScheduledRestartEnabled = true
		c.ScheduledRestartTime = hhmm
		c.RestartAnnouncementMinutes = lead
		c.RCONEnabled = rcon
	}
}

func count(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func TestScheduledRestartAnnouncesEachMinuteOnce(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 3, 50, 2, 0, time.UTC))
	p := f.profile(t, "island", domain.StatusRunning, scheduledAt("04:00", 10, true))
	f.engine.Sync(p)

	// every poll up to 03:51 sits in the tenth minute
	f.clk.Advance(58 * time.Second)
	assert.Equal(t, []string{"ServerChat Scheduled restart in 10 minute(s)."}, f.broadcast.sent)
	assert.Empty(t, f.lifecycle.restarts)

	f.clk.Advance(9*time.Minute + 10*time.Second)
	assert.Equal(t, []string{
		"ServerChat Scheduled restart in 10 minute(s).",
		"ServerChat Scheduled restart in 5 minute(s).",
		"ServerChat Scheduled restart in 3 minute(s).",
		"ServerChat Scheduled restart in 2 minute(s).",
		"ServerChat Scheduled restart in 1 minute(s).",
	}, f.broadcast.sent)
	assert.Equal(t, []bool{true}, f.lifecycle.restarts)

	// nothing more until the next day's lead window
	f.clk.Advance(time.Hour)
	assert.Len(t, f.broadcast.sent, 5)
	assert.Len(t, f.lifecycle.restarts, 1)
}

func TestScheduledRestartRecursDaily(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 3, 59, 0, 0, time.UTC))
	p := f.profile(t, "island", domain.StatusRunning, scheduledAt("04:00", 10, true))
	f.engine.Sync(p)

	f.clk.Advance(24*time.Hour + time.Minute)
	assert.Len(t, f.lifecycle.restarts, 2)
	assert.Equal(t, 2, count(f.broadcast.sent, "ServerChat Scheduled restart in 1 minute(s)."))
	assert.Equal(t, 1, count(f.broadcast.sent, "ServerChat Scheduled restart in 10 minute(s)."))
}

func TestScheduledRestartNeedsRunningServer(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 3, 55, 0, 0, time.UTC))
	p := f.profile(t, "island", domain.StatusStopped, scheduledAt("04:00", 10, true))
	f.engine.Sync(p)

	f.clk.Advance(10 * time.Minute)
	assert.Empty(t, f.broadcast.sent)
	assert.Empty(t, f.lifecycle.restarts)
}

func TestScheduledRestartWithoutRemoteConsoleStillRestarts(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 3, 55, 0, 0, time.UTC))
	p := f.profile(t, "island", domain.StatusRunning, scheduledAt("04:00", 10, false))
	f.engine.Sync(p)

	f.clk.Advance(10 * time.Minute)
	assert.Empty(t, f.broadcast.sent)
	assert.Equal(t, []bool{true}, f.lifecycle.restarts)
}

func TestRestartWarningNotification(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 3, 30, 10, 0, time.UTC))
	p := f.profile(t, "island", domain.StatusStopped, scheduledAt("04:00", 0, false))
	f.engine.Sync(p)
	nid := domain.RestartNotificationID(p.ID)

	f.clk.Advance(30 * time.Second)
	require.True(t, f.notes.Has(nid))
	list := f.notes.List()
	require.Len(t, list, 1)
	assert.Equal(t, `Server "island" will restart in ~29 minutes.`, list[0].Message)
	assert.Equal(t, domain.NotificationRestart, list[0].Kind)

	// still one entry after more polls
	f.clk.Advance(5 * time.Minute)
	assert.Len(t, f.notes.List(), 1)

	f.clk.Advance(30 * time.Minute)
	assert.False(t, f.notes.Has(nid))
}

func TestUpdateCheckNotifiesOnceAndRetracts(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	f.lifecycle.current, f.lifecycle.latest = "100", "101"
	p := f.profile(t, "island", domain.StatusStopped, func(c *domain.ServerConfig) {
		c.AutoUpdateEnabled = true
		c.AutoUpdateFrequencyMinutes = 60
		c.ScheduledRestartEnabled = false
	})
	f.engine.Sync(p)
	nid := domain.UpdateNotificationID(p.ID)

	f.clk.Advance(0)
	assert.Equal(t, 1, f.lifecycle.checks)
	assert.True(t, f.notes.Has(nid))
	assert.Equal(t, []string{"Update Available"}, f.desktop.titles)

	f.clk.Advance(time.Hour)
	assert.Equal(t, 2, f.lifecycle.checks)
	assert.Len(t, f.desktop.titles, 1)

	f.lifecycle.current = "101"
	f.clk.Advance(time.Hour)
	assert.False(t, f.notes.Has(nid))
}

func TestUpdateCheckErrorKeepsNotificationState(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	f.lifecycle.err = errors.New("steamcmd not found")
	p := f.profile(t, "island", domain.StatusStopped, func(c *domain.ServerConfig) {
		c.AutoUpdateEnabled = true
		c.AutoUpdateFrequencyMinutes = 30
	})
	f.engine.Sync(p)

	f.clk.Advance(time.Hour)
	assert.Equal(t, 3, f.lifecycle.checks)
	assert.Empty(t, f.notes.List())
}

func TestSyncRearmsOnlyOnSettingChanges(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p := f.profile(t, "island", domain.StatusStopped, scheduledAt("04:00", 10, true))

	f.engine.Sync(p)
	assert.Equal(t, 2, f.clk.Pending())

	f.clk.Advance(3 * time.Second)
	p.Name = "renamed"
	f.engine.Sync(p)
	f.clk.Advance(2 * time.Second)
	// unchanged settings must not stack a second set of timers
	assert.Equal(t, 2, f.clk.Pending())

	p.Config.ScheduledRestartEnabled = false
	f.engine.Sync(p)
	assert.Zero(t, f.clk.Pending())

	f.engine.Remove(p.ID)
	assert.Zero(t, f.clk.Pending())
}

func TestSelectMovesStatsPollButKeepsAutomation(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	a := f.profile(t, "a", domain.StatusRunning, scheduledAt("04:00", 10, true))
	b := f.profile(t, "b", domain.StatusRunning, nil)
	f.engine.Sync(a)

	f.engine.Select(a.ID)
	f.clk.Advance(0)
	got, _ := f.reg.Get(a.ID)
	assert.Equal(t, uint64(90), got.UptimeSeconds)
	assert.Equal(t, uint64(8<<30), got.MemoryBytes)
	assert.Equal(t, 1, f.store.count(a.ID))

	f.engine.Select(b.ID)
	f.clk.Advance(10 * time.Second)
	assert.Equal(t, 1, f.store.count(a.ID))
	assert.Equal(t, 3, f.store.count(b.ID))
	assert.Equal(t, b.ID, f.engine.Selected())

	// a's restart poll and warning poll plus b's stats poll
	assert.Equal(t, 3, f.clk.Pending())
}

func TestStatsPollSkipsStoppedAndClearsOnError(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	stopped := f.profile(t, "stopped", domain.StatusStopped, nil)
	f.engine.Select(stopped.ID)
	f.clk.Advance(time.Minute)
	assert.Zero(t, f.store.count(stopped.ID))

	running := f.profile(t, "running", domain.StatusRunning, nil)
	f.engine.Select(running.ID)
	f.clk.Advance(0)
	require.Equal(t, 1, f.store.count(running.ID))

	f.engine.Stats = &fakeStats{err: errors.New("process gone")}
	f.clk.Advance(StatsPoll)
	got, _ := f.reg.Get(running.ID)
	assert.Zero(t, got.MemoryBytes)
	assert.Zero(t, got.UptimeSeconds)
}

func TestOccurrences(t *testing.T) {
	at := func(h, m, s int) time.Time { return time.Date(2024, 5, 1, h, m, s, 0, time.UTC) }

	next, prev := occurrences(at(3, 50, 0), 4, 0)
	assert.Equal(t, at(4, 0, 0), next)
	assert.Equal(t, at(4, 0, 0).AddDate(0, 0, -1), prev)

	next, prev = occurrences(at(4, 0, 0), 4, 0)
	assert.Equal(t, at(4, 0, 0), next)
	assert.Equal(t, at(4, 0, 0), prev)

	next, prev = occurrences(at(4, 0, 3), 4, 0)
	assert.Equal(t, at(4, 0, 0).AddDate(0, 0, 1), next)
	assert.Equal(t, at(4, 0, 0), prev)
	assert.True(t, strings.HasPrefix(next.Format(time.RFC3339), "2024-05-02"))
}
