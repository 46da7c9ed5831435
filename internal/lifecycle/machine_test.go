package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"arkwarden/internal/clock"
	"arkwarden/internal/domain"
	"arkwarden/internal/notify"
	"arkwarden/internal/profile"
	"arkwarden/internal/runner"
	"arkwarden/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct{ saved []domain.Profile }

func (m *memStore) LoadProfiles() ([]domain.Profile, error) { return m.saved, nil }
func (m *memStore) SaveProfiles(p []domain.Profile) error {
	m.saved = append([]domain.Profile(nil), p...)
	return nil
}

type fakeSupervisor struct {
	mu         sync.Mutex
	launches   [][]string
	terminates int
	updates    int
	launchErr  error
}

func (f *fakeSupervisor) Launch(_ context.Context, _ domain.Profile, args []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return 0, f.launchErr
	}
	f.launches = append(f.launches, args)
	return 4242, nil
}

func (f *fakeSupervisor) Terminate(context.Context, domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminates++
	return nil
}

func (f *fakeSupervisor) Update(context.Context, domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	return nil
}

type fakeBuilds struct {
	current, latest string
	err             error
}

func (f *fakeBuilds) CurrentBuild(context.Context, string) (string, error) { return f.current, f.err }
func (f *fakeBuilds) Query(context.Context, string) (string, string, error) {
	return f.current, f.latest, f.err
}

type fakeConfig struct {
	snap   *domain.ConfigSnapshot
	writes int
}

func (f *fakeConfig) Read(string) (*domain.ConfigSnapshot, error) { return f.snap, nil }
func (f *fakeConfig) Write(string, domain.ServerConfig) error {
	f.writes++
	return nil
}

type fakeCountdowns struct{ cancels int }

func (f *fakeCountdowns) CancelAll(string) { f.cancels++ }

type fakeSettings struct{ autoSave bool }

func (f *fakeSettings) AutoSaveOnStart() bool { return f.autoSave }
func (f *fakeSettings) EnableAutoSaveOnStart() error {
	f.autoSave = true
	return nil
}

type titles struct {
	mu   sync.Mutex
	list []string
}

func (t *titles) Notify(title, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, title)
}

type hooks struct{ titles }

func (h *hooks) Notify(_ domain.Profile, title, _ string, _ int) { h.titles.Notify(title, "") }

type nopLogs struct{}

func (nopLogs) Publish(string, ws.Channel, string) {}
func (nopLogs) ClearChannel(string, ws.Channel)    {}

type harness struct {
	m          *Machine
	reg        *profile.Registry
	sup        *fakeSupervisor
	clk        *clock.FakeClock
	builds     *fakeBuilds
	cfg        *fakeConfig
	countdowns *fakeCountdowns
	settings   *fakeSettings
	notes      *notify.Center
	desktop    *titles
	webhooks   *hooks
	id         string

	mu      sync.Mutex
	history []domain.Status
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reg:        profile.NewRegistry(&memStore{}),
		sup:        &fakeSupervisor{},
		clk:        clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		builds:     &fakeBuilds{current: "100", latest: "100"},
		cfg:        &fakeConfig{},
		countdowns: &fakeCountdowns{},
		settings:   &fakeSettings{},
		notes:      notify.NewCenter(),
		desktop:    &titles{},
		webhooks:   &hooks{},
	}

	h.reg.OnChange(func(before, after domain.Profile) {
		if before.ID == "" || after.ID == "" || before.Status == after.Status {
			return
		}
		assert.True(t, domain.CanTransition(before.Status, after.Status), "%s -> %s", before.Status, after.Status)
		h.mu.Lock()
		h.history = append(h.history, after.Status)
		h.mu.Unlock()
	})

	h.m = NewMachine(h.reg, h.sup, h.clk, zap.NewNop())
	h.m.Builds = h.builds
	h.m.Config = h.cfg
	h.m.Countdowns = h.countdowns
	h.m.Settings = h.settings
	h.m.Notifications = h.notes
	h.m.Desktop = h.desktop
	h.m.Webhooks = h.webhooks
	h.m.Logs = nopLogs{}

	install := t.TempDir()
	exe := runner.ExecutablePath(install)
	require.NoError(t, os.MkdirAll(filepath.Dir(exe), 0755))
	require.NoError(t, os.WriteFile(exe, nil, 0755))

	p, err := h.reg.Create("Island", install)
	require.NoError(t, err)
	h.id = p.ID

	p, err = h.m.Verify(context.Background(), h.id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusStopped, p.Status)
	return h
}

func (h *harness) status(t *testing.T) domain.Status {
	p, err := h.reg.Get(h.id)
	require.NoError(t, err)
	return p.Status
}

func (h *harness) running(t *testing.T) {
	t.Helper()
	require.NoError(t, h.m.Start(context.Background(), h.id))
	h.m.HandleRunning(h.id)
	require.Equal(t, domain.StatusRunning, h.status(t))
}

func exit(code int) *int { return &code }

func TestStartRunningStopClearsStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.m.Start(ctx, h.id))
	assert.Equal(t, domain.StatusStarting, h.status(t))
	require.Len(t, h.sup.launches, 1)
	assert.Contains(t, h.sup.launches[0], "-Port=7777")

	h.m.HandleRunning(h.id)
	h.m.HandlePlayerCount(h.id, 3)
	p, _ := h.reg.Get(h.id)
	assert.Equal(t, domain.StatusRunning, p.Status)
	assert.Equal(t, 4242, p.PID)
	assert.Equal(t, 3, p.PlayerCount)

	require.NoError(t, h.m.Stop(ctx, h.id))
	assert.Equal(t, domain.StatusStopping, h.status(t))
	assert.Equal(t, 1, h.sup.terminates)
	assert.GreaterOrEqual(t, h.countdowns.cancels, 1)

	h.m.HandleStopped(h.id, exit(0))
	p, _ = h.reg.Get(h.id)
	assert.Equal(t, domain.StatusStopped, p.Status)
	assert.Zero(t, p.PID)
	assert.Zero(t, p.PlayerCount)
	assert.Zero(t, p.UptimeSeconds)
	assert.Zero(t, p.MemoryBytes)

	assert.Equal(t, []domain.Status{
		domain.StatusStarting, domain.StatusRunning, domain.StatusStopping, domain.StatusStopped,
	}, h.history[1:])
	assert.Contains(t, h.desktop.list, "Server Online")
	assert.Contains(t, h.webhooks.list, "Server Offline")
}

func TestSecondStartWhileStartingIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.m.Start(ctx, h.id))
	err := h.m.Start(ctx, h.id)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Len(t, h.sup.launches, 1)
	assert.Equal(t, domain.StatusStarting, h.status(t))
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	h := newHarness(t)
	h.running(t)
	assert.ErrorIs(t, h.m.Start(context.Background(), h.id), domain.ErrAlreadyRunning)
	assert.Len(t, h.sup.launches, 1)
}

func TestWatchdogTimeoutIsAFailedStart(t *testing.T) {
	h := newHarness(t)
	h.m.StartupTimeout = time.Minute

	require.NoError(t, h.m.Start(context.Background(), h.id))
	h.clk.Advance(59 * time.Second)
	assert.Equal(t, domain.StatusStarting, h.status(t))

	h.clk.Advance(time.Second)
	assert.Equal(t, domain.StatusError, h.status(t))
	assert.Equal(t, 1, h.sup.terminates)
	assert.Contains(t, h.desktop.list, "Server Error")

	// the kill lands afterwards and must not move the profile off Error
	h.m.HandleStopped(h.id, exit(1))
	assert.Equal(t, domain.StatusError, h.status(t))
}

func TestRunningEventCancelsWatchdog(t *testing.T) {
	h := newHarness(t)
	h.running(t)
	assert.Zero(t, h.clk.Pending())

	h.clk.Advance(time.Hour)
	assert.Equal(t, domain.StatusRunning, h.status(t))
}

func TestLaunchFailureResolvesToError(t *testing.T) {
	h := newHarness(t)
	h.sup.launchErr = errors.New("access denied")

	err := h.m.Start(context.Background(), h.id)
	assert.Error(t, err)
	assert.Equal(t, domain.StatusError, h.status(t))
	assert.Zero(t, h.clk.Pending())

	// Error is startable again once the cause is fixed
	h.sup.launchErr = nil
	require.NoError(t, h.m.Start(context.Background(), h.id))
	assert.Equal(t, domain.StatusStarting, h.status(t))
}

func TestRestartStopsThenStartsAgain(t *testing.T) {
	h := newHarness(t)
	h.running(t)

	require.NoError(t, h.m.Restart(context.Background(), h.id, false))
	assert.Equal(t, domain.StatusRestarting, h.status(t))
	assert.Equal(t, 1, h.sup.terminates)
	assert.Contains(t, h.webhooks.list, "Server Restarting")

	h.m.HandleStopped(h.id, exit(0))
	assert.Equal(t, domain.StatusStarting, h.status(t))
	assert.Len(t, h.sup.launches, 2)
	assert.Zero(t, h.sup.updates)
}

func TestScheduledRestartWithNewBuildUpdatesInstead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.running(t)
	_, err := h.reg.Update(h.id, func(p *domain.Profile) error {
		p.CurrentBuildID = "100"
		p.LatestBuildID = "101"
		return nil
	})
	require.NoError(t, err)
	h.notes.Add(domain.Notification{ID: domain.UpdateNotificationID(h.id), Kind: domain.NotificationUpdate})

	require.NoError(t, h.m.Restart(ctx, h.id, true))
	assert.Equal(t, domain.StatusStopping, h.status(t))
	assert.Contains(t, h.desktop.list, "Update Found")
	assert.Contains(t, h.webhooks.list, "Server Restarting")

	h.m.HandleStopped(h.id, exit(0))
	assert.Equal(t, domain.StatusUpdating, h.status(t))
	assert.Equal(t, 1, h.sup.updates)
	assert.Len(t, h.sup.launches, 1, "no relaunch before the update")

	h.builds.current = "101"
	h.m.HandleUpdateFinished(h.id, true)
	p, _ := h.reg.Get(h.id)
	assert.Equal(t, domain.StatusStopped, p.Status)
	assert.Equal(t, "101", p.CurrentBuildID)
	assert.False(t, h.notes.Has(domain.UpdateNotificationID(h.id)))
}

func TestScheduledRestartWithoutNewBuildRestarts(t *testing.T) {
	h := newHarness(t)
	h.running(t)

	require.NoError(t, h.m.Restart(context.Background(), h.id, true))
	assert.Equal(t, domain.StatusRestarting, h.status(t))
	assert.Contains(t, h.desktop.list, "Scheduled Restart")
	assert.NotContains(t, h.desktop.list, "Update Found")
}

func TestManualRestartIgnoresKnownUpdate(t *testing.T) {
	h := newHarness(t)
	h.running(t)
	_, err := h.reg.Update(h.id, func(p *domain.Profile) error {
		p.LatestBuildID = "999"
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.m.Restart(context.Background(), h.id, false))
	assert.Equal(t, domain.StatusRestarting, h.status(t))
}

func TestUpdateFailureResolvesToError(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.m.Update(context.Background(), h.id))
	assert.Equal(t, domain.StatusUpdating, h.status(t))
	assert.ErrorIs(t, h.m.Start(context.Background(), h.id), domain.ErrBusy)

	h.m.HandleUpdateFinished(h.id, false)
	assert.Equal(t, domain.StatusError, h.status(t))
}

func TestDriftHoldsStartUntilResolved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	name := "Disk Name"
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &name}

	err := h.m.Start(ctx, h.id)
	assert.ErrorIs(t, err, domain.ErrDriftDetected)
	assert.Equal(t, domain.StatusStopped, h.status(t))
	assert.Empty(t, h.sup.launches)

	ps, ok := h.m.Pending(h.id)
	require.True(t, ok)
	assert.Equal(t, []string{"sessionName"}, ps.Fields)

	require.NoError(t, h.m.ResolvePendingStart(ctx, h.id, ChoiceLoadDisk, false))
	p, _ := h.reg.Get(h.id)
	assert.Equal(t, "Disk Name", p.Config.SessionName)
	assert.Equal(t, domain.StatusStarting, p.Status)
	assert.Len(t, h.sup.launches, 1)

	assert.ErrorIs(t, h.m.ResolvePendingStart(ctx, h.id, ChoiceCancel, false), domain.ErrNoPendingStart)
}

func TestDriftSaveAppConfigCanRememberAutoSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	name := "Disk Name"
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &name}

	assert.ErrorIs(t, h.m.Start(ctx, h.id), domain.ErrDriftDetected)
	require.NoError(t, h.m.ResolvePendingStart(ctx, h.id, ChoiceSaveAppConfig, true))

	assert.Equal(t, 1, h.cfg.writes)
	assert.True(t, h.settings.autoSave)
	p, _ := h.reg.Get(h.id)
	assert.Equal(t, "My Ark Server 1", p.Config.SessionName)
	assert.Equal(t, domain.StatusStarting, p.Status)
}

func TestDriftCancelDropsStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	name := "Disk Name"
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &name}

	assert.ErrorIs(t, h.m.Start(ctx, h.id), domain.ErrDriftDetected)
	require.NoError(t, h.m.ResolvePendingStart(ctx, h.id, ChoiceCancel, false))
	assert.Empty(t, h.sup.launches)
	assert.Equal(t, domain.StatusStopped, h.status(t))
	_, ok := h.m.Pending(h.id)
	assert.False(t, ok)
}

func TestAutoSaveOnStartSkipsDriftCheck(t *testing.T) {
	h := newHarness(t)
	name := "Disk Name"
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &name}
	h.settings.autoSave = true

	require.NoError(t, h.m.Start(context.Background(), h.id))
	assert.Equal(t, 1, h.cfg.writes)
	assert.Len(t, h.sup.launches, 1)
}

func TestPreconditionsLeaveStateAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.m.Stop(ctx, h.id), domain.ErrNotRunning)
	assert.ErrorIs(t, h.m.Restart(ctx, h.id, false), domain.ErrNotRunning)
	assert.Equal(t, domain.StatusStopped, h.status(t))

	p, err := h.reg.Create("Bare", "")
	require.NoError(t, err)
	assert.ErrorIs(t, h.m.Start(ctx, p.ID), domain.ErrNotInstalled)
	assert.ErrorIs(t, h.m.Update(ctx, p.ID), domain.ErrNotInstalled)
	assert.Empty(t, h.sup.launches)
}

func TestUnexpectedExitIsAnError(t *testing.T) {
	h := newHarness(t)
	h.running(t)

	h.m.HandleStopped(h.id, exit(3))
	assert.Equal(t, domain.StatusError, h.status(t))
}

func TestCleanExitWhileRunningSettlesStopped(t *testing.T) {
	h := newHarness(t)
	h.running(t)

	h.m.HandleStopped(h.id, exit(0))
	assert.Equal(t, domain.StatusStopped, h.status(t))
}

func TestVerifyWithoutExecutable(t *testing.T) {
	h := newHarness(t)
	p, err := h.reg.Create("Empty", t.TempDir())
	require.NoError(t, err)

	p, err = h.m.Verify(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotInstalled, p.Status)

	require.NoError(t, h.m.Update(context.Background(), p.ID))
	p, _ = h.reg.Get(p.ID)
	assert.Equal(t, domain.StatusUpdating, p.Status)
}

func TestCheckForUpdateRecordsAttemptOnFailure(t *testing.T) {
	h := newHarness(t)
	h.builds.err = errors.New("steamcmd missing")

	p, err := h.m.CheckForUpdate(context.Background(), h.id)
	assert.Error(t, err)
	require.NotNil(t, p.LastUpdateCheck)
	assert.Equal(t, h.clk.Now(), *p.LastUpdateCheck)

	h.builds.err = nil
	h.builds.latest = "200"
	p, err = h.m.CheckForUpdate(context.Background(), h.id)
	require.NoError(t, err)
	assert.True(t, p.UpdateAvailable())
}

func TestLoadDiskUsesFilesAsTheyAreWhenResolved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, second := "Disk Name", "Edited Again"
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &first}

	require.ErrorIs(t, h.m.Start(ctx, h.id), domain.ErrDriftDetected)
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &second}

	require.NoError(t, h.m.ResolvePendingStart(ctx, h.id, ChoiceLoadDisk, false))
	p, _ := h.reg.Get(h.id)
	assert.Equal(t, "Edited Again", p.Config.SessionName)
}

func TestRelocateRefusedWhileStarting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.m.Start(ctx, h.id))
	before, _ := h.reg.Get(h.id)

	_, err := h.m.Relocate(ctx, h.id, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrBusy)

	after, _ := h.reg.Get(h.id)
	assert.Equal(t, domain.StatusStarting, after.Status)
	assert.Equal(t, before.InstallPath, after.InstallPath)
	assert.Equal(t, before.CurrentBuildID, after.CurrentBuildID)

	h.m.HandleRunning(h.id)
	_, err = h.m.Relocate(ctx, h.id, "")
	assert.ErrorIs(t, err, domain.ErrBusy)
}

func TestRelocateClearsBuildsAndVerifies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.reg.Update(h.id, func(p *domain.Profile) error {
		p.LatestBuildID = "101"
		return nil
	})
	require.NoError(t, err)

	p, err := h.m.Relocate(ctx, h.id, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotInstalled, p.Status)
	assert.Empty(t, p.CurrentBuildID)
	assert.Empty(t, p.LatestBuildID)

	install := t.TempDir()
	exe := runner.ExecutablePath(install)
	require.NoError(t, os.MkdirAll(filepath.Dir(exe), 0755))
	require.NoError(t, os.WriteFile(exe, nil, 0755))
	p, err = h.m.Relocate(ctx, h.id, install)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStopped, p.Status)
	assert.Equal(t, install, p.InstallPath)
	assert.Equal(t, "100", p.CurrentBuildID)

	p, err = h.m.Relocate(ctx, h.id, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotInstalled, p.Status)
	assert.False(t, p.Installed())
}

func TestRelocateDropsHeldStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	name := "Disk Name"
	h.cfg.snap = &domain.ConfigSnapshot{SessionName: &name}
	require.ErrorIs(t, h.m.Start(ctx, h.id), domain.ErrDriftDetected)

	_, err := h.m.Relocate(ctx, h.id, "")
	require.NoError(t, err)
	_, ok := h.m.Pending(h.id)
	assert.False(t, ok)
}

func TestCloseStopsWatchdogs(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Start(context.Background(), h.id))
	require.Equal(t, 1, h.clk.Pending())

	h.m.Close()
	assert.Zero(t, h.clk.Pending())

	h.clk.Advance(h.m.StartupTimeout + time.Second)
	assert.Equal(t, domain.StatusStarting, h.status(t))
	assert.Zero(t, h.sup.terminates)
}

func TestForgetDropsWatchdogAndHeldState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Start(context.Background(), h.id))
	require.Equal(t, 1, h.clk.Pending())

	h.m.Forget(h.id)
	assert.Zero(t, h.clk.Pending())
	h.m.mu.Lock()
	assert.Empty(t, h.m.pids)
	assert.Empty(t, h.m.resume)
	h.m.mu.Unlock()
}
