// Package runner supervises dedicated server processes: launching them,
// following their log, terminating them and updating their files.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"arkwarden/internal/buildinfo"
	"arkwarden/internal/domain"
	"arkwarden/internal/ws"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// EventSink receives what the supervisor observes about a process.
type EventSink interface {
	HandleRunning(profileID string)
	HandleStopped(profileID string, exitCode *int)
	HandleUpdateFinished(profileID string, success bool)
	HandlePlayerCount(profileID string, count int)
}

type LogSink interface {
	Publish(profileID string, channel ws.Channel, line string)
	PublishRaw(profileID string, channel ws.Channel, line string)
}

type steamCMDFunc func(ctx context.Context, dir, exe string, args []string, output func(string)) error

type Supervisor struct {
	Logs   LogSink
	Events EventSink
	Logger *zap.Logger

	TailInterval     time.Duration
	LogWait          time.Duration
	MaxTailErrors    int
	UpdateAttempts   int
	UpdateRetryDelay time.Duration

	processes map[string]*activeProcess
	updating  map[string]bool
	mu        sync.Mutex
	wg        sync.WaitGroup

	ctx      context.Context
	cancel   context.CancelFunc
	steamcmd steamCMDFunc
}

type activeProcess struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	ready   bool
	players map[string]string
}

func NewSupervisor(logs LogSink, logger *zap.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		Logs:             logs,
		Logger:           logger,
		TailInterval:     500 * time.Millisecond,
		LogWait:          60 * time.Second,
		MaxTailErrors:    10,
		UpdateAttempts:   3,
		UpdateRetryDelay: 2 * time.Second,
		processes:        make(map[string]*activeProcess),
		updating:         make(map[string]bool),
		ctx:              ctx,
		cancel:           cancel,
		steamcmd:         runSteamCMD,
	}
}

// Launch spawns the server executable and returns its pid. Readiness and
// exit are reported later through Events.
func (s *Supervisor) Launch(_ context.Context, p domain.Profile, args []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[p.ID]; exists {
		return 0, domain.ErrAlreadyRunning
	}

	exe := ExecutablePath(p.InstallPath)
	if _, err := os.Stat(exe); err != nil {
		return 0, fmt.Errorf("server executable not found at %s: %w", exe, err)
	}

	cmd := exec.Command(exe, args...)
	cmd.Dir = filepath.Dir(exe)
	prepareCommand(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start server: %w", err)
	}

	tailCtx, cancel := context.WithCancel(s.ctx)
	proc := &activeProcess{cmd: cmd, cancel: cancel, players: make(map[string]string)}
	s.processes[p.ID] = proc

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.follow(tailCtx, p.ID, proc, LogPath(p.InstallPath))
	}()

	go func(id string, c *exec.Cmd) {
		err := c.Wait()

		s.mu.Lock()
		if s.processes[id] == proc {
			delete(s.processes, id)
		}
		s.mu.Unlock()
		proc.cancel()

		var code *int
		if c.ProcessState != nil {
			exit := c.ProcessState.ExitCode()
			code = &exit
		}
		if err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				s.Logger.Warn("waiting for server process failed", zap.String("profile", id), zap.Error(err))
			}
		}
		if s.Events != nil {
			s.Events.HandleStopped(id, code)
		}
	}(p.ID, cmd)

	return cmd.Process.Pid, nil
}

func (s *Supervisor) follow(ctx context.Context, profileID string, proc *activeProcess, path string) {
	ticker := time.NewTicker(s.TailInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(s.LogWait)
	var t *tailer
	for t == nil {
		var err error
		if t, err = newTailer(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			s.Logs.Publish(profileID, ws.ChannelManager,
				fmt.Sprintf("ShooterGame.log not found after %s. Log streaming disabled.", s.LogWait))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		lines, err := t.poll()
		if err != nil {
			failures++
			if failures >= s.MaxTailErrors {
				s.Logger.Warn("giving up on server log", zap.String("profile", profileID), zap.Error(err))
				s.Logs.Publish(profileID, ws.ChannelManager, fmt.Sprintf("Stopped following server log: %v", err))
				return
			}
			continue
		}
		failures = 0
		for _, line := range lines {
			s.handleLine(profileID, proc, line)
		}
	}
}

func (s *Supervisor) handleLine(profileID string, proc *activeProcess, line string) {
	s.Logs.PublishRaw(profileID, ws.ChannelServer, line)

	s.mu.Lock()
	becameReady := false
	if !proc.ready && strings.Contains(line, readyLine) {
		proc.ready = true
		becameReady = true
	}
	count := -1
	if ev, ok := ParsePlayerEvent(line); ok {
		if ev.Joined {
			proc.players[ev.ID] = ev.Name
		} else {
			delete(proc.players, ev.ID)
		}
		count = len(proc.players)
	}
	s.mu.Unlock()

	if s.Events == nil {
		return
	}
	if becameReady {
		s.Events.HandleRunning(profileID)
	}
	if count >= 0 {
		s.Events.HandlePlayerCount(profileID, count)
	}
}

// Terminate kills the process tree. The stopped event still arrives
// through Events once the process is reaped.
func (s *Supervisor) Terminate(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	proc, exists := s.processes[p.ID]
	s.mu.Unlock()

	pid := p.PID
	if exists {
		pid = proc.cmd.Process.Pid
	}
	if pid <= 0 {
		return domain.ErrNotRunning
	}
	if err := killTree(pid); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	if !exists && s.Events != nil {
		s.Events.HandleStopped(p.ID, nil)
	}
	return nil
}

func (s *Supervisor) Running(profileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processes[profileID]
	return ok
}

func (s *Supervisor) QueryStats(_ context.Context, p domain.Profile) (domain.ServerStats, error) {
	s.mu.Lock()
	proc, exists := s.processes[p.ID]
	s.mu.Unlock()

	pid := p.PID
	if exists {
		pid = proc.cmd.Process.Pid
	}
	if pid <= 0 {
		return domain.ServerStats{}, domain.ErrNotRunning
	}

	ps, err := process.NewProcess(int32(pid))
	if err != nil {
		return domain.ServerStats{}, fmt.Errorf("process %d not found: %w", pid, err)
	}
	created, err := ps.CreateTime()
	if err != nil {
		return domain.ServerStats{}, fmt.Errorf("could not read start time of %d: %w", pid, err)
	}
	mem, err := ps.MemoryInfo()
	if err != nil {
		return domain.ServerStats{}, fmt.Errorf("could not read memory of %d: %w", pid, err)
	}

	uptime := time.Since(time.UnixMilli(created))
	if uptime < 0 {
		uptime = 0
	}
	return domain.ServerStats{
		UptimeSeconds: uint64(uptime / time.Second),
		MemoryBytes:   mem.RSS,
	}, nil
}

// Update runs steamcmd in the background and reports the outcome through
// Events.HandleUpdateFinished.
func (s *Supervisor) Update(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	if s.updating[p.ID] {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.updating[p.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ok := s.runUpdate(s.ctx, p.ID, p.InstallPath)

		s.mu.Lock()
		delete(s.updating, p.ID)
		s.mu.Unlock()

		if s.Events != nil {
			s.Events.HandleUpdateFinished(p.ID, ok)
		}
	}()
	return nil
}

func (s *Supervisor) runUpdate(ctx context.Context, profileID, installPath string) bool {
	exe := buildinfo.SteamCMDPath(installPath)
	dir := filepath.Dir(exe)
	if _, err := os.Stat(exe); err != nil {
		s.Logs.Publish(profileID, ws.ChannelUpdate, fmt.Sprintf("SteamCMD not found at %s", exe))
		return false
	}

	script := filepath.Join(dir, "update_script.txt")
	content := fmt.Sprintf("force_install_dir \"%s\"\nlogin anonymous\napp_update %s validate\nquit\n",
		filepath.ToSlash(installPath), buildinfo.AppID)
	if err := os.WriteFile(script, []byte(content), 0644); err != nil {
		s.Logs.Publish(profileID, ws.ChannelUpdate, fmt.Sprintf("Could not write update script: %v", err))
		return false
	}
	defer os.Remove(script)

	output := func(line string) { s.Logs.PublishRaw(profileID, ws.ChannelUpdate, line) }

	var err error
	for attempt := 1; attempt <= s.UpdateAttempts; attempt++ {
		err = s.steamcmd(ctx, dir, exe, []string{"+runscript", script}, output)
		if err == nil {
			s.Logs.Publish(profileID, ws.ChannelUpdate, "Server file update completed successfully!")
			return true
		}
		if attempt == s.UpdateAttempts {
			break
		}
		s.Logs.Publish(profileID, ws.ChannelUpdate, fmt.Sprintf("Update attempt %d/%d failed. Retrying in %s...",
			attempt, s.UpdateAttempts, s.UpdateRetryDelay))
		select {
		case <-ctx.Done():
			s.Logs.Publish(profileID, ws.ChannelUpdate, "Update cancelled.")
			return false
		case <-time.After(s.UpdateRetryDelay):
		}
	}

	s.Logger.Warn("server update failed", zap.String("profile", profileID), zap.Error(err))
	s.Logs.Publish(profileID, ws.ChannelUpdate, fmt.Sprintf("Update failed: %v", err))
	return false
}

func runSteamCMD(ctx context.Context, dir, exe string, args []string, output func(string)) error {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = dir
	prepareCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start steamcmd: %w", err)
	}

	var wg sync.WaitGroup
	for _, r := range []io.Reader{stdout, stderr} {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				if text := strings.TrimSpace(scanner.Text()); text != "" {
					output(text)
				}
			}
		}(r)
	}
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("steamcmd exited with error: %w", err)
	}
	return nil
}

// Close stops log tails and pending updates. Server processes keep running.
func (s *Supervisor) Close() {
	s.cancel()
	s.wg.Wait()
}
