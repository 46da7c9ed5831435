// Package buildinfo reads the installed server build from its Steam app
// manifest and asks SteamCMD for the latest public build.
package buildinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

const AppID = "2430930"

var (
	manifestBuildRe = regexp.MustCompile(`"buildid"\s*"(\d+)"`)
	publicBuildRe   = regexp.MustCompile(`"public"\s*\{\s*"buildid"\s*"(\d+)"`)

	ErrManifestNotFound = errors.New("app manifest not found")
	ErrSteamCMDNotFound = errors.New("steamcmd not found")
)

// SteamCMDPath is where the manager keeps its private SteamCMD copy.
func SteamCMDPath(installPath string) string {
	name := "steamcmd.sh"
	if runtime.GOOS == "windows" {
		name = "steamcmd.exe"
	}
	return filepath.Join(installPath, "steamcmd", name)
}

type Source struct {
	Timeout time.Duration
	// run executes a command and returns its stdout.
	run func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

func NewSource(timeout time.Duration) *Source {
	return &Source{
		Timeout: timeout,
		run: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Dir = dir
			return cmd.Output()
		},
	}
}

func manifestCandidates(installPath string) []string {
	name := "appmanifest_" + AppID + ".acf"
	return []string{
		filepath.Join(installPath, "steamcmd", "steamapps", name),
		filepath.Join(installPath, "steamapps", name),
		filepath.Join(filepath.Dir(filepath.Dir(installPath)), name),
	}
}

func (s *Source) CurrentBuild(_ context.Context, installPath string) (string, error) {
	for _, path := range manifestCandidates(installPath) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		m := manifestBuildRe.FindSubmatch(data)
		if m == nil {
			return "", fmt.Errorf("no build id in %s", path)
		}
		return string(m[1]), nil
	}
	return "", fmt.Errorf("%w under %s", ErrManifestNotFound, installPath)
}

func (s *Source) LatestBuild(ctx context.Context, installPath string) (string, error) {
	exe := SteamCMDPath(installPath)
	if _, err := os.Stat(exe); err != nil {
		return "", fmt.Errorf("%w at %s", ErrSteamCMDNotFound, exe)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out, err := s.run(ctx, filepath.Dir(exe), exe, "+login", "anonymous", "+app_info_print", AppID, "+quit")
	if err != nil {
		return "", fmt.Errorf("steamcmd app_info_print: %w", err)
	}
	return ParseLatestBuild(out)
}

func ParseLatestBuild(out []byte) (string, error) {
	m := publicBuildRe.FindSubmatch(out)
	if m == nil {
		return "", errors.New("could not parse latest build id from steamcmd output")
	}
	return string(m[1]), nil
}

// Query fetches both build ids concurrently.
func (s *Source) Query(ctx context.Context, installPath string) (current, latest string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.CurrentBuild(gctx, installPath)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.LatestBuild(gctx, installPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return current, latest, nil
}
