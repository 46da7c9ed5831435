// Package system integrates the daemon with the desktop session: login
// autostart, a tray icon and the single-instance lock.
package system

import (
	"fmt"
	"os"

	"github.com/emersion/go-autostart"
)

type Autostart struct {
	app *autostart.App
}

func NewAutostart(name, displayName string) (*Autostart, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("error resolving executable: %w", err)
	}
	return &Autostart{app: &autostart.App{
		Name:        name,
		DisplayName: displayName,
		Exec:        []string{exe},
	}}, nil
}

func (a *Autostart) Enabled() bool {
	return a.app.IsEnabled()
}

// Apply makes the login entry match enabled.
func (a *Autostart) Apply(enabled bool) error {
	if enabled == a.app.IsEnabled() {
		return nil
	}
	if enabled {
		if err := a.app.Enable(); err != nil {
			return fmt.Errorf("error enabling autostart: %w", err)
		}
		return nil
	}
	if err := a.app.Disable(); err != nil {
		return fmt.Errorf("error disabling autostart: %w", err)
	}
	return nil
}
