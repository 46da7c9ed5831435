package system

import (
	"github.com/getlantern/systray"
	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// RunTray blocks running the tray icon until Quit is chosen or QuitTray is
// called. onQuit runs once the tray has gone.
func RunTray(dashboardURL string, logger *zap.Logger, onQuit func()) {
	systray.Run(func() {
		systray.SetTitle("arkwarden")
		systray.SetTooltip("arkwarden server manager")

		open := systray.AddMenuItem("Open dashboard", "Open the dashboard in a browser")
		systray.AddSeparator()
		quit := systray.AddMenuItem("Quit", "Stop the daemon")

		go func() {
			for {
				select {
				case <-open.ClickedCh:
					if err := browser.OpenURL(dashboardURL); err != nil {
						logger.Warn("could not open browser", zap.Error(err))
					}
				case <-quit.ClickedCh:
					systray.Quit()
					return
				}
			}
		}()
	}, onQuit)
}

func QuitTray() {
	systray.Quit()
}
