package app

import (
	"context"
	"fmt"
	"strings"

	"arkwarden/internal/domain"
	"arkwarden/internal/metrics"
	"arkwarden/internal/reconcile"
	"arkwarden/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const verifyConcurrency = 4

// Load restores the stored profiles, verifies their installs, takes any
// settings edited on disk while the manager was down and arms automation.
func (c *Container) Load(ctx context.Context) error {
	if err := c.Registry.Load(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for _, p := range c.Registry.List() {
		id := p.ID
		g.Go(func() error {
			if _, err := c.Machine.Verify(gctx, id); err != nil {
				c.Logger.Warn("could not verify profile", zap.String("profile", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	c.mergeDiskConfig()

	for _, p := range c.Registry.List() {
		c.Automation.Sync(p)
		if c.Watcher != nil && p.Installed() {
			c.Watcher.Watch(p.ID, p.InstallPath)
		}
	}
	metrics.SetProfileStatuses(c.Registry.List())

	if id, err := c.Store.GetSetting(storage.SettingActiveProfile); err == nil && id != "" {
		if _, err := c.Registry.Get(id); err == nil {
			c.Automation.Select(id)
		}
	}
	return nil
}

// mergeDiskConfig lets the INI files win for every verified profile and
// reports all of them in one notification.
func (c *Container) mergeDiskConfig() {
	var changed []string
	for _, p := range c.Registry.List() {
		if p.Status != domain.StatusStopped {
			continue
		}
		snap, err := c.GameConfig.Read(p.InstallPath)
		if err != nil {
			c.Logger.Warn("could not read server config files", zap.String("profile", p.ID), zap.Error(err))
			continue
		}
		if !reconcile.Differs(p.Config, snap) {
			continue
		}
		_, err = c.Registry.Update(p.ID, func(p *domain.Profile) error {
			p.Config = reconcile.Merge(p.Config, snap)
			return nil
		})
		if err != nil {
			c.Logger.Warn("could not apply config from disk", zap.String("profile", p.ID), zap.Error(err))
			continue
		}
		c.Logger.Info("profile updated with changes from disk", zap.String("profile", p.ID), zap.Strings("fields", reconcile.Diff(p.Config, snap)))
		changed = append(changed, p.Name)
	}
	if len(changed) == 0 {
		return
	}

	c.Notifications.Add(domain.Notification{
		ID:          fmt.Sprintf("ext-change-%d", c.Clock.Now().Unix()),
		Kind:        domain.NotificationSystem,
		ProfileName: "System",
		Message:     "External settings changes detected and applied for: " + strings.Join(changed, ", "),
	})
}

// Run starts the background loops that need a context.
func (c *Container) Run(ctx context.Context) {
	if c.Watcher != nil {
		go c.Watcher.Run(ctx)
	}
}
