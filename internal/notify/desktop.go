package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Desktop shows OS notifications when the app setting allows it.
type Desktop struct {
	Enabled func() bool
	Logger  *zap.Logger

	send func(title, message string) error
}

func NewDesktop(appName string, enabled func() bool, logger *zap.Logger) *Desktop {
	beeep.AppName = appName
	return &Desktop{
		Enabled: enabled,
		Logger:  logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (d *Desktop) Notify(title, message string) {
	if d == nil || (d.Enabled != nil && !d.Enabled()) {
		return
	}
	if err := d.send(title, message); err != nil {
		d.Logger.Debug("desktop notification failed", zap.String("title", title), zap.Error(err))
	}
}
