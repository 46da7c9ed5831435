package ui

import (
	"testing"

	"arkwarden/pkg/sdk"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytesShort(t *testing.T) {
	assert.Equal(t, "-", formatBytesShort(0))
	assert.Equal(t, "512.0B", formatBytesShort(512))
	assert.Equal(t, "1.5K", formatBytesShort(1536))
	assert.Equal(t, "8.0G", formatBytesShort(8<<30))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "-", formatUptime(0))
	assert.Equal(t, "2m05s", formatUptime(125))
	assert.Equal(t, "3h07m", formatUptime(3*3600+7*60+12))
}

func TestStatusIconFallsBackToError(t *testing.T) {
	icon, _ := statusIcon("RUNNING")
	assert.Equal(t, "🟢", icon)
	icon, color := statusIcon("SOMETHING")
	assert.Equal(t, "🔴", icon)
	assert.Equal(t, "160", color)
}

func TestNextChannelCycles(t *testing.T) {
	assert.Equal(t, sdk.ChannelManager, nextChannel(sdk.ChannelServer))
	assert.Equal(t, sdk.ChannelUpdate, nextChannel(sdk.ChannelManager))
	assert.Equal(t, sdk.ChannelServer, nextChannel(sdk.ChannelUpdate))
	assert.Equal(t, sdk.ChannelServer, nextChannel("unknown"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdefgh", shortID("abcdefgh-1234"))
	assert.Equal(t, "abc", shortID("abc"))
}
