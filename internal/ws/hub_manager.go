package ws

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Channel string

const (
	ChannelManager Channel = "manager-log"
	ChannelServer  Channel = "server-log"
	ChannelUpdate  Channel = "update-log"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelManager, ChannelServer, ChannelUpdate:
		return true
	}
	return false
}

type hubKey struct {
	profileID string
	channel   Channel
}

type HubManager struct {
	hubs               map[hubKey]*Hub
	mu                 sync.Mutex
	defaultHistorySize int
	logger             *zap.Logger

	// Now stamps published lines.
	Now func() time.Time
	// OnCommand, when set, is attached to every server-log hub so console
	// clients can type commands.
	OnCommand func(profileID string, command string)
}

func NewHubManager(defaultHistorySize int, logger *zap.Logger) *HubManager {
	return &HubManager{
		hubs:               make(map[hubKey]*Hub),
		defaultHistorySize: defaultHistorySize,
		logger:             logger,
		Now:                time.Now,
	}
}

func (m *HubManager) GetHub(profileID string, channel Channel) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hubKey{profileID, channel}
	if hub, ok := m.hubs[key]; ok {
		return hub
	}

	hub := NewHubWithHistorySize(m.defaultHistorySize, m.logger)
	if channel == ChannelServer && m.OnCommand != nil {
		onCommand := m.OnCommand
		hub.OnCommand = func(message []byte) { onCommand(profileID, string(message)) }
	}
	go hub.Run()
	m.hubs[key] = hub
	return hub
}

// Publish appends a timestamped line to a profile channel.
func (m *HubManager) Publish(profileID string, channel Channel, line string) {
	stamped := fmt.Sprintf("[%s] %s", m.Now().Format("15:04:05"), line)
	m.GetHub(profileID, channel).Broadcast([]byte(stamped))
}

// PublishRaw forwards a line as-is, used for process output that carries
// its own timestamps.
func (m *HubManager) PublishRaw(profileID string, channel Channel, line string) {
	m.GetHub(profileID, channel).Broadcast([]byte(line))
}

func (m *HubManager) History(profileID string, channel Channel) []string {
	lines := m.GetHub(profileID, channel).GetHistorySnapshot()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}

func (m *HubManager) ClearChannel(profileID string, channel Channel) {
	m.GetHub(profileID, channel).ClearLogs()
}

// RemoveProfile stops every hub of a profile.
func (m *HubManager) RemoveProfile(profileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, hub := range m.hubs {
		if key.profileID == profileID {
			hub.ClearLogs()
			hub.Stop()
			delete(m.hubs, key)
		}
	}
}

func (m *HubManager) SetDefaultHistorySize(size int) {
	if size < 0 {
		size = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultHistorySize = size
	for _, hub := range m.hubs {
		hub.SetHistorySize(size)
	}
}

func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, hub := range m.hubs {
		hub.Stop()
		delete(m.hubs, key)
	}
}
