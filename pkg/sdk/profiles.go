package sdk

import (
	"fmt"
	"net/url"
	"time"
)

func (c *Client) ListProfiles() ([]Profile, error) {
	var profiles []Profile
	err := c.get("/profiles", &profiles)
	return profiles, err
}

func (c *Client) GetProfile(id string) (*Profile, error) {
	var p Profile
	err := c.get("/profiles/"+id, &p)
	return &p, err
}

func (c *Client) CreateProfile(req CreateProfileRequest) (*Profile, error) {
	var p Profile
	err := c.post("/profiles", req, &p)
	return &p, err
}

func (c *Client) UpdateProfile(id string, req UpdateProfileRequest) (*Profile, error) {
	var p Profile
	err := c.put("/profiles/"+id, req, &p)
	return &p, err
}

func (c *Client) UpdateConfig(id string, cfg ServerConfig) (*Profile, error) {
	var p Profile
	err := c.put(fmt.Sprintf("/profiles/%s/config", id), cfg, &p)
	return &p, err
}

func (c *Client) DeleteProfile(id string) error {
	return c.delete("/profiles/" + id)
}

// StartProfile returns a *DriftError when the start needs a decision.
func (c *Client) StartProfile(id string) error {
	return c.post(fmt.Sprintf("/profiles/%s/start", id), nil, nil)
}

func (c *Client) ResolveStart(id, choice string, remember bool) error {
	payload := map[string]interface{}{
		"choice":   choice,
		"remember": remember,
	}
	return c.post(fmt.Sprintf("/profiles/%s/start/resolve", id), payload, nil)
}

func (c *Client) StopProfile(id string) error {
	return c.post(fmt.Sprintf("/profiles/%s/stop", id), nil, nil)
}

func (c *Client) RestartProfile(id string) error {
	return c.post(fmt.Sprintf("/profiles/%s/restart", id), nil, nil)
}

func (c *Client) UpdateServerFiles(id string) error {
	return c.post(fmt.Sprintf("/profiles/%s/update", id), nil, nil)
}

func (c *Client) CheckServerUpdate(id string) (*UpdateCheck, error) {
	var check UpdateCheck
	err := c.post(fmt.Sprintf("/profiles/%s/check-update", id), nil, &check)
	return &check, err
}

func (c *Client) ScheduleShutdown(id string, minutes int, reason string) (*TimedOperation, error) {
	return c.scheduleTimed(id, "shutdown", minutes, reason)
}

func (c *Client) ScheduleRestart(id string, minutes int, reason string) (*TimedOperation, error) {
	return c.scheduleTimed(id, "restart", minutes, reason)
}

func (c *Client) scheduleTimed(id, kind string, minutes int, reason string) (*TimedOperation, error) {
	payload := map[string]interface{}{
		"minutes": minutes,
		"reason":  reason,
	}
	var op TimedOperation
	err := c.post(fmt.Sprintf("/profiles/%s/timed/%s", id, kind), payload, &op)
	return &op, err
}

func (c *Client) ActiveTimed(id string) (*TimedOperation, error) {
	var op TimedOperation
	err := c.get(fmt.Sprintf("/profiles/%s/timed", id), &op)
	return &op, err
}

func (c *Client) CancelTimed(id string) error {
	return c.delete(fmt.Sprintf("/profiles/%s/timed", id))
}

func (c *Client) SendCommand(id, command string) (*CommandEntry, error) {
	var entry CommandEntry
	err := c.post(fmt.Sprintf("/profiles/%s/command", id), map[string]string{"command": command}, &entry)
	return &entry, err
}

func (c *Client) CommandLog(id string) ([]CommandEntry, error) {
	var entries []CommandEntry
	err := c.get(fmt.Sprintf("/profiles/%s/commands", id), &entries)
	return entries, err
}

func (c *Client) SelectProfile(id string) error {
	return c.post(fmt.Sprintf("/profiles/%s/select", id), nil, nil)
}

func (c *Client) Stats(id string, since time.Time) ([]StatsSample, error) {
	var samples []StatsSample
	path := fmt.Sprintf("/profiles/%s/stats?since=%s", id, url.QueryEscape(since.Format(time.RFC3339)))
	err := c.get(path, &samples)
	return samples, err
}

// StreamURL is the websocket address of one of the profile's log channels.
func (c *Client) StreamURL(id, channel string) (string, error) {
	return c.GetWebSocketURL(fmt.Sprintf("/ws/profiles/%s/%s", id, channel))
}
