package sdk

func (c *Client) ListNotifications() ([]Notification, error) {
	var list []Notification
	err := c.get("/notifications", &list)
	return list, err
}

func (c *Client) MarkNotificationsRead() error {
	return c.post("/notifications/read", nil, nil)
}

func (c *Client) ClearNotifications() error {
	return c.delete("/notifications")
}

func (c *Client) GetSettings() (*AppSettings, error) {
	var s AppSettings
	err := c.get("/settings", &s)
	return &s, err
}

func (c *Client) UpdateSettings(req SettingsRequest) (*AppSettings, error) {
	var s AppSettings
	err := c.put("/settings", req, &s)
	return &s, err
}

func (c *Client) CheckUpdates() (*UpdateInfo, error) {
	var info UpdateInfo
	err := c.get("/app/update", &info)
	return &info, err
}
