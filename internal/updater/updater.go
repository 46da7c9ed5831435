package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	CurrentVersion = "v0.4.0"
	RepoOwner      = "arkwarden"
	RepoName       = "arkwarden"
)

type Tag struct {
	Name string `json:"name"`
}

type UpdateInfo struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
}

// Checker compares the running version with the newest tag on GitHub.
type Checker struct {
	BaseURL string
	Version string
	Client  *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		BaseURL: "https://api.github.com",
		Version: CurrentVersion,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Checker) CheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/tags", c.BaseURL, RepoOwner, RepoName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "arkwarden-updater")
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch tags: %s", resp.Status)
	}

	var tags []Tag
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, err
	}

	if len(tags) == 0 {
		return &UpdateInfo{
			CurrentVersion:  c.Version,
			LatestVersion:   c.Version,
			UpdateAvailable: false,
		}, nil
	}

	latestTag := tags[0].Name
	return &UpdateInfo{
		CurrentVersion:  c.Version,
		LatestVersion:   latestTag,
		UpdateAvailable: compareVersions(latestTag, c.Version) > 0,
		ReleaseURL:      fmt.Sprintf("https://github.com/%s/%s/releases/tag/%s", RepoOwner, RepoName, latestTag),
	}, nil
}

func compareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		n1, _ := strconv.Atoi(parts1[i])
		n2, _ := strconv.Atoi(parts2[i])
		if n1 > n2 {
			return 1
		}
		if n1 < n2 {
			return -1
		}
	}

	if len(parts1) > len(parts2) {
		return 1
	}
	if len(parts1) < len(parts2) {
		return -1
	}

	return 0
}
