// Package webhook posts Discord-style embeds about server events.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"arkwarden/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Footer      Footer `json:"footer"`
	Timestamp   string `json:"timestamp"`
}

type Footer struct {
	Text string `json:"text"`
}

type Payload struct {
	Embeds []Embed `json:"embeds"`
}

// Sender delivers embeds with a per-URL rate limit so a flapping server
// cannot get the webhook banned.
type Sender struct {
	Client *http.Client
	Logger *zap.Logger
	Now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	wg       sync.WaitGroup
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{
		Client:   &http.Client{Timeout: 10 * time.Second},
		Logger:   logger,
		Now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *Sender) limiter(url string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[url]
	if !ok {
		// Discord allows roughly 30 messages per minute per webhook.
		l = rate.NewLimiter(rate.Every(2*time.Second), 5)
		s.limiters[url] = l
	}
	return l
}

func BuildPayload(p domain.Profile, title, description string, color int, now time.Time) Payload {
	return Payload{Embeds: []Embed{{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      Footer{Text: fmt.Sprintf("Server: %s | Map: %s", p.Name, p.Config.Map)},
		Timestamp:   now.UTC().Format(time.RFC3339),
	}}}
}

// Send posts synchronously. Disabled or unconfigured profiles are skipped
// without error.
func (s *Sender) Send(ctx context.Context, p domain.Profile, title, description string, color int) error {
	if !p.Config.WebhookEnabled || p.Config.WebhookURL == "" {
		return nil
	}
	url := p.Config.WebhookURL

	if err := s.limiter(url).Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limit: %w", err)
	}

	body, err := json.Marshal(BuildPayload(p, title, description, color, s.Now()))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook post: unexpected status %s", resp.Status)
	}
	return nil
}

// Notify sends in the background and only logs failures.
func (s *Sender) Notify(p domain.Profile, title, description string, color int) {
	if !p.Config.WebhookEnabled || p.Config.WebhookURL == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, p, title, description, color); err != nil {
			s.Logger.Warn("webhook delivery failed", zap.String("profile", p.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until background deliveries finish.
func (s *Sender) Wait() {
	s.wg.Wait()
}
