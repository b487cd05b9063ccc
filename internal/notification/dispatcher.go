// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package notification forwards selected events to a chat or generic
// webhook.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"grimm.is/linkguard/internal/audit"
	"grimm.is/linkguard/internal/logging"
)

// Level constants
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Payload formats.
const (
	FormatGeneric = "generic"
	FormatSlack   = "slack"
	FormatDiscord = "discord"
)

// rateLimitWindow suppresses repeats of the same title.
const rateLimitWindow = 60 * time.Second

// Notification represents a notification event
type Notification struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Level     string            `json:"level"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// Options configures a Dispatcher.
type Options struct {
	URL    string
	Format string
	// MinBandIndex is the lowest band index that is forwarded.
	MinBandIndex int
	// TopBandIndex marks transitions that are reported as critical.
	TopBandIndex int
	Interface    string
	Timeout      time.Duration
}

// Dispatcher delivers events to a webhook without blocking the caller.
type Dispatcher struct {
	opts   Options
	logger *logging.Logger
	client *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time

	wg sync.WaitGroup
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(opts Options, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default().WithComponent("notification")
	}
	if opts.Format == "" {
		opts.Format = FormatGeneric
	}
	if opts.MinBandIndex < 1 {
		opts.MinBandIndex = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		opts:     opts,
		logger:   logger,
		client:   &http.Client{Timeout: opts.Timeout},
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Record implements audit.Recorder. Filtered events return nil; delivery
// happens in the background and failures are only logged.
func (d *Dispatcher) Record(ev audit.Event) error {
	n, ok := d.fromEvent(ev)
	if !ok {
		return nil
	}
	d.Send(n)
	return nil
}

func (d *Dispatcher) fromEvent(ev audit.Event) (Notification, bool) {
	n := Notification{
		Timestamp: ev.Time,
		Data:      map[string]string{"event": ev.Name, "interface": d.opts.Interface},
	}

	switch {
	case ev.IsMitigation():
		n.Title = fmt.Sprintf("linkguard %s on %s", ev.Name, d.opts.Interface)
		n.Message = ev.Detail
		n.Level = LevelCritical
		if ev.Name == audit.EventMitigationSucceeded {
			n.Level = LevelInfo
		}
	case ev.BandIndex >= d.opts.MinBandIndex:
		n.Title = fmt.Sprintf("%s utilization %s", d.opts.Interface, ev.Name)
		n.Message = ev.Detail
		n.Level = LevelWarning
		if d.opts.TopBandIndex > 0 && ev.BandIndex >= d.opts.TopBandIndex {
			n.Level = LevelCritical
		}
	default:
		return Notification{}, false
	}
	return n, true
}

// Send dispatches n asynchronously unless an identical title went out
// within the rate-limit window.
func (d *Dispatcher) Send(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = d.now()
	}
	if d.isRateLimited(n.Title) {
		d.logger.Debug("notification rate limited", "title", n.Title)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sendWebhook(context.Background(), n); err != nil {
			d.logger.Error("failed to send notification", "format", d.opts.Format, "title", n.Title, "error", err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// isRateLimited checks if a notification should be skipped due to rate limiting
func (d *Dispatcher) isRateLimited(title string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSent[title]; ok && now.Sub(last) < rateLimitWindow {
		return true
	}
	d.lastSent[title] = now

	if len(d.lastSent) > 1000 {
		d.lastSent = map[string]time.Time{title: now}
	}
	return false
}

func (d *Dispatcher) payload(n Notification) any {
	switch strings.ToLower(d.opts.Format) {
	case FormatSlack:
		return map[string]any{
			"text": fmt.Sprintf("*%s*\n%s\n_Level: %s_", n.Title, n.Message, n.Level),
		}
	case FormatDiscord:
		return map[string]any{
			"content": fmt.Sprintf("**%s**\n%s", n.Title, n.Message),
		}
	default:
		return n
	}
}

func (d *Dispatcher) sendWebhook(ctx context.Context, n Notification) error {
	body, err := json.Marshal(d.payload(n))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}
