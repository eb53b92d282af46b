package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"corsair/internal/config"
)

const userAgent = "Corsair-Go/0.1.0"

// Service defines the notification surface exposed to the engine and
// scheduler.
type Service interface {
	NotifyRaidStarted(ctx context.Context, shipType string, requiredCrew int) error
	NotifyRaidCompleted(ctx context.Context, shipType string, crew, totalRewards int) error
	NotifyRaidFailed(ctx context.Context, shipType, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:   topic,
		client:     client,
		raidEvents: cfg.Notifications.Raids,
		errEvents:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	raidEvents bool
	errEvents  bool
}

func (n *ntfyService) NotifyRaidStarted(ctx context.Context, shipType string, requiredCrew int) error {
	if !n.raidEvents {
		return nil
	}
	shipType = strings.TrimSpace(shipType)
	data := payload{
		title:   "Corsair - Raid Started",
		message: fmt.Sprintf("A %s has been spotted! Crew needed: %d", shipType, requiredCrew),
		tags:    []string{"corsair", "raid", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRaidCompleted(ctx context.Context, shipType string, crew, totalRewards int) error {
	if !n.raidEvents {
		return nil
	}
	shipType = strings.TrimSpace(shipType)
	data := payload{
		title:   "Corsair - Raid Complete",
		message: fmt.Sprintf("Raid on the %s succeeded: %d crew shared %d points", shipType, crew, totalRewards),
		tags:    []string{"corsair", "raid", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRaidFailed(ctx context.Context, shipType, reason string) error {
	if !n.raidEvents {
		return nil
	}
	shipType = strings.TrimSpace(shipType)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Raid on the %s failed", shipType)
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	data := payload{
		title:   "Corsair - Raid Failed",
		message: message,
		tags:    []string{"corsair", "raid", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Corsair - Error",
		message:  builder.String(),
		tags:     []string{"corsair", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Corsair - Test",
		message:  "Notification system test",
		tags:     []string{"corsair", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRaidStarted(context.Context, string, int) error        { return nil }
func (noopService) NotifyRaidCompleted(context.Context, string, int, int) error { return nil }
func (noopService) NotifyRaidFailed(context.Context, string, string) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
