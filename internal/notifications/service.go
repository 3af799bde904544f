package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"longbox/internal/approval"
	"longbox/internal/config"
)

const userAgent = "longbox/1.0"

// Service defines the push notifications emitted by the CLI.
type Service interface {
	NotifyApplyCompleted(ctx context.Context, result approval.ApplyResult, duration time.Duration) error
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
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: requestTimeout(cfg)},
	}
}

func requestTimeout(cfg *config.Config) time.Duration {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyApplyCompleted(ctx context.Context, result approval.ApplyResult, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Updated %d of %d files in %s", result.Succeeded, result.Processed, duration)
	if result.Skipped > 0 {
		fmt.Fprintf(&builder, "\nSkipped: %d", result.Skipped)
	}
	data := payload{
		title:   "Longbox - Metadata Applied",
		message: builder.String(),
		tags:    []string{"longbox", "apply", "completed"},
	}
	if result.Failed > 0 {
		data.title = "Longbox - Metadata Applied (with errors)"
		fmt.Fprintf(&builder, "\nFailed: %d", result.Failed)
		for i, failure := range result.Errors {
			if i == 3 {
				fmt.Fprintf(&builder, "\n...and %d more", len(result.Errors)-i)
				break
			}
			fmt.Fprintf(&builder, "\n%s: %s", failure.FileID, failure.Error)
		}
		data.message = builder.String()
		data.tags = []string{"longbox", "apply", "warning"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
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
		title:    "Longbox - Error",
		message:  builder.String(),
		tags:     []string{"longbox", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Longbox - Test",
		message:  "Notification system test",
		tags:     []string{"longbox", "test"},
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

func (noopService) NotifyApplyCompleted(context.Context, approval.ApplyResult, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
