package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"longbox/internal/approval"
	"longbox/internal/config"
	"longbox/internal/logging"
)

// Invalidation event names posted to the webhook.
const (
	EventFilesChanged  = "files_changed"
	EventSeriesChanged = "series_changed"
)

type invalidation struct {
	Event string   `json:"event"`
	IDs   []string `json:"ids"`
}

// NewInvalidator posts change notices to the configured webhook. With no
// webhook configured the returned invalidator does nothing.
func NewInvalidator(cfg *config.Config, logger *slog.Logger) approval.Invalidator {
	endpoint := strings.TrimSpace(cfg.Notifications.InvalidationURL)
	if endpoint == "" {
		return noopInvalidator{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "invalidation")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = logger
	client := retryClient.StandardClient()
	client.Timeout = requestTimeout(cfg)

	return &webhookInvalidator{endpoint: endpoint, client: client, logger: logger}
}

type webhookInvalidator struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func (w *webhookInvalidator) NotifyFilesChanged(ctx context.Context, fileIDs []string) error {
	return w.post(ctx, EventFilesChanged, fileIDs)
}

func (w *webhookInvalidator) NotifySeriesChanged(ctx context.Context, seriesIDs []string) error {
	return w.post(ctx, EventSeriesChanged, seriesIDs)
}

func (w *webhookInvalidator) post(ctx context.Context, event string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(invalidation{Event: event, IDs: ids})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invalidation request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("invalidation webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	w.logger.Debug("invalidation sent", logging.String("event", event), logging.Int("count", len(ids)))
	return nil
}

type noopInvalidator struct{}

func (noopInvalidator) NotifyFilesChanged(context.Context, []string) error  { return nil }
func (noopInvalidator) NotifySeriesChanged(context.Context, []string) error { return nil }
