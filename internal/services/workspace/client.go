package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/config"
)

// Client forwards workspace actions to a configured bridge service. The
// engine treats the payload and response as opaque.
type Client struct {
	config *config.WorkspaceConfig
	client *http.Client
	log    *logrus.Logger
}

func NewClient(cfg *config.WorkspaceConfig, log *logrus.Logger) *Client {
	return &Client{
		config: cfg,
		log:    log,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Execute(ctx context.Context, service, action string, params map[string]interface{}) (interface{}, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"service": service,
		"action":  action,
		"params":  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workspace request: %w", err)
	}

	requestURL := fmt.Sprintf("%s/%s/%s", c.config.BaseURL, service, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workspace request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workspace returned status %d: %s", resp.StatusCode, string(body))
	}

	var result interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse workspace response: %w", err)
	}
	return result, nil
}
