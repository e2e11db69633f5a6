package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lifelog/pulse-agent/internal/models"

	"go.uber.org/zap"
)

// APIClient handles communication with the backend.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates an API client.
func NewAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SyncActivities posts one batch of activities. The error taxonomy maps
// directly onto the caller's retry policy: TransientError is retried on
// the next tick, AuthError triggers a token refresh, MalformedError
// quarantines the batch.
func (c *APIClient) SyncActivities(ctx context.Context, accessToken string, req models.SyncRequest) (*models.SyncResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync request: %w", err)
	}

	url := fmt.Sprintf("%s/activities/sync", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Sync request failed",
			zap.Error(err),
			zap.Int("activity_count", len(req.Activities)),
			zap.Duration("duration", duration),
		)
		return nil, &TransientError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var syncResp models.SyncResponse
		if err := json.Unmarshal(body, &syncResp); err != nil {
			return nil, fmt.Errorf("failed to parse sync response: %w", err)
		}
		c.logger.Info("Batch synced",
			zap.Int("activity_count", len(req.Activities)),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return &syncResp, nil
	}

	errMsg := fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Warn("Sync rejected: authentication expired",
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &AuthError{Message: errMsg, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.Warn("Sync failed, will retry",
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &TransientError{Message: errMsg, StatusCode: resp.StatusCode}
	default:
		c.logger.Error("Backend rejected batch",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return nil, &MalformedError{Message: errMsg, StatusCode: resp.StatusCode}
	}
}

// RefreshToken exchanges the refresh token for a new token pair.
func (c *APIClient) RefreshToken(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	jsonData, err := json.Marshal(models.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	url := fmt.Sprintf("%s/auth/refresh", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransientError{Message: fmt.Sprintf("refresh request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{
			Message:    fmt.Sprintf("token refresh failed: status %d: %s", resp.StatusCode, string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var refreshResp models.RefreshResponse
	if err := json.Unmarshal(body, &refreshResp); err != nil {
		return nil, fmt.Errorf("failed to parse refresh response: %w", err)
	}

	c.logger.Info("Token refreshed")
	return &refreshResp, nil
}

// HealthCheck checks if the backend is reachable.
func (c *APIClient) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// AuthError is a 401 from the backend or a failed token refresh.
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return e.Message
}

// TransientError covers network failures, timeouts, 5xx, and rate
// limits. The batch stays queued and is retried on the next tick.
type TransientError struct {
	Message    string
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Message
}

// MalformedError is a non-401 4xx: the backend rejected the payload
// itself. The batch must not be silently dropped.
type MalformedError struct {
	Message    string
	StatusCode int
}

func (e *MalformedError) Error() string {
	return e.Message
}
