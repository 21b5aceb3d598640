// Package backend talks to the alerting backend over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"golang.org/x/time/rate"
)

// ErrNoWatermark is returned for alert kinds the backend keeps no watermark for.
var ErrNoWatermark = contract.ErrNoWatermark

// Endpoint paths relative to the base URL.
const (
	creationDatePath     = "alerting/creationDate/batched"
	missingBackupPath    = "alerting/missingBackup"
	additionalBackupPath = "alerting/additionalBackup"
	sizePath             = "alerting/size/batched"
	storageFillPath      = "alerting/storageFill"
	backupDataPath       = "backupData/batched"
	latestBackupDataPath = "backupData/latest"
)

// watermarkKinds are the alert kinds served by alerting/type/{KIND}/latest.
var watermarkKinds = map[schema.AlertKind]struct{}{
	schema.CreationDateKind:     {},
	schema.AdditionalBackupKind: {},
	schema.SizeKind:             {},
}

// Client is the alerting backend client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

var (
	_ contract.AlertSink       = &Client{} // Compile-time check
	_ contract.WatermarkSource = &Client{} // Compile-time check
)

// NewClient creates a client for the backend at baseURL.
// A rate of 0 disables request pacing.
func NewClient(baseURL string, timeout time.Duration, rps float64) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: must be http(s)://host/path", baseURL)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    limiter,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs a paced request and fails on any non-2xx status.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request %s %s failed: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("backend %s %s: %s - %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	resp, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// SubmitCreationDateAlerts implements contract.AlertSink.
func (c *Client) SubmitCreationDateAlerts(ctx context.Context, alerts []schema.CreationDateAlert) error {
	return c.post(ctx, creationDatePath, alerts)
}

// SubmitMissingBackupAlert implements contract.AlertSink.
func (c *Client) SubmitMissingBackupAlert(ctx context.Context, alert schema.MissingBackupAlert) error {
	return c.post(ctx, missingBackupPath, alert)
}

// SubmitAdditionalBackupAlert implements contract.AlertSink.
func (c *Client) SubmitAdditionalBackupAlert(ctx context.Context, alert schema.AdditionalBackupAlert) error {
	return c.post(ctx, additionalBackupPath, alert)
}

// SubmitSizeAlerts implements contract.AlertSink.
func (c *Client) SubmitSizeAlerts(ctx context.Context, alerts []schema.SizeAlert) error {
	return c.post(ctx, sizePath, alerts)
}

// SubmitStorageFillAlerts implements contract.AlertSink.
func (c *Client) SubmitStorageFillAlerts(ctx context.Context, alerts []schema.StorageFillAlert) error {
	return c.post(ctx, storageFillPath, alerts)
}

// SendBackupDataBatched implements contract.AlertSink.
func (c *Client) SendBackupDataBatched(ctx context.Context, batch []schema.BackupData) error {
	return c.post(ctx, backupDataPath, batch)
}

// LatestAlertBackupID implements contract.WatermarkSource.
// The backend answers with the bare backup id as text, or an empty body.
func (c *Client) LatestAlertBackupID(ctx context.Context, kind schema.AlertKind) (string, error) {
	if _, ok := watermarkKinds[kind]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNoWatermark, kind)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "alerting/type/"+url.PathEscape(string(kind))+"/latest", nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read watermark for %s: %w", kind, err)
	}
	return strings.Trim(strings.TrimSpace(string(data)), `"`), nil
}

// LatestBackupDate implements contract.WatermarkSource.
func (c *Client) LatestBackupDate(ctx context.Context) (time.Time, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, latestBackupDataPath, nil)
	if err != nil {
		return time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest backup data: %w", err)
	}
	return decodeLatestBackupDate(data)
}

// decodeLatestBackupDate accepts a backup data object, a bare date string,
// null or an empty body.
func decodeLatestBackupDate(data []byte) (time.Time, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return time.Time{}, nil
	}

	var obj struct {
		CreationDate *time.Time `json:"creationDate"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.CreationDate == nil {
			return time.Time{}, nil
		}
		return *obj.CreationDate, nil
	}

	var ts time.Time
	if err := json.Unmarshal(data, &ts); err != nil {
		return time.Time{}, errors.New("unrecognized latest backup data response")
	}
	return ts, nil
}
