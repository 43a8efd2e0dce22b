package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// AlturaTimeClient handles communication with the AlturaTime API
// It uses context to pass the internal service secret and other metadata
type AlturaTimeClient struct {
	baseURL string
	http    *HTTPClient
	logger  Logger
}

// NewAlturaTimeClient creates a new AlturaTime client
func NewAlturaTimeClient(baseURL string, logger Logger) *AlturaTimeClient {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &AlturaTimeClient{
		baseURL: baseURL,
		http:    NewHTTPClient(httpClient, logger),
		logger:  logger,
	}
}

// UploadResult represents the response from POST /upload
type UploadResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// Upload sends a calendar file to the backend and returns the stored
// schedule's ID and share link
func (c *AlturaTimeClient) Upload(ctx context.Context, displayName, filename string, content []byte) (*UploadResult, error) {
	c.logger.Info("uploading schedule",
		"filename", filename,
		"size", len(content))

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("name", displayName); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	url := fmt.Sprintf("%s/upload", c.baseURL)
	resp, err := c.http.DoRequest(ctx, "POST", url, form.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to upload schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	c.logger.Info("uploaded schedule",
		"upload_id", result.ID,
		"link", result.Link)

	return &result, nil
}

// ScheduleMeta represents the response from GET /meta/:id
type ScheduleMeta struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OrigName string `json:"orig_name"`
}

// Meta fetches the stored metadata for a schedule by ID
func (c *AlturaTimeClient) Meta(ctx context.Context, uploadID string) (*ScheduleMeta, error) {
	url := fmt.Sprintf("%s/meta/%s", c.baseURL, uploadID)
	resp, err := c.http.DoRequest(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("metadata request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var meta ScheduleMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}

	return &meta, nil
}

// Fetch downloads the raw ICS bytes for a schedule by ID
func (c *AlturaTimeClient) Fetch(ctx context.Context, uploadID string) ([]byte, error) {
	url := fmt.Sprintf("%s/i/%s", c.baseURL, uploadID)
	resp, err := c.http.DoRequest(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("schedule request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule body: %w", err)
	}

	c.logger.Info("fetched schedule",
		"upload_id", uploadID,
		"size", len(data))

	return data, nil
}

// CallStatus represents the response from GET /status/:id
type CallStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	LocalTime string `json:"local_time"`
	Status    string `json:"status"`
	Tone      string `json:"tone"`
	DayPart   string `json:"day_part"`
	Next      string `json:"next"`
	Events    int    `json:"events"`
}

// Status fetches the server-computed call window for a schedule by ID
func (c *AlturaTimeClient) Status(ctx context.Context, uploadID string) (*CallStatus, error) {
	url := fmt.Sprintf("%s/status/%s", c.baseURL, uploadID)
	resp, err := c.http.DoRequest(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch call status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var status CallStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &status, nil
}
