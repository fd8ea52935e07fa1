package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"flow-pantry-system/utils"

	"go.uber.org/zap"
)

// DetectionClient calls the object-detection endpoint for inventory photos.
type DetectionClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
	Log      *zap.Logger
}

type detectionResponse struct {
	Labels []string `json:"labels"`
}

func NewDetectionClient(endpoint, apiKey string, log *zap.Logger) *DetectionClient {
	return &DetectionClient{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   utils.HTTPClient,
		Log:      log,
	}
}

// DetectObjects posts the image locator and returns the labels.
// Detection is optional enrichment: every failure yields an empty list.
func (c *DetectionClient) DetectObjects(ctx context.Context, imageURL string) []string {
	labels, err := c.detect(ctx, imageURL)
	if err != nil {
		c.Log.Warn("⚠️ [Detection] falling back to no labels", zap.String("image", imageURL), zap.Error(err))
		return []string{}
	}
	return labels
}

func (c *DetectionClient) detect(ctx context.Context, imageURL string) ([]string, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("detection endpoint not configured")
	}

	jsonData, err := json.Marshal(map[string]string{"image": imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("detection returned %d: %s", resp.StatusCode, string(body))
	}

	var out detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Labels == nil {
		return []string{}, nil
	}
	return out.Labels, nil
}
