package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

const maxErrorBody = 4 << 10

// Client вызывает сервис распознавания по HTTP: POST /predict?imgName=<ключ>.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента сервиса распознавания.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict запрашивает распознавание изображения imageKey.
// Ответ 404 превращается в entity.ErrNotFound.
func (c *Client) Predict(ctx context.Context, imageKey string) (*entity.PredictionSummary, error) {
	endpoint := c.baseURL + "/predict?" + url.Values{"imgName": {imageKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", entity.ErrNotFound, readMessage(resp.Body))
	default:
		return nil, fmt.Errorf("prediction failed with status %d: %s", resp.StatusCode, readMessage(resp.Body))
	}

	var summary entity.PredictionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if summary.Labels == nil {
		summary.Labels = []entity.Label{}
	}
	return &summary, nil
}

func readMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(body))
}

var _ port.Predictor = (*Client)(nil)
