package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

const (
	// DefaultAnkiURL is the AnkiConnect add-on's listen address.
	DefaultAnkiURL = "http://localhost:8765"

	// ankiVersion is the AnkiConnect protocol version sent with every request.
	ankiVersion = 6

	// ratedQuery matches cards answered today.
	ratedQuery = "rated:1"

	defaultAnkiTimeout = time.Second
	maxAnkiResponse    = 32 << 20
)

// ankiRequest is an AnkiConnect action call.
type ankiRequest struct {
	Action  string         `json:"action"`
	Params  map[string]any `json:"params"`
	Version int            `json:"version"`
}

// ankiResponse is the AnkiConnect reply envelope.
// Result stays raw so a non-list result is detectable.
type ankiResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// AnkiClient implements domain.ReviewCounter against AnkiConnect.
type AnkiClient struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

// NewAnkiClient creates a client for the AnkiConnect endpoint at url.
// Each request is bounded by timeout.
func NewAnkiClient(url string, timeout time.Duration, logger *zap.Logger) *AnkiClient {
	if timeout <= 0 {
		timeout = defaultAnkiTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnkiClient{
		client: &http.Client{Timeout: timeout},
		url:    url,
		logger: logger,
	}
}

// FetchCount returns the number of cards rated today.
// Any failure is an absent reading; there is no retry.
func (c *AnkiClient) FetchCount(ctx context.Context) domain.CounterReading {
	count, err := c.findRated(ctx)
	if err != nil {
		c.logger.Debug("review count unavailable", zap.String("url", c.url), zap.Error(err))
		return domain.Absent()
	}
	return domain.Reading(count)
}

func (c *AnkiClient) findRated(ctx context.Context) (int, error) {
	body, err := json.Marshal(ankiRequest{
		Action:  "findCards",
		Params:  map[string]any{"query": ratedQuery},
		Version: ankiVersion,
	})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post findCards: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("AnkiConnect returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnkiResponse))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	return parseFindCards(data)
}

// parseFindCards extracts len(result) from a findCards reply.
func parseFindCards(data []byte) (int, error) {
	var envelope ankiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		return 0, fmt.Errorf("AnkiConnect error: %s", envelope.Error)
	}

	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return 0, fmt.Errorf("response has no result")
	}

	var ids []json.RawMessage
	if err := json.Unmarshal(envelope.Result, &ids); err != nil {
		return 0, fmt.Errorf("result is not a list: %w", err)
	}
	return len(ids), nil
}

// Ensure AnkiClient implements domain.ReviewCounter.
var _ domain.ReviewCounter = (*AnkiClient)(nil)
