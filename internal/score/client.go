package score

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Score is one wallet's standing on the off-chain scoreboard.
type Score struct {
	TotalPoints float64 `json:"total_points"`
	Rank        int     `json:"rank"`
}

// Client looks up wallet scores on the external points service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("score"),
	}
}

// Fetch returns the score for the address, or nil when the service has
// no entry for it yet.
func (c *Client) Fetch(ctx context.Context, addr common.Address) (*Score, error) {
	url := fmt.Sprintf("%s/api/points/%s", c.baseURL, addr.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Debug("No score recorded for wallet", zap.String("address", addr.Hex()))
		return nil, nil
	default:
		return nil, fmt.Errorf("score service returned status %d", resp.StatusCode)
	}

	var s Score
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode score: %w", err)
	}
	return &s, nil
}
