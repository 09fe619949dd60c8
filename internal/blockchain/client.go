package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ChainReader is the read surface the engine needs from an RPC endpoint:
// receipt lookups and the current chain head. *ethclient.Client satisfies it.
type ChainReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client wraps an ethclient connection together with its endpoint URL.
type Client struct {
	*ethclient.Client
	url    string
	logger *zap.Logger
}

// Dial connects to the given RPC endpoint.
func Dial(url string, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &Client{
		Client: ec,
		url:    url,
		logger: logger.Named("rpc"),
	}, nil
}

// URL returns the endpoint this client is connected to.
func (c *Client) URL() string {
	return c.url
}
