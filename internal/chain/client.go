package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
)

const (
	wsHandshakeTimeout = 15 * time.Second
	wsBufferSize       = 1 << 16
	timestampCacheSize = 4096
)

// Client is an RPC connection bound to one chain.
type Client struct {
	chainID   uint64
	rpcClient *rpc.Client
	eth       *ethclient.Client

	mu         sync.Mutex
	timestamps map[uint64]uint64
	order      []uint64
}

// DialClient connects to rpcURL and verifies the endpoint serves chainID.
// ws:// and wss:// endpoints get a tuned websocket dialer.
func DialClient(ctx context.Context, chainID uint64, rpcURL string) (*Client, error) {
	var opts []rpc.ClientOption
	if strings.HasPrefix(rpcURL, "ws://") || strings.HasPrefix(rpcURL, "wss://") {
		opts = append(opts, rpc.WithWebsocketDialer(websocket.Dialer{
			HandshakeTimeout:  wsHandshakeTimeout,
			ReadBufferSize:    wsBufferSize,
			WriteBufferSize:   wsBufferSize,
			EnableCompression: true,
		}))
	}

	rpcClient, err := rpc.DialOptions(ctx, rpcURL, opts...)
	if err != nil {
		return nil, err
	}
	c := &Client{
		chainID:    chainID,
		rpcClient:  rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		timestamps: make(map[uint64]uint64),
	}

	served, err := c.eth.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if !served.IsUint64() || served.Uint64() != chainID {
		c.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, want %d", served, chainID)
	}
	return c, nil
}

func (c *Client) ChainID() uint64 { return c.chainID }

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// Probe issues a cheap request on the connection to confirm it still answers.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.eth.ChainID(ctx)
	return err
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BlockTimestamp returns the block time in unix seconds. The most recent
// lookups are cached since every swap in a block asks for the same header.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.Lock()
	ts, ok := c.timestamps[number]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timestamps[number]; !ok {
		c.timestamps[number] = header.Time
		c.order = append(c.order, number)
		if len(c.order) > timestampCacheSize {
			delete(c.timestamps, c.order[0])
			c.order = c.order[1:]
		}
	}
	return header.Time, nil
}

// FilterLogs returns logs in [fromBlock, toBlock] emitted by addresses, optionally narrowed by topic0.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.eth.FilterLogs(ctx, query)
}

// SubscribeFilterLogs opens an eth_subscribe("logs") stream. Requires a websocket endpoint.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.eth.SubscribeFilterLogs(ctx, query, ch)
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, txHash)
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}
