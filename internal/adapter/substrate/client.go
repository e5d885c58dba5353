package substrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	defaultPageSize     = 100
	defaultWriteTimeout = 10 * time.Second
	handshakeTimeout    = 10 * time.Second
	maxMessageSize      = 16 << 20
)

type Config struct {
	Endpoint string
	// PageSize bounds state_getKeysPaged batches.
	PageSize     int
	WriteTimeout time.Duration
}

// Client dials a fresh websocket per Connect.
type Client struct {
	cfg    Config
	dialer websocket.Dialer
}

var _ domain.Ledger = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (c *Client) Connect(ctx context.Context) (domain.LedgerConn, error) {
	ws, _, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.cfg.Endpoint, err)
	}
	ws.SetReadLimit(maxMessageSize)

	slog.DebugContext(ctx, "Substrate connection opened", "endpoint", c.cfg.Endpoint)
	return &Conn{rpc: newRPCConn(ws, c.cfg.WriteTimeout), pageSize: c.cfg.PageSize}, nil
}

// Conn is one open websocket to the node.
type Conn struct {
	rpc      *rpcConn
	pageSize int
}

var _ domain.LedgerConn = (*Conn)(nil)

func (c *Conn) Close() error {
	if err := c.rpc.close(); err != nil {
		return fmt.Errorf("failed to close substrate connection: %w", err)
	}
	return nil
}

func (c *Conn) CurrentSnapshot(ctx context.Context) (domain.Snapshot, error) {
	var hash string
	if err := c.rpc.call(ctx, "chain_getHead", &hash); err != nil {
		return domain.Snapshot{}, err
	}
	if hash == "" {
		return domain.Snapshot{}, fmt.Errorf("chain_getHead returned an empty hash")
	}
	return domain.Snapshot{BlockHash: hash}, nil
}

func (c *Conn) QueryValue(ctx context.Context, snap domain.Snapshot, netuid domain.Netuid, hotkey string) (domain.Rao, bool, error) {
	accountID, err := DecodeAddress(hotkey)
	if err != nil {
		return 0, false, err
	}

	var raw *string
	if err := c.rpc.call(ctx, "state_getStorage", &raw, encodeHex(dividendKey(netuid, accountID)), snap.BlockHash); err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}

	value, err := decodeStorageU64(*raw)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (c *Conn) QueryPartitionMap(_ context.Context, snap domain.Snapshot, netuid domain.Netuid) (domain.PartitionCursor, error) {
	return &partitionCursor{
		conn:     c,
		snap:     snap,
		prefix:   encodeHex(partitionPrefix(netuid)),
		pageSize: c.pageSize,
	}, nil
}

func decodeStorageU64(raw string) (uint64, error) {
	b, err := decodeHex(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid storage value %q: %w", raw, err)
	}
	return decodeU64(b)
}
