package dividend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
)

var errNodeDown = errors.New("node unavailable")

// fakeLedger serves partitions from memory and counts connection lifecycle calls.
type fakeLedger struct {
	mu         sync.Mutex
	partitions map[domain.Netuid][]domain.DividendEntry

	connectErr error
	queryErr   error
	cursorErr  error
	delay      func(netuid domain.Netuid) time.Duration
	gate       chan struct{}
	entered    chan struct{}

	connects atomic.Int32
	closes   atomic.Int32
	queries  atomic.Int32
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{partitions: make(map[domain.Netuid][]domain.DividendEntry)}
}

func (l *fakeLedger) set(netuid domain.Netuid, hotkey string, value domain.Rao) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partitions[netuid] = append(l.partitions[netuid], domain.DividendEntry{Hotkey: hotkey, Value: value})
}

func (l *fakeLedger) Connect(ctx context.Context) (domain.LedgerConn, error) {
	if l.connectErr != nil {
		return nil, l.connectErr
	}
	l.connects.Add(1)
	return &fakeConn{ledger: l}, nil
}

type fakeConn struct {
	ledger *fakeLedger
}

func (c *fakeConn) CurrentSnapshot(context.Context) (domain.Snapshot, error) {
	return domain.Snapshot{BlockHash: "0xabc"}, nil
}

func (c *fakeConn) QueryValue(ctx context.Context, _ domain.Snapshot, netuid domain.Netuid, hotkey string) (domain.Rao, bool, error) {
	l := c.ledger
	l.queries.Add(1)

	if l.entered != nil {
		select {
		case l.entered <- struct{}{}:
		default:
		}
	}
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return 0, false, ctx.Err()
		}
	}
	if l.delay != nil {
		time.Sleep(l.delay(netuid))
	}
	if l.queryErr != nil {
		return 0, false, l.queryErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.partitions[netuid] {
		if e.Hotkey == hotkey {
			return e.Value, true, nil
		}
	}
	return 0, false, nil
}

func (c *fakeConn) QueryPartitionMap(_ context.Context, _ domain.Snapshot, netuid domain.Netuid) (domain.PartitionCursor, error) {
	l := c.ledger
	l.queries.Add(1)
	if l.queryErr != nil {
		return nil, l.queryErr
	}

	l.mu.Lock()
	entries := append([]domain.DividendEntry(nil), l.partitions[netuid]...)
	l.mu.Unlock()
	return &fakeCursor{entries: entries, failAfter: l.cursorErr}, nil
}

func (c *fakeConn) Close() error {
	c.ledger.closes.Add(1)
	return nil
}

type fakeCursor struct {
	entries   []domain.DividendEntry
	pos       int
	failAfter error
	err       error
}

func (c *fakeCursor) Next(context.Context) bool {
	if c.err != nil {
		return false
	}
	if c.pos >= len(c.entries) {
		c.err = c.failAfter
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Entry() domain.DividendEntry { return c.entries[c.pos-1] }
func (c *fakeCursor) Err() error                  { return c.err }

// memCache is a DividendCache without expiry.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	offline bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return nil, false
	}
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return
	}
	c.data[key] = value
	c.ttls[key] = ttl
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
