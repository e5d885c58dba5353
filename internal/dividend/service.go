// Package dividend serves TAO dividend lookups from the cache and falls back
// to the chain on a miss. Upstream failures never reach callers: a failed pair
// lookup reads as absent and a failed partition scan as empty.
package dividend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	shapePair      = "pair"
	shapePartition = "partition"
)

type Config struct {
	CacheTTL          time.Duration
	QueryTimeout      time.Duration
	FanoutMaxNetuid   int
	FanoutConcurrency int
}

func DefaultConfig() Config {
	return Config{
		CacheTTL:          120 * time.Second,
		QueryTimeout:      30 * time.Second,
		FanoutMaxNetuid:   50,
		FanoutConcurrency: 50,
	}
}

type Service struct {
	ledger  domain.Ledger
	cache   domain.DividendCache
	cfg     Config
	metrics *metrics.LedgerMetrics
	flights singleflight.Group

	lastQuery atomic.Pointer[ledgerOutcome]
}

type ledgerOutcome struct {
	err error
	at  time.Time
}

func NewService(ledger domain.Ledger, cache domain.DividendCache, cfg Config, m *metrics.LedgerMetrics) *Service {
	return &Service{ledger: ledger, cache: cache, cfg: cfg, metrics: m}
}

type PairResult struct {
	Value  domain.Rao
	Found  bool
	Cached bool
}

type PartitionResult struct {
	Entries []domain.DividendEntry
	Cached  bool
}

// FanoutResult holds one slot per partition: Values[i] is netuid i+1, nil when absent.
type FanoutResult struct {
	Values []*domain.Rao
	Cached bool
}

func pairKey(netuid domain.Netuid, hotkey string) string {
	return fmt.Sprintf("%s:%d:%s", shapePair, netuid, hotkey)
}

func partitionKey(netuid domain.Netuid) string {
	return fmt.Sprintf("%s:%d", shapePartition, netuid)
}

// GetPairDividend returns one hotkey's dividend on one partition. Only found
// values are cached.
func (s *Service) GetPairDividend(ctx context.Context, netuid domain.Netuid, hotkey string) PairResult {
	key := pairKey(netuid, hotkey)

	if data, ok := s.cache.Get(ctx, key); ok {
		var v domain.Rao
		if err := json.Unmarshal(data, &v); err == nil {
			return PairResult{Value: v, Found: true, Cached: true}
		}
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "key", key)
	}

	res, err := flight(ctx, s, key, shapePair, func(qctx context.Context) (PairResult, error) {
		var out PairResult
		err := s.withSnapshot(qctx, func(conn domain.LedgerConn, snap domain.Snapshot) error {
			v, found, err := conn.QueryValue(qctx, snap, netuid, hotkey)
			out = PairResult{Value: v, Found: found}
			return err
		})
		if err != nil {
			return PairResult{}, err
		}
		if out.Found {
			if data, err := json.Marshal(out.Value); err == nil {
				s.cache.SetWithTTL(qctx, key, data, s.cfg.CacheTTL)
			}
		}
		return out, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Dividend lookup failed, reporting absent",
			"netuid", netuid, "hotkey", hotkey, "error", err)
		return PairResult{}
	}
	return res
}

// GetPartitionDividends returns every entry of one partition in chain key
// order. The full list is cached under one key.
func (s *Service) GetPartitionDividends(ctx context.Context, netuid domain.Netuid) PartitionResult {
	key := partitionKey(netuid)

	if data, ok := s.cache.Get(ctx, key); ok {
		var entries []domain.DividendEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			return PartitionResult{Entries: entries, Cached: true}
		}
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "key", key)
	}

	entries, err := flight(ctx, s, key, shapePartition, func(qctx context.Context) ([]domain.DividendEntry, error) {
		entries := []domain.DividendEntry{}
		err := s.withSnapshot(qctx, func(conn domain.LedgerConn, snap domain.Snapshot) error {
			cursor, err := conn.QueryPartitionMap(qctx, snap, netuid)
			if err != nil {
				return err
			}
			for cursor.Next(qctx) {
				entries = append(entries, cursor.Entry())
			}
			return cursor.Err()
		})
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(entries); err == nil {
			s.cache.SetWithTTL(qctx, key, data, s.cfg.CacheTTL)
		}
		return entries, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Partition scan failed, reporting empty", "netuid", netuid, "error", err)
		return PartitionResult{Entries: []domain.DividendEntry{}}
	}
	return PartitionResult{Entries: entries}
}

// GetAddressDividendsAcrossPartitions looks the hotkey up on partitions
// 1..FanoutMaxNetuid concurrently and waits for every lookup.
func (s *Service) GetAddressDividendsAcrossPartitions(ctx context.Context, hotkey string) FanoutResult {
	n := s.cfg.FanoutMaxNetuid
	values := make([]*domain.Rao, n)
	cached := make([]bool, n)

	var g errgroup.Group
	g.SetLimit(s.cfg.FanoutConcurrency)
	for i := range n {
		g.Go(func() error {
			res := s.GetPairDividend(ctx, domain.Netuid(i+1), hotkey)
			if res.Found {
				v := res.Value
				values[i] = &v
			}
			cached[i] = res.Cached
			return nil
		})
	}
	_ = g.Wait()

	allCached := n > 0
	for _, c := range cached {
		allCached = allCached && c
	}
	return FanoutResult{Values: values, Cached: allCached}
}

// LedgerHealth reports how the most recent chain round-trip ended. It never
// dials the node, and is nil until the first query.
func (s *Service) LedgerHealth(context.Context) error {
	last := s.lastQuery.Load()
	if last == nil || last.err == nil {
		return nil
	}
	return fmt.Errorf("last chain query at %s failed: %w", last.at.UTC().Format(time.RFC3339), last.err)
}

// withSnapshot opens a connection, pins the current block and runs fn. The
// connection is closed on every path.
func (s *Service) withSnapshot(ctx context.Context, fn func(domain.LedgerConn, domain.Snapshot) error) error {
	conn, err := s.ledger.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to ledger: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.WarnContext(ctx, "Failed to close ledger connection", "error", err)
		}
	}()

	snap, err := conn.CurrentSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain head: %w", err)
	}
	return fn(conn, snap)
}

// flight collapses concurrent loads for the same key. The load runs detached
// from the caller's cancellation under its own timeout, so a caller that
// gives up does not fail the others waiting on the same result.
func flight[T any](ctx context.Context, s *Service, key, shape string, load func(context.Context) (T, error)) (T, error) {
	ch := s.flights.DoChan(key, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.QueryTimeout)
		defer cancel()

		start := time.Now()
		v, err := load(qctx)
		s.observe(shape, start, v, err)
		s.lastQuery.Store(&ledgerOutcome{err: err, at: time.Now()})
		return v, err
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared && s.metrics != nil {
			s.metrics.Deduplicated.Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (s *Service) observe(shape string, start time.Time, v any, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueryDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())

	result := "found"
	switch r := v.(type) {
	case PairResult:
		if !r.Found {
			result = "absent"
		}
	case []domain.DividendEntry:
		if len(r) == 0 {
			result = "absent"
		}
	}
	if err != nil {
		result = "error"
	}
	s.metrics.QueriesTotal.WithLabelValues(shape, result).Inc()
}
