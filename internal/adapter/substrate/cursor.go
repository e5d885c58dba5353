package substrate

import (
	"context"
	"fmt"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
)

type storageChangeSet struct {
	Block   string       `json:"block"`
	Changes [][2]*string `json:"changes"`
}

// partitionCursor pages through one partition in key order. It fetches a page
// of keys, then their values at the same block, and yields entries lazily.
type partitionCursor struct {
	conn     *Conn
	snap     domain.Snapshot
	prefix   string
	pageSize int

	page    []domain.DividendEntry
	pos     int
	lastKey string
	done    bool

	cur domain.DividendEntry
	err error
}

func (p *partitionCursor) Next(ctx context.Context) bool {
	if p.err != nil {
		return false
	}

	for p.pos >= len(p.page) {
		if p.done {
			return false
		}
		if err := p.fetchPage(ctx); err != nil {
			p.err = err
			return false
		}
	}

	p.cur = p.page[p.pos]
	p.pos++
	return true
}

func (p *partitionCursor) Entry() domain.DividendEntry { return p.cur }

func (p *partitionCursor) Err() error { return p.err }

func (p *partitionCursor) fetchPage(ctx context.Context) error {
	var startKey any
	if p.lastKey != "" {
		startKey = p.lastKey
	}

	var keys []string
	if err := p.conn.rpc.call(ctx, "state_getKeysPaged", &keys, p.prefix, p.pageSize, startKey, p.snap.BlockHash); err != nil {
		return err
	}

	p.page = p.page[:0]
	p.pos = 0
	if len(keys) < p.pageSize {
		p.done = true
	}
	if len(keys) == 0 {
		return nil
	}
	p.lastKey = keys[len(keys)-1]

	var sets []storageChangeSet
	if err := p.conn.rpc.call(ctx, "state_queryStorageAt", &sets, keys, p.snap.BlockHash); err != nil {
		return err
	}

	values := make(map[string]*string, len(keys))
	for _, set := range sets {
		for _, change := range set.Changes {
			if change[0] != nil {
				values[*change[0]] = change[1]
			}
		}
	}

	for _, key := range keys {
		raw, ok := values[key]
		if !ok || raw == nil {
			continue
		}
		entry, err := decodeEntry(key, *raw)
		if err != nil {
			return err
		}
		p.page = append(p.page, entry)
	}
	return nil
}

func decodeEntry(key, raw string) (domain.DividendEntry, error) {
	keyBytes, err := decodeHex(key)
	if err != nil {
		return domain.DividendEntry{}, fmt.Errorf("invalid storage key %q: %w", key, err)
	}
	accountID, err := accountFromKey(keyBytes)
	if err != nil {
		return domain.DividendEntry{}, err
	}
	hotkey, err := EncodeAddress(accountID, SubstrateFormat)
	if err != nil {
		return domain.DividendEntry{}, err
	}
	value, err := decodeStorageU64(raw)
	if err != nil {
		return domain.DividendEntry{}, err
	}
	return domain.DividendEntry{Hotkey: hotkey, Value: value}, nil
}
