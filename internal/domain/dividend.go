package domain

import "context"

// Netuid identifies a subnet. The chain stores it as a u16.
type Netuid = uint16

// Snapshot pins every read of one logical query to a single block.
type Snapshot struct {
	BlockHash string
}

// Rao is the chain's smallest TAO unit. Dividends are whole rao stored as u64,
// so they are carried as integers end to end.
type Rao = uint64

type DividendEntry struct {
	Hotkey string `json:"hotkey"`
	Value  Rao    `json:"value"`
}

// Ledger opens scoped connections to the chain. Callers must Close every
// connection they open.
type Ledger interface {
	Connect(ctx context.Context) (LedgerConn, error)
}

type LedgerConn interface {
	CurrentSnapshot(ctx context.Context) (Snapshot, error)
	// QueryValue reports found=false when the chain has no entry for the key.
	QueryValue(ctx context.Context, snap Snapshot, netuid Netuid, hotkey string) (value Rao, found bool, err error)
	QueryPartitionMap(ctx context.Context, snap Snapshot, netuid Netuid) (PartitionCursor, error)
	Close() error
}

// PartitionCursor is a lazy, single-pass iterator over one partition's entries.
type PartitionCursor interface {
	Next(ctx context.Context) bool
	Entry() DividendEntry
	Err() error
}
