package substrate

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	palletName  = "SubtensorModule"
	storageName = "TaoDividendsPerSubnet"

	accountIDLen = 32
)

// twox128 is two xxhash64 digests (seeds 0 and 1) concatenated little-endian.
func twox128(data []byte) []byte {
	out := make([]byte, 16)
	for seed := range 2 {
		d := xxhash.NewWithSeed(uint64(seed))
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], d.Sum64())
	}
	return out
}

func blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// partitionPrefix is the storage prefix of every TaoDividendsPerSubnet entry
// for one netuid. The first key uses the Identity hasher.
func partitionPrefix(netuid uint16) []byte {
	key := make([]byte, 0, 34)
	key = append(key, twox128([]byte(palletName))...)
	key = append(key, twox128([]byte(storageName))...)
	key = binary.LittleEndian.AppendUint16(key, netuid)
	return key
}

// dividendKey appends the Blake2_128Concat-hashed account ID to the prefix.
func dividendKey(netuid uint16, accountID []byte) []byte {
	key := partitionPrefix(netuid)
	key = append(key, blake2_128(accountID)...)
	key = append(key, accountID...)
	return key
}

// accountFromKey extracts the trailing account ID from a full dividend key.
func accountFromKey(key []byte) ([]byte, error) {
	want := len(partitionPrefix(0)) + 16 + accountIDLen
	if len(key) != want {
		return nil, fmt.Errorf("storage key has %d bytes, want %d", len(key), want)
	}
	return key[len(key)-accountIDLen:], nil
}

// decodeU64 decodes a SCALE u64.
func decodeU64(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("u64 value has %d bytes, want 8", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, errors.New("hex string missing 0x prefix")
	}
	return hex.DecodeString(s[2:])
}
