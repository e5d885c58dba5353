package substrate

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceHex  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bobHex    = "8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
	bobSS58   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestTwox128_KnownVectors(t *testing.T) {
	assert.Equal(t, "26aa394eea5630e07c48ae0c9558cef7", hex.EncodeToString(twox128([]byte("System"))))
	assert.Equal(t, "b99d880ec681799c0cf30e8886371da9", hex.EncodeToString(twox128([]byte("Account"))))
}

func TestBlake2_128_KnownVector(t *testing.T) {
	assert.Equal(t, "de1e86a9a8c739864cf3cc5ec2bea59f", hex.EncodeToString(blake2_128(mustHex(t, aliceHex))))
}

func TestDividendKey_Layout(t *testing.T) {
	alice := mustHex(t, aliceHex)
	key := dividendKey(0x0102, alice)

	require.Len(t, key, 16+16+2+16+32)
	assert.Equal(t, twox128([]byte("SubtensorModule")), key[:16])
	assert.Equal(t, twox128([]byte("TaoDividendsPerSubnet")), key[16:32])
	assert.Equal(t, []byte{0x02, 0x01}, key[32:34], "netuid is little-endian u16")
	assert.Equal(t, blake2_128(alice), key[34:50])
	assert.Equal(t, alice, key[50:])

	account, err := accountFromKey(key)
	require.NoError(t, err)
	assert.Equal(t, alice, account)
}

func TestAccountFromKey_WrongLength(t *testing.T) {
	_, err := accountFromKey(partitionPrefix(1))
	assert.Error(t, err)
}

func TestDecodeU64(t *testing.T) {
	v, err := decodeU64([]byte{0x00, 0xe4, 0x0b, 0x54, 0x02, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000_000), v)

	_, err = decodeU64([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeHex(t *testing.T) {
	b, err := decodeHex("0x0aff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xff}, b)

	_, err = decodeHex("0aff")
	assert.Error(t, err)
}

func TestSS58_RoundTripKnownAccounts(t *testing.T) {
	tests := []struct {
		name    string
		pubHex  string
		address string
	}{
		{"alice", aliceHex, aliceSS58},
		{"bob", bobHex, bobSS58},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := EncodeAddress(mustHex(t, tt.pubHex), SubstrateFormat)
			require.NoError(t, err)
			assert.Equal(t, tt.address, addr)

			account, err := DecodeAddress(tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.pubHex, hex.EncodeToString(account))
		})
	}
}

func TestDecodeAddress_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"not base58", "0OIl"},
		{"too short", "5GrwvaEF5zXb26Fz9rcQ"},
		{"bad checksum", aliceSS58[:len(aliceSS58)-1] + "Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateAddress(tt.address), ErrInvalidAddress)
		})
	}
}

func TestEncodeAddress_Rejects(t *testing.T) {
	_, err := EncodeAddress([]byte{1, 2, 3}, SubstrateFormat)
	assert.Error(t, err)

	_, err = EncodeAddress(mustHex(t, aliceHex), 64)
	assert.Error(t, err)
}
