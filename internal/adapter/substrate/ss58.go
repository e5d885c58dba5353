package substrate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SubstrateFormat is the generic SS58 prefix used by Bittensor addresses.
const SubstrateFormat = 42

var ss58Pre = []byte("SS58PRE")

var ErrInvalidAddress = errors.New("invalid ss58 address")

func ss58Checksum(data []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, ss58Pre...), data...))
	return h[:2]
}

// EncodeAddress renders a 32-byte account ID with a single-byte prefix (< 64).
func EncodeAddress(accountID []byte, format byte) (string, error) {
	if len(accountID) != accountIDLen {
		return "", fmt.Errorf("account id has %d bytes, want %d", len(accountID), accountIDLen)
	}
	if format >= 64 {
		return "", fmt.Errorf("ss58 format %d needs the two-byte encoding", format)
	}

	payload := append([]byte{format}, accountID...)
	return base58.Encode(append(payload, ss58Checksum(payload)...)), nil
}

// DecodeAddress validates an SS58 address and returns its account ID.
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 1+accountIDLen+2 {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(raw))
	}
	if raw[0] >= 64 {
		return nil, fmt.Errorf("%w: unsupported prefix byte %d", ErrInvalidAddress, raw[0])
	}

	payload, sum := raw[:1+accountIDLen], raw[1+accountIDLen:]
	if !bytes.Equal(ss58Checksum(payload), sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return payload[1:], nil
}

// ValidateAddress reports whether address is a well-formed SS58 account address.
func ValidateAddress(address string) error {
	_, err := DecodeAddress(address)
	return err
}
