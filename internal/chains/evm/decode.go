// Package evm provides the ERC20 contract reader for Ethereum and compatible chains.
package evm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Decode errors
var (
	ErrShortResponse = errors.New("contract response too short")
	ErrDecimalsRange = errors.New("decimals out of range")
	ErrEmptyValue    = errors.New("contract returned an empty value")
)

// DefaultDecimals is used when decimals() fails or returns garbage.
const DefaultDecimals uint8 = 18

// MaxDecimals is the largest decimals value accepted from a contract.
const MaxDecimals = 77

// Function selectors for the ERC20 metadata getters.
var (
	SelectorName     = common.FromHex("0x06fdde03")
	SelectorSymbol   = common.FromHex("0x95d89b41")
	SelectorDecimals = common.FromHex("0x313ce567")
)

var stringArguments = func() abi.Arguments {
	t, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: t}}
}()

// DecodeString decodes an ABI dynamic string return value.
func DecodeString(data []byte) (string, error) {
	if len(data) < 64 {
		return "", fmt.Errorf("%w: %d bytes", ErrShortResponse, len(data))
	}

	values, err := stringArguments.Unpack(data)
	if err != nil {
		return "", fmt.Errorf("unpacking string: %w", err)
	}
	if len(values) == 0 {
		return "", ErrEmptyValue
	}

	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T", values[0])
	}
	return s, nil
}

// DecodeDecimals decodes a right-aligned uint8 in a 32-byte word.
func DecodeDecimals(data []byte) (uint8, error) {
	if len(data) < 32 {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(data))
	}

	v := new(big.Int).SetBytes(data[:32])
	if v.Cmp(big.NewInt(MaxDecimals)) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrDecimalsRange, v.String())
	}
	return uint8(v.Uint64()), nil
}
