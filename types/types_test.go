package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChainID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x89", 137, false},
		{"0x1", 1, false},
		{"0X89", 137, false},
		{"137", 137, false},
		{"11155111", 11155111, false},
		{" 0x89 ", 137, false},
		{"", 0, true},
		{"0x", 0, true},
		{"polygon", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseChainID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestDecodeChainID(t *testing.T) {
	id, err := DecodeChainID(json.RawMessage(`"0x89"`))
	require.NoError(t, err)
	assert.Equal(t, uint64(137), id)

	id, err = DecodeChainID(json.RawMessage(`"137"`))
	require.NoError(t, err)
	assert.Equal(t, uint64(137), id)

	id, err = DecodeChainID(json.RawMessage(`137`))
	require.NoError(t, err)
	assert.Equal(t, uint64(137), id)

	_, err = DecodeChainID(json.RawMessage(`{"bogus":true}`))
	assert.Error(t, err)
}

func TestHexChainID(t *testing.T) {
	assert.Equal(t, "0x89", HexChainID(137))
	assert.Equal(t, "0x1", HexChainID(1))
	assert.Equal(t, "0xaa36a7", HexChainID(11155111))
}

func TestErrorWrapping(t *testing.T) {
	inner := assert.AnError
	err := NewError(ErrChainSwitchFailed, "switch rejected", inner)

	assert.ErrorIs(t, err, inner)
	assert.True(t, IsCode(err, ErrChainSwitchFailed))
	assert.False(t, IsCode(err, ErrTransactionFailed))
	assert.Contains(t, err.Error(), "switch rejected")
}

func TestSessionStateBusy(t *testing.T) {
	assert.False(t, StateDisconnected.Busy())
	assert.False(t, StateConnected.Busy())
	assert.True(t, StateConnecting.Busy())
	assert.True(t, StateSwitchingChain.Busy())
	assert.True(t, StateSending.Busy())
}
