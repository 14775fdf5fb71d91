package walletsession

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerPendingNonce(t *testing.T) {
	wallet := newMockWallet(1)
	s := newSigner(wallet, common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1"), 1)

	nonce, err := s.PendingNonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)
}

func TestSignerBalance(t *testing.T) {
	wallet := newMockWallet(1)
	s := newSigner(wallet, common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1"), 1)

	// 0xde0b6b3a7640000 wei is exactly one whole unit at 18 decimals
	balance, err := s.Balance(context.Background(), 18)
	require.NoError(t, err)
	assert.Equal(t, "1", balance.String())
}

func TestSignerSelfTransferTargetsOwnAccount(t *testing.T) {
	wallet := newMockWallet(137)
	account := common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1")
	s := newSigner(wallet, account, 137)

	hash, err := s.SendSelfTransfer(context.Background(), false)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	require.NotNil(t, wallet.lastTx)
	assert.Equal(t, account, wallet.lastTx["from"])
	assert.Equal(t, account, wallet.lastTx["to"])
	value, ok := wallet.lastTx["value"].(*hexutil.Big)
	require.True(t, ok)
	assert.Equal(t, int64(0), value.ToInt().Int64())
}

func TestSignerWaitMinedRetriesUntilReceipt(t *testing.T) {
	prev := receiptPollInterval
	receiptPollInterval = 5 * time.Millisecond
	defer func() { receiptPollInterval = prev }()

	wallet := newMockWallet(1)
	pending := 2
	wallet.RequestFunc = func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
		if method == "eth_getTransactionReceipt" && pending > 0 {
			pending--
			return json.RawMessage("null"), nil
		}
		return json.RawMessage(receiptJSON), nil
	}
	s := newSigner(wallet, common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1"), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	receipt, err := s.WaitMined(ctx, common.HexToHash("0x51a4"))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, 3, wallet.callCount("eth_getTransactionReceipt"))
}

func TestSignerWaitMinedCanceled(t *testing.T) {
	prev := receiptPollInterval
	receiptPollInterval = 5 * time.Millisecond
	defer func() { receiptPollInterval = prev }()

	wallet := newMockWallet(1)
	wallet.RequestFunc = func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
		return json.RawMessage("null"), nil
	}
	s := newSigner(wallet, common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1"), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.WaitMined(ctx, common.HexToHash("0x51a4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
