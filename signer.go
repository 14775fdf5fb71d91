package walletsession

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/evmkit/walletsession/transport"
)

var receiptPollInterval = 2 * time.Second

// Signer binds an account and chain id to a transport for transaction
// submission. It is cheap to construct and is rederived whenever the chain or
// account changes, so a stale binding never signs on the wrong chain.
type Signer struct {
	tr      transport.Transport
	account common.Address
	chainID uint64
}

func newSigner(tr transport.Transport, account common.Address, chainID uint64) *Signer {
	return &Signer{tr: tr, account: account, chainID: chainID}
}

// Account returns the bound account address.
func (s *Signer) Account() common.Address { return s.account }

// ChainID returns the chain the signer is bound to.
func (s *Signer) ChainID() uint64 { return s.chainID }

// PendingNonce fetches the account's next nonce from the network.
func (s *Signer) PendingNonce(ctx context.Context) (uint64, error) {
	raw, err := s.tr.Request(ctx, "eth_getTransactionCount", s.account, "pending")
	if err != nil {
		return 0, fmt.Errorf("fetch nonce: %w", err)
	}
	var nonce hexutil.Uint64
	if err := json.Unmarshal(raw, &nonce); err != nil {
		return 0, fmt.Errorf("decode nonce %s: %w", string(raw), err)
	}
	return uint64(nonce), nil
}

// Balance returns the account's native balance in whole currency units.
func (s *Signer) Balance(ctx context.Context, decimals int32) (decimal.Decimal, error) {
	raw, err := s.tr.Request(ctx, "eth_getBalance", s.account, "latest")
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch balance: %w", err)
	}
	var wei hexutil.Big
	if err := json.Unmarshal(raw, &wei); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance %s: %w", string(raw), err)
	}
	return decimal.NewFromBigInt(wei.ToInt(), -decimals), nil
}

// SendSelfTransfer submits a zero-value transfer from the account to itself
// with a freshly fetched nonce. When estimateGas is false, gas parameters are
// omitted and left to the wallet's defaults.
func (s *Signer) SendSelfTransfer(ctx context.Context, estimateGas bool) (common.Hash, error) {
	nonce, err := s.PendingNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	call := map[string]any{
		"from":    s.account,
		"to":      s.account,
		"value":   (*hexutil.Big)(big.NewInt(0)),
		"nonce":   hexutil.Uint64(nonce),
		"chainId": hexutil.Uint64(s.chainID),
	}

	if estimateGas {
		gasRaw, err := s.tr.Request(ctx, "eth_estimateGas", call)
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
		}
		var gas hexutil.Uint64
		if err := json.Unmarshal(gasRaw, &gas); err != nil {
			return common.Hash{}, fmt.Errorf("decode gas estimate %s: %w", string(gasRaw), err)
		}
		call["gas"] = gas

		priceRaw, err := s.tr.Request(ctx, "eth_gasPrice")
		if err != nil {
			return common.Hash{}, fmt.Errorf("fetch gas price: %w", err)
		}
		var price hexutil.Big
		if err := json.Unmarshal(priceRaw, &price); err != nil {
			return common.Hash{}, fmt.Errorf("decode gas price %s: %w", string(priceRaw), err)
		}
		call["gasPrice"] = &price
	}

	raw, err := s.tr.Request(ctx, "eth_sendTransaction", call)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("decode transaction hash %s: %w", string(raw), err)
	}
	return hash, nil
}

// WaitMined polls for the transaction receipt until one confirmation lands or
// the context expires.
func (s *Signer) WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		raw, err := s.tr.Request(ctx, "eth_getTransactionReceipt", hash)
		if err == nil && len(raw) > 0 && string(raw) != "null" {
			var receipt ethtypes.Receipt
			if err := json.Unmarshal(raw, &receipt); err != nil {
				return nil, fmt.Errorf("decode receipt: %w", err)
			}
			return &receipt, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("confirmation wait: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
