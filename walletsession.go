// Package walletsession mediates between discovered wallet providers and a
// single active session: connect, chain switch, test transaction submission
// and teardown, with chain and account changes pushed asynchronously by the
// wallet reconciled into the session as they arrive.
package walletsession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/evmkit/walletsession/chains"
	"github.com/evmkit/walletsession/logger"
	"github.com/evmkit/walletsession/metrics"
	"github.com/evmkit/walletsession/transport"
	"github.com/evmkit/walletsession/types"
)

// Controller is the wallet session state machine. All session mutations,
// whether user-initiated or pushed by the wallet, funnel through one lock, so
// there is a single writer and no last-writer-wins race between an in-flight
// operation and an unsolicited notification. Operations that would overlap
// are rejected with BUSY instead of interleaved.
type Controller struct {
	mu      sync.Mutex
	state   types.SessionState
	session *Session

	providers *transport.Registry
	chainset  *chains.Registry

	log logger.Logger
	rec metrics.Recorder

	connectTimeout time.Duration
	switchTimeout  time.Duration
	settleDelay    time.Duration
	mismatch       types.ChainMismatchPolicy
	estimateGas    bool

	onState func(types.SessionState)
	onError func(*types.Error)
}

// New creates a controller over the given chain set. A nil chainset falls
// back to the built-in defaults.
func New(chainset *chains.Registry, opts ...Option) *Controller {
	if chainset == nil {
		chainset = chains.DefaultRegistry()
	}
	c := &Controller{
		state:          types.StateDisconnected,
		providers:      transport.NewRegistry(),
		chainset:       chainset,
		log:            logger.Nop{},
		rec:            metrics.Noop{},
		connectTimeout: 30 * time.Second,
		switchTimeout:  5 * time.Second,
		settleDelay:    time.Second,
		mismatch:       types.MismatchFail,
		estimateGas:    false,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers returns the discovered provider registry.
func (c *Controller) Providers() *transport.Registry {
	return c.providers
}

// Chains returns the chain configuration registry.
func (c *Controller) Chains() *chains.Registry {
	return c.chainset
}

// Discover subscribes the provider registry to an announcement broadcast for
// the life of the returned stop function. Duplicate announcements are
// absorbed by the registry.
func (c *Controller) Discover(a *transport.Announcer) (stop func()) {
	return a.Subscribe(func(d transport.Descriptor) {
		if c.providers.Add(d) {
			c.log.Info("provider discovered", logger.F{
				"uuid": d.Info.UUID,
				"name": d.Info.Name,
				"rdns": d.Info.RDNS,
				"kind": d.Kind.String(),
			})
		}
	})
}

// State returns the current lifecycle state.
func (c *Controller) State() types.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the active session, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Connect resolves the descriptor's transport, requests account
// authorization and establishes the session. A previous session, if any, is
// torn down only after the new one is fully established; on failure it is
// preserved untouched.
func (c *Controller) Connect(ctx context.Context, d transport.Descriptor) error {
	prev, err := c.begin("connect", types.StateConnecting, true)
	if err != nil {
		return err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	sess, err := c.establish(ctx, d)
	if err != nil {
		c.finish(prev)
		return c.report("connect", d.Info.Name, err)
	}

	c.mu.Lock()
	old := c.session
	c.session = sess
	c.state = types.StateConnected
	c.mu.Unlock()

	if old != nil {
		c.teardown(ctx, old)
	}

	c.rec.IncOperation("connect", d.Info.Name, "success")
	c.rec.ObserveLatency("connect", d.Info.Name, time.Since(start))
	c.log.Info("session established", logger.F{
		"session":  sess.ID,
		"provider": d.Info.Name,
		"account":  sess.Account.Hex(),
		"chain_id": sess.ChainID,
	})
	c.notifyState(types.StateConnected)
	return nil
}

func (c *Controller) establish(ctx context.Context, d transport.Descriptor) (*Session, error) {
	tr := d.Transport
	if tr == nil && d.Dial != nil {
		var err error
		tr, err = d.Dial(ctx)
		if err != nil {
			return nil, types.NewError(types.ErrConnectionFailed, "wallet transport unavailable", err)
		}
	}
	if tr == nil {
		return nil, types.NewError(types.ErrConnectionFailed,
			fmt.Sprintf("wallet %q is not installed", d.Info.Name), nil)
	}

	fail := func(msg string, err error) (*Session, error) {
		if d.Transport == nil {
			// transport was dialed here; do not leak it
			tr.Close()
		}
		return nil, types.NewError(types.ErrConnectionFailed, msg, err)
	}

	raw, err := tr.Request(ctx, "eth_requestAccounts")
	if err != nil {
		if code, ok := transport.CodeOf(err); ok && code == transport.CodeUserRejected {
			return fail("wallet authorization rejected by user", err)
		}
		return fail("wallet authorization failed", err)
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return fail("undecodable accounts response", err)
	}
	if len(accounts) == 0 {
		return fail("wallet authorized no accounts", nil)
	}
	account := common.HexToAddress(accounts[0])

	raw, err = tr.Request(ctx, "eth_chainId")
	if err != nil {
		return fail("failed to read wallet chain id", err)
	}
	chainID, err := types.DecodeChainID(raw)
	if err != nil {
		return fail("undecodable wallet chain id", err)
	}

	sess := &Session{
		ID:       uuid.NewString(),
		Provider: d,
		ChainID:  chainID,
		Account:  account,
		Signer:   newSigner(tr, account, chainID),
		tr:       tr,
	}

	sess.removers = append(sess.removers,
		tr.On(transport.EventChainChanged, c.handleChainChanged),
		tr.On(transport.EventAccountsChanged, c.handleAccountsChanged),
	)
	if _, ok := tr.(transport.PairingTransport); ok {
		sess.removers = append(sess.removers,
			tr.On(transport.EventDisconnect, c.handleDisconnect))
	}

	return sess, nil
}

// Disconnect tears the session down: transport-native disconnect where the
// transport has one, every listener released, session cleared. Calling it
// with no session is a no-op.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return c.busyErr("disconnect")
	}
	sess := c.session
	c.session = nil
	c.state = types.StateDisconnected
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	c.teardown(ctx, sess)
	c.rec.IncOperation("disconnect", sess.Provider.Info.Name, "success")
	c.log.Info("session closed", logger.F{"session": sess.ID})
	c.notifyState(types.StateDisconnected)
	return nil
}

func (c *Controller) teardown(ctx context.Context, sess *Session) {
	sess.removeListeners()

	if pt, ok := sess.tr.(transport.PairingTransport); ok {
		if err := pt.Disconnect(ctx); err != nil {
			c.log.Warn("transport disconnect failed", logger.F{
				"session": sess.ID,
				"error":   err.Error(),
			})
		}
	}
	if sess.Provider.Transport == nil {
		// the controller dialed this transport, so it owns the connection
		sess.tr.Close()
	}
}

// SwitchChain asks the wallet to move to the named chain. Switching to the
// chain the session is already on issues no requests. An unrecognized-chain
// rejection triggers one AddChain fallback before the switch is retried.
func (c *Controller) SwitchChain(ctx context.Context, name string) error {
	cfg, err := c.chainset.Get(name)
	if err != nil {
		return c.report("switch_chain", "", err)
	}

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return c.report("switch_chain", "", types.NewError(types.ErrNoProvider,
			"no wallet connected", nil))
	}
	if c.state.Busy() {
		c.mu.Unlock()
		return c.busyErr("switch_chain")
	}
	sess := c.session
	provider := sess.Provider.Info.Name
	if sess.ChainID == cfg.ChainID {
		c.mu.Unlock()
		return nil
	}
	c.state = types.StateSwitchingChain
	c.mu.Unlock()

	start := time.Now()
	err = c.performSwitch(ctx, sess, cfg)
	c.settle()

	if err != nil {
		return c.report("switch_chain", provider, err)
	}
	c.rec.IncOperation("switch_chain", provider, "success")
	c.rec.ObserveLatency("switch_chain", provider, time.Since(start))
	return nil
}

// performSwitch runs the switch protocol against an established session. The
// caller owns the busy state; settle() restores it.
func (c *Controller) performSwitch(ctx context.Context, sess *Session, cfg chains.Config) error {
	tr := sess.tr

	// Arm the confirmation waiter before issuing the request so a fast
	// wallet cannot win the race. The handle is released on every exit path.
	confirmed := make(chan uint64, 1)
	remove := tr.On(transport.EventChainChanged, func(raw json.RawMessage) {
		if id, err := types.DecodeChainID(raw); err == nil {
			select {
			case confirmed <- id:
			default:
			}
		}
	})
	defer remove()

	params := map[string]string{"chainId": types.HexChainID(cfg.ChainID)}
	if _, err := tr.Request(ctx, "wallet_switchEthereumChain", params); err != nil {
		code, ok := transport.CodeOf(err)
		if !ok || code != transport.CodeUnrecognizedChain {
			return types.NewError(types.ErrChainSwitchFailed, "wallet rejected chain switch", err)
		}
		if err := c.addChain(ctx, tr, cfg); err != nil {
			return types.NewError(types.ErrChainSwitchFailed,
				"chain unknown to wallet and add-chain was rejected", err)
		}
		if _, err := tr.Request(ctx, "wallet_switchEthereumChain", params); err != nil {
			return types.NewError(types.ErrChainSwitchFailed,
				"wallet rejected chain switch after add", err)
		}
	}

	// Confirmation is a race between the wallet's chainChanged notification
	// and a bounded timer; after the timer the flow proceeds optimistically.
	timer := time.NewTimer(c.switchTimeout)
	defer timer.Stop()
	select {
	case <-confirmed:
	case <-timer.C:
		c.log.Warn("chain switch confirmation timed out, proceeding", logger.F{
			"chain":   cfg.Name,
			"timeout": c.switchTimeout.String(),
		})
	case <-ctx.Done():
		return types.NewError(types.ErrChainSwitchFailed, "chain switch canceled", ctx.Err())
	}

	// The session chain id comes from the freshly queried network, never
	// assumed equal to the requested target.
	raw, err := tr.Request(ctx, "eth_chainId")
	if err != nil {
		return types.NewError(types.ErrChainSwitchFailed, "failed to confirm chain id", err)
	}
	actual, err := types.DecodeChainID(raw)
	if err != nil {
		return types.NewError(types.ErrChainSwitchFailed, "undecodable chain id after switch", err)
	}
	if actual != cfg.ChainID {
		if c.mismatch == types.MismatchFail {
			return types.NewError(types.ErrChainSwitchFailed,
				fmt.Sprintf("wallet settled on chain %d, requested %d", actual, cfg.ChainID), nil)
		}
		c.log.Warn("adopting mismatched chain after switch", logger.F{
			"requested": cfg.ChainID,
			"actual":    actual,
		})
	}

	c.mu.Lock()
	if cur := c.session; cur != nil && cur.tr == tr {
		next := cur.clone()
		next.ChainID = actual
		next.Signer = newSigner(tr, cur.Account, actual)
		c.session = next
	}
	c.mu.Unlock()

	// Pairing transports do not always emit chainChanged after a
	// programmatic switch; re-emit for downstream consumers.
	if notifier, ok := tr.(transport.ChainNotifier); ok {
		notifier.EmitChainChanged(actual)
	}

	c.log.Info("chain switched", logger.F{"chain": cfg.Name, "chain_id": actual})
	return nil
}

// AddChain registers the chain with both the local registry and the wallet,
// then switches to it. The whole add-and-switch runs as one busy operation so
// a concurrent send or switch cannot interleave with a half-completed add.
func (c *Controller) AddChain(ctx context.Context, cfg chains.Config) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return c.report("add_chain", "", types.NewError(types.ErrNoProvider,
			"no wallet connected", nil))
	}
	if c.state.Busy() {
		c.mu.Unlock()
		return c.busyErr("add_chain")
	}
	sess := c.session
	provider := sess.Provider.Info.Name
	c.state = types.StateSwitchingChain
	c.mu.Unlock()

	start := time.Now()
	err := c.chainset.Register(cfg)
	if err != nil {
		err = types.NewError(types.ErrUnknownChain, "invalid chain config", err)
	} else if err = c.addChain(ctx, sess.tr, cfg); err != nil {
		err = types.NewError(types.ErrChainSwitchFailed,
			"wallet rejected add-chain request", err)
	} else {
		err = c.performSwitch(ctx, sess, cfg)
	}
	c.settle()

	if err != nil {
		return c.report("add_chain", provider, err)
	}
	c.rec.IncOperation("add_chain", provider, "success")
	c.rec.ObserveLatency("add_chain", provider, time.Since(start))
	return nil
}

func (c *Controller) addChain(ctx context.Context, tr transport.Transport, cfg chains.Config) error {
	_, err := tr.Request(ctx, "wallet_addEthereumChain", cfg.AddChainParams())
	return err
}

// SendTestTransaction submits a zero-value self-transfer on the named chain,
// switching chains first when the session is elsewhere, and waits for one
// confirmation.
func (c *Controller) SendTestTransaction(ctx context.Context, name string) (*ethtypes.Receipt, error) {
	cfg, err := c.chainset.Get(name)
	if err != nil {
		return nil, c.report("send_test_tx", "", err)
	}

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, c.report("send_test_tx", "", types.NewError(types.ErrNoProvider,
			"no wallet connected", nil))
	}
	if c.state.Busy() {
		c.mu.Unlock()
		return nil, c.busyErr("send_test_tx")
	}
	sess := c.session
	provider := sess.Provider.Info.Name
	c.state = types.StateSending
	c.mu.Unlock()

	start := time.Now()
	receipt, err := c.sendOnChain(ctx, sess, cfg)
	c.settle()

	if err != nil {
		return nil, c.report("send_test_tx", provider, err)
	}
	c.rec.IncOperation("send_test_tx", provider, "success")
	c.rec.ObserveLatency("send_test_tx", provider, time.Since(start))
	return receipt, nil
}

func (c *Controller) sendOnChain(ctx context.Context, sess *Session, cfg chains.Config) (*ethtypes.Receipt, error) {
	signer := sess.Signer

	if sess.ChainID != cfg.ChainID {
		if err := c.performSwitch(ctx, sess, cfg); err != nil {
			return nil, err
		}
		if err := sleepCtx(ctx, c.settleDelay); err != nil {
			return nil, types.NewError(types.ErrTransactionFailed, "settle wait canceled", err)
		}

		// Rederive and revalidate after the switch settled.
		c.mu.Lock()
		cur := c.session
		c.mu.Unlock()
		if cur == nil {
			return nil, types.NewError(types.ErrNoProvider, "session lost during chain switch", nil)
		}
		raw, err := cur.tr.Request(ctx, "eth_chainId")
		if err != nil {
			return nil, types.NewError(types.ErrChainSwitchFailed, "failed to revalidate chain id", err)
		}
		actual, err := types.DecodeChainID(raw)
		if err != nil {
			return nil, types.NewError(types.ErrChainSwitchFailed, "undecodable chain id", err)
		}
		if actual != cfg.ChainID {
			return nil, types.NewError(types.ErrChainSwitchFailed,
				fmt.Sprintf("wallet still on chain %d after switch to %d", actual, cfg.ChainID), nil)
		}
		signer = newSigner(cur.tr, cur.Account, actual)
	}

	hash, err := signer.SendSelfTransfer(ctx, c.estimateGas)
	if err != nil {
		return nil, types.NewError(types.ErrTransactionFailed, "transaction submission failed", err)
	}
	c.log.Info("test transaction submitted", logger.F{
		"tx_hash":  hash.Hex(),
		"chain_id": signer.ChainID(),
	})

	receipt, err := signer.WaitMined(ctx, hash)
	if err != nil {
		return nil, types.NewError(types.ErrTransactionFailed, "transaction confirmation failed", err)
	}
	return receipt, nil
}

// handleChainChanged reconciles an unsolicited chain notification into the
// session. A payload that cannot be normalized leaves the previous session
// fields in place.
func (c *Controller) handleChainChanged(raw json.RawMessage) {
	id, err := types.DecodeChainID(raw)

	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.report("chain_changed", sess.Provider.Info.Name,
			types.NewError(types.ErrChainChangeFailed, "undecodable chain id notification", err))
		return
	}
	if sess.ChainID == id {
		c.mu.Unlock()
		return
	}
	next := sess.clone()
	next.ChainID = id
	next.Signer = newSigner(sess.tr, sess.Account, id)
	c.session = next
	c.mu.Unlock()

	c.log.Info("chain changed by wallet", logger.F{"chain_id": id})
}

// handleAccountsChanged tracks the wallet's primary account. An empty list is
// an implicit disconnect.
func (c *Controller) handleAccountsChanged(raw json.RawMessage) {
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		c.log.Warn("undecodable accounts notification", logger.F{"payload": string(raw)})
		return
	}

	if len(accounts) == 0 {
		c.implicitDisconnect("wallet revoked all accounts")
		return
	}

	account := common.HexToAddress(accounts[0])
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.Account == account {
		c.mu.Unlock()
		return
	}
	next := sess.clone()
	next.Account = account
	next.Signer = newSigner(sess.tr, account, sess.ChainID)
	c.session = next
	c.mu.Unlock()

	c.log.Info("account changed by wallet", logger.F{"account": account.Hex()})
}

func (c *Controller) handleDisconnect(json.RawMessage) {
	c.implicitDisconnect("transport reported disconnect")
}

func (c *Controller) implicitDisconnect(reason string) {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.state = types.StateDisconnected
	c.mu.Unlock()

	if sess == nil {
		return
	}
	sess.removeListeners()
	c.log.Info("session closed by wallet", logger.F{"session": sess.ID, "reason": reason})
	c.notifyState(types.StateDisconnected)
}

// begin moves the controller into a busy state, rejecting the call when
// another operation is in flight. allowDisconnected permits starting from no
// session (Connect).
func (c *Controller) begin(op string, next types.SessionState, allowDisconnected bool) (types.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Busy() {
		return 0, c.busyErr(op)
	}
	if !allowDisconnected && c.session == nil {
		return 0, types.NewError(types.ErrNoProvider, "no wallet connected", nil)
	}
	prev := c.state
	c.state = next
	return prev, nil
}

// finish restores the state after an operation, falling back to what the
// session's presence dictates when the remembered state no longer applies.
func (c *Controller) finish(prev types.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		c.state = types.StateDisconnected
		return
	}
	if prev.Busy() {
		prev = types.StateConnected
	}
	c.state = prev
}

// settle returns the controller to the steady state implied by the session's
// presence after a busy operation.
func (c *Controller) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		c.state = types.StateDisconnected
	} else {
		c.state = types.StateConnected
	}
}

func (c *Controller) busyErr(op string) *types.Error {
	err := types.NewError(types.ErrBusy,
		fmt.Sprintf("%s rejected: another operation is in flight", op), nil)
	c.log.Warn("operation rejected while busy", logger.F{"operation": op})
	return err
}

// report logs and surfaces a classified error at the operation boundary.
// Nothing propagates to a crash handler; callers receive the same error.
func (c *Controller) report(op, provider string, err error) error {
	werr, ok := err.(*types.Error)
	if !ok {
		werr = types.NewError(types.ErrConnectionFailed, err.Error(), err)
	}
	c.rec.IncOperation(op, provider, "failure")
	c.log.Error("operation failed", logger.F{
		"operation": op,
		"provider":  provider,
		"code":      werr.Code,
		"error":     werr.Error(),
	})
	if c.onError != nil {
		c.onError(werr)
	}
	return werr
}

func (c *Controller) notifyState(state types.SessionState) {
	if c.onState != nil {
		c.onState(state)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
