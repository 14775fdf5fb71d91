package walletsession

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmkit/walletsession/transport"
)

// Session is the active binding between a wallet account, a chain and a
// transport. At most one session exists at a time. A session is replaced
// wholesale when the chain or account changes and destroyed on disconnect or
// a zero-account notification.
type Session struct {
	ID       string
	Provider transport.Descriptor
	ChainID  uint64
	Account  common.Address
	Signer   *Signer

	tr       transport.Transport
	removers []func()
}

// Transport returns the session's wallet channel.
func (s *Session) Transport() transport.Transport {
	return s.tr
}

// clone copies the session for a wholesale replacement. Listener handles move
// to the replacement; the old value must not release them afterwards.
func (s *Session) clone() *Session {
	next := *s
	return &next
}

func (s *Session) removeListeners() {
	for _, remove := range s.removers {
		remove()
	}
	s.removers = nil
}
