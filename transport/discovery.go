package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ProviderInfo identifies an announced wallet provider.
type ProviderInfo struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	RDNS string `json:"rdns"`
}

// Kind classifies how a descriptor's transport is obtained.
type Kind int

const (
	KindInjected Kind = iota
	KindWalletConnect
	KindCoinbase
)

func (k Kind) String() string {
	switch k {
	case KindWalletConnect:
		return "walletconnect"
	case KindCoinbase:
		return "coinbase"
	default:
		return "injected"
	}
}

// Descriptor pairs provider identity with a way to reach its transport.
// Announced providers carry a live Transport; out-of-band providers
// (WalletConnect, Coinbase) carry a Dial constructor instead and are built
// lazily on connect. Descriptors are immutable once recorded.
type Descriptor struct {
	Info      ProviderInfo
	Kind      Kind
	Transport Transport
	Dial      func(ctx context.Context) (Transport, error)
}

// Announcer is the provider-announcement broadcast: wallets announce
// descriptors, registries subscribe. The EIP-6963 announce/request pair
// reduced to its event core.
type Announcer struct {
	mu   sync.Mutex
	seq  int
	subs map[int]func(Descriptor)
	past []Descriptor
}

// NewAnnouncer creates an empty broadcast.
func NewAnnouncer() *Announcer {
	return &Announcer{subs: make(map[int]func(Descriptor))}
}

// Announce broadcasts a descriptor to all current subscribers and replays it
// to subscribers that attach later, matching wallets that re-announce on
// request.
func (a *Announcer) Announce(d Descriptor) {
	a.mu.Lock()
	a.past = append(a.past, d)
	snapshot := make([]func(Descriptor), 0, len(a.subs))
	for _, fn := range a.subs {
		snapshot = append(snapshot, fn)
	}
	a.mu.Unlock()

	for _, fn := range snapshot {
		fn(d)
	}
}

// Subscribe registers a listener and replays prior announcements to it.
func (a *Announcer) Subscribe(fn func(Descriptor)) (remove func()) {
	a.mu.Lock()
	a.seq++
	id := a.seq
	a.subs[id] = fn
	replay := make([]Descriptor, len(a.past))
	copy(replay, a.past)
	a.mu.Unlock()

	for _, d := range replay {
		fn(d)
	}

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

// Registry collects announced descriptors, deduplicated by provider UUID.
// Entries live for the registry's lifetime; there is no removal.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Descriptor)}
}

// Add records a descriptor if its UUID is new. Idempotent: re-announcements
// of a known UUID are ignored and Add reports false.
func (r *Registry) Add(d Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.byID[d.Info.UUID]; seen {
		return false
	}
	r.byID[d.Info.UUID] = d
	r.order = append(r.order, d.Info.UUID)
	return true
}

// Listen subscribes the registry to an announcer for the registry's lifetime.
func (r *Registry) Listen(a *Announcer) (stop func()) {
	return a.Subscribe(func(d Descriptor) { r.Add(d) })
}

// Get returns the descriptor for a provider UUID.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// List returns descriptors in announcement order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of distinct providers seen.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// NewProviderInfo builds identity for an out-of-band provider with a fresh
// UUID.
func NewProviderInfo(name, rdns string) ProviderInfo {
	return ProviderInfo{UUID: uuid.NewString(), Name: name, RDNS: rdns}
}
