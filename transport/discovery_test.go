package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(id, name string) Descriptor {
	return Descriptor{Info: ProviderInfo{UUID: id, Name: name, RDNS: "io." + name}}
}

func TestRegistryDeduplicatesByUUID(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Add(descriptor("uuid-1", "metamask")))
	assert.False(t, r.Add(descriptor("uuid-1", "metamask")))
	assert.False(t, r.Add(descriptor("uuid-1", "impostor")))
	assert.Equal(t, 1, r.Len())

	// first announcement wins; the entry is immutable once recorded
	d, ok := r.Get("uuid-1")
	require.True(t, ok)
	assert.Equal(t, "metamask", d.Info.Name)
}

func TestRegistryPreservesAnnouncementOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(descriptor("b", "trust"))
	r.Add(descriptor("a", "metamask"))
	r.Add(descriptor("c", "rabby"))

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "trust", list[0].Info.Name)
	assert.Equal(t, "metamask", list[1].Info.Name)
	assert.Equal(t, "rabby", list[2].Info.Name)
}

func TestAnnouncerBroadcastsToRegistry(t *testing.T) {
	a := NewAnnouncer()
	r := NewRegistry()

	stop := r.Listen(a)
	defer stop()

	a.Announce(descriptor("uuid-1", "metamask"))
	a.Announce(descriptor("uuid-2", "trust"))
	a.Announce(descriptor("uuid-1", "metamask"))

	assert.Equal(t, 2, r.Len())
}

func TestAnnouncerReplaysToLateSubscribers(t *testing.T) {
	a := NewAnnouncer()
	a.Announce(descriptor("uuid-1", "metamask"))

	r := NewRegistry()
	stop := r.Listen(a)
	defer stop()

	assert.Equal(t, 1, r.Len())
}

func TestAnnouncerUnsubscribe(t *testing.T) {
	a := NewAnnouncer()
	r := NewRegistry()

	stop := r.Listen(a)
	a.Announce(descriptor("uuid-1", "metamask"))
	stop()
	a.Announce(descriptor("uuid-2", "trust"))

	assert.Equal(t, 1, r.Len())
}

func TestEmitterAddRemove(t *testing.T) {
	var e emitter

	got := 0
	remove := e.on(EventChainChanged, func(json.RawMessage) { got++ })
	other := e.on(EventAccountsChanged, func(json.RawMessage) { got += 100 })

	e.emit(EventChainChanged, json.RawMessage(`"0x1"`))
	assert.Equal(t, 1, got)

	remove()
	remove() // releasing twice is harmless
	e.emit(EventChainChanged, json.RawMessage(`"0x1"`))
	assert.Equal(t, 1, got)

	assert.Equal(t, 1, e.listenerCount())
	other()
	assert.Equal(t, 0, e.listenerCount())
}

func TestMemoryStorePurgeSemantics(t *testing.T) {
	s := NewMemoryStore()
	s.Set("wc@2:pairing:abc", "uri")
	s.Set("unrelated", "keep")

	for _, k := range s.Keys() {
		if k != "unrelated" {
			s.Delete(k)
		}
	}

	_, ok := s.Get("wc@2:pairing:abc")
	assert.False(t, ok)
	v, ok := s.Get("unrelated")
	assert.True(t, ok)
	assert.Equal(t, "keep", v)
}

func TestCodeOf(t *testing.T) {
	err := &RPCError{Code: CodeUnrecognizedChain, Message: "Unrecognized chain ID"}
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, 4902, code)

	_, ok = CodeOf(assert.AnError)
	assert.False(t, ok)
}

func TestNewProviderInfoUnique(t *testing.T) {
	a := NewProviderInfo("WalletConnect", "com.walletconnect")
	b := NewProviderInfo("WalletConnect", "com.walletconnect")
	assert.NotEmpty(t, a.UUID)
	assert.NotEqual(t, a.UUID, b.UUID)
}
