package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifest(t *testing.T) {
	data := []byte(`
bind:
  login: UserLogin
listen:
  AppInit: [warmup, audit]
subscribe: [user]
`)

	m, err := DecodeManifest(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"login": "UserLogin"}, m.Bind)
	assert.Equal(t, []string{"warmup", "audit"}, m.Listen["AppInit"])
	assert.Equal(t, []string{"user"}, m.Subscribe)
	assert.False(t, m.IsZero())
}

func TestDecodeManifestJSON(t *testing.T) {
	m, err := DecodeManifest([]byte(`{"listen": {"HttpRun": ["trace"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"trace"}, m.Listen["HttpRun"])
}

func TestDecodeManifestInvalid(t *testing.T) {
	_, err := DecodeManifest([]byte("listen: [unterminated"))
	assert.Error(t, err)
}

func TestRegisterEmptyManifest(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, Register(d, Manifest{}))
	assert.True(t, d.Snapshot().IsZero())
}

func TestRegisterAccumulates(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.RegisterListener("a", recorder(&calls, "a"))
	d.RegisterListener("b", recorder(&calls, "b"))

	require.NoError(t, Register(d, Manifest{Listen: map[string][]string{AppInit: {"a"}}}))
	require.NoError(t, Register(d, Manifest{Listen: map[string][]string{AppInit: {"b"}}}))

	require.NoError(t, d.Trigger(context.Background(), AppInit, nil))
	assert.Equal(t, []string{"a:AppInit", "b:AppInit"}, calls)
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := NewDispatcher()
	d.RegisterSubscriber("noop", SubscriberFunc(func(*Dispatcher) {}))

	m := Manifest{
		Bind:      map[string]string{"login": "UserLogin"},
		Listen:    map[string][]string{"UserLogin": {"audit"}},
		Subscribe: []string{"noop"},
	}
	require.NoError(t, Register(d, m))

	snap := d.Snapshot()
	assert.Equal(t, m.Bind, snap.Bind)
	assert.Equal(t, m.Listen, snap.Listen)
	assert.Equal(t, m.Subscribe, snap.Subscribe)
}
