package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
)

func recorder(calls *[]string, name string) Listener {
	return func(_ context.Context, e Event) error {
		*calls = append(*calls, name+":"+e.Name)
		return nil
	}
}

func TestTriggerOrder(t *testing.T) {
	d := NewDispatcher()
	var calls []string

	d.RegisterListener("first", recorder(&calls, "first"))
	d.RegisterListener("second", recorder(&calls, "second"))
	d.ListenEvents(map[string][]string{AppInit: {"second", "first"}})
	d.Listen(AppInit, recorder(&calls, "inline"))

	require.NoError(t, d.Trigger(context.Background(), AppInit, nil))
	assert.Equal(t, []string{"second:AppInit", "first:AppInit", "inline:AppInit"}, calls)
}

func TestTriggerPayload(t *testing.T) {
	d := NewDispatcher()
	var got interface{}
	d.Listen("UserLogin", func(_ context.Context, e Event) error {
		got = e.Payload
		return nil
	})

	require.NoError(t, d.Trigger(context.Background(), "UserLogin", 42))
	assert.Equal(t, 42, got)
}

func TestBindAlias(t *testing.T) {
	d := NewDispatcher()
	var calls []string

	d.Bind(map[string]string{"login": "UserLogin"})
	d.Listen("UserLogin", recorder(&calls, "l"))

	require.NoError(t, d.Trigger(context.Background(), "login", nil))
	assert.Equal(t, []string{"l:UserLogin"}, calls)

	require.NoError(t, d.Trigger(context.Background(), "logout", nil))
	assert.Len(t, calls, 1)
}

func TestStopPropagation(t *testing.T) {
	d := NewDispatcher()
	var calls []string

	d.Listen("e", func(context.Context, Event) error { return ErrStopPropagation })
	d.Listen("e", recorder(&calls, "never"))

	require.NoError(t, d.Trigger(context.Background(), "e", nil))
	assert.Empty(t, calls)
}

func TestListenerError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	d.Listen("e", func(context.Context, Event) error { return boom })

	err := d.Trigger(context.Background(), "e", nil)
	assert.ErrorIs(t, err, boom)
}

func TestUnknownListenerReportedOnTrigger(t *testing.T) {
	d := NewDispatcher()
	d.ListenEvents(map[string][]string{AppInit: {"ghost"}})

	err := d.Trigger(context.Background(), AppInit, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	var ke *kerrors.KernelError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, kerrors.ErrCodeUnknownListener, ke.Code)
}

func TestWithEventDisabled(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.Listen("e", recorder(&calls, "x"))

	d.WithEvent(false)
	assert.False(t, d.Enabled())
	require.NoError(t, d.Trigger(context.Background(), "e", nil))
	assert.Empty(t, calls)

	d.WithEvent(true)
	require.NoError(t, d.Trigger(context.Background(), "e", nil))
	assert.Len(t, calls, 1)
}

func TestSubscribe(t *testing.T) {
	d := NewDispatcher()
	var calls []string

	d.RegisterSubscriber("user", SubscriberFunc(func(d *Dispatcher) {
		d.Listen("UserLogin", recorder(&calls, "sub"))
		d.Listen("UserLogout", recorder(&calls, "sub"))
	}))

	require.NoError(t, d.Subscribe([]string{"user"}))
	require.NoError(t, d.Trigger(context.Background(), "UserLogout", nil))
	assert.Equal(t, []string{"sub:UserLogout"}, calls)

	assert.Error(t, d.Subscribe([]string{"missing"}))
}

func TestTriggerEventFields(t *testing.T) {
	d := NewDispatcher()
	d.Bind(map[string]string{"run": HttpRun})

	var got Event
	d.Listen(HttpRun, func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	require.NoError(t, d.Trigger(context.Background(), "run", "req"))
	assert.Equal(t, HttpRun, got.Name)
	assert.Equal(t, "req", got.Payload)
	assert.False(t, got.Timestamp.IsZero())
}
