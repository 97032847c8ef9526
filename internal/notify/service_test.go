package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/api"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/kv"
)

type fakeNotifyAPI struct {
	prefs      api.NotificationPrefs
	getCalls   int32
	updateErr  error
	registered string
}

func (f *fakeNotifyAPI) GetNotificationPrefs(ctx context.Context) (api.NotificationPrefs, error) {
	atomic.AddInt32(&f.getCalls, 1)
	return f.prefs, nil
}

func (f *fakeNotifyAPI) UpdateNotificationPrefs(ctx context.Context, p api.NotificationPrefs) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.prefs = p
	return nil
}

func (f *fakeNotifyAPI) RegisterPushToken(ctx context.Context, token string) error {
	f.registered = token
	return nil
}

func TestPrefsReadThroughCache(t *testing.T) {
	f := &fakeNotifyAPI{prefs: api.NotificationPrefs{ChargeComplete: true}}
	svc := New(f, kv.NewMemory())
	ctx := context.Background()

	p, err := svc.Prefs(ctx)
	require.NoError(t, err)
	require.True(t, p.ChargeComplete)
	require.EqualValues(t, 1, atomic.LoadInt32(&f.getCalls))

	// second read is served from the cache
	_, err = svc.Prefs(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&f.getCalls))
}

func TestUpdatePrefsNotifiesSubscribers(t *testing.T) {
	f := &fakeNotifyAPI{}
	svc := New(f, kv.NewMemory())

	ch, unsub := svc.Subscribe()
	defer unsub()

	want := api.NotificationPrefs{ChargeComplete: true, Promotions: true}
	require.NoError(t, svc.UpdatePrefs(context.Background(), want))

	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("no prefs update delivered")
	}

	// cache reflects the update without another backend read
	p, err := svc.Prefs(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, p)
	require.EqualValues(t, 0, atomic.LoadInt32(&f.getCalls))
}

func TestUpdatePrefsFailureLeavesCache(t *testing.T) {
	f := &fakeNotifyAPI{updateErr: errors.New("backend down")}
	svc := New(f, kv.NewMemory())

	err := svc.UpdatePrefs(context.Background(), api.NotificationPrefs{News: true})
	require.Error(t, err)

	// nothing cached by the failed update; next read hits the backend
	_, err = svc.Prefs(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&f.getCalls))
}

func TestRegisterDevice(t *testing.T) {
	f := &fakeNotifyAPI{}
	svc := New(f, kv.NewMemory())

	require.NoError(t, svc.RegisterDevice(context.Background(), "fcm-token-1"))
	require.Equal(t, "fcm-token-1", f.registered)
}
