package deeplink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(opts ...Option) *Router {
	return NewRouter("bpsenergy", []string{"app.bps.energy"}, opts...)
}

func TestParseMatrix(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		name string
		url  string
		want Link
		miss bool
	}{
		{
			name: "https session start",
			url:  "https://app.bps.energy/qr/session/start/42",
			want: Link{Kind: KindSessionStart, ConnectorID: "42"},
		},
		{
			name: "custom scheme session start",
			url:  "bpsenergy://qr/session/start/42",
			want: Link{Kind: KindSessionStart, ConnectorID: "42"},
		},
		{
			name: "foreign host",
			url:  "https://other-host/qr/session/start/42",
			miss: true,
		},
		{
			name: "missing connector id",
			url:  "https://app.bps.energy/qr/session/start/",
			miss: true,
		},
		{
			name: "location detail",
			url:  "https://app.bps.energy/locations/loc-9",
			want: Link{Kind: KindLocation, LocationID: "loc-9"},
		},
		{
			name: "payment result",
			url:  "bpsenergy://payment/result/success",
			want: Link{Kind: KindPaymentResult, PaymentStatus: "success"},
		},
		{
			name: "unknown path",
			url:  "https://app.bps.energy/settings/profile",
			miss: true,
		},
		{
			name: "unknown scheme",
			url:  "ftp://app.bps.energy/qr/session/start/42",
			miss: true,
		},
		{
			name: "malformed url",
			url:  "://not a url at all",
			miss: true,
		},
		{
			name: "empty",
			url:  "",
			miss: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link, err := r.Parse(tc.url)
			if tc.miss {
				assert.ErrorIs(t, err, ErrNoMatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, link)
		})
	}
}

func TestHandleDispatchesSessionStart(t *testing.T) {
	var gotConnector string
	r := newTestRouter(WithSessionStarter(func(ctx context.Context, connectorID string) error {
		gotConnector = connectorID
		return nil
	}))

	require.NoError(t, r.Handle(context.Background(), "https://app.bps.energy/qr/session/start/17"))
	assert.Equal(t, "17", gotConnector)
}

func TestHandleDispatchesNavigation(t *testing.T) {
	var got Link
	r := newTestRouter(WithNavigator(func(link Link) { got = link }))

	require.NoError(t, r.Handle(context.Background(), "https://app.bps.energy/locations/loc-3"))
	assert.Equal(t, KindLocation, got.Kind)
	assert.Equal(t, "loc-3", got.LocationID)
}

func TestHandleIgnoresUnrecognized(t *testing.T) {
	called := false
	r := newTestRouter(
		WithSessionStarter(func(context.Context, string) error {
			called = true
			return nil
		}),
		WithNavigator(func(Link) { called = true }),
	)

	require.NoError(t, r.Handle(context.Background(), "https://evil.example/qr/session/start/42"))
	assert.False(t, called, "no action may fire for a foreign host")
}

func TestHandlePropagatesActionError(t *testing.T) {
	boom := errors.New("start failed")
	r := newTestRouter(WithSessionStarter(func(context.Context, string) error { return boom }))

	err := r.Handle(context.Background(), "bpsenergy://qr/session/start/5")
	assert.ErrorIs(t, err, boom)
}
