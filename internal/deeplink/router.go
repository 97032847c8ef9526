package deeplink

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/metrics"
)

// ErrNoMatch means the URL is not one of ours: foreign host, unknown path
// shape, or missing parameter. Never treated as a failure by Handle.
var ErrNoMatch = errors.New("deeplink: no match")

// Kind classifies a recognized link.
type Kind int

const (
	// KindSessionStart is a scanned QR requesting a charge on a connector.
	KindSessionStart Kind = iota
	// KindLocation navigates to a station detail screen.
	KindLocation
	// KindPaymentResult navigates to the payment outcome screen.
	KindPaymentResult
)

// Link is the parsed descriptor for a recognized deep link. Ephemeral:
// built per URL and consumed by Dispatch.
type Link struct {
	Kind          Kind
	ConnectorID   string
	LocationID    string
	PaymentStatus string
}

// Router matches incoming URLs against the known path shapes and hands
// recognized links to the bound actions.
type Router struct {
	scheme       string
	hosts        map[string]struct{}
	startSession func(ctx context.Context, connectorID string) error
	navigate     func(link Link)
}

type Option func(*Router)

// WithSessionStarter binds the action for KindSessionStart links.
func WithSessionStarter(fn func(ctx context.Context, connectorID string) error) Option {
	return func(r *Router) { r.startSession = fn }
}

// WithNavigator binds the action for navigation links.
func WithNavigator(fn func(link Link)) Option {
	return func(r *Router) { r.navigate = fn }
}

// NewRouter builds a router for the given custom scheme and the HTTPS
// fallback hosts.
func NewRouter(scheme string, hosts []string, opts ...Option) *Router {
	r := &Router{
		scheme:       scheme,
		hosts:        make(map[string]struct{}, len(hosts)),
		startSession: func(context.Context, string) error { return nil },
		navigate:     func(Link) {},
	}
	for _, h := range hosts {
		r.hosts[strings.ToLower(h)] = struct{}{}
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Parse classifies a raw URL. Malformed input and foreign hosts yield
// ErrNoMatch, never a panic.
func (r *Router) Parse(rawURL string) (Link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Link{}, ErrNoMatch
	}

	var segments []string
	switch strings.ToLower(u.Scheme) {
	case r.scheme:
		// custom scheme: bpsenergy://qr/session/start/42 parses the first
		// path element into Host
		segments = append(segments, u.Host)
		segments = append(segments, splitPath(u.Path)...)
	case "https", "http":
		if _, ok := r.hosts[strings.ToLower(u.Host)]; !ok {
			return Link{}, ErrNoMatch
		}
		segments = splitPath(u.Path)
	default:
		return Link{}, ErrNoMatch
	}

	return matchSegments(segments)
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func matchSegments(seg []string) (Link, error) {
	switch {
	case len(seg) == 4 && seg[0] == "qr" && seg[1] == "session" && seg[2] == "start" && seg[3] != "":
		return Link{Kind: KindSessionStart, ConnectorID: seg[3]}, nil
	case len(seg) == 2 && seg[0] == "locations" && seg[1] != "":
		return Link{Kind: KindLocation, LocationID: seg[1]}, nil
	case len(seg) == 3 && seg[0] == "payment" && seg[1] == "result" && seg[2] != "":
		return Link{Kind: KindPaymentResult, PaymentStatus: seg[2]}, nil
	default:
		return Link{}, ErrNoMatch
	}
}

// Dispatch invokes the action bound to the link kind.
func (r *Router) Dispatch(ctx context.Context, link Link) error {
	switch link.Kind {
	case KindSessionStart:
		return r.startSession(ctx, link.ConnectorID)
	default:
		r.navigate(link)
		return nil
	}
}

// Handle parses and dispatches in one step. Unrecognized URLs are logged
// and ignored; only a bound action can produce an error.
func (r *Router) Handle(ctx context.Context, rawURL string) error {
	link, err := r.Parse(rawURL)
	if err != nil {
		metrics.DeepLinks.WithLabelValues("ignored").Inc()
		logger.Debugf("deeplink: ignoring %q", rawURL)
		return nil
	}
	metrics.DeepLinks.WithLabelValues("matched").Inc()
	return r.Dispatch(ctx, link)
}
