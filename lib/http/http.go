package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

// TracedHttpClient returns a client that opens a span per request and dial.
// Every secret is masked in span names.
func TracedHttpClient(ctx context.Context, timeout time.Duration, secrets ...string) *http.Client {
	_, span := tracer.Open(ctx, tracer.Named("TracedHttpClient"))
	defer span.Close()
	return &http.Client{
		Transport: tracedRoundTripper(newMasker(secrets), tracedTransport()),
		Timeout:   timeout,
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (t roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return t(r)
}

func newMasker(secrets []string) *strings.Replacer {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, "##")
		}
	}
	return strings.NewReplacer(pairs...)
}

func tracedRoundTripper(mask *strings.Replacer, next http.RoundTripper) roundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		newctx, span := tracer.Open(r.Context(), tracer.Named("HTTP::"+r.Method+" "+MaskedURL(mask, r)))
		defer span.Close()
		return next.RoundTrip(r.WithContext(newctx))
	}
}

func MaskedURL(mask *strings.Replacer, r *http.Request) string {
	return mask.Replace(r.URL.String())
}

func tracedTransport() *http.Transport {
	// Копия http.DefaultTransport с трассировкой дайлера
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: tracedDialer((&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext),
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func tracedDialer(dialContext func(context.Context, string, string) (net.Conn, error)) func(ctx context.Context, network string, addr string) (net.Conn, error) {
	return func(ctx context.Context, network string, addr string) (net.Conn, error) {
		ctx, span := tracer.Open(ctx, tracer.Named("Dial::"+network+"//"+addr))
		defer span.Close()
		return dialContext(ctx, network, addr)
	}
}
