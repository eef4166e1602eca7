package transport

import (
	"context"
	"io"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/locator"
)

/*
	A Transport opens resolved locators for reading.

	Open returns the body, its size (-1 if unknown), and the final url the
	body was actually read from (after redirects, normalization, etc).

	Implementations should categorize their errors as
	`courier.ErrDataUnavailable` (couldn't reach it), `courier.ErrDataNotFound`
	(reached it, it isn't there), or `courier.ErrCancelled` (the ctx gave up).
	Callers treat all three the same way: try another replica, or retry later.
*/
type Transport interface {
	Open(ctx context.Context, url string) (body io.ReadCloser, size int64, finalURL string, err error)
}

/*
	Mux picks a Transport by the locator's scheme.

	Schemes with no entry go to Fallback; if there's no Fallback either,
	the open fails with `courier.ErrUsage`.
*/
type Mux struct {
	Schemes  map[locator.Scheme]Transport
	Fallback Transport
}

var _ Transport = Mux{}

func (m Mux) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	scheme, _ := locator.SchemeSplit(url)
	if t, ok := m.Schemes[scheme]; ok {
		return t.Open(ctx, url)
	}
	if m.Fallback != nil {
		return m.Fallback.Open(ctx, url)
	}
	return nil, 0, url, Errorf(courier.ErrUsage, "no transport for %q scheme (locator %q)", scheme, url)
}

// ContextError categorizes a ctx that ended as `courier.ErrCancelled`, or returns nil.
func ContextError(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return Errorf(courier.ErrCancelled, "gave up on %s: %s", url, err)
	}
	return nil
}
