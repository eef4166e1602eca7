package httpopen

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/transport"
)

var (
	_ transport.Transport = Transport{}
)

// RequestIDHeader carries a fresh id on every request, so node logs can be matched to a fetch.
const RequestIDHeader = "X-Courier-Request-Id"

/*
	Transport fetches `http://` and `https://` locators.

	The zero value uses `http.DefaultClient`.
	Deadlines come from the ctx; there's no timeout of our own.
*/
type Transport struct {
	Client *http.Client
}

/*
	Open GETs the url.

	May return errors of category:

	  - `courier.ErrDataUnavailable` -- on connection failure or an unexpected status
	  - `courier.ErrDataNotFound` -- on a 404
	  - `courier.ErrCancelled` -- if the ctx ended first
	  - `courier.ErrUsage` -- if the url can't be made into a request at all
*/
func (t Transport) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, url, Errorf(courier.ErrUsage, "cannot fetch %q: %s", url, err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	resp, err := client.Do(req)
	if err != nil {
		if err2 := transport.ContextError(ctx, url); err2 != nil {
			return nil, 0, url, err2
		}
		return nil, 0, url, Errorf(courier.ErrDataUnavailable, "error connecting to %s: %s", url, err)
	}
	finalURL := resp.Request.URL.String()
	switch resp.StatusCode {
	case 200:
		return resp.Body, resp.ContentLength, finalURL, nil
	case 404:
		resp.Body.Close()
		return nil, 0, finalURL, Errorf(courier.ErrDataNotFound, "%s not found", url)
	default:
		resp.Body.Close()
		return nil, 0, finalURL, Errorf(courier.ErrDataUnavailable, "unexpected HTTP code from %s: %s", url, resp.Status)
	}
}
