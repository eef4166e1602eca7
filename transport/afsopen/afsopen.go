/*
	Package afsopen adapts a `github.com/viant/afs` storage service into a
	courier Transport, which buys every scheme afs has a connector for
	(`file`, `mem`, `http(s)`, plus whatever the process registers: `gs`, `s3`, ...).
*/
package afsopen

import (
	"context"
	"io"

	"github.com/viant/afs"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/transport"
)

var (
	_ transport.Transport = &Transport{}
)

type Transport struct {
	fs afs.Service
}

// New wraps fs; a nil fs means `afs.New()`.
func New(fs afs.Service) *Transport {
	if fs == nil {
		fs = afs.New()
	}
	return &Transport{fs: fs}
}

func (t *Transport) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	if err := transport.ContextError(ctx, url); err != nil {
		return nil, 0, url, err
	}
	exists, err := t.fs.Exists(ctx, url)
	if err != nil {
		return nil, 0, url, Errorf(courier.ErrDataUnavailable, "failed to check if %s exists: %s", url, err)
	}
	if !exists {
		return nil, 0, url, Errorf(courier.ErrDataNotFound, "%s does not exist", url)
	}
	object, err := t.fs.Object(ctx, url)
	if err != nil {
		return nil, 0, url, Errorf(courier.ErrDataUnavailable, "failed to stat %s: %s", url, err)
	}
	if object.IsDir() {
		return nil, 0, object.URL(), Errorf(courier.ErrDataNotFound, "%s is a directory", url)
	}
	reader, err := t.fs.OpenURL(ctx, url)
	if err != nil {
		return nil, 0, object.URL(), Errorf(courier.ErrDataUnavailable, "failed to open %s: %s", url, err)
	}
	return reader, object.Size(), object.URL(), nil
}
