package testutil

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sync"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

// IndexLine is one `partition url` pair of a directory index fixture.
type IndexLine [2]string

// IndexBody renders index lines in the on-wire manifest format.
func IndexBody(lines ...IndexLine) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		fmt.Fprintf(&buf, "%s %s\n", line[0], line[1])
	}
	return buf.Bytes()
}

func Gzip(body []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

/*
	MemTransport serves fixed bodies by exact url, and remembers every url
	it was asked for.  Urls it doesn't know answer `courier.ErrDataNotFound`;
	urls listed in Down answer `courier.ErrDataUnavailable`.
*/
type MemTransport struct {
	Bodies map[string][]byte
	Down   map[string]bool

	mu     sync.Mutex
	opened []string
}

func (t *MemTransport) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	t.mu.Lock()
	t.opened = append(t.opened, url)
	t.mu.Unlock()
	if t.Down[url] {
		return nil, 0, url, Errorf(courier.ErrDataUnavailable, "%s is down", url)
	}
	body, ok := t.Bodies[url]
	if !ok {
		return nil, 0, url, Errorf(courier.ErrDataNotFound, "%s not found", url)
	}
	return ioutil.NopCloser(bytes.NewReader(body)), int64(len(body)), url, nil
}

func (t *MemTransport) Opened() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.opened...)
}
