/*
	Package dirindex expands job inputs into the concrete blob urls a
	transport should fetch.

	Inputs are locators (`dir://` directory indexes, `tag://` tags, or
	plain urls) or replica groups of them.  A directory index is a small
	manifest, one `partition url` pair per line, optionally gzip- or
	xz-compressed (signalled by a `.gz` or `.xz` suffix on the index's own
	locator).  Each replica of a job's output has its own index; expanding
	several replicas together lines their entries up by partition so a
	reader can fall back from one replica to the next.
*/
package dirindex

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"sort"
	"strings"

	. "github.com/warpfork/go-errcat"
	"github.com/xi2/xz"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/mixins/log"
)

// Entry is one line of a directory index.
type Entry struct {
	Partition string
	URL       string
}

// Index is a directory index's entries, in manifest order.
type Index []Entry

/*
	Filter selects partitions.  The zero value selects all of them.
*/
type Filter struct {
	id  string
	set bool
}

var AnyPartition = Filter{}

func OnlyPartition(id string) Filter {
	return Filter{id, true}
}

func (f Filter) Match(partition string) bool {
	return !f.set || f.id == partition
}

func (f Filter) String() string {
	if !f.set {
		return "*"
	}
	return f.id
}

/*
	Fetch and parse a directory index.

	The locator is proxied (if the settings name a proxy), resolved, and
	opened with the transport.  Transport errors are returned unchanged, so
	callers can tell a down replica from a broken one.

	May return errors of category:

	  - whatever the transport returns (normally transient)
	  - `courier.ErrMalformedLocator` -- if the locator doesn't resolve
	  - `courier.ErrIndexCorrupt` -- if the body doesn't decompress or parse
*/
func (x *Expander) FetchIndex(ctx context.Context, dir string) (Index, error) {
	url, err := x.resolver.Proxied(dir)
	if err != nil {
		return nil, err
	}
	url, err = x.resolver.Resolve(url)
	if err != nil {
		return nil, err
	}
	body, _, finalURL, err := x.transport.Open(ctx, url)
	if err != nil {
		log.IndexUnavailable(x.mon, err, dir)
		return nil, err
	}
	defer body.Close()
	index, err := ParseIndex(dir, body)
	if err != nil {
		return nil, err
	}
	log.IndexFetched(x.mon, dir, finalURL, len(index))
	return index, nil
}

/*
	Parse index lines from r, decompressing first if dir's suffix says so.

	Every non-blank line must hold exactly two whitespace-separated fields.

	May return errors of category:

	  - `courier.ErrIndexCorrupt` -- for bad compression or a bad line
	  - `courier.ErrDataUnavailable` -- if reading r fails part way
*/
func ParseIndex(dir string, r io.Reader) (_ Index, err error) {
	defer RequireErrorHasCategory(&err, courier.ErrorCategory(""))

	compressed := true
	switch {
	case strings.HasSuffix(dir, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, Errorf(courier.ErrIndexCorrupt, "index %s: corrupt gzip: %s", dir, err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(dir, ".xz"):
		zr, err := xz.NewReader(r, xz.DefaultDictMax)
		if err != nil {
			return nil, Errorf(courier.ErrIndexCorrupt, "index %s: corrupt xz: %s", dir, err)
		}
		r = zr
	default:
		compressed = false
	}

	var index Index
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 2:
			index = append(index, Entry{fields[0], fields[1]})
		default:
			return nil, Errorf(courier.ErrIndexCorrupt, "index %s: line %d has %d fields (want partition and url)", dir, lineNo, len(fields))
		}
	}
	if err := scanner.Err(); err != nil {
		if compressed {
			return nil, Errorf(courier.ErrIndexCorrupt, "index %s: corrupt compressed stream: %s", dir, err)
		}
		return nil, Errorf(courier.ErrDataUnavailable, "index %s: read failed: %s", dir, err)
	}
	return index, nil
}

/*
	Sorted returns the entries stably sorted by partition id,
	filtered by f.  The index itself isn't modified.

	Sorting is a plain string comparison, and stable, so two reads of the
	same index bytes always come out in the same order.
*/
func (idx Index) Sorted(f Filter) Index {
	out := make(Index, 0, len(idx))
	for _, e := range idx {
		if f.Match(e.Partition) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Partition < out[j].Partition
	})
	return out
}

func (idx Index) URLs() []string {
	urls := make([]string, len(idx))
	for i, e := range idx {
		urls[i] = e.URL
	}
	return urls
}
