/*
	Package ddfs is a read-only tag catalog client that talks to the ddfs
	tag endpoint over a courier Transport.

	A tag document is json.  The only field we care about is "urls": a list
	of blobs, each a list of replica urls.  Any blob whose first replica is a
	`tag://` locator is a nested tag, and is walked in turn.
*/
package ddfs

import (
	"context"
	"io/ioutil"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/catalog"
	"github.com/polydawn/courier/locator"
	"github.com/polydawn/courier/mixins/log"
	"github.com/polydawn/courier/transport"
)

var (
	_ catalog.Catalog = &Client{}
)

type Client struct {
	resolver  *locator.Resolver
	transport transport.Transport
	mon       courier.Monitor
}

func NewClient(resolver *locator.Resolver, tp transport.Transport, mon courier.Monitor) *Client {
	return &Client{resolver, tp, mon}
}

/*
	ResolveTag walks the tag and every tag nested in it, breadth first,
	visiting each tag once.

	May return errors of category:

	  - `courier.ErrDataUnavailable`, `courier.ErrDataNotFound`, `courier.ErrCancelled`
	    -- from the transport, unchanged
	  - `courier.ErrCorrupt` -- if a tag document doesn't parse
	  - `courier.ErrMalformedLocator` -- if a tag name can't be resolved
*/
func (c *Client) ResolveTag(ctx context.Context, tag string) ([]catalog.TagListing, error) {
	var listings []catalog.TagListing
	seen := map[string]bool{}
	queue := []string{catalog.TagName(tag)}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			log.TagSkipped(c.mon, name, "already visited")
			continue
		}
		seen[name] = true
		urls, err := c.fetchTag(ctx, name)
		if err != nil {
			return nil, err
		}
		listing := catalog.TagListing{Name: name}
		for _, replicas := range urls {
			if len(replicas) == 0 {
				continue
			}
			if catalog.IsTag(replicas[0]) {
				nested := catalog.TagName(replicas[0])
				listing.Tags = append(listing.Tags, nested)
				queue = append(queue, nested)
				continue
			}
			listing.Blobs = append(listing.Blobs, replicas)
		}
		log.TagExpanded(c.mon, name, len(listing.Blobs))
		listings = append(listings, listing)
	}
	return listings, nil
}

func (c *Client) fetchTag(ctx context.Context, name string) ([][]string, error) {
	url, err := c.resolver.Resolve("tag://" + name)
	if err != nil {
		return nil, err
	}
	body, _, _, err := c.transport.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	raw, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, Errorf(courier.ErrDataUnavailable, "reading tag %q from %s: %s", name, url, err)
	}
	return ParseTagDocument(name, raw)
}

/*
	Extract the "urls" field of a tag document.

	May return errors of category:

	  - `courier.ErrCorrupt` -- if the document isn't json, or "urls" isn't a list of lists of strings
*/
func ParseTagDocument(name string, raw []byte) ([][]string, error) {
	var doc map[string]interface{}
	if err := refmt.Unmarshal(json.DecodeOptions{}, raw, &doc); err != nil {
		return nil, Errorf(courier.ErrCorrupt, "tag %q: unparsable tag document: %s", name, err)
	}
	field, ok := doc["urls"]
	if !ok || field == nil {
		return nil, nil
	}
	blobs, ok := field.([]interface{})
	if !ok {
		return nil, Errorf(courier.ErrCorrupt, "tag %q: \"urls\" is a %T, not a list", name, field)
	}
	urls := make([][]string, 0, len(blobs))
	for i, blob := range blobs {
		replicas, ok := blob.([]interface{})
		if !ok {
			return nil, Errorf(courier.ErrCorrupt, "tag %q: blob %d is a %T, not a list", name, i, blob)
		}
		entry := make([]string, 0, len(replicas))
		for _, replica := range replicas {
			s, ok := replica.(string)
			if !ok {
				return nil, Errorf(courier.ErrCorrupt, "tag %q: blob %d has a %T replica, not a url", name, i, replica)
			}
			entry = append(entry, s)
		}
		urls = append(urls, entry)
	}
	return urls, nil
}
