/*
	Package catalog describes the distributed filesystem's tag catalog,
	as far as input expansion needs it: turning a tag name into blobs.
*/
package catalog

import (
	"context"
	"strings"

	"github.com/polydawn/courier/locator"
)

/*
	TagListing is one tag visited while resolving a tag name.

	Blobs holds one entry per blob; each entry lists the urls of that
	blob's replicas.  Tags lists the nested tags the tag referred to
	(each of which gets its own TagListing).
*/
type TagListing struct {
	Name  string
	Tags  []string
	Blobs [][]string
}

type Catalog interface {
	// ResolveTag lists the named tag and, recursively, every tag it refers to.
	ResolveTag(ctx context.Context, tag string) ([]TagListing, error)
}

// IsTag reports whether an input names a tag rather than data.
func IsTag(s string) bool {
	scheme, _ := locator.SchemeSplit(s)
	return scheme == locator.SchemeTag
}

// TagName strips the `tag://` prefix, if any.
func TagName(s string) string {
	return strings.TrimPrefix(s, string(locator.SchemeTag)+"://")
}
