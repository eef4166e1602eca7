package dirindex

import (
	"context"
	"strings"
	"sync"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/catalog"
	"github.com/polydawn/courier/locator"
	"github.com/polydawn/courier/transport"
)

/*
	Input is a job input: either a single locator (URL) or a group of
	redundant inputs for the same data (Replicas).
*/
type Input interface {
	_input()
}

type URL string

type Replicas []Input

func (URL) _input()      {}
func (Replicas) _input() {}

/*
	Group builds a Replicas from plain locator strings.
*/
func Group(urls ...string) Replicas {
	g := make(Replicas, len(urls))
	for i, u := range urls {
		g[i] = URL(u)
	}
	return g
}

/*
	IsPartitioned reports whether the input is a `dir://` locator, or a
	non-empty group in which every member is partitioned.
*/
func IsPartitioned(in Input) bool {
	switch in := in.(type) {
	case URL:
		scheme, _ := locator.SchemeSplit(string(in))
		return scheme == locator.SchemeDir
	case Replicas:
		if len(in) == 0 {
			return false
		}
		for _, member := range in {
			if !IsPartitioned(member) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// leaves flattens nested replica groups down to their locators.
func leaves(in Input) []string {
	switch in := in.(type) {
	case URL:
		return []string{string(in)}
	case Replicas:
		var out []string
		for _, member := range in {
			out = append(out, leaves(member)...)
		}
		return out
	default:
		return nil
	}
}

/*
	Expander turns inputs into url groups.

	It holds only read-only collaborators, so one Expander can serve any
	number of concurrent expansions.
	The catalog may be nil if no input will ever name a tag.
*/
type Expander struct {
	resolver  *locator.Resolver
	transport transport.Transport
	catalog   catalog.Catalog
	mon       courier.Monitor
}

func NewExpander(
	resolver *locator.Resolver,
	tp transport.Transport,
	cat catalog.Catalog,
	mon courier.Monitor,
) *Expander {
	return &Expander{resolver, tp, cat, mon}
}

/*
	Expand one directory index into its urls: entries sorted by partition,
	filtered by f.
*/
func (x *Expander) ExpandDirectory(ctx context.Context, dir string, f Filter) ([]string, error) {
	index, err := x.FetchIndex(ctx, dir)
	if err != nil {
		return nil, err
	}
	return index.Sorted(f).URLs(), nil
}

/*
	Expand each replica's directory index and line them up: element i of the
	result holds, in dirs order, each replica's url for the i'th partition.

	Indexes are fetched concurrently.  If any fetch fails, the first error
	(in dirs order) is returned.

	May return errors of category:

	  - see FetchIndex
	  - `courier.ErrReplicaMismatch` -- if the replicas disagree about which partitions exist
*/
func (x *Expander) ExpandGroup(ctx context.Context, dirs []string, f Filter) ([][]string, error) {
	indexes := make([]Index, len(dirs))
	errs := make([]error, len(dirs))
	var wg sync.WaitGroup
	for i, dir := range dirs {
		wg.Add(1)
		go func(i int, dir string) {
			defer wg.Done()
			index, err := x.FetchIndex(ctx, dir)
			if err != nil {
				errs[i] = err
				return
			}
			indexes[i] = index.Sorted(f)
		}(i, dir)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return zipReplicas(dirs, indexes)
}

func zipReplicas(dirs []string, indexes []Index) ([][]string, error) {
	if len(indexes) == 0 {
		return nil, nil
	}
	width := len(indexes[0])
	for i, index := range indexes {
		if len(index) != width {
			return nil, ErrorDetailed(courier.ErrReplicaMismatch,
				"replica indexes disagree on partition count",
				map[string]string{
					"first":           dirs[0],
					"firstCount":      itoa(width),
					"mismatched":      dirs[i],
					"mismatchedCount": itoa(len(index)),
				})
		}
	}
	groups := make([][]string, width)
	for p := range groups {
		group := make([]string, len(indexes))
		for r, index := range indexes {
			if index[p].Partition != indexes[0][p].Partition {
				return nil, ErrorDetailed(courier.ErrReplicaMismatch,
					"replica indexes disagree on partition ids",
					map[string]string{
						"first":      dirs[0],
						"mismatched": dirs[r],
						"expected":   indexes[0][p].Partition,
						"actual":     index[p].Partition,
					})
			}
			group[r] = index[p].URL
		}
		groups[p] = group
	}
	return groups, nil
}

/*
	ExpandInputs expands one input into url groups; each group lists
	interchangeable urls for one piece of data.

	  - a partitioned input (a `dir://` or group of them) becomes one group
	    per partition, via ExpandGroup;
	  - any other replica group becomes a single group of its flattened urls;
	  - a `tag://` becomes one group per blob, listing that blob's replicas;
	  - anything else is taken as a url already, and is a group of one.
*/
func (x *Expander) ExpandInputs(ctx context.Context, in Input, f Filter) ([][]string, error) {
	if IsPartitioned(in) {
		return x.ExpandGroup(ctx, leaves(in), f)
	}
	switch in := in.(type) {
	case Replicas:
		urls, err := x.FlattenInputs(ctx, in, f)
		if err != nil {
			return nil, err
		}
		if len(urls) == 0 {
			return nil, nil
		}
		return [][]string{urls}, nil
	case URL:
		s := string(in)
		if catalog.IsTag(s) {
			return x.expandTag(ctx, s)
		}
		if s == "" {
			return nil, nil
		}
		return [][]string{{s}}, nil
	default:
		return nil, Errorf(courier.ErrUsage, "unknown input type %T", in)
	}
}

func (x *Expander) expandTag(ctx context.Context, tag string) ([][]string, error) {
	if x.catalog == nil {
		return nil, Errorf(courier.ErrUsage, "input %q names a tag, but no tag catalog is configured", tag)
	}
	listings, err := x.catalog.ResolveTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	var groups [][]string
	for _, listing := range listings {
		groups = append(groups, listing.Blobs...)
	}
	return groups, nil
}

/*
	FlattenInputs expands every input and concatenates all resulting urls,
	dropping empty ones.
*/
func (x *Expander) FlattenInputs(ctx context.Context, inputs []Input, f Filter) ([]string, error) {
	var urls []string
	for _, in := range inputs {
		groups, err := x.ExpandInputs(ctx, in, f)
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			for _, u := range group {
				if strings.TrimSpace(u) != "" {
					urls = append(urls, u)
				}
			}
		}
	}
	return urls, nil
}

/*
	ExpandAll is ExpandInputs over a whole input list, concatenating the groups.
*/
func (x *Expander) ExpandAll(ctx context.Context, inputs []Input, f Filter) ([][]string, error) {
	var groups [][]string
	for _, in := range inputs {
		g, err := x.ExpandInputs(ctx, in, f)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g...)
	}
	return groups, nil
}
