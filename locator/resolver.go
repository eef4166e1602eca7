package locator

import (
	"fmt"
	"path/filepath"
	"strings"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/config"
)

// MaxResolveSteps bounds how many `dir://`/`tag://` rewrites Resolve will follow.
const MaxResolveSteps = 8

/*
	Here describes where resolution is happening.

	If Local is set, every platform-internal locator is treated as naming
	this node.  Otherwise a locator names this node only when its raw
	authority string equals Host.  The zero value means "somewhere else
	entirely", which is what the master and clients want.
*/
type Here struct {
	Local bool
	Host  string
}

func (h Here) owns(authority string) bool {
	return h.Local || (h.Host != "" && h.Host == authority)
}

/*
	Resolver rewrites locators against one settings snapshot.

	It holds no mutable state; a single Resolver may be shared freely
	between goroutines.
*/
type Resolver struct {
	settings config.Settings
}

func NewResolver(settings config.Settings) *Resolver {
	return &Resolver{settings}
}

func (r *Resolver) Settings() config.Settings {
	return r.settings
}

/*
	Split a locator string into its parts, rewriting platform-internal
	locators for the execution context.

	A locator is platform-internal if its scheme is `disco` or its port is
	the control port.  Its path then starts with a namespace ("ddfs" or
	"disco").  On the node the authority names, it becomes a `file` locator
	under that namespace's local root; elsewhere a `disco` scheme becomes
	`http` on the control port.
	A `tag://name` locator comes back with the name as its path.

	May return errors of category:

	  - `courier.ErrMalformedLocator` -- for a platform-internal path with no namespace
*/
func (r *Resolver) Split(s string, here Here) (_ Locator, err error) {
	defer RequireErrorHasCategory(&err, courier.ErrorCategory(""))

	scheme, rest := SchemeSplit(s)
	authority, path := splitRest(rest)
	a := ParseAuthority(authority)
	if scheme == SchemeDisco || a.Port == r.settings.ControlPort {
		prefix, name, ok := strings.Cut(path, "/")
		if !ok {
			return Locator{}, Errorf(courier.ErrMalformedLocator, "locator %q has no namespace in its path", s)
		}
		switch {
		case here.owns(authority):
			scheme = SchemeFile
			switch prefix {
			case "ddfs":
				path = filepath.Join(r.settings.FilesystemRoot, name)
			case "disco":
				path = filepath.Join(r.settings.JobDataRoot, name)
			}
		case scheme == SchemeDisco:
			scheme = SchemeHTTP
			authority = a.Host + ":" + r.settings.ControlPort
		}
	}
	if scheme == SchemeTag && path == "" {
		path, authority = authority, ""
	}
	return Locator{scheme, ParseAuthority(authority), path}, nil
}

// master picks the address a `dir://` or `tag://` authority stands for.
func (r *Resolver) master(a Authority) string {
	switch {
	case a.Host == "":
		return r.settings.MasterAddress
	case a.Port == "":
		return "disco://" + a.Host
	default:
		return "http://" + a.Host + ":" + a.Port
	}
}

/*
	Resolve a locator to an absolute one a transport can fetch.

	`dir://` locators are re-rooted at the master address their authority
	implies; `tag://` locators become the ddfs tag endpoint on that master.
	Rewrites repeat until neither scheme remains, at most MaxResolveSteps times.

	May return errors of category:

	  - `courier.ErrMalformedLocator` -- see Split
	  - `courier.ErrResolveLoop` -- if rewriting doesn't settle
*/
func (r *Resolver) Resolve(s string) (_ string, err error) {
	defer RequireErrorHasCategory(&err, courier.ErrorCategory(""))

	current := s
	for step := 0; step <= MaxResolveSteps; step++ {
		l, err := r.Split(current, Here{})
		if err != nil {
			return "", err
		}
		switch l.Scheme {
		case SchemeDir:
			current = r.master(l.Authority) + "/" + l.Path
		case SchemeTag:
			current = r.master(l.Authority) + "/ddfs/tag/" + l.Path
		default:
			return Join(l), nil
		}
	}
	return "", Errorf(courier.ErrResolveLoop, "locator %q still unresolved after %d rewrites (last: %q)", s, MaxResolveSteps, current)
}

/*
	Route a locator through a proxy: `<proxy>/disco/node/<host>/<path>`.
	An empty proxy leaves the locator untouched.

	May return errors of category:

	  - `courier.ErrMalformedLocator` -- see Split
*/
func (r *Resolver) ApplyProxy(s string, proxy string) (string, error) {
	if proxy == "" {
		return s, nil
	}
	l, err := r.Split(s, Here{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/disco/node/%s/%s", proxy, l.Authority.Host, l.Path), nil
}

// Proxied is ApplyProxy with the proxy from the settings snapshot.
func (r *Resolver) Proxied(s string) (string, error) {
	return r.ApplyProxy(s, r.settings.ProxyAddress)
}

/*
	Extract the job name from a job result locator.

	Result locators look like `disco://host/disco/host/ab/<jobname>/<file>`;
	the job name is the next-to-last path segment.

	May return errors of category:

	  - `courier.ErrUsage` -- if the locator isn't a job result
	  - `courier.ErrMalformedLocator` -- see Split
*/
func (r *Resolver) JobName(s string) (string, error) {
	l, err := r.Split(s, Here{})
	if err != nil {
		return "", err
	}
	switch l.Scheme {
	case SchemeDisco, SchemeDir, SchemeHTTP:
		segments := strings.Split(strings.Trim(l.Path, "/"), "/")
		if len(segments) >= 2 {
			return segments[len(segments)-2], nil
		}
	}
	return "", Errorf(courier.ErrUsage, "cannot parse job name from %q", s)
}
