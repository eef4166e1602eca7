/*
	Package locator parses, rewrites, and resolves the platform's resource
	locators: strings of the form `scheme://[user:token@]host[:port]/path`.

	Locators name job results (`disco://`, `dir://`), distributed filesystem
	blobs and tags (`disco://host/ddfs/...`, `tag://`), and plain web or local
	files (`http://`, `file://`, or no scheme at all).
	Nothing in this package performs I/O; it only computes which address
	a transport should contact.
*/
package locator

import (
	"strings"
)

type Scheme string

const (
	SchemeLocal Scheme = ""
	SchemeDisco Scheme = "disco"
	SchemeDir   Scheme = "dir"
	SchemeTag   Scheme = "tag"
	SchemeHTTP  Scheme = "http"
	SchemeFile  Scheme = "file"
)

/*
	Authority is the `host[:port]` part of a locator.

	An Authority with an empty Host is absent, no matter what Port says.
*/
type Authority struct {
	Host string
	Port string
}

/*
	Parse an authority string.

	A `user:token@` prefix is dropped (see ExtractToken to recover it);
	a missing `:port` yields an empty Port.
*/
func ParseAuthority(s string) Authority {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	host, port, _ := strings.Cut(s, ":")
	return Authority{host, port}
}

func (a Authority) IsZero() bool {
	return a.Host == ""
}

func (a Authority) String() string {
	if a.Port == "" {
		return a.Host
	}
	return a.Host + ":" + a.Port
}

type Locator struct {
	Scheme    Scheme
	Authority Authority
	Path      string
}

func (l Locator) String() string {
	return Join(l)
}

/*
	Join assembles a locator string.  It is the inverse of Split for
	locators Split didn't rewrite.

	The `scheme://` prefix is emitted only for a non-empty scheme, and the
	authority only if it is present.  A rootward path keeps its leading
	slash when there's no authority (so `file:///x` survives), except for
	`tag://name`, which carries its name in the path.
*/
func Join(l Locator) string {
	var sb strings.Builder
	if l.Scheme != SchemeLocal {
		sb.WriteString(string(l.Scheme))
		sb.WriteString("://")
	}
	switch {
	case !l.Authority.IsZero():
		sb.WriteString(l.Authority.String())
		sb.WriteByte('/')
	case l.Scheme == SchemeTag:
	case l.Scheme == SchemeLocal && l.Path == "":
	default:
		sb.WriteByte('/')
	}
	sb.WriteString(l.Path)
	return sb.String()
}

/*
	Split off the `scheme://` prefix.  The scheme is empty if there's none.
*/
func SchemeSplit(s string) (Scheme, string) {
	if scheme, rest, ok := strings.Cut(s, "://"); ok {
		return Scheme(scheme), rest
	}
	return SchemeLocal, s
}

// splitRest cuts the part after the scheme into the raw authority string and the path.
func splitRest(rest string) (string, string) {
	authority, path, _ := strings.Cut(rest, "/")
	return authority, path
}

/*
	Return the access token embedded in a locator's authority, if any.

	`user:token@host` yields "token"; a bare `token@host` yields "token".
*/
func ExtractToken(s string) (string, bool) {
	_, rest := SchemeSplit(s)
	authority, _ := splitRest(rest)
	auth, _, ok := strings.Cut(authority, "@")
	if !ok {
		return "", false
	}
	if _, token, ok := strings.Cut(auth, ":"); ok {
		return token, true
	}
	return auth, true
}
