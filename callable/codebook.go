package callable

import (
	"sort"
	"sync"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

/*
	Body is the code of a procedure.

	It's called with the procedure's environment and one argument per
	declared parameter, already bound and in parameter order.
	Errors a body returns are handed back from Call untouched.
*/
type Body func(env Env, args []interface{}) (interface{}, error)

type codeEntry struct {
	params []string
	body   Body
}

/*
	Codebook is the table of procedure code two processes agree on.

	A procedure never ships its body: it ships its codebook name, and the
	receiving process looks the body up in its own codebook.  So both
	sides must Define the same names with the same parameters and
	equivalent bodies before any work is exchanged; typically this is
	done in init functions of a package both binaries import.
*/
type Codebook struct {
	mu      sync.RWMutex
	entries map[string]codeEntry
}

func NewCodebook() *Codebook {
	return &Codebook{entries: make(map[string]codeEntry)}
}

/*
	Define registers a procedure body under name.

	May return errors of category:

	  - `courier.ErrUsage` -- if name is empty or already defined, or params repeat a name
*/
func (cb *Codebook) Define(name string, params []string, body Body) error {
	if name == "" {
		return Errorf(courier.ErrUsage, "procedure name must not be empty")
	}
	if body == nil {
		return Errorf(courier.ErrUsage, "procedure %q has no body", name)
	}
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if _, dup := seen[p]; dup {
			return Errorf(courier.ErrUsage, "procedure %q declares parameter %q twice", name, p)
		}
		seen[p] = struct{}{}
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if _, exists := cb.entries[name]; exists {
		return Errorf(courier.ErrUsage, "procedure %q is already defined", name)
	}
	cb.entries[name] = codeEntry{append([]string(nil), params...), body}
	return nil
}

// MustDefine is Define, panicking on error.  For init functions.
func (cb *Codebook) MustDefine(name string, params []string, body Body) {
	if err := cb.Define(name, params, body); err != nil {
		panic(err)
	}
}

func (cb *Codebook) lookup(name string) (codeEntry, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	entry, ok := cb.entries[name]
	return entry, ok
}

// Names lists every defined procedure, sorted.
func (cb *Codebook) Names() []string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	names := make([]string, 0, len(cb.entries))
	for k := range cb.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

/*
	Procedure instantiates a defined procedure, with default values for
	its trailing parameters (the last len(defaults) of them).
	The procedure starts with an empty environment.

	May return errors of category:

	  - `courier.ErrUsage` -- if name isn't defined, or there are more defaults than parameters
*/
func (cb *Codebook) Procedure(name string, defaults ...interface{}) (*Procedure, error) {
	entry, ok := cb.lookup(name)
	if !ok {
		return nil, Errorf(courier.ErrUsage, "no procedure %q in codebook", name)
	}
	if len(defaults) > len(entry.params) {
		return nil, Errorf(courier.ErrUsage, "procedure %q has %d parameters but %d defaults were given", name, len(entry.params), len(defaults))
	}
	return &Procedure{
		name:     name,
		params:   entry.params,
		defaults: append([]interface{}(nil), defaults...),
		body:     entry.body,
		env:      NewEnv(nil),
	}, nil
}

// MustProcedure is Procedure, panicking on error.
func (cb *Codebook) MustProcedure(name string, defaults ...interface{}) *Procedure {
	p, err := cb.Procedure(name, defaults...)
	if err != nil {
		panic(err)
	}
	return p
}
