package callable

import (
	"sort"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

/*
	Env is the set of global names a procedure body can see.

	An Env is immutable once built: With and the other derivations return
	a new Env and never touch the receiver, so one Env can be handed to
	any number of procedures (and goroutines).
*/
type Env struct {
	vars map[string]interface{}
}

// NewEnv copies vars into a fresh Env.
func NewEnv(vars map[string]interface{}) Env {
	e := Env{make(map[string]interface{}, len(vars))}
	for k, v := range vars {
		e.vars[k] = v
	}
	return e
}

func (e Env) Lookup(name string) (interface{}, bool) {
	v, ok := e.vars[name]
	return v, ok
}

/*
	Get is Lookup for procedure bodies: an unbound name is a call error.
*/
func (e Env) Get(name string) (interface{}, error) {
	v, ok := e.vars[name]
	if !ok {
		return nil, Errorf(courier.ErrCall, "global %q is not bound", name)
	}
	return v, nil
}

// Names lists the bound names, sorted.
func (e Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for k := range e.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e Env) Len() int {
	return len(e.vars)
}

/*
	With returns an Env that also binds every name in extra that e doesn't
	bind already.  Names e already binds keep their values.
*/
func (e Env) With(extra map[string]interface{}) Env {
	out := NewEnv(e.vars)
	for k, v := range extra {
		if _, exists := out.vars[k]; !exists {
			out.vars[k] = v
		}
	}
	return out
}

// shadow is With, except names in over win.
func (e Env) shadow(over map[string]interface{}) Env {
	if len(over) == 0 {
		return e
	}
	out := NewEnv(e.vars)
	for k, v := range over {
		out.vars[k] = v
	}
	return out
}
