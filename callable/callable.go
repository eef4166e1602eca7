/*
	Package callable packs units of work into bytes in one process and
	rebuilds them in another.

	A unit of work is a Callable: a Procedure (named code from a shared
	Codebook, plus default arguments), or a Partial binding some arguments
	onto another Callable ahead of time.  Lists, tuples, and maps of them
	pack too, as do plain data values.

	Procedures may not carry captured state across the wire.  The receiver
	rebuilds each procedure against an Env of its own choosing, so anything
	the sender had closed over would be silently lost; packing one is
	refused instead.  Bind such state with a Partial.
*/
package callable

import (
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

type Callable interface {
	Call(args []interface{}, kwargs map[string]interface{}) (interface{}, error)
}

// Tuple is a fixed sequence of values.  It packs distinctly from a plain list.
type Tuple []interface{}

var (
	_ Callable = &Procedure{}
	_ Callable = &Partial{}
)

/*
	Procedure is an instance of codebook code: a name, its parameters,
	default values for its trailing parameters, and the environment its
	body runs against.

	Procedures are immutable; methods that change one return a copy.
*/
type Procedure struct {
	name     string
	params   []string
	defaults []interface{}
	captured map[string]interface{}
	body     Body
	env      Env
}

func (p *Procedure) Name() string            { return p.name }
func (p *Procedure) Params() []string        { return append([]string(nil), p.params...) }
func (p *Procedure) Defaults() []interface{} { return append([]interface{}(nil), p.defaults...) }
func (p *Procedure) Env() Env                { return p.env }

func (p *Procedure) clone() *Procedure {
	p2 := *p
	return &p2
}

/*
	Capture returns a copy of the procedure closed over vars.  Captured
	names shadow the environment when the body runs.

	A procedure with captured state runs fine locally, but can't be packed.
*/
func (p *Procedure) Capture(vars map[string]interface{}) *Procedure {
	p2 := p.clone()
	p2.captured = make(map[string]interface{}, len(p.captured)+len(vars))
	for k, v := range p.captured {
		p2.captured[k] = v
	}
	for k, v := range vars {
		p2.captured[k] = v
	}
	return p2
}

// Captured reports the names the procedure has closed over.
func (p *Procedure) Captured() []string {
	return NewEnv(p.captured).Names()
}

/*
	Call binds arguments to parameters and runs the body.

	Positional args bind first, in order; kwargs then bind by parameter
	name; any parameter still unbound takes its default.

	May return errors of category:

	  - `courier.ErrCall` -- for too many args, an unknown or doubly-bound kwarg, or a missing arg
	  - anything the body returns
*/
func (p *Procedure) Call(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if len(args) > len(p.params) {
		return nil, Errorf(courier.ErrCall, "%s takes %d arguments but %d were given", p.name, len(p.params), len(args))
	}
	bound := make([]interface{}, len(p.params))
	set := make([]bool, len(p.params))
	for i, v := range args {
		bound[i], set[i] = v, true
	}
	for k, v := range kwargs {
		i := p.paramIndex(k)
		switch {
		case i < 0:
			return nil, Errorf(courier.ErrCall, "%s got an unexpected keyword argument %q", p.name, k)
		case set[i]:
			return nil, Errorf(courier.ErrCall, "%s got multiple values for argument %q", p.name, k)
		}
		bound[i], set[i] = v, true
	}
	firstDefault := len(p.params) - len(p.defaults)
	for i := range bound {
		if set[i] {
			continue
		}
		if i < firstDefault {
			return nil, Errorf(courier.ErrCall, "%s missing required argument %q", p.name, p.params[i])
		}
		bound[i] = p.defaults[i-firstDefault]
	}
	return p.body(p.env.shadow(p.captured), bound)
}

func (p *Procedure) paramIndex(name string) int {
	for i, param := range p.params {
		if param == name {
			return i
		}
	}
	return -1
}

/*
	Partial is a Callable with some arguments bound in advance.

	Calling it prepends Args to the call's positional args and merges
	Kwargs under the call's kwargs (the call's win).
*/
type Partial struct {
	Target Callable
	Args   []interface{}
	Kwargs map[string]interface{}
}

// Bind makes a Partial, copying args and kwargs.
func Bind(target Callable, args []interface{}, kwargs map[string]interface{}) *Partial {
	p := &Partial{
		Target: target,
		Args:   append([]interface{}(nil), args...),
		Kwargs: make(map[string]interface{}, len(kwargs)),
	}
	for k, v := range kwargs {
		p.Kwargs[k] = v
	}
	return p
}

func (p *Partial) Call(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if p.Target == nil {
		return nil, Errorf(courier.ErrCall, "partial has no target")
	}
	allArgs := make([]interface{}, 0, len(p.Args)+len(args))
	allArgs = append(allArgs, p.Args...)
	allArgs = append(allArgs, args...)
	allKwargs := make(map[string]interface{}, len(p.Kwargs)+len(kwargs))
	for k, v := range p.Kwargs {
		allKwargs[k] = v
	}
	for k, v := range kwargs {
		allKwargs[k] = v
	}
	return p.Target.Call(allArgs, allKwargs)
}

/*
	ArgCount reports how many parameters c takes: every parameter of a
	Procedure (defaulted ones included), less whatever a Partial has
	already bound, positionally or by keyword.
	Callables of unknown type report zero.
*/
func ArgCount(c Callable) int {
	switch c := c.(type) {
	case *Procedure:
		if c == nil {
			return 0
		}
		return len(c.params)
	case *Partial:
		if c == nil {
			return 0
		}
		n := ArgCount(c.Target) - len(c.Args)
		params := paramsOf(c.Target)
		for k := range c.Kwargs {
			for _, p := range params {
				if p == k {
					n--
					break
				}
			}
		}
		if n < 0 {
			return 0
		}
		return n
	default:
		return 0
	}
}

// paramsOf finds the parameter names of the procedure under any partials.
func paramsOf(c Callable) []string {
	switch c := c.(type) {
	case *Procedure:
		if c == nil {
			return nil
		}
		return c.params
	case *Partial:
		if c == nil {
			return nil
		}
		return paramsOf(c.Target)
	default:
		return nil
	}
}

/*
	BindMissingGlobals returns a callable like c whose environment also
	binds every name in extra that it doesn't bind already.

	Procedures, and Partials directly wrapping a Procedure, are rebuilt;
	anything else comes back as is.  c itself is never modified.
*/
func BindMissingGlobals(c Callable, extra map[string]interface{}) Callable {
	switch c := c.(type) {
	case *Procedure:
		p2 := c.clone()
		p2.env = c.env.With(extra)
		return p2
	case *Partial:
		target, ok := c.Target.(*Procedure)
		if !ok {
			return c
		}
		return &Partial{
			Target: BindMissingGlobals(target, extra),
			Args:   c.Args,
			Kwargs: c.Kwargs,
		}
	default:
		return c
	}
}
