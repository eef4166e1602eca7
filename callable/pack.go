package callable

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/cbor"
	"github.com/polydawn/refmt/obj/atlas"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/courier"
)

type kind string

const (
	kindProc    kind = "proc"
	kindPartial kind = "partial"
	kindList    kind = "list"
	kindTuple   kind = "tuple"
	kindMap     kind = "map"
	kindValue   kind = "value"
)

/*
	envelope is the packed form of one value.  Kind says which of the other
	fields are in use; nested values are packed on their own, so each of
	Defaults, Items, Target, and Keys holds complete packed payloads.
*/
type envelope struct {
	Kind     kind              `refmt:"k"`
	Code     string            `refmt:"code,omitempty"`
	Defaults [][]byte          `refmt:"defaults,omitempty"`
	Items    [][]byte          `refmt:"items,omitempty"`
	Target   []byte            `refmt:"target,omitempty"`
	Keys     map[string][]byte `refmt:"keys,omitempty"`
	Value    interface{}       `refmt:"v"`
}

var packAtlas = atlas.MustBuild(
	atlas.BuildEntry(envelope{}).StructMap().Autogenerate().Complete(),
)

// Packed payloads longer than this are abbreviated in error messages.
const corruptPreview = 32

/*
	Serializer packs and unpacks callables against one Codebook.
	Both ends of a transfer must use codebooks with the same definitions.
*/
type Serializer struct {
	codebook *Codebook
}

func NewSerializer(cb *Codebook) *Serializer {
	return &Serializer{cb}
}

/*
	Pack encodes v.

	Procedures pack as their codebook name plus packed defaults.
	Partials pack their target, args, and kwargs each separately.
	Lists (`[]interface{}`), Tuples, and `map[string]interface{}` pack
	element by element, so callables nested in them survive.
	Anything else must be plain data refmt can encode on its own.

	Plain data keeps its contents but not its Go type: it unpacks the way
	refmt decodes into an `interface{}`, so a `[]string` comes back as a
	`[]interface{}` and a `map[string]string` as a `map[string]interface{}`.
	Procedure bodies should type-assert elements, not whole containers.

	May return errors of category:

	  - `courier.ErrEncoding` -- for a procedure with captured state, a procedure
	    the codebook doesn't know, a Callable of unknown type, or unencodable data
*/
func (s *Serializer) Pack(v interface{}) (_ []byte, err error) {
	defer RequireErrorHasCategory(&err, courier.ErrorCategory(""))

	e, err := s.envelop(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := refmt.NewMarshallerAtlased(cbor.EncodeOptions{}, &buf, packAtlas).Marshal(e); err != nil {
		return nil, Errorf(courier.ErrEncoding, "cannot pack value of type %T: %s", v, err)
	}
	return buf.Bytes(), nil
}

func (s *Serializer) envelop(v interface{}) (envelope, error) {
	switch v := v.(type) {
	case *Procedure:
		if v == nil {
			return envelope{}, Errorf(courier.ErrEncoding, "cannot pack a nil procedure")
		}
		if len(v.captured) > 0 {
			return envelope{}, Errorf(courier.ErrEncoding,
				"cannot pack procedure %q: it captures %s; bind that state with a Partial instead",
				v.name, strings.Join(v.Captured(), ", "))
		}
		if _, ok := s.codebook.lookup(v.name); !ok {
			return envelope{}, Errorf(courier.ErrEncoding, "cannot pack procedure %q: not in this codebook", v.name)
		}
		defaults, err := s.packEach(v.defaults)
		if err != nil {
			return envelope{}, err
		}
		return envelope{Kind: kindProc, Code: v.name, Defaults: defaults}, nil
	case *Partial:
		if v == nil {
			return envelope{}, Errorf(courier.ErrEncoding, "cannot pack a nil partial")
		}
		if v.Target == nil {
			return envelope{}, Errorf(courier.ErrEncoding, "cannot pack partial with no target")
		}
		target, err := s.Pack(v.Target)
		if err != nil {
			return envelope{}, err
		}
		args, err := s.packEach(v.Args)
		if err != nil {
			return envelope{}, err
		}
		kwargs, err := s.packKeys(v.Kwargs)
		if err != nil {
			return envelope{}, err
		}
		return envelope{Kind: kindPartial, Target: target, Items: args, Keys: kwargs}, nil
	case Tuple:
		items, err := s.packEach(v)
		return envelope{Kind: kindTuple, Items: items}, err
	case []interface{}:
		items, err := s.packEach(v)
		return envelope{Kind: kindList, Items: items}, err
	case map[string]interface{}:
		keys, err := s.packKeys(v)
		return envelope{Kind: kindMap, Keys: keys}, err
	case Callable:
		return envelope{}, Errorf(courier.ErrEncoding, "cannot pack callable of type %T", v)
	default:
		return envelope{Kind: kindValue, Value: v}, nil
	}
}

func (s *Serializer) packEach(vs []interface{}) ([][]byte, error) {
	out := make([][]byte, len(vs))
	for i, v := range vs {
		packed, err := s.Pack(v)
		if err != nil {
			return nil, err
		}
		out[i] = packed
	}
	return out, nil
}

func (s *Serializer) packKeys(m map[string]interface{}) (map[string][]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		packed, err := s.Pack(v)
		if err != nil {
			return nil, err
		}
		out[k] = packed
	}
	return out, nil
}

/*
	Unpack decodes data produced by Pack.

	Procedures are rebuilt from this serializer's codebook and run against
	env.  Nothing the sender's procedures could see travels with them.

	May return errors of category:

	  - `courier.ErrCorrupt` -- if data doesn't decode, or names code this codebook lacks
*/
func (s *Serializer) Unpack(data []byte, env Env) (_ interface{}, err error) {
	defer RequireErrorHasCategory(&err, courier.ErrorCategory(""))

	e, err := decode(data)
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case kindProc:
		entry, ok := s.codebook.lookup(e.Code)
		if !ok {
			return nil, corrupt(data, fmt.Errorf("no procedure %q in codebook", e.Code))
		}
		if len(e.Defaults) > len(entry.params) {
			return nil, corrupt(data, fmt.Errorf("procedure %q has %d parameters but %d defaults", e.Code, len(entry.params), len(e.Defaults)))
		}
		defaults, err := s.unpackEach(e.Defaults, env)
		if err != nil {
			return nil, err
		}
		return &Procedure{
			name:     e.Code,
			params:   entry.params,
			defaults: defaults,
			body:     entry.body,
			env:      env,
		}, nil
	case kindPartial:
		target, err := s.Unpack(e.Target, env)
		if err != nil {
			return nil, err
		}
		c, ok := target.(Callable)
		if !ok {
			return nil, corrupt(data, fmt.Errorf("partial target is a %T, not a callable", target))
		}
		args, err := s.unpackEach(e.Items, env)
		if err != nil {
			return nil, err
		}
		kwargs, err := s.unpackKeys(e.Keys, env)
		if err != nil {
			return nil, err
		}
		return &Partial{Target: c, Args: args, Kwargs: kwargs}, nil
	case kindTuple:
		items, err := s.unpackEach(e.Items, env)
		return Tuple(items), err
	case kindList:
		return s.unpackEach(e.Items, env)
	case kindMap:
		return s.unpackKeys(e.Keys, env)
	case kindValue:
		return e.Value, nil
	default:
		return nil, corrupt(data, fmt.Errorf("unknown kind %q", e.Kind))
	}
}

func decode(data []byte) (e envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = corrupt(data, fmt.Errorf("decoder panic: %v", r))
		}
	}()
	if err := refmt.NewUnmarshallerAtlased(cbor.DecodeOptions{}, bytes.NewReader(data), packAtlas).Unmarshal(&e); err != nil {
		return envelope{}, corrupt(data, err)
	}
	return e, nil
}

func (s *Serializer) unpackEach(packed [][]byte, env Env) ([]interface{}, error) {
	out := make([]interface{}, len(packed))
	for i, p := range packed {
		v, err := s.Unpack(p, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Serializer) unpackKeys(packed map[string][]byte, env Env) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(packed))
	keys := make([]string, 0, len(packed))
	for k := range packed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := s.Unpack(packed[k], env)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func corrupt(data []byte, cause error) error {
	preview := data
	suffix := ""
	if len(preview) > corruptPreview {
		preview, suffix = preview[:corruptPreview], "..."
	}
	return ErrorDetailed(courier.ErrCorrupt,
		fmt.Sprintf("cannot unpack %d bytes (%s%s): %s", len(data), hex.EncodeToString(preview), suffix, cause),
		map[string]string{
			"bytes": hex.EncodeToString(preview) + suffix,
			"cause": cause.Error(),
		})
}
