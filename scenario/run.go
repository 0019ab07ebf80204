package scenario

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kestrel-js/kestrel"
)

// Run replays s on a new engine configured from s.Config. opts are applied
// after the scenario config.
func Run(s *Scenario, opts ...kestrel.Option) (*Result, error) {
	cfg, err := s.EngineConfig()
	if err != nil {
		return nil, err
	}
	e := kestrel.New(append([]kestrel.Option{kestrel.WithConfig(cfg)}, opts...)...)
	return RunOn(e, s)
}

// RunOn replays s on an existing engine; s.Config is ignored. Several
// scenarios can share one engine to populate a single shape graph.
func RunOn(e *kestrel.Engine, s *Scenario) (*Result, error) {
	r := &runner{
		e:       e,
		s:       s,
		objects: make(map[string]*kestrel.Object),
		ids:     make(map[*kestrel.Object]string),
		caches:  make(map[string]*kestrel.InlineCache),
		res:     &Result{Name: s.Name},
	}
	e.Logger().Debug().Str("scenario", s.Name).Int("steps", len(s.Steps)).Msg("running scenario")
	for i := range s.Steps {
		if err := r.step(i, &s.Steps[i]); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d (%s): %w", s.Name, i+1, s.Steps[i].Op, err)
		}
	}
	for _, id := range s.Snapshot {
		r.res.Objects = append(r.res.Objects, r.snapshot(id))
	}
	for _, id := range sortedKeys(r.caches) {
		st := r.caches[id].Stats()
		r.res.Caches = append(r.res.Caches, CacheResult{
			ID:     id,
			State:  st.State.String(),
			Hits:   st.Hits,
			Misses: st.Misses,
		})
	}
	return r.res, nil
}

type runner struct {
	e       *kestrel.Engine
	s       *Scenario
	objects map[string]*kestrel.Object
	ids     map[*kestrel.Object]string
	caches  map[string]*kestrel.InlineCache
	res     *Result
}

func (r *runner) step(i int, st *Step) error {
	sr := StepResult{Step: i + 1, Op: st.Op}
	var stepErr error
	err := r.e.Try(func() {
		stepErr = r.exec(st, &sr)
	})
	if stepErr != nil {
		return stepErr
	}
	if err != nil {
		var pe *kestrel.PropertyError
		if !errors.As(err, &pe) {
			return err
		}
		sr.OK, sr.Value, sr.Keys = nil, nil, nil
		sr.Error = pe.Kind.String()
	}
	r.check(st, &sr)
	r.res.Steps = append(r.res.Steps, sr)
	return nil
}

func (r *runner) exec(st *Step, sr *StepResult) error {
	e := r.e
	var target *kestrel.Object
	if st.Target != "" {
		target = r.objects[st.Target]
	}
	key := kestrel.StrKey(st.Key)

	switch st.Op {
	case OpNewObject:
		var o *kestrel.Object
		switch st.Proto {
		case "":
			o = e.NewObject()
		case ProtoNull:
			o = e.NewObjectWithPrototype(nil)
		default:
			o = e.NewObjectWithPrototype(r.objects[st.Proto])
		}
		r.register(st.ID, o)
	case OpNewArray, OpNewArguments:
		values, err := r.values(st.Values)
		if err != nil {
			return err
		}
		if st.Op == OpNewArray {
			r.register(st.ID, e.NewArray(values...))
		} else {
			r.register(st.ID, e.NewArguments(values))
		}
	case OpGet:
		r.setValue(sr, target.Get(key))
	case OpHas:
		setOK(sr, target.HasProperty(key))
	case OpHasOwn:
		setOK(sr, target.HasOwnProperty(key))
	case OpSet:
		v, err := st.Value.Value(r.objects)
		if err != nil {
			return err
		}
		setOK(sr, target.Set(key, v, st.Throw))
	case OpDelete:
		setOK(sr, target.Delete(key, st.Throw))
	case OpDefine:
		descr, err := r.descriptor(st)
		if err != nil {
			return err
		}
		setOK(sr, target.DefineProperty(key, descr, st.Throw))
	case OpSetPrototype:
		var proto *kestrel.Object
		if st.Proto != ProtoNull {
			proto = r.objects[st.Proto]
		}
		setOK(sr, target.SetPrototype(proto, st.Throw))
	case OpPreventExtensions:
		target.PreventExtensions()
		setOK(sr, true)
	case OpSeal:
		setOK(sr, target.Seal())
	case OpFreeze:
		setOK(sr, target.Freeze())
	case OpSetLength:
		setOK(sr, target.SetLength(*st.Length, st.Throw))
	case OpPush:
		values, err := r.values(st.Values)
		if err != nil {
			return err
		}
		r.setValue(sr, kestrel.ToValue(target.Push(values...)))
	case OpPop:
		v := target.Pop()
		if v == nil {
			v = kestrel.Undefined()
		}
		r.setValue(sr, v)
	case OpOwnKeys:
		sr.Keys = keyStrings(target.OwnKeys())
	case OpEnumKeys:
		sr.Keys = keyStrings(target.EnumerateKeys())
	case OpCacheRead:
		r.setValue(sr, r.cache(st.ID, key).Read(target))
	case OpCacheWrite:
		v, err := st.Value.Value(r.objects)
		if err != nil {
			return err
		}
		setOK(sr, r.cache(st.ID, key).Write(target, v, st.Throw))
	case OpLog:
		v, err := st.Value.Value(r.objects)
		if err != nil {
			return err
		}
		e.Logger().Info().Str("scenario", r.s.Name).Msg(FormatValue(v, r.ids))
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

func (r *runner) register(id string, o *kestrel.Object) {
	r.objects[id] = o
	r.ids[o] = id
}

func (r *runner) values(lits []Literal) ([]kestrel.Value, error) {
	values := make([]kestrel.Value, len(lits))
	for i := range lits {
		v, err := lits[i].Value(r.objects)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (r *runner) cache(id string, key kestrel.PropertyKey) *kestrel.InlineCache {
	ic, ok := r.caches[id]
	if !ok {
		ic = r.e.NewInlineCache(key)
		r.caches[id] = ic
	}
	return ic
}

func (r *runner) setValue(sr *StepResult, v kestrel.Value) {
	s := FormatValue(v, r.ids)
	sr.Value = &s
}

func setOK(sr *StepResult, ok bool) {
	sr.OK = &ok
}

func (r *runner) descriptor(st *Step) (kestrel.PropertyDescriptor, error) {
	var d kestrel.PropertyDescriptor
	if st.Value != nil {
		v, err := st.Value.Value(r.objects)
		if err != nil {
			return d, err
		}
		d.Value = v
	}
	d.Writable = flag(st.Writable)
	d.Enumerable = flag(st.Enumerable)
	d.Configurable = flag(st.Configurable)
	if st.Getter != nil {
		g, err := r.getter(st.Getter)
		if err != nil {
			return d, err
		}
		d.Getter = g
	}
	if st.Setter != nil {
		d.Setter = r.setter(st.Setter)
	}
	return d, nil
}

func flag(b *bool) kestrel.Flag {
	if b == nil {
		return kestrel.FLAG_NOT_SET
	}
	return kestrel.ToFlag(*b)
}

func (r *runner) getter(a *Accessor) (*kestrel.Object, error) {
	if a.ThisKey != "" {
		key := kestrel.StrKey(a.ThisKey)
		return r.e.NewFunction("get", 0, func(call kestrel.FunctionCall) kestrel.Value {
			if this, ok := call.This.(*kestrel.Object); ok {
				if v := this.Get(key); v != nil {
					return v
				}
			}
			return kestrel.Undefined()
		}), nil
	}
	ret := kestrel.Undefined()
	if a.Returns != nil {
		v, err := a.Returns.Value(r.objects)
		if err != nil {
			return nil, err
		}
		ret = v
	}
	return r.e.NewFunction("get", 0, func(kestrel.FunctionCall) kestrel.Value {
		return ret
	}), nil
}

func (r *runner) setter(a *Accessor) *kestrel.Object {
	key := kestrel.StrKey(a.ThisKey)
	return r.e.NewFunction("set", 1, func(call kestrel.FunctionCall) kestrel.Value {
		if this, ok := call.This.(*kestrel.Object); ok && a.ThisKey != "" {
			this.Set(key, call.Argument(0), false)
		}
		return kestrel.Undefined()
	})
}

func (r *runner) check(st *Step, sr *StepResult) {
	x := st.Expect
	if x == nil {
		return
	}
	fail := func(format string, args ...interface{}) {
		r.res.Failures = append(r.res.Failures, fmt.Sprintf("step %d (%s): ", sr.Step, st.Describe())+fmt.Sprintf(format, args...))
	}
	if x.Error != "" || sr.Error != "" {
		if x.Error != sr.Error {
			fail("expected error %q, got %q", x.Error, sr.Error)
		}
		return
	}
	if x.OK != nil && (sr.OK == nil || *sr.OK != *x.OK) {
		fail("expected ok=%t, got %s", *x.OK, fmtBool(sr.OK))
	}
	if x.Value != nil {
		want := x.Value.Format()
		if sr.Value == nil || *sr.Value != want {
			fail("expected value %s, got %s", want, fmtString(sr.Value))
		}
	}
	if x.Keys != nil {
		got := fmt.Sprint(sr.Keys)
		if want := fmt.Sprint(x.Keys); got != want {
			fail("expected keys %s, got %s", want, got)
		}
	}
}

func (r *runner) snapshot(id string) ObjectSnapshot {
	o := r.objects[id]
	snap := ObjectSnapshot{
		ID:         id,
		Class:      o.ClassName(),
		Extensible: o.IsExtensible(),
		Proto:      r.protoName(o.GetPrototype()),
		Properties: []PropertySnapshot{},
	}
	for _, p := range o.EnumerateOwnProperties() {
		d := p.Descriptor
		ps := PropertySnapshot{
			Key:   p.Key.String(),
			Attrs: AttrString(d),
		}
		if d.IsAccessor() {
			ps.Getter = kestrel.IsCallable(d.Getter)
			ps.Setter = kestrel.IsCallable(d.Setter)
		} else {
			ps.Value = FormatValue(d.Value, r.ids)
		}
		snap.Properties = append(snap.Properties, ps)
	}
	return snap
}

// protoName names intrinsic prototypes the way ECMAScript source refers to
// them.
func (r *runner) protoName(p *kestrel.Object) string {
	switch p {
	case nil:
		return ProtoNull
	case r.e.ObjectPrototype:
		return "Object.prototype"
	case r.e.ArrayPrototype:
		return "Array.prototype"
	case r.e.FunctionPrototype:
		return "Function.prototype"
	}
	if id, ok := r.ids[p]; ok {
		return "@" + id
	}
	return p.String()
}

func keyStrings(keys []kestrel.PropertyKey) []string {
	res := make([]string, len(keys))
	for i, k := range keys {
		res[i] = k.String()
	}
	return res
}

func sortedKeys(m map[string]*kestrel.InlineCache) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
