// Package oracle runs scenarios on goja as a reference implementation of the
// ECMAScript object model. A scenario is translated into a script whose
// results use the same rendering as package scenario, so the two runs can be
// compared with scenario.Diff.
package oracle

import (
	"embed"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/kestrel-js/kestrel"
	"github.com/kestrel-js/kestrel/scenario"
)

//go:embed prelude.js
var preludeFS embed.FS

func loadSource(path string) ([]byte, error) {
	path = strings.TrimPrefix(strings.TrimPrefix(path, "./"), "/")
	b, err := preludeFS.ReadFile(path)
	if err != nil {
		return nil, require.ModuleFileDoesNotExistError
	}
	return b, nil
}

// logPrinter sends console output of the scenario script to a logger.
type logPrinter struct {
	logger zerolog.Logger
}

func (p logPrinter) Log(s string)   { p.logger.Info().Msg(s) }
func (p logPrinter) Warn(s string)  { p.logger.Warn().Msg(s) }
func (p logPrinter) Error(s string) { p.logger.Error().Msg(s) }

// Oracle runs scenarios on goja.
type Oracle struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Oracle {
	return &Oracle{logger: logger}
}

// Run translates s and runs it on a fresh runtime.
func (o *Oracle) Run(s *scenario.Scenario) (*scenario.Result, error) {
	src, err := Translate(s)
	if err != nil {
		return nil, err
	}
	vm := goja.New()
	registry := require.NewRegistry(require.WithLoader(loadSource))
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(logPrinter{
		logger: o.logger.With().Str("scenario", s.Name).Logger(),
	}))
	registry.Enable(vm)
	console.Enable(vm)

	v, err := vm.RunScript(s.Name+".js", src)
	if err != nil {
		return nil, fmt.Errorf("oracle: scenario %s: %w", s.Name, err)
	}
	var res scenario.Result
	if err := json.Unmarshal([]byte(v.String()), &res); err != nil {
		return nil, fmt.Errorf("oracle: scenario %s: decoding result: %w", s.Name, err)
	}
	return &res, nil
}

// Check runs s on a kestrel engine and on goja and returns the differences.
func (o *Oracle) Check(s *scenario.Scenario, opts ...kestrel.Option) (*scenario.Result, []string, error) {
	got, err := scenario.Run(s, opts...)
	if err != nil {
		return nil, nil, err
	}
	want, err := o.Run(s)
	if err != nil {
		return got, nil, err
	}
	return got, scenario.Diff(got, want), nil
}

// Translate renders s as a script for goja. The completion value of the
// script is the JSON encoding of a scenario.Result.
func Translate(s *scenario.Scenario) (string, error) {
	var sb strings.Builder
	sb.WriteString("var h = require(\"./prelude.js\");\n")
	sb.WriteString("var t = new h.Oracle();\n")
	sb.WriteString("var objs = t.objs;\n")
	for i := range s.Steps {
		st := &s.Steps[i]
		body, err := translateStep(st)
		if err != nil {
			return "", fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
		}
		fmt.Fprintf(&sb, "t.step(%d, %s, function () {\n%s\n});\n", i+1, quote(st.Op), body)
	}
	ids := make([]string, len(s.Snapshot))
	for i, id := range s.Snapshot {
		ids[i] = quote(id)
	}
	fmt.Fprintf(&sb, "t.result(%s, [%s]);\n", quote(s.Name), strings.Join(ids, ", "))
	return sb.String(), nil
}

func translateStep(st *scenario.Step) (string, error) {
	o := obj(st.Target)
	k := quote(st.Key)
	switch st.Op {
	case scenario.OpNewObject:
		expr := "{}"
		switch st.Proto {
		case "":
		case scenario.ProtoNull:
			expr = "Object.create(null)"
		default:
			expr = "Object.create(" + obj(st.Proto) + ")"
		}
		return fmt.Sprintf("t.register(%s, %s);", quote(st.ID), expr), nil
	case scenario.OpNewArray:
		return fmt.Sprintf("t.register(%s, [%s]);", quote(st.ID), list(st.Values)), nil
	case scenario.OpNewArguments:
		return fmt.Sprintf("t.register(%s, t.newArguments([%s]));", quote(st.ID), list(st.Values)), nil
	case scenario.OpGet, scenario.OpCacheRead:
		return fmt.Sprintf("return {value: t.get(%s, %s)};", o, k), nil
	case scenario.OpHas:
		return fmt.Sprintf("return {ok: %s in %s};", k, o), nil
	case scenario.OpHasOwn:
		return fmt.Sprintf("return {ok: Object.prototype.hasOwnProperty.call(%s, %s)};", o, k), nil
	case scenario.OpSet, scenario.OpCacheWrite:
		return set(o, k, st.Value.JS("objs"), st.Throw), nil
	case scenario.OpSetLength:
		return set(o, quote("length"), fmt.Sprint(*st.Length), st.Throw), nil
	case scenario.OpDelete:
		if st.Throw {
			return fmt.Sprintf("return {ok: h.strictDelete(%s, %s)};", o, k), nil
		}
		return fmt.Sprintf("return {ok: Reflect.deleteProperty(%s, %s)};", o, k), nil
	case scenario.OpDefine:
		d := descriptor(st)
		if st.Throw {
			return fmt.Sprintf("Object.defineProperty(%s, %s, %s);\nreturn {ok: true};", o, k, d), nil
		}
		return fmt.Sprintf("return {ok: Reflect.defineProperty(%s, %s, %s)};", o, k, d), nil
	case scenario.OpSetPrototype:
		p := "null"
		if st.Proto != scenario.ProtoNull {
			p = obj(st.Proto)
		}
		if st.Throw {
			return fmt.Sprintf("Object.setPrototypeOf(%s, %s);\nreturn {ok: true};", o, p), nil
		}
		return fmt.Sprintf("return {ok: Reflect.setPrototypeOf(%s, %s)};", o, p), nil
	case scenario.OpPreventExtensions:
		return fmt.Sprintf("return {ok: Reflect.preventExtensions(%s)};", o), nil
	case scenario.OpSeal:
		return fmt.Sprintf("Object.seal(%s);\nreturn {ok: true};", o), nil
	case scenario.OpFreeze:
		return fmt.Sprintf("Object.freeze(%s);\nreturn {ok: true};", o), nil
	case scenario.OpPush:
		return fmt.Sprintf("return {value: t.fmt(Array.prototype.push.apply(%s, [%s]))};", o, list(st.Values)), nil
	case scenario.OpPop:
		return fmt.Sprintf("return {value: t.fmt(Array.prototype.pop.call(%s))};", o), nil
	case scenario.OpOwnKeys:
		return fmt.Sprintf("return {keys: Reflect.ownKeys(%s).map(String)};", o), nil
	case scenario.OpEnumKeys:
		return fmt.Sprintf("var ks = [];\nfor (var k in %s) {\n\tks.push(k);\n}\nreturn {keys: ks};", o), nil
	case scenario.OpLog:
		return fmt.Sprintf("console.log(t.fmt(%s));", st.Value.JS("objs")), nil
	}
	return "", fmt.Errorf("unknown op %q", st.Op)
}

func set(o, k, v string, throw bool) string {
	if throw {
		return fmt.Sprintf("return {ok: h.strictSet(%s, %s, %s)};", o, k, v)
	}
	return fmt.Sprintf("return {ok: Reflect.set(%s, %s, %s)};", o, k, v)
}

func descriptor(st *scenario.Step) string {
	var fields []string
	if st.Value != nil {
		fields = append(fields, "value: "+st.Value.JS("objs"))
	}
	for _, f := range []struct {
		name string
		v    *bool
	}{
		{"writable", st.Writable},
		{"enumerable", st.Enumerable},
		{"configurable", st.Configurable},
	} {
		if f.v != nil {
			fields = append(fields, fmt.Sprintf("%s: %t", f.name, *f.v))
		}
	}
	if a := st.Getter; a != nil {
		switch {
		case a.ThisKey != "":
			fields = append(fields, fmt.Sprintf("get: function () { return this[%s]; }", quote(a.ThisKey)))
		case a.Returns != nil:
			fields = append(fields, fmt.Sprintf("get: function () { return %s; }", a.Returns.JS("objs")))
		default:
			fields = append(fields, "get: function () {}")
		}
	}
	if a := st.Setter; a != nil {
		if a.ThisKey != "" {
			fields = append(fields, fmt.Sprintf("set: function (v) { this[%s] = v; }", quote(a.ThisKey)))
		} else {
			fields = append(fields, "set: function (v) {}")
		}
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

func obj(id string) string {
	return "objs[" + quote(id) + "]"
}

func list(lits []scenario.Literal) string {
	parts := make([]string, len(lits))
	for i := range lits {
		parts[i] = lits[i].JS("objs")
	}
	return strings.Join(parts, ", ")
}

func quote(s string) string {
	b, _ := json.MarshalNoEscape(s)
	return string(b)
}
