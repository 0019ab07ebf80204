// Package scenario loads YAML descriptions of property-operation sequences
// and replays them on a kestrel engine. The resulting trace and object
// snapshots are plain data, so the same scenario can be checked against golden
// files or against another engine (see package oracle).
package scenario

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/dlclark/regexp2"
	"github.com/maruel/natural"
	"gopkg.in/yaml.v3"

	"github.com/kestrel-js/kestrel"
)

// Operation names.
const (
	OpNewObject         = "new_object"
	OpNewArray          = "new_array"
	OpNewArguments      = "new_arguments"
	OpGet               = "get"
	OpHas               = "has"
	OpHasOwn            = "has_own"
	OpSet               = "set"
	OpDelete            = "delete"
	OpDefine            = "define"
	OpSetPrototype      = "set_prototype"
	OpPreventExtensions = "prevent_extensions"
	OpSeal              = "seal"
	OpFreeze            = "freeze"
	OpSetLength         = "set_length"
	OpPush              = "push"
	OpPop               = "pop"
	OpOwnKeys           = "own_keys"
	OpEnumKeys          = "enum_keys"
	OpCacheRead         = "cache_read"
	OpCacheWrite        = "cache_write"
	OpLog               = "log"
)

// ProtoNull as the proto of new_object or set_prototype means no prototype.
const ProtoNull = "null"

// Scenario is one YAML file.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Requires is a semver constraint on kestrel.Version, e.g. ">= 1.1".
	Requires string `yaml:"requires,omitempty"`
	// Config overrides engine config fields by their YAML name.
	Config   map[string]int `yaml:"config,omitempty"`
	Steps    []Step         `yaml:"steps"`
	Snapshot []string       `yaml:"snapshot,omitempty"`

	Path string `yaml:"-"`
}

// Step is a single operation. Which fields are used depends on Op.
type Step struct {
	Op string `yaml:"op"`
	// ID names the object created by new_*, or the cache used by cache_*.
	ID     string    `yaml:"id,omitempty"`
	Target string    `yaml:"target,omitempty"`
	Key    string    `yaml:"key,omitempty"`
	Value  *Literal  `yaml:"value,omitempty"`
	Values []Literal `yaml:"values,omitempty"`
	Proto  string    `yaml:"proto,omitempty"`
	Length *uint32   `yaml:"length,omitempty"`
	Throw  bool      `yaml:"throw,omitempty"`

	Writable     *bool     `yaml:"writable,omitempty"`
	Enumerable   *bool     `yaml:"enumerable,omitempty"`
	Configurable *bool     `yaml:"configurable,omitempty"`
	Getter       *Accessor `yaml:"getter,omitempty"`
	Setter       *Accessor `yaml:"setter,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Accessor describes a generated getter or setter function. A getter returns
// Returns, or this[ThisKey]; a setter stores its argument into this[ThisKey]
// (non-throwing) or does nothing.
type Accessor struct {
	Returns *Literal `yaml:"returns,omitempty"`
	ThisKey string   `yaml:"this_key,omitempty"`
}

// Expect is checked against the step outcome by Run. Unset fields are not
// checked.
type Expect struct {
	OK    *bool    `yaml:"ok,omitempty"`
	Value *Literal `yaml:"value,omitempty"`
	Error string   `yaml:"error,omitempty"`
	Keys  []string `yaml:"keys,omitempty"`
}

type literalKind uint8

const (
	litValue literalKind = iota
	litNull
	litUndefined
	litRef
)

// Literal is a scalar value in a scenario. YAML null is null, the plain
// scalar undefined is undefined, and "!ref id" refers to a scenario object.
// Parse retags nulls before decoding; see tagNulls.
type Literal struct {
	kind literalKind
	val  interface{}
	ref  string
}

func (l *Literal) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", n.Line)
	}
	switch {
	case n.ShortTag() == "!ref":
		l.kind, l.ref = litRef, n.Value
		return nil
	case n.ShortTag() == "!null":
		l.kind = litNull
		return nil
	case n.ShortTag() == "!!str" && n.Style == 0 && n.Value == "undefined":
		l.kind = litUndefined
		return nil
	}
	l.kind = litValue
	return n.Decode(&l.val)
}

// Ref returns the object id of a "!ref" literal.
func (l *Literal) Ref() (string, bool) {
	return l.ref, l.kind == litRef
}

// Value converts the literal; refs are resolved by objects.
func (l *Literal) Value(objects map[string]*kestrel.Object) (kestrel.Value, error) {
	switch l.kind {
	case litNull:
		return kestrel.Null(), nil
	case litUndefined:
		return kestrel.Undefined(), nil
	case litRef:
		o, ok := objects[l.ref]
		if !ok {
			return nil, fmt.Errorf("unknown object %q", l.ref)
		}
		return o, nil
	}
	return kestrel.ToValue(l.val), nil
}

// Format renders the literal the way FormatValue renders the value it
// produces. Refs are rendered as "@id".
func (l *Literal) Format() string {
	switch l.kind {
	case litNull:
		return "null"
	case litUndefined:
		return "undefined"
	case litRef:
		return "@" + l.ref
	}
	if f, ok := l.val.(float64); ok && f == 0 && math.Signbit(f) {
		return "-0"
	}
	return FormatValue(kestrel.ToValue(l.val), nil)
}

// JS returns the literal as ECMAScript source. objs is the expression of the
// object table refs are looked up in.
func (l *Literal) JS(objs string) string {
	switch l.kind {
	case litNull:
		return "null"
	case litUndefined:
		return "undefined"
	case litRef:
		return objs + "[" + quote(l.ref) + "]"
	}
	switch v := l.val.(type) {
	case string:
		return quote(v)
	case float64:
		switch {
		case math.IsNaN(v):
			return "NaN"
		case math.IsInf(v, 1):
			return "Infinity"
		case math.IsInf(v, -1):
			return "-Infinity"
		case v == 0 && math.Signbit(v):
			return "-0"
		}
	}
	return FormatValue(kestrel.ToValue(l.val), nil)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("parsing scenario: empty document")
	}
	tagNulls(&doc, false)
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, err
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// tagNulls retags null literals as "!null". A null node never reaches an
// Unmarshaler in yaml.v3, so a plain null would be indistinguishable from an
// absent value.
func tagNulls(n *yaml.Node, literal bool) {
	if literal && n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		n.Tag, n.Value, n.Style = "!null", "null", 0
		return
	}
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			tagNulls(c, false)
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			tagNulls(c, literal)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			switch n.Content[i].Value {
			case "value", "values", "returns":
				tagNulls(n.Content[i+1], true)
			default:
				tagNulls(n.Content[i+1], false)
			}
		}
	}
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, ordered by name in natural
// order ("case2" before "case10").
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
		default:
			continue
		}
		s, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	Sort(res)
	return res, nil
}

func Sort(list []*Scenario) {
	sort.SliceStable(list, func(i, j int) bool {
		return natural.Less(list[i].Name, list[j].Name)
	})
}

// Supported reports whether the scenario's version constraint admits
// kestrel.Version.
func (s *Scenario) Supported() (bool, error) {
	if s.Requires == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(s.Requires)
	if err != nil {
		return false, fmt.Errorf("scenario %s: requires: %w", s.Name, err)
	}
	return c.Check(semver.MustParse(kestrel.Version)), nil
}

// Match keeps the scenarios whose name matches pattern, an ECMAScript regular
// expression. An empty pattern matches everything.
func Match(list []*Scenario, pattern string) ([]*Scenario, error) {
	if pattern == "" {
		return list, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("invalid --match pattern: %w", err)
	}
	var res []*Scenario
	for _, s := range list {
		ok, err := re.MatchString(s.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, s)
		}
	}
	return res, nil
}

// EngineConfig applies the Config overrides to kestrel.DefaultConfig.
func (s *Scenario) EngineConfig() (kestrel.Config, error) {
	if len(s.Config) == 0 {
		return kestrel.DefaultConfig(), nil
	}
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return kestrel.Config{}, err
	}
	cfg, err := kestrel.ParseConfig(data)
	if err != nil {
		return kestrel.Config{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return cfg, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	defined := make(map[string]bool)
	known := func(i int, id string) error {
		if id != "" && !defined[id] {
			return fmt.Errorf("scenario %s: step %d: unknown object %q", s.Name, i+1, id)
		}
		return nil
	}
	for i, st := range s.Steps {
		var err error
		switch st.Op {
		case OpNewObject, OpNewArray, OpNewArguments:
			if st.ID == "" {
				err = fmt.Errorf("scenario %s: step %d: %s needs an id", s.Name, i+1, st.Op)
				break
			}
			if st.Proto != "" && st.Op != OpNewObject {
				err = fmt.Errorf("scenario %s: step %d: proto is only valid for %s", s.Name, i+1, OpNewObject)
				break
			}
			if st.Proto != ProtoNull {
				err = known(i, st.Proto)
			}
			defined[st.ID] = true
		case OpGet, OpHas, OpHasOwn, OpSet, OpDelete, OpDefine, OpCacheRead, OpCacheWrite:
			if st.Target == "" {
				err = fmt.Errorf("scenario %s: step %d: %s needs a target", s.Name, i+1, st.Op)
				break
			}
			err = known(i, st.Target)
			if err == nil && (st.Op == OpSet || st.Op == OpCacheWrite) && st.Value == nil {
				err = fmt.Errorf("scenario %s: step %d: %s needs a value", s.Name, i+1, st.Op)
			}
			if err == nil && (st.Op == OpCacheRead || st.Op == OpCacheWrite) && st.ID == "" {
				err = fmt.Errorf("scenario %s: step %d: %s needs a cache id", s.Name, i+1, st.Op)
			}
		case OpSetPrototype:
			if st.Target == "" || st.Proto == "" {
				err = fmt.Errorf("scenario %s: step %d: %s needs a target and a proto", s.Name, i+1, st.Op)
				break
			}
			err = known(i, st.Target)
			if err == nil && st.Proto != ProtoNull {
				err = known(i, st.Proto)
			}
		case OpPreventExtensions, OpSetLength, OpSeal, OpFreeze, OpPush, OpPop, OpOwnKeys, OpEnumKeys:
			if st.Target == "" {
				err = fmt.Errorf("scenario %s: step %d: %s needs a target", s.Name, i+1, st.Op)
				break
			}
			err = known(i, st.Target)
			if err == nil && st.Op == OpSetLength && st.Length == nil {
				err = fmt.Errorf("scenario %s: step %d: %s needs a length", s.Name, i+1, st.Op)
			}
		case OpLog:
			if st.Value == nil {
				err = fmt.Errorf("scenario %s: step %d: %s needs a value", s.Name, i+1, st.Op)
			}
		default:
			err = fmt.Errorf("scenario %s: step %d: unknown op %q", s.Name, i+1, st.Op)
		}
		if err != nil {
			return err
		}
		for _, l := range append(st.Values, literals(st)...) {
			if ref, ok := l.Ref(); ok {
				if err := known(i, ref); err != nil {
					return err
				}
			}
		}
	}
	for _, id := range s.Snapshot {
		if !defined[id] {
			return fmt.Errorf("scenario %s: snapshot of unknown object %q", s.Name, id)
		}
	}
	return nil
}

func literals(st Step) []Literal {
	var res []Literal
	for _, l := range []*Literal{st.Value, accessorLiteral(st.Getter), accessorLiteral(st.Setter)} {
		if l != nil {
			res = append(res, *l)
		}
	}
	return res
}

func accessorLiteral(a *Accessor) *Literal {
	if a == nil {
		return nil
	}
	return a.Returns
}

// Describe is a one-line rendering of the step used in traces.
func (st *Step) Describe() string {
	var sb strings.Builder
	sb.WriteString(st.Op)
	if st.ID != "" {
		sb.WriteString(" " + st.ID)
	}
	if st.Target != "" {
		sb.WriteString(" " + st.Target)
		if st.Key != "" {
			sb.WriteString("[" + quote(st.Key) + "]")
		}
	}
	if st.Proto != "" {
		sb.WriteString(" proto=" + st.Proto)
	}
	if st.Length != nil {
		fmt.Fprintf(&sb, " length=%d", *st.Length)
	}
	if st.Value != nil {
		sb.WriteString(" = " + st.Value.Format())
	}
	if len(st.Values) > 0 {
		parts := make([]string, len(st.Values))
		for i := range st.Values {
			parts[i] = st.Values[i].Format()
		}
		sb.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	if st.Throw {
		sb.WriteString(" !")
	}
	return sb.String()
}
