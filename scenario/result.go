package scenario

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kestrel-js/kestrel"
)

// Missing is how a property that does not exist anywhere on the chain is
// rendered.
const Missing = "<missing>"

// Result is the outcome of running a scenario. Every value is rendered by
// FormatValue so that results from different engines compare as strings.
type Result struct {
	Name     string           `json:"name"`
	Steps    []StepResult     `json:"steps"`
	Objects  []ObjectSnapshot `json:"objects,omitempty"`
	Failures []string         `json:"failures,omitempty"`
	Caches   []CacheResult    `json:"caches,omitempty"`
}

type StepResult struct {
	Step  int      `json:"step"`
	Op    string   `json:"op"`
	OK    *bool    `json:"ok,omitempty"`
	Value *string  `json:"value,omitempty"`
	Keys  []string `json:"keys,omitempty"`
	// Error is the error kind if the step signalled.
	Error string `json:"error,omitempty"`
}

type ObjectSnapshot struct {
	ID         string             `json:"id"`
	Class      string             `json:"class"`
	Extensible bool               `json:"extensible"`
	Proto      string             `json:"proto"`
	Properties []PropertySnapshot `json:"properties"`
}

// PropertySnapshot is one own property. Attrs uses the notation of
// kestrel.Attr.String.
type PropertySnapshot struct {
	Key    string `json:"key"`
	Attrs  string `json:"attrs"`
	Value  string `json:"value,omitempty"`
	Getter bool   `json:"getter,omitempty"`
	Setter bool   `json:"setter,omitempty"`
}

type CacheResult struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// JSON is the indented JSON encoding of r.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Format renders r as text: one line per step, then the snapshots.
func (r *Result) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario %s\n", r.Name)
	for _, st := range r.Steps {
		fmt.Fprintf(&sb, "  #%d %s", st.Step, st.Op)
		if st.OK != nil {
			fmt.Fprintf(&sb, " ok=%t", *st.OK)
		}
		if st.Value != nil {
			fmt.Fprintf(&sb, " value=%s", *st.Value)
		}
		if st.Keys != nil {
			fmt.Fprintf(&sb, " keys=[%s]", strings.Join(st.Keys, " "))
		}
		if st.Error != "" {
			fmt.Fprintf(&sb, " error=%s", st.Error)
		}
		sb.WriteByte('\n')
	}
	for _, o := range r.Objects {
		ext := "extensible"
		if !o.Extensible {
			ext = "non-extensible"
		}
		fmt.Fprintf(&sb, "object %s %s %s proto=%s\n", o.ID, o.Class, ext, o.Proto)
		for _, p := range o.Properties {
			fmt.Fprintf(&sb, "  %s [%s]", quote(p.Key), p.Attrs)
			if p.Getter || p.Setter {
				fmt.Fprintf(&sb, " get=%t set=%t", p.Getter, p.Setter)
			} else {
				fmt.Fprintf(&sb, " %s", p.Value)
			}
			sb.WriteByte('\n')
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&sb, "FAIL %s\n", f)
	}
	return sb.String()
}

// FormatValue renders v. Strings are JSON-quoted, -0 is "-0", objects are
// "@id" if they appear in ids, and a nil value is Missing.
func FormatValue(v kestrel.Value, ids map[*kestrel.Object]string) string {
	if v == nil {
		return Missing
	}
	if o, ok := v.(*kestrel.Object); ok {
		if id, ok := ids[o]; ok {
			return "@" + id
		}
		return o.String()
	}
	switch x := v.Export().(type) {
	case string:
		if _, isSym := v.(*kestrel.Symbol); !isSym {
			return quote(x)
		}
	case float64:
		if x == 0 && math.Signbit(x) {
			return "-0"
		}
	}
	return v.String()
}

// AttrString renders descriptor flags like kestrel.Attr.String.
func AttrString(d kestrel.PropertyDescriptor) string {
	var a kestrel.Attr
	if d.Writable.Bool() {
		a |= kestrel.AttrWritable
	}
	if d.Enumerable.Bool() {
		a |= kestrel.AttrEnumerable
	}
	if d.Configurable.Bool() {
		a |= kestrel.AttrConfigurable
	}
	if d.IsAccessor() {
		a |= kestrel.AttrAccessor
	}
	return a.String()
}

func quote(s string) string {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return string(b)
}

// Diff compares two results of the same scenario and describes every
// difference. Error kinds are engine specific, so only whether a step
// signalled is compared. Expectation failures and cache statistics are
// ignored.
func Diff(a, b *Result) []string {
	var diffs []string
	add := func(format string, args ...interface{}) {
		diffs = append(diffs, fmt.Sprintf(format, args...))
	}
	if len(a.Steps) != len(b.Steps) {
		add("step count: %d != %d", len(a.Steps), len(b.Steps))
	}
	for i := 0; i < len(a.Steps) && i < len(b.Steps); i++ {
		x, y := a.Steps[i], b.Steps[i]
		if (x.Error == "") != (y.Error == "") {
			add("step %d (%s): error %q != %q", x.Step, x.Op, x.Error, y.Error)
			continue
		}
		if x.Error != "" {
			continue
		}
		if fmtBool(x.OK) != fmtBool(y.OK) {
			add("step %d (%s): ok %s != %s", x.Step, x.Op, fmtBool(x.OK), fmtBool(y.OK))
		}
		if fmtString(x.Value) != fmtString(y.Value) {
			add("step %d (%s): value %s != %s", x.Step, x.Op, fmtString(x.Value), fmtString(y.Value))
		}
		if strings.Join(x.Keys, " ") != strings.Join(y.Keys, " ") {
			add("step %d (%s): keys [%s] != [%s]", x.Step, x.Op, strings.Join(x.Keys, " "), strings.Join(y.Keys, " "))
		}
	}
	if len(a.Objects) != len(b.Objects) {
		add("snapshot count: %d != %d", len(a.Objects), len(b.Objects))
	}
	for i := 0; i < len(a.Objects) && i < len(b.Objects); i++ {
		x, y := a.Objects[i], b.Objects[i]
		if x.ID != y.ID || x.Class != y.Class || x.Extensible != y.Extensible || x.Proto != y.Proto {
			add("object %s: %s/%t/%s != %s/%t/%s", x.ID, x.Class, x.Extensible, x.Proto, y.Class, y.Extensible, y.Proto)
		}
		if len(x.Properties) != len(y.Properties) {
			add("object %s: %d properties != %d", x.ID, len(x.Properties), len(y.Properties))
		}
		for j := 0; j < len(x.Properties) && j < len(y.Properties); j++ {
			if x.Properties[j] != y.Properties[j] {
				add("object %s: property %d: %+v != %+v", x.ID, j, x.Properties[j], y.Properties[j])
			}
		}
	}
	return diffs
}

func fmtBool(b *bool) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprint(*b)
}

func fmtString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
