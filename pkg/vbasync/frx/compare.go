package frx

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// maxDifferences bounds the explanation returned by Compare.
const maxDifferences = 20

// compareOptions make declared sizes (fields tagged `frx:"size"`) invisible
// and compare byte payloads, including RawControl.Data, as opaque values.
var compareOptions = cmp.Options{
	cmp.FilterPath(isSizeField, cmp.Ignore()),
	cmp.FilterValues(func(x, y []byte) bool { return len(x) > 0 || len(y) > 0 }, cmp.Comparer(bytes.Equal)),
	cmpopts.EquateEmpty(),
}

func isSizeField(p cmp.Path) bool {
	sf, ok := p.Last().(cmp.StructField)
	if !ok || len(p) < 2 {
		return false
	}
	parent := p.Index(-2).Type()
	if parent.Kind() != reflect.Struct {
		return false
	}
	return parent.Field(sf.Index()).Tag.Get("frx") == "size"
}

// Compare reports whether two form trees are semantically equal. Declared
// sizes are ignored and undecoded records compare byte for byte. When the
// trees differ, the explanation lists the differing paths.
func Compare(a, b *FormTree) (bool, string) {
	r := &reporter{}
	if cmp.Equal(a, b, compareOptions, cmp.Reporter(r)) {
		return true, ""
	}
	return false, r.explain()
}

// CompareFiles decodes and compares two .frx files.
func CompareFiles(a, b []byte) (bool, string, error) {
	ta, err := DecodeFile(a)
	if err != nil {
		return false, "", err
	}
	tb, err := DecodeFile(b)
	if err != nil {
		return false, "", err
	}
	equal, why := Compare(ta, tb)
	return equal, why, nil
}

// reporter collects one line per unequal leaf, named by its path below
// the form root.
type reporter struct {
	path  cmp.Path
	diffs []string
	more  int
}

func (r *reporter) PushStep(ps cmp.PathStep) { r.path = append(r.path, ps) }

func (r *reporter) PopStep() { r.path = r.path[:len(r.path)-1] }

func (r *reporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	if len(r.diffs) >= maxDifferences {
		r.more++
		return
	}
	vx, vy := r.path.Last().Values()
	r.diffs = append(r.diffs, r.name()+": "+describe(vx, vy))
}

func (r *reporter) name() string {
	var b strings.Builder
	b.WriteString("Form")
	for _, step := range r.path {
		switch s := step.(type) {
		case cmp.StructField:
			b.WriteString("." + s.Name())
		case cmp.SliceIndex:
			kx, ky := s.SplitKeys()
			if kx < 0 {
				kx = ky
			}
			fmt.Fprintf(&b, "[%d]", kx)
		case cmp.MapIndex:
			fmt.Fprintf(&b, "[%q]", s.Key().String())
		}
	}
	return b.String()
}

func describe(x, y reflect.Value) string {
	switch {
	case !x.IsValid():
		return "only in second"
	case !y.IsValid():
		return "only in first"
	}
	if x.Kind() == reflect.Interface && !x.IsNil() && !y.IsNil() && x.Elem().Type() != y.Elem().Type() {
		return fmt.Sprintf("%s != %s", x.Elem().Type(), y.Elem().Type())
	}
	switch x.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if x.IsNil() != y.IsNil() {
			return presence(x) + " != " + presence(y)
		}
		if x.Kind() == reflect.Slice && x.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%d bytes != %d bytes", x.Len(), y.Len())
		}
	}
	return fmt.Sprintf("%v != %v", x.Interface(), y.Interface())
}

func presence(v reflect.Value) string {
	if v.IsNil() {
		return "absent"
	}
	return "present"
}

func (r *reporter) explain() string {
	out := strings.Join(r.diffs, "\n")
	if r.more > 0 {
		out += fmt.Sprintf("\n... and %d more", r.more)
	}
	return out
}
