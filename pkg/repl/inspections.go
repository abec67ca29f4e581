package repl

import (
	"fmt"
	"reflect"
	"sort"
)

// Inspection is one fact about an evaluated value.
type Inspection struct {
	Name  string
	Value string
}

// Inspections derives a set of reflective facts about a value, in display
// order.
func Inspections(v any) []Inspection {
	if v == nil {
		return []Inspection{{"Type", "<nil>"}}
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	out := []Inspection{
		{"Type", rt.String()},
		{"Kind", rt.Kind().String()},
		{"Size", fmt.Sprintf("%d bytes", rt.Size())},
	}

	switch rt.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		out = append(out, Inspection{"Length", fmt.Sprintf("%d", rv.Len())})
	}
	switch rt.Kind() {
	case reflect.Slice, reflect.Chan:
		out = append(out, Inspection{"Capacity", fmt.Sprintf("%d", rv.Cap())})
	}
	switch rt.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		out = append(out, Inspection{"Is Nil", fmt.Sprintf("%v", rv.IsNil())})
	}
	if rt.Kind() == reflect.Struct {
		out = append(out, Inspection{"Fields", fmt.Sprintf("%d", rt.NumField())})
	}

	if n := rt.NumMethod(); n > 0 {
		names := make([]string, 0, n)
		for i := 0; i < n; i++ {
			names = append(names, rt.Method(i).Name)
		}
		sort.Strings(names)
		out = append(out, Inspection{"Methods", joinBounded(names, 120)})
	}

	if s, ok := v.(fmt.Stringer); ok {
		out = append(out, Inspection{"String Form", truncate(safeString(s), 120)})
	}
	if e, ok := v.(error); ok {
		out = append(out, Inspection{"Error Text", truncate(e.Error(), 120)})
	}

	return out
}

func joinBounded(items []string, limit int) string {
	joined := ""
	for i, item := range items {
		if i > 0 {
			joined += ", "
		}
		if len(joined)+len(item) > limit {
			return fmt.Sprintf("%s… (%d total)", joined, len(items))
		}
		joined += item
	}
	return joined
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// safeString guards against String methods that panic on zero values.
func safeString(s fmt.Stringer) (out string) {
	defer func() {
		if recover() != nil {
			out = "<String panicked>"
		}
	}()
	return s.String()
}
